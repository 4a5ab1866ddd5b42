// Package explorer ties the engine packages together into one interactive
// view of a research record.
//
// An [Explorer] owns the live, baseline and customized graph slots, the
// filter flags, the latest community detection result, the visualization
// settings and the selected centrality metric. The CLI's explore command and
// the HTTP sessions API are both thin shells around it.
package explorer

import (
	"context"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/netlens/pkg/community"
	"github.com/matzehuels/netlens/pkg/customize"
	"github.com/matzehuels/netlens/pkg/errors"
	"github.com/matzehuels/netlens/pkg/filter"
	"github.com/matzehuels/netlens/pkg/network"
	"github.com/matzehuels/netlens/pkg/notify"
	"github.com/matzehuels/netlens/pkg/stats"
)

// MsgReset is shown after Reset.
const MsgReset = "Network reset to original state."

// Options configures an Explorer.
type Options struct {
	// Detector runs community detection. Without one, detection is
	// unavailable and community isolation stays disabled.
	Detector community.Detector

	// Notifier receives user-facing messages. Defaults to discarding them.
	Notifier notify.Notifier

	// Logger receives debug output. Defaults to discarding it.
	Logger *log.Logger

	// AutoDetect runs detection once during Open when the graph has nodes.
	AutoDetect bool

	// Settings are the initial visualization settings. The zero value means
	// customize.DefaultSettings.
	Settings *customize.Settings

	// FilterOptions are passed to the filter engine.
	FilterOptions []filter.Option
}

// Explorer is one interactive view of a research record. It is safe for
// concurrent use; overlapping detections resolve last-writer-wins.
type Explorer struct {
	id       string
	research *network.Research
	engine   *filter.Engine
	resolver *community.Resolver
	notifier notify.Notifier
	logger   *log.Logger

	mu         sync.Mutex
	result     *community.Result
	settings   customize.Settings
	customized bool
	metric     string
}

// Open starts exploring r. With AutoDetect set, a detection failure is
// reported through the notifier and does not fail Open.
func Open(ctx context.Context, r *network.Research, opts Options) (*Explorer, error) {
	if r == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no research record")
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	fopts := append([]filter.Option{filter.WithNotifier(opts.Notifier)}, opts.FilterOptions...)
	e := &Explorer{
		id:       uuid.NewString(),
		research: r,
		engine:   filter.NewEngine(r.Graph(), fopts...),
		notifier: opts.Notifier,
		logger:   opts.Logger,
		settings: customize.DefaultSettings(),
	}
	if opts.Settings != nil {
		e.settings = *opts.Settings
	}
	if opts.Detector != nil {
		e.resolver = community.NewResolver(opts.Detector, opts.Notifier, opts.Logger)
	}

	if opts.AutoDetect && e.resolver != nil && !e.engine.Live().Empty() {
		_ = e.DetectCommunities(ctx)
	}
	e.logger.Debug("explorer opened", "id", e.id, "research", r.ID)
	return e, nil
}

// ID identifies this explorer.
func (e *Explorer) ID() string { return e.id }

// Research returns the record being explored.
func (e *Explorer) Research() *network.Research { return e.research }

// Engine exposes the filter engine.
func (e *Explorer) Engine() *filter.Engine { return e.engine }

// =============================================================================
// Communities
// =============================================================================

// DetectCommunities runs detection on the live graph and merges the labels
// into the live and baseline graphs. Failures are notified and returned;
// state is unchanged on failure.
func (e *Explorer) DetectCommunities(ctx context.Context) error {
	if e.resolver == nil {
		return errors.New(errors.ErrCodeUnsupported, "no community detector configured")
	}
	res, err := e.resolver.Resolve(ctx, e.engine.Live(), e.research.Algorithm())
	if err != nil {
		return err
	}
	e.engine.ApplyCommunities(res.Map)

	e.mu.Lock()
	e.result = res
	e.mu.Unlock()
	return nil
}

// Communities returns the latest detected communities.
func (e *Explorer) Communities() []community.Community {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.result == nil {
		return nil
	}
	return e.result.Communities
}

// =============================================================================
// Filters
// =============================================================================

// Toggle flips the named filter. The highlight filter uses the selected
// metric.
func (e *Explorer) Toggle(name string, layout filter.Layout) error {
	return e.engine.Toggle(name, e.Metric(), layout)
}

// State returns the filter flags.
func (e *Explorer) State() filter.State { return e.engine.State() }

// Metric returns the selected centrality metric label, empty for none.
func (e *Explorer) Metric() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.metric
}

// ToggleMetric selects label, or clears the selection when label is already
// selected.
func (e *Explorer) ToggleMetric(label string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.metric == label {
		e.metric = ""
		return
	}
	e.metric = label
}

// SelectMetric selects label, or clears the selection when label is empty.
func (e *Explorer) SelectMetric(label string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metric = label
}

// =============================================================================
// Display
// =============================================================================

// Live returns a copy of the live graph.
func (e *Explorer) Live() *network.Graph { return e.engine.Live() }

// DisplayGraph returns the live graph as drawn: with links reversed when the
// research is directed.
func (e *Explorer) DisplayGraph() *network.Graph {
	g := e.engine.Live()
	if e.research.Directed() {
		return network.ReverseLinks(g)
	}
	return g
}

// Customize stores s and returns the customized display graph.
func (e *Explorer) Customize(s customize.Settings) *network.Graph {
	e.mu.Lock()
	e.settings = s
	e.customized = true
	e.mu.Unlock()
	return customize.Apply(e.DisplayGraph(), s)
}

// Settings returns the current visualization settings.
func (e *Explorer) Settings() customize.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// Display returns what should be drawn: the customized overlay of the
// display graph once Customize has been called, the display graph otherwise.
func (e *Explorer) Display() *network.Graph {
	e.mu.Lock()
	customized, s := e.customized, e.settings
	e.mu.Unlock()
	if customized {
		return customize.Apply(e.DisplayGraph(), s)
	}
	return e.DisplayGraph()
}

// Stats computes statistics over the live graph.
func (e *Explorer) Stats() stats.Stats {
	return stats.Compute(e.engine.Live())
}

// Summary computes statistics plus density, diameter and community count.
func (e *Explorer) Summary() stats.Summary {
	return stats.Summarize(e.engine.Live(), len(e.Communities()))
}

// Search returns the display graph narrowed to nodes whose id contains text.
func (e *Explorer) Search(text string) *network.Graph {
	return network.Search(e.Display(), text)
}

// Reset shows a fresh copy of the baseline and drops the customization,
// settings and metric selection. Filter flags are left as they are.
func (e *Explorer) Reset() {
	if e.engine.Baseline() == nil {
		return
	}
	e.engine.Reset()
	e.mu.Lock()
	e.customized = false
	e.settings = customize.DefaultSettings()
	e.metric = ""
	e.mu.Unlock()
	e.notifier.Success(MsgReset)
}

// Snapshot is the serializable state of an explorer.
type Snapshot struct {
	ID          string                `json:"id"`
	ResearchID  string                `json:"research_id,omitempty"`
	State       filter.State          `json:"state"`
	Metric      string                `json:"metric,omitempty"`
	Settings    customize.Settings    `json:"settings"`
	Communities []community.Community `json:"communities"`
	Summary     stats.Summary         `json:"summary"`
}

// Snapshot returns the current state for display or transport.
func (e *Explorer) Snapshot() Snapshot {
	communities := e.Communities()
	if communities == nil {
		communities = []community.Community{}
	}
	return Snapshot{
		ID:          e.id,
		ResearchID:  e.research.ID,
		State:       e.State(),
		Metric:      e.Metric(),
		Settings:    e.Settings(),
		Communities: communities,
		Summary:     e.Summary(),
	}
}

package filter

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/matzehuels/netlens/pkg/community"
	"github.com/matzehuels/netlens/pkg/errors"
	"github.com/matzehuels/netlens/pkg/network"
	"github.com/matzehuels/netlens/pkg/notify"
	"github.com/matzehuels/netlens/pkg/observability"
)

// Engine holds the live and baseline graphs of one view and applies filter
// transitions to them. It is safe for concurrent use; overlapping calls are
// serialized and the last one wins.
type Engine struct {
	mu          sync.Mutex
	state       State
	live        *network.Graph
	baseline    *network.Graph
	communities community.Map

	notifier  notify.Notifier
	rng       *rand.Rand
	delay     time.Duration
	afterFunc func(time.Duration, func())
}

// Option configures an Engine.
type Option func(*Engine)

// WithNotifier sets where outcome messages go. The default discards them.
func WithNotifier(n notify.Notifier) Option { return func(e *Engine) { e.notifier = n } }

// WithRand sets the jitter source for community layout.
func WithRand(r *rand.Rand) Option { return func(e *Engine) { e.rng = r } }

// WithSeed seeds the jitter source, for reproducible layouts.
func WithSeed(seed uint64) Option {
	return func(e *Engine) { e.rng = rand.New(rand.NewPCG(seed, seed^0xdeadbeef)) }
}

// WithLayoutDelay sets how long to wait before nudging the layout.
func WithLayoutDelay(d time.Duration) Option { return func(e *Engine) { e.delay = d } }

// WithScheduler replaces time.AfterFunc for the delayed layout nudge.
func WithScheduler(f func(time.Duration, func())) Option {
	return func(e *Engine) { e.afterFunc = f }
}

// NewEngine returns an engine whose live graph and baseline are copies of g.
func NewEngine(g *network.Graph, opts ...Option) *Engine {
	e := &Engine{
		live:     g.Clone(),
		baseline: g.Clone(),
		notifier: notify.Nop{},
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		delay:    DefaultLayoutDelay,
		afterFunc: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current flags.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Live returns a copy of the displayed graph.
func (e *Engine) Live() *network.Graph {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.live.Clone()
}

// Baseline returns a copy of the restore target.
func (e *Engine) Baseline() *network.Graph {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.baseline.Clone()
}

// Communities returns the community map used by isolation.
func (e *Engine) Communities() community.Map {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.communities
}

// ApplyCommunities labels the live and baseline nodes found in m and keeps m
// for community isolation. This is the only path that rewrites the baseline.
func (e *Engine) ApplyCommunities(m community.Map) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.live != nil {
		e.live = e.live.Clone()
		community.Merge(e.live, m)
	}
	if e.baseline != nil {
		e.baseline = e.baseline.Clone()
		community.Merge(e.baseline, m)
	}
	e.communities = m
}

// Reset puts a copy of the baseline on display. Filter flags are unchanged.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.baseline != nil {
		e.live = e.baseline.Clone()
	}
}

// ToggleStrongConnections flips the betweenness threshold filter.
func (e *Engine) ToggleStrongConnections() {
	e.mu.Lock()
	e.state, e.live = StrongConnections(e.state, e.baseline, e.live)
	e.toggled(NameStrong, e.state.StrongConnections)
	e.mu.Unlock()
}

// ToggleCentralHighlight flips highlighting by the metric with the given label.
func (e *Engine) ToggleCentralHighlight(label string) {
	e.mu.Lock()
	e.state, e.live = CentralHighlight(e.state, e.live, label)
	e.toggled(NameHighlight, e.state.HighlightCentral)
	e.mu.Unlock()
}

// ToggleActivity flips the activity filter.
func (e *Engine) ToggleActivity() {
	e.mu.Lock()
	e.state, e.baseline, e.live = Activity(e.state, e.baseline, e.live)
	e.toggled(NameActivity, e.state.Activity)
	e.mu.Unlock()
}

// ToggleRestore flips the restored view.
func (e *Engine) ToggleRestore() {
	e.mu.Lock()
	e.state, e.live = Restore(e.state, e.baseline, e.live)
	e.toggled(NameRestore, e.state.Restored)
	e.mu.Unlock()
}

// ToggleCommunityIsolation flips the intra-community view. Without a
// community map it notifies, leaves everything unchanged and returns a
// PRECONDITION_FAILED error. After a successful transition a non-nil layout
// is reheated and fitted to view once the layout delay has passed.
func (e *Engine) ToggleCommunityIsolation(layout Layout) error {
	e.mu.Lock()
	next, live, res, err := CommunityIsolation(e.state, e.baseline, e.live, e.communities, e.rng)
	if err != nil {
		e.mu.Unlock()
		observability.Filter().OnFilterRejected(NameCommunities, errors.UserMessage(err))
		e.notifier.Error(errors.UserMessage(err))
		return err
	}
	if live == nil || e.baseline == nil {
		e.mu.Unlock()
		return nil
	}
	e.state, e.live = next, live
	e.toggled(NameCommunities, e.state.IntraCommunity)
	e.mu.Unlock()

	if res.Enabled {
		e.notifier.Success(fmt.Sprintf(msgIsolationOn, res.Removed))
	} else {
		e.notifier.Success(msgIsolationOff)
	}
	if layout != nil {
		e.afterFunc(e.delay, func() {
			layout.ReheatSimulation()
			layout.ZoomToFit(FitDuration, 0)
		})
	}
	return nil
}

// Toggle dispatches to the filter with the given name. label selects the
// metric for the highlight filter and is ignored otherwise.
func (e *Engine) Toggle(name, label string, layout Layout) error {
	switch name {
	case NameStrong:
		e.ToggleStrongConnections()
	case NameHighlight:
		e.ToggleCentralHighlight(label)
	case NameActivity:
		e.ToggleActivity()
	case NameRestore:
		e.ToggleRestore()
	case NameCommunities:
		return e.ToggleCommunityIsolation(layout)
	default:
		return errors.New(errors.ErrCodeInvalidFilter, "unknown filter: %s", name)
	}
	return nil
}

// toggled reports a transition. Callers hold e.mu.
func (e *Engine) toggled(name string, active bool) {
	var nodes, links int
	if e.live != nil {
		nodes, links = len(e.live.Nodes), len(e.live.Links)
	}
	observability.Filter().OnFilterToggled(name, active, nodes, links)
}

package community

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/netlens/pkg/errors"
	"github.com/matzehuels/netlens/pkg/network"
	"github.com/matzehuels/netlens/pkg/notify"
	"github.com/matzehuels/netlens/pkg/observability"
)

// DefaultAlgorithm is used when no algorithm is named.
const DefaultAlgorithm = "louvain"

// Notification messages.
const (
	MsgNoData   = "Data not found"
	MsgEmpty    = "No community data returned from server."
	MsgFailed   = "An error occurred during community detection."
	msgDetected = "Detected %d communities in the network."
)

// Result is a successful resolution.
type Result struct {
	Communities []Community `json:"communities"`
	Map         Map         `json:"communityMap"`
	Algorithm   string      `json:"algorithm"`
	Modularity  float64     `json:"modularity,omitempty"`
}

// Apply merges the community labels onto each non-nil graph.
func (r *Result) Apply(graphs ...*network.Graph) {
	for _, g := range graphs {
		Merge(g, r.Map)
	}
}

// Resolver runs detection and reports the outcome.
type Resolver struct {
	detector Detector
	notifier notify.Notifier
	logger   *log.Logger
}

// NewResolver returns a resolver. Nil notifier and logger discard output.
func NewResolver(d Detector, n notify.Notifier, logger *log.Logger) *Resolver {
	if n == nil {
		n = notify.Nop{}
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Resolver{detector: d, notifier: n, logger: logger}
}

// Resolve detects the communities of g with the named algorithm, or louvain
// when algorithm is empty. Every failure produces one error notification and
// a nil result; nothing is retried. The caller merges the result.
func (r *Resolver) Resolve(ctx context.Context, g *network.Graph, algorithm string) (*Result, error) {
	if g == nil {
		r.notifier.Error(MsgNoData)
		return nil, errors.New(errors.ErrCodeInvalidGraph, "no graph to analyze")
	}
	if algorithm == "" {
		algorithm = DefaultAlgorithm
	}

	hooks := observability.Detection()
	hooks.OnDetectStart(ctx, algorithm, len(g.Nodes))
	start := time.Now()

	resp, err := r.detector.Detect(ctx, g, algorithm)
	if err == nil && !resp.Complete() {
		err = errors.New(errors.ErrCodeDetectionFailed, "response lacks communities or nodes")
		r.notifier.Error(MsgEmpty)
	} else if err != nil {
		r.notifier.Error(MsgFailed)
	}
	if err != nil {
		hooks.OnDetectComplete(ctx, algorithm, 0, time.Since(start), err)
		r.logger.Error("community detection failed", "algorithm", algorithm, "err", err)
		return nil, err
	}

	res := &Result{
		Communities: resp.Communities,
		Map:         resp.Map(),
		Algorithm:   algorithm,
		Modularity:  resp.Modularity,
	}
	hooks.OnDetectComplete(ctx, algorithm, len(res.Communities), time.Since(start), nil)
	r.logger.Debug("communities detected", "algorithm", algorithm, "communities", len(res.Communities), "labeled", len(res.Map))
	r.notifier.Success(fmt.Sprintf(msgDetected, len(res.Communities)))
	return res, nil
}

package network

import "time"

// DefaultAlgorithm is the community detection algorithm used when a research
// record does not name one.
const DefaultAlgorithm = "louvain"

// Research is a saved analysis of one conversation source. Its Analysis graph
// is the starting point of every exploration.
type Research struct {
	ID        string    `json:"id"`
	Name      string    `json:"research_name,omitempty"`
	Platform  string    `json:"platform,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Analysis  *Analysis `json:"analysis,omitempty"`
	Filters   Filters   `json:"filters"`
}

// Analysis is the graph produced upstream for a research record.
type Analysis struct {
	Nodes     []Node `json:"nodes"`
	Links     []Link `json:"links"`
	Algorithm string `json:"algorithm,omitempty"`
}

// Filters holds the ingestion options that still matter for display.
type Filters struct {
	// Directed marks graphs whose links point from sender to receiver.
	Directed bool `json:"directed"`
}

// Graph returns a deep copy of the analysis graph, or nil if there is none.
func (r *Research) Graph() *Graph {
	if r == nil || r.Analysis == nil {
		return nil
	}
	return New(r.Analysis.Nodes, r.Analysis.Links).Clone()
}

// Algorithm returns the detection algorithm for this research.
func (r *Research) Algorithm() string {
	if r == nil || r.Analysis == nil || r.Analysis.Algorithm == "" {
		return DefaultAlgorithm
	}
	return r.Analysis.Algorithm
}

// Directed reports whether links should be drawn reversed for display.
func (r *Research) Directed() bool {
	return r != nil && r.Filters.Directed
}

// SetGraph replaces the analysis graph.
func (r *Research) SetGraph(g *Graph) {
	if r.Analysis == nil {
		r.Analysis = &Analysis{}
	}
	if g == nil {
		r.Analysis.Nodes, r.Analysis.Links = nil, nil
		return
	}
	c := g.Clone()
	r.Analysis.Nodes, r.Analysis.Links = c.Nodes, c.Links
}

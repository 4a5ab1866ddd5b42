package network

import (
	"encoding/json"
	"maps"
)

// =============================================================================
// Metric Names
// =============================================================================

// Metric field names as they appear on the wire.
const (
	MetricDegree      = "degree"
	MetricBetweenness = "betweenness"
	MetricCloseness   = "closeness"
	MetricEigenvector = "eigenvector"
	MetricPageRank    = "pagerank"
	MetricMessages    = "messages"
)

// =============================================================================
// Graph
// =============================================================================

// Graph is a node list plus a link list.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// =============================================================================
// Node
// =============================================================================

// Node is a participant in the conversation graph. All metric fields are
// supplied upstream; Highlighted, Size, Color, Community and the Original
// coordinates are written by netlens.
type Node struct {
	ID          ID       `json:"id"`
	Community   *int     `json:"community,omitempty"`
	Degree      *float64 `json:"degree,omitempty"`
	Betweenness *float64 `json:"betweenness,omitempty"`
	Closeness   *float64 `json:"closeness,omitempty"`
	Eigenvector *float64 `json:"eigenvector,omitempty"`
	PageRank    *float64 `json:"pagerank,omitempty"`
	Messages    *float64 `json:"messages,omitempty"`
	Highlighted bool     `json:"highlighted,omitempty"`
	Size        *float64 `json:"size,omitempty"`
	Color       string   `json:"color,omitempty"`
	X           *float64 `json:"x,omitempty"`
	Y           *float64 `json:"y,omitempty"`
	OriginalX   *float64 `json:"originalX,omitempty"`
	OriginalY   *float64 `json:"originalY,omitempty"`

	// Extra holds attributes netlens does not model (names, timestamps, ...).
	Extra map[string]json.RawMessage `json:"-"`
}

var nodeFields = []string{
	"id", "community", "degree", "betweenness", "closeness", "eigenvector",
	"pagerank", "messages", "highlighted", "size", "color", "x", "y",
	"originalX", "originalY",
}

// Metric returns the named metric, treating a missing value as 0.
func (n *Node) Metric(name string) float64 {
	v, _ := n.Value(name)
	return v
}

// Value returns the named metric and whether it was set.
// Unknown metric names report false.
func (n *Node) Value(name string) (float64, bool) {
	var p *float64
	switch name {
	case MetricDegree:
		p = n.Degree
	case MetricBetweenness:
		p = n.Betweenness
	case MetricCloseness:
		p = n.Closeness
	case MetricEigenvector:
		p = n.Eigenvector
	case MetricPageRank:
		p = n.PageRank
	case MetricMessages:
		p = n.Messages
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	out := n
	out.Community = clonePtr(n.Community)
	out.Degree = clonePtr(n.Degree)
	out.Betweenness = clonePtr(n.Betweenness)
	out.Closeness = clonePtr(n.Closeness)
	out.Eigenvector = clonePtr(n.Eigenvector)
	out.PageRank = clonePtr(n.PageRank)
	out.Messages = clonePtr(n.Messages)
	out.Size = clonePtr(n.Size)
	out.X = clonePtr(n.X)
	out.Y = clonePtr(n.Y)
	out.OriginalX = clonePtr(n.OriginalX)
	out.OriginalY = clonePtr(n.OriginalY)
	out.Extra = maps.Clone(n.Extra)
	return out
}

type nodeAlias Node

// MarshalJSON writes the modeled fields followed by any Extra attributes.
func (n Node) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(nodeAlias(n))
	if err != nil {
		return nil, err
	}
	return mergeExtra(data, n.Extra)
}

// UnmarshalJSON decodes the modeled fields and keeps the rest in Extra.
func (n *Node) UnmarshalJSON(data []byte) error {
	var a nodeAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := splitExtra(data, nodeFields)
	if err != nil {
		return err
	}
	a.Extra = extra
	*n = Node(a)
	return nil
}

// =============================================================================
// Link
// =============================================================================

// Link connects two nodes. Direction matters for statistics only.
type Link struct {
	Source Endpoint `json:"source"`
	Target Endpoint `json:"target"`
	Weight *float64 `json:"weight,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var linkFields = []string{"source", "target", "weight"}

// Clone returns a deep copy of the link.
func (l Link) Clone() Link {
	out := l
	out.Weight = clonePtr(l.Weight)
	out.Extra = maps.Clone(l.Extra)
	return out
}

type linkAlias Link

// MarshalJSON writes the modeled fields followed by any Extra attributes.
func (l Link) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(linkAlias(l))
	if err != nil {
		return nil, err
	}
	return mergeExtra(data, l.Extra)
}

// UnmarshalJSON decodes the modeled fields and keeps the rest in Extra.
func (l *Link) UnmarshalJSON(data []byte) error {
	var a linkAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := splitExtra(data, linkFields)
	if err != nil {
		return err
	}
	a.Extra = extra
	*l = Link(a)
	return nil
}

// =============================================================================
// Internal Helpers
// =============================================================================

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Float returns a pointer to v, for building nodes in code.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

func splitExtra(data []byte, known []string) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

// mergeExtra appends extra attributes to an encoded object. Modeled fields
// win over extras with the same key.
func mergeExtra(data []byte, extra map[string]json.RawMessage) ([]byte, error) {
	if len(extra) == 0 {
		return data, nil
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, ok := all[k]; !ok {
			all[k] = v
		}
	}
	return json.Marshal(all)
}

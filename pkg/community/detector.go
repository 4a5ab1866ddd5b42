package community

import (
	"context"

	"github.com/matzehuels/netlens/pkg/network"
)

// Community describes one detected group.
type Community struct {
	ID             int          `json:"id"`
	Size           int          `json:"size"`
	Nodes          []network.ID `json:"nodes"`
	AvgBetweenness float64      `json:"avg_betweenness"`
	AvgPageRank    float64      `json:"avg_pagerank"`
}

// Response is the detection service's answer. Communities and Nodes are nil
// when the service omitted them.
type Response struct {
	Nodes           []network.Node `json:"nodes"`
	Links           []network.Link `json:"links,omitempty"`
	Communities     []Community    `json:"communities"`
	NodeCommunities map[string]int `json:"node_communities,omitempty"`
	Algorithm       string         `json:"algorithm,omitempty"`
	NumCommunities  int            `json:"num_communities,omitempty"`
	Modularity      float64        `json:"modularity,omitempty"`
}

// Complete reports whether the response carries both communities and nodes.
func (r *Response) Complete() bool {
	return r != nil && r.Communities != nil && r.Nodes != nil
}

// Map builds the community map from the labeled nodes of the response.
// Nodes without a community are skipped.
func (r *Response) Map() Map {
	m := make(Map, len(r.Nodes))
	for _, n := range r.Nodes {
		if n.Community != nil {
			m[n.ID.Normalized()] = *n.Community
		}
	}
	return m
}

// Detector partitions a graph into communities.
type Detector interface {
	Detect(ctx context.Context, g *network.Graph, algorithm string) (*Response, error)
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc func(ctx context.Context, g *network.Graph, algorithm string) (*Response, error)

// Detect calls f.
func (f DetectorFunc) Detect(ctx context.Context, g *network.Graph, algorithm string) (*Response, error) {
	return f(ctx, g, algorithm)
}

package stats

import (
	"fmt"
	"math"

	"github.com/matzehuels/netlens/pkg/network"
)

// Stats are the basic counts of a graph.
type Stats struct {
	NumNodes        int            `json:"numNodes"`
	NumEdges        int            `json:"numEdges"`
	InDegree        map[string]int `json:"inDegree"`
	OutDegree       map[string]int `json:"outDegree"`
	ReciprocalEdges int            `json:"reciprocalEdges"`
	Reciprocity     float64        `json:"reciprocity"`
}

type pair struct {
	source, target network.ID
}

// Compute returns the statistics of g.
//
// Every node starts with zero in- and out-degree. Links whose endpoints are not
// in the node list still count toward the degrees of the ids they name.
func Compute(g *network.Graph) Stats {
	s := Stats{
		InDegree:  map[string]int{},
		OutDegree: map[string]int{},
	}
	if g == nil {
		return s
	}

	s.NumNodes = len(g.Nodes)
	s.NumEdges = len(g.Links)
	for _, n := range g.Nodes {
		key := n.ID.String()
		s.InDegree[key] = 0
		s.OutDegree[key] = 0
	}

	pairs := make(map[pair]struct{}, len(g.Links))
	for _, l := range g.Links {
		s.OutDegree[l.Source.ID.String()]++
		s.InDegree[l.Target.ID.String()]++
		pairs[pair{l.Source.ID, l.Target.ID}] = struct{}{}
	}
	for _, l := range g.Links {
		if _, ok := pairs[pair{l.Target.ID, l.Source.ID}]; ok {
			s.ReciprocalEdges++
		}
	}
	if s.NumEdges > 0 {
		s.Reciprocity = float64(s.ReciprocalEdges) / float64(s.NumEdges)
	}
	return s
}

// FormatReciprocity renders the reciprocity with two decimals.
func (s Stats) FormatReciprocity() string {
	return fmt.Sprintf("%.2f", s.Reciprocity)
}

// =============================================================================
// Summary
// =============================================================================

// Summary is the display form of a graph's statistics.
type Summary struct {
	Stats
	Density     float64 `json:"density"`
	Diameter    int     `json:"diameter"`
	Communities int     `json:"communities"`
}

// Summarize computes the statistics of g plus density and a diameter
// estimate. communities is the number of detected communities, passed through
// for display.
func Summarize(g *network.Graph, communities int) Summary {
	s := Compute(g)
	return Summary{
		Stats:       s,
		Density:     Density(s.NumNodes, s.NumEdges),
		Diameter:    Diameter(s.NumNodes),
		Communities: communities,
	}
}

// Density is 2E / (V(V-1)), or 0 for graphs with at most one node.
func Density(nodes, edges int) float64 {
	if nodes <= 1 {
		return 0
	}
	return 2 * float64(edges) / (float64(nodes) * float64(nodes-1))
}

// Diameter is the estimate floor(log2 V) + 1, or 0 for an empty graph.
// It is not a shortest-path computation.
func Diameter(nodes int) int {
	if nodes <= 0 {
		return 0
	}
	return int(math.Floor(math.Log2(float64(nodes)))) + 1
}

package detect

import (
	"cmp"
	"context"
	"math"
	"slices"

	"gonum.org/v1/gonum/graph"
	modularity "gonum.org/v1/gonum/graph/community"
	centrality "gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/matzehuels/netlens/pkg/community"
	"github.com/matzehuels/netlens/pkg/errors"
	"github.com/matzehuels/netlens/pkg/network"
)

// PageRank parameters for community summaries.
const (
	Damping   = 0.85
	Tolerance = 1e-6
)

// Louvain detects communities by modularity optimisation.
type Louvain struct {
	// Resolution is the modularity resolution; zero means 1.
	Resolution float64
}

var _ community.Detector = Louvain{}

// Detect partitions g. An empty algorithm name means louvain.
func (l Louvain) Detect(ctx context.Context, g *network.Graph, algorithm string) (*community.Response, error) {
	if algorithm == "" {
		algorithm = errors.AlgorithmLouvain
	}
	if err := Supported(algorithm); err != nil {
		return nil, err
	}
	if g == nil {
		return nil, errors.New(errors.ErrCodeInvalidGraph, "graph is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := l.Resolution
	if res == 0 {
		res = 1
	}

	p := project(g)
	groups := p.partition(res)

	q := 0.0
	if p.undirected.Edges().Len() > 0 {
		q = modularity.Q(p.undirected, toNodes(groups), res)
		if math.IsNaN(q) || math.IsInf(q, 0) {
			q = 0
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return p.response(g, groups, algorithm, q), nil
}

// Supported reports whether algorithm can be computed locally.
func Supported(algorithm string) error {
	if err := errors.ValidateAlgorithm(algorithm); err != nil {
		return err
	}
	if algorithm != errors.AlgorithmLouvain {
		return errors.New(errors.ErrCodeUnsupported, "algorithm %s is not available locally", algorithm)
	}
	return nil
}

// =============================================================================
// Projection
// =============================================================================

// projection is g as gonum graphs. Node i in either graph is ids[i].
type projection struct {
	ids        []network.ID
	index      map[network.ID]int64
	undirected *simple.WeightedUndirectedGraph
	directed   *simple.DirectedGraph
}

func project(g *network.Graph) *projection {
	p := &projection{
		index:      make(map[network.ID]int64, len(g.Nodes)),
		undirected: simple.NewWeightedUndirectedGraph(0, 0),
		directed:   simple.NewDirectedGraph(),
	}
	for _, n := range g.Nodes {
		p.add(n.ID)
	}
	for _, l := range g.Links {
		u, v := p.add(l.Source.ID), p.add(l.Target.ID)
		if u == v {
			continue
		}
		w := 1.0
		if l.Weight != nil {
			w = *l.Weight
		}
		p.undirected.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(u), T: simple.Node(v), W: w})
		p.directed.SetEdge(simple.Edge{F: simple.Node(u), T: simple.Node(v)})
	}
	return p
}

// add registers id, including link endpoints missing from the node list.
func (p *projection) add(id network.ID) int64 {
	if i, ok := p.index[id]; ok {
		return i
	}
	i := int64(len(p.ids))
	p.ids = append(p.ids, id)
	p.index[id] = i
	p.undirected.AddNode(simple.Node(i))
	p.directed.AddNode(simple.Node(i))
	return i
}

// partition returns communities as sorted node indexes, largest first, ties
// broken by lowest member.
func (p *projection) partition(resolution float64) [][]int64 {
	var groups [][]int64
	if p.undirected.Edges().Len() == 0 {
		groups = make([][]int64, len(p.ids))
		for i := range p.ids {
			groups[i] = []int64{int64(i)}
		}
	} else {
		for _, members := range modularity.Modularize(p.undirected, resolution, nil).Communities() {
			if len(members) == 0 {
				continue
			}
			ids := make([]int64, len(members))
			for i, n := range members {
				ids[i] = n.ID()
			}
			slices.Sort(ids)
			groups = append(groups, ids)
		}
	}
	slices.SortStableFunc(groups, func(a, b []int64) int {
		if c := cmp.Compare(len(b), len(a)); c != 0 {
			return c
		}
		return cmp.Compare(a[0], b[0])
	})
	return groups
}

func toNodes(groups [][]int64) [][]graph.Node {
	out := make([][]graph.Node, len(groups))
	for i, g := range groups {
		out[i] = make([]graph.Node, len(g))
		for j, id := range g {
			out[i][j] = simple.Node(id)
		}
	}
	return out
}

// =============================================================================
// Response
// =============================================================================

func (p *projection) response(g *network.Graph, groups [][]int64, algorithm string, q float64) *community.Response {
	assign := make(map[int64]int, len(p.ids))
	for c, members := range groups {
		for _, i := range members {
			assign[i] = c
		}
	}

	btw := p.metric(g, network.MetricBetweenness, func() map[int64]float64 {
		return centrality.Betweenness(p.undirected)
	})
	pr := p.metric(g, network.MetricPageRank, func() map[int64]float64 {
		return centrality.PageRank(p.directed, Damping, Tolerance)
	})

	comms := make([]community.Community, len(groups))
	for c, members := range groups {
		ids := make([]network.ID, len(members))
		var sb, sp float64
		for j, i := range members {
			ids[j] = p.ids[i]
			sb += btw[i]
			sp += pr[i]
		}
		n := float64(len(members))
		comms[c] = community.Community{
			ID:             c,
			Size:           len(members),
			Nodes:          ids,
			AvgBetweenness: sb / n,
			AvgPageRank:    sp / n,
		}
	}

	nodes := make([]network.Node, len(g.Nodes))
	for i, n := range g.Nodes {
		nodes[i] = n.Clone()
		nodes[i].Community = network.Int(assign[p.index[n.ID]])
	}
	links := make([]network.Link, len(g.Links))
	for i, l := range g.Links {
		links[i] = l.Clone()
	}

	nc := make(map[string]int, len(p.ids))
	for i, id := range p.ids {
		nc[id.String()] = assign[int64(i)]
	}

	return &community.Response{
		Nodes:           nodes,
		Links:           links,
		Communities:     comms,
		NodeCommunities: nc,
		Algorithm:       algorithm,
		NumCommunities:  len(comms),
		Modularity:      q,
	}
}

// metric returns the named metric per node index. Values carried by the input
// nodes win; compute runs only when some node lacks one.
func (p *projection) metric(g *network.Graph, name string, compute func() map[int64]float64) map[int64]float64 {
	out := make(map[int64]float64, len(p.ids))
	for _, n := range g.Nodes {
		if v, ok := n.Value(name); ok {
			if _, seen := out[p.index[n.ID]]; !seen {
				out[p.index[n.ID]] = v
			}
		}
	}
	if len(out) == len(p.ids) {
		return out
	}
	for i, v := range compute() {
		if _, ok := out[i]; !ok {
			out[i] = v
		}
	}
	return out
}

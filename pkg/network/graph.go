package network

import (
	"encoding/json"
	"strings"
)

// New returns a graph over the given nodes and links. Nil slices are replaced
// with empty ones so the JSON form always carries arrays.
func New(nodes []Node, links []Link) *Graph {
	if nodes == nil {
		nodes = []Node{}
	}
	if links == nil {
		links = []Link{}
	}
	return &Graph{Nodes: nodes, Links: links}
}

// Empty reports whether g is nil or has no nodes.
func (g *Graph) Empty() bool {
	return g == nil || len(g.Nodes) == 0
}

// Clone returns a deep copy of g. Cloning nil returns nil.
func (g *Graph) Clone() *Graph {
	if g == nil {
		return nil
	}
	nodes := make([]Node, len(g.Nodes))
	for i, n := range g.Nodes {
		nodes[i] = n.Clone()
	}
	links := make([]Link, len(g.Links))
	for i, l := range g.Links {
		links[i] = l.Clone()
	}
	return &Graph{Nodes: nodes, Links: links}
}

// IDSet returns the set of raw node ids in g.
func (g *Graph) IDSet() map[ID]struct{} {
	return idSet(g.Nodes)
}

// Index maps raw node ids to their position in g.Nodes.
func (g *Graph) Index() map[ID]int {
	idx := make(map[ID]int, len(g.Nodes))
	for i, n := range g.Nodes {
		if _, ok := idx[n.ID]; !ok {
			idx[n.ID] = i
		}
	}
	return idx
}

// CommunityCount returns the number of distinct community labels on g's nodes.
func (g *Graph) CommunityCount() int {
	if g == nil {
		return 0
	}
	seen := make(map[int]struct{})
	for _, n := range g.Nodes {
		if n.Community != nil {
			seen[*n.Community] = struct{}{}
		}
	}
	return len(seen)
}

// MarshalJSON always writes arrays, never null.
func (g Graph) MarshalJSON() ([]byte, error) {
	type graphAlias Graph
	a := graphAlias(g)
	if a.Nodes == nil {
		a.Nodes = []Node{}
	}
	if a.Links == nil {
		a.Links = []Link{}
	}
	return json.Marshal(a)
}

// ValidLinks returns the links whose endpoints both belong to nodes.
// Endpoints are matched by raw id.
func ValidLinks(links []Link, nodes []Node) []Link {
	ids := idSet(nodes)
	out := make([]Link, 0, len(links))
	for _, l := range links {
		_, src := ids[l.Source.ID]
		_, dst := ids[l.Target.ID]
		if src && dst {
			out = append(out, l.Clone())
		}
	}
	return out
}

// Induced returns the subgraph of g over the nodes accepted by keep, with the
// links that remain valid.
func (g *Graph) Induced(keep func(*Node) bool) *Graph {
	nodes := make([]Node, 0, len(g.Nodes))
	for i := range g.Nodes {
		if keep(&g.Nodes[i]) {
			nodes = append(nodes, g.Nodes[i].Clone())
		}
	}
	return New(nodes, ValidLinks(g.Links, nodes))
}

// ReverseLinks returns a copy of g with every link pointing the other way.
func ReverseLinks(g *Graph) *Graph {
	if g == nil {
		return nil
	}
	out := g.Clone()
	for i := range out.Links {
		out.Links[i].Source, out.Links[i].Target = out.Links[i].Target, out.Links[i].Source
	}
	return out
}

// Search keeps the nodes whose id contains text, case-insensitively, and the
// links between them. An empty query returns g unchanged.
func Search(g *Graph, text string) *Graph {
	if g == nil || text == "" {
		return g
	}
	needle := strings.ToLower(text)
	return g.Induced(func(n *Node) bool {
		return strings.Contains(strings.ToLower(n.ID.String()), needle)
	})
}

func idSet(nodes []Node) map[ID]struct{} {
	ids := make(map[ID]struct{}, len(nodes))
	for _, n := range nodes {
		ids[n.ID] = struct{}{}
	}
	return ids
}

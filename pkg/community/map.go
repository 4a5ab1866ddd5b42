package community

import (
	"slices"

	"github.com/matzehuels/netlens/pkg/network"
)

// Map assigns community ids to nodes, keyed by normalized node id.
type Map map[string]int

// Lookup returns the community of id, matching on its normalized form.
func (m Map) Lookup(id network.ID) (int, bool) {
	c, ok := m[id.Normalized()]
	return c, ok
}

// Distinct returns the community ids present in m in ascending order.
func (m Map) Distinct() []int {
	seen := make(map[int]struct{}, len(m))
	out := make([]int, 0, len(m))
	for _, c := range m {
		if _, ok := seen[c]; !ok {
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	slices.Sort(out)
	return out
}

// Ordered returns the community ids of m in the order they first appear on
// nodes, followed by the ids no node carries, ascending.
func (m Map) Ordered(nodes []network.Node) []int {
	seen := make(map[int]struct{}, len(m))
	out := make([]int, 0, len(m))
	for i := range nodes {
		c, ok := m.Lookup(nodes[i].ID)
		if !ok {
			continue
		}
		if _, dup := seen[c]; !dup {
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	for _, c := range m.Distinct() {
		if _, ok := seen[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}

// Merge writes community labels onto the nodes of g found in m and returns
// the number of nodes labeled. Nodes absent from m are left untouched.
func Merge(g *network.Graph, m Map) int {
	if g == nil {
		return 0
	}
	n := 0
	for i := range g.Nodes {
		if c, ok := m.Lookup(g.Nodes[i].ID); ok {
			g.Nodes[i].Community = network.Int(c)
			n++
		}
	}
	return n
}

package filter

import (
	"math"
	"math/rand/v2"
	"slices"

	"github.com/matzehuels/netlens/pkg/community"
	"github.com/matzehuels/netlens/pkg/customize"
	"github.com/matzehuels/netlens/pkg/errors"
	"github.com/matzehuels/netlens/pkg/network"
)

// Community layout constants.
const (
	CircleRadius = 500.0
	Jitter       = 30.0
)

// Palette colors nodes by community while isolation is on.
var Palette = []string{
	"#313659", "#5f6289", "#324b4a", "#158582", "#9092bc", "#c4c6f1",
	"#ff9800", "#4caf50", "#2196f3", "#e91e63", "#9c27b0", "#795548",
}

// The transitions below return the next state and the next live graph. A nil
// live input is a no-op: state and graph are returned unchanged. A live graph
// with no nodes is still toggled, so a filter that emptied the view can be
// turned off again. Output graphs never share memory with their inputs.

// StrongConnections toggles the betweenness threshold filter. Turning it off
// puts the baseline back and clears the restored flag.
func StrongConnections(s State, baseline, live *network.Graph) (State, *network.Graph) {
	if live == nil {
		return s, live
	}
	if s.StrongConnections {
		s.StrongConnections = false
		s.Restored = false
		return s, restoreTarget(baseline, live)
	}
	s.StrongConnections = true
	return s, live.Induced(func(n *network.Node) bool {
		return n.Metric(network.MetricBetweenness) >= StrongThreshold
	})
}

// CentralHighlight toggles highlighting of the most central nodes by the
// metric named by label. Every node whose value reaches the value found at
// position floor(n*0.2) of the descending order is marked, so ties at the
// cut can push the share above a fifth. Turning it off clears every mark.
// Either way the restored flag is cleared.
func CentralHighlight(s State, live *network.Graph, label string) (State, *network.Graph) {
	if live == nil {
		return s, live
	}
	s.Restored = false
	out := live.Clone()
	if s.HighlightCentral {
		s.HighlightCentral = false
		for i := range out.Nodes {
			out.Nodes[i].Highlighted = false
		}
		return s, out
	}

	s.HighlightCentral = true
	field := MetricForLabel(label)
	threshold := HighlightThreshold(out.Nodes, field)
	for i := range out.Nodes {
		out.Nodes[i].Highlighted = out.Nodes[i].Metric(field) >= threshold
	}
	return s, out
}

// HighlightThreshold returns the value at index floor(n*0.2) of the nodes
// sorted by field in descending order, or 0 when that index is out of range.
func HighlightThreshold(nodes []network.Node, field string) float64 {
	values := make([]float64, len(nodes))
	for i := range nodes {
		values[i] = nodes[i].Metric(field)
	}
	slices.SortFunc(values, func(a, b float64) int {
		switch {
		case a > b:
			return -1
		case a < b:
			return 1
		}
		return 0
	})
	k := int(math.Floor(float64(len(values)) * HighlightFraction))
	if k < 0 || k >= len(values) {
		return 0
	}
	return values[k]
}

// Activity toggles the activity filter. Turning it on captures the baseline
// when none exists yet and keeps the nodes touching at least two live links.
// Turning it off puts the baseline back and sets the restored flag.
// The returned baseline is the input baseline or the captured one.
func Activity(s State, baseline, live *network.Graph) (State, *network.Graph, *network.Graph) {
	if live == nil {
		return s, baseline, live
	}
	if s.Activity {
		s.Activity = false
		if baseline != nil {
			s.Restored = true
			return s, baseline, baseline.Clone()
		}
		return s, baseline, live
	}

	s.Activity = true
	if baseline == nil {
		baseline = live.Clone()
		s.Restored = false
	}
	counts := ActivityCounts(live)
	return s, baseline, live.Induced(func(n *network.Node) bool {
		return counts[n.ID] >= ActivityThreshold
	})
}

// ActivityCounts returns the number of links touching each raw node id. Each
// link counts once for both of its endpoints; a self-loop counts twice.
func ActivityCounts(g *network.Graph) map[network.ID]int {
	counts := make(map[network.ID]int, len(g.Nodes))
	for _, n := range g.Nodes {
		counts[n.ID] = 0
	}
	for _, l := range g.Links {
		counts[l.Source.ID]++
		counts[l.Target.ID]++
	}
	return counts
}

// Restore toggles the restored view. When already restored only the flag is
// cleared. Otherwise the baseline goes back on display and the activity flag
// is switched off. Without a baseline nothing happens.
func Restore(s State, baseline, live *network.Graph) (State, *network.Graph) {
	if baseline == nil {
		return s, live
	}
	if s.Restored {
		s.Restored = false
		return s, live
	}
	s.Restored = true
	s.Activity = false
	return s, baseline.Clone()
}

// Isolation is the outcome of a community isolation transition.
type Isolation struct {
	// Enabled is the new state of the filter.
	Enabled bool
	// Removed counts the live links dropped when enabling.
	Removed int
}

// CommunityIsolation toggles the intra-community view. It fails with
// PRECONDITION_FAILED when cm is empty and does nothing when either graph is
// missing.
//
// Enabling keeps the links whose endpoints map to the same community, and the
// nodes those links touch. Each community gets a center on a circle of
// radius 500, in the order the communities first appear on the live nodes;
// nodes move to their center plus a jitter drawn from rng in [-30, 30] on
// each axis, remember their previous position in OriginalX/OriginalY and take
// a palette color.
//
// Disabling returns the baseline, with positions recorded by the enabling
// step put back.
func CommunityIsolation(s State, baseline, live *network.Graph, cm community.Map, rng *rand.Rand) (State, *network.Graph, Isolation, error) {
	if live == nil || baseline == nil {
		return s, live, Isolation{Enabled: s.IntraCommunity}, nil
	}
	if len(cm) == 0 {
		return s, live, Isolation{Enabled: s.IntraCommunity},
			errors.New(errors.ErrCodePrecondition, "Community data not found. Detecting communities...")
	}

	if s.IntraCommunity {
		s.IntraCommunity = false
		return s, restorePositions(baseline, live), Isolation{}, nil
	}

	s.IntraCommunity = true
	links := make([]network.Link, 0, len(live.Links))
	connected := make(map[network.ID]struct{})
	for _, l := range live.Links {
		src, ok1 := cm.Lookup(l.Source.ID)
		dst, ok2 := cm.Lookup(l.Target.ID)
		if !ok1 || !ok2 || src != dst {
			continue
		}
		links = append(links, l.Clone())
		connected[l.Source.ID] = struct{}{}
		connected[l.Target.ID] = struct{}{}
	}

	centers := Centers(cm.Ordered(live.Nodes))
	nodes := make([]network.Node, 0, len(connected))
	for _, n := range live.Nodes {
		if _, ok := connected[n.ID]; !ok {
			continue
		}
		c, ok := cm.Lookup(n.ID)
		if !ok {
			continue
		}
		out := n.Clone()
		center := centers[c]
		out.Community = network.Int(c)
		out.OriginalX = out.X
		out.OriginalY = out.Y
		out.X = network.Float(center.X + jitter(rng))
		out.Y = network.Float(center.Y + jitter(rng))
		out.Color = customize.PaletteColor(Palette, c, Palette[0])
		nodes = append(nodes, out)
	}

	g := network.New(nodes, network.ValidLinks(links, nodes))
	return s, g, Isolation{Enabled: true, Removed: len(live.Links) - len(links)}, nil
}

// Point is a position in layout space.
type Point struct {
	X, Y float64
}

// Centers places communities evenly on a circle of radius 500, the i-th
// community at angle i*2π/len(communities).
func Centers(communities []int) map[int]Point {
	centers := make(map[int]Point, len(communities))
	if len(communities) == 0 {
		return centers
	}
	step := 2 * math.Pi / float64(len(communities))
	for i, c := range communities {
		angle := float64(i) * step
		centers[c] = Point{X: CircleRadius * math.Cos(angle), Y: CircleRadius * math.Sin(angle)}
	}
	return centers
}

func jitter(rng *rand.Rand) float64 {
	return rng.Float64()*Jitter*2 - Jitter
}

func restorePositions(baseline, live *network.Graph) *network.Graph {
	out := baseline.Clone()
	idx := live.Index()
	for i := range out.Nodes {
		j, ok := idx[out.Nodes[i].ID]
		if !ok {
			continue
		}
		cur := live.Nodes[j]
		if cur.OriginalX != nil && cur.OriginalY != nil {
			out.Nodes[i].X = network.Float(*cur.OriginalX)
			out.Nodes[i].Y = network.Float(*cur.OriginalY)
		}
	}
	return out
}

func restoreTarget(baseline, live *network.Graph) *network.Graph {
	if baseline == nil {
		return live
	}
	return baseline.Clone()
}

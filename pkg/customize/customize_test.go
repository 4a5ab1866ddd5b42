package customize

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/matzehuels/netlens/pkg/errors"
	"github.com/matzehuels/netlens/pkg/network"
)

func TestApplySizeByDegree(t *testing.T) {
	g := network.New([]network.Node{
		{ID: network.StringID("a"), Degree: network.Float(10)},
		{ID: network.StringID("b"), Degree: network.Float(5)},
		{ID: network.StringID("c")},
	}, nil)

	s := DefaultSettings()
	s.SizeBy = network.MetricDegree
	out := Apply(g, s)

	want := []float64{40, 27.5, 15}
	for i, w := range want {
		if got := *out.Nodes[i].Size; got != w {
			t.Errorf("node %s size = %v, want %v", out.Nodes[i].ID, got, w)
		}
	}
}

func TestApplySizeFallsBackToMin(t *testing.T) {
	tests := []struct {
		name   string
		sizeBy string
		nodes  []network.Node
	}{
		{"default mode", ByDefault, []network.Node{{ID: network.StringID("a"), Degree: network.Float(3)}}},
		{"unknown metric", "closeness", []network.Node{{ID: network.StringID("a"), Closeness: network.Float(3)}}},
		{"all zero", network.MetricMessages, []network.Node{{ID: network.StringID("a"), Messages: network.Float(0)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			s.SizeBy = tt.sizeBy
			out := Apply(network.New(tt.nodes, nil), s)
			if got := *out.Nodes[0].Size; got != s.NodeSizes.Min {
				t.Errorf("size = %v, want %v", got, s.NodeSizes.Min)
			}
		})
	}
}

func TestApplyColor(t *testing.T) {
	nodes := []network.Node{
		{ID: network.StringID("a"), Community: network.Int(0)},
		{ID: network.StringID("b"), Community: network.Int(7)},
		{ID: network.StringID("c"), Community: network.Int(2)},
		{ID: network.StringID("d")},
	}

	s := DefaultSettings()
	s.ColorBy = ByCommunity
	s.CommunityColors = map[string]string{"2": "#abcdef"}
	out := Apply(network.New(nodes, nil), s)

	palette := s.CustomColors.CommunityColors
	want := []string{palette[0], palette[1], "#abcdef", s.CustomColors.DefaultNodeColor}
	for i, w := range want {
		if got := out.Nodes[i].Color; got != w {
			t.Errorf("node %s color = %q, want %q", out.Nodes[i].ID, got, w)
		}
	}

	s.ColorBy = ByDefault
	out = Apply(network.New(nodes, nil), s)
	for _, n := range out.Nodes {
		if n.Color != s.CustomColors.DefaultNodeColor {
			t.Errorf("node %s color = %q, want default", n.ID, n.Color)
		}
	}
}

func TestApplyDoesNotAlias(t *testing.T) {
	g := network.New(
		[]network.Node{{ID: network.StringID("a"), Degree: network.Float(1)}},
		[]network.Link{{Source: network.At(network.StringID("a")), Target: network.At(network.StringID("a"))}},
	)
	out := Apply(g, DefaultSettings())
	if g.Nodes[0].Size != nil || g.Nodes[0].Color != "" {
		t.Error("Apply modified its input")
	}
	out.Links[0].Weight = network.Float(9)
	if g.Links[0].Weight != nil {
		t.Error("output links alias input links")
	}
	if Apply(nil, DefaultSettings()) != nil {
		t.Error("Apply(nil) should be nil")
	}
}

func TestPaletteColor(t *testing.T) {
	p := []string{"x", "y", "z"}
	tests := []struct {
		c    int
		want string
	}{
		{0, "x"}, {4, "y"}, {-1, "z"},
	}
	for _, tt := range tests {
		if got := PaletteColor(p, tt.c, "f"); got != tt.want {
			t.Errorf("PaletteColor(%d) = %q, want %q", tt.c, got, tt.want)
		}
	}
	if got := PaletteColor(nil, 3, "f"); got != "f" {
		t.Errorf("empty palette = %q, want fallback", got)
	}
}

func TestApplySizeBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 20).Draw(t, "n")
		nodes := make([]network.Node, n)
		for i := range nodes {
			nodes[i].ID = network.NumberID(float64(i))
			if rapid.Bool().Draw(t, "set") {
				nodes[i].PageRank = network.Float(rapid.Float64Range(0, 100).Draw(t, "pr"))
			}
		}
		s := DefaultSettings()
		s.SizeBy = network.MetricPageRank
		out := Apply(network.New(nodes, nil), s)

		var hitMax bool
		var anyPositive bool
		for i, node := range out.Nodes {
			size := *node.Size
			if size < s.NodeSizes.Min || size > s.NodeSizes.Max {
				t.Fatalf("size %v out of [%v, %v]", size, s.NodeSizes.Min, s.NodeSizes.Max)
			}
			if nodes[i].Metric(network.MetricPageRank) > 0 {
				anyPositive = true
			}
			if size == s.NodeSizes.Max {
				hitMax = true
			}
		}
		if anyPositive && !hitMax {
			t.Fatal("no node reached the maximum size")
		}
	})
}

func TestSettingsClone(t *testing.T) {
	s := DefaultSettings()
	s.CommunityNames["1"] = "core"
	c := s.Clone()
	c.CommunityNames["1"] = "edge"
	c.CustomColors.CommunityColors[0] = "#000000"
	c.HighlightUsers = append(c.HighlightUsers, "alice")

	if s.CommunityNames["1"] != "core" {
		t.Error("Clone shares CommunityNames")
	}
	if s.CustomColors.CommunityColors[0] != "#313659" {
		t.Error("Clone shares the palette")
	}
	if len(s.HighlightUsers) != 0 {
		t.Error("Clone shares HighlightUsers")
	}
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Settings)
		valid  bool
	}{
		{"defaults", func(*Settings) {}, true},
		{"color by community", func(s *Settings) { s.ColorBy = ByCommunity }, true},
		{"size by pagerank", func(s *Settings) { s.SizeBy = network.MetricPageRank }, true},
		{"empty modes", func(s *Settings) { s.ColorBy, s.SizeBy = "", "" }, true},
		{"unknown color mode", func(s *Settings) { s.ColorBy = "rainbow" }, false},
		{"size by closeness", func(s *Settings) { s.SizeBy = network.MetricCloseness }, false},
		{"negative min", func(s *Settings) { s.NodeSizes.Min = -1 }, false},
		{"max below min", func(s *Settings) { s.NodeSizes = NodeSizes{Min: 20, Max: 10} }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.modify(&s)
			err := s.Validate()
			if (err == nil) != tt.valid {
				t.Errorf("Validate() = %v, valid %v", err, tt.valid)
			}
			if err != nil && !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("error code = %s, want INVALID_INPUT", errors.GetCode(err))
			}
		})
	}
}

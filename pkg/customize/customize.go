// Package customize maps node metrics to visual encodings.
//
// [Apply] is pure: it deep-copies its input and writes size and color onto
// every node of the copy. The live and baseline graphs are never touched.
package customize

import (
	"maps"
	"slices"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/netlens/pkg/errors"
	"github.com/matzehuels/netlens/pkg/network"
)

// Color and size modes.
const (
	ByDefault   = "default"
	ByCommunity = "community"
)

// SizeMetrics are the node fields a size can be scaled by.
var SizeMetrics = []string{
	network.MetricMessages,
	network.MetricDegree,
	network.MetricBetweenness,
	network.MetricPageRank,
}

// Settings is the visual-encoding configuration.
type Settings struct {
	ColorBy string `json:"colorBy" toml:"color_by" validate:"omitempty,oneof=default community"`
	SizeBy  string `json:"sizeBy" toml:"size_by" validate:"omitempty,oneof=default messages degree betweenness pagerank"`

	HighlightUsers       []string          `json:"highlightUsers" toml:"highlight_users"`
	HighlightCommunities []int             `json:"highlightCommunities" toml:"highlight_communities"`
	CommunityNames       map[string]string `json:"communityNames" toml:"community_names"`
	// CommunityColors overrides the palette for individual communities,
	// keyed by the decimal community id.
	CommunityColors map[string]string `json:"communityColors" toml:"community_colors"`

	CustomColors CustomColors `json:"customColors" toml:"colors"`
	NodeSizes    NodeSizes    `json:"nodeSizes" toml:"node_sizes"`

	ColorScheme             string  `json:"colorScheme" toml:"color_scheme"`
	ShowImportantNodes      bool    `json:"showImportantNodes" toml:"show_important_nodes"`
	ImportantNodesThreshold float64 `json:"importantNodesThreshold" toml:"important_nodes_threshold"`
}

// CustomColors holds the base colors.
type CustomColors struct {
	DefaultNodeColor   string   `json:"defaultNodeColor" toml:"default_node"`
	HighlightNodeColor string   `json:"highlightNodeColor" toml:"highlight_node"`
	CommunityColors    []string `json:"communityColors" toml:"community_palette"`
	EdgeColor          string   `json:"edgeColor" toml:"edge"`
}

// NodeSizes bounds the node radius.
type NodeSizes struct {
	Min float64 `json:"min" toml:"min" validate:"gte=0"`
	Max float64 `json:"max" toml:"max" validate:"gtefield=Min"`
}

// DefaultSettings returns the settings a fresh view starts with.
func DefaultSettings() Settings {
	return Settings{
		ColorBy:              ByDefault,
		SizeBy:               ByDefault,
		HighlightUsers:       []string{},
		HighlightCommunities: []int{},
		CommunityNames:       map[string]string{},
		CommunityColors:      map[string]string{},
		CustomColors: CustomColors{
			DefaultNodeColor:   "#050d2d",
			HighlightNodeColor: "#00c6c2",
			CommunityColors: []string{
				"#313659", "#5f6289", "#324b4a", "#158582", "#9092bc", "#c4c6f1",
			},
			EdgeColor: "rgba(128, 128, 128, 0.6)",
		},
		NodeSizes:               NodeSizes{Min: 15, Max: 40},
		ColorScheme:             ByDefault,
		ImportantNodesThreshold: 0.5,
	}
}

var validate = validator.New()

// Validate checks the mode names and the size range.
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid settings")
	}
	return nil
}

// Clone returns a deep copy of s.
func (s Settings) Clone() Settings {
	out := s
	out.HighlightUsers = slices.Clone(s.HighlightUsers)
	out.HighlightCommunities = slices.Clone(s.HighlightCommunities)
	out.CommunityNames = maps.Clone(s.CommunityNames)
	out.CommunityColors = maps.Clone(s.CommunityColors)
	out.CustomColors.CommunityColors = slices.Clone(s.CustomColors.CommunityColors)
	return out
}

// Apply returns a copy of g with size and color set on every node.
//
// Size scales linearly between NodeSizes.Min and NodeSizes.Max by the node's
// share of the largest SizeBy metric in the graph; any other SizeBy leaves
// every node at the minimum. Color follows the node's community when ColorBy
// is "community", and DefaultNodeColor otherwise.
func Apply(g *network.Graph, s Settings) *network.Graph {
	out := g.Clone()
	if out == nil {
		return nil
	}

	metric := sizeMetric(s.SizeBy)
	var maxVal float64
	if metric != "" {
		for i := range out.Nodes {
			maxVal = max(maxVal, out.Nodes[i].Metric(metric))
		}
	}

	for i := range out.Nodes {
		n := &out.Nodes[i]
		size := s.NodeSizes.Min
		if metric != "" {
			var ratio float64
			if maxVal > 0 {
				ratio = n.Metric(metric) / maxVal
			}
			size = s.NodeSizes.Min + ratio*(s.NodeSizes.Max-s.NodeSizes.Min)
		}
		n.Size = network.Float(size)
		n.Color = nodeColor(n, s)
	}
	return out
}

func sizeMetric(sizeBy string) string {
	for _, m := range SizeMetrics {
		if m == sizeBy {
			return m
		}
	}
	return ""
}

func nodeColor(n *network.Node, s Settings) string {
	if s.ColorBy != ByCommunity || n.Community == nil {
		return s.CustomColors.DefaultNodeColor
	}
	c := *n.Community
	if color, ok := s.CommunityColors[strconv.Itoa(c)]; ok {
		return color
	}
	return PaletteColor(s.CustomColors.CommunityColors, c, s.CustomColors.DefaultNodeColor)
}

// PaletteColor picks palette[c mod len(palette)]. Negative ids wrap around;
// an empty palette yields fallback.
func PaletteColor(palette []string, c int, fallback string) string {
	if len(palette) == 0 {
		return fallback
	}
	k := len(palette)
	return palette[((c%k)+k)%k]
}

package filter

import (
	"strings"

	"github.com/matzehuels/netlens/pkg/network"
)

// Filter names, as used in hooks, the CLI and the HTTP API.
const (
	NameStrong      = "strong"
	NameHighlight   = "highlight"
	NameActivity    = "activity"
	NameRestore     = "restore"
	NameCommunities = "communities"
)

// Names lists the filters in display order.
var Names = []string{NameStrong, NameHighlight, NameActivity, NameRestore, NameCommunities}

// Fixed thresholds.
const (
	StrongThreshold   = 0.2
	HighlightFraction = 0.2
	ActivityThreshold = 2
)

// State is the set of filter flags. Flags are independent; a set flag does
// not imply that its filter's effect is still visible.
type State struct {
	StrongConnections bool `json:"strongConnectionsActive"`
	HighlightCentral  bool `json:"highlightCentralNodes"`
	Restored          bool `json:"networkWasRestored"`
	Activity          bool `json:"activityFilterEnabled"`
	IntraCommunity    bool `json:"showOnlyIntraCommunityLinks"`
}

// Active reports the flag belonging to the named filter.
func (s State) Active(name string) bool {
	switch name {
	case NameStrong:
		return s.StrongConnections
	case NameHighlight:
		return s.HighlightCentral
	case NameActivity:
		return s.Activity
	case NameRestore:
		return s.Restored
	case NameCommunities:
		return s.IntraCommunity
	}
	return false
}

// Metric labels as shown to users.
const (
	LabelDegree      = "Degree Centrality"
	LabelBetweenness = "Betweenness Centrality"
	LabelCloseness   = "Closeness Centrality"
	LabelEigenvector = "Eigenvector Centrality"
	LabelPageRank    = "PageRank Centrality"
)

// MetricInfo describes one selectable centrality metric.
type MetricInfo struct {
	Label       string `json:"label"`
	Field       string `json:"field"`
	Description string `json:"description"`
}

// Metrics is the catalogue of centrality metrics offered for highlighting.
var Metrics = []MetricInfo{
	{LabelDegree, network.MetricDegree, "Number of direct connections a participant has."},
	{LabelBetweenness, network.MetricBetweenness, "How often a participant lies on the shortest path between others."},
	{LabelCloseness, network.MetricCloseness, "How near a participant is to everyone else in the network."},
	{LabelEigenvector, network.MetricEigenvector, "Influence from being connected to other well-connected participants."},
	{LabelPageRank, network.MetricPageRank, "Importance by the number and quality of incoming links."},
}

// MetricForLabel maps a metric label to its node field. Unknown labels,
// including the empty string, select degree.
func MetricForLabel(label string) string {
	switch label {
	case LabelBetweenness:
		return network.MetricBetweenness
	case LabelCloseness:
		return network.MetricCloseness
	case LabelEigenvector:
		return network.MetricEigenvector
	case LabelPageRank:
		return network.MetricPageRank
	}
	return network.MetricDegree
}

// LookupMetric finds a catalogue entry by label or field name,
// case-insensitively.
func LookupMetric(s string) (MetricInfo, bool) {
	for _, m := range Metrics {
		if strings.EqualFold(m.Label, s) || strings.EqualFold(m.Field, s) {
			return m, true
		}
	}
	return MetricInfo{}, false
}

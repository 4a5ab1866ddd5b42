// Package filter implements the toggleable structural views of a graph.
//
// Five filters act on a live graph with a baseline snapshot as the restore
// target:
//
//   - Strong connections keeps nodes whose betweenness is at least 0.2.
//   - Central highlight marks the top fifth of nodes by a chosen metric.
//   - Activity keeps nodes that touch at least two links.
//   - Restore puts the baseline back on display.
//   - Community isolation keeps intra-community links and lays communities
//     out on a circle.
//
// Filters do not compose. Each transition computes its output from either the
// baseline or the live graph as it was before the toggle, so enabling one
// filter after another replaces the earlier structural effect while its flag
// stays set. The baseline is never modified by a transition.
//
// The transitions are available as pure functions over a [State] record, and
// wrapped by [Engine], which owns the graphs, reports outcomes through a
// notifier and nudges a [Layout] after community isolation changes.
package filter

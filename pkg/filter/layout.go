package filter

import "time"

// Layout is the rendering collaborator nudged after community isolation
// changes the node positions. Calls are fire-and-forget.
type Layout interface {
	ReheatSimulation()
	ZoomToFit(duration time.Duration, padding int)
}

// Timings for the layout nudge.
const (
	DefaultLayoutDelay = 100 * time.Millisecond
	FitDuration        = 400 * time.Millisecond
)

// Notification messages.
const (
	msgIsolationOn  = "Showing only intra-community links and hiding isolated nodes. Removed %d cross-community links."
	msgIsolationOff = "Showing all links in the network."
)

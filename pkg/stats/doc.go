// Package stats computes descriptive statistics for a conversation graph.
//
// [Compute] is pure and total: a nil or empty graph yields zero [Stats].
// Degrees are keyed by the raw node id string, so "7" and " 7" are counted
// separately. Reciprocity counts every link whose reverse also exists; a
// mutual pair contributes two and a self-loop matches itself.
//
// [Summarize] extends the basic statistics with density, a diameter estimate
// and the number of detected communities.
package stats

// Package community resolves community labels for a conversation graph.
//
// A [Detector] asks some backend to partition a graph. [HTTPDetector] speaks
// the detection service's wire format:
//
//	POST <base>/history/analyze/communities?algorithm=louvain
//	{"nodes": [...], "links": [...]}
//
// and [CachedDetector] memoizes any detector in a cache. [Resolver] turns a
// detection response into a [Map] from normalized node id to community id,
// reporting the outcome through a notifier. [Merge] writes those labels onto
// a graph's nodes.
//
// Detection calls are made exactly once per Resolve: there is no retry and no
// timeout beyond the caller's context.
package community

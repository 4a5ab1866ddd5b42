// Package network defines the node/link graph that every netlens component
// consumes and produces.
//
// Graphs arrive from the upstream analysis pipeline as JSON:
//
//	{
//	  "nodes": [{"id": "alice", "degree": 3, "betweenness": 0.41}],
//	  "links": [{"source": "alice", "target": "bob", "weight": 2}]
//	}
//
// Metric fields (degree, betweenness, closeness, eigenvector, pagerank,
// messages) are precomputed upstream and are optional: a missing metric reads
// as 0 through [Node.Metric]. Attributes this package does not model are kept
// in Extra and written back unchanged.
//
// # Identifiers
//
// [ID] keeps the id exactly as it appeared on the wire, so the number 7 and
// the string "7 " are different raw ids. [ID.Normalized] yields the trimmed
// string form used for community lookups. Link endpoints may be bare ids or
// node-like objects carrying an "id"; [Endpoint] accepts both.
//
// # Ownership
//
// Graph values are treated as immutable snapshots by the filter and
// customization engines: every transformation builds a fresh Graph. Use
// [Graph.Clone] for a deep copy.
package network

// Package detect partitions conversation graphs into communities.
//
// It is the service side of the detection wire format consumed by
// [community.HTTPDetector]: given a graph and an algorithm name it returns the
// labeled nodes, the community list and the per-node assignment.
//
// # Algorithms
//
// Only "louvain" is computed, through gonum's modularity optimisation. The
// names "girvan_newman" and "greedy_modularity" are recognised so callers get
// UNSUPPORTED instead of INVALID_ALGORITHM for them.
//
// # Community Summary
//
// Each community reports its mean betweenness and PageRank. Values present on
// the input nodes are used as-is; missing ones are computed from the graph.
//
// # Usage
//
//	resp, err := detect.Louvain{}.Detect(ctx, g, "louvain")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(resp.NumCommunities, resp.Modularity)
//
// [Louvain] satisfies [community.Detector], so it can stand in for the remote
// service when netlens runs without one.
package detect

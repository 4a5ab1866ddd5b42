package network_test

import (
	"fmt"
	"strings"

	"github.com/matzehuels/netlens/pkg/network"
)

func ExampleReadGraph() {
	g, err := network.ReadGraph(strings.NewReader(`{
	  "nodes": [{"id": "alice", "degree": 2}, {"id": " bob"}],
	  "links": [{"source": "alice", "target": {"id": " bob"}}]
	}`))
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	for _, n := range g.Nodes {
		fmt.Printf("%q normalized=%q degree=%v\n", n.ID, n.ID.Normalized(), n.Metric(network.MetricDegree))
	}
	fmt.Println("object endpoint:", g.Links[0].Target.Ref)
	// Output:
	// "alice" normalized="alice" degree=2
	// " bob" normalized="bob" degree=0
	// object endpoint: true
}

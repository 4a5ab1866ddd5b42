package filter

import (
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/matzehuels/netlens/pkg/community"
	"github.com/matzehuels/netlens/pkg/errors"
	"github.com/matzehuels/netlens/pkg/network"
	"github.com/matzehuels/netlens/pkg/observability"
)

type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (n *recordingNotifier) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, msg)
}

func (n *recordingNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

type recordingLayout struct {
	calls []string
}

func (l *recordingLayout) ReheatSimulation() { l.calls = append(l.calls, "reheat") }
func (l *recordingLayout) ZoomToFit(d time.Duration, padding int) {
	l.calls = append(l.calls, fmt.Sprintf("fit %v", d))
}

type recordingHooks struct {
	observability.NoopFilterHooks
	toggled  []string
	rejected []string
}

func (h *recordingHooks) OnFilterToggled(filter string, active bool, nodes, links int) {
	h.toggled = append(h.toggled, fmt.Sprintf("%s=%v", filter, active))
}

func (h *recordingHooks) OnFilterRejected(filter, reason string) {
	h.rejected = append(h.rejected, filter)
}

// syncScheduler runs the delayed callback immediately and records the delay.
func syncScheduler(delays *[]time.Duration) Option {
	return WithScheduler(func(d time.Duration, f func()) {
		*delays = append(*delays, d)
		f()
	})
}

func TestEngineCommunityIsolationNotifies(t *testing.T) {
	g, cm := isolationGraph()
	n := &recordingNotifier{}
	var delays []time.Duration
	e := NewEngine(g, WithNotifier(n), WithSeed(7), syncScheduler(&delays))

	layout := &recordingLayout{}
	err := e.ToggleCommunityIsolation(layout)
	if !errors.Is(err, errors.ErrCodePrecondition) {
		t.Fatalf("err = %v, want PRECONDITION_FAILED", err)
	}
	if len(n.errors) != 1 || n.errors[0] != "Community data not found. Detecting communities..." {
		t.Errorf("errors = %v", n.errors)
	}
	if len(layout.calls) != 0 || e.State().IntraCommunity {
		t.Error("failed toggle should not touch state or layout")
	}

	e.ApplyCommunities(cm)
	if err := e.ToggleCommunityIsolation(layout); err != nil {
		t.Fatal(err)
	}
	want := "Showing only intra-community links and hiding isolated nodes. Removed 2 cross-community links."
	if len(n.successes) != 1 || n.successes[0] != want {
		t.Errorf("successes = %v", n.successes)
	}
	if !reflect.DeepEqual(layout.calls, []string{"reheat", "fit 400ms"}) {
		t.Errorf("layout calls = %v", layout.calls)
	}
	if !reflect.DeepEqual(delays, []time.Duration{DefaultLayoutDelay}) {
		t.Errorf("delays = %v", delays)
	}

	if err := e.ToggleCommunityIsolation(nil); err != nil {
		t.Fatal(err)
	}
	if n.successes[1] != "Showing all links in the network." {
		t.Errorf("successes = %v", n.successes)
	}
	if len(delays) != 1 {
		t.Error("nil layout should not be scheduled")
	}
}

func TestEngineApplyCommunities(t *testing.T) {
	g := network.New([]network.Node{{ID: id(" 1 ")}, {ID: id("2")}}, nil)
	e := NewEngine(g)
	e.ApplyCommunities(community.Map{"1": 4})

	for _, snap := range []*network.Graph{e.Live(), e.Baseline()} {
		if snap.Nodes[0].Community == nil || *snap.Nodes[0].Community != 4 {
			t.Error("mapped node should be labeled")
		}
		if snap.Nodes[1].Community != nil {
			t.Error("unmapped node should be untouched")
		}
	}
	if g.Nodes[0].Community != nil {
		t.Error("engine should not alias its input")
	}
}

func TestEngineToggleDispatch(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetFilterHooks(hooks)
	defer observability.Reset()

	g := network.New(
		[]network.Node{{ID: id("a"), Betweenness: network.Float(1)}, {ID: id("b")}},
		[]network.Link{link("a", "b")},
	)
	e := NewEngine(g)

	for _, name := range []string{NameStrong, NameHighlight, NameActivity, NameRestore} {
		if err := e.Toggle(name, LabelBetweenness, nil); err != nil {
			t.Fatalf("Toggle(%s) = %v", name, err)
		}
	}
	if err := e.Toggle(NameCommunities, "", nil); err == nil {
		t.Error("communities without a map should fail")
	}
	if err := e.Toggle("bogus", "", nil); !errors.Is(err, errors.ErrCodeInvalidFilter) {
		t.Errorf("err = %v, want INVALID_FILTER", err)
	}

	want := []string{"strong=true", "highlight=true", "activity=true", "restore=true"}
	if !reflect.DeepEqual(hooks.toggled, want) {
		t.Errorf("toggled = %v, want %v", hooks.toggled, want)
	}
	if !reflect.DeepEqual(hooks.rejected, []string{NameCommunities}) {
		t.Errorf("rejected = %v", hooks.rejected)
	}
	if !e.State().Active(NameStrong) {
		t.Error("strong flag should remain set")
	}
}

func TestEngineTogglesOffAfterEmptying(t *testing.T) {
	g := network.New(
		[]network.Node{{ID: id("a"), Betweenness: network.Float(0.1)}, {ID: id("b")}},
		[]network.Link{link("a", "b")},
	)

	e := NewEngine(g)
	e.ToggleStrongConnections()
	if len(e.Live().Nodes) != 0 {
		t.Fatalf("strong on: nodes = %d, want 0", len(e.Live().Nodes))
	}
	e.ToggleStrongConnections()
	if e.State().StrongConnections || !reflect.DeepEqual(e.Live(), g) {
		t.Errorf("strong off: active=%v nodes=%v", e.State().StrongConnections, ids(e.Live()))
	}

	e = NewEngine(g)
	e.ToggleActivity()
	if len(e.Live().Nodes) != 0 {
		t.Fatalf("activity on: nodes = %d, want 0", len(e.Live().Nodes))
	}
	e.ToggleActivity()
	st := e.State()
	if st.Activity || !st.Restored || !reflect.DeepEqual(e.Live(), g) {
		t.Errorf("activity off: state=%+v nodes=%v", st, ids(e.Live()))
	}
}

func TestEngineReset(t *testing.T) {
	g := network.New([]network.Node{{ID: id("a")}, {ID: id("b")}}, []network.Link{link("a", "b")})
	e := NewEngine(g)
	e.ToggleActivity()
	if len(e.Live().Nodes) != 0 {
		t.Fatal("activity should drop nodes with one link")
	}
	e.Reset()
	if !reflect.DeepEqual(e.Live(), g) {
		t.Error("reset should show the baseline")
	}
}

func TestEngineConcurrentToggles(t *testing.T) {
	g, cm := isolationGraph()
	e := NewEngine(g, WithScheduler(func(time.Duration, func()) {}))
	e.ApplyCommunities(cm)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = e.Toggle(Names[i%len(Names)], "", &recordingLayout{})
			_ = e.Live()
		}()
	}
	wg.Wait()
}

// =============================================================================
// Properties
// =============================================================================

func genNetwork(t *rapid.T) (*network.Graph, community.Map) {
	n := rapid.IntRange(0, 15).Draw(t, "nodes")
	nodes := make([]network.Node, n)
	cm := community.Map{}
	for i := range nodes {
		nodes[i] = network.Node{
			ID:          network.NumberID(float64(i)),
			Betweenness: network.Float(rapid.Float64Range(0, 1).Draw(t, "betweenness")),
			Degree:      network.Float(float64(rapid.IntRange(0, 10).Draw(t, "degree"))),
			X:           network.Float(rapid.Float64Range(-100, 100).Draw(t, "x")),
			Y:           network.Float(rapid.Float64Range(-100, 100).Draw(t, "y")),
		}
		if rapid.IntRange(0, 4).Draw(t, "mapped") > 0 {
			cm[fmt.Sprint(i)] = rapid.IntRange(0, 3).Draw(t, "community")
		}
	}
	var links []network.Link
	if n > 0 {
		for range rapid.IntRange(0, 30).Draw(t, "links") {
			src := rapid.IntRange(0, n-1).Draw(t, "src")
			dst := rapid.IntRange(0, n-1).Draw(t, "dst")
			links = append(links, network.Link{
				Source: network.At(network.NumberID(float64(src))),
				Target: network.At(network.NumberID(float64(dst))),
			})
		}
	}
	return network.New(nodes, links), cm
}

func assertNoDangling(t *rapid.T, g *network.Graph) {
	if g == nil {
		return
	}
	ids := g.IDSet()
	for _, l := range g.Links {
		_, ok1 := ids[l.Source.ID]
		_, ok2 := ids[l.Target.ID]
		if !ok1 || !ok2 {
			t.Fatalf("dangling link %s -> %s", l.Source.ID, l.Target.ID)
		}
	}
}

func TestBaselineNeverChangesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g, cm := genNetwork(t)
		e := NewEngine(g, WithSeed(1), WithScheduler(func(time.Duration, func()) {}))
		e.ApplyCommunities(cm)
		before := e.Baseline()

		steps := rapid.SliceOfN(rapid.SampledFrom(Names), 1, 12).Draw(t, "steps")
		for _, name := range steps {
			_ = e.Toggle(name, LabelDegree, nil)
			assertNoDangling(t, e.Live())
		}
		if !reflect.DeepEqual(e.Baseline(), before) {
			t.Fatal("baseline changed")
		}
	})
}

func TestCommunityIsolationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g, cm := genNetwork(t)
		if len(cm) == 0 {
			cm["0"] = 0
		}
		_, live, _, err := CommunityIsolation(State{}, g, g, cm, testRand())
		if err != nil {
			t.Fatal(err)
		}

		degree := map[network.ID]int{}
		for _, l := range live.Links {
			src, ok1 := cm.Lookup(l.Source.ID)
			dst, ok2 := cm.Lookup(l.Target.ID)
			if !ok1 || !ok2 || src != dst {
				t.Fatalf("cross-community link %s -> %s survived", l.Source.ID, l.Target.ID)
			}
			degree[l.Source.ID]++
			degree[l.Target.ID]++
		}
		for _, n := range live.Nodes {
			if degree[n.ID] == 0 {
				t.Fatalf("isolated node %s kept", n.ID)
			}
		}
		assertNoDangling(t, live)
	})
}

func TestStrongConnectionsRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g, _ := genNetwork(t)
		e := NewEngine(g)
		e.ToggleStrongConnections()
		for _, n := range e.Live().Nodes {
			if n.Metric(network.MetricBetweenness) < StrongThreshold {
				t.Fatalf("node %s below threshold kept", n.ID)
			}
		}
		e.ToggleStrongConnections()
		if !reflect.DeepEqual(e.Live(), e.Baseline()) {
			t.Fatal("round trip did not restore the baseline")
		}
	})
}

func TestActivityRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g, _ := genNetwork(t)
		e := NewEngine(g)
		e.ToggleActivity()
		e.ToggleActivity()
		if !reflect.DeepEqual(ids(e.Live()), ids(g)) || len(e.Live().Links) != len(g.Links) {
			t.Fatal("activity round trip changed the graph")
		}
	})
}

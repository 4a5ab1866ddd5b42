package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/netlens/pkg/config"
	"github.com/matzehuels/netlens/pkg/errors"
	"github.com/matzehuels/netlens/pkg/network"
)

// testEnv is an isolated config with file store and cache under a temp dir.
type testEnv struct {
	dir    string
	config string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	for _, k := range []string{config.EnvAPIURL, config.EnvRedisAddr, config.EnvMongoURI} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	body := fmt.Sprintf("[cache]\ndir = %q\n\n[store]\ndir = %q\n",
		filepath.Join(dir, "cache"), filepath.Join(dir, "store"))
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return testEnv{dir: dir, config: path}
}

// run executes the root command and returns what it wrote to stdout.
func (e testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--config", e.config}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (e testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("netlens %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func parseGraph(t *testing.T, s string) *network.Graph {
	t.Helper()
	g, err := network.UnmarshalGraph([]byte(s))
	if err != nil {
		t.Fatalf("parse output: %v\n%s", err, s)
	}
	return g
}

func TestStatsCommand(t *testing.T) {
	env := newTestEnv(t)
	first := writeFile(t, "first.json", twoTriangles)
	second := writeFile(t, "second.json", `{"nodes": [{"id": "x"}, {"id": "y"}], "links": [{"source": "x", "target": "y"}, {"source": "y", "target": "x"}]}`)

	out := env.mustRun(t, "stats", "--json", "-j", "2", first, second)
	var got []fileSummary
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(got) != 2 {
		t.Fatalf("summaries = %d, want 2", len(got))
	}
	if got[0].Path != first || got[0].NumNodes != 6 || got[0].NumEdges != 7 {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Path != second || got[1].ReciprocalEdges != 2 || got[1].Reciprocity != "1.00" {
		t.Errorf("second = %+v", got[1])
	}

	table := env.mustRun(t, "stats", first)
	if !strings.Contains(table, "first") {
		t.Errorf("table output missing title:\n%s", table)
	}

	if _, err := env.run(t, "stats", filepath.Join(env.dir, "missing.json")); err == nil {
		t.Error("missing file: want error")
	}
}

func TestFilterCommand(t *testing.T) {
	env := newTestEnv(t)
	input := writeFile(t, "chat.json", twoTriangles)

	tests := []struct {
		apply string
		nodes int
	}{
		{"", 6},
		{"strong", 2},
		{"strong,strong", 6},
		{"activity", 6},
	}
	for _, tt := range tests {
		t.Run("apply="+tt.apply, func(t *testing.T) {
			g := parseGraph(t, env.mustRun(t, "filter", input, "--apply", tt.apply))
			if len(g.Nodes) != tt.nodes {
				t.Errorf("nodes = %d, want %d", len(g.Nodes), tt.nodes)
			}
		})
	}

	t.Run("search", func(t *testing.T) {
		g := parseGraph(t, env.mustRun(t, "filter", input, "--search", "c"))
		if len(g.Nodes) != 1 || g.Nodes[0].ID.String() != "c" {
			t.Errorf("nodes = %v", g.Nodes)
		}
	})

	t.Run("output file", func(t *testing.T) {
		path := filepath.Join(env.dir, "strong.json")
		env.mustRun(t, "filter", input, "--apply", "strong", "-o", path)
		g, err := network.ReadGraphFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if len(g.Nodes) != 2 {
			t.Errorf("nodes = %d, want 2", len(g.Nodes))
		}
	})

	t.Run("unknown filter", func(t *testing.T) {
		_, err := env.run(t, "filter", input, "--apply", "bogus")
		if !errors.Is(err, errors.ErrCodeInvalidFilter) {
			t.Errorf("err = %v, want INVALID_FILTER", err)
		}
	})

	t.Run("unknown metric", func(t *testing.T) {
		_, err := env.run(t, "filter", input, "--apply", "highlight", "--metric", "fame")
		if !errors.Is(err, errors.ErrCodeInvalidMetric) {
			t.Errorf("err = %v, want INVALID_METRIC", err)
		}
	})
}

func TestCustomizeCommand(t *testing.T) {
	env := newTestEnv(t)
	input := writeFile(t, "chat.json", twoTriangles)

	g := parseGraph(t, env.mustRun(t, "customize", input, "--size-by", "degree", "--node-color", "#112233"))
	for _, n := range g.Nodes {
		if n.Size == nil {
			t.Fatalf("node %s has no size", n.ID)
		}
		// sizes scale with degree relative to the largest degree (3)
		want := 15 + 25*2.0/3
		if n.ID.String() == "c" || n.ID.String() == "d" {
			want = 40
		}
		if math.Abs(*n.Size-want) > 1e-9 {
			t.Errorf("node %s size = %v, want %v", n.ID, *n.Size, want)
		}
		if n.Color != "#112233" {
			t.Errorf("node %s color = %q", n.ID, n.Color)
		}
	}

	if _, err := env.run(t, "customize", input, "--color-by", "rainbow"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("invalid color mode: err = %v", err)
	}
}

func TestRenderCommandDOT(t *testing.T) {
	env := newTestEnv(t)
	input := writeFile(t, "chat.json", twoTriangles)
	path := filepath.Join(env.dir, "chat.dot")

	env.mustRun(t, "render", input, "-f", "dot", "-o", path, "--apply", "strong")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	dot := string(data)
	if !strings.HasPrefix(dot, "graph G {") || !strings.Contains(dot, `"c" -- "d";`) {
		t.Errorf("unexpected DOT:\n%s", dot)
	}
	if strings.Contains(dot, `"a" [`) {
		t.Errorf("filtered node a was rendered:\n%s", dot)
	}

	if _, err := env.run(t, "render", input, "-f", "gif"); err == nil {
		t.Error("gif: want error")
	}
}

func TestResearchCommands(t *testing.T) {
	env := newTestEnv(t)
	input := writeFile(t, "chat.json", twoTriangles)

	out := env.mustRun(t, "research", "list")
	if !strings.Contains(out, "No research records") {
		t.Errorf("empty list = %q", out)
	}

	out = env.mustRun(t, "research", "import", input, "--name", "Team chat", "--platform", "slack")
	fields := strings.Fields(out)
	if len(fields) < 2 || fields[len(fields)-2] != "Stored" {
		t.Fatalf("import output = %q", out)
	}
	id := fields[len(fields)-1]

	if out := env.mustRun(t, "research", "list"); !strings.Contains(out, "Team chat") {
		t.Errorf("list missing record:\n%s", out)
	}

	var rec network.Research
	if err := json.Unmarshal([]byte(env.mustRun(t, "research", "show", id, "--json")), &rec); err != nil {
		t.Fatal(err)
	}
	if rec.ID != id || rec.Name != "Team chat" || rec.Platform != "slack" {
		t.Errorf("record = %+v", rec)
	}

	env.mustRun(t, "research", "delete", id)
	if _, err := env.run(t, "research", "show", id); !errors.Is(err, errors.ErrCodeResearchNotFound) {
		t.Errorf("after delete: err = %v", err)
	}
}

func TestConfigCommands(t *testing.T) {
	env := newTestEnv(t)

	if got := strings.TrimSpace(env.mustRun(t, "config", "path")); got != env.config {
		t.Errorf("config path = %q, want %q", got, env.config)
	}

	out := env.mustRun(t, "config", "show")
	for _, want := range []string{"[store]", filepath.Join(env.dir, "store"), "[customize]"} {
		if !strings.Contains(out, want) {
			t.Errorf("config show missing %q:\n%s", want, out)
		}
	}
}

func TestCacheCommands(t *testing.T) {
	env := newTestEnv(t)
	dir := filepath.Join(env.dir, "cache")

	if got := strings.TrimSpace(env.mustRun(t, "cache", "path")); got != dir {
		t.Errorf("cache path = %q, want %q", got, dir)
	}
	if out := env.mustRun(t, "cache", "clear"); !strings.Contains(out, "Cache is empty") {
		t.Errorf("clear on empty cache = %q", out)
	}

	input := writeFile(t, "chat.json", twoTriangles)
	env.mustRun(t, "communities", input)
	if out := env.mustRun(t, "cache", "clear"); !strings.Contains(out, "Cleared 1 cached entries") {
		t.Errorf("clear after detection = %q", out)
	}
}

func TestCommunitiesCommand(t *testing.T) {
	env := newTestEnv(t)
	input := writeFile(t, "chat.json", twoTriangles)
	labeled := filepath.Join(env.dir, "labeled.json")

	env.mustRun(t, "--no-cache", "communities", input, "-o", labeled)
	g, err := network.ReadGraphFile(labeled)
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range g.Nodes {
		if n.Community == nil {
			t.Errorf("node %s has no community", n.ID)
		}
	}
	if g.CommunityCount() < 1 {
		t.Error("no communities labeled")
	}

	if _, err := env.run(t, "communities", input, "-a", "leiden"); !errors.Is(err, errors.ErrCodeInvalidAlgorithm) {
		t.Errorf("leiden: err = %v", err)
	}
}

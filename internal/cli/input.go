package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/netlens/pkg/network"
)

// stdinPath names standard input or output in file arguments.
const stdinPath = "-"

// readInput loads a research record or a bare {nodes, links} graph from
// path, or from stdin when path is "-". Bare graphs are wrapped in a record
// named after the file.
func readInput(path string, stdin io.Reader) (*network.Research, error) {
	var (
		data []byte
		err  error
	)
	if path == stdinPath {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return parseInput(data, path)
}

func parseInput(data []byte, path string) (*network.Research, error) {
	var probe struct {
		Analysis json.RawMessage `json:"analysis"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(probe.Analysis) > 0 && !bytes.Equal(probe.Analysis, []byte("null")) {
		var rec network.Research
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return &rec, nil
	}

	g, err := network.UnmarshalGraph(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	rec := &network.Research{Name: inputName(path)}
	rec.SetGraph(g)
	return rec, nil
}

func inputName(path string) string {
	if path == stdinPath {
		return "stdin"
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// writeGraph writes g as indented JSON to path, or to stdout when path is
// empty or "-". It reports whether a file was written.
func writeGraph(g *network.Graph, path string, stdout io.Writer) (bool, error) {
	if path == "" || path == stdinPath {
		return false, network.WriteGraph(g, stdout)
	}
	return true, network.WriteGraphFile(g, path)
}

// outputPaths maps each format to its output file. A single format writes to
// output as given; several formats share output as a base name. Without an
// output, files are named after the input.
func outputPaths(input, output string, formats []string) map[string]string {
	base := output
	if base == "" {
		base = inputName(input)
	} else if len(formats) > 1 {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}

	paths := make(map[string]string, len(formats))
	for _, f := range formats {
		if output != "" && len(formats) == 1 {
			paths[f] = output
			continue
		}
		paths[f] = base + "." + f
	}
	return paths
}

// splitList parses a comma-separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

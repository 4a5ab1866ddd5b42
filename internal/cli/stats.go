package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/netlens/pkg/stats"
)

// fileSummary is the statistics of one input file.
type fileSummary struct {
	Path string `json:"path"`
	stats.Summary
	Reciprocity string `json:"reciprocityFormatted"`
}

func (c *CLI) statsCommand() *cobra.Command {
	var (
		asJSON bool
		jobs   int
	)

	cmd := &cobra.Command{
		Use:   "stats FILE...",
		Short: "Print network statistics for one or more graphs",
		Long: `Print node, link, reciprocity, density and diameter figures for each input.

Inputs are research records or bare {nodes, links} graphs. Use "-" to read stdin.
Community counts are taken from the community labels already on the nodes.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := summarizeFiles(cmd.Context(), args, jobs, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return writeSummaries(cmd.OutOrStdout(), results, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "write JSON instead of a table")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", runtime.NumCPU(), "files to read in parallel")

	return cmd
}

// summarizeFiles computes statistics for every path, at most jobs at a time.
// Results keep the order of paths; the first failure cancels the rest.
func summarizeFiles(ctx context.Context, paths []string, jobs int, stdin io.Reader) ([]fileSummary, error) {
	if jobs < 1 {
		jobs = 1
	}
	results := make([]fileSummary, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := readInput(path, stdin)
			if err != nil {
				return err
			}
			graph := rec.Graph()
			sum := stats.Summarize(graph, graph.CommunityCount())
			results[i] = fileSummary{Path: path, Summary: sum, Reciprocity: sum.FormatReciprocity()}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func writeSummaries(w io.Writer, results []fileSummary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		printSummary(w, inputName(r.Path), r.Summary)
	}
	return nil
}

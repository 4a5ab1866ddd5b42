package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/netlens/pkg/cache"
	"github.com/matzehuels/netlens/pkg/config"
	"github.com/matzehuels/netlens/pkg/errors"
	"github.com/matzehuels/netlens/pkg/explorer"
	"github.com/matzehuels/netlens/pkg/filter"
	"github.com/matzehuels/netlens/pkg/network"
	"github.com/matzehuels/netlens/pkg/notify"
)

// viewOpts are the flags shared by commands that build a filtered view.
type viewOpts struct {
	apply  string
	metric string
	detect bool
	search string
}

func (o *viewOpts) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.apply, "apply", "", "filters to toggle in order: "+strings.Join(filter.Names, ", "))
	cmd.Flags().StringVarP(&o.metric, "metric", "m", "", "centrality metric for the highlight filter (label or field, e.g. betweenness)")
	cmd.Flags().BoolVar(&o.detect, "detect", false, "detect communities before filtering (implied by the communities filter)")
	cmd.Flags().StringVar(&o.search, "search", "", "keep only nodes whose id contains this text")
}

// filters validates and returns the requested filter names.
func (o *viewOpts) filters() ([]string, error) {
	names := splitList(o.apply)
	for _, n := range names {
		if !slices.Contains(filter.Names, n) {
			return nil, errors.New(errors.ErrCodeInvalidFilter, "unknown filter: %s (want %s)", n, strings.Join(filter.Names, ", "))
		}
	}
	return names, nil
}

// view is an opened explorer plus what it needs released.
type view struct {
	exp   *explorer.Explorer
	cache cache.Cache
}

func (v *view) Close() error {
	if v.cache == nil {
		return nil
	}
	return v.cache.Close()
}

// openView opens rec in an explorer and applies the requested filters.
// Notifications go to notifier as they happen.
func (c *CLI) openView(ctx context.Context, cfg *config.Config, rec *network.Research, opts viewOpts, notifier notify.Notifier) (*view, error) {
	names, err := opts.filters()
	if err != nil {
		return nil, err
	}
	var label string
	if opts.metric != "" {
		info, ok := filter.LookupMetric(opts.metric)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidMetric, "unknown metric: %s", opts.metric)
		}
		label = info.Label
	}
	if rec.Analysis == nil || rec.Analysis.Algorithm == "" {
		if rec.Analysis == nil {
			rec.Analysis = &network.Analysis{}
		}
		rec.Analysis.Algorithm = cfg.API.Algorithm
	}

	v := &view{}
	eopts := explorer.Options{
		Notifier: notifier,
		Logger:   c.Logger,
		Settings: &cfg.Customize,
	}
	if opts.detect || slices.Contains(names, filter.NameCommunities) {
		det, ch, err := c.newDetector(ctx, cfg)
		if err != nil {
			return nil, err
		}
		v.cache = ch
		eopts.Detector = det
		eopts.AutoDetect = true
	}

	dctx, cancel := detectContext(ctx, cfg)
	defer cancel()
	exp, err := explorer.Open(dctx, rec, eopts)
	if err != nil {
		_ = v.Close()
		return nil, err
	}
	v.exp = exp
	if label != "" {
		exp.SelectMetric(label)
	}

	for _, name := range names {
		if err := exp.Toggle(name, nil); err != nil {
			_ = v.Close()
			return nil, fmt.Errorf("%s filter: %w", name, err)
		}
		c.Logger.Debug("filter toggled", "filter", name, "active", exp.State().Active(name))
	}
	return v, nil
}

// graph returns what the view shows, narrowed by the search text.
func (v *view) graph(search string) *network.Graph {
	if search != "" {
		return network.Search(v.exp.Display(), search)
	}
	return v.exp.Display()
}

func (c *CLI) filterCommand() *cobra.Command {
	var (
		opts   viewOpts
		output string
	)

	cmd := &cobra.Command{
		Use:   "filter FILE",
		Short: "Apply exploration filters and write the resulting graph",
		Long: `Toggle filters on a graph in order and write the displayed graph as JSON.

Filters:
  strong       keep nodes with betweenness >= 0.2
  highlight    mark the most central nodes by --metric
  activity     keep nodes touching at least two links
  restore      put back the unfiltered graph
  communities  keep intra-community links only (runs detection first)

Toggling a filter twice turns it off again.`,
		Example: `  netlens filter chat.json --apply strong -o strong.json
  netlens filter chat.json --apply highlight --metric pagerank
  netlens filter chat.json --apply communities,activity`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			rec, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			v, err := c.openView(cmd.Context(), cfg, rec, opts, notify.Log{Logger: c.Logger})
			if err != nil {
				return err
			}
			defer v.Close()
			return c.writeView(cmd.OutOrStdout(), v, opts.search, output)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	return cmd
}

func (c *CLI) writeView(w io.Writer, v *view, search, output string) error {
	g := v.graph(search)
	wrote, err := writeGraph(g, output, w)
	if err != nil {
		return err
	}
	if wrote {
		c.Logger.Info("wrote graph", "path", output, "nodes", len(g.Nodes), "links", len(g.Links))
	}
	return nil
}

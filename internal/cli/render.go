package cli

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/netlens/pkg/customize"
	"github.com/matzehuels/netlens/pkg/notify"
	"github.com/matzehuels/netlens/pkg/render"
)

type renderOpts struct {
	view     viewOpts
	settings settingsFlags
	output   string
	formats  string
	engine   string
	noLabels bool
}

func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render FILE",
		Short: "Render a graph to SVG, PDF, PNG or DOT",
		Long: `Render the displayed graph with Graphviz.

The graph goes through the same filters and customization as "netlens filter" and
"netlens customize". Directed research records are drawn with reversed links.
PDF and PNG output needs rsvg-convert on the PATH.`,
		Example: `  netlens render chat.json
  netlens render chat.json -f svg,png -o out/chat
  netlens render chat.json --color-by community --apply communities -f pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formats := splitList(opts.formats)
			if len(formats) == 0 {
				formats = []string{render.FormatSVG}
			}
			for _, f := range formats {
				if !slices.Contains(render.Formats, f) {
					return fmt.Errorf("invalid format: %s (must be one of %s)", f, strings.Join(render.Formats, ", "))
				}
			}
			return c.runRender(cmd, args[0], formats, &opts)
		},
	}

	opts.view.register(cmd)
	opts.settings.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output format(s): svg (default), pdf, png, dot (comma-separated)")
	cmd.Flags().StringVar(&opts.engine, "engine", "", "Graphviz layout engine (default neato)")
	cmd.Flags().BoolVar(&opts.noLabels, "no-labels", false, "omit node labels")

	return cmd
}

func (c *CLI) runRender(cmd *cobra.Command, input string, formats []string, opts *renderOpts) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	s, err := opts.settings.apply(cmd, cfg.Customize)
	if err != nil {
		return err
	}
	if s.ColorBy == customize.ByCommunity {
		opts.view.detect = true
	}
	rec, err := readInput(input, cmd.InOrStdin())
	if err != nil {
		return err
	}

	v, err := c.openView(cmd.Context(), cfg, rec, opts.view, notify.Log{Logger: c.Logger})
	if err != nil {
		return err
	}
	defer v.Close()
	v.exp.Customize(s)
	g := v.graph(opts.view.search)

	ropts := render.OptionsFrom(s, rec.Directed())
	ropts.Engine = opts.engine
	ropts.Labels = !opts.noLabels

	prog := newProgress(c.Logger)
	paths := outputPaths(input, opts.output, formats)
	for _, f := range formats {
		data, err := render.Render(cmd.Context(), g, ropts, f)
		if err != nil {
			return fmt.Errorf("render %s: %w", f, err)
		}
		if err := os.WriteFile(paths[f], data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", paths[f], err)
		}
		printFile(cmd.ErrOrStderr(), paths[f])
	}
	prog.done(fmt.Sprintf("Rendered %d nodes", len(g.Nodes)))
	return nil
}

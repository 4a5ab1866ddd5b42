package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/netlens/pkg/community"
	"github.com/matzehuels/netlens/pkg/errors"
	"github.com/matzehuels/netlens/pkg/notify"
)

type communitiesOpts struct {
	algorithm string
	output    string
	asJSON    bool
}

func (c *CLI) communitiesCommand() *cobra.Command {
	var opts communitiesOpts

	cmd := &cobra.Command{
		Use:   "communities FILE",
		Short: "Detect the communities of a graph",
		Long: `Detect communities and print one row per community.

Detection runs in-process unless [api] base_url is configured, in which case the
graph is posted to the detection service. Results are cached by graph and algorithm.`,
		Example: `  netlens communities chat.json
  netlens communities chat.json -a louvain -o labeled.json
  netlens communities chat.json --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCommunities(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.algorithm, "algorithm", "a", "", "louvain, girvan_newman or greedy_modularity (default from the record or config)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the labeled graph to this file")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "write the detection result as JSON")

	return cmd
}

func (c *CLI) runCommunities(cmd *cobra.Command, path string, opts communitiesOpts) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	rec, err := readInput(path, cmd.InOrStdin())
	if err != nil {
		return err
	}

	algorithm := opts.algorithm
	switch {
	case algorithm != "":
	case rec.Analysis != nil && rec.Analysis.Algorithm != "":
		algorithm = rec.Analysis.Algorithm
	default:
		algorithm = cfg.API.Algorithm
	}
	if err := errors.ValidateAlgorithm(algorithm); err != nil {
		return err
	}

	det, ch, err := c.newDetector(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer ch.Close()

	ctx, cancel := detectContext(cmd.Context(), cfg)
	defer cancel()

	g := rec.Graph()
	notes := &notify.Recorder{}
	prog := newProgress(c.Logger)
	spin := newSpinner(ctx, os.Stderr, fmt.Sprintf("Detecting communities (%s)...", algorithm))
	spin.Start()
	res, err := community.NewResolver(det, notes, c.Logger).Resolve(ctx, g, algorithm)
	spin.Stop()
	printNotifications(os.Stderr, notes.Drain())
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Resolved %d nodes", len(res.Map)))

	out := cmd.OutOrStdout()
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out, communityTable(res.Communities, -1))
		if res.Modularity != 0 {
			printDetail(out, "modularity %.4f", res.Modularity)
		}
	}

	if opts.output != "" {
		res.Apply(g)
		if _, err := writeGraph(g, opts.output, out); err != nil {
			return err
		}
		printFile(os.Stderr, opts.output)
	}
	return nil
}

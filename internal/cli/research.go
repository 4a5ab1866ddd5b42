package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/netlens/pkg/network"
	"github.com/matzehuels/netlens/pkg/stats"
	"github.com/matzehuels/netlens/pkg/store"
)

// researchCommand manages the research records in the configured store.
func (c *CLI) researchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "research",
		Aliases: []string{"r"},
		Short:   "Manage stored research records",
	}

	cmd.AddCommand(c.researchListCommand())
	cmd.AddCommand(c.researchShowCommand())
	cmd.AddCommand(c.researchImportCommand())
	cmd.AddCommand(c.researchDeleteCommand())

	return cmd
}

// withStore opens the configured store for the duration of fn.
func (c *CLI) withStore(cmd *cobra.Command, fn func(store.Store) error) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	st, err := c.newStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func (c *CLI) researchListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List research records, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd, func(st store.Store) error {
				recs, err := st.List(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(recs) == 0 {
					printInfo(out, "No research records")
					return nil
				}
				fmt.Fprintln(out, researchTable(recs))
				return nil
			})
		},
	}
}

func (c *CLI) researchShowCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show a research record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd, func(st store.Store) error {
				rec, err := st.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeResearch(cmd.OutOrStdout(), rec, asJSON)
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "write the full record as JSON")

	return cmd
}

func (c *CLI) researchImportCommand() *cobra.Command {
	var name, platform string

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Store a research record or graph file",
		Long: `Store a research record. A bare {nodes, links} graph is wrapped in a new
record named after the file.`,
		Example: `  netlens research import chat.json --name "Team chat"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			if name != "" {
				rec.Name = name
			}
			if platform != "" {
				rec.Platform = platform
			}
			return c.withStore(cmd, func(st store.Store) error {
				if err := st.Put(cmd.Context(), rec); err != nil {
					return err
				}
				c.Logger.Debug("research stored", "id", rec.ID)
				printSuccess(cmd.OutOrStdout(), "Stored %s", rec.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "research name")
	cmd.Flags().StringVar(&platform, "platform", "", "platform the conversations came from")

	return cmd
}

func (c *CLI) researchDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Delete a research record",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd, func(st store.Store) error {
				if err := st.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				printSuccess(cmd.OutOrStdout(), "Deleted %s", args[0])
				return nil
			})
		},
	}
}

func writeResearch(w io.Writer, rec *network.Research, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}
	printKeyValue(w, "ID", rec.ID)
	printKeyValue(w, "Created", rec.CreatedAt.Format("2006-01-02 15:04"))
	if rec.Platform != "" {
		printKeyValue(w, "Platform", rec.Platform)
	}
	printKeyValue(w, "Algorithm", rec.Algorithm())
	fmt.Fprintln(w)
	g := rec.Graph()
	printSummary(w, rec.Name, stats.Summarize(g, g.CommunityCount()))
	return nil
}

func researchTable(recs []*network.Research) string {
	rows := make([][]string, len(recs))
	for i, r := range recs {
		var nodes, links int
		if r.Analysis != nil {
			nodes, links = len(r.Analysis.Nodes), len(r.Analysis.Links)
		}
		rows[i] = []string{
			r.ID,
			r.Name,
			r.CreatedAt.Format("2006-01-02 15:04"),
			strconv.Itoa(nodes),
			strconv.Itoa(links),
		}
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("ID", "Name", "Created", "Nodes", "Links").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			if col == 0 {
				return StyleDim
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		}).
		Render()
}

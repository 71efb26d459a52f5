package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cyrogem/nodedialogue/pkg/asset"
	"github.com/cyrogem/nodedialogue/pkg/editor"
)

// saveAsCommand stores a dialogue file without overwriting.
func (c *CLI) saveAsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "save-as <file> [name]",
		Short: "Save a dialogue file into the store",
		Long: `Save a dialogue file into the store.

The dialogue is stored under name, or under its Start node text, or as
"Untitled Dialogue". Existing dialogues are never overwritten: a taken name
is stored as "Name (1)", "Name (2)" and so on.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			g, stored, err := asset.ReadFile(args[0])
			if err != nil {
				return err
			}
			name := stored
			if len(args) == 2 {
				name = args[1]
			}

			s, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			ed := editor.New(s, c.Logger)
			ed.Open(g, "")
			saved, err := ed.Save(ctx, name)
			if err != nil {
				return err
			}
			printSuccess("Saved %s", StyleHighlight.Render(saved))
			printStats(g.NodeCount(), g.ConnectionCount())
			return nil
		},
	}
}

func (c *CLI) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored dialogues",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			names, err := s.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(names) == 0 {
				printInfo("No dialogues stored")
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

// loadCommand fetches a stored dialogue. With --current the file being
// edited is autosaved first, exactly as the editor does before a load.
func (c *CLI) loadCommand() *cobra.Command {
	var output, current string

	cmd := &cobra.Command{
		Use:   "load <name>",
		Short: "Load a stored dialogue into a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			ed := editor.New(s, c.Logger)
			if current != "" {
				g, name, err := asset.ReadFile(current)
				if err != nil {
					return err
				}
				ed.Open(g, name)
				if err := ed.Load(ctx, args[0]); err != nil {
					return err
				}
			} else {
				g, err := s.Load(ctx, args[0])
				if err != nil {
					return err
				}
				ed.Open(g, args[0])
			}

			if output == "" && current != "" {
				output = current
			}
			opts, err := c.assetOptions(args[0])
			if err != nil {
				return err
			}
			if err := writeGraph(cmd.OutOrStdout(), output, ed.Graph(), opts); err != nil {
				return err
			}
			if output != "" && output != "-" {
				printSuccess("Loaded %s", StyleHighlight.Render(args[0]))
				printFile(output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: --current, else JSON on stdout)")
	cmd.Flags().StringVar(&current, "current", "", "dialogue file being edited; autosaved before loading and then replaced")
	return cmd
}

func (c *CLI) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored dialogue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			printSuccess("Deleted %s", args[0])
			return nil
		},
	}
}

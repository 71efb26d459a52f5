package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/cyrogem/nodedialogue/pkg/asset"
	"github.com/cyrogem/nodedialogue/pkg/dialogue"
	"github.com/cyrogem/nodedialogue/pkg/errors"
)

// =============================================================================
// new
// =============================================================================

func (c *CLI) newCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "new <file>",
		Short: "Create a dialogue holding only a Start node",
		Long: `Create a dialogue holding only a Start node.

The format follows the file extension: .asset, .json or .yaml.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err == nil {
				return errors.New(errors.ErrCodeConflict, "%s already exists", path)
			}
			g := dialogue.New()
			if name != "" {
				if err := g.SetSpeaker(g.Start().ID, name); err != nil {
					return err
				}
			}
			opts, err := c.assetOptions("")
			if err != nil {
				return err
			}
			if err := asset.WriteFile(path, g, opts); err != nil {
				return err
			}
			printSuccess("Created %s", asset.DialogueName(g, ""))
			printFile(path)
			printNextStep("Edit it", appName+" edit "+path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "dialogue name (Start node text)")
	return cmd
}

// =============================================================================
// show
// =============================================================================

func (c *CLI) showCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <file>",
		Short: "Print the nodes and connections of a dialogue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, name, err := asset.ReadFile(args[0])
			if err != nil {
				return err
			}
			printKeyValue("Name", asset.DialogueName(g, name))
			printStats(g.NodeCount(), g.ConnectionCount())
			fmt.Fprintln(cmd.OutOrStdout(), nodeTable(g))
			return nil
		},
	}
}

// nodeTable renders one row per node: index, kind, text and the index each
// output links to.
func nodeTable(g *dialogue.Graph) string {
	rows := make([][]string, 0, g.NodeCount())
	for i, n := range g.Nodes() {
		rows = append(rows, []string{
			strconv.Itoa(i),
			n.Kind.String(),
			n.Speaker,
			nodeText(n),
			outputsText(g, n),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("#", "Kind", "Speaker", "Text", "Links").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 1 {
				return kindStyle(g.NodeAt(row).Kind)
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

func nodeText(n *dialogue.Node) string {
	if n.Kind == dialogue.KindOption {
		parts := make([]string, len(n.Options))
		for i, o := range n.Options {
			parts[i] = fmt.Sprintf("%d. %s", i+1, o)
		}
		return strings.Join(parts, "\n")
	}
	return n.Line
}

func outputsText(g *dialogue.Graph, n *dialogue.Node) string {
	if n.OutputCount() == 0 {
		return "—"
	}
	parts := make([]string, n.OutputCount())
	for i := range parts {
		parts[i] = iconArrow + " —"
		if to, ok := g.Target(n.ID, i); ok {
			parts[i] = iconArrow + " " + strconv.Itoa(g.IndexOf(to))
		}
	}
	return strings.Join(parts, "\n")
}

// =============================================================================
// validate
// =============================================================================

func (c *CLI) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check that dialogue files decode into consistent graphs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				g, _, err := asset.ReadFile(path)
				if err == nil {
					err = g.Validate()
				}
				if err != nil {
					printError("%s: %s", path, errors.UserMessage(err))
					failed++
					continue
				}
				printSuccess("%s", path)
				printStats(g.NodeCount(), g.ConnectionCount())
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files invalid", failed, len(args))
			}
			return nil
		},
	}
}

// =============================================================================
// convert
// =============================================================================

func (c *CLI) convertCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "convert <input> [output]",
		Short: "Convert a dialogue between .asset, .json and .yaml",
		Long: `Convert a dialogue between .asset, .json and .yaml.

Formats follow the file extensions. Without an output path the dialogue is
written to stdout as JSON.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, stored, err := asset.ReadFile(args[0])
			if err != nil {
				return err
			}
			if name == "" {
				name = stored
			}
			out := ""
			if len(args) == 2 {
				out = args[1]
			}
			opts, err := c.assetOptions(name)
			if err != nil {
				return err
			}
			if err := writeGraph(cmd.OutOrStdout(), out, g, opts); err != nil {
				return err
			}
			if out != "" && out != "-" {
				printSuccess("Converted %s", args[0])
				printFile(out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "override the dialogue name")
	return cmd
}

// =============================================================================
// apply
// =============================================================================

func (c *CLI) applyCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "apply <file> <commands.json>",
		Short: "Apply a batch of edit commands to a dialogue file",
		Long: `Apply a batch of edit commands to a dialogue file.

The commands file holds a JSON array of commands, or an object with a
"commands" array, for example:

  [
    {"op": "set_line", "node": "n1", "text": "Hello there."},
    {"op": "click_out", "node": "n0", "output": 0},
    {"op": "click_in", "node": "n1"},
    {"op": "add_node", "kind": "end", "vec": {"x": 600, "y": 50}}
  ]

Nodes read from a file are addressed by position: n0, n1 and so on. The
batch stops at the first failing command and nothing is written.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, name, err := asset.ReadFile(args[0])
			if err != nil {
				return err
			}
			cmds, err := readCommands(args[1])
			if err != nil {
				return err
			}

			logger := loggerFromContext(cmd.Context())
			prog := newProgress(logger)
			s := dialogue.NewSession(g)
			results, err := s.ApplyAll(cmds)
			if err != nil {
				return err
			}
			for i, res := range results {
				logger.Debug("applied", "index", i, "command", cmds[i].String(), "node", res.Node)
			}
			prog.done(fmt.Sprintf("Applied %d commands to %s", len(results), args[0]))

			if output == "" {
				output = args[0]
			}
			opts, err := c.assetOptions(name)
			if err != nil {
				return err
			}
			if err := writeGraph(cmd.OutOrStdout(), output, s.Graph(), opts); err != nil {
				return err
			}
			if output != "-" {
				printSuccess("Applied %d commands", len(results))
				printStats(s.Graph().NodeCount(), s.Graph().ConnectionCount())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: rewrite the input, - for stdout)")
	return cmd
}

// readCommands decodes a command batch from path ("-" reads stdin).
func readCommands(path string) ([]dialogue.Command, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open commands: %w", err)
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read commands: %w", err)
	}
	return decodeCommands(data)
}

func decodeCommands(data []byte) ([]dialogue.Command, error) {
	var cmds []dialogue.Command
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var wrapped struct {
			Commands []dialogue.Command `json:"commands"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode commands")
		}
		cmds = wrapped.Commands
	} else if err := json.Unmarshal(data, &cmds); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode commands")
	}
	if len(cmds) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no commands to apply")
	}
	return cmds, nil
}

// assetOptions carries the configured script GUID into .asset writes.
func (c *CLI) assetOptions(name string) (asset.Options, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return asset.Options{}, err
	}
	return asset.Options{Name: name, ScriptGUID: cfg.ScriptGUID}, nil
}

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cyrogem/nodedialogue/pkg/asset"
	"github.com/cyrogem/nodedialogue/pkg/dialogue"
	"github.com/cyrogem/nodedialogue/pkg/pipeline"
)

// renderCommand creates the render command for drawing a dialogue graph.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		formatsStr string
		output     string
		stored     bool
		noCache    bool
	)
	opts := pipeline.Options{Rankdir: pipeline.DefaultRankdir, Scale: pipeline.DefaultScale}

	cmd := &cobra.Command{
		Use:   "render <file|name>",
		Short: "Render a dialogue graph to SVG, PNG, PDF or DOT",
		Long: `Render a dialogue graph to SVG, PNG, PDF or DOT.

Nodes are drawn by kind and option edges carry their option text. With
--pinned the editor positions are kept instead of letting Graphviz lay the
graph out. PNG and PDF conversion needs rsvg-convert on PATH.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Formats = parseFormats(formatsStr)
			if err := opts.ValidateAndSetDefaults(); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], stored, output, noCache, opts)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), png, pdf, dot (comma-separated)")
	cmd.Flags().StringVar(&opts.Rankdir, "rankdir", opts.Rankdir, "Graphviz rank direction: LR, TB, RL, BT")
	cmd.Flags().BoolVar(&opts.Pinned, "pinned", false, "keep editor node positions")
	cmd.Flags().Float64Var(&opts.Scale, "scale", opts.Scale, "PNG scale factor")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "re-render even when cached")
	cmd.Flags().BoolVar(&stored, "stored", false, "treat the argument as a stored dialogue name")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input string, stored bool, output string, noCache bool, opts pipeline.Options) error {
	g, base, err := c.renderSource(ctx, input, stored)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %s...", strings.Join(opts.Formats, ", ")))
	spinner.Start()
	result, err := runner.Render(ctx, g, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return fmt.Errorf("render: %w", err)
	}
	spinner.Stop()

	paths := outputPaths(opts.Formats, base, output)
	for _, format := range opts.Formats {
		if err := os.WriteFile(paths[format], result.Artifacts[format], 0644); err != nil {
			return fmt.Errorf("write %s: %w", paths[format], err)
		}
	}

	printSuccess("Rendered %s", asset.DialogueName(g, ""))
	for _, format := range opts.Formats {
		printFile(paths[format])
	}
	printRenderStats(g.NodeCount(), result.CacheHit, result.Duration)
	return nil
}

// renderSource reads the graph from a file or the store and returns it with
// the base path outputs are named after.
func (c *CLI) renderSource(ctx context.Context, input string, stored bool) (*dialogue.Graph, string, error) {
	if !stored {
		g, _, err := asset.ReadFile(input)
		if err != nil {
			return nil, "", err
		}
		return g, strings.TrimSuffix(input, filepath.Ext(input)), nil
	}

	s, err := c.openStore(ctx)
	if err != nil {
		return nil, "", err
	}
	defer s.Close()
	g, err := s.Load(ctx, input)
	if err != nil {
		return nil, "", err
	}
	return g, input, nil
}

// outputPaths names one file per format. A single format is written to
// output as given; otherwise output (minus any format extension) is the base.
func outputPaths(formats []string, base, output string) map[string]string {
	paths := make(map[string]string, len(formats))
	if len(formats) == 1 && output != "" {
		paths[formats[0]] = output
		return paths
	}
	if output != "" {
		base = output
		if pipeline.ValidFormats[strings.TrimPrefix(filepath.Ext(output), ".")] {
			base = strings.TrimSuffix(output, filepath.Ext(output))
		}
	}
	for _, f := range formats {
		paths[f] = base + "." + f
	}
	return paths
}

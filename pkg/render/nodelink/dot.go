package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/cyrogem/nodedialogue/pkg/dialogue"
	"github.com/cyrogem/nodedialogue/pkg/render"
)

// Options configures dialogue diagram rendering.
type Options struct {
	// Rankdir is the Graphviz rank direction (LR, TB, RL, BT). Empty means LR.
	Rankdir string

	// Pinned places nodes at their editor positions instead of letting
	// Graphviz lay them out. Pinned graphs must be rendered with the neato
	// engine, which [RenderSVG] selects when opts.Pinned is set.
	Pinned bool
}

// Rankdirs lists the accepted [Options.Rankdir] values.
var Rankdirs = []string{"LR", "TB", "RL", "BT"}

type kindStyle struct {
	shape string
	fill  string
}

var kindStyles = map[dialogue.Kind]kindStyle{
	dialogue.KindStart:    {"oval", "#a5d6a7"},
	dialogue.KindDialogue: {"box", "white"},
	dialogue.KindOption:   {"box", "#fff59d"},
	dialogue.KindEnd:      {"octagon", "#ef9a9a"},
}

// ToDOT converts a dialogue graph to Graphviz DOT source.
//
// Each kind gets its own shape and fill colour. Edges leaving an Option node
// are labelled with the option text of the output they start from.
func ToDOT(g *dialogue.Graph, opts Options) string {
	rankdir := opts.Rankdir
	if rankdir == "" {
		rankdir = "LR"
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", rankdir)
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=11];\n")
	if opts.Pinned {
		buf.WriteString("  inputscale=72;\n")
		buf.WriteString("  splines=true;\n")
	}
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		attrs := fmtAttrs(n, fmtLabel(n))
		if opts.Pinned {
			c := n.Rect.Center()
			attrs = append(attrs, fmt.Sprintf("pos=\"%s,%s!\"", fmtCoord(c.X), fmtCoord(-c.Y)))
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, c := range g.Connections() {
		from, _ := g.Node(c.From)
		if from.Kind == dialogue.KindOption && c.Output < len(from.Options) {
			fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", c.From, c.To, optionLabel(from, c.Output))
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q;\n", c.From, c.To)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n *dialogue.Node) string {
	switch n.Kind {
	case dialogue.KindDialogue:
		if n.Line == "" {
			return n.Title()
		}
		return n.Title() + "\n" + n.Line
	case dialogue.KindOption:
		lines := []string{n.Title()}
		if n.Line != "" {
			lines = append(lines, n.Line)
		}
		for i := range n.Options {
			lines = append(lines, optionLabel(n, i))
		}
		return strings.Join(lines, "\n")
	default:
		return n.Title()
	}
}

func optionLabel(n *dialogue.Node, i int) string {
	text := n.Options[i]
	if text == "" {
		text = "…"
	}
	return fmt.Sprintf("%d. %s", i+1, text)
}

func fmtAttrs(n *dialogue.Node, label string) []string {
	st := kindStyles[n.Kind]
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if st.shape != "box" {
		attrs = append(attrs, "shape="+st.shape)
	}
	if st.fill != "white" {
		attrs = append(attrs, fmt.Sprintf("fillcolor=%q", st.fill))
	}
	return attrs
}

func fmtCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// RenderSVG renders DOT source to SVG using Graphviz. Pass the same options
// the source was generated with so pinned layouts use the neato engine.
func RenderSVG(ctx context.Context, dot string, opts Options) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	if opts.Pinned {
		gv.SetLayout(graphviz.NEATO)
	}

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}

// RenderPDF renders DOT source as PDF via SVG conversion.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(ctx context.Context, dot string, opts Options) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot, opts)
	if err != nil {
		return nil, err
	}
	return render.Convert(ctx, svg, render.FormatPDF, 0)
}

// RenderPNG renders DOT source as PNG via SVG conversion at the given scale.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPNG(ctx context.Context, dot string, opts Options, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot, opts)
	if err != nil {
		return nil, err
	}
	return render.Convert(ctx, svg, render.FormatPNG, scale)
}

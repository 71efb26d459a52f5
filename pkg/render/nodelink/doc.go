// Package nodelink renders dialogue graphs as node-link diagrams.
//
// # Usage
//
// Convert a graph to DOT, then render it:
//
//	opts := nodelink.Options{Rankdir: "LR"}
//	dot := nodelink.ToDOT(g, opts)
//	svg, err := nodelink.RenderSVG(ctx, dot, opts)
//
// PDF and PNG go through SVG and need rsvg-convert on the PATH:
//
//	pdf, err := nodelink.RenderPDF(ctx, dot, opts)
//	png, err := nodelink.RenderPNG(ctx, dot, opts, 2.0)
//
// # Layout
//
// By default Graphviz's dot engine ranks nodes left to right from the Start
// node. With [Options.Pinned] every node is placed at its editor position
// and the neato engine only routes the edges, so the diagram matches what
// the editor canvas shows.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz], which runs Graphviz
// compiled to WebAssembly; no system Graphviz install is needed for SVG.
package nodelink

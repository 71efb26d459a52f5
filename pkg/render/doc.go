// Package render holds output conversions shared by the dialogue renderers.
//
// Diagrams are produced as SVG by the nodelink subpackage. The [ToPDF] and [ToPNG]
// functions convert any SVG to other formats using the external rsvg-convert
// tool (from librsvg):
//
//	svg, err := nodelink.RenderSVG(ctx, dot, opts)
//	pdf, err := render.ToPDF(svg)
//	png, err := render.ToPNG(svg, 2.0)  // 2x scale
package render

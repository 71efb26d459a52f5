package pipeline

import (
	"context"
	"fmt"

	"github.com/cyrogem/nodedialogue/pkg/dialogue"
	"github.com/cyrogem/nodedialogue/pkg/render"
	"github.com/cyrogem/nodedialogue/pkg/render/nodelink"
)

// Render generates output artifacts in the requested formats without
// caching. Options must already be validated.
func Render(ctx context.Context, g *dialogue.Graph, opts Options) (map[string][]byte, error) {
	nl := opts.NodelinkOptions()
	dot := nodelink.ToDOT(g, nl)
	artifacts := make(map[string][]byte, len(opts.Formats))

	// SVG is the source for PNG and PDF; render it at most once.
	var svg []byte
	svgFor := func() ([]byte, error) {
		if svg != nil {
			return svg, nil
		}
		var err error
		svg, err = nodelink.RenderSVG(ctx, dot, nl)
		return svg, err
	}

	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatDOT:
			data = []byte(dot)
		case FormatSVG:
			data, err = svgFor()
		case FormatPNG:
			if data, err = svgFor(); err == nil {
				data, err = render.Convert(ctx, data, render.FormatPNG, opts.Scale)
			}
		case FormatPDF:
			if data, err = svgFor(); err == nil {
				data, err = render.Convert(ctx, data, render.FormatPDF, 0)
			}
		default:
			return nil, fmt.Errorf("unsupported format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}

	return artifacts, nil
}

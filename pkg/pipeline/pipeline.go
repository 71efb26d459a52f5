// Package pipeline turns dialogue graphs into rendered artifacts.
//
// This package implements the graph → DOT → output pipeline used by both the
// CLI render command and the HTTP API. By centralizing this logic, both entry
// points validate options, hash graphs and consult the cache the same way.
//
// # Usage
//
// Create a Runner and render:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{Formats: []string{"svg", "dot"}}
//	result, err := runner.Render(ctx, g, opts)
//	if err != nil {
//	    return err
//	}
//	svg := result.Artifacts["svg"]
//
// Or render without a cache:
//
//	artifacts, err := pipeline.Render(ctx, g, opts)
package pipeline

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/cyrogem/nodedialogue/pkg/cache"
	"github.com/cyrogem/nodedialogue/pkg/errors"
	"github.com/cyrogem/nodedialogue/pkg/render/nodelink"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultRankdir is the Graphviz rank direction.
	DefaultRankdir = "LR"

	// DefaultScale is the PNG scale factor.
	DefaultScale = 2.0

	// ArtifactTTL is how long rendered artifacts stay cached.
	ArtifactTTL = 7 * 24 * time.Hour
)

// Format constants for output formats.
const (
	FormatSVG = "svg"
	FormatPNG = "png"
	FormatPDF = "pdf"
	FormatDOT = "dot"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG: true,
	FormatPNG: true,
	FormatPDF: true,
	FormatDOT: true,
}

// ContentTypes maps output formats to HTTP content types.
var ContentTypes = map[string]string{
	FormatSVG: "image/svg+xml",
	FormatPNG: "image/png",
	FormatPDF: "application/pdf",
	FormatDOT: "text/vnd.graphviz",
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options configures a render. It supports JSON for API requests.
type Options struct {
	Formats []string `json:"formats,omitempty"`
	Rankdir string   `json:"rankdir,omitempty"`
	Pinned  bool     `json:"pinned,omitempty"`
	Scale   float64  `json:"scale,omitempty"`

	// Refresh bypasses cached artifacts.
	Refresh bool `json:"refresh,omitempty"`
}

// Result contains the outputs of a render.
type Result struct {
	// GraphHash is the content hash of the serialized graph.
	GraphHash string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// CacheHit is set when every artifact came from the cache.
	CacheHit bool

	// Duration is the wall time of the render.
	Duration time.Duration
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidInput,
			"invalid format: %q (must be one of: svg, png, pdf, dot)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateRankdir checks a Graphviz rank direction.
func ValidateRankdir(rankdir string) error {
	if !slices.Contains(nodelink.Rankdirs, rankdir) {
		return errors.New(errors.ErrCodeInvalidInput,
			"invalid rankdir: %q (must be one of: %s)", rankdir, strings.Join(nodelink.Rankdirs, ", "))
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// SetDefaults fills unset fields.
func (o *Options) SetDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Rankdir == "" {
		o.Rankdir = DefaultRankdir
	}
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
}

// ValidateAndSetDefaults applies defaults and checks every field.
func (o *Options) ValidateAndSetDefaults() error {
	o.SetDefaults()
	o.Rankdir = strings.ToUpper(o.Rankdir)
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if err := ValidateRankdir(o.Rankdir); err != nil {
		return err
	}
	if o.Scale < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "scale must be positive, got %v", o.Scale)
	}
	return nil
}

// NodelinkOptions returns the diagram options.
func (o *Options) NodelinkOptions() nodelink.Options {
	return nodelink.Options{Rankdir: o.Rankdir, Pinned: o.Pinned}
}

// RenderKeyOpts returns cache key options for one format.
func (o *Options) RenderKeyOpts(format string) cache.RenderKeyOpts {
	key := cache.RenderKeyOpts{Format: format, Rankdir: o.Rankdir, Pinned: o.Pinned}
	if format == FormatPNG {
		key.Format = fmt.Sprintf("%s@%.2f", format, o.Scale)
	}
	return key
}

package pipeline

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/cyrogem/nodedialogue/pkg/cache"
	"github.com/cyrogem/nodedialogue/pkg/dialogue"
	"github.com/cyrogem/nodedialogue/pkg/errors"
)

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"svg", false},
		{"png", false},
		{"pdf", false},
		{"dot", false},
		{"json", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("ValidateFormat(%q) code = %s", tt.format, errors.GetCode(err))
		}
	}
}

func TestValidateFormats(t *testing.T) {
	if err := ValidateFormats([]string{"svg", "dot"}); err != nil {
		t.Errorf("Valid formats should pass: %v", err)
	}

	if err := ValidateFormats([]string{"svg", "invalid"}); err == nil {
		t.Error("Invalid format should fail")
	}

	// Empty slice is valid
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("Empty formats should pass: %v", err)
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	var opts Options
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if len(opts.Formats) != 1 || opts.Formats[0] != FormatSVG {
		t.Errorf("Formats = %v", opts.Formats)
	}
	if opts.Rankdir != DefaultRankdir || opts.Scale != DefaultScale {
		t.Errorf("defaults not applied: %+v", opts)
	}

	lower := Options{Rankdir: "tb"}
	if err := lower.ValidateAndSetDefaults(); err != nil || lower.Rankdir != "TB" {
		t.Errorf("lowercase rankdir: %q, %v", lower.Rankdir, err)
	}

	bad := Options{Rankdir: "up"}
	if err := bad.ValidateAndSetDefaults(); err == nil {
		t.Error("invalid rankdir should fail")
	}
}

func TestRenderKeyOpts(t *testing.T) {
	opts := Options{Rankdir: "LR", Scale: 2}
	if got := opts.RenderKeyOpts(FormatPNG).Format; got != "png@2.00" {
		t.Errorf("png key format = %q", got)
	}
	if got := opts.RenderKeyOpts(FormatSVG).Format; got != "svg" {
		t.Errorf("svg key format = %q", got)
	}
}

func TestRenderDOT(t *testing.T) {
	g := dialogue.New()
	artifacts, err := Render(context.Background(), g, Options{Formats: []string{FormatDOT}, Rankdir: "LR"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(artifacts[FormatDOT]), "digraph G {") {
		t.Errorf("dot artifact = %q", artifacts[FormatDOT])
	}
}

func TestRunnerCaches(t *testing.T) {
	ctx := context.Background()
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	var logs bytes.Buffer
	r := NewRunner(fc, nil, log.New(&logs))
	g := dialogue.New()
	opts := Options{Formats: []string{FormatDOT}}

	first, err := r.Render(ctx, g, opts)
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheHit {
		t.Error("first render should miss")
	}

	second, err := r.Render(ctx, g, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheHit {
		t.Error("second render should hit")
	}
	if first.GraphHash != second.GraphHash {
		t.Error("hash changed between renders of the same graph")
	}

	_ = g.Move(g.Start().ID, dialogue.Vec2{X: 10})
	third, _ := r.Render(ctx, g, opts)
	if third.CacheHit || third.GraphHash == first.GraphHash {
		t.Error("moving a node should change the hash")
	}

	refreshed, _ := r.Render(ctx, g, Options{Formats: []string{FormatDOT}, Refresh: true})
	if refreshed.CacheHit {
		t.Error("Refresh should bypass the cache")
	}
}

func TestRunnerRejectsBadOptions(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	_, err := r.Render(context.Background(), dialogue.New(), Options{Formats: []string{"gif"}})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("err = %v, want INVALID_INPUT", err)
	}
}

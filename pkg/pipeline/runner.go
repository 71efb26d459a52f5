package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/cyrogem/nodedialogue/pkg/asset"
	"github.com/cyrogem/nodedialogue/pkg/cache"
	"github.com/cyrogem/nodedialogue/pkg/dialogue"
	"github.com/cyrogem/nodedialogue/pkg/observability"
)

// Runner encapsulates rendering with caching.
// Both CLI and API use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner with different graphs.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// GraphHash hashes the canonical JSON document of g. Node positions are part
// of the hash, so moving a node invalidates pinned and unpinned renders alike.
func GraphHash(g *dialogue.Graph) (string, error) {
	data, err := asset.Marshal(g, asset.FormatJSON, asset.Options{})
	if err != nil {
		return "", fmt.Errorf("serialize graph for cache key: %w", err)
	}
	return cache.Hash(data), nil
}

// Render produces every requested format, serving what it can from the cache.
func (r *Runner) Render(ctx context.Context, g *dialogue.Graph, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	start := time.Now()

	hash, err := GraphHash(g)
	if err != nil {
		return nil, err
	}
	result := &Result{GraphHash: hash, Artifacts: make(map[string][]byte)}

	var missing []string
	for _, format := range opts.Formats {
		if opts.Refresh {
			missing = append(missing, format)
			continue
		}
		key := r.Keyer.RenderKey(hash, opts.RenderKeyOpts(format))
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			result.Artifacts[format] = data
		} else {
			missing = append(missing, format)
		}
	}

	if len(missing) == 0 {
		result.CacheHit = true
		result.Duration = time.Since(start)
		r.Logger.Debug("render served from cache", "hash", hash[:12], "formats", opts.Formats)
		return result, nil
	}

	sub := opts
	sub.Formats = missing
	for _, f := range missing {
		observability.Render().OnRenderStart(ctx, f, g.NodeCount())
	}
	renderStart := time.Now()
	rendered, err := Render(ctx, g, sub)
	for _, f := range missing {
		observability.Render().OnRenderComplete(ctx, f, time.Since(renderStart), err)
	}
	if err != nil {
		return nil, err
	}

	for format, data := range rendered {
		result.Artifacts[format] = data
		key := r.Keyer.RenderKey(hash, opts.RenderKeyOpts(format))
		if err := r.Cache.Set(ctx, key, data, ArtifactTTL); err != nil {
			r.Logger.Warn("cache write failed", "format", format, "error", err)
		}
	}
	result.Duration = time.Since(start)

	r.Logger.Info("rendered dialogue",
		"nodes", g.NodeCount(),
		"formats", missing,
		"duration", result.Duration.Round(time.Millisecond))
	return result, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

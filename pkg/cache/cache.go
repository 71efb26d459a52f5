// Package cache stores rendered dialogue artifacts keyed by content hash.
//
// Rendering a dialogue graph through Graphviz is the slowest operation the
// CLI and the API perform, and its output depends only on the graph's
// serialized form and the render options. Callers hash the serialized graph
// with [Hash], build a key with a [Keyer] and consult a [Cache] before
// rendering.
//
// Three implementations are provided:
//
//   - [FileCache]: one JSON file per entry under a directory (CLI)
//   - [RedisCache]: shared cache for the HTTP server
//   - [NullCache]: never stores anything
package cache

import (
	"context"
	"strings"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A zero ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}

// RenderKeyOpts are the render options that change the produced artifact.
type RenderKeyOpts struct {
	Format  string `json:"format"`
	Rankdir string `json:"rankdir,omitempty"`
	Pinned  bool   `json:"pinned,omitempty"`
}

// Keyer builds cache keys.
type Keyer interface {
	// RenderKey keys a rendered artifact by the hash of the serialized graph.
	RenderKey(graphHash string, opts RenderKeyOpts) string
}

// DefaultKeyer produces unprefixed keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// RenderKey implements [Keyer].
func (DefaultKeyer) RenderKey(graphHash string, opts RenderKeyOpts) string {
	return renderKey(graphHash, opts)
}

// KeyType returns the category prefix of a key ("render" for render keys),
// used to label cache metrics.
func KeyType(key string) string {
	if i := strings.LastIndexByte(key, ':'); i > 0 {
		key = key[:i]
	}
	if i := strings.LastIndexByte(key, ':'); i >= 0 {
		return key[i+1:]
	}
	return key
}

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/cyrogem/nodedialogue/pkg/asset"
	"github.com/cyrogem/nodedialogue/pkg/dialogue"
	"github.com/cyrogem/nodedialogue/pkg/errors"
	"github.com/cyrogem/nodedialogue/pkg/observability"
)

// MaxNameIterations bounds the " (n)" suffix search in [Store.Save].
const MaxNameIterations = 1000

// Backend stores assets by name. Implementations must be safe for
// concurrent use.
type Backend interface {
	// Kind names the backend ("file", "redis", ...) for logs and metrics.
	Kind() string

	// Create stores a under name unless name is taken. It reports whether
	// the asset was stored.
	Create(ctx context.Context, name string, a *asset.Asset) (bool, error)

	// Put stores a under name, replacing any existing asset.
	Put(ctx context.Context, name string, a *asset.Asset) error

	// Get returns the asset stored under name, or a NOT_FOUND error.
	Get(ctx context.Context, name string) (*asset.Asset, error)

	// List returns the stored names in lexical order.
	List(ctx context.Context) ([]string, error)

	// Delete removes name, or returns a NOT_FOUND error.
	Delete(ctx context.Context, name string) error

	// Close releases connections held by the backend.
	Close() error
}

// Store saves and loads dialogue graphs through a [Backend].
type Store struct {
	backend Backend
}

// New wraps a backend.
func New(b Backend) *Store {
	return &Store{backend: b}
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend { return s.backend }

// Save stores g under name, or under the first free "name (n)" when name is
// taken, and returns the name used. The asset keeps name as its dialogue
// name either way.
func (s *Store) Save(ctx context.Context, name string, g *dialogue.Graph) (saved string, err error) {
	defer s.observe(ctx, "save", time.Now(), &err)

	if err := errors.ValidateDialogueName(name); err != nil {
		return "", err
	}
	a, err := asset.FromGraph(g, name)
	if err != nil {
		return "", err
	}

	for i := 0; i < MaxNameIterations; i++ {
		candidate := IterationName(name, i)
		ok, err := s.backend.Create(ctx, candidate, a)
		if err != nil {
			return "", errors.Wrap(errors.ErrCodeStorage, err, "save %q", candidate)
		}
		if ok {
			return candidate, nil
		}
	}
	return "", errors.New(errors.ErrCodeConflict, "no free name for %q after %d attempts", name, MaxNameIterations)
}

// Put stores g under exactly name, replacing what was there.
func (s *Store) Put(ctx context.Context, name string, g *dialogue.Graph) (err error) {
	defer s.observe(ctx, "put", time.Now(), &err)

	if err := errors.ValidateDialogueName(name); err != nil {
		return err
	}
	a, err := asset.FromGraph(g, name)
	if err != nil {
		return err
	}
	if err := s.backend.Put(ctx, name, a); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "put %q", name)
	}
	return nil
}

// Load returns the graph stored under name.
func (s *Store) Load(ctx context.Context, name string) (g *dialogue.Graph, err error) {
	defer s.observe(ctx, "load", time.Now(), &err)

	a, err := s.LoadAsset(ctx, name)
	if err != nil {
		return nil, err
	}
	return asset.ToGraph(a)
}

// LoadAsset returns the raw asset stored under name.
func (s *Store) LoadAsset(ctx context.Context, name string) (*asset.Asset, error) {
	if err := errors.ValidateDialogueName(name); err != nil {
		return nil, err
	}
	a, err := s.backend.Get(ctx, name)
	if err != nil {
		return nil, storageErr(err, "load %q", name)
	}
	return a, nil
}

// List returns the stored dialogue names.
func (s *Store) List(ctx context.Context) (names []string, err error) {
	defer s.observe(ctx, "list", time.Now(), &err)

	names, err = s.backend.List(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list dialogues")
	}
	return names, nil
}

// Delete removes the dialogue stored under name.
func (s *Store) Delete(ctx context.Context, name string) (err error) {
	defer s.observe(ctx, "delete", time.Now(), &err)

	if err := errors.ValidateDialogueName(name); err != nil {
		return err
	}
	if err := s.backend.Delete(ctx, name); err != nil {
		return storageErr(err, "delete %q", name)
	}
	return nil
}

// Close closes the backend.
func (s *Store) Close() error { return s.backend.Close() }

func (s *Store) observe(ctx context.Context, op string, start time.Time, err *error) {
	observability.Store().OnStoreOp(ctx, s.backend.Kind(), op, time.Since(start), *err)
}

// IterationName returns name for i == 0 and "name (i)" otherwise.
func IterationName(name string, i int) string {
	if i == 0 {
		return name
	}
	return fmt.Sprintf("%s (%d)", name, i)
}

// notFound is returned by backends for missing names.
func notFound(name string) error {
	return errors.New(errors.ErrCodeNotFound, "dialogue %q not found", name)
}

// storageErr passes coded backend errors through and wraps the rest.
func storageErr(err error, format string, args ...any) error {
	if errors.GetCode(err) != "" {
		return err
	}
	return errors.Wrap(errors.ErrCodeStorage, err, format, args...)
}

package store

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/cyrogem/nodedialogue/pkg/asset"
)

// DefaultDialogueDir is the folder dialogues are saved to when none is
// configured.
const DefaultDialogueDir = "Assets/Dialogue"

// FileStore keeps one Unity .asset file per dialogue in a folder.
type FileStore struct {
	mu         sync.RWMutex
	dir        string
	scriptGUID string
}

// NewFileStore creates the folder if needed. An empty dir uses
// [DefaultDialogueDir]; an empty scriptGUID uses [asset.DefaultScriptGUID].
func NewFileStore(dir, scriptGUID string) (*FileStore, error) {
	if dir == "" {
		dir = DefaultDialogueDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create dialogue dir: %w", err)
	}
	return &FileStore{dir: dir, scriptGUID: scriptGUID}, nil
}

// Dir returns the dialogue folder.
func (s *FileStore) Dir() string { return s.dir }

// Path returns the file a dialogue name is stored in.
func (s *FileStore) Path(name string) string {
	return filepath.Join(s.dir, name+asset.FormatAsset.Ext())
}

func (s *FileStore) Kind() string { return "file" }

func (s *FileStore) Create(ctx context.Context, name string, a *asset.Asset) (bool, error) {
	data, err := encodeUnity(a, s.scriptGUID)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.Path(name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if os.IsExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create asset file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return false, fmt.Errorf("write asset file: %w", err)
	}
	return true, f.Close()
}

func (s *FileStore) Put(ctx context.Context, name string, a *asset.Asset) error {
	data, err := encodeUnity(a, s.scriptGUID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write asset file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write asset file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path(name)); err != nil {
		return fmt.Errorf("replace asset file: %w", err)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, name string) (*asset.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.Path(name))
	if os.IsNotExist(err) {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, fmt.Errorf("read asset file: %w", err)
	}
	return asset.ReadUnity(bytes.NewReader(data))
}

func (s *FileStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read dialogue dir: %w", err)
	}
	ext := asset.FormatAsset.Ext()
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ext {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ext))
	}
	slices.Sort(names)
	return names, nil
}

func (s *FileStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.Path(name))
	if os.IsNotExist(err) {
		return notFound(name)
	}
	if err != nil {
		return fmt.Errorf("remove asset file: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

var _ Backend = (*FileStore)(nil)

// =============================================================================
// Unity blob codec
// =============================================================================

func encodeUnity(a *asset.Asset, scriptGUID string) ([]byte, error) {
	var buf bytes.Buffer
	if err := asset.WriteUnity(&buf, a, scriptGUID); err != nil {
		return nil, fmt.Errorf("encode asset: %w", err)
	}
	return buf.Bytes(), nil
}

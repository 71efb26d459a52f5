package store

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/cyrogem/nodedialogue/pkg/dialogue"
	"github.com/cyrogem/nodedialogue/pkg/errors"
)

func testGraph(t *testing.T, name string) *dialogue.Graph {
	t.Helper()
	g := dialogue.New()
	start := g.Start().ID
	if err := g.SetSpeaker(start, name); err != nil {
		t.Fatal(err)
	}
	n, err := g.AddNode(dialogue.KindDialogue, dialogue.Vec2{X: 300, Y: 50})
	if err != nil {
		t.Fatal(err)
	}
	_ = g.SetSpeaker(n.ID, "Bob")
	_ = g.SetLine(n.ID, "Hi")
	if _, err := g.Connect(dialogue.Out(start, 0), dialogue.In(n.ID)); err != nil {
		t.Fatal(err)
	}
	return g
}

func backends(t *testing.T) map[string]Backend {
	fs, err := NewFileStore(t.TempDir(), "")
	if err != nil {
		t.Fatal(err)
	}
	s3, _ := newTestS3Store(t)
	return map[string]Backend{
		"file":   fs,
		"memory": NewMemoryStore(),
		"redis":  newTestRedisStore(t, DefaultRedisPrefix),
		"s3":     s3,
	}
}

func TestSaveDisambiguates(t *testing.T) {
	ctx := context.Background()
	for kind, b := range backends(t) {
		t.Run(kind, func(t *testing.T) {
			s := New(b)
			defer s.Close()
			g := testGraph(t, "Intro")

			var got []string
			for range 3 {
				name, err := s.Save(ctx, "Intro", g)
				if err != nil {
					t.Fatalf("Save: %v", err)
				}
				got = append(got, name)
			}
			want := []string{"Intro", "Intro (1)", "Intro (2)"}
			if !slices.Equal(got, want) {
				t.Errorf("saved names = %v, want %v", got, want)
			}

			names, err := s.List(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(names, want) {
				t.Errorf("List = %v, want %v", names, want)
			}

			a, err := s.LoadAsset(ctx, "Intro (2)")
			if err != nil {
				t.Fatal(err)
			}
			if a.DialogueName != "Intro" {
				t.Errorf("stored dialogue name = %q, want Intro", a.DialogueName)
			}
		})
	}
}

func TestLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	for kind, b := range backends(t) {
		t.Run(kind, func(t *testing.T) {
			s := New(b)
			if _, err := s.Save(ctx, "Intro", testGraph(t, "Intro")); err != nil {
				t.Fatal(err)
			}
			g, err := s.Load(ctx, "Intro")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if g.NodeCount() != 2 || g.ConnectionCount() != 1 {
				t.Errorf("loaded %d nodes, %d connections", g.NodeCount(), g.ConnectionCount())
			}
			if g.Name() != "Intro" {
				t.Errorf("start speaker = %q", g.Name())
			}
			n := g.NodeAt(1)
			if n.Speaker != "Bob" || n.Line != "Hi" {
				t.Errorf("dialogue node = %q/%q", n.Speaker, n.Line)
			}
		})
	}
}

func TestPutReplaces(t *testing.T) {
	ctx := context.Background()
	for kind, b := range backends(t) {
		t.Run(kind, func(t *testing.T) {
			s := New(b)
			g := testGraph(t, "Intro")
			if err := s.Put(ctx, "Intro", g); err != nil {
				t.Fatal(err)
			}
			_, _ = g.AddNode(dialogue.KindEnd, dialogue.Vec2{})
			if err := s.Put(ctx, "Intro", g); err != nil {
				t.Fatal(err)
			}
			loaded, err := s.Load(ctx, "Intro")
			if err != nil {
				t.Fatal(err)
			}
			if loaded.NodeCount() != 3 {
				t.Errorf("node count = %d, want 3", loaded.NodeCount())
			}
			names, _ := s.List(ctx)
			if len(names) != 1 {
				t.Errorf("Put created extra entries: %v", names)
			}
		})
	}
}

func TestNotFound(t *testing.T) {
	ctx := context.Background()
	for kind, b := range backends(t) {
		t.Run(kind, func(t *testing.T) {
			s := New(b)
			if _, err := s.Load(ctx, "missing"); !errors.Is(err, errors.ErrCodeNotFound) {
				t.Errorf("Load missing: %v", err)
			}
			if err := s.Delete(ctx, "missing"); !errors.Is(err, errors.ErrCodeNotFound) {
				t.Errorf("Delete missing: %v", err)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryStore())
	_, _ = s.Save(ctx, "Intro", testGraph(t, "Intro"))
	if err := s.Delete(ctx, "Intro"); err != nil {
		t.Fatal(err)
	}
	if names, _ := s.List(ctx); len(names) != 0 {
		t.Errorf("List after delete = %v", names)
	}
}

func TestInvalidNames(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryStore())
	g := testGraph(t, "x")
	for _, name := range []string{"", "  ", ".", "..", "../escape", "a/b", "a\\b", strings.Repeat("n", 200)} {
		if _, err := s.Save(ctx, name, g); !errors.Is(err, errors.ErrCodeInvalidName) {
			t.Errorf("Save(%q) err = %v, want INVALID_NAME", name, err)
		}
	}
}

func TestFileStoreLayout(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "Assets", "Dialogue")
	fs, err := NewFileStore(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	s := New(fs)
	if _, err := s.Save(ctx, "Intro", testGraph(t, "Intro")); err != nil {
		t.Fatal(err)
	}
	_, _ = s.Save(ctx, "Intro", testGraph(t, "Intro"))

	for _, f := range []string{"Intro.asset", "Intro (1).asset"} {
		data, err := os.ReadFile(filepath.Join(dir, f))
		if err != nil {
			t.Fatalf("%s: %v", f, err)
		}
		if !strings.HasPrefix(string(data), "%YAML 1.1") {
			t.Errorf("%s lacks the Unity header", f)
		}
	}

	// Stray files are not dialogues.
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644)
	names, _ := s.List(ctx)
	if len(names) != 2 {
		t.Errorf("List = %v", names)
	}
}

func TestSaveDottedNames(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fs, err := NewFileStore(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	s := New(fs)

	tests := []struct {
		name string
		want string
		file string
	}{
		{"Wait...", "Wait...", "Wait....asset"},
		{"Wait...", "Wait... (1)", "Wait... (1).asset"},
		{"To be continued.. later", "To be continued.. later", "To be continued.. later.asset"},
	}
	for _, tt := range tests {
		got, err := s.Save(ctx, tt.name, testGraph(t, tt.name))
		if err != nil {
			t.Fatalf("Save(%q): %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("Save(%q) = %q, want %q", tt.name, got, tt.want)
		}
		if _, err := os.Stat(filepath.Join(dir, tt.file)); err != nil {
			t.Errorf("Save(%q) did not write %s: %v", tt.name, tt.file, err)
		}
	}

	g, err := s.Load(ctx, "Wait...")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if g.Name() != "Wait..." {
		t.Errorf("loaded name = %q", g.Name())
	}
}

func TestCorruptFile(t *testing.T) {
	ctx := context.Background()
	fs, _ := NewFileStore(t.TempDir(), "")
	if err := os.WriteFile(fs.Path("Broken"), []byte("MonoBehaviour:\n  nodeCount: 3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := New(fs).Load(ctx, "Broken")
	if !errors.Is(err, errors.ErrCodeCorruptAsset) {
		t.Errorf("Load corrupt file: %v, want CORRUPT_ASSET", err)
	}
}

func TestIterationName(t *testing.T) {
	tests := []struct {
		i    int
		want string
	}{
		{0, "Autosave"},
		{1, "Autosave (1)"},
		{12, "Autosave (12)"},
	}
	for _, tt := range tests {
		if got := IterationName("Autosave", tt.i); got != tt.want {
			t.Errorf("IterationName(%d) = %q, want %q", tt.i, got, tt.want)
		}
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Config{Backend: BackendFile, Dir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	if s.Backend().Kind() != "file" {
		t.Errorf("kind = %s", s.Backend().Kind())
	}

	if _, err := Open(ctx, Config{Backend: "ftp"}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("unknown backend: %v", err)
	}
	if _, err := Open(ctx, Config{Backend: BackendFile, Dir: "../up"}); !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("traversal dir: %v", err)
	}
}

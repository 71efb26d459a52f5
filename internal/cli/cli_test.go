package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cyrogem/nodedialogue/pkg/asset"
	"github.com/cyrogem/nodedialogue/pkg/errors"
)

// testEnv points config, cache and the file store at temp directories.
func testEnv(t *testing.T) (dir, storeDir string) {
	t.Helper()
	dir = t.TempDir()
	storeDir = filepath.Join(dir, "store")
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("NODEDIALOGUE_STORE", "file")
	t.Setenv("NODEDIALOGUE_DIALOGUE_DIR", storeDir)
	return dir, storeDir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeCommands(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "commands.json")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewApplyConvert(t *testing.T) {
	dir, _ := testEnv(t)
	file := filepath.Join(dir, "intro.asset")

	if _, err := runCLI(t, "new", file, "--name", "Intro"); err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := runCLI(t, "new", file); !errors.Is(err, errors.ErrCodeConflict) {
		t.Errorf("new on existing file: error = %v, want CONFLICT", err)
	}

	cmds := writeCommands(t, dir, `[
		{"op": "add_node", "kind": "dialogue", "vec": {"x": 300, "y": 50}},
		{"op": "click_out", "node": "n0", "output": 0}
	]`)
	if _, err := runCLI(t, "apply", file, cmds); err != nil {
		t.Fatalf("apply: %v", err)
	}
	cmds = writeCommands(t, dir, `{"commands": [
		{"op": "set_line", "node": "n1", "text": "Welcome."},
		{"op": "connect", "node": "n0", "output": 0, "target": "n1"}
	]}`)
	if _, err := runCLI(t, "apply", file, cmds); err != nil {
		t.Fatalf("apply connect: %v", err)
	}

	g, name, err := asset.ReadFile(file)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if name != "Intro" || g.NodeCount() != 2 || g.ConnectionCount() != 1 {
		t.Fatalf("after apply: name=%q nodes=%d conns=%d", name, g.NodeCount(), g.ConnectionCount())
	}
	if g.NodeAt(1).Line != "Welcome." {
		t.Errorf("line = %q", g.NodeAt(1).Line)
	}

	out, err := runCLI(t, "convert", file)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !strings.Contains(out, `"Welcome."`) {
		t.Errorf("convert output missing line:\n%s", out)
	}

	yamlFile := filepath.Join(dir, "intro.yaml")
	if _, err := runCLI(t, "convert", file, yamlFile); err != nil {
		t.Fatalf("convert yaml: %v", err)
	}
	if _, err := runCLI(t, "validate", file, yamlFile); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestApplyFailureLeavesFile(t *testing.T) {
	dir, _ := testEnv(t)
	file := filepath.Join(dir, "intro.json")
	if _, err := runCLI(t, "new", file); err != nil {
		t.Fatal(err)
	}
	before, _ := os.ReadFile(file)

	cmds := writeCommands(t, dir, `[
		{"op": "add_node", "kind": "end", "vec": {"x": 300}},
		{"op": "remove_node", "node": "n0"}
	]`)
	if _, err := runCLI(t, "apply", file, cmds); err == nil {
		t.Fatal("apply removing the start node should fail")
	}
	after, _ := os.ReadFile(file)
	if !bytes.Equal(before, after) {
		t.Error("failed apply rewrote the file")
	}
}

func TestStoreCommands(t *testing.T) {
	dir, storeDir := testEnv(t)
	file := filepath.Join(dir, "intro.asset")
	if _, err := runCLI(t, "new", file, "--name", "Intro"); err != nil {
		t.Fatal(err)
	}

	for range 2 {
		if _, err := runCLI(t, "save-as", file); err != nil {
			t.Fatalf("save-as: %v", err)
		}
	}
	if _, err := os.Stat(filepath.Join(storeDir, "Intro (1).asset")); err != nil {
		t.Errorf("second save should be disambiguated: %v", err)
	}

	out, err := runCLI(t, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := strings.Split(strings.TrimSpace(out), "\n"); len(got) != 2 || got[0] != "Intro" || got[1] != "Intro (1)" {
		t.Errorf("list = %q, want [Intro, Intro (1)]", got)
	}

	loaded := filepath.Join(dir, "loaded.asset")
	if _, err := runCLI(t, "load", "Intro (1)", "-o", loaded); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, _, err := asset.ReadFile(loaded); err != nil {
		t.Errorf("loaded file unreadable: %v", err)
	}

	if _, err := runCLI(t, "load", "Intro", "--current", loaded); err != nil {
		t.Fatalf("load --current: %v", err)
	}
	if _, err := os.Stat(filepath.Join(storeDir, "Autosave.asset")); err != nil {
		t.Errorf("load --current should autosave: %v", err)
	}

	if _, err := runCLI(t, "delete", "Intro (1)"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := runCLI(t, "load", "Intro (1)"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("load after delete: error = %v, want NOT_FOUND", err)
	}
}

func TestRenderDOT(t *testing.T) {
	dir, _ := testEnv(t)
	file := filepath.Join(dir, "intro.asset")
	if _, err := runCLI(t, "new", file, "--name", "Intro"); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "graph.dot")
	if _, err := runCLI(t, "render", file, "-f", "dot", "-o", out, "--no-cache"); err != nil {
		t.Fatalf("render: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "digraph") {
		t.Errorf("render output is not DOT:\n%s", data)
	}

	if _, err := runCLI(t, "render", file, "-f", "gif"); err == nil {
		t.Error("render with an unknown format should fail")
	}
}

func TestCachePath(t *testing.T) {
	dir, _ := testEnv(t)
	out, err := runCLI(t, "cache", "path")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "cache", appName); strings.TrimSpace(out) != want {
		t.Errorf("cache path = %q, want %q", strings.TrimSpace(out), want)
	}
}

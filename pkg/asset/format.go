package asset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cyrogem/nodedialogue/pkg/dialogue"
	"github.com/cyrogem/nodedialogue/pkg/errors"
)

// Format selects a serialization.
type Format string

const (
	// FormatAsset is the engine's legacy .asset layout (Unity YAML).
	FormatAsset Format = "asset"
	// FormatJSON is a [Document] as JSON.
	FormatJSON Format = "json"
	// FormatYAML is a [Document] as YAML.
	FormatYAML Format = "yaml"
)

// Formats lists every supported format.
var Formats = []Format{FormatAsset, FormatJSON, FormatYAML}

// Ext returns the file extension, with dot, used for f.
func (f Format) Ext() string { return "." + string(f) }

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	default:
		return "application/yaml"
	}
}

// ParseFormat converts a format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "asset", "unity":
		return FormatAsset, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unknown format %q (want asset, json or yaml)", s)
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", errors.New(errors.ErrCodeInvalidFormat, "cannot infer format of %q without an extension", path)
	}
	return ParseFormat(ext)
}

// Options tune [Encode].
type Options struct {
	// Name overrides the dialogue name; see [DialogueName].
	Name string
	// ScriptGUID is the script reference written into .asset files.
	ScriptGUID string
}

// =============================================================================
// Encoding API
// =============================================================================

// Encode writes g to w in format f.
func Encode(w io.Writer, g *dialogue.Graph, f Format, opts Options) error {
	switch f {
	case FormatAsset:
		a, err := FromGraph(g, opts.Name)
		if err != nil {
			return err
		}
		return WriteUnity(w, a, opts.ScriptGUID)

	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(DocumentFromGraph(g, opts.Name)); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		return nil

	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(DocumentFromGraph(g, opts.Name)); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		return enc.Close()
	}
	return errors.New(errors.ErrCodeInvalidFormat, "unknown format %q", f)
}

// Decode reads a graph in format f from r and returns it with its stored
// dialogue name.
func Decode(r io.Reader, f Format) (*dialogue.Graph, string, error) {
	switch f {
	case FormatAsset:
		a, err := ReadUnity(r)
		if err != nil {
			return nil, "", err
		}
		g, err := ToGraph(a)
		if err != nil {
			return nil, "", err
		}
		return g, a.DialogueName, nil

	case FormatJSON:
		var doc Document
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, "", errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode json document")
		}
		return documentGraph(&doc)

	case FormatYAML:
		var doc Document
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, "", errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode yaml document")
		}
		return documentGraph(&doc)
	}
	return nil, "", errors.New(errors.ErrCodeInvalidFormat, "unknown format %q", f)
}

func documentGraph(doc *Document) (*dialogue.Graph, string, error) {
	g, err := doc.Graph()
	if err != nil {
		return nil, "", err
	}
	return g, doc.Name, nil
}

// Marshal encodes g into memory.
func Marshal(g *dialogue.Graph, f Format, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, g, f, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a graph from memory.
func Unmarshal(data []byte, f Format) (*dialogue.Graph, string, error) {
	return Decode(bytes.NewReader(data), f)
}

// WriteFile writes g to path, choosing the format from the extension.
func WriteFile(path string, g *dialogue.Graph, opts Options) error {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()
	if err := Encode(file, g, f, opts); err != nil {
		return err
	}
	return file.Close()
}

// ReadFile reads a graph from path, choosing the format from the extension.
func ReadFile(path string) (*dialogue.Graph, string, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, "", err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	return Decode(file, f)
}

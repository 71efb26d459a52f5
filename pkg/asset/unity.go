package asset

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/cyrogem/nodedialogue/pkg/errors"
)

// ScriptClass is the engine-side class that owns the serialized fields.
const ScriptClass = "DialogueSaveData"

// DefaultScriptGUID is written as the MonoBehaviour script reference when no
// GUID is configured. It is derived from [ScriptClass], so it is stable
// across runs; projects should configure the GUID from the script's .meta
// file instead.
var DefaultScriptGUID = strings.ReplaceAll(
	uuid.NewSHA1(uuid.NameSpaceOID, []byte(ScriptClass)).String(), "-", "")

const unityHeader = "%YAML 1.1\n%TAG !u! tag:unity3d.com,2011:\n--- !u!114 &11400000\n"

// Unity file references are written as {fileID: N} flow mappings.
type fileRef struct {
	FileID int64 `yaml:"fileID"`
}

type scriptRef struct {
	FileID int64  `yaml:"fileID"`
	GUID   string `yaml:"guid"`
	Type   int    `yaml:"type"`
}

type unityBehaviour struct {
	ObjectHideFlags           int       `yaml:"m_ObjectHideFlags"`
	CorrespondingSourceObject fileRef   `yaml:"m_CorrespondingSourceObject,flow"`
	PrefabInstance            fileRef   `yaml:"m_PrefabInstance,flow"`
	PrefabAsset               fileRef   `yaml:"m_PrefabAsset,flow"`
	GameObject                fileRef   `yaml:"m_GameObject,flow"`
	Enabled                   int       `yaml:"m_Enabled"`
	EditorHideFlags           int       `yaml:"m_EditorHideFlags"`
	Script                    scriptRef `yaml:"m_Script,flow"`
	Name                      string    `yaml:"m_Name"`
	EditorClassIdentifier     string    `yaml:"m_EditorClassIdentifier"`
	Asset                     `yaml:",inline"`
}

type unityFile struct {
	MonoBehaviour unityBehaviour `yaml:"MonoBehaviour"`
}

// MarshalYAML writes vectors in the engine's {x: 1, y: 2} flow style. The
// node is built by hand: encoding a Go string "y" as a key quotes it, since
// YAML 1.1 reads a bare y as a boolean.
func (v Vector2) MarshalYAML() (any, error) {
	return &yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle, Content: []*yaml.Node{
		{Kind: yaml.ScalarNode, Tag: "!!str", Value: "x"},
		{Kind: yaml.ScalarNode, Value: formatFloat(v.X)},
		{Kind: yaml.ScalarNode, Tag: "!!str", Value: "y"},
		{Kind: yaml.ScalarNode, Value: formatFloat(v.Y)},
	}}, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// WriteUnity writes a as a Unity MonoBehaviour asset. scriptGUID identifies
// the owning script; an empty GUID uses [DefaultScriptGUID].
func WriteUnity(w io.Writer, a *Asset, scriptGUID string) error {
	if scriptGUID == "" {
		scriptGUID = DefaultScriptGUID
	}
	doc := unityFile{MonoBehaviour: unityBehaviour{
		Enabled: 1,
		Script:  scriptRef{FileID: 11500000, GUID: scriptGUID, Type: 3},
		Name:    a.DialogueName,
		Asset:   *a,
	}}

	if _, err := io.WriteString(w, unityHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return enc.Close()
}

// ReadUnity reads an asset written by [WriteUnity] or by the engine. Plain
// YAML without the Unity envelope directives is accepted too.
func ReadUnity(r io.Reader) (*Asset, error) {
	body, err := stripUnityEnvelope(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	var root yaml.Node
	if err := yaml.Unmarshal(body, &root); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode unity asset")
	}
	var doc unityFile
	if root.Kind != 0 {
		blankNullItems(&root)
		if err := root.Decode(&doc); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode unity asset")
		}
	}
	a := doc.MonoBehaviour.Asset
	if a.DialogueName == "" {
		a.DialogueName = doc.MonoBehaviour.Name
	}
	return &a, nil
}

// stringLists are the fields holding one string per item.
var stringLists = map[string]bool{"speakers": true, "lines": true, "optionLines": true}

// blankNullItems rewrites null items of the string lists as empty strings.
// The engine serializes an empty string as a bare "-", and decoding that
// into a []string would drop the item and shift every later index.
func blankNullItems(n *yaml.Node) {
	if n.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			if stringLists[key.Value] && val.Kind == yaml.SequenceNode {
				for _, item := range val.Content {
					if item.Kind == yaml.ScalarNode && item.ShortTag() == "!!null" {
						item.Tag, item.Value, item.Style = "!!str", "", 0
					}
				}
			}
		}
	}
	for _, c := range n.Content {
		blankNullItems(c)
	}
}

// stripUnityEnvelope drops the %YAML/%TAG directives and the "--- !u!"
// document marker, whose custom tag the decoder cannot map onto a struct.
func stripUnityEnvelope(r io.Reader) ([]byte, error) {
	var out bytes.Buffer
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "%") || strings.HasPrefix(line, "--- !u!") {
			continue
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	return out.Bytes(), sc.Err()
}

package dialogue

import (
	"fmt"
	"strings"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Kind tags a node with its role in the dialogue.
type Kind int

const (
	// KindStart is the single entry node. Its speaker text is the dialogue name.
	KindStart Kind = iota
	// KindDialogue is a spoken line with a single continuation.
	KindDialogue
	// KindOption is a spoken line followed by player choices, one output each.
	KindOption
	// KindEnd terminates a branch. Its speaker text is the end flag.
	KindEnd
)

var kindNames = [...]string{"start", "dialogue", "option", "end"}

// String returns the lower-case kind name used in documents and logs.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind converts a kind name back to a Kind. Matching is case-insensitive.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if strings.EqualFold(s, name) {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// HasInput reports whether nodes of this kind accept an incoming link.
func (k Kind) HasInput() bool { return k != KindStart }

// HasOutputs reports whether nodes of this kind can link onwards.
func (k Kind) HasOutputs() bool { return k != KindEnd }

// Size limits and defaults, in canvas units.
const (
	MinNodeWidth  = 100
	MinNodeHeight = 50

	DefaultNodeWidth  = 150
	DefaultNodeHeight = 75
)

// DefaultSize returns the size a freshly created node of kind k gets.
func DefaultSize(k Kind) Vec2 {
	switch k {
	case KindDialogue:
		return Vec2{X: 250, Y: 120}
	case KindOption:
		return Vec2{X: 250, Y: 150}
	default:
		return Vec2{X: DefaultNodeWidth, Y: DefaultNodeHeight}
	}
}

// Vec2 is a 2D canvas coordinate or extent.
type Vec2 struct {
	X float64 `json:"x" yaml:"x" bson:"x"`
	Y float64 `json:"y" yaml:"y" bson:"y"`
}

// Add returns v+o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }

// Rect is a node's placement on the canvas.
type Rect struct {
	X, Y float64 // top-left corner
	W, H float64
}

// Position returns the top-left corner.
func (r Rect) Position() Vec2 { return Vec2{X: r.X, Y: r.Y} }

// Size returns the width and height as a vector.
func (r Rect) Size() Vec2 { return Vec2{X: r.W, Y: r.H} }

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Vec2 { return Vec2{X: r.X + r.W/2, Y: r.Y + r.H/2} }

// Contains reports whether p lies strictly inside the rectangle.
func (r Rect) Contains(p Vec2) bool {
	return p.X > r.X && p.X < r.X+r.W && p.Y > r.Y && p.Y < r.Y+r.H
}

// NodeID identifies a node for the lifetime of a graph. It does not encode
// the node's position; use [Graph.IndexOf] for that.
type NodeID string

const (
	idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	idLength   = 8
)

// NewNodeID returns a fresh random node identifier.
func NewNodeID() NodeID {
	return NodeID("n-" + nanoid.MustGenerate(idAlphabet, idLength))
}

// Node is a single dialogue beat.
//
// Nodes are owned by a [Graph]; mutate them through graph methods so that
// connections stay consistent with option outputs.
type Node struct {
	ID      NodeID
	Kind    Kind
	Speaker string
	Line    string
	Options []string // Option nodes only; one output per entry
	Rect    Rect
}

// OutputCount returns how many output connectors the node exposes.
func (n *Node) OutputCount() int {
	switch n.Kind {
	case KindEnd:
		return 0
	case KindOption:
		return len(n.Options)
	default:
		return 1
	}
}

// Title returns the text shown in a node header, falling back to the
// placeholders the editor uses for empty fields.
func (n *Node) Title() string {
	switch n.Kind {
	case KindStart:
		if n.Speaker == "" {
			return "Dialogue Name"
		}
		return n.Speaker
	case KindEnd:
		if n.Speaker == "" {
			return "End Flag:"
		}
		return n.Speaker
	case KindOption:
		return "Options: " + n.Speaker
	default:
		return "Talking: " + n.Speaker
	}
}

func (n *Node) clone() *Node {
	c := *n
	c.Options = append([]string(nil), n.Options...)
	return &c
}

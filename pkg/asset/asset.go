package asset

import (
	"fmt"

	"github.com/cyrogem/nodedialogue/pkg/dialogue"
	"github.com/cyrogem/nodedialogue/pkg/errors"
)

// UntitledName is used when neither a custom name nor the Start node's text
// names the dialogue.
const UntitledName = "Untitled Dialogue"

// NoTarget marks an output without a link in a [TargetList].
const NoTarget = -1

// =============================================================================
// Asset - Legacy Parallel-Array Layout
// =============================================================================

// Vector2 is a pair of floats as stored by the engine.
type Vector2 struct {
	X float64 `json:"x" yaml:"x" bson:"x"`
	Y float64 `json:"y" yaml:"y" bson:"y"`
}

// TargetList holds one (localOutputIndex, targetNodeIndex) pair per output
// of a node. A target of [NoTarget] means the output is unlinked.
type TargetList struct {
	Target []Vector2 `json:"target" yaml:"target" bson:"target"`
}

// Asset is the engine's serialized dialogue. All slices are indexed by node
// position and have NodeCount entries, except OptionLines, which is a pool
// shared by all Option nodes.
type Asset struct {
	DialogueName string       `json:"dialogueName" yaml:"dialogueName" bson:"dialogueName"`
	NodeCount    int          `json:"nodeCount" yaml:"nodeCount" bson:"nodeCount"`
	Speakers     []string     `json:"speakers" yaml:"speakers" bson:"speakers"`
	Lines        []string     `json:"lines" yaml:"lines" bson:"lines"`
	Type         []float64    `json:"type" yaml:"type" bson:"type"`
	Target       []TargetList `json:"target" yaml:"target" bson:"target"`
	Position     []Vector2    `json:"position" yaml:"position" bson:"position"`
	Dimensions   []Vector2    `json:"dimensions" yaml:"dimensions" bson:"dimensions"`
	OptionLines  []string     `json:"optionLines" yaml:"optionLines" bson:"optionLines"`
}

// DialogueName picks the name a graph is saved under: custom if set,
// otherwise the Start node's text, otherwise [UntitledName].
func DialogueName(g *dialogue.Graph, custom string) string {
	if custom != "" {
		return custom
	}
	if name := g.Name(); name != "" {
		return name
	}
	return UntitledName
}

// =============================================================================
// Graph → Asset
// =============================================================================

// FromGraph flattens g into the parallel-array layout. name overrides the
// dialogue name (see [DialogueName]).
//
// Start and Dialogue nodes write one target pair, End nodes write the single
// pair (0, -1), and Option nodes write one pair per option. Option strings are
// appended to the pool and their offset is packed into the type code.
func FromGraph(g *dialogue.Graph, name string) (*Asset, error) {
	n := g.NodeCount()
	a := &Asset{
		DialogueName: DialogueName(g, name),
		NodeCount:    n,
		Speakers:     make([]string, 0, n),
		Lines:        make([]string, 0, n),
		Type:         make([]float64, 0, n),
		Target:       make([]TargetList, 0, n),
		Position:     make([]Vector2, 0, n),
		Dimensions:   make([]Vector2, 0, n),
		OptionLines:  []string{},
	}

	for _, node := range g.Nodes() {
		a.Speakers = append(a.Speakers, node.Speaker)
		a.Lines = append(a.Lines, node.Line)
		a.Position = append(a.Position, Vector2{X: node.Rect.X, Y: node.Rect.Y})
		a.Dimensions = append(a.Dimensions, Vector2{X: node.Rect.W, Y: node.Rect.H})

		switch node.Kind {
		case dialogue.KindEnd:
			a.Type = append(a.Type, CodeEnd)
			a.Target = append(a.Target, TargetList{Target: []Vector2{{X: 0, Y: NoTarget}}})

		case dialogue.KindOption:
			code, err := EncodeTypeCode(len(node.Options), len(a.OptionLines))
			if err != nil {
				return nil, fmt.Errorf("node %s: %w", node.ID, err)
			}
			a.Type = append(a.Type, code)
			a.OptionLines = append(a.OptionLines, node.Options...)
			a.Target = append(a.Target, targetsOf(g, node))

		default:
			a.Type = append(a.Type, CodeOf(node.Kind))
			a.Target = append(a.Target, targetsOf(g, node))
		}
	}
	return a, nil
}

func targetsOf(g *dialogue.Graph, n *dialogue.Node) TargetList {
	list := TargetList{Target: make([]Vector2, n.OutputCount())}
	for j := range list.Target {
		list.Target[j] = Vector2{X: float64(j), Y: NoTarget}
		if to, ok := g.Target(n.ID, j); ok {
			list.Target[j].Y = float64(g.IndexOf(to))
		}
	}
	return list
}

// =============================================================================
// Asset → Graph
// =============================================================================

// IndexID returns the node ID assigned to position i on decode.
func IndexID(i int) dialogue.NodeID {
	return dialogue.NodeID(fmt.Sprintf("n%d", i))
}

// Validate checks that the parallel arrays agree in length.
func (a *Asset) Validate() error {
	if a.NodeCount < 0 {
		return errors.New(errors.ErrCodeCorruptAsset, "negative node count %d", a.NodeCount)
	}
	lengths := []struct {
		field string
		n     int
	}{
		{"speakers", len(a.Speakers)},
		{"lines", len(a.Lines)},
		{"type", len(a.Type)},
		{"target", len(a.Target)},
		{"position", len(a.Position)},
		{"dimensions", len(a.Dimensions)},
	}
	for _, l := range lengths {
		if l.n != a.NodeCount {
			return errors.New(errors.ErrCodeCorruptAsset,
				"%s has %d entries, node count is %d", l.field, l.n, a.NodeCount)
		}
	}
	return nil
}

// ToGraph rebuilds a graph from a. All nodes are created first, then the
// target lists are replayed as connections by index. Speaker text is
// restored for every kind; line text for Dialogue and Option nodes only.
func ToGraph(a *Asset) (*dialogue.Graph, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}

	nodes := make([]dialogue.Node, a.NodeCount)
	for i := range nodes {
		kind, err := KindOf(a.Type[i])
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeCorruptAsset, err, "node %d", i)
		}
		n := dialogue.Node{
			ID:      IndexID(i),
			Kind:    kind,
			Speaker: a.Speakers[i],
			Rect: dialogue.Rect{
				X: a.Position[i].X, Y: a.Position[i].Y,
				W: a.Dimensions[i].X, H: a.Dimensions[i].Y,
			},
		}
		if kind == dialogue.KindDialogue || kind == dialogue.KindOption {
			n.Line = a.Lines[i]
		}
		if kind == dialogue.KindOption {
			count, offset := DecodeTypeCode(a.Type[i])
			if offset+count > len(a.OptionLines) {
				return nil, errors.New(errors.ErrCodeCorruptAsset,
					"node %d: options [%d, %d) outside pool of %d", i, offset, offset+count, len(a.OptionLines))
			}
			n.Options = append([]string{}, a.OptionLines[offset:offset+count]...)
		}
		nodes[i] = n
	}

	g, err := dialogue.Build(nodes)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCorruptAsset, err, "rebuild nodes")
	}

	links := 0
	linkedFrom := make(map[int]int)
	for i, list := range a.Target {
		for j, t := range list.Target {
			if t.Y < 0 {
				continue
			}
			links++
			out, to := int(t.X), int(t.Y)
			if float64(out) != t.X || float64(to) != t.Y {
				return nil, errors.New(errors.ErrCodeCorruptAsset, "node %d target %d: non-integer pair (%v, %v)", i, j, t.X, t.Y)
			}
			if to >= a.NodeCount {
				return nil, errors.New(errors.ErrCodeCorruptAsset,
					"node %d target %d: node index %d out of range [0, %d)", i, j, to, a.NodeCount)
			}
			if from, ok := linkedFrom[to]; ok {
				return nil, errors.New(errors.ErrCodeCorruptAsset,
					"node %d target %d: node %d is already linked from node %d; an input connector accepts one connection",
					i, j, to, from)
			}
			linkedFrom[to] = i
			if _, err := g.Connect(dialogue.Out(IndexID(i), out), dialogue.In(IndexID(to))); err != nil {
				return nil, errors.Wrap(errors.ErrCodeCorruptAsset, err, "node %d target %d", i, j)
			}
		}
	}
	if g.ConnectionCount() != links {
		return nil, errors.New(errors.ErrCodeCorruptAsset,
			"%d links share connectors, only %d survive", links, g.ConnectionCount())
	}
	return g, nil
}

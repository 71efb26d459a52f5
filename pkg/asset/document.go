package asset

import (
	"github.com/cyrogem/nodedialogue/pkg/dialogue"
	"github.com/cyrogem/nodedialogue/pkg/errors"
)

// DocumentVersion is written into every [Document].
const DocumentVersion = 1

// =============================================================================
// Document - Explicit Per-Node Records
// =============================================================================

// Document is the explicit serialization of a dialogue graph: one record per
// node carrying its kind, its option lines and one target per output. Unlike
// [Asset] it needs no packed type codes.
//
// Node positions in Nodes are the indices used by targets.
type Document struct {
	Version int            `json:"version" yaml:"version" bson:"version"`
	Name    string         `json:"name" yaml:"name" bson:"name"`
	Nodes   []DocumentNode `json:"nodes" yaml:"nodes" bson:"nodes"`
}

// DocumentNode is a single node record.
type DocumentNode struct {
	Kind     dialogue.Kind `json:"kind" yaml:"kind" bson:"kind"`
	Speaker  string        `json:"speaker,omitempty" yaml:"speaker,omitempty" bson:"speaker,omitempty"`
	Line     string        `json:"line,omitempty" yaml:"line,omitempty" bson:"line,omitempty"`
	Options  []string      `json:"options,omitempty" yaml:"options,omitempty" bson:"options,omitempty"`
	Targets  []int         `json:"targets,omitempty" yaml:"targets,omitempty" bson:"targets,omitempty"` // one per output, -1 when unlinked
	Position Vector2       `json:"position" yaml:"position" bson:"position"`
	Size     Vector2       `json:"size" yaml:"size" bson:"size"`
}

// DocumentFromGraph converts g to a [Document]. name follows the same rules
// as [FromGraph].
func DocumentFromGraph(g *dialogue.Graph, name string) *Document {
	doc := &Document{
		Version: DocumentVersion,
		Name:    DialogueName(g, name),
		Nodes:   make([]DocumentNode, 0, g.NodeCount()),
	}
	for _, n := range g.Nodes() {
		rec := DocumentNode{
			Kind:     n.Kind,
			Speaker:  n.Speaker,
			Line:     n.Line,
			Options:  append([]string(nil), n.Options...),
			Position: Vector2{X: n.Rect.X, Y: n.Rect.Y},
			Size:     Vector2{X: n.Rect.W, Y: n.Rect.H},
		}
		if outs := n.OutputCount(); outs > 0 {
			rec.Targets = make([]int, outs)
			for j := range rec.Targets {
				rec.Targets[j] = NoTarget
				if to, ok := g.Target(n.ID, j); ok {
					rec.Targets[j] = g.IndexOf(to)
				}
			}
		}
		doc.Nodes = append(doc.Nodes, rec)
	}
	return doc
}

// Graph rebuilds the dialogue graph described by d. Node IDs are assigned
// with [IndexID].
func (d *Document) Graph() (*dialogue.Graph, error) {
	if d.Version > DocumentVersion {
		return nil, errors.New(errors.ErrCodeUnsupported, "document version %d is newer than %d", d.Version, DocumentVersion)
	}

	nodes := make([]dialogue.Node, len(d.Nodes))
	for i, rec := range d.Nodes {
		if rec.Kind != dialogue.KindOption && len(rec.Options) > 0 {
			return nil, errors.New(errors.ErrCodeCorruptAsset, "node %d: %s node has options", i, rec.Kind)
		}
		nodes[i] = dialogue.Node{
			ID:      IndexID(i),
			Kind:    rec.Kind,
			Speaker: rec.Speaker,
			Line:    rec.Line,
			Options: rec.Options,
			Rect: dialogue.Rect{
				X: rec.Position.X, Y: rec.Position.Y,
				W: rec.Size.X, H: rec.Size.Y,
			},
		}
	}

	g, err := dialogue.Build(nodes)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCorruptAsset, err, "rebuild nodes")
	}

	links := 0
	for i, rec := range d.Nodes {
		n := g.NodeAt(i)
		if len(rec.Targets) > n.OutputCount() {
			return nil, errors.New(errors.ErrCodeCorruptAsset,
				"node %d: %d targets for %d outputs", i, len(rec.Targets), n.OutputCount())
		}
		for j, to := range rec.Targets {
			if to < 0 {
				continue
			}
			if to >= len(d.Nodes) {
				return nil, errors.New(errors.ErrCodeCorruptAsset,
					"node %d target %d: node index %d out of range [0, %d)", i, j, to, len(d.Nodes))
			}
			links++
			if _, err := g.Connect(dialogue.Out(n.ID, j), dialogue.In(IndexID(to))); err != nil {
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

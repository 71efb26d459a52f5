package dialogue

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

var (
	// ErrNodeNotFound is returned when an operation names a node that is not
	// part of the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrStartNotRemovable is returned by [Graph.RemoveNode] for the Start node.
	// Every graph keeps exactly one Start node for its whole lifetime.
	ErrStartNotRemovable = errors.New("start node cannot be removed")

	// ErrDuplicateStart is returned when a second Start node would be added.
	ErrDuplicateStart = errors.New("graph already has a start node")

	// ErrMissingStart is returned by [Build] and [Graph.Validate] when no
	// Start node is present.
	ErrMissingStart = errors.New("graph has no start node")

	// ErrDuplicateNodeID is returned by [Build] when two nodes share an ID.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownKind is returned for kind values or names outside the four
	// node kinds.
	ErrUnknownKind = errors.New("unknown node kind")

	// ErrSelfConnection is returned when a connection would join two
	// connectors of the same node.
	ErrSelfConnection = errors.New("cannot connect a node to itself")

	// ErrWrongDirection is returned when an input connector is passed where an
	// output is expected, or the reverse.
	ErrWrongDirection = errors.New("connector has the wrong direction")

	// ErrNoInput is returned when a connection targets a Start node.
	ErrNoInput = errors.New("node has no input connector")

	// ErrOutputOutOfRange is returned when an output index does not exist on
	// the node, including any output on an End node.
	ErrOutputOutOfRange = errors.New("output index out of range")

	// ErrNotOptionNode is returned by option edits on non-Option nodes.
	ErrNotOptionNode = errors.New("not an option node")

	// ErrOptionOutOfRange is returned when an option index does not exist.
	ErrOptionOutOfRange = errors.New("option index out of range")

	// ErrConnectorInUse is returned by [Graph.Validate] when a connector takes
	// part in more than one connection.
	ErrConnectorInUse = errors.New("connector has more than one connection")
)

// Direction distinguishes input connectors from output connectors.
type Direction int

const (
	DirIn Direction = iota
	DirOut
)

func (d Direction) String() string {
	if d == DirIn {
		return "in"
	}
	return "out"
}

// Connector is an attachment point on a node. Index selects the output for
// Out connectors and is always 0 for In connectors.
type Connector struct {
	Node  NodeID
	Dir   Direction
	Index int
}

// In returns the input connector of node id.
func In(id NodeID) Connector { return Connector{Node: id, Dir: DirIn} }

// Out returns output connector i of node id.
func Out(id NodeID, i int) Connector { return Connector{Node: id, Dir: DirOut, Index: i} }

func (c Connector) String() string {
	if c.Dir == DirIn {
		return fmt.Sprintf("%s.in", c.Node)
	}
	return fmt.Sprintf("%s.out[%d]", c.Node, c.Index)
}

// Connection links output From.Output to the input of To.
type Connection struct {
	From   NodeID `json:"from"`
	Output int    `json:"output"`
	To     NodeID `json:"to"`
}

// OutConnector returns the output side of the connection.
func (c Connection) OutConnector() Connector { return Out(c.From, c.Output) }

// InConnector returns the input side of the connection.
func (c Connection) InConnector() Connector { return In(c.To) }

// ConnectResult reports what [Graph.Connect] did.
type ConnectResult int

const (
	// Created means a new connection was added and nothing was displaced.
	Created ConnectResult = iota
	// Replaced means a new connection was added after removing the previous
	// connection of the output, the input, or both.
	Replaced
	// Removed means the output was already linked to the same input and the
	// link was toggled off.
	Removed
)

// MarshalText implements encoding.TextMarshaler.
func (r ConnectResult) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *ConnectResult) UnmarshalText(b []byte) error {
	switch string(b) {
	case "created":
		*r = Created
	case "replaced":
		*r = Replaced
	case "removed":
		*r = Removed
	default:
		return fmt.Errorf("unknown connect result %q", b)
	}
	return nil
}

func (r ConnectResult) String() string {
	switch r {
	case Created:
		return "created"
	case Replaced:
		return "replaced"
	default:
		return "removed"
	}
}

// DefaultStartPosition is where [New] places the Start node.
var DefaultStartPosition = Vec2{X: 50, Y: 50}

// Graph is a dialogue tree under edit.
//
// Nodes keep their insertion order, which is also their index in the
// serialized asset. The zero value is not usable; use [New] or [Build].
type Graph struct {
	nodes []*Node
	index map[NodeID]*Node
	conns []Connection
	start NodeID
}

// New creates a graph holding only a Start node at [DefaultStartPosition].
func New() *Graph {
	size := DefaultSize(KindStart)
	start := &Node{
		ID:   NewNodeID(),
		Kind: KindStart,
		Rect: Rect{X: DefaultStartPosition.X, Y: DefaultStartPosition.Y, W: size.X, H: size.Y},
	}
	return &Graph{
		nodes: []*Node{start},
		index: map[NodeID]*Node{start.ID: start},
		start: start.ID,
	}
}

// Build restores a graph from nodes in the given order, without connections.
// Nodes with an empty ID get a fresh one. Exactly one node must be a Start
// node. Sizes below the minimum are clamped. The nodes are copied.
func Build(nodes []Node) (*Graph, error) {
	g := &Graph{index: make(map[NodeID]*Node, len(nodes))}
	for i := range nodes {
		n := nodes[i].clone()
		if n.Kind < KindStart || n.Kind > KindEnd {
			return nil, fmt.Errorf("node %d: %w: %d", i, ErrUnknownKind, int(n.Kind))
		}
		if n.ID == "" {
			n.ID = NewNodeID()
		}
		if _, exists := g.index[n.ID]; exists {
			return nil, fmt.Errorf("node %d: %w: %s", i, ErrDuplicateNodeID, n.ID)
		}
		if n.Kind == KindStart {
			if g.start != "" {
				return nil, fmt.Errorf("node %d: %w", i, ErrDuplicateStart)
			}
			g.start = n.ID
		}
		if n.Kind != KindOption {
			n.Options = nil
		}
		clampSize(&n.Rect)
		g.nodes = append(g.nodes, n)
		g.index[n.ID] = n
	}
	if g.start == "" {
		return nil, ErrMissingStart
	}
	return g, nil
}

// Clone returns a deep copy of the graph. Node IDs are preserved.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		nodes: make([]*Node, len(g.nodes)),
		index: make(map[NodeID]*Node, len(g.nodes)),
		conns: slices.Clone(g.conns),
		start: g.start,
	}
	for i, n := range g.nodes {
		cp := n.clone()
		c.nodes[i] = cp
		c.index[cp.ID] = cp
	}
	return c
}

// Start returns the Start node. It is never nil for a graph built by [New]
// or [Build].
func (g *Graph) Start() *Node { return g.index[g.start] }

// Name returns the dialogue name carried by the Start node's speaker text.
func (g *Graph) Name() string { return g.Start().Speaker }

// Nodes returns the nodes in index order. The slice is a copy but the
// pointers refer to the graph's nodes.
func (g *Graph) Nodes() []*Node { return slices.Clone(g.nodes) }

// NodeCount returns the number of nodes, Start included.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// Node returns the node with the given ID.
func (g *Graph) Node(id NodeID) (*Node, bool) {
	n, ok := g.index[id]
	return n, ok
}

// NodeAt returns the node at position i, or nil when i is out of range.
func (g *Graph) NodeAt(i int) *Node {
	if i < 0 || i >= len(g.nodes) {
		return nil
	}
	return g.nodes[i]
}

// IndexOf returns the position of node id, or -1 if it is not in the graph.
func (g *Graph) IndexOf(id NodeID) int {
	return slices.IndexFunc(g.nodes, func(n *Node) bool { return n.ID == id })
}

// Connections returns a copy of all connections in creation order.
func (g *Graph) Connections() []Connection { return slices.Clone(g.conns) }

// ConnectionCount returns the number of live connections.
func (g *Graph) ConnectionCount() int { return len(g.conns) }

// Target returns the node linked from output i of node id.
func (g *Graph) Target(id NodeID, i int) (NodeID, bool) {
	for _, c := range g.conns {
		if c.From == id && c.Output == i {
			return c.To, true
		}
	}
	return "", false
}

// Outputs returns the connections leaving node id, ordered by output index.
func (g *Graph) Outputs(id NodeID) []Connection {
	var out []Connection
	for _, c := range g.conns {
		if c.From == id {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b Connection) int { return a.Output - b.Output })
	return out
}

// Incoming returns the connection that enters node id, if any.
func (g *Graph) Incoming(id NodeID) (Connection, bool) {
	for _, c := range g.conns {
		if c.To == id {
			return c, true
		}
	}
	return Connection{}, false
}

// LinkedNode returns the node on the other end of connector c.
func (g *Graph) LinkedNode(c Connector) (*Node, bool) {
	if c.Dir == DirOut {
		to, ok := g.Target(c.Node, c.Index)
		if !ok {
			return nil, false
		}
		return g.Node(to)
	}
	conn, ok := g.Incoming(c.Node)
	if !ok {
		return nil, false
	}
	return g.Node(conn.From)
}

// AddNode appends a node of the given kind at pos with the kind's default
// size. Option nodes start without options. Start nodes cannot be added.
func (g *Graph) AddNode(kind Kind, pos Vec2) (*Node, error) {
	switch kind {
	case KindStart:
		return nil, ErrDuplicateStart
	case KindDialogue, KindOption, KindEnd:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}
	size := DefaultSize(kind)
	n := &Node{
		ID:   NewNodeID(),
		Kind: kind,
		Rect: Rect{X: pos.X, Y: pos.Y, W: size.X, H: size.Y},
	}
	g.nodes = append(g.nodes, n)
	g.index[n.ID] = n
	return n, nil
}

// RemoveNode deletes a node and every connection touching its connectors.
// It returns the removed connections.
func (g *Graph) RemoveNode(id NodeID) ([]Connection, error) {
	if _, ok := g.index[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if id == g.start {
		return nil, ErrStartNotRemovable
	}
	var removed []Connection
	g.conns = slices.DeleteFunc(g.conns, func(c Connection) bool {
		if c.From == id || c.To == id {
			removed = append(removed, c)
			return true
		}
		return false
	})
	g.nodes = slices.DeleteFunc(g.nodes, func(n *Node) bool { return n.ID == id })
	delete(g.index, id)
	return removed, nil
}

// Connect links output connector out to input connector in.
//
// If out is already linked to in, the link is removed and [Removed] is
// returned. Otherwise any existing link of out, and any existing link into
// in, is dropped before the new connection is added.
func (g *Graph) Connect(out, in Connector) (ConnectResult, error) {
	if out.Dir != DirOut || in.Dir != DirIn {
		return 0, ErrWrongDirection
	}
	from, ok := g.index[out.Node]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNodeNotFound, out.Node)
	}
	to, ok := g.index[in.Node]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNodeNotFound, in.Node)
	}
	if from.ID == to.ID {
		return 0, ErrSelfConnection
	}
	if out.Index < 0 || out.Index >= from.OutputCount() {
		return 0, fmt.Errorf("%w: %s", ErrOutputOutOfRange, out)
	}
	if !to.Kind.HasInput() {
		return 0, fmt.Errorf("%w: %s", ErrNoInput, to.ID)
	}

	result := Created
	for i, c := range g.conns {
		if c.From == from.ID && c.Output == out.Index {
			g.conns = slices.Delete(g.conns, i, i+1)
			if c.To == to.ID {
				return Removed, nil
			}
			result = Replaced
			break
		}
	}
	if i := slices.IndexFunc(g.conns, func(c Connection) bool { return c.To == to.ID }); i >= 0 {
		g.conns = slices.Delete(g.conns, i, i+1)
		result = Replaced
	}

	g.conns = append(g.conns, Connection{From: from.ID, Output: out.Index, To: to.ID})
	return result, nil
}

// Disconnect removes the connection attached to c, if any, and reports
// whether one was removed. c may be either an input or an output.
func (g *Graph) Disconnect(c Connector) bool {
	before := len(g.conns)
	g.conns = slices.DeleteFunc(g.conns, func(conn Connection) bool {
		if c.Dir == DirOut {
			return conn.From == c.Node && conn.Output == c.Index
		}
		return conn.To == c.Node
	})
	return len(g.conns) != before
}

// SetSpeaker replaces the speaker text. On Start nodes this is the dialogue
// name; on End nodes it is the end flag.
func (g *Graph) SetSpeaker(id NodeID, s string) error {
	n, err := g.mustNode(id)
	if err != nil {
		return err
	}
	n.Speaker = s
	return nil
}

// SetLine replaces the spoken line.
func (g *Graph) SetLine(id NodeID, s string) error {
	n, err := g.mustNode(id)
	if err != nil {
		return err
	}
	n.Line = s
	return nil
}

// AddOption appends an option line, and with it a new output, to an Option
// node. It returns the index of the new option.
func (g *Graph) AddOption(id NodeID, text string) (int, error) {
	n, err := g.optionNode(id)
	if err != nil {
		return 0, err
	}
	n.Options = append(n.Options, text)
	return len(n.Options) - 1, nil
}

// SetOption replaces the text of option i.
func (g *Graph) SetOption(id NodeID, i int, text string) error {
	n, err := g.optionNode(id)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(n.Options) {
		return fmt.Errorf("%w: %d", ErrOptionOutOfRange, i)
	}
	n.Options[i] = text
	return nil
}

// RemoveOption deletes option i and its output. The output's connection is
// dropped and connections of later outputs shift down by one.
func (g *Graph) RemoveOption(id NodeID, i int) error {
	n, err := g.optionNode(id)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(n.Options) {
		return fmt.Errorf("%w: %d", ErrOptionOutOfRange, i)
	}
	n.Options = slices.Delete(n.Options, i, i+1)
	g.conns = slices.DeleteFunc(g.conns, func(c Connection) bool { return c.From == id && c.Output == i })
	for k := range g.conns {
		if g.conns[k].From == id && g.conns[k].Output > i {
			g.conns[k].Output--
		}
	}
	return nil
}

// Move shifts a node by delta.
func (g *Graph) Move(id NodeID, delta Vec2) error {
	n, err := g.mustNode(id)
	if err != nil {
		return err
	}
	n.Rect.X += delta.X
	n.Rect.Y += delta.Y
	return nil
}

// Resize grows or shrinks a node by delta, never below
// [MinNodeWidth] x [MinNodeHeight].
func (g *Graph) Resize(id NodeID, delta Vec2) error {
	n, err := g.mustNode(id)
	if err != nil {
		return err
	}
	n.Rect.W += delta.X
	n.Rect.H += delta.Y
	clampSize(&n.Rect)
	return nil
}

// Pan shifts every node by delta, moving the whole canvas.
func (g *Graph) Pan(delta Vec2) {
	for _, n := range g.nodes {
		n.Rect.X += delta.X
		n.Rect.Y += delta.Y
	}
}

// CenterOn pans the canvas so the Start node sits in the middle of a
// viewport of the given size. It returns the applied delta.
func (g *Graph) CenterOn(viewport Vec2) Vec2 {
	s := g.Start().Rect
	delta := Vec2{
		X: viewport.X/2 - s.W/2 - s.X,
		Y: viewport.Y/2 - s.H/2 - s.Y,
	}
	g.Pan(delta)
	return delta
}

// Validate checks the structural invariants: exactly one Start node, every
// connection between existing distinct nodes on existing connectors, and no
// connector used twice.
func (g *Graph) Validate() error {
	starts := 0
	for _, n := range g.nodes {
		if n.Kind == KindStart {
			starts++
		}
	}
	switch {
	case starts == 0:
		return ErrMissingStart
	case starts > 1:
		return ErrDuplicateStart
	}

	outs := make(map[Connector]bool, len(g.conns))
	ins := make(map[NodeID]bool, len(g.conns))
	for _, c := range g.conns {
		from, okF := g.index[c.From]
		to, okT := g.index[c.To]
		if !okF || !okT {
			return fmt.Errorf("%w: %s -> %s", ErrNodeNotFound, c.From, c.To)
		}
		if c.From == c.To {
			return fmt.Errorf("%w: %s", ErrSelfConnection, c.From)
		}
		if c.Output < 0 || c.Output >= from.OutputCount() {
			return fmt.Errorf("%w: %s", ErrOutputOutOfRange, c.OutConnector())
		}
		if !to.Kind.HasInput() {
			return fmt.Errorf("%w: %s", ErrNoInput, c.To)
		}
		if outs[c.OutConnector()] {
			return fmt.Errorf("%w: %s", ErrConnectorInUse, c.OutConnector())
		}
		if ins[c.To] {
			return fmt.Errorf("%w: %s", ErrConnectorInUse, c.InConnector())
		}
		outs[c.OutConnector()] = true
		ins[c.To] = true
	}
	return nil
}

func (g *Graph) mustNode(id NodeID) (*Node, error) {
	n, ok := g.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return n, nil
}

func (g *Graph) optionNode(id NodeID) (*Node, error) {
	n, err := g.mustNode(id)
	if err != nil {
		return nil, err
	}
	if n.Kind != KindOption {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotOptionNode, id, n.Kind)
	}
	return n, nil
}

func clampSize(r *Rect) {
	r.W = math.Max(r.W, MinNodeWidth)
	r.H = math.Max(r.H, MinNodeHeight)
}

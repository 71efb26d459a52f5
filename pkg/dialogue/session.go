package dialogue

import "fmt"

// Session owns a graph under edit together with the pending connector
// selection of the click-in / click-out protocol.
//
// Clicking an input and then an output (or the reverse) on different nodes
// connects them and clears the selection. Clicking both sides of the same
// node only clears the selection.
type Session struct {
	graph      *Graph
	pendingIn  *Connector
	pendingOut *Connector
}

// NewSession returns a session editing g. A nil g starts a fresh graph.
func NewSession(g *Graph) *Session {
	if g == nil {
		g = New()
	}
	return &Session{graph: g}
}

// Graph returns the graph being edited.
func (s *Session) Graph() *Graph { return s.graph }

// Replace swaps in a new graph wholesale and clears the selection.
func (s *Session) Replace(g *Graph) {
	s.graph = g
	s.ClearSelection()
}

// Selection returns the pending input and output connectors. Either may be
// nil.
func (s *Session) Selection() (in, out *Connector) {
	return s.pendingIn, s.pendingOut
}

// ClearSelection drops both pending connectors.
func (s *Session) ClearSelection() {
	s.pendingIn = nil
	s.pendingOut = nil
}

// Apply runs a single command against the graph.
func (s *Session) Apply(cmd Command) (Result, error) {
	g := s.graph
	res := Result{Op: cmd.Op}

	switch cmd.Op {
	case OpAddNode:
		n, err := g.AddNode(cmd.Kind, cmd.Vec)
		if err != nil {
			return res, err
		}
		res.Node = n.ID

	case OpRemoveNode:
		removed, err := g.RemoveNode(cmd.Node)
		if err != nil {
			return res, err
		}
		res.Removed = removed
		s.dropSelection(cmd.Node)

	case OpClickIn:
		return s.clickIn(cmd.Node)

	case OpClickOut:
		return s.clickOut(cmd.Node, cmd.Output)

	case OpClearSelection:
		s.ClearSelection()

	case OpConnect:
		before := g.Connections()
		r, err := g.Connect(Out(cmd.Node, cmd.Output), In(cmd.Target))
		if err != nil {
			return res, err
		}
		res.Connected, res.Connect = true, r
		res.Removed = dropped(before, g.conns)

	case OpDisconnect:
		out := Out(cmd.Node, cmd.Output)
		to, ok := g.Target(cmd.Node, cmd.Output)
		if !ok {
			if _, exists := g.Node(cmd.Node); !exists {
				return res, fmt.Errorf("%w: %s", ErrNodeNotFound, cmd.Node)
			}
			return res, nil
		}
		g.Disconnect(out)
		res.Removed = []Connection{{From: cmd.Node, Output: cmd.Output, To: to}}

	case OpMove:
		return res, g.Move(cmd.Node, cmd.Vec)

	case OpResize:
		return res, g.Resize(cmd.Node, cmd.Vec)

	case OpPan:
		g.Pan(cmd.Vec)

	case OpCenterView:
		g.CenterOn(cmd.Vec)

	case OpSetSpeaker:
		return res, g.SetSpeaker(cmd.Node, cmd.Text)

	case OpSetLine:
		return res, g.SetLine(cmd.Node, cmd.Text)

	case OpAddOption:
		i, err := g.AddOption(cmd.Node, cmd.Text)
		if err != nil {
			return res, err
		}
		res.Option = i

	case OpSetOption:
		return res, g.SetOption(cmd.Node, cmd.Index, cmd.Text)

	case OpRemoveOption:
		before := g.Connections()
		if err := g.RemoveOption(cmd.Node, cmd.Index); err != nil {
			return res, err
		}
		if out := s.pendingOut; out != nil && out.Node == cmd.Node {
			s.pendingOut = nil
		}
		for _, c := range before {
			if c.From == cmd.Node && c.Output == cmd.Index {
				res.Removed = append(res.Removed, c)
			}
		}

	default:
		return res, fmt.Errorf("%w: %q", ErrUnknownOp, cmd.Op)
	}
	return res, nil
}

// ApplyAll runs commands in order and stops at the first failure. The
// returned results cover the commands that succeeded.
func (s *Session) ApplyAll(cmds []Command) ([]Result, error) {
	results := make([]Result, 0, len(cmds))
	for i, cmd := range cmds {
		r, err := s.Apply(cmd)
		if err != nil {
			return results, fmt.Errorf("command %d (%s): %w", i, cmd, err)
		}
		results = append(results, r)
	}
	return results, nil
}

func (s *Session) clickIn(id NodeID) (Result, error) {
	res := Result{Op: OpClickIn}
	n, err := s.graph.mustNode(id)
	if err != nil {
		return res, err
	}
	if !n.Kind.HasInput() {
		return res, fmt.Errorf("%w: %s", ErrNoInput, id)
	}
	in := In(id)
	s.pendingIn = &in
	if s.pendingOut == nil {
		return res, nil
	}
	return s.complete(res)
}

func (s *Session) clickOut(id NodeID, i int) (Result, error) {
	res := Result{Op: OpClickOut}
	n, err := s.graph.mustNode(id)
	if err != nil {
		return res, err
	}
	if i < 0 || i >= n.OutputCount() {
		return res, fmt.Errorf("%w: %s", ErrOutputOutOfRange, Out(id, i))
	}
	out := Out(id, i)
	s.pendingOut = &out
	if s.pendingIn == nil {
		return res, nil
	}
	return s.complete(res)
}

// complete finishes a click pair. Both connectors are pending.
func (s *Session) complete(res Result) (Result, error) {
	in, out := *s.pendingIn, *s.pendingOut
	s.ClearSelection()
	if in.Node == out.Node {
		return res, nil
	}
	before := s.graph.Connections()
	r, err := s.graph.Connect(out, in)
	if err != nil {
		return res, err
	}
	res.Connected, res.Connect = true, r
	res.Removed = dropped(before, s.graph.conns)
	return res, nil
}

func (s *Session) dropSelection(id NodeID) {
	if s.pendingIn != nil && s.pendingIn.Node == id {
		s.pendingIn = nil
	}
	if s.pendingOut != nil && s.pendingOut.Node == id {
		s.pendingOut = nil
	}
}

// dropped returns the connections in before that are missing from after.
func dropped(before, after []Connection) []Connection {
	live := make(map[Connection]bool, len(after))
	for _, c := range after {
		live[c] = true
	}
	var out []Connection
	for _, c := range before {
		if !live[c] {
			out = append(out, c)
		}
	}
	return out
}

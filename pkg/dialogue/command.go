package dialogue

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Op names a graph edit carried by a [Command].
type Op string

const (
	OpAddNode        Op = "add_node"
	OpRemoveNode     Op = "remove_node"
	OpClickIn        Op = "click_in"
	OpClickOut       Op = "click_out"
	OpClearSelection Op = "clear_selection"
	OpConnect        Op = "connect"
	OpDisconnect     Op = "disconnect"
	OpMove           Op = "move"
	OpResize         Op = "resize"
	OpPan            Op = "pan"
	OpCenterView     Op = "center_view"
	OpSetSpeaker     Op = "set_speaker"
	OpSetLine        Op = "set_line"
	OpAddOption      Op = "add_option"
	OpSetOption      Op = "set_option"
	OpRemoveOption   Op = "remove_option"
)

var knownOps = map[Op]bool{
	OpAddNode: true, OpRemoveNode: true, OpClickIn: true, OpClickOut: true,
	OpClearSelection: true, OpConnect: true, OpDisconnect: true, OpMove: true,
	OpResize: true, OpPan: true, OpCenterView: true, OpSetSpeaker: true,
	OpSetLine: true, OpAddOption: true, OpSetOption: true, OpRemoveOption: true,
}

// Command is a single edit request. Only the fields relevant to Op are read.
//
// Commands travel as JSON objects with an "op" discriminator, for example
//
//	{"op": "connect", "node": "n0", "output": 0, "target": "n1"}
type Command struct {
	Op     Op     `json:"op" validate:"required"`
	Kind   Kind   `json:"kind,omitempty"`
	Node   NodeID `json:"node,omitempty"`
	Output int    `json:"output,omitempty" validate:"gte=0"`
	Target NodeID `json:"target,omitempty"`
	Index  int    `json:"index,omitempty" validate:"gte=0"`
	Text   string `json:"text,omitempty"`
	Vec    Vec2   `json:"vec"`
}

// ErrUnknownOp is returned for commands whose Op is not recognized.
var ErrUnknownOp = errors.New("unknown command")

// AddNodeCmd creates a node of kind k at pos.
func AddNodeCmd(k Kind, pos Vec2) Command { return Command{Op: OpAddNode, Kind: k, Vec: pos} }

// RemoveNodeCmd removes node id and its connections.
func RemoveNodeCmd(id NodeID) Command { return Command{Op: OpRemoveNode, Node: id} }

// ClickInCmd selects the input connector of node id.
func ClickInCmd(id NodeID) Command { return Command{Op: OpClickIn, Node: id} }

// ClickOutCmd selects output i of node id.
func ClickOutCmd(id NodeID, i int) Command { return Command{Op: OpClickOut, Node: id, Output: i} }

// ClearSelectionCmd drops any pending connector selection.
func ClearSelectionCmd() Command { return Command{Op: OpClearSelection} }

// ConnectCmd links output i of from to the input of to.
func ConnectCmd(from NodeID, i int, to NodeID) Command {
	return Command{Op: OpConnect, Node: from, Output: i, Target: to}
}

// DisconnectCmd removes the link on output i of node id.
func DisconnectCmd(id NodeID, i int) Command { return Command{Op: OpDisconnect, Node: id, Output: i} }

// MoveCmd drags node id by delta.
func MoveCmd(id NodeID, delta Vec2) Command { return Command{Op: OpMove, Node: id, Vec: delta} }

// ResizeCmd resizes node id by delta.
func ResizeCmd(id NodeID, delta Vec2) Command { return Command{Op: OpResize, Node: id, Vec: delta} }

// PanCmd moves the whole canvas by delta.
func PanCmd(delta Vec2) Command { return Command{Op: OpPan, Vec: delta} }

// CenterViewCmd centres the Start node in a viewport of the given size.
func CenterViewCmd(viewport Vec2) Command { return Command{Op: OpCenterView, Vec: viewport} }

// SetSpeakerCmd replaces the speaker text of node id.
func SetSpeakerCmd(id NodeID, s string) Command { return Command{Op: OpSetSpeaker, Node: id, Text: s} }

// SetLineCmd replaces the line text of node id.
func SetLineCmd(id NodeID, s string) Command { return Command{Op: OpSetLine, Node: id, Text: s} }

// AddOptionCmd appends an option to Option node id.
func AddOptionCmd(id NodeID, text string) Command {
	return Command{Op: OpAddOption, Node: id, Text: text}
}

// SetOptionCmd replaces option i of node id.
func SetOptionCmd(id NodeID, i int, text string) Command {
	return Command{Op: OpSetOption, Node: id, Index: i, Text: text}
}

// RemoveOptionCmd deletes option i of node id.
func RemoveOptionCmd(id NodeID, i int) Command {
	return Command{Op: OpRemoveOption, Node: id, Index: i}
}

// UnmarshalJSON rejects unknown ops at decode time so batches fail before
// any command runs.
func (c *Command) UnmarshalJSON(b []byte) error {
	type raw Command
	var r raw
	if err := json.Unmarshal(b, &r); err != nil {
		return err
	}
	if !knownOps[r.Op] {
		return fmt.Errorf("%w: %q", ErrUnknownOp, r.Op)
	}
	*c = Command(r)
	return nil
}

func (c Command) String() string {
	switch c.Op {
	case OpAddNode:
		return fmt.Sprintf("%s %s at (%g, %g)", c.Op, c.Kind, c.Vec.X, c.Vec.Y)
	case OpConnect:
		return fmt.Sprintf("%s %s -> %s", c.Op, Out(c.Node, c.Output), In(c.Target))
	case OpClickOut, OpDisconnect:
		return fmt.Sprintf("%s %s", c.Op, Out(c.Node, c.Output))
	case OpPan, OpCenterView:
		return fmt.Sprintf("%s (%g, %g)", c.Op, c.Vec.X, c.Vec.Y)
	case OpClearSelection:
		return string(c.Op)
	default:
		return fmt.Sprintf("%s %s", c.Op, c.Node)
	}
}

// Result describes the effect of an applied command.
type Result struct {
	Op Op `json:"op"`

	// Node is the node created by add_node.
	Node NodeID `json:"node,omitempty"`

	// Option is the index of the option created by add_option.
	Option int `json:"option,omitempty"`

	// Connected is set when the command ran [Graph.Connect]; Connect then
	// holds its outcome.
	Connected bool          `json:"connected,omitempty"`
	Connect   ConnectResult `json:"connect,omitempty"`

	// Removed lists connections dropped as a side effect.
	Removed []Connection `json:"removed,omitempty"`
}

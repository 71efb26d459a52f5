// Package dialogue provides the branching dialogue graph edited by nodedialogue.
//
// # Overview
//
// A dialogue is a directed graph of beats. Every graph has exactly one
// [KindStart] node, created by [New] and never removable, plus any number of
// [KindDialogue], [KindOption] and [KindEnd] nodes. Nodes expose connectors:
//
//   - Start: one output, no input
//   - Dialogue: one input, one output
//   - Option: one input, one output per option line
//   - End: one input, no outputs
//
// A [Connection] joins one output connector to one input connector on a
// different node. Each connector takes part in at most one connection.
//
// # Basic Usage
//
//	g := dialogue.New()
//	bob, _ := g.AddNode(dialogue.KindDialogue, dialogue.Vec2{X: 300, Y: 100})
//	g.SetSpeaker(bob.ID, "Bob")
//	g.SetLine(bob.ID, "Hi")
//	g.Connect(dialogue.Out(g.Start().ID, 0), dialogue.In(bob.ID))
//
// # Reconnecting
//
// [Graph.Connect] follows the editor's replace-on-reconnect rule. Connecting
// an output to the input it is already linked to removes the link (toggle).
// Connecting it elsewhere replaces the old link. An input that is already
// linked from another output is released first.
//
// # Commands
//
// Interactive hosts do not call graph methods from input callbacks. They build
// [Command] values and hand them to [Session.Apply], which also tracks the
// pending connector selection of the click-in / click-out protocol.
//
// # Concurrency
//
// Graph and Session are not safe for concurrent use without external
// synchronization.
package dialogue

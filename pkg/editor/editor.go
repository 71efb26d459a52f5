// Package editor ties an editing session to a dialogue store.
//
// An [Editor] owns one [dialogue.Session] and saves and loads it through a
// [store.Store]. Saving picks the dialogue name from the custom name, the
// Start node's text or "Untitled Dialogue", in that order, and never
// overwrites: collisions are stored as "Name (1)", "Name (2)" and so on.
// Loading first autosaves the current graph as "Autosave", then replaces the
// graph wholesale and clears any pending connector selection.
//
// An Editor is not safe for concurrent use.
package editor

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/cyrogem/nodedialogue/pkg/asset"
	"github.com/cyrogem/nodedialogue/pkg/dialogue"
	"github.com/cyrogem/nodedialogue/pkg/observability"
	"github.com/cyrogem/nodedialogue/pkg/store"
)

// AutosaveName is the dialogue name [Editor.Load] saves the current graph
// under before replacing it.
const AutosaveName = "Autosave"

// Editor is an editing session bound to a store.
type Editor struct {
	Store  *store.Store
	Logger *log.Logger

	session *dialogue.Session
	current string
}

// New creates an editor over a fresh graph. A nil logger uses log.Default().
func New(s *store.Store, logger *log.Logger) *Editor {
	if logger == nil {
		logger = log.Default()
	}
	return &Editor{
		Store:   s,
		Logger:  logger,
		session: dialogue.NewSession(nil),
	}
}

// Session returns the editing session.
func (e *Editor) Session() *dialogue.Session { return e.session }

// Graph returns the graph being edited.
func (e *Editor) Graph() *dialogue.Graph { return e.session.Graph() }

// Current returns the stored name last saved or loaded, or "".
func (e *Editor) Current() string { return e.current }

// Reset replaces the graph with a new one holding only a Start node.
func (e *Editor) Reset() {
	e.session.Replace(dialogue.New())
	e.current = ""
}

// Apply applies one command to the session.
func (e *Editor) Apply(ctx context.Context, cmd dialogue.Command) (dialogue.Result, error) {
	res, err := e.session.Apply(cmd)
	observability.Editor().OnCommand(ctx, string(cmd.Op), err)
	if err != nil {
		e.Logger.Debug("command rejected", "command", cmd, "error", err)
		return res, err
	}
	e.Logger.Debug("applied command", "command", cmd)
	return res, nil
}

// ApplyAll applies cmds in order and stops at the first error.
func (e *Editor) ApplyAll(ctx context.Context, cmds []dialogue.Command) ([]dialogue.Result, error) {
	results := make([]dialogue.Result, 0, len(cmds))
	for i, cmd := range cmds {
		res, err := e.Apply(ctx, cmd)
		if err != nil {
			return results, fmt.Errorf("command %d (%s): %w", i, cmd, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// Save stores the graph and returns the name it was stored under. See
// [asset.DialogueName] for how customName is used.
func (e *Editor) Save(ctx context.Context, customName string) (string, error) {
	start := time.Now()
	g := e.Graph()
	name := asset.DialogueName(g, customName)

	saved, err := e.Store.Save(ctx, name, g)
	observability.Editor().OnSave(ctx, name, g.NodeCount(), time.Since(start), err)
	if err != nil {
		return "", err
	}
	e.current = saved
	e.Logger.Info("saved dialogue", "name", saved, "nodes", g.NodeCount(),
		"connections", g.ConnectionCount())
	return saved, nil
}

// Load autosaves the current graph and replaces it with the one stored under
// name. An empty name does nothing. If the stored dialogue cannot be read
// the current graph is kept.
func (e *Editor) Load(ctx context.Context, name string) error {
	if name == "" {
		return nil
	}
	start := time.Now()

	autosaved, err := e.Save(ctx, AutosaveName)
	if err != nil {
		return err
	}
	e.Logger.Debug("autosaved before load", "name", autosaved)

	g, err := e.Store.Load(ctx, name)
	if err != nil {
		observability.Editor().OnLoad(ctx, name, 0, time.Since(start), err)
		return err
	}
	e.session.Replace(g)
	e.current = name
	observability.Editor().OnLoad(ctx, name, g.NodeCount(), time.Since(start), nil)
	e.Logger.Info("loaded dialogue", "name", name, "nodes", g.NodeCount(),
		"connections", g.ConnectionCount())
	return nil
}

// Open replaces the graph without autosaving, for starting an editor on an
// existing dialogue.
func (e *Editor) Open(g *dialogue.Graph, name string) {
	e.session.Replace(g)
	e.current = name
}

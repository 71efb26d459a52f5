package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/cyrogem/nodedialogue/pkg/asset"
	"github.com/cyrogem/nodedialogue/pkg/dialogue"
	"github.com/cyrogem/nodedialogue/pkg/editor"
	"github.com/cyrogem/nodedialogue/pkg/errors"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	pendingStyle      = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
)

const (
	// nodeStep is how far H/J/K/L move the selected node.
	nodeStep = 20
	// newNodeOffset places new nodes to the right of the selected one.
	newNodeOffset = 250
)

// viewport is the canvas size "center view" recentres the Start node in.
var viewport = dialogue.Vec2{X: 1280, Y: 720}

// inputMode selects what the prompt line edits.
type inputMode int

const (
	modeNormal inputMode = iota
	modeSpeaker
	modeLine
	modeOption
	modeSaveName
	modeLoadName
)

var promptLabels = map[inputMode]string{
	modeSpeaker:  "Speaker",
	modeLine:     "Line",
	modeOption:   "New option",
	modeSaveName: "Save as (empty: derive from Start)",
	modeLoadName: "Load",
}

// =============================================================================
// EditorModel - Interactive dialogue editing
// =============================================================================

// EditorModel is the bubbletea model for the terminal dialogue editor. Every
// edit goes through [editor.Editor.Apply] as a [dialogue.Command].
type EditorModel struct {
	ctx  context.Context
	ed   *editor.Editor
	path string // file written by "w"; may be empty
	opts asset.Options

	Cursor int
	Offset int
	Height int

	mode   inputMode
	input  string
	status string
	failed bool
	dirty  bool
}

// NewEditorModel creates an editor model. path is the file "w" writes to.
func NewEditorModel(ctx context.Context, ed *editor.Editor, path string, opts asset.Options) EditorModel {
	return EditorModel{ctx: ctx, ed: ed, path: path, opts: opts, Height: 15}
}

func (m EditorModel) Init() tea.Cmd {
	return nil
}

func (m EditorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.mode != modeNormal {
			return m.updatePrompt(msg), nil
		}
		return m.updateNormal(msg)
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-12, 5)
	}
	return m, nil
}

func (m EditorModel) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	g := m.ed.Graph()
	sel := g.NodeAt(m.Cursor)
	m.status, m.failed = "", false

	switch key := msg.String(); key {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "down", "j":
		if m.Cursor < g.NodeCount()-1 {
			m.Cursor++
		}
	case "a", "o", "e":
		kind := map[string]dialogue.Kind{"a": dialogue.KindDialogue, "o": dialogue.KindOption, "e": dialogue.KindEnd}[key]
		pos := sel.Rect.Position().Add(dialogue.Vec2{X: newNodeOffset})
		if res, ok := m.apply(dialogue.AddNodeCmd(kind, pos)); ok {
			m.Cursor = g.IndexOf(res.Node)
			m.status = "Added " + kind.String() + " node"
		}
	case "x", "delete":
		if res, ok := m.apply(dialogue.RemoveNodeCmd(sel.ID)); ok {
			m.Cursor = min(m.Cursor, g.NodeCount()-1)
			m.status = fmt.Sprintf("Removed node and %d connections", len(res.Removed))
		}
	case "i":
		if res, ok := m.apply(dialogue.ClickInCmd(sel.ID)); ok {
			m.status = connectStatus(res, "input selected, pick an output")
		}
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		n, _ := strconv.Atoi(key)
		if res, ok := m.apply(dialogue.ClickOutCmd(sel.ID, n-1)); ok {
			m.status = connectStatus(res, "output selected, pick an input")
		}
	case "d":
		if res, ok := m.apply(dialogue.DisconnectCmd(sel.ID, 0)); ok && len(res.Removed) > 0 {
			m.status = "Disconnected output 1"
		}
	case "esc":
		m.apply(dialogue.ClearSelectionCmd())
	case "H", "J", "K", "L":
		delta := map[string]dialogue.Vec2{
			"H": {X: -nodeStep}, "L": {X: nodeStep},
			"K": {Y: -nodeStep}, "J": {Y: nodeStep},
		}[key]
		m.apply(dialogue.MoveCmd(sel.ID, delta))
	case "c":
		m.apply(dialogue.CenterViewCmd(viewport))
		m.status = "Centered on Start"
	case "t":
		m.mode, m.input = modeSpeaker, sel.Speaker
	case "l":
		if sel.Kind == dialogue.KindDialogue || sel.Kind == dialogue.KindOption {
			m.mode, m.input = modeLine, sel.Line
		}
	case "+":
		if sel.Kind == dialogue.KindOption {
			m.mode, m.input = modeOption, ""
		}
	case "-":
		if sel.Kind == dialogue.KindOption && len(sel.Options) > 0 {
			if _, ok := m.apply(dialogue.RemoveOptionCmd(sel.ID, len(sel.Options)-1)); ok {
				m.status = "Removed last option"
			}
		}
	case "w":
		m.writeFile()
	case "S":
		m.mode, m.input = modeSaveName, m.ed.Current()
	case "O":
		m.mode, m.input = modeLoadName, ""
	}

	m.scroll()
	return m, nil
}

// updatePrompt edits the prompt line; enter commits and esc cancels.
func (m EditorModel) updatePrompt(msg tea.KeyMsg) EditorModel {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode, m.input = modeNormal, ""
		return m
	case tea.KeyEnter:
		mode, text := m.mode, m.input
		m.mode, m.input = modeNormal, ""
		m.commit(mode, text)
		return m
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.input += " "
	case tea.KeyRunes:
		m.input += string(msg.Runes)
	}
	return m
}

func (m *EditorModel) commit(mode inputMode, text string) {
	sel := m.ed.Graph().NodeAt(m.Cursor)
	switch mode {
	case modeSpeaker:
		m.apply(dialogue.SetSpeakerCmd(sel.ID, text))
	case modeLine:
		m.apply(dialogue.SetLineCmd(sel.ID, text))
	case modeOption:
		m.apply(dialogue.AddOptionCmd(sel.ID, text))
	case modeSaveName:
		if m.ed.Store == nil {
			m.fail(errors.New(errors.ErrCodeUnsupported, "no dialogue store configured"))
			return
		}
		saved, err := m.ed.Save(m.ctx, text)
		if err != nil {
			m.fail(err)
			return
		}
		m.status = "Saved as " + saved
	case modeLoadName:
		if m.ed.Store == nil {
			m.fail(errors.New(errors.ErrCodeUnsupported, "no dialogue store configured"))
			return
		}
		if err := m.ed.Load(m.ctx, text); err != nil {
			m.fail(err)
			return
		}
		if text != "" {
			m.Cursor, m.Offset, m.dirty = 0, 0, false
			m.status = "Loaded " + text + " (previous graph autosaved)"
		}
	}
}

func (m *EditorModel) apply(cmd dialogue.Command) (dialogue.Result, bool) {
	res, err := m.ed.Apply(m.ctx, cmd)
	if err != nil {
		m.fail(err)
		return res, false
	}
	if cmd.Op != dialogue.OpClickIn && cmd.Op != dialogue.OpClickOut && cmd.Op != dialogue.OpClearSelection {
		m.dirty = true
	}
	return res, true
}

func (m *EditorModel) writeFile() {
	if m.path == "" {
		m.fail(errors.New(errors.ErrCodeInvalidInput, "no file to write; use S to save to the store"))
		return
	}
	if err := asset.WriteFile(m.path, m.ed.Graph(), m.opts); err != nil {
		m.fail(err)
		return
	}
	m.dirty = false
	m.status = "Wrote " + m.path
}

func (m *EditorModel) fail(err error) {
	m.status, m.failed = errors.UserMessage(err), true
}

func (m *EditorModel) scroll() {
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

func connectStatus(res dialogue.Result, pending string) string {
	if !res.Connected {
		return pending
	}
	return "Connection " + res.Connect.String()
}

func (m EditorModel) View() string {
	g := m.ed.Graph()
	var b strings.Builder

	title := asset.DialogueName(g, "")
	if cur := m.ed.Current(); cur != "" {
		title += listDimStyle.Render("  (" + cur + ")")
	}
	if m.dirty {
		title += StyleWarning.Render(" *")
	}
	b.WriteString(StyleTitle.Render("Dialogue ") + title)
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ select  a/o/e add  x delete  i in  1-9 out  d unlink  t/l/+/- text  HJKL move  c center  w write  S save  O load  q quit"))
	b.WriteString("\n\n")

	in, out := m.ed.Session().Selection()
	end := min(m.Offset+m.Height, g.NodeCount())
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		n := g.NodeAt(i)
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{
			cursor,
			strconv.Itoa(i),
			n.Kind.String(),
			n.Title(),
			nodeText(n),
			outputsText(g, n),
			pendingMark(n.ID, in, out),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "#", "Kind", "Title", "Text", "Links", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			switch {
			case col == 6:
				return pendingStyle
			case idx == m.Cursor:
				return listSelectedStyle
			case col == 2:
				return kindStyle(g.NodeAt(idx).Kind)
			}
			return lipgloss.NewStyle()
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d] %d connections", m.Cursor+1, g.NodeCount(), g.ConnectionCount())))
	b.WriteString("\n")

	switch {
	case m.mode != modeNormal:
		b.WriteString(StyleHighlight.Render(promptLabels[m.mode]+": ") + m.input + "█")
	case m.failed:
		b.WriteString(styleIconError.Render(iconError) + " " + m.status)
	case m.status != "":
		b.WriteString(styleIconInfo.Render(iconInfo) + " " + m.status)
	}
	return b.String()
}

// pendingMark flags the node holding the pending input or output selection.
func pendingMark(id dialogue.NodeID, in, out *dialogue.Connector) string {
	switch {
	case in != nil && in.Node == id:
		return "in"
	case out != nil && out.Node == id:
		return fmt.Sprintf("out %d", out.Index+1)
	}
	return ""
}

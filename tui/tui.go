package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nathoo/goapcore/cli"
	"github.com/nathoo/goapcore/engine"
	"github.com/nathoo/goapcore/engine/events"
	"github.com/nathoo/goapcore/engine/save"
	"github.com/nathoo/goapcore/engine/state"
	"github.com/nathoo/goapcore/types"
)

// rawLine stores an unstyled output line with its classification,
// so we can re-wrap and re-style when the terminal is resized.
type rawLine struct {
	text     string
	kind     lineKind
	isInput  bool // echoed user input
	isSystem bool // meta-command output
}

// Model is the Bubble Tea model for the GOAPCore TUI.
type Model struct {
	ctx    context.Context
	engine *engine.Engine
	defs   *state.Defs

	viewport viewport.Model
	input    textinput.Model
	history  *History

	rawLines []rawLine // accumulated output (unstyled, for re-wrapping)

	width    int
	height   int
	ready    bool
	quitting bool
	lastCmd  string
	saveDir  string

	changes <-chan []string
	reload  func() (*engine.Engine, error)
}

// outputMsg carries output from the engine into the Update loop.
type outputMsg struct {
	input    string   // echoed user input (empty for the banner)
	lines    []string // output lines
	isSystem bool     // true for meta-command output
}

// domainChangedMsg reports edited domain files.
type domainChangedMsg struct {
	files []string
}

// New creates a TUI model wired to the given engine.
func New(ctx context.Context, eng *engine.Engine, saveDir string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	if saveDir == "" {
		home, _ := os.UserHomeDir()
		saveDir = filepath.Join(home, ".goapcore", "saves")
	}
	return Model{
		ctx:     ctx,
		engine:  eng,
		defs:    eng.Defs,
		input:   ti,
		history: NewHistory(100),
		saveDir: saveDir,
	}
}

// WithReload makes the model rebuild its engine with reload whenever changes
// delivers a batch of edited files.
func (m Model) WithReload(changes <-chan []string, reload func() (*engine.Engine, error)) Model {
	m.changes = changes
	m.reload = reload
	return m
}

// Run starts the Bubble Tea program. It returns when the user quits or ctx
// is canceled.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init returns the initial command that prints the banner and the world.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.initialOutput(), m.waitForChange())
}

// waitForChange blocks on the watcher until the next batch of edits.
func (m Model) waitForChange() tea.Cmd {
	if m.changes == nil || m.reload == nil {
		return nil
	}
	changes := m.changes
	return func() tea.Msg {
		files, ok := <-changes
		if !ok {
			return nil
		}
		return domainChangedMsg{files: files}
	}
}

// applyReload swaps in a freshly loaded engine that carries the session.
// A domain that fails to load keeps the old engine.
func (m Model) applyReload(files []string) Model {
	eng, err := m.reload()
	if err == nil {
		var unknown []types.Fact
		unknown, err = eng.Inherit(m.engine)
		if err == nil {
			m.engine = eng
			m.defs = eng.Defs
			lines := []string{"Domain reloaded: " + strings.Join(files, ", ")}
			for _, f := range unknown {
				lines = append(lines, fmt.Sprintf("Dropped fact %s.", f))
			}
			return m.appendOutput(outputMsg{lines: lines, isSystem: true})
		}
	}
	return m.appendOutput(outputMsg{
		lines: []string{fmt.Sprintf("Reload failed: %v", err)}, isSystem: true,
	})
}

func (m Model) initialOutput() tea.Cmd {
	return func() tea.Msg {
		lines := []string{cli.Banner(m.defs)}
		if m.defs.Domain.Description != "" {
			lines = append(lines, m.defs.Domain.Description)
		}
		lines = append(lines, "")

		result := m.engine.Step(m.ctx, "facts")
		lines = append(lines, result.Output...)

		return outputMsg{lines: lines}
	}
}

// Update handles messages (key presses, window resize, engine output).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		vpHeight := max(m.height-2, 1) // 1 status bar + 1 input line

		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.KeyMap = viewportKeyMap()
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}

		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			return m.handleEnter()

		case "up":
			if prev, ok := m.history.Prev(); ok {
				m.input.SetValue(prev)
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if next, ok := m.history.Next(); ok {
				m.input.SetValue(next)
				m.input.CursorEnd()
			} else {
				m.input.SetValue("")
			}
			return m, nil

		case "pgup", "pgdown":
			var vpCmd tea.Cmd
			m.viewport, vpCmd = m.viewport.Update(msg)
			return m, vpCmd
		}

	case outputMsg:
		m = m.appendOutput(msg)

	case domainChangedMsg:
		m = m.applyReload(msg.files)
		return m, m.waitForChange()
	}

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	return m, inputCmd
}

// handleEnter processes the submitted input line.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")

	if input == "" {
		return m, nil
	}

	m.history.Push(input)
	m.history.ResetCursor()

	// Handle "again" / "g".
	lower := strings.ToLower(input)
	if lower == "again" || lower == "g" {
		if m.lastCmd == "" {
			m = m.appendOutput(outputMsg{
				input: input, lines: []string{"Nothing to repeat."}, isSystem: true,
			})
			return m, nil
		}
		input = m.lastCmd
	} else if !strings.HasPrefix(input, "/") {
		m.lastCmd = input
	}

	// Meta-commands.
	if strings.HasPrefix(input, "/") {
		output, quit := m.handleMeta(input)
		m = m.appendOutput(outputMsg{input: input, lines: output, isSystem: true})
		if quit {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	// Planning command.
	result := m.engine.Step(m.ctx, input)
	output := append(result.Output, events.FormatAll(result.Trace)...)
	m = m.appendOutput(outputMsg{input: input, lines: output})
	return m, nil
}

// appendOutput adds lines to the transcript and refreshes the viewport.
func (m Model) appendOutput(msg outputMsg) Model {
	if msg.input != "" {
		m.rawLines = append(m.rawLines, rawLine{text: msg.input, isInput: true})
	}

	for _, line := range msg.lines {
		rl := rawLine{text: line, isSystem: msg.isSystem}
		if !msg.isSystem {
			rl.kind = classifyLine(line)
		}
		m.rawLines = append(m.rawLines, rl)
	}

	// Blank line separator between commands.
	m.rawLines = append(m.rawLines, rawLine{})

	m.refreshViewport()

	return m
}

// refreshViewport re-wraps and re-styles all raw lines at the current width
// and updates the viewport content.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	width := max(m.width, 10)

	styled := make([]string, 0, len(m.rawLines))
	for _, rl := range m.rawLines {
		if rl.text == "" {
			styled = append(styled, "")
			continue
		}

		switch {
		case rl.isInput:
			styled = append(styled, styledUserInput(wordWrap(rl.text, width-2)))
		case rl.isSystem:
			styled = append(styled, styledSystemMsg(wordWrap(rl.text, width-2)))
		case rl.kind == kindPlan:
			// Plans keep their indentation; wrapping happens at " -> ".
			styled = append(styled, styledPlan(wrapPlan(rl.text, width)))
		default:
			styled = append(styled, renderLineKind(wordWrap(rl.text, width), rl.kind))
		}
	}

	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// renderLineKind applies the style for a given lineKind.
func renderLineKind(line string, kind lineKind) string {
	switch kind {
	case kindHeading:
		return styleHeading.Render(line)
	case kindFactTrue:
		return styleFactTrue.Render(line)
	case kindFactFalse:
		return styleFactFalse.Render(line)
	case kindSystem:
		return styleSystem.Render(line)
	case kindError:
		return styleError.Render(line)
	case kindTrace:
		return styleTrace.Render(line)
	default:
		return stylePlain.Render(line)
	}
}

// wordWrap wraps text to fit within the given width, breaking at word
// boundaries. Leading indentation of the first line is kept.
func wordWrap(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	indent := text[:len(text)-len(strings.TrimLeft(text, " "))]

	var result strings.Builder
	result.WriteString(indent)
	lineLen := len(indent)

	for i, word := range strings.Fields(text) {
		switch {
		case i == 0:
			result.WriteString(word)
			lineLen += len(word)
		case lineLen+1+len(word) > width:
			result.WriteString("\n")
			result.WriteString(word)
			lineLen = len(word)
		default:
			result.WriteString(" ")
			result.WriteString(word)
			lineLen += 1 + len(word)
		}
	}

	return result.String()
}

// wrapPlan wraps a plan line between steps so a behavior name is never split
// from its arrow.
func wrapPlan(line string, width int) string {
	if len(line) <= width {
		return line
	}
	steps := strings.Split(line, " -> ")
	var b strings.Builder
	lineLen := 0
	for i, s := range steps {
		piece := s
		if i > 0 {
			piece = "-> " + s
			if lineLen+1+len(piece) > width {
				b.WriteString("\n     ")
				lineLen = 5
			} else {
				b.WriteString(" ")
				lineLen++
			}
		}
		b.WriteString(piece)
		lineLen += len(piece)
	}
	return b.String()
}

// View renders the full TUI layout: viewport + status bar + input.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	return m.viewport.View() + "\n" + m.renderStatusBar() + "\n" + m.input.View()
}

// handleMeta dispatches meta-commands. Returns output lines and quit flag.
func (m *Model) handleMeta(input string) ([]string, bool) {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		return []string{"Goodbye."}, true

	case "/save":
		return m.cmdSave(arg), false

	case "/load":
		return m.cmdLoad(arg), false

	case "/help":
		return m.cmdHelp(), false

	case "/state":
		return m.cmdState(), false

	case "/trace":
		m.engine.SetTrace(!m.engine.Trace())
		if m.engine.Trace() {
			return []string{"Trace output enabled."}, false
		}
		return []string{"Trace output disabled."}, false

	default:
		return []string{fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd)}, false
	}
}

func (m *Model) cmdSave(name string) []string {
	if name == "" {
		name = "quicksave"
	}

	data, err := m.engine.Snapshot()
	if err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}

	if err := os.MkdirAll(m.saveDir, 0o755); err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}

	path := filepath.Join(m.saveDir, name+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}

	return []string{fmt.Sprintf("World saved to %s.", name)}
}

func (m *Model) cmdLoad(name string) []string {
	if name == "" {
		name = "quicksave"
	}

	path := filepath.Join(m.saveDir, name+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}

	sd, err := save.Load(data)
	if err != nil {
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}

	unknown, err := m.engine.Restore(sd)
	if err != nil {
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}
	m.history.Replace(sd.CommandLog)

	output := []string{fmt.Sprintf("World loaded from %s (%d commands).", name, len(sd.CommandLog))}
	for _, f := range unknown {
		output = append(output, fmt.Sprintf("Skipped unknown fact %s.", f))
	}
	return output
}

func (m *Model) cmdHelp() []string {
	help := []string{
		"System:",
		"  /save [name]  Save the world (default: quicksave)",
		"  /load [name]  Load a saved world (default: quicksave)",
		"  /quit         Exit",
		"  /help         Show this help",
		"  /state        Debug: dump the session",
		"  /trace        Toggle plan search trace output",
		"",
	}
	help = append(help, engine.HelpLines()...)
	return append(help, "", "Navigation: PgUp/PgDn to scroll, Up/Down for command history")
}

func (m *Model) cmdState() []string {
	goal := string(m.engine.Goal())
	if goal == "" {
		goal = "(none)"
	}
	return []string{
		fmt.Sprintf("Domain: %s", m.defs.Domain.Name),
		fmt.Sprintf("Goal: %s", goal),
		fmt.Sprintf("True facts: %v", state.TrueFacts(m.engine.World())),
		fmt.Sprintf("Commands: %d", len(m.engine.CommandLog())),
		fmt.Sprintf("Trace: %t", m.engine.Trace()),
	}
}

// viewportKeyMap returns a viewport keymap with Up/Down disabled
// (we use those for input history).
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}

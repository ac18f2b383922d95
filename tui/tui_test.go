package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nathoo/goapcore/config"
	"github.com/nathoo/goapcore/engine"
	"github.com/nathoo/goapcore/loader"
)

func TestFactDisplayName(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"fed", "Fed"},
		{"have_item", "Have Item"},
		{"get_money_through_work", "Get Money Through Work"},
		{"am_alive", "Am Alive"},
	}
	for _, tt := range tests {
		got := factDisplayName(tt.id)
		if got != tt.want {
			t.Errorf("factDisplayName(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		line string
		want lineKind
	}{
		{"Found 3 plan(s) for have_item:", kindHeading},
		{"buy_item is blocked by:", kindHeading},
		{"Planning commands:", kindHeading},
		{"  1. steal_item", kindPlan},
		{"  12. get_job -> buy_item", kindPlan},
		{"  [x] at_location  Standing where the item is sold.", kindFactTrue},
		{"  [ ] have_item", kindFactFalse},
		{"[World saved to test.]", kindSystem},
		{"[trace] Events: 8 (seed 2, expand 3, complete 3, drop 0)", kindTrace},
		{`Nothing can achieve "am_alive".`, kindError},
		{`no plan for "have_item": 3 branch(es) dropped (0 cyclic, 3 dead end).`, kindError},
		{`ghost: no plan for "have_item": 3 branch(es) dropped (0 cyclic, 3 dead end).`, kindError},
		{`unknown fact "flying".`, kindError},
		{`I don't know how to "dance". Type help for commands.`, kindError},
		{"have_job is now true.", kindPlain},
		{"", kindPlain},
	}
	for _, tt := range tests {
		got := classifyLine(tt.line)
		if got != tt.want {
			t.Errorf("classifyLine(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestWordWrap(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  string
	}{
		{"short", 80, "short"},
		{"hello world", 5, "hello\nworld"},
		{"Get an item by buying it or stealing it, whichever is cheaper.", 30,
			"Get an item by buying it or\nstealing it, whichever is\ncheaper."},
		{"", 80, ""},
		{"one", 80, "one"},
		{"a b c d e", 3, "a b\nc d\ne"},
		{"  [x] at_location  Standing here.", 20, "  [x] at_location\nStanding here."},
	}
	for _, tt := range tests {
		got := wordWrap(tt.text, tt.width)
		if got != tt.want {
			t.Errorf("wordWrap(%q, %d) =\n  %q\nwant:\n  %q", tt.text, tt.width, got, tt.want)
		}
	}
}

func TestWrapPlan(t *testing.T) {
	line := "  3. get_job -> get_money_through_work -> buy_item"
	if got := wrapPlan(line, 80); got != line {
		t.Errorf("short plan should not wrap, got %q", got)
	}
	want := "  3. get_job\n     -> get_money_through_work\n     -> buy_item"
	if got := wrapPlan(line, 30); got != want {
		t.Errorf("wrapPlan =\n  %q\nwant:\n  %q", got, want)
	}
}

func TestHistory_PushAndPrev(t *testing.T) {
	h := NewHistory(5)
	h.Push("facts")
	h.Push("set have_money")
	h.Push("plan")

	for _, want := range []string{"plan", "set have_money", "facts", "facts"} {
		prev, ok := h.Prev()
		if !ok || prev != want {
			t.Errorf("expected %q, got %q (ok=%v)", want, prev, ok)
		}
	}
}

func TestHistory_Next(t *testing.T) {
	h := NewHistory(5)
	h.Push("facts")
	h.Push("plan")

	h.Prev() // "plan"
	h.Prev() // "facts"

	next, ok := h.Next()
	if !ok || next != "plan" {
		t.Errorf("expected 'plan', got %q (ok=%v)", next, ok)
	}

	if _, ok = h.Next(); ok {
		t.Error("expected false when past newest entry")
	}
	// Back at fresh input, Prev starts from the newest again.
	if prev, _ := h.Prev(); prev != "plan" {
		t.Errorf("expected 'plan', got %q", prev)
	}
}

func TestHistory_Empty(t *testing.T) {
	h := NewHistory(5)
	if _, ok := h.Prev(); ok {
		t.Error("expected false on empty history")
	}
	if _, ok := h.Next(); ok {
		t.Error("expected false on empty history")
	}
}

func TestHistory_MaxSize(t *testing.T) {
	h := NewHistory(2)
	h.Push("a")
	h.Push("b")
	h.Push("c") // "a" evicted

	if h.Len() != 2 {
		t.Fatalf("Len = %d, want 2", h.Len())
	}
	for _, want := range []string{"c", "b", "b"} {
		if prev, _ := h.Prev(); prev != want {
			t.Errorf("expected %q, got %q", want, prev)
		}
	}
}

func TestHistory_NoConsecutiveDuplicates(t *testing.T) {
	h := NewHistory(5)
	h.Push("plan")
	h.Push("plan")
	h.Push("facts")
	h.Push("plan")

	if h.Len() != 3 {
		t.Errorf("expected 3 entries, got %d", h.Len())
	}
}

func TestHistory_Seed(t *testing.T) {
	h := NewHistory(3, "a", "b", "c", "d")
	if h.Len() != 3 {
		t.Fatalf("Len = %d, want 3", h.Len())
	}
	if prev, _ := h.Prev(); prev != "d" {
		t.Errorf("expected 'd', got %q", prev)
	}

	h.Replace([]string{"x"})
	if prev, _ := h.Prev(); prev != "x" {
		t.Errorf("after Replace expected 'x', got %q", prev)
	}
}

func testModel(t *testing.T) Model {
	t.Helper()
	defs, err := loader.Load("../domains/thief")
	if err != nil {
		t.Fatalf("loading thief domain: %v", err)
	}
	eng, err := engine.New(defs, config.Default())
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return New(context.Background(), eng, t.TempDir())
}

// sized delivers a window size so the viewport is ready.
func sized(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model)
}

// submit types a line and presses enter.
func submit(t *testing.T, m Model, line string) Model {
	t.Helper()
	m.input.SetValue(line)
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model)
}

func transcript(m Model) string {
	var lines []string
	for _, rl := range m.rawLines {
		lines = append(lines, rl.text)
	}
	return strings.Join(lines, "\n")
}

func TestHandleMeta_Quit(t *testing.T) {
	m := testModel(t)

	if _, quit := m.handleMeta("/quit"); !quit {
		t.Error("expected quit=true for /quit")
	}
	if _, quit := m.handleMeta("/exit"); !quit {
		t.Error("expected quit=true for /exit")
	}
}

func TestHandleMeta_SaveAndLoad(t *testing.T) {
	m := testModel(t)
	m = submit(t, m, "set have_money")

	output, quit := m.handleMeta("/save test")
	if quit {
		t.Error("save should not quit")
	}
	if len(output) == 0 || !strings.Contains(output[0], "World saved") {
		t.Errorf("expected save confirmation, got %v", output)
	}
	if _, err := os.Stat(filepath.Join(m.saveDir, "test.yaml")); err != nil {
		t.Fatalf("expected save file: %v", err)
	}

	m = submit(t, m, "reset")
	output, _ = m.handleMeta("/load test")
	if len(output) == 0 || !strings.Contains(output[0], "World loaded from test") {
		t.Errorf("expected load confirmation, got %v", output)
	}
	if !m.engine.World()["have_money"] {
		t.Error("have_money should be restored")
	}
	if prev, _ := m.history.Prev(); prev != "set have_money" {
		t.Errorf("history should be seeded from the save, got %q", prev)
	}
}

func TestHandleMeta_LoadNonexistent(t *testing.T) {
	m := testModel(t)

	output, quit := m.handleMeta("/load nonexistent")
	if quit {
		t.Error("load should not quit")
	}
	if len(output) == 0 || !strings.Contains(output[0], "Load failed") {
		t.Errorf("expected load failure, got %v", output)
	}
}

func TestHandleMeta_Help(t *testing.T) {
	m := testModel(t)

	output, quit := m.handleMeta("/help")
	if quit {
		t.Error("help should not quit")
	}

	joined := strings.Join(output, "\n")
	for _, expected := range []string{"/save", "/load", "/quit", "plan [goal]", "why <behavior>", "PgUp/PgDn"} {
		if !strings.Contains(joined, expected) {
			t.Errorf("expected %q in help output", expected)
		}
	}
}

func TestHandleMeta_Trace(t *testing.T) {
	m := testModel(t)

	output, _ := m.handleMeta("/trace")
	if !m.engine.Trace() {
		t.Error("expected trace to be enabled")
	}
	if len(output) == 0 || !strings.Contains(output[0], "enabled") {
		t.Errorf("expected enabled message, got %v", output)
	}

	output, _ = m.handleMeta("/trace")
	if m.engine.Trace() {
		t.Error("expected trace to be disabled")
	}
	if len(output) == 0 || !strings.Contains(output[0], "disabled") {
		t.Errorf("expected disabled message, got %v", output)
	}
}

func TestHandleMeta_Unknown(t *testing.T) {
	m := testModel(t)

	output, quit := m.handleMeta("/bogus")
	if quit {
		t.Error("unknown command should not quit")
	}
	if len(output) == 0 || !strings.Contains(output[0], "Unknown command") {
		t.Errorf("expected unknown command message, got %v", output)
	}
}

func TestHandleMeta_State(t *testing.T) {
	m := testModel(t)

	output, _ := m.handleMeta("/state")
	joined := strings.Join(output, "\n")
	if !strings.Contains(joined, "Goal: have_item") {
		t.Error("expected goal in state output")
	}
	if !strings.Contains(joined, "True facts: [am_alive at_location]") {
		t.Errorf("expected true facts in state output, got %q", joined)
	}
}

func TestUpdate_PlanCommand(t *testing.T) {
	m := sized(t, testModel(t))
	m = submit(t, m, "plan")

	out := transcript(m)
	if !strings.Contains(out, "  3. get_job -> get_money_through_work -> buy_item") {
		t.Errorf("expected plans in transcript, got:\n%s", out)
	}
	if !strings.Contains(m.renderStatusBar(), "Plans: 3") {
		t.Errorf("status bar = %q", m.renderStatusBar())
	}
}

func TestUpdate_TraceAppendsEvents(t *testing.T) {
	m := sized(t, testModel(t))
	m = submit(t, m, "/trace")
	m = submit(t, m, "plan")

	if !strings.Contains(transcript(m), "[trace] Events:") {
		t.Error("expected trace lines after a traced plan")
	}
	if !strings.Contains(m.renderStatusBar(), "TRACE") {
		t.Error("status bar should flag tracing")
	}
}

func TestUpdate_AgainRepeats(t *testing.T) {
	m := sized(t, testModel(t))
	m = submit(t, m, "toggle have_job")
	m = submit(t, m, "g")

	out := transcript(m)
	if !strings.Contains(out, "have_job is now true") || !strings.Contains(out, "have_job is now false") {
		t.Errorf("expected toggle twice, got:\n%s", out)
	}
}

func TestUpdate_HistoryKeys(t *testing.T) {
	m := sized(t, testModel(t))
	m = submit(t, m, "facts")
	m = submit(t, m, "plan")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = next.(Model)
	if m.input.Value() != "plan" {
		t.Errorf("Up should recall 'plan', got %q", m.input.Value())
	}
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	if m.input.Value() != "" {
		t.Errorf("Down past newest should clear input, got %q", m.input.Value())
	}
}

func TestRenderStatusBar(t *testing.T) {
	m := sized(t, testModel(t))

	bar := m.renderStatusBar()
	for _, want := range []string{"thief", "Goal: Have Item", "Facts: 2/6", "Plans: -"} {
		if !strings.Contains(bar, want) {
			t.Errorf("status bar %q missing %q", bar, want)
		}
	}

	m.width = 30
	if strings.Contains(m.renderStatusBar(), "Facts:") {
		t.Error("narrow status bar should drop the fact ratio")
	}
}

func TestView_BeforeReady(t *testing.T) {
	m := testModel(t)
	if m.View() != "Loading..." {
		t.Errorf("View = %q", m.View())
	}
}

func TestUpdate_DomainChangedReloads(t *testing.T) {
	m := sized(t, testModel(t))
	m = submit(t, m, "set have_money")

	reloaded := false
	changes := make(chan []string)
	m = m.WithReload(changes, func() (*engine.Engine, error) {
		reloaded = true
		defs, err := loader.Load("../domains/thief")
		if err != nil {
			return nil, err
		}
		return engine.New(defs, config.Default())
	})
	before := m.engine

	next, cmd := m.Update(domainChangedMsg{files: []string{"behaviors.lua"}})
	m = next.(Model)

	if !reloaded || m.engine == before {
		t.Fatal("expected the engine to be rebuilt")
	}
	if !m.engine.World()["have_money"] {
		t.Error("session facts should survive a reload")
	}
	if !strings.Contains(transcript(m), "Domain reloaded: behaviors.lua") {
		t.Errorf("expected reload notice, got:\n%s", transcript(m))
	}
	if cmd == nil {
		t.Error("expected the model to keep waiting for changes")
	}
}

func TestUpdate_DomainChangedFailureKeepsEngine(t *testing.T) {
	m := sized(t, testModel(t))
	m = m.WithReload(make(chan []string), func() (*engine.Engine, error) {
		return nil, errors.New("behaviors.lua:3: unexpected symbol")
	})
	before := m.engine

	next, _ := m.Update(domainChangedMsg{files: []string{"behaviors.lua"}})
	m = next.(Model)

	if m.engine != before {
		t.Error("a failed reload must keep the old engine")
	}
	if !strings.Contains(transcript(m), "Reload failed: behaviors.lua:3: unexpected symbol") {
		t.Errorf("expected failure notice, got:\n%s", transcript(m))
	}
}

func TestWaitForChange_WithoutWatcher(t *testing.T) {
	if testModel(t).waitForChange() != nil {
		t.Error("no watcher means no wait command")
	}
}

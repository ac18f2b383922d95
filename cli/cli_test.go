package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nathoo/goapcore/config"
	"github.com/nathoo/goapcore/engine"
	"github.com/nathoo/goapcore/engine/state"
	"github.com/nathoo/goapcore/loader"
)

func thiefDefs(t *testing.T) *state.Defs {
	t.Helper()
	defs, err := loader.Load("../domains/thief")
	if err != nil {
		t.Fatalf("loading thief domain: %v", err)
	}
	return defs
}

func newEngine(t *testing.T, defs *state.Defs) *engine.Engine {
	t.Helper()
	eng, err := engine.New(defs, config.Default())
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return eng
}

func newTestCLI(t *testing.T, input string) (*CLI, *bytes.Buffer) {
	t.Helper()
	eng := newEngine(t, thiefDefs(t))
	var out bytes.Buffer
	c := &CLI{
		Engine:  eng,
		Defs:    eng.Defs,
		In:      strings.NewReader(input),
		Out:     &out,
		SaveDir: t.TempDir(),
	}
	return c, &out
}

func TestCLI_BannerAndStartingWorld(t *testing.T) {
	c, out := newTestCLI(t, "/quit\n")
	c.Run(context.Background())

	output := out.String()
	if !strings.Contains(output, "thief v1.0") {
		t.Error("expected banner in output")
	}
	if !strings.Contains(output, "Get an item by buying it or stealing it.") {
		t.Error("expected domain description in output")
	}
	if !strings.Contains(output, "[x] at_location") {
		t.Error("expected starting world in output")
	}
}

func TestCLI_Plan(t *testing.T) {
	c, out := newTestCLI(t, "plan\n/quit\n")
	c.Run(context.Background())

	output := out.String()
	if !strings.Contains(output, "2. steal_money -> buy_item") {
		t.Errorf("expected plans in output, got:\n%s", output)
	}
}

func TestCLI_EditThenPlan(t *testing.T) {
	c, out := newTestCLI(t, "set have_money\nplan\n/quit\n")
	c.Run(context.Background())

	output := out.String()
	if !strings.Contains(output, "1. buy_item") {
		t.Errorf("expected buy_item to be immediately runnable, got:\n%s", output)
	}
}

func TestCLI_HelpCommand(t *testing.T) {
	c, out := newTestCLI(t, "/help\n/quit\n")
	c.Run(context.Background())

	output := out.String()
	for _, want := range []string{"/save", "/load", "/quit", "plan [goal]"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in help output", want)
		}
	}
}

func TestCLI_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	defs := thiefDefs(t)

	// Edit a bit and save.
	var out bytes.Buffer
	c := &CLI{
		Engine:  newEngine(t, defs),
		Defs:    defs,
		In:      strings.NewReader("set have_job\ngoal have_money\n/save test\n/quit\n"),
		Out:     &out,
		SaveDir: dir,
	}
	c.Run(context.Background())

	if !strings.Contains(out.String(), "World saved to test.") {
		t.Error("expected save confirmation")
	}
	if _, err := os.Stat(filepath.Join(dir, "test.yaml")); err != nil {
		t.Fatalf("expected save file: %v", err)
	}

	// Start fresh and load.
	eng2 := newEngine(t, defs)
	var out2 bytes.Buffer
	c2 := &CLI{
		Engine:  eng2,
		Defs:    defs,
		In:      strings.NewReader("/load test\n/quit\n"),
		Out:     &out2,
		SaveDir: dir,
	}
	c2.Run(context.Background())

	loadOutput := out2.String()
	if !strings.Contains(loadOutput, "World loaded from test") {
		t.Error("expected load confirmation")
	}
	if !strings.Contains(loadOutput, "[x] have_job") {
		t.Error("expected have_job true after loading save")
	}
	if eng2.Goal() != "have_money" {
		t.Errorf("goal = %q, want have_money", eng2.Goal())
	}
}

func TestCLI_LoadReportsUnknownFacts(t *testing.T) {
	dir := t.TempDir()
	body := "version: \"1.0\"\ndomain: thief\ngoal: have_item\nfacts:\n  have_money: true\n  have_horse: true\ncommand_log: []\n"
	if err := os.WriteFile(filepath.Join(dir, "old.yaml"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	c, out := newTestCLI(t, "/load old\n/quit\n")
	c.SaveDir = dir
	c.Run(context.Background())

	output := out.String()
	if !strings.Contains(output, "Skipped unknown fact have_horse.") {
		t.Errorf("expected unknown fact notice, got:\n%s", output)
	}
	if !c.Engine.World()["have_money"] {
		t.Error("declared facts should still load")
	}
}

func TestCLI_UnknownMetaCommand(t *testing.T) {
	c, out := newTestCLI(t, "/bogus\n/quit\n")
	c.Run(context.Background())

	if !strings.Contains(out.String(), "Unknown command") {
		t.Error("expected unknown command message")
	}
}

func TestCLI_TraceToggle(t *testing.T) {
	c, out := newTestCLI(t, "/trace\nplan\n/trace\nplan\n/quit\n")
	c.Run(context.Background())

	output := out.String()
	if !strings.Contains(output, "Trace output enabled") {
		t.Error("expected trace enabled message")
	}
	if !strings.Contains(output, "Trace output disabled") {
		t.Error("expected trace disabled message")
	}
	if strings.Count(output, "[[trace] Events:") != 1 {
		t.Errorf("expected exactly one trace summary, got:\n%s", output)
	}
}

func TestCLI_StateCommand(t *testing.T) {
	c, out := newTestCLI(t, "/state\n/quit\n")
	c.Run(context.Background())

	output := out.String()
	if !strings.Contains(output, "Goal: have_item") {
		t.Error("expected goal in state output")
	}
	if !strings.Contains(output, "True facts: [am_alive at_location]") {
		t.Errorf("expected true facts in state output, got:\n%s", output)
	}
}

func TestCLI_EmptyInputAndComments(t *testing.T) {
	c, out := newTestCLI(t, "\n# a comment\n\n/quit\n")
	c.Run(context.Background())

	output := out.String()
	if strings.Contains(output, "What do you want to plan?") {
		t.Error("empty lines should be silently skipped by CLI")
	}
	if strings.Contains(output, "a comment") {
		t.Error("comment lines should not be echoed or executed")
	}
}

func TestCLI_LoadNonexistent(t *testing.T) {
	c, out := newTestCLI(t, "/load nonexistent\n/quit\n")
	c.Run(context.Background())

	if !strings.Contains(out.String(), "Load failed") {
		t.Error("expected load failure message")
	}
}

func TestCLI_Again_RepeatsLastCommand(t *testing.T) {
	c, out := newTestCLI(t, "plan\nagain\n/quit\n")
	c.Run(context.Background())

	count := strings.Count(out.String(), "Found 3 plan(s)")
	if count != 2 {
		t.Errorf("expected plan output twice (plan + again), got %d", count)
	}
}

func TestCLI_G_RepeatsLastCommand(t *testing.T) {
	c, out := newTestCLI(t, "toggle have_job\ng\n/quit\n")
	c.Run(context.Background())

	output := out.String()
	if !strings.Contains(output, "have_job is now true") || !strings.Contains(output, "have_job is now false") {
		t.Errorf("expected toggle twice, got:\n%s", output)
	}
}

func TestCLI_Again_NothingToRepeat(t *testing.T) {
	c, out := newTestCLI(t, "again\n/quit\n")
	c.Run(context.Background())

	if !strings.Contains(out.String(), "Nothing to repeat") {
		t.Error("expected 'Nothing to repeat' when no prior command")
	}
}

func TestCLI_EchoInput(t *testing.T) {
	c, out := newTestCLI(t, "facts\n/quit\n")
	c.EchoInput = true
	c.Run(context.Background())

	if !strings.Contains(out.String(), "> facts\n") {
		t.Error("expected echoed input after the prompt")
	}
}

func TestCLI_StopsOnCanceledContext(t *testing.T) {
	c, out := newTestCLI(t, "plan\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.Run(ctx)

	if strings.Contains(out.String(), "Found 3 plan(s)") {
		t.Error("canceled REPL should not process input")
	}
}

func TestCLI_ReloadCarriesSession(t *testing.T) {
	c, out := newTestCLI(t, "set have_money\nplan\n/quit\n")
	changes := make(chan []string, 1)
	changes <- []string{"behaviors.lua"}
	c.Changes = changes
	reloads := 0
	c.Reload = func() (*engine.Engine, error) {
		reloads++
		return newEngine(t, thiefDefs(t)), nil
	}
	before := c.Engine
	c.Run(context.Background())

	if reloads != 1 {
		t.Fatalf("reloads = %d, want 1", reloads)
	}
	if c.Engine == before {
		t.Error("expected engine to be replaced")
	}
	output := out.String()
	if !strings.Contains(output, "[Domain reloaded: behaviors.lua]") {
		t.Errorf("expected reload notice, got:\n%s", output)
	}
	// have_money was set after the reload on the new engine.
	if !c.Engine.World()["have_money"] {
		t.Error("expected have_money on the reloaded engine")
	}
	if !strings.Contains(output, "1. buy_item") {
		t.Errorf("expected plan from reloaded engine, got:\n%s", output)
	}
}

func TestCLI_ReloadFailureKeepsEngine(t *testing.T) {
	c, out := newTestCLI(t, "plan\n/quit\n")
	changes := make(chan []string, 1)
	changes <- []string{"facts.lua"}
	c.Changes = changes
	c.Reload = func() (*engine.Engine, error) {
		return nil, os.ErrNotExist
	}
	before := c.Engine
	c.Run(context.Background())

	if c.Engine != before {
		t.Error("engine must survive a failed reload")
	}
	output := out.String()
	if !strings.Contains(output, "[Reload failed:") {
		t.Errorf("expected failure notice, got:\n%s", output)
	}
	if !strings.Contains(output, "1. steal_item") {
		t.Errorf("expected plans from the old engine, got:\n%s", output)
	}
}

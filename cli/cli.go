// Package cli provides terminal I/O, output formatting, and meta-command
// dispatch for the GOAPCore planner REPL.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nathoo/goapcore/engine"
	"github.com/nathoo/goapcore/engine/events"
	"github.com/nathoo/goapcore/engine/save"
	"github.com/nathoo/goapcore/engine/state"
	"github.com/nathoo/goapcore/types"
)

// CLI handles terminal interaction with the user.
type CLI struct {
	Engine    *engine.Engine
	Defs      *state.Defs
	In        io.Reader
	Out       io.Writer
	SaveDir   string
	EchoInput bool   // echo each input line after the prompt (for script playback)
	lastCmd   string // for "again"/"g" repeat

	// Changes delivers batches of edited domain files; Reload rebuilds the
	// engine from disk. Both are nil unless --watch is on.
	Changes <-chan []string
	Reload  func() (*engine.Engine, error)
}

// New creates a CLI wired to the given engine.
func New(eng *engine.Engine, saveDir string) *CLI {
	return &CLI{
		Engine:  eng,
		Defs:    eng.Defs,
		In:      os.Stdin,
		Out:     os.Stdout,
		SaveDir: saveDir,
	}
}

// Run starts the REPL. It shows the domain banner and the initial world,
// then loops: prompt → input → dispatch → output. It returns when input is
// exhausted, /quit is entered, or ctx is canceled.
func (c *CLI) Run(ctx context.Context) {
	c.printLine(Banner(c.Defs))
	if c.Defs.Domain.Description != "" {
		c.printLine(c.Defs.Domain.Description)
	}
	c.printLine("")

	// Show the starting world.
	c.printResult(c.Engine.Step(ctx, "facts"))

	scanner := bufio.NewScanner(c.In)
	for {
		if ctx.Err() != nil {
			return
		}
		c.print("> ")
		if !scanner.Scan() {
			break
		}
		c.pollReload()
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		// Meta-commands start with '/'.
		if strings.HasPrefix(input, "/") {
			if c.handleMeta(input) {
				return // /quit
			}
			continue
		}

		// "again" / "g" repeats the last planning command.
		lower := strings.ToLower(input)
		if lower == "again" || lower == "g" {
			if c.lastCmd == "" {
				c.printLine("Nothing to repeat.")
				continue
			}
			input = c.lastCmd
		} else {
			c.lastCmd = input
		}

		result := c.Engine.Step(ctx, input)
		c.printResult(result)
		c.printTrace(result)
	}
}

// pollReload swaps in a freshly loaded engine if the domain files changed
// since the last command. A domain that fails to load keeps the old engine.
func (c *CLI) pollReload() {
	if c.Changes == nil || c.Reload == nil {
		return
	}
	select {
	case files, ok := <-c.Changes:
		if !ok {
			c.Changes = nil
			return
		}
		c.reload(files)
	default:
	}
}

func (c *CLI) reload(files []string) {
	eng, err := c.Reload()
	if err != nil {
		c.printSystem(fmt.Sprintf("Reload failed: %v", err))
		return
	}
	unknown, err := eng.Inherit(c.Engine)
	if err != nil {
		c.printSystem(fmt.Sprintf("Reload failed: %v", err))
		return
	}
	c.Engine = eng
	c.Defs = eng.Defs
	c.printSystem("Domain reloaded: " + strings.Join(files, ", "))
	for _, f := range unknown {
		c.printSystem(fmt.Sprintf("Dropped fact %s.", f))
	}
}

// Banner returns the one-line domain header: "thief v1.0".
func Banner(defs *state.Defs) string {
	if defs.Domain.Version == "" {
		return defs.Domain.Name
	}
	return fmt.Sprintf("%s v%s", defs.Domain.Name, defs.Domain.Version)
}

// handleMeta dispatches meta-commands. Returns true if the REPL should exit.
func (c *CLI) handleMeta(input string) bool {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		c.printSystem("Goodbye.")
		return true

	case "/save":
		c.cmdSave(arg)

	case "/load":
		c.cmdLoad(arg)

	case "/help":
		c.cmdHelp()

	case "/state":
		c.cmdState()

	case "/trace":
		c.Engine.SetTrace(!c.Engine.Trace())
		if c.Engine.Trace() {
			c.printSystem("Trace output enabled.")
		} else {
			c.printSystem("Trace output disabled.")
		}

	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}

	return false
}

func (c *CLI) cmdSave(name string) {
	if name == "" {
		name = "quicksave"
	}

	data, err := c.Engine.Snapshot()
	if err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}

	if err := os.MkdirAll(c.SaveDir, 0o755); err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}

	path := filepath.Join(c.SaveDir, name+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}

	c.printSystem(fmt.Sprintf("World saved to %s.", name))
}

func (c *CLI) cmdLoad(name string) {
	if name == "" {
		name = "quicksave"
	}

	path := filepath.Join(c.SaveDir, name+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}

	sd, err := save.Load(data)
	if err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}

	unknown, err := c.Engine.Restore(sd)
	if err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("World loaded from %s (%d commands).", name, len(sd.CommandLog)))
	for _, f := range unknown {
		c.printSystem(fmt.Sprintf("Skipped unknown fact %s.", f))
	}

	// Show the world after loading.
	c.printResult(c.Engine.Step(context.Background(), "facts"))
}

func (c *CLI) cmdHelp() {
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
	for _, line := range help {
		c.printLine(line)
	}
}

func (c *CLI) cmdState() {
	e := c.Engine
	goal := string(e.Goal())
	if goal == "" {
		goal = "(none)"
	}
	c.printSystem(fmt.Sprintf("Domain: %s", c.Defs.Domain.Name))
	c.printSystem(fmt.Sprintf("Goal: %s", goal))
	c.printSystem(fmt.Sprintf("True facts: %v", state.TrueFacts(e.World())))
	c.printSystem(fmt.Sprintf("Commands: %d", len(e.CommandLog())))
	c.printSystem(fmt.Sprintf("Trace: %t", e.Trace()))
}

func (c *CLI) printTrace(result types.Result) {
	for _, line := range events.FormatAll(result.Trace) {
		c.printSystem(line)
	}
}

func (c *CLI) printResult(result types.Result) {
	for _, line := range result.Output {
		c.printLine(line)
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}

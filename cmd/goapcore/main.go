// GOAPCore finds every plan that reaches a goal in a Lua-defined
// goal-oriented action planning domain.
// Usage: goapcore [flags] <domain_dir>
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/nathoo/goapcore/cli"
	"github.com/nathoo/goapcore/config"
	"github.com/nathoo/goapcore/engine"
	"github.com/nathoo/goapcore/engine/events"
	"github.com/nathoo/goapcore/engine/planner"
	"github.com/nathoo/goapcore/loader"
	"github.com/nathoo/goapcore/tui"
	"github.com/nathoo/goapcore/types"
	"github.com/nathoo/goapcore/watch"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// errNoPlan makes one-shot modes exit non-zero when nothing was found.
var errNoPlan = errors.New("no plan found")

func main() {
	// GOAPCORE_CONFIG may also be set in a .env file in the working directory.
	_ = godotenv.Load()

	var args CLI
	kctx := kong.Parse(&args,
		kong.Name("goapcore"),
		kong.Description("Enumerate every plan that reaches a goal in a GOAP domain."),
		kong.UsageOnError(),
		kong.Vars(kongVars()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kctx.FatalIfErrorf(run(ctx, &args, os.Stdout, os.Stderr))
}

// run loads the configuration and domain, then dispatches to the selected
// front end.
func run(ctx context.Context, args *CLI, stdout, stderr io.Writer) error {
	cfg, err := config.Load(args.Config)
	if err != nil {
		return err
	}
	if args.Trace {
		cfg.Trace = true
	}
	if args.MaxDepth > 0 {
		cfg.MaxDepth = args.MaxDepth
	}
	if err := setupLogging(cfg, stderr); err != nil {
		return err
	}

	eng, err := loadEngine(args.DomainDir, cfg)
	if err != nil {
		return err
	}

	switch {
	case args.Goal != "":
		return printPlans(ctx, eng, types.Fact(args.Goal), stdout)

	case args.AllAgents:
		return printAgents(ctx, eng, stdout)

	case args.Script != "":
		// Script mode: force plain, echo commands.
		f, err := os.Open(args.Script)
		if err != nil {
			return fmt.Errorf("opening script: %w", err)
		}
		defer f.Close()
		c := cli.New(eng, cfg.SaveDir)
		c.In = f
		c.Out = stdout
		c.EchoInput = true
		c.Run(ctx)
		return nil
	}

	var (
		changes <-chan []string
		reload  func() (*engine.Engine, error)
	)
	if args.Watch {
		w, err := watch.New(args.DomainDir, cfg.WatchDebounce, slog.Default())
		if err != nil {
			return fmt.Errorf("watching domain: %w", err)
		}
		defer w.Close()
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("watching domain: %w", err)
		}
		changes = w.Changes()
		reload = func() (*engine.Engine, error) {
			return loadEngine(args.DomainDir, cfg)
		}
	}

	if args.Plain || !isTerminal() {
		c := cli.New(eng, cfg.SaveDir)
		c.Out = stdout
		c.Changes = changes
		c.Reload = reload
		c.Run(ctx)
		return nil
	}
	return tui.Run(ctx, tui.New(ctx, eng, cfg.SaveDir).WithReload(changes, reload))
}

// loadEngine loads and validates the domain in dir and builds an engine on it.
func loadEngine(dir string, cfg config.Config) (*engine.Engine, error) {
	defs, err := loader.Load(dir)
	if err != nil {
		var ve *loader.ValidationError
		if errors.As(err, &ve) {
			return nil, fmt.Errorf("domain %s is invalid:\n  %s", dir, strings.Join(ve.Errors, "\n  "))
		}
		return nil, fmt.Errorf("loading domain: %w", err)
	}
	slog.Debug("domain loaded",
		"domain", defs.Domain.Name,
		"facts", len(defs.Facts),
		"behaviors", len(defs.Behaviors),
		"agents", len(defs.Agents))

	return engine.New(defs, cfg)
}

// setupLogging installs the default slog handler described by cfg.
func setupLogging(cfg config.Config, w io.Writer) error {
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if strings.EqualFold(cfg.LogFormat, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
	return nil
}

// printPlans writes "Plan N: a -> b" for every plan that reaches goal.
func printPlans(ctx context.Context, eng *engine.Engine, goal types.Fact, w io.Writer) error {
	res, err := eng.Plan(ctx, goal)
	if err != nil {
		return err
	}
	writePlans(w, res, "")
	if len(res.Plans) == 0 {
		return errNoPlan
	}
	return nil
}

// printAgents plans for every agent in parallel and prints the results in
// declaration order.
func printAgents(ctx context.Context, eng *engine.Engine, w io.Writer) error {
	agents := eng.Agents()
	if len(agents) == 0 {
		return errors.New("domain declares no agents")
	}
	results, err := eng.PlanAll(ctx)
	if err != nil {
		return err
	}
	found := false
	for _, a := range agents {
		res := results[a.ID]
		fmt.Fprintf(w, "%s (%s)\n", a.ID, a.Goal)
		writePlans(w, res, "  ")
		found = found || len(res.Plans) > 0
	}
	if !found {
		return errNoPlan
	}
	return nil
}

func writePlans(w io.Writer, res *planner.Result, indent string) {
	for i, plan := range res.Plans {
		fmt.Fprintf(w, "%sPlan %d: %s\n", indent, i+1, planner.FormatPlan(plan))
	}
	if len(res.Plans) == 0 {
		fmt.Fprintf(w, "%s%s\n", indent, res.Diagnostic())
	}
	for _, line := range events.FormatAll(res.Trace) {
		fmt.Fprintf(w, "%s%s\n", indent, line)
	}
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

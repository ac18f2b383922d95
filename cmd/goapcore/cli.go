package main

import (
	"github.com/alecthomas/kong"

	"github.com/nathoo/goapcore/config"
)

// CLI defines the command-line interface.
type CLI struct {
	DomainDir string           `arg:"" name:"domain_dir" type:"existingdir" help:"Directory of Lua domain files"`
	Config    string           `short:"c" env:"GOAPCORE_CONFIG" default:"${config_path}" help:"Config file path"`
	Plain     bool             `help:"Use the line-oriented REPL instead of the TUI"`
	Script    string           `type:"existingfile" help:"Run REPL commands from a file and exit"`
	Trace     bool             `help:"Print plan search traces (overrides config)"`
	Goal      string           `short:"g" help:"Print every plan for GOAL and exit"`
	AllAgents bool             `help:"Plan for every declared agent and exit"`
	MaxDepth  int              `help:"Longest behavior chain to explore (overrides config)"`
	Watch     bool             `help:"Reload the domain when its Lua files change"`
	Version   kong.VersionFlag `help:"Show version information"`
}

// kongVars returns variables for kong (config path default, version info).
func kongVars() kong.Vars {
	return kong.Vars{
		"config_path": config.DefaultPath,
		"version":     "goapcore " + version + " (commit " + commit + ", built " + date + ")",
	}
}

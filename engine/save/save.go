// Package save implements YAML serialization and deserialization of world
// snapshots.
package save

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/nathoo/goapcore/engine/state"
	"github.com/nathoo/goapcore/types"
)

// SaveData is the YAML-serializable save format.
type SaveData struct {
	Version    string          `yaml:"version"`
	Domain     string          `yaml:"domain"`
	Goal       string          `yaml:"goal,omitempty"`
	Facts      map[string]bool `yaml:"facts"`
	CommandLog []string        `yaml:"command_log"`
}

// Save serializes a world snapshot to YAML bytes.
func Save(w types.WorldState, defs *state.Defs, goal types.Fact, log []string) ([]byte, error) {
	facts := make(map[string]bool, len(w))
	for f, v := range w {
		facts[string(f)] = v
	}
	data := SaveData{
		Version:    defs.Domain.Version,
		Domain:     defs.Domain.Name,
		Goal:       string(goal),
		Facts:      facts,
		CommandLog: log,
	}
	if data.CommandLog == nil {
		data.CommandLog = []string{}
	}
	return yaml.Marshal(data)
}

// Load deserializes YAML bytes into SaveData.
func Load(data []byte) (*SaveData, error) {
	var sd SaveData
	if err := yaml.Unmarshal(data, &sd); err != nil {
		return nil, fmt.Errorf("parsing save: %w", err)
	}
	// Ensure collections are never nil after load.
	if sd.Facts == nil {
		sd.Facts = map[string]bool{}
	}
	if sd.CommandLog == nil {
		sd.CommandLog = []string{}
	}
	return &sd, nil
}

// ApplySave writes the saved facts onto w. Facts the domain does not declare
// are skipped and returned sorted, so a save from an older domain version
// loads as far as it can.
func ApplySave(w types.WorldState, defs *state.Defs, sd *SaveData) (unknown []types.Fact) {
	for name, v := range sd.Facts {
		if err := state.SetFact(w, defs, types.Fact(name), v); err != nil {
			unknown = append(unknown, types.Fact(name))
		}
	}
	sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })
	return unknown
}

// CheckDomain reports whether sd was written for the domain in defs.
func CheckDomain(defs *state.Defs, sd *SaveData) error {
	if sd.Domain != defs.Domain.Name {
		return fmt.Errorf("save is for domain %q, loaded domain is %q", sd.Domain, defs.Domain.Name)
	}
	return nil
}

// Package loader loads Lua domain files into Go structs at startup.
// The Lua VM is discarded after loading; planning runs no Lua.
package loader

import (
	"fmt"
	"sort"

	"github.com/nathoo/goapcore/engine/state"
	"github.com/nathoo/goapcore/types"
	lua "github.com/yuin/gopher-lua"
)

// rawDef holds a Fact, Behavior or Agent table before compilation.
type rawDef struct {
	id    string
	table *lua.LTable
	order int
}

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getBool returns a bool field from a Lua table, or the default if missing.
func getBool(tbl *lua.LTable, key string, def bool) (bool, error) {
	switch v := tbl.RawGetString(key).(type) {
	case lua.LBool:
		return bool(v), nil
	case *lua.LNilType:
		return def, nil
	default:
		return def, fmt.Errorf("%s must be a boolean, got %s", key, v.Type())
	}
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	v := tbl.RawGetString(key)
	if t, ok := v.(*lua.LTable); ok {
		return t
	}
	return nil
}

// stringList reads a list field of strings. A single string is accepted as
// a one-element list.
func stringList(tbl *lua.LTable, key string) ([]string, error) {
	switch v := tbl.RawGetString(key).(type) {
	case *lua.LNilType:
		return nil, nil
	case lua.LString:
		return []string{string(v)}, nil
	case *lua.LTable:
		var out []string
		for i := 1; i <= v.MaxN(); i++ {
			s, ok := v.RawGetInt(i).(lua.LString)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string, got %s", key, i, v.RawGetInt(i).Type())
			}
			out = append(out, string(s))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s must be a list of strings, got %s", key, v.Type())
	}
}

// boolMap reads a { name = bool } table.
func boolMap(tbl *lua.LTable, key string) (map[types.Fact]bool, error) {
	t := getTable(tbl, key)
	if t == nil {
		return nil, nil
	}
	m := map[types.Fact]bool{}
	var err error
	t.ForEach(func(k, v lua.LValue) {
		ks, ok := k.(lua.LString)
		if !ok {
			err = fmt.Errorf("%s keys must be fact names, got %s", key, k.Type())
			return
		}
		b, ok := v.(lua.LBool)
		if !ok {
			err = fmt.Errorf("%s.%s must be a boolean, got %s", key, ks, v.Type())
			return
		}
		m[types.Fact(ks)] = bool(b)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func toFacts(names []string) []types.Fact {
	if names == nil {
		return nil
	}
	out := make([]types.Fact, len(names))
	for i, n := range names {
		out[i] = types.Fact(n)
	}
	return out
}

// compile converts all collected Lua data into a Defs struct.
func compile(coll *collector) (*state.Defs, error) {
	defs := &state.Defs{
		Facts:     map[types.Fact]types.FactDef{},
		Behaviors: map[types.Behavior]types.BehaviorDef{},
		Agents:    map[string]types.AgentDef{},
	}

	// Domain.
	if coll.domain == nil {
		return nil, fmt.Errorf("no Domain{} definition found")
	}
	defs.Domain = compileDomain(coll.domain)

	// Facts.
	for _, raw := range sortedByOrder(coll.facts) {
		fact, err := compileFact(raw)
		if err != nil {
			return nil, fmt.Errorf("compiling fact %s: %w", raw.id, err)
		}
		// The order list records every declaration so validate can report
		// duplicates; the first one wins.
		if _, dup := defs.Facts[fact.ID]; !dup {
			defs.Facts[fact.ID] = fact
		}
		defs.FactOrder = append(defs.FactOrder, fact.ID)
	}

	// Behaviors.
	for _, raw := range sortedByOrder(coll.behaviors) {
		behavior, err := compileBehavior(raw)
		if err != nil {
			return nil, fmt.Errorf("compiling behavior %s: %w", raw.id, err)
		}
		if _, dup := defs.Behaviors[behavior.ID]; !dup {
			defs.Behaviors[behavior.ID] = behavior
		}
		defs.BehaviorOrder = append(defs.BehaviorOrder, behavior.ID)
	}

	// Agents.
	for _, raw := range sortedByOrder(coll.agents) {
		agent, err := compileAgent(raw)
		if err != nil {
			return nil, fmt.Errorf("compiling agent %s: %w", raw.id, err)
		}
		if _, dup := defs.Agents[agent.ID]; !dup {
			defs.Agents[agent.ID] = agent
		}
		defs.AgentOrder = append(defs.AgentOrder, agent.ID)
	}

	defs.Tables = buildTables(defs)

	return defs, nil
}

func compileDomain(tbl *lua.LTable) types.DomainDef {
	return types.DomainDef{
		Name:        getString(tbl, "name"),
		Description: getString(tbl, "description"),
		Version:     getString(tbl, "version"),
		Goal:        types.Fact(getString(tbl, "goal")),
	}
}

func compileFact(raw rawDef) (types.FactDef, error) {
	initial, err := getBool(raw.table, "initial", false)
	if err != nil {
		return types.FactDef{}, err
	}
	return types.FactDef{
		ID:          types.Fact(raw.id),
		Initial:     initial,
		Description: getString(raw.table, "description"),
	}, nil
}

func compileBehavior(raw rawDef) (types.BehaviorDef, error) {
	requires, err := stringList(raw.table, "requires")
	if err != nil {
		return types.BehaviorDef{}, err
	}
	achieves, err := stringList(raw.table, "achieves")
	if err != nil {
		return types.BehaviorDef{}, err
	}
	return types.BehaviorDef{
		ID:          types.Behavior(raw.id),
		Requires:    toFacts(requires),
		Achieves:    toFacts(achieves),
		Description: getString(raw.table, "description"),
	}, nil
}

func compileAgent(raw rawDef) (types.AgentDef, error) {
	world, err := boolMap(raw.table, "world")
	if err != nil {
		return types.AgentDef{}, err
	}
	return types.AgentDef{
		ID:    raw.id,
		Goal:  types.Fact(getString(raw.table, "goal")),
		World: world,
	}, nil
}

// buildTables derives the planning tables. Enablers keep behavior
// declaration order; every behavior gets a precondition entry, even an
// empty one.
func buildTables(defs *state.Defs) types.Domain {
	d := types.Domain{
		Facts:         append([]types.Fact{}, defs.FactOrder...),
		Enablers:      map[types.Fact][]types.Behavior{},
		Preconditions: map[types.Behavior][]types.Fact{},
	}
	for _, id := range defs.BehaviorOrder {
		b := defs.Behaviors[id]
		d.Preconditions[id] = append([]types.Fact{}, b.Requires...)
		for _, f := range b.Achieves {
			d.Enablers[f] = append(d.Enablers[f], id)
		}
	}
	return d
}

// sortedByOrder returns definitions in source order.
func sortedByOrder(raws []rawDef) []rawDef {
	out := append([]rawDef(nil), raws...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].order < out[j].order })
	return out
}

// sortedLuaFiles returns .lua files in a directory, with domain.lua first
// and the rest sorted alphabetically.
func sortedLuaFiles(files []string) []string {
	var domainFile string
	var others []string
	for _, f := range files {
		if f == "domain.lua" {
			domainFile = f
		} else {
			others = append(others, f)
		}
	}
	sort.Strings(others)
	if domainFile != "" {
		return append([]string{domainFile}, others...)
	}
	return others
}

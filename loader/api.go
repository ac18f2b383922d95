package loader

import (
	lua "github.com/yuin/gopher-lua"
)

// registerAPI registers all Lua constructors and helpers as globals.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerListHelpers(L)
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Domain { name = "...", goal = "...", ... }
	L.SetGlobal("Domain", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		if coll.domain != nil {
			L.RaiseError("Domain declared more than once")
		}
		coll.domain = tbl
		return 0
	}))

	// Fact "id" { initial = true }: curried, Fact("id") returns a function that takes a table.
	L.SetGlobal("Fact", curried(coll, func(id string, tbl *lua.LTable) {
		coll.facts = append(coll.facts, rawDef{id: id, table: tbl, order: coll.nextSourceOrder()})
	}))

	// Behavior "id" { requires = {...}, achieves = {...} }
	L.SetGlobal("Behavior", curried(coll, func(id string, tbl *lua.LTable) {
		coll.behaviors = append(coll.behaviors, rawDef{id: id, table: tbl, order: coll.nextSourceOrder()})
	}))

	// Agent "id" { goal = "...", world = { fact = bool } }
	L.SetGlobal("Agent", curried(coll, func(id string, tbl *lua.LTable) {
		coll.agents = append(coll.agents, rawDef{id: id, table: tbl, order: coll.nextSourceOrder()})
	}))
}

// curried builds a Name "id" { ... } constructor.
func curried(coll *collector, store func(id string, tbl *lua.LTable)) *lua.LFunction {
	return coll.L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			store(id, tbl)
			return 0
		}))
		return 1
	})
}

func registerListHelpers(L *lua.LState) {
	// Requires("a", "b") and Achieves("c") build plain string lists, so
	// behaviors read the same either way.
	list := func(L *lua.LState) int {
		tbl := L.NewTable()
		for i := 1; i <= L.GetTop(); i++ {
			tbl.Append(lua.LString(L.CheckString(i)))
		}
		L.Push(tbl)
		return 1
	}
	L.SetGlobal("Requires", L.NewFunction(list))
	L.SetGlobal("Achieves", L.NewFunction(list))
}

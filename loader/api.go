package loader

import (
	lua "github.com/yuin/gopher-lua"
)

// registerAPI registers all Lua constructors and helpers as globals.
func registerAPI(L *lua.LState, c *content, source *string) {
	registerConstructors(L, c, source)
	registerActionHelpers(L)
	registerCommandHelpers(L)
}

func registerConstructors(L *lua.LState, c *content, source *string) {
	// Game { title = "...", start = "..." }
	L.SetGlobal("Game", L.NewFunction(func(L *lua.LState) int {
		c.setGame(tableFields(L.CheckTable(1)), *source)
		return 0
	}))

	L.SetGlobal("Player", L.NewFunction(func(L *lua.LState) int {
		c.player = tableFields(L.CheckTable(1))
		return 0
	}))

	// Room "id" { ... } and friends are curried: Room("id") returns a
	// function that takes the table.
	for name, section := range map[string]struct {
		kind string
		list *[]sourced
	}{
		"Room":      {"room", &c.rooms},
		"Object":    {"object", &c.objects},
		"Character": {"character", &c.characters},
		"Timer":     {"timer", &c.timers},
		"Scene":     {"scene", &c.scenes},
		"Event":     {"event", &c.events},
		"Citizen":   {"citizen", &c.citizens},
		"Enemy":     {"enemy", &c.enemies},
	} {
		section := section // per-iteration copy (go1.21 loop semantics)
		L.SetGlobal(name, L.NewFunction(func(L *lua.LState) int {
			id := L.CheckString(1)
			L.Push(L.NewFunction(func(L *lua.LState) int {
				f := tableFields(L.CheckTable(1))
				c.add(section.kind, section.list, entry{id: id, fields: f}, *source)
				return 0
			}))
			return 1
		}))
	}

	// Text("key", "value") or Text "key" "value"
	L.SetGlobal("Text", L.NewFunction(func(L *lua.LState) int {
		key := L.CheckString(1)
		if L.GetTop() >= 2 {
			c.texts[key] = textValue(toGoValue(L.Get(2)))
			return 0
		}
		L.Push(L.NewFunction(func(L *lua.LState) int {
			c.texts[key] = textValue(toGoValue(L.Get(1)))
			return 0
		}))
		return 1
	}))

	L.SetGlobal("Globals", L.NewFunction(func(L *lua.LState) int {
		for k, v := range tableFields(L.CheckTable(1)) {
			c.globals[k] = v
		}
		return 0
	}))

	L.SetGlobal("Aliases", L.NewFunction(func(L *lua.LState) int {
		for k, v := range tableFields(L.CheckTable(1)) {
			if s, ok := v.(string); ok {
				c.aliases[k] = s
			}
		}
		return 0
	}))
}

func registerActionHelpers(L *lua.LState) {
	// Action("<<On Talk>>", { Say("hi") }) or
	// Action("<<On Talk>>", { conditions = {...}, pass = {...}, fail = {...} })
	L.SetGlobal("Action", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		opts := L.OptTable(2, L.NewTable())
		tbl := L.NewTable()
		if hasHashKeys(opts) {
			opts.ForEach(func(k, v lua.LValue) {
				if _, ok := k.(lua.LString); ok {
					tbl.RawSet(k, v)
				}
			})
		} else {
			tbl.RawSetString("pass", opts)
		}
		tbl.RawSetString("name", lua.LString(name))
		L.Push(tbl)
		return 1
	}))

	// Cond { Check(...), Or(Check(...)), pass = {...}, fail = {...} }
	L.SetGlobal("Cond", L.NewFunction(func(L *lua.LState) int {
		src := L.CheckTable(1)
		checks := L.NewTable()
		for i := 1; i <= src.MaxN(); i++ {
			checks.Append(src.RawGetInt(i))
		}
		tbl := L.NewTable()
		tbl.RawSetString("checks", checks)
		for _, key := range []string{"name", "pass", "fail"} {
			if v := src.RawGetString(key); v != lua.LNil {
				tbl.RawSetString(key, v)
			}
		}
		L.Push(tbl)
		return 1
	}))

	// Check("CT_Variable_Compare", "global.gold", ">=", "10")
	L.SetGlobal("Check", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("condType", lua.LString(L.CheckString(1)))
		tbl.RawSetString("step2", lua.LString(argString(L, 2)))
		tbl.RawSetString("step3", lua.LString(argString(L, 3)))
		tbl.RawSetString("step4", lua.LString(argString(L, 4)))
		L.Push(tbl)
		return 1
	}))

	for name, join := range map[string]string{"And": "And", "Or": "Or"} {
		join := join // per-iteration copy (go1.21 loop semantics)
		L.SetGlobal(name, L.NewFunction(func(L *lua.LState) int {
			src := L.CheckTable(1)
			tbl := L.NewTable()
			src.ForEach(func(k, v lua.LValue) { tbl.RawSet(k, v) })
			tbl.RawSetString("join", lua.LString(join))
			L.Push(tbl)
			return 1
		}))
	}
}

func registerCommandHelpers(L *lua.LState) {
	// Cmd("KIND", text, part2, part3, part4)
	L.SetGlobal("Cmd", L.NewFunction(func(L *lua.LState) int {
		L.Push(command(L, L.CheckString(1), argString(L, 2), argString(L, 3), argString(L, 4), argString(L, 5)))
		return 1
	}))

	simple := map[string]string{
		"Say":         "DISPLAY_TEXT",
		"Pause":       "PAUSE_GAME",
		"Picture":     "DISPLAY_PICTURE",
		"SetFlag":     "SET_FLAG",
		"GiveItem":    "GIVE_ITEM",
		"RemoveItem":  "REMOVE_ITEM",
		"MovePlayer":  "MOVE_PLAYER",
		"StartScene":  "START_SCENE",
		"StartCombat": "START_COMBAT",
		"EndGame":     "END_GAME",
	}
	for name, kind := range simple {
		kind := kind // per-iteration copy (go1.21 loop semantics)
		L.SetGlobal(name, L.NewFunction(func(L *lua.LState) int {
			L.Push(command(L, kind, argString(L, 1), argString(L, 2), "", ""))
			return 1
		}))
	}

	// SetVar("global.gold", "Add", 5)
	L.SetGlobal("SetVar", L.NewFunction(func(L *lua.LState) int {
		L.Push(command(L, "SET_VARIABLE", L.CheckString(1), argString(L, 2), argString(L, 3), ""))
		return 1
	}))
}

func command(L *lua.LState, kind, text, p2, p3, p4 string) *lua.LTable {
	tbl := L.NewTable()
	tbl.RawSetString("kind", lua.LString(kind))
	tbl.RawSetString("text", lua.LString(text))
	for key, v := range map[string]string{"part2": p2, "part3": p3, "part4": p4} {
		if v != "" {
			tbl.RawSetString(key, lua.LString(v))
		}
	}
	return tbl
}

// argString renders argument n as text; numbers and booleans are allowed
// where the runtime takes strings. A missing argument is "".
func argString(L *lua.LState, n int) string {
	v := L.Get(n)
	if v == lua.LNil {
		return ""
	}
	return v.String()
}

func hasHashKeys(tbl *lua.LTable) bool {
	found := false
	tbl.ForEach(func(k, _ lua.LValue) {
		if _, ok := k.(lua.LString); ok {
			found = true
		}
	})
	return found
}

func tableFields(tbl *lua.LTable) fields {
	if f := asFields(toGoValue(tbl)); f != nil {
		return f
	}
	return fields{}
}

// toGoValue converts a Lua value to a Go value recursively. A table with
// string keys becomes a map and its array part is dropped; otherwise it is
// a list.
func toGoValue(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		f := float64(val)
		if f == float64(int(f)) {
			return int(f)
		}
		return f
	case *lua.LNilType:
		return nil
	case lua.LString:
		return string(val)
	case *lua.LTable:
		if maxN := val.MaxN(); maxN > 0 && !hasHashKeys(val) {
			arr := make([]any, 0, maxN)
			for i := 1; i <= maxN; i++ {
				arr = append(arr, toGoValue(val.RawGetInt(i)))
			}
			return arr
		}
		m := map[string]any{}
		val.ForEach(func(k, v lua.LValue) {
			if ks, ok := k.(lua.LString); ok {
				m[string(ks)] = toGoValue(v)
			}
		})
		return m
	default:
		return nil
	}
}

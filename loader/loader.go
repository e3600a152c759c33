// Package loader reads game content from a directory of JSON documents and
// sandboxed Lua scripts, normalizes every authored spelling into the types
// the runtime uses and validates it. The Lua VM is discarded after loading.
package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/taleweaver/engine/state"
)

// scriptTimeout bounds the Lua execution of one content directory.
const scriptTimeout = 5 * time.Second

// Load reads every .json file of dir, then every .lua file with game.lua
// first, compiles them into Defs and validates the result. Warnings are
// returned alongside usable Defs; errors make the content unusable.
func Load(dir string) (*state.Defs, []string, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading game directory %s: %w", dir, err)
	}

	var jsonFiles, luaFiles []string
	for _, e := range dirEntries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".json":
			jsonFiles = append(jsonFiles, e.Name())
		case ".lua":
			luaFiles = append(luaFiles, e.Name())
		}
	}
	if len(jsonFiles)+len(luaFiles) == 0 {
		return nil, nil, fmt.Errorf("no .json or .lua files found in %s", dir)
	}
	sort.Strings(jsonFiles)
	luaFiles = sortedLuaFiles(luaFiles)

	c := newContent()
	for _, f := range jsonFiles {
		if err := readJSON(filepath.Join(dir, f), f, c); err != nil {
			return nil, nil, err
		}
	}
	if len(luaFiles) > 0 {
		if err := runLua(dir, luaFiles, c); err != nil {
			return nil, nil, err
		}
	}

	defs, err := compile(c)
	if err != nil {
		return nil, nil, fmt.Errorf("compiling game data: %w", err)
	}
	warnings, err := validate(defs, c.problems)
	if err != nil {
		return nil, warnings, err
	}
	return defs, warnings, nil
}

func readJSON(path, name string, c *content) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	wholeNumbers(doc)
	c.addDocument(fields(doc), name)
	return nil
}

func runLua(dir string, files []string, c *content) error {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	ctx, cancel := context.WithTimeout(context.Background(), scriptTimeout)
	defer cancel()
	L.SetContext(ctx)

	openSafeLibs(L)
	sandbox(L)

	var source string
	registerAPI(L, c, &source)

	for _, f := range files {
		source = f
		if err := L.DoFile(filepath.Join(dir, f)); err != nil {
			return fmt.Errorf("executing %s: %w", f, err)
		}
	}
	return nil
}

// sortedLuaFiles puts game.lua first and the rest in name order.
func sortedLuaFiles(files []string) []string {
	sort.Slice(files, func(i, j int) bool {
		gi, gj := strings.EqualFold(files[i], "game.lua"), strings.EqualFold(files[j], "game.lua")
		if gi != gj {
			return gi
		}
		return files[i] < files[j]
	})
	return files
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox removes globals that reach outside the content directory or make
// loading nondeterministic.
func sandbox(L *lua.LState) {
	for _, name := range []string{
		"dofile", "loadfile", "load", "loadstring", "require", "module",
		"rawset", "rawget", "rawequal", "collectgarbage",
	} {
		L.SetGlobal(name, lua.LNil)
	}
	if tbl, ok := L.GetGlobal("math").(*lua.LTable); ok {
		tbl.RawSetString("random", lua.LNil)
		tbl.RawSetString("randomseed", lua.LNil)
	}
}

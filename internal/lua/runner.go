package lua

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

// Preparer runs a user script over each input before it is classified.
// The script defines a global prepare(text) returning either a string (the
// rewritten input) or a table { text = "...", reply = "..." }. A non-empty
// reply answers the user directly and skips the model.
type Preparer struct {
	path  string
	proto *lua.FunctionProto
}

// Load compiles the script once; every Prepare call runs it in a fresh state.
func Load(scriptPath string) (*Preparer, error) {
	absPath, err := filepath.Abs(scriptPath)
	if err != nil {
		return nil, fmt.Errorf("script path: %w", err)
	}
	src, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	chunk, err := parse.Parse(strings.NewReader(string(src)), absPath)
	if err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	proto, err := lua.Compile(chunk, absPath)
	if err != nil {
		return nil, fmt.Errorf("compile script: %w", err)
	}
	return &Preparer{path: absPath, proto: proto}, nil
}

func (p *Preparer) Prepare(ctx context.Context, input string) (text, reply string, err error) {
	lState := lua.NewState()
	defer lState.Close()
	lState.SetContext(ctx)

	// os.getenv lets scripts read configuration such as keyword lists.
	lState.PreloadModule("os", osModuleLoader)

	lState.Push(lState.NewFunctionFromProto(p.proto))
	if err := lState.PCall(0, lua.MultRet, nil); err != nil {
		return "", "", fmt.Errorf("load script: %w", err)
	}

	fn := lState.GetGlobal("prepare")
	if fn.Type() == lua.LTNil {
		return "", "", fmt.Errorf("%s must define global function prepare(text)", filepath.Base(p.path))
	}
	if fn.Type() != lua.LTFunction {
		return "", "", fmt.Errorf("prepare must be a function, got %s", fn.Type().String())
	}

	lState.Push(fn)
	lState.Push(lua.LString(input))
	if err := lState.PCall(1, 1, nil); err != nil {
		return "", "", fmt.Errorf("prepare(): %w", err)
	}

	ret := lState.Get(-1)
	lState.Pop(1)

	switch ret.Type() {
	case lua.LTNil:
		return input, "", nil
	case lua.LTString:
		return ret.String(), "", nil
	case lua.LTTable:
		tbl := ret.(*lua.LTable)
		text = input
		if v := tbl.RawGetString("text"); v.Type() == lua.LTString {
			text = v.String()
		}
		if v := tbl.RawGetString("reply"); v.Type() == lua.LTString {
			reply = v.String()
		}
		return text, reply, nil
	default:
		return "", "", fmt.Errorf("prepare() must return nil, a string or a table { text, reply }, got %s", ret.Type().String())
	}
}

// osModuleLoader provides a minimal os module: getenv and time.
func osModuleLoader(lState *lua.LState) int {
	mod := lState.NewTable()
	lState.SetField(mod, "getenv", lState.NewFunction(func(ls *lua.LState) int {
		ls.Push(lua.LString(os.Getenv(ls.CheckString(1))))
		return 1
	}))
	lState.SetField(mod, "time", lState.NewFunction(func(ls *lua.LState) int {
		ls.Push(lua.LNumber(time.Now().Unix()))
		return 1
	}))
	lState.Push(mod)
	return 1
}

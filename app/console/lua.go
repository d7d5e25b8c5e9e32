package console

import (
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// RunLua executes code in the console's Lua state and returns what it printed.
// The state persists between calls, so globals survive. The `ecs` table exposes
// entities(), tick(), resources() and exec(line).
func (c *Console) RunLua(code string) (string, error) {
	vm := c.luaState()

	var out strings.Builder
	vm.SetGlobal("print", vm.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		for i := 1; i <= n; i++ {
			if i > 1 {
				out.WriteByte('\t')
			}
			out.WriteString(L.ToStringMeta(L.Get(i)).String())
		}
		out.WriteByte('\n')
		return 0
	}))

	if err := vm.DoString(code); err != nil {
		return strings.TrimSuffix(out.String(), "\n"), fmt.Errorf("lua: %w", err)
	}
	return strings.TrimSuffix(out.String(), "\n"), nil
}

func (c *Console) luaState() *lua.LState {
	if c.vm != nil {
		return c.vm
	}
	vm := lua.NewState()

	mod := vm.NewTable()
	vm.SetFuncs(mod, map[string]lua.LGFunction{
		"entities": func(L *lua.LState) int {
			L.Push(lua.LNumber(c.app.World().Len()))
			return 1
		},
		"tick": func(L *lua.LState) int {
			L.Push(lua.LNumber(c.app.World().Tick()))
			return 1
		},
		"resources": func(L *lua.LState) int {
			names := L.NewTable()
			for _, name := range c.app.World().Stats().ResourceTypes {
				names.Append(lua.LString(name))
			}
			L.Push(names)
			return 1
		},
		"exec": func(L *lua.LState) int {
			line := L.CheckString(1)
			if strings.HasPrefix(strings.TrimSpace(line), "lua") {
				L.RaiseError("exec cannot run lua")
				return 0
			}
			out, err := c.run(line)
			if err != nil {
				L.Push(lua.LNil)
				L.Push(lua.LString(err.Error()))
				return 2
			}
			L.Push(lua.LString(out))
			return 1
		},
	})
	vm.SetGlobal("ecs", mod)

	c.vm = vm
	return vm
}

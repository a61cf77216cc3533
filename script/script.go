// Package script embeds a Lua scripting layer over a Machine, letting a
// host bind guest syscalls to Lua functions and call back into guest
// code from Lua, implemented with github.com/yuin/gopher-lua.
//
// The binding uses the host-callback syscall range 1024-2047: a syscall
// number in that range dispatches to a named Lua function instead of a
// Go SyscallHandler, so a guest program (or a host test) can register
// behavior without recompiling the emulator.
package script

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/intuitionamiga/laemu"
)

// HostCallbackBase is the first syscall number reserved for script
// bindings; guest programs issuing `syscall` with a7 in
// [HostCallbackBase, HostCallbackBase+1024) reach Lua instead of the
// Linux bundle.
const HostCallbackBase = 1024

// Engine pairs one Lua state with one Machine. Callbacks registered via
// Bind run on the goroutine that calls Machine.Run, matching gopher-lua's
// requirement that an *lua.LState not be used from multiple goroutines at
// once.
type Engine struct {
	L *lua.LState
	m *laemu.Machine
}

// New creates an Engine over m, exposing guest memory and registers to
// Lua as a global `guest` table (guest.r(i), guest.set_r(i, v), guest.u8
// / guest.set_u8 / guest.u32 / guest.set_u32 for byte/word memory access,
// guest.call(addr, ...) for a VMCall into guest code).
func New(m *laemu.Machine) *Engine {
	e := &Engine{L: lua.NewState(), m: m}
	e.installGuestTable()
	return e
}

// Close releases the Lua state.
func (e *Engine) Close() { e.L.Close() }

// LoadString compiles and runs script once, for defining functions that
// Bind will later look up by name.
func (e *Engine) LoadString(script string) error {
	return e.L.DoString(script)
}

// Bind installs a syscall handler on e's Machine for num (which must be
// >= HostCallbackBase) that calls the Lua global function named fn,
// passing the syscall's a0-a6 arguments as Lua numbers and writing the
// function's first return value back as the syscall result.
func (e *Engine) Bind(num uint64, fn string) error {
	if num < HostCallbackBase {
		return fmt.Errorf("script: syscall %d is below the host callback range starting at %d", num, HostCallbackBase)
	}
	e.m.BindSyscall(num, func(m *laemu.Machine) error {
		args := laemu.SysArgs(&m.CPU)
		luaFn := e.L.GetGlobal(fn)
		if luaFn.Type() != lua.LTFunction {
			return fmt.Errorf("script: %q is not a function", fn)
		}
		callArgs := make([]lua.LValue, len(args))
		for i, a := range args {
			callArgs[i] = lua.LNumber(a)
		}
		if err := e.L.CallByParam(lua.P{Fn: luaFn, NRet: 1, Protect: true}, callArgs...); err != nil {
			return fmt.Errorf("script: calling %q: %w", fn, err)
		}
		ret := e.L.Get(-1)
		e.L.Pop(1)
		if n, ok := ret.(lua.LNumber); ok {
			laemu.SetSysResult(&m.CPU, uint64(int64(n)))
		}
		return nil
	})
	return nil
}

func (e *Engine) installGuestTable() {
	tbl := e.L.NewTable()
	e.L.SetGlobal("guest", tbl)

	reg := func(name string, fn lua.LGFunction) {
		e.L.SetField(tbl, name, e.L.NewFunction(fn))
	}

	reg("r", func(L *lua.LState) int {
		idx := L.CheckInt(1)
		L.Push(lua.LNumber(e.m.CPU.GPR(uint8(idx))))
		return 1
	})
	reg("set_r", func(L *lua.LState) int {
		idx := L.CheckInt(1)
		v := L.CheckNumber(2)
		e.m.CPU.SetGPR(uint8(idx), uint64(int64(v)))
		return 0
	})
	reg("u8", func(L *lua.LState) int {
		addr := uint64(L.CheckNumber(1))
		v, err := e.m.Arena.Read8(addr)
		if err != nil {
			L.RaiseError("%v", err)
		}
		L.Push(lua.LNumber(v))
		return 1
	})
	reg("set_u8", func(L *lua.LState) int {
		addr := uint64(L.CheckNumber(1))
		v := uint8(L.CheckNumber(2))
		if err := e.m.Arena.Write8(addr, v); err != nil {
			L.RaiseError("%v", err)
		}
		return 0
	})
	reg("u32", func(L *lua.LState) int {
		addr := uint64(L.CheckNumber(1))
		v, err := e.m.Arena.Read32(addr)
		if err != nil {
			L.RaiseError("%v", err)
		}
		L.Push(lua.LNumber(v))
		return 1
	})
	reg("set_u32", func(L *lua.LState) int {
		addr := uint64(L.CheckNumber(1))
		v := uint32(L.CheckNumber(2))
		if err := e.m.Arena.Write32(addr, v); err != nil {
			L.RaiseError("%v", err)
		}
		return 0
	})
	reg("call", func(L *lua.LState) int {
		addr := uint64(L.CheckNumber(1))
		n := L.GetTop()
		args := make([]uint64, 0, n-1)
		for i := 2; i <= n; i++ {
			args = append(args, uint64(L.CheckNumber(i)))
		}
		result, err := laemu.VMCall(context.Background(), e.m, addr, args...)
		if err != nil {
			L.RaiseError("%v", err)
		}
		L.Push(lua.LNumber(result))
		return 1
	})
}

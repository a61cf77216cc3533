// vmcall.go - Host<->guest calling-convention helpers.
//
// VMCall lets host code invoke a guest function as if it were a native
// Go function: place integer arguments per the LoongArch64 calling
// convention (a0-a7, i.e. r4-r11; floating-point arguments are not
// marshalled, nothing is placed in fa0-fa7), set $ra to a
// sentinel "fast exit" return address the interpreter recognizes, run
// the Machine, and read the result back out of a0. SysArgs is the
// complementary guest->host direction used by syscall handlers to pull
// a syscall's arguments out of registers by LoongArch's a0-a6 syscall
// argument convention (a7 carries the syscall number, read separately by
// dispatchSyscall in syscalls.go).
package laemu

import "context"

// fastExitPC is the default value of Machine.vmExitPC for a Machine that
// was never loaded through LoadELF. Address 0 is ordinary memory (there
// is no guard page, untagged memory defaults to read-write, and tests
// load code there), so a VMCall on such a Machine also ends if the guest
// jumps to 0. LoadELF overwrites vmExitPC
// with the image's fast_exit symbol, or an address synthesized at brk if
// the image defines none.
const fastExitPC = 0

const (
	regA0 = 4
	regA1 = 5
	regA2 = 6
	regA3 = 7
	regA4 = 8
	regA5 = 9
	regA6 = 10
	regA7 = 11
	regRA = 1
	regSP = 3
)

// VMCall invokes the guest function at addr with up to 8 integer
// arguments, per the LoongArch64 integer calling convention, and returns
// its value from a0. The Machine's whole register state, PC and
// instruction count included, is restored when the call returns; only
// the a0 result is passed back.
func VMCall(ctx context.Context, m *Machine, addr uint64, args ...uint64) (uint64, error) {
	if len(args) > 8 {
		return 0, NewFault(IllegalOperation, uint64(len(args)))
	}
	saved := m.CPU
	exitPC := m.vmExitPC
	argRegs := [8]uint8{regA0, regA1, regA2, regA3, regA4, regA5, regA6, regA7}
	for i, v := range args {
		m.CPU.SetGPR(argRegs[i], v)
	}
	m.CPU.SetGPR(regRA, exitPC)
	m.CPU.SetPC(addr)

	err := m.runUntilExit(ctx, exitPC)

	result := m.CPU.GPR(regA0)
	resumePC, resumeCount := saved.PC, saved.InstructionCount
	m.CPU = saved
	m.CPU.PC = resumePC
	m.CPU.InstructionCount = resumeCount
	return result, err
}

// runUntilExit single-steps the Machine until PC equals exitPC (the
// sentinel VMCall planted in $ra) or a fault/limit/exit ends the run
// first. It deliberately does not go through Machine.Run's fast path,
// since the fast path's block execution has no per-instruction exit
// check and would run straight past the sentinel into whatever bytes
// happen to sit at address 0.
func (m *Machine) runUntilExit(ctx context.Context, exitPC uint64) error {
	for {
		if m.CPU.PC == exitPC || m.exited {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if m.InstructionLimitReached() {
			return nil
		}
		di, err := m.fetch()
		if err != nil {
			return err
		}
		if err := di.Handler.Invoke(m, di.Raw); err != nil {
			return err
		}
		m.CPU.InstructionCount++
	}
}

// SysArgs reads up to 7 syscall arguments (a0-a6) from cpu, matching the
// Linux/LoongArch syscall ABI used throughout syscalls_linux.go.
func SysArgs(cpu *CPUState) [7]uint64 {
	return [7]uint64{
		cpu.GPR(regA0), cpu.GPR(regA1), cpu.GPR(regA2),
		cpu.GPR(regA3), cpu.GPR(regA4), cpu.GPR(regA5), cpu.GPR(regA6),
	}
}

// SetSysResult writes a syscall's return value into a0, the register a
// `syscall` instruction's caller reads the result from.
func SetSysResult(cpu *CPUState, v uint64) {
	cpu.SetGPR(regA0, v)
}

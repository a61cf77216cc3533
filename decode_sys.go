// decode_sys.go - Syscall and breakpoint handlers.
//
// hSyscall is the boundary between the interpreter and the host:
// it defers entirely to Machine.dispatchSyscall (syscalls.go), which
// looks the call number up in the per-Machine handler table. hBreak
// raises a fault rather than trapping to a debugger; guest debugging
// protocols are out of scope.
package laemu

import "fmt"

func populateSys(m map[uint32]DecodedInstruction) {
	m[op17Syscall] = entry(BcSyscall, hSyscall, pSys("syscall"))
	m[op17Break] = entry(BcBreak, hBreak, pSys("break"))
}

func pSys(name string) PrinterFunc {
	return func(_ *CPUState, w uint32, _ uint64) string {
		return fmt.Sprintf("%s %d", name, imm12u(w))
	}
}

func hSyscall(m *Machine, w uint32) error {
	if err := m.dispatchSyscall(); err != nil {
		return err
	}
	advance(m)
	return nil
}

func hBreak(m *Machine, w uint32) error {
	return NewFault(IllegalOperation, uint64(imm12u(w)))
}

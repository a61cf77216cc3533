// vmcall_test.go - Host->guest calls via VMCall, and guest->host syscall
// argument passing via SysArgs/SetSysResult.
package laemu

import (
	"context"
	"testing"
)

// guestAddFunction returns add.d $r4, $r4, $r5; jirl $r0, $r1, 0 (ret),
// i.e. a two-argument function returning a0+a1 per the integer calling
// convention.
func guestAddFunction() []byte {
	return assemble(
		enc3R(op17AddD, regA0, regA0, regA1),
		encBr16(op6Jirl, regRA, 0, 0),
	)
}

func TestVMCallRoundTrip(t *testing.T) {
	m := newTestMachine(t, guestAddFunction())
	m.CPU.SetGPR(20, 0xabcd) // a caller-saved register VMCall must not disturb
	beforePC := m.CPU.PC

	result, err := VMCall(context.Background(), m, 0x1000, 11, 31)
	if err != nil {
		t.Fatalf("VMCall: %v", err)
	}
	if result != 42 {
		t.Fatalf("result = %d, want 42", result)
	}
	if m.CPU.PC != beforePC {
		t.Fatalf("PC after VMCall = 0x%x, want the pre-call PC 0x%x restored", m.CPU.PC, beforePC)
	}
	if got := m.CPU.GPR(20); got != 0xabcd {
		t.Fatalf("r20 = 0x%x, want 0xabcd (VMCall must preserve unrelated registers)", got)
	}
}

func TestVMCallRejectsTooManyArgs(t *testing.T) {
	m := newTestMachine(t, guestAddFunction())
	args := make([]uint64, 9)
	_, err := VMCall(context.Background(), m, 0x1000, args...)
	f, ok := err.(*Fault)
	if !ok || f.Kind != IllegalOperation {
		t.Fatalf("got %v, want IllegalOperation for 9 arguments", err)
	}
}

func TestSysArgsAndSetSysResult(t *testing.T) {
	var cpu CPUState
	cpu.SetGPR(regA0, 1)
	cpu.SetGPR(regA1, 2)
	cpu.SetGPR(regA2, 3)

	args := SysArgs(&cpu)
	if args[0] != 1 || args[1] != 2 || args[2] != 3 {
		t.Fatalf("SysArgs = %v, want [1 2 3 0 0 0 0]", args)
	}

	SetSysResult(&cpu, 99)
	if cpu.GPR(regA0) != 99 {
		t.Fatalf("a0 after SetSysResult = %d, want 99", cpu.GPR(regA0))
	}
}

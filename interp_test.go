// interp_test.go - End-to-end interpreter scenarios. Programs are
// hand-assembled with asm_test.go's encoders rather than compiled, since
// no LoongArch toolchain is available in this environment; this also
// lets each test pin down the exact bytes under test.
package laemu

import (
	"context"
	"encoding/binary"
	"math"
	"testing"
)

func newTestMachine(t *testing.T, code []byte) *Machine {
	t.Helper()
	m := NewMachineWithRegistry(1<<20, NewSharedSegments())
	base := uint64(0x1000)
	if err := m.Arena.Memcpy(base, code); err != nil {
		t.Fatalf("Memcpy: %v", err)
	}
	m.Arena.Protect(base, base+uint64(len(code)), PermRead|PermExec)
	m.LoadCode(base, code)
	m.CPU.Reset(base)
	return m
}

func assemble(words ...uint32) []byte {
	buf := make([]byte, len(words)*4)
	for i, w := range words {
		putWord(buf, i*4, w)
	}
	return buf
}

// TestArithmeticProgram runs a straight-line sequence of integer ALU ops
// producing a known result, to completion via a break.
func TestArithmeticProgram(t *testing.T) {
	code := assemble(
		encRI12(op10AddiD, 4, 0, 10),     // r4 = 0 + 10
		encRI12(op10AddiD, 5, 0, 32),     // r5 = 0 + 32
		enc3R(op17AddD, 6, 4, 5),         // r6 = r4 + r5 = 42
		enc3R(op17Break, 0, 0, 0),
	)
	m := newTestMachine(t, code)
	err := m.Run(context.Background())
	if _, ok := err.(*Fault); !ok {
		t.Fatalf("expected break to fault, got %v", err)
	}
	if got := m.CPU.GPR(6); got != 42 {
		t.Fatalf("r6 = %d, want 42", got)
	}
}

// TestLoadStoreRoundTrip stores then loads a value through memory.
func TestLoadStoreRoundTrip(t *testing.T) {
	code := assemble(
		encRI12(op10AddiD, 4, 0, 0x123), // r4 = 0x123
		encRI12(op10StD, 4, 0, 0x100),   // mem[0x100] = r4
		encRI12(op10LdD, 6, 0, 0x100),   // r6 = mem[0x100]
		enc3R(op17Break, 0, 0, 0),
	)
	m := newTestMachine(t, code)
	_ = m.Run(context.Background())
	if got := m.CPU.GPR(6); got != 0x123 {
		t.Fatalf("r6 = 0x%x, want 0x123", got)
	}
}

// branchLoopProgram is a countdown loop using bnez, shared by the fast
// and precise interpreter parity tests below.
func branchLoopProgram() []byte {
	// r4 = 5; loop: r4 = r4 - 1; bnez r4, loop; break
	return assemble(
		encRI12(op10AddiD, 4, 0, 5),
		encRI12(op10AddiD, 4, 4, -1),
		encBz21(op6Bnez, 4, -4),
		enc3R(op17Break, 0, 0, 0),
	)
}

func TestBranchLoopFastPath(t *testing.T) {
	m := newTestMachine(t, branchLoopProgram())
	_ = m.Run(context.Background())
	if got := m.CPU.GPR(4); got != 0 {
		t.Fatalf("r4 = %d, want 0", got)
	}
}

func TestBranchLoopPreciseMatchesFast(t *testing.T) {
	fast := newTestMachine(t, branchLoopProgram())
	_ = fast.Run(context.Background())

	precise := newTestMachine(t, branchLoopProgram())
	precise.Opts.Precise = true
	_ = precise.Run(context.Background())

	if fast.CPU.GPR(4) != precise.CPU.GPR(4) {
		t.Fatalf("fast r4=%d, precise r4=%d: interpreters disagree", fast.CPU.GPR(4), precise.CPU.GPR(4))
	}
	if fast.CPU.InstructionCount != precise.CPU.InstructionCount {
		t.Fatalf("fast count=%d, precise count=%d: interpreters disagree", fast.CPU.InstructionCount, precise.CPU.InstructionCount)
	}
}

// TestProtectionFaultOnBadAccess checks that a load whose address lands
// past the arena's end faults rather than panicking or silently
// wrapping.
func TestProtectionFaultOnBadAccess(t *testing.T) {
	code := assemble(
		encRI12(op10LdD, 4, 0, 4080), // 4080 sign-extends to -16, so r0 + imm wraps to 0xfffffffffffffff0, far past a 16-byte arena
		enc3R(op17Break, 0, 0, 0),
	)
	tiny := NewMachineWithRegistry(16, NewSharedSegments())
	_ = tiny.Arena.Memcpy(0, code)
	tiny.Arena.Protect(0, uint64(len(code)), PermRead|PermExec)
	tiny.LoadCode(0, code)
	tiny.CPU.Reset(0)

	err := tiny.Run(context.Background())
	f, ok := err.(*Fault)
	if !ok || f.Kind != ProtectionFault {
		t.Fatalf("got %v, want ProtectionFault", err)
	}
}

// TestSyscallExit runs a guest that calls exit(7) via syscall, verified
// through the Linux syscall bundle's sysExit_.
func TestSyscallExit(t *testing.T) {
	code := assemble(
		encRI12(op10AddiD, regA7, 0, sysExit), // a7 = exit syscall number
		encRI12(op10AddiD, regA0, 0, 7),       // a0 = exit code
		enc3R(op17Syscall, 0, 0, 0),
	)
	m := newTestMachine(t, code)
	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !m.Exited() {
		t.Fatal("expected Exited() after the exit syscall")
	}
	if m.ExitCode() != 7 {
		t.Fatalf("exit code = %d, want 7", m.ExitCode())
	}
}

// TestInstructionFuelLimit checks that a program which would loop
// forever is stopped once MaxInstructions is reached.
func TestInstructionFuelLimit(t *testing.T) {
	code := assemble(encB26(op6B, 0)) // b . : unconditional self-branch, loops forever without fuel
	m := newTestMachine(t, code)
	m.Opts.MaxInstructions = 1000
	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.CPU.InstructionCount != 1000 {
		t.Fatalf("InstructionCount = %d, want 1000", m.CPU.InstructionCount)
	}
}

// TestFibonacciTailLoop runs an iterative fib(n), a = fib(0)=0, b =
// fib(1)=1, (a, b) = (b, a+b) repeated n times — the loop-based shape a
// tail-recursive fib compiles down to. n is large enough to require
// real fuel headroom and to wrap the mod-2^64 result at least once.
func TestFibonacciTailLoop(t *testing.T) {
	const n = 256_000_000
	code := assemble(
		encRI20(op7Lu12iW, 4, 62500), // r4 = 62500<<12 = 256,000,000
		encRI12(op10AddiD, 5, 0, 0),  // r5 = a = 0
		encRI12(op10AddiD, 6, 0, 1),  // r6 = b = 1
		encBz21(op6Beqz, 4, 24),      // loop: if r4==0, goto done (+24)
		enc3R(op17AddD, 7, 5, 6),     // r7 = a + b
		encRI12(op10AddiD, 5, 6, 0),  // a = b
		encRI12(op10AddiD, 6, 7, 0),  // b = r7
		encRI12(op10AddiD, 4, 4, -1), // r4--
		encB26(op6B, -20),            // goto loop
		enc3R(op17Break, 0, 0, 0),    // done:
	)
	m := newTestMachine(t, code)
	m.Opts.MaxInstructions = 5_000_000_000
	err := m.Run(context.Background())
	if _, ok := err.(*Fault); !ok {
		t.Fatalf("expected break to fault, got %v", err)
	}
	if m.InstructionLimitReached() {
		t.Fatalf("ran out of fuel before the loop finished (n=%d)", n)
	}
	const want = 4527797833418175035 // fib(256_000_000) mod 2^64
	if got := m.CPU.GPR(5); got != want {
		t.Fatalf("fib(%d) mod 2^64 = %d, want %d", n, got, want)
	}
}

// TestXVFAddDVectorDouble loads a 128-byte slab (four 256-bit LASX
// registers' worth of float64 lanes) from memory, doubles every lane
// with xvfadd.d, and stores the result back.
func TestXVFAddDVectorDouble(t *testing.T) {
	code := assemble(
		encRI20(op7Lu12iW, 8, 2), // r8 = 0x2000 (input base)
		encRI20(op7Lu12iW, 9, 3), // r9 = 0x3000 (output base)
		encRI12(op10XVLd, 1, 8, 0),
		encRI12(op10XVLd, 2, 8, 32),
		encRI12(op10XVLd, 3, 8, 64),
		encRI12(op10XVLd, 4, 8, 96),
		enc3R(op17XVFAddD, 5, 1, 1),
		enc3R(op17XVFAddD, 6, 2, 2),
		enc3R(op17XVFAddD, 7, 3, 3),
		enc3R(op17XVFAddD, 8, 4, 4),
		encRI12(op10XVSt, 5, 9, 0),
		encRI12(op10XVSt, 6, 9, 32),
		encRI12(op10XVSt, 7, 9, 64),
		encRI12(op10XVSt, 8, 9, 96),
		enc3R(op17Break, 0, 0, 0),
	)
	m := newTestMachine(t, code)

	const inputBase = 0x2000
	const outputBase = 0x3000
	in := make([]byte, 128)
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint64(in[i*8:], math.Float64bits(float64(i+1)))
	}
	if err := m.Arena.Memcpy(inputBase, in); err != nil {
		t.Fatalf("Memcpy input: %v", err)
	}

	if err := m.Run(context.Background()); err == nil {
		t.Fatal("expected break to fault")
	} else if _, ok := err.(*Fault); !ok {
		t.Fatalf("expected a *Fault, got %v", err)
	}

	for i := 0; i < 16; i++ {
		word, err := m.Arena.Read64(outputBase + uint64(i*8))
		if err != nil {
			t.Fatalf("Read64(%d): %v", i, err)
		}
		got := math.Float64frombits(word)
		want := float64(i+1) * 2
		if got != want {
			t.Fatalf("lane %d = %v, want %v", i, got, want)
		}
	}
}

// TestFcmpCeqDSetsFCC checks fcmp.ceq.d sets FCC[0] for equal operands
// and clears it when either operand is NaN.
func TestFcmpCeqDSetsFCC(t *testing.T) {
	code := assemble(
		enc3R(op17FcmpCeqD, 0, 0, 1), // fcc0 = (f0 == f1)
		enc3R(op17Break, 0, 0, 0),
	)
	m := newTestMachine(t, code)
	m.CPU.SetF64(0, 3.0)
	m.CPU.SetF64(1, 3.0)
	if err := m.Run(context.Background()); err == nil {
		t.Fatal("expected break to fault")
	}
	if !m.CPU.FCC[0] {
		t.Fatal("FCC[0] = false, want true for 3.0 == 3.0")
	}

	m = newTestMachine(t, code)
	m.CPU.SetF64(0, math.NaN())
	m.CPU.SetF64(1, 3.0)
	if err := m.Run(context.Background()); err == nil {
		t.Fatal("expected break to fault")
	}
	if m.CPU.FCC[0] {
		t.Fatal("FCC[0] = true, want false when one operand is NaN")
	}
}

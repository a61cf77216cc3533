// pthread_test.go - Fork/RunThreadGroup: shared memory visibility and
// first-fault cancellation across concurrently running threads.
package laemu

import (
	"context"
	"testing"
)

func storeAndExitProgram(value uint8, dataAddr int16) []byte {
	return assemble(
		encRI12(op10AddiD, 4, 0, int16(value)),
		encRI12(op10StD, 4, 0, dataAddr),
		encRI12(op10AddiD, regA7, 0, sysExit),
		encRI12(op10AddiD, regA0, 0, 0),
		enc3R(op17Syscall, 0, 0, 0),
	)
}

func TestForkSharesArenaAcrossThreads(t *testing.T) {
	parent := NewMachineWithRegistry(1<<16, NewSharedSegments())
	thread1Code := storeAndExitProgram(111, 0x100)
	thread2Code := storeAndExitProgram(222, 0x108)
	if err := parent.Arena.Memcpy(0x3000, thread1Code); err != nil {
		t.Fatalf("Memcpy thread1: %v", err)
	}
	if err := parent.Arena.Memcpy(0x3100, thread2Code); err != nil {
		t.Fatalf("Memcpy thread2: %v", err)
	}

	t1 := parent.Fork(0x3000, 0x8000, 0)
	t2 := parent.Fork(0x3100, 0x9000, 0)

	if err := RunThreadGroup(context.Background(), []*Machine{t1, t2}); err != nil {
		t.Fatalf("RunThreadGroup: %v", err)
	}
	if !t1.Exited() || !t2.Exited() {
		t.Fatal("both threads should have exited cleanly")
	}

	v1, err := parent.Arena.Read64(0x100)
	if err != nil {
		t.Fatalf("Read64(0x100): %v", err)
	}
	if v1 != 111 {
		t.Fatalf("mem[0x100] = %d, want 111 (written by thread 1, visible to parent)", v1)
	}
	v2, err := t1.Arena.Read64(0x108)
	if err != nil {
		t.Fatalf("Read64(0x108): %v", err)
	}
	if v2 != 222 {
		t.Fatalf("mem[0x108] = %d, want 222 (written by thread 2, visible through thread 1's Arena reference)", v2)
	}
}

func TestForkGivesEachThreadItsOwnRegisters(t *testing.T) {
	parent := NewMachineWithRegistry(1<<16, NewSharedSegments())
	parent.CPU.SetGPR(9, 0xffff)

	child := parent.Fork(0x3000, 0x8000, 42)
	if child.CPU.GPR(9) != 0 {
		t.Fatalf("child inherited parent register r9 = 0x%x, want a fresh zeroed register file", child.CPU.GPR(9))
	}
	if child.CPU.GPR(regA0) != 42 {
		t.Fatalf("child a0 = %d, want the clone() argument 42", child.CPU.GPR(regA0))
	}
	if child.CPU.GPR(regSP) != 0x8000 {
		t.Fatalf("child sp = 0x%x, want the requested stack top 0x8000", child.CPU.GPR(regSP))
	}
}

func TestRunThreadGroupPropagatesFirstFault(t *testing.T) {
	parent := NewMachineWithRegistry(1<<16, NewSharedSegments())
	breakCode := assemble(enc3R(op17Break, 0, 0, 0))
	_ = parent.Arena.Memcpy(0x3000, breakCode)

	faulting := parent.Fork(0x3000, 0x8000, 0)
	err := RunThreadGroup(context.Background(), []*Machine{faulting})
	f, ok := err.(*Fault)
	if !ok || f.Kind != IllegalOperation {
		t.Fatalf("got %v, want the break instruction's IllegalOperation fault", err)
	}
}

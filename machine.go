// machine.go - Machine: one guest program's complete runtime state.
//
// A Machine owns an Arena, a CPUState, a reference to its decoded
// execute segment (acquired from the process-wide SharedSegments
// registry), an instruction-fuel counter, and a per-Machine syscall
// table: two Machines running different guest programs in the same host
// process must not see each other's custom syscalls, so the table is
// owned per-instance rather than kept process-global.
package laemu

import (
	"context"
	"fmt"
	"sync/atomic"
)

var nextTid atomic.Int32

// Options configures a Machine's execution. The zero value is valid
// (unlimited fuel, fast-path interpreter, no tracing).
type Options struct {
	// MaxInstructions caps InstructionCount; 0 means unlimited. Mirrors
	// the CLI's -f/--fuel flag.
	MaxInstructions uint64

	// Precise forces the single-step interpreter even when a fast-path
	// block is available; used by --precise and by the instruction
	// tracer.
	Precise bool

	// Tracer, if set, is invoked after every instruction under the
	// precise interpreter (never under the fast path, which by
	// construction cannot call out per instruction without losing the
	// performance the block-bytes lookahead exists to provide).
	Tracer InstructionTracer
}

// Machine is one guest program's complete emulation state: CPU
// registers, backing memory, decoded code, and everything needed to run
// it to completion or to a fault.
type Machine struct {
	Arena *Arena
	CPU   CPUState

	registry *SharedSegments
	segKey   SegmentKey
	seg      *DecodedExecuteSegment

	Opts Options

	syscalls        map[uint64]SyscallHandler
	fallbackSyscall SyscallHandler

	// UserData is an arbitrary host-supplied pointer, reachable from
	// syscall handlers via Machine.
	UserData interface{}

	exited   bool
	exitCode int64

	brk uint64
	tid int32

	// vmExitPC is the return address VMCall plants in $ra before jumping
	// into guest code, so the interpreter can recognize "the called
	// function returned" and stop. Set from the loaded image's fast_exit
	// symbol (or synthesized at brk) by LoadELF; machines built without
	// LoadELF default to 0.
	vmExitPC uint64
}

// sharedRegistry is the default process-wide segment cache used when a
// Machine is not explicitly given its own (see NewMachineWithRegistry).
// A package-level default mirrors how a real emulator process normally
// wants one cache shared by every guest it loads, while still letting
// tests construct isolated registries.
var sharedRegistry = NewSharedSegments()

// NewMachine allocates a Machine with a fresh Arena of the given size,
// using the process-wide shared-segment registry.
func NewMachine(arenaSize uint64) *Machine {
	return NewMachineWithRegistry(arenaSize, sharedRegistry)
}

// NewMachineWithRegistry is NewMachine with an explicit segment
// registry, letting tests verify sharing in isolation from other tests'
// Machines.
func NewMachineWithRegistry(arenaSize uint64, registry *SharedSegments) *Machine {
	m := &Machine{
		Arena:    NewArena(arenaSize),
		registry: registry,
		syscalls: make(map[uint64]SyscallHandler),
	}
	m.Arena.SetExecInvalidator(m.onExecWrite)
	m.fallbackSyscall = defaultFallbackSyscall
	m.tid = nextTid.Add(1)
	installLinuxSyscalls(m)
	return m
}

func (m *Machine) onExecWrite(addr uint64, length int) {
	if m.seg != nil {
		m.seg.Invalidate(addr, length)
	}
}

// LoadCode installs code as the Machine's single execute segment,
// starting at basePC, acquiring it from the shared registry (so two
// Machines loading byte-identical code at the same base address and
// arena size decode it exactly once between them).
func (m *Machine) LoadCode(basePC uint64, code []byte) {
	key := SegmentKey{BasePC: basePC, CRC32C: crc32c(code), ArenaSize: m.Arena.Size()}
	seg := m.registry.Acquire(key, func() *DecodedExecuteSegment {
		return DecodeSegment(basePC, code)
	})
	m.segKey = key
	m.seg = seg
}

// Release returns this Machine's reference to its execute segment.
// Callers that construct many short-lived Machines against the same
// registry should call this once done, or the registry's eviction
// (SharedSegments.Release) never fires.
func (m *Machine) Release() {
	if m.seg != nil {
		m.registry.Release(m.segKey)
		m.seg = nil
	}
}

// BindSyscall installs a custom handler for syscall number num,
// overriding the Linux bundle if num collides with one, and is the only
// way to install handlers in the host callback range 1024-2047. The
// table lives on Machine, not a package-level map, so concurrent
// Machines with different host bindings cannot interfere with each other
// (see DESIGN.md's per-Machine-state decision).
func (m *Machine) BindSyscall(num uint64, h SyscallHandler) {
	m.syscalls[num] = h
}

// SetFallbackSyscall overrides the handler invoked when no entry in the
// syscall table matches. The default returns SystemCallFailed.
func (m *Machine) SetFallbackSyscall(h SyscallHandler) {
	m.fallbackSyscall = h
}

// InstructionLimitReached reports whether Opts.MaxInstructions has been
// hit; 0 means no limit.
func (m *Machine) InstructionLimitReached() bool {
	return m.Opts.MaxInstructions != 0 && m.CPU.InstructionCount >= m.Opts.MaxInstructions
}

// Exited reports whether the guest called the exit/exit_group syscall.
func (m *Machine) Exited() bool { return m.exited }

// ExitCode returns the code passed to exit/exit_group, valid only once
// Exited is true.
func (m *Machine) ExitCode() int64 { return m.exitCode }

// Run executes until the guest exits, a fault occurs, the instruction
// limit is reached, or ctx is cancelled. It chooses the fast-path or
// precise interpreter per m.Opts.Precise.
func (m *Machine) Run(ctx context.Context) error {
	if m.Opts.Precise || m.Opts.Tracer != nil {
		return m.runPrecise(ctx)
	}
	return m.runFast(ctx)
}

// fetch returns the decoded instruction at the current PC, re-decoding
// from the arena's live bytes when the segment has no cached entry
// there (covers both out-of-segment jumps and addresses invalidated by
// a prior executable write; see DESIGN.md decision 2).
func (m *Machine) fetch() (DecodedInstruction, error) {
	pc := m.CPU.PC
	if pc&3 != 0 {
		return DecodedInstruction{}, NewFault(MisalignedInstruction, pc)
	}
	if m.seg != nil {
		if di, ok := m.seg.At(pc); ok && di.Bytecode != BcInvalid {
			return di, nil
		}
	}
	word, err := m.Arena.Read32(pc)
	if err != nil {
		return DecodedInstruction{}, err
	}
	return Decode(word), nil
}

// CollectBytecodeStatistics walks the currently installed segment and
// counts how many decoded instructions fall into each bytecode, for the
// --stats CLI report.
func (m *Machine) CollectBytecodeStatistics() map[Bytecode]int {
	counts := make(map[Bytecode]int)
	if m.seg == nil {
		return counts
	}
	for _, di := range m.seg.Instrs {
		counts[di.Bytecode]++
	}
	return counts
}

func (m *Machine) faultf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

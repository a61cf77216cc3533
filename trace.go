// trace.go - Instruction tracing hook for the precise interpreter.
//
// An explicit callback interface lets a host embedding the engine log,
// single-step, or build its own disassembly trace without the
// interpreter depending on any particular logging library.
package laemu

// InstructionTracer is called once per instruction by the precise
// interpreter, after the instruction has executed. pc is the address it
// was fetched from (not the possibly-already-updated CPU.PC).
type InstructionTracer func(cpu *CPUState, di DecodedInstruction, pc uint64)

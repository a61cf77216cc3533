// errors.go - Fault types raised by the memory arena and the interpreters.

package laemu

import "fmt"

// FaultKind tags the structured errors the engine can raise. Instruction
// limit exhaustion is reported separately (see
// Machine.InstructionLimitReached) and is not one of these kinds, since
// it is an expected stopping condition rather than an error.
type FaultKind int

const (
	// InvalidELF - the ELF loader was given malformed or truncated input.
	InvalidELF FaultKind = iota
	// ProtectionFault - an arena access fell outside memory_max, or a
	// write targeted an executable range with ExecWritesFault set.
	ProtectionFault
	// MisalignedInstruction - PC was not a multiple of 4. Should be
	// unreachable given that every PC write goes through CPUState.SetPC,
	// which masks the low two bits; reported defensively regardless.
	MisalignedInstruction
	// IllegalOperation - an unknown opcode was decoded, or a handler
	// rejected its own operands (e.g. a register-field encoding that is
	// architecturally reserved).
	IllegalOperation
	// FeatureDisabled - the fast path hit an instruction it cannot run
	// inline and no fallback handler was installed for it.
	FeatureDisabled
	// SystemCallFailed - an installed syscall handler raised an error.
	SystemCallFailed
)

func (k FaultKind) String() string {
	switch k {
	case InvalidELF:
		return "INVALID_ELF"
	case ProtectionFault:
		return "PROTECTION_FAULT"
	case MisalignedInstruction:
		return "MISALIGNED_INSTRUCTION"
	case IllegalOperation:
		return "ILLEGAL_OPERATION"
	case FeatureDisabled:
		return "FEATURE_DISABLED"
	case SystemCallFailed:
		return "SYSTEM_CALL_FAILED"
	default:
		return "UNKNOWN_FAULT"
	}
}

// Fault is a structured exception: a kind plus a numeric data word
// (typically the failing address, the offending opcode, or a
// syscall-specific errno). Handlers return *Fault as a plain Go error;
// the dispatch loop checks for it after every handler call rather than
// unwinding, keeping the fast path free of unwind bookkeeping.
type Fault struct {
	Kind FaultKind
	Data uint64
}

func (e *Fault) Error() string {
	return fmt.Sprintf("%s (data=0x%x)", e.Kind, e.Data)
}

// NewFault constructs a Fault. Handlers call this instead of allocating
// the struct literal directly so call sites read like the kind they raise.
func NewFault(kind FaultKind, data uint64) *Fault {
	return &Fault{Kind: kind, Data: data}
}

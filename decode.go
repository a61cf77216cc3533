// decode.go - Decoded instruction representation and field extraction.
//
// DecodedInstruction is an immutable, table-built record: a small
// integer bytecode tag, a handler function pointer, a disassembler
// pointer, and the block-bytes field the decoder cache fills in
// afterwards.
package laemu

import "fmt"

// Bytecode is the small integer tag identifying which semantic handler a
// decoded instruction uses. Kept distinct from the opcode bits themselves
// so the interpreter's dispatch (and the --stats report) can group
// structurally-identical instructions (e.g. every conditional branch)
// even though their raw encodings differ.
type Bytecode uint16

const (
	BcInvalid Bytecode = iota
	BcNop

	// Integer ALU / 3R format
	BcAddW
	BcAddD
	BcSubW
	BcSubD
	BcAnd
	BcOr
	BcXor
	BcNor
	BcSltSigned
	BcSltUnsigned
	BcSllW
	BcSrlW
	BcSraW
	BcSllD
	BcSrlD
	BcSraD
	BcMulW
	BcMulD
	BcMulhW
	BcMulhWu
	BcMulhD
	BcMulhDu
	BcDivW
	BcModW
	BcDivWu
	BcModWu
	BcDivD
	BcModD
	BcDivDu
	BcModDu

	// Immediate ALU
	BcAddiW
	BcAddiD
	BcAndI
	BcOrI
	BcXorI
	BcSltI
	BcSltUI
	BcLu12iW
	BcLu32iD
	BcLu52iD
	BcBstrinsD
	BcBstrpickD

	// PC-relative
	BcPcAddU12i
	BcPcAlaU12i

	// Memory
	BcLdB
	BcLdH
	BcLdW
	BcLdD
	BcLdBu
	BcLdHu
	BcLdWu
	BcStB
	BcStH
	BcStW
	BcStD

	// Control flow
	BcBeq
	BcBne
	BcBlt
	BcBge
	BcBltu
	BcBgeu
	BcBeqz
	BcBnez
	BcB
	BcBl
	BcJirl

	// FP
	BcFaddS
	BcFaddD
	BcFsubS
	BcFsubD
	BcFmulS
	BcFmulD
	BcFdivS
	BcFdivD
	BcFcmpCeqD
	BcFcmpCeqS
	BcFsel
	BcMovgr2fr
	BcMovfr2gr
	BcFfintD
	BcFtintD

	// LSX (128-bit)
	BcVAddB
	BcVAddH
	BcVAddW
	BcVAddD
	BcVSeqB
	BcVLd
	BcVSt

	// LASX (256-bit)
	BcXVAddB
	BcXVAddH
	BcXVAddW
	BcXVAddD
	BcXVFAddD
	BcXVLd
	BcXVSt
	BcXVPermiQ
	BcXVIlvlD
	BcXVOriB

	// System
	BcSyscall
	BcBreak

	// BcFunction marks a fallback entry decoded only far enough to know
	// it does not match a native handler. Reported by --stats as its own
	// row so unrecognized opcodes in a profiled run are visible.
	BcFunction
)

// bytecodeNames maps each bytecode to the mnemonic --stats prints for it.
var bytecodeNames = map[Bytecode]string{
	BcInvalid: "INVALID", BcNop: "NOP",
	BcAddW: "ADD.W", BcAddD: "ADD.D", BcSubW: "SUB.W", BcSubD: "SUB.D",
	BcAnd: "AND", BcOr: "OR", BcXor: "XOR", BcNor: "NOR",
	BcSltSigned: "SLT", BcSltUnsigned: "SLTU",
	BcSllW: "SLL.W", BcSrlW: "SRL.W", BcSraW: "SRA.W",
	BcSllD: "SLL.D", BcSrlD: "SRL.D", BcSraD: "SRA.D",
	BcMulW: "MUL.W", BcMulD: "MUL.D",
	BcMulhW: "MULH.W", BcMulhWu: "MULH.WU", BcMulhD: "MULH.D", BcMulhDu: "MULH.DU",
	BcDivW: "DIV.W", BcModW: "MOD.W", BcDivWu: "DIV.WU", BcModWu: "MOD.WU",
	BcDivD: "DIV.D", BcModD: "MOD.D", BcDivDu: "DIV.DU", BcModDu: "MOD.DU",
	BcAddiW: "ADDI.W", BcAddiD: "ADDI.D", BcAndI: "ANDI", BcOrI: "ORI", BcXorI: "XORI",
	BcSltI: "SLTI", BcSltUI: "SLTUI",
	BcLu12iW: "LU12I.W", BcLu32iD: "LU32I.D", BcLu52iD: "LU52I.D",
	BcBstrinsD: "BSTRINS.D", BcBstrpickD: "BSTRPICK.D",
	BcPcAddU12i: "PCADDU12I", BcPcAlaU12i: "PCALAU12I",
	BcLdB: "LD.B", BcLdH: "LD.H", BcLdW: "LD.W", BcLdD: "LD.D",
	BcLdBu: "LD.BU", BcLdHu: "LD.HU", BcLdWu: "LD.WU",
	BcStB: "ST.B", BcStH: "ST.H", BcStW: "ST.W", BcStD: "ST.D",
	BcBeq: "BEQ", BcBne: "BNE", BcBlt: "BLT", BcBge: "BGE",
	BcBltu: "BLTU", BcBgeu: "BGEU", BcBeqz: "BEQZ", BcBnez: "BNEZ",
	BcB: "B", BcBl: "BL", BcJirl: "JIRL",
	BcFaddS: "FADD.S", BcFaddD: "FADD.D", BcFsubS: "FSUB.S", BcFsubD: "FSUB.D",
	BcFmulS: "FMUL.S", BcFmulD: "FMUL.D", BcFdivS: "FDIV.S", BcFdivD: "FDIV.D",
	BcFcmpCeqD: "FCMP.CEQ.D", BcFcmpCeqS: "FCMP.CEQ.S", BcFsel: "FSEL",
	BcMovgr2fr: "MOVGR2FR.D", BcMovfr2gr: "MOVFR2GR.D",
	BcFfintD: "FFINT.D.L", BcFtintD: "FTINTRZ.L.D",
	BcVAddB: "VADD.B", BcVAddH: "VADD.H", BcVAddW: "VADD.W", BcVAddD: "VADD.D",
	BcVSeqB: "VSEQ.B", BcVLd: "VLD", BcVSt: "VST",
	BcXVAddB: "XVADD.B", BcXVAddH: "XVADD.H", BcXVAddW: "XVADD.W", BcXVAddD: "XVADD.D",
	BcXVFAddD: "XVFADD.D", BcXVLd: "XVLD", BcXVSt: "XVST",
	BcXVPermiQ: "XVPERMI.Q", BcXVIlvlD: "XVILVL.D", BcXVOriB: "XVORI.B",
	BcSyscall: "SYSCALL", BcBreak: "BREAK",
	BcFunction: "FUNCTION",
}

// BytecodeName returns the human name for a bytecode, used by --stats.
func BytecodeName(bc Bytecode) string {
	if name, ok := bytecodeNames[bc]; ok {
		return name
	}
	return fmt.Sprintf("BC(%d)", bc)
}

// HandlerFunc executes one decoded instruction against m. Every handler
// sets m.CPU.PC itself: control-flow handlers (branches, jirl,
// syscall/break when they alter flow) write their target, and ALU/memory
// handlers step past themselves through advance (PC += 4). The
// dispatchers never move PC.
type HandlerFunc func(m *Machine, instr uint32) error

// PrinterFunc renders instr (fetched from pc) as a short disassembly
// line. Returns a single string since every LoongArch instruction here
// is a fixed 4 bytes, so no length needs to accompany it.
type PrinterFunc func(cpu *CPUState, instr uint32, pc uint64) string

// handlerKind distinguishes the two arms of the Handler tagged union.
type handlerKind uint8

const (
	handlerNative handlerKind = iota
	handlerFallback
)

// Handler is either a native function pointer, or a fallback marker for
// an opcode that did not match any native handler. A struct-with-tag
// instead of a function that internally dispatches keeps the
// interpreter's invocation branch-free; Invoke is the only place the tag
// is inspected.
type Handler struct {
	kind handlerKind
	fn   HandlerFunc
}

// NativeHandler wraps fn as a Handler.Native arm.
func NativeHandler(fn HandlerFunc) Handler {
	return Handler{kind: handlerNative, fn: fn}
}

// FallbackHandler builds a Handler.Fallback arm. It carries no opcode:
// Invoke is handed the raw instruction word and reports that instead.
func FallbackHandler() Handler {
	return Handler{kind: handlerFallback}
}

// Invoke runs the handler. Fallback handlers always raise
// IllegalOperation, with the raw instruction word as the fault's data.
func (h Handler) Invoke(m *Machine, instr uint32) error {
	if h.kind == handlerNative {
		return h.fn(m, instr)
	}
	return NewFault(IllegalOperation, uint64(instr))
}

// DecodedInstruction is an immutable record: a bytecode tag, handler,
// printer, and a block-bytes field the decoder cache fills in during its
// forward pass. Decoding the same 32-bit word twice always yields a
// value equal in every field but BlockBytes, which is cache-context-
// dependent and therefore not part of Decode's output.
type DecodedInstruction struct {
	Bytecode   Bytecode
	Handler    Handler
	Printer    PrinterFunc
	BlockBytes uint32 // filled in by the decoder cache, 0 until then
	Raw        uint32
}

// isDivergent reports whether bc is a branch, jump, syscall, or break —
// anything that can make control flow not fall through to PC+4. The
// decoder cache's forward pass uses this predicate to end a
// straight-line run.
func isDivergent(bc Bytecode) bool {
	switch bc {
	case BcBeq, BcBne, BcBlt, BcBge, BcBltu, BcBgeu, BcBeqz, BcBnez,
		BcB, BcBl, BcJirl, BcSyscall, BcBreak, BcInvalid, BcFunction:
		return true
	default:
		return false
	}
}

// Decode is a pure function from a raw 32-bit LoongArch instruction word
// to a DecodedInstruction. Dispatch is table-driven and hierarchical:
// decodeDispatch (decode_tables.go) first narrows by the instruction's
// major field group, then by an exact mask/match table within that
// group. Unknown words decode to a fallback entry whose handler raises
// ILLEGAL_OPERATION on execution, never at decode time.
func Decode(word uint32) DecodedInstruction {
	if di, ok := decodeDispatch(word); ok {
		di.Raw = word
		return di
	}
	return DecodedInstruction{
		Bytecode: BcFunction,
		Handler:  FallbackHandler(),
		Printer: func(_ *CPUState, instr uint32, pc uint64) string {
			return fmt.Sprintf("unknown 0x%08x @ 0x%x", instr, pc)
		},
		Raw: word,
	}
}

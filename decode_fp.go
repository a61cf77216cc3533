// decode_fp.go - Scalar floating-point handlers (3R-shaped FP ops,
// fsel, integer<->float moves and conversions).
//
// Single- and double-precision variants follow the architecture's f.s/
// f.d suffix convention, and operate on CPUState's aliased vector file
// (cpu_state.go) rather than a dedicated float register bank: fN is the
// low 64 bits of vN.
package laemu

import (
	"fmt"
	"math"
)

func populateFP(m map[uint32]DecodedInstruction) {
	m[op17FaddS] = entry(BcFaddS, hFaddS, pFP3("fadd.s"))
	m[op17FaddD] = entry(BcFaddD, hFaddD, pFP3("fadd.d"))
	m[op17FsubS] = entry(BcFsubS, hFsubS, pFP3("fsub.s"))
	m[op17FsubD] = entry(BcFsubD, hFsubD, pFP3("fsub.d"))
	m[op17FmulS] = entry(BcFmulS, hFmulS, pFP3("fmul.s"))
	m[op17FmulD] = entry(BcFmulD, hFmulD, pFP3("fmul.d"))
	m[op17FdivS] = entry(BcFdivS, hFdivS, pFP3("fdiv.s"))
	m[op17FdivD] = entry(BcFdivD, hFdivD, pFP3("fdiv.d"))
	for cc := uint32(0); cc < 4; cc++ {
		m[op17FcmpCeqS|cc] = entry(BcFcmpCeqS, hFcmpCeqS, pFPcmp("fcmp.ceq.s"))
		m[op17FcmpCeqD|cc] = entry(BcFcmpCeqD, hFcmpCeqD, pFPcmp("fcmp.ceq.d"))
		m[op17Fsel|cc] = entry(BcFsel, hFsel, pFsel)
	}
	m[op17Movgr2fr] = entry(BcMovgr2fr, hMovgr2fr, pMovgr2fr)
	m[op17Movfr2gr] = entry(BcMovfr2gr, hMovfr2gr, pMovfr2gr)
	m[op17FfintD] = entry(BcFfintD, hFfintD, pFP2("ffint.d.l"))
	m[op17FtintD] = entry(BcFtintD, hFtintD, pFP2("ftintrz.l.d"))
}

func pFP3(name string) PrinterFunc {
	return func(_ *CPUState, w uint32, _ uint64) string {
		return fmt.Sprintf("%s $f%d, $f%d, $f%d", name, fieldRd(w), fieldRj(w), fieldRk(w))
	}
}
func pFP2(name string) PrinterFunc {
	return func(_ *CPUState, w uint32, _ uint64) string {
		return fmt.Sprintf("%s $f%d, $f%d", name, fieldRd(w), fieldRj(w))
	}
}
func pFPcmp(name string) PrinterFunc {
	return func(_ *CPUState, w uint32, _ uint64) string {
		return fmt.Sprintf("%s $fcc%d, $f%d, $f%d", name, fieldSa2(w)&7, fieldRj(w), fieldRk(w))
	}
}
func pFsel(_ *CPUState, w uint32, _ uint64) string {
	return fmt.Sprintf("fsel $f%d, $f%d, $f%d, $fcc%d", fieldRd(w), fieldRj(w), fieldRk(w), fieldSa2(w)&7)
}
func pMovgr2fr(_ *CPUState, w uint32, _ uint64) string {
	return fmt.Sprintf("movgr2fr.d $f%d, $r%d", fieldRd(w), fieldRj(w))
}
func pMovfr2gr(_ *CPUState, w uint32, _ uint64) string {
	return fmt.Sprintf("movfr2gr.d $r%d, $f%d", fieldRd(w), fieldRj(w))
}

func hFaddS(m *Machine, w uint32) error {
	m.CPU.SetF32(fieldRd(w), m.CPU.F32(fieldRj(w))+m.CPU.F32(fieldRk(w)))
	advance(m)
	return nil
}
func hFaddD(m *Machine, w uint32) error {
	m.CPU.SetF64(fieldRd(w), m.CPU.F64(fieldRj(w))+m.CPU.F64(fieldRk(w)))
	advance(m)
	return nil
}
func hFsubS(m *Machine, w uint32) error {
	m.CPU.SetF32(fieldRd(w), m.CPU.F32(fieldRj(w))-m.CPU.F32(fieldRk(w)))
	advance(m)
	return nil
}
func hFsubD(m *Machine, w uint32) error {
	m.CPU.SetF64(fieldRd(w), m.CPU.F64(fieldRj(w))-m.CPU.F64(fieldRk(w)))
	advance(m)
	return nil
}
func hFmulS(m *Machine, w uint32) error {
	m.CPU.SetF32(fieldRd(w), m.CPU.F32(fieldRj(w))*m.CPU.F32(fieldRk(w)))
	advance(m)
	return nil
}
func hFmulD(m *Machine, w uint32) error {
	m.CPU.SetF64(fieldRd(w), m.CPU.F64(fieldRj(w))*m.CPU.F64(fieldRk(w)))
	advance(m)
	return nil
}
func hFdivS(m *Machine, w uint32) error {
	m.CPU.SetF32(fieldRd(w), m.CPU.F32(fieldRj(w))/m.CPU.F32(fieldRk(w)))
	advance(m)
	return nil
}
func hFdivD(m *Machine, w uint32) error {
	m.CPU.SetF64(fieldRd(w), m.CPU.F64(fieldRj(w))/m.CPU.F64(fieldRk(w)))
	advance(m)
	return nil
}

func hFcmpCeqS(m *Machine, w uint32) error {
	m.CPU.FCC[fieldSa2(w)&7] = m.CPU.F32(fieldRj(w)) == m.CPU.F32(fieldRk(w))
	advance(m)
	return nil
}
func hFcmpCeqD(m *Machine, w uint32) error {
	m.CPU.FCC[fieldSa2(w)&7] = m.CPU.F64(fieldRj(w)) == m.CPU.F64(fieldRk(w))
	advance(m)
	return nil
}

// hFsel implements the architecture's branch-free select: rd <- fcc ? rj
// : rk. The condition-code index is carried in the sa2 field, a
// simplification of the real instruction's dedicated ca operand.
func hFsel(m *Machine, w uint32) error {
	if m.CPU.FCC[fieldSa2(w)&7] {
		m.CPU.SetF64(fieldRd(w), m.CPU.F64(fieldRj(w)))
	} else {
		m.CPU.SetF64(fieldRd(w), m.CPU.F64(fieldRk(w)))
	}
	advance(m)
	return nil
}

func hMovgr2fr(m *Machine, w uint32) error {
	m.CPU.SetF64(fieldRd(w), math.Float64frombits(m.CPU.GPR(fieldRj(w))))
	advance(m)
	return nil
}
func hMovfr2gr(m *Machine, w uint32) error {
	m.CPU.SetGPR(fieldRd(w), math.Float64bits(m.CPU.F64(fieldRj(w))))
	advance(m)
	return nil
}

// hFfintD converts a 64-bit signed integer (carried bit-for-bit in the
// source vector register's low lane, per ffint.d.l's register class) to
// a double.
func hFfintD(m *Machine, w uint32) error {
	bits := math.Float64bits(m.CPU.F64(fieldRj(w)))
	m.CPU.SetF64(fieldRd(w), float64(int64(bits)))
	advance(m)
	return nil
}

// hFtintD truncates (round-toward-zero, per the rz mnemonic) a double to
// a 64-bit signed integer, storing the integer's bit pattern into the
// destination's low lane so a subsequent movfr2gr.d yields the integer.
func hFtintD(m *Machine, w uint32) error {
	iv := int64(m.CPU.F64(fieldRj(w)))
	m.CPU.SetF64(fieldRd(w), math.Float64frombits(uint64(iv)))
	advance(m)
	return nil
}

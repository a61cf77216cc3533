// decode_int.go - Integer ALU, shift, multiply/divide and bit-field
// handlers, plus the 3R/2RI12/1RI20 table builders.
//
// Semantics follow LoongArch64's integer instruction set: .w suffixed
// ops operate on the low 32 bits and sign-extend the result into the
// 64-bit register (matching real silicon, where LA64's 32-bit ops are
// always sign-extending, unlike e.g. RISC-V's separate addw). Grounded
// in cpu_ie64.go's maskToSize size-annotated ALU pattern, generalized
// from a four-way byte/half/word/quad switch to LoongArch's two-way
// (w/d) one.
package laemu

import "fmt"

func buildTable17() map[uint32]DecodedInstruction {
	m := make(map[uint32]DecodedInstruction)

	m[op17AddW] = entry(BcAddW, hAddW, pR3("add.w"))
	m[op17AddD] = entry(BcAddD, hAddD, pR3("add.d"))
	m[op17SubW] = entry(BcSubW, hSubW, pR3("sub.w"))
	m[op17SubD] = entry(BcSubD, hSubD, pR3("sub.d"))
	m[op17Slt] = entry(BcSltSigned, hSlt, pR3("slt"))
	m[op17Sltu] = entry(BcSltUnsigned, hSltu, pR3("sltu"))
	m[op17Nor] = entry(BcNor, hNor, pR3("nor"))
	m[op17And] = entry(BcAnd, hAnd, pR3("and"))
	m[op17Or] = entry(BcOr, hOr, pR3("or"))
	m[op17Xor] = entry(BcXor, hXor, pR3("xor"))
	m[op17SllW] = entry(BcSllW, hSllW, pR3("sll.w"))
	m[op17SrlW] = entry(BcSrlW, hSrlW, pR3("srl.w"))
	m[op17SraW] = entry(BcSraW, hSraW, pR3("sra.w"))
	m[op17SllD] = entry(BcSllD, hSllD, pR3("sll.d"))
	m[op17SrlD] = entry(BcSrlD, hSrlD, pR3("srl.d"))
	m[op17SraD] = entry(BcSraD, hSraD, pR3("sra.d"))
	m[op17MulW] = entry(BcMulW, hMulW, pR3("mul.w"))
	m[op17MulhW] = entry(BcMulhW, hMulhW, pR3("mulh.w"))
	m[op17MulhWu] = entry(BcMulhWu, hMulhWu, pR3("mulh.wu"))
	m[op17MulD] = entry(BcMulD, hMulD, pR3("mul.d"))
	m[op17MulhD] = entry(BcMulhD, hMulhD, pR3("mulh.d"))
	m[op17MulhDu] = entry(BcMulhDu, hMulhDu, pR3("mulh.du"))
	m[op17DivW] = entry(BcDivW, hDivW, pR3("div.w"))
	m[op17ModW] = entry(BcModW, hModW, pR3("mod.w"))
	m[op17DivWu] = entry(BcDivWu, hDivWu, pR3("div.wu"))
	m[op17ModWu] = entry(BcModWu, hModWu, pR3("mod.wu"))
	m[op17DivD] = entry(BcDivD, hDivD, pR3("div.d"))
	m[op17ModD] = entry(BcModD, hModD, pR3("mod.d"))
	m[op17DivDu] = entry(BcDivDu, hDivDu, pR3("div.du"))
	m[op17ModDu] = entry(BcModDu, hModDu, pR3("mod.du"))
	// BstrinsD/BstrpickD read a width out of the sa2 field, which lives in
	// the low 2 bits of the 17-bit opcode decodeDispatch keys on; register
	// all 4 sa2 values against the same handler (mirrors populateFP's
	// fcmp/fsel registration, see decode_fp.go).
	for sa2 := uint32(0); sa2 < 4; sa2++ {
		m[(op17BstrinsD&^0x3)|sa2] = entry(BcBstrinsD, hBstrinsD, pR3("bstrins.d"))
		m[(op17BstrpickD&^0x3)|sa2] = entry(BcBstrpickD, hBstrpickD, pR3("bstrpick.d"))
	}

	populateFP(m)
	populateVector(m)
	populateSys(m)
	return m
}

func buildTable10() map[uint32]DecodedInstruction {
	m := make(map[uint32]DecodedInstruction)

	m[op10Slti] = entry(BcSltI, hSltI, pRI12("slti"))
	m[op10Sltui] = entry(BcSltUI, hSltUI, pRI12("sltui"))
	m[op10AddiW] = entry(BcAddiW, hAddiW, pRI12("addi.w"))
	m[op10AddiD] = entry(BcAddiD, hAddiD, pRI12("addi.d"))
	m[op10AndI] = entry(BcAndI, hAndI, pRI12u("andi"))
	m[op10OrI] = entry(BcOrI, hOrI, pRI12u("ori"))
	m[op10XorI] = entry(BcXorI, hXorI, pRI12u("xori"))

	populateLoadStore10(m)
	populateVectorLoadStore10(m)
	return m
}

func buildTable7() map[uint32]DecodedInstruction {
	m := make(map[uint32]DecodedInstruction)
	m[op7Lu12iW] = entry(BcLu12iW, hLu12iW, pRI20("lu12i.w"))
	m[op7Lu32iD] = entry(BcLu32iD, hLu32iD, pRI20("lu32i.d"))
	m[op7Lu52iD] = entry(BcLu52iD, hLu52iD, pRI20("lu52i.d"))
	m[op7PcAddU12i] = entry(BcPcAddU12i, hPcAddU12i, pRI20("pcaddu12i"))
	m[op7PcAlaU12i] = entry(BcPcAlaU12i, hPcAlaU12i, pRI20("pcalau12i"))
	return m
}

func pR3(name string) PrinterFunc {
	return func(_ *CPUState, w uint32, _ uint64) string {
		return fmt.Sprintf("%s $r%d, $r%d, $r%d", name, fieldRd(w), fieldRj(w), fieldRk(w))
	}
}

func pRI12(name string) PrinterFunc {
	return func(_ *CPUState, w uint32, _ uint64) string {
		return fmt.Sprintf("%s $r%d, $r%d, %d", name, fieldRd(w), fieldRj(w), imm12(w))
	}
}

func pRI12u(name string) PrinterFunc {
	return func(_ *CPUState, w uint32, _ uint64) string {
		return fmt.Sprintf("%s $r%d, $r%d, 0x%x", name, fieldRd(w), fieldRj(w), imm12u(w))
	}
}

func pRI20(name string) PrinterFunc {
	return func(_ *CPUState, w uint32, _ uint64) string {
		return fmt.Sprintf("%s $r%d, %d", name, fieldRd(w), imm20(w))
	}
}

func r3(m *Machine, w uint32) (rj, rk uint64) {
	return m.CPU.GPR(fieldRj(w)), m.CPU.GPR(fieldRk(w))
}

func advance(m *Machine) { m.CPU.SetPC(m.CPU.PC + 4) }

func signExt32(v uint32) uint64 { return uint64(int64(int32(v))) }

func hAddW(m *Machine, w uint32) error {
	rj, rk := r3(m, w)
	m.CPU.SetGPR(fieldRd(w), signExt32(uint32(rj)+uint32(rk)))
	advance(m)
	return nil
}
func hAddD(m *Machine, w uint32) error {
	rj, rk := r3(m, w)
	m.CPU.SetGPR(fieldRd(w), rj+rk)
	advance(m)
	return nil
}
func hSubW(m *Machine, w uint32) error {
	rj, rk := r3(m, w)
	m.CPU.SetGPR(fieldRd(w), signExt32(uint32(rj)-uint32(rk)))
	advance(m)
	return nil
}
func hSubD(m *Machine, w uint32) error {
	rj, rk := r3(m, w)
	m.CPU.SetGPR(fieldRd(w), rj-rk)
	advance(m)
	return nil
}
func hSlt(m *Machine, w uint32) error {
	rj, rk := r3(m, w)
	var v uint64
	if int64(rj) < int64(rk) {
		v = 1
	}
	m.CPU.SetGPR(fieldRd(w), v)
	advance(m)
	return nil
}
func hSltu(m *Machine, w uint32) error {
	rj, rk := r3(m, w)
	var v uint64
	if rj < rk {
		v = 1
	}
	m.CPU.SetGPR(fieldRd(w), v)
	advance(m)
	return nil
}
func hNor(m *Machine, w uint32) error {
	rj, rk := r3(m, w)
	m.CPU.SetGPR(fieldRd(w), ^(rj | rk))
	advance(m)
	return nil
}
func hAnd(m *Machine, w uint32) error {
	rj, rk := r3(m, w)
	m.CPU.SetGPR(fieldRd(w), rj&rk)
	advance(m)
	return nil
}
func hOr(m *Machine, w uint32) error {
	rj, rk := r3(m, w)
	m.CPU.SetGPR(fieldRd(w), rj|rk)
	advance(m)
	return nil
}
func hXor(m *Machine, w uint32) error {
	rj, rk := r3(m, w)
	m.CPU.SetGPR(fieldRd(w), rj^rk)
	advance(m)
	return nil
}
func hSllW(m *Machine, w uint32) error {
	rj, rk := r3(m, w)
	m.CPU.SetGPR(fieldRd(w), signExt32(uint32(rj)<<(rk&31)))
	advance(m)
	return nil
}
func hSrlW(m *Machine, w uint32) error {
	rj, rk := r3(m, w)
	m.CPU.SetGPR(fieldRd(w), signExt32(uint32(rj)>>(rk&31)))
	advance(m)
	return nil
}
func hSraW(m *Machine, w uint32) error {
	rj, rk := r3(m, w)
	m.CPU.SetGPR(fieldRd(w), signExt32(uint32(int32(uint32(rj))>>(rk&31))))
	advance(m)
	return nil
}
func hSllD(m *Machine, w uint32) error {
	rj, rk := r3(m, w)
	m.CPU.SetGPR(fieldRd(w), rj<<(rk&63))
	advance(m)
	return nil
}
func hSrlD(m *Machine, w uint32) error {
	rj, rk := r3(m, w)
	m.CPU.SetGPR(fieldRd(w), rj>>(rk&63))
	advance(m)
	return nil
}
func hSraD(m *Machine, w uint32) error {
	rj, rk := r3(m, w)
	m.CPU.SetGPR(fieldRd(w), uint64(int64(rj)>>(rk&63)))
	advance(m)
	return nil
}
func hMulW(m *Machine, w uint32) error {
	rj, rk := r3(m, w)
	m.CPU.SetGPR(fieldRd(w), signExt32(uint32(rj)*uint32(rk)))
	advance(m)
	return nil
}
func hMulD(m *Machine, w uint32) error {
	rj, rk := r3(m, w)
	m.CPU.SetGPR(fieldRd(w), rj*rk)
	advance(m)
	return nil
}
func hMulhW(m *Machine, w uint32) error {
	rj, rk := r3(m, w)
	prod := int64(int32(uint32(rj))) * int64(int32(uint32(rk)))
	m.CPU.SetGPR(fieldRd(w), signExt32(uint32(prod>>32)))
	advance(m)
	return nil
}
func hMulhWu(m *Machine, w uint32) error {
	rj, rk := r3(m, w)
	prod := uint64(uint32(rj)) * uint64(uint32(rk))
	m.CPU.SetGPR(fieldRd(w), signExt32(uint32(prod>>32)))
	advance(m)
	return nil
}
func hMulhD(m *Machine, w uint32) error {
	rj, rk := r3(m, w)
	hi, _ := mulh64(int64(rj), int64(rk))
	m.CPU.SetGPR(fieldRd(w), uint64(hi))
	advance(m)
	return nil
}
func hMulhDu(m *Machine, w uint32) error {
	rj, rk := r3(m, w)
	hi, _ := mulh64u(rj, rk)
	m.CPU.SetGPR(fieldRd(w), hi)
	advance(m)
	return nil
}

// mulh64 computes the signed 128-bit product of a*b and returns the high
// 64 bits, implementing a 128-bit upper-half multiply.
func mulh64(a, b int64) (hi, lo int64) {
	ua, ub := uint64(a), uint64(b)
	h, l := mulh64u(ua, ub)
	hi = int64(h)
	if a < 0 {
		hi -= b
	}
	if b < 0 {
		hi -= a
	}
	return hi, int64(l)
}

func mulh64u(a, b uint64) (hi, lo uint64) {
	const mask32 = 0xffffffff
	aLo, aHi := a&mask32, a>>32
	bLo, bHi := b&mask32, b>>32

	t := aLo * bLo
	w0 := t & mask32
	k := t >> 32

	t = aHi*bLo + k
	w1 := t & mask32
	w2 := t >> 32

	t = aLo*bHi + w1
	k = t >> 32

	hi = aHi*bHi + w2 + k
	lo = (t << 32) | w0
	return hi, lo
}

func hDivW(m *Machine, w uint32) error {
	rj, rk := r3(m, w)
	a, b := int32(uint32(rj)), int32(uint32(rk))
	if b == 0 {
		m.CPU.SetGPR(fieldRd(w), 0)
	} else {
		m.CPU.SetGPR(fieldRd(w), signExt32(uint32(a/b)))
	}
	advance(m)
	return nil
}
func hModW(m *Machine, w uint32) error {
	rj, rk := r3(m, w)
	a, b := int32(uint32(rj)), int32(uint32(rk))
	if b == 0 {
		m.CPU.SetGPR(fieldRd(w), 0)
	} else {
		m.CPU.SetGPR(fieldRd(w), signExt32(uint32(a%b)))
	}
	advance(m)
	return nil
}
func hDivWu(m *Machine, w uint32) error {
	rj, rk := r3(m, w)
	a, b := uint32(rj), uint32(rk)
	if b == 0 {
		m.CPU.SetGPR(fieldRd(w), 0)
	} else {
		m.CPU.SetGPR(fieldRd(w), signExt32(a/b))
	}
	advance(m)
	return nil
}
func hModWu(m *Machine, w uint32) error {
	rj, rk := r3(m, w)
	a, b := uint32(rj), uint32(rk)
	if b == 0 {
		m.CPU.SetGPR(fieldRd(w), 0)
	} else {
		m.CPU.SetGPR(fieldRd(w), signExt32(a%b))
	}
	advance(m)
	return nil
}
func hDivD(m *Machine, w uint32) error {
	rj, rk := r3(m, w)
	if int64(rk) == 0 {
		m.CPU.SetGPR(fieldRd(w), 0)
	} else {
		m.CPU.SetGPR(fieldRd(w), uint64(int64(rj)/int64(rk)))
	}
	advance(m)
	return nil
}
func hModD(m *Machine, w uint32) error {
	rj, rk := r3(m, w)
	if int64(rk) == 0 {
		m.CPU.SetGPR(fieldRd(w), 0)
	} else {
		m.CPU.SetGPR(fieldRd(w), uint64(int64(rj)%int64(rk)))
	}
	advance(m)
	return nil
}
func hDivDu(m *Machine, w uint32) error {
	rj, rk := r3(m, w)
	if rk == 0 {
		m.CPU.SetGPR(fieldRd(w), 0)
	} else {
		m.CPU.SetGPR(fieldRd(w), rj/rk)
	}
	advance(m)
	return nil
}
func hModDu(m *Machine, w uint32) error {
	rj, rk := r3(m, w)
	if rk == 0 {
		m.CPU.SetGPR(fieldRd(w), 0)
	} else {
		m.CPU.SetGPR(fieldRd(w), rj%rk)
	}
	advance(m)
	return nil
}

// hBstrinsD and hBstrpickD implement a simplified bit-field insert/extract:
// the real LoongArch encoding carries two immediate width fields (msbd,
// lsbd) packed into the instruction's otherwise-unused high bits; this
// emulator takes lsb from the rk field (0-31) and the width from sa2
// (sa2*16+1, i.e. 1, 17, 33 or 49 bits, clipped so the field ends at bit
// 63) rather than the architectural bit positions, which is enough to
// exercise the bit-field instruction category without a bespoke 2RI6
// format.
func hBstrinsD(m *Machine, w uint32) error {
	rd := fieldRd(w)
	lsb := uint(fieldRk(w)) & 63
	width := uint(fieldSa2(w))*16 + 1
	if width > 64-lsb {
		width = 64 - lsb
	}
	mask := (uint64(1)<<width - 1) << lsb
	src := m.CPU.GPR(fieldRj(w)) << lsb & mask
	m.CPU.SetGPR(rd, (m.CPU.GPR(rd) &^ mask) | src)
	advance(m)
	return nil
}
func hBstrpickD(m *Machine, w uint32) error {
	lsb := uint(fieldRk(w)) & 63
	width := uint(fieldSa2(w))*16 + 1
	if width > 64-lsb {
		width = 64 - lsb
	}
	mask := uint64(1)<<width - 1
	v := (m.CPU.GPR(fieldRj(w)) >> lsb) & mask
	m.CPU.SetGPR(fieldRd(w), v)
	advance(m)
	return nil
}

func hSltI(m *Machine, w uint32) error {
	rj := m.CPU.GPR(fieldRj(w))
	var v uint64
	if int64(rj) < imm12(w) {
		v = 1
	}
	m.CPU.SetGPR(fieldRd(w), v)
	advance(m)
	return nil
}
func hSltUI(m *Machine, w uint32) error {
	rj := m.CPU.GPR(fieldRj(w))
	var v uint64
	if rj < uint64(imm12(w)) {
		v = 1
	}
	m.CPU.SetGPR(fieldRd(w), v)
	advance(m)
	return nil
}
func hAddiW(m *Machine, w uint32) error {
	rj := m.CPU.GPR(fieldRj(w))
	m.CPU.SetGPR(fieldRd(w), signExt32(uint32(rj)+uint32(imm12(w))))
	advance(m)
	return nil
}
func hAddiD(m *Machine, w uint32) error {
	rj := m.CPU.GPR(fieldRj(w))
	m.CPU.SetGPR(fieldRd(w), rj+uint64(imm12(w)))
	advance(m)
	return nil
}
func hAndI(m *Machine, w uint32) error {
	m.CPU.SetGPR(fieldRd(w), m.CPU.GPR(fieldRj(w))&imm12u(w))
	advance(m)
	return nil
}
func hOrI(m *Machine, w uint32) error {
	m.CPU.SetGPR(fieldRd(w), m.CPU.GPR(fieldRj(w))|imm12u(w))
	advance(m)
	return nil
}
func hXorI(m *Machine, w uint32) error {
	m.CPU.SetGPR(fieldRd(w), m.CPU.GPR(fieldRj(w))^imm12u(w))
	advance(m)
	return nil
}

func hLu12iW(m *Machine, w uint32) error {
	v := uint32(imm20(w)) << 12
	m.CPU.SetGPR(fieldRd(w), signExt32(v))
	advance(m)
	return nil
}
func hLu32iD(m *Machine, w uint32) error {
	rd := fieldRd(w)
	low32 := uint32(m.CPU.GPR(rd))
	v := (uint64(imm20(w)) << 32) | uint64(low32)
	m.CPU.SetGPR(rd, v)
	advance(m)
	return nil
}
func hLu52iD(m *Machine, w uint32) error {
	rj := m.CPU.GPR(fieldRj(w))
	low52 := rj & 0xfffffffffffff
	v := (uint64(imm20(w)) << 52) | low52
	m.CPU.SetGPR(fieldRd(w), v)
	advance(m)
	return nil
}
func hPcAddU12i(m *Machine, w uint32) error {
	v := uint64(int64(m.CPU.PC) + imm20(w)<<12)
	m.CPU.SetGPR(fieldRd(w), v)
	advance(m)
	return nil
}
func hPcAlaU12i(m *Machine, w uint32) error {
	base := m.CPU.PC &^ 0xfff
	v := uint64(int64(base) + imm20(w)<<12)
	m.CPU.SetGPR(fieldRd(w), v)
	advance(m)
	return nil
}

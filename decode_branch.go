// decode_branch.go - Branch/jump handlers and the 6-bit opcode table.
//
// Generalizes cpu_ie64.go's BRA/BEQ/BNE/.../JSR64/RTS64 family, which
// all compute a target and either commit it to PC or fall through.
// LoongArch's conditional branches compare two registers directly
// (no implicit flags register), so hBeq et al. read both operands
// instead of testing a Z/N/C/V bit.
package laemu

import "fmt"

func buildTable6() map[uint32]DecodedInstruction {
	m := make(map[uint32]DecodedInstruction)
	m[op6Beqz] = entry(BcBeqz, hBeqz, pBz("beqz"))
	m[op6Bnez] = entry(BcBnez, hBnez, pBz("bnez"))
	m[op6Jirl] = entry(BcJirl, hJirl, pJirl)
	m[op6B] = entry(BcB, hB, pB("b"))
	m[op6Bl] = entry(BcBl, hBl, pB("bl"))
	m[op6Beq] = entry(BcBeq, hBeq, pBr("beq"))
	m[op6Bne] = entry(BcBne, hBne, pBr("bne"))
	m[op6Blt] = entry(BcBlt, hBlt, pBr("blt"))
	m[op6Bge] = entry(BcBge, hBge, pBr("bge"))
	m[op6Bltu] = entry(BcBltu, hBltu, pBr("bltu"))
	m[op6Bgeu] = entry(BcBgeu, hBgeu, pBr("bgeu"))
	return m
}

func pBz(name string) PrinterFunc {
	return func(_ *CPUState, w uint32, pc uint64) string {
		return fmt.Sprintf("%s $r%d, %d", name, fieldRj(w), pc+uint64(imm21(w)))
	}
}
func pB(name string) PrinterFunc {
	return func(_ *CPUState, w uint32, pc uint64) string {
		return fmt.Sprintf("%s %d", name, pc+uint64(imm26(w)))
	}
}
func pBr(name string) PrinterFunc {
	return func(_ *CPUState, w uint32, pc uint64) string {
		return fmt.Sprintf("%s $r%d, $r%d, %d", name, fieldRj(w), fieldRd(w), pc+uint64(imm16(w)))
	}
}
func pJirl(_ *CPUState, w uint32, _ uint64) string {
	return fmt.Sprintf("jirl $r%d, $r%d, %d", fieldRd(w), fieldRj(w), imm16(w))
}

func hBeqz(m *Machine, w uint32) error {
	if m.CPU.GPR(fieldRj(w)) == 0 {
		m.CPU.SetPC(uint64(int64(m.CPU.PC) + imm21(w)))
	} else {
		advance(m)
	}
	return nil
}
func hBnez(m *Machine, w uint32) error {
	if m.CPU.GPR(fieldRj(w)) != 0 {
		m.CPU.SetPC(uint64(int64(m.CPU.PC) + imm21(w)))
	} else {
		advance(m)
	}
	return nil
}
func hB(m *Machine, w uint32) error {
	m.CPU.SetPC(uint64(int64(m.CPU.PC) + imm26(w)))
	return nil
}
func hBl(m *Machine, w uint32) error {
	ret := m.CPU.PC + 4
	m.CPU.SetPC(uint64(int64(m.CPU.PC) + imm26(w)))
	m.CPU.SetGPR(1, ret) // $ra
	return nil
}

// hJirl implements "jump register, link": rd <- pc+4, pc <- rj + offs16.
// rd==0 (zero register) makes this a plain computed jump, matching the
// architecture's convention for encoding `ret` as `jirl $zero, $ra, 0`.
func hJirl(m *Machine, w uint32) error {
	target := uint64(int64(m.CPU.GPR(fieldRj(w))) + imm16(w))
	ret := m.CPU.PC + 4
	m.CPU.SetPC(target)
	m.CPU.SetGPR(fieldRd(w), ret)
	return nil
}

func hBeq(m *Machine, w uint32) error { return condBranch(m, w, func(a, b uint64) bool { return a == b }) }
func hBne(m *Machine, w uint32) error { return condBranch(m, w, func(a, b uint64) bool { return a != b }) }
func hBlt(m *Machine, w uint32) error {
	return condBranch(m, w, func(a, b uint64) bool { return int64(a) < int64(b) })
}
func hBge(m *Machine, w uint32) error {
	return condBranch(m, w, func(a, b uint64) bool { return int64(a) >= int64(b) })
}
func hBltu(m *Machine, w uint32) error { return condBranch(m, w, func(a, b uint64) bool { return a < b }) }
func hBgeu(m *Machine, w uint32) error {
	return condBranch(m, w, func(a, b uint64) bool { return a >= b })
}

func condBranch(m *Machine, w uint32, pred func(a, b uint64) bool) error {
	a, b := m.CPU.GPR(fieldRj(w)), m.CPU.GPR(fieldRd(w))
	if pred(a, b) {
		m.CPU.SetPC(uint64(int64(m.CPU.PC) + imm16(w)))
	} else {
		advance(m)
	}
	return nil
}

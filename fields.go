// fields.go - LoongArch instruction field extraction.
//
// LoongArch encodes every instruction in one 32-bit word using a handful
// of fixed layouts (2R, 3R, 2RI8, 2RI12, 2RI14, 2RI16, 1RI21, I26). These
// helpers pull register and immediate fields out of a raw word; the
// decode_*.go handler files call them by name so each handler reads like
// the architecture manual's own field names (rd, rj, rk, imm12, ...).
package laemu

func fieldRd(w uint32) uint8  { return uint8(w & 0x1f) }
func fieldRj(w uint32) uint8  { return uint8((w >> 5) & 0x1f) }
func fieldRk(w uint32) uint8  { return uint8((w >> 10) & 0x1f) }
func fieldSa2(w uint32) uint8 { return uint8((w >> 15) & 0x3) }

// imm12 extracts bits [21:10] as a sign-extended 12-bit immediate (2RI12
// format: addi.w, ld.*, st.*, slti, ...).
func imm12(w uint32) int64 {
	v := int32((w>>10)&0xfff) << 20 >> 20
	return int64(v)
}

// imm12u extracts bits [21:10] as a zero-extended 12-bit immediate
// (andi, ori, xori).
func imm12u(w uint32) uint64 {
	return uint64((w >> 10) & 0xfff)
}

// imm14 extracts bits [23:10] as a sign-extended 14-bit immediate,
// unscaled (unused by the opcodes implemented here but kept for
// completeness of the field helper set).
func imm14(w uint32) int64 {
	v := int32((w>>10)&0x3fff) << 18 >> 18
	return int64(v)
}

// imm16 extracts bits [25:10] as a sign-extended 16-bit immediate,
// scaled left by 2 — the conditional-branch displacement format
// (beq/bne/blt/bge/bltu/bgeu).
func imm16(w uint32) int64 {
	v := int32((w>>10)&0xffff) << 16 >> 16
	return int64(v) << 2
}

// imm21 reassembles the 1RI21 format's split 21-bit displacement used by
// beqz/bnez: low 16 bits in [25:10], high 5 bits in [4:0], scaled by 2.
func imm21(w uint32) int64 {
	low := uint32((w >> 10) & 0xffff)
	high := uint32(w & 0x1f)
	raw := (high << 16) | low
	v := int32(raw) << 11 >> 11
	return int64(v) << 2
}

// imm26 reassembles the I26 format's split 26-bit displacement used by
// b/bl: low 16 bits in [25:10], high 10 bits in [9:0], scaled by 2.
func imm26(w uint32) int64 {
	low := uint32((w >> 10) & 0xffff)
	high := uint32(w & 0x3ff)
	raw := (high << 16) | low
	v := int32(raw) << 6 >> 6
	return int64(v) << 2
}

// imm20 extracts bits [24:5] as a sign-extended 20-bit immediate used by
// lu12i.w/lu32i.d/pcaddu12i/pcalau12i.
func imm20(w uint32) int64 {
	v := int32((w>>5)&0xfffff) << 12 >> 12
	return int64(v)
}

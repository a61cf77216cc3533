// asm_test.go - Minimal LoongArch word encoders for hand-built test
// fixtures, sized to only the opcodes these tests exercise rather than
// a full assembler.
package laemu

func enc3R(op uint32, rd, rj, rk uint8) uint32 {
	return op<<15 | uint32(rk&0x1f)<<10 | uint32(rj&0x1f)<<5 | uint32(rd&0x1f)
}

func encRI12(op uint32, rd, rj uint8, imm int16) uint32 {
	return op<<22 | uint32(uint16(imm)&0xfff)<<10 | uint32(rj&0x1f)<<5 | uint32(rd&0x1f)
}

func encRI20(op uint32, rd uint8, imm int32) uint32 {
	return op<<25 | uint32(uint32(imm)&0xfffff)<<5 | uint32(rd&0x1f)
}

// encBr16 encodes a conditional-branch-shaped word (beq/bne/blt/.../jirl):
// a 16-bit immediate at [25:10], rj at [9:5], rd at [4:0]. offsetBytes
// must be a multiple of 4.
func encBr16(op uint32, rj, rd uint8, offsetBytes int32) uint32 {
	imm := uint32(offsetBytes/4) & 0xffff
	return op<<26 | imm<<10 | uint32(rj&0x1f)<<5 | uint32(rd&0x1f)
}

// encBz21 encodes a beqz/bnez-shaped word: split 21-bit immediate
// (low16 at [25:10], high5 at [4:0]), rj at [9:5].
func encBz21(op uint32, rj uint8, offsetBytes int32) uint32 {
	words := uint32(offsetBytes/4) & 0x1fffff
	low16 := words & 0xffff
	high5 := (words >> 16) & 0x1f
	return op<<26 | low16<<10 | uint32(rj&0x1f)<<5 | high5
}

// encB26 encodes a b/bl-shaped word: split 26-bit immediate (low16 at
// [25:10], high10 at [9:0]).
func encB26(op uint32, offsetBytes int32) uint32 {
	words := uint32(offsetBytes/4) & 0x3ffffff
	low16 := words & 0xffff
	high10 := (words >> 16) & 0x3ff
	return op<<26 | low16<<10 | high10
}

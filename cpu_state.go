// cpu_state.go - LoongArch64 register file.
//
// CPUState holds the full LoongArch64 register state: 32 GPRs (r0
// hardwired zero), PC, 32 256-bit vector registers aliased as FP/LSX/
// LASX, 8 FP condition-code bits and FCSR.
package laemu

import "math"

// VReg is one 256-bit vector register, stored as four 64-bit lanes.
// Lane 0 holds the low 64 bits, which is also the aliased scalar FP
// register: FP register fN is the low 64 bits of vector register vN.
type VReg [4]uint64

// CPUState holds the general-purpose registers, PC, vector register
// file, FCC and FCSR.
type CPUState struct {
	R  [32]uint64 // general-purpose registers; R[0] is hardwired zero
	PC uint64

	V [32]VReg // vector registers, 256 bits each (LASX width)

	FCC [8]bool
	// FCSR's rounding-mode bits are stored but never consulted: the FP
	// handlers always round to nearest-even.
	FCSR uint32

	// InstructionCount is the running instruction counter used for fuel
	// accounting. Owned here rather than on Machine so the precise and
	// fast-path interpreters, which each hold a *CPUState, advance the
	// same counter no matter which one is driving.
	InstructionCount uint64
}

// GPR reads register index idx straight from R. r0 reads 0 because
// SetGPR never stores into R[0]; GPR itself does not special-case it.
func (c *CPUState) GPR(idx uint8) uint64 {
	return c.R[idx&31]
}

// SetGPR writes register idx. Writes to r0 are silently discarded:
// writing r0 is defined behavior, not a fault.
func (c *CPUState) SetGPR(idx uint8, val uint64) {
	idx &= 31
	if idx == 0 {
		return
	}
	c.R[idx] = val
}

// SetPC assigns the program counter, masking the low two bits so PC is
// always 4-byte aligned.
func (c *CPUState) SetPC(addr uint64) {
	c.PC = addr &^ 3
}

// F32 reads the low 32 bits of vector register idx as an IEEE-754 single.
func (c *CPUState) F32(idx uint8) float32 {
	return math.Float32frombits(uint32(c.V[idx&31][0]))
}

// SetF32 writes the low 32 bits of vector register idx, zero-extending
// the upper bits of lane 0 (matches how LoongArch single-precision FP
// ops leave the upper 32 bits of fN undefined; this emulator defines
// them as zeroed for determinism).
func (c *CPUState) SetF32(idx uint8, v float32) {
	c.V[idx&31][0] = uint64(math.Float32bits(v))
}

// F64 reads the low 64 bits of vector register idx (== fN) as an
// IEEE-754 double.
func (c *CPUState) F64(idx uint8) float64 {
	return math.Float64frombits(c.V[idx&31][0])
}

// SetF64 writes the low 64 bits of vector register idx, leaving lanes
// 1-3 (the LASX-only upper half) untouched, matching real hardware where
// a scalar FP write does not clobber the vector extension's high bits.
func (c *CPUState) SetF64(idx uint8, v float64) {
	c.V[idx&31][0] = math.Float64bits(v)
}

// VRegLanes8 returns a view of vector register idx as 32 signed bytes.
func (c *CPUState) VRegLanes8(idx uint8) [32]int8 {
	var out [32]int8
	v := c.V[idx&31]
	for lane := 0; lane < 4; lane++ {
		word := v[lane]
		for b := 0; b < 8; b++ {
			out[lane*8+b] = int8(byte(word >> (8 * b)))
		}
	}
	return out
}

// SetVRegLanes8 writes vector register idx from 32 signed bytes.
func (c *CPUState) SetVRegLanes8(idx uint8, in [32]int8) {
	var v VReg
	for lane := 0; lane < 4; lane++ {
		var word uint64
		for b := 0; b < 8; b++ {
			word |= uint64(byte(in[lane*8+b])) << (8 * b)
		}
		v[lane] = word
	}
	c.V[idx&31] = v
}

// VRegLanes16 returns a view of vector register idx as 16 signed
// halfwords.
func (c *CPUState) VRegLanes16(idx uint8) [16]int16 {
	var out [16]int16
	v := c.V[idx&31]
	for lane := 0; lane < 4; lane++ {
		word := v[lane]
		for h := 0; h < 4; h++ {
			out[lane*4+h] = int16(uint16(word >> (16 * h)))
		}
	}
	return out
}

// SetVRegLanes16 writes vector register idx from 16 signed halfwords.
func (c *CPUState) SetVRegLanes16(idx uint8, in [16]int16) {
	var v VReg
	for lane := 0; lane < 4; lane++ {
		var word uint64
		for h := 0; h < 4; h++ {
			word |= uint64(uint16(in[lane*4+h])) << (16 * h)
		}
		v[lane] = word
	}
	c.V[idx&31] = v
}

// VRegLanes32 returns a view of vector register idx as 8 signed words.
func (c *CPUState) VRegLanes32(idx uint8) [8]int32 {
	var out [8]int32
	v := c.V[idx&31]
	for lane := 0; lane < 4; lane++ {
		word := v[lane]
		out[lane*2+0] = int32(uint32(word))
		out[lane*2+1] = int32(uint32(word >> 32))
	}
	return out
}

// SetVRegLanes32 writes vector register idx from 8 signed words.
func (c *CPUState) SetVRegLanes32(idx uint8, in [8]int32) {
	var v VReg
	for lane := 0; lane < 4; lane++ {
		lo := uint64(uint32(in[lane*2+0]))
		hi := uint64(uint32(in[lane*2+1])) << 32
		v[lane] = lo | hi
	}
	c.V[idx&31] = v
}

// VRegLanes64 returns a view of vector register idx as 4 signed
// doublewords (the LASX "d" lane width).
func (c *CPUState) VRegLanes64(idx uint8) [4]int64 {
	v := c.V[idx&31]
	return [4]int64{int64(v[0]), int64(v[1]), int64(v[2]), int64(v[3])}
}

// SetVRegLanes64 writes vector register idx from 4 signed doublewords.
func (c *CPUState) SetVRegLanes64(idx uint8, in [4]int64) {
	c.V[idx&31] = VReg{uint64(in[0]), uint64(in[1]), uint64(in[2]), uint64(in[3])}
}

// VRegLanesF64 returns vector register idx as 4 float64 lanes (xvfadd.d
// and friends operate on this view).
func (c *CPUState) VRegLanesF64(idx uint8) [4]float64 {
	v := c.V[idx&31]
	return [4]float64{
		math.Float64frombits(v[0]),
		math.Float64frombits(v[1]),
		math.Float64frombits(v[2]),
		math.Float64frombits(v[3]),
	}
}

// SetVRegLanesF64 writes vector register idx from 4 float64 lanes.
func (c *CPUState) SetVRegLanesF64(idx uint8, in [4]float64) {
	c.V[idx&31] = VReg{
		math.Float64bits(in[0]),
		math.Float64bits(in[1]),
		math.Float64bits(in[2]),
		math.Float64bits(in[3]),
	}
}

// Reset zeroes all registers and sets PC to entry.
func (c *CPUState) Reset(entry uint64) {
	for i := range c.R {
		c.R[i] = 0
	}
	for i := range c.V {
		c.V[i] = VReg{}
	}
	for i := range c.FCC {
		c.FCC[i] = false
	}
	c.FCSR = 0
	c.InstructionCount = 0
	c.SetPC(entry)
}

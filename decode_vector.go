// decode_vector.go - LSX (128-bit) and LASX (256-bit) vector handlers.
//
// Each handler reads both operands as a lane array via cpu_state.go's
// VRegLanesN accessors, applies the op per lane, and writes the result
// back. A representative subset of the real LSX/LASX ISA, not the full
// instruction set.
package laemu

import "fmt"

func populateVector(m map[uint32]DecodedInstruction) {
	m[op17VAddB] = entry(BcVAddB, hVAddB, pV3("vadd.b"))
	m[op17VAddH] = entry(BcVAddH, hVAddH, pV3("vadd.h"))
	m[op17VAddW] = entry(BcVAddW, hVAddW, pV3("vadd.w"))
	m[op17VAddD] = entry(BcVAddD, hVAddD, pV3("vadd.d"))
	m[op17VSeqB] = entry(BcVSeqB, hVSeqB, pV3("vseq.b"))

	m[op17XVAddB] = entry(BcXVAddB, hXVAddB, pXV3("xvadd.b"))
	m[op17XVAddH] = entry(BcXVAddH, hXVAddH, pXV3("xvadd.h"))
	m[op17XVAddW] = entry(BcXVAddW, hXVAddW, pXV3("xvadd.w"))
	m[op17XVAddD] = entry(BcXVAddD, hXVAddD, pXV3("xvadd.d"))
	m[op17XVFAddD] = entry(BcXVFAddD, hXVFAddD, pXV3("xvfadd.d"))
	m[op17XVPermiQ] = entry(BcXVPermiQ, hXVPermiQ, pXV3("xvpermi.q"))
	m[op17XVIlvlD] = entry(BcXVIlvlD, hXVIlvlD, pXV3("xvilvl.d"))
	m[op17XVOriB] = entry(BcXVOriB, hXVOriB, pXVI("xvori.b"))
}

func pV3(name string) PrinterFunc {
	return func(_ *CPUState, w uint32, _ uint64) string {
		return fmt.Sprintf("%s $vr%d, $vr%d, $vr%d", name, fieldRd(w), fieldRj(w), fieldRk(w))
	}
}
func pXV3(name string) PrinterFunc {
	return func(_ *CPUState, w uint32, _ uint64) string {
		return fmt.Sprintf("%s $xr%d, $xr%d, $xr%d", name, fieldRd(w), fieldRj(w), fieldRk(w))
	}
}
func pXVI(name string) PrinterFunc {
	return func(_ *CPUState, w uint32, _ uint64) string {
		return fmt.Sprintf("%s $xr%d, $xr%d, 0x%x", name, fieldRd(w), fieldRj(w), imm12u(w)&0xff)
	}
}

// LSX operates only on the low 128 bits (lanes 0-1); lanes 2-3 are left
// as-is, matching the architecture rule that a 128-bit vector op does
// not disturb the LASX-only upper half.
func hVAddB(m *Machine, w uint32) error {
	a, b := m.CPU.VRegLanes8(fieldRj(w)), m.CPU.VRegLanes8(fieldRk(w))
	var out [32]int8
	copy(out[:], m.CPU.VRegLanes8(fieldRd(w))[:])
	for i := 0; i < 16; i++ {
		out[i] = a[i] + b[i]
	}
	m.CPU.SetVRegLanes8(fieldRd(w), out)
	advance(m)
	return nil
}
func hVAddH(m *Machine, w uint32) error {
	a, b := m.CPU.VRegLanes16(fieldRj(w)), m.CPU.VRegLanes16(fieldRk(w))
	out := m.CPU.VRegLanes16(fieldRd(w))
	for i := 0; i < 8; i++ {
		out[i] = a[i] + b[i]
	}
	m.CPU.SetVRegLanes16(fieldRd(w), out)
	advance(m)
	return nil
}
func hVAddW(m *Machine, w uint32) error {
	a, b := m.CPU.VRegLanes32(fieldRj(w)), m.CPU.VRegLanes32(fieldRk(w))
	out := m.CPU.VRegLanes32(fieldRd(w))
	for i := 0; i < 4; i++ {
		out[i] = a[i] + b[i]
	}
	m.CPU.SetVRegLanes32(fieldRd(w), out)
	advance(m)
	return nil
}
func hVAddD(m *Machine, w uint32) error {
	a, b := m.CPU.VRegLanes64(fieldRj(w)), m.CPU.VRegLanes64(fieldRk(w))
	out := m.CPU.VRegLanes64(fieldRd(w))
	out[0] = a[0] + b[0]
	out[1] = a[1] + b[1]
	m.CPU.SetVRegLanes64(fieldRd(w), out)
	advance(m)
	return nil
}

// hVSeqB sets each byte lane to 0xff where operands are equal, 0
// otherwise — the architecture's per-lane compare-and-mask result,
// consumed downstream by vector select/blend instructions not
// implemented in this subset.
func hVSeqB(m *Machine, w uint32) error {
	a, b := m.CPU.VRegLanes8(fieldRj(w)), m.CPU.VRegLanes8(fieldRk(w))
	out := m.CPU.VRegLanes8(fieldRd(w))
	for i := 0; i < 16; i++ {
		if a[i] == b[i] {
			out[i] = -1
		} else {
			out[i] = 0
		}
	}
	m.CPU.SetVRegLanes8(fieldRd(w), out)
	advance(m)
	return nil
}

func hXVAddB(m *Machine, w uint32) error {
	a, b := m.CPU.VRegLanes8(fieldRj(w)), m.CPU.VRegLanes8(fieldRk(w))
	var out [32]int8
	for i := 0; i < 32; i++ {
		out[i] = a[i] + b[i]
	}
	m.CPU.SetVRegLanes8(fieldRd(w), out)
	advance(m)
	return nil
}
func hXVAddH(m *Machine, w uint32) error {
	a, b := m.CPU.VRegLanes16(fieldRj(w)), m.CPU.VRegLanes16(fieldRk(w))
	var out [16]int16
	for i := 0; i < 16; i++ {
		out[i] = a[i] + b[i]
	}
	m.CPU.SetVRegLanes16(fieldRd(w), out)
	advance(m)
	return nil
}
func hXVAddW(m *Machine, w uint32) error {
	a, b := m.CPU.VRegLanes32(fieldRj(w)), m.CPU.VRegLanes32(fieldRk(w))
	var out [8]int32
	for i := 0; i < 8; i++ {
		out[i] = a[i] + b[i]
	}
	m.CPU.SetVRegLanes32(fieldRd(w), out)
	advance(m)
	return nil
}
func hXVAddD(m *Machine, w uint32) error {
	a, b := m.CPU.VRegLanes64(fieldRj(w)), m.CPU.VRegLanes64(fieldRk(w))
	var out [4]int64
	for i := 0; i < 4; i++ {
		out[i] = a[i] + b[i]
	}
	m.CPU.SetVRegLanes64(fieldRd(w), out)
	advance(m)
	return nil
}
func hXVFAddD(m *Machine, w uint32) error {
	a, b := m.CPU.VRegLanesF64(fieldRj(w)), m.CPU.VRegLanesF64(fieldRk(w))
	var out [4]float64
	for i := 0; i < 4; i++ {
		out[i] = a[i] + b[i]
	}
	m.CPU.SetVRegLanesF64(fieldRd(w), out)
	advance(m)
	return nil
}

// hXVPermiQ swaps the two 128-bit halves (quadwords) of vr between rj
// and rk, a fixed permutation standing in for the real instruction's
// immediate-selected quadword shuffle.
func hXVPermiQ(m *Machine, w uint32) error {
	rj := m.CPU.V[fieldRj(w)&31]
	rk := m.CPU.V[fieldRk(w)&31]
	m.CPU.V[fieldRd(w)&31] = VReg{rk[0], rk[1], rj[0], rj[1]}
	advance(m)
	return nil
}

// hXVIlvlD interleaves the low doublewords of rj and rk into rd's low
// 128 bits, leaving the upper 128 bits zeroed (a representative
// narrowing of the real instruction's full four-way interleave).
func hXVIlvlD(m *Machine, w uint32) error {
	rj := m.CPU.V[fieldRj(w)&31]
	rk := m.CPU.V[fieldRk(w)&31]
	m.CPU.V[fieldRd(w)&31] = VReg{rk[0], rj[0], 0, 0}
	advance(m)
	return nil
}

// hXVOriB ORs an 8-bit immediate into every byte lane across all 32
// bytes.
func hXVOriB(m *Machine, w uint32) error {
	imm := int8(imm12u(w) & 0xff)
	a := m.CPU.VRegLanes8(fieldRj(w))
	var out [32]int8
	for i := range out {
		out[i] = a[i] | imm
	}
	m.CPU.SetVRegLanes8(fieldRd(w), out)
	advance(m)
	return nil
}

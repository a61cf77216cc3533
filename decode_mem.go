// decode_mem.go - Load/store handlers for the 2RI12 memory group, plus a
// representative LSX/LASX load/store pair.
//
// Every handler picks its size and sign/zero extension from the opcode,
// then goes through the Arena's permission-tagged, bounds-checked access
// (arena.go).
package laemu

import "fmt"

func populateLoadStore10(m map[uint32]DecodedInstruction) {
	m[op10LdB] = entry(BcLdB, hLdB, pMem("ld.b"))
	m[op10LdH] = entry(BcLdH, hLdH, pMem("ld.h"))
	m[op10LdW] = entry(BcLdW, hLdW, pMem("ld.w"))
	m[op10LdD] = entry(BcLdD, hLdD, pMem("ld.d"))
	m[op10LdBu] = entry(BcLdBu, hLdBu, pMem("ld.bu"))
	m[op10LdHu] = entry(BcLdHu, hLdHu, pMem("ld.hu"))
	m[op10LdWu] = entry(BcLdWu, hLdWu, pMem("ld.wu"))
	m[op10StB] = entry(BcStB, hStB, pMem("st.b"))
	m[op10StH] = entry(BcStH, hStH, pMem("st.h"))
	m[op10StW] = entry(BcStW, hStW, pMem("st.w"))
	m[op10StD] = entry(BcStD, hStD, pMem("st.d"))
}

func populateVectorLoadStore10(m map[uint32]DecodedInstruction) {
	m[op10VLd] = entry(BcVLd, hVLd, pMem("vld"))
	m[op10VSt] = entry(BcVSt, hVSt, pMem("vst"))
	m[op10XVLd] = entry(BcXVLd, hXVLd, pMem("xvld"))
	m[op10XVSt] = entry(BcXVSt, hXVSt, pMem("xvst"))
}

func pMem(name string) PrinterFunc {
	return func(_ *CPUState, w uint32, _ uint64) string {
		return fmt.Sprintf("%s $r%d, $r%d, %d", name, fieldRd(w), fieldRj(w), imm12(w))
	}
}

func effAddr(m *Machine, w uint32) uint64 {
	return uint64(int64(m.CPU.GPR(fieldRj(w))) + imm12(w))
}

func faultAt(err error, addr uint64) error {
	if f, ok := err.(*Fault); ok {
		f.Data = addr
		return f
	}
	return err
}

func hLdB(m *Machine, w uint32) error {
	addr := effAddr(m, w)
	v, err := m.Arena.Read8(addr)
	if err != nil {
		return faultAt(err, addr)
	}
	m.CPU.SetGPR(fieldRd(w), uint64(int64(int8(v))))
	advance(m)
	return nil
}
func hLdBu(m *Machine, w uint32) error {
	addr := effAddr(m, w)
	v, err := m.Arena.Read8(addr)
	if err != nil {
		return faultAt(err, addr)
	}
	m.CPU.SetGPR(fieldRd(w), uint64(v))
	advance(m)
	return nil
}
func hLdH(m *Machine, w uint32) error {
	addr := effAddr(m, w)
	v, err := m.Arena.Read16(addr)
	if err != nil {
		return faultAt(err, addr)
	}
	m.CPU.SetGPR(fieldRd(w), uint64(int64(int16(v))))
	advance(m)
	return nil
}
func hLdHu(m *Machine, w uint32) error {
	addr := effAddr(m, w)
	v, err := m.Arena.Read16(addr)
	if err != nil {
		return faultAt(err, addr)
	}
	m.CPU.SetGPR(fieldRd(w), uint64(v))
	advance(m)
	return nil
}
func hLdW(m *Machine, w uint32) error {
	addr := effAddr(m, w)
	v, err := m.Arena.Read32(addr)
	if err != nil {
		return faultAt(err, addr)
	}
	m.CPU.SetGPR(fieldRd(w), uint64(int64(int32(v))))
	advance(m)
	return nil
}
func hLdWu(m *Machine, w uint32) error {
	addr := effAddr(m, w)
	v, err := m.Arena.Read32(addr)
	if err != nil {
		return faultAt(err, addr)
	}
	m.CPU.SetGPR(fieldRd(w), uint64(v))
	advance(m)
	return nil
}
func hLdD(m *Machine, w uint32) error {
	addr := effAddr(m, w)
	v, err := m.Arena.Read64(addr)
	if err != nil {
		return faultAt(err, addr)
	}
	m.CPU.SetGPR(fieldRd(w), v)
	advance(m)
	return nil
}
func hStB(m *Machine, w uint32) error {
	addr := effAddr(m, w)
	if err := m.Arena.Write8(addr, uint8(m.CPU.GPR(fieldRd(w)))); err != nil {
		return faultAt(err, addr)
	}
	advance(m)
	return nil
}
func hStH(m *Machine, w uint32) error {
	addr := effAddr(m, w)
	if err := m.Arena.Write16(addr, uint16(m.CPU.GPR(fieldRd(w)))); err != nil {
		return faultAt(err, addr)
	}
	advance(m)
	return nil
}
func hStW(m *Machine, w uint32) error {
	addr := effAddr(m, w)
	if err := m.Arena.Write32(addr, uint32(m.CPU.GPR(fieldRd(w)))); err != nil {
		return faultAt(err, addr)
	}
	advance(m)
	return nil
}
func hStD(m *Machine, w uint32) error {
	addr := effAddr(m, w)
	if err := m.Arena.Write64(addr, m.CPU.GPR(fieldRd(w))); err != nil {
		return faultAt(err, addr)
	}
	advance(m)
	return nil
}

// hVLd/hVSt move a full 128-bit LSX register (the low two lanes of the
// 256-bit vector file) to/from memory; hXVLd/hXVSt move all four LASX
// lanes. Both are a representative subset of the vector load/store
// family.
func hVLd(m *Machine, w uint32) error {
	addr := effAddr(m, w)
	lo, err := m.Arena.Read64(addr)
	if err != nil {
		return faultAt(err, addr)
	}
	hi, err := m.Arena.Read64(addr + 8)
	if err != nil {
		return faultAt(err, addr+8)
	}
	rd := fieldRd(w)
	v := m.CPU.V[rd&31]
	v[0], v[1] = lo, hi
	m.CPU.V[rd&31] = v
	advance(m)
	return nil
}
func hVSt(m *Machine, w uint32) error {
	addr := effAddr(m, w)
	v := m.CPU.V[fieldRd(w)&31]
	if err := m.Arena.Write64(addr, v[0]); err != nil {
		return faultAt(err, addr)
	}
	if err := m.Arena.Write64(addr+8, v[1]); err != nil {
		return faultAt(err, addr+8)
	}
	advance(m)
	return nil
}
func hXVLd(m *Machine, w uint32) error {
	addr := effAddr(m, w)
	var v VReg
	for lane := 0; lane < 4; lane++ {
		word, err := m.Arena.Read64(addr + uint64(lane*8))
		if err != nil {
			return faultAt(err, addr+uint64(lane*8))
		}
		v[lane] = word
	}
	m.CPU.V[fieldRd(w)&31] = v
	advance(m)
	return nil
}
func hXVSt(m *Machine, w uint32) error {
	addr := effAddr(m, w)
	v := m.CPU.V[fieldRd(w)&31]
	for lane := 0; lane < 4; lane++ {
		if err := m.Arena.Write64(addr+uint64(lane*8), v[lane]); err != nil {
			return faultAt(err, addr+uint64(lane*8))
		}
	}
	advance(m)
	return nil
}

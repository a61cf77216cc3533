// elf_loader_test.go - ELF64/LoongArch loading, hand-built in-memory
// since no LoongArch toolchain is available to produce a real binary
// fixture here.
package laemu

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"
)

const (
	elfMachineLoongArch = 258
	elfClass64          = 2
	elfData2LSB         = 1
	elfTypeExec         = 2
	elfTypeDyn          = 3
	ptLoad              = 1
	ptInterp            = 3
	pfX                 = 1
	pfW                 = 2
	pfR                 = 4
)

// buildMinimalELF assembles a one-PT_LOAD-segment ELF64 executable:
// a 64-byte ELF header immediately followed by one 56-byte program
// header (two when withInterp adds a PT_INTERP header), then the segment
// bytes themselves.
func buildMinimalELF(vaddr, entry uint64, code []byte, etype uint16, withInterp bool) []byte {
	const ehsize = 64
	const phentsize = 56
	phnum := 1
	if withInterp {
		phnum = 2
	}

	var buf bytes.Buffer

	ident := make([]byte, 16)
	copy(ident, []byte{0x7f, 'E', 'L', 'F'})
	ident[4] = elfClass64
	ident[5] = elfData2LSB
	ident[6] = 1 // EV_CURRENT
	buf.Write(ident)

	hdr := struct {
		Type, Machine    uint16
		Version          uint32
		Entry, Phoff     uint64
		Shoff            uint64
		Flags            uint32
		Ehsize, Phentsize uint16
		Phnum, Shentsize uint16
		Shnum, Shstrndx  uint16
	}{
		Type:      etype,
		Machine:   elfMachineLoongArch,
		Version:   1,
		Entry:     entry,
		Phoff:     ehsize,
		Ehsize:    ehsize,
		Phentsize: phentsize,
		Phnum:     uint16(phnum),
	}
	binary.Write(&buf, binary.LittleEndian, hdr)

	dataOff := uint64(ehsize + phentsize*phnum)

	if withInterp {
		interpOff := dataOff
		interp := append([]byte("/lib/ld.so"), 0)
		writePhdr(&buf, ptInterp, pfR, interpOff, 0, uint64(len(interp)))
		dataOff += uint64(len(interp))
		writePhdr(&buf, ptLoad, pfR|pfX, dataOff, vaddr, uint64(len(code)))
		// interp bytes and code bytes appended below in that order
		tail := append(append([]byte{}, interp...), code...)
		buf.Write(tail)
		return buf.Bytes()
	}

	writePhdr(&buf, ptLoad, pfR|pfX, dataOff, vaddr, uint64(len(code)))
	buf.Write(code)
	return buf.Bytes()
}

func writePhdr(buf *bytes.Buffer, ptype, flags uint32, offset, vaddr, size uint64) {
	phdr := struct {
		Type, Flags           uint32
		Offset, Vaddr, Paddr  uint64
		Filesz, Memsz, Align  uint64
	}{
		Type:   ptype,
		Flags:  flags,
		Offset: offset,
		Vaddr:  vaddr,
		Paddr:  vaddr,
		Filesz: size,
		Memsz:  size,
		Align:  0x1000,
	}
	binary.Write(buf, binary.LittleEndian, phdr)
}

func TestLoadELFMapsTextSegment(t *testing.T) {
	code := assemble(
		encRI12(op10AddiD, 4, 0, 99),
		enc3R(op17Break, 0, 0, 0),
	)
	const vaddr = 0x20000
	data := buildMinimalELF(vaddr, vaddr, code, elfTypeExec, false)

	m := NewMachineWithRegistry(1<<20, NewSharedSegments())
	loaded, err := m.LoadELF(data)
	if err != nil {
		t.Fatalf("LoadELF: %v", err)
	}
	if loaded.Entry != vaddr {
		t.Fatalf("Entry = 0x%x, want 0x%x", loaded.Entry, vaddr)
	}
	if loaded.TextAddr != vaddr || loaded.TextLen != uint64(len(code)) {
		t.Fatalf("text range = [0x%x, +%d), want [0x%x, +%d)", loaded.TextAddr, loaded.TextLen, vaddr, len(code))
	}
	if m.CPU.PC != vaddr {
		t.Fatalf("CPU.PC = 0x%x, want entry 0x%x", m.CPU.PC, vaddr)
	}

	if err := m.Run(context.Background()); err != nil {
		if _, ok := err.(*Fault); !ok {
			t.Fatalf("Run: %v", err)
		}
	}
	if got := m.CPU.GPR(4); got != 99 {
		t.Fatalf("r4 = %d, want 99", got)
	}
}

// TestLoadELFSynthesizesFastExit checks that a binary with no fast_exit
// symbol gets one synthesized at its brk address, so VMCall still has a
// safe sentinel return address to plant in $ra.
func TestLoadELFSynthesizesFastExit(t *testing.T) {
	code := assemble(enc3R(op17Break, 0, 0, 0))
	const vaddr = 0x20000
	data := buildMinimalELF(vaddr, vaddr, code, elfTypeExec, false)

	m := NewMachineWithRegistry(1<<20, NewSharedSegments())
	loaded, err := m.LoadELF(data)
	if err != nil {
		t.Fatalf("LoadELF: %v", err)
	}
	if _, ok := loaded.Symbols["fast_exit"]; ok {
		t.Fatal("test fixture unexpectedly defines a fast_exit symbol")
	}
	if m.vmExitPC != loaded.BrkBase {
		t.Fatalf("vmExitPC = 0x%x, want synthesized brk address 0x%x", m.vmExitPC, loaded.BrkBase)
	}
}

func TestLoadELFRejectsInterp(t *testing.T) {
	code := assemble(enc3R(op17Break, 0, 0, 0))
	data := buildMinimalELF(0x20000, 0x20000, code, elfTypeExec, true)

	m := NewMachineWithRegistry(1<<20, NewSharedSegments())
	_, err := m.LoadELF(data)
	f, ok := err.(*Fault)
	if !ok || f.Kind != InvalidELF {
		t.Fatalf("got %v, want InvalidELF for a PT_INTERP binary", err)
	}
}

func TestLoadELFRejectsNonExecutable(t *testing.T) {
	code := assemble(enc3R(op17Break, 0, 0, 0))
	data := buildMinimalELF(0x20000, 0x20000, code, elfTypeDyn, false)

	m := NewMachineWithRegistry(1<<20, NewSharedSegments())
	_, err := m.LoadELF(data)
	f, ok := err.(*Fault)
	if !ok || f.Kind != InvalidELF {
		t.Fatalf("got %v, want InvalidELF for ET_DYN", err)
	}
}

func TestLoadELFRejectsGarbage(t *testing.T) {
	m := NewMachineWithRegistry(1<<20, NewSharedSegments())
	_, err := m.LoadELF([]byte("not an elf file"))
	f, ok := err.(*Fault)
	if !ok || f.Kind != InvalidELF {
		t.Fatalf("got %v, want InvalidELF for unparseable data", err)
	}
}

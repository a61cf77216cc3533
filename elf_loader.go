// elf_loader.go - ELF64/LoongArch static binary loader.
//
// Every PT_LOAD segment is copied into the Machine's Arena at its vaddr,
// tagged with the permission bits its ELF flags specify, and the
// resulting .text range becomes the Machine's initial decoded execute
// segment. PT_INTERP (a dynamically linked guest) is rejected with
// InvalidELF: dynamic linking is out of scope, so only statically
// linked binaries load.
package laemu

import (
	"bytes"
	"debug/elf"
	"fmt"
)

// LoadedELF describes a successfully loaded guest image.
type LoadedELF struct {
	Entry    uint64
	TextAddr uint64
	TextLen  uint64
	BrkBase  uint64
	Symbols  map[string]uint64
}

// LoadELF parses data as an ELF64 LoongArch static executable, copies
// its PT_LOAD segments into m.Arena, tags each with its ELF permission
// bits, installs the executable range as m's decoded code segment, and
// points CPU.PC at the entry address. Returns InvalidELF for anything
// that is not a static LoongArch64 executable.
func (m *Machine) LoadELF(data []byte) (*LoadedELF, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, NewFault(InvalidELF, 0)
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS64 {
		return nil, NewFault(InvalidELF, uint64(f.Class))
	}
	if f.Machine != elf.EM_LOONGARCH {
		return nil, NewFault(InvalidELF, uint64(f.Machine))
	}
	if f.Type != elf.ET_EXEC {
		return nil, NewFault(InvalidELF, uint64(f.Type))
	}
	for _, prog := range f.Progs {
		if prog.Type == elf.PT_INTERP {
			return nil, NewFault(InvalidELF, uint64(prog.Type))
		}
	}

	result := &LoadedELF{Entry: f.Entry, Symbols: make(map[string]uint64)}
	var textAddr, textLen uint64

	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		buf := make([]byte, prog.Filesz)
		if _, err := prog.ReadAt(buf, 0); err != nil {
			return nil, NewFault(InvalidELF, prog.Vaddr)
		}
		if err := m.Arena.Memcpy(prog.Vaddr, buf); err != nil {
			return nil, fmt.Errorf("loading segment at 0x%x: %w", prog.Vaddr, err)
		}
		if prog.Memsz > prog.Filesz {
			if err := m.Arena.Memset(prog.Vaddr+prog.Filesz, 0, int(prog.Memsz-prog.Filesz)); err != nil {
				return nil, fmt.Errorf("zeroing bss at 0x%x: %w", prog.Vaddr, err)
			}
		}

		perm := elfPermission(prog.Flags)
		m.Arena.Protect(prog.Vaddr, prog.Vaddr+prog.Memsz, perm)

		if perm&PermExec != 0 {
			textAddr, textLen = prog.Vaddr, prog.Memsz
		}

		if end := prog.Vaddr + prog.Memsz; end > result.BrkBase {
			result.BrkBase = end
		}
	}

	syms, _ := f.Symbols()
	for _, s := range syms {
		if s.Name != "" {
			result.Symbols[s.Name] = s.Value
		}
	}
	dynSyms, _ := f.DynamicSymbols()
	for _, s := range dynSyms {
		if s.Name != "" {
			result.Symbols[s.Name] = s.Value
		}
	}

	if textLen > 0 {
		code, err := m.Arena.ReadBytes(textAddr, int(textLen))
		if err != nil {
			return nil, err
		}
		m.LoadCode(textAddr, code)
		result.TextAddr, result.TextLen = textAddr, textLen
	}

	m.brk = result.BrkBase
	if addr, ok := result.Symbols["fast_exit"]; ok {
		m.vmExitPC = addr
	} else {
		m.vmExitPC = result.BrkBase
	}
	m.CPU.Reset(result.Entry)
	return result, nil
}

func elfPermission(flags elf.ProgFlag) Permission {
	var perm Permission
	if flags&elf.PF_R != 0 {
		perm |= PermRead
	}
	if flags&elf.PF_W != 0 {
		perm |= PermWrite
	}
	if flags&elf.PF_X != 0 {
		perm |= PermExec
	}
	return perm
}

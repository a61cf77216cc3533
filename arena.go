// arena.go - Flat memory arena backing guest memory.
//
// The arena is a single contiguous host buffer addressed by guest virtual
// addresses (byte offsets into the buffer). It carries permission-tagged
// sub-ranges — read-only, executable and read-write — and exposes typed,
// bounds-checked access to them, guarded by a mutex.

package laemu

import (
	"encoding/binary"
	"math"
	"sync"
)

// Permission is a bitmask of what an address range allows.
type Permission uint8

const (
	PermRead Permission = 1 << iota
	PermWrite
	PermExec
)

// permRange is one entry in the arena's sorted permission-range table.
type permRange struct {
	start, end uint64 // [start, end)
	perm       Permission
}

// ExecInvalidateFunc is called by the arena whenever a write lands inside
// an executable range, so the owning decoder cache can drop any decoded
// entries covering the written bytes. See DESIGN.md decision 2: writes
// into executable ranges invalidate decoder entries rather than fail,
// unless ExecWritesFault is set.
type ExecInvalidateFunc func(addr uint64, length int)

// Arena is the flat host buffer backing one Machine's guest memory.
type Arena struct {
	mu    sync.RWMutex
	bytes []byte
	perms []permRange

	// ExecWritesFault switches the executable-write policy to faulting
	// instead of invalidating (DESIGN.md decision 2). Default false.
	ExecWritesFault bool

	onExecWrite ExecInvalidateFunc

	stackAddr uint64
	mmapTop   uint64 // bump allocator high-water mark for anonymous mmap
}

// NewArena allocates a zero-filled arena of the given size. size is the
// spec's memory_max.
func NewArena(size uint64) *Arena {
	return &Arena{bytes: make([]byte, size)}
}

// Size returns memory_max.
func (a *Arena) Size() uint64 { return uint64(len(a.bytes)) }

// SetExecInvalidator installs the callback used to invalidate decoder
// cache entries on writes into executable ranges.
func (a *Arena) SetExecInvalidator(fn ExecInvalidateFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onExecWrite = fn
}

// Protect tags [start, end) with perm by appending a new tag; earlier
// tags are never replaced or removed. Lookups scan from most-recently-
// added, so a later call overrides earlier tags wherever they overlap
// (e.g. marking one function within .text executable-only after the
// whole segment was marked read-write).
func (a *Arena) Protect(start, end uint64, perm Permission) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.perms = append(a.perms, permRange{start: start, end: end, perm: perm})
}

// permissionAt returns the permission bits in effect at addr, scanning
// the tag table back-to-front so the most recently added (most specific)
// tag wins. Addresses with no explicit tag default to PermRead|PermWrite,
// matching the spec's data/bss ranges which are untagged by the loader.
func (a *Arena) permissionAt(addr uint64) Permission {
	for i := len(a.perms) - 1; i >= 0; i-- {
		r := a.perms[i]
		if addr >= r.start && addr < r.end {
			return r.perm
		}
	}
	return PermRead | PermWrite
}

func (a *Arena) checkBounds(addr uint64, length int) *Fault {
	if length < 0 || addr+uint64(length) > uint64(len(a.bytes)) || addr+uint64(length) < addr {
		return NewFault(ProtectionFault, addr)
	}
	return nil
}

func (a *Arena) checkWritable(addr uint64, length int) *Fault {
	if fault := a.checkBounds(addr, length); fault != nil {
		return fault
	}
	if a.ExecWritesFault {
		perm := a.permissionAt(addr)
		if perm&PermExec != 0 && perm&PermWrite == 0 {
			return NewFault(ProtectionFault, addr)
		}
	}
	return nil
}

func (a *Arena) notifyExecWrite(addr uint64, length int) {
	if a.onExecWrite == nil {
		return
	}
	if a.permissionAt(addr)&PermExec != 0 {
		a.onExecWrite(addr, length)
	}
}

// Read8 reads an unsigned byte at addr.
func (a *Arena) Read8(addr uint64) (uint8, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if fault := a.checkBounds(addr, 1); fault != nil {
		return 0, fault
	}
	return a.bytes[addr], nil
}

// Read16 reads a little-endian uint16 at addr.
func (a *Arena) Read16(addr uint64) (uint16, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if fault := a.checkBounds(addr, 2); fault != nil {
		return 0, fault
	}
	return binary.LittleEndian.Uint16(a.bytes[addr:]), nil
}

// Read32 reads a little-endian uint32 at addr.
func (a *Arena) Read32(addr uint64) (uint32, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if fault := a.checkBounds(addr, 4); fault != nil {
		return 0, fault
	}
	return binary.LittleEndian.Uint32(a.bytes[addr:]), nil
}

// Read64 reads a little-endian uint64 at addr.
func (a *Arena) Read64(addr uint64) (uint64, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if fault := a.checkBounds(addr, 8); fault != nil {
		return 0, fault
	}
	return binary.LittleEndian.Uint64(a.bytes[addr:]), nil
}

// ReadF32 reads an IEEE-754 single at addr.
func (a *Arena) ReadF32(addr uint64) (float32, error) {
	bits, err := a.Read32(addr)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

// ReadF64 reads an IEEE-754 double at addr.
func (a *Arena) ReadF64(addr uint64) (float64, error) {
	bits, err := a.Read64(addr)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

// Write8 writes a byte at addr.
func (a *Arena) Write8(addr uint64, v uint8) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if fault := a.checkWritable(addr, 1); fault != nil {
		return fault
	}
	a.bytes[addr] = v
	a.notifyExecWrite(addr, 1)
	return nil
}

// Write16 writes a little-endian uint16 at addr.
func (a *Arena) Write16(addr uint64, v uint16) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if fault := a.checkWritable(addr, 2); fault != nil {
		return fault
	}
	binary.LittleEndian.PutUint16(a.bytes[addr:], v)
	a.notifyExecWrite(addr, 2)
	return nil
}

// Write32 writes a little-endian uint32 at addr.
func (a *Arena) Write32(addr uint64, v uint32) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if fault := a.checkWritable(addr, 4); fault != nil {
		return fault
	}
	binary.LittleEndian.PutUint32(a.bytes[addr:], v)
	a.notifyExecWrite(addr, 4)
	return nil
}

// Write64 writes a little-endian uint64 at addr.
func (a *Arena) Write64(addr uint64, v uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if fault := a.checkWritable(addr, 8); fault != nil {
		return fault
	}
	binary.LittleEndian.PutUint64(a.bytes[addr:], v)
	a.notifyExecWrite(addr, 8)
	return nil
}

// WriteF32 writes an IEEE-754 single at addr.
func (a *Arena) WriteF32(addr uint64, v float32) error {
	return a.Write32(addr, math.Float32bits(v))
}

// WriteF64 writes an IEEE-754 double at addr.
func (a *Arena) WriteF64(addr uint64, v float64) error {
	return a.Write64(addr, math.Float64bits(v))
}

// Memcpy copies src into the arena starting at addr.
func (a *Arena) Memcpy(addr uint64, src []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if fault := a.checkWritable(addr, len(src)); fault != nil {
		return fault
	}
	copy(a.bytes[addr:], src)
	a.notifyExecWrite(addr, len(src))
	return nil
}

// Memset fills length bytes starting at addr with value.
func (a *Arena) Memset(addr uint64, value byte, length int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if fault := a.checkWritable(addr, length); fault != nil {
		return fault
	}
	region := a.bytes[addr : addr+uint64(length)]
	for i := range region {
		region[i] = value
	}
	a.notifyExecWrite(addr, length)
	return nil
}

// ReadBytes returns a read-only bounds-checked view of [addr, addr+length).
// The slice aliases arena memory; callers must not retain it past the next
// mutation of the arena.
func (a *Arena) ReadBytes(addr uint64, length int) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if fault := a.checkBounds(addr, length); fault != nil {
		return nil, fault
	}
	return a.bytes[addr : addr+uint64(length) : addr+uint64(length)], nil
}

// ReadCString reads a NUL-terminated string starting at addr, scanning at
// most maxLen bytes. Returns ProtectionFault if no terminator is found
// within bounds.
func (a *Arena) ReadCString(addr uint64, maxLen int) (string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	size := uint64(len(a.bytes))
	limit := maxLen
	if addr >= size {
		return "", NewFault(ProtectionFault, addr)
	}
	if remaining := size - addr; uint64(limit) > remaining {
		limit = int(remaining)
	}
	for i := 0; i < limit; i++ {
		if a.bytes[addr+uint64(i)] == 0 {
			return string(a.bytes[addr : addr+uint64(i)]), nil
		}
	}
	return "", NewFault(ProtectionFault, addr)
}

// SetStackAddress records the guest stack pointer's initial value. It
// never allocates — the stack lives in the same flat arena as everything
// else; the caller is responsible for having reserved room for it.
func (a *Arena) SetStackAddress(addr uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stackAddr = addr
}

// StackAddress returns the value last passed to SetStackAddress.
func (a *Arena) StackAddress() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stackAddr
}

// allocateAnon bump-allocates length bytes for an anonymous mmap,
// carving downward from the top of the arena (the conventional mmap
// region in a real process's address space sits above the heap and
// below the stack; here it sits below whatever the loader reserved at
// the very top for the initial stack). Returns the base address of the
// new region, page-aligned to 4096 as Linux's mmap contract requires.
func (a *Arena) allocateAnon(length uint64) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	const pageSize = 4096
	length = (length + pageSize - 1) &^ (pageSize - 1)
	if a.mmapTop == 0 {
		a.mmapTop = a.stackAddr
		if a.mmapTop == 0 {
			a.mmapTop = uint64(len(a.bytes))
		}
	}
	if length > a.mmapTop {
		return 0, NewFault(ProtectionFault, 0)
	}
	newTop := (a.mmapTop - length) &^ (pageSize - 1)
	a.mmapTop = newTop
	return newTop, nil
}

// Bytes returns the backing slice directly. Used by the ELF loader and by
// interpreter fast paths that need to avoid a function-call per access;
// callers other than those two must prefer the typed accessors above.
func (a *Arena) Bytes() []byte { return a.bytes }

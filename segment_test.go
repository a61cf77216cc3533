// segment_test.go - Shared-segment registry concurrency contract: many
// callers asking for the same (base_pc, crc32c, arena_size) concurrently
// must all observe the same decoded segment, decoded exactly once.
package laemu

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestSegmentDecodeBlockBytes(t *testing.T) {
	code := make([]byte, 12)
	putWord(code, 0, enc3R(op17AddW, 1, 2, 3))
	putWord(code, 4, enc3R(op17AddD, 1, 2, 3))
	putWord(code, 8, encBr16(op6Beq, 1, 2, 0))

	seg := DecodeSegment(0x1000, code)
	if seg.Instrs[0].BlockBytes != 12 {
		t.Fatalf("instr 0 BlockBytes = %d, want 12 (whole straight-line run to the branch)", seg.Instrs[0].BlockBytes)
	}
	if seg.Instrs[2].BlockBytes != 4 {
		t.Fatalf("branch instr BlockBytes = %d, want 4", seg.Instrs[2].BlockBytes)
	}
}

// TestSegmentInstallOverwritesEntry checks that Install replaces a
// decoded instruction in place and re-derives BlockBytes around it, the
// way the script layer's function-prologue replacement relies on.
func TestSegmentInstallOverwritesEntry(t *testing.T) {
	code := make([]byte, 12)
	putWord(code, 0, enc3R(op17AddW, 1, 2, 3))
	putWord(code, 4, enc3R(op17AddD, 1, 2, 3))
	putWord(code, 8, enc3R(op17AddW, 1, 2, 3))

	seg := DecodeSegment(0x1000, code)
	if seg.Instrs[0].BlockBytes != 12 {
		t.Fatalf("before Install, instr 0 BlockBytes = %d, want 12", seg.Instrs[0].BlockBytes)
	}

	syscallEntry := Decode(enc3R(op17Syscall, 0, 0, 0))
	seg.Install(0x1004, syscallEntry)

	got, ok := seg.At(0x1004)
	if !ok || got.Bytecode != BcSyscall {
		t.Fatalf("At(0x1004) = %+v, ok=%v, want the installed syscall entry", got, ok)
	}
	if seg.Instrs[0].BlockBytes != 4 {
		t.Fatalf("instr 0 BlockBytes after Install = %d, want 4 (run now stops at the divergent installed entry)", seg.Instrs[0].BlockBytes)
	}
	if seg.Instrs[2].BlockBytes != 4 {
		t.Fatalf("instr 2 BlockBytes = %d, want 4", seg.Instrs[2].BlockBytes)
	}
}

func TestSharedSegmentsDecodesOnce(t *testing.T) {
	reg := NewSharedSegments()
	code := make([]byte, 4)
	putWord(code, 0, enc3R(op17AddW, 1, 2, 3))
	key := SegmentKey{BasePC: 0x1000, CRC32C: crc32c(code), ArenaSize: 4096}

	var decodes int32
	decode := func() *DecodedExecuteSegment {
		atomic.AddInt32(&decodes, 1)
		return DecodeSegment(0x1000, code)
	}

	const n = 64
	var wg sync.WaitGroup
	segs := make([]*DecodedExecuteSegment, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			segs[i] = reg.Acquire(key, decode)
		}(i)
	}
	wg.Wait()

	if atomic.LoadInt32(&decodes) != 1 {
		t.Fatalf("decoded %d times across %d concurrent acquirers, want exactly 1", decodes, n)
	}
	for i := 1; i < n; i++ {
		if segs[i] != segs[0] {
			t.Fatal("all acquirers must receive the same *DecodedExecuteSegment")
		}
	}
	if got := reg.Count(key); got != n {
		t.Fatalf("ref count = %d, want %d", got, n)
	}

	for i := 0; i < n; i++ {
		reg.Release(key)
	}
	if got := reg.Count(key); got != 0 {
		t.Fatalf("ref count after releasing all = %d, want 0", got)
	}
}

func TestSharedSegmentsEvictsWhenUnreferenced(t *testing.T) {
	reg := NewSharedSegments()
	code := make([]byte, 4)
	putWord(code, 0, enc3R(op17AddW, 1, 2, 3))
	key := SegmentKey{BasePC: 0x2000, CRC32C: crc32c(code), ArenaSize: 4096}

	decode := func() *DecodedExecuteSegment { return DecodeSegment(0x2000, code) }

	reg.Acquire(key, decode)
	reg.Release(key)

	var redecoded bool
	reg.Acquire(key, func() *DecodedExecuteSegment {
		redecoded = true
		return decode()
	})
	if !redecoded {
		t.Fatal("expected a fresh decode once the segment had no remaining references")
	}
}

func putWord(buf []byte, offset int, w uint32) {
	buf[offset] = byte(w)
	buf[offset+1] = byte(w >> 8)
	buf[offset+2] = byte(w >> 16)
	buf[offset+3] = byte(w >> 24)
}

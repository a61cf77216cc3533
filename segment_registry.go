// segment_registry.go - Process-wide shared decoded-segment cache.
//
// The first Machine to ask for a given (base_pc, crc32c, arena_size) key
// decodes it; every later arrival — whether concurrent or sequential —
// gets the same *DecodedExecuteSegment without redoing the work.
// "First arrival decodes, everyone else waits" is exactly singleflight's
// contract, so the single-flight group does the coordination instead of
// a hand-rolled mutex-and-condvar.
package laemu

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// SegmentKey identifies a decoded segment by the three values that
// together guarantee two Machines loading "the same code" really are:
// the base address it was decoded at (decoding is PC-relative for branch
// targets), the content checksum, and the arena size (a segment decoded
// against a 64MiB arena is not safe to share with a 4KiB one, since
// bounds checks are arena-size dependent in spirit even though not baked
// into the decode itself).
type SegmentKey struct {
	BasePC    uint64
	CRC32C    uint32
	ArenaSize uint64
}

// SharedSegments is the process-wide registry. The zero value is not
// usable; use NewSharedSegments.
type SharedSegments struct {
	mu    sync.Mutex
	group singleflight.Group
	refs  map[SegmentKey]int
	segs  map[SegmentKey]*DecodedExecuteSegment
}

// NewSharedSegments constructs an empty registry.
func NewSharedSegments() *SharedSegments {
	return &SharedSegments{
		refs: make(map[SegmentKey]int),
		segs: make(map[SegmentKey]*DecodedExecuteSegment),
	}
}

// Acquire returns the decoded segment for key, decoding it via decode
// (called at most once per key, even under concurrent callers) and
// incrementing its reference count. Callers must pair every Acquire with
// a Release.
func (r *SharedSegments) Acquire(key SegmentKey, decode func() *DecodedExecuteSegment) *DecodedExecuteSegment {
	r.mu.Lock()
	if seg, ok := r.segs[key]; ok {
		r.refs[key]++
		r.mu.Unlock()
		return seg
	}
	r.mu.Unlock()

	type result struct{ seg *DecodedExecuteSegment }
	keyStr := segmentKeyString(key)
	v, _, _ := r.group.Do(keyStr, func() (interface{}, error) {
		r.mu.Lock()
		if seg, ok := r.segs[key]; ok {
			r.mu.Unlock()
			return result{seg}, nil
		}
		r.mu.Unlock()

		seg := decode()

		r.mu.Lock()
		r.segs[key] = seg
		r.mu.Unlock()
		return result{seg}, nil
	})

	// Every caller that reaches this point — the singleflight leader that
	// decoded, and every follower that was handed the same result — owns
	// one logical reference, so each bumps the count itself rather than
	// relying on the shared closure, which only ever runs once per key.
	seg := v.(result).seg
	r.mu.Lock()
	r.refs[key]++
	r.mu.Unlock()
	return seg
}

// Release decrements key's reference count, evicting the segment from
// the registry once no Machine holds it (remove_if_unique in the
// original's naming). Evicting rather than caching forever bounds memory
// when emulators load many short-lived distinct programs over a long
// process lifetime.
func (r *SharedSegments) Release(key SegmentKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs[key]--
	if r.refs[key] <= 0 {
		delete(r.refs, key)
		delete(r.segs, key)
	}
}

// Count returns the number of live references to key, for tests.
func (r *SharedSegments) Count(key SegmentKey) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refs[key]
}

func segmentKeyString(key SegmentKey) string {
	buf := make([]byte, 0, 40)
	buf = appendHex(buf, key.BasePC)
	buf = append(buf, ':')
	buf = appendHex(buf, uint64(key.CRC32C))
	buf = append(buf, ':')
	buf = appendHex(buf, key.ArenaSize)
	return string(buf)
}

func appendHex(buf []byte, v uint64) []byte {
	const digits = "0123456789abcdef"
	if v == 0 {
		return append(buf, '0')
	}
	var tmp [16]byte
	i := len(tmp)
	for v > 0 {
		i--
		tmp[i] = digits[v&0xf]
		v >>= 4
	}
	return append(buf, tmp[i:]...)
}

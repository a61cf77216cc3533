// crc32c.go - Castagnoli CRC32 checksum used to key shared decoded
// segments.
//
// Uses the standard library's hash/crc32: crc32.Castagnoli is the
// hardware-accelerated polynomial on amd64/arm64 (the runtime selects a
// SSE4.2/ARMv8 CRC32 instruction path automatically when available).
// See DESIGN.md.
package laemu

import "hash/crc32"

var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// crc32c returns the Castagnoli CRC32 of data, used as one component of
// a SegmentKey (base_pc, crc32c, arena_size).
func crc32c(data []byte) uint32 {
	return crc32.Checksum(data, castagnoliTable)
}

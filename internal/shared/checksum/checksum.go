// Package checksum computes the order id checksums used to deduplicate
// purchase events.
package checksum

import (
	"hash/crc32"
	"strconv"
)

// CRC32 returns the IEEE CRC32 of s as a signed 32-bit integer, the form
// earlier clients stored, so dedup sets written by them still match.
func CRC32(s string) int32 {
	return int32(crc32.ChecksumIEEE([]byte(s)))
}

// Key returns the dedup set key for s
func Key(s string) string {
	return strconv.FormatInt(int64(CRC32(s)), 10)
}

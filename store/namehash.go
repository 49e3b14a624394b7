package store

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// namePrefix derives the 4-byte store prefix from a logical store name.
// Spec §4.2 only requires the hash be deterministic and
// collision-free across the names a single database actually
// registers; cryptographic strength is not needed. xxhash is already
// present in go.mod as an indirect dependency of cockroachdb/pebble
// (pebble uses it for block checksums), so this reuses rather than
// adds a hashing dependency.
func namePrefix(name string) [4]byte {
	sum := xxhash.Sum64String(name)
	var out [4]byte
	var full [8]byte
	binary.BigEndian.PutUint64(full[:], sum)
	copy(out[:], full[:4])
	return out
}

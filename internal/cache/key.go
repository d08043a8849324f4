package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Key computes a deterministic cache key over the given components.
//
// Each part is length-prefixed before hashing so that component boundaries
// are unambiguous: Key("ab", "c") and Key("a", "bc") differ. Callers are
// responsible for passing components in a fixed order.
func Key(parts ...string) string {
	h := sha256.New()

	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(parts)))
	h.Write(lenBuf[:])

	for _, part := range parts {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(part)))
		h.Write(lenBuf[:])
		h.Write([]byte(part))
	}

	return hex.EncodeToString(h.Sum(nil))
}

package domain

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// ExecutionKey hashes (language, code, input) into a stable cache key.
// Fields are length prefixed so that no two distinct triples share an encoding.
func ExecutionKey(language, code, input string) string {
	h, _ := blake2b.New256(nil)
	var size [8]byte
	for _, part := range []string{language, code, input} {
		binary.BigEndian.PutUint64(size[:], uint64(len(part)))
		h.Write(size[:])
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}

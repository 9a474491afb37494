package hash

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// KeySize is the number of digest bytes kept for record identity keys.
const KeySize = 16

// Sum returns the full BLAKE3 digest of data.
func Sum(data []byte) []byte {
	h := blake3.New()
	h.Write(data)
	return h.Sum(nil)
}

// Key returns a stable, short hex identifier for s. Equal inputs always map
// to the same key across processes and releases.
func Key(s string) string {
	return hex.EncodeToString(Sum([]byte(s))[:KeySize])
}

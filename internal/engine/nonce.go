package engine

import (
	"encoding/binary"
)

// chunkNonce returns the one-block nonce of chunk idx:
// zeros || final flag || be32(idx). The key is unique per file (the salt
// is random), so the nonce only has to be unique within the file. The
// final flag makes truncation at a chunk boundary and appended chunks fail
// authentication.
func chunkNonce(size int, idx uint32, final bool) []byte {
	nonce := make([]byte, size)
	binary.BigEndian.PutUint32(nonce[size-4:], idx)
	if final {
		nonce[size-5] = 1
	}
	return nonce
}

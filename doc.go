/*
Package ocb implements the OCB (offset codebook) authenticated encryption
mode, version 1, over a pluggable 64-bit or 128-bit block cipher.

OCB encrypts and authenticates in a single pass: every full block is masked
with a distinct offset before and after the block cipher call, a running
XOR checksum of the plaintext is kept, and the tag is the encryption of that
checksum. The terminal block, which may be shorter than a block or empty,
is encrypted with a keystream derived from a length-encoded offset so that
its size is bound into the tag.

Ciphers:
  - AES, Twofish: 128-bit blocks
  - Blowfish, CAST5, XTEA, TEA: 64-bit blocks

Nonces are exactly one block long and must never repeat under the same key.
Associated data is not supported.

One-shot Usage:

	key := make([]byte, 32)
	// Fill key with random bytes...

	aead, err := ocb.NewAEAD(ocb.AES, key, 16)
	if err != nil {
		panic(err)
	}

	nonce := make([]byte, aead.NonceSize())
	// Fill nonce with a value never used before under this key...

	ciphertext := aead.Seal(nil, nonce, []byte("secret message"), nil)

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		panic("authentication failed")
	}

Incremental Usage:

	s, err := ocb.New(ocb.XTEA, key[:16], nonce[:8], ocb.Encrypt)
	if err != nil {
		panic(err)
	}

	var ct []byte
	for len(msg) > s.BlockSize() {
		ct, _ = s.EncryptBlock(ct, msg[:s.BlockSize()])
		msg = msg[s.BlockSize():]
	}
	ct, tag, err := s.EncryptFinal(ct, msg, 8)

The State returned by New is consumed by EncryptFinal or DecryptFinal,
which destroy the cipher's key schedule and zero every derived value.
DecryptFinal only recomputes the tag; comparing it against the received
tag, in constant time, is left to the caller. AEAD.Open does that and
withholds the plaintext on mismatch.
*/
package ocb

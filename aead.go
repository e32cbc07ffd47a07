package ocb

import (
	"bytes"
	"crypto/cipher"
	"crypto/subtle"
	"errors"
	"fmt"
)

var (
	// ErrOpen is returned when decryption fails (authentication error).
	ErrOpen = errors.New("ocb: message authentication failed")

	// ErrCiphertextTooShort is returned when the ciphertext is shorter than the tag.
	ErrCiphertextTooShort = errors.New("ocb: ciphertext too short")
)

// AEAD is the one-shot OCB construction over a Cipher. It implements the
// cipher.AEAD interface; each Seal or Open runs its own State, so an AEAD
// is safe for concurrent use.
//
// The nonce is one cipher block long. Associated data is not supported:
// Seal panics and Open fails when it is non-empty.
type AEAD struct {
	c       Cipher
	key     []byte
	tagSize int
}

var _ cipher.AEAD = (*AEAD)(nil)

// NewAEAD returns an AEAD over c with the given key and a tag of tagSize
// bytes, 1 <= tagSize <= c.BlockSize.
func NewAEAD(c Cipher, key []byte, tagSize int) (*AEAD, error) {
	if c.New == nil {
		return nil, fmt.Errorf("%w: %q has no key schedule", ErrUnsupportedCipher, c.Name)
	}
	if _, ok := reduction(c.BlockSize); !ok {
		return nil, fmt.Errorf("%w: %d-byte blocks", ErrUnsupportedCipher, c.BlockSize)
	}
	if tagSize < 1 || tagSize > c.BlockSize {
		return nil, fmt.Errorf("%w: tag size %d, want 1..%d", ErrInvalidArgument, tagSize, c.BlockSize)
	}

	// Reject bad keys here rather than on the first Seal.
	b, err := c.New(key)
	if err != nil {
		return nil, fmt.Errorf("ocb: %s key schedule: %w", c.Name, err)
	}
	c.destroy(b)

	return &AEAD{
		c:       c,
		key:     bytes.Clone(key),
		tagSize: tagSize,
	}, nil
}

// NonceSize returns the block size of the underlying cipher.
func (a *AEAD) NonceSize() int {
	return a.c.BlockSize
}

// Overhead returns the tag size.
func (a *AEAD) Overhead() int {
	return a.tagSize
}

// Seal encrypts and authenticates plaintext and appends the ciphertext
// followed by the tag to dst.
func (a *AEAD) Seal(dst, nonce, plaintext, additionalData []byte) []byte {
	if len(nonce) != a.NonceSize() {
		panic("ocb: incorrect nonce length given to OCB")
	}
	if len(additionalData) != 0 {
		panic("ocb: associated data is not supported")
	}

	s, err := New(a.c, a.key, nonce, Encrypt)
	if err != nil {
		panic(err)
	}

	ret, out := sliceForAppend(dst, len(plaintext)+a.tagSize)
	n := a.c.BlockSize

	// Full blocks while more than one block remains; the last 1..n bytes
	// (none only for an empty message) go through the final step.
	ct := out[:0]
	for len(plaintext) > n {
		if ct, err = s.EncryptBlock(ct, plaintext[:n]); err != nil {
			panic(err)
		}
		plaintext = plaintext[n:]
	}
	ct, tag, err := s.EncryptFinal(ct, plaintext, a.tagSize)
	if err != nil {
		panic(err)
	}
	copy(out[len(ct):], tag)

	return ret
}

// Open authenticates and decrypts ciphertext and appends the plaintext to
// dst. The plaintext is released only if the tag matches; otherwise the
// output buffer is cleared and ErrOpen is returned.
func (a *AEAD) Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error) {
	if len(nonce) != a.NonceSize() {
		panic("ocb: incorrect nonce length given to OCB")
	}
	if len(additionalData) != 0 {
		return nil, fmt.Errorf("%w: associated data is not supported", ErrInvalidArgument)
	}
	if len(ciphertext) < a.tagSize {
		return nil, ErrCiphertextTooShort
	}

	sep := len(ciphertext) - a.tagSize
	encrypted, expected := ciphertext[:sep], ciphertext[sep:]

	s, err := New(a.c, a.key, nonce, Decrypt)
	if err != nil {
		return nil, err
	}

	ret, out := sliceForAppend(dst, sep)
	n := a.c.BlockSize

	pt := out[:0]
	for len(encrypted) > n {
		if pt, err = s.DecryptBlock(pt, encrypted[:n]); err != nil {
			s.Abort()
			clear(out)
			return nil, err
		}
		encrypted = encrypted[n:]
	}
	_, tag, err := s.DecryptFinal(pt, encrypted, a.tagSize)
	if err != nil {
		s.Abort()
		clear(out)
		return nil, err
	}

	if subtle.ConstantTimeCompare(tag, expected) != 1 {
		clear(out)
		return nil, ErrOpen
	}

	return ret, nil
}

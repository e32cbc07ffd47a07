// Package ocb implements the OCB (offset codebook) authenticated encryption
// mode over any 64-bit or 128-bit block cipher.
package ocb

import (
	"crypto/cipher"
	"crypto/subtle"
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for buffers, nonces, segments or tag
	// lengths of the wrong size.
	ErrInvalidArgument = errors.New("ocb: invalid argument")

	// ErrUnsupportedCipher is returned when a cipher descriptor lacks a key
	// schedule or has a block size the mode has no field for.
	ErrUnsupportedCipher = errors.New("ocb: unsupported cipher")

	// ErrInvalidState is returned when a finished stream is used again, or
	// when a stream is driven in the direction it was not created for.
	ErrInvalidState = errors.New("ocb: invalid state")
)

// Direction selects whether a State encrypts or decrypts.
type Direction int

const (
	Encrypt Direction = iota
	Decrypt
)

func (d Direction) String() string {
	switch d {
	case Encrypt:
		return "encrypt"
	case Decrypt:
		return "decrypt"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// State is a single OCB stream: zero or more full blocks followed by exactly
// one call to EncryptFinal or DecryptFinal. A State must not be used from
// more than one goroutine; independent streams need independent States,
// each with its own nonce.
type State struct {
	c     Cipher
	block cipher.Block

	off      offsets
	checksum [maxBlockSize]byte

	dir       Direction
	finalized bool
}

// New schedules key under c and seeds a stream from nonce, which must be
// exactly one block long. The nonce must never repeat under the same key;
// the mode does not check.
func New(c Cipher, key, nonce []byte, dir Direction) (*State, error) {
	if c.New == nil {
		return nil, fmt.Errorf("%w: %q has no key schedule", ErrUnsupportedCipher, c.Name)
	}
	poly, ok := reduction(c.BlockSize)
	if !ok {
		return nil, fmt.Errorf("%w: %d-byte blocks", ErrUnsupportedCipher, c.BlockSize)
	}
	if dir != Encrypt && dir != Decrypt {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, dir)
	}
	if len(nonce) != c.BlockSize {
		return nil, fmt.Errorf("%w: nonce is %d bytes, want %d", ErrInvalidArgument, len(nonce), c.BlockSize)
	}

	block, err := c.New(key)
	if err != nil {
		return nil, fmt.Errorf("ocb: %s key schedule: %w", c.Name, err)
	}
	if block == nil {
		return nil, fmt.Errorf("%w: %q returned no block", ErrUnsupportedCipher, c.Name)
	}
	if block.BlockSize() != c.BlockSize {
		c.destroy(block)
		return nil, fmt.Errorf("%w: %s block is %d bytes, descriptor says %d",
			ErrInvalidArgument, c.Name, block.BlockSize(), c.BlockSize)
	}

	s := &State{c: c, block: block, dir: dir}
	s.off.init(block, nonce, poly)
	return s, nil
}

// BlockSize returns the block length of the underlying cipher.
func (s *State) BlockSize() int {
	return s.c.BlockSize
}

// Finalized reports whether the stream has been finished or aborted.
func (s *State) Finalized() bool {
	return s.finalized
}

func (s *State) check(dir Direction) error {
	if s.finalized {
		return fmt.Errorf("%w: stream already finalized", ErrInvalidState)
	}
	if dir != s.dir {
		return fmt.Errorf("%w: %v on a %v stream", ErrInvalidState, dir, s.dir)
	}
	return nil
}

// EncryptBlock encrypts one full block of plaintext and appends the
// ciphertext to dst. dst and plaintext may overlap exactly.
func (s *State) EncryptBlock(dst, plaintext []byte) ([]byte, error) {
	if err := s.check(Encrypt); err != nil {
		return nil, err
	}
	n := s.c.BlockSize
	if len(plaintext) != n {
		return nil, fmt.Errorf("%w: block is %d bytes, want %d", ErrInvalidArgument, len(plaintext), n)
	}

	ret, out := sliceForAppend(dst, n)
	z := s.off.next()

	// C = E(P xor Z) xor Z
	subtle.XORBytes(s.checksum[:n], s.checksum[:n], plaintext)
	subtle.XORBytes(out, plaintext, z)
	s.block.Encrypt(out, out)
	subtle.XORBytes(out, out, z)

	return ret, nil
}

// DecryptBlock decrypts one full block of ciphertext and appends the
// plaintext to dst. dst and ciphertext may overlap exactly.
func (s *State) DecryptBlock(dst, ciphertext []byte) ([]byte, error) {
	if err := s.check(Decrypt); err != nil {
		return nil, err
	}
	n := s.c.BlockSize
	if len(ciphertext) != n {
		return nil, fmt.Errorf("%w: block is %d bytes, want %d", ErrInvalidArgument, len(ciphertext), n)
	}

	ret, out := sliceForAppend(dst, n)
	z := s.off.next()

	// P = D(C xor Z) xor Z
	subtle.XORBytes(out, ciphertext, z)
	s.block.Decrypt(out, out)
	subtle.XORBytes(out, out, z)
	subtle.XORBytes(s.checksum[:n], s.checksum[:n], out)

	return ret, nil
}

// EncryptFinal encrypts the terminal segment of at most one block, appends
// the ciphertext to dst and returns the first min(tagLen, BlockSize())
// bytes of the tag. The stream is consumed: the key schedule is destroyed
// and every derived value is zeroed.
//
// Argument errors are reported before any cipher call and leave the
// stream usable.
func (s *State) EncryptFinal(dst, plaintext []byte, tagLen int) (out, tag []byte, err error) {
	return s.finish(Encrypt, dst, plaintext, tagLen)
}

// DecryptFinal decrypts the terminal segment of at most one block, appends
// the plaintext to dst and returns the recomputed tag, truncated as in
// EncryptFinal. It does not verify anything: the caller must compare the
// tag in constant time and withhold the plaintext on mismatch. AEAD.Open
// does both.
func (s *State) DecryptFinal(dst, ciphertext []byte, tagLen int) (out, tag []byte, err error) {
	return s.finish(Decrypt, dst, ciphertext, tagLen)
}

func (s *State) finish(dir Direction, dst, in []byte, tagLen int) ([]byte, []byte, error) {
	if err := s.check(dir); err != nil {
		return nil, nil, err
	}
	n := s.c.BlockSize
	m := len(in)
	if m > n {
		return nil, nil, fmt.Errorf("%w: final segment is %d bytes, max %d", ErrInvalidArgument, m, n)
	}
	if tagLen < 0 {
		return nil, nil, fmt.Errorf("%w: tag length %d", ErrInvalidArgument, tagLen)
	}

	var x, y, z [maxBlockSize]byte
	defer func() {
		clear(x[:])
		clear(y[:])
		clear(z[:])
	}()
	defer s.wipe()

	// X = Z xor len(segment) xor Lr, Y = E(X)
	s.off.final(&z, &x, m)
	s.block.Encrypt(y[:n], x[:n])

	ret, out := sliceForAppend(dst, m)

	// The checksum takes the ciphertext of the terminal segment, which is
	// the input when decrypting and the output when encrypting.
	if dir == Decrypt {
		subtle.XORBytes(s.checksum[:m], s.checksum[:m], in)
	}
	subtle.XORBytes(out, in, y[:m])
	if dir == Encrypt {
		subtle.XORBytes(s.checksum[:m], s.checksum[:m], out)
	}

	subtle.XORBytes(s.checksum[:n], s.checksum[:n], y[:n])
	subtle.XORBytes(s.checksum[:n], s.checksum[:n], z[:n])

	// T = E(checksum), reusing x.
	s.block.Encrypt(x[:n], s.checksum[:n])

	tag := make([]byte, min(tagLen, n))
	copy(tag, x[:n])

	return ret, tag, nil
}

// Abort destroys the key schedule and zeroes the stream without producing
// a tag. It is a no-op on a finished stream.
func (s *State) Abort() {
	if s.finalized {
		return
	}
	s.wipe()
}

func (s *State) wipe() {
	s.c.destroy(s.block)
	s.block = nil
	s.off.wipe()
	clear(s.checksum[:])
	s.finalized = true
}

// sliceForAppend extends the input slice to accommodate n more bytes.
// Returns the extended slice and the n-byte slice to write to.
func sliceForAppend(in []byte, n int) (head, tail []byte) {
	if total := len(in) + n; cap(in) >= total {
		head = in[:total]
	} else {
		head = make([]byte, total)
		copy(head, in)
	}
	tail = head[len(in):]
	return
}

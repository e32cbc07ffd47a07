package ocb

import (
	"crypto/aes"
	"crypto/cipher"
	"strings"

	"golang.org/x/crypto/blowfish"
	"golang.org/x/crypto/cast5"
	"golang.org/x/crypto/tea"
	"golang.org/x/crypto/twofish"
	"golang.org/x/crypto/xtea"
)

// Cipher describes a block cipher the mode can run over.
//
// New schedules a key and returns the primitive; the returned block's
// Encrypt and Decrypt are the only operations the mode uses. Destroy, if
// set, zeroizes a key schedule previously returned by New. The mode calls
// it exactly once per schedule, when the stream is finished or when setup
// fails after the key was scheduled.
type Cipher struct {
	Name      string
	BlockSize int
	// KeySize is the key length callers should derive for this cipher.
	KeySize int

	New     func(key []byte) (cipher.Block, error)
	Destroy func(cipher.Block)
}

func (c Cipher) destroy(b cipher.Block) {
	if c.Destroy != nil && b != nil {
		c.Destroy(b)
	}
}

var (
	// AES is AES-128/192/256 from crypto/aes. The standard library does not
	// expose its key schedule, so there is no Destroy.
	AES = Cipher{
		Name:      "AES",
		BlockSize: aes.BlockSize,
		KeySize:   32,
		New:       aes.NewCipher,
	}

	// Twofish is the 128-bit block Twofish cipher.
	Twofish = Cipher{
		Name:      "Twofish",
		BlockSize: twofish.BlockSize,
		KeySize:   32,
		New: func(key []byte) (cipher.Block, error) {
			c, err := twofish.NewCipher(key)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		Destroy: func(b cipher.Block) {
			if c, ok := b.(*twofish.Cipher); ok {
				*c = twofish.Cipher{}
			}
		},
	}

	// Blowfish is the 64-bit block Blowfish cipher.
	Blowfish = Cipher{
		Name:      "Blowfish",
		BlockSize: blowfish.BlockSize,
		KeySize:   16,
		New: func(key []byte) (cipher.Block, error) {
			c, err := blowfish.NewCipher(key)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		Destroy: func(b cipher.Block) {
			if c, ok := b.(*blowfish.Cipher); ok {
				*c = blowfish.Cipher{}
			}
		},
	}

	// CAST5 is the 64-bit block CAST-128 cipher (RFC 2144).
	CAST5 = Cipher{
		Name:      "CAST5",
		BlockSize: cast5.BlockSize,
		KeySize:   cast5.KeySize,
		New: func(key []byte) (cipher.Block, error) {
			c, err := cast5.NewCipher(key)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		Destroy: func(b cipher.Block) {
			if c, ok := b.(*cast5.Cipher); ok {
				*c = cast5.Cipher{}
			}
		},
	}

	// XTEA is the 64-bit block XTEA cipher.
	XTEA = Cipher{
		Name:      "XTEA",
		BlockSize: xtea.BlockSize,
		KeySize:   16,
		New: func(key []byte) (cipher.Block, error) {
			c, err := xtea.NewCipher(key)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		Destroy: func(b cipher.Block) {
			if c, ok := b.(*xtea.Cipher); ok {
				*c = xtea.Cipher{}
			}
		},
	}

	// TEA is the 64-bit block TEA cipher with the standard 64 rounds.
	TEA = Cipher{
		Name:      "TEA",
		BlockSize: tea.BlockSize,
		KeySize:   tea.KeySize,
		New:       tea.NewCipher,
	}
)

// Ciphers returns the built-in cipher descriptors.
func Ciphers() []Cipher {
	return []Cipher{AES, Twofish, Blowfish, CAST5, XTEA, TEA}
}

// CipherByName returns the built-in descriptor with the given name,
// compared case-insensitively.
func CipherByName(name string) (Cipher, bool) {
	for _, c := range Ciphers() {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Cipher{}, false
}

// Package kdf stretches passphrases into cipher keys.
package kdf

import "golang.org/x/crypto/argon2"

// SaltSize is the salt length stored in the file header.
const SaltSize = 16

// Params are the argon2id cost parameters.
type Params struct {
	Time    uint32 // iterations
	Memory  uint32 // KiB (e.g. 64*1024 = 64MiB)
	Threads uint8
}

// Default is the cost used for new files.
var Default = Params{
	Time: 3, Memory: 64 * 1024, Threads: 4,
}

// DeriveKey returns a keyLen-byte key for pass and salt.
func DeriveKey(pass, salt []byte, p Params, keyLen uint32) []byte {
	return argon2.IDKey(pass, salt, p.Time, p.Memory, p.Threads, keyLen)
}

// Package header encodes the header of a sealed file.
package header

import (
	"github.com/jedisct1/go-ocb/internal/kdf"
)

const Magic = "OCB1"
const Version = 1

// Header describes how a sealed file was produced. The raw header bytes
// are used as the KDF salt, so a tampered header yields a different key
// and fails authentication of the first chunk.
type Header struct {
	Cipher    string
	TagSize   uint8
	Salt      [kdf.SaltSize]byte
	ChunkSize uint32
	KDF       kdf.Params
}

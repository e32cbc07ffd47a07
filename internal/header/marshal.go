package header

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/jedisct1/go-ocb/internal/kdf"
)

// "OCB1" + ver + nameLen
const prefixSize = 4 + 1 + 1

// tagSize + salt + chunkSize + time + memory + threads
const suffixSize = 1 + kdf.SaltSize + 4 + 4 + 4 + 1

// Size returns the serialized size of h.
func Size(h Header) int { return prefixSize + len(h.Cipher) + suffixSize }

// Marshal serializes the header into a buffer.
func Marshal(h Header) ([]byte, error) {
	if len(h.Cipher) == 0 || len(h.Cipher) > 255 {
		return nil, fmt.Errorf("header: cipher name must be 1..255 bytes, got %d", len(h.Cipher))
	}

	buf := make([]byte, 0, Size(h))
	buf = append(buf, Magic...)
	buf = append(buf, byte(Version))
	buf = append(buf, byte(len(h.Cipher)))
	buf = append(buf, h.Cipher...)
	buf = append(buf, h.TagSize)
	buf = append(buf, h.Salt[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, h.ChunkSize)
	buf = binary.LittleEndian.AppendUint32(buf, h.KDF.Time)
	buf = binary.LittleEndian.AppendUint32(buf, h.KDF.Memory)
	buf = append(buf, h.KDF.Threads)
	return buf, nil
}

// Unmarshal parses a header from a buffer.
func Unmarshal(b []byte) (Header, error) {
	var hdr Header
	if len(b) < prefixSize {
		return hdr, errors.New("header: short buffer")
	}
	if string(b[:4]) != Magic || b[4] != byte(Version) {
		return hdr, errors.New("header: bad magic/version")
	}
	nameLen := int(b[5])
	if nameLen == 0 {
		return hdr, errors.New("header: empty cipher name")
	}
	if len(b) < prefixSize+nameLen+suffixSize {
		return hdr, errors.New("header: short buffer")
	}

	off := prefixSize
	hdr.Cipher = string(b[off : off+nameLen])
	off += nameLen
	hdr.TagSize = b[off]
	off++
	copy(hdr.Salt[:], b[off:off+len(hdr.Salt)])
	off += len(hdr.Salt)
	hdr.ChunkSize = binary.LittleEndian.Uint32(b[off : off+4])
	off += 4
	hdr.KDF.Time = binary.LittleEndian.Uint32(b[off : off+4])
	off += 4
	hdr.KDF.Memory = binary.LittleEndian.Uint32(b[off : off+4])
	off += 4
	hdr.KDF.Threads = b[off]
	return hdr, nil
}

// WriteRaw writes h to w and returns the bytes written.
func WriteRaw(w io.Writer, h Header) ([]byte, error) {
	b, err := Marshal(h)
	if err != nil {
		return nil, err
	}
	_, err = w.Write(b)
	return b, err
}

// ReadRaw reads a header from r and returns it along with its raw bytes.
func ReadRaw(r io.Reader) (Header, []byte, error) {
	b := make([]byte, prefixSize)
	if _, err := io.ReadFull(r, b); err != nil {
		return Header{}, nil, err
	}
	if string(b[:4]) != Magic || b[4] != byte(Version) {
		return Header{}, nil, errors.New("header: bad magic/version")
	}

	b = append(b, make([]byte, int(b[5])+suffixSize)...)
	if _, err := io.ReadFull(r, b[prefixSize:]); err != nil {
		return Header{}, nil, err
	}
	h, err := Unmarshal(b)
	return h, b, err
}

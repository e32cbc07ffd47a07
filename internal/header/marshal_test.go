package header

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jedisct1/go-ocb/internal/kdf"
)

func testHeader() Header {
	h := Header{
		Cipher:    "Blowfish",
		TagSize:   8,
		ChunkSize: 1 << 16,
		KDF:       kdf.Params{Time: 2, Memory: 4096, Threads: 3},
	}
	for i := range h.Salt {
		h.Salt[i] = byte(i + 1)
	}
	return h
}

func TestMarshalUnmarshal(t *testing.T) {
	require := require.New(t)

	h := testHeader()
	b, err := Marshal(h)
	require.NoError(err)
	require.Len(b, Size(h))
	require.Equal(Magic, string(b[:4]))

	got, err := Unmarshal(b)
	require.NoError(err)
	require.Equal(h, got)
}

func TestReadRaw(t *testing.T) {
	require := require.New(t)

	h := testHeader()
	var buf bytes.Buffer
	written, err := WriteRaw(&buf, h)
	require.NoError(err)
	buf.WriteString("trailing chunk data")

	got, raw, err := ReadRaw(&buf)
	require.NoError(err)
	require.Equal(h, got)
	require.Equal(written, raw)
	require.Equal("trailing chunk data", buf.String())
}

func TestUnmarshalRejects(t *testing.T) {
	b, err := Marshal(testHeader())
	require.NoError(t, err)

	badMagic := bytes.Clone(b)
	badMagic[0] = 'X'
	badVersion := bytes.Clone(b)
	badVersion[4] = 2
	noName := bytes.Clone(b)
	noName[5] = 0

	for name, in := range map[string][]byte{
		"empty":       nil,
		"short":       b[:prefixSize-1],
		"truncated":   b[:len(b)-1],
		"bad magic":   badMagic,
		"bad version": badVersion,
		"no name":     noName,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Unmarshal(in)
			require.Error(t, err)
		})
	}

	_, _, err = ReadRaw(bytes.NewReader(b[:len(b)-3]))
	require.Error(t, err)
	_, _, err = ReadRaw(bytes.NewReader(badMagic))
	require.Error(t, err)
}

func TestMarshalRejectsName(t *testing.T) {
	h := testHeader()
	h.Cipher = ""
	_, err := Marshal(h)
	require.Error(t, err)

	h.Cipher = string(make([]byte, 256))
	_, err = Marshal(h)
	require.Error(t, err)
}

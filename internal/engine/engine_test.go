package engine

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jedisct1/go-ocb"
	"github.com/jedisct1/go-ocb/internal/header"
	"github.com/jedisct1/go-ocb/internal/kdf"
	"github.com/jedisct1/go-ocb/internal/log"
)

var cheapKDF = kdf.Params{Time: 1, Memory: 64, Threads: 1}

func testOptions(t *testing.T, c ocb.Cipher, data []byte) Options {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "plain")
	require.NoError(t, os.WriteFile(in, data, 0600))

	backend, err := log.New("", "DEBUG", true)
	require.NoError(t, err)

	return Options{
		InPath:    in,
		OutPath:   filepath.Join(dir, "sealed"),
		Pass:      []byte("hunter2"),
		Cipher:    c,
		ChunkSize: 4096,
		Workers:   3,
		KDF:       cheapKDF,
		Log:       backend.GetLogger("engine"),
	}
}

func seal(t *testing.T, c ocb.Cipher, data []byte) Options {
	t.Helper()
	opt := testOptions(t, c, data)
	require.NoError(t, EncryptFile(context.Background(), opt))
	return opt
}

func open(opt Options, out string) error {
	opt.InPath, opt.OutPath = opt.OutPath, out
	return DecryptFile(context.Background(), opt)
}

func TestRoundTrip(t *testing.T) {
	sizes := []int{0, 1, 4095, 4096, 4097, 3 * 4096, 10*4096 + 17}
	for _, c := range []ocb.Cipher{ocb.AES, ocb.Blowfish, ocb.XTEA} {
		for _, n := range sizes {
			data := bytes.Repeat([]byte{0xa5, byte(n)}, n/2+1)[:n]
			opt := seal(t, c, data)

			out := filepath.Join(t.TempDir(), "opened")
			require.NoError(t, open(opt, out), "%s, %d bytes", c.Name, n)

			got, err := os.ReadFile(out)
			require.NoError(t, err)
			require.Equal(t, data, got, "%s, %d bytes", c.Name, n)
		}
	}
}

func TestSealedLayout(t *testing.T) {
	require := require.New(t)

	data := make([]byte, 4096+10)
	opt := seal(t, ocb.CAST5, data)

	f, err := os.Open(opt.OutPath)
	require.NoError(err)
	defer f.Close()

	h, raw, err := header.ReadRaw(f)
	require.NoError(err)
	require.Equal("CAST5", h.Cipher)
	require.Equal(uint8(8), h.TagSize)
	require.Equal(uint32(4096), h.ChunkSize)
	require.Equal(cheapKDF, h.KDF)

	fi, err := f.Stat()
	require.NoError(err)
	// two chunks: 4096+8 and 10+8, each with a 4-byte length
	require.Equal(int64(len(raw)+4+4096+8+4+10+8), fi.Size())

	_, err = os.Stat(opt.OutPath + ".part")
	require.True(os.IsNotExist(err))
}

func TestWrongPassphrase(t *testing.T) {
	opt := seal(t, ocb.AES, []byte("attack at dawn"))
	opt.Pass = []byte("hunter3")

	out := filepath.Join(t.TempDir(), "opened")
	err := open(opt, out)
	require.ErrorIs(t, err, ErrVerify)

	_, err = os.Stat(out)
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(out + ".part")
	require.True(t, os.IsNotExist(err))
}

func tamper(t *testing.T, opt Options, fn func([]byte) []byte) Options {
	t.Helper()
	b, err := os.ReadFile(opt.OutPath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(opt.OutPath, fn(b), 0600))
	return opt
}

func TestTamperDetected(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789abcdef"), 1000) // 4 chunks

	t.Run("flipped ciphertext bit", func(t *testing.T) {
		opt := tamper(t, seal(t, ocb.AES, data), func(b []byte) []byte {
			b[len(b)-100] ^= 0x10
			return b
		})
		require.ErrorIs(t, open(opt, filepath.Join(t.TempDir(), "o")), ErrVerify)
	})

	t.Run("flipped header bit", func(t *testing.T) {
		opt := tamper(t, seal(t, ocb.AES, data), func(b []byte) []byte {
			b[10] ^= 0x01 // inside the cipher name or the salt
			return b
		})
		require.Error(t, open(opt, filepath.Join(t.TempDir(), "o")))
	})

	t.Run("truncated at chunk boundary", func(t *testing.T) {
		opt := seal(t, ocb.AES, data)
		f, err := os.Open(opt.OutPath)
		require.NoError(t, err)
		_, raw, err := header.ReadRaw(f)
		require.NoError(t, err)
		f.Close()

		opt = tamper(t, opt, func(b []byte) []byte {
			return b[:len(raw)+2*(4+4096+16)]
		})
		require.ErrorIs(t, open(opt, filepath.Join(t.TempDir(), "o")), ErrVerify)
	})

	t.Run("truncated to header", func(t *testing.T) {
		opt := seal(t, ocb.AES, data)
		opt = tamper(t, opt, func(b []byte) []byte {
			return b[:header.Size(header.Header{Cipher: "AES"})]
		})
		require.ErrorIs(t, open(opt, filepath.Join(t.TempDir(), "o")), ErrTruncated)
	})

	t.Run("appended chunk", func(t *testing.T) {
		opt := seal(t, ocb.AES, data)
		opt = tamper(t, opt, func(b []byte) []byte {
			// repeat the final chunk: 4 + (16000 - 3*4096) + 16 bytes
			last := 4 + (len(data) - 3*4096) + 16
			return append(b, b[len(b)-last:]...)
		})
		require.Error(t, open(opt, filepath.Join(t.TempDir(), "o")))
	})
}

func TestCancelled(t *testing.T) {
	opt := testOptions(t, ocb.AES, make([]byte, 20000))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := EncryptFile(ctx, opt)
	require.True(t, errors.Is(err, context.Canceled))
	_, err = os.Stat(opt.OutPath + ".part")
	require.True(t, os.IsNotExist(err))
}

func TestEncryptRejectsTagSize(t *testing.T) {
	opt := testOptions(t, ocb.XTEA, []byte("x"))
	opt.TagSize = 9
	require.Error(t, EncryptFile(context.Background(), opt))
}

func TestChunkNonce(t *testing.T) {
	require := require.New(t)

	require.Equal([]byte{0, 0, 0, 0, 0, 0, 1, 2}, chunkNonce(8, 258, false))
	require.Equal([]byte{0, 0, 0, 1, 0, 0, 1, 2}, chunkNonce(8, 258, true))
	require.Len(chunkNonce(16, 0, true), 16)
	require.NotEqual(chunkNonce(16, 5, true), chunkNonce(16, 5, false))
}

func TestAutoAdjust(t *testing.T) {
	require := require.New(t)

	opt := AutoAdjust(Options{InPath: filepath.Join(t.TempDir(), "missing")})
	require.Equal(defaultChunk, opt.ChunkSize)
	require.GreaterOrEqual(opt.Workers, 1)
	require.NotNil(opt.Log)

	in := filepath.Join(t.TempDir(), "small")
	require.NoError(os.WriteFile(in, make([]byte, 100), 0600))
	opt = AutoAdjust(Options{InPath: in, Workers: 8})
	require.Equal(minChunk, opt.ChunkSize)
	require.Equal(1, opt.Workers)

	require.Equal(maxAutoChunk, pickChunkSize(1<<40, 1))
	require.Zero(pickChunkSize(10<<20, 4) % chunkAlign)
}

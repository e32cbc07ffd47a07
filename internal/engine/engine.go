// Package engine seals and opens files as a sequence of OCB chunks.
//
// A sealed file is a header followed by chunks, each stored as
// le32(len) || ciphertext || tag. Chunks are processed in batches of
// Options.Workers, concurrently within a batch and written in order.
package engine

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/jedisct1/go-ocb"
	"github.com/jedisct1/go-ocb/internal/header"
	"github.com/jedisct1/go-ocb/internal/kdf"
)

var (
	// ErrTruncated is returned when a sealed file ends before its final chunk.
	ErrTruncated = errors.New("engine: sealed file is truncated")

	// ErrVerify is returned when a chunk fails authentication.
	ErrVerify = errors.New("engine: verification failed: wrong passphrase, or file corrupted or tampered")
)

// Upper bound on the argon2 memory accepted from a header, in KiB.
const maxAcceptedMemory = 4 << 20

type chunk struct {
	idx   uint32
	final bool
	in    []byte
	out   []byte
}

// EncryptFile seals opt.InPath into opt.OutPath.
func EncryptFile(ctx context.Context, opt Options) (retErr error) {
	opt = AutoAdjust(opt)
	log := opt.Log

	if opt.TagSize == 0 {
		opt.TagSize = opt.Cipher.BlockSize
	}
	if opt.TagSize < 1 || opt.TagSize > opt.Cipher.BlockSize {
		return fmt.Errorf("engine: tag size %d out of range for %s", opt.TagSize, opt.Cipher.Name)
	}
	if opt.ChunkSize > MaxAcceptedChunk {
		return fmt.Errorf("engine: chunk size %d exceeds %d", opt.ChunkSize, MaxAcceptedChunk)
	}
	log.Infof("Encrypt opts: cipher=%s tag=%d workers=%d chunk=%d",
		opt.Cipher.Name, opt.TagSize, opt.Workers, opt.ChunkSize)

	src, err := os.Open(opt.InPath)
	if err != nil {
		return err
	}
	defer src.Close()

	tmp, dst, w, err := createTemp(opt.OutPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = dst.Close()
		if retErr != nil {
			_ = os.Remove(tmp)
		}
	}()

	// build header
	h := header.Header{
		Cipher:    opt.Cipher.Name,
		TagSize:   uint8(opt.TagSize),
		ChunkSize: opt.ChunkSize,
		KDF:       opt.KDF,
	}
	if _, err := io.ReadFull(rand.Reader, h.Salt[:]); err != nil {
		return err
	}
	headerBytes, err := header.WriteRaw(w, h)
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	aead, err := newAEAD(opt.Cipher, opt.Pass, headerBytes, h)
	if err != nil {
		return err
	}

	br := bufio.NewReaderSize(src, int(opt.ChunkSize))
	var idx uint32
	for done := false; !done; {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch := make([]chunk, 0, opt.Workers)
		for len(batch) < opt.Workers && !done {
			buf := make([]byte, opt.ChunkSize, int(opt.ChunkSize)+opt.TagSize)
			n, rerr := io.ReadFull(br, buf)
			switch {
			case rerr == io.EOF || rerr == io.ErrUnexpectedEOF:
				done = true
			case rerr != nil:
				return rerr
			default:
				if _, perr := br.Peek(1); perr == io.EOF {
					done = true
				} else if perr != nil {
					return perr
				}
			}
			if idx == math.MaxUint32 && !done {
				return errors.New("file too large: chunk index would wrap")
			}
			batch = append(batch, chunk{idx: idx, final: done, in: buf[:n]})
			idx++
		}

		if err := processBatch(ctx, batch, func(c *chunk) error {
			nonce := chunkNonce(aead.NonceSize(), c.idx, c.final)
			c.out = aead.Seal(c.in[:0], nonce, c.in, nil)
			return nil
		}); err != nil {
			return err
		}

		var lenBuf [4]byte
		for _, c := range batch {
			binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(c.out)))
			if _, err := w.Write(lenBuf[:]); err != nil {
				return fmt.Errorf("write len: %w", err)
			}
			if _, err := w.Write(c.out); err != nil {
				return fmt.Errorf("write ct: %w", err)
			}
			log.Debugf("sealed chunk %d (%d bytes, final=%v)", c.idx, len(c.in), c.final)
		}
	}

	log.Infof("Sealed %d chunks", idx)
	return commit(w, dst, tmp, opt.OutPath)
}

// DecryptFile opens the sealed opt.InPath into opt.OutPath. Nothing is
// left at opt.OutPath unless every chunk authenticates.
func DecryptFile(ctx context.Context, opt Options) (retErr error) {
	opt = AutoAdjust(opt)
	log := opt.Log

	src, err := os.Open(opt.InPath)
	if err != nil {
		return err
	}
	defer src.Close()

	// read header and keep exact bytes for the key derivation
	h, headerBytes, err := header.ReadRaw(src)
	if err != nil {
		return err
	}
	c, err := checkHeader(h)
	if err != nil {
		return err
	}
	log.Infof("Decrypt opts: cipher=%s tag=%d workers=%d chunk=%d",
		c.Name, h.TagSize, opt.Workers, h.ChunkSize)

	aead, err := newAEAD(c, opt.Pass, headerBytes, h)
	if err != nil {
		return err
	}

	tmp, dst, w, err := createTemp(opt.OutPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = dst.Close()
		if retErr != nil {
			_ = os.Remove(tmp)
		}
	}()

	br := bufio.NewReaderSize(src, int(h.ChunkSize)+aead.Overhead()+4)
	maxLen := int(h.ChunkSize) + aead.Overhead()
	var idx uint32
	for done := false; !done; {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch := make([]chunk, 0, opt.Workers)
		for len(batch) < opt.Workers && !done {
			var lenBuf [4]byte
			if _, rerr := io.ReadFull(br, lenBuf[:]); rerr != nil {
				if rerr == io.EOF {
					return ErrTruncated
				}
				return fmt.Errorf("read chunk length: %w", rerr)
			}
			l := int(binary.LittleEndian.Uint32(lenBuf[:]))
			if l < aead.Overhead() || l > maxLen {
				return fmt.Errorf("engine: bad length %d for chunk %d", l, idx)
			}

			ct := make([]byte, l)
			if _, rerr := io.ReadFull(br, ct); rerr != nil {
				return fmt.Errorf("read ciphertext: %w", rerr)
			}

			if _, perr := br.Peek(1); perr == io.EOF {
				done = true
			} else if perr != nil {
				return perr
			} else if l != maxLen {
				return fmt.Errorf("engine: short chunk %d before the end of the file", idx)
			}

			batch = append(batch, chunk{idx: idx, final: done, in: ct})
			if idx == math.MaxUint32 && !done {
				return errors.New("file too large: chunk index would wrap")
			}
			idx++
		}

		if err := processBatch(ctx, batch, func(c *chunk) error {
			nonce := chunkNonce(aead.NonceSize(), c.idx, c.final)
			pt, err := aead.Open(c.in[:0], nonce, c.in, nil)
			if err != nil {
				return fmt.Errorf("%w (chunk %d)", ErrVerify, c.idx)
			}
			c.out = pt
			return nil
		}); err != nil {
			return err
		}

		for _, c := range batch {
			if _, err := w.Write(c.out); err != nil {
				return fmt.Errorf("write plaintext: %w", err)
			}
			log.Debugf("opened chunk %d (%d bytes, final=%v)", c.idx, len(c.out), c.final)
		}
	}

	log.Infof("Opened %d chunks", idx)
	return commit(w, dst, tmp, opt.OutPath)
}

// processBatch runs fn over every chunk of the batch concurrently.
func processBatch(ctx context.Context, batch []chunk, fn func(*chunk) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := range batch {
		c := &batch[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(c)
		})
	}
	return g.Wait()
}

func newAEAD(c ocb.Cipher, pass, headerBytes []byte, h header.Header) (*ocb.AEAD, error) {
	key := kdf.DeriveKey(pass, headerBytes, h.KDF, uint32(c.KeySize))
	defer clear(key)

	aead, err := ocb.NewAEAD(c, key, int(h.TagSize))
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	return aead, nil
}

func checkHeader(h header.Header) (ocb.Cipher, error) {
	c, ok := ocb.CipherByName(h.Cipher)
	if !ok {
		return ocb.Cipher{}, fmt.Errorf("header: unknown cipher %q", h.Cipher)
	}
	if h.TagSize == 0 || int(h.TagSize) > c.BlockSize {
		return ocb.Cipher{}, errors.New("header: tag size out of range")
	}
	if h.ChunkSize == 0 || h.ChunkSize > MaxAcceptedChunk {
		return ocb.Cipher{}, errors.New("header: chunk size out of range")
	}
	if h.KDF.Time == 0 || h.KDF.Threads == 0 || h.KDF.Memory > maxAcceptedMemory {
		return ocb.Cipher{}, errors.New("header: KDF parameters out of range")
	}
	return c, nil
}

func createTemp(out string) (string, *os.File, *bufio.Writer, error) {
	tmp := out + ".part"
	dst, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", nil, nil, err
	}
	return tmp, dst, bufio.NewWriter(dst), nil
}

func commit(w *bufio.Writer, dst *os.File, tmp, out string) error {
	if err := w.Flush(); err != nil {
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, out)
}

package engine

import (
	"io"
	"os"
	"runtime"

	"gopkg.in/op/go-logging.v1"

	"github.com/jedisct1/go-ocb"
	"github.com/jedisct1/go-ocb/internal/kdf"
)

// Options configures one encrypt or decrypt run. Cipher, TagSize and KDF
// are only consulted when encrypting; decryption takes them from the
// file header.
type Options struct {
	InPath  string
	OutPath string
	Pass    []byte

	Cipher    ocb.Cipher
	TagSize   int
	ChunkSize uint32
	Workers   int
	KDF       kdf.Params

	Log *logging.Logger
}

// Upper/lower bounds; MaxAcceptedChunk caps what is accepted from headers.
const (
	MaxAcceptedChunk uint32 = 64 << 20

	defaultChunk    uint32 = 1 << 20   // used if size unknown
	minChunk        uint32 = 64 * 1024 // 64 KiB floor
	maxAutoChunk    uint32 = 16 << 20
	chunkAlign      uint32 = 64 * 1024 // round up to 64 KiB
	targetPerWorker        = 8         // aim ~8 chunks per worker
)

// AutoAdjust fills in the worker count, the chunk size and the logger when
// they are unset, and caps the workers at the number of chunks.
func AutoAdjust(opt Options) Options {
	if opt.Workers <= 0 {
		opt.Workers = runtime.NumCPU()
	}
	if opt.Log == nil {
		opt.Log = discardLogger()
	}

	var size int64 = -1
	if fi, err := os.Stat(opt.InPath); err == nil {
		size = fi.Size()
	}

	if opt.ChunkSize == 0 {
		if size > 0 {
			opt.ChunkSize = pickChunkSize(size, opt.Workers)
		} else {
			opt.ChunkSize = defaultChunk
		}
	}

	// if the file is very small, cap workers to number of chunks
	if size > 0 {
		nChunks := (size + int64(opt.ChunkSize) - 1) / int64(opt.ChunkSize)
		if int64(opt.Workers) > nChunks {
			opt.Workers = int(nChunks)
		}
	}

	return opt
}

func pickChunkSize(fileSize int64, workers int) uint32 {
	if workers <= 0 {
		workers = 1
	}
	// target total chunks ≈ workers * targetPerWorker
	targetChunks := int64(workers * targetPerWorker)
	chunk := fileSize / targetChunks
	if chunk < int64(minChunk) {
		chunk = int64(minChunk)
	}
	if chunk > int64(maxAutoChunk) {
		chunk = int64(maxAutoChunk)
	}

	// round up to alignment
	align := int64(chunkAlign)
	chunk = ((chunk + align - 1) / align) * align
	return uint32(chunk)
}

func discardLogger() *logging.Logger {
	l := logging.MustGetLogger("engine")
	l.SetBackend(logging.AddModuleLevel(logging.NewLogBackend(io.Discard, "", 0)))
	return l
}

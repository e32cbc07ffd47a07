// Package config provides the ocbseal configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/BurntSushi/toml"

	"github.com/jedisct1/go-ocb"
	"github.com/jedisct1/go-ocb/internal/kdf"
)

const (
	defaultCipher = "AES"

	// MinChunkSize and MaxChunkSize bound an explicit plaintext chunk size.
	MinChunkSize = 4 << 10  // 4 KiB
	MaxChunkSize = 64 << 20 // 64 MiB
)

// KDF is the passphrase stretching configuration.
type KDF struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

// Logging is the logging configuration.
type Logging struct {
	File    string
	Level   string
	Disable bool
}

// Config is the ocbseal configuration.
type Config struct {
	// Cipher names a built-in block cipher, see ocb.Ciphers.
	Cipher string
	// TagSize is the tag length in bytes; zero selects the full block.
	TagSize int
	// ChunkSize is the plaintext chunk size; zero picks one from the input size.
	ChunkSize uint32
	// Workers is the number of chunks sealed concurrently; zero uses every CPU.
	Workers int

	KDF     KDF
	Logging Logging
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	p := kdf.Default
	return &Config{
		Cipher: defaultCipher,
		KDF: KDF{
			Time:    p.Time,
			Memory:  p.Memory,
			Threads: p.Threads,
		},
		Logging: Logging{
			Level: "NOTICE",
		},
	}
}

// FixupAndValidate fills in derived defaults and returns nil if the config is
// valid and otherwise an error is returned.
func (cfg *Config) FixupAndValidate() error {
	c, ok := ocb.CipherByName(cfg.Cipher)
	if !ok {
		return fmt.Errorf("config: unknown Cipher %q", cfg.Cipher)
	}
	cfg.Cipher = c.Name

	if cfg.TagSize == 0 {
		cfg.TagSize = c.BlockSize
	}
	if cfg.TagSize < 1 || cfg.TagSize > c.BlockSize {
		return fmt.Errorf("config: TagSize must be between 1 and %d for %s", c.BlockSize, c.Name)
	}

	if cfg.ChunkSize != 0 && (cfg.ChunkSize < MinChunkSize || cfg.ChunkSize > MaxChunkSize) {
		return fmt.Errorf("config: ChunkSize must be between %d and %d bytes", MinChunkSize, MaxChunkSize)
	}

	if cfg.Workers < 0 {
		return errors.New("config: Workers must not be negative")
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}

	if cfg.KDF.Time == 0 {
		return errors.New("config: KDF.Time is not set")
	}
	if cfg.KDF.Memory < 8*uint32(max(cfg.KDF.Threads, 1)) {
		return errors.New("config: KDF.Memory is too small")
	}
	if cfg.KDF.Threads == 0 {
		return errors.New("config: KDF.Threads is not set")
	}

	return nil
}

// KDFParams returns the key derivation parameters.
func (cfg *Config) KDFParams() kdf.Params {
	return kdf.Params{
		Time:    cfg.KDF.Time,
		Memory:  cfg.KDF.Memory,
		Threads: cfg.KDF.Threads,
	}
}

// Load parses and validates the provided buffer b as a config file body and
// returns the Config. Keys absent from the file keep their defaults.
func Load(b []byte) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(b), cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		return nil, fmt.Errorf("config: Undecoded keys in config file: %v", undecoded)
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFile loads, parses and validates the provided file and returns the
// Config.
func LoadFile(f string) (*Config, error) {
	b, err := os.ReadFile(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	return Load(b)
}

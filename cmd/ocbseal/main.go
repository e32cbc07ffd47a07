// ocbseal seals and opens files with a block cipher in OCB mode.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jedisct1/go-ocb"
	"github.com/jedisct1/go-ocb/internal/config"
	"github.com/jedisct1/go-ocb/internal/engine"
	"github.com/jedisct1/go-ocb/internal/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ocbseal",
		Short: "Seal and open files with a block cipher in OCB mode",
		Long: `ocbseal encrypts and authenticates files in chunks with OCB over a
choice of block ciphers. The key is derived from a passphrase with argon2id.

The passphrase is read from OCBSEAL_PASSPHRASE, which may be loaded from
an env file with --env-file, or prompted for on the terminal.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(newSealCommand(true, new(flags)))
	cmd.AddCommand(newSealCommand(false, new(flags)))
	cmd.AddCommand(newCiphersCommand())

	return cmd
}

// flags holds the command line of the encrypt and decrypt commands.
type flags struct {
	in, out    string
	configFile string
	cipher     string
	tagSize    int
	chunk      uint32
	workers    int
	force      bool
	envFile    string
	logLevel   string
}

func newSealCommand(encrypt bool, f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Open a sealed file",
		Example: `  # Open secret.txt.ocb into secret.txt
  ocbseal decrypt --in secret.txt.ocb`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeal(cmd, f, encrypt)
		},
	}
	if encrypt {
		cmd.Use = "encrypt"
		cmd.Short = "Seal a file"
		cmd.Example = `  # Seal secret.txt into secret.txt.ocb with Twofish
  ocbseal encrypt --in secret.txt --cipher twofish

  # Take the passphrase from an env file
  ocbseal encrypt --in secret.txt --env-file .env`
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.in, "in", "i", "", "input file path (required)")
	fl.StringVarP(&f.out, "out", "o", "", "output file path (default derived from --in)")
	fl.StringVarP(&f.configFile, "config", "c", "", "TOML configuration file")
	fl.BoolVar(&f.force, "force", false, "overwrite the output file if it exists")
	fl.StringVar(&f.envFile, "env-file", "", "env file to load "+passphraseEnv+" from")
	fl.StringVar(&f.logLevel, "log-level", "", "log level: ERROR, WARNING, NOTICE, INFO or DEBUG")
	fl.IntVar(&f.workers, "workers", 0, "chunks processed concurrently (0 uses every CPU)")
	if encrypt {
		fl.StringVar(&f.cipher, "cipher", "", "block cipher, see the ciphers command")
		fl.IntVar(&f.tagSize, "tag-size", 0, "tag size in bytes (0 uses the cipher block size)")
		fl.Uint32Var(&f.chunk, "chunk", 0, "plaintext chunk size in bytes (0 picks one from the input size)")
	}
	_ = cmd.MarkFlagRequired("in")

	return cmd
}

// buildConfig loads the configuration file, if any, and applies the flags
// that were set on the command line on top of it.
func buildConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if f.configFile != "" {
		cfg, err = config.LoadFile(f.configFile)
	} else {
		cfg, err = config.Load(nil)
	}
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("cipher") {
		cfg.Cipher = f.cipher
		if !changed("tag-size") {
			// re-derive from the new block size
			cfg.TagSize = 0
		}
	}
	if changed("tag-size") {
		cfg.TagSize = f.tagSize
	}
	if changed("chunk") {
		cfg.ChunkSize = f.chunk
	}
	if changed("workers") {
		cfg.Workers = f.workers
	}
	if changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}

	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runSeal(cmd *cobra.Command, f *flags, encrypt bool) error {
	cfg, err := buildConfig(cmd, f)
	if err != nil {
		return err
	}

	out := f.out
	if out == "" {
		out = defaultOutPath(f.in, encrypt)
	}
	if err := validatePaths(f.in, out, f.force); err != nil {
		return err
	}

	backend, err := log.New(cfg.Logging.File, cfg.Logging.Level, cfg.Logging.Disable)
	if err != nil {
		return err
	}
	defer backend.Close()
	logger := backend.GetLogger("ocbseal")

	pass, err := readPassphrase(f.envFile, encrypt)
	if err != nil {
		return err
	}
	defer clear(pass)

	c, _ := ocb.CipherByName(cfg.Cipher)
	opt := engine.Options{
		InPath:    f.in,
		OutPath:   out,
		Pass:      pass,
		Cipher:    c,
		TagSize:   cfg.TagSize,
		ChunkSize: cfg.ChunkSize,
		Workers:   cfg.Workers,
		KDF:       cfg.KDFParams(),
		Log:       backend.GetLogger("engine"),
	}

	if fi, err := os.Stat(f.in); err == nil {
		logger.Noticef("Input:  %s (%s)", filepath.Base(f.in), humanSize(fi.Size()))
	}
	logger.Noticef("Output: %s", filepath.Base(out))

	start := time.Now()
	if encrypt {
		err = engine.EncryptFile(cmd.Context(), opt)
	} else {
		err = engine.DecryptFile(cmd.Context(), opt)
	}
	if err != nil {
		logger.Errorf("%s failed: %v", cmd.Name(), err)
		return err
	}
	logger.Noticef("%s took %s", cmd.Name(), time.Since(start))
	return nil
}

func newCiphersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ciphers",
		Short: "List the built-in block ciphers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tBLOCK\tKEY")
			for _, c := range ocb.Ciphers() {
				fmt.Fprintf(w, "%s\t%d\t%d\n", c.Name, c.BlockSize, c.KeySize)
			}
			return w.Flush()
		},
	}
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

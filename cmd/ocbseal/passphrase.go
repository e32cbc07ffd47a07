package main

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"golang.org/x/term"
)

const passphraseEnv = "OCBSEAL_PASSPHRASE"

// readPassphrase returns the passphrase from the environment, after loading
// envFile if one is given, or else prompts for it on the terminal. Variables
// already set in the environment win over the env file.
func readPassphrase(envFile string, confirm bool) ([]byte, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}
	if p := os.Getenv(passphraseEnv); p != "" {
		return []byte(p), nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("no passphrase: set %s or run on a terminal", passphraseEnv)
	}

	p1, err := prompt(fd, "Passphrase: ")
	if err != nil {
		return nil, err
	}
	if len(p1) == 0 {
		return nil, errors.New("passphrase must not be empty")
	}
	if !confirm {
		return p1, nil
	}

	p2, err := prompt(fd, "Confirm passphrase: ")
	defer clear(p2)
	if err != nil {
		clear(p1)
		return nil, err
	}
	if subtle.ConstantTimeCompare(p1, p2) != 1 {
		clear(p1)
		return nil, errors.New("passphrases do not match")
	}
	return p1, nil
}

func prompt(fd int, text string) ([]byte, error) {
	fmt.Fprint(os.Stderr, text)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	return pw, nil
}

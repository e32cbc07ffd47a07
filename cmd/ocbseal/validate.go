package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const sealedExt = ".ocb"

// defaultOutPath derives the output path when --out is not given.
func defaultOutPath(in string, encrypt bool) string {
	if encrypt {
		return in + sealedExt
	}
	if trimmed := strings.TrimSuffix(in, sealedExt); trimmed != in && trimmed != "" {
		return trimmed
	}
	return in + ".out"
}

func validatePaths(in, out string, force bool) error {
	if in == "" {
		return errors.New("input path is required")
	}
	if out == "" {
		return errors.New("output path is required")
	}

	// input file must exist and be a regular file
	inInfo, err := os.Stat(in)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("input file %q does not exist", in)
		}
		return fmt.Errorf("cannot stat input file: %w", err)
	}
	if !inInfo.Mode().IsRegular() {
		return fmt.Errorf("input path %q is not a regular file", in)
	}

	inResolved := in
	if p, err := filepath.EvalSymlinks(in); err == nil {
		inResolved = p
	}

	outDir := filepath.Dir(out)
	outDirInfo, err := os.Stat(outDir)
	if err != nil {
		return fmt.Errorf("cannot access output directory %q: %w", outDir, err)
	}
	if !outDirInfo.IsDir() {
		return fmt.Errorf("output directory %q is not a directory", outDir)
	}

	if outInfo, err := os.Stat(out); err == nil {
		// hard links too
		if os.SameFile(inInfo, outInfo) {
			return errors.New("input and output refer to the same file")
		}
		if !force {
			return fmt.Errorf("output file %q already exists (use --force to overwrite)", out)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("cannot stat output path %q: %w", out, err)
	}

	// same path through a symlink, even if the output does not exist yet
	inAbs, err := filepath.Abs(inResolved)
	if err != nil {
		return fmt.Errorf("cannot resolve absolute input path: %w", err)
	}
	outAbs, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("cannot resolve absolute output path: %w", err)
	}
	if inAbs == outAbs {
		return errors.New("input and output paths resolve to the same location")
	}

	return nil
}

// Copyright © 2016 Zellyn Hunter <zellyn@gmail.com>

// Package rkhelpers contains helper routines shared by the rkdisk and
// rktape command-line front-ends: reading and writing files (allowing
// "-" to mean stdin/stdout), and parsing the hex addresses both tools
// accept on the command line. Grounded on helpers/helpers.go, with the
// address parser grounded on bin2tape.cpp's -a/-r handling.
package rkhelpers

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/vpyk/rk86tools/rkerrors"
)

// FileContentsOrStdIn returns the contents of a file, unless the file
// is "-", in which case it reads from stdin.
func FileContentsOrStdIn(s string) ([]byte, error) {
	if s == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(s)
}

// WriteOutput writes contents to filename, unless filename is "-", in
// which case it writes to stdout. It refuses to overwrite an existing
// file unless force is set.
func WriteOutput(filename string, contents []byte, force bool) error {
	if filename == "-" {
		_, err := os.Stdout.Write(contents)
		return err
	}
	if !force {
		if _, err := os.Stat(filename); !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("cannot overwrite file %q without --overwrite (-o)", filename)
		}
	}
	return os.WriteFile(filename, contents, 0666)
}

// ParseHexAddr parses a 16-bit machine address given as bare hex, the
// way bin2tape's -a and -r flags did ("100", "8000", no "0x" prefix).
func ParseHexAddr(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, rkerrors.BadDiskFormatf("invalid hex address %q: %v", s, err)
	}
	return uint16(v), nil
}

// Package rkimage implements the Image Buffer: a fixed-size byte blob
// loaded from, or persisted to, a single RK86 disk-image file. It owns the
// bytes; rkfs.Volume holds only offsets into them.
package rkimage

import (
	"io/ioutil"
	"os"

	"github.com/vpyk/rk86tools/rkerrors"
)

// Size is the fixed length of a valid RK86 floppy image: 160 tracks of
// 3,125 bytes each.
const Size = 500000

// Mode selects how Open treats the backing file.
type Mode int

const (
	// ReadOnly loads the file and rejects Flush.
	ReadOnly Mode = iota
	// ReadWrite loads the file and permits Flush.
	ReadWrite
	// WriteCreate allocates a zero-filled Size-byte buffer without
	// touching the filesystem until Flush.
	WriteCreate
)

// Image is the in-memory buffer backing one RK86 disk image.
type Image struct {
	path string
	mode Mode
	buf  []byte
}

// Open loads or creates an image at path according to mode. WriteCreate
// never reads the file; it allocates a zero-filled Size-byte buffer.
func Open(path string, mode Mode) (*Image, error) {
	if mode == WriteCreate {
		return &Image{path: path, mode: mode, buf: make([]byte, Size)}, nil
	}
	buf, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, rkerrors.OpenErrorf("opening image %q: %v", path, err)
	}
	return &Image{path: path, mode: mode, buf: buf}, nil
}

// Size returns the length of the buffer in bytes.
func (img *Image) Size() int {
	return len(img.buf)
}

// Data returns the backing buffer. Callers in rkfs mutate it directly by
// offset; rkimage itself never interprets the bytes.
func (img *Image) Data() []byte {
	return img.buf
}

// Flush rewrites the entire buffer to the backing file. It fails if the
// image was opened ReadOnly.
func (img *Image) Flush() error {
	if img.mode == ReadOnly {
		return rkerrors.WriteErrorf("image %q is read-only", img.path)
	}
	f, err := os.OpenFile(img.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return rkerrors.WriteErrorf("opening %q for write: %v", img.path, err)
	}
	defer f.Close()
	if _, err := f.Write(img.buf); err != nil {
		return rkerrors.WriteErrorf("writing %q: %v", img.path, err)
	}
	return nil
}

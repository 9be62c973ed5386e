// Package rkerrors defines the tagged error taxonomy surfaced by the RK86
// disk and tape tooling: OpenError, ReadError, WriteError, BadDiskFormat,
// NoFilesystem, SectorNotFound, DiskFull, DirFull, FileNotFound and
// FileExists.
//
// Each kind is a marker value implementing a private marker interface.
// Constructors wrap that leaf with github.com/pkg/errors.Wrapf, which adds
// the call-site message while leaving the leaf reachable via errors.Cause;
// callers test for a kind with IsX(err) rather than string matching, so the
// tag survives however much context gets layered on top of it.
package rkerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Wrap annotates leaf with a formatted message, preserving leaf itself
// for IsX checks via errors.Cause. Wrap(nil, ...) returns nil.
func Wrap(leaf error, format string, a ...interface{}) error {
	if leaf == nil {
		return nil
	}
	return errors.Wrapf(leaf, format, a...)
}

func tag(err error) error {
	return errors.Cause(err)
}

// --------------------- OpenError

type openError struct{}

// OpenErrorI tags errors caused by a failure to open an image or input file.
type OpenErrorI interface {
	IsOpenError()
}

var _ OpenErrorI = openError{}

func (e openError) Error() string { return "open error" }
func (e openError) IsOpenError()  {}

// OpenErrorf builds an OpenError, wrapped with a formatted call-site message.
func OpenErrorf(format string, a ...interface{}) error {
	return Wrap(openError{}, format, a...)
}

// IsOpenError reports whether err (or its cause) is an OpenError.
func IsOpenError(err error) bool {
	_, ok := tag(err).(OpenErrorI)
	return ok
}

// --------------------- ReadError

type readError struct{}

// ReadErrorI tags errors caused by an I/O failure during a full-file read.
type ReadErrorI interface {
	IsReadError()
}

var _ ReadErrorI = readError{}

func (e readError) Error() string { return "read error" }
func (e readError) IsReadError()  {}

// ReadErrorf builds a ReadError, wrapped with a formatted call-site message.
func ReadErrorf(format string, a ...interface{}) error {
	return Wrap(readError{}, format, a...)
}

// IsReadError reports whether err (or its cause) is a ReadError.
func IsReadError(err error) bool {
	_, ok := tag(err).(ReadErrorI)
	return ok
}

// --------------------- WriteError

type writeError struct{}

// WriteErrorI tags errors caused by an I/O failure during flush.
type WriteErrorI interface {
	IsWriteError()
}

var _ WriteErrorI = writeError{}

func (e writeError) Error() string { return "write error" }
func (e writeError) IsWriteError() {}

// WriteErrorf builds a WriteError, wrapped with a formatted call-site message.
func WriteErrorf(format string, a ...interface{}) error {
	return Wrap(writeError{}, format, a...)
}

// IsWriteError reports whether err (or its cause) is a WriteError.
func IsWriteError(err error) bool {
	_, ok := tag(err).(WriteErrorI)
	return ok
}

// --------------------- BadDiskFormat

type badDiskFormat struct{}

// BadDiskFormatI tags errors from a failed track/sector parse: missing
// marks, wrong track id, a truncated sector, or the wrong image size at
// format time.
type BadDiskFormatI interface {
	IsBadDiskFormat()
}

var _ BadDiskFormatI = badDiskFormat{}

func (e badDiskFormat) Error() string    { return "bad disk format" }
func (e badDiskFormat) IsBadDiskFormat() {}

// BadDiskFormatf builds a BadDiskFormat error, wrapped with a formatted
// call-site message.
func BadDiskFormatf(format string, a ...interface{}) error {
	return Wrap(badDiskFormat{}, format, a...)
}

// IsBadDiskFormat reports whether err (or its cause) is a BadDiskFormat error.
func IsBadDiskFormat(err error) bool {
	_, ok := tag(err).(BadDiskFormatI)
	return ok
}

// --------------------- NoFilesystem

type noFilesystem struct{}

// NoFilesystemI tags errors raised when the VTOC signature byte does not
// assert (byte[32] & 3) == 3.
type NoFilesystemI interface {
	IsNoFilesystem()
}

var _ NoFilesystemI = noFilesystem{}

func (e noFilesystem) Error() string   { return "no filesystem" }
func (e noFilesystem) IsNoFilesystem() {}

// NoFilesystemf builds a NoFilesystem error, wrapped with a formatted
// call-site message.
func NoFilesystemf(format string, a ...interface{}) error {
	return Wrap(noFilesystem{}, format, a...)
}

// IsNoFilesystem reports whether err (or its cause) is a NoFilesystem error.
func IsNoFilesystem(err error) bool {
	_, ok := tag(err).(NoFilesystemI)
	return ok
}

// --------------------- SectorNotFound

// SectorNotFound is raised when a chain pointer references a track >= 160
// or sector >= 5. Unlike the other kinds it carries the offending
// coordinates, mirroring RkVolumeException's track/sector fields in the
// original source.
type SectorNotFound struct {
	Track, Sector byte
}

// SectorNotFoundI tags SectorNotFound errors.
type SectorNotFoundI interface {
	IsSectorNotFound()
}

var _ SectorNotFoundI = SectorNotFound{}

func (e SectorNotFound) Error() string {
	return fmt.Sprintf("sector not found: track=%d sector=%d", e.Track, e.Sector)
}
func (e SectorNotFound) IsSectorNotFound() {}

// SectorNotFoundErr builds a SectorNotFound error for the given coordinates.
func SectorNotFoundErr(track, sector byte) error {
	return SectorNotFound{Track: track, Sector: sector}
}

// AsSectorNotFound reports whether err (or its cause) is a SectorNotFound
// error, returning the offending coordinates.
func AsSectorNotFound(err error) (SectorNotFound, bool) {
	sn, ok := tag(err).(SectorNotFound)
	return sn, ok
}

// --------------------- DiskFull

type diskFull struct{}

// DiskFullI tags errors raised when no free data sector is available.
type DiskFullI interface {
	IsDiskFull()
}

var _ DiskFullI = diskFull{}

func (e diskFull) Error() string { return "disk full" }
func (e diskFull) IsDiskFull()   {}

// DiskFullf builds a DiskFull error, wrapped with a formatted call-site
// message.
func DiskFullf(format string, a ...interface{}) error {
	return Wrap(diskFull{}, format, a...)
}

// IsDiskFull reports whether err (or its cause) is a DiskFull error.
func IsDiskFull(err error) bool {
	_, ok := tag(err).(DiskFullI)
	return ok
}

// --------------------- DirFull

type dirFull struct{}

// DirFullI tags errors raised when the directory chain is exhausted.
type DirFullI interface {
	IsDirFull()
}

var _ DirFullI = dirFull{}

func (e dirFull) Error() string { return "directory full" }
func (e dirFull) IsDirFull()    {}

// DirFullf builds a DirFull error, wrapped with a formatted call-site
// message.
func DirFullf(format string, a ...interface{}) error {
	return Wrap(dirFull{}, format, a...)
}

// IsDirFull reports whether err (or its cause) is a DirFull error.
func IsDirFull(err error) bool {
	_, ok := tag(err).(DirFullI)
	return ok
}

// --------------------- FileNotFound

type fileNotFound struct{}

// FileNotFoundI tags errors raised when no matching live directory entry
// exists.
type FileNotFoundI interface {
	IsFileNotFound()
}

var _ FileNotFoundI = fileNotFound{}

func (e fileNotFound) Error() string   { return "file not found" }
func (e fileNotFound) IsFileNotFound() {}

// FileNotFoundf builds a FileNotFound error, wrapped with a formatted
// call-site message.
func FileNotFoundf(format string, a ...interface{}) error {
	return Wrap(fileNotFound{}, format, a...)
}

// IsFileNotFound reports whether err (or its cause) is a FileNotFound error.
func IsFileNotFound(err error) bool {
	_, ok := tag(err).(FileNotFoundI)
	return ok
}

// --------------------- FileExists

type fileExists struct{}

// FileExistsI tags errors raised when a live entry with the target name
// exists and overwrite was not requested.
type FileExistsI interface {
	IsFileExists()
}

var _ FileExistsI = fileExists{}

func (e fileExists) Error() string { return "file exists" }
func (e fileExists) IsFileExists() {}

// FileExistsf builds a FileExists error, wrapped with a formatted call-site
// message.
func FileExistsf(format string, a ...interface{}) error {
	return Wrap(fileExists{}, format, a...)
}

// IsFileExists reports whether err (or its cause) is a FileExists error.
func IsFileExists(err error) bool {
	_, ok := tag(err).(FileExistsI)
	return ok
}

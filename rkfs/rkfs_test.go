package rkfs

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kr/pretty"

	"github.com/vpyk/rk86tools/rkerrors"
	"github.com/vpyk/rk86tools/rkimage"
	"github.com/vpyk/rk86tools/rktypes"
)

// freshImage returns a zero-filled, in-memory image of the right size,
// never touching the filesystem.
func freshImage(t *testing.T) *rkimage.Image {
	t.Helper()
	img, err := rkimage.Open("testimage.rk", rkimage.WriteCreate)
	if err != nil {
		t.Fatal(err)
	}
	return img
}

// TestFormat checks the end-to-end format scenario.
func TestFormat(t *testing.T) {
	img := freshImage(t)
	v, err := Format(img, 4)
	if err != nil {
		t.Fatal(err)
	}
	if got := img.Size(); got != rkimage.Size {
		t.Errorf("image size = %d, want %d", got, rkimage.Size)
	}

	vtoc := v.ptr(vtocTrack, vtocSector)
	if vtoc[32]&3 != 3 {
		t.Errorf("VTOC byte 32 = %#x, want low two bits set", vtoc[32])
	}

	t0, s0 := byte(dirTrack), byte(dirSector)
	for i := 1; i <= 4; i++ {
		wantT := byte(vtocTrack + i/SectorsPerTrack)
		wantS := byte(i % SectorsPerTrack)
		if t0 != wantT || s0 != wantS {
			t.Fatalf("directory chain link %d: got (%d,%d), want (%d,%d)", i, t0, s0, wantT, wantS)
		}
		ptr := v.ptr(t0, s0)
		t0, s0 = ptr[0], ptr[1]
	}
	if t0 != 0 || s0 != 0 {
		t.Errorf("directory chain should terminate at (0,0) after 4 sectors, got (%d,%d)", t0, s0)
	}

	entries, err := v.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("fresh catalog = %v, want empty", entries)
	}
}

// TestFormatBadDirSize checks the 1..99 directorySize bound.
func TestFormatBadDirSize(t *testing.T) {
	for _, n := range []int{0, -1, 100} {
		if _, err := Format(freshImage(t), n); !rkerrors.IsBadDiskFormat(err) {
			t.Errorf("Format(dirSize=%d) error = %v, want BadDiskFormat", n, err)
		}
	}
}

func mustFormat(t *testing.T, dirSize int) *Volume {
	t.Helper()
	v, err := Format(freshImage(t), dirSize)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

// TestWriteSmallFile follows the small-write scenario: four bytes, one data
// sector and one T/S-list sector.
func TestWriteSmallFile(t *testing.T) {
	v := mustFormat(t, 4)

	data := []byte{0x11, 0x22, 0x33, 0x44}
	fi := rktypes.FileInfo{
		Descriptor: rktypes.Descriptor{Name: "TEST.BIN", LoadAddr: 0x1000, Attr: rktypes.AttrReadOnly},
		Data:       data,
	}
	wrote, err := v.PutFile(fi, false)
	if err != nil {
		t.Fatal(err)
	}
	if !wrote {
		t.Fatal("PutFile reported no write")
	}

	entries, err := v.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("catalog = %v, want 1 entry", entries)
	}
	got := entries[0]
	if got.Name != "TEST.BIN" || got.LoadAddr != 0x1000 || !got.ReadOnly() || got.SectorCount != 2 || got.Size != 4 {
		t.Errorf("entry = %+v, want {TEST.BIN 0x1000 readonly sCount=2 size=4}", got)
	}

	read, err := v.GetFile("test.bin")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(read.Data, data) {
		t.Errorf("GetFile data = %v, want %v", read.Data, data)
	}
}

// TestWriteLargeFile follows the large-write scenario: exactly 255 data
// sectors (130,560 bytes), needing ceil(255/126)=3 T/S-list sectors.
func TestWriteLargeFile(t *testing.T) {
	v := mustFormat(t, 4)

	data := make([]byte, 255*MaxDataLen)
	for i := range data {
		data[i] = byte(i)
	}

	freeBefore := v.FreeSectors()
	fi := rktypes.FileInfo{
		Descriptor: rktypes.Descriptor{Name: "BIG.DAT"},
		Data:       data,
	}
	if _, err := v.PutFile(fi, false); err != nil {
		t.Fatal(err)
	}

	entries, err := v.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].SectorCount != 258 {
		t.Fatalf("catalog = %v, want 1 entry with sCount=258", entries)
	}
	if got, want := freeBefore-v.FreeSectors(), 258; got != want {
		t.Errorf("free sectors decreased by %d, want %d", got, want)
	}

	read, err := v.GetFile("BIG.DAT")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(read.Data, data) {
		t.Error("GetFile returned different bytes than written")
	}
}

// TestWriteExactTSListBoundary checks that a file needing exactly 126 data
// sectors (one full T/S-list sector, no remainder) allocates exactly one
// T/S-list sector, not two: the write loop must only hop to a new list
// sector when more data pointers remain to be written, not merely because
// the current one just filled up.
func TestWriteExactTSListBoundary(t *testing.T) {
	v := mustFormat(t, 4)

	data := make([]byte, 126*MaxDataLen)
	for i := range data {
		data[i] = byte(i)
	}

	fi := rktypes.FileInfo{Descriptor: rktypes.Descriptor{Name: "EXACT.BIN"}, Data: data}
	if _, err := v.PutFile(fi, false); err != nil {
		t.Fatal(err)
	}

	entries, err := v.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].SectorCount != 127 {
		t.Fatalf("catalog = %v, want 1 entry with sCount=127", entries)
	}

	read, err := v.GetFile("EXACT.BIN")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(read.Data, data) {
		t.Error("GetFile returned different bytes than written")
	}
}

// TestDeleteAndReuse follows the delete/reuse scenario: deleting a file
// frees its two sectors, and a file of the freed size written afterwards
// reads back intact.
func TestDeleteAndReuse(t *testing.T) {
	v := mustFormat(t, 4)

	fi := rktypes.FileInfo{
		Descriptor: rktypes.Descriptor{Name: "TEST.BIN", LoadAddr: 0x1000},
		Data:       []byte{0x11, 0x22, 0x33, 0x44},
	}
	if _, err := v.PutFile(fi, false); err != nil {
		t.Fatal(err)
	}
	freeBefore := v.FreeSectors()

	deleted, err := v.Delete("TEST.BIN")
	if err != nil {
		t.Fatal(err)
	}
	if !deleted {
		t.Fatal("Delete reported no file found")
	}
	if got, want := v.FreeSectors(), freeBefore+2; got != want {
		t.Errorf("free sectors after delete = %d, want %d", got, want)
	}

	data2 := make([]byte, 512)
	for i := range data2 {
		data2[i] = 0xAB
	}
	fi2 := rktypes.FileInfo{
		Descriptor: rktypes.Descriptor{Name: "TEST2.BIN"},
		Data:       data2,
	}
	if _, err := v.PutFile(fi2, false); err != nil {
		t.Fatal(err)
	}

	read, err := v.GetFile("TEST2.BIN")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(read.Data, data2) {
		t.Error("GetFile(TEST2.BIN) returned different bytes than written")
	}
}

// TestWriteEmptyFile checks the zero-byte boundary: writeFile must still
// allocate one data sector plus one T/S-list sector, per SPEC_FULL.md §8.
func TestWriteEmptyFile(t *testing.T) {
	v := mustFormat(t, 4)

	freeBefore := v.FreeSectors()
	fi := rktypes.FileInfo{Descriptor: rktypes.Descriptor{Name: "EMPTY.BIN"}, Data: nil}
	if _, err := v.PutFile(fi, false); err != nil {
		t.Fatal(err)
	}

	if got, want := freeBefore-v.FreeSectors(), 2; got != want {
		t.Errorf("free sectors decreased by %d, want %d", got, want)
	}

	entries, err := v.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].SectorCount != 2 || entries[0].Size != 0 {
		t.Fatalf("catalog = %v, want 1 entry with sCount=2 size=0", entries)
	}

	read, err := v.GetFile("EMPTY.BIN")
	if err != nil {
		t.Fatal(err)
	}
	if len(read.Data) != 0 {
		t.Errorf("GetFile(empty) = %v, want empty", read.Data)
	}
}

// TestDeleteMissing checks the not-found error path.
func TestDeleteMissing(t *testing.T) {
	v := mustFormat(t, 4)
	if deleted, err := v.Delete("NOPE.BIN"); !rkerrors.IsFileNotFound(err) || deleted {
		t.Errorf("Delete(missing) = (%v, %v), want (false, FileNotFound)", deleted, err)
	}
}

// TestPutFileExistsWithoutOverwrite checks FileExists is returned, and that
// overwrite=true replaces the file in place.
func TestPutFileExistsWithoutOverwrite(t *testing.T) {
	v := mustFormat(t, 4)
	fi := rktypes.FileInfo{Descriptor: rktypes.Descriptor{Name: "A.BIN"}, Data: []byte{1}}
	if _, err := v.PutFile(fi, false); err != nil {
		t.Fatal(err)
	}
	if _, err := v.PutFile(fi, false); !rkerrors.IsFileExists(err) {
		t.Errorf("second PutFile error = %v, want FileExists", err)
	}

	fi2 := rktypes.FileInfo{Descriptor: rktypes.Descriptor{Name: "A.BIN"}, Data: []byte{2, 3}}
	if _, err := v.PutFile(fi2, true); err != nil {
		t.Fatalf("overwrite PutFile: %v", err)
	}
	read, err := v.GetFile("A.BIN")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(read.Data, []byte{2, 3}) {
		t.Errorf("GetFile after overwrite = %v, want [2 3]", read.Data)
	}
}

// TestSetAttributes checks the in-place attribute-byte overwrite.
func TestSetAttributes(t *testing.T) {
	v := mustFormat(t, 4)
	fi := rktypes.FileInfo{Descriptor: rktypes.Descriptor{Name: "A.BIN"}, Data: []byte{1}}
	if _, err := v.PutFile(fi, false); err != nil {
		t.Fatal(err)
	}
	if err := v.SetAttributes("A.BIN", rktypes.AttrHidden); err != nil {
		t.Fatal(err)
	}
	entries, err := v.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	if !entries[0].Hidden() || entries[0].ReadOnly() {
		t.Errorf("entry attr = %#x, want hidden only", entries[0].Attr)
	}
}

// TestOpenRejectsMissingFilesystem checks that a zero-filled image (never
// formatted) fails with BadDiskFormat, since the track parser finds no
// address marks, rather than panicking or succeeding.
func TestOpenRejectsMissingFilesystem(t *testing.T) {
	img := freshImage(t)
	if _, err := Open(img); !rkerrors.IsBadDiskFormat(err) {
		t.Errorf("Open(blank image) error = %v, want BadDiskFormat", err)
	}
}

// TestOpenRoundtrip checks that re-opening a formatted-and-saved image sees
// the same catalog.
func TestOpenRoundtrip(t *testing.T) {
	img := freshImage(t)
	v, err := Format(img, 4)
	if err != nil {
		t.Fatal(err)
	}
	fi := rktypes.FileInfo{Descriptor: rktypes.Descriptor{Name: "A.BIN", LoadAddr: 0x300}, Data: []byte{9, 8, 7}}
	if _, err := v.PutFile(fi, false); err != nil {
		t.Fatal(err)
	}

	reopened, err := rkimage.Open("", rkimage.WriteCreate)
	if err != nil {
		t.Fatal(err)
	}
	copy(reopened.Data(), v.GetBytes())

	v2, err := Open(reopened)
	if err != nil {
		t.Fatal(err)
	}
	read, err := v2.GetFile("A.BIN")
	if err != nil {
		t.Fatal(err)
	}
	want := rktypes.FileInfo{Descriptor: rktypes.Descriptor{Name: "A.BIN", LoadAddr: 0x300, SectorCount: 2, Size: 3}, Data: []byte{9, 8, 7}}
	if diff := pretty.Diff(read, want); len(diff) > 0 {
		t.Errorf("reopened file differs from original:\n%s", strings.Join(diff, "\n"))
	}
}

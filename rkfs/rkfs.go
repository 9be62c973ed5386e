// Package rkfs implements the RKDOS floppy-image filesystem: the track
// parser, VTOC allocation bitmap, chained directory, T/S-list file chains,
// and the formatter that lays down a blank image. It is grounded on
// rkvolume.{h,cpp} from the original C++ tool this system replaces, with
// the manual ToSector/FromSector struct-marshaling idiom carried over from
// this module's Apple II ancestry.
package rkfs

import (
	"encoding/binary"
	"sort"
	"strings"

	"github.com/vpyk/rk86tools/rkerrors"
	"github.com/vpyk/rk86tools/rkimage"
	"github.com/vpyk/rk86tools/rktypes"
)

// Geometry constants. rk86tools supports exactly one geometry: 160 tracks
// of 5 sectors of 512 data bytes each (plus 2-byte length prefix and
// 2-byte checksum suffix per sector) — see Non-goals in SPEC_FULL.md.
const (
	Tracks          = 160
	SectorsPerTrack = 5
	TrackBytes      = 3125
	SlotBytes       = 586
	MaxDataLen      = 512
	TotalSectors    = Tracks * SectorsPerTrack // 800

	vtocTrack  = 32
	vtocSector = 0
	dirTrack   = 32
	dirSector  = 1

	syncByte = 0x06
	addrMark = 0xEA
	addrD3   = 0xD3
	dataMark = 0xDD
	dataF3   = 0xF3
)

// interleave maps a physical slot index (0..4) within a track to the
// logical sector id occupying it at format time.
var interleave = [SectorsPerTrack]byte{0, 3, 1, 4, 2}

// sectorDesc is the in-memory descriptor for one physical sector: where
// its data begins in the image buffer, how many bytes are meaningful, and
// whether it has been modified since the last save.
type sectorDesc struct {
	dataOffset int // offset into Volume.data of the first data byte
	length     int // 0..512
	dirty      bool
	allocated  bool
}

func (v *Volume) ptr(t, s byte) []byte {
	d := &v.sectors[t][s]
	return v.data[d.dataOffset : d.dataOffset+MaxDataLen]
}

// fileEntry is the internal directory-entry view: a Descriptor plus the
// bookkeeping needed to locate and mutate the entry and its chains
// in place (the original source's RkFileInfo).
type fileEntry struct {
	rktypes.Descriptor

	dirTrack, dirSector byte
	dirOffset           int

	tlistTrack, tlistSector byte
}

// Volume is an open RKDOS filesystem backed by an rkimage.Image.
type Volume struct {
	img  *rkimage.Image
	data []byte

	sectors [Tracks][SectorsPerTrack]sectorDesc

	sectorsParsed  bool
	freeSectors    int
	freeDirEntries int
	files          []fileEntry
	dirParsed      bool
}

var _ rktypes.Operator = (*Volume)(nil)

// Name implements rktypes.Operator.
func (v *Volume) Name() string { return "rkdos" }

// GetBytes implements rktypes.Operator.
func (v *Volume) GetBytes() []byte { return v.data }

// Open parses an already-formatted image and returns a Volume ready for
// catalog/read/write/delete/attribute operations. It fails with
// BadDiskFormat or NoFilesystem if the image isn't a valid RKDOS volume.
func Open(img *rkimage.Image) (*Volume, error) {
	if img.Size() != rkimage.Size {
		return nil, rkerrors.BadDiskFormatf("image is %d bytes, want %d", img.Size(), rkimage.Size)
	}
	v := &Volume{img: img, data: img.Data()}
	if err := v.readDisk(); err != nil {
		return nil, err
	}
	return v, nil
}

// readDisk lazily parses sectors, the VTOC, and the directory, exactly
// once per Volume unless invalidated by a mutation (which re-reads the
// directory explicitly rather than clearing this flag).
func (v *Volume) readDisk() error {
	if v.sectorsParsed {
		return nil
	}
	if err := v.readSectors(); err != nil {
		return err
	}
	if err := v.readVTOC(); err != nil {
		return err
	}
	if err := v.readDir(); err != nil {
		return err
	}
	v.sectorsParsed = true
	return nil
}

// readSectors scans all 160 tracks for their 5 physical sectors by
// address-mark discovery, per SPEC_FULL.md §4.2.
func (v *Volume) readSectors() error {
	for t := 0; t < Tracks; t++ {
		track := v.data[t*TrackBytes : (t+1)*TrackBytes]

		pos := 0
		found := 0
		for pos < TrackBytes && found < SectorsPerTrack {
			for pos < TrackBytes && track[pos] != syncByte {
				pos++
			}
			for pos < TrackBytes && track[pos] == syncByte {
				pos++
			}

			for pos < TrackBytes-1 && !(track[pos] == addrMark && track[pos+1] == addrD3) {
				pos++
			}
			if pos >= TrackBytes-2 {
				return rkerrors.BadDiskFormatf("track %d: address mark not found", t)
			}
			pos += 2

			if pos+1 >= TrackBytes {
				return rkerrors.BadDiskFormatf("track %d: truncated sector header", t)
			}
			trackID := track[pos]
			sectorID := track[pos+1]
			pos += 2
			if int(trackID) != t {
				return rkerrors.BadDiskFormatf("track %d: sector header claims track %d", t, trackID)
			}

			for pos < TrackBytes && track[pos] != syncByte {
				pos++
			}
			for pos < TrackBytes-1 && !(track[pos] == dataMark && track[pos+1] == dataF3) {
				pos++
			}
			if pos >= TrackBytes-519 {
				return rkerrors.BadDiskFormatf("track %d sector %d: data mark not found", t, sectorID)
			}
			pos += 2

			length := int(track[pos]) | int(track[pos+1])<<8
			// Skip the 2-byte length field plus one filler byte (the
			// address mark's checksum byte, per SPEC_FULL.md §4.2) to
			// reach the data pointer.
			pos += 3

			if sectorID >= SectorsPerTrack {
				return rkerrors.BadDiskFormatf("track %d: sector id %d out of range", t, sectorID)
			}
			v.sectors[t][sectorID] = sectorDesc{
				dataOffset: t*TrackBytes + pos,
				length:     length,
				dirty:      false,
				allocated:  v.sectors[t][sectorID].allocated,
			}
			found++

			pos += 530
		}
		if found != SectorsPerTrack {
			return rkerrors.BadDiskFormatf("track %d: found %d of %d sectors", t, found, SectorsPerTrack)
		}
	}
	return nil
}

// readVTOC validates and unpacks the allocation bitmap at (32,0).
func (v *Volume) readVTOC() error {
	vtoc := v.ptr(vtocTrack, vtocSector)
	if vtoc[32]&3 != 3 {
		return rkerrors.NoFilesystemf("VTOC signature byte invalid")
	}
	allocated := 0
	for t := 0; t < Tracks; t++ {
		b := vtoc[t]
		for s := 0; s < SectorsPerTrack; s++ {
			a := b&1 != 0
			v.sectors[t][s].allocated = a
			if a {
				allocated++
			}
			b >>= 1
		}
	}
	v.freeSectors = TotalSectors - allocated
	return nil
}

// readDir walks the directory chain starting at (32,1), building the live
// file list and the free-sector-entry count. Grounded on rkvolume.cpp's
// readDir, using the tighter 23-per-sector bound (SPEC_FULL.md §9) rather
// than the source's 24.
func (v *Volume) readDir() error {
	v.files = nil
	v.freeDirEntries = 0

	t, s := byte(dirTrack), byte(dirSector)
	dirSectorsSeen := 0
	used := 0

	for {
		if int(t) >= Tracks || int(s) >= SectorsPerTrack {
			return rkerrors.SectorNotFoundErr(t, s)
		}
		sd := v.ptr(t, s)
		dirSectorsSeen++

		pos := 7
		for pos < MaxDataLen-21 && sd[pos] != 0 {
			if sd[pos] == 0xFF {
				pos += 21
				continue
			}

			fe := fileEntry{dirTrack: t, dirSector: s, dirOffset: pos}

			var name strings.Builder
			if sd[pos+9] == 0 {
				name.Write(trimNulAt(sd[pos : pos+10]))
			} else {
				name.Write(sd[pos : pos+10])
			}
			pos += 11

			if sd[pos] != 0 {
				name.WriteByte('.')
			}
			if sd[pos+2] == 0 {
				name.Write(trimNulAt(sd[pos : pos+3]))
			} else {
				name.Write(sd[pos : pos+3])
			}
			pos += 3

			fe.tlistTrack = sd[pos]
			fe.tlistSector = sd[pos+1]
			pos += 2

			fe.LoadAddr = binary.LittleEndian.Uint16(sd[pos : pos+2])
			pos += 2

			fe.SectorCount = binary.LittleEndian.Uint16(sd[pos : pos+2])
			pos += 2

			fe.Attr = sd[pos]
			pos++

			fe.Name = name.String()
			v.files = append(v.files, fe)
			used++
		}

		nt, ns := sd[0], sd[1]
		if nt == 0 && ns == 0 {
			break
		}
		t, s = nt, ns
	}

	v.freeDirEntries = dirSectorsSeen*23 - used

	sort.Slice(v.files, func(i, j int) bool { return v.files[i].Name < v.files[j].Name })

	return v.calcSizes()
}

// trimNulAt returns the prefix of b up to (not including) the first NUL.
func trimNulAt(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}
	return b
}

// calcSizes walks each live file's T/S-list chain and sums referenced
// data-sector lengths into Descriptor.Size.
func (v *Volume) calcSizes() error {
	for i := range v.files {
		fe := &v.files[i]
		t, s := fe.tlistTrack, fe.tlistSector
		size := 0
		for {
			if int(t) >= Tracks || int(s) >= SectorsPerTrack {
				return rkerrors.SectorNotFoundErr(t, s)
			}
			sd := &v.sectors[t][s]
			ptr := v.ptr(t, s)
			nt, ns := ptr[0], ptr[1]

			pos := 2
			for pos <= sd.length-2 {
				dt, ds := ptr[pos], ptr[pos+1]
				pos += 2
				if int(dt) >= Tracks || int(ds) >= SectorsPerTrack {
					return rkerrors.SectorNotFoundErr(dt, ds)
				}
				if dt == 0 && ds == 0 {
					break
				}
				size += v.sectors[dt][ds].length
			}

			if nt == 0 && ns == 0 {
				break
			}
			t, s = nt, ns
		}
		fe.Size = size
	}
	return nil
}

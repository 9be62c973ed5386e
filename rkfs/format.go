package rkfs

import (
	"github.com/vpyk/rk86tools/rkerrors"
	"github.com/vpyk/rk86tools/rkimage"
)

// Format lays down a blank RKDOS filesystem on img: per-sector physical
// framing for all 800 sectors, an empty VTOC, and a directory chain of
// directorySize sectors linked from (32,1). directorySize must be in
// 1..99. Grounded on rkvolume.cpp's format().
func Format(img *rkimage.Image, directorySize int) (*Volume, error) {
	if img.Size() != rkimage.Size {
		return nil, rkerrors.BadDiskFormatf("image is %d bytes, want %d", img.Size(), rkimage.Size)
	}
	if directorySize < 1 || directorySize > 99 {
		return nil, rkerrors.BadDiskFormatf("directory size %d out of range 1..99", directorySize)
	}

	data := img.Data()
	for t := 0; t < Tracks; t++ {
		track := data[t*TrackBytes : (t+1)*TrackBytes]
		for i := range track[:SlotBytes*SectorsPerTrack] {
			track[i] = 0
		}
		for i := SlotBytes * SectorsPerTrack; i < TrackBytes; i++ {
			track[i] = 0xFF
		}

		for slot := 0; slot < SectorsPerTrack; slot++ {
			logicalSector := interleave[slot]
			ptr := track[slot*SlotBytes:]

			pos := 0
			for i := 0; i < 5; i++ {
				ptr[pos] = syncByte
				pos++
			}
			pos += 5 // null bytes

			ptr[pos] = addrMark
			pos++
			ptr[pos] = addrD3
			pos++
			ptr[pos] = byte(t)
			pos++
			ptr[pos] = logicalSector
			pos++
			ptr[pos] = byte((t + int(logicalSector)) & 0xFF)
			pos++

			pos += 5 // null bytes

			for i := 0; i < 5; i++ {
				ptr[pos] = syncByte
				pos++
			}
			pos += 5 // null bytes

			ptr[pos] = dataMark
			pos++
			ptr[pos] = dataF3
			pos++

			ptr[pos] = 0x00
			ptr[pos+1] = 0x02
			// Remaining bytes of the slot (length, filler, data,
			// checksum, and inter-slot gap) are already zero from the
			// bulk memset above. updateSectors rewrites the length
			// prefix and checksum for every allocated sector below.
		}
	}

	v := &Volume{img: img, data: data}
	if err := v.readSectors(); err != nil {
		return nil, err
	}

	v.allocateSpecific(vtocTrack, vtocSector)
	v.sectors[vtocTrack][vtocSector].length = 160

	// Data offset 0x20 (=32) is track 32's bitmap byte and doubles as the
	// VTOC signature byte: 0x1F satisfies the validity check and marks
	// all 5 of track 32's sectors allocated regardless of directorySize.
	// Every other track's bitmap byte stays zero (free). 0xA0 (160) lies
	// just past the 160-byte bitmap; updateSectors below writes the VTOC
	// checksum over that marker.
	vtoc := v.ptr(vtocTrack, vtocSector)
	vtoc[0x20] = 0x1F
	vtoc[0xA0] = 0x1F

	for i := 1; i <= directorySize; i++ {
		t := byte(vtocTrack + i/SectorsPerTrack)
		s := byte(i % SectorsPerTrack)
		v.allocateSpecific(t, s)
		if i != directorySize {
			nt := byte(vtocTrack + (i+1)/SectorsPerTrack)
			ns := byte((i + 1) % SectorsPerTrack)
			ptr := v.ptr(t, s)
			ptr[0], ptr[1] = nt, ns
		}
	}

	v.updateSectors()

	if err := v.readSectors(); err != nil {
		return nil, err
	}
	if err := v.readVTOC(); err != nil {
		return nil, err
	}
	if err := v.readDir(); err != nil {
		return nil, err
	}
	v.sectorsParsed = true

	return v, nil
}

// updateSectors finalizes every dirty sector before a save: writes the
// length prefix behind the data mark, then the 16-bit modular checksum of
// its length data bytes. Grounded on rkvolume.cpp's updateSectors.
func (v *Volume) updateSectors() {
	for t := 0; t < Tracks; t++ {
		for s := 0; s < SectorsPerTrack; s++ {
			sd := &v.sectors[t][s]
			if !sd.dirty {
				continue
			}
			length := sd.length
			var cs uint16
			for i := 0; i < length; i++ {
				cs += uint16(v.data[sd.dataOffset+i])
			}
			v.data[sd.dataOffset-3] = byte(length & 0xFF)
			v.data[sd.dataOffset-2] = byte(length >> 8)
			v.data[sd.dataOffset+length] = byte(cs & 0xFF)
			v.data[sd.dataOffset+length+1] = byte(cs >> 8)
		}
	}
}

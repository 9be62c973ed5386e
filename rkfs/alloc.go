package rkfs

import "github.com/vpyk/rk86tools/rkerrors"

// allocate finds the first unallocated sector in track-major order, zeroes
// its data, marks it allocated+dirty, and flips its VTOC bit.
func (v *Volume) allocate() (track, sector byte, err error) {
	if v.freeSectors == 0 {
		return 0, 0, rkerrors.DiskFullf("no free sectors")
	}
	for t := 0; t < Tracks; t++ {
		for s := 0; s < SectorsPerTrack; s++ {
			if v.sectors[t][s].allocated {
				continue
			}
			v.zeroAndMark(byte(t), byte(s))
			v.freeSectors--
			return byte(t), byte(s), nil
		}
	}
	return 0, 0, rkerrors.DiskFullf("no free sectors")
}

// allocateSpecific marks (t,s) allocated regardless of its previous state,
// decrementing the free count only if it wasn't already allocated. Used
// only by the formatter.
func (v *Volume) allocateSpecific(t, s byte) {
	if !v.sectors[t][s].allocated {
		v.freeSectors--
	}
	v.zeroAndMark(t, s)
}

func (v *Volume) zeroAndMark(t, s byte) {
	data := v.ptr(t, s)
	for i := range data {
		data[i] = 0
	}
	v.sectors[t][s].dirty = true
	v.sectors[t][s].allocated = true

	vtoc := v.ptr(vtocTrack, vtocSector)
	vtoc[t] |= 1 << s
	v.sectors[vtocTrack][vtocSector].dirty = true
}

// free releases (t,s) if it is currently allocated. Idempotent.
func (v *Volume) free(t, s byte) {
	if !v.sectors[t][s].allocated {
		return
	}
	v.sectors[t][s].allocated = false
	v.sectors[t][s].dirty = true

	vtoc := v.ptr(vtocTrack, vtocSector)
	vtoc[t] &^= 1 << s
	v.sectors[vtocTrack][vtocSector].dirty = true

	v.freeSectors++
}

// allocateDirEntry finds the first free or deleted directory slot in the
// chain starting at (32,1), marking its sector dirty, and returns its
// coordinates and byte offset.
func (v *Volume) allocateDirEntry() (track, sector byte, offset int, err error) {
	t, s := byte(dirTrack), byte(dirSector)
	for {
		sd := v.ptr(t, s)
		pos := 7
		for pos < MaxDataLen-21 {
			if sd[pos] == 0 || sd[pos] == 0xFF {
				v.sectors[t][s].dirty = true
				return t, s, pos, nil
			}
			pos += 21
		}

		nt, ns := sd[0], sd[1]
		if int(nt) >= Tracks || int(ns) >= SectorsPerTrack {
			return 0, 0, 0, rkerrors.SectorNotFoundErr(nt, ns)
		}
		if nt == 0 && ns == 0 {
			return 0, 0, 0, rkerrors.DirFullf("directory chain exhausted")
		}
		t, s = nt, ns
	}
}

package rkfs

import (
	"encoding/binary"

	"github.com/vpyk/rk86tools/rkerrors"
	"github.com/vpyk/rk86tools/rktypes"
)

func (v *Volume) find(name string) (int, bool) {
	key := canonicalName(name)
	for i, fe := range v.files {
		if fe.Name == key {
			return i, true
		}
	}
	return -1, false
}

// Catalog implements rktypes.Operator: the sorted list of live files.
func (v *Volume) Catalog() ([]rktypes.Descriptor, error) {
	out := make([]rktypes.Descriptor, len(v.files))
	for i, fe := range v.files {
		out[i] = fe.Descriptor
	}
	return out, nil
}

// FreeSectors returns the number of unallocated physical sectors.
func (v *Volume) FreeSectors() int { return v.freeSectors }

// FreeDirEntries returns 23 per directory sector in the chain minus the
// live entries. allocateDirEntry can also fill a 24th slot in each sector
// (offset 490), which this count leaves out.
func (v *Volume) FreeDirEntries() int { return v.freeDirEntries }

// GetFile implements rktypes.Operator: readFile per SPEC_FULL.md §4.5.
func (v *Volume) GetFile(name string) (rktypes.FileInfo, error) {
	i, ok := v.find(name)
	if !ok {
		return rktypes.FileInfo{}, rkerrors.FileNotFoundf("file not found: %s", canonicalName(name))
	}
	fe := v.files[i]

	buf := make([]byte, 0, fe.Size)
	remaining := fe.Size

	t, s := fe.tlistTrack, fe.tlistSector
	if int(t) >= Tracks || int(s) >= SectorsPerTrack {
		return rktypes.FileInfo{}, rkerrors.SectorNotFoundErr(t, s)
	}
	for {
		sd := &v.sectors[t][s]
		ptr := v.ptr(t, s)
		nt, ns := ptr[0], ptr[1]

		pos := 2
		for pos <= sd.length-2 {
			dt, ds := ptr[pos], ptr[pos+1]
			pos += 2
			if int(dt) >= Tracks || int(ds) >= SectorsPerTrack {
				return rktypes.FileInfo{}, rkerrors.SectorNotFoundErr(dt, ds)
			}
			if dt == 0 && ds == 0 {
				break
			}
			toRead := v.sectors[dt][ds].length
			if toRead > remaining {
				toRead = remaining
			}
			buf = append(buf, v.ptr(dt, ds)[:toRead]...)
			remaining -= toRead
		}

		if nt == 0 && ns == 0 {
			break
		}
		t, s = nt, ns
	}

	return rktypes.FileInfo{
		Descriptor: fe.Descriptor,
		Data:       buf,
	}, nil
}

// sectorsNeeded computes the tighter allocation bound SPEC_FULL.md §9
// recommends: ceil(dataSectors/126) T/S-list sectors rather than the
// source's ceil(n/254) overcount.
func sectorsNeeded(size int) (dataSectors, tslistSectors int) {
	dataSectors = (size + MaxDataLen - 1) / MaxDataLen
	if dataSectors == 0 {
		dataSectors = 1
	}
	tslistSectors = (dataSectors + 125) / 126
	return dataSectors, tslistSectors
}

// PutFile implements rktypes.Operator: writeFile per SPEC_FULL.md §4.5.
func (v *Volume) PutFile(fi rktypes.FileInfo, overwrite bool) (bool, error) {
	base, ext := normalizeName(fi.Name)
	name := normalizedName(base, ext)

	if _, ok := v.find(name); ok {
		if !overwrite {
			return false, rkerrors.FileExistsf("file exists: %s", name)
		}
		if _, err := v.Delete(name); err != nil {
			return false, err
		}
	}

	dataSectors, tlistSectors := sectorsNeeded(len(fi.Data))
	total := dataSectors + tlistSectors
	if total > v.freeSectors {
		return false, rkerrors.DiskFullf("need %d sectors, only %d free", total, v.freeSectors)
	}

	dt, ds, doff, err := v.allocateDirEntry()
	if err != nil {
		return false, err
	}
	dir := v.ptr(dt, ds)[doff:]

	copy(dir[0:10], base)
	dir[10] = 0
	copy(dir[11:14], ext)

	tlistTrack, tlistSector, err := v.allocate()
	if err != nil {
		return false, err
	}
	dir[14] = tlistTrack
	dir[15] = tlistSector

	binary.LittleEndian.PutUint16(dir[16:18], fi.LoadAddr)
	binary.LittleEndian.PutUint16(dir[18:20], uint16(total))
	dir[20] = fi.Attr

	tlistPtr := v.ptr(tlistTrack, tlistSector)
	tlistPtr[0], tlistPtr[1] = 0, 0
	tlistPos := 2

	data := fi.Data
	for i := 0; i < dataSectors; i++ {
		t, s, err := v.allocate()
		if err != nil {
			return false, err
		}
		bytesToCopy := len(data)
		if bytesToCopy > MaxDataLen {
			bytesToCopy = MaxDataLen
		}
		copy(v.ptr(t, s), data[:bytesToCopy])
		v.sectors[t][s].length = bytesToCopy
		data = data[bytesToCopy:]

		tlistPtr[tlistPos] = t
		tlistPtr[tlistPos+1] = s
		tlistPos += 2

		if tlistPos == 254 && i+1 < dataSectors {
			tlistPtr[254], tlistPtr[255] = 0, 0
			nt, ns, err := v.allocate()
			if err != nil {
				return false, err
			}
			tlistPtr[0], tlistPtr[1] = nt, ns
			tlistPtr = v.ptr(nt, ns)
			tlistPtr[0], tlistPtr[1] = 0, 0
			tlistPos = 2
		}
	}
	tlistPtr[tlistPos] = 0
	tlistPtr[tlistPos+1] = 0

	v.updateSectors()
	return true, v.readDir()
}

// Delete implements rktypes.Operator: deleteFile per SPEC_FULL.md §4.5.
func (v *Volume) Delete(name string) (bool, error) {
	i, ok := v.find(name)
	if !ok {
		return false, rkerrors.FileNotFoundf("file not found: %s", canonicalName(name))
	}
	fe := v.files[i]

	dir := v.ptr(fe.dirTrack, fe.dirSector)[fe.dirOffset:]
	dir[10] = dir[0]
	dir[0] = 0xFF
	v.sectors[fe.dirTrack][fe.dirSector].dirty = true

	t, s := fe.tlistTrack, fe.tlistSector
	if int(t) >= Tracks || int(s) >= SectorsPerTrack {
		return false, rkerrors.SectorNotFoundErr(t, s)
	}
	for {
		sd := &v.sectors[t][s]
		ptr := v.ptr(t, s)
		nt, ns := ptr[0], ptr[1]

		pos := 2
		for pos <= sd.length-2 {
			dt, ds := ptr[pos], ptr[pos+1]
			pos += 2
			if int(dt) >= Tracks || int(ds) >= SectorsPerTrack {
				return false, rkerrors.SectorNotFoundErr(dt, ds)
			}
			if dt == 0 && ds == 0 {
				break
			}
			v.free(dt, ds)
		}
		v.free(t, s)

		if nt == 0 && ns == 0 {
			break
		}
		t, s = nt, ns
	}

	v.updateSectors()
	return true, v.readDir()
}

// SetAttributes implements rktypes.Operator: overwrites the attribute byte
// in place with no chain walk.
func (v *Volume) SetAttributes(name string, attr byte) error {
	i, ok := v.find(name)
	if !ok {
		return rkerrors.FileNotFoundf("file not found: %s", canonicalName(name))
	}
	fe := &v.files[i]
	fe.Attr = attr

	dir := v.ptr(fe.dirTrack, fe.dirSector)
	dir[fe.dirOffset+20] = attr
	v.sectors[fe.dirTrack][fe.dirSector].dirty = true

	v.updateSectors()
	return nil
}

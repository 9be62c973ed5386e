package tape

import (
	"bytes"
	"testing"
)

// TestEncodeRK follows SPEC_FULL.md's RK encode scenario: body=[0xAA,0xBB],
// load=0x0100. The footer's checksum applies the RK format's last-byte
// special case (added unshifted), not a high-byte-preserving mask.
func TestEncodeRK(t *testing.T) {
	body := []byte{0xAA, 0xBB}
	got, err := Encode(body, RK, 0x0100, 0x0100, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x01, 0x00, 0x01, 0x01, 0xAA, 0xBB, 0x00, 0x00, 0xE6, 0xAB, 0x65}
	if !bytes.Equal(got, want) {
		t.Errorf("Encode(RK) = %#v, want %#v", got, want)
	}
}

// TestEncodeCAS follows SPEC_FULL.md's CAS encode scenario: body=[0x00],
// load=run=0, name="A".
func TestEncodeCAS(t *testing.T) {
	body := []byte{0x00}
	name := MakeIntName("A", IntNameLen(CAS))
	got, err := Encode(body, CAS, 0, 0, name)
	if err != nil {
		t.Fatal(err)
	}

	var want []byte
	want = append(want, casSignature[:]...)
	for i := 0; i < 10; i++ {
		want = append(want, 0xD0)
	}
	want = append(want, 'A', ' ', ' ', ' ', ' ', ' ')
	want = append(want, make([]byte, 8)...)
	want = append(want, casSignature[:]...)
	want = append(want, 0, 0, 0, 0, 0, 0)
	want = append(want, body...)

	if !bytes.Equal(got, want) {
		t.Errorf("Encode(CAS) = %#v, want %#v", got, want)
	}
}

// TestEncodeRKOEmptyBody exercises SPEC_FULL.md §9's open question 4: the
// padding formula must still land on a 16-byte boundary when body is
// empty, and the checksum call over a zero-length padding segment must
// not panic.
func TestEncodeRKOEmptyBody(t *testing.T) {
	name := MakeIntName("EMPTY", IntNameLen(RKO))
	out, err := Encode(nil, RKO, 0x1000, 0x1000, name)
	if err != nil {
		t.Fatal(err)
	}
	if (len(out)-3)%16 != 0 {
		t.Errorf("Encode(RKO, empty body) length before 3-byte trailer = %d, want multiple of 16", len(out)-3)
	}
	if out[len(out)-3] != 0xE6 {
		t.Errorf("Encode(RKO, empty body) footer sync = %#x, want 0xE6", out[len(out)-3])
	}
}

// TestMakeIntName checks uppercasing, sanitization, and space-padding.
func TestMakeIntName(t *testing.T) {
	got := MakeIntName("hello.com", 8)
	want := []byte("HELLO   ")
	if !bytes.Equal(got, want) {
		t.Errorf("MakeIntName = %q, want %q", got, want)
	}

	got = MakeIntName("a!b.bin", 6)
	want = []byte("A-B   ")
	if !bytes.Equal(got, want) {
		t.Errorf("MakeIntName = %q, want %q", got, want)
	}
}

// TestEncodeRejectsOversizedBody checks the 0x10000-byte input cap.
func TestEncodeRejectsOversizedBody(t *testing.T) {
	body := make([]byte, MaxBodySize+1)
	if _, err := Encode(body, RK, 0, 0, nil); err == nil {
		t.Error("Encode(oversized body) = nil error, want error")
	}
}

// TestEncodeRK4DuplicatesChecksum checks SPEC_FULL.md §9's open question 3:
// the RK4 footer's checksum is written twice, bit-for-bit.
func TestEncodeRK4DuplicatesChecksum(t *testing.T) {
	body := []byte{0x01, 0x02, 0x03}
	out, err := Encode(body, RK4, 0, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	footer := out[len(out)-5:]
	if footer[1] != footer[3] || footer[2] != footer[4] {
		t.Errorf("RK4 footer = %#v, want checksum at 1..2 duplicated at 3..4", footer)
	}
}

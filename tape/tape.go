// Package tape encodes a raw binary payload into one of the ten cassette
// tape container formats RK86-family machines and their clones use:
// RK, RKP, RKM, RKU, RK4, RKS, RKO, BRU, CAS, and LVT. Each format wraps
// the payload in a fixed header and (for some) a checksum footer; this
// package builds those wrappers byte-for-byte, manually, in the same
// fixed-offset style rkfs uses for on-disk structures. Grounded on
// bin2tape.h/.cpp from the original C++ tool this system replaces.
package tape

import "github.com/vpyk/rk86tools/rkerrors"

// Format identifies one of the ten supported tape container formats.
type Format int

const (
	RK Format = iota
	RKP
	RKM
	RKU
	RK4
	RKS
	RKO
	BRU
	CAS
	LVT
)

var formatNames = [...]string{
	RK:  "RK compatible",
	RKP: "RKP (RK compatible)",
	RKM: "RKM",
	RKU: "RKU",
	RK4: "RK4 (RK compatible)",
	RKS: "RKS",
	RKO: "RKO",
	BRU: "BRU",
	CAS: "CAS",
	LVT: "LVT",
}

// String returns the descriptive name bin2tape printed for this format.
func (f Format) String() string {
	if int(f) < 0 || int(f) >= len(formatNames) {
		return "unknown"
	}
	return formatNames[f]
}

// tagTable mirrors bin2tape's -t option parsing: several machine names
// alias onto the same wire format.
var tagTable = map[string]Format{
	"rk":  RK,
	"rkr": RK,
	"rka": RK,
	"rk8": RK,
	"rke": RK,
	"rkl": RK,
	"rkm": RKM,
	"rku": RKU,
	"rks": RKS,
	"rko": RKO,
	"bru": BRU,
	"ord": BRU,
	"rkp": RKP,
	"rk4": RK4,
	"cas": CAS,
	"lvt": LVT,
}

// TagToFormat resolves a CLI -t tag (e.g. "rkr", "ord", "cas") to a
// Format. The second return value is false for an unrecognized tag.
func TagToFormat(tag string) (Format, bool) {
	f, ok := tagTable[tag]
	return f, ok
}

// IntNameLen returns the internal-filename length a format embeds in its
// header: 8 bytes for BRU and RKO, 6 for CAS and LVT, 0 for formats that
// carry no internal name.
func IntNameLen(format Format) int {
	switch format {
	case BRU, RKO:
		return 8
	case CAS, LVT:
		return 6
	default:
		return 0
	}
}

// MaxBodySize is the largest payload bin2tape accepted (it stores end
// addresses as 16-bit load address + size, so a full 64K segment).
const MaxBodySize = 0x10000

var casSignature = [8]byte{0x1F, 0xA6, 0xDE, 0xBA, 0xCC, 0x13, 0x7D, 0x74}
var lvtSignature = [9]byte{0x4C, 0x56, 0x4F, 0x56, 0x2F, 0x32, 0x2E, 0x30, 0x2F} // "LVOV/2.0/"

// MakeIntName builds the fixed-width internal file name embedded in BRU,
// RKO, CAS, and LVT headers: the base name (before the first '.'),
// uppercased, with anything outside [0-9A-Za-z ] replaced by '-', padded
// with spaces (0x20) to length.
func MakeIntName(name string, length int) []byte {
	if idx := indexByte(name, '.'); idx >= 0 {
		name = name[:idx]
	}

	out := make([]byte, length)
	i := 0
	for ; i < length && i < len(name); i++ {
		ch := name[i]
		switch {
		case ch >= 'a' && ch <= 'z':
			ch -= 0x20
		case (ch >= '0' && ch <= '9') || (ch >= 'A' && ch <= 'Z') || ch == ' ':
			// unchanged
		default:
			ch = '-'
		}
		out[i] = ch
	}
	for ; i < length; i++ {
		out[i] = 0x20
	}
	return out
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

// AddToRkCs folds data into an RK-family running checksum. On the final
// chunk of a file (lastChunk), the payload's own last byte is added
// unshifted (without the b<<8 term the other bytes get); a carry out of
// the low byte still propagates into the high byte.
func AddToRkCs(baseCs uint16, data []byte, lastChunk bool) uint16 {
	n := len(data)
	end := n
	if lastChunk && n > 0 {
		end = n - 1
	}
	for i := 0; i < end; i++ {
		baseCs += uint16(data[i])
		baseCs += uint16(data[i]) << 8
	}
	if lastChunk && n > 0 {
		baseCs += uint16(data[n-1])
	}
	return baseCs
}

// CalcRkCs computes the whole-file RK checksum used by RK, RKP, RK4, and
// RKS (all share the same checksum, only the footer layout differs).
func CalcRkCs(data []byte) uint16 {
	return AddToRkCs(0, data, true)
}

// CalcRkmCs computes RKM's checksum: XOR of data bytes, odd-indexed
// bytes shifted into the high half before folding in.
func CalcRkmCs(data []byte) uint16 {
	var cs uint16
	for i, b := range data {
		if i&1 == 1 {
			cs ^= uint16(b) << 8
		} else {
			cs ^= uint16(b)
		}
	}
	return cs
}

// CalcRkuCs computes RKU's checksum: a plain 16-bit sum of data bytes.
func CalcRkuCs(data []byte) uint16 {
	var cs uint16
	for _, b := range data {
		cs += uint16(b)
	}
	return cs
}

// buildBruHeader returns BRU's 16-byte header: 8-byte name, load
// address (lo, hi), length (lo, hi), a zero attribute byte, and three
// 0xFF filler bytes. RKO embeds an identical structure.
func buildBruHeader(intName []byte, loadAddr uint16, length int) []byte {
	h := make([]byte, 16)
	copy(h[0:8], intName)
	h[8] = byte(loadAddr & 0xFF)
	h[9] = byte(loadAddr >> 8)
	h[10] = byte(length & 0xFF)
	h[11] = byte(length >> 8)
	h[12] = 0
	h[13], h[14], h[15] = 0xFF, 0xFF, 0xFF
	return h
}

// Encode wraps body in format's header (and footer, where the format
// has one) and returns the complete tape-file image. loadAddr and
// runAddr are 16-bit machine addresses; runAddr is only meaningful for
// CAS and LVT. intName must be IntNameLen(format) bytes long for
// formats that embed one (build it with MakeIntName), and is ignored
// otherwise.
func Encode(body []byte, format Format, loadAddr, runAddr uint16, intName []byte) ([]byte, error) {
	if len(body) > MaxBodySize {
		return nil, rkerrors.BadDiskFormatf("payload is %d bytes, max %d", len(body), MaxBodySize)
	}
	if n := IntNameLen(format); n > 0 && len(intName) != n {
		return nil, rkerrors.BadDiskFormatf("internal name must be %d bytes for %s, got %d", n, format, len(intName))
	}

	endAddr := int(loadAddr) + len(body) - 1

	var header, footer []byte

	switch format {
	case RK, RKP, RKM, RKU, RK4:
		header = []byte{
			byte(loadAddr >> 8), byte(loadAddr & 0xFF),
			byte((endAddr >> 8) & 0xFF), byte(endAddr & 0xFF),
		}

		var cs uint16
		switch format {
		case RKM:
			cs = CalcRkmCs(body)
		case RKU:
			cs = CalcRkuCs(body)
		default:
			cs = CalcRkCs(body)
		}

		switch format {
		case RK, RKU:
			footer = []byte{0, 0, 0xE6, byte(cs >> 8), byte(cs & 0xFF)}
		case RKP:
			footer = []byte{0, 0xE6, byte(cs >> 8), byte(cs & 0xFF)}
		case RK4:
			footer = make([]byte, 21)
			footer[16] = 0xE6
			footer[17] = byte(cs >> 8)
			footer[18] = byte(cs & 0xFF)
			footer[19] = byte(cs >> 8)
			footer[20] = byte(cs & 0xFF)
		case RKM:
			footer = []byte{byte(cs >> 8), byte(cs & 0xFF)}
		}

	case RKS:
		cs := CalcRkCs(body)
		header = []byte{
			byte(loadAddr & 0xFF), byte(loadAddr >> 8),
			byte(endAddr & 0xFF), byte((endAddr >> 8) & 0xFF),
		}
		footer = []byte{byte(cs & 0xFF), byte(cs >> 8)}

	case BRU:
		header = buildBruHeader(intName, loadAddr, len(body))

	case RKO:
		bruHeader := buildBruHeader(intName, loadAddr, len(body))

		header = make([]byte, 8+64+1+2+2+16)
		copy(header[0:8], intName)
		// bytes 8..71 are the zeroed nullBytes run.
		header[72] = 0xE6
		header[73] = byte(loadAddr & 0xFF)
		header[74] = byte(loadAddr >> 8)
		totalLen := len(body) + 16
		header[75] = byte((totalLen >> 8) & 0xFF)
		header[76] = byte(totalLen & 0xFF)
		copy(header[77:93], bruHeader)

		headerSize := len(header)
		paddingSize := (-(headerSize + len(body))) & 0x0F
		padding := make([]byte, paddingSize)

		cs := AddToRkCs(0, bruHeader, false)
		cs = AddToRkCs(cs, body, false)
		cs = AddToRkCs(cs, padding, true)

		footer = make([]byte, paddingSize+3)
		copy(footer[:paddingSize], padding)
		footer[paddingSize] = 0xE6
		footer[paddingSize+1] = byte(cs >> 8)
		footer[paddingSize+2] = byte(cs & 0xFF)

	case CAS:
		header = make([]byte, 46)
		copy(header[0:8], casSignature[:])
		for i := 8; i < 18; i++ {
			header[i] = 0xD0
		}
		copy(header[18:24], intName)
		// bytes 24..31 are the zeroed padding run required by Partner etc.
		copy(header[32:40], casSignature[:])
		header[40] = byte(loadAddr & 0xFF)
		header[41] = byte(loadAddr >> 8)
		header[42] = byte(endAddr & 0xFF)
		header[43] = byte((endAddr >> 8) & 0xFF)
		header[44] = byte(runAddr & 0xFF)
		header[45] = byte(runAddr >> 8)

	case LVT:
		header = make([]byte, 22)
		copy(header[0:9], lvtSignature[:])
		header[9] = 0xD0
		copy(header[10:16], intName)
		header[16] = byte(loadAddr & 0xFF)
		header[17] = byte(loadAddr >> 8)
		header[18] = byte(endAddr & 0xFF)
		header[19] = byte((endAddr >> 8) & 0xFF)
		header[20] = byte(runAddr & 0xFF)
		header[21] = byte(runAddr >> 8)

	default:
		return nil, rkerrors.BadDiskFormatf("unknown tape format %d", format)
	}

	out := make([]byte, 0, len(header)+len(body)+len(footer))
	out = append(out, header...)
	out = append(out, body...)
	out = append(out, footer...)
	return out, nil
}

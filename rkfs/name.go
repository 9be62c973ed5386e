package rkfs

import "strings"

// normalizeName implements SPEC_FULL.md §4.5's filename normalization:
// uppercase, base truncated to 10 characters, extension truncated to 3,
// any character outside [A-Za-z0-9 .] replaced by '_'. The separator is
// the last '.' in the input.
func normalizeName(name string) (base, ext string) {
	var sanitized strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
			sanitized.WriteByte(byte(r - 'a' + 'A'))
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == ' ' || r == '.':
			sanitized.WriteByte(byte(r))
		default:
			sanitized.WriteByte('_')
		}
	}
	s := sanitized.String()

	idx := strings.LastIndexByte(s, '.')
	if idx < 0 {
		base = s
	} else {
		base, ext = s[:idx], s[idx+1:]
	}
	if len(base) > 10 {
		base = base[:10]
	}
	if len(ext) > 3 {
		ext = ext[:3]
	}
	return base, ext
}

// normalizedName joins base and ext the way directory listings render
// them: "BASE" alone, or "BASE.EXT" when an extension is present.
func normalizedName(base, ext string) string {
	if ext == "" {
		return base
	}
	return base + "." + ext
}

// canonicalName returns the directory-lookup key for a user-supplied
// filename: normalize, then join. Used identically by read/write/delete/
// setAttributes so lookups never diverge (SPEC_FULL.md §9).
func canonicalName(name string) string {
	base, ext := normalizeName(name)
	return normalizedName(base, ext)
}

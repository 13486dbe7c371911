package scan

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// DecodeCP437 decodes DOS code page 437 bytes. Every byte maps to a rune, so
// decoding never fails; bytes without a printable glyph come back as their
// control-code runes and are rejected later by the text checks.
func DecodeCP437(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		sb.WriteRune(charmap.CodePage437.DecodeByte(c))
	}
	return sb.String()
}

// nameBytes marks the printable name byte set: A-Z a-z space ' - .
var nameBytes = func() [256]bool {
	var t [256]bool
	for c := 'A'; c <= 'Z'; c++ {
		t[c] = true
	}
	for c := 'a'; c <= 'z'; c++ {
		t[c] = true
	}
	for _, c := range []byte(" '-.") {
		t[c] = true
	}
	return t
}()

func allNameBytes(b []byte) bool {
	for _, c := range b {
		if !nameBytes[c] {
			return false
		}
	}
	return true
}

// validText reports whether s holds at least one ASCII letter and nothing
// outside the printable name set.
func validText(s string) bool {
	letter := false
	for _, r := range s {
		if r >= 0x80 || !nameBytes[byte(r)] {
			return false
		}
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
			letter = true
		}
	}
	return letter
}

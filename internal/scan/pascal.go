package scan

import (
	"strings"
)

const (
	DefaultPascalMinLen = 3
	DefaultPascalMaxLen = 24

	// DefaultNameMinLen is the shortest secondary entity name kept by DedupNames.
	DefaultNameMinLen = 4
)

// DefaultDenylist holds header words that appear as Pascal strings between
// entity names but are not names themselves.
var DefaultDenylist = []string{"LEAGUE", "DIVISION"}

// Token is a length-prefixed string found at an arbitrary byte offset.
type Token struct {
	Offset int
	Text   string
}

// PascalOptions configures an unaligned scan. Start and End bound the offsets
// of the length byte (inclusive); End <= 0 means the end of the buffer.
type PascalOptions struct {
	MinLen int
	MaxLen int
	Start  int
	End    int
}

func (o PascalOptions) withDefaults(n int) PascalOptions {
	if o.MinLen < 1 {
		o.MinLen = DefaultPascalMinLen
	}
	if o.MaxLen < o.MinLen {
		o.MaxLen = DefaultPascalMaxLen
		if o.MaxLen < o.MinLen {
			o.MaxLen = o.MinLen
		}
	}
	if o.MaxLen > 255 {
		o.MaxLen = 255
	}
	if o.Start < 0 {
		o.Start = 0
	}
	if o.End <= 0 || o.End > n {
		o.End = n
	}
	return o
}

// PascalStrings scans every byte offset for [len][text] strings whose bytes
// are all printable name bytes. A match moves the cursor past the consumed
// bytes so the tail of one string is never reported as a second string.
//
// The whole buffer is scanned and the window is applied to the results, so a
// string that straddles the window start does not shift the alignment of the
// strings inside it.
func PascalStrings(buf []byte, opts PascalOptions) []Token {
	opts = opts.withDefaults(len(buf))

	var out []Token
	i := 0
	for i+2 < len(buf) && i <= opts.End {
		l := int(buf[i])
		if l >= opts.MinLen && l <= opts.MaxLen && i+1+l <= len(buf) {
			raw := buf[i+1 : i+1+l]
			if allNameBytes(raw) {
				if text := strings.TrimSpace(string(raw)); validText(text) {
					if i >= opts.Start {
						out = append(out, Token{Offset: i, Text: text})
					}
					i += 1 + l
					continue
				}
			}
		}
		i++
	}
	return out
}

// DedupNames keeps the first occurrence of each name (case-insensitive),
// dropping names shorter than minLen and names containing any denylisted
// word. dropped counts everything removed.
func DedupNames(tokens []Token, minLen int, denylist []string) (kept []Token, dropped int) {
	seen := make(map[string]bool, len(tokens))
	upperDeny := make([]string, len(denylist))
	for i, d := range denylist {
		upperDeny[i] = strings.ToUpper(d)
	}

	for _, t := range tokens {
		key := strings.ToLower(t.Text)
		if seen[key] || len(t.Text) < minLen || containsAny(strings.ToUpper(t.Text), upperDeny) {
			dropped++
			continue
		}
		seen[key] = true
		kept = append(kept, t)
	}
	return kept, dropped
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if w != "" && strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// Texts returns the token texts in order.
func Texts(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Text
	}
	return out
}

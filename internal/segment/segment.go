// Package segment splits concatenated name text into individual name tokens.
//
// Legacy data files store surnames glued together ("AndersonDiamondMcNaughton").
// A new name starts wherever an uppercase letter follows a lowercase one, with
// special care for the Scottish Mc/Mac prefixes.
package segment

import (
	"regexp"
	"strings"
	"unicode"
)

// Piece is a segmented token and the rune offset where it starts, plus the
// base passed to SplitAt. For text decoded from a single-byte code page the
// rune offset equals the byte offset.
type Piece struct {
	Offset int
	Text   string
}

// Split segments s into name tokens.
func Split(s string) []string {
	pieces := SplitAt(s, 0)
	out := make([]string, len(pieces))
	for i, p := range pieces {
		out[i] = p.Text
	}
	return out
}

// SplitAt segments s and reports each token's offset relative to base.
//
// Letters, apostrophes and hyphens accumulate; anything else ends the current
// token. A lowercase→uppercase transition starts a new token unless the token
// so far is exactly "Mc" or "Mac". A second pass glues an isolated "Mc"/"Mac"
// onto a following capitalised token. Unmerged trailing prefixes are kept.
func SplitAt(s string, base int) []Piece {
	var (
		pieces []Piece
		cur    []rune
		start  int
	)
	flush := func() {
		if len(cur) > 0 {
			pieces = append(pieces, Piece{Offset: base + start, Text: string(cur)})
			cur = cur[:0]
		}
	}

	for i, r := range []rune(s) {
		if !isNameRune(r) {
			flush()
			continue
		}
		if len(cur) > 0 && unicode.IsUpper(r) && unicode.IsLower(cur[len(cur)-1]) && !isPrefix(string(cur)) {
			flush()
		}
		if len(cur) == 0 {
			start = i
		}
		cur = append(cur, r)
	}
	flush()

	return mergePrefixes(pieces)
}

func isNameRune(r rune) bool {
	return unicode.IsLetter(r) || r == '\'' || r == '-'
}

func isPrefix(s string) bool { return s == "Mc" || s == "Mac" }

func mergePrefixes(pieces []Piece) []Piece {
	out := make([]Piece, 0, len(pieces))
	for i := 0; i < len(pieces); i++ {
		p := pieces[i]
		if isPrefix(p.Text) && i+1 < len(pieces) && startsUpper(pieces[i+1].Text) {
			out = append(out, Piece{Offset: p.Offset, Text: p.Text + pieces[i+1].Text})
			i++
			continue
		}
		out = append(out, p)
	}
	return out
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

var tokenRe = regexp.MustCompile(`^[A-Za-z][A-Za-z'\-]{1,23}$`)

// Plausible reports whether tok has the shape of a name token: a leading
// ASCII letter, 2-24 characters, only letters, apostrophes and hyphens.
func Plausible(tok string) bool {
	return tokenRe.MatchString(tok)
}

// structural words that show up between names in football data files.
var denylist = map[string]bool{
	"Division": true, "Premier": true, "League": true, "Scottish": true,
	"Reserve": true, "United": true, "City": true, "FC": true, "AFC": true,
	"Rovers": true, "Athletic": true, "County": true, "Football": true,
	"Club": true,
}

// LikelyName is Plausible plus filters for known false positives: structural
// words, long all-caps header chunks and doubled punctuation.
func LikelyName(tok string) bool {
	tok = strings.TrimSpace(tok)
	if !Plausible(tok) || denylist[tok] {
		return false
	}
	if strings.Contains(tok, "--") || strings.Contains(tok, "''") {
		return false
	}
	if len(tok) > 5 && strings.ToUpper(tok) == tok {
		return false
	}
	return true
}

// CountPlausible returns how many of toks are Plausible.
func CountPlausible(toks []string) int {
	n := 0
	for _, t := range toks {
		if Plausible(t) {
			n++
		}
	}
	return n
}

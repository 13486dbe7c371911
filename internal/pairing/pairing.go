// Package pairing infers (first name, surname) pairs from an offset-ordered
// stream of name tokens using a list of known first names.
package pairing

import (
	"sort"

	"github.com/gonkalabs/datrecover/internal/segment"
)

// Source tells which scanner produced a token.
type Source string

const (
	SourceSlot Source = "slot"
	SourceBlob Source = "blob"
)

// Token is a name token with its origin.
type Token struct {
	Text   string
	Source Source
	Offset int
}

// Pair is an inferred first/last name association. Source and Offset come
// from the first-name token.
type Pair struct {
	First  string
	Last   string
	Source Source
	Offset int
}

// Result holds the unique pairs and the unique unpaired tokens, each in
// order of first occurrence.
type Result struct {
	Pairs   []Pair
	Singles []Token
}

// Merge concatenates token streams and orders them by offset. Tokens sharing
// an offset keep their stream order.
func Merge(streams ...[]Token) []Token {
	var n int
	for _, s := range streams {
		n += len(s)
	}
	out := make([]Token, 0, n)
	for _, s := range streams {
		out = append(out, s...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out
}

// Infer walks tokens left to right. A token that is a known first name and is
// followed by a plausible name token becomes a pair with it; anything else is
// a single. The walk never backtracks, so a first name followed by another
// first name is paired with it.
func Infer(tokens []Token, names FirstNames) Result {
	var (
		res        Result
		seenPair   = make(map[[2]string]bool)
		seenSingle = make(map[string]bool)
	)
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		first := Capitalize(t.Text)
		if names.Has(first) && i+1 < len(tokens) && segment.Plausible(tokens[i+1].Text) {
			last := tokens[i+1].Text
			key := [2]string{first, last}
			if !seenPair[key] {
				seenPair[key] = true
				res.Pairs = append(res.Pairs, Pair{First: first, Last: last, Source: t.Source, Offset: t.Offset})
			}
			i++
			continue
		}
		if !seenSingle[t.Text] {
			seenSingle[t.Text] = true
			res.Singles = append(res.Singles, t)
		}
	}
	return res
}

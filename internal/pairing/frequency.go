package pairing

import (
	"sort"
	"strings"
)

// NameCount is how often a token text occurs across the name streams.
type NameCount struct {
	Name  string
	Count int
}

// Rank counts token texts over all streams and orders them by count
// descending, then case-insensitively by name. Names that differ only in
// case are kept apart and ordered by their exact text.
func Rank(streams ...[]Token) []NameCount {
	counts := make(map[string]int)
	for _, s := range streams {
		for _, t := range s {
			counts[t.Text]++
		}
	}
	out := make([]NameCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, NameCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name); la != lb {
			return la < lb
		}
		return a.Name < b.Name
	})
	return out
}

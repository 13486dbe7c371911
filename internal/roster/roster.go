// Package roster maps a flat stream of name tokens onto fixed-size
// per-entity blocks.
package roster

import (
	"github.com/gonkalabs/datrecover/internal/segment"
)

// DefaultMinValid is how many of a discovered window's tokens must look like
// names for the window to count as a roster.
const DefaultMinValid = 12

// Block is one entity's roster.
type Block struct {
	EntityIndex int
	Name        string
	Start       int // token index where the window begins
	Fields      []string
}

// Mapping is the result of a mapper run.
type Mapping struct {
	BlockSize int
	Blocks    []Block

	Skipped    int // entities whose window fell outside the token stream
	Rejected   int // discovered windows with too few name-shaped tokens
	Unassigned int // accepted windows left over after every name got one
}

// IndexedLayout addresses block i at Bias + (i-StartIndex)*BlockSize.
type IndexedLayout struct {
	Count      int // number of entities; 0 means len(names)
	BlockSize  int
	StartIndex int
	Bias       int
}

// Indexed slices one window per entity index from StartIndex up to Count.
// Entities whose window does not fit are counted in Skipped.
func Indexed(tokens, names []string, l IndexedLayout) Mapping {
	m := Mapping{BlockSize: l.BlockSize}
	if l.BlockSize <= 0 {
		return m
	}
	count := l.Count
	if count <= 0 {
		count = len(names)
	}
	start := l.StartIndex
	if start < 0 {
		start = 0
	}

	for i := start; i < count; i++ {
		ws := l.Bias + (i-l.StartIndex)*l.BlockSize
		if ws < 0 || ws+l.BlockSize > len(tokens) {
			m.Skipped++
			continue
		}
		m.Blocks = append(m.Blocks, Block{
			EntityIndex: i,
			Name:        nameAt(names, i),
			Start:       ws,
			Fields:      window(tokens, ws, l.BlockSize),
		})
	}
	return m
}

// DiscoveredLayout walks sequential windows from TokenOffset.
type DiscoveredLayout struct {
	BlockSize   int
	TokenOffset int
	MinValid    int // 0 means DefaultMinValid, capped at BlockSize
}

// Discovered cuts the stream into non-overlapping windows starting at
// TokenOffset, keeps the windows with at least MinValid plausible name
// tokens, and hands the i-th kept window to the i-th name.
func Discovered(tokens, names []string, l DiscoveredLayout) Mapping {
	m := Mapping{BlockSize: l.BlockSize}
	if l.BlockSize <= 0 {
		return m
	}
	minValid := l.MinValid
	if minValid <= 0 {
		minValid = DefaultMinValid
	}
	if minValid > l.BlockSize {
		minValid = l.BlockSize
	}
	offset := l.TokenOffset
	if offset < 0 {
		offset = 0
	}

	var accepted []int
	for ws := offset; ws+l.BlockSize <= len(tokens); ws += l.BlockSize {
		if segment.CountPlausible(tokens[ws:ws+l.BlockSize]) >= minValid {
			accepted = append(accepted, ws)
		} else {
			m.Rejected++
		}
	}

	for i, ws := range accepted {
		if i >= len(names) {
			m.Unassigned = len(accepted) - len(names)
			break
		}
		m.Blocks = append(m.Blocks, Block{
			EntityIndex: i,
			Name:        names[i],
			Start:       ws,
			Fields:      window(tokens, ws, l.BlockSize),
		})
	}
	if len(names) > len(accepted) {
		m.Skipped = len(names) - len(accepted)
	}
	return m
}

func window(tokens []string, start, size int) []string {
	out := make([]string, size)
	copy(out, tokens[start:start+size])
	return out
}

func nameAt(names []string, i int) string {
	if i < len(names) {
		return names[i]
	}
	return ""
}

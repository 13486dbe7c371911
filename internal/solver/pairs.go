package solver

import (
	"context"
	"fmt"
)

const (
	DefaultPairRadius      = 2048
	DefaultPairMaxError    = 500
	DefaultMinDistinctLow  = 8
	DefaultMinDistinctHigh = 4
)

// PairOptions configures SolvePairs.
type PairOptions struct {
	Count   int
	Anchors Anchors

	// Radius bounds the high table to [low-Radius, low+Radius).
	Radius int

	MinDistinctLow  int
	MinDistinctHigh int

	MaxError float64 // default DefaultPairMaxError
	Limit    int
	Workers  int
}

// SolvePairs looks for a value split across two byte tables, the low bytes at
// one offset and the high bytes at another: value[i] = low[i] + 256*high[i].
// Only high offsets within Radius of the low offset are tried, which keeps
// the search quadratic in Radius instead of in the buffer size.
//
// Evaluated counts every (low, high) pair tried plus every low offset
// rejected before any high offset was tried; Rejected counts the rejected
// subset of those, so it never exceeds Evaluated.
func SolvePairs(ctx context.Context, buf []byte, opts PairOptions) (Result, error) {
	if opts.Count <= 0 {
		return Result{}, ErrBadCount
	}
	anchors, err := newAnchorSet(opts.Anchors, opts.Count)
	if err != nil {
		return Result{}, err
	}
	n := opts.Count
	if len(buf) < n {
		return Result{}, fmt.Errorf("%w: %d bytes, table needs %d", ErrBufferTooShort, len(buf), n)
	}
	radius := opts.Radius
	if radius <= 0 {
		radius = DefaultPairRadius
	}
	maxErr := opts.MaxError
	if maxErr <= 0 {
		maxErr = DefaultPairMaxError
	}
	minLow := opts.MinDistinctLow
	if minLow <= 0 {
		minLow = DefaultMinDistinctLow
	}
	minHigh := opts.MinDistinctHigh
	if minHigh <= 0 {
		minHigh = DefaultMinDistinctHigh
	}

	positions := len(buf) - n + 1
	distinct := distinctCounts(buf, n)

	eval := func(ctx context.Context, from, to int) (part, error) {
		var p part
		for lo := from; lo < to; lo++ {
			if (lo-from)%256 == 0 {
				if err := ctx.Err(); err != nil {
					return p, err
				}
			}
			if distinct[lo] < minLow {
				// counted once, as a single position
				p.evaluated++
				p.rejected++
				continue
			}
			hiFrom := lo - radius
			if hiFrom < 0 {
				hiFrom = 0
			}
			hiTo := lo + radius
			if hiTo > positions {
				hiTo = positions
			}
			for hi := hiFrom; hi < hiTo; hi++ {
				p.evaluated++
				if distinct[hi] < minHigh {
					p.rejected++
					continue
				}
				e := anchors.mae(func(i int) int64 {
					return int64(buf[lo+i]) + 256*int64(buf[hi+i])
				})
				if e > maxErr {
					continue
				}
				mn, mx := pairMinMax(buf, lo, hi, n)
				p.add(Candidate{
					Kind:       KindU8Pair,
					Offset:     lo,
					HighOffset: hi,
					Scale:      1,
					MAE:        e,
					Min:        mn,
					Max:        mx,
				}, opts.Limit)
			}
		}
		return p, nil
	}

	res, err := run(ctx, 0, positions, 1, opts.Workers, eval)
	if err != nil {
		return Result{}, err
	}
	res.Anchors = len(anchors.idx)
	rank(res.Candidates)
	res.Candidates = truncate(res.Candidates, opts.Limit)
	return res, nil
}

// distinctCounts returns, for every offset where an n-byte table fits, the
// number of distinct byte values in buf[off:off+n], maintained as a sliding
// histogram.
func distinctCounts(buf []byte, n int) []int {
	positions := len(buf) - n + 1
	if positions <= 0 {
		return nil
	}
	out := make([]int, positions)
	var hist [256]int
	distinct := 0
	for i := 0; i < n; i++ {
		if hist[buf[i]] == 0 {
			distinct++
		}
		hist[buf[i]]++
	}
	out[0] = distinct
	for off := 1; off < positions; off++ {
		drop := buf[off-1]
		hist[drop]--
		if hist[drop] == 0 {
			distinct--
		}
		add := buf[off+n-1]
		if hist[add] == 0 {
			distinct++
		}
		hist[add]++
		out[off] = distinct
	}
	return out
}

func pairMinMax(buf []byte, lo, hi, n int) (mn, mx int64) {
	for i := 0; i < n; i++ {
		v := int64(buf[lo+i]) + 256*int64(buf[hi+i])
		if i == 0 || v < mn {
			mn = v
		}
		if i == 0 || v > mx {
			mx = v
		}
	}
	return mn, mx
}

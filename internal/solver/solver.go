// Package solver searches a byte buffer for fixed-length integer tables whose
// values best match a handful of known per-entity values (anchors).
//
// It ranks hypotheses; it never claims a decoding is right. An empty or
// high-error result is a valid answer.
package solver

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/gonkalabs/datrecover/internal/layout"
)

// MinAnchors is the anchor count below which a ranking is unreliable. The
// solver still runs with fewer; Result.Reliable lets the caller decide.
const MinAnchors = 3

var (
	ErrBadWidth         = errors.New("solver: width must be 1, 2 or 4")
	ErrBadCount         = errors.New("solver: entity count must be positive")
	ErrBadScale         = errors.New("solver: scales must be positive")
	ErrNoAnchors        = errors.New("solver: no anchors")
	ErrAnchorOutOfRange = errors.New("solver: anchor index out of range")
	ErrBufferTooShort   = errors.New("solver: buffer shorter than one table")
)

// Kind names the encoding of a candidate table.
type Kind string

const (
	KindU8     Kind = "u8"
	KindU16    Kind = "u16"
	KindU32    Kind = "u32"
	KindU8Pair Kind = "u8-pair"
)

// KindForWidth maps a byte width to its Kind.
func KindForWidth(width int) (Kind, error) {
	switch width {
	case 1:
		return KindU8, nil
	case 2:
		return KindU16, nil
	case 4:
		return KindU32, nil
	}
	return "", ErrBadWidth
}

// Candidate is one hypothesis for where a per-entity table lives.
type Candidate struct {
	Kind       Kind
	Offset     int
	HighOffset int // high-byte table for KindU8Pair, -1 otherwise
	Scale      int
	MAE        float64 // mean absolute error over the anchors only
	Min        int64   // smallest predicted value over the whole table
	Max        int64
}

// Label is a compact description such as "u16_x10" or "u8-pair".
func (c Candidate) Label() string {
	if c.Kind == KindU8Pair || c.Scale == 1 {
		return string(c.Kind)
	}
	return fmt.Sprintf("%s_x%d", c.Kind, c.Scale)
}

// Anchors maps entity index to its known value.
type Anchors map[int]int64

// Result is a ranked candidate list plus the counts behind it.
type Result struct {
	Candidates []Candidate
	Evaluated  int // table positions decoded
	Rejected   int // positions dropped by the implausibility filter, never more than Evaluated
	Anchors    int
}

// Reliable reports whether enough anchors backed the ranking.
func (r Result) Reliable() bool { return r.Anchors >= MinAnchors }

// Best returns the top candidate, if any.
func (r Result) Best() (Candidate, bool) {
	if len(r.Candidates) == 0 {
		return Candidate{}, false
	}
	return r.Candidates[0], true
}

// Options configures Solve.
type Options struct {
	Count   int   // entries per table
	Width   int   // 1, 2 or 4 bytes per entry
	Scales  []int // multipliers tried on every table; empty means {1}
	Anchors Anchors

	Start int // first offset, inclusive
	End   int // last offset, exclusive; 0 means every offset where a table fits
	Step  int

	MinDistinct int    // tables with fewer distinct values are rejected; default 2
	MinMax      uint64 // tables whose largest raw value is below this are rejected; default 1

	MaxError float64 // drop candidates above this error; 0 keeps all
	Limit    int     // keep only the best Limit candidates; 0 keeps all
	Workers  int     // 0 means GOMAXPROCS
}

// anchorSet is the anchor map flattened into parallel slices, sorted by index
// so error sums are accumulated in a fixed order.
type anchorSet struct {
	idx  []int
	want []int64
}

func newAnchorSet(a Anchors, count int) (anchorSet, error) {
	if len(a) == 0 {
		return anchorSet{}, ErrNoAnchors
	}
	var s anchorSet
	for i := range a {
		if i < 0 || i >= count {
			return anchorSet{}, fmt.Errorf("%w: %d not in [0,%d)", ErrAnchorOutOfRange, i, count)
		}
		s.idx = append(s.idx, i)
	}
	sort.Ints(s.idx)
	s.want = make([]int64, len(s.idx))
	for k, i := range s.idx {
		s.want[k] = a[i]
	}
	return s, nil
}

// mae scores pred(i) against the anchors.
func (s anchorSet) mae(pred func(i int) int64) float64 {
	var sum int64
	for k, i := range s.idx {
		d := pred(i) - s.want[k]
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return float64(sum) / float64(len(s.idx))
}

// Solve decodes a Count-entry table of the given width at every offset in
// range, filters implausible tables and scores each scale against the
// anchors. Candidates are sorted by error, then offset, then scale.
//
// The offset range is split across workers. Each (offset, scale) evaluation
// is independent, so the only coordination is the final merge.
func Solve(ctx context.Context, buf []byte, opts Options) (Result, error) {
	kind, err := KindForWidth(opts.Width)
	if err != nil {
		return Result{}, err
	}
	if opts.Count <= 0 {
		return Result{}, ErrBadCount
	}
	scales := opts.Scales
	if len(scales) == 0 {
		scales = []int{1}
	}
	for _, k := range scales {
		if k <= 0 {
			return Result{}, fmt.Errorf("%w: %d", ErrBadScale, k)
		}
	}
	anchors, err := newAnchorSet(opts.Anchors, opts.Count)
	if err != nil {
		return Result{}, err
	}

	tableLen := opts.Count * opts.Width
	if len(buf) < tableLen {
		return Result{}, fmt.Errorf("%w: %d bytes, table needs %d", ErrBufferTooShort, len(buf), tableLen)
	}
	lo, hi := clampRange(opts.Start, opts.End, len(buf)-tableLen+1)
	step := opts.Step
	if step <= 0 {
		step = 1
	}
	minDistinct := opts.MinDistinct
	if minDistinct <= 0 {
		minDistinct = 2
	}
	minMax := opts.MinMax
	if minMax == 0 {
		minMax = 1
	}

	eval := func(ctx context.Context, from, to int) (part, error) {
		var p part
		vals := make([]uint64, opts.Count)
		for off := from; off < to; off += step {
			if (off-from)%(step*4096) == 0 {
				if err := ctx.Err(); err != nil {
					return p, err
				}
			}
			p.evaluated++
			decodeInto(vals, buf, off, opts.Width)
			mn, mx := minMaxOf(vals)
			if mx < minMax || !atLeastDistinct(vals, minDistinct) {
				p.rejected++
				continue
			}
			for _, k := range scales {
				scale := int64(k)
				e := anchors.mae(func(i int) int64 { return int64(vals[i]) * scale })
				if opts.MaxError > 0 && e > opts.MaxError {
					continue
				}
				p.add(Candidate{
					Kind:       kind,
					Offset:     off,
					HighOffset: -1,
					Scale:      k,
					MAE:        e,
					Min:        int64(mn) * scale,
					Max:        int64(mx) * scale,
				}, opts.Limit)
			}
		}
		return p, nil
	}

	res, err := run(ctx, lo, hi, step, opts.Workers, eval)
	if err != nil {
		return Result{}, err
	}
	res.Anchors = len(anchors.idx)
	rank(res.Candidates)
	res.Candidates = truncate(res.Candidates, opts.Limit)
	return res, nil
}

// decode reads n unsigned little-endian integers of the given width at off.
func decode(buf []byte, off, width, n int) ([]uint64, error) {
	if _, err := KindForWidth(width); err != nil {
		return nil, err
	}
	if off < 0 || n < 0 || off+n*width > len(buf) {
		return nil, fmt.Errorf("%w: %d entries of %d bytes at %d", ErrBufferTooShort, n, width, off)
	}
	out := make([]uint64, n)
	decodeInto(out, buf, off, width)
	return out, nil
}

func decodeInto(dst []uint64, buf []byte, off, width int) {
	for i := range dst {
		dst[i], _ = layout.ReadUint(buf, off+i*width, width)
	}
}

func minMaxOf(vals []uint64) (mn, mx uint64) {
	if len(vals) == 0 {
		return 0, 0
	}
	mn, mx = vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < mn {
			mn = v
		}
		if v > mx {
			mx = v
		}
	}
	return mn, mx
}

// atLeastDistinct reports whether vals holds k or more distinct values.
// k is small, so a linear seen-list beats a map.
func atLeastDistinct(vals []uint64, k int) bool {
	if k <= 1 {
		return len(vals) > 0
	}
	seen := make([]uint64, 0, k)
	for _, v := range vals {
		dup := false
		for _, s := range seen {
			if s == v {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		seen = append(seen, v)
		if len(seen) >= k {
			return true
		}
	}
	return false
}

func clampRange(start, end, limit int) (int, int) {
	if start < 0 {
		start = 0
	}
	if end <= 0 || end > limit {
		end = limit
	}
	if start > end {
		start = end
	}
	return start, end
}

func rank(c []Candidate) {
	sort.SliceStable(c, func(i, j int) bool {
		a, b := c[i], c[j]
		if a.MAE != b.MAE {
			return a.MAE < b.MAE
		}
		if a.Offset != b.Offset {
			return a.Offset < b.Offset
		}
		if a.HighOffset != b.HighOffset {
			return a.HighOffset < b.HighOffset
		}
		return a.Scale < b.Scale
	})
}

func truncate(c []Candidate, limit int) []Candidate {
	if limit > 0 && len(c) > limit {
		return c[:limit:limit]
	}
	return c
}

// part is one worker's share of a scan.
type part struct {
	cands     []Candidate
	evaluated int
	rejected  int
}

// add records c. With a positive limit the buffer is ranked and cut back to
// limit whenever it doubles, so a worker holds at most 2*limit candidates.
// rank is a total order, so the part's top limit is the same as if every
// candidate had been kept.
func (p *part) add(c Candidate, limit int) {
	p.cands = append(p.cands, c)
	if limit > 0 && len(p.cands) >= 2*limit {
		rank(p.cands)
		p.cands = p.cands[:limit]
	}
}

// run splits [lo,hi) into contiguous, step-aligned chunks and evaluates them
// concurrently. Parts are merged in chunk order, so the merged slice is the
// same regardless of scheduling.
func run(ctx context.Context, lo, hi, step, workers int, eval func(ctx context.Context, from, to int) (part, error)) (Result, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	positions := 0
	if hi > lo {
		positions = (hi - lo + step - 1) / step
	}
	if positions == 0 {
		return Result{}, nil
	}
	if workers > positions {
		workers = positions
	}
	per := (positions + workers - 1) / workers

	parts := make([]part, workers)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		from := lo + w*per*step
		to := from + per*step
		if to > hi {
			to = hi
		}
		if from >= to {
			continue
		}
		w := w
		g.Go(func() error {
			p, err := eval(gctx, from, to)
			if err != nil {
				return err
			}
			parts[w] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("solver: %w", err)
	}

	var res Result
	for _, p := range parts {
		res.Candidates = append(res.Candidates, p.cands...)
		res.Evaluated += p.evaluated
		res.Rejected += p.rejected
	}
	return res, nil
}

// Merge combines searches scored against the same anchors, for example a u16
// and a u32 pass, into one ranking cut to limit.
func Merge(limit int, results ...Result) Result {
	var out Result
	for _, r := range results {
		out.Candidates = append(out.Candidates, r.Candidates...)
		out.Evaluated += r.Evaluated
		out.Rejected += r.Rejected
		if r.Anchors > out.Anchors {
			out.Anchors = r.Anchors
		}
	}
	rank(out.Candidates)
	out.Candidates = truncate(out.Candidates, limit)
	return out
}

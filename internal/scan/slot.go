// Package scan locates length-prefixed strings inside a raw byte buffer,
// either at a fixed stride (slot tables) or at any byte offset (packed
// Pascal strings). The scanners never mutate the buffer and never log; they
// return what they found together with skip counts.
package scan

import (
	"errors"
	"strings"
)

// ErrNoSlotTable is returned when no run of slot records reaches the minimum
// run length anywhere in the buffer.
var ErrNoSlotTable = errors.New("scan: no slot table found")

const (
	DefaultSlotSize = 16
	DefaultMinRun   = 8
)

// Record is a length-prefixed string decoded at a stride-aligned offset.
type Record struct {
	Offset int
	Text   string
}

// Table is a run of records at a constant stride.
type Table struct {
	Start   int
	Stride  int
	Records []Record
}

// Len returns the number of records in the table.
func (t Table) Len() int { return len(t.Records) }

// End returns the offset one past the last slot of the table.
func (t Table) End() int { return t.Start + len(t.Records)*t.Stride }

// Names returns the decoded texts in table order.
func (t Table) Names() []string {
	out := make([]string, len(t.Records))
	for i, r := range t.Records {
		out[i] = r.Text
	}
	return out
}

// SlotOptions configures a slot table scan.
type SlotOptions struct {
	Size   int // fixed record width, length byte included
	Start  int // first offset to try
	MinRun int // records needed before a run counts as a table
}

func (o SlotOptions) withDefaults() SlotOptions {
	if o.Size < 2 {
		o.Size = DefaultSlotSize
	}
	if o.Start < 0 {
		o.Start = 0
	}
	if o.MinRun < 1 {
		o.MinRun = DefaultMinRun
	}
	return o
}

// SlotScan is the outcome of SlotTables.
type SlotScan struct {
	Tables []Table

	Decodes   int // slot decodes attempted
	Rejected  int // slot decodes that failed
	ShortRuns int // runs discarded for being shorter than MinRun
}

// First returns the first table found, which holds the primary entity list
// in every file seen so far.
func (s SlotScan) First() (Table, error) {
	if len(s.Tables) == 0 {
		return Table{}, ErrNoSlotTable
	}
	return s.Tables[0], nil
}

// DecodeSlot decodes the slot at off: [len][text...][padding...].
func DecodeSlot(buf []byte, off, size int) (string, bool) {
	if off < 0 || off+size > len(buf) {
		return "", false
	}
	l := int(buf[off])
	if l < 1 || l > size-1 {
		return "", false
	}
	s := strings.TrimSpace(DecodeCP437(buf[off+1 : off+1+l]))
	if !validText(s) {
		return "", false
	}
	return s, true
}

// SlotTables walks buf trying a slot decode at every stride position. A run
// that reaches MinRun records is kept and scanning resumes at the slot that
// ended it. Shorter runs are dropped and the cursor moves on by a single
// byte, since the real table need not start on the guessed alignment.
func SlotTables(buf []byte, opts SlotOptions) SlotScan {
	opts = opts.withDefaults()
	var res SlotScan

	i := opts.Start
	for i+opts.Size <= len(buf) {
		var recs []Record
		off := i
		for {
			res.Decodes++
			text, ok := DecodeSlot(buf, off, opts.Size)
			if !ok {
				res.Rejected++
				break
			}
			recs = append(recs, Record{Offset: off, Text: text})
			off += opts.Size
		}
		if len(recs) >= opts.MinRun {
			res.Tables = append(res.Tables, Table{Start: i, Stride: opts.Size, Records: recs})
			i = off
			continue
		}
		if len(recs) > 0 {
			res.ShortRuns++
		}
		i++
	}
	return res
}

// SlotStrings decodes every stride-aligned slot from start without requiring
// a run. Useful when single slots are scattered among other records.
func SlotStrings(buf []byte, size, start int) []Record {
	if size < 2 {
		size = DefaultSlotSize
	}
	if start < 0 {
		start = 0
	}
	var out []Record
	for off := start; off+size <= len(buf); off += size {
		if text, ok := DecodeSlot(buf, off, size); ok {
			out = append(out, Record{Offset: off, Text: text})
		}
	}
	return out
}

// Package attrs dumps fixed per-entity tables for manual correlation. The
// meaning of each column is unknown; values are reported raw.
package attrs

import (
	"strconv"

	"github.com/gonkalabs/datrecover/internal/layout"
)

// Value is one cell. OK is false when the column ran past the end of the
// buffer, which is distinct from a zero byte.
type Value struct {
	Raw uint64
	OK  bool
}

// Row holds every column for one entity.
type Row struct {
	Index  int
	Name   string
	Values []Value
}

// Dump reads entry i of every column for each name in names. The returned
// rows are in index order and have exactly len(cols) values each.
func Dump(buf []byte, names []string, cols []layout.Column) []Row {
	rows := make([]Row, len(names))
	for i, name := range names {
		vals := make([]Value, len(cols))
		for j, c := range cols {
			v, ok := layout.ReadUint(buf, c.Offset+i*c.Width, c.Width)
			vals[j] = Value{Raw: v, OK: ok}
		}
		rows[i] = Row{Index: i, Name: name, Values: vals}
	}
	return rows
}

// Format renders v for column c. Absent values render as "", ASCII columns
// render printable bytes as themselves and anything else as "".
func Format(c layout.Column, v Value) string {
	if !v.OK {
		return ""
	}
	if c.ASCII {
		if v.Raw >= 32 && v.Raw <= 126 {
			return string(rune(v.Raw))
		}
		return ""
	}
	return strconv.FormatUint(v.Raw, 10)
}

// Header returns the column names in order.
func Header(cols []layout.Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

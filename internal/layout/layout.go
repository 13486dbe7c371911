// Package layout holds the empirically derived positions of structures inside
// a legacy data file. None of these values are discovered at runtime; they are
// supplied by configuration and only verified by the scanners.
package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// IndexedBlocks describes a roster whose blocks are addressable by entity
// index: block i starts at Bias + (i-StartIndex)*Size tokens.
type IndexedBlocks struct {
	StartIndex int
	Size       int
	Bias       int
}

// DiscoveredBlocks describes a roster that is only found by filtering
// sequential windows of Size tokens starting at TokenOffset.
type DiscoveredBlocks struct {
	ScanMin     int // byte window for the secondary entity list
	ScanMax     int
	Size        int
	TokenOffset int
}

// Column is one per-entity table at a fixed offset. Entry i lives at
// Offset + i*Width and is read little-endian.
type Column struct {
	Name   string
	Offset int
	Width  int
	ASCII  bool // render the value as a printable character
}

// Layout is the full set of offsets needed for one recovery run.
type Layout struct {
	EntityCount int

	SlotSize   int
	SlotStart  int
	SlotMinRun int

	// Byte window holding the concatenated player-name blob.
	BlobStart int
	BlobEnd   int

	NameRunMin int

	Primary   IndexedBlocks
	Secondary DiscoveredBlocks

	Columns []Column
}

// Default returns the offsets found for SCOT-94.DAT.
func Default() Layout {
	return Layout{
		EntityCount: 64,
		SlotSize:    16,
		SlotStart:   0,
		SlotMinRun:  8,
		BlobStart:   16300,
		BlobEnd:     42299,
		NameRunMin:  200,
		Primary: IndexedBlocks{
			StartIndex: 7,
			Size:       21,
			Bias:       -2,
		},
		Secondary: DiscoveredBlocks{
			ScanMin:     1200,
			ScanMax:     3000,
			Size:        16,
			TokenOffset: 10,
		},
		Columns: DefaultColumns(),
	}
}

// DefaultColumns are the candidate attribute tables near the header region.
// Their meaning is not decoded; they are dumped for correlation.
func DefaultColumns() []Column {
	return []Column{
		{Name: "b1_u8", Offset: 0x0C20, Width: 1},
		{Name: "u16_le", Offset: 0x0C60, Width: 2},
		{Name: "b2_u8", Offset: 0x0C80, Width: 1},
		{Name: "b3_u8", Offset: 0x0CC0, Width: 1},
		{Name: "b4_u8", Offset: 0x0CE0, Width: 1},
		{Name: "b4_ascii", Offset: 0x0CE0, Width: 1, ASCII: true},
	}
}

// Validate reports the first inconsistent field.
func (l Layout) Validate() error {
	switch {
	case l.EntityCount <= 0:
		return fmt.Errorf("layout: entity count must be positive, got %d", l.EntityCount)
	case l.SlotSize < 2 || l.SlotSize > 256:
		return fmt.Errorf("layout: slot size must be in [2,256], got %d", l.SlotSize)
	case l.SlotStart < 0:
		return fmt.Errorf("layout: slot start must not be negative, got %d", l.SlotStart)
	case l.SlotMinRun < 1:
		return fmt.Errorf("layout: slot min run must be positive, got %d", l.SlotMinRun)
	case l.BlobStart < 0 || l.BlobEnd < l.BlobStart:
		return fmt.Errorf("layout: bad blob window [%d,%d)", l.BlobStart, l.BlobEnd)
	case l.Primary.Size <= 0:
		return fmt.Errorf("layout: primary block size must be positive, got %d", l.Primary.Size)
	case l.Secondary.Size <= 0:
		return fmt.Errorf("layout: secondary block size must be positive, got %d", l.Secondary.Size)
	case l.Secondary.ScanMax < l.Secondary.ScanMin:
		return fmt.Errorf("layout: bad secondary scan window [%d,%d]", l.Secondary.ScanMin, l.Secondary.ScanMax)
	}
	for _, c := range l.Columns {
		if c.Width != 1 && c.Width != 2 && c.Width != 4 {
			return fmt.Errorf("layout: column %q has width %d", c.Name, c.Width)
		}
		if c.Offset < 0 {
			return fmt.Errorf("layout: column %q has negative offset", c.Name)
		}
	}
	return nil
}

// ParseColumns parses a comma-separated column list of the form
//
//	name@offset[:width][:ascii]
//
// Offsets accept any Go integer literal (0x0C20, 3104). Width defaults to 1.
func ParseColumns(raw string) ([]Column, error) {
	var cols []Column
	for i, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, rest, ok := strings.Cut(part, "@")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("layout: column %d: want name@offset, got %q", i+1, part)
		}
		fields := strings.Split(rest, ":")
		off, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 0, 64)
		if err != nil {
			return nil, fmt.Errorf("layout: column %q: offset: %w", name, err)
		}
		col := Column{Name: strings.TrimSpace(name), Offset: int(off), Width: 1}
		for _, f := range fields[1:] {
			f = strings.TrimSpace(f)
			if strings.EqualFold(f, "ascii") {
				col.ASCII = true
				continue
			}
			w, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("layout: column %q: width: %w", name, err)
			}
			col.Width = w
		}
		if col.Width != 1 && col.Width != 2 && col.Width != 4 {
			return nil, fmt.Errorf("layout: column %q: width must be 1, 2 or 4", name)
		}
		cols = append(cols, col)
	}
	return cols, nil
}

// ReadUint reads an unsigned little-endian integer of width 1, 2 or 4 at off.
// ok is false when the value does not fit inside buf.
func ReadUint(buf []byte, off, width int) (v uint64, ok bool) {
	if off < 0 || off+width > len(buf) {
		return 0, false
	}
	switch width {
	case 1:
		return uint64(buf[off]), true
	case 2:
		return uint64(buf[off]) | uint64(buf[off+1])<<8, true
	case 4:
		return uint64(buf[off]) | uint64(buf[off+1])<<8 | uint64(buf[off+2])<<16 | uint64(buf[off+3])<<24, true
	}
	return 0, false
}

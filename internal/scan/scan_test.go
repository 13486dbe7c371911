package scan

import (
	"errors"
	"strings"
	"testing"
)

func putSlot(buf []byte, off, size int, text string) {
	buf[off] = byte(len(text))
	copy(buf[off+1:off+size], text)
}

func TestSlotTablesStopsAtInvalidRecord(t *testing.T) {
	names := []string{"Rangers", "Celtic", "Hearts", "Hibernian", "Aberdeen",
		"Dundee", "Motherwell", "Falkirk", "St Johnstone", "Partick"}
	buf := make([]byte, 6+16*12)
	off := 6
	for _, n := range names {
		putSlot(buf, off, 16, n)
		off += 16
	}
	// length byte out of range for a 16-byte slot
	buf[off] = 0x20
	copy(buf[off+1:], "Kilmarnock")

	res := SlotTables(buf, SlotOptions{Size: 16})
	if len(res.Tables) != 1 {
		t.Fatalf("tables = %d, want 1", len(res.Tables))
	}
	tbl := res.Tables[0]
	if tbl.Len() != 10 {
		t.Fatalf("table length = %d, want 10", tbl.Len())
	}
	if tbl.Start != 6 || tbl.Stride != 16 {
		t.Errorf("start/stride = %d/%d, want 6/16", tbl.Start, tbl.Stride)
	}
	if got := strings.Join(tbl.Names(), ","); got != strings.Join(names, ",") {
		t.Errorf("names = %s", got)
	}
	if tbl.End() != off {
		t.Errorf("End() = %d, want %d", tbl.End(), off)
	}
	for _, r := range tbl.Records {
		l := int(buf[r.Offset])
		if l < 1 || l > 15 {
			t.Errorf("record at %d has declared length %d", r.Offset, l)
		}
		if len(r.Text) != l {
			t.Errorf("record %q has length %d, declared %d", r.Text, len(r.Text), l)
		}
	}
}

func TestSlotTablesDiscardsShortRuns(t *testing.T) {
	buf := make([]byte, 16*20)
	for i := 0; i < 5; i++ {
		putSlot(buf, i*16, 16, "Short")
	}
	res := SlotTables(buf, SlotOptions{Size: 16, MinRun: 8})
	if len(res.Tables) != 0 {
		t.Fatalf("tables = %d, want 0", len(res.Tables))
	}
	if res.ShortRuns == 0 {
		t.Error("short run not counted")
	}
	if _, err := res.First(); !errors.Is(err, ErrNoSlotTable) {
		t.Errorf("First() err = %v, want ErrNoSlotTable", err)
	}
}

func TestSlotTablesResynchronises(t *testing.T) {
	// the table does not start on a multiple of the stride
	buf := make([]byte, 3+16*10)
	for i := 0; i < 9; i++ {
		putSlot(buf, 3+i*16, 16, "Club")
	}
	res := SlotTables(buf, SlotOptions{Size: 16})
	tbl, err := res.First()
	if err != nil {
		t.Fatal(err)
	}
	if tbl.Start != 3 || tbl.Len() != 9 {
		t.Errorf("got start %d len %d, want 3 and 9", tbl.Start, tbl.Len())
	}
}

func TestDecodeSlot(t *testing.T) {
	tests := []struct {
		name string
		slot []byte
		want string
		ok   bool
	}{
		{"plain", []byte("\x07Rangers"), "Rangers", true},
		{"trailing space trimmed", []byte("\x08Rangers "), "Rangers", true},
		{"zero length", []byte("\x00Rangers"), "", false},
		{"too long", []byte("\x10Rangers"), "", false},
		{"no letters", []byte("\x03- ."), "", false},
		{"digit", []byte("\x05Club9"), "", false},
		{"extended byte", []byte("\x04M\x81ll"), "", false},
		{"apostrophe hyphen dot", []byte("\x0aSt. Mirr-'"), "St. Mirr-'", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, 16)
			copy(buf, tt.slot)
			got, ok := DecodeSlot(buf, 0, 16)
			if ok != tt.ok || got != tt.want {
				t.Errorf("DecodeSlot = %q,%v want %q,%v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestDecodeSlotPastEnd(t *testing.T) {
	buf := []byte("\x03Abc")
	if _, ok := DecodeSlot(buf, 0, 16); ok {
		t.Error("slot extending past the buffer decoded")
	}
}

func TestSlotStrings(t *testing.T) {
	buf := make([]byte, 16*4)
	putSlot(buf, 0, 16, "Diamond")
	putSlot(buf, 32, 16, "McNaughton")
	got := SlotStrings(buf, 16, 0)
	if len(got) != 2 || got[0].Offset != 0 || got[1].Offset != 32 || got[1].Text != "McNaughton" {
		t.Errorf("SlotStrings = %+v", got)
	}
}

func TestPascalStringsWindowAndSkip(t *testing.T) {
	buf := make([]byte, 4000)
	copy(buf[1500:], "\x08AberdeenXYZ")
	copy(buf[2000:], "\x06Dundee")

	got := PascalStrings(buf, PascalOptions{MinLen: 3, MaxLen: 24, Start: 1200, End: 3000})
	if len(got) != 2 {
		t.Fatalf("tokens = %+v, want 2", got)
	}
	if got[0] != (Token{Offset: 1500, Text: "Aberdeen"}) {
		t.Errorf("first token = %+v", got[0])
	}
	if got[1] != (Token{Offset: 2000, Text: "Dundee"}) {
		t.Errorf("second token = %+v", got[1])
	}
}

func TestPascalStringsNoOverlap(t *testing.T) {
	// 'E' is 69: read as a length byte it would cover the following letters,
	// so a scanner that does not skip consumed bytes reports a second string.
	buf := append([]byte("\x04Eabc"), []byte(strings.Repeat("x", 80))...)
	got := PascalStrings(buf, PascalOptions{MinLen: 3, MaxLen: 255})
	if len(got) != 1 || got[0] != (Token{Offset: 0, Text: "Eabc"}) {
		t.Fatalf("got %+v, want a single token at 0", got)
	}
}

func TestPascalStringsOutsideWindow(t *testing.T) {
	buf := make([]byte, 200)
	copy(buf[10:], "\x06Celtic")
	copy(buf[100:], "\x06Hearts")
	got := PascalStrings(buf, PascalOptions{Start: 50, End: 150})
	if len(got) != 1 || got[0].Text != "Hearts" {
		t.Errorf("got %+v", got)
	}
}

func TestDedupNames(t *testing.T) {
	in := []Token{
		{1, "Aberdeen"},
		{2, "ABERDEEN"},
		{3, "Ayr"},
		{4, "Premier League"},
		{5, "First Division"},
		{6, "Dundee"},
	}
	kept, dropped := DedupNames(in, DefaultNameMinLen, DefaultDenylist)
	if got := strings.Join(Texts(kept), ","); got != "Aberdeen,Dundee" {
		t.Errorf("kept = %s", got)
	}
	if dropped != 4 {
		t.Errorf("dropped = %d, want 4", dropped)
	}
}

func TestNameRuns(t *testing.T) {
	buf := []byte("\x00\x01AndersonDiamond\x00Mc\x02O'Neil-Smith")
	runs := NameRuns(buf, 6)
	if len(runs) != 2 {
		t.Fatalf("runs = %+v", runs)
	}
	if runs[0].Offset != 2 || runs[0].Text != "AndersonDiamond" {
		t.Errorf("run 0 = %+v", runs[0])
	}
	if runs[1].Text != "O'Neil-Smith" || runs[1].Offset != 21 {
		t.Errorf("run 1 = %+v", runs[1])
	}
}

func TestDecodeCP437(t *testing.T) {
	if got := DecodeCP437([]byte{'A', 0x81, 'b'}); got != "Aüb" {
		t.Errorf("DecodeCP437 = %q", got)
	}
}

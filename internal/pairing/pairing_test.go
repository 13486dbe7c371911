package pairing

import (
	"reflect"
	"strings"
	"testing"
)

func blob(offset int, words ...string) []Token {
	out := make([]Token, len(words))
	for i, w := range words {
		out[i] = Token{Text: w, Source: SourceBlob, Offset: offset + i}
	}
	return out
}

func texts(ts []Token) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Text
	}
	return out
}

func TestInfer(t *testing.T) {
	names := DefaultFirstNames()
	tokens := blob(100, "john", "Diamond", "Rangers", "Paul", "McStay", "Ally", "Paul", "Ian", "Ferguson")

	res := Infer(tokens, names)

	want := []Pair{
		{First: "John", Last: "Diamond", Source: SourceBlob, Offset: 100},
		{First: "Paul", Last: "McStay", Source: SourceBlob, Offset: 103},
		{First: "Paul", Last: "Ian", Source: SourceBlob, Offset: 106},
	}
	if !reflect.DeepEqual(res.Pairs, want) {
		t.Errorf("pairs = %+v\nwant %+v", res.Pairs, want)
	}
	if got := strings.Join(texts(res.Singles), ","); got != "Rangers,Ally,Ferguson" {
		t.Errorf("singles = %s", got)
	}
}

func TestInferRequiresPlausibleFollower(t *testing.T) {
	res := Infer(blob(0, "David", "9", "Gordon"), DefaultFirstNames())
	if len(res.Pairs) != 0 {
		t.Errorf("pairs = %+v", res.Pairs)
	}
	if got := strings.Join(texts(res.Singles), ","); got != "David,9,Gordon" {
		t.Errorf("singles = %s", got)
	}
}

func TestInferDeduplicates(t *testing.T) {
	tokens := blob(0, "Tom", "Boyd", "Hearts", "Tom", "Boyd", "Hearts")
	res := Infer(tokens, DefaultFirstNames())
	if len(res.Pairs) != 1 || res.Pairs[0].Offset != 0 {
		t.Errorf("pairs = %+v", res.Pairs)
	}
	if len(res.Singles) != 1 || res.Singles[0].Offset != 2 {
		t.Errorf("singles = %+v", res.Singles)
	}
}

func TestInferDeterministic(t *testing.T) {
	tokens := blob(0, "Gary", "McAllister", "Brian", "Laudrup", "Stuart", "Mark", "Hateley", "Goram")
	names := DefaultFirstNames()
	first := Infer(tokens, names)
	for i := 0; i < 20; i++ {
		if got := Infer(tokens, names); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %+v vs %+v", i, got, first)
		}
	}
}

func TestMerge(t *testing.T) {
	slots := []Token{{Text: "Celtic", Source: SourceSlot, Offset: 16}, {Text: "Hearts", Source: SourceSlot, Offset: 500}}
	blobs := blob(16, "Diamond", "Gough")
	got := Merge(slots, blobs)
	want := []string{"Celtic", "Diamond", "Gough", "Hearts"}
	if !reflect.DeepEqual(texts(got), want) {
		t.Errorf("Merge = %v, want %v", texts(got), want)
	}
}

func TestFirstNamesLoad(t *testing.T) {
	f := FirstNames{}
	n, err := f.Load(strings.NewReader("# comment\n\nANDY\n  goran \n"))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 || !f.Has("Andy") || !f.Has("Goran") {
		t.Errorf("loaded %d: %v", n, f)
	}
}

func TestCapitalize(t *testing.T) {
	tests := map[string]string{"": "", "john": "John", "JOHN": "John", "j": "J", "éric": "Éric"}
	for in, want := range tests {
		if got := Capitalize(in); got != want {
			t.Errorf("Capitalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRank(t *testing.T) {
	slots := []Token{{Text: "Celtic", Source: SourceSlot}, {Text: "diamond", Source: SourceSlot}}
	blobs := blob(0, "Diamond", "Gough", "Celtic", "Diamond", "gough", "Ally", "Celtic")
	got := Rank(slots, blobs)
	want := []NameCount{
		{Name: "Celtic", Count: 3},
		{Name: "Diamond", Count: 2},
		{Name: "Ally", Count: 1},
		{Name: "diamond", Count: 1},
		{Name: "Gough", Count: 1},
		{Name: "gough", Count: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Rank = %+v\nwant %+v", got, want)
	}
	if got := Rank(); len(got) != 0 {
		t.Errorf("Rank() = %+v", got)
	}
}

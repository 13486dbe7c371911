package recovery

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/gonkalabs/datrecover/internal/fingerprint"
	"github.com/gonkalabs/datrecover/internal/layout"
	"github.com/gonkalabs/datrecover/internal/pairing"
	"github.com/gonkalabs/datrecover/internal/solver"
)

var (
	teams = []string{"Aberdeen", "Celtic", "Dundee", "Falkirk", "Hearts", "Hibernian", "Kilmarnock", "Motherwell", "Partick", "Rangers"}

	players = []string{
		// dataset A: entities 7, 8, 9
		"John", "Diamond", "Paul", "McStay", "Ally", "McCoist", "Gary", "Mackay", "Andy",
		// dataset B: four blocks of four
		"Goram", "Brian", "Laudrup", "Mark", "Hateley", "Stuart", "McCall", "Ian",
		"Ferguson", "Dave", "Narey", "Jim", "Leighton", "Alex", "McLeish", "Tom",
	}
)

const (
	secondaryAt = 400
	blobAt      = 1000
	valuesAt    = 2000
)

func capacity(i int) int64 { return 1000 + int64(i)*37 }

// fixture lays out a small file: a slot table of team names at 0, packed
// secondary names at 400, a concatenated player blob at 1000 and a u16
// capacity table at 2000.
func fixture() ([]byte, layout.Layout) {
	buf := make([]byte, 2048)
	for i, name := range teams {
		buf[i*16] = byte(len(name))
		copy(buf[i*16+1:], name)
	}

	off := secondaryAt
	for _, s := range []string{"Aberdeen", "LEAGUE", "Brechin", "Ayr", "Clydebank", "Dumbarton"} {
		buf[off] = byte(len(s))
		copy(buf[off+1:], s)
		off += 1 + len(s)
	}

	blob := strings.Join(players, "")
	copy(buf[blobAt:], blob)

	for i := range teams {
		v := capacity(i)
		buf[valuesAt+2*i] = byte(v)
		buf[valuesAt+2*i+1] = byte(v >> 8)
	}

	l := layout.Layout{
		EntityCount: len(teams),
		SlotSize:    16,
		SlotMinRun:  8,
		BlobStart:   blobAt,
		BlobEnd:     blobAt + len(blob),
		NameRunMin:  50,
		Primary:     layout.IndexedBlocks{StartIndex: 7, Size: 3, Bias: 0},
		Secondary:   layout.DiscoveredBlocks{ScanMin: secondaryAt, ScanMax: 600, Size: 4, TokenOffset: 9},
		Columns:     []layout.Column{{Name: "cap", Offset: valuesAt, Width: 2}},
	}
	return buf, l
}

func TestRun(t *testing.T) {
	data, l := fixture()
	rep, err := Run(context.Background(), data, Inputs{
		Layout: l,
		Anchors: layout.Anchors{
			DatasetA: {
				{Key: "Aberdeen", Value: capacity(0)},
				{Key: "3", Value: capacity(3)},
				{Key: "rangers", Value: capacity(9)},
				{Key: "Nowhere", Value: 5},
			},
			DatasetB: {{Key: "Aberdeen", Value: 22000}},
		},
		Solver: SolverOptions{Enabled: true, Scales: []int{1, 10}, Top: 5, Workers: 2},
	})
	if err != nil {
		t.Fatal(err)
	}

	if rep.Fingerprint != fingerprint.File(data) || rep.Size != len(data) {
		t.Errorf("fingerprint = %s size %d", rep.Fingerprint, rep.Size)
	}
	if len(rep.Tables) != 1 || rep.Tables[0].Start != 0 || rep.Tables[0].Records != len(teams) {
		t.Fatalf("tables = %+v", rep.Tables)
	}
	if d, _ := fingerprint.Region(data, 0, 160); rep.Tables[0].Digest != d {
		t.Error("table digest does not cover the table bytes")
	}
	if !reflect.DeepEqual(rep.PrimaryNames, teams) {
		t.Errorf("primary names = %v", rep.PrimaryNames)
	}
	if !reflect.DeepEqual(rep.Tokens, players) {
		t.Errorf("tokens = %v", rep.Tokens)
	}

	t.Run("roster A", func(t *testing.T) {
		want := [][]string{{"John", "Diamond", "Paul"}, {"McStay", "Ally", "McCoist"}, {"Gary", "Mackay", "Andy"}}
		if len(rep.RosterA.Blocks) != len(want) {
			t.Fatalf("blocks = %+v", rep.RosterA.Blocks)
		}
		for i, b := range rep.RosterA.Blocks {
			if b.EntityIndex != 7+i || b.Name != teams[7+i] || !reflect.DeepEqual(b.Fields, want[i]) {
				t.Errorf("block %d = %+v", i, b)
			}
		}
	})

	t.Run("roster B", func(t *testing.T) {
		var names []string
		for _, tok := range rep.SecondaryNames {
			names = append(names, tok.Text)
		}
		if !reflect.DeepEqual(names, []string{"Aberdeen", "Brechin", "Clydebank", "Dumbarton"}) {
			t.Errorf("secondary names = %v", names)
		}
		if rep.Stats.SecondaryDropped != 2 {
			t.Errorf("dropped = %d", rep.Stats.SecondaryDropped)
		}
		if len(rep.RosterB.Blocks) != 4 {
			t.Fatalf("blocks = %+v", rep.RosterB.Blocks)
		}
		if got := rep.RosterB.Blocks[3]; got.Name != "Dumbarton" || !reflect.DeepEqual(got.Fields, []string{"Leighton", "Alex", "McLeish", "Tom"}) {
			t.Errorf("last block = %+v", got)
		}
	})

	t.Run("pairs", func(t *testing.T) {
		want := map[pairing.Pair]bool{
			{First: "John", Last: "Diamond", Source: pairing.SourceBlob, Offset: blobAt}:     true,
			{First: "Paul", Last: "McStay", Source: pairing.SourceBlob, Offset: blobAt + 11}: true,
		}
		for _, p := range rep.Names.Pairs {
			delete(want, p)
		}
		if len(want) != 0 {
			t.Errorf("missing pairs %v in %+v", want, rep.Names.Pairs)
		}
		if rep.Stats.NameRuns != 1 || rep.Stats.RunTokens != len(players) {
			t.Errorf("runs %d tokens %d", rep.Stats.NameRuns, rep.Stats.RunTokens)
		}
	})

	t.Run("name counts", func(t *testing.T) {
		if len(rep.NameCounts) == 0 || rep.NameCounts[0] != (pairing.NameCount{Name: "Aberdeen", Count: 2}) {
			t.Errorf("top name = %+v", rep.NameCounts)
		}
		// ten teams, Brechin from the secondary list, every player
		if want := len(teams) + 1 + len(players); rep.Stats.UniqueNames != want || len(rep.NameCounts) != want {
			t.Errorf("unique names = %d (%d counted), want %d", rep.Stats.UniqueNames, len(rep.NameCounts), want)
		}
	})

	t.Run("attributes", func(t *testing.T) {
		if len(rep.Attributes) != len(teams) {
			t.Fatalf("rows = %d", len(rep.Attributes))
		}
		if v := rep.Attributes[4].Values[0]; !v.OK || int64(v.Raw) != capacity(4) {
			t.Errorf("row 4 = %+v", v)
		}
	})

	t.Run("solver", func(t *testing.T) {
		if len(rep.Datasets) != 2 {
			t.Fatalf("datasets = %+v", rep.Datasets)
		}
		a, b := rep.Datasets[0], rep.Datasets[1]
		best, ok := a.Result.Best()
		if !ok || best.Kind != solver.KindU16 || best.Offset != valuesAt || best.Scale != 1 || best.MAE != 0 {
			t.Errorf("dataset A best = %+v", best)
		}
		if !reflect.DeepEqual(a.Unresolved, []string{"Nowhere"}) || rep.Stats.UnresolvedAnchors != 1 {
			t.Errorf("unresolved = %v", a.Unresolved)
		}
		if len(a.Result.Candidates) > 5 || !a.Result.Reliable() {
			t.Errorf("dataset A: %d candidates, reliable %v", len(a.Result.Candidates), a.Result.Reliable())
		}
		if b.Skipped == "" || len(b.Result.Candidates) != 0 {
			t.Errorf("dataset B ran with one anchor: %+v", b)
		}
	})
}

func TestRunSolverDisabled(t *testing.T) {
	data, l := fixture()
	rep, err := Run(context.Background(), data, Inputs{
		Layout:  l,
		Anchors: layout.Anchors{DatasetA: {{Key: "0", Value: 1}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if rep.Datasets != nil {
		t.Errorf("solver ran while disabled: %+v", rep.Datasets)
	}
}

func TestRunPadsShortTable(t *testing.T) {
	data, l := fixture()
	l.EntityCount = 12
	rep, err := Run(context.Background(), data, Inputs{Layout: l})
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.PrimaryNames) != 12 || rep.PrimaryNames[11] != "" {
		t.Errorf("primary names = %q", rep.PrimaryNames)
	}
	if rep.Stats.PrimaryNames != 10 || rep.Stats.PaddedNames != 2 {
		t.Errorf("stats = %+v", rep.Stats)
	}
}

func TestRunErrors(t *testing.T) {
	_, l := fixture()
	if _, err := Run(context.Background(), make([]byte, 10), Inputs{Layout: l}); !errors.Is(err, ErrInputTooSmall) {
		t.Errorf("tiny input: %v", err)
	}
	if _, err := Run(context.Background(), make([]byte, 4096), Inputs{Layout: l}); !errors.Is(err, ErrNoSlotTable) {
		t.Errorf("blank input: %v", err)
	}
	l.SlotSize = 0
	if _, err := Run(context.Background(), make([]byte, 4096), Inputs{Layout: l}); err == nil {
		t.Error("invalid layout accepted")
	}
}

func TestStatsFieldsCoverStruct(t *testing.T) {
	fields := Stats{}.Fields()
	if n := reflect.TypeOf(Stats{}).NumField(); len(fields) != n {
		t.Fatalf("Fields lists %d counts, Stats has %d", len(fields), n)
	}
	st := Stats{SlotDecodes: 11, ShortRuns: 3, RosterBUnassigned: 2}
	got := map[string]int{}
	for _, f := range st.Fields() {
		if _, dup := got[f.Name]; dup {
			t.Errorf("duplicate field %q", f.Name)
		}
		got[f.Name] = f.Value
	}
	if got["slot_decodes"] != 11 || got["short_runs"] != 3 || got["roster_b_unassigned"] != 2 {
		t.Errorf("fields = %v", got)
	}
}

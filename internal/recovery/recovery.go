// Package recovery runs every scanner over one input buffer and collects the
// results into a Report. It owns the order of the stages; the stages
// themselves live in their own packages and know nothing of each other.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gonkalabs/datrecover/internal/attrs"
	"github.com/gonkalabs/datrecover/internal/fingerprint"
	"github.com/gonkalabs/datrecover/internal/layout"
	"github.com/gonkalabs/datrecover/internal/pairing"
	"github.com/gonkalabs/datrecover/internal/roster"
	"github.com/gonkalabs/datrecover/internal/scan"
	"github.com/gonkalabs/datrecover/internal/segment"
	"github.com/gonkalabs/datrecover/internal/solver"
)

var (
	// ErrNoSlotTable is scan.ErrNoSlotTable; the primary entity list is
	// required for everything downstream.
	ErrNoSlotTable = scan.ErrNoSlotTable

	ErrInputTooSmall = errors.New("recovery: input cannot hold a slot table")
)

const (
	// DatasetA is the indexed primary roster, DatasetB the discovered one.
	DatasetA = "A"
	DatasetB = "B"

	// MinSecondaryNames is how many secondary entity names dataset B needs
	// before its anchors are trusted to index anything.
	MinSecondaryNames = 20

	// perSearch caps each individual search before the merge.
	perSearch = 25

	u32MinMax = 1000
)

// SolverOptions controls the numeric table search.
type SolverOptions struct {
	Enabled bool
	Pairs   bool // also try split low/high byte tables
	Scales  []int
	Top     int
	Workers int
}

// Inputs is everything a run needs besides the bytes.
type Inputs struct {
	Layout     layout.Layout
	FirstNames pairing.FirstNames // nil means pairing.DefaultFirstNames
	Anchors    layout.Anchors
	Solver     SolverOptions
}

// TableInfo describes one accepted slot table.
type TableInfo struct {
	Start   int
	End     int
	Records int
	Digest  string
}

// Dataset is the solver outcome for one entity list.
type Dataset struct {
	Name       string
	Result     solver.Result
	Unresolved []string // anchor keys that matched no entity
	Skipped    string   // why the search did not run; empty if it did
}

// Stats counts what every stage found and what it skipped.
type Stats struct {
	SlotTables   int
	SlotDecodes  int
	SlotRejected int
	ShortRuns    int

	PrimaryNames int // names read from the first table, before padding
	PaddedNames  int

	BlobBytes       int
	BlobTokens      int
	PlausibleTokens int

	RosterA        int
	RosterASkipped int

	PascalTokens     int
	SecondaryNames   int
	SecondaryDropped int

	RosterB           int
	RosterBRejected   int
	RosterBSkipped    int
	RosterBUnassigned int

	SlotNameTokens int
	NameRuns       int
	RunTokens      int
	Pairs          int
	Singles        int
	UniqueNames    int

	UnresolvedAnchors int
	Candidates        int
}

// Field is one named count from Stats.
type Field struct {
	Name  string
	Value int
}

// Fields lists every count in Stats in declaration order, named as they
// appear in logs and in the run summary.
func (s Stats) Fields() []Field {
	return []Field{
		{"slot_tables", s.SlotTables},
		{"slot_decodes", s.SlotDecodes},
		{"slot_rejected", s.SlotRejected},
		{"short_runs", s.ShortRuns},
		{"primary_names", s.PrimaryNames},
		{"padded_names", s.PaddedNames},
		{"blob_bytes", s.BlobBytes},
		{"blob_tokens", s.BlobTokens},
		{"plausible_tokens", s.PlausibleTokens},
		{"roster_a", s.RosterA},
		{"roster_a_skipped", s.RosterASkipped},
		{"pascal_tokens", s.PascalTokens},
		{"secondary_names", s.SecondaryNames},
		{"secondary_dropped", s.SecondaryDropped},
		{"roster_b", s.RosterB},
		{"roster_b_rejected", s.RosterBRejected},
		{"roster_b_skipped", s.RosterBSkipped},
		{"roster_b_unassigned", s.RosterBUnassigned},
		{"slot_name_tokens", s.SlotNameTokens},
		{"name_runs", s.NameRuns},
		{"run_tokens", s.RunTokens},
		{"pairs", s.Pairs},
		{"singles", s.Singles},
		{"unique_names", s.UniqueNames},
		{"unresolved_anchors", s.UnresolvedAnchors},
		{"candidates", s.Candidates},
	}
}

// Report is the full result of a run.
type Report struct {
	Fingerprint string
	Size        int
	Tables      []TableInfo

	PrimaryNames   []string // padded to EntityCount
	SecondaryNames []scan.Token
	Tokens         []string

	RosterA roster.Mapping
	RosterB roster.Mapping
	Names   pairing.Result

	// NameCounts ranks every name-like slot and blob token by frequency.
	NameCounts []pairing.NameCount

	Columns    []layout.Column
	Attributes []attrs.Row

	Datasets []Dataset
	Stats    Stats
}

// Run executes every stage over data. Only a missing primary entity list is
// fatal; every other stage reports empty results and counts instead.
func Run(ctx context.Context, data []byte, in Inputs) (*Report, error) {
	l := in.Layout
	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("recovery: %w", err)
	}
	if len(data) < l.SlotStart+l.SlotSize*l.SlotMinRun {
		return nil, fmt.Errorf("%w: %d bytes", ErrInputTooSmall, len(data))
	}

	rep := &Report{
		Fingerprint: fingerprint.File(data),
		Size:        len(data),
		Columns:     l.Columns,
	}
	st := &rep.Stats

	// Primary entity list.
	slots := scan.SlotTables(data, scan.SlotOptions{Size: l.SlotSize, Start: l.SlotStart, MinRun: l.SlotMinRun})
	st.SlotTables = len(slots.Tables)
	st.SlotDecodes = slots.Decodes
	st.SlotRejected = slots.Rejected
	st.ShortRuns = slots.ShortRuns
	first, err := slots.First()
	if err != nil {
		return nil, fmt.Errorf("recovery: %w", err)
	}
	for _, t := range slots.Tables {
		digest, err := fingerprint.Region(data, t.Start, t.End())
		if err != nil {
			return nil, fmt.Errorf("recovery: %w", err)
		}
		rep.Tables = append(rep.Tables, TableInfo{Start: t.Start, End: t.End(), Records: t.Len(), Digest: digest})
		slog.Debug("slot table", "start", t.Start, "end", t.End(), "records", t.Len(), "blake2b", digest)
	}
	rep.PrimaryNames = padNames(first.Names(), l.EntityCount)
	st.PrimaryNames = min(first.Len(), l.EntityCount)
	st.PaddedNames = l.EntityCount - st.PrimaryNames
	slog.Info("slot tables",
		"tables", st.SlotTables,
		"decodes", st.SlotDecodes,
		"rejected", st.SlotRejected,
		"short", st.ShortRuns,
		"first_start", first.Start,
		"names", st.PrimaryNames,
		"padded", st.PaddedNames,
	)

	// Name blob and dataset A.
	bs, be := clampWindow(l.BlobStart, l.BlobEnd, len(data))
	st.BlobBytes = be - bs
	rep.Tokens = segment.Split(scan.DecodeCP437(data[bs:be]))
	st.BlobTokens = len(rep.Tokens)
	st.PlausibleTokens = segment.CountPlausible(rep.Tokens)

	rep.RosterA = roster.Indexed(rep.Tokens, rep.PrimaryNames, roster.IndexedLayout{
		Count:      l.EntityCount,
		BlockSize:  l.Primary.Size,
		StartIndex: l.Primary.StartIndex,
		Bias:       l.Primary.Bias,
	})
	st.RosterA = len(rep.RosterA.Blocks)
	st.RosterASkipped = rep.RosterA.Skipped
	slog.Info("roster A", "tokens", st.BlobTokens, "plausible", st.PlausibleTokens, "blocks", st.RosterA, "skipped", st.RosterASkipped)

	// Secondary entity list and dataset B.
	pas := scan.PascalStrings(data, scan.PascalOptions{Start: l.Secondary.ScanMin, End: l.Secondary.ScanMax})
	st.PascalTokens = len(pas)
	var dropped int
	rep.SecondaryNames, dropped = scan.DedupNames(pas, scan.DefaultNameMinLen, scan.DefaultDenylist)
	st.SecondaryNames = len(rep.SecondaryNames)
	st.SecondaryDropped = dropped

	rep.RosterB = roster.Discovered(rep.Tokens, scan.Texts(rep.SecondaryNames), roster.DiscoveredLayout{
		BlockSize:   l.Secondary.Size,
		TokenOffset: l.Secondary.TokenOffset,
	})
	st.RosterB = len(rep.RosterB.Blocks)
	st.RosterBRejected = rep.RosterB.Rejected
	st.RosterBSkipped = rep.RosterB.Skipped
	st.RosterBUnassigned = rep.RosterB.Unassigned
	slog.Info("roster B",
		"names", st.SecondaryNames,
		"dropped", st.SecondaryDropped,
		"blocks", st.RosterB,
		"rejected", st.RosterBRejected,
		"skipped", st.RosterBSkipped,
		"unassigned", st.RosterBUnassigned,
	)

	// First/last name pairs over the whole file.
	firstNames := in.FirstNames
	if firstNames == nil {
		firstNames = pairing.DefaultFirstNames()
	}
	slotToks, blobToks := nameTokens(data, l, st)
	rep.Names = pairing.Infer(pairing.Merge(slotToks, blobToks), firstNames)
	rep.NameCounts = pairing.Rank(slotToks, blobToks)
	st.Pairs = len(rep.Names.Pairs)
	st.Singles = len(rep.Names.Singles)
	st.UniqueNames = len(rep.NameCounts)
	slog.Info("name pairs",
		"slot_tokens", st.SlotNameTokens,
		"runs", st.NameRuns,
		"blob_tokens", st.RunTokens,
		"unique", st.UniqueNames,
		"pairs", st.Pairs,
		"singles", st.Singles,
	)

	rep.Attributes = attrs.Dump(data, rep.PrimaryNames, l.Columns)

	if in.Solver.Enabled && len(in.Anchors) > 0 {
		a, err := solveDataset(ctx, data, DatasetA, rep.PrimaryNames, in.Anchors[DatasetA], in.Solver, false)
		if err != nil {
			return nil, err
		}
		b, err := solveDataset(ctx, data, DatasetB, scan.Texts(rep.SecondaryNames), in.Anchors[DatasetB], in.Solver, true)
		if err != nil {
			return nil, err
		}
		rep.Datasets = []Dataset{a, b}
		for _, d := range rep.Datasets {
			st.UnresolvedAnchors += len(d.Unresolved)
			st.Candidates += len(d.Result.Candidates)
		}
	}
	return rep, nil
}

// nameTokens collects name-like tokens from stride-aligned slots and from
// long letter runs anywhere in the file.
func nameTokens(data []byte, l layout.Layout, st *Stats) (slotToks, blobToks []pairing.Token) {
	for _, r := range scan.SlotStrings(data, l.SlotSize, l.SlotStart) {
		if segment.LikelyName(r.Text) {
			slotToks = append(slotToks, pairing.Token{Text: r.Text, Source: pairing.SourceSlot, Offset: r.Offset})
		}
	}
	runs := scan.NameRuns(data, l.NameRunMin)
	for _, run := range runs {
		for _, p := range segment.SplitAt(run.Text, run.Offset) {
			if segment.LikelyName(p.Text) {
				blobToks = append(blobToks, pairing.Token{Text: p.Text, Source: pairing.SourceBlob, Offset: p.Offset})
			}
		}
	}
	st.SlotNameTokens = len(slotToks)
	st.NameRuns = len(runs)
	st.RunTokens = len(blobToks)
	return slotToks, blobToks
}

// solveDataset resolves anchors against names and runs the u16 (scaled), u32
// and optionally split-byte searches, keeping the best of each.
func solveDataset(ctx context.Context, data []byte, name string, names []string, anchors []layout.Anchor, opts SolverOptions, strict bool) (Dataset, error) {
	d := Dataset{Name: name}
	count := len(names)
	byIndex, unresolved := layout.Resolve(anchors, names, count)
	d.Unresolved = unresolved
	if len(unresolved) > 0 {
		slog.Warn("unresolved anchors", "dataset", name, "keys", unresolved)
	}

	switch {
	case len(byIndex) == 0:
		d.Skipped = "no anchors"
	case strict && len(byIndex) < solver.MinAnchors:
		d.Skipped = fmt.Sprintf("%d anchors, need %d", len(byIndex), solver.MinAnchors)
	case strict && count < MinSecondaryNames:
		d.Skipped = fmt.Sprintf("%d names, need %d", count, MinSecondaryNames)
	}
	if d.Skipped != "" {
		slog.Info("solver skipped", "dataset", name, "reason", d.Skipped)
		return d, nil
	}

	searches := []solver.Options{
		{Count: count, Width: 2, Scales: opts.Scales, Anchors: byIndex, Limit: perSearch, Workers: opts.Workers},
		{Count: count, Width: 4, MinMax: u32MinMax, Anchors: byIndex, Limit: perSearch, Workers: opts.Workers},
	}
	var results []solver.Result
	for _, o := range searches {
		r, err := solver.Solve(ctx, data, o)
		if errors.Is(err, solver.ErrBufferTooShort) {
			slog.Debug("solver search skipped", "dataset", name, "width", o.Width, "err", err)
			continue
		}
		if err != nil {
			return d, fmt.Errorf("recovery: dataset %s: %w", name, err)
		}
		results = append(results, r)
	}
	if opts.Pairs {
		r, err := solver.SolvePairs(ctx, data, solver.PairOptions{Count: count, Anchors: byIndex, Limit: perSearch, Workers: opts.Workers})
		switch {
		case errors.Is(err, solver.ErrBufferTooShort):
		case err != nil:
			return d, fmt.Errorf("recovery: dataset %s pairs: %w", name, err)
		default:
			results = append(results, r)
		}
	}

	d.Result = solver.Merge(opts.Top, results...)
	d.Result.Anchors = len(byIndex)
	if !d.Result.Reliable() {
		slog.Warn("too few anchors, ranking is unreliable", "dataset", name, "anchors", len(byIndex), "want", solver.MinAnchors)
	}
	kv := []any{"dataset", name, "anchors", len(byIndex), "evaluated", d.Result.Evaluated, "candidates", len(d.Result.Candidates)}
	if best, ok := d.Result.Best(); ok {
		kv = append(kv, "best", best.Label(), "offset", best.Offset, "mae", best.MAE)
	}
	slog.Info("solver", kv...)
	return d, nil
}

func padNames(names []string, n int) []string {
	out := make([]string, n)
	copy(out, names)
	return out
}

func clampWindow(start, end, n int) (int, int) {
	start = max(0, min(start, n))
	end = max(start, min(end, n))
	return start, end
}

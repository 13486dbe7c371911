// Package report writes recovery results as CSV and plain text files.
package report

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gonkalabs/datrecover/internal/attrs"
	"github.com/gonkalabs/datrecover/internal/layout"
	"github.com/gonkalabs/datrecover/internal/pairing"
	"github.com/gonkalabs/datrecover/internal/recovery"
	"github.com/gonkalabs/datrecover/internal/roster"
)

// File names written by WriteAll.
const (
	AttributesFile = "team_attributes_raw.csv"
	PairsFile      = "names_pairs.csv"
	SinglesFile    = "names_singles.txt"
	CandidatesFile = "capacity_solver_candidates.csv"
	NamesFile      = "names.txt"
	NameCountsFile = "names.csv"
	SummaryFile    = "run_summary.csv"
)

// RosterFile names the roster CSV for a dataset, e.g. teamlist_A_21_squads.csv.
func RosterFile(dataset string, blockSize int) string {
	return fmt.Sprintf("teamlist_%s_%d_squads.csv", dataset, blockSize)
}

// WriteAll writes every output for rep into dir and returns the paths
// written. The candidates file is only written when the solver ran.
func WriteAll(dir string, rep *recovery.Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	type output struct {
		name  string
		write func(path string) error
	}
	outputs := []output{
		{RosterFile(recovery.DatasetA, rep.RosterA.BlockSize), func(p string) error { return Roster(p, rep.RosterA) }},
		{RosterFile(recovery.DatasetB, rep.RosterB.BlockSize), func(p string) error { return Roster(p, rep.RosterB) }},
		{AttributesFile, func(p string) error { return Attributes(p, rep.Columns, rep.Attributes) }},
		{PairsFile, func(p string) error { return Pairs(p, rep.Names.Pairs) }},
		{SinglesFile, func(p string) error { return Singles(p, rep.Names.Singles) }},
		{NamesFile, func(p string) error { return NameList(p, rep.NameCounts) }},
		{NameCountsFile, func(p string) error { return NameCounts(p, rep.NameCounts) }},
	}
	if rep.Datasets != nil {
		outputs = append(outputs, output{CandidatesFile, func(p string) error { return Candidates(p, rep.Datasets) }})
	}
	outputs = append(outputs, output{SummaryFile, func(p string) error { return Summary(p, rep) }})

	var written []string
	for _, o := range outputs {
		path := filepath.Join(dir, o.name)
		if err := o.write(path); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// Roster writes team_index, team_name, p1..pK.
func Roster(path string, m roster.Mapping) error {
	header := []string{"team_index", "team_name"}
	for i := 1; i <= m.BlockSize; i++ {
		header = append(header, "p"+strconv.Itoa(i))
	}
	rows := make([][]string, 0, len(m.Blocks))
	for _, b := range m.Blocks {
		rows = append(rows, append([]string{strconv.Itoa(b.EntityIndex), b.Name}, b.Fields...))
	}
	return writeCSV(path, header, rows)
}

// Pairs writes first, last, source, offset.
func Pairs(path string, pairs []pairing.Pair) error {
	rows := make([][]string, len(pairs))
	for i, p := range pairs {
		rows[i] = []string{p.First, p.Last, string(p.Source), strconv.Itoa(p.Offset)}
	}
	return writeCSV(path, []string{"first", "last", "source", "offset"}, rows)
}

// Singles writes one unpaired token per line, sorted case-insensitively.
func Singles(path string, singles []pairing.Token) error {
	texts := make([]string, 0, len(singles))
	seen := make(map[string]bool, len(singles))
	for _, s := range singles {
		if !seen[s.Text] {
			seen[s.Text] = true
			texts = append(texts, s.Text)
		}
	}
	sort.Slice(texts, func(i, j int) bool {
		a, b := strings.ToLower(texts[i]), strings.ToLower(texts[j])
		if a != b {
			return a < b
		}
		return texts[i] < texts[j]
	})
	return atomicWrite(path, func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		for _, t := range texts {
			bw.WriteString(t)
			bw.WriteByte('\n')
		}
		return bw.Flush()
	})
}

// NameList writes one name per line in rank order.
func NameList(path string, counts []pairing.NameCount) error {
	return atomicWrite(path, func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		for _, c := range counts {
			bw.WriteString(c.Name)
			bw.WriteByte('\n')
		}
		return bw.Flush()
	})
}

// NameCounts writes name, count in rank order.
func NameCounts(path string, counts []pairing.NameCount) error {
	rows := make([][]string, len(counts))
	for i, c := range counts {
		rows[i] = []string{c.Name, strconv.Itoa(c.Count)}
	}
	return writeCSV(path, []string{"name", "count"}, rows)
}

// Summary writes section, key, value rows describing the run: the input
// fingerprint, every accepted slot table with its BLAKE2b digest, every
// stage count and the outcome of each solver dataset.
func Summary(path string, rep *recovery.Report) error {
	rows := [][]string{
		{"input", "keccak256", rep.Fingerprint},
		{"input", "bytes", strconv.Itoa(rep.Size)},
	}
	for i, t := range rep.Tables {
		sec := "table" + strconv.Itoa(i)
		rows = append(rows,
			[]string{sec, "start", strconv.Itoa(t.Start)},
			[]string{sec, "end", strconv.Itoa(t.End)},
			[]string{sec, "records", strconv.Itoa(t.Records)},
			[]string{sec, "blake2b", t.Digest},
		)
	}
	for _, f := range rep.Stats.Fields() {
		rows = append(rows, []string{"stats", f.Name, strconv.Itoa(f.Value)})
	}
	for _, d := range rep.Datasets {
		sec := "solver_" + d.Name
		if d.Skipped != "" {
			rows = append(rows, []string{sec, "skipped", d.Skipped})
			continue
		}
		rows = append(rows,
			[]string{sec, "anchors", strconv.Itoa(d.Result.Anchors)},
			[]string{sec, "reliable", strconv.FormatBool(d.Result.Reliable())},
			[]string{sec, "evaluated", strconv.Itoa(d.Result.Evaluated)},
			[]string{sec, "rejected", strconv.Itoa(d.Result.Rejected)},
			[]string{sec, "unresolved", strings.Join(d.Unresolved, ";")},
		)
	}
	return writeCSV(path, []string{"section", "key", "value"}, rows)
}

// Candidates writes the ranked solver candidates of every dataset that ran.
func Candidates(path string, datasets []recovery.Dataset) error {
	var rows [][]string
	for _, d := range datasets {
		for _, c := range d.Result.Candidates {
			high := ""
			if c.HighOffset >= 0 {
				high = strconv.Itoa(c.HighOffset)
			}
			rows = append(rows, []string{
				d.Name,
				c.Label(),
				strconv.Itoa(c.Offset),
				high,
				strconv.Itoa(c.Scale),
				strconv.FormatFloat(c.MAE, 'f', 3, 64),
				strconv.FormatInt(c.Min, 10),
				strconv.FormatInt(c.Max, 10),
			})
		}
	}
	return writeCSV(path, []string{"dataset", "kind", "offset", "high_offset", "scale", "mae", "min", "max"}, rows)
}

// Attributes writes team_index, team_name and one column per layout column.
// Cells past the end of the file are left empty.
func Attributes(path string, cols []layout.Column, rows []attrs.Row) error {
	header := append([]string{"team_index", "team_name"}, attrs.Header(cols)...)
	out := make([][]string, len(rows))
	for i, r := range rows {
		rec := []string{strconv.Itoa(r.Index), r.Name}
		for j, c := range cols {
			rec = append(rec, attrs.Format(c, r.Values[j]))
		}
		out[i] = rec
	}
	return writeCSV(path, header, out)
}

func writeCSV(path string, header []string, rows [][]string) error {
	return atomicWrite(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return err
		}
		if err := cw.WriteAll(rows); err != nil {
			return err
		}
		return cw.Error()
	})
}

// atomicWrite writes to a temp file in the target directory and renames it
// over path, so a failed run never leaves a truncated report behind.
func atomicWrite(path string, fill func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := fill(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("report: close %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

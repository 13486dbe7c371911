package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gonkalabs/datrecover/internal/config"
	"github.com/gonkalabs/datrecover/internal/layout"
	"github.com/gonkalabs/datrecover/internal/pairing"
	"github.com/gonkalabs/datrecover/internal/recovery"
	"github.com/gonkalabs/datrecover/internal/report"
	"github.com/gonkalabs/datrecover/internal/source"
)

const (
	exitError   = 1
	exitNoTable = 2
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(exitError)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	input := cfg.Input
	if len(os.Args) > 1 {
		input = os.Args[1]
	}
	if input == "" {
		fmt.Fprintf(os.Stderr, "usage: %s <file.DAT>   (or set DAT_INPUT)\n", filepath.Base(os.Args[0]))
		os.Exit(exitError)
	}

	// SIGINT/SIGTERM cancel a running solver search.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, cfg, input)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Cfg, input string) int {
	data, err := source.Load(input, cfg.MaxInput)
	if err != nil {
		slog.Error("input error", "err", err)
		return exitError
	}
	slog.Info("input loaded", "path", input, "bytes", len(data))

	names := pairing.DefaultFirstNames()
	if cfg.FirstNamesPath != "" {
		f, err := os.Open(cfg.FirstNamesPath)
		if err != nil {
			slog.Error("first names error", "err", err)
			return exitError
		}
		n, err := names.Load(f)
		f.Close()
		if err != nil {
			slog.Error("first names error", "path", cfg.FirstNamesPath, "err", err)
			return exitError
		}
		slog.Info("first names loaded", "path", cfg.FirstNamesPath, "added", n, "total", len(names))
	}

	var anchors layout.Anchors
	if cfg.AnchorsPath != "" {
		anchors, err = config.LoadAnchors(cfg.AnchorsPath)
		if err != nil {
			slog.Error("anchors error", "err", err)
			return exitError
		}
		slog.Info("anchors loaded", "path", cfg.AnchorsPath, "datasets", len(anchors))
	}

	rep, err := recovery.Run(ctx, data, recovery.Inputs{
		Layout:     cfg.Layout,
		FirstNames: names,
		Anchors:    anchors,
		Solver: recovery.SolverOptions{
			Enabled: cfg.Solve,
			Pairs:   cfg.SolvePairs,
			Scales:  cfg.Scales,
			Top:     cfg.SolverTop,
			Workers: cfg.Workers,
		},
	})
	if errors.Is(err, recovery.ErrNoSlotTable) {
		slog.Error("no 16-byte slot string table found", "path", input)
		return exitNoTable
	}
	if err != nil {
		slog.Error("recovery failed", "err", err)
		return exitError
	}

	outDir := cfg.OutputDir
	if outDir == "" {
		outDir = filepath.Dir(input)
	}
	paths, err := report.WriteAll(outDir, rep)
	for _, p := range paths {
		slog.Info("wrote", "path", p)
	}
	if err != nil {
		slog.Error("report error", "err", err)
		return exitError
	}

	for i, t := range rep.Tables {
		slog.Info("table", "index", i, "start", t.Start, "end", t.End, "records", t.Records, "blake2b", t.Digest)
	}
	fields := rep.Stats.Fields()
	kv := make([]any, 0, 2*len(fields))
	for _, f := range fields {
		kv = append(kv, f.Name, f.Value)
	}
	slog.Info("summary", kv...)

	st := rep.Stats
	slog.Info("done",
		"fingerprint", rep.Fingerprint,
		"teams", st.PrimaryNames,
		"roster_a", st.RosterA,
		"roster_b", st.RosterB,
		"pairs", st.Pairs,
		"singles", st.Singles,
		"candidates", st.Candidates,
	)
	return 0
}

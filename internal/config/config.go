package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"

	"github.com/gonkalabs/datrecover/internal/layout"
	"github.com/gonkalabs/datrecover/internal/source"
)

// Cfg holds all runtime configuration loaded from environment variables.
type Cfg struct {
	// Input is the data file to recover (DAT_INPUT). The command line
	// argument, when given, takes precedence.
	Input     string
	OutputDir string // DAT_OUTPUT_DIR; empty means the input file's directory
	LogLevel  slog.Level

	// Layout carries every empirically derived offset. Defaults match
	// SCOT-94.DAT; each field can be overridden individually.
	Layout layout.Layout

	FirstNamesPath string // DAT_FIRSTNAMES, extra first names one per line
	AnchorsPath    string // DAT_ANCHORS, INI file with [A] and [B] sections

	// Solver
	Solve      bool  // DAT_SOLVE, default true; needs anchors to do anything
	SolvePairs bool  // DAT_SOLVE_PAIRS enables the split low/high byte search
	Scales     []int // DAT_SOLVER_SCALES
	SolverTop  int   // DAT_SOLVER_TOP
	Workers    int   // DAT_SOLVER_WORKERS, 0 = GOMAXPROCS

	MaxInput int64 // DAT_MAX_INPUT in bytes
}

var defaultScales = []int{1, 2, 4, 5, 10, 20, 25, 50, 100}

// Load reads .env (if present) then environment variables and returns Cfg.
func Load() (*Cfg, error) {
	// Best-effort: load .env from current directory
	_ = godotenv.Load()

	level, err := ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return nil, err
	}

	l := layout.Default()
	ints := []struct {
		env string
		dst *int
	}{
		{"DAT_ENTITY_COUNT", &l.EntityCount},
		{"DAT_SLOT_SIZE", &l.SlotSize},
		{"DAT_SLOT_START", &l.SlotStart},
		{"DAT_SLOT_MIN_RUN", &l.SlotMinRun},
		{"DAT_BLOB_START", &l.BlobStart},
		{"DAT_BLOB_END", &l.BlobEnd},
		{"DAT_A_START_INDEX", &l.Primary.StartIndex},
		{"DAT_A_BLOCK", &l.Primary.Size},
		{"DAT_A_BIAS", &l.Primary.Bias},
		{"DAT_B_SCAN_MIN", &l.Secondary.ScanMin},
		{"DAT_B_SCAN_MAX", &l.Secondary.ScanMax},
		{"DAT_B_BLOCK", &l.Secondary.Size},
		{"DAT_B_OFFSET", &l.Secondary.TokenOffset},
		{"DAT_NAME_RUN_MIN", &l.NameRunMin},
	}
	for _, f := range ints {
		if err := envInt(f.env, f.dst); err != nil {
			return nil, err
		}
	}
	if raw := strings.TrimSpace(os.Getenv("DAT_ATTR_COLUMNS")); raw != "" {
		cols, err := layout.ParseColumns(raw)
		if err != nil {
			return nil, fmt.Errorf("DAT_ATTR_COLUMNS: %w", err)
		}
		l.Columns = cols
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}

	scales := append([]int(nil), defaultScales...)
	if raw := strings.TrimSpace(os.Getenv("DAT_SOLVER_SCALES")); raw != "" {
		if scales, err = parseScales(raw); err != nil {
			return nil, err
		}
	}

	top := 20
	if err := envInt("DAT_SOLVER_TOP", &top); err != nil {
		return nil, err
	}
	workers := 0
	if err := envInt("DAT_SOLVER_WORKERS", &workers); err != nil {
		return nil, err
	}
	if top < 0 || workers < 0 {
		return nil, fmt.Errorf("DAT_SOLVER_TOP and DAT_SOLVER_WORKERS must not be negative")
	}

	maxInput := int64(source.DefaultMaxSize)
	if raw := strings.TrimSpace(os.Getenv("DAT_MAX_INPUT")); raw != "" {
		n, err := strconv.ParseInt(raw, 0, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("DAT_MAX_INPUT: want a positive byte count, got %q", raw)
		}
		maxInput = n
	}

	solve := true
	if raw := strings.TrimSpace(os.Getenv("DAT_SOLVE")); raw != "" {
		solve = envBool(raw)
	}

	return &Cfg{
		Input:          strings.TrimSpace(os.Getenv("DAT_INPUT")),
		OutputDir:      strings.TrimSpace(os.Getenv("DAT_OUTPUT_DIR")),
		LogLevel:       level,
		Layout:         l,
		FirstNamesPath: strings.TrimSpace(os.Getenv("DAT_FIRSTNAMES")),
		AnchorsPath:    strings.TrimSpace(os.Getenv("DAT_ANCHORS")),
		Solve:          solve,
		SolvePairs:     envBool(os.Getenv("DAT_SOLVE_PAIRS")),
		Scales:         scales,
		SolverTop:      top,
		Workers:        workers,
		MaxInput:       maxInput,
	}, nil
}

// ParseLevel maps debug|info|warn|error to a slog level. Empty means info.
func ParseLevel(raw string) (slog.Level, error) {
	var l slog.Level
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(raw)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return l, nil
}

// LoadAnchors reads an INI anchors file. Each section names a dataset
// ("A", "B"); each key is an entity index or entity name and each value the
// known integer for that entity:
//
//	[A]
//	0        = 22500
//	Aberdeen = 21421
//
// Section names are upper-cased so [a] and [A] are the same dataset.
func LoadAnchors(path string) (layout.Anchors, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("anchors: %w", err)
	}
	out := layout.Anchors{}
	for _, sec := range f.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}
		name := strings.ToUpper(strings.TrimSpace(sec.Name()))
		for _, k := range sec.Keys() {
			v, err := strconv.ParseInt(strings.TrimSpace(k.Value()), 0, 64)
			if err != nil {
				return nil, fmt.Errorf("anchors: [%s] %s: %w", sec.Name(), k.Name(), err)
			}
			out[name] = append(out[name], layout.Anchor{Key: k.Name(), Value: v})
		}
	}
	return out, nil
}

// envInt overwrites *dst when env is set. Values accept any Go integer
// literal so offsets can be given in hex.
func envInt(env string, dst *int) error {
	raw := strings.TrimSpace(os.Getenv(env))
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseInt(raw, 0, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", env, err)
	}
	*dst = int(n)
	return nil
}

func envBool(raw string) bool {
	raw = strings.TrimSpace(raw)
	return raw == "1" || strings.EqualFold(raw, "true")
}

// parseScales parses "1,10,100" into positive multipliers.
func parseScales(raw string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("DAT_SOLVER_SCALES: bad scale %q", part)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("DAT_SOLVER_SCALES is set but contains no scales")
	}
	return out, nil
}

package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/theimaginaryfoundation/reflect-o-bot/analysis"
	"github.com/theimaginaryfoundation/reflect-o-bot/analysis/fileutils"
	"github.com/theimaginaryfoundation/reflect-o-bot/analysis/store"
	"go.uber.org/zap"
)

// universalReply satisfies every entry schema at once; unknown keys are dropped by the
// validators and "language" answers detection.
const universalReply = `{"emotions":[{"name":"müde","intensity":0.5}],"themes":["Arbeit"],` +
	`"pillar_weights":{"geist":0.2,"herz":0.2,"seele":0.2,"koerper":0.2,"aura":0.2},` +
	`"pillar_scores":{"geist":4,"herz":5,"seele":5,"koerper":3,"aura":6},` +
	`"signals":{"keywords":["müde"],"phrases":[],"triggers":[]},` +
	`"reflection":"Ein langer Tag.","recommendations":{"daily":["Früh schlafen"],"weekly":[]},` +
	`"rationale_summary":"Müdigkeit.","risk_flags":{},"language":"de"}`

func TestParseFlags_Overrides(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("entry-analyzer", flag.ContinueOnError)
	cfg, err := parseFlags(fs, []string{
		"-in", "data/entries/",
		"-out", "data/out",
		"-provider", "Gemini",
		"-language", "en",
		"-concurrency", "2",
		"-timeout", "30s",
		"-rps", "1.5",
		"-db", "data/app.db",
		"-sequential",
		"-pretty",
		"-overwrite",
		"-resume=false",
		"-max-entries", "3",
	})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.InPath != filepath.Clean("data/entries") || cfg.OutDir != filepath.Clean("data/out") {
		t.Fatalf("InPath=%q OutDir=%q", cfg.InPath, cfg.OutDir)
	}
	if cfg.Provider != "gemini" || cfg.Language != "en" {
		t.Fatalf("Provider=%q Language=%q", cfg.Provider, cfg.Language)
	}
	if cfg.Concurrency != 2 || cfg.CallTimeout != 30*time.Second || cfg.RPS != 1.5 || cfg.MaxEntries != 3 {
		t.Fatalf("cfg=%+v", cfg)
	}
	if !cfg.Sequential || !cfg.Pretty || !cfg.Overwrite || cfg.Resume {
		t.Fatalf("bools: %+v", cfg)
	}
	if cfg.DBPath != filepath.Clean("data/app.db") {
		t.Fatalf("DBPath=%q", cfg.DBPath)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	bad := []func(*Config){
		func(c *Config) { c.InPath = "" },
		func(c *Config) { c.Language = "fr" },
		func(c *Config) { c.Provider = "anthropic" },
		func(c *Config) { c.Concurrency = -1 },
		func(c *Config) { c.MaxOutputTokens = 0 },
	}
	for i, mutate := range bad {
		cfg := defaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
	if err := defaultConfig().Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}
}

func TestAnalysisOutPath(t *testing.T) {
	t.Parallel()

	in := t.TempDir()
	got := analysisOutPath(in, "out", filepath.Join(in, "2026", "10", "entry.json"))
	want := filepath.Join("out", "2026", "10", "entry.analysis.json")
	if got != want {
		t.Fatalf("got=%q want=%q", got, want)
	}
}

func writeEntry(t *testing.T, path string, e analysis.JournalEntry) {
	t.Helper()
	if err := fileutils.WriteJSONFileAtomic(path, e, false); err != nil {
		t.Fatalf("write entry: %v", err)
	}
}

func TestRun_WritesAnalysesAndResumes(t *testing.T) {
	t.Parallel()

	in := t.TempDir()
	out := t.TempDir()
	at := time.Date(2026, 10, 15, 20, 0, 0, 0, time.UTC)
	writeEntry(t, filepath.Join(in, "a.json"), analysis.JournalEntry{ID: "a", Text: "Viel Arbeit.", MoodScore: 4, EnergyScore: 3, CreatedAt: at})
	writeEntry(t, filepath.Join(in, "week", "b.json"), analysis.JournalEntry{Text: "Ruhiger Abend.", MoodScore: 7, EnergyScore: 6, CreatedAt: at.Add(24 * time.Hour)})
	if err := os.WriteFile(filepath.Join(in, "stale.analysis.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int64
	gen := analysis.GeneratorFunc(func(ctx context.Context, system, user string) (string, error) {
		calls.Add(1)
		return universalReply, nil
	})

	cfg := defaultConfig()
	cfg.InPath, cfg.OutDir = in, out
	cfg.DBPath = filepath.Join(t.TempDir(), "reflect.db")

	stats, err := run(t.Context(), cfg, gen, zap.NewNop(), prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.analyzed != 2 || stats.skipped != 0 || stats.failed != 0 {
		t.Fatalf("stats=%+v", stats)
	}

	var rec analysisRecord
	if err := fileutils.ReadJSONFile(filepath.Join(out, "week", "b.analysis.json"), &rec); err != nil {
		t.Fatalf("read output: %v", err)
	}
	if rec.EntryID == "" || rec.State != "structured" || rec.Language != analysis.LanguageDE {
		t.Fatalf("rec=%+v", rec)
	}
	if rec.Analysis.Reflection != "Ein langer Tag." || rec.Analysis.PillarScores.Koerper != 3 {
		t.Fatalf("analysis=%+v", rec.Analysis)
	}

	db, err := store.OpenSQLite(t.Context(), cfg.DBPath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer db.Close()
	stored, ok, err := db.GetAnalysis(t.Context(), "a")
	if err != nil || !ok {
		t.Fatalf("GetAnalysis ok=%v err=%v", ok, err)
	}
	if stored.State != "structured" || stored.Result.Themes[0] != "Arbeit" {
		t.Fatalf("stored=%+v", stored)
	}

	before := calls.Load()
	stats, err = run(t.Context(), cfg, gen, zap.NewNop(), prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if stats.analyzed != 0 || stats.skipped != 2 || calls.Load() != before {
		t.Fatalf("resume should skip everything, stats=%+v calls=%d", stats, calls.Load()-before)
	}
}

func TestRun_StableIDsForEntriesWithoutID(t *testing.T) {
	t.Parallel()

	in := t.TempDir()
	path := filepath.Join(in, "x.json")
	writeEntry(t, path, analysis.JournalEntry{Text: "hello", CreatedAt: time.Now()})

	a, err := readEntryFile(in, path)
	if err != nil {
		t.Fatalf("readEntryFile: %v", err)
	}
	b, err := readEntryFile(in, path)
	if err != nil {
		t.Fatalf("readEntryFile: %v", err)
	}
	if a.ID == "" || a.ID != b.ID {
		t.Fatalf("ids %q vs %q", a.ID, b.ID)
	}
}

func TestRun_FailingGeneratorStillWritesStaticDefault(t *testing.T) {
	t.Parallel()

	in := t.TempDir()
	out := t.TempDir()
	writeEntry(t, filepath.Join(in, "a.json"), analysis.JournalEntry{ID: "a", Text: "Hi.", Language: analysis.LanguageEN, CreatedAt: time.Now()})

	gen := analysis.GeneratorFunc(func(ctx context.Context, system, user string) (string, error) {
		return "", errors.New("provider down")
	})
	cfg := defaultConfig()
	cfg.InPath, cfg.OutDir = in, out

	stats, err := run(t.Context(), cfg, gen, zap.NewNop(), prometheus.NewRegistry())
	if err != nil || stats.analyzed != 1 {
		t.Fatalf("stats=%+v err=%v", stats, err)
	}
	var rec analysisRecord
	if err := fileutils.ReadJSONFile(filepath.Join(out, "a.analysis.json"), &rec); err != nil {
		t.Fatalf("read output: %v", err)
	}
	if rec.State != "static_default" || rec.Analysis.Reflection != analysis.StaticDefault(analysis.LanguageEN).Reflection {
		t.Fatalf("rec=%+v", rec)
	}
}

func TestRun_NoEntries(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.InPath, cfg.OutDir = t.TempDir(), t.TempDir()
	gen := analysis.GeneratorFunc(func(ctx context.Context, system, user string) (string, error) {
		return universalReply, nil
	})
	if _, err := run(t.Context(), cfg, gen, zap.NewNop(), prometheus.NewRegistry()); err == nil {
		t.Fatalf("expected error for empty input dir")
	}
}

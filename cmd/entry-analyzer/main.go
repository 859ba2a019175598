package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/theimaginaryfoundation/reflect-o-bot/analysis"
	"github.com/theimaginaryfoundation/reflect-o-bot/analysis/fileutils"
	"github.com/theimaginaryfoundation/reflect-o-bot/analysis/provider"
	"github.com/theimaginaryfoundation/reflect-o-bot/analysis/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const analysisSuffix = ".analysis.json"

// entryNamespace derives stable ids for entry files that carry none.
var entryNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/theimaginaryfoundation/reflect-o-bot/entries"))

func main() {
	_ = godotenv.Load()

	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(cfg.providerConfig().APIKeyEnv())
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen, err := provider.New(ctx, cfg.providerConfig())
	if err != nil {
		logger.Error("build generator", zap.Error(err))
		os.Exit(2)
	}

	reg := prometheus.NewRegistry()
	stats, err := run(ctx, cfg, gen, logger, reg)
	logger.Info("entry analysis finished",
		zap.Int64("analyzed", stats.analyzed),
		zap.Int64("skipped", stats.skipped),
		zap.Int64("failed", stats.failed),
	)
	if cfg.MetricsFile != "" {
		if werr := prometheus.WriteToTextfile(cfg.MetricsFile, reg); werr != nil {
			logger.Warn("write metrics file", zap.Error(werr))
		}
	}
	if err != nil {
		logger.Error("entry analysis failed", zap.Error(err))
		os.Exit(1)
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.InPath, "in", cfg.InPath, "Path to a journal entry JSON file OR a directory of entry JSON files (recursively)")
	fs.StringVar(&cfg.OutDir, "out", cfg.OutDir, "Output directory for <entry>.analysis.json files")
	fs.StringVar(&cfg.DBPath, "db", "", "Optional SQLite database to upsert analyses into")
	fs.StringVar(&cfg.IndexPath, "index", "", "Path to rebuild the JSONL index of analyses (default: <out>/index.jsonl)")
	fs.BoolVar(&cfg.NoIndex, "no-index", false, "Skip rebuilding the index after the run")
	fs.StringVar(&cfg.Provider, "provider", cfg.Provider, "Generator backend: groq, openai or gemini")
	fs.StringVar(&cfg.Model, "model", "", "Model override (default depends on -provider)")
	fs.StringVar(&cfg.BaseURL, "base-url", "", "OpenAI-compatible base URL override")
	fs.StringVar(&cfg.APIKey, "api-key", "", "API key (overrides GROQ_API_KEY / OPENAI_API_KEY / GEMINI_API_KEY)")
	fs.Float64Var(&cfg.Temperature, "temperature", cfg.Temperature, "Sampling temperature")
	fs.IntVar(&cfg.MaxOutputTokens, "max-output-tokens", cfg.MaxOutputTokens, "Output token cap per call")
	fs.Float64Var(&cfg.RPS, "rps", 0, "Max generator requests per second (0 = unlimited)")
	fs.DurationVar(&cfg.CallTimeout, "timeout", cfg.CallTimeout, "Timeout per generator call")
	fs.StringVar(&cfg.Language, "language", cfg.Language, "Default output language for entries without a supported language (de or en)")
	fs.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Max entries analyzed concurrently")
	fs.BoolVar(&cfg.Sequential, "sequential", false, "Run the two analysis sub-tasks one after the other")
	fs.IntVar(&cfg.MaxEntries, "max-entries", 0, "Process only the first N entries (0 = all)")
	fs.BoolVar(&cfg.Pretty, "pretty", false, "Pretty-print analysis JSON files")
	fs.BoolVar(&cfg.Overwrite, "overwrite", false, "Re-analyze and overwrite existing analysis files")
	fs.BoolVar(&cfg.Resume, "resume", cfg.Resume, "Skip entries that already have an analysis file")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.MetricsFile, "metrics-file", "", "Optional path to write Prometheus metrics in text format at exit")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.InPath = filepath.Clean(cfg.InPath)
	cfg.OutDir = filepath.Clean(cfg.OutDir)
	if cfg.DBPath != "" {
		cfg.DBPath = filepath.Clean(cfg.DBPath)
	}
	if cfg.IndexPath == "" {
		cfg.IndexPath = filepath.Join(cfg.OutDir, "index.jsonl")
	}
	cfg.IndexPath = filepath.Clean(cfg.IndexPath)
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	return cfg, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("-log-level: %w", err)
	}
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(lvl)
	return config.Build()
}

// analysisRecord is the on-disk form of one entry's analysis.
type analysisRecord struct {
	EntryID   string                  `json:"entry_id"`
	CreatedAt time.Time               `json:"created_at"`
	Language  analysis.Language       `json:"language"`
	State     string                  `json:"state"`
	Detected  analysis.Language       `json:"detected_language"`
	Analysis  analysis.AnalysisResult `json:"analysis"`
}

type entryFile struct {
	path  string
	entry analysis.JournalEntry
}

type runStats struct {
	analyzed int64
	skipped  int64
	failed   int64
}

func run(ctx context.Context, cfg Config, gen analysis.Generator, logger *zap.Logger, reg prometheus.Registerer) (runStats, error) {
	var stats runStats

	files, err := collectEntryFiles(cfg.InPath)
	if err != nil {
		return stats, err
	}
	if len(files) == 0 {
		return stats, errors.New("no entry .json files found")
	}

	entries := make([]entryFile, 0, len(files))
	history := make([]analysis.JournalEntry, 0, len(files))
	for _, path := range files {
		e, err := readEntryFile(cfg.InPath, path)
		if err != nil {
			logger.Warn("skipping unreadable entry", zap.String("path", path), zap.Error(err))
			stats.failed++
			continue
		}
		entries = append(entries, entryFile{path: path, entry: e})
		history = append(history, e)
	}
	if cfg.MaxEntries > 0 && len(entries) > cfg.MaxEntries {
		entries = entries[:cfg.MaxEntries]
	}

	var db *store.SQLite
	if cfg.DBPath != "" {
		db, err = store.OpenSQLite(ctx, cfg.DBPath)
		if err != nil {
			return stats, err
		}
		defer func() { _ = db.Close() }()
	}

	defaultLang, _ := analysis.ParseLanguage(cfg.Language)
	analyzer, err := analysis.NewAnalyzer(gen, analysis.Options{
		Logger:             logger,
		Metrics:            analysis.NewMetrics(reg),
		CallTimeout:        cfg.CallTimeout,
		SequentialSubtasks: cfg.Sequential,
		DefaultLanguage:    defaultLang,
	})
	if err != nil {
		return stats, err
	}

	concurrency := cfg.Concurrency
	if concurrency == 0 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	errCh := make(chan error, len(entries))
	var analyzed, skipped, failed atomic.Int64

	wg := sync.WaitGroup{}
	for _, ef := range entries {
		wg.Add(1)
		go func(ef entryFile) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			default:
			}

			outPath := analysisOutPath(cfg.InPath, cfg.OutDir, ef.path)
			if cfg.Resume && !cfg.Overwrite && fileutils.FileExists(outPath) {
				skipped.Add(1)
				return
			}

			result, out := analyzer.AnalyzeWithOutcome(ctx, ef.entry.Request(history, defaultLang))
			if err := ctx.Err(); err != nil {
				// A cancelled run yields placeholders; keep them off disk.
				errCh <- err
				return
			}

			rec := analysisRecord{
				EntryID:   ef.entry.ID,
				CreatedAt: ef.entry.CreatedAt,
				Language:  out.Language,
				State:     out.State.String(),
				Detected:  out.Detected,
				Analysis:  result,
			}
			if _, err := fileutils.WriteJSONFileIfAbsent(outPath, rec, cfg.Pretty, cfg.Overwrite); err != nil {
				failed.Add(1)
				errCh <- fmt.Errorf("write %s: %w", outPath, err)
				return
			}
			if db != nil {
				if err := db.UpsertAnalysis(ctx, ef.entry.ID, out.Language, out.State, result); err != nil {
					failed.Add(1)
					errCh <- fmt.Errorf("store %s: %w", ef.entry.ID, err)
					return
				}
			}
			analyzed.Add(1)
			logger.Debug("entry analyzed",
				zap.String("entry_id", ef.entry.ID),
				zap.Stringer("state", out.State),
				zap.String("out", outPath),
			)
		}(ef)
	}
	wg.Wait()
	close(errCh)

	stats.analyzed = analyzed.Load()
	stats.skipped = skipped.Load()
	stats.failed += failed.Load()

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	if !cfg.NoIndex && cfg.IndexPath != "" && ctx.Err() == nil {
		n, err := rebuildIndex(cfg.OutDir, cfg.IndexPath, logger)
		if err != nil {
			errs = append(errs, err)
		} else {
			logger.Info("index rebuilt", zap.String("path", cfg.IndexPath), zap.Int("rows", n))
		}
	}
	return stats, errors.Join(errs...)
}

// readEntryFile decodes one journal entry. Entries without an id get one derived from their
// path relative to root, so reruns keep the same id.
func readEntryFile(root, path string) (analysis.JournalEntry, error) {
	var e analysis.JournalEntry
	if err := fileutils.ReadJSONFile(path, &e); err != nil {
		return analysis.JournalEntry{}, err
	}
	if strings.TrimSpace(e.Text) == "" {
		return analysis.JournalEntry{}, fmt.Errorf("%s: entry text is empty", path)
	}
	if e.ID == "" {
		e.ID = uuid.NewSHA1(entryNamespace, []byte(filepath.ToSlash(relPath(root, path)))).String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = fileutils.ModTimeUTC(path)
	}
	return e, nil
}

func relPath(root, path string) string {
	if fi, err := os.Stat(root); err == nil && fi.IsDir() {
		if r, err := filepath.Rel(root, path); err == nil {
			return r
		}
	}
	return filepath.Base(path)
}

func analysisOutPath(inRoot, outRoot, entryPath string) string {
	rel := relPath(inRoot, entryPath)
	rel = strings.TrimSuffix(rel, filepath.Ext(rel)) + analysisSuffix
	return filepath.Join(outRoot, rel)
}

func collectEntryFiles(inPath string) ([]string, error) {
	fi, err := os.Stat(inPath)
	if err != nil {
		return nil, fmt.Errorf("stat -in: %w", err)
	}
	if !fi.IsDir() {
		if strings.ToLower(filepath.Ext(inPath)) != ".json" {
			return nil, fmt.Errorf("input file must be .json: %s", inPath)
		}
		return []string{inPath}, nil
	}

	var files []string
	err = filepath.WalkDir(inPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != inPath && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		lower := strings.ToLower(path)
		if filepath.Ext(lower) != ".json" || strings.HasSuffix(lower, analysisSuffix) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk input dir: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
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

var (
	// entryNamespace must match the entry-analyzer's so derived entry ids line up.
	entryNamespace  = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/theimaginaryfoundation/reflect-o-bot/entries"))
	reportNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/theimaginaryfoundation/reflect-o-bot/weekly-reports"))
)

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
	outPath, err := run(ctx, cfg, gen, time.Now(), logger, reg)
	if cfg.MetricsFile != "" {
		if werr := prometheus.WriteToTextfile(cfg.MetricsFile, reg); werr != nil {
			logger.Warn("write metrics file", zap.Error(werr))
		}
	}
	if err != nil {
		logger.Error("weekly report failed", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("weekly report written", zap.String("out", outPath))
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.EntriesDir, "entries", cfg.EntriesDir, "Directory of journal entry JSON files (recursively)")
	fs.StringVar(&cfg.AnalysesDir, "analyses", cfg.AnalysesDir, "Directory of <entry>.analysis.json files written by entry-analyzer")
	fs.StringVar(&cfg.OutPath, "out", "", "Output path for the report (default: <analyses>/weekly/<end>.<language>.json)")
	fs.StringVar(&cfg.DBPath, "db", "", "Optional SQLite database to upsert the report into")
	fs.StringVar(&cfg.ReportID, "report-id", "", "Report id (default: derived from window end and language)")
	fs.StringVar(&cfg.End, "end", "", "Last day of the 7-day window, YYYY-MM-DD (default: today)")
	fs.StringVar(&cfg.Language, "language", cfg.Language, "Report language (de or en)")
	fs.StringVar(&cfg.Provider, "provider", cfg.Provider, "Generator backend: groq, openai or gemini")
	fs.StringVar(&cfg.Model, "model", "", "Model override (default depends on -provider)")
	fs.StringVar(&cfg.BaseURL, "base-url", "", "OpenAI-compatible base URL override")
	fs.StringVar(&cfg.APIKey, "api-key", "", "API key (overrides GROQ_API_KEY / OPENAI_API_KEY / GEMINI_API_KEY)")
	fs.Float64Var(&cfg.Temperature, "temperature", cfg.Temperature, "Sampling temperature")
	fs.IntVar(&cfg.MaxOutputTokens, "max-output-tokens", cfg.MaxOutputTokens, "Output token cap per call")
	fs.Float64Var(&cfg.RPS, "rps", 0, "Max generator requests per second (0 = unlimited)")
	fs.DurationVar(&cfg.CallTimeout, "timeout", cfg.CallTimeout, "Timeout per generator call")
	fs.BoolVar(&cfg.Pretty, "pretty", false, "Pretty-print the report JSON")
	fs.BoolVar(&cfg.Overwrite, "overwrite", false, "Overwrite an existing report file")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.MetricsFile, "metrics-file", "", "Optional path to write Prometheus metrics in text format at exit")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.EntriesDir = filepath.Clean(cfg.EntriesDir)
	cfg.AnalysesDir = filepath.Clean(cfg.AnalysesDir)
	if cfg.OutPath != "" {
		cfg.OutPath = filepath.Clean(cfg.OutPath)
	}
	if cfg.DBPath != "" {
		cfg.DBPath = filepath.Clean(cfg.DBPath)
	}
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

// weeklyRecord is the on-disk form of a weekly report.
type weeklyRecord struct {
	ReportID  string                      `json:"report_id"`
	WeekStart string                      `json:"week_start"`
	WeekEnd   string                      `json:"week_end"`
	Language  analysis.Language           `json:"language"`
	Entries   int                         `json:"entries"`
	Report    analysis.WeeklyReportResult `json:"report"`
}

// storedAnalysis is the subset of an entry-analyzer output file the report needs.
type storedAnalysis struct {
	EntryID   string    `json:"entry_id"`
	CreatedAt time.Time `json:"created_at"`
	Analysis  struct {
		PillarScores analysis.PillarScores `json:"pillar_scores"`
		Themes       []string              `json:"themes"`
	} `json:"analysis"`
}

func run(ctx context.Context, cfg Config, gen analysis.Generator, now time.Time, logger *zap.Logger, reg prometheus.Registerer) (string, error) {
	lang, _ := analysis.ParseLanguage(cfg.Language)
	window := cfg.window(now, time.Local)

	entries, err := loadEntryStats(cfg.EntriesDir, window, logger)
	if err != nil {
		return "", err
	}
	analyses, err := loadAnalysisSummaries(cfg.AnalysesDir, window, logger)
	if err != nil {
		return "", err
	}
	logger.Info("computing weekly report",
		zap.String("start", window.Start.Format(time.DateOnly)),
		zap.String("end", window.End.Format(time.DateOnly)),
		zap.Int("entries", len(entries)),
		zap.Int("analyses", len(analyses)),
	)

	analyzer, err := analysis.NewAnalyzer(gen, analysis.Options{
		Logger:          logger,
		Metrics:         analysis.NewMetrics(reg),
		CallTimeout:     cfg.CallTimeout,
		DefaultLanguage: lang,
	})
	if err != nil {
		return "", err
	}
	report := analyzer.ComputeWeeklyReport(ctx, window, entries, analyses, lang)
	if err := ctx.Err(); err != nil {
		return "", err
	}

	reportID := cfg.ReportID
	if reportID == "" {
		reportID = uuid.NewSHA1(reportNamespace, []byte(window.End.Format(time.DateOnly)+"/"+string(lang))).String()
	}
	outPath := cfg.OutPath
	if outPath == "" {
		outPath = filepath.Join(cfg.AnalysesDir, "weekly", fmt.Sprintf("%s.%s.json", window.End.Format(time.DateOnly), lang))
	}

	rec := weeklyRecord{
		ReportID:  reportID,
		WeekStart: window.Start.Format(time.DateOnly),
		WeekEnd:   window.End.Format(time.DateOnly),
		Language:  lang,
		Entries:   len(entries),
		Report:    report,
	}
	written, err := fileutils.WriteJSONFileIfAbsent(outPath, rec, cfg.Pretty, cfg.Overwrite)
	if err != nil {
		return "", fmt.Errorf("write %s: %w", outPath, err)
	}
	if !written {
		logger.Warn("report file exists, not overwritten (use -overwrite)", zap.String("out", outPath))
	}

	if cfg.DBPath != "" {
		db, err := store.OpenSQLite(ctx, cfg.DBPath)
		if err != nil {
			return "", err
		}
		defer func() { _ = db.Close() }()
		if err := db.UpsertWeeklyReport(ctx, reportID, window, lang, report); err != nil {
			return "", err
		}
	}
	return outPath, nil
}

func loadEntryStats(dir string, w analysis.Window, logger *zap.Logger) ([]analysis.EntryStat, error) {
	files, err := collectJSONFiles(dir, func(lower string) bool { return !strings.HasSuffix(lower, analysisSuffix) })
	if err != nil {
		return nil, err
	}
	var out []analysis.EntryStat
	for _, path := range files {
		var e analysis.JournalEntry
		if err := fileutils.ReadJSONFile(path, &e); err != nil {
			logger.Warn("skipping unreadable entry", zap.String("path", path), zap.Error(err))
			continue
		}
		if e.CreatedAt.IsZero() {
			// entry-analyzer stamps such entries with the file mtime; match it.
			e.CreatedAt = fileutils.ModTimeUTC(path)
		}
		if !w.Contains(e.CreatedAt) {
			continue
		}
		if e.ID == "" {
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				rel = filepath.Base(path)
			}
			e.ID = uuid.NewSHA1(entryNamespace, []byte(filepath.ToSlash(rel))).String()
		}
		out = append(out, analysis.EntryStat{ID: e.ID, CreatedAt: e.CreatedAt, Mood: e.MoodScore, Energy: e.EnergyScore})
	}
	return out, nil
}

func loadAnalysisSummaries(dir string, w analysis.Window, logger *zap.Logger) ([]analysis.AnalysisSummary, error) {
	files, err := collectJSONFiles(dir, func(lower string) bool { return strings.HasSuffix(lower, analysisSuffix) })
	if err != nil {
		return nil, err
	}
	var out []analysis.AnalysisSummary
	for _, path := range files {
		var rec storedAnalysis
		if err := fileutils.ReadJSONFile(path, &rec); err != nil {
			logger.Warn("skipping unreadable analysis", zap.String("path", path), zap.Error(err))
			continue
		}
		if rec.EntryID == "" || !w.Contains(rec.CreatedAt) {
			continue
		}
		out = append(out, analysis.AnalysisSummary{
			EntryID:      rec.EntryID,
			CreatedAt:    rec.CreatedAt,
			PillarScores: rec.Analysis.PillarScores,
			Themes:       rec.Analysis.Themes,
		})
	}
	return out, nil
}

func collectJSONFiles(dir string, keep func(lower string) bool) ([]string, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}
	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && (strings.HasPrefix(d.Name(), ".") || d.Name() == "weekly") {
				return fs.SkipDir
			}
			return nil
		}
		lower := strings.ToLower(path)
		if filepath.Ext(lower) == ".json" && keep(lower) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

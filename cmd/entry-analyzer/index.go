package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/theimaginaryfoundation/reflect-o-bot/analysis"
	"github.com/theimaginaryfoundation/reflect-o-bot/analysis/fileutils"
	"go.uber.org/zap"
)

const indexReflectionMaxChars = 240

// indexRow is one line of index.jsonl: enough to find and skim an analysis without opening it.
type indexRow struct {
	EntryID      string                `json:"entry_id"`
	CreatedAt    time.Time             `json:"created_at"`
	Language     analysis.Language     `json:"language"`
	State        string                `json:"state"`
	AnalysisPath string                `json:"analysis_path"`
	Themes       []string              `json:"themes,omitempty"`
	Emotions     []string              `json:"emotions,omitempty"`
	PillarScores analysis.PillarScores `json:"pillar_scores"`
	Reflection   string                `json:"reflection,omitempty"`
	Crisis       bool                  `json:"crisis,omitempty"`
}

func indexRowFrom(rec analysisRecord, path string) indexRow {
	emotions := make([]string, 0, len(rec.Analysis.Emotions))
	for _, e := range rec.Analysis.Emotions {
		emotions = append(emotions, e.Name)
	}
	return indexRow{
		EntryID:      rec.EntryID,
		CreatedAt:    rec.CreatedAt,
		Language:     rec.Language,
		State:        rec.State,
		AnalysisPath: path,
		Themes:       dedupeStrings(rec.Analysis.Themes),
		Emotions:     dedupeStrings(emotions),
		PillarScores: rec.Analysis.PillarScores,
		Reflection:   fileutils.Truncate(fileutils.SanitizeNewlines(strings.TrimSpace(rec.Analysis.Reflection)), indexReflectionMaxChars),
		Crisis:       rec.Analysis.RiskFlags.SelfHarm || rec.Analysis.RiskFlags.Crisis,
	}
}

// rebuildIndex rewrites indexPath from every analysis file under outDir, oldest entry first.
// Unreadable files are logged and left out.
func rebuildIndex(outDir, indexPath string, logger *zap.Logger) (int, error) {
	var paths []string
	err := filepath.WalkDir(outDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != outDir && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(strings.ToLower(path), analysisSuffix) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("reindex: walk analyses: %w", err)
	}

	rows := make([]indexRow, 0, len(paths))
	for _, path := range paths {
		var rec analysisRecord
		if err := fileutils.ReadJSONFile(path, &rec); err != nil {
			logger.Warn("reindex: skipping unreadable analysis", zap.String("path", path), zap.Error(err))
			continue
		}
		if rec.EntryID == "" {
			continue
		}
		rel, err := filepath.Rel(outDir, path)
		if err != nil {
			rel = path
		}
		rows = append(rows, indexRowFrom(rec, filepath.ToSlash(rel)))
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.Before(rows[j].CreatedAt)
		}
		return rows[i].EntryID < rows[j].EntryID
	})

	var buf bytes.Buffer
	for i, row := range rows {
		line, err := json.Marshal(row)
		if err != nil {
			return 0, fmt.Errorf("reindex: marshal %s: %w", row.EntryID, err)
		}
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(line)
	}
	if len(rows) == 0 {
		// WriteFileAtomicSameDir always appends a newline; an empty index is one blank line.
		logger.Info("reindex: no analyses found", zap.String("out", outDir))
	}
	if err := fileutils.WriteFileAtomicSameDir(indexPath, buf.Bytes(), 0o644); err != nil {
		return 0, fmt.Errorf("reindex: write %s: %w", indexPath, err)
	}
	return len(rows), nil
}

// dedupeStrings trims, drops empties and removes case-insensitive duplicates, keeping the
// first spelling.
func dedupeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

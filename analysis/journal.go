package analysis

import (
	"sort"
	"strings"
	"time"
)

// JournalEntry is a stored journal entry as read by the batch tools.
type JournalEntry struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	MoodScore   int       `json:"mood_score"`
	EnergyScore int       `json:"energy_score"`
	CreatedAt   time.Time `json:"created_at"`
	Language    Language  `json:"language,omitempty"`
}

// Request builds the analysis request for e with prior-entry context drawn from history.
func (e JournalEntry) Request(history []JournalEntry, fallback Language) AnalysisRequest {
	lang, ok := ParseLanguage(string(e.Language))
	if !ok {
		lang = fallback
	}
	return AnalysisRequest{
		Text:         e.Text,
		Mood:         e.MoodScore,
		Energy:       e.EnergyScore,
		Language:     lang,
		CreatedAt:    e.CreatedAt,
		PriorEntries: PriorEntriesFor(e, history, MaxPriorEntries),
	}
}

// PriorEntriesFor returns up to limit entries created before e, most recent first. e itself
// is excluded by id.
func PriorEntriesFor(e JournalEntry, history []JournalEntry, limit int) []PriorEntry {
	var candidates []JournalEntry
	for _, h := range history {
		if h.ID == e.ID || !h.CreatedAt.Before(e.CreatedAt) {
			continue
		}
		candidates = append(candidates, h)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]PriorEntry, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, PriorEntry{CreatedAt: c.CreatedAt, Mood: c.MoodScore, Energy: c.EnergyScore, Text: c.Text})
	}
	return out
}

// Window is an inclusive range of calendar days.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// WeekEnding returns the 7-day window day-6 .. day, in day's location.
func WeekEnding(day time.Time) Window {
	end := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return Window{Start: end.AddDate(0, 0, -6), End: end}
}

// Contains reports whether t falls on one of the window's days.
func (w Window) Contains(t time.Time) bool {
	t = t.In(w.End.Location())
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return !day.Before(w.Start) && !day.After(w.End)
}

// EntryStat is the per-entry input of a weekly report.
type EntryStat struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Mood      int       `json:"mood"`
	Energy    int       `json:"energy"`
}

// AnalysisSummary is the per-analysis input of a weekly report.
type AnalysisSummary struct {
	EntryID      string       `json:"entry_id"`
	CreatedAt    time.Time    `json:"created_at"`
	PillarScores PillarScores `json:"pillar_scores"`
	Themes       []string     `json:"themes"`
}

// ThemeCount is how often a theme occurred across a set of analyses.
type ThemeCount struct {
	Theme string `json:"theme"`
	Count int    `json:"count"`
}

// TallyThemes counts themes case-insensitively (each analysis counts a theme once) and
// returns those seen at least minCount times, most frequent first. The sentinel theme is
// ignored.
func TallyThemes(analyses []AnalysisSummary, minCount int) []ThemeCount {
	index := make(map[string]int)
	var out []ThemeCount
	for _, a := range analyses {
		seen := make(map[string]struct{}, len(a.Themes))
		for _, t := range a.Themes {
			key := strings.ToLower(strings.TrimSpace(t))
			if key == "" || key == DefaultTheme {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			if i, ok := index[key]; ok {
				out[i].Count++
				continue
			}
			out = append(out, ThemeCount{Theme: strings.TrimSpace(t), Count: 1})
			index[key] = len(out) - 1
		}
	}

	if minCount > 1 {
		kept := out[:0]
		for _, tc := range out {
			if tc.Count >= minCount {
				kept = append(kept, tc)
			}
		}
		out = kept
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return strings.ToLower(out[i].Theme) < strings.ToLower(out[j].Theme)
	})
	return out
}

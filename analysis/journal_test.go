package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorEntriesFor(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 10, 10, 8, 0, 0, 0, time.UTC)
	var history []JournalEntry
	for i := range 8 {
		history = append(history, JournalEntry{
			ID:          string(rune('a' + i)),
			Text:        "entry " + string(rune('a'+i)),
			MoodScore:   i + 1,
			EnergyScore: 5,
			CreatedAt:   base.AddDate(0, 0, i),
		})
	}
	current := history[6]

	got := PriorEntriesFor(current, history, MaxPriorEntries)
	require.Len(t, got, 5)
	want := []string{"entry f", "entry e", "entry d", "entry c", "entry b"}
	for i, p := range got {
		assert.Equal(t, want[i], p.Text)
	}
	assert.Equal(t, 6, got[0].Mood)

	assert.Empty(t, PriorEntriesFor(history[0], history, MaxPriorEntries))
}

func TestJournalEntry_Request(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 10, 12, 20, 0, 0, 0, time.UTC)
	e := JournalEntry{ID: "x", Text: "Heute", MoodScore: 4, EnergyScore: 6, CreatedAt: at, Language: "EN"}
	history := []JournalEntry{e, {ID: "y", Text: "Gestern", CreatedAt: at.Add(-24 * time.Hour)}}

	req := e.Request(history, LanguageDE)
	assert.Equal(t, LanguageEN, req.Language)
	assert.Equal(t, 4, req.Mood)
	assert.Equal(t, 6, req.Energy)
	require.Len(t, req.PriorEntries, 1)
	assert.Equal(t, "Gestern", req.PriorEntries[0].Text)

	e.Language = "fr"
	assert.Equal(t, LanguageDE, e.Request(nil, LanguageDE).Language)
}

func TestWeekEnding(t *testing.T) {
	t.Parallel()

	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	w := WeekEnding(time.Date(2026, 10, 17, 23, 59, 0, 0, berlin))
	assert.Equal(t, "2026-10-11", w.Start.Format(time.DateOnly))
	assert.Equal(t, "2026-10-17", w.End.Format(time.DateOnly))

	cases := []struct {
		at   time.Time
		want bool
	}{
		{time.Date(2026, 10, 11, 0, 0, 0, 0, berlin), true},
		{time.Date(2026, 10, 17, 23, 59, 59, 0, berlin), true},
		{time.Date(2026, 10, 10, 23, 59, 59, 0, berlin), false},
		{time.Date(2026, 10, 18, 0, 0, 0, 0, berlin), false},
		// 22:30 UTC on the 17th is already the 18th in Berlin
		{time.Date(2026, 10, 17, 22, 30, 0, 0, time.UTC), false},
		{time.Date(2026, 10, 10, 22, 30, 0, 0, time.UTC), true},
	}
	for _, tc := range cases {
		if got := w.Contains(tc.at); got != tc.want {
			t.Fatalf("Contains(%s)=%v want %v", tc.at, got, tc.want)
		}
	}
}

func TestTallyThemes(t *testing.T) {
	t.Parallel()

	analyses := []AnalysisSummary{
		{Themes: []string{"Work", "work", "sleep", "general"}},
		{Themes: []string{"work ", "Family"}},
		{Themes: []string{"family", "sleep", "general"}},
		{Themes: []string{"walks"}},
	}

	got := TallyThemes(analyses, 2)
	assert.Equal(t, []ThemeCount{
		{Theme: "Family", Count: 2},
		{Theme: "sleep", Count: 2},
		{Theme: "Work", Count: 2},
	}, got)

	all := TallyThemes(analyses, 1)
	require.Len(t, all, 4)
	assert.Equal(t, ThemeCount{Theme: "walks", Count: 1}, all[3])

	assert.Empty(t, TallyThemes(nil, 2))
}

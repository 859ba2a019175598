package analysis

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validWeeklyJSON = `{"pillar_scores_avg":{"geist":6.5,"herz":5,"seele":5.5,"koerper":4,"aura":7},` +
	`"pillar_trends":{"geist":"up","herz":"flat","seele":"flat","koerper":"down","aura":"flat"},` +
	`"recurring_patterns":["Abende fühlen sich schwer an"],"correlations":["Mehr Schlaf, ruhigere Tage"],` +
	`"summary":"Eine Woche mit viel Arbeit und einigen ruhigen Momenten.",` +
	`"daily_recommendation":"Nimm dir abends einen Moment für dich.","weekly_goal":"Entdecke, was dir Ruhe schenkt."}`

var testWeek = WeekEnding(time.Date(2026, 10, 17, 18, 0, 0, 0, time.UTC))

func weekFixture() ([]EntryStat, []AnalysisSummary) {
	day := func(d, h int) time.Time { return time.Date(2026, 10, d, h, 0, 0, 0, time.UTC) }
	entries := []EntryStat{
		{ID: "e4", CreatedAt: day(16, 20), Mood: 7, Energy: 6},
		{ID: "e1", CreatedAt: day(11, 9), Mood: 3, Energy: 2},
		{ID: "e2", CreatedAt: day(12, 22), Mood: 4, Energy: 3},
		{ID: "e3", CreatedAt: day(15, 8), Mood: 6, Energy: 5},
		{ID: "old", CreatedAt: day(10, 23), Mood: 1, Energy: 1},
	}
	scores := func(v int) PillarScores {
		return PillarScores{Geist: v, Herz: 5, Seele: 5, Koerper: 10 - v, Aura: 5}
	}
	analyses := []AnalysisSummary{
		{EntryID: "e1", CreatedAt: day(11, 9), PillarScores: scores(2), Themes: []string{"Work", "sleep"}},
		{EntryID: "e2", CreatedAt: day(12, 22), PillarScores: scores(3), Themes: []string{"work"}},
		{EntryID: "e3", CreatedAt: day(15, 8), PillarScores: scores(7), Themes: []string{"family"}},
		{EntryID: "e4", CreatedAt: day(16, 20), PillarScores: scores(8), Themes: []string{"general"}},
		{EntryID: "old", CreatedAt: day(10, 23), PillarScores: scores(1), Themes: []string{"work"}},
	}
	return entries, analyses
}

func TestComputeWeeklyReport_EmptyWindowSkipsGenerator(t *testing.T) {
	t.Parallel()

	g := &scriptedGenerator{respond: happyResponder}
	a := newTestAnalyzer(t, g, Options{})

	r := a.ComputeWeeklyReport(t.Context(), testWeek, nil, nil, LanguageDE)
	assert.Equal(t, 0, g.total())
	assert.Equal(t, noWeeklyDataDE, r.Summary)
	for _, p := range Pillars {
		assert.Equal(t, 5.0, r.PillarScoresAvg.Get(p))
		assert.Equal(t, TrendFlat, r.PillarTrends.Get(p))
	}
	assert.NotNil(t, r.RecurringPatterns)
	assert.NotNil(t, r.Correlations)
}

func TestComputeWeeklyReport_Generated(t *testing.T) {
	t.Parallel()

	g := &scriptedGenerator{}
	g.respond = func(kind, system, user string) (string, error) {
		switch kind {
		case kindWeekly:
			return validWeeklyJSON, nil
		case kindDetect:
			return `{"language":"de"}`, nil
		}
		return "", errUnreachable
	}
	m := NewMetrics(prometheus.NewRegistry())
	a := newTestAnalyzer(t, g, Options{Metrics: m})

	entries, analyses := weekFixture()
	r := a.ComputeWeeklyReport(t.Context(), testWeek, entries, analyses, "de-DE")
	assert.Equal(t, 6.5, r.PillarScoresAvg.Geist)
	assert.Equal(t, TrendDown, r.PillarTrends.Koerper)
	assert.Equal(t, "Entdecke, was dir Ruhe schenkt.", r.WeeklyGoal)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues("weekly", "single_call")))

	calls := g.callsOf(kindWeekly)
	require.Len(t, calls, 1)
	prompt := calls[0].user
	assert.Contains(t, prompt, "User language: de\n")
	assert.Contains(t, prompt, "Week window: 2026-10-11 to 2026-10-17")
	assert.Contains(t, prompt, `"id":"e1"`)
	assert.NotContains(t, prompt, `"id":"old"`)
	assert.NotContains(t, prompt, `"entry_id":"old"`)
	assert.Contains(t, prompt, `- recurring_themes: [{"theme":"Work","count":2}]`)
	assert.Less(t, strings.Index(prompt, `"id":"e1"`), strings.Index(prompt, `"id":"e4"`))
}

func TestComputeWeeklyReport_RepairsThenTranslates(t *testing.T) {
	t.Parallel()

	g := &scriptedGenerator{}
	g.respond = func(kind, system, user string) (string, error) {
		switch kind {
		case kindWeekly:
			return "Here is your weekly report: (summary to follow)", nil
		case kindRepair:
			require.Equal(t, weeklySchema.repair, system)
			return validWeeklyJSON, nil
		case kindDetect:
			return `{"language":"de"}`, nil
		case kindText:
			return `{"text":"translated"}`, nil
		case kindLines:
			return prefixLines(t, user, "en:"), nil
		}
		return "", errUnreachable
	}
	a := newTestAnalyzer(t, g, Options{})

	entries, analyses := weekFixture()
	r := a.ComputeWeeklyReport(t.Context(), testWeek, entries, analyses, LanguageEN)
	assert.Equal(t, "translated", r.Summary)
	assert.Equal(t, []string{"en:Abende fühlen sich schwer an"}, r.RecurringPatterns)
	assert.Equal(t, 1, g.count(kindRepair))
}

func TestComputeWeeklyReport_FailureFallsBackToComputedReport(t *testing.T) {
	t.Parallel()

	g := &scriptedGenerator{respond: func(kind, system, user string) (string, error) {
		if kind == kindWeekly {
			return `{"summary": ""}`, nil
		}
		if kind == kindRepair {
			return `{"pillar_trends": "up"}`, nil
		}
		return "", errUnreachable
	}}
	a := newTestAnalyzer(t, g, Options{})

	entries, analyses := weekFixture()
	r := a.ComputeWeeklyReport(t.Context(), testWeek, entries, analyses, LanguageEN)
	assert.Equal(t, WeeklyRepairs, g.count(kindRepair))
	assert.Equal(t, FallbackWeeklyReport(entries[:4], analyses[:4], LanguageEN), r)
	assert.Equal(t, weeklySummaryEN, r.Summary)
}

func TestComputeWeeklyReport_Canceled(t *testing.T) {
	t.Parallel()

	g := &scriptedGenerator{respond: func(kind, system, user string) (string, error) {
		return validWeeklyJSON, nil
	}}
	a := newTestAnalyzer(t, g, Options{})
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	entries, analyses := weekFixture()
	r := a.ComputeWeeklyReport(ctx, testWeek, entries, analyses, LanguageDE)
	assert.Equal(t, weeklySummaryDE, r.Summary)
	assert.Equal(t, 0, g.total())
}

func TestFallbackWeeklyReport(t *testing.T) {
	t.Parallel()

	entries, analyses := weekFixture()
	entries, analyses = inWindow(testWeek, entries, analyses)
	require.Len(t, entries, 4)

	r := FallbackWeeklyReport(entries, analyses, LanguageDE)
	assert.Equal(t, weeklySummaryDE, r.Summary)
	// geist 2,3 | 7,8 and koerper 8,7 | 3,2
	assert.Equal(t, 5.0, r.PillarScoresAvg.Geist)
	assert.Equal(t, 5.0, r.PillarScoresAvg.Koerper)
	assert.Equal(t, TrendUp, r.PillarTrends.Geist)
	assert.Equal(t, TrendDown, r.PillarTrends.Koerper)
	assert.Equal(t, TrendFlat, r.PillarTrends.Herz)
	assert.Empty(t, r.RecurringPatterns)
}

func TestFallbackWeeklyReport_EntriesWithoutAnalyses(t *testing.T) {
	t.Parallel()

	entries, _ := weekFixture()
	r := FallbackWeeklyReport(entries, nil, LanguageEN)
	assert.Equal(t, weeklySummaryEN, r.Summary)
	for _, p := range Pillars {
		assert.Equal(t, 5.0, r.PillarScoresAvg.Get(p))
		assert.Equal(t, TrendFlat, r.PillarTrends.Get(p))
	}
}

func TestFallbackWeeklyReport_Rounding(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	analyses := []AnalysisSummary{
		{EntryID: "a", CreatedAt: at, PillarScores: PillarScores{Geist: 7, Herz: 5, Seele: 5, Koerper: 5, Aura: 5}},
		{EntryID: "b", CreatedAt: at.Add(time.Hour), PillarScores: PillarScores{Geist: 6, Herz: 5, Seele: 5, Koerper: 5, Aura: 5}},
		{EntryID: "c", CreatedAt: at.Add(2 * time.Hour), PillarScores: PillarScores{Geist: 6, Herz: 5, Seele: 5, Koerper: 5, Aura: 5}},
	}
	r := FallbackWeeklyReport([]EntryStat{{ID: "a", CreatedAt: at}}, analyses, LanguageEN)
	assert.Equal(t, 6.3, r.PillarScoresAvg.Geist)
	assert.Equal(t, TrendDown, r.PillarTrends.Geist)
	assert.Equal(t, TrendFlat, r.PillarTrends.Herz)
}

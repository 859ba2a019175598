package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// trendThreshold is the minimum change between the first and second half of the week that
// counts as up or down in the computed fallback.
const trendThreshold = 1.0

var errEmptyWindow = errors.New("no entries in window")

// ComputeWeeklyReport summarizes a week of entries and their analyses. It uses a single
// generation call with repair and language enforcement and never fails: an empty window
// or any generation failure yields a report computed directly from the inputs.
func (a *Analyzer) ComputeWeeklyReport(ctx context.Context, window Window, entries []EntryStat, analyses []AnalysisSummary, lang Language) WeeklyReportResult {
	ctx, span := tracer.Start(ctx, "weekly_report")
	defer span.End()

	if l, ok := ParseLanguage(string(lang)); ok {
		lang = l
	} else {
		lang = a.defaultLang
	}
	entries, analyses = inWindow(window, entries, analyses)
	span.SetAttributes(attribute.Int("entries", len(entries)), attribute.Int("analyses", len(analyses)))
	logger := a.logger.With(zap.String("language", string(lang)), zap.Time("week_end", window.End))

	state := StateSingleCall
	report, err := a.weeklySingleCall(ctx, window, entries, analyses, lang)
	if err != nil {
		if !errors.Is(err, errEmptyWindow) {
			logger.Error("weekly report fell back to computed summary", zap.Error(err))
		}
		state = StateStaticDefault
		report = FallbackWeeklyReport(entries, analyses, lang)
	}
	a.metrics.outcome("weekly", state)
	span.SetAttributes(attribute.String("state", state.String()))
	return report
}

func (a *Analyzer) weeklySingleCall(ctx context.Context, window Window, entries []EntryStat, analyses []AnalysisSummary, lang Language) (report WeeklyReportResult, err error) {
	if len(entries) == 0 {
		return WeeklyReportResult{}, errEmptyWindow
	}
	defer func() {
		if r := recover(); r != nil {
			report, err = WeeklyReportResult{}, fmt.Errorf("weekly report: panic: %v", r)
		}
	}()

	prompt, err := composeWeeklyPrompt(weeklyPromptInput{
		Language:      lang,
		Window:        window,
		EntryStats:    entries,
		Analyses:      analyses,
		RecurringTags: TallyThemes(analyses, 2),
	})
	if err != nil {
		return WeeklyReportResult{}, err
	}
	raw, err := a.client.call(ctx, "weekly_report", weeklySystemPrompt, prompt)
	if err != nil {
		return WeeklyReportResult{}, err
	}
	report, err = parseWithRepair(ctx, a.client, weeklySchema, raw, WeeklyRepairs)
	if err != nil {
		return WeeklyReportResult{}, err
	}
	report = a.enforcer.enforceWeekly(ctx, report, lang)
	if err := ctx.Err(); err != nil {
		return WeeklyReportResult{}, err
	}
	return report, nil
}

func inWindow(w Window, entries []EntryStat, analyses []AnalysisSummary) ([]EntryStat, []AnalysisSummary) {
	keep := make(map[string]struct{}, len(entries))
	var es []EntryStat
	for _, e := range entries {
		if w.Contains(e.CreatedAt) {
			es = append(es, e)
			keep[e.ID] = struct{}{}
		}
	}
	sort.SliceStable(es, func(i, j int) bool { return es[i].CreatedAt.Before(es[j].CreatedAt) })

	var as []AnalysisSummary
	for _, a := range analyses {
		if _, ok := keep[a.EntryID]; ok {
			as = append(as, a)
		}
	}
	sort.SliceStable(as, func(i, j int) bool { return as[i].CreatedAt.Before(as[j].CreatedAt) })
	return es, as
}

// FallbackWeeklyReport computes a report without any generation call: per-pillar means of
// the analyses (5 when there are none) and trends from comparing the first and second half
// of the week in chronological order.
func FallbackWeeklyReport(entries []EntryStat, analyses []AnalysisSummary, lang Language) WeeklyReportResult {
	r := WeeklyReportResult{
		RecurringPatterns: []string{},
		Correlations:      []string{},
	}
	for _, p := range Pillars {
		r.PillarScoresAvg.Set(p, 5)
		r.PillarTrends.Set(p, TrendFlat)
	}
	if len(entries) == 0 {
		r.Summary = noWeeklyDataSummary(lang)
		return r
	}
	r.Summary = weeklyFallbackSummary(lang)
	if len(analyses) == 0 {
		return r
	}

	sorted := append([]AnalysisSummary(nil), analyses...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.Before(sorted[j].CreatedAt) })
	half := len(sorted) / 2
	for _, p := range Pillars {
		r.PillarScoresAvg.Set(p, roundTenth(meanScore(sorted, p)))
		if half == 0 {
			continue
		}
		delta := meanScore(sorted[len(sorted)-half:], p) - meanScore(sorted[:half], p)
		switch {
		case delta >= trendThreshold:
			r.PillarTrends.Set(p, TrendUp)
		case delta <= -trendThreshold:
			r.PillarTrends.Set(p, TrendDown)
		}
	}
	return r
}

func meanScore(as []AnalysisSummary, p Pillar) float64 {
	if len(as) == 0 {
		return 5
	}
	sum := 0
	for _, a := range as {
		sum += clampScore(a.PillarScores.Get(p))
	}
	return float64(sum) / float64(len(as))
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

package analysis

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// languageEnforcer rewrites user-facing fields into the target language. Every failure is
// absorbed: a field that cannot be translated keeps its original value, whole.
type languageEnforcer struct {
	client  generationClient
	logger  *zap.Logger
	metrics *Metrics
}

// detect classifies text as de or en. Empty input and any failure yield LanguageUnknown.
func (e languageEnforcer) detect(ctx context.Context, text string) Language {
	s := strings.TrimSpace(text)
	if s == "" {
		return LanguageUnknown
	}
	raw, err := e.client.call(ctx, "detect_language", detectLanguagePrompt, s)
	if err != nil {
		return LanguageUnknown
	}
	out, err := parseWithRepair(ctx, e.client, languageSchema, raw, LanguageRepairs)
	if err != nil {
		e.logger.Debug("language detection failed", zap.Error(err))
		return LanguageUnknown
	}
	return out.Language
}

// translateText returns text in target, or text itself when the translation is unusable.
func (e languageEnforcer) translateText(ctx context.Context, field, text string, target Language, maxRunes int) string {
	s := strings.TrimSpace(text)
	if s == "" {
		return text
	}
	raw, err := e.client.call(ctx, "translate_"+field, translateTextPrompt, composeTranslateText(target, s))
	if err != nil {
		return e.reject(field, text, err)
	}
	out, err := parseWithRepair(ctx, e.client, textSchema, raw, LanguageRepairs)
	if err != nil {
		return e.reject(field, text, err)
	}
	if maxRunes > 0 && utf8.RuneCountInString(out.Text) > maxRunes {
		e.metrics.rejected(field)
		e.logger.Debug("translation exceeds field bound", zap.String("field", field), zap.Int("max", maxRunes))
		return text
	}
	return out.Text
}

// translateLines translates items as one batch. The result is used only when it has exactly
// as many non-blank lines as the input and each respects maxRunes (0 = unbounded).
func (e languageEnforcer) translateLines(ctx context.Context, field string, items []string, target Language, maxRunes int) []string {
	if len(items) == 0 {
		return items
	}
	prompt, err := composeTranslateLines(target, items)
	if err != nil {
		return items
	}
	raw, err := e.client.call(ctx, "translate_"+field, translateLinesPrompt, prompt)
	if err != nil {
		e.reject(field, "", err)
		return items
	}
	out, err := parseWithRepair(ctx, e.client, linesSchema, raw, LanguageRepairs)
	if err != nil {
		e.reject(field, "", err)
		return items
	}
	if len(out.Lines) != len(items) {
		e.metrics.rejected(field)
		e.logger.Debug("translation changed line count, keeping original",
			zap.String("field", field),
			zap.Int("want", len(items)),
			zap.Int("got", len(out.Lines)),
		)
		return items
	}
	for _, l := range out.Lines {
		if l == "" || (maxRunes > 0 && utf8.RuneCountInString(l) > maxRunes) {
			e.metrics.rejected(field)
			return items
		}
	}
	return out.Lines
}

func (e languageEnforcer) reject(field, original string, err error) string {
	e.metrics.rejected(field)
	e.logger.Debug("translation failed, keeping original", zap.String("field", field), zap.Error(err))
	return original
}

// enforceAnalysis detects the reflection's language and, if it differs from target,
// translates every user-facing field. It returns the detected language.
func (e languageEnforcer) enforceAnalysis(ctx context.Context, r AnalysisResult, target Language) (AnalysisResult, Language) {
	if !target.Supported() {
		return r, LanguageUnknown
	}
	detected := e.detect(ctx, r.Reflection)
	if detected == LanguageUnknown || detected == target {
		return r, detected
	}
	e.logger.Info("translating analysis", zap.String("detected", string(detected)), zap.String("target", string(target)))

	r.Reflection = e.translateText(ctx, "reflection", r.Reflection, target, MaxReflection)
	r.RationaleSummary = e.translateText(ctx, "rationale_summary", r.RationaleSummary, target, MaxRationale)
	r.Themes = e.translateLines(ctx, "themes", r.Themes, target, 0)

	if len(r.Emotions) > 0 {
		names := make([]string, len(r.Emotions))
		for i, em := range r.Emotions {
			names[i] = em.Name
		}
		names = e.translateLines(ctx, "emotions", names, target, MaxEmotionName)
		emotions := make([]Emotion, len(r.Emotions))
		for i, em := range r.Emotions {
			emotions[i] = Emotion{Name: names[i], Intensity: em.Intensity}
		}
		r.Emotions = emotions
	}

	r.Recommendations.Daily = e.translateLines(ctx, "daily", r.Recommendations.Daily, target, 0)
	r.Recommendations.Weekly = e.translateLines(ctx, "weekly", r.Recommendations.Weekly, target, 0)
	r.Signals.Keywords = e.translateLines(ctx, "keywords", r.Signals.Keywords, target, 0)
	r.Signals.Phrases = e.translateLines(ctx, "phrases", r.Signals.Phrases, target, 0)
	r.Signals.Triggers = e.translateLines(ctx, "triggers", r.Signals.Triggers, target, 0)
	return r, detected
}

// enforceWeekly is enforceAnalysis for weekly reports, keyed on the summary.
func (e languageEnforcer) enforceWeekly(ctx context.Context, w WeeklyReportResult, target Language) WeeklyReportResult {
	if !target.Supported() {
		return w
	}
	detected := e.detect(ctx, w.Summary)
	if detected == LanguageUnknown || detected == target {
		return w
	}
	e.logger.Info("translating weekly report", zap.String("detected", string(detected)), zap.String("target", string(target)))

	w.Summary = e.translateText(ctx, "summary", w.Summary, target, MaxWeeklySummary)
	w.DailyRecommendation = e.translateText(ctx, "daily_recommendation", w.DailyRecommendation, target, MaxWeeklyAdvice)
	w.WeeklyGoal = e.translateText(ctx, "weekly_goal", w.WeeklyGoal, target, MaxWeeklyAdvice)
	w.RecurringPatterns = e.translateLines(ctx, "recurring_patterns", w.RecurringPatterns, target, 0)
	w.Correlations = e.translateLines(ctx, "correlations", w.Correlations, target, 0)
	return w
}

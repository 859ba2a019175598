package analysis

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// object walks one JSON object and records violations against a shared list. Accessors
// return the zero value (or the supplied default) on failure so a record can be fully
// walked and every violation reported at once.
type object struct {
	path string
	res  gjson.Result
	errs *[]FieldViolation
}

func parseObject(schema, raw string) (object, error) {
	if !gjson.Valid(raw) {
		return object{}, &SchemaValidationError{Schema: schema, Violations: []FieldViolation{{Problem: "invalid JSON"}}}
	}
	res := gjson.Parse(raw)
	if !res.IsObject() {
		return object{}, &SchemaValidationError{Schema: schema, Violations: []FieldViolation{{Problem: "top-level value must be an object"}}}
	}
	var errs []FieldViolation
	return object{res: res, errs: &errs}, nil
}

func (o object) err(schema string) error {
	if len(*o.errs) == 0 {
		return nil
	}
	return &SchemaValidationError{Schema: schema, Violations: *o.errs}
}

func (o object) fieldPath(key string) string {
	if o.path == "" {
		return key
	}
	return o.path + "." + key
}

func (o object) fail(key, format string, args ...any) {
	*o.errs = append(*o.errs, FieldViolation{Path: o.fieldPath(key), Problem: fmt.Sprintf(format, args...)})
}

func (o object) lookup(key string) (gjson.Result, bool) {
	r := o.res.Get(gjson.Escape(key))
	if !r.Exists() || r.Type == gjson.Null {
		return r, false
	}
	return r, true
}

// child returns the nested object under key. A missing optional object yields an empty
// object so its own optional fields fall back to defaults.
func (o object) child(key string, required bool) (object, bool) {
	r, ok := o.lookup(key)
	c := object{path: o.fieldPath(key), errs: o.errs}
	if !ok {
		if required {
			o.fail(key, "required")
		}
		c.res = gjson.Parse("{}")
		return c, false
	}
	if !r.IsObject() {
		o.fail(key, "must be an object")
		c.res = gjson.Parse("{}")
		return c, false
	}
	c.res = r
	return c, true
}

func (o object) number(key string, required bool) (float64, bool) {
	r, ok := o.lookup(key)
	if !ok {
		if required {
			o.fail(key, "required")
		}
		return 0, false
	}
	switch r.Type {
	case gjson.Number:
		return r.Float(), true
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		if err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f, true
		}
	}
	o.fail(key, "must be a number")
	return 0, false
}

func (o object) floatIn(key string, min, max, def float64, required bool) float64 {
	v, ok := o.number(key, required)
	if !ok {
		return def
	}
	if v < min || v > max {
		o.fail(key, "must be within [%g, %g], got %g", min, max, v)
		return def
	}
	return v
}

func (o object) intIn(key string, min, max, def int, required bool) int {
	v, ok := o.number(key, required)
	if !ok {
		return def
	}
	if v != math.Trunc(v) {
		o.fail(key, "must be an integer, got %g", v)
		return def
	}
	if v < float64(min) || v > float64(max) {
		o.fail(key, "must be within [%d, %d], got %g", min, max, v)
		return def
	}
	return int(v)
}

func (o object) flag(key string) bool {
	r, ok := o.lookup(key)
	if !ok {
		return false
	}
	switch r.Type {
	case gjson.True:
		return true
	case gjson.False:
		return false
	case gjson.String:
		switch strings.ToLower(strings.TrimSpace(r.Str)) {
		case "true":
			return true
		case "false":
			return false
		}
	}
	o.fail(key, "must be a boolean")
	return false
}

// text returns the trimmed string under key, bounded to maxRunes (0 = unbounded).
func (o object) text(key string, maxRunes int, required bool) string {
	r, ok := o.lookup(key)
	if !ok {
		if required {
			o.fail(key, "required")
		}
		return ""
	}
	if r.Type != gjson.String {
		o.fail(key, "must be a string")
		return ""
	}
	s := strings.TrimSpace(r.Str)
	if required && s == "" {
		o.fail(key, "must not be empty")
		return ""
	}
	if maxRunes > 0 && utf8.RuneCountInString(s) > maxRunes {
		o.fail(key, "must be at most %d characters, got %d", maxRunes, utf8.RuneCountInString(s))
		return ""
	}
	return s
}

// textList returns the trimmed string items under key. Lists are optional and default to
// empty; dropBlank removes whitespace-only items before the length bound is checked.
func (o object) textList(key string, maxItems int, dropBlank bool) []string {
	r, ok := o.lookup(key)
	if !ok {
		return []string{}
	}
	if !r.IsArray() {
		o.fail(key, "must be an array of strings")
		return []string{}
	}
	items := r.Array()
	out := make([]string, 0, len(items))
	for i, it := range items {
		if it.Type != gjson.String {
			o.fail(fmt.Sprintf("%s[%d]", key, i), "must be a string")
			continue
		}
		s := strings.TrimSpace(it.Str)
		if dropBlank && s == "" {
			continue
		}
		out = append(out, s)
	}
	if maxItems > 0 && len(out) > maxItems {
		o.fail(key, "must have at most %d items, got %d", maxItems, len(out))
		return []string{}
	}
	return out
}

func (o object) emotions(key string) []Emotion {
	r, ok := o.lookup(key)
	if !ok {
		return []Emotion{}
	}
	if !r.IsArray() {
		o.fail(key, "must be an array")
		return []Emotion{}
	}
	items := r.Array()
	out := make([]Emotion, 0, len(items))
	for i, it := range items {
		p := fmt.Sprintf("%s[%d]", key, i)
		if !it.IsObject() {
			o.fail(p, "must be an object")
			continue
		}
		e := object{path: o.fieldPath(p), res: it, errs: o.errs}
		name := e.text("name", MaxEmotionName, true)
		intensity := e.floatIn("intensity", 0, 1, 0, true)
		out = append(out, Emotion{Name: name, Intensity: intensity})
	}
	return out
}

func (o object) pillarWeights(key string, required bool) PillarWeights {
	var w PillarWeights
	c, ok := o.child(key, required)
	if !ok {
		return w
	}
	for _, p := range Pillars {
		w.Set(p, c.floatIn(string(p), 0, 1, 0, true))
	}
	return w
}

func (o object) pillarScores(key string, required bool) PillarScores {
	var s PillarScores
	c, ok := o.child(key, required)
	if !ok {
		return s
	}
	for _, p := range Pillars {
		s.Set(p, c.intIn(string(p), MinScore, MaxScore, MinScore, true))
	}
	return s
}

func (o object) signals(key string) Signals {
	c, _ := o.child(key, false)
	return Signals{
		Keywords: c.textList("keywords", MaxKeywords, false),
		Phrases:  c.textList("phrases", MaxPhrases, false),
		Triggers: c.textList("triggers", MaxTriggers, false),
	}
}

func (o object) recommendations(key string) Recommendations {
	c, _ := o.child(key, false)
	return Recommendations{
		Daily:  c.textList("daily", MaxDailyRecs, false),
		Weekly: c.textList("weekly", MaxWeeklyRecs, false),
	}
}

func (o object) riskFlags(key string) RiskFlags {
	c, _ := o.child(key, false)
	return RiskFlags{
		SelfHarm: c.flag("self_harm"),
		Crisis:   c.flag("crisis"),
		Medical:  c.flag("medical"),
		Violence: c.flag("violence"),
	}
}

func (o object) themes(key string) []string {
	themes := o.textList(key, MaxThemes, true)
	if len(themes) == 0 {
		return []string{DefaultTheme}
	}
	return themes
}

func (o object) trend(key string) Trend {
	r, ok := o.lookup(key)
	if !ok {
		o.fail(key, "required")
		return TrendFlat
	}
	if r.Type == gjson.String {
		switch t := Trend(strings.ToLower(strings.TrimSpace(r.Str))); t {
		case TrendUp, TrendDown, TrendFlat:
			return t
		}
	}
	o.fail(key, "must be one of up, down, flat")
	return TrendFlat
}

// ValidateAnalysis maps a full single-call analysis object onto AnalysisResult.
func ValidateAnalysis(raw string) (AnalysisResult, error) {
	const schema = "analysis"
	o, err := parseObject(schema, raw)
	if err != nil {
		return AnalysisResult{}, err
	}
	r := AnalysisResult{
		Emotions:         o.emotions("emotions"),
		Themes:           o.themes("themes"),
		PillarWeights:    o.pillarWeights("pillar_weights", true),
		PillarScores:     o.pillarScores("pillar_scores", true),
		Reflection:       o.text("reflection", MaxReflection, true),
		Recommendations:  o.recommendations("recommendations"),
		Signals:          o.signals("signals"),
		RationaleSummary: o.text("rationale_summary", MaxRationale, false),
		RiskFlags:        o.riskFlags("risk_flags"),
	}
	if err := o.err(schema); err != nil {
		return AnalysisResult{}, err
	}
	return r, nil
}

func validateSignals(raw string) (signalsOutput, error) {
	const schema = "signals"
	o, err := parseObject(schema, raw)
	if err != nil {
		return signalsOutput{}, err
	}
	s := signalsOutput{
		Emotions:      o.emotions("emotions"),
		Themes:        o.themes("themes"),
		PillarWeights: o.pillarWeights("pillar_weights", true),
		PillarScores:  o.pillarScores("pillar_scores", true),
		Signals:       o.signals("signals"),
	}
	if err := o.err(schema); err != nil {
		return signalsOutput{}, err
	}
	return s, nil
}

func validateNarrative(raw string) (narrativeOutput, error) {
	const schema = "narrative"
	o, err := parseObject(schema, raw)
	if err != nil {
		return narrativeOutput{}, err
	}
	n := narrativeOutput{
		Reflection:       o.text("reflection", MaxReflection, true),
		Recommendations:  o.recommendations("recommendations"),
		RationaleSummary: o.text("rationale_summary", MaxRationale, false),
		RiskFlags:        o.riskFlags("risk_flags"),
	}
	if err := o.err(schema); err != nil {
		return narrativeOutput{}, err
	}
	return n, nil
}

// ValidateWeeklyReport maps a weekly report object onto WeeklyReportResult.
func ValidateWeeklyReport(raw string) (WeeklyReportResult, error) {
	const schema = "weekly_report"
	o, err := parseObject(schema, raw)
	if err != nil {
		return WeeklyReportResult{}, err
	}
	var w WeeklyReportResult
	if avg, ok := o.child("pillar_scores_avg", true); ok {
		for _, p := range Pillars {
			w.PillarScoresAvg.Set(p, avg.floatIn(string(p), MinScore, MaxScore, 5, true))
		}
	}
	if trends, ok := o.child("pillar_trends", true); ok {
		for _, p := range Pillars {
			w.PillarTrends.Set(p, trends.trend(string(p)))
		}
	}
	w.RecurringPatterns = o.textList("recurring_patterns", 0, true)
	w.Correlations = o.textList("correlations", 0, true)
	w.Summary = o.text("summary", MaxWeeklySummary, true)
	w.DailyRecommendation = o.text("daily_recommendation", MaxWeeklyAdvice, false)
	w.WeeklyGoal = o.text("weekly_goal", MaxWeeklyAdvice, false)
	if err := o.err(schema); err != nil {
		return WeeklyReportResult{}, err
	}
	return w, nil
}

type languageOutput struct {
	Language Language `json:"language" jsonschema:"enum=de,enum=en,enum=unknown"`
}

func validateLanguage(raw string) (languageOutput, error) {
	const schema = "language"
	o, err := parseObject(schema, raw)
	if err != nil {
		return languageOutput{}, err
	}
	s := o.text("language", 0, true)
	if strings.EqualFold(strings.TrimSpace(s), string(LanguageUnknown)) {
		return languageOutput{Language: LanguageUnknown}, nil
	}
	lang, ok := ParseLanguage(s)
	if s != "" && !ok {
		o.fail("language", "must be de or en, got %q", s)
	}
	if err := o.err(schema); err != nil {
		return languageOutput{}, err
	}
	return languageOutput{Language: lang}, nil
}

type textOutput struct {
	Text string `json:"text"`
}

func validateText(raw string) (textOutput, error) {
	const schema = "translate_text"
	o, err := parseObject(schema, raw)
	if err != nil {
		return textOutput{}, err
	}
	t := textOutput{Text: o.text("text", 0, true)}
	if err := o.err(schema); err != nil {
		return textOutput{}, err
	}
	return t, nil
}

type linesOutput struct {
	Lines []string `json:"lines"`
}

func validateLines(raw string) (linesOutput, error) {
	const schema = "translate_lines"
	o, err := parseObject(schema, raw)
	if err != nil {
		return linesOutput{}, err
	}
	if _, ok := o.lookup("lines"); !ok {
		o.fail("lines", "required")
	}
	l := linesOutput{Lines: o.textList("lines", 0, false)}
	if err := o.err(schema); err != nil {
		return linesOutput{}, err
	}
	return l, nil
}

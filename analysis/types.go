package analysis

import (
	"strings"
	"time"
)

// Language is a supported output language tag.
type Language string

const (
	LanguageDE      Language = "de"
	LanguageEN      Language = "en"
	LanguageUnknown Language = "unknown"
)

// ParseLanguage normalizes a language tag ("DE", " en-US ") onto the supported set.
func ParseLanguage(s string) (Language, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexAny(s, "-_"); i > 0 {
		s = s[:i]
	}
	switch Language(s) {
	case LanguageDE:
		return LanguageDE, true
	case LanguageEN:
		return LanguageEN, true
	default:
		return LanguageUnknown, false
	}
}

func (l Language) Supported() bool {
	return l == LanguageDE || l == LanguageEN
}

// Pillar is one of the five life dimensions every entry is rated on.
type Pillar string

const (
	PillarGeist   Pillar = "geist"
	PillarHerz    Pillar = "herz"
	PillarSeele   Pillar = "seele"
	PillarKoerper Pillar = "koerper"
	PillarAura    Pillar = "aura"
)

// Pillars lists the pillars in their canonical order.
var Pillars = []Pillar{PillarGeist, PillarHerz, PillarSeele, PillarKoerper, PillarAura}

// Bounds applied by the validators and the language enforcer.
const (
	MinScore = 1
	MaxScore = 10

	MaxThemes          = 6
	MaxKeywords        = 8
	MaxPhrases         = 5
	MaxTriggers        = 5
	MaxDailyRecs       = 3
	MaxWeeklyRecs      = 3
	MaxEmotionName     = 40
	MaxReflection      = 1200
	MaxRationale       = 500
	MaxWeeklySummary   = 2000
	MaxWeeklyAdvice    = 800
	MaxPriorEntries    = 5
	priorEntryTextSize = 100

	// DefaultTheme is the sentinel used when no themes survive cleaning.
	DefaultTheme = "general"
)

type Emotion struct {
	Name      string  `json:"name" jsonschema:"minLength=1,maxLength=40"`
	Intensity float64 `json:"intensity" jsonschema:"minimum=0,maximum=1"`
}

// PillarWeights says how strongly an entry touches each pillar. The weights are expected
// to sum to roughly 1 but nothing enforces it.
type PillarWeights struct {
	Geist   float64 `json:"geist" jsonschema:"minimum=0,maximum=1"`
	Herz    float64 `json:"herz" jsonschema:"minimum=0,maximum=1"`
	Seele   float64 `json:"seele" jsonschema:"minimum=0,maximum=1"`
	Koerper float64 `json:"koerper" jsonschema:"minimum=0,maximum=1"`
	Aura    float64 `json:"aura" jsonschema:"minimum=0,maximum=1"`
}

func (w PillarWeights) Get(p Pillar) float64 {
	switch p {
	case PillarGeist:
		return w.Geist
	case PillarHerz:
		return w.Herz
	case PillarSeele:
		return w.Seele
	case PillarKoerper:
		return w.Koerper
	case PillarAura:
		return w.Aura
	}
	return 0
}

func (w *PillarWeights) Set(p Pillar, v float64) {
	switch p {
	case PillarGeist:
		w.Geist = v
	case PillarHerz:
		w.Herz = v
	case PillarSeele:
		w.Seele = v
	case PillarKoerper:
		w.Koerper = v
	case PillarAura:
		w.Aura = v
	}
}

// PillarScores rates the current state of each pillar on a 1..10 scale.
type PillarScores struct {
	Geist   int `json:"geist" jsonschema:"minimum=1,maximum=10"`
	Herz    int `json:"herz" jsonschema:"minimum=1,maximum=10"`
	Seele   int `json:"seele" jsonschema:"minimum=1,maximum=10"`
	Koerper int `json:"koerper" jsonschema:"minimum=1,maximum=10"`
	Aura    int `json:"aura" jsonschema:"minimum=1,maximum=10"`
}

func (s PillarScores) Get(p Pillar) int {
	switch p {
	case PillarGeist:
		return s.Geist
	case PillarHerz:
		return s.Herz
	case PillarSeele:
		return s.Seele
	case PillarKoerper:
		return s.Koerper
	case PillarAura:
		return s.Aura
	}
	return 0
}

func (s *PillarScores) Set(p Pillar, v int) {
	switch p {
	case PillarGeist:
		s.Geist = v
	case PillarHerz:
		s.Herz = v
	case PillarSeele:
		s.Seele = v
	case PillarKoerper:
		s.Koerper = v
	case PillarAura:
		s.Aura = v
	}
}

type Signals struct {
	Keywords []string `json:"keywords" jsonschema:"maxItems=8"`
	Phrases  []string `json:"phrases" jsonschema:"maxItems=5"`
	Triggers []string `json:"triggers" jsonschema:"maxItems=5"`
}

type RiskFlags struct {
	SelfHarm bool `json:"self_harm"`
	Crisis   bool `json:"crisis"`
	Medical  bool `json:"medical"`
	Violence bool `json:"violence"`
}

type Recommendations struct {
	Daily  []string `json:"daily" jsonschema:"maxItems=3"`
	Weekly []string `json:"weekly" jsonschema:"maxItems=3"`
}

// PriorEntry is the compact form of an earlier journal entry used as prompt context.
type PriorEntry struct {
	CreatedAt time.Time `json:"created_at"`
	Mood      int       `json:"mood"`
	Energy    int       `json:"energy"`
	Text      string    `json:"text"`
}

// AnalysisRequest carries everything needed to analyze a single journal entry.
type AnalysisRequest struct {
	Text         string       `json:"text"`
	Mood         int          `json:"mood"`
	Energy       int          `json:"energy"`
	Language     Language     `json:"language"`
	CreatedAt    time.Time    `json:"created_at"`
	PriorEntries []PriorEntry `json:"prior_entries,omitempty"`
}

// AnalysisResult is the validated, persistable analysis of one entry.
type AnalysisResult struct {
	Emotions         []Emotion       `json:"emotions"`
	Themes           []string        `json:"themes" jsonschema:"maxItems=6"`
	PillarWeights    PillarWeights   `json:"pillar_weights"`
	PillarScores     PillarScores    `json:"pillar_scores"`
	Reflection       string          `json:"reflection" jsonschema:"maxLength=1200"`
	Recommendations  Recommendations `json:"recommendations"`
	Signals          Signals         `json:"signals"`
	RationaleSummary string          `json:"rationale_summary" jsonschema:"maxLength=500"`
	RiskFlags        RiskFlags       `json:"risk_flags"`
}

// signalsOutput is the record produced by the signals & scores sub-task.
type signalsOutput struct {
	Emotions      []Emotion     `json:"emotions"`
	Themes        []string      `json:"themes" jsonschema:"maxItems=6"`
	PillarWeights PillarWeights `json:"pillar_weights"`
	PillarScores  PillarScores  `json:"pillar_scores"`
	Signals       Signals       `json:"signals"`
}

// narrativeOutput is the record produced by the narrative sub-task.
type narrativeOutput struct {
	Reflection       string          `json:"reflection" jsonschema:"maxLength=1200"`
	Recommendations  Recommendations `json:"recommendations"`
	RationaleSummary string          `json:"rationale_summary" jsonschema:"maxLength=500"`
	RiskFlags        RiskFlags       `json:"risk_flags"`
}

func mergeOutputs(s signalsOutput, n narrativeOutput) AnalysisResult {
	return AnalysisResult{
		Emotions:         s.Emotions,
		Themes:           s.Themes,
		PillarWeights:    s.PillarWeights,
		PillarScores:     s.PillarScores,
		Signals:          s.Signals,
		Reflection:       n.Reflection,
		Recommendations:  n.Recommendations,
		RationaleSummary: n.RationaleSummary,
		RiskFlags:        n.RiskFlags,
	}
}

// Trend is the direction of a pillar over the week.
type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendFlat Trend = "flat"
)

// PillarAverages holds per-pillar means over a window, each in [1,10].
type PillarAverages struct {
	Geist   float64 `json:"geist" jsonschema:"minimum=1,maximum=10"`
	Herz    float64 `json:"herz" jsonschema:"minimum=1,maximum=10"`
	Seele   float64 `json:"seele" jsonschema:"minimum=1,maximum=10"`
	Koerper float64 `json:"koerper" jsonschema:"minimum=1,maximum=10"`
	Aura    float64 `json:"aura" jsonschema:"minimum=1,maximum=10"`
}

func (a *PillarAverages) Set(p Pillar, v float64) {
	w := PillarWeights(*a)
	w.Set(p, v)
	*a = PillarAverages(w)
}

func (a PillarAverages) Get(p Pillar) float64 {
	return PillarWeights(a).Get(p)
}

type PillarTrends struct {
	Geist   Trend `json:"geist" jsonschema:"enum=up,enum=down,enum=flat"`
	Herz    Trend `json:"herz" jsonschema:"enum=up,enum=down,enum=flat"`
	Seele   Trend `json:"seele" jsonschema:"enum=up,enum=down,enum=flat"`
	Koerper Trend `json:"koerper" jsonschema:"enum=up,enum=down,enum=flat"`
	Aura    Trend `json:"aura" jsonschema:"enum=up,enum=down,enum=flat"`
}

func (t *PillarTrends) Set(p Pillar, v Trend) {
	switch p {
	case PillarGeist:
		t.Geist = v
	case PillarHerz:
		t.Herz = v
	case PillarSeele:
		t.Seele = v
	case PillarKoerper:
		t.Koerper = v
	case PillarAura:
		t.Aura = v
	}
}

func (t PillarTrends) Get(p Pillar) Trend {
	switch p {
	case PillarGeist:
		return t.Geist
	case PillarHerz:
		return t.Herz
	case PillarSeele:
		return t.Seele
	case PillarKoerper:
		return t.Koerper
	case PillarAura:
		return t.Aura
	}
	return ""
}

// WeeklyReportResult is the aggregate report over a 7-day window.
type WeeklyReportResult struct {
	PillarScoresAvg     PillarAverages `json:"pillar_scores_avg"`
	PillarTrends        PillarTrends   `json:"pillar_trends"`
	RecurringPatterns   []string       `json:"recurring_patterns"`
	Correlations        []string       `json:"correlations"`
	Summary             string         `json:"summary" jsonschema:"maxLength=2000"`
	DailyRecommendation string         `json:"daily_recommendation" jsonschema:"maxLength=800"`
	WeeklyGoal          string         `json:"weekly_goal" jsonschema:"maxLength=800"`
}

package analysis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DefaultCallTimeout bounds a single generator round trip when Options.CallTimeout is zero.
const DefaultCallTimeout = 60 * time.Second

// State is a rung of the degradation ladder.
type State int

const (
	StateStructured State = iota
	StateStructuredRetry
	StateSingleCall
	StateStaticDefault
)

func (s State) String() string {
	switch s {
	case StateStructured:
		return "structured"
	case StateStructuredRetry:
		return "structured_retry"
	case StateSingleCall:
		return "single_call"
	case StateStaticDefault:
		return "static_default"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome describes how a result was produced.
type Outcome struct {
	State    State    `json:"state"`
	Language Language `json:"language"`
	// Detected is the language the generated text came back in, or unknown when detection
	// was skipped or failed.
	Detected Language `json:"detected"`
}

var errNoGeneratedOutput = errors.New("no sub-task produced generated output")

type Options struct {
	Logger  *zap.Logger
	Metrics *Metrics
	// CallTimeout bounds each generator call; zero means DefaultCallTimeout.
	CallTimeout time.Duration
	// SequentialSubtasks runs the two entry sub-tasks one after the other.
	SequentialSubtasks bool
	// DefaultLanguage replaces unsupported request languages; empty means German.
	DefaultLanguage Language
}

// Analyzer runs the journal analysis pipeline. It holds no per-request state and is safe
// for concurrent use.
type Analyzer struct {
	client      generationClient
	enforcer    languageEnforcer
	logger      *zap.Logger
	metrics     *Metrics
	sequential  bool
	defaultLang Language
}

func NewAnalyzer(gen Generator, opts Options) (*Analyzer, error) {
	if gen == nil {
		return nil, errors.New("NewAnalyzer: generator is nil")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	lang := opts.DefaultLanguage
	if lang == "" {
		lang = LanguageDE
	}
	if !lang.Supported() {
		return nil, fmt.Errorf("NewAnalyzer: unsupported default language %q", lang)
	}
	client := generationClient{gen: gen, timeout: timeout, logger: logger, metrics: opts.Metrics}
	return &Analyzer{
		client:      client,
		enforcer:    languageEnforcer{client: client, logger: logger, metrics: opts.Metrics},
		logger:      logger,
		metrics:     opts.Metrics,
		sequential:  opts.SequentialSubtasks,
		defaultLang: lang,
	}, nil
}

// Analyze produces an analysis for req. It never fails: when every generation strategy is
// exhausted (or ctx is cancelled) it returns the static default record.
func (a *Analyzer) Analyze(ctx context.Context, req AnalysisRequest) AnalysisResult {
	r, _ := a.AnalyzeWithOutcome(ctx, req)
	return r
}

// AnalyzeWithOutcome is Analyze plus a description of which strategy produced the record.
func (a *Analyzer) AnalyzeWithOutcome(ctx context.Context, req AnalysisRequest) (AnalysisResult, Outcome) {
	ctx, span := tracer.Start(ctx, "analyze_entry")
	defer span.End()

	req = a.normalizeRequest(req)
	out := Outcome{Language: req.Language, Detected: LanguageUnknown}
	logger := a.logger.With(zap.String("language", string(req.Language)))

	result, err := a.runState(ctx, StateStructured, func() (stateResult, error) {
		return a.structured(ctx, req)
	})
	if err == nil {
		out.State, out.Detected = result.state, result.detected
	} else {
		logger.Warn("structured analysis failed, falling back to single call", zap.Error(err))
		result, err = a.runState(ctx, StateSingleCall, func() (stateResult, error) {
			return a.singleCall(ctx, req)
		})
		if err == nil {
			out.State, out.Detected = StateSingleCall, result.detected
		}
	}
	if err != nil {
		logger.Error("analysis fell back to static default", zap.Error(err))
		result = stateResult{record: StaticDefault(req.Language)}
		out.State, out.Detected = StateStaticDefault, LanguageUnknown
	}

	record := ApplySafetyGate(result.record, req.Language)

	a.metrics.outcome("entry", out.State)
	span.SetAttributes(
		attribute.String("state", out.State.String()),
		attribute.String("language", string(req.Language)),
		attribute.Bool("risk", record.RiskFlags.SelfHarm || record.RiskFlags.Crisis),
	)
	logger.Debug("analysis complete", zap.Stringer("state", out.State))
	return record, out
}

type stateResult struct {
	record   AnalysisResult
	state    State
	detected Language
}

// runState executes one rung of the ladder. Cancellation and panics both count as failure.
func (a *Analyzer) runState(ctx context.Context, s State, fn func() (stateResult, error)) (res stateResult, err error) {
	if err := ctx.Err(); err != nil {
		return stateResult{}, fmt.Errorf("%s: %w", s, err)
	}
	defer func() {
		if r := recover(); r != nil {
			res, err = stateResult{}, fmt.Errorf("%s: panic: %v", s, r)
		}
	}()
	res, err = fn()
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		return stateResult{}, fmt.Errorf("%s: %w", s, err)
	}
	return res, nil
}

func (a *Analyzer) structured(ctx context.Context, req AnalysisRequest) (stateResult, error) {
	d := a.decompose(ctx, req)
	if d.generated == 0 {
		return stateResult{}, errNoGeneratedOutput
	}
	state := StateStructured
	if d.retried {
		state = StateStructuredRetry
	}
	record, detected := a.finalize(ctx, d.result, req.Language)
	return stateResult{record: record, state: state, detected: detected}, nil
}

func (a *Analyzer) singleCall(ctx context.Context, req AnalysisRequest) (stateResult, error) {
	raw, err := a.client.call(ctx, "analysis", entrySystemPrompt, composeFullPrompt(req))
	if err != nil {
		return stateResult{}, err
	}
	r, err := parseWithRepair(ctx, a.client, analysisSchema, raw, SingleCallRepairs)
	if err != nil {
		return stateResult{}, err
	}
	record, detected := a.finalize(ctx, r, req.Language)
	return stateResult{record: record, state: StateSingleCall, detected: detected}, nil
}

// finalize applies language enforcement and then strips meta labels.
func (a *Analyzer) finalize(ctx context.Context, r AnalysisResult, lang Language) (AnalysisResult, Language) {
	r, detected := a.enforcer.enforceAnalysis(ctx, r, lang)
	return stripResult(r), detected
}

func (a *Analyzer) normalizeRequest(req AnalysisRequest) AnalysisRequest {
	if lang, ok := ParseLanguage(string(req.Language)); ok {
		req.Language = lang
	} else {
		if req.Language != "" {
			a.logger.Debug("unsupported request language, using default",
				zap.String("requested", string(req.Language)),
				zap.String("default", string(a.defaultLang)),
			)
		}
		req.Language = a.defaultLang
	}
	req.Text = strings.TrimSpace(req.Text)
	req.Mood = clampScore(req.Mood)
	req.Energy = clampScore(req.Energy)
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	req.PriorEntries = recentPriorEntries(req.PriorEntries, MaxPriorEntries)
	return req
}

func clampScore(v int) int {
	return min(max(v, MinScore), MaxScore)
}

// recentPriorEntries orders prior entries most recent first and keeps at most limit.
func recentPriorEntries(prior []PriorEntry, limit int) []PriorEntry {
	if len(prior) == 0 {
		return nil
	}
	out := append([]PriorEntry(nil), prior...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

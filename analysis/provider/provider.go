package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/time/rate"
)

// Generator matches analysis.Generator.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

const (
	NameOpenAI = "openai"
	NameGroq   = "groq"
	NameGemini = "gemini"

	GroqBaseURL = "https://api.groq.com/openai/v1"

	DefaultTemperature     = 0.2
	DefaultMaxOutputTokens = 1200
)

var defaultModels = map[string]string{
	NameOpenAI: "gpt-5-mini",
	NameGroq:   "openai/gpt-oss-120b",
	NameGemini: "gemini-2.5-flash",
}

// Config selects and parameterizes a generator backend.
type Config struct {
	Provider        string
	Model           string
	BaseURL         string
	APIKey          string
	Temperature     float64
	MaxOutputTokens int
	// RequestsPerSecond paces outbound calls; zero disables pacing.
	RequestsPerSecond float64
}

func DefaultConfig() Config {
	return Config{
		Provider:        NameGroq,
		Temperature:     DefaultTemperature,
		MaxOutputTokens: DefaultMaxOutputTokens,
	}
}

func (c Config) Validate() error {
	if _, ok := defaultModels[c.Provider]; !ok {
		return fmt.Errorf("unknown provider %q (want openai, groq or gemini)", c.Provider)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return errors.New("temperature must be within [0, 2]")
	}
	if c.MaxOutputTokens <= 0 {
		return errors.New("max-output-tokens must be > 0")
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("rps must be >= 0")
	}
	return nil
}

// APIKeyEnv names the environment variable consulted when no key is configured.
func (c Config) APIKeyEnv() string {
	switch c.Provider {
	case NameGroq:
		return "GROQ_API_KEY"
	case NameGemini:
		return "GEMINI_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

func (c Config) model() string {
	if c.Model != "" {
		return c.Model
	}
	return defaultModels[c.Provider]
}

func (c Config) limiter() *rate.Limiter {
	if c.RequestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(c.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(c.RequestsPerSecond), burst)
}

// New builds the generator named by cfg.Provider.
func New(ctx context.Context, cfg Config) (Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case NameGemini:
		return NewGemini(ctx, cfg)
	case NameGroq:
		if cfg.BaseURL == "" {
			cfg.BaseURL = GroqBaseURL
		}
		return NewOpenAI(cfg)
	default:
		return NewOpenAI(cfg)
	}
}

// Kind classifies a failed provider call.
type Kind string

const (
	KindRateLimit Kind = "rate_limit"
	KindServer    Kind = "server"
	KindEmpty     Kind = "empty"
	KindOther     Kind = "other"
)

// CallError is a failed provider call with a coarse classification for logs and metrics.
type CallError struct {
	Provider string
	Kind     Kind
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Provider, e.Kind, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

func classify(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	kind := KindOther
	switch {
	case isRateLimitError(err):
		kind = KindRateLimit
	case isServerError(err):
		kind = KindServer
	}
	return &CallError{Provider: provider, Kind: kind, Err: err}
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "resource_exhausted")
}

func isServerError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "server_error")
}

package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/theimaginaryfoundation/reflect-o-bot/analysis"
	"github.com/theimaginaryfoundation/reflect-o-bot/analysis/provider"
)

type Config struct {
	EntriesDir  string
	AnalysesDir string
	OutPath     string
	DBPath      string
	ReportID    string

	// End is the last day of the window, YYYY-MM-DD in the local time zone. Empty means today.
	End      string
	Language string

	Provider        string
	Model           string
	BaseURL         string
	APIKey          string
	Temperature     float64
	MaxOutputTokens int
	RPS             float64
	CallTimeout     time.Duration

	Pretty    bool
	Overwrite bool

	LogLevel    string
	MetricsFile string
}

func (c Config) Validate() error {
	if c.EntriesDir == "" {
		return errors.New("missing -entries")
	}
	if c.AnalysesDir == "" {
		return errors.New("missing -analyses")
	}
	if _, ok := analysis.ParseLanguage(c.Language); !ok {
		return errors.New("language must be de or en")
	}
	if c.End != "" {
		if _, err := time.Parse(time.DateOnly, c.End); err != nil {
			return fmt.Errorf("-end must be YYYY-MM-DD: %w", err)
		}
	}
	if c.CallTimeout < 0 {
		return errors.New("timeout must be >= 0")
	}
	return c.providerConfig().Validate()
}

func (c Config) providerConfig() provider.Config {
	return provider.Config{
		Provider:          c.Provider,
		Model:             c.Model,
		BaseURL:           c.BaseURL,
		APIKey:            c.APIKey,
		Temperature:       c.Temperature,
		MaxOutputTokens:   c.MaxOutputTokens,
		RequestsPerSecond: c.RPS,
	}
}

// window resolves -end against now in loc.
func (c Config) window(now time.Time, loc *time.Location) analysis.Window {
	if c.End == "" {
		return analysis.WeekEnding(now.In(loc))
	}
	end, _ := time.ParseInLocation(time.DateOnly, c.End, loc)
	return analysis.WeekEnding(end)
}

func defaultConfig() Config {
	pc := provider.DefaultConfig()
	return Config{
		EntriesDir:      filepath.FromSlash("data/entries"),
		AnalysesDir:     filepath.FromSlash("data/analyses"),
		Language:        string(analysis.LanguageDE),
		Provider:        pc.Provider,
		Temperature:     pc.Temperature,
		MaxOutputTokens: pc.MaxOutputTokens,
		CallTimeout:     analysis.DefaultCallTimeout,
		LogLevel:        "info",
	}
}

package main

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/theimaginaryfoundation/reflect-o-bot/analysis"
	"github.com/theimaginaryfoundation/reflect-o-bot/analysis/provider"
)

type Config struct {
	InPath string
	OutDir string
	DBPath string

	// IndexPath is rebuilt after each run; empty means <out>/index.jsonl.
	IndexPath string
	NoIndex   bool

	Provider        string
	Model           string
	BaseURL         string
	APIKey          string
	Temperature     float64
	MaxOutputTokens int
	RPS             float64
	CallTimeout     time.Duration

	Language    string
	Concurrency int
	Sequential  bool
	MaxEntries  int

	Pretty    bool
	Overwrite bool
	Resume    bool

	LogLevel    string
	MetricsFile string
}

func (c Config) Validate() error {
	if c.InPath == "" {
		return errors.New("missing -in")
	}
	if c.OutDir == "" {
		return errors.New("missing -out")
	}
	if _, ok := analysis.ParseLanguage(c.Language); !ok {
		return errors.New("language must be de or en")
	}
	if c.Concurrency < 0 {
		return errors.New("concurrency must be >= 0")
	}
	if c.MaxEntries < 0 {
		return errors.New("max-entries must be >= 0")
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

func defaultConfig() Config {
	pc := provider.DefaultConfig()
	return Config{
		InPath:          filepath.FromSlash("data/entries"),
		OutDir:          filepath.FromSlash("data/analyses"),
		Provider:        pc.Provider,
		Temperature:     pc.Temperature,
		MaxOutputTokens: pc.MaxOutputTokens,
		CallTimeout:     analysis.DefaultCallTimeout,
		Language:        string(analysis.LanguageDE),
		Concurrency:     4,
		Resume:          true,
		LogLevel:        "info",
	}
}

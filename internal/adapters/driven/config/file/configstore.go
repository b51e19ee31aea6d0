package file

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/afiq-labs/afiq-cli/internal/core/domain"
	"github.com/afiq-labs/afiq-cli/internal/core/services"
)

// Config is the full application configuration, stored as TOML in
// ~/.afiq/config.toml. Every field has a working default so a missing or
// partial file is fine; the file only needs the values being overridden.
type Config struct {
	Pipeline PipelineSection `toml:"pipeline"`
	OpenAI   OpenAISection   `toml:"openai"`
	Chroma   ChromaSection   `toml:"chroma"`
	Store    StoreSection    `toml:"store"`
}

// PipelineSection tunes the ask pipeline.
type PipelineSection struct {
	NResults               int     `toml:"n_results"`
	MinSimilarity          float64 `toml:"min_similarity"`
	FilterMinSimilarity    float64 `toml:"filter_min_similarity"`
	ContextTokenMultiplier int     `toml:"context_token_multiplier"`
	DefaultMaxTokens       int     `toml:"default_max_tokens"`
	Model                  string  `toml:"model"`
	DefaultMode            string  `toml:"default_mode"`
	MaxExpansionDepth      int     `toml:"max_expansion_depth"`
	PenaltyStep            float64 `toml:"penalty_step"`
	PenaltyCap             float64 `toml:"penalty_cap"`
	OverfetchRatio         int     `toml:"overfetch_ratio"`
	OverfetchCap           int     `toml:"overfetch_cap"`
	ProceduralFloor        int     `toml:"procedural_floor"`
	Temperature            float64 `toml:"temperature"`
	EmbeddingCacheSize     int     `toml:"embedding_cache_size"`
	UseFilter              bool    `toml:"use_filter"`
}

// OpenAISection configures the OpenAI adapters. The API key is normally
// supplied through the OPENAI_API_KEY environment variable; the file value
// is a fallback for setups without one.
type OpenAISection struct {
	APIKey              string  `toml:"api_key"`
	BaseURL             string  `toml:"base_url"`
	EmbeddingModel      string  `toml:"embedding_model"`
	EmbeddingRPS        float64 `toml:"embedding_rps"`
	CompletionRPS       float64 `toml:"completion_rps"`
	TimeoutSeconds      int     `toml:"timeout_seconds"`
	EmbedTimeoutSeconds int     `toml:"embed_timeout_seconds"`
}

// ChromaSection configures the Chroma vector store.
type ChromaSection struct {
	BaseURL        string `toml:"base_url"`
	Collection     string `toml:"collection"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// StoreSection selects the vector store backend.
type StoreSection struct {
	// Backend is "chroma" or "sqlite".
	Backend string `toml:"backend"`

	// SQLitePath is the database file for the sqlite backend. Empty means
	// ~/.afiq/data/passages.db.
	SQLitePath string `toml:"sqlite_path"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	p := services.DefaultPipelineConfig()
	return Config{
		Pipeline: PipelineSection{
			NResults:               p.NResults,
			MinSimilarity:          p.MinSimilarity,
			FilterMinSimilarity:    p.FilterMinSimilarity,
			ContextTokenMultiplier: p.ContextTokenMultiplier,
			DefaultMaxTokens:       p.DefaultMaxTokens,
			Model:                  p.Model,
			DefaultMode:            string(p.DefaultMode),
			MaxExpansionDepth:      p.MaxExpansionDepth,
			PenaltyStep:            p.PenaltyStep,
			PenaltyCap:             p.PenaltyCap,
			OverfetchRatio:         p.OverfetchRatio,
			OverfetchCap:           p.OverfetchCap,
			ProceduralFloor:        p.ProceduralFloor,
			Temperature:            p.Temperature,
			EmbeddingCacheSize:     p.EmbeddingCacheSize,
			UseFilter:              p.UseFilter,
		},
		OpenAI: OpenAISection{
			EmbeddingModel: "text-embedding-3-small",
		},
		Chroma: ChromaSection{},
		Store: StoreSection{
			Backend: "chroma",
		},
	}
}

// DefaultConfigPath returns ~/.afiq/config.toml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".afiq", "config.toml"), nil
}

// LoadConfig reads the configuration file at path, applying it over the
// defaults. If path is empty it defaults to ~/.afiq/config.toml. A missing
// file is not an error; the defaults are returned.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return cfg, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	// Unmarshalling into the defaults leaves absent keys at their default
	// values.
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path with restricted permissions,
// creating the directory if needed. An empty path means the default
// location.
func (c Config) Save(path string) error {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// PipelineConfig maps the pipeline section onto the service configuration.
func (c Config) PipelineConfig() services.PipelineConfig {
	return services.PipelineConfig{
		NResults:               c.Pipeline.NResults,
		MinSimilarity:          c.Pipeline.MinSimilarity,
		FilterMinSimilarity:    c.Pipeline.FilterMinSimilarity,
		ContextTokenMultiplier: c.Pipeline.ContextTokenMultiplier,
		DefaultMaxTokens:       c.Pipeline.DefaultMaxTokens,
		Model:                  c.Pipeline.Model,
		DefaultMode:            domain.AnswerMode(c.Pipeline.DefaultMode),
		MaxExpansionDepth:      c.Pipeline.MaxExpansionDepth,
		PenaltyStep:            c.Pipeline.PenaltyStep,
		PenaltyCap:             c.Pipeline.PenaltyCap,
		OverfetchRatio:         c.Pipeline.OverfetchRatio,
		OverfetchCap:           c.Pipeline.OverfetchCap,
		ProceduralFloor:        c.Pipeline.ProceduralFloor,
		Temperature:            c.Pipeline.Temperature,
		EmbeddingCacheSize:     c.Pipeline.EmbeddingCacheSize,
		UseFilter:              c.Pipeline.UseFilter,
	}
}

// OpenAITimeout returns the configured completion timeout, or zero to let
// the adapter default apply.
func (c Config) OpenAITimeout() time.Duration {
	return time.Duration(c.OpenAI.TimeoutSeconds) * time.Second
}

// EmbedTimeout returns the configured embedding timeout, or zero to let
// the adapter default apply.
func (c Config) EmbedTimeout() time.Duration {
	return time.Duration(c.OpenAI.EmbedTimeoutSeconds) * time.Second
}

// ChromaTimeout returns the configured Chroma timeout, or zero to let the
// adapter default apply.
func (c Config) ChromaTimeout() time.Duration {
	return time.Duration(c.Chroma.TimeoutSeconds) * time.Second
}

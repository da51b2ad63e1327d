package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/openheritage/taglens/pkg/taglens/internalerr"
)

// Config holds everything the pipeline stages need. It is loaded once by each
// entry point and passed down explicitly; loading has no side effects beyond
// reading files and the environment.
type Config struct {
	Library struct {
		ID       string `yaml:"id"`
		Type     string `yaml:"type"`
		PageSize int    `yaml:"page_size"`
	} `yaml:"library"`

	Analysis struct {
		SimilarityThreshold int `yaml:"similarity_threshold"`
		GraphTopTags        int `yaml:"graph_top_tags"`
		GraphMinWeight      int `yaml:"graph_min_weight"`
	} `yaml:"analysis"`

	Paths struct {
		DataDir    string `yaml:"data_dir"`
		ReportsDir string `yaml:"reports_dir"`
		ArchiveDB  string `yaml:"archive_db"`
	} `yaml:"paths"`

	// APIKey comes from the environment, never from the YAML file.
	APIKey string `yaml:"-"`
}

// Load reads the YAML config at path, overlays credentials from the
// environment (a .env file next to the config is honoured if present) and
// validates the result. The read-only key is preferred; the legacy
// ZOTERO_API_KEY works as a fallback.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	// Best effort: a missing .env is fine, the variables may already be set.
	_ = godotenv.Load()

	cfg.APIKey = os.Getenv("ZOTERO_API_KEY_READONLY")
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("ZOTERO_API_KEY")
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Library.Type == "" {
		cfg.Library.Type = "group"
	}
	if cfg.Library.PageSize <= 0 {
		cfg.Library.PageSize = 100
	}
	if cfg.Analysis.SimilarityThreshold <= 0 {
		cfg.Analysis.SimilarityThreshold = 80
	}
	if cfg.Analysis.GraphTopTags <= 0 {
		cfg.Analysis.GraphTopTags = 30
	}
	if cfg.Analysis.GraphMinWeight <= 0 {
		cfg.Analysis.GraphMinWeight = 3
	}
	if cfg.Paths.DataDir == "" {
		cfg.Paths.DataDir = "data"
	}
	if cfg.Paths.ReportsDir == "" {
		cfg.Paths.ReportsDir = "reports"
	}
	if cfg.Paths.ArchiveDB == "" {
		cfg.Paths.ArchiveDB = "data/runs.db"
	}
}

func validate(cfg *Config) error {
	if cfg.Library.ID == "" {
		return fmt.Errorf("%w: library.id is required", internalerr.ErrInvalidConfig)
	}
	if cfg.Library.Type != "group" && cfg.Library.Type != "user" {
		return fmt.Errorf("%w: library.type must be group or user, got %q",
			internalerr.ErrInvalidConfig, cfg.Library.Type)
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("%w: no API key found, set ZOTERO_API_KEY_READONLY or ZOTERO_API_KEY",
			internalerr.ErrInvalidConfig)
	}
	if cfg.Analysis.SimilarityThreshold > 100 {
		return fmt.Errorf("%w: analysis.similarity_threshold must be 0-100, got %d",
			internalerr.ErrInvalidConfig, cfg.Analysis.SimilarityThreshold)
	}
	return nil
}

// EnsureDirs creates the configured output directories. Called by the entry
// points after Load, never during Load itself.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.ReportsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

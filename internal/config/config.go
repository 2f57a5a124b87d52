// Package config provides configuration loading and structs for the postsearch server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug    bool                     `yaml:"debug"`
	Server   ServerConfig             `yaml:"server"`
	Storage  StorageConfig            `yaml:"storage"`
	Corpus   CorpusConfig             `yaml:"corpus"`
	Search   SearchConfig             `yaml:"search"`
	Analysis AnalysisConfig           `yaml:"analysis"`
	Profiles map[string]ProfileConfig `yaml:"profiles,omitempty"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the index directory and the build catalog path.
type StorageConfig struct {
	IndexDir    string `yaml:"index_dir"`
	CatalogPath string `yaml:"catalog_path"`
}

// CorpusConfig says where posts are read from.
type CorpusConfig struct {
	Directory  string   `yaml:"directory"`
	Extensions []string `yaml:"extensions"`
	// Watch rebuilds the index when corpus files change.
	Watch bool `yaml:"watch"`
	// RebuildOnStart rebuilds the index when the server starts; defaults to true when unset.
	RebuildOnStart *bool `yaml:"rebuild_on_start,omitempty"`
}

// RebuildOnStartOrDefault returns whether to rebuild at server start; defaults to true when unset.
func (c *CorpusConfig) RebuildOnStartOrDefault() bool {
	if c.RebuildOnStart != nil {
		return *c.RebuildOnStart
	}
	return true
}

// SearchConfig holds retrieval and ranking limits.
type SearchConfig struct {
	CandidateLimit    int    `yaml:"candidate_limit"`
	ResultLimit       int    `yaml:"result_limit"`
	MaxCandidateLimit int    `yaml:"max_candidate_limit"`
	MaxQueryTerms     int    `yaml:"max_query_terms"`
	CacheSize         int    `yaml:"cache_size"`
	DefaultProfile    string `yaml:"default_profile"`
	// Suggestions enables "did you mean" queries when nothing matches.
	Suggestions *bool `yaml:"suggestions,omitempty"`
}

// SuggestionsOrDefault returns whether suggestions are enabled; defaults to true when unset.
func (s *SearchConfig) SuggestionsOrDefault() bool {
	if s.Suggestions != nil {
		return *s.Suggestions
	}
	return true
}

// AnalysisConfig overrides the text analyzer. A nil StopWords keeps the English list; an
// empty list disables stop-word removal.
type AnalysisConfig struct {
	StopWords     []string          `yaml:"stop_words,omitempty"`
	FieldPolicies map[string]string `yaml:"field_policies,omitempty"`
}

// ProfileConfig is a custom weight profile.
type ProfileConfig struct {
	UpvoteWeight    float64 `yaml:"upvote_weight"`
	TimeWeight      float64 `yaml:"time_weight"`
	RelevanceWeight float64 `yaml:"relevance_weight"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.IndexDir = expandPath(cfg.Storage.IndexDir, configDir)
	if cfg.Storage.CatalogPath != ":memory:" {
		cfg.Storage.CatalogPath = expandPath(cfg.Storage.CatalogPath, configDir)
	}
	if cfg.Corpus.Directory != "" {
		cfg.Corpus.Directory = expandPath(cfg.Corpus.Directory, configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks limits and profile weights.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d", c.Server.Port)
	}
	if c.Search.ResultLimit > c.Search.MaxCandidateLimit {
		return fmt.Errorf("search.result_limit (%d) exceeds search.max_candidate_limit (%d)",
			c.Search.ResultLimit, c.Search.MaxCandidateLimit)
	}
	for name, p := range c.Profiles {
		for _, w := range []float64{p.UpvoteWeight, p.TimeWeight, p.RelevanceWeight} {
			if w < 0 || w > 1 {
				return fmt.Errorf("profiles.%s: weights must be within [0, 1]", name)
			}
		}
	}
	for field, policy := range c.Analysis.FieldPolicies {
		switch strings.ToLower(strings.TrimSpace(policy)) {
		case "tokenized", "text", "stored", "stored-only", "keyword":
		default:
			return fmt.Errorf("analysis.field_policies.%s: unknown policy %q", field, policy)
		}
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

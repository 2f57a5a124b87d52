package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.IndexDir == "" {
		cfg.Storage.IndexDir = "/usr/local/var/postsearch/data/index"
	}
	if cfg.Storage.CatalogPath == "" {
		cfg.Storage.CatalogPath = "/usr/local/var/postsearch/data/catalog.db"
	}
	if cfg.Corpus.Extensions == nil {
		cfg.Corpus.Extensions = []string{".json"}
	}
	if cfg.Search.CandidateLimit == 0 {
		cfg.Search.CandidateLimit = 100
	}
	if cfg.Search.ResultLimit == 0 {
		cfg.Search.ResultLimit = 10
	}
	if cfg.Search.MaxCandidateLimit == 0 {
		cfg.Search.MaxCandidateLimit = 1000
	}
	if cfg.Search.MaxQueryTerms == 0 {
		cfg.Search.MaxQueryTerms = 32
	}
	if cfg.Search.CacheSize == 0 {
		cfg.Search.CacheSize = 4096
	}
	if cfg.Search.DefaultProfile == "" {
		cfg.Search.DefaultProfile = "relevance"
	}
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

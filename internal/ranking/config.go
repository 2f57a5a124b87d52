package ranking

import "fmt"

// FieldWeight is the share of a field's similarity in the relevance score.
type FieldWeight struct {
	Field  string  `yaml:"field"`
	Weight float64 `yaml:"weight"`
}

// RankingConfig holds all configuration for the re-ranking stage.
type RankingConfig struct {
	// FieldWeights lists the fields compared against the query, in order.
	FieldWeights []FieldWeight `yaml:"field_weights"` // default: title 0.2, body 0.7, comments 0.1

	// Recency: time_score = floor(TimeScoreScale / (age_days/TimeDecayDays + 1))
	TimeScoreScale float64 `yaml:"time_score_scale"` // default: 100
	TimeDecayDays  float64 `yaml:"time_decay_days"`  // default: 30

	// Popularity: upvote_score = upvotes / UpvoteScale
	UpvoteScale float64 `yaml:"upvote_scale"` // default: 1000

	ResultLimit int `yaml:"result_limit"` // default: 10
	CacheSize   int `yaml:"cache_size"`   // default: 4096
}

// DefaultFieldWeights returns the title, body and comments similarity weights.
func DefaultFieldWeights() []FieldWeight {
	return []FieldWeight{
		{Field: "title", Weight: 0.2},
		{Field: "body", Weight: 0.7},
		{Field: "comments", Weight: 0.1},
	}
}

// DefaultRankingConfig returns the default ranking configuration.
func DefaultRankingConfig() *RankingConfig {
	return &RankingConfig{
		FieldWeights:   DefaultFieldWeights(),
		TimeScoreScale: 100,
		TimeDecayDays:  30,
		UpvoteScale:    1000,
		ResultLimit:    10,
		CacheSize:      4096,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *RankingConfig) ApplyDefaults() {
	defaults := DefaultRankingConfig()

	if len(c.FieldWeights) == 0 {
		c.FieldWeights = defaults.FieldWeights
	}
	if c.TimeScoreScale == 0 {
		c.TimeScoreScale = defaults.TimeScoreScale
	}
	if c.TimeDecayDays == 0 {
		c.TimeDecayDays = defaults.TimeDecayDays
	}
	if c.UpvoteScale == 0 {
		c.UpvoteScale = defaults.UpvoteScale
	}
	if c.ResultLimit == 0 {
		c.ResultLimit = defaults.ResultLimit
	}
	if c.CacheSize == 0 {
		c.CacheSize = defaults.CacheSize
	}
}

// Validate rejects settings that would flip or break the score formulas. It expects
// defaults to have been applied. A negative CacheSize is allowed and disables caching.
func (c *RankingConfig) Validate() error {
	positive := []struct {
		name  string
		value float64
	}{
		{"time_score_scale", c.TimeScoreScale},
		{"time_decay_days", c.TimeDecayDays},
		{"upvote_scale", c.UpvoteScale},
		{"result_limit", float64(c.ResultLimit)},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("ranking: %s must be positive, got %v", p.name, p.value)
		}
	}
	for _, fw := range c.FieldWeights {
		if fw.Field == "" {
			return fmt.Errorf("ranking: field weight has no field name")
		}
		if fw.Weight < 0 || fw.Weight > 1 {
			return fmt.Errorf("ranking: weight for field %q must be within [0, 1], got %v", fw.Field, fw.Weight)
		}
	}
	return nil
}

// Package ranking re-ranks lexical candidates by fusing relevance, recency and popularity
// under a weight profile.
package ranking

import (
	"sort"
	"time"

	apperrors "github.com/ezpogue/IRProjectPhase2/internal/errors"
	"github.com/ezpogue/IRProjectPhase2/internal/models"
)

// Ranker fuses the scores of retrieved candidates. It is safe for concurrent use.
type Ranker struct {
	config        *RankingConfig
	contentScorer *ContentScorer
}

// NewRanker creates a new Ranker from a copy of config with defaults applied. A nil config
// uses DefaultRankingConfig. It fails when a scale, decay or limit is not positive.
func NewRanker(counter TermCounter, config *RankingConfig) (*Ranker, error) {
	cfg := *DefaultRankingConfig()
	if config != nil {
		cfg = *config
		cfg.FieldWeights = append([]FieldWeight(nil), config.FieldWeights...)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Ranker{
		config:        &cfg,
		contentScorer: NewContentScorer(counter, &cfg),
	}, nil
}

// Config returns the ranker's configuration.
func (r *Ranker) Config() RankingConfig {
	cfg := *r.config
	cfg.FieldWeights = append([]FieldWeight(nil), r.config.FieldWeights...)
	return cfg
}

// Rank scores candidates for query under profile and returns at most ResultLimit results,
// best first. Equal scores keep retrieval order. A candidate with an unparsable
// timestamp fails the whole call with InvalidTimestamp.
func (r *Ranker) Rank(candidates []*models.Candidate, query string, profile WeightProfile, now time.Time) ([]*models.ScoredResult, error) {
	results := make([]*models.ScoredResult, 0, len(candidates))
	if len(candidates) == 0 {
		return results, nil
	}
	qv := r.contentScorer.queryVector(query)

	for _, c := range candidates {
		posted, err := models.ParseTimestamp(c.Timestamp)
		if err != nil {
			return nil, apperrors.NewInvalidTimestampError(c.ID, c.Timestamp, err)
		}
		relevance := c.LexicalScore + r.contentScorer.Score(c, query, qv)
		timeScore := TimeScore(posted, now, r.config.TimeScoreScale, r.config.TimeDecayDays)
		upvoteScore := UpvoteScore(c.Upvotes, r.config.UpvoteScale)

		final := upvoteScore*profile.UpvoteWeight +
			timeScore*profile.TimeWeight +
			relevance*profile.RelevanceWeight

		results = append(results, &models.ScoredResult{
			Candidate:      *c,
			Score:          round3(final),
			RelevanceScore: relevance,
			TimeScore:      timeScore,
			UpvoteScore:    upvoteScore,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > r.config.ResultLimit {
		results = results[:r.config.ResultLimit]
	}
	for i, res := range results {
		res.Rank = i + 1
	}
	return results, nil
}

// Invalidate drops cached field vectors, e.g. after a rebuild.
func (r *Ranker) Invalidate() {
	r.contentScorer.Purge()
}

// Package search answers post queries: lexical retrieval from the keyword index followed by
// re-ranking under a weight profile.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ezpogue/IRProjectPhase2/internal/config"
	apperrors "github.com/ezpogue/IRProjectPhase2/internal/errors"
	"github.com/ezpogue/IRProjectPhase2/internal/keyword"
	"github.com/ezpogue/IRProjectPhase2/internal/models"
	"github.com/ezpogue/IRProjectPhase2/internal/ranking"
	"github.com/ezpogue/IRProjectPhase2/internal/storage"
)

// Engine wires the keyword index, the ranker and the weight profiles together.
// It is safe for concurrent use; Rebuild may run while searches are in flight.
type Engine struct {
	index    *keyword.Index
	ranker   *ranking.Ranker
	profiles *ranking.Profiles
	config   *config.SearchConfig
	spell    *keyword.SpellChecker
	catalog  storage.Catalog
	loader   CorpusLoader
	corpus   string
	metrics  *Metrics
	logger   *zap.Logger
	clock    func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics records search and build metrics on m.
func WithMetrics(m *Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithClock overrides the time source used for recency scoring.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.clock = now
		}
	}
}

// WithSpellChecker enables "did you mean" suggestions for queries that match nothing.
func WithSpellChecker(s *keyword.SpellChecker) EngineOption {
	return func(e *Engine) { e.spell = s }
}

// WithCatalog lets the engine list past builds.
func WithCatalog(c storage.Catalog) EngineOption {
	return func(e *Engine) { e.catalog = c }
}

// CorpusLoader reads every post record under a directory.
type CorpusLoader interface {
	Load(ctx context.Context, dir string) ([]models.PostRecord, error)
}

// ErrNoCorpus is returned by Reload when the engine has no corpus directory.
var ErrNoCorpus = errors.New("no corpus directory configured")

// WithCorpus lets Reload rebuild the index from the posts under dir.
func WithCorpus(loader CorpusLoader, dir string) EngineOption {
	return func(e *Engine) {
		e.loader = loader
		e.corpus = dir
	}
}

// NewEngine creates a new search engine. A nil cfg uses the default search limits.
func NewEngine(index *keyword.Index, ranker *ranking.Ranker, profiles *ranking.Profiles, cfg *config.SearchConfig, opts ...EngineOption) *Engine {
	if cfg == nil {
		cfg = &config.DefaultConfig().Search
	}
	if profiles == nil {
		profiles = ranking.DefaultProfiles()
	}
	e := &Engine{
		index:    index,
		ranker:   ranker,
		profiles: profiles,
		config:   cfg,
		logger:   zap.NewNop(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search runs query against the served index generation and returns ranked results.
// The profile is resolved before the index is touched, so an unknown profile fails with
// UnknownWeightProfile even when no index is available.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	start := time.Now()
	if query == nil {
		query = &models.SearchQuery{}
	}
	query.Normalize(e.config.DefaultProfile, e.config.CandidateLimit, e.config.ResultLimit, e.config.MaxCandidateLimit)

	resp, err := e.search(ctx, query)
	elapsed := time.Since(start)
	if err != nil {
		e.metrics.ObserveSearch(OutcomeError, elapsed.Seconds(), 0)
		e.logger.Debug("search failed",
			zap.String("query", query.Query),
			zap.String("profile", query.Profile),
			zap.Error(err))
		return nil, err
	}
	resp.QueryTime = elapsed.Milliseconds()

	outcome := OutcomeOK
	if len(resp.Results) == 0 {
		outcome = OutcomeEmpty
	}
	e.metrics.ObserveSearch(outcome, elapsed.Seconds(), resp.Candidates)
	e.logger.Debug("search completed",
		zap.String("query", query.Query),
		zap.String("profile", resp.Profile),
		zap.Int("candidates", resp.Candidates),
		zap.Int("results", len(resp.Results)),
		zap.Duration("elapsed", elapsed))
	return resp, nil
}

func (e *Engine) search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	profile, err := e.profiles.Lookup(query.Profile)
	if err != nil {
		return nil, err
	}

	candidates, err := e.index.Retrieve(ctx, query.Query, query.CandidateLimit)
	if err != nil {
		return nil, err
	}

	results, err := e.ranker.Rank(candidates, query.Query, profile, e.clock())
	if err != nil {
		return nil, err
	}
	if len(results) > query.Limit {
		results = results[:query.Limit]
	}

	// A rebuild may have swapped generations since retrieval; report the one searched.
	generation := e.index.Generation()
	if len(candidates) > 0 {
		generation = candidates[0].Generation
	}
	resp := &models.SearchResponse{
		Query:      query.Query,
		Profile:    profile.Name,
		Results:    results,
		Candidates: len(candidates),
		Generation: generation,
	}
	if len(candidates) == 0 && query.Query != "" && e.spell != nil {
		if corrected, ok := e.spell.SuggestQuery(query.Query); ok {
			resp.Suggestions = []string{corrected}
		}
	}
	return resp, nil
}

// Rebuild indexes records as a new generation and serves it once committed. On failure
// the previous generation keeps serving and the error is returned.
func (e *Engine) Rebuild(ctx context.Context, records []models.PostRecord) (*keyword.BuildResult, error) {
	start := time.Now()
	result, err := e.index.Build(ctx, records)
	if err != nil {
		e.metrics.ObserveBuild(BuildFailed, time.Since(start).Seconds(), 0)
		e.logger.Warn("index rebuild failed; previous generation still served",
			zap.Int("records", len(records)),
			zap.String("generation", e.index.Generation()),
			zap.Error(err))
		return nil, err
	}

	e.ranker.Invalidate()
	if e.spell != nil {
		e.spell.Invalidate()
	}
	e.metrics.ObserveBuild(BuildCommitted, result.Duration.Seconds(), result.Documents)
	e.logger.Info("index rebuilt",
		zap.String("generation", result.Generation),
		zap.String("previous", result.Previous),
		zap.Int("documents", result.Documents),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// Reload reads the corpus directory and rebuilds the index from it. A load failure
// leaves the served generation untouched.
func (e *Engine) Reload(ctx context.Context) (*keyword.BuildResult, error) {
	if e.loader == nil || e.corpus == "" {
		return nil, ErrNoCorpus
	}
	records, err := e.loader.Load(ctx, e.corpus)
	if err != nil {
		e.metrics.ObserveBuild(BuildFailed, 0, 0)
		e.logger.Warn("corpus load failed; previous generation still served",
			zap.String("corpus", e.corpus),
			zap.Error(err))
		return nil, err
	}
	return e.Rebuild(ctx, records)
}

// Status describes the served generation. An index with no committed generation is
// reported as unavailable rather than as an error.
func (e *Engine) Status(ctx context.Context) (*models.IndexStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := e.index.Info()
	if err != nil {
		if errors.Is(err, apperrors.ErrIndexUnavailable) {
			return &models.IndexStatus{Available: false}, nil
		}
		return nil, err
	}
	status := &models.IndexStatus{
		Generation:  info.Generation,
		Path:        info.Path,
		Documents:   info.Documents,
		CommittedAt: info.CommittedAt,
		Available:   true,
	}
	var catalogPath string
	if p, ok := e.catalog.(interface{ Path() string }); ok {
		catalogPath = p.Path()
	}
	if u, err := storage.MeasureUsage(info.Path, catalogPath); err == nil {
		total := u.Total()
		status.DiskUsageBytes = &total
		status.StaleBytes = u.StaleBytes
	} else {
		e.logger.Debug("disk usage unavailable", zap.String("path", info.Path), zap.Error(err))
	}
	e.metrics.SetIndexDocuments(info.Documents)
	return status, nil
}

// Builds lists the most recent index builds, newest first.
func (e *Engine) Builds(ctx context.Context, limit int) ([]*storage.Build, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("build catalog not configured")
	}
	return e.catalog.ListBuilds(ctx, limit)
}

// Profiles returns the known weight profiles sorted by name.
func (e *Engine) Profiles() []ranking.WeightProfile {
	return e.profiles.List()
}

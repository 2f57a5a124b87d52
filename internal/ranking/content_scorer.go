package ranking

import (
	"math"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ezpogue/IRProjectPhase2/internal/models"
)

// TermCounter turns text into term frequencies. *analysis.Analyzer implements it.
type TermCounter interface {
	TermFrequencies(text string) map[string]int
}

// termVector is a term-frequency vector with its precomputed Euclidean norm.
type termVector struct {
	tf   map[string]int
	norm float64
}

func newTermVector(tf map[string]int) termVector {
	keys := make([]string, 0, len(tf))
	for k := range tf {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sum float64
	for _, k := range keys {
		v := float64(tf[k])
		sum += v * v
	}
	return termVector{tf: tf, norm: math.Sqrt(sum)}
}

// cosine returns the cosine similarity of q and d. Terms are visited in sorted order so
// the floating-point sum is identical across runs.
func cosine(q, d termVector) float64 {
	if q.norm == 0 || d.norm == 0 {
		return 0
	}
	keys := make([]string, 0, len(q.tf))
	for k := range q.tf {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var dot float64
	for _, k := range keys {
		if dv, ok := d.tf[k]; ok {
			dot += float64(q.tf[k]) * float64(dv)
		}
	}
	return dot / (q.norm * d.norm)
}

// ContentScorer scores how closely a candidate's fields match the query text.
//
// A field contributes only when the lower-cased query occurs verbatim in the lower-cased
// field; its contribution is weight * cosine(query, field) * lexical score. Field vectors
// are cached per generation, post and field.
type ContentScorer struct {
	counter TermCounter
	weights []FieldWeight
	cache   *lru.Cache[string, termVector]
}

// NewContentScorer creates a ContentScorer. A cacheSize <= 0 disables caching.
func NewContentScorer(counter TermCounter, config *RankingConfig) *ContentScorer {
	s := &ContentScorer{counter: counter, weights: config.FieldWeights}
	if config.CacheSize > 0 {
		s.cache, _ = lru.New[string, termVector](config.CacheSize)
	}
	return s
}

// queryVector analyzes the query once per ranking call.
func (s *ContentScorer) queryVector(query string) termVector {
	return newTermVector(s.counter.TermFrequencies(query))
}

// Score returns the field-similarity part of the relevance score (excluding the lexical
// score itself).
func (s *ContentScorer) Score(c *models.Candidate, query string, qv termVector) float64 {
	lowerQuery := strings.ToLower(query)
	var total float64
	for _, fw := range s.weights {
		text := fieldText(c, fw.Field)
		if text == "" || !strings.Contains(strings.ToLower(text), lowerQuery) {
			continue
		}
		total += fw.Weight * cosine(qv, s.fieldVector(c, fw.Field, text)) * c.LexicalScore
	}
	return total
}

func (s *ContentScorer) fieldVector(c *models.Candidate, field, text string) termVector {
	if s.cache == nil || c.Generation == "" || c.ID == "" {
		return newTermVector(s.counter.TermFrequencies(text))
	}
	key := c.Generation + "\x00" + c.ID + "\x00" + field
	if v, ok := s.cache.Get(key); ok {
		return v
	}
	v := newTermVector(s.counter.TermFrequencies(text))
	s.cache.Add(key, v)
	return v
}

// Purge empties the field vector cache.
func (s *ContentScorer) Purge() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

// CacheLen returns the number of cached field vectors.
func (s *ContentScorer) CacheLen() int {
	if s.cache == nil {
		return 0
	}
	return s.cache.Len()
}

func fieldText(c *models.Candidate, field string) string {
	switch field {
	case "title":
		return c.Title
	case "body":
		return c.Body
	case "comments":
		return c.Comments
	case "author":
		return c.Author
	default:
		return ""
	}
}

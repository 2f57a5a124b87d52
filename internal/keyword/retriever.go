package keyword

import (
	"context"
	"fmt"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"

	"github.com/ezpogue/IRProjectPhase2/internal/analysis"
	"github.com/ezpogue/IRProjectPhase2/internal/models"
)

// FieldBoost is the query-time boost of a tokenized field.
type FieldBoost struct {
	Field string
	Boost float64
}

// QueryFieldBoosts are the per-field boosts applied to every query term.
var QueryFieldBoosts = []FieldBoost{
	{Field: analysis.FieldTitle, Boost: 0.5},
	{Field: analysis.FieldBody, Boost: 0.4},
	{Field: analysis.FieldComments, Boost: 0.1},
}

// storedFields are loaded for every hit.
var storedFields = []string{
	analysis.FieldID,
	analysis.FieldAuthor,
	analysis.FieldTitle,
	analysis.FieldBody,
	analysis.FieldComments,
	analysis.FieldTimestamp,
	analysis.FieldUpvotes,
	analysis.FieldRatio,
	analysis.FieldPermalink,
	analysis.FieldURL,
	analysis.FieldTextURLs,
}

// BuildQuery returns the disjunction of one boosted term query per term and query field.
// It returns nil when terms is empty.
func (x *Index) BuildQuery(terms []string) blevequery.Query {
	if len(terms) == 0 {
		return nil
	}
	policies := x.analyzer.Policies()
	clauses := make([]blevequery.Query, 0, len(terms)*len(QueryFieldBoosts))
	for _, term := range terms {
		for _, fb := range QueryFieldBoosts {
			if policies.Policy(fb.Field) != analysis.Tokenized {
				continue
			}
			tq := bleve.NewTermQuery(term)
			tq.SetField(fb.Field)
			tq.SetBoost(fb.Boost)
			clauses = append(clauses, tq)
		}
	}
	if len(clauses) == 0 {
		return nil
	}
	dq := bleve.NewDisjunctionQuery(clauses...)
	dq.SetMin(1)
	return dq
}

// Retrieve returns up to limit candidates for query in descending lexical-score order.
// Ties are ordered by post id. A query with no terms after analysis returns an empty
// slice, even when no generation is served. Otherwise, without a committed generation it
// fails with IndexUnavailable.
func (x *Index) Retrieve(ctx context.Context, query string, limit int) ([]*models.Candidate, error) {
	terms := x.analyzer.QueryTerms(query)
	if len(terms) > x.maxQueryTerms {
		x.logger.Debug("Query terms capped",
			zap.Int("terms", len(terms)),
			zap.Int("max", x.maxQueryTerms))
		terms = terms[:x.maxQueryTerms]
	}
	q := x.BuildQuery(terms)
	if q == nil || limit <= 0 {
		return []*models.Candidate{}, nil
	}

	gen, release, err := x.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = storedFields
	req.SortBy([]string{"-_score", "_id"})
	res, err := gen.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	out := make([]*models.Candidate, 0, len(res.Hits))
	for _, hit := range res.Hits {
		c := candidateFromFields(hit.Fields)
		if c.ID == "" {
			c.ID = hit.ID
		}
		c.LexicalScore = hit.Score
		c.Generation = gen.id
		out = append(out, c)
	}
	x.logger.Debug("Retrieved candidates",
		zap.String("generation", gen.id),
		zap.Int("terms", len(terms)),
		zap.Int("hits", len(out)),
		zap.Uint64("total", res.Total))
	return out, nil
}

func candidateFromFields(fields map[string]interface{}) *models.Candidate {
	ratio, _ := strconv.ParseFloat(fieldString(fields, analysis.FieldRatio), 64)
	return &models.Candidate{
		ID:        fieldString(fields, analysis.FieldID),
		Author:    fieldString(fields, analysis.FieldAuthor),
		Title:     fieldString(fields, analysis.FieldTitle),
		Body:      fieldString(fields, analysis.FieldBody),
		Comments:  fieldString(fields, analysis.FieldComments),
		Timestamp: fieldString(fields, analysis.FieldTimestamp),
		Upvotes:   models.ParseCount(fieldString(fields, analysis.FieldUpvotes)),
		Ratio:     ratio,
		Permalink: fieldString(fields, analysis.FieldPermalink),
		URL:       fieldString(fields, analysis.FieldURL),
		TextURLs:  models.DecodeTextURLs(fieldString(fields, analysis.FieldTextURLs)),
	}
}

// fieldString returns a stored field as a string. Bleve returns a slice when a field
// holds several values; the first one is used.
func fieldString(fields map[string]interface{}, name string) string {
	switch v := fields[name].(type) {
	case string:
		return v
	case []interface{}:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// Package analysis tokenizes and normalizes post text and defines per-field index policy.
package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	bleveanalysis "github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/stop"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/analysis/tokenmap"
	"github.com/blevesearch/bleve/v2/mapping"
)

const (
	// AnalyzerName is the name the post analyzer is registered under in index mappings.
	AnalyzerName = "post_text"

	customStopMapName    = "post_stop_words"
	customStopFilterName = "post_stop"
)

// tokenStreamer is satisfied by bleve analyzers.
type tokenStreamer interface {
	Analyze([]byte) bleveanalysis.TokenStream
}

// Analyzer lower-cases, splits on whitespace and punctuation (Unicode word boundaries), and
// drops stop words. The same instance is used to build the index and to extract query terms.
type Analyzer struct {
	stopWords    []string
	disableStops bool
	policies     Policies
	analyzer     tokenStreamer
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithStopWords replaces the built-in English stop list with words.
func WithStopWords(words []string) Option {
	return func(a *Analyzer) {
		a.stopWords = append([]string(nil), words...)
	}
}

// WithoutStopWords disables stop-word filtering.
func WithoutStopWords() Option {
	return func(a *Analyzer) { a.disableStops = true }
}

// WithPolicies overrides field policies; fields not in p keep their default policy.
func WithPolicies(p Policies) Option {
	return func(a *Analyzer) {
		for field, policy := range p {
			a.policies[field] = policy
		}
	}
}

// New creates an Analyzer. The English stop list is used unless overridden.
func New(opts ...Option) (*Analyzer, error) {
	a := &Analyzer{policies: DefaultPolicies()}
	for _, opt := range opts {
		opt(a)
	}
	im := bleve.NewIndexMapping()
	if err := a.Register(im); err != nil {
		return nil, err
	}
	az := im.AnalyzerNamed(AnalyzerName)
	if az == nil {
		return nil, fmt.Errorf("analyzer %q not registered", AnalyzerName)
	}
	a.analyzer = az
	return a, nil
}

// Register defines the post analyzer (and its stop filter, if custom) on im so the index
// mapping, and therefore a reopened index, analyzes text exactly as this Analyzer does.
func (a *Analyzer) Register(im *mapping.IndexMappingImpl) error {
	filters := []string{lowercase.Name}
	switch {
	case a.disableStops:
	case a.stopWords != nil:
		tokens := make([]interface{}, 0, len(a.stopWords))
		for _, w := range a.stopWords {
			if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
				tokens = append(tokens, w)
			}
		}
		if err := im.AddCustomTokenMap(customStopMapName, map[string]interface{}{
			"type":   tokenmap.Name,
			"tokens": tokens,
		}); err != nil {
			return fmt.Errorf("failed to add stop word map: %w", err)
		}
		if err := im.AddCustomTokenFilter(customStopFilterName, map[string]interface{}{
			"type":           stop.Name,
			"stop_token_map": customStopMapName,
		}); err != nil {
			return fmt.Errorf("failed to add stop filter: %w", err)
		}
		filters = append(filters, customStopFilterName)
	default:
		filters = append(filters, en.StopName)
	}
	err := im.AddCustomAnalyzer(AnalyzerName, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": filters,
	})
	if err != nil {
		return fmt.Errorf("failed to add custom analyzer: %w", err)
	}
	return nil
}

// Policies returns a copy of the field policy table.
func (a *Analyzer) Policies() Policies {
	out := make(Policies, len(a.policies))
	for k, v := range a.policies {
		out[k] = v
	}
	return out
}

// Tokens returns the normalized tokens of text in order.
func (a *Analyzer) Tokens(text string) []string {
	if text == "" {
		return nil
	}
	stream := a.analyzer.Analyze([]byte(text))
	out := make([]string, 0, len(stream))
	for _, tok := range stream {
		out = append(out, string(tok.Term))
	}
	return out
}

// TermFrequencies returns term -> occurrence count for text.
func (a *Analyzer) TermFrequencies(text string) map[string]int {
	tf := make(map[string]int)
	for _, tok := range a.Tokens(text) {
		tf[tok]++
	}
	return tf
}

// QueryTerms splits query on whitespace and normalizes each piece. Pieces that analyze to
// nothing (stop words, punctuation) are dropped. Repeated terms are kept, so a word typed
// twice weighs twice in the disjunction.
func (a *Analyzer) QueryTerms(query string) []string {
	var terms []string
	for _, piece := range strings.Fields(query) {
		terms = append(terms, a.Tokens(piece)...)
	}
	return terms
}

// FieldPolicy says how a field participates in the index.
type FieldPolicy int

const (
	// StoredOnly fields are kept verbatim and never matched by term queries.
	StoredOnly FieldPolicy = iota
	// Tokenized fields are analyzed with positions and are also stored.
	Tokenized
)

func (p FieldPolicy) String() string {
	if p == Tokenized {
		return "tokenized"
	}
	return "stored"
}

// ParseFieldPolicy parses "tokenized" or "stored".
func ParseFieldPolicy(s string) (FieldPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tokenized", "text":
		return Tokenized, nil
	case "stored", "stored-only", "keyword":
		return StoredOnly, nil
	default:
		return StoredOnly, fmt.Errorf("unknown field policy %q", s)
	}
}

// Policies maps field name to policy.
type Policies map[string]FieldPolicy

// Field names of an indexed post.
const (
	FieldID        = "id"
	FieldAuthor    = "author"
	FieldTitle     = "title"
	FieldBody      = "body"
	FieldComments  = "comments"
	FieldTimestamp = "timestamp"
	FieldUpvotes   = "upvotes"
	FieldRatio     = "ratio"
	FieldPermalink = "permalink"
	FieldURL       = "url"
	FieldTextURLs  = "text_urls"
)

// DefaultPolicies tokenizes title, body and comments and stores everything else verbatim.
func DefaultPolicies() Policies {
	return Policies{
		FieldID:        StoredOnly,
		FieldAuthor:    StoredOnly,
		FieldTitle:     Tokenized,
		FieldBody:      Tokenized,
		FieldComments:  Tokenized,
		FieldTimestamp: StoredOnly,
		FieldUpvotes:   StoredOnly,
		FieldRatio:     StoredOnly,
		FieldPermalink: StoredOnly,
		FieldURL:       StoredOnly,
		FieldTextURLs:  StoredOnly,
	}
}

// Policy returns the policy for field; unknown fields are StoredOnly.
func (p Policies) Policy(field string) FieldPolicy {
	return p[field]
}

// TokenizedFields returns the tokenized field names, sorted.
func (p Policies) TokenizedFields() []string {
	return p.fieldsWith(Tokenized)
}

// StoredOnlyFields returns the stored-only field names, sorted.
func (p Policies) StoredOnlyFields() []string {
	return p.fieldsWith(StoredOnly)
}

func (p Policies) fieldsWith(policy FieldPolicy) []string {
	var out []string
	for field, fp := range p {
		if fp == policy {
			out = append(out, field)
		}
	}
	sort.Strings(out)
	return out
}

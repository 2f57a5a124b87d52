package keyword

import (
	"sort"
	"strings"
	"sync"
)

// Suggestion is a dictionary term close to a query term.
type Suggestion struct {
	Term      string  // The suggested term
	Distance  int     // Edit distance from the original term
	Frequency int     // Document frequency (popularity)
	Score     float64 // Frequency damped by distance
}

// SpellChecker suggests corrected queries from an index term dictionary.
type SpellChecker struct {
	dictionary     TermDictionary
	tokenize       func(string) []string
	maxDistance    int
	minFreq        int
	maxSuggestions int

	mu      sync.RWMutex
	terms   []string
	termSet map[string]struct{}
	valid   bool
}

// SpellCheckerOption is a functional option for configuring SpellChecker.
type SpellCheckerOption func(*SpellChecker)

// WithMaxDistance sets the maximum edit distance for suggestions.
func WithMaxDistance(d int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if d > 0 {
			s.maxDistance = d
		}
	}
}

// WithMinFrequency sets the minimum document frequency for suggestions.
func WithMinFrequency(f int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if f >= 0 {
			s.minFreq = f
		}
	}
}

// WithMaxSuggestions sets the maximum number of suggestions returned per term.
func WithMaxSuggestions(n int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if n > 0 {
			s.maxSuggestions = n
		}
	}
}

// WithTokenizer sets how queries are split into terms. The default lower-cases and splits
// on whitespace; pass the analyzer's QueryTerms so terms match the dictionary.
func WithTokenizer(fn func(string) []string) SpellCheckerOption {
	return func(s *SpellChecker) {
		if fn != nil {
			s.tokenize = fn
		}
	}
}

// NewSpellChecker creates a SpellChecker over dict.
func NewSpellChecker(dict TermDictionary, opts ...SpellCheckerOption) *SpellChecker {
	s := &SpellChecker{
		dictionary:     dict,
		tokenize:       func(q string) []string { return strings.Fields(strings.ToLower(q)) },
		maxDistance:    2,
		minFreq:        1,
		maxSuggestions: 5,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Invalidate drops the cached term list; the next call reloads it. Call after a rebuild.
func (s *SpellChecker) Invalidate() {
	s.mu.Lock()
	s.valid = false
	s.terms = nil
	s.termSet = nil
	s.mu.Unlock()
}

func (s *SpellChecker) load() ([]string, map[string]struct{}, error) {
	s.mu.RLock()
	if s.valid {
		terms, set := s.terms, s.termSet
		s.mu.RUnlock()
		return terms, set, nil
	}
	s.mu.RUnlock()

	terms, err := s.dictionary.GetAllTerms()
	if err != nil {
		return nil, nil, err
	}
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		set[t] = struct{}{}
	}
	s.mu.Lock()
	s.terms, s.termSet, s.valid = terms, set, true
	s.mu.Unlock()
	return terms, set, nil
}

// Suggest returns dictionary terms within the maximum edit distance of term, best first.
func (s *SpellChecker) Suggest(term string) []Suggestion {
	terms, _, err := s.load()
	if err != nil {
		return nil
	}
	termLen := len([]rune(term))
	var out []Suggestion
	for _, dictTerm := range terms {
		if dictTerm == term {
			continue
		}
		lenDiff := len([]rune(dictTerm)) - termLen
		if lenDiff < 0 {
			lenDiff = -lenDiff
		}
		if lenDiff > s.maxDistance {
			continue
		}
		distance := EditDistance(term, dictTerm)
		if distance > s.maxDistance {
			continue
		}
		freq, err := s.dictionary.GetTermFrequency(dictTerm)
		if err != nil || freq < s.minFreq {
			continue
		}
		out = append(out, Suggestion{
			Term:      dictTerm,
			Distance:  distance,
			Frequency: freq,
			Score:     float64(freq) / float64(distance+1),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Term < out[j].Term
	})
	if len(out) > s.maxSuggestions {
		out = out[:s.maxSuggestions]
	}
	return out
}

// SuggestQuery returns query with every unknown term replaced by its best suggestion.
// ok is false when no term could be corrected.
func (s *SpellChecker) SuggestQuery(query string) (corrected string, ok bool) {
	terms := s.tokenize(query)
	if len(terms) == 0 {
		return "", false
	}
	_, known, err := s.load()
	if err != nil {
		return "", false
	}
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		if _, exists := known[term]; exists {
			out = append(out, term)
			continue
		}
		if sugg := s.Suggest(term); len(sugg) > 0 {
			out = append(out, sugg[0].Term)
			ok = true
			continue
		}
		out = append(out, term)
	}
	if !ok {
		return "", false
	}
	return strings.Join(out, " "), true
}

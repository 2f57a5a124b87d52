package keyword

import (
	"sort"
)

// TermDictionary provides access to the term dictionary for spell checking.
// This interface allows dependency injection for testing.
type TermDictionary interface {
	// GetAllTerms returns all unique terms in the index.
	GetAllTerms() ([]string, error)
	// GetTermFrequency returns the document frequency for a term.
	GetTermFrequency(term string) (int, error)
}

// GetAllTerms returns the unique terms of every tokenized field of the served generation,
// sorted.
func (x *Index) GetAllTerms() ([]string, error) {
	gen, release, err := x.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	seen := make(map[string]struct{})
	for _, field := range x.analyzer.Policies().TokenizedFields() {
		dict, err := gen.index.FieldDict(field)
		if err != nil {
			return nil, err
		}
		for {
			entry, err := dict.Next()
			if err != nil || entry == nil {
				break
			}
			seen[entry.Term] = struct{}{}
		}
		_ = dict.Close()
	}
	terms := make([]string, 0, len(seen))
	for t := range seen {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms, nil
}

// GetTermFrequency returns the largest per-field document frequency of term.
func (x *Index) GetTermFrequency(term string) (int, error) {
	gen, release, err := x.acquire()
	if err != nil {
		return 0, err
	}
	defer release()

	best := 0
	for _, field := range x.analyzer.Policies().TokenizedFields() {
		dict, err := gen.index.FieldDictPrefix(field, []byte(term))
		if err != nil {
			return 0, err
		}
		for {
			entry, err := dict.Next()
			if err != nil || entry == nil {
				break
			}
			if entry.Term == term && int(entry.Count) > best {
				best = int(entry.Count)
			}
		}
		_ = dict.Close()
	}
	return best, nil
}

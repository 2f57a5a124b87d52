package keyword

import (
	"errors"
	"strings"
	"testing"
)

type mockTermDictionary struct {
	terms       map[string]int
	getAllError error
	loads       int
}

func (m *mockTermDictionary) GetAllTerms() ([]string, error) {
	m.loads++
	if m.getAllError != nil {
		return nil, m.getAllError
	}
	out := make([]string, 0, len(m.terms))
	for term := range m.terms {
		out = append(out, term)
	}
	return out, nil
}

func (m *mockTermDictionary) GetTermFrequency(term string) (int, error) {
	return m.terms[term], nil
}

func TestSpellChecker_Suggest(t *testing.T) {
	dict := &mockTermDictionary{terms: map[string]int{"happy": 10, "harpy": 1, "hippo": 4, "sad": 7}}
	sc := NewSpellChecker(dict)

	got := sc.Suggest("hapy")
	if len(got) == 0 || got[0].Term != "happy" {
		t.Fatalf("Suggest(hapy) = %+v, want happy first", got)
	}
	for _, s := range got {
		if s.Term == "sad" {
			t.Error("sad is too far from hapy to be suggested")
		}
	}
	for _, s := range sc.Suggest("happy") {
		if s.Term == "happy" {
			t.Error("Suggest should skip the term itself")
		}
	}
}

func TestSpellChecker_Options(t *testing.T) {
	dict := &mockTermDictionary{terms: map[string]int{"happy": 10, "happier": 3, "nappy": 1}}

	sc := NewSpellChecker(dict, WithMaxDistance(1))
	for _, s := range sc.Suggest("happ") {
		if s.Distance > 1 {
			t.Errorf("suggestion %q exceeds max distance", s.Term)
		}
	}

	sc = NewSpellChecker(dict, WithMinFrequency(2))
	for _, s := range sc.Suggest("happy") {
		if s.Term == "nappy" {
			t.Error("nappy is below the minimum frequency")
		}
	}

	sc = NewSpellChecker(dict, WithMaxSuggestions(1))
	if got := sc.Suggest("happi"); len(got) > 1 {
		t.Errorf("expected at most 1 suggestion, got %d", len(got))
	}
}

func TestSpellChecker_SuggestQuery(t *testing.T) {
	dict := &mockTermDictionary{terms: map[string]int{"happy": 10, "dog": 5}}
	sc := NewSpellChecker(dict)

	if got, ok := sc.SuggestQuery("hapy dgo"); !ok || got != "happy dog" {
		t.Errorf("SuggestQuery = %q, %v", got, ok)
	}
	if _, ok := sc.SuggestQuery("happy dog"); ok {
		t.Error("a correctly spelled query needs no suggestion")
	}
	if _, ok := sc.SuggestQuery("   "); ok {
		t.Error("empty query needs no suggestion")
	}
	if _, ok := sc.SuggestQuery("zzzzzzzz"); ok {
		t.Error("no dictionary term is close to zzzzzzzz")
	}

	upper := NewSpellChecker(dict, WithTokenizer(func(q string) []string {
		return strings.Fields(strings.ToLower(strings.Trim(q, "!")))
	}))
	if got, ok := upper.SuggestQuery("HAPY!"); !ok || got != "happy" {
		t.Errorf("custom tokenizer SuggestQuery = %q, %v", got, ok)
	}
}

func TestSpellChecker_CacheAndInvalidate(t *testing.T) {
	dict := &mockTermDictionary{terms: map[string]int{"happy": 1}}
	sc := NewSpellChecker(dict)
	sc.Suggest("hapy")
	sc.Suggest("hapy")
	if dict.loads != 1 {
		t.Errorf("dictionary loaded %d times, want 1", dict.loads)
	}
	sc.Invalidate()
	dict.terms["sunny"] = 2
	if got, ok := sc.SuggestQuery("suny"); !ok || got != "sunny" {
		t.Errorf("after Invalidate, SuggestQuery = %q, %v", got, ok)
	}
	if dict.loads != 2 {
		t.Errorf("dictionary loaded %d times, want 2", dict.loads)
	}
}

func TestSpellChecker_DictionaryError(t *testing.T) {
	dict := &mockTermDictionary{getAllError: errors.New("unavailable")}
	sc := NewSpellChecker(dict)
	if got := sc.Suggest("hapy"); got != nil {
		t.Errorf("Suggest on error = %+v, want nil", got)
	}
	if _, ok := sc.SuggestQuery("hapy"); ok {
		t.Error("SuggestQuery on error should report no suggestion")
	}
}

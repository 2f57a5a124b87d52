package ranking

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/ezpogue/IRProjectPhase2/internal/analysis"
	apperrors "github.com/ezpogue/IRProjectPhase2/internal/errors"
	"github.com/ezpogue/IRProjectPhase2/internal/models"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func ago(d time.Duration) string {
	return testNow.Add(-d).Format(models.TimestampLayout)
}

const day = 24 * time.Hour

func newTestRanker(t *testing.T) *Ranker {
	t.Helper()
	az, err := analysis.New()
	if err != nil {
		t.Fatal(err)
	}
	r, err := NewRanker(az, nil)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func mustProfile(t *testing.T, name string) WeightProfile {
	t.Helper()
	p, err := DefaultProfiles().Lookup(name)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRanker_ExactScore(t *testing.T) {
	r := newTestRanker(t)
	c := &models.Candidate{ID: "r3", Title: "happy", Body: "happy happy happy", Timestamp: ago(0), LexicalScore: 1}

	got, err := r.Rank([]*models.Candidate{c}, "happy", mustProfile(t, ProfileRelevance), testNow)
	if err != nil {
		t.Fatal(err)
	}
	// relevance = 1 + 0.2*1*1 + 0.7*1*1 = 1.9; time = 100; upvotes = 0
	if got[0].RelevanceScore < 1.8999 || got[0].RelevanceScore > 1.9001 {
		t.Errorf("RelevanceScore = %v, want 1.9", got[0].RelevanceScore)
	}
	if got[0].TimeScore != 100 {
		t.Errorf("TimeScore = %v, want 100", got[0].TimeScore)
	}
	if got[0].Score != 11.52 {
		t.Errorf("Score = %v, want 11.52", got[0].Score)
	}
	if got[0].Rank != 1 {
		t.Errorf("Rank = %d, want 1", got[0].Rank)
	}
}

func TestRanker_UnrelatedFieldContributesZero(t *testing.T) {
	r := newTestRanker(t)
	c := &models.Candidate{ID: "u", Title: "completely unrelated text", Timestamp: ago(0), LexicalScore: 1.25}

	got, err := r.Rank([]*models.Candidate{c}, "xyz123", mustProfile(t, ProfileRelevance), testNow)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].RelevanceScore != 1.25 {
		t.Errorf("RelevanceScore = %v, want exactly the lexical score 1.25", got[0].RelevanceScore)
	}
	if s := r.contentScorer.Score(c, "xyz123", r.contentScorer.queryVector("xyz123")); s != 0 {
		t.Errorf("content score = %v, want 0", s)
	}
}

func TestRanker_SubstringGate(t *testing.T) {
	r := newTestRanker(t)
	// "dog happy" shares both terms with the title but is not a substring of it.
	c := &models.Candidate{ID: "g", Title: "Happy Dog", Timestamp: ago(0), LexicalScore: 2}
	qv := r.contentScorer.queryVector("dog happy")
	if s := r.contentScorer.Score(c, "dog happy", qv); s != 0 {
		t.Errorf("non-substring query scored %v, want 0", s)
	}
	qv = r.contentScorer.queryVector("HAPPY dog")
	if s := r.contentScorer.Score(c, "HAPPY dog", qv); s <= 0 {
		t.Error("case-insensitive substring query should score")
	}
}

func TestRanker_OutputLength(t *testing.T) {
	r := newTestRanker(t)
	for _, n := range []int{0, 1, 9, 10, 11, 40} {
		cands := make([]*models.Candidate, n)
		for i := range cands {
			cands[i] = &models.Candidate{ID: fmt.Sprintf("c%d", i), Title: "post", Timestamp: ago(time.Duration(i) * day), LexicalScore: float64(i)}
		}
		got, err := r.Rank(cands, "post", mustProfile(t, ProfileTime), testNow)
		if err != nil {
			t.Fatal(err)
		}
		if got == nil {
			t.Fatal("Rank must return a non-nil slice")
		}
		want := n
		if want > 10 {
			want = 10
		}
		if len(got) != want {
			t.Errorf("%d candidates: got %d results, want %d", n, len(got), want)
		}
	}
}

func TestRanker_Deterministic(t *testing.T) {
	r := newTestRanker(t)
	cands := []*models.Candidate{
		{ID: "a", Generation: "g", Title: "happy dog", Body: "a happy story about a dog", Comments: " nice dog", Timestamp: ago(3 * day), Upvotes: 42, LexicalScore: 0.731},
		{ID: "b", Generation: "g", Title: "dog", Body: "happy dog happy life", Timestamp: ago(90 * day), Upvotes: 1000, LexicalScore: 0.512},
	}
	first, err := r.Rank(cands, "happy dog", mustProfile(t, ProfileUpvotes), testNow)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		if i == 10 {
			r.Invalidate()
		}
		again, err := r.Rank(cands, "happy dog", mustProfile(t, ProfileUpvotes), testNow)
		if err != nil {
			t.Fatal(err)
		}
		for j := range first {
			if again[j].ID != first[j].ID || again[j].Score != first[j].Score {
				t.Fatalf("run %d differs: %s=%v vs %s=%v", i, again[j].ID, again[j].Score, first[j].ID, first[j].Score)
			}
		}
	}
}

func TestRanker_StableTies(t *testing.T) {
	r := newTestRanker(t)
	cands := []*models.Candidate{
		{ID: "z", Title: "same", Timestamp: ago(day), LexicalScore: 1},
		{ID: "a", Title: "same", Timestamp: ago(day), LexicalScore: 1},
		{ID: "m", Title: "same", Timestamp: ago(day), LexicalScore: 1},
	}
	got, err := r.Rank(cands, "same", mustProfile(t, ProfileRelevance), testNow)
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []string{"z", "a", "m"} {
		if got[i].ID != want {
			t.Errorf("position %d = %s, want %s (retrieval order)", i, got[i].ID, want)
		}
	}
}

func TestRanker_ProfileMonotonicity(t *testing.T) {
	r := newTestRanker(t)
	cands := []*models.Candidate{
		{ID: "popular", Title: "cat", Timestamp: ago(10 * day), Upvotes: 9000, LexicalScore: 0.2},
		{ID: "relevant", Title: "happy", Body: "happy happy", Timestamp: ago(10 * day), Upvotes: 3, LexicalScore: 3},
	}
	rankOf := func(results []*models.ScoredResult, id string) int {
		for _, res := range results {
			if res.ID == id {
				return res.Rank
			}
		}
		return -1
	}
	byUpvotes, err := r.Rank(cands, "happy", mustProfile(t, ProfileUpvotes), testNow)
	if err != nil {
		t.Fatal(err)
	}
	byRelevance, err := r.Rank(cands, "happy", mustProfile(t, ProfileRelevance), testNow)
	if err != nil {
		t.Fatal(err)
	}
	before, after := rankOf(byUpvotes, "relevant"), rankOf(byRelevance, "relevant")
	if after > before {
		t.Errorf("relevance-dominated candidate dropped from rank %d to %d", before, after)
	}
	if after != 1 {
		t.Errorf("relevant candidate rank under relevance = %d, want 1", after)
	}
}

func TestRanker_TimeDecay(t *testing.T) {
	r := newTestRanker(t)
	for _, p := range DefaultProfiles().List() {
		if p.TimeWeight <= 0 {
			continue
		}
		// Older listed first so only the score can reorder them.
		cands := []*models.Candidate{
			{ID: "old", Title: "news", Timestamp: ago(365 * day), Upvotes: 10, LexicalScore: 1},
			{ID: "new", Title: "news", Timestamp: ago(2 * day), Upvotes: 10, LexicalScore: 1},
		}
		got, err := r.Rank(cands, "news", p, testNow)
		if err != nil {
			t.Fatal(err)
		}
		if got[0].ID != "new" {
			t.Errorf("profile %s: older post ranked first", p.Name)
		}
	}
}

func TestRanker_EndToEndExample(t *testing.T) {
	r := newTestRanker(t)
	// Lexical scores follow what the retriever produces for "happy": R3 matches the
	// title and three times in the body, R1 title and body, R2 only the body.
	r1 := &models.Candidate{ID: "R1", Title: "happy dog", Body: "a happy story", Upvotes: 500, Timestamp: ago(day), LexicalScore: 1.1}
	r2 := &models.Candidate{ID: "R2", Title: "sad cat", Body: "happy ending though", Upvotes: 10, Timestamp: ago(200 * day), LexicalScore: 0.4}
	r3 := &models.Candidate{ID: "R3", Title: "happy", Body: "happy happy happy", Upvotes: 0, Timestamp: ago(0), LexicalScore: 1.6}

	got, err := r.Rank([]*models.Candidate{r1, r2, r3}, "happy", mustProfile(t, ProfileRelevance), testNow)
	if err != nil {
		t.Fatal(err)
	}
	pos := map[string]int{}
	for i, res := range got {
		pos[res.ID] = i
	}
	if pos["R2"] < pos["R1"] || pos["R2"] < pos["R3"] {
		t.Errorf("R2 ranked above R1 or R3: %v", pos)
	}
}

func TestRanker_InvalidTimestamp(t *testing.T) {
	r := newTestRanker(t)
	cands := []*models.Candidate{
		{ID: "ok", Title: "x", Timestamp: ago(0), LexicalScore: 1},
		{ID: "bad", Title: "x", Timestamp: "not a date", LexicalScore: 1},
	}
	_, err := r.Rank(cands, "x", mustProfile(t, ProfileRelevance), testNow)
	if !errors.Is(err, apperrors.ErrInvalidTimestamp) {
		t.Fatalf("err = %v, want ErrInvalidTimestamp", err)
	}
	var ite *apperrors.InvalidTimestampError
	if !errors.As(err, &ite) || ite.CandidateID != "bad" {
		t.Errorf("InvalidTimestampError = %+v", ite)
	}
}

func TestRanker_CachesFieldVectors(t *testing.T) {
	r := newTestRanker(t)
	c := &models.Candidate{ID: "a", Generation: "g1", Title: "happy", Body: "happy day", Comments: " happy", Timestamp: ago(0), LexicalScore: 1}
	if _, err := r.Rank([]*models.Candidate{c}, "happy", mustProfile(t, ProfileRelevance), testNow); err != nil {
		t.Fatal(err)
	}
	if n := r.contentScorer.CacheLen(); n != 3 {
		t.Errorf("cache len = %d, want 3", n)
	}
	r.Invalidate()
	if n := r.contentScorer.CacheLen(); n != 0 {
		t.Errorf("cache len after Invalidate = %d", n)
	}
	uncached := &models.Candidate{ID: "b", Title: "happy", Timestamp: ago(0), LexicalScore: 1}
	if _, err := r.Rank([]*models.Candidate{uncached}, "happy", mustProfile(t, ProfileRelevance), testNow); err != nil {
		t.Fatal(err)
	}
	if n := r.contentScorer.CacheLen(); n != 0 {
		t.Errorf("candidates without a generation must not be cached, len = %d", n)
	}
}

func TestCosine(t *testing.T) {
	q := newTermVector(map[string]int{"happy": 1, "dog": 1})
	d := newTermVector(map[string]int{"happy": 2, "cat": 1})
	want := 2 / math.Sqrt(10)
	if got := cosine(q, d); math.Abs(got-want) > 1e-12 {
		t.Errorf("cosine = %v, want %v", got, want)
	}
	if got := cosine(q, q); math.Abs(got-1) > 1e-12 {
		t.Errorf("self cosine = %v", got)
	}
	if got := cosine(q, newTermVector(nil)); got != 0 {
		t.Errorf("cosine with empty vector = %v", got)
	}
}

func TestTimeScore(t *testing.T) {
	tests := []struct {
		name string
		age  time.Duration
		want float64
	}{
		{"now", 0, 100},
		{"one day", day, 96},
		{"thirty days", 30 * day, 50},
		{"two hundred days", 200 * day, 13},
		{"future is clamped", -5 * day, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TimeScore(testNow.Add(-tt.age), testNow, 100, 30); got != tt.want {
				t.Errorf("TimeScore = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUpvoteScoreAndRounding(t *testing.T) {
	if got := UpvoteScore(500, 1000); got != 0.5 {
		t.Errorf("UpvoteScore(500) = %v", got)
	}
	if got := UpvoteScore(-3, 1000); got != 0 {
		t.Errorf("UpvoteScore(-3) = %v", got)
	}
	for in, want := range map[float64]float64{1.23449: 1.234, 2.0006: 2.001, 0: 0, 7: 7} {
		if got := round3(in); got != want {
			t.Errorf("round3(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestNewRanker_RejectsNonPositiveScales(t *testing.T) {
	az, err := analysis.New()
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name   string
		mutate func(*RankingConfig)
	}{
		{"negative decay", func(c *RankingConfig) { c.TimeDecayDays = -30 }},
		{"negative upvote scale", func(c *RankingConfig) { c.UpvoteScale = -1000 }},
		{"negative time scale", func(c *RankingConfig) { c.TimeScoreScale = -1 }},
		{"negative result limit", func(c *RankingConfig) { c.ResultLimit = -5 }},
		{"field weight above one", func(c *RankingConfig) { c.FieldWeights = []FieldWeight{{Field: "title", Weight: 2}} }},
		{"unnamed field", func(c *RankingConfig) { c.FieldWeights = []FieldWeight{{Weight: 0.5}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultRankingConfig()
			tt.mutate(cfg)
			if _, err := NewRanker(az, cfg); err == nil {
				t.Error("NewRanker() error = nil, want rejection")
			}
		})
	}
}

func TestNewRanker_DoesNotMutateConfig(t *testing.T) {
	az, err := analysis.New()
	if err != nil {
		t.Fatal(err)
	}
	cfg := &RankingConfig{UpvoteScale: 500}
	r, err := NewRanker(az, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TimeDecayDays != 0 || cfg.ResultLimit != 0 || cfg.FieldWeights != nil {
		t.Errorf("caller config was modified: %+v", cfg)
	}
	got := r.Config()
	if got.UpvoteScale != 500 || got.TimeDecayDays != 30 || got.ResultLimit != 10 {
		t.Errorf("Config() = %+v, want upvote scale 500 with defaults elsewhere", got)
	}
	got.FieldWeights[0].Weight = 0.99
	if r.Config().FieldWeights[0].Weight == 0.99 {
		t.Error("Config() should not expose the ranker's field weights")
	}
}

package ranking

import (
	"fmt"
	"testing"
	"time"

	"github.com/ezpogue/IRProjectPhase2/internal/analysis"
	"github.com/ezpogue/IRProjectPhase2/internal/models"
)

func benchCandidates(n int) []*models.Candidate {
	cands := make([]*models.Candidate, n)
	for i := 0; i < n; i++ {
		cands[i] = &models.Candidate{
			ID:           fmt.Sprintf("c%d", i),
			Title:        fmt.Sprintf("garden post %d", i),
			Body:         "tomatoes and peppers grow well in a sunny raised garden bed",
			Comments:     "nice garden",
			Timestamp:    ago(time.Duration(i%90) * day),
			Upvotes:      i * 7,
			LexicalScore: float64(n-i) / float64(n),
		}
	}
	return cands
}

func BenchmarkRanker_Rank(b *testing.B) {
	az, err := analysis.New()
	if err != nil {
		b.Fatal(err)
	}
	r, err := NewRanker(az, nil)
	if err != nil {
		b.Fatal(err)
	}
	cands := benchCandidates(100)
	p, _ := DefaultProfiles().Lookup(ProfileRelevance)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = r.Rank(cands, "sunny garden", p, testNow)
	}
}

func BenchmarkRanker_RankCold(b *testing.B) {
	az, err := analysis.New()
	if err != nil {
		b.Fatal(err)
	}
	r, err := NewRanker(az, nil)
	if err != nil {
		b.Fatal(err)
	}
	cands := benchCandidates(100)
	p, _ := DefaultProfiles().Lookup(ProfileUpvotes)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Invalidate()
		_, _ = r.Rank(cands, "sunny garden", p, testNow)
	}
}

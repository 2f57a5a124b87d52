package search

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ezpogue/IRProjectPhase2/internal/models"
)

// topicPosts returns n posts, each built around a distinctive phrase that no other post uses.
// Upvotes and timestamps are identical so relevance alone separates them.
func topicPosts(n int) ([]models.PostRecord, map[string]string) {
	topics := []struct {
		title, phrase, body string
	}{
		{"Sourdough starter", "sourdough starter", "Feed the sourdough starter twice a day with flour and water."},
		{"Tomato blight", "tomato blight", "Tomato blight spreads fast in humid weather, remove the leaves early."},
		{"Marathon training", "marathon training", "Marathon training plans build mileage slowly over sixteen weeks."},
		{"Espresso grind", "espresso grind", "A finer espresso grind slows the shot and adds body."},
		{"Kayak rolling", "kayak rolling", "Kayak rolling starts with a hip snap practiced in shallow water."},
		{"Bonsai pruning", "bonsai pruning", "Bonsai pruning in late winter keeps the canopy compact."},
		{"Chess openings", "chess openings", "Chess openings like the Sicilian reward careful study."},
		{"Vinyl records", "vinyl records", "Store vinyl records upright away from heat and sunlight."},
		{"Aquarium cycling", "aquarium cycling", "Aquarium cycling builds bacteria before any fish are added."},
		{"Knitting cables", "knitting cables", "Knitting cables needs a spare needle to hold stitches."},
		{"Beekeeping hives", "beekeeping hives", "Beekeeping hives need inspection every week in spring."},
		{"Telescope collimation", "telescope collimation", "Telescope collimation aligns the mirrors for sharp stars."},
	}
	ts := testNow.Add(-3 * day).Format(models.TimestampLayout)
	posts := make([]models.PostRecord, 0, n)
	want := make(map[string]string, n)
	for i := 0; i < n && i < len(topics); i++ {
		tp := topics[i]
		id := fmt.Sprintf("topic-%03d", i+1)
		posts = append(posts, models.PostRecord{
			ID: id, Title: tp.title, Body: tp.body, Upvotes: 10, Timestamp: ts,
		})
		want[tp.phrase] = id
	}
	return posts, want
}

func TestEngine_TopicQueriesFindTheirPost(t *testing.T) {
	te := newTestEngine(t)
	posts, want := topicPosts(12)
	te.rebuild(t, posts)

	for phrase, id := range want {
		t.Run(phrase, func(t *testing.T) {
			resp, err := te.Search(context.Background(), &models.SearchQuery{Query: phrase})
			if err != nil {
				t.Fatalf("Search(%q): %v", phrase, err)
			}
			if len(resp.Results) == 0 {
				t.Fatalf("Search(%q) returned no results", phrase)
			}
			if got := resp.Results[0].ID; got != id {
				t.Errorf("Search(%q) top result = %s, want %s", phrase, got, id)
			}
		})
	}
}

func BenchmarkEngine_Search(b *testing.B) {
	te := newTestEngine(b)
	posts, _ := topicPosts(12)
	for i := 0; i < 40; i++ {
		posts = append(posts, models.PostRecord{
			ID:        fmt.Sprintf("filler-%03d", i),
			Title:     "garden notes",
			Body:      "sunny garden beds with tomato plants and marathon runners passing by",
			Upvotes:   models.Count(i),
			Timestamp: testNow.Add(-time.Duration(i) * day).Format(models.TimestampLayout),
		})
	}
	if _, err := te.Rebuild(context.Background(), posts); err != nil {
		b.Fatal(err)
	}
	q := &models.SearchQuery{Query: "tomato garden", Profile: "time"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		qq := *q
		_, _ = te.Search(context.Background(), &qq)
	}
}

package models

import (
	"testing"
)

func TestSearchQuery_Normalize(t *testing.T) {
	tests := []struct {
		name          string
		query         *SearchQuery
		wantQuery     string
		wantProfile   string
		wantLimit     int
		wantCandidate int
	}{
		{"defaults", &SearchQuery{Query: " happy "}, "happy", "relevance", 10, 100},
		{"keeps explicit profile", &SearchQuery{Query: "x", Profile: "time"}, "x", "time", 10, 100},
		{"caps limit", &SearchQuery{Query: "x", Limit: 50}, "x", "relevance", 10, 100},
		{"keeps smaller limit", &SearchQuery{Query: "x", Limit: 3}, "x", "relevance", 3, 100},
		{"candidate floor is result limit", &SearchQuery{Query: "x", CandidateLimit: 4}, "x", "relevance", 10, 10},
		{"candidate ceiling", &SearchQuery{Query: "x", CandidateLimit: 5000}, "x", "relevance", 10, 1000},
		{"empty query stays empty", &SearchQuery{Query: "   "}, "", "relevance", 10, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.query.Normalize("relevance", 100, 10, 1000)
			if tt.query.Query != tt.wantQuery {
				t.Errorf("Query = %q, want %q", tt.query.Query, tt.wantQuery)
			}
			if tt.query.Profile != tt.wantProfile {
				t.Errorf("Profile = %q, want %q", tt.query.Profile, tt.wantProfile)
			}
			if tt.query.Limit != tt.wantLimit {
				t.Errorf("Limit = %d, want %d", tt.query.Limit, tt.wantLimit)
			}
			if tt.query.CandidateLimit != tt.wantCandidate {
				t.Errorf("CandidateLimit = %d, want %d", tt.query.CandidateLimit, tt.wantCandidate)
			}
		})
	}
}

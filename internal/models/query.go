package models

import "strings"

// SearchQuery represents a search request.
type SearchQuery struct {
	Query string `json:"query"`
	// Profile names the weight profile; empty selects the configured default.
	Profile string `json:"profile,omitempty"`
	// Limit caps the number of ranked results; 0 or anything above maxResults means maxResults.
	Limit int `json:"limit,omitempty"`
	// CandidateLimit is the number of lexical candidates to re-rank; 0 means the configured default.
	CandidateLimit int `json:"candidate_limit,omitempty"`
}

// Normalize trims the query, fills in the default profile, and clamps the limits.
// candidateLimit is clamped to [maxResults, maxCandidates] so the re-ranker always sees
// at least as many candidates as it may return.
func (q *SearchQuery) Normalize(defaultProfile string, defaultCandidates, maxResults, maxCandidates int) {
	q.Query = strings.TrimSpace(q.Query)
	q.Profile = strings.TrimSpace(q.Profile)
	if q.Profile == "" {
		q.Profile = defaultProfile
	}
	if q.Limit <= 0 || q.Limit > maxResults {
		q.Limit = maxResults
	}
	if q.CandidateLimit <= 0 {
		q.CandidateLimit = defaultCandidates
	}
	if q.CandidateLimit < maxResults {
		q.CandidateLimit = maxResults
	}
	if maxCandidates > 0 && q.CandidateLimit > maxCandidates {
		q.CandidateLimit = maxCandidates
	}
}

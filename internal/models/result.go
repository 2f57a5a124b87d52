package models

import "time"

// Candidate is a retrieval hit: the stored fields of one indexed post plus its lexical score.
type Candidate struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Comments  string    `json:"comments,omitempty"`
	Timestamp string    `json:"timestamp"`
	Upvotes   int       `json:"upvotes"`
	Ratio     float64   `json:"ratio"`
	Permalink string    `json:"permalink,omitempty"`
	URL       string    `json:"url,omitempty"`
	TextURLs  []TextURL `json:"text_urls,omitempty"`
	// LexicalScore is the retrieval engine's relevance score; its magnitude is engine-defined.
	LexicalScore float64 `json:"lexical_score"`
	// Generation identifies the committed index the candidate came from.
	Generation string `json:"-"`
}

// ScoredResult is a candidate with its fused score. Results are ordered by Score descending.
type ScoredResult struct {
	Candidate
	Score          float64 `json:"final_score"`
	RelevanceScore float64 `json:"relevance_score"`
	TimeScore      float64 `json:"time_score"`
	UpvoteScore    float64 `json:"upvote_score"`
	Rank           int     `json:"rank"`
}

// SearchResponse is the response for a search request.
// Results is never nil; an empty slice means no post matched.
type SearchResponse struct {
	Query      string          `json:"query"`
	Profile    string          `json:"profile"`
	Results    []*ScoredResult `json:"results"`
	Candidates int             `json:"candidates"`
	Generation string          `json:"generation,omitempty"`
	QueryTime  int64           `json:"query_time_ms"`
	// Suggestions contains "Did you mean?" queries built from the index term dictionary.
	// Only populated when no candidate matched.
	Suggestions []string `json:"suggestions,omitempty"`
}

// IndexStatus describes the committed index served by the engine.
type IndexStatus struct {
	Generation  string     `json:"generation,omitempty"`
	Path        string     `json:"path,omitempty"`
	Documents   uint64     `json:"documents"`
	CommittedAt *time.Time `json:"committed_at,omitempty"`
	Available   bool       `json:"available"`

	// DiskUsageBytes covers the served generation and the catalog database.
	DiskUsageBytes *int64 `json:"disk_usage_bytes,omitempty"`
	// StaleBytes is held by superseded generations awaiting removal.
	StaleBytes int64 `json:"stale_bytes,omitempty"`
}

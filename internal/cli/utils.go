// Package cli provides output helpers for the postsearch command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ezpogue/IRProjectPhase2/internal/models"
	"github.com/ezpogue/IRProjectPhase2/internal/search"
	"github.com/ezpogue/IRProjectPhase2/internal/storage"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputCompact prints one line per result.
	OutputCompact SearchOutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

const snippetLen = 200

// ParseOutputFormat parses a --output flag value.
func ParseOutputFormat(s string) (SearchOutputFormat, error) {
	switch f := SearchOutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", OutputText:
		return OutputText, nil
	case OutputCompact, OutputJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, compact or json)", s)
	}
}

// WriteSearchResults writes search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, response)
	case OutputCompact:
		writeSearchResultsCompact(w, response)
		return nil
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d results for %q in %dms (profile: %s, %d candidates)\n\n",
		len(response.Results), response.Query, response.QueryTime, response.Profile, response.Candidates)
	for _, result := range response.Results {
		writeOneResult(w, result, response.Query)
	}
	writeSuggestions(w, response)
}

func writeOneResult(w io.Writer, result *models.ScoredResult, query string) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Score: %.3f (Relevance: %.4f, Time: %.0f, Upvotes: %.3f)\n",
		result.Rank, result.Score, result.RelevanceScore, result.TimeScore, result.UpvoteScore)
	fmt.Fprintf(w, "ID: %s", result.ID)
	if result.Author != "" {
		fmt.Fprintf(w, " | Author: %s", result.Author)
	}
	fmt.Fprintf(w, " | Posted: %s | Upvotes: %d\n", result.Timestamp, result.Upvotes)
	fmt.Fprintf(w, "Title: %s\n", result.Title)
	if result.Permalink != "" {
		fmt.Fprintf(w, "Link: %s\n", result.Permalink)
	}
	if result.Body != "" {
		fmt.Fprintf(w, "\n%s\n", search.Snippet(result.Body, query, snippetLen))
	}
	fmt.Fprintln(w)
}

func writeSearchResultsCompact(w io.Writer, response *models.SearchResponse) {
	for _, result := range response.Results {
		fmt.Fprintf(w, "%2d. %8.3f  %-12s %s\n", result.Rank, result.Score, result.ID, TruncateWords(result.Title, 12))
	}
	writeSuggestions(w, response)
}

func writeSuggestions(w io.Writer, response *models.SearchResponse) {
	if len(response.Suggestions) > 0 {
		fmt.Fprintf(w, "Did you mean: %s\n", strings.Join(response.Suggestions, ", "))
	}
}

// WriteStatus writes the index status, and recent builds when given, to w.
func WriteStatus(w io.Writer, status *models.IndexStatus, builds []*storage.Build, format SearchOutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{"index": status, "builds": builds})
	}
	if !status.Available {
		fmt.Fprintln(w, "Index: unavailable (no committed build)")
	} else {
		fmt.Fprintf(w, "Index generation: %s\n", status.Generation)
		fmt.Fprintf(w, "Path: %s\n", status.Path)
		fmt.Fprintf(w, "Documents: %d\n", status.Documents)
		if status.CommittedAt != nil {
			fmt.Fprintf(w, "Committed: %s\n", status.CommittedAt.Format(time.RFC3339))
		}
		if status.DiskUsageBytes != nil {
			fmt.Fprintf(w, "Disk usage: %s\n", FormatBytes(*status.DiskUsageBytes))
		}
		if status.StaleBytes > 0 {
			fmt.Fprintf(w, "Stale generations: %s\n", FormatBytes(status.StaleBytes))
		}
	}
	if len(builds) > 0 {
		fmt.Fprintln(w, "\nRecent builds:")
		for _, b := range builds {
			line := fmt.Sprintf("  %s  %-10s  %6d docs  %s", b.StartedAt.Format(time.RFC3339), b.Status, b.DocCount, b.ID)
			if b.Error != "" {
				line += "  (" + Truncate(b.Error, 80) + ")"
			}
			fmt.Fprintln(w, line)
		}
	}
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}

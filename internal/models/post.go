// Package models defines core data structures for posts, candidates, queries, and ranked results.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/ezpogue/IRProjectPhase2/internal/errors"
)

// TimestampLayout is the source format of post timestamps ("YYYY-MM-DD HH:MM:SS", UTC).
const TimestampLayout = "2006-01-02 15:04:05"

// PostRecord is one source post as read from the corpus.
type PostRecord struct {
	ID        string    `json:"ID"`
	Author    string    `json:"Author"`
	Title     string    `json:"Title"`
	Body      string    `json:"Body"`
	Timestamp string    `json:"Timestamp"`
	Upvotes   Count     `json:"Upvotes"`
	Ratio     Fraction  `json:"Ratio"`
	Permalink string    `json:"Permalink"`
	URL       string    `json:"URL"`
	Comments  Comments  `json:"Comments"`
	TextURLs  []TextURL `json:"Text URL"`
}

// CommentRecord is one comment attached to a post. Body is nil for deleted comments.
type CommentRecord struct {
	Author    string  `json:"Author"`
	ParentID  string  `json:"Parent ID"`
	Body      *string `json:"Body"`
	Upvotes   Count   `json:"Upvotes"`
	Downvotes Count   `json:"Downvotes"`
	Permalink string  `json:"Permalink"`
}

// TextURL is a (title, link) pair extracted from a post body.
type TextURL struct {
	Title string
	Link  string
}

// Validate checks the fields required to index the post.
// It returns a *errors.MalformedRecordError naming the first offending field.
func (p *PostRecord) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return apperrors.NewMalformedRecordError(p.ID, "id", "is required")
	}
	if strings.TrimSpace(p.Title) == "" {
		return apperrors.NewMalformedRecordError(p.ID, "title", "is required")
	}
	if strings.TrimSpace(p.Timestamp) == "" {
		return apperrors.NewMalformedRecordError(p.ID, "timestamp", "is required")
	}
	if _, err := ParseTimestamp(p.Timestamp); err != nil {
		e := apperrors.NewMalformedRecordError(p.ID, "timestamp", "does not match "+TimestampLayout)
		e.Cause = err
		return e
	}
	return nil
}

// PostedAt returns the parsed timestamp.
func (p *PostRecord) PostedAt() (time.Time, error) {
	return ParseTimestamp(p.Timestamp)
}

// FlattenedComments joins every non-nil comment body, each preceded by a single space.
func (p *PostRecord) FlattenedComments() string {
	return p.Comments.Flatten()
}

// ParseTimestamp parses a timestamp in TimestampLayout as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, strings.TrimSpace(s))
}

// Comments is an ordered list of comments. It decodes from either a JSON object keyed by
// comment id (key order preserved, duplicate keys kept) or a JSON array.
type Comments []CommentRecord

// Flatten joins every non-nil comment body, each preceded by a single space.
func (c Comments) Flatten() string {
	var b strings.Builder
	for _, comment := range c {
		if comment.Body == nil {
			continue
		}
		b.WriteByte(' ')
		b.WriteString(*comment.Body)
	}
	return b.String()
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Comments) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*c = nil
		return nil
	}
	if trimmed[0] == '[' {
		var list []*CommentRecord
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return fmt.Errorf("comments: %w", err)
		}
		out := make(Comments, 0, len(list))
		for _, rec := range list {
			if rec != nil {
				out = append(out, *rec)
			}
		}
		*c = out
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("comments: %w", err)
	}
	out := Comments{}
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return fmt.Errorf("comments: %w", err)
		}
		var rec *CommentRecord
		if err := dec.Decode(&rec); err != nil {
			return fmt.Errorf("comments: %w", err)
		}
		if rec != nil {
			out = append(out, *rec)
		}
	}
	*c = out
	return nil
}

// MarshalJSON encodes the pair as ["title", "link"].
func (t TextURL) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{t.Title, t.Link})
}

// UnmarshalJSON accepts ["title", "link"] or {"title": ..., "link": ...}.
func (t *TextURL) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var obj struct {
			Title string `json:"title"`
			Link  string `json:"link"`
		}
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return err
		}
		t.Title, t.Link = obj.Title, obj.Link
		return nil
	}
	var pair []string
	if err := json.Unmarshal(trimmed, &pair); err != nil {
		return fmt.Errorf("text url: %w", err)
	}
	if len(pair) > 0 {
		t.Title = pair[0]
	}
	if len(pair) > 1 {
		t.Link = pair[1]
	}
	return nil
}

// EncodeTextURLs serializes the pairs for the verbatim stored field; empty input yields "".
func EncodeTextURLs(urls []TextURL) string {
	if len(urls) == 0 {
		return ""
	}
	b, err := json.Marshal(urls)
	if err != nil {
		return ""
	}
	return string(b)
}

// DecodeTextURLs is the inverse of EncodeTextURLs. Invalid input yields nil.
func DecodeTextURLs(s string) []TextURL {
	if s == "" {
		return nil
	}
	var urls []TextURL
	if err := json.Unmarshal([]byte(s), &urls); err != nil {
		return nil
	}
	return urls
}

// Count is a non-negative integer counter. It decodes from a JSON number, a quoted number,
// or null; null, unparsable, and negative values decode to 0.
type Count int

// UnmarshalJSON implements json.Unmarshaler. It never fails.
func (n *Count) UnmarshalJSON(data []byte) error {
	*n = Count(ParseCount(unquote(data)))
	return nil
}

// Int returns the count clamped to zero.
func (n Count) Int() int {
	if n < 0 {
		return 0
	}
	return int(n)
}

// Fraction is a float that decodes from a JSON number, a quoted number, or null.
type Fraction float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *Fraction) UnmarshalJSON(data []byte) error {
	s := unquote(data)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid ratio %q", s)
	}
	*f = Fraction(v)
	return nil
}

// ParseCount parses a stored count, returning 0 for empty, unparsable, or negative input.
func ParseCount(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0
		}
		v = int(f)
	}
	if v < 0 {
		return 0
	}
	return v
}

func unquote(data []byte) string {
	s := strings.TrimSpace(string(data))
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		if u, err := strconv.Unquote(s); err == nil {
			return strings.TrimSpace(u)
		}
	}
	return s
}

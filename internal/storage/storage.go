// Package storage defines the build catalog that records index generations.
package storage

import (
	"context"
	"time"
)

// BuildStatus is the lifecycle state of an index generation.
type BuildStatus string

const (
	StatusBuilding   BuildStatus = "building"
	StatusCommitted  BuildStatus = "committed"
	StatusFailed     BuildStatus = "failed"
	StatusSuperseded BuildStatus = "superseded"
)

// Build is one recorded index generation.
type Build struct {
	ID         string      `json:"id"`
	Path       string      `json:"path"`
	Status     BuildStatus `json:"status"`
	DocCount   int         `json:"doc_count"`
	Error      string      `json:"error,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}

// Catalog records index generations. At most one generation is committed at a time;
// committing a build supersedes the previously committed one in the same transaction.
type Catalog interface {
	BeginBuild(ctx context.Context, id, path string) error
	CommitBuild(ctx context.Context, id string, docCount int) error
	FailBuild(ctx context.Context, id string, cause error) error

	// ActiveGeneration returns the committed build, or nil if none has been committed.
	ActiveGeneration(ctx context.Context) (*Build, error)
	ListBuilds(ctx context.Context, limit int) ([]*Build, error)

	Close() error
}

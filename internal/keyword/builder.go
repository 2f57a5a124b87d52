package keyword

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ezpogue/IRProjectPhase2/internal/analysis"
	apperrors "github.com/ezpogue/IRProjectPhase2/internal/errors"
	"github.com/ezpogue/IRProjectPhase2/internal/models"
)

// lockRetryDelay is how often Build retries the cross-process build lock.
const lockRetryDelay = 100 * time.Millisecond

// ErrReadOnly is returned by Build on an index opened with WithReadOnly.
var ErrReadOnly = errors.New("index is read-only")

// BuildResult describes a committed build.
type BuildResult struct {
	Generation string        `json:"generation"`
	Path       string        `json:"path"`
	Documents  int           `json:"documents"`
	Previous   string        `json:"previous,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Build replaces the served index with one built from records.
//
// All records are validated before anything is written; the first invalid record or
// duplicate id aborts the build with a MalformedRecord error. The new generation is
// written to its own directory, committed in the catalog, and only then swapped in. On
// any failure the new directory is removed and the previous generation keeps serving.
func (x *Index) Build(ctx context.Context, records []models.PostRecord) (*BuildResult, error) {
	if x.readOnly {
		return nil, ErrReadOnly
	}
	if err := validateRecords(records); err != nil {
		return nil, err
	}

	x.buildMu.Lock()
	defer x.buildMu.Unlock()

	fl := flock.New(filepath.Join(x.dir, lockFileName))
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire build lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("failed to acquire build lock: %s", fl.Path())
	}
	defer func() {
		_ = fl.Unlock()
	}()

	start := time.Now()
	id := uuid.NewString()
	path := x.generationPath(id)
	x.logger.Info("Starting index build",
		zap.String("generation", id),
		zap.Int("records", len(records)))

	if err := x.catalog.BeginBuild(ctx, id, path); err != nil {
		return nil, err
	}
	fail := func(cause error) error {
		_ = os.RemoveAll(path)
		// The caller's context may be the reason we are failing.
		if ferr := x.catalog.FailBuild(context.Background(), id, cause); ferr != nil {
			x.logger.Warn("Failed to record build failure", zap.String("generation", id), zap.Error(ferr))
		}
		x.logger.Warn("Index build failed", zap.String("generation", id), zap.Error(cause))
		return cause
	}

	if err := x.writeGeneration(ctx, path, records); err != nil {
		return nil, fail(err)
	}
	gen, err := openGeneration(id, path)
	if err != nil {
		return nil, fail(err)
	}
	if err := x.catalog.CommitBuild(ctx, id, len(records)); err != nil {
		_ = gen.index.Close()
		return nil, fail(fmt.Errorf("failed to commit build: %w", err))
	}
	now := time.Now().UTC()
	gen.committedAt = &now

	x.mu.Lock()
	old := x.live
	x.live = gen
	x.openErr = nil
	x.mu.Unlock()

	result := &BuildResult{
		Generation: id,
		Path:       path,
		Documents:  len(records),
		Duration:   time.Since(start),
	}
	if old != nil {
		result.Previous = old.id
		if err := old.index.Close(); err != nil {
			x.logger.Warn("Failed to close previous generation", zap.String("generation", old.id), zap.Error(err))
		}
	}
	x.removeStaleGenerations(path)

	x.logger.Info("Committed index build",
		zap.String("generation", id),
		zap.Int("documents", len(records)),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// writeGeneration creates a new bleve index at path and writes every record in batches.
func (x *Index) writeGeneration(ctx context.Context, path string, records []models.PostRecord) error {
	im, err := x.buildMapping()
	if err != nil {
		return fmt.Errorf("failed to build index mapping: %w", err)
	}
	idx, err := bleve.New(path, im)
	if err != nil {
		return fmt.Errorf("failed to create bleve index: %w", err)
	}

	batch := idx.NewBatch()
	for i := range records {
		rec := &records[i]
		if err := batch.Index(rec.ID, postDocument(rec)); err != nil {
			_ = idx.Close()
			return fmt.Errorf("failed to index post %s: %w", rec.ID, err)
		}
		if batch.Size() >= x.batchSize {
			if err := ctx.Err(); err != nil {
				_ = idx.Close()
				return err
			}
			if err := idx.Batch(batch); err != nil {
				_ = idx.Close()
				return fmt.Errorf("failed to write batch: %w", err)
			}
			batch.Reset()
		}
	}
	if batch.Size() > 0 {
		if err := idx.Batch(batch); err != nil {
			_ = idx.Close()
			return fmt.Errorf("failed to write batch: %w", err)
		}
	}
	return idx.Close()
}

// postDocument is the stored form of a post. Every value is a string so stored fields
// come back exactly as written.
func postDocument(rec *models.PostRecord) map[string]interface{} {
	return map[string]interface{}{
		analysis.FieldID:        rec.ID,
		analysis.FieldAuthor:    rec.Author,
		analysis.FieldTitle:     rec.Title,
		analysis.FieldBody:      rec.Body,
		analysis.FieldComments:  rec.FlattenedComments(),
		analysis.FieldTimestamp: rec.Timestamp,
		analysis.FieldUpvotes:   strconv.Itoa(rec.Upvotes.Int()),
		analysis.FieldRatio:     strconv.FormatFloat(float64(rec.Ratio), 'f', -1, 64),
		analysis.FieldPermalink: rec.Permalink,
		analysis.FieldURL:       rec.URL,
		analysis.FieldTextURLs:  models.EncodeTextURLs(rec.TextURLs),
	}
}

// validateRecords checks every record and rejects duplicate ids.
func validateRecords(records []models.PostRecord) error {
	seen := make(map[string]struct{}, len(records))
	for i := range records {
		rec := &records[i]
		if err := rec.Validate(); err != nil {
			return err
		}
		if _, dup := seen[rec.ID]; dup {
			return apperrors.NewMalformedRecordError(rec.ID, "id", "duplicate id")
		}
		seen[rec.ID] = struct{}{}
	}
	return nil
}

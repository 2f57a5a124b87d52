// Package keyword builds, persists and queries the lexical post index.
//
// Each build writes a fresh generation directory under the index directory. The
// generation recorded as committed in the catalog is the only one served; readers never
// see a generation that is still being written.
package keyword

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"go.uber.org/zap"

	"github.com/ezpogue/IRProjectPhase2/internal/analysis"
	apperrors "github.com/ezpogue/IRProjectPhase2/internal/errors"
	"github.com/ezpogue/IRProjectPhase2/internal/storage"
)

const (
	generationPrefix = storage.GenerationDirPrefix
	lockFileName     = ".build.lock"

	defaultBatchSize     = 500
	defaultMaxQueryTerms = 32
)

// generation is an opened, committed index.
type generation struct {
	id          string
	path        string
	index       bleve.Index
	committedAt *time.Time
}

// Index serves the committed generation and builds new ones.
type Index struct {
	dir           string
	analyzer      *analysis.Analyzer
	catalog       storage.Catalog
	logger        *zap.Logger
	readOnly      bool
	batchSize     int
	maxQueryTerms int

	mu      sync.RWMutex
	live    *generation
	openErr error

	buildMu sync.Mutex
}

// IndexOption is a functional option for configuring Index.
type IndexOption func(*Index)

// WithLogger sets the logger for the index.
func WithLogger(l *zap.Logger) IndexOption {
	return func(x *Index) {
		x.logger = l
	}
}

// WithReadOnly opens the index for querying only; Build fails.
func WithReadOnly() IndexOption {
	return func(x *Index) {
		x.readOnly = true
	}
}

// WithBatchSize sets how many posts are written per bleve batch.
func WithBatchSize(n int) IndexOption {
	return func(x *Index) {
		if n > 0 {
			x.batchSize = n
		}
	}
}

// WithMaxQueryTerms caps the number of analyzed query terms; extra terms are ignored.
func WithMaxQueryTerms(n int) IndexOption {
	return func(x *Index) {
		if n > 0 {
			x.maxQueryTerms = n
		}
	}
}

// Open prepares dir and opens the generation the catalog marks as committed, if any.
// A missing or unreadable generation is not an error here; queries fail with
// IndexUnavailable until a build commits.
func Open(ctx context.Context, dir string, analyzer *analysis.Analyzer, catalog storage.Catalog, opts ...IndexOption) (*Index, error) {
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer is required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	x := &Index{
		dir:           dir,
		analyzer:      analyzer,
		catalog:       catalog,
		logger:        zap.NewNop(),
		batchSize:     defaultBatchSize,
		maxQueryTerms: defaultMaxQueryTerms,
	}
	for _, opt := range opts {
		opt(x)
	}
	if !x.readOnly {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}

	active, err := catalog.ActiveGeneration(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read active generation: %w", err)
	}
	if active == nil {
		x.logger.Info("No committed index generation", zap.String("dir", dir))
		return x, nil
	}
	gen, err := openGeneration(active.ID, active.Path)
	if err != nil {
		x.logger.Warn("Failed to open committed generation",
			zap.String("generation", active.ID),
			zap.String("path", active.Path),
			zap.Error(err))
		x.openErr = apperrors.NewIndexUnavailableError(active.Path, err)
		return x, nil
	}
	gen.committedAt = active.FinishedAt
	x.live = gen
	x.logger.Info("Opened index generation",
		zap.String("generation", gen.id),
		zap.String("path", gen.path))
	return x, nil
}

// openGeneration opens a committed generation read-only. Committed generations are never
// written again.
func openGeneration(id, path string) (*generation, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	idx, err := bleve.OpenUsing(path, map[string]interface{}{"read_only": true})
	if err != nil {
		return nil, fmt.Errorf("failed to open bleve index: %w", err)
	}
	return &generation{id: id, path: path, index: idx}, nil
}

// acquire returns the live generation with the read lock held; callers must call release.
func (x *Index) acquire() (*generation, func(), error) {
	x.mu.RLock()
	if x.live == nil {
		err := x.openErr
		x.mu.RUnlock()
		if err == nil {
			err = apperrors.NewIndexUnavailableError(x.dir, nil)
		}
		return nil, nil, err
	}
	return x.live, x.mu.RUnlock, nil
}

// Generation returns the id of the served generation, or "" if none.
func (x *Index) Generation() string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.live == nil {
		return ""
	}
	return x.live.id
}

// Available reports whether a committed generation is being served.
func (x *Index) Available() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.live != nil
}

// Dir returns the index directory.
func (x *Index) Dir() string {
	return x.dir
}

// DocCount returns the number of posts in the served generation.
func (x *Index) DocCount() (uint64, error) {
	gen, release, err := x.acquire()
	if err != nil {
		return 0, err
	}
	defer release()
	return gen.index.DocCount()
}

// Info describes the served generation.
type Info struct {
	Generation  string
	Path        string
	Documents   uint64
	CommittedAt *time.Time
}

// Info returns the served generation's id, path, document count and commit time.
func (x *Index) Info() (*Info, error) {
	gen, release, err := x.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	n, err := gen.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	return &Info{Generation: gen.id, Path: gen.path, Documents: n, CommittedAt: gen.committedAt}, nil
}

// Close closes the served generation.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.live == nil {
		return nil
	}
	err := x.live.index.Close()
	x.live = nil
	return err
}

// buildMapping maps every post field according to the analyzer's policies. Dynamic
// mapping is off so only known fields are stored.
func (x *Index) buildMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	if err := x.analyzer.Register(im); err != nil {
		return nil, err
	}
	im.DefaultAnalyzer = analysis.AnalyzerName
	im.StoreDynamic = false
	im.IndexDynamic = false

	docMapping := bleve.NewDocumentMapping()
	docMapping.Dynamic = false
	for field, policy := range x.analyzer.Policies() {
		var fm *mapping.FieldMapping
		if policy == analysis.Tokenized {
			fm = bleve.NewTextFieldMapping()
			fm.Analyzer = analysis.AnalyzerName
			fm.IncludeTermVectors = true
		} else {
			fm = bleve.NewKeywordFieldMapping()
			fm.Index = false
			fm.DocValues = false
		}
		fm.Store = true
		fm.IncludeInAll = false
		docMapping.AddFieldMappingsAt(field, fm)
	}
	im.DefaultMapping = docMapping
	return im, nil
}

func (x *Index) generationPath(id string) string {
	return filepath.Join(x.dir, generationPrefix+id)
}

// removeStaleGenerations deletes generation directories other than keep. Leftovers come
// from superseded builds and from builds interrupted by a crash.
func (x *Index) removeStaleGenerations(keep string) {
	entries, err := os.ReadDir(x.dir)
	if err != nil {
		x.logger.Warn("Failed to list index directory", zap.String("dir", x.dir), zap.Error(err))
		return
	}
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), generationPrefix) {
			continue
		}
		path := filepath.Join(x.dir, e.Name())
		if path == keep {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			x.logger.Warn("Failed to remove stale generation", zap.String("path", path), zap.Error(err))
			continue
		}
		x.logger.Debug("Removed stale generation", zap.String("path", path))
	}
}

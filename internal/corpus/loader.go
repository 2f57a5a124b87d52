// Package corpus reads post records from newline-delimited JSON files.
package corpus

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/ezpogue/IRProjectPhase2/internal/errors"
	"github.com/ezpogue/IRProjectPhase2/internal/models"
)

// maxLineBytes bounds a single post line. Posts with long comment threads run to a few
// megabytes.
const maxLineBytes = 64 << 20

// DefaultExtensions are the file extensions read when none are configured.
var DefaultExtensions = []string{".json", ".jsonl", ".ndjson"}

// Loader reads a corpus directory.
type Loader struct {
	extensions  map[string]struct{}
	concurrency int
	logger      *zap.Logger
}

// LoaderOption is a functional option for configuring Loader.
type LoaderOption func(*Loader)

// WithLogger sets the logger for the loader.
func WithLogger(l *zap.Logger) LoaderOption {
	return func(ld *Loader) {
		ld.logger = l
	}
}

// WithExtensions limits loading to files with the given extensions (case-insensitive).
func WithExtensions(exts []string) LoaderOption {
	return func(ld *Loader) {
		if len(exts) == 0 {
			return
		}
		ld.extensions = extensionSet(exts)
	}
}

// WithConcurrency sets how many files are decoded at once.
func WithConcurrency(n int) LoaderOption {
	return func(ld *Loader) {
		if n > 0 {
			ld.concurrency = n
		}
	}
}

// NewLoader creates a Loader.
func NewLoader(opts ...LoaderOption) *Loader {
	ld := &Loader{
		extensions:  extensionSet(DefaultExtensions),
		concurrency: runtime.NumCPU(),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

func extensionSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return set
}

// Load is shorthand for NewLoader(WithExtensions(exts)).Load(ctx, dir).
func Load(ctx context.Context, dir string, exts []string) ([]models.PostRecord, error) {
	return NewLoader(WithExtensions(exts)).Load(ctx, dir)
}

// Files returns the corpus files under dir, sorted by path. Hidden files and directories
// are skipped.
func (ld *Loader) Files(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat corpus directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus path is not a directory: %s", dir)
	}
	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if path != dir && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := ld.extensions[strings.ToLower(filepath.Ext(name))]; ok {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk corpus directory: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// Load reads every corpus file under dir. Files are decoded concurrently; the result
// keeps file order (by path) and line order. The first malformed line fails the load
// with a MalformedRecord error naming the file and line.
func (ld *Loader) Load(ctx context.Context, dir string) ([]models.PostRecord, error) {
	files, err := ld.Files(dir)
	if err != nil {
		return nil, err
	}
	perFile := make([][]models.PostRecord, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ld.concurrency)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			records, err := ld.LoadFile(gctx, path)
			if err != nil {
				return err
			}
			perFile[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, records := range perFile {
		total += len(records)
	}
	out := make([]models.PostRecord, 0, total)
	for _, records := range perFile {
		out = append(out, records...)
	}
	ld.logger.Info("Loaded corpus",
		zap.String("dir", dir),
		zap.Int("files", len(files)),
		zap.Int("records", len(out)))
	return out, nil
}

// LoadFile reads one file. A file whose first non-blank byte is '[' is read as a JSON
// array of posts; anything else is one post per line, blank lines ignored.
func (ld *Loader) LoadFile(ctx context.Context, path string) ([]models.PostRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus file: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	first, err := peekNonSpace(r)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var records []models.PostRecord
	if first == '[' {
		records, err = decodeArray(r, path)
	} else {
		records, err = decodeLines(ctx, r, path)
	}
	if err != nil {
		return nil, err
	}
	ld.logger.Debug("Loaded corpus file", zap.String("path", path), zap.Int("records", len(records)))
	return records, nil
}

func peekNonSpace(r *bufio.Reader) (byte, error) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		if b == ' ' || b == '\t' || b == '\r' || b == '\n' {
			continue
		}
		return b, r.UnreadByte()
	}
}

func decodeLines(ctx context.Context, r io.Reader, path string) ([]models.PostRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	var records []models.PostRecord
	line := 0
	for scanner.Scan() {
		line++
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		var rec models.PostRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, decodeError(path, line, err)
		}
		if err := rec.Validate(); err != nil {
			return nil, locate(err, path, line)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, decodeError(path, line+1, err)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return records, nil
}

func decodeArray(r io.Reader, path string) ([]models.PostRecord, error) {
	var records []models.PostRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, decodeError(path, 0, err)
	}
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return nil, locate(err, path, 0)
		}
	}
	return records, nil
}

func decodeError(path string, line int, cause error) error {
	return &apperrors.MalformedRecordError{
		Field:  "json",
		Line:   line,
		Source: path,
		Reason: "cannot be decoded",
		Cause:  cause,
	}
}

// locate adds the file position to a validation error.
func locate(err error, path string, line int) error {
	var mr *apperrors.MalformedRecordError
	if errors.As(err, &mr) {
		mr.Source = path
		mr.Line = line
	}
	return err
}

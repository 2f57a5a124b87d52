package storage

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// GenerationDirPrefix names the per-build index directories under the index root.
const GenerationDirPrefix = "gen-"

// Usage is the on-disk footprint of the search index.
type Usage struct {
	// GenerationBytes is the size of the served generation directory.
	GenerationBytes int64
	// StaleBytes counts other generation directories not yet removed.
	StaleBytes int64
	// CatalogBytes is the catalog database plus its WAL and shared-memory files.
	CatalogBytes int64
}

// Total returns the bytes of the served generation and the catalog. Stale generations
// are excluded since they are removed after the next commit.
func (u Usage) Total() int64 {
	return u.GenerationBytes + u.CatalogBytes
}

// MeasureUsage sizes the served generation at generationPath, its sibling generations,
// and the catalog at catalogPath. An empty or ":memory:" catalog path contributes nothing,
// and files that disappear while walking are skipped.
func MeasureUsage(generationPath, catalogPath string) (Usage, error) {
	var u Usage
	if generationPath != "" {
		root := filepath.Dir(generationPath)
		entries, err := os.ReadDir(root)
		if err != nil && !os.IsNotExist(err) {
			return Usage{}, err
		}
		for _, e := range entries {
			if !e.IsDir() || !strings.HasPrefix(e.Name(), GenerationDirPrefix) {
				continue
			}
			path := filepath.Join(root, e.Name())
			n, err := treeSize(path)
			if err != nil {
				return Usage{}, err
			}
			if path == filepath.Clean(generationPath) {
				u.GenerationBytes = n
			} else {
				u.StaleBytes += n
			}
		}
	}
	if catalogPath != "" && catalogPath != ":memory:" {
		for _, suffix := range []string{"", "-wal", "-shm"} {
			info, err := os.Stat(catalogPath + suffix)
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return Usage{}, err
			}
			u.CatalogBytes += info.Size()
		}
	}
	return u, nil
}

func treeSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}

// Package cache keeps cleaned datasets in memory keyed by the
// absolute path of their raw file. An entry stays valid while the
// file's size, modification time and content hash are unchanged, so a
// touched but identical file does not force a reload.
package cache

import (
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"engineatlas/internal/dataset"
)

// Fingerprint identifies one raw file state.
type Fingerprint struct {
	Path     string
	Size     int64
	ModTime  time.Time
	Checksum string
}

type entry struct {
	table    *dataset.Table
	fp       Fingerprint
	storedAt time.Time
}

// DatasetCache is a concurrency-safe table cache. Cached tables are
// shared; callers must treat them as read-only.
type DatasetCache struct {
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// New returns an empty cache.
func New(logger *slog.Logger) *DatasetCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &DatasetCache{
		logger:  logger.With(slog.String("component", "dataset_cache")),
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Put stores the table for path and returns the fingerprint taken
// from the file as it is right now.
func (c *DatasetCache) Put(path string, tbl *dataset.Table) (Fingerprint, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	fp, err := fingerprintFile(abs)
	if err != nil {
		return Fingerprint{}, err
	}

	c.mu.Lock()
	c.entries[abs] = entry{table: tbl, fp: fp, storedAt: c.now()}
	c.mu.Unlock()

	c.logger.Debug("dataset cached",
		slog.String("path", abs),
		slog.Int64("size", fp.Size),
		slog.Int("rows", tbl.NumRows()))
	return fp, nil
}

// Get returns the cached table for path if the file still matches
// its stored fingerprint. A file rewritten with identical content
// refreshes the stored mtime and stays a hit.
func (c *DatasetCache) Get(path string) (*dataset.Table, Fingerprint, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, Fingerprint{}, false
	}

	c.mu.RLock()
	e, ok := c.entries[abs]
	c.mu.RUnlock()
	if !ok {
		return nil, Fingerprint{}, false
	}

	info, err := os.Stat(abs)
	if err != nil {
		c.Invalidate(abs)
		return nil, Fingerprint{}, false
	}
	if info.Size() == e.fp.Size && info.ModTime().Equal(e.fp.ModTime) {
		return e.table, e.fp, true
	}

	sum, err := hashFile(abs)
	if err != nil || sum != e.fp.Checksum || info.Size() != e.fp.Size {
		c.Invalidate(abs)
		return nil, Fingerprint{}, false
	}

	e.fp.ModTime = info.ModTime()
	c.mu.Lock()
	c.entries[abs] = e
	c.mu.Unlock()
	return e.table, e.fp, true
}

// Invalidate drops the entry for path, reporting whether one existed.
func (c *DatasetCache) Invalidate(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[abs]
	delete(c.entries, abs)
	return ok
}

// Len reports the number of cached datasets.
func (c *DatasetCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func fingerprintFile(abs string) (Fingerprint, error) {
	info, err := os.Stat(abs)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("failed to stat %s: %w", abs, err)
	}
	sum, err := hashFile(abs)
	if err != nil {
		return Fingerprint{}, err
	}
	return Fingerprint{
		Path:     abs,
		Size:     info.Size(),
		ModTime:  info.ModTime(),
		Checksum: sum,
	}, nil
}

func hashFile(abs string) (string, error) {
	f, err := os.Open(abs)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", abs, err)
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", fmt.Errorf("failed to init hasher: %w", err)
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", abs, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

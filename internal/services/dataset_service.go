package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"engineatlas/internal/cache"
	"engineatlas/internal/config"
	"engineatlas/internal/dataprocessing"
	"engineatlas/internal/dataset"
	apierrors "engineatlas/internal/errors"
	"engineatlas/internal/pipeline"
	"engineatlas/internal/validation"
	"engineatlas/pkg/contracts/domain"
)

// Record page bounds for /api/dataset/records.
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// Broadcaster pushes dataset lifecycle and pipeline progress events to
// connected dashboard clients. The websocket hub implements it; a nil
// Broadcaster drops every event.
type Broadcaster interface {
	BroadcastUpdate(eventType, subtype, action string, data interface{})
}

// LoadResult describes how the canonical dataset was produced.
type LoadResult struct {
	Info      domain.DatasetInfo
	FromCache bool
	Duration  time.Duration
}

// DatasetService owns the canonical dataset. It loads the raw CSV
// through the cleaning pipeline, keeps the cleaned table in memory and
// hands out filtered views. All methods are safe for concurrent use;
// handed-out tables are copies or read-only views and must not be
// mutated by callers.
type DatasetService struct {
	cfg      *config.Config
	pipeline *dataprocessing.Pipeline
	cache    *cache.DatasetCache
	hub      Broadcaster
	validate *validation.FileValidator
	logger   *slog.Logger

	// loadMu serializes pipeline runs so racing first requests do not
	// clean the same file twice.
	loadMu sync.Mutex

	mu        sync.RWMutex
	table     *dataset.Table
	info      domain.DatasetInfo
	reloading bool
}

// NewDatasetService wires the pipeline, the table cache and the
// broadcast hub. cache and hub may be nil; a nil cache disables reuse
// across reloads and a nil hub drops events.
func NewDatasetService(cfg *config.Config, p *dataprocessing.Pipeline, c *cache.DatasetCache, hub Broadcaster, logger *slog.Logger) *DatasetService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "dataset_service"))

	s := &DatasetService{
		cfg:      cfg,
		pipeline: p,
		cache:    c,
		hub:      hub,
		validate: validation.NewFileValidator(logger),
		logger:   logger,
	}
	p.SetProgressFunc(s.broadcastProgress)

	logger.Info("dataset service initialized",
		slog.String("dataset_path", cfg.DatasetPath()),
		slog.Bool("cache_enabled", cfg.Dataset.CacheEnabled))
	return s
}

// broadcastProgress forwards pipeline stage transitions to the hub.
func (s *DatasetService) broadcastProgress(p pipeline.Progress) {
	if s.hub == nil {
		return
	}
	action := "running"
	if p.Failed {
		action = "failed"
	} else if p.Completed == p.Total {
		action = "completed"
	}
	s.hub.BroadcastUpdate("pipeline", p.Stage, action, p)
}

// Load makes sure the canonical dataset is in memory and reports how
// it got there. A table already resident counts as a cache hit.
func (s *DatasetService) Load(ctx context.Context) (LoadResult, error) {
	return s.load(ctx, false)
}

// Reload re-cleans the raw file and swaps the canonical dataset.
// force drops the cached table first so the pipeline runs even when
// the file is unchanged. Concurrent reloads are rejected with
// ErrReloadInProgress.
func (s *DatasetService) Reload(ctx context.Context, force bool) (LoadResult, error) {
	s.mu.Lock()
	if s.reloading {
		s.mu.Unlock()
		return LoadResult{}, ErrReloadInProgress
	}
	s.reloading = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.reloading = false
		s.mu.Unlock()
	}()

	if force && s.cache != nil {
		s.cache.Invalidate(s.cfg.DatasetPath())
	}

	result, err := s.load(ctx, true)
	if err != nil {
		if s.hub != nil {
			s.hub.BroadcastUpdate("dataset", "reload", "failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return LoadResult{}, err
	}

	if s.hub != nil {
		s.hub.BroadcastUpdate("dataset", "reload", "completed", result.Info)
	}
	return result, nil
}

// load runs the cache-or-pipeline path and installs the result.
// fresh skips the resident-table short-circuit so reloads always
// re-check the file.
func (s *DatasetService) load(ctx context.Context, fresh bool) (LoadResult, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	if !fresh {
		s.mu.RLock()
		tbl, info := s.table, s.info
		s.mu.RUnlock()
		if tbl != nil {
			return LoadResult{Info: info, FromCache: true}, nil
		}
	}

	path := s.cfg.DatasetPath()
	start := time.Now()

	if s.cfg.Dataset.CacheEnabled && s.cache != nil {
		if tbl, fp, ok := s.cache.Get(path); ok {
			info := s.install(tbl, fp)
			s.logger.InfoContext(ctx, "dataset served from cache",
				slog.String("path", path),
				slog.Int("rows", info.Rows))
			return LoadResult{Info: info, FromCache: true, Duration: time.Since(start)}, nil
		}
	}

	if err := s.validate.ValidateDatasetFile(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%w: %s", apierrors.ErrDatasetMissing, path)
		}
		logServiceError(ctx, "dataset_service", "load", "dataset pre-flight check failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return LoadResult{}, err
	}

	tbl, err := s.pipeline.Clean(ctx, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%w: %s", apierrors.ErrDatasetMissing, path)
		}
		logServiceError(ctx, "dataset_service", "load", "dataset load failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return LoadResult{}, err
	}
	if tbl.NumRows() == 0 {
		return LoadResult{}, fmt.Errorf("%w: %s", apierrors.ErrDatasetEmpty, path)
	}

	var fp cache.Fingerprint
	if s.cfg.Dataset.CacheEnabled && s.cache != nil {
		fp, err = s.cache.Put(path, tbl)
		if err != nil {
			// Fingerprinting failed; serve the table without caching.
			s.logger.WarnContext(ctx, "dataset cache store failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
			fp = fileFingerprint(path)
		}
	} else {
		fp = fileFingerprint(path)
	}

	info := s.install(tbl, fp)
	s.logger.InfoContext(ctx, "dataset loaded",
		slog.String("path", path),
		slog.Int("rows", info.Rows),
		slog.Int("columns", info.Columns),
		slog.Duration("duration", time.Since(start)))
	return LoadResult{Info: info, Duration: time.Since(start)}, nil
}

// fileFingerprint stats the raw file when the table cache is not in
// play, leaving the checksum empty.
func fileFingerprint(path string) cache.Fingerprint {
	fp := cache.Fingerprint{Path: path}
	if abs, err := filepath.Abs(path); err == nil {
		fp.Path = abs
	}
	if info, err := os.Stat(fp.Path); err == nil {
		fp.Size = info.Size()
		fp.ModTime = info.ModTime()
	}
	return fp
}

// install swaps the canonical table and derives its info record.
func (s *DatasetService) install(tbl *dataset.Table, fp cache.Fingerprint) domain.DatasetInfo {
	info := domain.DatasetInfo{
		Path:      fp.Path,
		Rows:      tbl.NumRows(),
		Columns:   tbl.NumCols(),
		Checksum:  fp.Checksum,
		LoadedAt:  time.Now().UTC(),
		SizeBytes: fp.Size,
	}
	s.mu.Lock()
	s.table = tbl
	s.info = info
	s.mu.Unlock()
	return info
}

// ensure returns the canonical table, loading it on first use.
func (s *DatasetService) ensure(ctx context.Context) (*dataset.Table, error) {
	s.mu.RLock()
	tbl := s.table
	s.mu.RUnlock()
	if tbl != nil {
		return tbl, nil
	}
	if _, err := s.load(ctx, false); err != nil {
		return nil, err
	}
	s.mu.RLock()
	tbl = s.table
	s.mu.RUnlock()
	return tbl, nil
}

// Loaded reports whether a canonical dataset is resident.
func (s *DatasetService) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table != nil
}

// Info returns metadata for the canonical dataset, loading it first
// if needed.
func (s *DatasetService) Info(ctx context.Context) (domain.DatasetInfo, error) {
	if _, err := s.ensure(ctx); err != nil {
		return domain.DatasetInfo{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info, nil
}

// Schema reports table shape and per-column missingness.
func (s *DatasetService) Schema(ctx context.Context) (domain.SchemaReport, error) {
	tbl, err := s.ensure(ctx)
	if err != nil {
		return domain.SchemaReport{}, err
	}
	return dataset.BuildSchemaReport(tbl), nil
}

// View returns the filtered dataset as a new table. An empty filter
// returns a copy of the whole canonical table.
func (s *DatasetService) View(ctx context.Context, f dataset.Filter) (*dataset.Table, error) {
	tbl, err := s.ensure(ctx)
	if err != nil {
		return nil, err
	}
	return f.Apply(tbl), nil
}

// Records returns one page of filtered records. limit falls back to
// DefaultPageSize, is capped at MaxPageSize, and offsets past the end
// yield an empty page with the true total.
func (s *DatasetService) Records(ctx context.Context, f dataset.Filter, limit, offset int) (domain.RecordPage, error) {
	view, err := s.View(ctx, f)
	if err != nil {
		return domain.RecordPage{}, err
	}

	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	total := view.NumRows()
	from := offset
	if from > total {
		from = total
	}
	to := from + limit
	if to > total {
		to = total
	}

	records := make([]map[string]interface{}, 0, to-from)
	for i := from; i < to; i++ {
		records = append(records, view.Record(i))
	}
	return domain.RecordPage{
		Records: records,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	}, nil
}

// FilterOptions enumerates the selectable values the dashboard offers
// for narrowing the dataset: distinct makes and engine types, the
// observed year range and the distinct cylinder counts.
func (s *DatasetService) FilterOptions(ctx context.Context) (domain.FilterOptions, error) {
	tbl, err := s.ensure(ctx)
	if err != nil {
		return domain.FilterOptions{}, err
	}

	opts := domain.FilterOptions{
		Makes:       distinctTexts(tbl, dataset.ColMake),
		EngineTypes: distinctTexts(tbl, dataset.ColEngineType),
		Cylinders:   distinctInts(tbl, dataset.ColNumberOfCylinders),
	}
	opts.YearMin, opts.YearMax = yearRange(tbl)
	return opts, nil
}

func distinctTexts(t *dataset.Table, name string) []string {
	col, ok := t.Column(name)
	if !ok || col.Kind() != dataset.KindText {
		return nil
	}
	seen := make(map[string]struct{})
	for i := 0; i < col.Len(); i++ {
		if v := col.Text(i); v != "" {
			seen[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func distinctInts(t *dataset.Table, name string) []int {
	col, ok := t.Column(name)
	if !ok || col.Kind() != dataset.KindFloat {
		return nil
	}
	seen := make(map[int]struct{})
	for i := 0; i < col.Len(); i++ {
		if f := col.Float(i); f.Valid {
			seen[int(f.Value)] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

func yearRange(t *dataset.Table) (int, int) {
	col, ok := t.Column(dataset.ColYear)
	if !ok || col.Kind() != dataset.KindFloat {
		return 0, 0
	}
	min, max := 0, 0
	first := true
	for i := 0; i < col.Len(); i++ {
		f := col.Float(i)
		if !f.Valid {
			continue
		}
		y := int(f.Value)
		if first {
			min, max = y, y
			first = false
			continue
		}
		if y < min {
			min = y
		}
		if y > max {
			max = y
		}
	}
	return min, max
}

package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"hpipulse/internal/cache"
	"hpipulse/internal/config"
	"hpipulse/internal/dataset"
	"hpipulse/internal/files"
	"hpipulse/internal/infrastructure"
)

// Notice types published by the dataset service.
const (
	NoticeDatasetRefreshed  = "dataset:refreshed"
	NoticeDatasetDiagnostic = "dataset:diagnostic"
	NoticeDatasetFailed     = "dataset:failed"
)

// Notice levels.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Notifier publishes dataset notices to interested clients. Implementations
// must not block.
type Notifier interface {
	Notify(ctx context.Context, noticeType, level string, data interface{})
}

// DatasetConfig selects what the service merges.
type DatasetConfig struct {
	Sources          []dataset.Source
	Concurrency      int
	NationwideRegion string
	// MergeTimeout bounds a single merge. Zero means no bound.
	MergeTimeout time.Duration
}

// DatasetDeps are the collaborators of a DatasetService. Only Cache is
// required.
type DatasetDeps struct {
	Cache    *cache.Cache[*dataset.MergeResult]
	Tracer   trace.Tracer
	Metrics  *infrastructure.ServiceMetrics
	Notifier Notifier
	Logger   *slog.Logger
}

// DatasetStatus summarizes the most recent merge.
type DatasetStatus struct {
	Loaded      bool        `json:"loaded"`
	Key         string      `json:"key,omitempty"`
	Rows        int         `json:"rows"`
	Diagnostics int         `json:"diagnostics"`
	BuiltAt     time.Time   `json:"built_at,omitempty"`
	LastError   string      `json:"last_error,omitempty"`
	Cache       cache.Stats `json:"cache"`
}

// Overview describes the unified table.
type Overview struct {
	Rows        int                  `json:"rows"`
	Columns     int                  `json:"columns"`
	ColumnNames []string             `json:"column_names"`
	Sources     []string             `json:"sources"`
	Diagnostics []dataset.Diagnostic `json:"diagnostics"`
	Signatures  []files.Signature    `json:"signatures"`
	Head        []map[string]any     `json:"head"`
	Cached      bool                 `json:"cached"`
}

// RegionSummary holds descriptive statistics for one region.
type RegionSummary struct {
	Region string                `json:"region"`
	Rows   int                   `json:"rows"`
	From   string                `json:"from,omitempty"`
	To     string                `json:"to,omitempty"`
	Stats  []dataset.ColumnStats `json:"stats"`
}

// MeltRequest is an ad hoc reshape of the merged table. Region, when set,
// restricts the table to one region first.
type MeltRequest struct {
	Region        string   `json:"region,omitempty"`
	IDColumns     []string `json:"id_columns" validate:"required,min=1,unique,dive,column"`
	ValueColumns  []string `json:"value_columns" validate:"unique,dive,column"`
	CategoryLabel string   `json:"category_label,omitempty" validate:"omitempty,max=128,column"`
	ValueLabel    string   `json:"value_label,omitempty" validate:"omitempty,max=128,column"`
}

// ViewResult is a catalog view rendered for a region.
type ViewResult struct {
	View   ViewDefinition     `json:"view"`
	Region string             `json:"region"`
	Table  *dataset.LongTable `json:"-"`
}

// DatasetService builds, memoizes and queries the merged dataset.
type DatasetService struct {
	fsys     fs.FS
	cfg      DatasetConfig
	cache    *cache.Cache[*dataset.MergeResult]
	tracer   trace.Tracer
	metrics  *infrastructure.ServiceMetrics
	notifier Notifier
	logger   *slog.Logger

	mu     sync.Mutex
	status DatasetStatus
}

// NewDatasetService creates the service. fsys is the data directory the
// source paths are resolved in.
func NewDatasetService(fsys fs.FS, cfg DatasetConfig, deps DatasetDeps) (*DatasetService, error) {
	if fsys == nil {
		return nil, errors.New("dataset service requires a filesystem")
	}
	if deps.Cache == nil {
		return nil, errors.New("dataset service requires a cache")
	}
	if len(cfg.Sources) == 0 {
		return nil, dataset.ErrNoSources
	}
	if cfg.NationwideRegion == "" {
		cfg.NationwideRegion = config.NationwideRegion
	}
	if deps.Tracer == nil {
		deps.Tracer = tracenoop.NewTracerProvider().Tracer(infrastructure.ServiceName)
	}
	if deps.Metrics == nil {
		deps.Metrics = infrastructure.NoopServiceMetrics()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &DatasetService{
		fsys:     fsys,
		cfg:      cfg,
		cache:    deps.Cache,
		tracer:   deps.Tracer,
		metrics:  deps.Metrics,
		notifier: deps.Notifier,
		logger:   deps.Logger.With(slog.String("component", "dataset_service")),
	}, nil
}

// Sources returns the configured sources in merge order.
func (s *DatasetService) Sources() []dataset.Source {
	return append([]dataset.Source(nil), s.cfg.Sources...)
}

// Dataset returns the merged dataset for the current state of the sources.
// Unchanged sources are served from the cache without being read.
func (s *DatasetService) Dataset(ctx context.Context) (*dataset.MergeResult, error) {
	res, _, _, err := s.load(ctx)
	return res, err
}

func (s *DatasetService) load(ctx context.Context) (*dataset.MergeResult, []files.Signature, bool, error) {
	key, signatures := files.Fingerprint(s.fsys, s.cfg.Sources)

	res, hit, err := s.cache.GetOrCompute(ctx, key, func(ctx context.Context) (*dataset.MergeResult, error) {
		return s.merge(ctx, key)
	})
	if err != nil {
		return nil, signatures, false, err
	}
	return res, signatures, hit, nil
}

func (s *DatasetService) merge(ctx context.Context, key cache.SourceSetKey) (*dataset.MergeResult, error) {
	ctx, span := s.tracer.Start(ctx, "dataset.merge",
		trace.WithAttributes(
			attribute.Int("dataset.sources", len(s.cfg.Sources)),
			attribute.String("dataset.key", string(key)),
		))
	defer span.End()

	if s.cfg.MergeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.MergeTimeout)
		defer cancel()
	}

	start := time.Now()
	res, err := dataset.Merge(ctx, s.fsys, s.cfg.Sources, dataset.Options{
		Concurrency: s.cfg.Concurrency,
		Logger:      s.logger,
	})
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.RecordMerge(ctx, duration, 0, nil, err)
		s.setStatus(func(st *DatasetStatus) { st.LastError = err.Error() })
		s.logger.ErrorContext(ctx, "dataset merge failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", duration))
		if !isContextErr(err) {
			s.notify(ctx, NoticeDatasetFailed, LevelError, map[string]interface{}{"error": err.Error()})
		}
		return nil, err
	}

	kinds := make(map[string]int)
	for _, d := range res.Diagnostics {
		kinds[string(d.Kind)]++
	}
	rows := res.Table.Len()
	span.SetAttributes(attribute.Int("dataset.rows", rows), attribute.Int("dataset.diagnostics", len(res.Diagnostics)))
	s.metrics.RecordMerge(ctx, duration, rows, kinds, nil)

	s.setStatus(func(st *DatasetStatus) {
		st.Loaded = true
		st.Key = string(key)
		st.Rows = rows
		st.Diagnostics = len(res.Diagnostics)
		st.BuiltAt = time.Now()
		st.LastError = ""
	})

	s.logger.InfoContext(ctx, "dataset merged",
		slog.Int("rows", rows),
		slog.Int("columns", res.Table.Width()),
		slog.Int("diagnostics", len(res.Diagnostics)),
		slog.Duration("duration", duration))

	for _, d := range res.Diagnostics {
		s.notify(ctx, NoticeDatasetDiagnostic, LevelWarning, d)
	}
	s.notify(ctx, NoticeDatasetRefreshed, LevelInfo, map[string]interface{}{
		"rows":        rows,
		"sources":     res.Sources,
		"diagnostics": len(res.Diagnostics),
	})
	return res, nil
}

// Refresh drops the memoized dataset for the current sources and rebuilds it.
func (s *DatasetService) Refresh(ctx context.Context) (*dataset.MergeResult, error) {
	key, _ := files.Fingerprint(s.fsys, s.cfg.Sources)
	s.cache.Invalidate(key)
	s.logger.InfoContext(ctx, "dataset refresh requested", slog.String("key", string(key)))
	return s.Dataset(ctx)
}

// HandleSourceChange is a files.ChangeFunc: it rebuilds the dataset after
// extracts changed on disk.
func (s *DatasetService) HandleSourceChange(ctx context.Context, names []string) {
	s.logger.InfoContext(ctx, "source files changed", slog.Any("files", names))
	if _, err := s.Refresh(ctx); err != nil {
		s.logger.WarnContext(ctx, "rebuild after source change failed", slog.String("error", err.Error()))
	}
}

// Status reports the most recent merge and the cache counters.
func (s *DatasetService) Status() DatasetStatus {
	s.mu.Lock()
	st := s.status
	s.mu.Unlock()
	st.Cache = s.cache.Stats()
	return st
}

// Overview returns the shape of the merged table with its first headRows rows.
func (s *DatasetService) Overview(ctx context.Context, headRows int) (*Overview, error) {
	res, signatures, hit, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	diagnostics := res.Diagnostics
	if diagnostics == nil {
		diagnostics = []dataset.Diagnostic{}
	}
	return &Overview{
		Rows:        res.Table.Len(),
		Columns:     res.Table.Width(),
		ColumnNames: res.Table.AllColumns(),
		Sources:     res.Sources,
		Diagnostics: diagnostics,
		Signatures:  signatures,
		Head:        res.Table.Head(headRows).Records(),
		Cached:      hit,
	}, nil
}

// Regions lists the distinct regions, with the nationwide aggregate first
// and the rest in alphabetical order.
func (s *DatasetService) Regions(ctx context.Context) ([]string, error) {
	res, err := s.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	return pinFirst(dataset.Regions(res.Table), s.cfg.NationwideRegion), nil
}

// NationwideRegion returns the region listed first by Regions.
func (s *DatasetService) NationwideRegion() string {
	return s.cfg.NationwideRegion
}

// RegionSummary describes every numeric column for one region.
func (s *DatasetService) RegionSummary(ctx context.Context, region string) (*RegionSummary, error) {
	t, err := s.regionTable(ctx, region)
	if err != nil {
		return nil, err
	}

	summary := &RegionSummary{
		Region: region,
		Rows:   t.Len(),
		Stats:  dataset.Describe(t, nil),
	}
	if n := t.Len(); n > 0 {
		summary.From = t.Rows[0].Key.Date.Format(dataset.DateLayout)
		summary.To = t.Rows[n-1].Key.Date.Format(dataset.DateLayout)
	}
	return summary, nil
}

// Views returns the view catalog.
func (s *DatasetService) Views() []ViewDefinition {
	return Catalog()
}

// View melts a catalog view for one region. An empty region selects the
// nationwide aggregate.
func (s *DatasetService) View(ctx context.Context, viewID, region string) (*ViewResult, error) {
	view, ok := LookupView(viewID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrViewNotFound, viewID)
	}
	if region == "" {
		region = s.cfg.NationwideRegion
	}

	t, err := s.regionTable(ctx, region)
	if err != nil {
		return nil, err
	}
	long, err := dataset.Melt(t, view.IDColumns, view.ValueColumns, view.CategoryLabel, view.ValueLabel)
	if err != nil {
		return nil, fmt.Errorf("view %s: %w", viewID, err)
	}
	return &ViewResult{View: view, Region: region, Table: long}, nil
}

// Melt reshapes the merged table, optionally restricted to one region.
func (s *DatasetService) Melt(ctx context.Context, req MeltRequest) (*dataset.LongTable, error) {
	var (
		t   *dataset.Table
		err error
	)
	if req.Region != "" {
		t, err = s.regionTable(ctx, req.Region)
	} else {
		var res *dataset.MergeResult
		res, err = s.Dataset(ctx)
		if res != nil {
			t = res.Table
		}
	}
	if err != nil {
		return nil, err
	}
	return dataset.Melt(t, req.IDColumns, req.ValueColumns, req.CategoryLabel, req.ValueLabel)
}

func (s *DatasetService) regionTable(ctx context.Context, region string) (*dataset.Table, error) {
	res, err := s.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	t := dataset.FilterRegion(res.Table, region)
	if t.Len() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRegionNotFound, region)
	}
	return t, nil
}

func (s *DatasetService) setStatus(update func(*DatasetStatus)) {
	s.mu.Lock()
	update(&s.status)
	s.mu.Unlock()
}

func (s *DatasetService) notify(ctx context.Context, noticeType, level string, data interface{}) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, noticeType, level, data)
	}
}

// pinFirst moves first to the front of sorted when present.
func pinFirst(sorted []string, first string) []string {
	out := make([]string, 0, len(sorted))
	found := false
	for _, r := range sorted {
		if r == first {
			found = true
			continue
		}
		out = append(out, r)
	}
	if found {
		out = append([]string{first}, out...)
	}
	return out
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

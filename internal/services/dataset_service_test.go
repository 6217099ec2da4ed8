package services

import (
	"context"
	"errors"
	"io/fs"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"hpipulse/internal/cache"
	"hpipulse/internal/config"
	"hpipulse/internal/dataset"
	"hpipulse/internal/shared/testutil"
)

// countingFS counts opened files. Stat calls are not counted.
type countingFS struct {
	fstest.MapFS
	mu    sync.Mutex
	opens map[string]int
	total atomic.Int64
}

func newCountingFS() *countingFS {
	return &countingFS{MapFS: testutil.ExtractFS(), opens: make(map[string]int)}
}

func (c *countingFS) Open(name string) (fs.File, error) {
	c.mu.Lock()
	c.opens[name]++
	c.mu.Unlock()
	c.total.Add(1)
	return c.MapFS.Open(name)
}

func (c *countingFS) Stat(name string) (fs.FileInfo, error) {
	return c.MapFS.Stat(name)
}

func fixtureSources(t *testing.T, extra ...string) []dataset.Source {
	t.Helper()
	specs := append(append([]string(nil), testutil.FixtureSourceSpecs...), extra...)
	sources, err := config.ParseSourceSpecs(specs)
	require.NoError(t, err)
	return sources
}

func newTestService(t *testing.T, fsys fs.FS, notifier Notifier, extra ...string) *DatasetService {
	t.Helper()
	c, err := cache.New[*dataset.MergeResult]()
	require.NoError(t, err)
	logger, _ := testutil.NewTestLogger(t)

	deps := DatasetDeps{Cache: c, Logger: logger}
	if notifier != nil {
		deps.Notifier = notifier
	}
	svc, err := NewDatasetService(fsys, DatasetConfig{
		Sources:      fixtureSources(t, extra...),
		MergeTimeout: time.Minute,
	}, deps)
	require.NoError(t, err)
	return svc
}

func TestNewDatasetServiceValidation(t *testing.T) {
	c, err := cache.New[*dataset.MergeResult]()
	require.NoError(t, err)

	_, err = NewDatasetService(nil, DatasetConfig{Sources: fixtureSources(t)}, DatasetDeps{Cache: c})
	assert.Error(t, err)

	_, err = NewDatasetService(testutil.ExtractFS(), DatasetConfig{Sources: fixtureSources(t)}, DatasetDeps{})
	assert.Error(t, err)

	_, err = NewDatasetService(testutil.ExtractFS(), DatasetConfig{}, DatasetDeps{Cache: c})
	assert.ErrorIs(t, err, dataset.ErrNoSources)
}

func TestDatasetMemoizedWithoutRereading(t *testing.T) {
	fsys := newCountingFS()
	svc := newTestService(t, fsys, nil)
	ctx := context.Background()

	first, err := svc.Dataset(ctx)
	require.NoError(t, err)
	assert.Equal(t, testutil.FixtureRowCount, first.Table.Len())
	assert.Equal(t, int64(3), fsys.total.Load())

	second, err := svc.Dataset(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int64(3), fsys.total.Load(), "unchanged sources must not be re-read")

	stats := svc.Status().Cache
	assert.Equal(t, int64(1), stats.Computations)
	assert.Equal(t, int64(1), stats.Hits)
}

func TestDatasetConcurrentFirstAccessComputesOnce(t *testing.T) {
	fsys := newCountingFS()
	svc := newTestService(t, fsys, nil)

	results := make([]*dataset.MergeResult, 16)
	var g errgroup.Group
	for i := range results {
		g.Go(func() error {
			res, err := svc.Dataset(context.Background())
			results[i] = res
			return err
		})
	}
	require.NoError(t, g.Wait())

	for _, res := range results {
		assert.Same(t, results[0], res)
	}
	assert.Equal(t, int64(3), fsys.total.Load())
	assert.Equal(t, int64(1), svc.Status().Cache.Computations)
}

func TestDatasetRebuildsWhenSourceChanges(t *testing.T) {
	fsys := newCountingFS()
	svc := newTestService(t, fsys, nil)
	ctx := context.Background()

	first, err := svc.Dataset(ctx)
	require.NoError(t, err)

	fsys.MapFS[testutil.SalesFile] = &fstest.MapFile{
		Data:    append(testutil.ExtractContent(testutil.SalesFile), []byte("2024-04-01,United Kingdom,K02000001,67000\n")...),
		ModTime: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
	}

	second, err := svc.Dataset(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, testutil.FixtureRowCount+1, second.Table.Len())
	assert.Equal(t, int64(6), fsys.total.Load())
}

func TestRefreshRereadsSources(t *testing.T) {
	fsys := newCountingFS()
	svc := newTestService(t, fsys, nil)
	ctx := context.Background()

	_, err := svc.Dataset(ctx)
	require.NoError(t, err)

	_, err = svc.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), fsys.total.Load())
	assert.Equal(t, int64(2), svc.Status().Cache.Computations)
}

func TestRegionsPinsNationwideFirst(t *testing.T) {
	svc := newTestService(t, testutil.ExtractFS(), nil)

	regions, err := svc.Regions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{testutil.RegionUK, testutil.RegionLeeds, testutil.RegionYork}, regions)
}

func TestPinFirst(t *testing.T) {
	assert.Equal(t, []string{"B", "A", "C"}, pinFirst([]string{"A", "B", "C"}, "B"))
	assert.Equal(t, []string{"A", "C"}, pinFirst([]string{"A", "C"}, "B"))
	assert.Empty(t, pinFirst(nil, "B"))
}

func TestView(t *testing.T) {
	svc := newTestService(t, testutil.ExtractFS(), nil)
	ctx := context.Background()

	t.Run("property type defaults to nationwide", func(t *testing.T) {
		res, err := svc.View(ctx, ViewPropertyType, "")
		require.NoError(t, err)

		assert.Equal(t, testutil.RegionUK, res.Region)
		assert.Equal(t, []string{"Date", "Property Type", "Average Price"}, res.Table.Header())
		// UK has 3 dates, one of them only in the sales extract.
		require.Len(t, res.Table.Rows, 3*4)

		first := res.Table.Strings()[0]
		assert.Equal(t, []string{"2024-01-01", "Detached_Average_Price", "450000"}, first)
	})

	t.Run("regional sales volume", func(t *testing.T) {
		res, err := svc.View(ctx, ViewSalesVolumeTotal, testutil.RegionLeeds)
		require.NoError(t, err)
		assert.Equal(t, [][]string{
			{"2024-01-01", "Sales_Volume", "800"},
			{"2024-02-01", "Sales_Volume", "830"},
		}, res.Table.Strings())
	})

	t.Run("unknown view", func(t *testing.T) {
		_, err := svc.View(ctx, "nope", "")
		assert.ErrorIs(t, err, ErrViewNotFound)
	})

	t.Run("unknown region", func(t *testing.T) {
		_, err := svc.View(ctx, ViewPropertyType, "Atlantis")
		assert.ErrorIs(t, err, ErrRegionNotFound)
	})

	t.Run("columns absent from the merged table", func(t *testing.T) {
		_, err := svc.View(ctx, ViewBuyerType, testutil.RegionLeeds)
		var missing *dataset.MissingColumnError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, []string{"First_Time_Buyer_Average_Price", "Former_Owner_Occupier_Average_Price"}, missing.Columns)
	})
}

func TestMelt(t *testing.T) {
	svc := newTestService(t, testutil.ExtractFS(), nil)
	ctx := context.Background()

	t.Run("whole table", func(t *testing.T) {
		long, err := svc.Melt(ctx, MeltRequest{
			IDColumns:    []string{"Date", "Region_Name"},
			ValueColumns: []string{"Sales_Volume"},
		})
		require.NoError(t, err)
		assert.Len(t, long.Rows, testutil.FixtureRowCount)
		assert.Equal(t, []string{"Date", "Region_Name", "variable", "value"}, long.Header())
	})

	t.Run("empty value list", func(t *testing.T) {
		long, err := svc.Melt(ctx, MeltRequest{Region: testutil.RegionYork, IDColumns: []string{"Date"}})
		require.NoError(t, err)
		assert.Empty(t, long.Rows)
	})

	t.Run("label conflict", func(t *testing.T) {
		_, err := svc.Melt(ctx, MeltRequest{
			IDColumns:     []string{"Date"},
			ValueColumns:  []string{"Sales_Volume"},
			CategoryLabel: "Date",
		})
		assert.ErrorIs(t, err, dataset.ErrLabelConflict)
	})
}

func TestRegionSummary(t *testing.T) {
	svc := newTestService(t, testutil.ExtractFS(), nil)

	summary, err := svc.RegionSummary(context.Background(), testutil.RegionLeeds)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Rows)
	assert.Equal(t, "2024-01-01", summary.From)
	assert.Equal(t, "2024-02-01", summary.To)

	var detached *dataset.ColumnStats
	for i := range summary.Stats {
		if summary.Stats[i].Column == "Detached_Average_Price" {
			detached = &summary.Stats[i]
		}
	}
	require.NotNil(t, detached)
	assert.Equal(t, 2, detached.Count)
	assert.InDelta(t, 351000, detached.Mean, 1e-9)

	_, err = svc.RegionSummary(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, ErrRegionNotFound)
}

func TestOverview(t *testing.T) {
	svc := newTestService(t, testutil.ExtractFS(), nil)
	ctx := context.Background()

	ov, err := svc.Overview(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, testutil.FixtureRowCount, ov.Rows)
	assert.Equal(t, len(ov.ColumnNames), ov.Columns)
	assert.Equal(t, []string{"Date", "Region_Name", "Area_Code"}, ov.ColumnNames[:3])
	assert.Len(t, ov.Head, 2)
	assert.Len(t, ov.Signatures, 3)
	assert.Empty(t, ov.Diagnostics)
	assert.False(t, ov.Cached)

	ov, err = svc.Overview(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, ov.Head)
	assert.True(t, ov.Cached)
}

func TestNoticesPublished(t *testing.T) {
	notifier := &MockNotifier{}
	notifier.On("Notify", NoticeDatasetDiagnostic, LevelWarning, mock.MatchedBy(func(d dataset.Diagnostic) bool {
		return d.Source == "missing" && d.Kind == dataset.DiagnosticSourceUnavailable
	})).Once()
	notifier.On("Notify", NoticeDatasetRefreshed, LevelInfo, mock.Anything).Once()

	svc := newTestService(t, testutil.ExtractFS(), notifier, "missing:Missing=Missing-2025-06.csv")

	res, err := svc.Dataset(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Diagnostics, 1)

	notifier.AssertExpectations(t)
	assert.Equal(t, 1, svc.Status().Diagnostics)
}

func TestBaseSourceFailure(t *testing.T) {
	fsys := testutil.ExtractFS()
	delete(fsys, testutil.PropertyTypeFile)

	notifier := &MockNotifier{}
	notifier.On("Notify", NoticeDatasetFailed, LevelError, mock.Anything).Once()
	svc := newTestService(t, fsys, notifier)

	_, err := svc.Dataset(context.Background())
	var unavailable *dataset.SourceUnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, "property-type", unavailable.Source)

	st := svc.Status()
	assert.False(t, st.Loaded)
	assert.NotEmpty(t, st.LastError)
	assert.Equal(t, 0, st.Cache.Entries)
	notifier.AssertExpectations(t)
}

func TestHandleSourceChangeRebuilds(t *testing.T) {
	fsys := newCountingFS()
	svc := newTestService(t, fsys, nil)

	svc.HandleSourceChange(context.Background(), []string{testutil.SalesFile})
	assert.Equal(t, int64(3), fsys.total.Load())
	assert.True(t, svc.Status().Loaded)
}

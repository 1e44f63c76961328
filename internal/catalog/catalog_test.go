package catalog

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/wx-graphics/internal/config"
	"github.com/couchcryptid/wx-graphics/internal/domain"
	"github.com/couchcryptid/wx-graphics/internal/observability"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestCatalog(t *testing.T) (*Catalog, *observability.Metrics) {
	t.Helper()
	m := observability.NewMetricsForTesting()
	c, err := Open(config.DriverSQLite, filepath.Join(t.TempDir(), "catalog.db"), m, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	require.NoError(t, c.Migrate(context.Background()))
	return c, m
}

func fieldResult(at time.Time, paths ...string) domain.PlotResult {
	return domain.PlotResult{
		RequestID:  "req-1",
		Kind:       domain.KindFieldMap,
		Dir:        "out",
		Paths:      paths,
		RenderedAt: at,
		Request: domain.PlotRequest{
			ID:        "req-1",
			Kind:      domain.KindFieldMap,
			Model:     "NDFD",
			Region:    "CO",
			Reference: "States Only",
			Parameter: "Temperature",
		},
	}
}

func TestRecordAndList(t *testing.T) {
	c, m := openTestCatalog(t)
	ctx := context.Background()
	at := time.Date(2024, 6, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, c.Record(ctx, fieldResult(at, "out/Temperature_001.png", "out/Temperature_000.png")))

	got, err := c.ListByRequest(ctx, "req-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	want := Product{
		RequestID: "req-1",
		Kind:      domain.KindFieldMap,
		Path:      "out/Temperature_000.png",
		Model:     "NDFD",
		Region:    "CO",
		Reference: "States Only",
		Parameter: "Temperature",
	}
	assert.True(t, at.Equal(got[0].RenderedAt), got[0].RenderedAt)
	got[0].RenderedAt = time.Time{}
	if diff := cmp.Diff(want, got[0]); diff != "" {
		t.Errorf("product mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "out/Temperature_001.png", got[1].Path)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CatalogRecords))
}

func TestRecord_ReplacesEarlierRender(t *testing.T) {
	c, _ := openTestCatalog(t)
	ctx := context.Background()
	first := time.Date(2024, 6, 2, 3, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	require.NoError(t, c.Record(ctx, fieldResult(first, "out/a.png", "out/b.png", "out/c.png")))

	rerun := fieldResult(second, "out/a.png")
	rerun.Request.Region = "TX"
	rerun.Request.Parameter = "Dewpoint"
	require.NoError(t, c.Record(ctx, rerun))

	got, err := c.ListByRequest(ctx, "req-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "out/a.png", got[0].Path)
	assert.Equal(t, "TX", got[0].Region)
	assert.Equal(t, "Dewpoint", got[0].Parameter)
	assert.True(t, second.Equal(got[0].RenderedAt))
}

func TestRecord_LeavesOtherRequests(t *testing.T) {
	c, _ := openTestCatalog(t)
	ctx := context.Background()
	at := time.Date(2024, 6, 2, 3, 0, 0, 0, time.UTC)

	other := fieldResult(at, "out/a.png")
	other.RequestID = "req-2"
	require.NoError(t, c.Record(ctx, other))
	require.NoError(t, c.Record(ctx, fieldResult(at, "out/b.png")))

	got, err := c.ListByRequest(ctx, "req-2")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "out/a.png", got[0].Path)
}

func TestRecord_EmptyID(t *testing.T) {
	c, _ := openTestCatalog(t)
	err := c.Record(context.Background(), domain.PlotResult{Paths: []string{"x.png"}})
	require.Error(t, err)
}

func TestLoadBatch(t *testing.T) {
	c, _ := openTestCatalog(t)
	ctx := context.Background()
	at := time.Date(2024, 6, 2, 3, 0, 0, 0, time.UTC)

	other := fieldResult(at, "snd/skewt.png")
	other.RequestID = "req-2"
	other.Kind = domain.KindSounding

	require.NoError(t, c.LoadBatch(ctx, []domain.PlotResult{fieldResult(at, "out/a.png"), other}))

	got, err := c.ListByRequest(ctx, "req-2")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.KindSounding, got[0].Kind)

	none, err := c.ListByRequest(ctx, "req-3")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMigrate_Idempotent(t *testing.T) {
	c, _ := openTestCatalog(t)
	require.NoError(t, c.Migrate(context.Background()))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("mysql", "dsn", observability.NewMetricsForTesting(), slog.Default())
	require.Error(t, err)
}

func TestRebind(t *testing.T) {
	pg := &Catalog{driver: config.DriverPostgres}
	assert.Equal(t, "SELECT a FROM t WHERE b = $1 AND c = $2", pg.rebind("SELECT a FROM t WHERE b = ? AND c = ?"))

	lite := &Catalog{driver: config.DriverSQLite}
	assert.Equal(t, "WHERE b = ?", lite.rebind("WHERE b = ?"))
}

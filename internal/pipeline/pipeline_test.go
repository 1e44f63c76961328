package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/wx-graphics/internal/domain"
	"github.com/couchcryptid/wx-graphics/internal/observability"
	"github.com/couchcryptid/wx-graphics/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawEvent
	index   atomic.Int64
	err     error
	calls   atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEvent, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	i := int(m.index.Add(1) - 1)
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockRenderer struct {
	fail map[string]bool
}

func (m *mockRenderer) Render(_ context.Context, req domain.PlotRequest) (domain.PlotResult, error) {
	if m.fail[req.ID] {
		return domain.PlotResult{}, errors.New("source unavailable")
	}
	return domain.PlotResult{
		RequestID: req.ID,
		Kind:      req.Kind,
		Paths:     []string{"out/" + req.ID + ".png"},
		Request:   req,
	}, nil
}

type mockLoader struct {
	mu     sync.Mutex
	loaded []domain.PlotResult
	err    error
}

func (m *mockLoader) LoadBatch(_ context.Context, results []domain.PlotResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.loaded = append(m.loaded, results...)
	return nil
}

func (m *mockLoader) ids() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, len(m.loaded))
	for i, r := range m.loaded {
		ids[i] = r.RequestID
	}
	return ids
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newPipeline(ext pipeline.BatchExtractor, r pipeline.Renderer, l pipeline.BatchLoader, m *observability.Metrics) *pipeline.Pipeline {
	return pipeline.New(ext, pipeline.NewTransformer(r, discardLogger()), l, discardLogger(), m, 10)
}

func runFor(t *testing.T, p *pipeline.Pipeline, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	ext := &mockExtractor{batches: [][]domain.RawEvent{{
		makeRawRequest(t, "req-1"),
		makeRawRequest(t, "req-2"),
	}}}
	ldr := &mockLoader{}
	m := observability.NewMetricsForTesting()
	p := newPipeline(ext, &mockRenderer{}, ldr, m)

	require.Error(t, p.CheckReadiness(context.Background()))
	runFor(t, p, 300*time.Millisecond)

	if diff := cmp.Diff([]string{"req-1", "req-2"}, ldr.ids()); diff != "" {
		t.Errorf("loaded ids (-want +got):\n%s", diff)
	}
	require.NoError(t, p.CheckReadiness(context.Background()))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsConsumed))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ResultsProduced))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.PipelineRunning))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{}
	ldr := &mockLoader{}
	p := newPipeline(ext, &mockRenderer{}, ldr, observability.NewMetricsForTesting())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.loaded)
}

func TestPipeline_Run_RenderFailureSkipsAndCommits(t *testing.T) {
	var committed []string
	var mu sync.Mutex
	commit := func(id string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			committed = append(committed, id)
			return nil
		}
	}

	bad := makeRawRequest(t, "req-bad")
	bad.Commit = commit("req-bad")
	good := makeRawRequest(t, "req-good")
	good.Commit = commit("req-good")

	ext := &mockExtractor{batches: [][]domain.RawEvent{{bad, good}}}
	ldr := &mockLoader{}
	m := observability.NewMetricsForTesting()
	p := newPipeline(ext, &mockRenderer{fail: map[string]bool{"req-bad": true}}, ldr, m)

	runFor(t, p, 300*time.Millisecond)

	assert.Equal(t, []string{"req-good"}, ldr.ids())
	mu.Lock()
	assert.ElementsMatch(t, []string{"req-bad", "req-good"}, committed)
	mu.Unlock()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RenderErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResultsProduced))
}

func TestPipeline_Run_InvalidMessage(t *testing.T) {
	committed := false
	raw := domain.RawEvent{
		Key:    []byte("k"),
		Value:  []byte("not json"),
		Commit: func(context.Context) error { committed = true; return nil },
	}
	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	ldr := &mockLoader{}
	m := observability.NewMetricsForTesting()
	p := newPipeline(ext, &mockRenderer{}, ldr, m)

	runFor(t, p, 300*time.Millisecond)

	assert.Empty(t, ldr.loaded)
	assert.True(t, committed)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RenderErrors))
	require.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_LoadFailureDoesNotCommit(t *testing.T) {
	committed := false
	raw := makeRawRequest(t, "req-1")
	raw.Commit = func(context.Context) error { committed = true; return nil }

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	ldr := &mockLoader{err: errors.New("broker down")}
	p := newPipeline(ext, &mockRenderer{}, ldr, observability.NewMetricsForTesting())

	runFor(t, p, 400*time.Millisecond)

	assert.False(t, committed)
	require.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ExtractErrorBacksOff(t *testing.T) {
	ext := &mockExtractor{err: errors.New("connection refused")}
	p := newPipeline(ext, &mockRenderer{}, &mockLoader{}, observability.NewMetricsForTesting())

	runFor(t, p, 500*time.Millisecond)

	// 200ms then 400ms backoff: at most three attempts fit in the window.
	calls := ext.calls.Load()
	assert.GreaterOrEqual(t, calls, int64(2))
	assert.LessOrEqual(t, calls, int64(3))
}

func TestMultiLoader(t *testing.T) {
	a, b := &mockLoader{}, &mockLoader{}
	results := []domain.PlotResult{{RequestID: "req-1"}}

	require.NoError(t, pipeline.MultiLoader{a, b}.LoadBatch(context.Background(), results))
	assert.Equal(t, []string{"req-1"}, a.ids())
	assert.Equal(t, []string{"req-1"}, b.ids())

	failing := &mockLoader{err: errors.New("db locked")}
	c := &mockLoader{}
	err := pipeline.MultiLoader{failing, c}.LoadBatch(context.Background(), results)
	require.Error(t, err)
	assert.Empty(t, c.loaded)
}

func TestRequestTransformer_Transform(t *testing.T) {
	raw := makeRawRequest(t, "")
	raw.Key = []byte("from-key")

	tfm := pipeline.NewTransformer(&mockRenderer{}, discardLogger())
	out, err := tfm.Transform(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "from-key", out.RequestID)
	assert.Equal(t, domain.KindSounding, out.Kind)
}

func TestRequestTransformer_InvalidRequest(t *testing.T) {
	data, err := json.Marshal(domain.PlotRequest{ID: "req-1", Kind: domain.KindSounding})
	require.NoError(t, err)

	tfm := pipeline.NewTransformer(&mockRenderer{}, discardLogger())
	_, err = tfm.Transform(context.Background(), domain.RawEvent{Value: data})
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}

// --- helpers ---

func makeRawRequest(t *testing.T, id string) domain.RawEvent {
	t.Helper()
	data, err := json.Marshal(domain.PlotRequest{
		ID:      id,
		Kind:    domain.KindSounding,
		Station: "72469",
	})
	require.NoError(t, err)
	return domain.RawEvent{
		Key:   []byte(id),
		Value: data,
	}
}

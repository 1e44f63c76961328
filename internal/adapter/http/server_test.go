package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/wx-graphics/internal/adapter/http"
	"github.com/couchcryptid/wx-graphics/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockProducts struct {
	products map[string][]catalog.Product
	err      error
}

func (m *mockProducts) ListByRequest(_ context.Context, id string) ([]catalog.Product, error) {
	return m.products[id], m.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, nil, discard())
}

func get(srv *httpadapter.Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(newTestServer(nil), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(newTestServer(nil), "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(newTestServer(fmt.Errorf("not ready yet")), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(newTestServer(nil), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestProductsRouteDisabledWithoutCatalog(t *testing.T) {
	rec := get(newTestServer(nil), "/products/req-1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProducts(t *testing.T) {
	at := time.Date(2024, 6, 2, 3, 4, 5, 0, time.UTC)
	lister := &mockProducts{products: map[string][]catalog.Product{
		"req-1": {{RequestID: "req-1", Kind: "field_map", Path: "out/a.png", Model: "NDFD", RenderedAt: at}},
	}}
	srv := httpadapter.NewServer(":0", &mockReadiness{}, lister, discard())

	rec := get(srv, "/products/req-1")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		RequestID string `json:"request_id"`
		Products  []struct {
			Kind       string    `json:"kind"`
			Path       string    `json:"path"`
			Model      string    `json:"model"`
			RenderedAt time.Time `json:"rendered_at"`
		} `json:"products"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "req-1", body.RequestID)
	require.Len(t, body.Products, 1)
	assert.Equal(t, "out/a.png", body.Products[0].Path)
	assert.Equal(t, "NDFD", body.Products[0].Model)
	assert.True(t, at.Equal(body.Products[0].RenderedAt))

	rec = get(srv, "/products/req-2")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProductsCatalogError(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockReadiness{}, &mockProducts{err: errors.New("db closed")}, discard())

	rec := get(srv, "/products/req-1")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

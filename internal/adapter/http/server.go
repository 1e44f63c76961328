package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/wx-graphics/internal/catalog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ProductLister looks up the images rendered for a request.
type ProductLister interface {
	ListByRequest(ctx context.Context, requestID string) ([]catalog.Product, error)
}

// Server exposes health, readiness, metrics and product lookup endpoints.
type Server struct {
	httpServer *http.Server
	products   ProductLister
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz and /metrics routes.
// GET /products/{id} is added when products is non-nil.
func NewServer(addr string, ready sharedobs.ReadinessChecker, products ProductLister, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		products: products,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	if products != nil {
		mux.HandleFunc("GET /products/{id}", s.handleProducts)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type productResponse struct {
	Kind       string    `json:"kind"`
	Path       string    `json:"path"`
	Model      string    `json:"model,omitempty"`
	Region     string    `json:"region,omitempty"`
	Reference  string    `json:"reference,omitempty"`
	Parameter  string    `json:"parameter,omitempty"`
	RenderedAt time.Time `json:"rendered_at"`
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	products, err := s.products.ListByRequest(r.Context(), id)
	if err != nil {
		s.logger.Error("list products failed", "error", err, "id", id)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "catalog unavailable"})
		return
	}
	if len(products) == 0 {
		sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "no products for request " + id})
		return
	}
	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = productResponse{
			Kind:       p.Kind,
			Path:       p.Path,
			Model:      p.Model,
			Region:     p.Region,
			Reference:  p.Reference,
			Parameter:  p.Parameter,
			RenderedAt: p.RenderedAt,
		}
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{"request_id": id, "products": out})
}

package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/wx-graphics/internal/domain"
)

// Renderer runs one plot request to completion.
type Renderer interface {
	Render(ctx context.Context, req domain.PlotRequest) (domain.PlotResult, error)
}

// RequestTransformer implements Transformer by decoding the message into a
// plot request and rendering it.
type RequestTransformer struct {
	renderer Renderer
	logger   *slog.Logger
}

// NewTransformer creates a RequestTransformer backed by renderer.
func NewTransformer(renderer Renderer, logger *slog.Logger) *RequestTransformer {
	return &RequestTransformer{
		renderer: renderer,
		logger:   logger,
	}
}

func (t *RequestTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.PlotResult, error) {
	req, err := domain.ParseRawRequest(raw)
	if err != nil {
		return domain.PlotResult{}, err
	}

	res, err := t.renderer.Render(ctx, req)
	if err != nil {
		return domain.PlotResult{}, err
	}

	t.logger.Debug("request rendered", "id", req.ID, "kind", req.Kind, "images", len(res.Paths))
	return res, nil
}

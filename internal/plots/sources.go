package plots

import (
	"log/slog"

	"github.com/couchcryptid/wx-graphics/internal/adapter/nws"
	"github.com/couchcryptid/wx-graphics/internal/adapter/uwyo"
	"github.com/couchcryptid/wx-graphics/internal/boundaries"
	"github.com/couchcryptid/wx-graphics/internal/config"
	"github.com/couchcryptid/wx-graphics/internal/observability"
	"github.com/jonboulle/clockwork"
)

// SourcesFromConfig wires the NetCDF opener, the NWS and sounding clients and
// the cached boundary store from configuration.
func SourcesFromConfig(cfg *config.Config, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) Sources {
	return Sources{
		Open:       OpenNetCDF,
		Forecasts:  nws.NewClient(cfg.NWSBaseURL, cfg.NWSUserAgent, cfg.FetchTimeout, cfg.RequestDelay, clock, metrics, logger),
		Soundings:  uwyo.NewClient(cfg.SoundingBaseURL, cfg.FetchTimeout, cfg.RequestDelay, clock, metrics, logger),
		Boundaries: boundaries.NewCachedStore(boundaries.NewFileStore(cfg.BoundariesDir), cfg.BoundaryCacheVertices, metrics),
	}
}

// NewRunnerFromConfig builds a Runner over SourcesFromConfig.
func NewRunnerFromConfig(cfg *config.Config, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Runner {
	return NewRunner(cfg.OutputRoot, cfg.FigureDPI, SourcesFromConfig(cfg, clock, metrics, logger), metrics, logger)
}

// Package plots holds the plotting procedures: each resolves its inputs,
// fetches or reads the data, derives what the figure needs, clears the output
// directory and writes the PNGs.
package plots

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/couchcryptid/wx-graphics/internal/adapter/netcdf"
	"github.com/couchcryptid/wx-graphics/internal/adapter/nws"
	"github.com/couchcryptid/wx-graphics/internal/boundaries"
	"github.com/couchcryptid/wx-graphics/internal/domain"
	"github.com/couchcryptid/wx-graphics/internal/observability"
	"github.com/couchcryptid/wx-graphics/internal/render"
)

// Dataset is an open gridded source.
type Dataset interface {
	TimeSteps(variable string) (int, error)
	ReadField(variable string, index int) (domain.Field, error)
	ReadStack(variable string) (domain.FieldStack, error)
	Close() error
}

// OpenFunc opens the dataset named by a request's source.
type OpenFunc func(source string) (Dataset, error)

// OpenNetCDF opens local NetCDF files.
func OpenNetCDF(source string) (Dataset, error) {
	return netcdf.Open(source)
}

// ForecastSource provides NWS gridpoint forecasts.
type ForecastSource interface {
	GridpointForecast(ctx context.Context, lat, lon float64) (nws.Forecast, error)
}

// SoundingSource provides observed soundings.
type SoundingSource interface {
	Sounding(ctx context.Context, station string, t time.Time) (domain.Sounding, error)
}

// Sources bundles the data a Runner reads from. Any of them may be nil when
// the corresponding kind is not used.
type Sources struct {
	Open       OpenFunc
	Forecasts  ForecastSource
	Soundings  SoundingSource
	Boundaries boundaries.Store
}

// Runner executes plot requests.
type Runner struct {
	root    string
	dpi     int
	src     Sources
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewRunner creates a Runner writing under outputRoot at the given default DPI.
func NewRunner(outputRoot string, dpi int, src Sources, metrics *observability.Metrics, logger *slog.Logger) *Runner {
	if src.Open == nil {
		src.Open = OpenNetCDF
	}
	return &Runner{root: outputRoot, dpi: dpi, src: src, metrics: metrics, logger: logger}
}

// Render validates req, runs the procedure for its kind and reports the
// images written. It blocks until every image is on disk.
func (r *Runner) Render(ctx context.Context, req domain.PlotRequest) (domain.PlotResult, error) {
	if err := req.Validate(); err != nil {
		return domain.PlotResult{}, err
	}
	start := domain.Now()

	var (
		dir   string
		paths []string
		err   error
	)
	switch req.Kind {
	case domain.KindFieldMap:
		dir, paths, err = r.FieldMaps(ctx, req)
	case domain.KindEOF:
		dir, paths, err = r.EOFMaps(ctx, req)
	case domain.KindSounding:
		dir, paths, err = r.SoundingPlot(ctx, req)
	case domain.KindMeteogram:
		dir, paths, err = r.Meteogram(ctx, req)
	}
	if err != nil {
		return domain.PlotResult{}, fmt.Errorf("render %s %s: %w", req.Kind, req.ID, err)
	}

	end := domain.Now()
	r.metrics.RenderDuration.WithLabelValues(req.Kind).Observe(end.Sub(start).Seconds())
	r.metrics.ImagesWritten.WithLabelValues(req.Kind).Add(float64(len(paths)))
	r.logger.Info("plot rendered", "id", req.ID, "kind", req.Kind, "dir", dir, "images", len(paths), "duration", end.Sub(start))

	return domain.PlotResult{
		RequestID:  req.ID,
		Kind:       req.Kind,
		Dir:        dir,
		Paths:      paths,
		RenderedAt: end,
		Duration:   end.Sub(start),
		Request:    req,
	}, nil
}

// mapLayers loads the reference system's overlays clipped to the region.
// Layers that cannot be loaded are logged and left off the map.
func (r *Runner) mapLayers(ctx context.Context, ref domain.ReferenceSystem, region domain.Region) []render.MapLayer {
	if r.src.Boundaries == nil {
		return nil
	}
	styles := append([]domain.LayerStyle(nil), ref.Layers...)
	sort.SliceStable(styles, func(i, j int) bool { return styles[i].Z < styles[j].Z })

	bbox := boundaries.RegionBounds(region.West-1, region.East+1, region.South-1, region.North+1)
	var out []render.MapLayer
	for _, st := range styles {
		l, err := r.src.Boundaries.Layer(ctx, st.Layer)
		if err != nil {
			r.logger.Warn("boundary layer unavailable", "layer", st.Layer, "error", err)
			continue
		}
		out = append(out, render.MapLayer{Layer: l.Clip(bbox), Style: st})
	}
	return out
}

// mapContext resolves the region, reference system and figure style shared by
// the gridded map procedures.
func (r *Runner) mapContext(req domain.PlotRequest) (domain.Region, domain.ReferenceSystem, render.FigureStyle, error) {
	region, err := domain.LookupRegion(req.Region)
	if err != nil {
		return domain.Region{}, domain.ReferenceSystem{}, render.FigureStyle{}, err
	}
	ref, err := domain.LookupReference(req.Reference)
	if err != nil {
		return domain.Region{}, domain.ReferenceSystem{}, render.FigureStyle{}, err
	}
	fs, err := render.ResolveStyle(req.Style, r.dpi)
	if err != nil {
		return domain.Region{}, domain.ReferenceSystem{}, render.FigureStyle{}, err
	}
	return region, ref.WithOverrides(fs.BoundaryWidth, fs.BoundaryColor), fs, nil
}

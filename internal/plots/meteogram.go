package plots

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"path/filepath"

	"github.com/couchcryptid/wx-graphics/internal/adapter/nws"
	"github.com/couchcryptid/wx-graphics/internal/domain"
	"github.com/couchcryptid/wx-graphics/internal/render"
)

type meteogramSeries struct {
	layer string
	label string
	color color.Color
}

// Panel layout, top to bottom.
var meteogramPanels = [][]meteogramSeries{
	{
		{nws.LayerTemperature, "Temperature", color.RGBA{R: 210, G: 30, B: 30, A: 255}},
		{nws.LayerDewpoint, "Dewpoint", color.RGBA{G: 140, B: 40, A: 255}},
	},
	{
		{nws.LayerRelativeHumidity, "Relative Humidity", color.RGBA{G: 90, B: 200, A: 255}},
	},
	{
		{nws.LayerWindSpeed, "Wind Speed", color.RGBA{R: 60, G: 60, B: 60, A: 255}},
		{nws.LayerWindGust, "Wind Gust", color.RGBA{R: 230, G: 130, A: 255}},
	},
}

// Meteogram draws the NWS hourly point forecast for a location.
func (r *Runner) Meteogram(ctx context.Context, req domain.PlotRequest) (string, []string, error) {
	if r.src.Forecasts == nil {
		return "", nil, errors.New("no forecast source configured")
	}
	fs, err := render.ResolveStyle(req.Style, r.dpi)
	if err != nil {
		return "", nil, err
	}
	fc, err := r.src.Forecasts.GridpointForecast(ctx, req.Lat, req.Lon)
	if err != nil {
		return "", nil, err
	}

	var panels []render.Panel
	for _, layout := range meteogramPanels {
		var pn render.Panel
		for _, ms := range layout {
			s, ok := fc.Series[ms.layer]
			if !ok || len(s.Values) == 0 {
				continue
			}
			vals := make([]float64, len(s.Values))
			var unit string
			for i, v := range s.Values {
				vals[i], unit = domain.FromWMOUnit(s.UOM, v)
			}
			if pn.YLabel == "" {
				pn.YLabel = unit
			}
			pn.Series = append(pn.Series, render.Series{Name: ms.label, Color: ms.color, Times: s.Times, Values: vals})
		}
		if len(pn.Series) > 0 {
			panels = append(panels, pn)
		}
	}
	if len(panels) == 0 {
		return "", nil, fmt.Errorf("forecast for %.4f,%.4f has no plottable series", req.Lat, req.Lon)
	}

	dir := domain.MeteogramDir(r.root, fmt.Sprintf("%s_%d_%d", fc.GridID, fc.GridX, fc.GridY), req.Lat, req.Lon)
	if err := domain.ClearDir(dir, r.logger); err != nil {
		return "", nil, err
	}

	title := req.Title
	if title == "" {
		title = fmt.Sprintf("NWS Forecast %.4f, %.4f", req.Lat, req.Lon)
	}
	subtitle := fmt.Sprintf("Grid %s %d,%d", fc.GridID, fc.GridX, fc.GridY)
	if !fc.UpdateTime.IsZero() {
		subtitle += " | Updated " + fc.UpdateTime.Format("2006-01-02 15:04Z")
	}
	path := filepath.Join(dir, "meteogram.png")
	err = render.DrawMeteogram(path, render.MeteogramSpec{Panels: panels, Title: title, Subtitle: subtitle, Style: fs})
	if err != nil {
		return "", nil, fmt.Errorf("draw %s: %w", path, err)
	}
	return dir, []string{path}, nil
}

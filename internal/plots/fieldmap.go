package plots

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/wx-graphics/internal/domain"
	"github.com/couchcryptid/wx-graphics/internal/render"
)

// subsetPad widens the region box so cells along its edges are kept whole.
const subsetPad = 1.0

// FieldMaps draws one map per requested time step of a gridded variable.
func (r *Runner) FieldMaps(ctx context.Context, req domain.PlotRequest) (string, []string, error) {
	region, ref, fs, err := r.mapContext(req)
	if err != nil {
		return "", nil, err
	}
	conv, err := domain.LookupConversion(req.Conversion)
	if err != nil {
		return "", nil, err
	}

	ds, err := r.src.Open(req.Source)
	if err != nil {
		return "", nil, err
	}
	defer ds.Close()

	steps, err := timeSteps(ds, req)
	if err != nil {
		return "", nil, err
	}

	fields := make([]domain.Field, 0, len(steps))
	for _, i := range steps {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}
		f, err := ds.ReadField(req.Variable, i)
		if err != nil {
			return "", nil, err
		}
		f, err = f.Subset(region, subsetPad)
		if err != nil {
			return "", nil, err
		}
		fields = append(fields, f.Apply(conv.Fn, conv.Units))
	}

	scale, err := fieldScale(req, fields)
	if err != nil {
		return "", nil, err
	}
	layers := r.mapLayers(ctx, ref, region)

	dir := domain.OutputDir(r.root, req.Model, region.Key, ref.Name, req.Parameter)
	if err := domain.ClearDir(dir, r.logger); err != nil {
		return "", nil, err
	}

	paths := make([]string, 0, len(fields))
	for n, f := range fields {
		path := filepath.Join(dir, domain.ImageName(req.Parameter, steps[n]))
		err := render.DrawMap(path, render.MapSpec{
			Field:    f,
			Region:   region,
			Scale:    scale,
			Layers:   layers,
			Title:    mapTitle(req, region),
			Subtitle: timeSubtitle(f),
			Style:    fs,
		})
		if err != nil {
			return "", nil, fmt.Errorf("draw %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return dir, paths, nil
}

// timeSteps returns the requested step or every step of the variable.
func timeSteps(ds Dataset, req domain.PlotRequest) ([]int, error) {
	n, err := ds.TimeSteps(req.Variable)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("%s has no time steps", req.Variable)
	}
	if req.TimeIndex != nil {
		i := *req.TimeIndex
		if i < 0 || i >= n {
			return nil, fmt.Errorf("%w: time_index %d outside 0..%d", domain.ErrInvalidRequest, i, n-1)
		}
		return []int{i}, nil
	}
	steps := make([]int, n)
	for i := range steps {
		steps[i] = i
	}
	return steps, nil
}

// fieldScale picks the requested scale, then a scale named after the
// parameter, and otherwise spreads the anomaly ramp over the data range of
// every step so all maps share one color bar.
func fieldScale(req domain.PlotRequest, fields []domain.Field) (domain.ColorScale, error) {
	if req.Scale != "" {
		return domain.LookupScale(req.Scale)
	}
	if s, err := domain.LookupScale(strings.ReplaceAll(req.Parameter, " ", "_")); err == nil {
		return s, nil
	}
	s, err := domain.LookupScale("anomaly")
	if err != nil {
		return domain.ColorScale{}, err
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, f := range fields {
		if l, h := f.Range(); !math.IsNaN(l) {
			lo, hi = min(lo, l), max(hi, h)
		}
	}
	switch {
	case math.IsInf(lo, 0):
		lo, hi = 0, 1
	case hi <= lo:
		hi = lo + 1
	}
	s = s.Rescaled(lo, hi)
	s.Label = req.Parameter
	if u := fields[0].Units; u != "" {
		s.Label = fmt.Sprintf("%s (%s)", req.Parameter, u)
	}
	return s, nil
}

func mapTitle(req domain.PlotRequest, region domain.Region) string {
	if req.Title != "" {
		return req.Title
	}
	return fmt.Sprintf("%s %s | %s", req.Model, req.Parameter, region.Name)
}

func timeSubtitle(f domain.Field) string {
	const layout = "2006-01-02 15Z"
	switch {
	case f.ValidTime.IsZero():
		return ""
	case f.InitTime.IsZero():
		return "Valid " + f.ValidTime.UTC().Format(layout)
	default:
		return fmt.Sprintf("Init %s | Valid %s (F%03.0f)",
			f.InitTime.UTC().Format(layout), f.ValidTime.UTC().Format(layout), f.LeadTime().Hours())
	}
}

package plots

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/couchcryptid/wx-graphics/internal/domain"
	"github.com/couchcryptid/wx-graphics/internal/render"
)

const defaultModes = 3

// EOFMaps decomposes a stack of fields (ensemble members or time steps) and
// draws one map per mode plus the principal component series.
func (r *Runner) EOFMaps(ctx context.Context, req domain.PlotRequest) (string, []string, error) {
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

	stack, err := ds.ReadStack(req.Variable)
	if err != nil {
		return "", nil, err
	}
	stack, err = stack.Subset(region, 0)
	if err != nil {
		return "", nil, err
	}
	for i, f := range stack.Fields {
		stack.Fields[i] = f.Apply(conv.Fn, conv.Units)
	}
	samples, err := stack.Samples()
	if err != nil {
		return "", nil, err
	}
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	grid := stack.Fields[0]
	modes := req.Modes
	if modes == 0 {
		modes = defaultModes
	}
	eof, err := domain.ComputeEOF(samples, domain.LatitudeWeights(grid.Lats, len(grid.Lons)), modes)
	if err != nil {
		return "", nil, err
	}
	r.logger.Debug("eof computed", "id", req.ID, "samples", len(samples), "modes", eof.Modes(), "variance_ratio", eof.ExplainedVarianceRatio)

	layers := r.mapLayers(ctx, ref, region)
	dir := domain.OutputDir(r.root, req.Model, region.Key, ref.Name, req.Parameter)
	if err := domain.ClearDir(dir, r.logger); err != nil {
		return "", nil, err
	}

	title := req.Title
	if title == "" {
		title = fmt.Sprintf("%s %s", req.Model, req.Parameter)
	}
	paths := make([]string, 0, eof.Modes()+1)
	series := make([][]float64, eof.Modes())
	for k := range eof.Modes() {
		path := filepath.Join(dir, fmt.Sprintf("eof_%d.png", k+1))
		err := render.DrawEOFMode(path, render.EOFModeSpec{
			Mode:    k + 1,
			Pattern: grid.Unflatten(eof.Components[k]),
			Ratio:   eof.ExplainedVarianceRatio[k],
			Region:  region,
			Layers:  layers,
			Title:   title,
			Style:   fs,
		})
		if err != nil {
			return "", nil, fmt.Errorf("draw %s: %w", path, err)
		}
		paths = append(paths, path)
		series[k] = eof.PCSeries(k)
	}

	path := filepath.Join(dir, "pcs.png")
	err = render.DrawPCSeries(path, render.PCSpec{
		Series: series,
		Ratios: eof.ExplainedVarianceRatio,
		XLabel: "Member",
		Title:  title + " principal components",
		Style:  fs,
	})
	if err != nil {
		return "", nil, fmt.Errorf("draw %s: %w", path, err)
	}
	return dir, append(paths, path), nil
}

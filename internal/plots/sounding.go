package plots

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/couchcryptid/wx-graphics/internal/domain"
	"github.com/couchcryptid/wx-graphics/internal/render"
)

// SoundingPlot draws a skew-T of an observed sounding. A request source
// names a saved TEXT:LIST page to read instead of fetching.
func (r *Runner) SoundingPlot(ctx context.Context, req domain.PlotRequest) (string, []string, error) {
	fs, err := render.ResolveStyle(req.Style, r.dpi)
	if err != nil {
		return "", nil, err
	}

	raw, err := r.sounding(ctx, req)
	if err != nil {
		return "", nil, err
	}
	snd, err := raw.Clean()
	if err != nil {
		return "", nil, err
	}
	idx, err := snd.Indices()
	if err != nil {
		return "", nil, err
	}

	dir := domain.SoundingDir(r.root, req.Station)
	if err := domain.ClearDir(dir, r.logger); err != nil {
		return "", nil, err
	}

	obs := snd.Time
	title := req.Title
	if title == "" {
		title = fmt.Sprintf("%s %s", snd.Station, snd.StationName)
	}
	path := filepath.Join(dir, fmt.Sprintf("skewt_%s_%s.png", filepath.Base(dir), obs.Format("2006010215")))
	err = render.DrawSkewT(path, render.SkewTSpec{
		Sounding: snd,
		Indices:  idx,
		Title:    title,
		Subtitle: obs.Format("1504Z 02 Jan 2006"),
		Style:    fs,
	})
	if err != nil {
		return "", nil, fmt.Errorf("draw %s: %w", path, err)
	}
	return dir, []string{path}, nil
}

func (r *Runner) sounding(ctx context.Context, req domain.PlotRequest) (domain.Sounding, error) {
	if req.Source != "" {
		f, err := os.Open(req.Source)
		if err != nil {
			return domain.Sounding{}, fmt.Errorf("open sounding %s: %w", req.Source, err)
		}
		defer f.Close()
		snd, err := domain.ParseUWyoText(f)
		if err != nil {
			return domain.Sounding{}, fmt.Errorf("%s: %w", req.Source, err)
		}
		if snd.Station == "" {
			snd.Station = req.Station
		}
		if snd.Time.IsZero() {
			if req.Time.IsZero() {
				return domain.Sounding{}, fmt.Errorf("%w: %s has no observation time and the request sets none", domain.ErrInvalidRequest, req.Source)
			}
			snd.Time = domain.SynopticTime(req.Time)
		}
		return snd, nil
	}
	if r.src.Soundings == nil {
		return domain.Sounding{}, errors.New("no sounding source configured")
	}
	t := req.Time
	if t.IsZero() {
		t = domain.Now()
	}
	snd, err := r.src.Soundings.Sounding(ctx, req.Station, t)
	if err != nil {
		return domain.Sounding{}, err
	}
	if snd.Time.IsZero() {
		snd.Time = domain.SynopticTime(t)
	}
	return snd, nil
}

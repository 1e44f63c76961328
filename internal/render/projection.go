// Package render draws the figures: gridded maps with boundary overlays,
// skew-T diagrams, EOF panels and point meteograms. Everything is drawn with
// gonum/plot onto raster canvases and written as PNG.
package render

import (
	"fmt"
	"math"

	"github.com/couchcryptid/wx-graphics/internal/domain"
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
)

const wgs84 = "+proj=longlat +ellps=WGS84 +datum=WGS84 +no_defs"

// Projection maps longitude/latitude degrees onto the plane of a map panel.
type Projection struct {
	Name string // "lcc" or "longlat"
	fwd  proj.Transformer
}

// NewProjection picks the projection for a region: Lambert conformal conic
// with standard parallels 33/45 on the region's central meridian, or plain
// longitude/latitude for custom boxes and boxes near the pole or dateline.
func NewProjection(r domain.Region) (*Projection, error) {
	if r.Custom() || r.North >= 80 || r.South <= -80 || r.West < -180 || r.East > 180 {
		return &Projection{
			Name: "longlat",
			fwd:  func(x, y float64) (float64, float64, error) { return x, y, nil },
		}, nil
	}
	src, err := proj.Parse(wgs84)
	if err != nil {
		return nil, fmt.Errorf("parse source projection: %w", err)
	}
	def := fmt.Sprintf("+proj=lcc +lat_1=33 +lat_2=45 +lat_0=%.4f +lon_0=%.4f +x_0=0 +y_0=0 +ellps=WGS84 +datum=WGS84 +units=m +no_defs",
		r.CentralLat(), r.CentralLon())
	dst, err := proj.Parse(def)
	if err != nil {
		return nil, fmt.Errorf("parse lcc projection: %w", err)
	}
	fwd, err := src.NewTransform(dst)
	if err != nil {
		return nil, fmt.Errorf("build projection transform: %w", err)
	}
	return &Projection{Name: "lcc", fwd: fwd}, nil
}

// Project returns the planar coordinates of a lon/lat point.
func (p *Projection) Project(lon, lat float64) (float64, float64, error) {
	x, y, err := p.fwd(lon, lat)
	if err != nil {
		return math.NaN(), math.NaN(), err
	}
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return math.NaN(), math.NaN(), fmt.Errorf("project (%g, %g): not finite", lon, lat)
	}
	return x, y, nil
}

// ProjectPath projects every point of a path; unprojectable points split the
// path into separate runs.
func (p *Projection) ProjectPath(path geom.Path) []geom.Path {
	var out []geom.Path
	var cur geom.Path
	for _, pt := range path {
		x, y, err := p.Project(pt.X, pt.Y)
		if err != nil {
			if len(cur) > 1 {
				out = append(out, cur)
			}
			cur = nil
			continue
		}
		cur = append(cur, geom.Point{X: x, Y: y})
	}
	if len(cur) > 1 {
		out = append(out, cur)
	}
	return out
}

// Extent projects the edges of the region box, densified so curved parallels
// are covered, and returns the planar bounding box.
func (p *Projection) Extent(r domain.Region) (*geom.Bounds, error) {
	const n = 32
	b := &geom.Bounds{
		Min: geom.Point{X: math.Inf(1), Y: math.Inf(1)},
		Max: geom.Point{X: math.Inf(-1), Y: math.Inf(-1)},
	}
	extend := func(lon, lat float64) {
		x, y, err := p.Project(lon, lat)
		if err != nil {
			return
		}
		b.Min.X = math.Min(b.Min.X, x)
		b.Min.Y = math.Min(b.Min.Y, y)
		b.Max.X = math.Max(b.Max.X, x)
		b.Max.Y = math.Max(b.Max.Y, y)
	}
	for i := 0; i <= n; i++ {
		f := float64(i) / n
		lon := r.West + f*(r.East-r.West)
		lat := r.South + f*(r.North-r.South)
		extend(lon, r.South)
		extend(lon, r.North)
		extend(r.West, lat)
		extend(r.East, lat)
	}
	if math.IsInf(b.Min.X, 0) || b.Max.X <= b.Min.X || b.Max.Y <= b.Min.Y {
		return nil, fmt.Errorf("region %s has no projected extent", r.Key)
	}
	return b, nil
}

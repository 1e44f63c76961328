package render

import (
	"image/color"

	"github.com/couchcryptid/wx-graphics/internal/boundaries"
	"github.com/couchcryptid/wx-graphics/internal/domain"
	"github.com/ctessum/geom"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Outline strokes the projected shapes of one overlay layer.
type Outline struct {
	paths []geom.Path
	style draw.LineStyle
}

// NewOutline projects every ring and line of the layer.
func NewOutline(layer boundaries.Layer, proj *Projection, style domain.LayerStyle) *Outline {
	o := &Outline{style: lineStyle(style)}
	for _, s := range layer.Shapes {
		for _, p := range s.Paths() {
			o.paths = append(o.paths, proj.ProjectPath(p)...)
		}
	}
	return o
}

func lineStyle(s domain.LayerStyle) draw.LineStyle {
	ls := draw.LineStyle{
		Color: color.Color(s.Color),
		Width: vg.Points(s.Width),
	}
	for _, d := range s.Dashes {
		ls.Dashes = append(ls.Dashes, vg.Points(d))
	}
	return ls
}

// Len is the number of projected polylines.
func (o *Outline) Len() int { return len(o.paths) }

// Plot implements plot.Plotter.
func (o *Outline) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	for _, p := range o.paths {
		pts := make([]vg.Point, len(p))
		for i, pt := range p {
			pts[i] = vg.Point{X: trX(pt.X), Y: trY(pt.Y)}
		}
		c.StrokeLines(o.style, c.ClipLinesXY(pts)...)
	}
}

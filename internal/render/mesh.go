package render

import (
	"math"

	"github.com/couchcryptid/wx-graphics/internal/domain"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Mesh draws a gridded field as filled cells, one projected quadrilateral per
// grid point (the equivalent of pcolormesh). It implements plot.Plotter and
// plot.DataRanger.
type Mesh struct {
	// corners[i][j] is the projected corner between rows i-1,i and columns j-1,j.
	corners [][]cornerXY
	values  [][]float64
	scale   domain.ColorScale

	xmin, xmax, ymin, ymax float64
}

type cornerXY struct {
	x, y float64
	ok   bool
}

// NewMesh projects the cell corners of f. Cell edges sit halfway between
// neighbouring coordinates and are extrapolated at the borders.
func NewMesh(f domain.Field, proj *Projection, scale domain.ColorScale) (*Mesh, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	latEdges := cellEdges(f.Lats)
	lonEdges := cellEdges(f.Lons)

	m := &Mesh{
		values: f.Values,
		scale:  scale,
		xmin:   math.Inf(1),
		xmax:   math.Inf(-1),
		ymin:   math.Inf(1),
		ymax:   math.Inf(-1),
	}
	m.corners = make([][]cornerXY, len(latEdges))
	for i, lat := range latEdges {
		m.corners[i] = make([]cornerXY, len(lonEdges))
		for j, lon := range lonEdges {
			x, y, err := proj.Project(lon, lat)
			if err != nil {
				continue
			}
			m.corners[i][j] = cornerXY{x: x, y: y, ok: true}
			m.xmin, m.xmax = math.Min(m.xmin, x), math.Max(m.xmax, x)
			m.ymin, m.ymax = math.Min(m.ymin, y), math.Max(m.ymax, y)
		}
	}
	return m, nil
}

// cellEdges returns len(c)+1 edges around the centers c.
func cellEdges(c []float64) []float64 {
	n := len(c)
	e := make([]float64, n+1)
	if n == 1 {
		e[0], e[1] = c[0]-0.5, c[0]+0.5
		return e
	}
	for i := 1; i < n; i++ {
		e[i] = (c[i-1] + c[i]) / 2
	}
	e[0] = c[0] - (e[1] - c[0])
	e[n] = c[n-1] + (c[n-1] - e[n-1])
	return e
}

// Plot implements plot.Plotter.
func (m *Mesh) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	for i, row := range m.values {
		for j, v := range row {
			col := m.scale.At(v)
			if col.A == 0 {
				continue
			}
			quad := [4]cornerXY{m.corners[i][j], m.corners[i][j+1], m.corners[i+1][j+1], m.corners[i+1][j]}
			pts := make([]vg.Point, 0, 4)
			for _, q := range quad {
				if !q.ok {
					break
				}
				pts = append(pts, vg.Point{X: trX(q.x), Y: trY(q.y)})
			}
			if len(pts) != 4 {
				continue
			}
			pts = c.ClipPolygonXY(pts)
			if len(pts) < 3 {
				continue
			}
			// Stroke with the fill color so antialiasing does not leave seams.
			c.FillPolygon(col, pts)
			c.StrokeLines(draw.LineStyle{Color: col, Width: vg.Points(0.25)}, append(pts, pts[0]))
		}
	}
}

// DataRange implements plot.DataRanger.
func (m *Mesh) DataRange() (xmin, xmax, ymin, ymax float64) {
	return m.xmin, m.xmax, m.ymin, m.ymax
}

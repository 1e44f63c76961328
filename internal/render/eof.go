package render

import (
	"fmt"
	"math"

	"github.com/couchcryptid/wx-graphics/internal/domain"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// EOFModeSpec describes the map of one EOF mode.
type EOFModeSpec struct {
	Mode    int // 1-based
	Pattern domain.Field
	Ratio   float64 // explained variance fraction
	Region  domain.Region
	Layers  []MapLayer
	Title   string
	Style   FigureStyle
}

// DrawEOFMode maps a mode's loadings on a diverging scale centred at zero.
func DrawEOFMode(path string, spec EOFModeSpec) error {
	scale, err := domain.LookupScale("anomaly")
	if err != nil {
		return err
	}
	lo, hi := spec.Pattern.Range()
	scale = scale.Symmetric(math.Max(math.Abs(lo), math.Abs(hi)))
	scale.Label = "Loading"

	return DrawMap(path, MapSpec{
		Field:    spec.Pattern,
		Region:   spec.Region,
		Scale:    scale,
		Layers:   spec.Layers,
		Title:    fmt.Sprintf("%s EOF %d", spec.Title, spec.Mode),
		Subtitle: fmt.Sprintf("%.1f%% of variance", spec.Ratio*100),
		Style:    spec.Style,
	})
}

// PCSpec describes the principal component series figure.
type PCSpec struct {
	Series [][]float64 // Series[k] is mode k+1 over the samples
	Ratios []float64
	XLabel string
	Title  string
	Style  FigureStyle
}

// DrawPCSeries plots each mode's principal component against sample index.
func DrawPCSeries(path string, spec PCSpec) error {
	p := plot.New()
	p.Title.Text = spec.Title
	p.Title.TextStyle.Font.Size = spec.Style.TitleSize
	p.X.Label.Text = spec.XLabel
	p.Y.Label.Text = "Amplitude"
	p.Add(plotter.NewGrid())

	for k, s := range spec.Series {
		xys := make(plotter.XYs, 0, len(s))
		for i, v := range s {
			if math.IsNaN(v) {
				continue
			}
			xys = append(xys, plotter.XY{X: float64(i + 1), Y: v})
		}
		if len(xys) == 0 {
			continue
		}
		line, points, err := plotter.NewLinePoints(xys)
		if err != nil {
			return fmt.Errorf("pc %d: %w", k+1, err)
		}
		c := plotutil.Color(k)
		line.LineStyle.Color = c
		line.LineStyle.Width = vg.Points(1.5)
		points.GlyphStyle.Color = c
		points.GlyphStyle.Shape = plotutil.Shape(k)
		p.Add(line, points)

		label := fmt.Sprintf("EOF %d", k+1)
		if k < len(spec.Ratios) {
			label = fmt.Sprintf("EOF %d (%.1f%%)", k+1, spec.Ratios[k]*100)
		}
		p.Legend.Add(label, line, points)
	}
	p.Legend.Top = true

	img, dc := newCanvas(spec.Style)
	p.Draw(drawSignature(dc, spec.Style))
	return writePNG(path, img)
}

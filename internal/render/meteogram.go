package render

import (
	"fmt"
	"image/color"
	"math"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Series is one time series on a meteogram panel.
type Series struct {
	Name   string
	Color  color.Color
	Times  []time.Time
	Values []float64
}

// Panel is one stacked meteogram panel.
type Panel struct {
	YLabel string
	Series []Series
}

// MeteogramSpec describes a stacked point forecast.
type MeteogramSpec struct {
	Panels   []Panel
	Title    string
	Subtitle string
	Style    FigureStyle
}

// DrawMeteogram stacks the panels on a shared time axis.
func DrawMeteogram(path string, spec MeteogramSpec) error {
	if len(spec.Panels) == 0 {
		return fmt.Errorf("meteogram %q has no panels", spec.Title)
	}

	start, end := math.Inf(1), math.Inf(-1)
	for _, pn := range spec.Panels {
		for _, s := range pn.Series {
			for _, t := range s.Times {
				x := float64(t.Unix())
				start, end = math.Min(start, x), math.Max(end, x)
			}
		}
	}
	if math.IsInf(start, 0) || end <= start {
		return fmt.Errorf("meteogram %q has no time span", spec.Title)
	}

	plots := make([][]*plot.Plot, len(spec.Panels))
	for i, pn := range spec.Panels {
		p, err := panelPlot(pn, spec.Style)
		if err != nil {
			return err
		}
		p.X.Min, p.X.Max = start, end
		p.X.Tick.Marker = timeTicks
		if i < len(spec.Panels)-1 {
			p.X.Tick.Marker = unlabelled(timeTicks)
		}
		plots[i] = []*plot.Plot{p}
	}

	img, dc := newCanvas(spec.Style)
	body := drawHeader(dc, spec.Style, spec.Title, spec.Subtitle)
	body = drawSignature(body, spec.Style)

	tiles := draw.Tiles{
		Rows:      len(plots),
		Cols:      1,
		PadX:      vg.Millimeter,
		PadY:      vg.Millimeter * 2,
		PadTop:    vg.Points(2),
		PadBottom: vg.Points(2),
		PadLeft:   vg.Points(4),
		PadRight:  vg.Points(8),
	}
	canvases := plot.Align(plots, tiles, body)
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}
	return writePNG(path, img)
}

var timeTicks = plot.TimeTicks{Format: "Jan 02\n15:04Z"}

// unlabelled keeps a ticker's positions and drops its labels, for panels
// that share the time axis of the panel below.
func unlabelled(t plot.Ticker) plot.Ticker {
	return plot.TickerFunc(func(lo, hi float64) []plot.Tick {
		ticks := t.Ticks(lo, hi)
		for i := range ticks {
			ticks[i].Label = ""
		}
		return ticks
	})
}

func panelPlot(pn Panel, fs FigureStyle) (*plot.Plot, error) {
	p := plot.New()
	p.Y.Label.Text = pn.YLabel
	p.Y.Label.TextStyle.Font.Size = fs.LabelSize
	p.Add(plotter.NewGrid())
	for _, s := range pn.Series {
		xys := make(plotter.XYs, 0, len(s.Values))
		for i, v := range s.Values {
			if i >= len(s.Times) || math.IsNaN(v) {
				continue
			}
			xys = append(xys, plotter.XY{X: float64(s.Times[i].Unix()), Y: v})
		}
		if len(xys) < 2 {
			continue
		}
		l, err := plotter.NewLine(xys)
		if err != nil {
			return nil, fmt.Errorf("series %s: %w", s.Name, err)
		}
		l.LineStyle.Width = vg.Points(1.5)
		if s.Color != nil {
			l.LineStyle.Color = s.Color
		}
		p.Add(l)
		p.Legend.Add(s.Name, l)
	}
	p.Legend.Top = true
	return p, nil
}

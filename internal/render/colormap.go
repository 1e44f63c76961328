package render

import (
	"fmt"
	"image/color"
	"math"
	"strconv"

	"github.com/couchcryptid/wx-graphics/internal/domain"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
)

// scaleColorMap adapts a discrete domain.ColorScale to palette.ColorMap so it
// can feed plotter.ColorBar.
type scaleColorMap struct {
	scale    domain.ColorScale
	min, max float64
	alpha    float64
}

var _ palette.ColorMap = (*scaleColorMap)(nil)

func newScaleColorMap(s domain.ColorScale) *scaleColorMap {
	return &scaleColorMap{scale: s, min: s.Min(), max: s.Max(), alpha: 1}
}

func (m *scaleColorMap) At(v float64) (color.Color, error) {
	if math.IsNaN(v) {
		return nil, palette.ErrNaN
	}
	if v < m.min {
		return nil, palette.ErrUnderflow
	}
	if v > m.max {
		return nil, palette.ErrOverflow
	}
	c := m.scale.At(v)
	if m.alpha >= 1 {
		return c, nil
	}
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(math.Round(255 * m.alpha))}, nil
}

func (m *scaleColorMap) Max() float64 { return m.max }
func (m *scaleColorMap) Min() float64 { return m.min }
func (m *scaleColorMap) SetMax(v float64) { m.max = v }
func (m *scaleColorMap) SetMin(v float64) { m.min = v }
func (m *scaleColorMap) Alpha() float64 { return m.alpha }
func (m *scaleColorMap) SetAlpha(a float64) { m.alpha = a }

func (m *scaleColorMap) Palette(n int) palette.Palette {
	colors := make([]color.Color, n)
	for i := range colors {
		v := m.min
		if n > 1 {
			v = m.min + (m.max-m.min)*float64(i)/float64(n-1)
		}
		c, err := m.At(v)
		if err != nil {
			c = color.Transparent
		}
		colors[i] = c
	}
	return paletteColors(colors)
}

type paletteColors []color.Color

func (p paletteColors) Colors() []color.Color { return p }

// levelTicks labels the color bar at the scale's bin edges, thinned to at
// most limit labels.
func levelTicks(s domain.ColorScale, limit int) []plot.Tick {
	step := 1
	if limit > 0 && len(s.Levels) > limit {
		step = (len(s.Levels) + limit - 1) / limit
	}
	ticks := make([]plot.Tick, 0, len(s.Levels))
	for i, l := range s.Levels {
		t := plot.Tick{Value: l}
		if i%step == 0 {
			t.Label = formatLevel(l)
		}
		ticks = append(ticks, t)
	}
	return ticks
}

func formatLevel(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e6 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return fmt.Sprintf("%.2g", v)
}

package domain

import (
	"fmt"
	"image/color"
	"math"
	"sort"
	"strings"
)

// ColorScale is a discrete color scale: len(Levels) == len(Colors)+1 bin edges.
// Values below the first edge use the first color and values at or above the
// last edge use the last color.
type ColorScale struct {
	Name   string
	Label  string
	Levels []float64
	Colors []color.RGBA
}

// Transparent is returned for missing values.
var Transparent = color.RGBA{}

// At returns the color of the bin containing v.
func (s ColorScale) At(v float64) color.RGBA {
	if math.IsNaN(v) || len(s.Colors) == 0 {
		return Transparent
	}
	i := sort.SearchFloat64s(s.Levels, v)
	// SearchFloat64s returns the first edge >= v; an exact edge starts its bin.
	if i < len(s.Levels) && s.Levels[i] == v {
		i++
	}
	bin := i - 1
	if bin < 0 {
		bin = 0
	}
	if bin >= len(s.Colors) {
		bin = len(s.Colors) - 1
	}
	return s.Colors[bin]
}

func (s ColorScale) Min() float64 { return s.Levels[0] }

func (s ColorScale) Max() float64 { return s.Levels[len(s.Levels)-1] }

// Rescaled returns a copy with the same colors spread evenly over [lo, hi].
func (s ColorScale) Rescaled(lo, hi float64) ColorScale {
	out := s
	n := len(s.Colors)
	out.Levels = make([]float64, n+1)
	for i := range out.Levels {
		out.Levels[i] = lo + (hi-lo)*float64(i)/float64(n)
	}
	out.Colors = append([]color.RGBA(nil), s.Colors...)
	return out
}

// Symmetric rescales the scale to [-maxAbs, maxAbs], used for anomaly maps.
func (s ColorScale) Symmetric(maxAbs float64) ColorScale {
	if maxAbs <= 0 || math.IsNaN(maxAbs) {
		maxAbs = 1
	}
	return s.Rescaled(-maxAbs, maxAbs)
}

func rgb(r, g, b uint8) color.RGBA { return color.RGBA{R: r, G: g, B: b, A: 255} }

// ramp linearly interpolates n colors through the given stops.
func ramp(stops []color.RGBA, n int) []color.RGBA {
	out := make([]color.RGBA, n)
	if n == 1 {
		out[0] = stops[0]
		return out
	}
	for i := range n {
		pos := float64(i) / float64(n-1) * float64(len(stops)-1)
		lo := int(math.Floor(pos))
		if lo >= len(stops)-1 {
			out[i] = stops[len(stops)-1]
			continue
		}
		f := pos - float64(lo)
		a, b := stops[lo], stops[lo+1]
		mix := func(x, y uint8) uint8 { return uint8(math.Round(float64(x) + f*(float64(y)-float64(x)))) }
		out[i] = color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
	}
	return out
}

func steps(lo, hi, step float64) []float64 {
	var out []float64
	for v := lo; v <= hi+step/2; v += step {
		out = append(out, math.Round(v*1e6)/1e6)
	}
	return out
}

func scale(name, label string, levels []float64, stops ...color.RGBA) ColorScale {
	return ColorScale{Name: name, Label: label, Levels: levels, Colors: ramp(stops, len(levels)-1)}
}

var colorScales = map[string]ColorScale{
	"temperature": scale("temperature", "Temperature (°F)", steps(-20, 110, 5),
		rgb(120, 0, 160), rgb(30, 60, 220), rgb(0, 200, 230), rgb(30, 180, 60),
		rgb(250, 240, 60), rgb(250, 140, 0), rgb(220, 20, 20), rgb(110, 0, 0)),
	"dewpoint": scale("dewpoint", "Dewpoint (°F)", steps(-10, 80, 5),
		rgb(130, 80, 40), rgb(210, 180, 120), rgb(240, 240, 200), rgb(120, 210, 120),
		rgb(20, 140, 40), rgb(0, 90, 60)),
	"relative_humidity": scale("relative_humidity", "Relative Humidity (%)", steps(0, 100, 5),
		rgb(120, 40, 0), rgb(200, 100, 20), rgb(240, 200, 120), rgb(200, 230, 160),
		rgb(60, 170, 80), rgb(20, 100, 170)),
	"wind": scale("wind", "Wind Speed (mph)", steps(0, 80, 5),
		rgb(255, 255, 255), rgb(150, 200, 255), rgb(40, 170, 70), rgb(250, 230, 40),
		rgb(240, 120, 0), rgb(200, 0, 0), rgb(130, 0, 150)),
	"precipitation": scale("precipitation", "Precipitation (in)",
		[]float64{0.01, 0.05, 0.1, 0.25, 0.5, 0.75, 1, 1.5, 2, 3, 4, 6},
		rgb(200, 240, 200), rgb(60, 180, 60), rgb(20, 100, 200), rgb(250, 220, 0),
		rgb(230, 80, 0), rgb(180, 0, 80)),
	"anomaly": scale("anomaly", "Anomaly", steps(-1, 1, 0.1),
		rgb(5, 48, 97), rgb(67, 147, 195), rgb(247, 247, 247), rgb(214, 96, 77), rgb(103, 0, 31)),
	"probability": scale("probability", "Probability (%)", steps(0, 100, 10),
		rgb(255, 255, 255), rgb(180, 220, 255), rgb(60, 130, 220), rgb(120, 40, 160)),
}

// LookupScale returns a copy of the named scale.
func LookupScale(name string) (ColorScale, error) {
	s, ok := colorScales[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return ColorScale{}, fmt.Errorf("%w: %q", ErrUnknownScale, name)
	}
	s.Levels = append([]float64(nil), s.Levels...)
	s.Colors = append([]color.RGBA(nil), s.Colors...)
	return s, nil
}

package render

import (
	"fmt"
	"image/color"
	"math"

	"github.com/couchcryptid/wx-graphics/internal/domain"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Skew-T geometry. Data coordinates are y = ln(1000/p) and x = T + skew*y,
// which puts isotherms at 45 degrees on a square panel spanning 90 °C by a
// 1050-100 hPa column.
const (
	skewFactor = 35.0
	skewTMin   = -40.0
	skewTMax   = 50.0
	skewPBot   = 1050.0
	skewPTop   = 100.0
)

var skewPressureTicks = []float64{1000, 925, 850, 700, 500, 400, 300, 250, 200, 150, 100}

func skewY(p float64) float64 { return math.Log(1000 / p) }

func skewX(t, p float64) float64 { return t + skewFactor*skewY(p) }

// SkewTSpec describes one sounding diagram.
type SkewTSpec struct {
	Sounding domain.Sounding
	Indices  domain.SoundingIndices
	Title    string
	Subtitle string
	Style    FigureStyle
}

var (
	temperatureColor = color.RGBA{R: 200, A: 255}
	dewpointColor    = color.RGBA{G: 140, A: 255}
	parcelColor      = color.RGBA{A: 255}
	isothermColor    = color.RGBA{R: 170, G: 170, B: 170, A: 255}
	dryColor         = color.RGBA{R: 205, G: 133, B: 63, A: 160}
	moistColor       = color.RGBA{R: 30, G: 120, B: 200, A: 160}
	mixingColor      = color.RGBA{R: 60, G: 160, B: 60, A: 160}
)

// DrawSkewT renders a skew-T/log-p diagram of the sounding with its surface
// parcel, background adiabats, wind barbs and an index box.
func DrawSkewT(path string, spec SkewTSpec) error {
	snd := spec.Sounding
	if len(snd.Levels) < 2 {
		return fmt.Errorf("%w: %d levels", domain.ErrInvalidSounding, len(snd.Levels))
	}

	p := plot.New()
	p.X.Min, p.X.Max = skewTMin, skewTMax
	p.Y.Min, p.Y.Max = skewY(skewPBot), skewY(skewPTop)
	p.X.Label.Text = "Temperature (°C)"
	p.Y.Label.Text = "Pressure (hPa)"
	p.Y.Tick.Marker = pressureTicks()
	p.X.Label.TextStyle.Font.Size = spec.Style.LabelSize
	p.Y.Label.TextStyle.Font.Size = spec.Style.LabelSize

	if err := addBackground(p); err != nil {
		return err
	}

	var temp, dew, parcel plotter.XYs
	for i, l := range snd.Levels {
		temp = append(temp, plotter.XY{X: skewX(l.Temperature, l.Pressure), Y: skewY(l.Pressure)})
		if !math.IsNaN(l.Dewpoint) {
			dew = append(dew, plotter.XY{X: skewX(l.Dewpoint, l.Pressure), Y: skewY(l.Pressure)})
		}
		if i < len(spec.Indices.Parcel) && !math.IsNaN(spec.Indices.Parcel[i]) {
			parcel = append(parcel, plotter.XY{X: skewX(spec.Indices.Parcel[i], l.Pressure), Y: skewY(l.Pressure)})
		}
	}
	for _, s := range []struct {
		name  string
		xys   plotter.XYs
		color color.Color
		width float64
		dash  bool
	}{
		{"Temperature", temp, temperatureColor, 2, false},
		{"Dewpoint", dew, dewpointColor, 2, false},
		{"Parcel", parcel, parcelColor, 1.2, true},
	} {
		if len(s.xys) < 2 {
			continue
		}
		l, err := plotter.NewLine(s.xys)
		if err != nil {
			return fmt.Errorf("%s profile: %w", s.name, err)
		}
		l.LineStyle.Color = s.color
		l.LineStyle.Width = vg.Points(s.width)
		if s.dash {
			l.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		}
		p.Add(l)
		p.Legend.Add(s.name, l)
	}
	p.Legend.Top = true
	p.Legend.Left = true
	p.Add(&windBarbs{levels: snd.Levels})

	img, dc := newCanvas(spec.Style)
	body := drawHeader(dc, spec.Style, spec.Title, spec.Subtitle)
	body = drawSignature(body, spec.Style)
	panel := fitAspect(body, 1, 1)
	p.Draw(panel)
	drawIndexBox(panel, spec.Indices, spec.Style)
	return writePNG(path, img)
}

func pressureTicks() plot.ConstantTicks {
	ticks := make(plot.ConstantTicks, len(skewPressureTicks))
	for i, pr := range skewPressureTicks {
		ticks[i] = plot.Tick{Value: skewY(pr), Label: fmt.Sprintf("%.0f", pr)}
	}
	return ticks
}

// addBackground draws isotherms, dry and moist adiabats, and saturation
// mixing-ratio lines.
func addBackground(p *plot.Plot) error {
	add := func(xys plotter.XYs, c color.Color, width float64, dashes []vg.Length) error {
		if len(xys) < 2 {
			return nil
		}
		l, err := plotter.NewLine(xys)
		if err != nil {
			return err
		}
		l.LineStyle.Color = c
		l.LineStyle.Width = vg.Points(width)
		l.LineStyle.Dashes = dashes
		p.Add(l)
		return nil
	}

	for t := -100.0; t <= skewTMax; t += 10 {
		xys := plotter.XYs{{X: skewX(t, skewPBot), Y: skewY(skewPBot)}, {X: skewX(t, skewPTop), Y: skewY(skewPTop)}}
		if err := add(xys, isothermColor, 0.5, nil); err != nil {
			return err
		}
	}

	for theta := 250.0; theta <= 450; theta += 10 {
		var xys plotter.XYs
		for pr := skewPBot; pr >= skewPTop; pr -= 10 {
			t := domain.KelvinToCelsius(domain.DryLapse(pr, theta, 1000))
			xys = append(xys, plotter.XY{X: skewX(t, pr), Y: skewY(pr)})
		}
		if err := add(xys, dryColor, 0.6, nil); err != nil {
			return err
		}
	}

	for t0 := -20.0; t0 <= 36; t0 += 4 {
		var xys plotter.XYs
		tK := domain.MoistLapse(skewPBot, domain.CelsiusToKelvin(t0), 1000)
		prev := skewPBot
		for pr := skewPBot; pr >= 200; pr -= 10 {
			tK = domain.MoistLapse(pr, tK, prev)
			prev = pr
			xys = append(xys, plotter.XY{X: skewX(domain.KelvinToCelsius(tK), pr), Y: skewY(pr)})
		}
		if err := add(xys, moistColor, 0.6, []vg.Length{vg.Points(3), vg.Points(2)}); err != nil {
			return err
		}
	}

	for _, w := range []float64{1, 2, 4, 8, 12, 16, 20} {
		var xys plotter.XYs
		r := w / 1000
		for pr := skewPBot; pr >= 400; pr -= 25 {
			e := r * pr / (domain.Epsilon + r)
			t := domain.DewpointFromVaporPressure(e)
			xys = append(xys, plotter.XY{X: skewX(t, pr), Y: skewY(pr)})
		}
		if err := add(xys, mixingColor, 0.5, []vg.Length{vg.Points(1), vg.Points(2)}); err != nil {
			return err
		}
	}
	return nil
}

// windBarbs draws standard barbs (pennant 50 kt, barb 10 kt, half barb 5 kt)
// in a column along the right edge of the panel.
type windBarbs struct {
	levels []domain.SoundingLevel
}

const (
	barbStaff   = 22.0 // points
	barbLength  = 9.0
	barbSpacing = 3.0
	barbMinGap  = 12.0 // minimum vertical spacing between plotted barbs
)

func (b *windBarbs) Plot(c draw.Canvas, plt *plot.Plot) {
	_, trY := plt.Transforms(&c)
	x := c.Max.X - vg.Points(barbStaff+4)
	sty := draw.LineStyle{Color: color.Black, Width: vg.Points(0.8)}
	last := vg.Length(math.Inf(-1))

	for _, l := range b.levels {
		if math.IsNaN(l.WindSpeed) || math.IsNaN(l.WindDir) || l.Pressure < skewPTop {
			continue
		}
		y := trY(skewY(l.Pressure))
		if y-last < vg.Points(barbMinGap) {
			continue
		}
		last = y
		drawBarb(&c, vg.Point{X: x, Y: y}, l.WindSpeed, l.WindDir, sty)
	}
}

func drawBarb(c *draw.Canvas, at vg.Point, speedKt, dirDeg float64, sty draw.LineStyle) {
	if speedKt < 2.5 {
		c.StrokeLines(sty, circle(at, vg.Points(3)))
		return
	}
	rad := dirDeg * math.Pi / 180
	// Unit vector pointing toward where the wind blows from.
	ux, uy := math.Sin(rad), math.Cos(rad)
	// Barbs sit clockwise of the staff.
	px, py := uy, -ux
	pt := func(along, across float64) vg.Point {
		return vg.Point{
			X: at.X + vg.Points(ux*along+px*across),
			Y: at.Y + vg.Points(uy*along+py*across),
		}
	}

	c.StrokeLines(sty, []vg.Point{at, pt(barbStaff, 0)})

	remaining := 5 * math.Round(speedKt/5)
	pos := barbStaff
	for remaining >= 50 {
		c.FillPolygon(color.Black, []vg.Point{pt(pos, 0), pt(pos-barbSpacing, barbLength), pt(pos-2*barbSpacing, 0)})
		pos -= 2*barbSpacing + 1
		remaining -= 50
	}
	for remaining >= 10 {
		c.StrokeLines(sty, []vg.Point{pt(pos, 0), pt(pos+barbSpacing, barbLength)})
		pos -= barbSpacing
		remaining -= 10
	}
	if remaining >= 5 {
		if pos == barbStaff {
			pos -= barbSpacing
		}
		c.StrokeLines(sty, []vg.Point{pt(pos, 0), pt(pos+barbSpacing/2, barbLength/2)})
	}
}

func circle(at vg.Point, r vg.Length) []vg.Point {
	const n = 16
	pts := make([]vg.Point, n+1)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / n
		pts[i] = vg.Point{X: at.X + r*vg.Length(math.Cos(a)), Y: at.Y + r*vg.Length(math.Sin(a))}
	}
	return pts
}

// drawIndexBox lists the parcel indices in the upper right of the panel.
func drawIndexBox(c draw.Canvas, idx domain.SoundingIndices, fs FigureStyle) {
	lines := []string{
		fmt.Sprintf("SBCAPE %.0f J/kg", idx.CAPE),
		fmt.Sprintf("SBCIN %.0f J/kg", idx.CIN),
		fmt.Sprintf("LCL %.0f hPa / %.1f °C", idx.LCLPressure, idx.LCLTemperature),
		fmt.Sprintf("θ %.1f K  θe %.1f K", idx.SurfaceTheta, idx.SurfaceThetaE),
	}
	sty := textStyle(fs.LabelSize, text.XRight, text.YTop)
	x := c.Max.X - vg.Points(barbStaff*2+12)
	y := c.Max.Y - vg.Points(10)
	for _, l := range lines {
		c.FillText(sty, vg.Point{X: x, Y: y}, l)
		y -= sty.Height(l) + vg.Points(2)
	}
}

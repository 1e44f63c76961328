package render

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/wx-graphics/internal/domain"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Figure defaults, in inches and points.
const (
	defaultWidthIn       = 11.0
	defaultHeightIn      = 8.5
	defaultDPI           = 96
	defaultTitleSize     = 14.0
	defaultLabelSize     = 10.0
	defaultColorBarWidth = 14.0
)

// FigureStyle is a resolved domain.Style: every field has a usable value.
type FigureStyle struct {
	Width, Height    vg.Length
	DPI              int
	TitleSize        vg.Length
	LabelSize        vg.Length
	BoundaryWidth    float64
	BoundaryColor    *color.RGBA
	ColorBarVertical bool
	ColorBarWidth    vg.Length
	Signature        string
}

// ResolveStyle fills unset fields of s from the defaults; dpi is the configured
// fallback resolution.
func ResolveStyle(s domain.Style, dpi int) (FigureStyle, error) {
	fs := FigureStyle{
		Width:            vg.Length(orDefault(s.WidthIn, defaultWidthIn)) * vg.Inch,
		Height:           vg.Length(orDefault(s.HeightIn, defaultHeightIn)) * vg.Inch,
		DPI:              s.DPI,
		TitleSize:        vg.Points(orDefault(s.TitleSize, defaultTitleSize)),
		LabelSize:        vg.Points(orDefault(s.LabelSize, defaultLabelSize)),
		BoundaryWidth:    s.BoundaryWidth,
		ColorBarVertical: s.ColorBar.Vertical,
		ColorBarWidth:    vg.Points(orDefault(s.ColorBar.Width, defaultColorBarWidth)),
		Signature:        s.Signature,
	}
	if fs.DPI <= 0 {
		fs.DPI = dpi
	}
	if fs.DPI <= 0 {
		fs.DPI = defaultDPI
	}
	if s.BoundaryColor != "" {
		c, err := ParseHexColor(s.BoundaryColor)
		if err != nil {
			return FigureStyle{}, err
		}
		fs.BoundaryColor = &c
	}
	return fs, nil
}

func orDefault(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}

// ParseHexColor parses #RRGGBB or RRGGBB.
func ParseHexColor(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q: want #RRGGBB", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// newCanvas allocates a white raster canvas of the figure size.
func newCanvas(fs FigureStyle) (*vgimg.Canvas, draw.Canvas) {
	img := vgimg.NewWith(
		vgimg.UseWH(fs.Width, fs.Height),
		vgimg.UseDPI(fs.DPI),
		vgimg.UseBackgroundColor(color.White),
	)
	return img, draw.New(img)
}

// writePNG encodes the canvas to path, creating parent directories.
func writePNG(path string, img *vgimg.Canvas) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// textStyle returns the default plot font at the given size and alignment.
func textStyle(size vg.Length, xa text.XAlignment, ya text.YAlignment) text.Style {
	sty := plot.New().Title.TextStyle
	sty.Font.Size = size
	sty.XAlign = xa
	sty.YAlign = ya
	sty.Color = color.Black
	return sty
}

// drawHeader writes the title and optional subtitle at the top of c and
// returns the canvas below them.
func drawHeader(c draw.Canvas, fs FigureStyle, title, subtitle string) draw.Canvas {
	pad := vg.Points(6)
	top := c.Max.Y - pad
	titleSty := textStyle(fs.TitleSize, text.XCenter, text.YTop)
	midX := (c.Min.X + c.Max.X) / 2
	if title != "" {
		c.FillText(titleSty, vg.Point{X: midX, Y: top}, title)
		top -= titleSty.Height(title) + pad/2
	}
	if subtitle != "" {
		subSty := textStyle(fs.LabelSize, text.XCenter, text.YTop)
		c.FillText(subSty, vg.Point{X: midX, Y: top}, subtitle)
		top -= subSty.Height(subtitle) + pad/2
	}
	return draw.Crop(c, 0, 0, 0, top-c.Max.Y)
}

// drawSignature writes the signature line in the bottom-right corner and
// returns the canvas above it.
func drawSignature(c draw.Canvas, fs FigureStyle) draw.Canvas {
	if fs.Signature == "" {
		return c
	}
	pad := vg.Points(4)
	sty := textStyle(fs.LabelSize*0.8, text.XRight, text.YBottom)
	c.FillText(sty, vg.Point{X: c.Max.X - pad, Y: c.Min.Y + pad}, fs.Signature)
	return draw.Crop(c, 0, 0, sty.Height(fs.Signature)+2*pad, 0)
}

// fitAspect shrinks c symmetrically so that its width/height ratio is dx/dy.
func fitAspect(c draw.Canvas, dx, dy float64) draw.Canvas {
	if dx <= 0 || dy <= 0 {
		return c
	}
	w := c.Max.X - c.Min.X
	h := c.Max.Y - c.Min.Y
	want := vg.Length(dx / dy)
	if w/h > want {
		trim := (w - h*want) / 2
		return draw.Crop(c, trim, -trim, 0, 0)
	}
	trim := (h - w/want) / 2
	return draw.Crop(c, 0, 0, trim, -trim)
}

package render

import (
	"fmt"

	"github.com/couchcryptid/wx-graphics/internal/boundaries"
	"github.com/couchcryptid/wx-graphics/internal/domain"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// MapLayer is a loaded overlay layer and the style to stroke it with.
type MapLayer struct {
	Layer boundaries.Layer
	Style domain.LayerStyle
}

// MapSpec describes one gridded map.
type MapSpec struct {
	Field    domain.Field
	Region   domain.Region
	Scale    domain.ColorScale
	Layers   []MapLayer
	Title    string
	Subtitle string
	Style    FigureStyle
}

// DrawMap renders the field over the region with its overlays and a color
// bar, and writes a PNG to path.
func DrawMap(path string, spec MapSpec) error {
	img, dc := newCanvas(spec.Style)
	if err := drawMapOn(dc, spec); err != nil {
		return err
	}
	return writePNG(path, img)
}

func drawMapOn(dc draw.Canvas, spec MapSpec) error {
	proj, err := NewProjection(spec.Region)
	if err != nil {
		return err
	}
	ext, err := proj.Extent(spec.Region)
	if err != nil {
		return err
	}
	mesh, err := NewMesh(spec.Field, proj, spec.Scale)
	if err != nil {
		return fmt.Errorf("mesh %s: %w", spec.Field.Name, err)
	}

	p := plot.New()
	p.HideAxes()
	p.Add(mesh)
	for _, l := range spec.Layers {
		p.Add(NewOutline(l.Layer, proj, l.Style))
	}
	p.X.Min, p.X.Max = ext.Min.X, ext.Max.X
	p.Y.Min, p.Y.Max = ext.Min.Y, ext.Max.Y

	body := drawHeader(dc, spec.Style, spec.Title, spec.Subtitle)
	body = drawSignature(body, spec.Style)

	panel, bar := splitColorBar(body, spec.Style)
	p.Draw(fitAspect(panel, ext.Max.X-ext.Min.X, ext.Max.Y-ext.Min.Y))
	drawColorBar(bar, spec.Scale, spec.Style)
	return nil
}

// colorBarLabelRoom is the space kept beside the bar for tick labels and the
// axis label.
const colorBarLabelRoom = 44

func splitColorBar(c draw.Canvas, fs FigureStyle) (panel, bar draw.Canvas) {
	room := fs.ColorBarWidth + vg.Points(colorBarLabelRoom)
	if fs.ColorBarVertical {
		panel = draw.Crop(c, 0, -room, 0, 0)
		bar = draw.Crop(c, c.Max.X-c.Min.X-room, 0, 0, 0)
		h := bar.Max.Y - bar.Min.Y
		return panel, draw.Crop(bar, 0, 0, h*0.1, -h*0.1)
	}
	panel = draw.Crop(c, 0, 0, room, 0)
	bar = draw.Crop(c, 0, 0, 0, -(c.Max.Y - c.Min.Y - room))
	w := bar.Max.X - bar.Min.X
	return panel, draw.Crop(bar, w*0.1, -w*0.1, 0, 0)
}

func drawColorBar(c draw.Canvas, s domain.ColorScale, fs FigureStyle) {
	cb := plot.New()
	cb.Add(&plotter.ColorBar{ColorMap: newScaleColorMap(s), Vertical: fs.ColorBarVertical})
	ticks := plot.ConstantTicks(levelTicks(s, 14))
	if fs.ColorBarVertical {
		cb.HideX()
		cb.Y.Tick.Marker = ticks
		cb.Y.Label.Text = s.Label
		cb.Y.Tick.Label.Font.Size = fs.LabelSize
		cb.Y.Label.TextStyle.Font.Size = fs.LabelSize
	} else {
		cb.HideY()
		cb.X.Tick.Marker = ticks
		cb.X.Label.Text = s.Label
		cb.X.Tick.Label.Font.Size = fs.LabelSize
		cb.X.Label.TextStyle.Font.Size = fs.LabelSize
	}
	cb.Draw(c)
}

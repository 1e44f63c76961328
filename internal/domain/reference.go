package domain

import (
	"fmt"
	"image/color"
	"sort"
	"strings"
)

// Overlay layer names; each maps to BOUNDARIES_DIR/<name>.geojson.
const (
	LayerStates           = "states"
	LayerCounties         = "counties"
	LayerGACC             = "gacc"
	LayerPSA              = "psa"
	LayerCWA              = "cwa"
	LayerPublicZones      = "public-zones"
	LayerFireWeatherZones = "fire-weather-zones"
)

// LayerStyle is how one overlay layer is stroked on a map.
type LayerStyle struct {
	Layer  string
	Color  color.RGBA
	Width  float64   // points
	Dashes []float64 // points; nil is solid
	Z      int       // higher draws later
}

var defaultLayerStyles = map[string]LayerStyle{
	LayerStates:           {Layer: LayerStates, Color: color.RGBA{A: 255}, Width: 1.0, Z: 50},
	LayerCounties:         {Layer: LayerCounties, Color: color.RGBA{R: 80, G: 80, B: 80, A: 255}, Width: 0.4, Z: 10},
	LayerGACC:             {Layer: LayerGACC, Color: color.RGBA{A: 255}, Width: 1.2, Z: 60},
	LayerPSA:              {Layer: LayerPSA, Color: color.RGBA{R: 40, G: 40, B: 40, A: 255}, Width: 0.5, Dashes: []float64{3, 2}, Z: 20},
	LayerCWA:              {Layer: LayerCWA, Color: color.RGBA{R: 120, G: 0, B: 0, A: 255}, Width: 0.8, Z: 40},
	LayerPublicZones:      {Layer: LayerPublicZones, Color: color.RGBA{R: 0, G: 0, B: 160, A: 255}, Width: 0.3, Z: 15},
	LayerFireWeatherZones: {Layer: LayerFireWeatherZones, Color: color.RGBA{R: 160, G: 60, B: 0, A: 255}, Width: 0.3, Z: 15},
}

// ReferenceSystem is a named combination of boundary overlays.
type ReferenceSystem struct {
	Name   string
	Slug   string
	Layers []LayerStyle
}

func reference(name, slug string, layers ...string) ReferenceSystem {
	rs := ReferenceSystem{Name: name, Slug: slug}
	for _, l := range layers {
		rs.Layers = append(rs.Layers, defaultLayerStyles[l])
	}
	sort.SliceStable(rs.Layers, func(i, j int) bool { return rs.Layers[i].Z < rs.Layers[j].Z })
	return rs
}

var referenceSystems = []ReferenceSystem{
	reference("States & Counties", "states-counties", LayerStates, LayerCounties),
	reference("States Only", "states", LayerStates),
	reference("Counties Only", "counties", LayerCounties),
	reference("GACC Only", "gacc", LayerGACC),
	reference("GACC & PSA", "gacc-psa", LayerGACC, LayerPSA),
	reference("CWA Only", "cwa", LayerCWA),
	reference("NWS CWAs & NWS Public Zones", "cwa-public-zones", LayerCWA, LayerPublicZones),
	reference("NWS CWAs & NWS Fire Weather Zones", "cwa-fire-weather-zones", LayerCWA, LayerFireWeatherZones),
	reference("NWS CWAs & Counties", "cwa-counties", LayerCWA, LayerCounties),
	reference("GACC & PSA & NWS Fire Weather Zones", "gacc-psa-fire-weather-zones", LayerGACC, LayerPSA, LayerFireWeatherZones),
}

// LookupReference resolves a reference system by display name or slug, case-insensitively.
func LookupReference(name string) (ReferenceSystem, error) {
	name = strings.TrimSpace(name)
	for _, rs := range referenceSystems {
		if strings.EqualFold(rs.Name, name) || strings.EqualFold(rs.Slug, name) {
			return rs.clone(), nil
		}
	}
	return ReferenceSystem{}, fmt.Errorf("%w: %q", ErrUnknownReference, name)
}

// ReferenceSystems lists the catalog in declaration order.
func ReferenceSystems() []ReferenceSystem {
	out := make([]ReferenceSystem, len(referenceSystems))
	for i, rs := range referenceSystems {
		out[i] = rs.clone()
	}
	return out
}

func (rs ReferenceSystem) clone() ReferenceSystem {
	rs.Layers = append([]LayerStyle(nil), rs.Layers...)
	return rs
}

// WithOverrides returns a copy whose layers use the given width and color
// when set. A zero width or nil color leaves the defaults.
func (rs ReferenceSystem) WithOverrides(width float64, c *color.RGBA) ReferenceSystem {
	out := rs.clone()
	for i := range out.Layers {
		if width > 0 {
			out.Layers[i].Width = width
		}
		if c != nil {
			out.Layers[i].Color = *c
		}
	}
	return out
}

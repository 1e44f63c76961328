package domain

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Field is a single 2-D gridded quantity on a regular latitude/longitude grid.
// Values is indexed [lat][lon].
type Field struct {
	Name      string
	Units     string
	Level     string
	Lats      []float64
	Lons      []float64
	Values    [][]float64
	InitTime  time.Time
	ValidTime time.Time
}

// Validate checks that the value grid matches the coordinate vectors.
func (f Field) Validate() error {
	if len(f.Lats) == 0 || len(f.Lons) == 0 {
		return fmt.Errorf("%w: %s has empty coordinates", ErrInvalidField, f.Name)
	}
	if len(f.Values) != len(f.Lats) {
		return fmt.Errorf("%w: %s has %d rows for %d latitudes", ErrInvalidField, f.Name, len(f.Values), len(f.Lats))
	}
	for i, row := range f.Values {
		if len(row) != len(f.Lons) {
			return fmt.Errorf("%w: %s row %d has %d values for %d longitudes", ErrInvalidField, f.Name, i, len(row), len(f.Lons))
		}
	}
	return nil
}

// Shape returns (ny, nx).
func (f Field) Shape() (int, int) { return len(f.Lats), len(f.Lons) }

// LeadTime is the forecast hour of the field, zero for analyses.
func (f Field) LeadTime() time.Duration {
	if f.InitTime.IsZero() || f.ValidTime.IsZero() {
		return 0
	}
	return f.ValidTime.Sub(f.InitTime)
}

// Apply returns a copy of the field with fn applied to every value.
func (f Field) Apply(fn func(float64) float64, units string) Field {
	out := f
	out.Values = make([][]float64, len(f.Values))
	for i, row := range f.Values {
		out.Values[i] = make([]float64, len(row))
		for j, v := range row {
			if math.IsNaN(v) {
				out.Values[i][j] = v
				continue
			}
			out.Values[i][j] = fn(v)
		}
	}
	if units != "" {
		out.Units = units
	}
	return out
}

// Range returns the NaN-aware minimum and maximum. Both are NaN for an all-missing field.
func (f Field) Range() (lo, hi float64) {
	finite := make([]float64, 0, len(f.Lats)*len(f.Lons))
	for _, row := range f.Values {
		for _, v := range row {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				finite = append(finite, v)
			}
		}
	}
	if len(finite) == 0 {
		return math.NaN(), math.NaN()
	}
	return floats.Min(finite), floats.Max(finite)
}

// Flatten returns the values in row-major (lat, lon) order.
func (f Field) Flatten() []float64 {
	out := make([]float64, 0, len(f.Lats)*len(f.Lons))
	for _, row := range f.Values {
		out = append(out, row...)
	}
	return out
}

// Unflatten reshapes a row-major vector onto the field's grid.
func (f Field) Unflatten(flat []float64) Field {
	out := f
	nx := len(f.Lons)
	out.Values = make([][]float64, len(f.Lats))
	for i := range out.Values {
		out.Values[i] = append([]float64(nil), flat[i*nx:(i+1)*nx]...)
	}
	return out
}

// normalizeLon maps a longitude into -180..180.
func normalizeLon(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

// Subset crops the field to the bounding box of r widened by pad degrees.
// Longitudes are normalised to -180..180 and re-sorted, so 0..360 grids work.
// Latitude order (north-up or south-up) is preserved.
func (f Field) Subset(r Region, pad float64) (Field, error) {
	if err := f.Validate(); err != nil {
		return Field{}, err
	}
	west, east := r.West-pad, r.East+pad
	south, north := r.South-pad, r.North+pad

	type lonIdx struct {
		lon float64
		idx int
	}
	var lons []lonIdx
	for j, lon := range f.Lons {
		nl := normalizeLon(lon)
		if nl >= west && nl <= east {
			lons = append(lons, lonIdx{lon: nl, idx: j})
		}
	}
	sort.Slice(lons, func(a, b int) bool { return lons[a].lon < lons[b].lon })

	var latIdx []int
	for i, lat := range f.Lats {
		if lat >= south && lat <= north {
			latIdx = append(latIdx, i)
		}
	}
	if len(lons) == 0 || len(latIdx) == 0 {
		return Field{}, fmt.Errorf("%w: %s does not intersect region %s", ErrInvalidField, f.Name, r.Key)
	}

	out := f
	out.Lons = make([]float64, len(lons))
	for j, l := range lons {
		out.Lons[j] = l.lon
	}
	out.Lats = make([]float64, len(latIdx))
	out.Values = make([][]float64, len(latIdx))
	for i, li := range latIdx {
		out.Lats[i] = f.Lats[li]
		row := make([]float64, len(lons))
		for j, l := range lons {
			row[j] = f.Values[li][l.idx]
		}
		out.Values[i] = row
	}
	return out, nil
}

// FieldStack is an ordered set of fields on the same grid, e.g. ensemble
// members or consecutive time steps, used as EOF input.
type FieldStack struct {
	Fields []Field
}

// Samples validates that every field shares the first field's grid and
// returns the flattened values, one row per field.
func (s FieldStack) Samples() ([][]float64, error) {
	if len(s.Fields) == 0 {
		return nil, fmt.Errorf("%w: empty field stack", ErrInvalidField)
	}
	ref := s.Fields[0]
	ny, nx := ref.Shape()
	out := make([][]float64, len(s.Fields))
	for i, f := range s.Fields {
		if err := f.Validate(); err != nil {
			return nil, err
		}
		fy, fx := f.Shape()
		if fy != ny || fx != nx {
			return nil, fmt.Errorf("%w: member %d grid %dx%d differs from %dx%d", ErrInvalidField, i, fy, fx, ny, nx)
		}
		out[i] = f.Flatten()
	}
	return out, nil
}

// Subset applies Field.Subset to every member.
func (s FieldStack) Subset(r Region, pad float64) (FieldStack, error) {
	out := FieldStack{Fields: make([]Field, len(s.Fields))}
	for i, f := range s.Fields {
		sub, err := f.Subset(r, pad)
		if err != nil {
			return FieldStack{}, fmt.Errorf("member %d: %w", i, err)
		}
		out.Fields[i] = sub
	}
	return out, nil
}

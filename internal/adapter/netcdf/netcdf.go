// Package netcdf reads gridded forecast fields from NetCDF classic files.
package netcdf

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/wx-graphics/internal/domain"
	"github.com/ctessum/cdf"
)

var (
	latNames  = []string{"lat", "latitude", "y"}
	lonNames  = []string{"lon", "longitude", "x"}
	timeNames = []string{"time", "valid_time", "t"}
)

// File is an open NetCDF dataset.
type File struct {
	path    string
	f       *os.File
	nc      *cdf.File
	numRecs int // records along the unlimited dimension, from the file size
}

// Open opens the NetCDF file at path for reading.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	nc, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read netcdf header %s: %w", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return &File{path: path, f: f, nc: nc, numRecs: int(nc.Header.NumRecs(fi.Size()))}, nil
}

// Close releases the underlying file.
func (f *File) Close() error {
	return f.f.Close()
}

// Variables lists the variable names in the file.
func (f *File) Variables() []string {
	return f.nc.Header.Variables()
}

// grid describes how a data variable's dimensions map onto a 2-D field.
type grid struct {
	name    string
	dims    []string
	lengths []int
	steps   int // length of the leading dimension, 1 for 2-D variables
	ny, nx  int
}

// lengths returns the dimension lengths of variable with the record count
// substituted for an unlimited leading dimension.
func (f *File) lengths(variable string) []int {
	l := f.nc.Header.Lengths(variable)
	if l == nil {
		return nil
	}
	out := append([]int(nil), l...)
	if f.nc.Header.IsRecordVariable(variable) {
		out[0] = f.numRecs
	}
	return out
}

func (f *File) grid(variable string) (grid, error) {
	lengths := f.lengths(variable)
	if lengths == nil {
		return grid{}, fmt.Errorf("%s: variable %q not found", f.path, variable)
	}
	g := grid{name: variable, dims: f.nc.Header.Dimensions(variable), lengths: lengths, steps: 1}
	switch len(lengths) {
	case 2:
	case 3, 4:
		g.steps = lengths[0]
	default:
		return grid{}, fmt.Errorf("%s: variable %q has %d dimensions, want 2 to 4", f.path, variable, len(lengths))
	}
	for i, l := range lengths {
		if l == 0 {
			return grid{}, fmt.Errorf("%s: variable %q dimension %d is empty", f.path, variable, i)
		}
	}
	g.ny, g.nx = lengths[len(lengths)-2], lengths[len(lengths)-1]
	return g, nil
}

// TimeSteps returns the length of the variable's leading dimension.
func (f *File) TimeSteps(variable string) (int, error) {
	g, err := f.grid(variable)
	if err != nil {
		return 0, err
	}
	return g.steps, nil
}

// ReadField reads slice index of variable. For 4-D variables the first level
// is used.
func (f *File) ReadField(variable string, index int) (domain.Field, error) {
	g, err := f.grid(variable)
	if err != nil {
		return domain.Field{}, err
	}
	if index < 0 || index >= g.steps {
		return domain.Field{}, fmt.Errorf("%s: %s index %d out of range [0, %d)", f.path, variable, index, g.steps)
	}
	lats, lons, err := f.coordinates(g)
	if err != nil {
		return domain.Field{}, err
	}

	begin := make([]int, len(g.lengths))
	end := make([]int, len(g.lengths))
	// Reader offsets are linear: [index, 0, ...] to [index+1, 0, ...] covers
	// one time slice, [index, 0, 0, 0] to [index, 1, 0, 0] one level.
	if len(g.lengths) > 2 {
		begin[0] = index
		end[0] = index + 1
		if len(g.lengths) == 4 {
			end[0] = index
			end[1] = 1
		}
	} else {
		begin, end = nil, nil
	}
	flat, err := f.readFloats(variable, begin, end, g.ny*g.nx)
	if err != nil {
		return domain.Field{}, err
	}

	field := domain.Field{
		Name:   variable,
		Units:  f.stringAttr(variable, "units"),
		Lats:   lats,
		Lons:   lons,
		Values: make([][]float64, g.ny),
	}
	if len(g.lengths) == 4 {
		field.Level = g.dims[1]
	}
	for i := range field.Values {
		field.Values[i] = flat[i*g.nx : (i+1)*g.nx]
	}
	field.InitTime, field.ValidTime = f.times(g, index)
	return field, nil
}

// ReadStack reads every slice along the leading dimension.
func (f *File) ReadStack(variable string) (domain.FieldStack, error) {
	n, err := f.TimeSteps(variable)
	if err != nil {
		return domain.FieldStack{}, err
	}
	stack := domain.FieldStack{Fields: make([]domain.Field, n)}
	for i := range n {
		fld, err := f.ReadField(variable, i)
		if err != nil {
			return domain.FieldStack{}, err
		}
		stack.Fields[i] = fld
	}
	return stack, nil
}

func (f *File) coordinates(g grid) (lats, lons []float64, err error) {
	latName := f.findVariable(g.dims[len(g.dims)-2], latNames)
	lonName := f.findVariable(g.dims[len(g.dims)-1], lonNames)
	if latName == "" || lonName == "" {
		return nil, nil, fmt.Errorf("%s: no latitude/longitude coordinates for %s", f.path, g.name)
	}
	if lats, err = f.readFloats(latName, nil, nil, g.ny); err != nil {
		return nil, nil, err
	}
	if lons, err = f.readFloats(lonName, nil, nil, g.nx); err != nil {
		return nil, nil, err
	}
	return lats, lons, nil
}

// findVariable returns the coordinate variable named after dim, falling back
// to the conventional names.
func (f *File) findVariable(dim string, candidates []string) string {
	vars := f.nc.Header.Variables()
	has := func(name string) bool {
		for _, v := range vars {
			if v == name {
				return true
			}
		}
		return false
	}
	if has(dim) && len(f.lengths(dim)) == 1 {
		return dim
	}
	for _, c := range candidates {
		if has(c) && len(f.lengths(c)) == 1 {
			return c
		}
	}
	return ""
}

// readFloats reads n values of a numeric variable, applying _FillValue,
// missing_value, scale_factor and add_offset.
func (f *File) readFloats(variable string, begin, end []int, n int) ([]float64, error) {
	if end == nil && f.nc.Header.IsRecordVariable(variable) {
		// The reader cannot bound a record variable on its own.
		end = f.lengths(variable)
		begin = make([]int, len(end))
	}
	r := f.nc.Reader(variable, begin, end)
	buf := r.Zero(n)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("%s: read %s: %w", f.path, variable, err)
	}

	var raw []float64
	switch v := buf.(type) {
	case []float64:
		raw = v
	case []float32:
		raw = make([]float64, len(v))
		for i, x := range v {
			raw[i] = float64(x)
		}
	case []int32:
		raw = make([]float64, len(v))
		for i, x := range v {
			raw[i] = float64(x)
		}
	case []int16:
		raw = make([]float64, len(v))
		for i, x := range v {
			raw[i] = float64(x)
		}
	case []int8:
		raw = make([]float64, len(v))
		for i, x := range v {
			raw[i] = float64(x)
		}
	default:
		return nil, fmt.Errorf("%s: variable %s has non-numeric type %T", f.path, variable, buf)
	}

	fill, hasFill := f.floatAttr(variable, "_FillValue")
	missing, hasMissing := f.floatAttr(variable, "missing_value")
	scale, hasScale := f.floatAttr(variable, "scale_factor")
	offset, _ := f.floatAttr(variable, "add_offset")
	if !hasScale {
		scale = 1
	}
	for i, v := range raw {
		if (hasFill && v == fill) || (hasMissing && v == missing) {
			raw[i] = math.NaN()
			continue
		}
		raw[i] = v*scale + offset
	}
	return raw, nil
}

func (f *File) floatAttr(variable, name string) (float64, bool) {
	switch v := f.nc.Header.GetAttribute(variable, name).(type) {
	case []float64:
		if len(v) > 0 {
			return v[0], true
		}
	case []float32:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	case []int32:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	case []int16:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	case []int8:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	}
	return 0, false
}

func (f *File) stringAttr(variable, name string) string {
	s, _ := f.nc.Header.GetAttribute(variable, name).(string)
	return strings.TrimSpace(s)
}

// times returns the first and the index-th value of the time coordinate, or
// zero times when the file has none or its units are not understood.
func (f *File) times(g grid, index int) (init, valid time.Time) {
	if g.steps < 1 || len(g.dims) < 3 {
		return time.Time{}, time.Time{}
	}
	name := f.findVariable(g.dims[0], timeNames)
	if name == "" {
		return time.Time{}, time.Time{}
	}
	lengths := f.lengths(name)
	if len(lengths) != 1 || lengths[0] <= index {
		return time.Time{}, time.Time{}
	}
	unit, ref, err := ParseTimeUnits(f.stringAttr(name, "units"))
	if err != nil {
		return time.Time{}, time.Time{}
	}
	vals, err := f.readFloats(name, nil, nil, lengths[0])
	if err != nil {
		return time.Time{}, time.Time{}
	}
	at := func(v float64) time.Time {
		return ref.Add(time.Duration(v * float64(unit)))
	}
	return at(vals[0]), at(vals[index])
}

// ParseTimeUnits parses CF time units such as "hours since 2024-06-01 00:00:00".
func ParseTimeUnits(s string) (time.Duration, time.Time, error) {
	unitStr, refStr, ok := strings.Cut(strings.TrimSpace(s), " since ")
	if !ok {
		return 0, time.Time{}, fmt.Errorf("time units %q: missing \"since\"", s)
	}
	var unit time.Duration
	switch strings.ToLower(strings.TrimSpace(unitStr)) {
	case "seconds", "second", "secs", "s":
		unit = time.Second
	case "minutes", "minute", "mins":
		unit = time.Minute
	case "hours", "hour", "hrs", "h":
		unit = time.Hour
	case "days", "day", "d":
		unit = 24 * time.Hour
	default:
		return 0, time.Time{}, fmt.Errorf("time units %q: unknown unit %q", s, unitStr)
	}
	refStr = strings.TrimSpace(refStr)
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	} {
		if ref, err := time.Parse(layout, refStr); err == nil {
			return unit, ref.UTC(), nil
		}
	}
	return 0, time.Time{}, fmt.Errorf("time units %q: unparseable reference time", s)
}

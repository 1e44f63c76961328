package netcdf

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ctessum/cdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFixture builds a small 2-step, 3x4 grid with a fill value and a
// packed 2-D variable.
func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ndfd.nc")

	h := cdf.NewHeader([]string{"time", "lat", "lon"}, []int{2, 3, 4})
	h.AddVariable("time", []string{"time"}, []float64{0})
	h.AddAttribute("time", "units", "hours since 2024-06-01 12:00:00")
	h.AddVariable("lat", []string{"lat"}, []float32{0})
	h.AddVariable("lon", []string{"lon"}, []float32{0})
	h.AddVariable("t2m", []string{"time", "lat", "lon"}, []float32{0})
	h.AddAttribute("t2m", "units", "K")
	h.AddAttribute("t2m", "_FillValue", []float32{-9999})
	h.AddVariable("rh", []string{"lat", "lon"}, []int16{0})
	h.AddAttribute("rh", "scale_factor", []float32{0.5})
	h.AddAttribute("rh", "add_offset", []float32{10})
	h.Define()
	for _, err := range h.Check() {
		require.NoError(t, err)
	}

	out, err := os.Create(path)
	require.NoError(t, err)
	nc, err := cdf.Create(out, h)
	require.NoError(t, err)

	write := func(name string, begin, end []int, data interface{}) {
		_, err := nc.Writer(name, begin, end).Write(data)
		require.NoError(t, err, name)
	}
	write("time", []int{0}, []int{2}, []float64{0, 3})
	write("lat", []int{0}, []int{3}, []float32{40, 39.5, 39})
	write("lon", []int{0}, []int{4}, []float32{-105, -104.5, -104, -103.5})

	t2m := make([]float32, 24)
	for i := range t2m {
		t2m[i] = 280 + float32(i)
	}
	t2m[13] = -9999
	write("t2m", []int{0, 0, 0}, []int{2, 0, 0}, t2m)

	rh := make([]int16, 12)
	for i := range rh {
		rh[i] = int16(10 * i)
	}
	write("rh", []int{0, 0}, []int{3, 0}, rh)

	require.NoError(t, out.Close())
	return path
}

// writeRecordFixture builds a 3-record, 2x2 grid whose time dimension is
// unlimited, the layout wgrib2 -netcdf produces.
func writeRecordFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rec.nc")

	h := cdf.NewHeader([]string{"time", "lat", "lon"}, []int{0, 2, 2})
	h.AddVariable("time", []string{"time"}, []float64{0})
	h.AddAttribute("time", "units", "seconds since 2024-06-01 00:00:00")
	h.AddVariable("lat", []string{"lat"}, []float32{0})
	h.AddVariable("lon", []string{"lon"}, []float32{0})
	h.AddVariable("t2m", []string{"time", "lat", "lon"}, []float32{0})
	h.Define()
	for _, err := range h.Check() {
		require.NoError(t, err)
	}

	out, err := os.Create(path)
	require.NoError(t, err)
	nc, err := cdf.Create(out, h)
	require.NoError(t, err)

	write := func(name string, begin, end []int, data interface{}) {
		_, err := nc.Writer(name, begin, end).Write(data)
		require.NoError(t, err, name)
	}
	write("lat", []int{0}, []int{2}, []float32{40, 39})
	write("lon", []int{0}, []int{2}, []float32{-105, -104})
	for rec := range 3 {
		write("time", []int{rec}, nil, []float64{float64(rec) * 3600})
		write("t2m", []int{rec, 0, 0}, nil, []float32{
			float32(270 + 10*rec), float32(271 + 10*rec),
			float32(272 + 10*rec), float32(273 + 10*rec),
		})
	}
	require.NoError(t, cdf.UpdateNumRecs(out))
	require.NoError(t, out.Close())
	return path
}

func TestReadFieldRecordDimension(t *testing.T) {
	f, err := Open(writeRecordFixture(t))
	require.NoError(t, err)
	defer f.Close()

	n, err := f.TimeSteps("t2m")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	fld, err := f.ReadField("t2m", 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{40, 39}, fld.Lats)
	assert.Equal(t, [][]float64{{290, 291}, {292, 293}}, fld.Values)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), fld.InitTime)
	assert.Equal(t, time.Date(2024, 6, 1, 2, 0, 0, 0, time.UTC), fld.ValidTime)

	stack, err := f.ReadStack("t2m")
	require.NoError(t, err)
	require.Len(t, stack.Fields, 3)
	assert.Equal(t, 270.0, stack.Fields[0].Values[0][0])
	assert.Equal(t, 283.0, stack.Fields[1].Values[1][1])

	_, err = f.ReadField("t2m", 3)
	require.ErrorContains(t, err, "out of range")
}

func TestReadField(t *testing.T) {
	f, err := Open(writeFixture(t))
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"time", "lat", "lon", "t2m", "rh"}, f.Variables())

	n, err := f.TimeSteps("t2m")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	fld, err := f.ReadField("t2m", 1)
	require.NoError(t, err)
	require.NoError(t, fld.Validate())
	assert.Equal(t, "K", fld.Units)
	assert.Equal(t, []float64{40, 39.5, 39}, fld.Lats)
	assert.Equal(t, []float64{-105, -104.5, -104, -103.5}, fld.Lons)
	assert.Equal(t, 292.0, fld.Values[0][0])
	assert.True(t, math.IsNaN(fld.Values[0][1]))
	assert.Equal(t, 303.0, fld.Values[2][3])
	assert.Equal(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), fld.InitTime)
	assert.Equal(t, time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC), fld.ValidTime)
	assert.Equal(t, 3*time.Hour, fld.LeadTime())
}

func TestReadFieldPacked(t *testing.T) {
	f, err := Open(writeFixture(t))
	require.NoError(t, err)
	defer f.Close()

	n, err := f.TimeSteps("rh")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	fld, err := f.ReadField("rh", 0)
	require.NoError(t, err)
	assert.Equal(t, 10.0, fld.Values[0][0])
	assert.Equal(t, 65.0, fld.Values[2][3])
	assert.True(t, fld.ValidTime.IsZero())
}

func TestReadStack(t *testing.T) {
	f, err := Open(writeFixture(t))
	require.NoError(t, err)
	defer f.Close()

	stack, err := f.ReadStack("t2m")
	require.NoError(t, err)
	require.Len(t, stack.Fields, 2)
	assert.Equal(t, 280.0, stack.Fields[0].Values[0][0])
	assert.Equal(t, 292.0, stack.Fields[1].Values[0][0])
}

func TestReadFieldErrors(t *testing.T) {
	f, err := Open(writeFixture(t))
	require.NoError(t, err)
	defer f.Close()

	_, err = f.ReadField("nope", 0)
	require.ErrorContains(t, err, "not found")

	_, err = f.ReadField("t2m", 2)
	require.ErrorContains(t, err, "out of range")

	_, err = f.ReadField("lat", 0)
	require.ErrorContains(t, err, "dimensions")

	_, err = Open(filepath.Join(t.TempDir(), "missing.nc"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseTimeUnits(t *testing.T) {
	tests := []struct {
		in   string
		unit time.Duration
		ref  time.Time
	}{
		{"hours since 2024-06-01 12:00:00", time.Hour, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)},
		{"seconds since 1970-01-01T00:00:00Z", time.Second, time.Unix(0, 0).UTC()},
		{"days since 2000-01-01", 24 * time.Hour, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"minutes since 2024-06-01 06:30", time.Minute, time.Date(2024, 6, 1, 6, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			unit, ref, err := ParseTimeUnits(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.unit, unit)
			assert.True(t, tt.ref.Equal(ref), "got %s", ref)
		})
	}

	for _, bad := range []string{"hours", "fortnights since 2024-01-01", "hours since yesterday"} {
		_, _, err := ParseTimeUnits(bad)
		assert.Error(t, err, bad)
	}
}

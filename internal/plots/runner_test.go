package plots

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/wx-graphics/internal/adapter/nws"
	"github.com/couchcryptid/wx-graphics/internal/boundaries"
	"github.com/couchcryptid/wx-graphics/internal/domain"
	"github.com/couchcryptid/wx-graphics/internal/observability"
	"github.com/ctessum/geom"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var smallStyle = domain.Style{WidthIn: 4, HeightIn: 3, DPI: 40}

// fakeDataset is a stack of fields over Colorado; member m adds m times a
// west-east gradient and (m%2) times a north-south one.
type fakeDataset struct {
	steps  int
	closed bool
}

func (d *fakeDataset) TimeSteps(variable string) (int, error) {
	if variable != "t2m" {
		return 0, fmt.Errorf("variable %q not found", variable)
	}
	return d.steps, nil
}

func (d *fakeDataset) ReadField(variable string, index int) (domain.Field, error) {
	if _, err := d.TimeSteps(variable); err != nil {
		return domain.Field{}, err
	}
	var lats, lons []float64
	for lat := 42.0; lat >= 36; lat -= 0.5 {
		lats = append(lats, lat)
	}
	for lon := -110.0; lon <= -101; lon += 0.5 {
		lons = append(lons, lon)
	}
	init := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	f := domain.Field{
		Name:      variable,
		Units:     "K",
		Lats:      lats,
		Lons:      lons,
		Values:    make([][]float64, len(lats)),
		InitTime:  init,
		ValidTime: init.Add(time.Duration(index) * 3 * time.Hour),
	}
	for i, lat := range lats {
		f.Values[i] = make([]float64, len(lons))
		for j, lon := range lons {
			f.Values[i][j] = 290 + float64(index)*(lon+105)*0.3 + float64(index%2)*(lat-39)*0.5 + 0.01*float64(i*j%7)
		}
	}
	return f, nil
}

func (d *fakeDataset) ReadStack(variable string) (domain.FieldStack, error) {
	var s domain.FieldStack
	for i := range d.steps {
		f, err := d.ReadField(variable, i)
		if err != nil {
			return domain.FieldStack{}, err
		}
		s.Fields = append(s.Fields, f)
	}
	return s, nil
}

func (d *fakeDataset) Close() error {
	d.closed = true
	return nil
}

type fakeStore map[string]boundaries.Layer

func (s fakeStore) Layer(_ context.Context, name string) (boundaries.Layer, error) {
	l, ok := s[name]
	if !ok {
		return boundaries.Layer{}, fmt.Errorf("layer %s: %w", name, os.ErrNotExist)
	}
	return l, nil
}

var coloradoStates = fakeStore{
	domain.LayerStates: {Name: domain.LayerStates, Shapes: []boundaries.Shape{{
		Geom: geom.Polygon{{{X: -109.05, Y: 37}, {X: -102.04, Y: 37}, {X: -102.04, Y: 41}, {X: -109.05, Y: 41}, {X: -109.05, Y: 37}}},
	}}},
}

type fakeSoundings struct {
	snd     domain.Sounding
	err     error
	station string
	at      time.Time
}

func (f *fakeSoundings) Sounding(_ context.Context, station string, t time.Time) (domain.Sounding, error) {
	f.station, f.at = station, t
	return f.snd, f.err
}

type fakeForecasts struct {
	fc  nws.Forecast
	err error
}

func (f fakeForecasts) GridpointForecast(context.Context, float64, float64) (nws.Forecast, error) {
	return f.fc, f.err
}

func freezeClock(t *testing.T) *clockwork.FakeClock {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 2, 3, 4, 5, 0, time.UTC))
	domain.SetClock(clock)
	t.Cleanup(func() { domain.SetClock(nil) })
	return clock
}

func newTestRunner(t *testing.T, src Sources) (*Runner, *observability.Metrics, string) {
	t.Helper()
	root := t.TempDir()
	m := observability.NewMetricsForTesting()
	return NewRunner(root, 96, src, m, slog.New(slog.NewTextHandler(io.Discard, nil))), m, root
}

func openFake(ds *fakeDataset) OpenFunc {
	return func(source string) (Dataset, error) {
		if source != "ndfd.nc" {
			return nil, fmt.Errorf("open %s: %w", source, os.ErrNotExist)
		}
		return ds, nil
	}
}

func fieldRequest() domain.PlotRequest {
	return domain.PlotRequest{
		ID:         "req-1",
		Kind:       domain.KindFieldMap,
		Model:      "NDFD",
		Region:     "co",
		Reference:  "States Only",
		Parameter:  "Temperature",
		Source:     "ndfd.nc",
		Variable:   "t2m",
		Conversion: "k_to_f",
		Style:      smallStyle,
	}
}

func TestRender_FieldMapAllSteps(t *testing.T) {
	freezeClock(t)
	ds := &fakeDataset{steps: 2}
	r, m, root := newTestRunner(t, Sources{Open: openFake(ds), Boundaries: coloradoStates})

	dir := domain.OutputDir(root, "NDFD", "CO", "States Only", "Temperature")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	stale := filepath.Join(dir, "Temperature_009.png")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	res, err := r.Render(context.Background(), fieldRequest())
	require.NoError(t, err)

	assert.Equal(t, "req-1", res.RequestID)
	assert.Equal(t, domain.KindFieldMap, res.Kind)
	assert.Equal(t, dir, res.Dir)
	assert.Equal(t, []string{
		filepath.Join(dir, "Temperature_000.png"),
		filepath.Join(dir, "Temperature_001.png"),
	}, res.Paths)
	assert.Equal(t, time.Date(2024, 6, 2, 3, 4, 5, 0, time.UTC), res.RenderedAt)
	for _, p := range res.Paths {
		assert.FileExists(t, p)
	}
	assert.NoFileExists(t, stale)
	assert.True(t, ds.closed)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ImagesWritten.WithLabelValues(domain.KindFieldMap)))
}

func TestRender_FieldMapSingleStep(t *testing.T) {
	r, _, _ := newTestRunner(t, Sources{Open: openFake(&fakeDataset{steps: 3})})

	req := fieldRequest()
	idx := 2
	req.TimeIndex = &idx
	req.Conversion = ""
	req.Parameter = "Surface Temp"

	res, err := r.Render(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Paths, 1)
	assert.Equal(t, "Surface Temp_002.png", filepath.Base(res.Paths[0]))

	idx = 3
	_, err = r.Render(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestRender_FieldMapMissingOverlay(t *testing.T) {
	r, _, _ := newTestRunner(t, Sources{Open: openFake(&fakeDataset{steps: 1}), Boundaries: fakeStore{}})

	req := fieldRequest()
	req.Reference = "states-counties"
	res, err := r.Render(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, res.Paths, 1)
}

func TestRender_SourceErrorKeepsOutput(t *testing.T) {
	r, _, root := newTestRunner(t, Sources{Open: openFake(&fakeDataset{steps: 1})})

	dir := domain.OutputDir(root, "NDFD", "CO", "States Only", "Temperature")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	prev := filepath.Join(dir, "Temperature_000.png")
	require.NoError(t, os.WriteFile(prev, []byte("previous"), 0o644))

	req := fieldRequest()
	req.Source = "missing.nc"
	_, err := r.Render(context.Background(), req)
	require.ErrorIs(t, err, os.ErrNotExist)
	assert.FileExists(t, prev)
}

func TestRender_Invalid(t *testing.T) {
	r, _, _ := newTestRunner(t, Sources{Open: openFake(&fakeDataset{steps: 1})})

	req := fieldRequest()
	req.Variable = ""
	_, err := r.Render(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrInvalidRequest)

	req = fieldRequest()
	req.Region = "atlantis"
	_, err = r.Render(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrUnknownRegion)

	req = fieldRequest()
	req.Reference = "rivers"
	_, err = r.Render(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrUnknownReference)

	req = fieldRequest()
	req.Conversion = "furlongs"
	_, err = r.Render(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrUnknownConversion)
}

func TestFieldScale(t *testing.T) {
	f := domain.Field{Units: "kg/m2", Lats: []float64{1}, Lons: []float64{1, 2}, Values: [][]float64{{2, 6}}}
	g := domain.Field{Lats: []float64{1}, Lons: []float64{1, 2}, Values: [][]float64{{math.NaN(), 10}}}

	s, err := fieldScale(domain.PlotRequest{Parameter: "PWAT"}, []domain.Field{f, g})
	require.NoError(t, err)
	assert.Equal(t, 2.0, s.Min())
	assert.Equal(t, 10.0, s.Max())
	assert.Equal(t, "PWAT (kg/m2)", s.Label)

	s, err = fieldScale(domain.PlotRequest{Parameter: "Relative Humidity"}, []domain.Field{f})
	require.NoError(t, err)
	assert.Equal(t, "relative_humidity", s.Name)

	_, err = fieldScale(domain.PlotRequest{Scale: "nope"}, []domain.Field{f})
	require.ErrorIs(t, err, domain.ErrUnknownScale)
}

func TestTimeSubtitle(t *testing.T) {
	init := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.Empty(t, timeSubtitle(domain.Field{}))
	assert.Equal(t, "Valid 2024-06-01 12Z", timeSubtitle(domain.Field{ValidTime: init}))
	assert.Equal(t, "Init 2024-06-01 12Z | Valid 2024-06-02 00Z (F012)",
		timeSubtitle(domain.Field{InitTime: init, ValidTime: init.Add(12 * time.Hour)}))
}

func TestRender_EOF(t *testing.T) {
	r, m, root := newTestRunner(t, Sources{Open: openFake(&fakeDataset{steps: 5}), Boundaries: coloradoStates})

	req := fieldRequest()
	req.Kind = domain.KindEOF
	req.Model = "GEFS"
	req.Modes = 2

	res, err := r.Render(context.Background(), req)
	require.NoError(t, err)

	dir := domain.OutputDir(root, "GEFS", "CO", "States Only", "Temperature")
	assert.Equal(t, []string{
		filepath.Join(dir, "eof_1.png"),
		filepath.Join(dir, "eof_2.png"),
		filepath.Join(dir, "pcs.png"),
	}, res.Paths)
	for _, p := range res.Paths {
		assert.FileExists(t, p)
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ImagesWritten.WithLabelValues(domain.KindEOF)))
}

func TestRender_EOFNeedsTwoMembers(t *testing.T) {
	r, _, _ := newTestRunner(t, Sources{Open: openFake(&fakeDataset{steps: 1})})

	req := fieldRequest()
	req.Kind = domain.KindEOF
	_, err := r.Render(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "two samples")
}

func uwyoRow(cols ...string) string {
	var b strings.Builder
	for _, c := range cols {
		fmt.Fprintf(&b, "%7s", c)
	}
	return b.String()
}

func uwyoPage() string {
	rule := strings.Repeat("-", 77)
	return strings.Join([]string{
		"<HTML><BODY>",
		"<H2>72493 OAK Oakland Int Observations at 00Z 02 Jun 2024</H2>",
		"<PRE>",
		rule,
		uwyoRow("PRES", "HGHT", "TEMP", "DWPT", "RELH", "MIXR", "DRCT", "SKNT"),
		uwyoRow("hPa", "m", "C", "C", "%", "g/kg", "deg", "knot"),
		rule,
		uwyoRow("1013.0", "3", "15.8", "11.8", "77", "8.56", "250", "8"),
		uwyoRow("925.0", "686", "19.2", "3.2", "34", "5.09", "290", "15"),
		uwyoRow("850.0", "1418", "16.0", "-9.0", "17", "2.29", "300", "20"),
		uwyoRow("700.0", "3080", "4.4", "-25.6", "8", "0.60", "270", "25"),
		uwyoRow("500.0", "5790", "-12.9", "-40.9", "7", "0.17", "250", "35"),
		"</PRE>",
		"</BODY></HTML>",
	}, "\n")
}

func TestRender_SoundingFromFile(t *testing.T) {
	r, _, root := newTestRunner(t, Sources{})
	src := filepath.Join(t.TempDir(), "oak.txt")
	require.NoError(t, os.WriteFile(src, []byte(uwyoPage()), 0o644))

	res, err := r.Render(context.Background(), domain.PlotRequest{
		ID: "snd", Kind: domain.KindSounding, Station: "72493", Source: src, Style: smallStyle,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "Soundings", "72493", "skewt_72493_2024060200.png")}, res.Paths)
	assert.FileExists(t, res.Paths[0])
}

func TestRender_SoundingFileWithoutTime(t *testing.T) {
	r, _, root := newTestRunner(t, Sources{})
	page := strings.Replace(uwyoPage(), "<H2>72493 OAK Oakland Int Observations at 00Z 02 Jun 2024</H2>\n", "", 1)
	src := filepath.Join(t.TempDir(), "oak.txt")
	require.NoError(t, os.WriteFile(src, []byte(page), 0o644))

	req := domain.PlotRequest{ID: "snd", Kind: domain.KindSounding, Station: "72493", Source: src, Style: smallStyle}
	_, err := r.Render(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.NoDirExists(t, filepath.Join(root, "Soundings", "72493"))

	req.Time = time.Date(2024, 6, 2, 14, 30, 0, 0, time.UTC)
	res, err := r.Render(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "Soundings", "72493", "skewt_72493_2024060212.png")}, res.Paths)
}

func TestRender_SoundingFetched(t *testing.T) {
	freezeClock(t)
	snd, err := domain.ParseUWyoText(strings.NewReader(uwyoPage()))
	require.NoError(t, err)
	src := &fakeSoundings{snd: snd}
	r, _, _ := newTestRunner(t, Sources{Soundings: src})

	res, err := r.Render(context.Background(), domain.PlotRequest{ID: "snd", Kind: domain.KindSounding, Station: "72493", Style: smallStyle})
	require.NoError(t, err)
	assert.Equal(t, "72493", src.station)
	assert.Equal(t, time.Date(2024, 6, 2, 3, 4, 5, 0, time.UTC), src.at)
	assert.Len(t, res.Paths, 1)

	src.err = errors.New("upstream down")
	_, err = r.Render(context.Background(), domain.PlotRequest{ID: "snd", Kind: domain.KindSounding, Station: "72493"})
	require.ErrorContains(t, err, "upstream down")
}

func TestRender_SoundingNoSource(t *testing.T) {
	r, _, _ := newTestRunner(t, Sources{})
	_, err := r.Render(context.Background(), domain.PlotRequest{ID: "snd", Kind: domain.KindSounding, Station: "72493"})
	require.ErrorContains(t, err, "no sounding source")
}

func testForecast() nws.Forecast {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	series := func(name, uom string, base, amp float64) nws.Series {
		s := nws.Series{Name: name, UOM: uom}
		for h := range 48 {
			s.Times = append(s.Times, start.Add(time.Duration(h)*time.Hour))
			s.Values = append(s.Values, base+amp*math.Sin(float64(h)/24*2*math.Pi))
		}
		return s
	}
	return nws.Forecast{
		GridID: "BOU", GridX: 62, GridY: 61,
		UpdateTime: start.Add(-time.Hour),
		Series: map[string]nws.Series{
			nws.LayerTemperature:      series(nws.LayerTemperature, "wmoUnit:degC", 20, 8),
			nws.LayerDewpoint:         series(nws.LayerDewpoint, "wmoUnit:degC", 5, 2),
			nws.LayerRelativeHumidity: series(nws.LayerRelativeHumidity, "wmoUnit:percent", 40, -15),
			nws.LayerWindSpeed:        series(nws.LayerWindSpeed, "wmoUnit:km_h-1", 15, 10),
		},
	}
}

func TestRender_Meteogram(t *testing.T) {
	r, m, root := newTestRunner(t, Sources{Forecasts: fakeForecasts{fc: testForecast()}})

	res, err := r.Render(context.Background(), domain.PlotRequest{
		ID: "mg", Kind: domain.KindMeteogram, Lat: 39.7392, Lon: -104.9903, Style: smallStyle,
	})
	require.NoError(t, err)
	want := filepath.Join(root, "NWS", "BOU_62_61", "39.7392_-104.9903", "meteogram.png")
	assert.Equal(t, []string{want}, res.Paths)
	assert.FileExists(t, want)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ImagesWritten.WithLabelValues(domain.KindMeteogram)))
}

func TestRender_MeteogramEmpty(t *testing.T) {
	r, _, _ := newTestRunner(t, Sources{Forecasts: fakeForecasts{fc: nws.Forecast{GridID: "BOU"}}})

	_, err := r.Render(context.Background(), domain.PlotRequest{ID: "mg", Kind: domain.KindMeteogram, Lat: 39.7, Lon: -105})
	require.ErrorContains(t, err, "no plottable series")
}

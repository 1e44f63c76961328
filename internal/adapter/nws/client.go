// Package nws fetches gridded point forecasts from the National Weather
// Service API (api.weather.gov).
package nws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/wx-graphics/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/sosodev/duration"
)

const fetchSource = "nws"

// Layers read from the gridpoint forecast.
const (
	LayerTemperature      = "temperature"
	LayerDewpoint         = "dewpoint"
	LayerRelativeHumidity = "relativeHumidity"
	LayerWindSpeed        = "windSpeed"
	LayerWindGust         = "windGust"
)

var forecastLayers = []string{LayerTemperature, LayerDewpoint, LayerRelativeHumidity, LayerWindSpeed, LayerWindGust}

// Series is one hourly forecast quantity in the units the API reported.
type Series struct {
	Name   string
	UOM    string // WMO unit code, e.g. "wmoUnit:degC"
	Times  []time.Time
	Values []float64
}

// Forecast is the hourly gridpoint forecast nearest a point.
type Forecast struct {
	GridID     string
	GridX      int
	GridY      int
	UpdateTime time.Time
	Series     map[string]Series
}

// Client talks to the NWS API.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	delay      time.Duration
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an NWS client. delay is the courtesy pause after every
// request.
func NewClient(baseURL, userAgent string, timeout, delay time.Duration, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		delay:      delay,
		clock:      clock,
		metrics:    metrics,
		logger:     logger,
	}
}

// GridpointForecast resolves the forecast grid cell containing (lat, lon) and
// returns its hourly temperature, dewpoint, humidity and wind series.
func (c *Client) GridpointForecast(ctx context.Context, lat, lon float64) (Forecast, error) {
	var pt pointsResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/points/%.4f,%.4f", c.baseURL, lat, lon), &pt); err != nil {
		return Forecast{}, fmt.Errorf("points %.4f,%.4f: %w", lat, lon, err)
	}
	if pt.Properties.ForecastGridData == "" {
		return Forecast{}, fmt.Errorf("points %.4f,%.4f: no forecastGridData link", lat, lon)
	}

	var grid gridpointResponse
	if err := c.getJSON(ctx, pt.Properties.ForecastGridData, &grid); err != nil {
		return Forecast{}, fmt.Errorf("gridpoint %s/%d,%d: %w", pt.Properties.GridID, pt.Properties.GridX, pt.Properties.GridY, err)
	}

	fc := Forecast{
		GridID: pt.Properties.GridID,
		GridX:  pt.Properties.GridX,
		GridY:  pt.Properties.GridY,
		Series: make(map[string]Series, len(forecastLayers)),
	}
	if grid.Properties.UpdateTime != "" {
		if t, err := time.Parse(time.RFC3339, grid.Properties.UpdateTime); err == nil {
			fc.UpdateTime = t.UTC()
		}
	}
	for _, name := range forecastLayers {
		l, ok := grid.Properties.Layers[name]
		if !ok {
			continue
		}
		s, err := expandLayer(name, l)
		if err != nil {
			return Forecast{}, err
		}
		fc.Series[name] = s
	}
	return fc, nil
}

// getJSON fetches fullURL into v. The courtesy pause follows failed
// requests as well, so a caller retrying on error stays rate limited.
func (c *Client) getJSON(ctx context.Context, fullURL string, v any) error {
	err := c.fetchJSON(ctx, fullURL, v)
	if perr := c.pause(ctx); err == nil {
		err = perr
	}
	return err
}

func (c *Client) fetchJSON(ctx context.Context, fullURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/geo+json")

	start := c.clock.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.FetchDuration.WithLabelValues(fetchSource).Observe(c.clock.Since(start).Seconds())
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues(fetchSource, "error").Inc()
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.FetchRequests.WithLabelValues(fetchSource, "error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("nws API error: status %d: %s", resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		c.metrics.FetchRequests.WithLabelValues(fetchSource, "error").Inc()
		return fmt.Errorf("decode response: %w", err)
	}
	c.metrics.FetchRequests.WithLabelValues(fetchSource, "success").Inc()
	c.logger.Debug("nws request", "url", fullURL, "duration", c.clock.Since(start))
	return nil
}

// pause waits out the courtesy delay between requests.
func (c *Client) pause(ctx context.Context) error {
	if c.delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.clock.After(c.delay):
		return nil
	}
}

// expandLayer turns "start/duration" intervals into one value per hour.
func expandLayer(name string, l layer) (Series, error) {
	s := Series{Name: name, UOM: l.UOM}
	for _, v := range l.Values {
		if v.Value == nil {
			continue
		}
		start, dur, err := ParseValidTime(v.ValidTime)
		if err != nil {
			return Series{}, fmt.Errorf("%s: %w", name, err)
		}
		hours := int(dur / time.Hour)
		if hours < 1 {
			hours = 1
		}
		for h := range hours {
			s.Times = append(s.Times, start.Add(time.Duration(h)*time.Hour))
			s.Values = append(s.Values, *v.Value)
		}
	}
	sort.Sort(byTime(s))
	return s, nil
}

type byTime Series

func (b byTime) Len() int           { return len(b.Times) }
func (b byTime) Less(i, j int) bool { return b.Times[i].Before(b.Times[j]) }
func (b byTime) Swap(i, j int) {
	b.Times[i], b.Times[j] = b.Times[j], b.Times[i]
	b.Values[i], b.Values[j] = b.Values[j], b.Values[i]
}

// ParseValidTime splits an ISO-8601 interval such as
// "2024-06-01T12:00:00+00:00/PT3H" into its start and duration.
func ParseValidTime(s string) (time.Time, time.Duration, error) {
	startStr, durStr, ok := strings.Cut(s, "/")
	if !ok {
		return time.Time{}, 0, fmt.Errorf("valid time %q: missing interval", s)
	}
	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("valid time %q: %w", s, err)
	}
	dur, err := ParseISODuration(durStr)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("valid time %q: %w", s, err)
	}
	return start.UTC(), dur, nil
}

// ParseISODuration converts the duration half of an NWS valid time. Year
// and month designators use the library's average lengths.
func ParseISODuration(s string) (time.Duration, error) {
	d, err := duration.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	td := d.ToTimeDuration()
	if td <= 0 {
		return 0, fmt.Errorf("invalid duration %q: not positive", s)
	}
	return td, nil
}

// NWS API response types.

type pointsResponse struct {
	Properties struct {
		GridID           string `json:"gridId"`
		GridX            int    `json:"gridX"`
		GridY            int    `json:"gridY"`
		ForecastGridData string `json:"forecastGridData"`
	} `json:"properties"`
}

type gridpointResponse struct {
	Properties gridpointProperties `json:"properties"`
}

type gridpointProperties struct {
	UpdateTime string
	Layers     map[string]layer
}

// UnmarshalJSON keeps updateTime and every property shaped like a layer.
func (g *gridpointProperties) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if ut, ok := raw["updateTime"]; ok {
		_ = json.Unmarshal(ut, &g.UpdateTime)
	}
	g.Layers = make(map[string]layer)
	for _, name := range forecastLayers {
		msg, ok := raw[name]
		if !ok {
			continue
		}
		var l layer
		if err := json.Unmarshal(msg, &l); err != nil {
			return fmt.Errorf("layer %s: %w", name, err)
		}
		g.Layers[name] = l
	}
	return nil
}

type layer struct {
	UOM    string       `json:"uom"`
	Values []layerValue `json:"values"`
}

type layerValue struct {
	ValidTime string   `json:"validTime"`
	Value     *float64 `json:"value"`
}

// Package uwyo fetches upper-air soundings from the University of Wyoming
// sounding archive.
package uwyo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/wx-graphics/internal/domain"
	"github.com/couchcryptid/wx-graphics/internal/observability"
	"github.com/jonboulle/clockwork"
)

const fetchSource = "uwyo"

// Client downloads TEXT:LIST sounding pages.
type Client struct {
	baseURL    string
	httpClient *http.Client
	delay      time.Duration
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a sounding client. delay is the courtesy pause after
// every request.
func NewClient(baseURL string, timeout, delay time.Duration, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		delay:      delay,
		clock:      clock,
		metrics:    metrics,
		logger:     logger,
	}
}

// Sounding fetches the observation for station at the synoptic hour at or
// before t.
func (c *Client) Sounding(ctx context.Context, station string, t time.Time) (domain.Sounding, error) {
	snd, err := c.fetch(ctx, station, domain.SynopticTime(t))
	// Pause after errors too; the archive throttles clients that retry fast.
	if perr := c.pause(ctx); err == nil && perr != nil {
		return domain.Sounding{}, perr
	}
	return snd, err
}

func (c *Client) fetch(ctx context.Context, station string, obs time.Time) (domain.Sounding, error) {
	ddhh := obs.Format("0215")
	params := url.Values{
		"region": {"naconf"},
		"TYPE":   {"TEXT:LIST"},
		"YEAR":   {obs.Format("2006")},
		"MONTH":  {obs.Format("01")},
		"FROM":   {ddhh},
		"TO":     {ddhh},
		"STNM":   {station},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.Sounding{}, fmt.Errorf("create request: %w", err)
	}

	start := c.clock.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.FetchDuration.WithLabelValues(fetchSource).Observe(c.clock.Since(start).Seconds())
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues(fetchSource, "error").Inc()
		return domain.Sounding{}, fmt.Errorf("sounding %s %s request: %w", station, obs.Format("2006010215"), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.FetchRequests.WithLabelValues(fetchSource, "error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Sounding{}, fmt.Errorf("sounding API error: status %d: %s", resp.StatusCode, body)
	}

	snd, err := domain.ParseUWyoText(resp.Body)
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues(fetchSource, "error").Inc()
		return domain.Sounding{}, fmt.Errorf("sounding %s %s: %w", station, obs.Format("2006010215"), err)
	}
	c.metrics.FetchRequests.WithLabelValues(fetchSource, "success").Inc()
	if snd.Station == "" {
		snd.Station = station
	}
	if snd.Time.IsZero() {
		snd.Time = obs
	}
	c.logger.Debug("sounding fetched", "station", station, "time", obs, "levels", len(snd.Levels))
	return snd, nil
}

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

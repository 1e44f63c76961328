package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Plot kinds.
const (
	KindFieldMap  = "field_map"
	KindEOF       = "eof"
	KindSounding  = "sounding"
	KindMeteogram = "meteogram"
)

// ColorBarStyle controls the color bar geometry.
type ColorBarStyle struct {
	Vertical bool    `json:"vertical" yaml:"vertical"`
	Width    float64 `json:"width" yaml:"width"` // points
}

// Style carries the presentation parameters of a figure. Zero values take defaults.
type Style struct {
	WidthIn       float64       `json:"width_in,omitempty" yaml:"width_in,omitempty"`
	HeightIn      float64       `json:"height_in,omitempty" yaml:"height_in,omitempty"`
	DPI           int           `json:"dpi,omitempty" yaml:"dpi,omitempty"`
	TitleSize     float64       `json:"title_size,omitempty" yaml:"title_size,omitempty"`
	LabelSize     float64       `json:"label_size,omitempty" yaml:"label_size,omitempty"`
	BoundaryWidth float64       `json:"boundary_width,omitempty" yaml:"boundary_width,omitempty"`
	BoundaryColor string        `json:"boundary_color,omitempty" yaml:"boundary_color,omitempty"` // #RRGGBB
	ColorBar      ColorBarStyle `json:"colorbar" yaml:"colorbar"`
	Signature     string        `json:"signature,omitempty" yaml:"signature,omitempty"`
}

// PlotRequest describes one plotting call.
type PlotRequest struct {
	ID         string    `json:"id" yaml:"id"`
	Kind       string    `json:"kind" yaml:"kind"`
	Model      string    `json:"model,omitempty" yaml:"model,omitempty"`
	Region     string    `json:"region,omitempty" yaml:"region,omitempty"`
	Reference  string    `json:"reference,omitempty" yaml:"reference,omitempty"`
	Parameter  string    `json:"parameter,omitempty" yaml:"parameter,omitempty"`
	Source     string    `json:"source,omitempty" yaml:"source,omitempty"`
	Variable   string    `json:"variable,omitempty" yaml:"variable,omitempty"`
	TimeIndex  *int      `json:"time_index,omitempty" yaml:"time_index,omitempty"` // nil: every step
	Conversion string    `json:"conversion,omitempty" yaml:"conversion,omitempty"`
	Scale      string    `json:"scale,omitempty" yaml:"scale,omitempty"`
	Title      string    `json:"title,omitempty" yaml:"title,omitempty"`
	Station    string    `json:"station,omitempty" yaml:"station,omitempty"`
	Time       time.Time `json:"time,omitempty" yaml:"time,omitempty"`
	Lat        float64   `json:"lat,omitempty" yaml:"lat,omitempty"`
	Lon        float64   `json:"lon,omitempty" yaml:"lon,omitempty"`
	Modes      int       `json:"modes,omitempty" yaml:"modes,omitempty"`
	Style      Style     `json:"style" yaml:"style"`
}

// Validate checks the fields each kind requires.
func (r PlotRequest) Validate() error {
	var missing []string
	need := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	switch r.Kind {
	case KindFieldMap, KindEOF:
		need("model", r.Model)
		need("region", r.Region)
		need("reference", r.Reference)
		need("parameter", r.Parameter)
		need("source", r.Source)
		need("variable", r.Variable)
	case KindSounding:
		need("station", r.Station)
	case KindMeteogram:
		if r.Lat < -90 || r.Lat > 90 || r.Lon < -180 || r.Lon > 180 || (r.Lat == 0 && r.Lon == 0) {
			missing = append(missing, "lat/lon")
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRequest, r.Kind)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s requires %s", ErrInvalidRequest, r.Kind, strings.Join(missing, ", "))
	}
	if r.Modes < 0 {
		return fmt.Errorf("%w: modes must not be negative", ErrInvalidRequest)
	}
	return nil
}

// PlotResult reports the images a plotting call wrote.
type PlotResult struct {
	RequestID  string        `json:"request_id"`
	Kind       string        `json:"kind"`
	Dir        string        `json:"dir"`
	Paths      []string      `json:"paths"`
	RenderedAt time.Time     `json:"rendered_at"`
	Duration   time.Duration `json:"duration_ns"`
	Request    PlotRequest   `json:"request"`
}

// RawEvent represents an unprocessed message from the request topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputEvent is the serialized form destined for the result topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// ParseRawRequest decodes a message value into a PlotRequest. A missing ID
// falls back to the message key.
func ParseRawRequest(raw RawEvent) (PlotRequest, error) {
	var req PlotRequest
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return PlotRequest{}, fmt.Errorf("parse plot request: %w", err)
	}
	if req.ID == "" {
		req.ID = string(raw.Key)
	}
	if err := req.Validate(); err != nil {
		return PlotRequest{}, err
	}
	return req, nil
}

// SerializeResult marshals a PlotResult into an OutputEvent keyed by request ID.
func SerializeResult(res PlotResult) (OutputEvent, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize plot result: %w", err)
	}
	return OutputEvent{
		Key:   []byte(res.RequestID),
		Value: data,
		Headers: map[string]string{
			"kind":        res.Kind,
			"rendered_at": res.RenderedAt.Format(time.RFC3339),
		},
	}, nil
}

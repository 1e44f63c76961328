package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Catalog drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all settings, populated from environment variables.
type Config struct {
	OutputRoot            string
	BoundariesDir         string
	BoundaryCacheVertices int
	FigureDPI             int

	// Remote data sources.
	NWSBaseURL      string
	NWSUserAgent    string
	SoundingBaseURL string
	FetchTimeout    time.Duration
	RequestDelay    time.Duration

	// Rendered product catalog. Disabled when CatalogDriver is empty.
	CatalogDriver string
	CatalogDSN    string

	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "30s", false)
	if err != nil {
		return nil, err
	}

	requestDelay, err := parseDuration("REQUEST_DELAY", "0s", true)
	if err != nil {
		return nil, err
	}

	dpi, err := parsePositiveInt("FIGURE_DPI", 96)
	if err != nil {
		return nil, err
	}

	cacheVertices, err := parsePositiveInt("BOUNDARY_CACHE_VERTICES", 5_000_000)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		OutputRoot:            sharedcfg.EnvOrDefault("OUTPUT_ROOT", "Weather Data"),
		BoundariesDir:         sharedcfg.EnvOrDefault("BOUNDARIES_DIR", "boundaries"),
		BoundaryCacheVertices: cacheVertices,
		FigureDPI:             dpi,

		NWSBaseURL:      sharedcfg.EnvOrDefault("NWS_BASE_URL", "https://api.weather.gov"),
		NWSUserAgent:    sharedcfg.EnvOrDefault("NWS_USER_AGENT", "wx-graphics (contact@example.com)"),
		SoundingBaseURL: sharedcfg.EnvOrDefault("SOUNDING_BASE_URL", "https://weather.uwyo.edu/cgi-bin/sounding"),
		FetchTimeout:    fetchTimeout,
		RequestDelay:    requestDelay,

		CatalogDriver: os.Getenv("CATALOG_DRIVER"),
		CatalogDSN:    os.Getenv("CATALOG_DSN"),

		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "plot-requests"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "plot-results"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "wx-graphics"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	switch cfg.CatalogDriver {
	case "":
	case DriverPostgres, DriverSQLite:
		if cfg.CatalogDSN == "" {
			return nil, errors.New("CATALOG_DRIVER is set but CATALOG_DSN is not")
		}
	default:
		return nil, errors.New("invalid CATALOG_DRIVER: must be postgres or sqlite")
	}

	return cfg, nil
}

// CatalogEnabled reports whether rendered products should be recorded.
func (c *Config) CatalogEnabled() bool {
	return c.CatalogDriver != ""
}

func parseDuration(key, fallback string, allowZero bool) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errors.New("invalid " + key + ": must be a positive integer")
	}
	return n, nil
}

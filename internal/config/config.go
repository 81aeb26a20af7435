package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/storm-energy-impact/internal/domain"
)

const dateLayout = time.DateOnly

// Config holds all service settings, populated from environment variables.
type Config struct {
	GridPath       string
	FacilitiesPath string
	FacilityState  string
	IncludeMetros  bool

	EventName  string
	EventStart time.Time
	EventEnd   time.Time

	BaselineStartYear int
	BaselineEndYear   int
	BucketPolicy      string
	MinBucketSamples  int
	SmoothingWindow   int

	HDDBaseTemp          float64
	DegreeDayMethod      string
	AirDensityCorrection bool
	SolarDerate          float64
	SolarTempCoeff       float64

	Workers int

	KafkaEnabled      bool
	KafkaBrokers      []string
	KafkaSinkTopic    string
	PublishMaxRetries int

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("MAPBOX_TIMEOUT", "5s"))
	if err != nil || mapboxTimeout <= 0 {
		return nil, errors.New("invalid MAPBOX_TIMEOUT")
	}

	p := &parser{}
	cfg := &Config{
		GridPath:       sharedcfg.EnvOrDefault("GRID_PATH", "data/grid.json.gz"),
		FacilitiesPath: sharedcfg.EnvOrDefault("FACILITIES_PATH", "data/generators.csv"),
		FacilityState:  sharedcfg.EnvOrDefault("FACILITY_STATE", "TX"),
		IncludeMetros:  p.bool("INCLUDE_METROS", true),

		EventName:  sharedcfg.EnvOrDefault("EVENT_NAME", "Winter Storm Uri"),
		EventStart: p.date("EVENT_START", "2021-02-13"),
		EventEnd:   p.date("EVENT_END", "2021-02-17"),

		BaselineStartYear: p.int("BASELINE_START_YEAR", 1990),
		BaselineEndYear:   p.int("BASELINE_END_YEAR", 2019),
		BucketPolicy:      sharedcfg.EnvOrDefault("BUCKET_POLICY", "day-of-year"),
		MinBucketSamples:  p.int("MIN_BUCKET_SAMPLES", 10),
		SmoothingWindow:   p.int("SMOOTHING_WINDOW", 1),

		HDDBaseTemp:          p.float("HDD_BASE_TEMP", 18),
		DegreeDayMethod:      sharedcfg.EnvOrDefault("DEGREE_DAY_METHOD", "daily-mean"),
		AirDensityCorrection: p.bool("AIR_DENSITY_CORRECTION", true),
		SolarDerate:          p.float("SOLAR_DERATE", 1.0),
		SolarTempCoeff:       p.float("SOLAR_TEMP_COEFF", -0.004),

		Workers: p.int("WORKERS", 4),

		KafkaEnabled:      p.bool("KAFKA_ENABLED", false),
		KafkaBrokers:      sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic:    sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "energy-impact-reports"),
		PublishMaxRetries: p.int("PUBLISH_MAX_RETRIES", 5),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		MapboxToken:     os.Getenv("MAPBOX_TOKEN"),
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
	}
	cfg.MapboxEnabled = cfg.MapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		cfg.MapboxEnabled = v == "true"
	}
	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.GridPath == "" {
		return errors.New("GRID_PATH is required")
	}
	if c.EventEnd.Before(c.EventStart) {
		return errors.New("EVENT_END is before EVENT_START")
	}
	if c.BaselineEndYear < c.BaselineStartYear {
		return errors.New("BASELINE_END_YEAR is before BASELINE_START_YEAR")
	}
	if y := c.EventStart.Year(); y >= c.BaselineStartYear && y <= c.BaselineEndYear {
		return fmt.Errorf("event year %d falls inside the baseline window %d-%d", y, c.BaselineStartYear, c.BaselineEndYear)
	}
	switch c.BucketPolicy {
	case "day-of-year", "month-of-year":
	default:
		return fmt.Errorf("invalid BUCKET_POLICY %q", c.BucketPolicy)
	}
	switch c.DegreeDayMethod {
	case "daily-mean", "hourly-sum":
	default:
		return fmt.Errorf("invalid DEGREE_DAY_METHOD %q", c.DegreeDayMethod)
	}
	if c.MinBucketSamples < 0 {
		return errors.New("MIN_BUCKET_SAMPLES must not be negative")
	}
	if c.SmoothingWindow < 1 {
		return errors.New("SMOOTHING_WINDOW must be at least 1")
	}
	if c.SolarDerate <= 0 || c.SolarDerate > 1 {
		return errors.New("SOLAR_DERATE must be in (0, 1]")
	}
	if c.Workers < 1 {
		return errors.New("WORKERS must be at least 1")
	}
	if c.PublishMaxRetries < 0 {
		return errors.New("PUBLISH_MAX_RETRIES must not be negative")
	}
	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required")
		}
		if c.KafkaSinkTopic == "" {
			return errors.New("KAFKA_SINK_TOPIC is required")
		}
	}
	if c.MapboxEnabled && c.MapboxToken == "" {
		return errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	return nil
}

// EventRange returns the event as an inclusive UTC window covering every hour
// of the first and last event days.
func (c *Config) EventRange() domain.TimeRange {
	return domain.TimeRange{
		Start: c.EventStart,
		End:   c.EventEnd.AddDate(0, 0, 1).Add(-time.Nanosecond),
	}
}

// parser collects the first parse error so Load can report it once.
type parser struct {
	err error
}

func (p *parser) fail(key, value string) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s %q", key, value)
	}
}

func (p *parser) int(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		p.fail(key, s)
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.fail(key, s)
		return def
	}
	return f
}

func (p *parser) bool(key string, def bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		p.fail(key, s)
		return def
	}
	return b
}

func (p *parser) date(key, def string) time.Time {
	s := sharedcfg.EnvOrDefault(key, def)
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		p.fail(key, s)
	}
	return t
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}

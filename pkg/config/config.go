package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/transitlens/transitlens/pkg/transit"
	"gopkg.in/yaml.v3"
)

var ErrInvalidBounds = errors.New("map bounds must satisfy maxLat > minLat and maxLng > minLng")

// Duration is a time.Duration that unmarshals from YAML strings like
// "30s" or "2m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}

	*d = Duration(parsed)

	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the explicit configuration object handed to each component
// at construction. There is deliberately no process-wide singleton or
// runtime mode switch; tests build their own Config.
type Config struct {
	DataSource DataSourceConfig `yaml:"datasource"`
	LiveFeed   LiveFeedConfig   `yaml:"livefeed"`
	Polling    PollingConfig    `yaml:"polling"`
	Map        MapConfig        `yaml:"map"`
	Server     ServerConfig     `yaml:"server"`
}

type DataSourceConfig struct {
	BaseURL     string   `yaml:"baseURL" validate:"required,url"`
	AccessToken string   `yaml:"accessToken"`
	Timeout     Duration `yaml:"timeout"`
}

type LiveFeedConfig struct {
	URL              string   `yaml:"url" validate:"required"`
	BaseRetryDelay   Duration `yaml:"baseRetryDelay"`
	MaxRetryAttempts int      `yaml:"maxRetryAttempts" validate:"gte=0"`
}

type PollingConfig struct {
	Interval Duration `yaml:"interval"`
	Margin   float64  `yaml:"margin" validate:"gte=0"`
}

type MapConfig struct {
	Bounds        transit.BoundingBox `yaml:"bounds"`
	DefaultCenter transit.Location    `yaml:"defaultCenter"`
	DefaultZoom   int                 `yaml:"defaultZoom" validate:"gte=8,lte=18"`

	// AbsenceTolerance is how many consecutive snapshots a vehicle may be
	// missing from before the fleet store drops it.
	AbsenceTolerance int `yaml:"absenceTolerance" validate:"gte=0"`
}

type ServerConfig struct {
	Listen string `yaml:"listen"`
}

func Defaults() Config {
	return Config{
		DataSource: DataSourceConfig{
			BaseURL: "http://localhost:4000/api",
			Timeout: Duration(10 * time.Second),
		},
		LiveFeed: LiveFeedConfig{
			URL:              "ws://localhost:4000/live",
			BaseRetryDelay:   Duration(2 * time.Second),
			MaxRetryAttempts: 5,
		},
		Polling: PollingConfig{
			Interval: Duration(10 * time.Second),
			Margin:   0.25,
		},
		Map: MapConfig{
			Bounds: transit.BoundingBox{
				MinLat: 40.0,
				MaxLat: 41.4,
				MinLng: -74.8,
				MaxLng: -73.2,
			},
			DefaultCenter: transit.Location{Latitude: 40.7128, Longitude: -74.0060},
			DefaultZoom:   13,
		},
		Server: ServerConfig{
			Listen: ":3333",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variable overrides, then validates it.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnvironment(&cfg)

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func Validate(cfg Config) error {
	validate := validator.New()

	if err := validate.Struct(cfg.DataSource); err != nil {
		return err
	}
	if err := validate.Struct(cfg.LiveFeed); err != nil {
		return err
	}
	if err := validate.Struct(cfg.Polling); err != nil {
		return err
	}
	if err := validate.Struct(cfg.Map); err != nil {
		return err
	}

	if !cfg.Map.Bounds.Valid() {
		return ErrInvalidBounds
	}

	return nil
}

func applyEnvironment(cfg *Config) {
	if val := os.Getenv("TRANSITLENS_API_URL"); val != "" {
		cfg.DataSource.BaseURL = val
	}
	if val := os.Getenv("TRANSITLENS_FEED_URL"); val != "" {
		cfg.LiveFeed.URL = val
	}
	if val := os.Getenv("TRANSITLENS_ACCESS_TOKEN"); val != "" {
		cfg.DataSource.AccessToken = val
	}
	if val := os.Getenv("TRANSITLENS_POLL_INTERVAL"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			cfg.Polling.Interval = Duration(parsed)
		}
	}
	if val := os.Getenv("TRANSITLENS_LISTEN"); val != "" {
		cfg.Server.Listen = val
	}
	if val := os.Getenv("TRANSITLENS_DEFAULT_ZOOM"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			cfg.Map.DefaultZoom = parsed
		}
	}
}

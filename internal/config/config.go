// Package config loads the dashboard server configuration from YAML, then
// overlays environment variables. Simulation parameters are not
// configurable; only the surfaces around the simulation are.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/qos-dashboard/internal/logging"
	"github.com/signalsfoundry/qos-dashboard/internal/observability"
	"github.com/signalsfoundry/qos-dashboard/timectrl"
)

// ErrInvalidConfig wraps every load or validation failure.
var ErrInvalidConfig = errors.New("invalid config")

var validate = validator.New()

// HTTPConfig configures the REST, SSE and GraphQL listener.
type HTTPConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

// GRPCConfig configures the health-check listener. An empty address
// disables it.
type GRPCConfig struct {
	Addr string `yaml:"addr"`
}

// MetricsConfig toggles the /metrics endpoint and collectors.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ClockConfig selects how simulated time advances.
type ClockConfig struct {
	Mode string        `yaml:"mode" validate:"oneof=realtime accelerated"`
	Tick time.Duration `yaml:"tick" validate:"gt=0"`
}

// Config is the full server configuration.
type Config struct {
	HTTP    HTTPConfig                  `yaml:"http"`
	GRPC    GRPCConfig                  `yaml:"grpc"`
	Metrics MetricsConfig               `yaml:"metrics"`
	Clock   ClockConfig                 `yaml:"clock"`
	Seed    uint64                      `yaml:"seed"`
	Logging logging.Config              `yaml:"logging"`
	Tracing observability.TracingConfig `yaml:"tracing"`
}

// Default returns a configuration that serves on :8080/:50051 with a
// realtime clock stepping every 10ms.
func Default() Config {
	return Config{
		HTTP:    HTTPConfig{Addr: ":8080"},
		GRPC:    GRPCConfig{Addr: ":50051"},
		Metrics: MetricsConfig{Enabled: true},
		Clock:   ClockConfig{Mode: timectrl.RealTime.String(), Tick: 10 * time.Millisecond},
		Logging: logging.Config{Level: "info", Format: "text"},
		Tracing: observability.DefaultTracingConfig(),
	}
}

// Load reads path over Default, applies environment overrides, and
// validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("%w: read %s: %v", ErrInvalidConfig, path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks struct constraints on every section.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, formatValidationError(err))
	}
	return nil
}

// Mode returns the parsed clock mode.
func (c Config) Mode() timectrl.Mode { return timectrl.ParseMode(c.Clock.Mode) }

// ResolveSeed returns Seed, or a seed derived from now when Seed is zero.
func (c Config) ResolveSeed(now time.Time) uint64 {
	if c.Seed != 0 {
		return c.Seed
	}
	return uint64(now.UnixNano())
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DASHBOARD_HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v, ok := os.LookupEnv("DASHBOARD_GRPC_ADDR"); ok {
		c.GRPC.Addr = v
	}
	if v := os.Getenv("DASHBOARD_METRICS_ENABLED"); v != "" {
		c.Metrics.Enabled = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("DASHBOARD_CLOCK_MODE"); v != "" {
		c.Clock.Mode = strings.ToLower(v)
	}
	if v := os.Getenv("DASHBOARD_CLOCK_TICK"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: DASHBOARD_CLOCK_TICK: %v", ErrInvalidConfig, err)
		}
		c.Clock.Tick = d
	}
	if v := os.Getenv("DASHBOARD_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: DASHBOARD_SEED: %v", ErrInvalidConfig, err)
		}
		c.Seed = seed
	}
	c.Logging = logging.ConfigFromEnv(c.Logging)
	c.Tracing = observability.TracingConfigFromEnv(c.Tracing)
	return nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, e := range verrs {
		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", e.Namespace())
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s]", e.Namespace(), e.Param())
		case "gt", "gte", "lte":
			return fmt.Errorf("%s: must be %s %s", e.Namespace(), e.Tag(), e.Param())
		default:
			return fmt.Errorf("%s: validation failed (%s)", e.Namespace(), e.Tag())
		}
	}
	return err
}

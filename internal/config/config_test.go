package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/qos-dashboard/timectrl"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dashboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, timectrl.RealTime, cfg.Mode())
	assert.False(t, cfg.Tracing.Enabled)
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().HTTP, cfg.HTTP)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, `
http:
  addr: 127.0.0.1:9000
grpc:
  addr: ""
metrics:
  enabled: false
clock:
  mode: accelerated
  tick: 250ms
seed: 42
logging:
  level: debug
  format: json
tracing:
  enabled: true
  exporter: otlp
  endpoint: collector:4317
  sample_ratio: 0.5
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.Addr)
	assert.Empty(t, cfg.GRPC.Addr)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, timectrl.Accelerated, cfg.Mode())
	assert.Equal(t, 250*time.Millisecond, cfg.Clock.Tick)
	assert.Equal(t, uint64(42), cfg.Seed)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "otlp", cfg.Tracing.Exporter)
	assert.Equal(t, 0.5, cfg.Tracing.SampleRatio)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"bad mode":     "clock:\n  mode: warp\n",
		"zero tick":    "clock:\n  tick: 0s\n",
		"bad level":    "logging:\n  level: chatty\n",
		"bad exporter": "tracing:\n  exporter: zipkin\n",
		"bad ratio":    "tracing:\n  sample_ratio: 2\n",
		"empty http":   "http:\n  addr: \"\"\n",
		"not yaml":     "clock: [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, body))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "seed: 1\nclock:\n  mode: realtime\n")
	t.Setenv("DASHBOARD_SEED", "77")
	t.Setenv("DASHBOARD_CLOCK_MODE", "Accelerated")
	t.Setenv("DASHBOARD_CLOCK_TICK", "5ms")
	t.Setenv("DASHBOARD_HTTP_ADDR", ":1234")
	t.Setenv("DASHBOARD_METRICS_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(77), cfg.Seed)
	assert.Equal(t, timectrl.Accelerated, cfg.Mode())
	assert.Equal(t, 5*time.Millisecond, cfg.Clock.Tick)
	assert.Equal(t, ":1234", cfg.HTTP.Addr)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestEnvRejectsMalformedNumbers(t *testing.T) {
	t.Setenv("DASHBOARD_SEED", "many")
	_, err := Load("")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestResolveSeed(t *testing.T) {
	now := time.Unix(0, 123456)
	cfg := Default()
	assert.Equal(t, uint64(123456), cfg.ResolveSeed(now))
	cfg.Seed = 9
	assert.Equal(t, uint64(9), cfg.ResolveSeed(now))
}

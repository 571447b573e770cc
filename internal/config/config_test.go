package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMapboxToken = "pk.test-token"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SOURCE_DIR", "/data/sfide/ITA")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/sfide/ITA", cfg.SourceDir)
	assert.Equal(t, ".", cfg.OutputDir)
	assert.Equal(t, filepath.Join(".", "processor_state.json"), cfg.StateFile)
	assert.Equal(t, 72*time.Hour, cfg.RollingWindow)
	assert.Equal(t, 5*time.Minute, cfg.ScanInterval)
	assert.True(t, cfg.WatchEnabled)
	assert.Equal(t, 2*time.Second, cfg.WatchDebounce)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "fire-detections", cfg.KafkaSinkTopic)
	assert.False(t, cfg.KafkaEnabled)
	assert.False(t, cfg.MapboxEnabled)
	assert.Empty(t, cfg.MapboxToken)
	assert.Equal(t, 5*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 1000, cfg.MapboxCacheSize)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("SOURCE_DIR", "/srv/ftp/sfide/ITA")
	t.Setenv("OUTPUT_DIR", "/srv/www/firemap")
	t.Setenv("STATE_FILE", "/var/lib/firemap/state.json")
	t.Setenv("ROLLING_WINDOW", "48h")
	t.Setenv("SCAN_INTERVAL", "1m")
	t.Setenv("WATCH_ENABLED", "false")
	t.Setenv("WATCH_DEBOUNCE", "500ms")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_SINK_TOPIC", "detections")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_TIMEOUT", "10s")
	t.Setenv("MAPBOX_CACHE_SIZE", "500")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/ftp/sfide/ITA", cfg.SourceDir)
	assert.Equal(t, "/srv/www/firemap", cfg.OutputDir)
	assert.Equal(t, "/var/lib/firemap/state.json", cfg.StateFile)
	assert.Equal(t, 48*time.Hour, cfg.RollingWindow)
	assert.Equal(t, time.Minute, cfg.ScanInterval)
	assert.False(t, cfg.WatchEnabled)
	assert.Equal(t, 500*time.Millisecond, cfg.WatchDebounce)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "detections", cfg.KafkaSinkTopic)
	assert.True(t, cfg.KafkaEnabled)
	assert.True(t, cfg.MapboxEnabled)
	assert.Equal(t, testMapboxToken, cfg.MapboxToken)
	assert.Equal(t, 10*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 500, cfg.MapboxCacheSize)
}

func TestLoad_MissingSourceDir(t *testing.T) {
	t.Setenv("SOURCE_DIR", "")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SOURCE_DIR")
}

func TestLoad_InvalidRollingWindow(t *testing.T) {
	t.Setenv("SOURCE_DIR", "/data")
	t.Setenv("ROLLING_WINDOW", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ROLLING_WINDOW")
}

func TestLoad_NegativeRollingWindow(t *testing.T) {
	t.Setenv("SOURCE_DIR", "/data")
	t.Setenv("ROLLING_WINDOW", "-72h")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ROLLING_WINDOW")
}

func TestLoad_InvalidScanInterval(t *testing.T) {
	t.Setenv("SOURCE_DIR", "/data")
	t.Setenv("SCAN_INTERVAL", "0s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCAN_INTERVAL")
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SOURCE_DIR", "/data")
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidMapboxCacheSize(t *testing.T) {
	t.Setenv("SOURCE_DIR", "/data")
	t.Setenv("MAPBOX_CACHE_SIZE", "many")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAPBOX_CACHE_SIZE")
}

func TestLoad_NegativeMapboxCacheSize(t *testing.T) {
	t.Setenv("SOURCE_DIR", "/data")
	t.Setenv("MAPBOX_CACHE_SIZE", "-5")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAPBOX_CACHE_SIZE")
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	t.Setenv("SOURCE_DIR", "/data")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", " , ")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_MapboxEnabledWithoutToken(t *testing.T) {
	t.Setenv("SOURCE_DIR", "/data")
	t.Setenv("MAPBOX_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAPBOX_TOKEN")
}

func TestLoad_MapboxTokenImpliesEnabled(t *testing.T) {
	t.Setenv("SOURCE_DIR", "/data")
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.MapboxEnabled)
}

func TestLoad_MapboxExplicitlyDisabled(t *testing.T) {
	t.Setenv("SOURCE_DIR", "/data")
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.MapboxEnabled)
}

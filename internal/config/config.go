package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	SourceDir     string
	OutputDir     string
	StateFile     string
	RollingWindow time.Duration
	ScanInterval  time.Duration

	WatchEnabled  bool
	WatchDebounce time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Optional Kafka sink for newly aggregated detections.
	KafkaBrokers   []string
	KafkaSinkTopic string
	KafkaEnabled   bool

	// Optional Mapbox reverse geocoding.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	sourceDir := os.Getenv("SOURCE_DIR")
	if sourceDir == "" {
		return nil, errors.New("SOURCE_DIR is required")
	}

	outputDir := envOrDefault("OUTPUT_DIR", ".")
	stateFile := os.Getenv("STATE_FILE")
	if stateFile == "" {
		stateFile = filepath.Join(outputDir, "processor_state.json")
	}

	rollingWindow, err := positiveDuration("ROLLING_WINDOW", "72h")
	if err != nil {
		return nil, err
	}
	scanInterval, err := positiveDuration("SCAN_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}
	watchDebounce, err := positiveDuration("WATCH_DEBOUNCE", "2s")
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := positiveDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := positiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	mapboxCacheSize, err := parseMapboxCacheSize()
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		SourceDir:     sourceDir,
		OutputDir:     outputDir,
		StateFile:     stateFile,
		RollingWindow: rollingWindow,
		ScanInterval:  scanInterval,

		WatchEnabled:  envOrDefault("WATCH_ENABLED", "true") == "true",
		WatchDebounce: watchDebounce,

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers:   splitBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: envOrDefault("KAFKA_SINK_TOPIC", "fire-detections"),
		KafkaEnabled:   os.Getenv("KAFKA_ENABLED") == "true",

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: mapboxCacheSize,
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_SINK_TOPIC is empty")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

// envOrDefault returns the environment variable's value, or def when unset.
func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// positiveDuration parses an environment variable as a duration that must be
// greater than zero. Errors name the offending variable.
func positiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

// splitBrokers splits a comma-separated broker list, dropping empty entries.
func splitBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// parseMapboxCacheSize parses MAPBOX_CACHE_SIZE, which must be a positive
// integer when set.
func parseMapboxCacheSize() (int, error) {
	s := os.Getenv("MAPBOX_CACHE_SIZE")
	if s == "" {
		return 1000, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid MAPBOX_CACHE_SIZE")
	}
	return n, nil
}

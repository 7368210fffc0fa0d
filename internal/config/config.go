package config

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Local technology definition directories, one YAML file per technology.
	WindConfigDir  string
	SolarConfigDir string

	// Cutout fetch configuration file (YAML, top-level "cutouts" list).
	CutoutConfigFile string

	// Toolkit bridge subprocess used for catalog listing, cutout
	// preparation/inspection, and profile computation.
	BridgeCommand string
	BridgeTimeout time.Duration

	// Optional file-backed catalog cache. Empty path disables caching.
	CatalogCachePath string
	CatalogCacheTTL  time.Duration

	// Generation defaults.
	DefaultTurbine string
	DefaultPanel   string
	BasePath       string
	OutputDir      string

	// Optional event publishing (enabled when KAFKA_BROKERS is set).
	KafkaBrokers     []string
	KafkaEventsTopic string
	KafkaEnabled     bool
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is honored when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("INFO: could not load .env file: %v", err)
	}

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	bridgeTimeout, err := parseDuration("BRIDGE_TIMEOUT", "30m")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDuration("CATALOG_CACHE_TTL", "1h")
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8000"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		WindConfigDir:  envOrDefault("WIND_CONFIG_DIR", "config/wind"),
		SolarConfigDir: envOrDefault("SOLAR_CONFIG_DIR", "config/solar"),

		CutoutConfigFile: envOrDefault("CUTOUT_CONFIG_FILE", "config/cutouts.yaml"),

		BridgeCommand: envOrDefault("BRIDGE_COMMAND", "atlite-bridge"),
		BridgeTimeout: bridgeTimeout,

		CatalogCachePath: os.Getenv("CATALOG_CACHE_PATH"),
		CatalogCacheTTL:  cacheTTL,

		DefaultTurbine: envOrDefault("DEFAULT_TURBINE", "NREL_ReferenceTurbine_2020ATB_4MW"),
		DefaultPanel:   envOrDefault("DEFAULT_PANEL", "CSi"),
		BasePath:       envOrDefault("BASE_PATH", "data"),
		OutputDir:      envOrDefault("OUTPUT_DIR", "output"),

		KafkaBrokers:     brokers,
		KafkaEventsTopic: envOrDefault("KAFKA_EVENTS_TOPIC", "profile-events"),
		KafkaEnabled:     kafkaEnabled,
	}

	if cfg.BridgeCommand == "" {
		return nil, errors.New("BRIDGE_COMMAND must not be empty")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	raw := envOrDefault(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

func parseBrokers(raw string) []string {
	if raw == "" {
		return nil
	}
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

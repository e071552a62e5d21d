package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the RouteConsole engine.
type Config struct {
	Port      int
	Version   string
	Backend   BackendConfig
	Sync      SyncConfig
	Prefs     PrefsConfig
	Telemetry TelemetryConfig
}

type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

type SyncConfig struct {
	// PollInterval is the silent background refresh period.
	PollInterval time.Duration
	// ModelCacheTTL bounds how long a successful model probe stays fresh.
	ModelCacheTTL time.Duration
}

type PrefsConfig struct {
	// Path of the JSON preferences file (identity, panel flags).
	Path string
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:    envInt("ROUTECONSOLE_PORT", 8090),
		Version: envStr("ROUTECONSOLE_VERSION", "0.1.0"),
		Backend: BackendConfig{
			BaseURL: envStr("ROUTECONSOLE_BACKEND_URL", "http://localhost:8080/api/v1"),
			Timeout: envDur("ROUTECONSOLE_BACKEND_TIMEOUT", 30*time.Second),
		},
		Sync: SyncConfig{
			PollInterval:  envDur("ROUTECONSOLE_POLL_INTERVAL", 30*time.Second),
			ModelCacheTTL: envDur("ROUTECONSOLE_MODEL_CACHE_TTL", 5*time.Minute),
		},
		Prefs: PrefsConfig{
			Path: envStr("ROUTECONSOLE_PREFS_PATH", defaultPrefsPath()),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "routeconsole"),
		},
	}
}

func defaultPrefsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".routeconsole/prefs.json"
	}
	return home + "/.routeconsole/prefs.json"
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDur(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

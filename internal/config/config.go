// Package config loads mapflow's server configuration from environment
// variables, in the envStr/envInt/envBool style the rest of the control
// plane has always used — no configuration framework.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the mapflow control plane.
type Config struct {
	Port int

	DBPath       string
	UploadDir    string
	UploadMaxMB  int64
	WebDist      string
	CookieSecure bool
	CORSOrigins  []string

	SpatialExtensionPath string
	SpatialExtensionDir  string

	TestMode bool

	Telemetry TelemetryConfig
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// Load reads configuration from environment variables with sensible
// single-host defaults (spec §6.2).
func Load() *Config {
	return &Config{
		Port:         envInt("PORT", 8080),
		DBPath:       envStr("DB_PATH", "mapflow.duckdb"),
		UploadDir:    envStr("UPLOAD_DIR", "uploads"),
		UploadMaxMB:  envInt64("UPLOAD_MAX_SIZE_MB", 512),
		WebDist:      envStr("WEB_DIST", "web/dist"),
		CookieSecure: envBool("COOKIE_SECURE", false),
		CORSOrigins:  envList("CORS_ALLOWED_ORIGINS", nil),

		SpatialExtensionPath: envStr("SPATIAL_EXTENSION_PATH", ""),
		SpatialExtensionDir:  envStr("SPATIAL_EXTENSION_DIR", ""),

		TestMode: envBool("MAPFLOW_TEST_MODE", false),

		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "mapflow"),
		},
	}
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

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
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

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

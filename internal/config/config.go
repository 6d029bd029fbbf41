package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application settings
	AppEnv        string
	AppPort       int
	FrontendURL   string
	RunMigrations bool

	// Database settings
	DatabaseURL                string
	DatabaseMaxConnections     int
	DatabaseMaxIdleConnections int
	DatabaseConnectionLifetime time.Duration

	// CORS settings
	CORSAllowedOrigins string

	// Logging
	LogLevel  string
	LogFormat string

	// NATS settings
	NATSURL string

	// Admin auth
	AdminToken string

	// Overpass client settings
	OverpassURL       string
	DefaultRadiusM    float64
	OverpassThrottle  time.Duration

	// Refresh engine settings
	BatchCentersPerRun       int
	RefreshCenterRetryCount  int
	RefreshCenterRetryDelay  time.Duration
	StaleLinkDays            int
	RefreshHealthMaxAge      time.Duration

	// Wikidata enrichment settings
	WikidataAPIURL             string
	WikidataEnrichEnabled      bool
	WikidataEnrichMaxIDsPerRun int
	WikidataEnrichStaleDays    int
	WikidataEnrichThrottle     time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		AppPort:     getEnvAsInt("APP_PORT", 8080),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		DatabaseURL:                getEnv("DATABASE_URL", ""),
		DatabaseMaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 25),
		DatabaseMaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
		DatabaseConnectionLifetime: getEnvAsDuration("DATABASE_CONNECTION_LIFETIME", 5*time.Minute),

		CORSAllowedOrigins: getEnv("CORS_ORIGIN", "http://localhost:3000"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		NATSURL: getEnv("NATS_URL", "nats://localhost:4222"),

		AdminToken: getEnv("ADMIN_TOKEN", ""),

		OverpassURL:      getEnv("OVERPASS_URL", ""),
		DefaultRadiusM:   getEnvAsFloat("DEFAULT_RADIUS_M", 100000),
		OverpassThrottle: getEnvAsDuration("OVERPASS_THROTTLE_MS", 1200*time.Millisecond),

		BatchCentersPerRun:      getEnvAsInt("BATCH_CENTERS_PER_RUN", 10),
		RefreshCenterRetryCount: getEnvAsInt("REFRESH_CENTER_RETRY_COUNT", 3),
		RefreshCenterRetryDelay: getEnvAsDuration("REFRESH_CENTER_RETRY_DELAY_MS", 2000*time.Millisecond),
		StaleLinkDays:           getEnvAsInt("STALE_LINK_DAYS", 30),
		RefreshHealthMaxAge:     getEnvAsMinutes("REFRESH_HEALTH_MAX_AGE_MINUTES", 130*time.Minute),

		WikidataAPIURL:             getEnv("WIKIDATA_API_URL", ""),
		WikidataEnrichEnabled:      getEnvAsBool("WIKIDATA_ENRICH_ENABLED", true),
		WikidataEnrichMaxIDsPerRun: getEnvAsInt("WIKIDATA_ENRICH_MAX_IDS_PER_CENTER", 30),
		WikidataEnrichStaleDays:    getEnvAsInt("WIKIDATA_ENRICH_STALE_DAYS", 14),
		WikidataEnrichThrottle:     getEnvAsDuration("WIKIDATA_ENRICH_THROTTLE_MS", 250*time.Millisecond),

		RunMigrations: getEnvAsBool("RUN_MIGRATIONS", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.AdminToken == "" {
		return fmt.Errorf("ADMIN_TOKEN is required")
	}
	return nil
}

// Helper functions for reading environment variables.

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsMinutes reads a plain integer count of minutes, per the
// REFRESH_HEALTH_MAX_AGE_MINUTES naming (distinct from the *_MS settings
// read by getEnvAsDuration).
func getEnvAsMinutes(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		// Bare millisecond counts (e.g. "400") are accepted alongside Go
		// duration strings ("400ms"), matching how *_MS settings read in
		// the environment.
		if ms, err := strconv.Atoi(value); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

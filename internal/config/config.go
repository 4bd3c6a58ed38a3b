package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve on minimal images

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/city-sensor-pipeline/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Dataset source configuration.
	DataBaseURL    string
	FetchTimeout   time.Duration
	FetchCacheSize int
	FetchCacheTTL  time.Duration

	// City table and time handling.
	Cities      map[string]domain.City
	CitiesFile  string
	DefaultCity string
	Location    *time.Location
}

// Load reads configuration from environment variables (optionally .env),
// applying defaults where unset.
func Load() (*Config, error) {
	_ = godotenv.Load(".env") // ignore missing file

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parsePositiveDuration("FETCH_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	cacheTTL, err := parseDuration("FETCH_CACHE_TTL", "5m")
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseCacheSize()
	if err != nil {
		return nil, err
	}

	tz := sharedcfg.EnvOrDefault("TIMEZONE", "Europe/Istanbul")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}

	citiesFile := os.Getenv("CITIES_FILE")
	cities, err := LoadCities(citiesFile)
	if err != nil {
		return nil, fmt.Errorf("CITIES_FILE: %w", err)
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DataBaseURL:    sharedcfg.EnvOrDefault("DATA_BASE_URL", "./web"),
		FetchTimeout:   fetchTimeout,
		FetchCacheSize: cacheSize,
		FetchCacheTTL:  cacheTTL,

		Cities:      cities,
		CitiesFile:  citiesFile,
		DefaultCity: sharedcfg.EnvOrDefault("DEFAULT_CITY", "ankara"),
		Location:    loc,
	}

	if cfg.DataBaseURL == "" {
		return nil, errors.New("DATA_BASE_URL is required")
	}
	if _, ok := cfg.Cities[cfg.DefaultCity]; !ok {
		return nil, fmt.Errorf("DEFAULT_CITY %q is not a configured city", cfg.DefaultCity)
	}

	return cfg, nil
}

func parseDuration(name, def string) (time.Duration, error) {
	s := sharedcfg.EnvOrDefault(name, def)
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return d, nil
}

func parsePositiveDuration(name, def string) (time.Duration, error) {
	d, err := parseDuration(name, def)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", name)
	}
	return d, nil
}

func parseCacheSize() (int, error) {
	s := sharedcfg.EnvOrDefault("FETCH_CACHE_SIZE", "16")
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid FETCH_CACHE_SIZE %q", s)
	}
	return n, nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const izmirYAML = `
cities:
  - key: izmir
    name: İzmir
    center: [38.4237, 27.1428]
    bounds: [38.30, 26.90, 38.55, 27.30]
    dataset: /data/izmir.csv
  - key: ankara
    center: [39.9, 32.8]
    bounds: [39.8, 32.7, 40.0, 32.9]
    dataset: /data/ankara_v5.csv
`

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "./web", cfg.DataBaseURL)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 16, cfg.FetchCacheSize)
	assert.Equal(t, 5*time.Minute, cfg.FetchCacheTTL)
	assert.Equal(t, "ankara", cfg.DefaultCity)
	assert.Equal(t, "Europe/Istanbul", cfg.Location.String())
	assert.Len(t, cfg.Cities, 3)
	assert.Empty(t, cfg.CitiesFile)
}

func TestLoad_CustomEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cities.yaml")
	require.NoError(t, os.WriteFile(path, []byte(izmirYAML), 0o600))

	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("DATA_BASE_URL", "https://sensors.example.com")
	t.Setenv("FETCH_TIMEOUT", "3s")
	t.Setenv("FETCH_CACHE_SIZE", "0")
	t.Setenv("FETCH_CACHE_TTL", "0s")
	t.Setenv("DEFAULT_CITY", "izmir")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("CITIES_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "https://sensors.example.com", cfg.DataBaseURL)
	assert.Equal(t, 3*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 0, cfg.FetchCacheSize)
	assert.Equal(t, time.Duration(0), cfg.FetchCacheTTL)
	assert.Equal(t, "izmir", cfg.DefaultCity)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Len(t, cfg.Cities, 4)
	assert.Equal(t, "/data/ankara_v5.csv", cfg.Cities["ankara"].DatasetPath)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		env   string
		value string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration"},
		{"SHUTDOWN_TIMEOUT", "-1s"},
		{"FETCH_TIMEOUT", "bad"},
		{"FETCH_TIMEOUT", "0s"},
		{"FETCH_CACHE_TTL", "-5m"},
		{"FETCH_CACHE_SIZE", "many"},
		{"FETCH_CACHE_SIZE", "-1"},
		{"TIMEZONE", "Mars/Olympus_Mons"},
		{"DEFAULT_CITY", "atlantis"},
	}
	for _, tt := range tests {
		t.Run(tt.env+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.env, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.env)
		})
	}
}

func TestLoad_InvalidCitiesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cities.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cities: [{key: x, center: [1], bounds: [0, 0, 1, 1]}]"), 0o600))
	t.Setenv("CITIES_FILE", path)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CITIES_FILE")
}

func TestLoadCities_MissingFile(t *testing.T) {
	cities, err := LoadCities(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Len(t, cities, 3)
}

func TestParseCities(t *testing.T) {
	cities, err := ParseCities([]byte(izmirYAML))
	require.NoError(t, err)
	require.Len(t, cities, 2)

	izmir := cities["izmir"]
	assert.Equal(t, "İzmir", izmir.Name)
	assert.InDelta(t, 38.4237, izmir.CenterLat(), 1e-9)
	assert.InDelta(t, 27.1428, izmir.CenterLng(), 1e-9)
	assert.True(t, izmir.Contains(38.5, 27.0))
	assert.Equal(t, "ankara", cities["ankara"].Name, "name defaults to key")
}

func TestParseCities_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad yaml", "cities: [", "parsing cities file"},
		{"short bounds", "cities: [{key: a, center: [1, 1], bounds: [0, 0, 2]}]", "bounds"},
		{"center outside", "cities: [{key: a, center: [5, 5], bounds: [0, 0, 2, 2]}]", "center outside"},
		{"empty box", "cities: [{key: a, center: [1, 1], bounds: [2, 0, 0, 2]}]", "bounding box is empty"},
		{"missing key", "cities: [{center: [1, 1], bounds: [0, 0, 2, 2]}]", "key is required"},
		{"duplicate", "cities: [{key: a, center: [1, 1], bounds: [0, 0, 2, 2]}, {key: a, center: [1, 1], bounds: [0, 0, 2, 2]}]", "duplicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCities([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

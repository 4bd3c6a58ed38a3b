package config

import (
	"fmt"
	"maps"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/city-sensor-pipeline/internal/domain"
)

// cityFile is the YAML layout of a city table override.
type cityFile struct {
	Cities []cityEntry `yaml:"cities"`
}

type cityEntry struct {
	Key      string    `yaml:"key"`
	Name     string    `yaml:"name"`
	Center   []float64 `yaml:"center"` // [lat, lng]
	Bounds   []float64 `yaml:"bounds"` // [min_lat, min_lng, max_lat, max_lng]
	Dataset  string    `yaml:"dataset"`
	Fallback string    `yaml:"fallback"`
}

// LoadCities returns the built-in city table merged with the cities in path.
// Entries in the file replace built-in cities with the same key. An empty
// path or a missing file yields the built-in table.
func LoadCities(path string) (map[string]domain.City, error) {
	cities := domain.DefaultCities()
	if path == "" {
		return cities, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cities, nil
		}
		return nil, fmt.Errorf("reading cities file: %w", err)
	}

	parsed, err := ParseCities(data)
	if err != nil {
		return nil, err
	}
	maps.Copy(cities, parsed)
	return cities, nil
}

// ParseCities decodes and validates a YAML city table.
func ParseCities(data []byte) (map[string]domain.City, error) {
	var f cityFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing cities file: %w", err)
	}

	out := make(map[string]domain.City, len(f.Cities))
	for i, e := range f.Cities {
		if len(e.Center) != 2 {
			return nil, fmt.Errorf("city %d (%s): center needs [lat, lng]", i, e.Key)
		}
		if len(e.Bounds) != 4 {
			return nil, fmt.Errorf("city %d (%s): bounds needs [min_lat, min_lng, max_lat, max_lng]", i, e.Key)
		}
		name := e.Name
		if name == "" {
			name = e.Key
		}
		c := domain.NewCity(e.Key, name, e.Center[0], e.Center[1],
			e.Bounds[0], e.Bounds[1], e.Bounds[2], e.Bounds[3], e.Dataset, e.Fallback)
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if _, dup := out[c.Key]; dup {
			return nil, fmt.Errorf("city %s: duplicate key", c.Key)
		}
		out[c.Key] = c
	}
	return out, nil
}

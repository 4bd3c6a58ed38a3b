package domain

import (
	"fmt"

	"github.com/paulmach/orb"
)

// World bounds for WGS-84 coordinates.
const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0
)

// City is the static configuration of one operational area. Points follow
// orb's [lng, lat] order.
type City struct {
	Key                 string
	Name                string
	Center              orb.Point
	Bounds              orb.Bound
	DatasetPath         string
	FallbackDatasetPath string
}

// NewCity builds a City from lat/lng pairs, which is how city tables are
// usually written down.
func NewCity(key, name string, centerLat, centerLng, minLat, minLng, maxLat, maxLng float64, dataset, fallback string) City {
	return City{
		Key:    key,
		Name:   name,
		Center: orb.Point{centerLng, centerLat},
		Bounds: orb.Bound{
			Min: orb.Point{minLng, minLat},
			Max: orb.Point{maxLng, maxLat},
		},
		DatasetPath:         dataset,
		FallbackDatasetPath: fallback,
	}
}

// CenterLat returns the latitude of the city center.
func (c City) CenterLat() float64 { return c.Center.Lat() }

// CenterLng returns the longitude of the city center.
func (c City) CenterLng() float64 { return c.Center.Lon() }

// Contains reports whether the coordinate lies inside the bounding box
// (edges included).
func (c City) Contains(lat, lng float64) bool {
	return c.Bounds.Contains(orb.Point{lng, lat})
}

// Validate checks that the box is well formed, inside world bounds, and
// contains the center. Coordinate repair relies on all three.
func (c City) Validate() error {
	if c.Key == "" {
		return fmt.Errorf("city key is required")
	}
	lo, hi := c.Bounds.Min, c.Bounds.Max
	if lo.Lat() >= hi.Lat() || lo.Lon() >= hi.Lon() {
		return fmt.Errorf("city %s: bounding box is empty", c.Key)
	}
	if !inWorld(lo.Lat(), lo.Lon()) || !inWorld(hi.Lat(), hi.Lon()) {
		return fmt.Errorf("city %s: bounding box outside world bounds", c.Key)
	}
	if !c.Contains(c.CenterLat(), c.CenterLng()) {
		return fmt.Errorf("city %s: center outside bounding box", c.Key)
	}
	return nil
}

// DefaultCities returns the built-in city table keyed by city key.
func DefaultCities() map[string]City {
	const fallback = "/data/istanbul_guzergahli_yasam_kalitesi_veriseti.csv"
	cities := []City{
		NewCity("ankara", "Ankara", 39.9208, 32.8541, 39.70, 32.50, 40.10, 33.15,
			"/data/ankara_sensor_data_circular_v4_radius_0_05.csv", fallback),
		NewCity("aydin", "Aydın", 37.8560, 27.8416, 37.70, 27.70, 38.00, 28.00,
			"/data/aydin_sensor_data_circular.csv", fallback),
		NewCity("istanbul", "İstanbul", 41.0082, 28.9784, 40.80, 28.20, 41.30, 29.65,
			"/data/istanbul_guzergahli_yasam_kalitesi_veriseti.csv", fallback),
	}
	out := make(map[string]City, len(cities))
	for _, c := range cities {
		out[c.Key] = c
	}
	return out
}

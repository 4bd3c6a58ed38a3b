package domain

import (
	"encoding/json"
	"math"
)

const (
	anomalyBoost     = 1.8
	heatmapVariation = 0.05
)

// HeatmapPoint is one weighted point. It encodes as [lat, lng, intensity],
// the shape heatmap renderers consume.
type HeatmapPoint struct {
	Lat       float64
	Lng       float64
	Intensity float64
}

// MarshalJSON implements json.Marshaler.
func (p HeatmapPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float64{p.Lat, p.Lng, p.Intensity})
}

// HeatmapTuning shapes how a value maps to intensity. Optimal sensors are
// scored by distance from Optimal over Range; the rest are min-max scaled,
// optionally inverted, then raised to Power.
type HeatmapTuning struct {
	Invert       bool
	Power        float64
	MinIntensity float64
	Optimal      float64
	Range        float64
	UseOptimal   bool
}

var defaultTuning = HeatmapTuning{Power: 0.7, MinIntensity: 0.3}

// TuningFor returns the intensity tuning for a canonical key.
func TuningFor(key string) HeatmapTuning {
	switch key {
	case SensorPM25, SensorPM10, SensorCO, SensorNO2, SensorSO2, SensorO3, SensorVOC:
		return HeatmapTuning{Invert: true, Power: 0.8, MinIntensity: 0.3}
	case SensorTemperature:
		return HeatmapTuning{UseOptimal: true, Optimal: 22.5, Range: 15, MinIntensity: 0.4}
	case SensorHumidity:
		return HeatmapTuning{UseOptimal: true, Optimal: 50, Range: 30, MinIntensity: 0.4}
	case SensorSound:
		return HeatmapTuning{Invert: true, Power: 0.65, MinIntensity: 0.35}
	case SensorLight:
		return HeatmapTuning{Power: 0.6, MinIntensity: 0.35}
	case SensorVibration:
		return HeatmapTuning{Invert: true, Power: 0.7, MinIntensity: 0.4}
	case SensorRadiation:
		return HeatmapTuning{Invert: true, Power: 0.7, MinIntensity: 0.45}
	}
	return defaultTuning
}

// HeatmapPoints converts the records carrying key into weighted points.
// Anomalies at hour are boosted. When variation is non-nil each intensity is
// nudged by up to ±5% so overlapping points stay distinguishable; pass nil
// for deterministic output. Intensities stay within [MinIntensity, 1].
func HeatmapPoints(records []SensorRecord, key string, c *Classifier, hour int, variation Jitter) []HeatmapPoint {
	reg := DefaultRegistry()
	if c != nil {
		reg = c.registry
	}
	canonical := reg.Resolve(key)
	names := reg.Names(canonical)
	tuning := TuningFor(canonical)

	type sample struct {
		rec SensorRecord
		v   float64
	}
	samples := make([]sample, 0, len(records))
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, r := range records {
		v, ok := firstValue(r, names)
		if !ok {
			continue
		}
		samples = append(samples, sample{rec: r, v: v})
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if len(samples) == 0 {
		return []HeatmapPoint{}
	}

	span := hi - lo
	if span == 0 {
		span = hi * 0.1
		if span == 0 {
			span = 1
		}
	}

	points := make([]HeatmapPoint, 0, len(samples))
	for _, s := range samples {
		var intensity float64
		if tuning.UseOptimal {
			intensity = math.Min(1, math.Abs(s.v-tuning.Optimal)/tuning.Range)
		} else {
			norm := (s.v - lo) / span
			if tuning.Invert {
				norm = 1 - norm
			}
			intensity = math.Pow(math.Max(0, norm), tuning.Power)
		}
		intensity = math.Max(tuning.MinIntensity, intensity)

		if c != nil && c.IsAnomaly(canonical, s.v, hour) {
			intensity = math.Min(1, intensity*anomalyBoost)
		}
		if variation != nil {
			intensity += variation.Float64()*2*heatmapVariation - heatmapVariation
		}
		intensity = math.Max(tuning.MinIntensity, math.Min(1, intensity))

		points = append(points, HeatmapPoint{Lat: s.rec.Latitude, Lng: s.rec.Longitude, Intensity: intensity})
	}
	return points
}

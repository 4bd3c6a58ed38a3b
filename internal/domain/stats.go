package domain

import "math"

// HoursPerDay bounds the hourly buckets.
const HoursPerDay = 24

// Stat is a descriptive summary of one sensor's values.
type Stat struct {
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// SensorStatEntry holds overall and per-hour statistics for one sensor.
// Hours without values are absent from ByHour.
type SensorStatEntry struct {
	Key     string       `json:"key"`
	Overall Stat         `json:"overall"`
	ByHour  map[int]Stat `json:"by_hour"`
}

// At returns the statistics for hour, falling back to the overall figures
// when that hour had no values.
func (e *SensorStatEntry) At(hour int) Stat {
	if s, ok := e.ByHour[hour]; ok {
		return s
	}
	return e.Overall
}

// Statistics maps a canonical key and every one of its aliases to the same
// entry. A missing key means no data.
type Statistics map[string]*SensorStatEntry

// Get looks an entry up by any name.
func (s Statistics) Get(key string) (*SensorStatEntry, bool) {
	e, ok := s[key]
	return e, ok
}

// Canonical returns the distinct entries keyed by canonical key.
func (s Statistics) Canonical() map[string]*SensorStatEntry {
	out := make(map[string]*SensorStatEntry)
	for _, e := range s {
		out[e.Key] = e
	}
	return out
}

// ComputeStatistics aggregates every sensor found in records. Each record
// contributes at most one value per sensor: the first of the sensor's names
// (canonical key first, then aliases) present in its Values. A batch that
// mixes alias names therefore yields the same figures as one that uses only
// canonical keys.
func ComputeStatistics(records []SensorRecord, reg *Registry) Statistics {
	if reg == nil {
		reg = DefaultRegistry()
	}

	canonical := make(map[string]struct{})
	for _, rec := range records {
		for k := range rec.Values {
			canonical[reg.Resolve(k)] = struct{}{}
		}
	}

	out := make(Statistics)
	for _, key := range SortedKeys(canonical) {
		names := reg.Names(key)
		var all []float64
		var hourly [HoursPerDay][]float64

		for _, rec := range records {
			v, ok := firstValue(rec, names)
			if !ok {
				continue
			}
			all = append(all, v)
			if rec.Hour >= 0 && rec.Hour < HoursPerDay {
				hourly[rec.Hour] = append(hourly[rec.Hour], v)
			}
		}

		if len(all) == 0 {
			continue
		}

		entry := &SensorStatEntry{
			Key:     key,
			Overall: Describe(all),
			ByHour:  make(map[int]Stat),
		}
		for h, vals := range hourly {
			if len(vals) > 0 {
				entry.ByHour[h] = Describe(vals)
			}
		}

		for _, name := range names {
			out[name] = entry
		}
	}
	return out
}

// Describe summarizes the finite values in vals. Std is the population
// standard deviation and is 1 when fewer than two values are present or the
// values do not vary, so z-scores never divide by zero.
func Describe(vals []float64) Stat {
	var st Stat
	var sum float64
	for _, v := range vals {
		if !isFinite(v) {
			continue
		}
		if st.Count == 0 || v < st.Min {
			st.Min = v
		}
		if st.Count == 0 || v > st.Max {
			st.Max = v
		}
		sum += v
		st.Count++
	}
	if st.Count == 0 {
		st.Std = 1
		return st
	}
	st.Mean = sum / float64(st.Count)

	if st.Count < 2 {
		st.Std = 1
		return st
	}
	var sq float64
	for _, v := range vals {
		if isFinite(v) {
			d := v - st.Mean
			sq += d * d
		}
	}
	st.Std = math.Sqrt(sq / float64(st.Count))
	if st.Std == 0 || math.IsNaN(st.Std) {
		st.Std = 1
	}
	return st
}

func firstValue(rec SensorRecord, names []string) (float64, bool) {
	for _, n := range names {
		if v, ok := rec.Values[n]; ok && isFinite(v) {
			return v, true
		}
	}
	return 0, false
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

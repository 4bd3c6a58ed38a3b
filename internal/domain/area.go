package domain

import "github.com/paulmach/orb"

// AreaStat is a running min/max/average over one slice of an area.
type AreaStat struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Count int     `json:"count"`
	sum   float64
}

func (a *AreaStat) add(v float64) {
	if a.Count == 0 || v < a.Min {
		a.Min = v
	}
	if a.Count == 0 || v > a.Max {
		a.Max = v
	}
	a.sum += v
	a.Count++
	a.Avg = a.sum / float64(a.Count)
}

// AreaSensorSummary is the drill-down for one sensor inside a selection.
type AreaSensorSummary struct {
	Key         string                `json:"key"`
	Name        string                `json:"name"`
	Unit        string                `json:"unit"`
	Overall     AreaStat              `json:"overall"`
	CurrentHour AreaStat              `json:"current_hour"`
	Hourly      [HoursPerDay]AreaStat `json:"hourly"`
	Devices     map[string]AreaStat   `json:"devices"`
}

// AreaSummary describes every record inside a selected rectangle.
type AreaSummary struct {
	Bounds  orb.Bound                    `json:"bounds"`
	Hour    int                          `json:"hour"`
	Records int                          `json:"records"`
	Devices []string                     `json:"devices"`
	Sensors map[string]AreaSensorSummary `json:"sensors"`
}

// SummarizeArea aggregates the records inside bound for the given sensors,
// or for every sensor present when sensors is empty. Each record contributes
// one value per sensor, looked up through the registry.
func SummarizeArea(records []SensorRecord, bound orb.Bound, sensors []string, hour int, reg *Registry) AreaSummary {
	if reg == nil {
		reg = DefaultRegistry()
	}
	inside := FilterByArea(records, bound)

	summary := AreaSummary{
		Bounds:  bound,
		Hour:    hour,
		Records: len(inside),
		Sensors: make(map[string]AreaSensorSummary),
	}

	devices := make(map[string]struct{})
	for _, r := range inside {
		devices[deviceOrUnknown(r.DeviceID)] = struct{}{}
	}
	summary.Devices = SortedKeys(devices)

	keys := canonicalKeys(sensors, inside, reg)
	for _, key := range keys {
		info := reg.DisplayInfo(key)
		s := AreaSensorSummary{
			Key:     key,
			Name:    info.Name,
			Unit:    info.Unit,
			Devices: make(map[string]AreaStat),
		}
		names := reg.Names(key)

		for _, r := range inside {
			v, ok := firstValue(r, names)
			if !ok {
				continue
			}
			s.Overall.add(v)
			if r.Hour == hour {
				s.CurrentHour.add(v)
			}
			if r.Hour >= 0 && r.Hour < HoursPerDay {
				s.Hourly[r.Hour].add(v)
			}
			dev := deviceOrUnknown(r.DeviceID)
			ds := s.Devices[dev]
			ds.add(v)
			s.Devices[dev] = ds
		}
		if s.Overall.Count > 0 {
			summary.Sensors[key] = s
		}
	}
	return summary
}

func canonicalKeys(requested []string, records []SensorRecord, reg *Registry) []string {
	set := make(map[string]struct{})
	if len(requested) > 0 {
		for _, k := range requested {
			set[reg.Resolve(k)] = struct{}{}
		}
	} else {
		for _, r := range records {
			for k := range r.Values {
				set[reg.Resolve(k)] = struct{}{}
			}
		}
	}
	return SortedKeys(set)
}

func deviceOrUnknown(id string) string {
	if id == "" {
		return UnknownDevice
	}
	return id
}

package domain

import "github.com/paulmach/orb"

// AnyMinute selects a whole hour in FilterByTime.
const AnyMinute = -1

// FilterByTime returns the records observed at hour:minute. When no record
// matches the minute, every record of that hour is returned instead of an
// empty view. Pass AnyMinute to select the hour only. The input slice is
// not modified.
func FilterByTime(records []SensorRecord, hour, minute int) []SensorRecord {
	byHour := make([]SensorRecord, 0)
	for _, r := range records {
		if r.Hour == hour {
			byHour = append(byHour, r)
		}
	}
	if minute == AnyMinute {
		return byHour
	}

	byMinute := make([]SensorRecord, 0, len(byHour))
	for _, r := range byHour {
		if r.Minute == minute {
			byMinute = append(byMinute, r)
		}
	}
	if len(byMinute) == 0 {
		return byHour
	}
	return byMinute
}

// FilterByArea returns the records inside bound, edges included.
func FilterByArea(records []SensorRecord, bound orb.Bound) []SensorRecord {
	out := make([]SensorRecord, 0)
	for _, r := range records {
		if bound.Contains(orb.Point{r.Longitude, r.Latitude}) {
			out = append(out, r)
		}
	}
	return out
}

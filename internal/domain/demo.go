package domain

import "fmt"

// DemoRecordCount is the size of every synthetic dataset.
const DemoRecordCount = 200

// demoSensors lists the sensors a demo record carries.
var demoSensors = []string{
	SensorPM25, SensorPM10, SensorCO, SensorNO2, SensorSO2, SensorO3, SensorVOC,
	SensorTemperature, SensorHumidity, SensorSound, SensorLight,
	SensorVibration, SensorRadiation,
}

// DemoSensors returns the canonical keys every demo record carries.
func DemoSensors() []string {
	return append([]string(nil), demoSensors...)
}

// DemoRange returns the plausible value range used for a sensor.
func DemoRange(key string) (lo, hi float64) {
	switch {
	case key == SensorTemperature:
		return 5, 35
	case key == SensorHumidity:
		return 30, 90
	case IsGas(key):
		return 0, 50
	}
	return 0, 100
}

// GenerateDemo builds the fallback dataset for city: points uniform inside
// the city box, a random hour, and one value per demo sensor. Records have
// the same shape as normalized ones. A nil rng uses the process-wide source.
func GenerateDemo(city City, rng Jitter) []SensorRecord {
	if rng == nil {
		rng = globalJitter{}
	}
	lo, hi := city.Bounds.Min, city.Bounds.Max
	now := Now()

	records := make([]SensorRecord, 0, DemoRecordCount)
	for i := range DemoRecordCount {
		rec := SensorRecord{
			DeviceID:  fmt.Sprintf("DEMO_%d", i),
			Latitude:  lo.Lat() + rng.Float64()*(hi.Lat()-lo.Lat()),
			Longitude: lo.Lon() + rng.Float64()*(hi.Lon()-lo.Lon()),
			Timestamp: now,
			Hour:      min(int(rng.Float64()*HoursPerDay), HoursPerDay-1),
			Values:    make(map[string]float64, len(demoSensors)),
		}
		for _, key := range demoSensors {
			vlo, vhi := DemoRange(key)
			rec.Values[key] = vlo + rng.Float64()*(vhi-vlo)
		}
		records = append(records, rec)
	}
	return records
}

package domain

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeArea(t *testing.T) {
	records := []SensorRecord{
		{DeviceID: "A", Latitude: 39.9, Longitude: 32.8, Hour: 8, Values: map[string]float64{SensorPM25: 10, "PM25": 10}},
		{DeviceID: "A", Latitude: 39.9, Longitude: 32.8, Hour: 9, Values: map[string]float64{SensorPM25: 20}},
		{DeviceID: "B", Latitude: 39.95, Longitude: 32.85, Hour: 9, Values: map[string]float64{"PM2.5": 30, SensorCO: 4}},
		{DeviceID: "", Latitude: 39.95, Longitude: 32.85, Hour: 9, Values: map[string]float64{SensorCO: 6}},
		{DeviceID: "far", Latitude: 41, Longitude: 29, Hour: 9, Values: map[string]float64{SensorPM25: 999}},
	}
	bound := orb.Bound{Min: orb.Point{32.7, 39.8}, Max: orb.Point{33.0, 40.0}}

	got := SummarizeArea(records, bound, nil, 9, DefaultRegistry())

	assert.Equal(t, 4, got.Records)
	assert.Equal(t, []string{"A", "B", UnknownDevice}, got.Devices)
	require.Len(t, got.Sensors, 2)

	pm := got.Sensors[SensorPM25]
	assert.Equal(t, "PM2.5", pm.Name)
	assert.Equal(t, 3, pm.Overall.Count)
	assert.Equal(t, 10.0, pm.Overall.Min)
	assert.Equal(t, 30.0, pm.Overall.Max)
	assert.Equal(t, 20.0, pm.Overall.Avg)
	assert.Equal(t, 2, pm.CurrentHour.Count)
	assert.Equal(t, 25.0, pm.CurrentHour.Avg)
	assert.Equal(t, 1, pm.Hourly[8].Count)
	assert.Equal(t, 0, pm.Hourly[3].Count)
	assert.Equal(t, 15.0, pm.Devices["A"].Avg)

	co := got.Sensors[SensorCO]
	assert.Equal(t, 5.0, co.Overall.Avg)
	assert.Equal(t, 6.0, co.Devices[UnknownDevice].Max)
}

func TestSummarizeArea_RequestedSensors(t *testing.T) {
	records := []SensorRecord{
		{DeviceID: "A", Latitude: 39.9, Longitude: 32.8, Values: map[string]float64{SensorPM25: 10, SensorCO: 1}},
	}
	bound := orb.Bound{Min: orb.Point{32.7, 39.8}, Max: orb.Point{33.0, 40.0}}

	got := SummarizeArea(records, bound, []string{"CO", SensorNO2}, 0, DefaultRegistry())

	require.Len(t, got.Sensors, 1, "sensors without values are omitted")
	_, ok := got.Sensors[SensorCO]
	assert.True(t, ok)
}

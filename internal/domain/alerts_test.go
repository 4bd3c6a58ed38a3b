package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckAlertLevel_NightOverride(t *testing.T) {
	c := NewClassifier(DefaultRegistry(), nil)

	assert.Equal(t, AlertDanger, c.CheckAlertLevelAt(SensorSound, 55, 23))
	assert.Equal(t, AlertNone, c.CheckAlertLevelAt(SensorSound, 55, 12))
	assert.Equal(t, AlertNone, c.CheckAlertLevel(SensorSound, 55), "no hour means generic thresholds")
}

func TestCheckAlertLevel_NightWindows(t *testing.T) {
	c := NewClassifier(DefaultRegistry(), nil)

	tests := []struct {
		name  string
		key   string
		value float64
		hour  int
		want  AlertLevel
	}{
		{"sound window start", SensorSound, 45, 22, AlertWarning},
		{"sound before midnight", SensorSound, 50, 23, AlertWarning},
		{"sound early morning", SensorSound, 51, 5, AlertDanger},
		{"sound window end", SensorSound, 51, 6, AlertNone},
		{"sound quiet night", SensorSound, 40, 1, AlertNone},
		{"sound daytime generic", SensorSound, 70, 14, AlertWarning},
		{"light window start", SensorLight, 600, 21, AlertWarning},
		{"light night danger", SensorLight, 1001, 2, AlertDanger},
		{"light window end", SensorLight, 1001, 5, AlertNone},
		{"light daytime generic", SensorLight, 25000, 12, AlertWarning},
		{"alias uses night rule", "Ses_Seviyesi_dB", 55, 23, AlertDanger},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.CheckAlertLevelAt(tt.key, tt.value, tt.hour))
		})
	}
}

func TestCheckAlertLevel_Band(t *testing.T) {
	c := NewClassifier(DefaultRegistry(), nil)

	tests := []struct {
		name  string
		key   string
		value float64
		want  AlertLevel
	}{
		{"comfortable", SensorTemperature, 20, AlertNone},
		{"warning high", SensorTemperature, 30, AlertWarning},
		{"warning low", SensorTemperature, 5, AlertWarning},
		{"danger high edge", SensorTemperature, 35, AlertDanger},
		{"danger low edge", SensorTemperature, 0, AlertDanger},
		{"danger beats warning", SensorTemperature, -10, AlertDanger},
		{"dry", SensorHumidity, 18, AlertWarning},
		{"very humid", SensorHumidity, 90, AlertDanger},
		{"turkish alias", "Sicaklik_C", 36, AlertDanger},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.CheckAlertLevel(tt.key, tt.value))
		})
	}
}

func TestCheckAlertLevel_OneSided(t *testing.T) {
	c := NewClassifier(DefaultRegistry(), nil)

	assert.Equal(t, AlertNone, c.CheckAlertLevel(SensorPM25, 19.9))
	assert.Equal(t, AlertWarning, c.CheckAlertLevel(SensorPM25, 20))
	assert.Equal(t, AlertDanger, c.CheckAlertLevel(SensorPM25, 35))
	assert.Equal(t, AlertDanger, c.CheckAlertLevel("PM25", 80))
	assert.Equal(t, AlertWarning, c.CheckAlertLevel(SensorRadiation, 0.25))
}

func TestCheckAlertLevel_NoRule(t *testing.T) {
	c := NewClassifier(DefaultRegistry(), nil)

	assert.Equal(t, AlertNone, c.CheckAlertLevel(SensorPM25, math.NaN()))
	assert.Equal(t, AlertNone, c.CheckAlertLevel(SensorPM25, math.Inf(1)))
	assert.Equal(t, AlertNone, c.CheckAlertLevel("Wind_Speed", 1000))
	assert.Equal(t, AlertNone, c.CheckAlertLevel(SensorMagneticX, 1000))
}

func TestIsAnomaly(t *testing.T) {
	reg := DefaultRegistry()
	records := []SensorRecord{
		rec(8, map[string]float64{SensorCO: 1}),
		rec(8, map[string]float64{SensorCO: 3}),
		rec(9, map[string]float64{SensorCO: 10}),
		rec(9, map[string]float64{SensorCO: 12}),
	}
	c := NewClassifier(reg, ComputeStatistics(records, reg))

	// Hour 8: mean 2, std 1.
	assert.False(t, c.IsAnomaly(SensorCO, 4, 8))
	assert.True(t, c.IsAnomaly(SensorCO, 4.1, 8))
	assert.True(t, c.IsAnomaly("CO", -0.5, 8))

	// Hour 3 has no data: overall mean 6.5, std ~4.61.
	assert.False(t, c.IsAnomaly(SensorCO, 12, 3))
	assert.True(t, c.IsAnomaly(SensorCO, 20, 3))

	assert.False(t, c.IsAnomaly(SensorNO2, 1000, 8), "no statistics means no anomaly")
	assert.False(t, c.IsAnomaly(SensorCO, math.NaN(), 8))
}

func TestNightRuleActive(t *testing.T) {
	wrap := NightRule{StartHour: 22, EndHour: 6}
	assert.True(t, wrap.Active(22))
	assert.True(t, wrap.Active(0))
	assert.False(t, wrap.Active(6))
	assert.False(t, wrap.Active(21))

	day := NightRule{StartHour: 9, EndHour: 17}
	assert.True(t, day.Active(9))
	assert.False(t, day.Active(17))
}

package domain

import "math"

// anomalyZScore is the |z| above which a reading is anomalous.
const anomalyZScore = 2.0

// AlertLevel classifies a reading against health thresholds.
type AlertLevel string

const (
	AlertNone    AlertLevel = ""
	AlertWarning AlertLevel = "warning"
	AlertDanger  AlertLevel = "danger"
)

// Threshold is either one-sided (higher is worse) or a band with low and
// high bounds for each level.
type Threshold struct {
	Band        bool    `json:"band"`
	Warning     float64 `json:"warning,omitempty"`
	Danger      float64 `json:"danger,omitempty"`
	WarningLow  float64 `json:"warning_low,omitempty"`
	WarningHigh float64 `json:"warning_high,omitempty"`
	DangerLow   float64 `json:"danger_low,omitempty"`
	DangerHigh  float64 `json:"danger_high,omitempty"`
}

// Level classifies v. Bounds are inclusive and danger is checked first.
func (t Threshold) Level(v float64) AlertLevel {
	if t.Band {
		switch {
		case v <= t.DangerLow || v >= t.DangerHigh:
			return AlertDanger
		case v <= t.WarningLow || v >= t.WarningHigh:
			return AlertWarning
		}
		return AlertNone
	}
	switch {
	case v >= t.Danger:
		return AlertDanger
	case v >= t.Warning:
		return AlertWarning
	}
	return AlertNone
}

// NightRule replaces a sensor's threshold during a window that wraps
// midnight: StartHour inclusive to EndHour exclusive. Bounds are strict.
type NightRule struct {
	StartHour int     `json:"start_hour"`
	EndHour   int     `json:"end_hour"`
	Warning   float64 `json:"warning"`
	Danger    float64 `json:"danger"`
}

// Active reports whether hour falls inside the window.
func (n NightRule) Active(hour int) bool {
	if n.StartHour > n.EndHour {
		return hour >= n.StartHour || hour < n.EndHour
	}
	return hour >= n.StartHour && hour < n.EndHour
}

// Level classifies v under the night limits.
func (n NightRule) Level(v float64) AlertLevel {
	switch {
	case v > n.Danger:
		return AlertDanger
	case v > n.Warning:
		return AlertWarning
	}
	return AlertNone
}

// DefaultThresholds returns the static health limits keyed by canonical key.
// Air quality follows WHO/EPA guidance, tightened.
func DefaultThresholds() map[string]Threshold {
	return map[string]Threshold{
		SensorPM25:        {Warning: 20, Danger: 35},
		SensorPM10:        {Warning: 40, Danger: 70},
		SensorCO:          {Warning: 5, Danger: 10},
		SensorNO2:         {Warning: 70, Danger: 150},
		SensorSO2:         {Warning: 50, Danger: 125},
		SensorO3:          {Warning: 60, Danger: 100},
		SensorVOC:         {Warning: 300, Danger: 600},
		SensorTemperature: {Band: true, WarningLow: 5, WarningHigh: 30, DangerLow: 0, DangerHigh: 35},
		SensorHumidity:    {Band: true, WarningLow: 20, WarningHigh: 75, DangerLow: 15, DangerHigh: 85},
		SensorSound:       {Warning: 65, Danger: 80},
		SensorLight:       {Warning: 20000, Danger: 50000},
		SensorVibration:   {Warning: 0.4, Danger: 0.8},
		SensorRadiation:   {Warning: 0.2, Danger: 0.4},
	}
}

// DefaultNightRules returns the stricter night limits for sound and light.
func DefaultNightRules() map[string]NightRule {
	return map[string]NightRule{
		SensorSound: {StartHour: 22, EndHour: 6, Warning: 40, Danger: 50},
		SensorLight: {StartHour: 21, EndHour: 5, Warning: 500, Danger: 1000},
	}
}

// Classifier answers anomaly and alert questions against one batch's
// statistics. It is safe for concurrent use because nothing in it changes
// after construction.
type Classifier struct {
	registry   *Registry
	stats      Statistics
	thresholds map[string]Threshold
	night      map[string]NightRule
}

// NewClassifier binds the default threshold tables to stats.
func NewClassifier(reg *Registry, stats Statistics) *Classifier {
	if reg == nil {
		reg = DefaultRegistry()
	}
	return &Classifier{
		registry:   reg,
		stats:      stats,
		thresholds: DefaultThresholds(),
		night:      DefaultNightRules(),
	}
}

// Statistics returns the table the classifier was built with.
func (c *Classifier) Statistics() Statistics { return c.stats }

// IsAnomaly reports whether value is more than two standard deviations from
// the sensor's mean for hour, or its overall mean when that hour has no data.
// Sensors without statistics are never anomalous.
func (c *Classifier) IsAnomaly(key string, value float64, hour int) bool {
	if !isFinite(value) {
		return false
	}
	entry, ok := c.stats.Get(key)
	if !ok {
		entry, ok = c.stats.Get(c.registry.Resolve(key))
	}
	if !ok {
		return false
	}
	st := entry.At(hour)
	std := st.Std
	if std == 0 || math.IsNaN(std) {
		std = 1
	}
	z := (value - st.Mean) / std
	return math.Abs(z) > anomalyZScore
}

// CheckAlertLevel classifies value with the generic thresholds.
func (c *Classifier) CheckAlertLevel(key string, value float64) AlertLevel {
	return c.level(key, value, -1)
}

// CheckAlertLevelAt classifies value as observed at hour. Night rules apply
// only here.
func (c *Classifier) CheckAlertLevelAt(key string, value float64, hour int) AlertLevel {
	return c.level(key, value, hour)
}

// Threshold returns the generic threshold for a key or alias.
func (c *Classifier) Threshold(key string) (Threshold, bool) {
	t, ok := c.thresholds[c.registry.Resolve(key)]
	return t, ok
}

func (c *Classifier) level(key string, value float64, hour int) AlertLevel {
	if !isFinite(value) {
		return AlertNone
	}
	canonical := c.registry.Resolve(key)
	t, ok := c.thresholds[canonical]
	if !ok {
		return AlertNone
	}
	if hour >= 0 && hour < HoursPerDay {
		if rule, ok := c.night[canonical]; ok && rule.Active(hour) {
			return rule.Level(value)
		}
	}
	return t.Level(value)
}

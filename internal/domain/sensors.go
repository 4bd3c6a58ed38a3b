package domain

import (
	"slices"
	"sort"
	"strings"
)

// Canonical sensor keys.
const (
	SensorPM25        = "PM2.5_ug_m3"
	SensorPM10        = "PM10_ug_m3"
	SensorCO          = "CO_ppm"
	SensorNO2         = "NO2_ppb"
	SensorSO2         = "SO2_ppb"
	SensorO3          = "O3_ppb"
	SensorVOC         = "VOC_ppb"
	SensorTemperature = "Temperature_C"
	SensorHumidity    = "Relative_Humidity_Percent"
	SensorSound       = "Sound_Level_dB"
	SensorLight       = "Light_Level_lux"
	SensorVibration   = "Vibration_g"
	SensorRadiation   = "Radiation_uSv_h"
	SensorMagneticX   = "Magnetic_Field_X_uT"
	SensorMagneticY   = "Magnetic_Field_Y_uT"
	SensorMagneticZ   = "Magnetic_Field_Z_uT"
)

// SensorCategory groups sensors for display.
type SensorCategory string

const (
	CategoryAirQuality  SensorCategory = "air_quality"
	CategoryEnvironment SensorCategory = "environment"
	CategoryOther       SensorCategory = "other"
)

// SensorInfo describes one sensor: its canonical key, the header aliases it
// may appear under, and how to display it.
type SensorInfo struct {
	Key         string         `json:"key"`
	Aliases     []string       `json:"aliases"`
	Name        string         `json:"name"`
	Unit        string         `json:"unit"`
	Description string         `json:"description,omitempty"`
	Category    SensorCategory `json:"category"`
}

// Registry is the alias-resolution table. Every component that looks a
// sensor up by name goes through it, so a canonical key and all of its
// aliases always denote the same sensor.
type Registry struct {
	sensors []SensorInfo
	byKey   map[string]int // lowercased key or alias -> index into sensors
}

// NewRegistry builds a registry from sensor definitions. Order is preserved
// and drives column matching priority.
func NewRegistry(sensors []SensorInfo) *Registry {
	r := &Registry{
		sensors: make([]SensorInfo, 0, len(sensors)),
		byKey:   make(map[string]int),
	}
	for _, s := range sensors {
		r.Add(s)
	}
	return r
}

// Add registers a sensor. Keys and aliases already claimed by an earlier
// sensor keep their first owner.
func (r *Registry) Add(s SensorInfo) {
	idx := len(r.sensors)
	r.sensors = append(r.sensors, s)
	for _, name := range append([]string{s.Key}, s.Aliases...) {
		lk := strings.ToLower(name)
		if _, taken := r.byKey[lk]; !taken {
			r.byKey[lk] = idx
		}
	}
}

// Resolve maps a key or alias to its canonical key. Unknown keys are their
// own canonical key, which is how ad-hoc sensors behave.
func (r *Registry) Resolve(key string) string {
	if idx, ok := r.byKey[strings.ToLower(key)]; ok {
		return r.sensors[idx].Key
	}
	return key
}

// Known reports whether key is a registered canonical key or alias.
func (r *Registry) Known(key string) bool {
	_, ok := r.byKey[strings.ToLower(key)]
	return ok
}

// Lookup returns the sensor definition for a key or alias.
func (r *Registry) Lookup(key string) (SensorInfo, bool) {
	idx, ok := r.byKey[strings.ToLower(key)]
	if !ok {
		return SensorInfo{}, false
	}
	return r.sensors[idx], true
}

// Names returns the canonical key followed by every alias, in lookup order.
// Unknown keys return themselves only.
func (r *Registry) Names(key string) []string {
	s, ok := r.Lookup(key)
	if !ok {
		return []string{key}
	}
	return append([]string{s.Key}, s.Aliases...)
}

// Sensors returns the registered definitions in registration order.
func (r *Registry) Sensors() []SensorInfo {
	out := make([]SensorInfo, len(r.sensors))
	copy(out, r.sensors)
	return out
}

// DisplayInfo returns the display name and unit for a key. Unknown keys
// display as themselves with no unit.
func (r *Registry) DisplayInfo(key string) SensorInfo {
	if s, ok := r.Lookup(key); ok {
		return s
	}
	return SensorInfo{Key: key, Name: key, Category: CategoryOther}
}

// IsGas reports whether the canonical unit of key is ppm or ppb.
func IsGas(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "ppm") || strings.Contains(k, "ppb")
}

// SortedKeys returns map keys in ascending order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DefaultRegistry returns the built-in sensor table covering both the
// English canonical headers and the Turkish variants.
func DefaultRegistry() *Registry {
	return NewRegistry([]SensorInfo{
		{Key: SensorPM25, Aliases: []string{"PM2.5", "PM25"}, Name: "PM2.5", Unit: "μg/m³", Description: "Fine particulate matter", Category: CategoryAirQuality},
		{Key: SensorPM10, Aliases: []string{"PM10"}, Name: "PM10", Unit: "μg/m³", Description: "Inhalable particulate matter", Category: CategoryAirQuality},
		{Key: SensorCO, Aliases: []string{"CO"}, Name: "CO", Unit: "ppm", Description: "Carbon monoxide", Category: CategoryAirQuality},
		{Key: SensorNO2, Aliases: []string{"NO2"}, Name: "NO₂", Unit: "ppb", Description: "Nitrogen dioxide", Category: CategoryAirQuality},
		{Key: SensorSO2, Aliases: []string{"SO2"}, Name: "SO₂", Unit: "ppb", Description: "Sulfur dioxide", Category: CategoryAirQuality},
		{Key: SensorO3, Aliases: []string{"O3"}, Name: "O₃", Unit: "ppb", Description: "Ozone", Category: CategoryAirQuality},
		{Key: SensorVOC, Aliases: []string{"VOC"}, Name: "VOC", Unit: "ppb", Description: "Volatile organic compounds", Category: CategoryAirQuality},
		{Key: SensorTemperature, Aliases: []string{"Sicaklik_C", "Sıcaklık_C", "Sicaklik", "Sıcaklık", "Temperature"}, Name: "Temperature", Unit: "°C", Description: "Ambient temperature", Category: CategoryEnvironment},
		{Key: SensorHumidity, Aliases: []string{"Bagil_Nem_Yuzde", "Bağıl_Nem_Yüzde", "Nem", "Humidity"}, Name: "Humidity", Unit: "%", Description: "Relative humidity", Category: CategoryEnvironment},
		{Key: SensorSound, Aliases: []string{"Ses_Seviyesi_dB", "Ses", "Sound"}, Name: "Sound", Unit: "dB", Description: "Ambient noise level", Category: CategoryEnvironment},
		{Key: SensorLight, Aliases: []string{"Isik_Seviyesi_lux", "Işık_Seviyesi_lux", "Isik", "Işık", "Light"}, Name: "Light", Unit: "lux", Description: "Ambient light level", Category: CategoryEnvironment},
		{Key: SensorVibration, Aliases: []string{"Titresim_g", "Titreşim_g", "Titresim", "Titreşim", "Vibration"}, Name: "Vibration", Unit: "g", Description: "Ground vibration", Category: CategoryOther},
		{Key: SensorRadiation, Aliases: []string{"Radyasyon_uSv_h", "Radyasyon", "Radiation"}, Name: "Radiation", Unit: "μSv/h", Description: "Background radiation", Category: CategoryOther},
		{Key: SensorMagneticX, Aliases: []string{"ManyetikAlan_X_uT", "MagneticX"}, Name: "Magnetic Field X", Unit: "μT", Category: CategoryOther},
		{Key: SensorMagneticY, Aliases: []string{"ManyetikAlan_Y_uT", "MagneticY"}, Name: "Magnetic Field Y", Unit: "μT", Category: CategoryOther},
		{Key: SensorMagneticZ, Aliases: []string{"ManyetikAlan_Z_uT", "MagneticZ"}, Name: "Magnetic Field Z", Unit: "μT", Category: CategoryOther},
	})
}

// Extend returns a copy of the registry that also knows the headers of one
// batch: a header spelled differently from every registered name of its
// sensor (a substring match, or another capitalization) becomes an alias, and
// ad-hoc columns become sensors named after themselves. The receiver is not
// modified.
func (r *Registry) Extend(cols ColumnMap) *Registry {
	out := NewRegistry(nil)
	for _, s := range r.sensors {
		s.Aliases = append([]string(nil), s.Aliases...)
		out.Add(s)
	}

	for _, key := range SortedKeys(cols.SensorColumns) {
		header := cols.SensorColumns[key]
		idx, ok := out.byKey[strings.ToLower(key)]
		if !ok {
			out.Add(SensorInfo{Key: header, Name: header, Category: CategoryOther})
			continue
		}
		if slices.Contains(out.Names(key), header) {
			continue
		}
		out.sensors[idx].Aliases = append(out.sensors[idx].Aliases, header)
		if _, taken := out.byKey[strings.ToLower(header)]; !taken {
			out.byKey[strings.ToLower(header)] = idx
		}
	}
	return out
}

package domain

import (
	"strconv"
	"strings"
	"time"
)

// RawRow maps a header to its trimmed cell text for one input line.
type RawRow map[string]string

// NonEmpty counts the cells that carry any text.
func (r RawRow) NonEmpty() int {
	n := 0
	for _, v := range r {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	return n
}

// SensorRecord is one cleaned reading. Values holds every numeric cell under
// both its canonical key and the header it was read from; Text does the same
// for cells that were present but not numeric. Records are never mutated
// after normalization.
type SensorRecord struct {
	DeviceID  string             `json:"device_id"`
	Latitude  float64            `json:"latitude"`
	Longitude float64            `json:"longitude"`
	Timestamp time.Time          `json:"timestamp"`
	Hour      int                `json:"hour"`
	Minute    int                `json:"minute"`
	Values    map[string]float64 `json:"values"`
	Text      map[string]string  `json:"text,omitempty"`
	Repair    RepairAction       `json:"repair,omitempty"`
}

// Value looks a reading up by key. When the exact key is absent, every name
// the registry knows for the same sensor is tried.
func (r SensorRecord) Value(reg *Registry, key string) (float64, bool) {
	if v, ok := r.Values[key]; ok {
		return v, true
	}
	if reg == nil {
		return 0, false
	}
	for _, name := range reg.Names(key) {
		if v, ok := r.Values[name]; ok {
			return v, true
		}
	}
	return 0, false
}

// ParseNumber reads a decimal number leniently: surrounding spaces are
// ignored and a single decimal comma is accepted. NaN and infinities are
// rejected so callers can treat "ok" as "usable for statistics".
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !isFinite(v) {
		return 0, false
	}
	return v, true
}

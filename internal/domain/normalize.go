package domain

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// minNonEmptyFields is the smallest number of populated cells a row needs to
// be considered a reading rather than noise.
const minNonEmptyFields = 3

// UnknownDevice is assigned when the device column exists but is empty.
const UnknownDevice = "Unknown"

// NormalizeReport counts what happened to a batch. Repaired is the sum of
// the per-action repair counters.
type NormalizeReport struct {
	Total              int `json:"total"`
	Valid              int `json:"valid"`
	Invalid            int `json:"invalid"`
	Repaired           int `json:"repaired"`
	Swapped            int `json:"swapped"`
	Centered           int `json:"centered"`
	Jittered           int `json:"jittered"`
	TimestampDefaulted int `json:"timestamp_defaulted"`
}

// Normalizer turns raw rows into SensorRecords.
type Normalizer struct {
	registry *Registry
	location *time.Location
	jitter   Jitter
}

// NewNormalizer creates a Normalizer. Zone-less timestamps are read in loc
// (UTC when nil) and hour/minute are derived in the same location. A nil
// jitter uses the process-wide random source.
func NewNormalizer(reg *Registry, loc *time.Location, jitter Jitter) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	if jitter == nil {
		jitter = globalJitter{}
	}
	if reg == nil {
		reg = DefaultRegistry()
	}
	return &Normalizer{registry: reg, location: loc, jitter: jitter}
}

// Normalize converts every usable row. It never fails: rows that are too
// sparse or that fail during extraction are dropped and counted, and an
// empty result is returned as-is for the caller to handle.
func (n *Normalizer) Normalize(rows []RawRow, cols ColumnMap, city City) ([]SensorRecord, NormalizeReport) {
	report := NormalizeReport{Total: len(rows)}
	records := make([]SensorRecord, 0, len(rows))
	sensorKeys := SortedKeys(cols.SensorColumns)

	for i, row := range rows {
		if row.NonEmpty() < minNonEmptyFields {
			report.Invalid++
			continue
		}

		rec, defaulted, err := n.normalizeRow(i, row, cols, sensorKeys, city)
		if err != nil {
			report.Invalid++
			continue
		}

		report.Valid++
		if defaulted {
			report.TimestampDefaulted++
		}
		switch rec.Repair {
		case RepairSwapped:
			report.Swapped++
		case RepairCentered:
			report.Centered++
		case RepairJittered:
			report.Jittered++
		}
		records = append(records, rec)
	}

	report.Repaired = report.Swapped + report.Centered + report.Jittered
	return records, report
}

// normalizeRow extracts one record. A panic while extracting is reported as
// an error so one malformed row cannot abort the batch.
func (n *Normalizer) normalizeRow(index int, row RawRow, cols ColumnMap, sensorKeys []string, city City) (rec SensorRecord, defaulted bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("row %d: %v", index, r)
		}
	}()

	lat := parseCoordinate(row[cols.Latitude])
	lng := parseCoordinate(row[cols.Longitude])
	fixed := RepairCoordinates(lat, lng, city, n.jitter)

	ts, ok := n.parseTimestamp(row[cols.Timestamp])
	hour, minute := 0, 0
	if ok {
		local := ts.In(n.location)
		hour, minute = local.Hour(), local.Minute()
	} else {
		ts = Now()
		defaulted = true
	}

	rec = SensorRecord{
		DeviceID:  deviceID(index, row, cols),
		Latitude:  fixed.Lat,
		Longitude: fixed.Lng,
		Timestamp: ts,
		Hour:      hour,
		Minute:    minute,
		Values:    make(map[string]float64, 2*len(sensorKeys)),
		Repair:    fixed.Action,
	}

	for _, key := range sensorKeys {
		header := cols.SensorColumns[key]
		cell := strings.TrimSpace(row[header])
		if cell == "" {
			continue
		}
		if v, ok := ParseNumber(cell); ok {
			rec.Values[key] = v
			rec.Values[header] = v
			continue
		}
		if rec.Text == nil {
			rec.Text = make(map[string]string)
		}
		rec.Text[key] = cell
		rec.Text[header] = cell
	}

	return rec, defaulted, nil
}

func (n *Normalizer) parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(s, n.location)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// deviceID prefers the inferred device column, then any unclaimed header
// that looks like an identifier, then a placeholder unique to the row.
func deviceID(index int, row RawRow, cols ColumnMap) string {
	if cols.DeviceID != "" {
		if v := strings.TrimSpace(row[cols.DeviceID]); v != "" {
			return v
		}
		return UnknownDevice
	}
	for _, h := range cols.Headers {
		if cols.Claimed(h) || !looksLikeDeviceHeader(h) {
			continue
		}
		if v := strings.TrimSpace(row[h]); v != "" {
			return v
		}
	}
	return fmt.Sprintf("Generated_%d", index)
}

var deviceMarkers = []string{"id", "device", "cihaz", "sensor"}

func looksLikeDeviceHeader(h string) bool {
	lh := strings.ToLower(h)
	for _, m := range deviceMarkers {
		if strings.Contains(lh, m) {
			return true
		}
	}
	return false
}

// parseCoordinate returns NaN for anything that is not a finite number.
func parseCoordinate(s string) float64 {
	v, ok := ParseNumber(s)
	if !ok {
		return math.NaN()
	}
	return v
}

type globalJitter struct{}

func (globalJitter) Float64() float64 { return rand.Float64() }

package domain

import (
	"fmt"
	"strings"
)

// Field names a positional column the normalizer needs.
type Field string

const (
	FieldLatitude  Field = "latitude"
	FieldLongitude Field = "longitude"
	FieldTimestamp Field = "timestamp"
	FieldDeviceID  Field = "device_id"
)

// FieldRule is one entry of the inference rule table. Candidates are matched
// as case-insensitive substrings in order, so earlier entries win; Exact is
// the secondary list of whole-name matches tried when no substring matched.
type FieldRule struct {
	Field      Field
	Candidates []string
	Exact      []string
}

// DefaultFieldRules returns the rule table for the header conventions in use.
// The longer, more specific candidates come first: "lat" is also a substring
// of "relative", and "id" of "humidity".
func DefaultFieldRules() []FieldRule {
	return []FieldRule{
		{
			Field:      FieldLatitude,
			Candidates: []string{"latitude", "enlem", "lat"},
			Exact:      []string{"y", "breite", "phi"},
		},
		{
			Field:      FieldLongitude,
			Candidates: []string{"longitude", "boylam", "lng", "lon"},
			Exact:      []string{"x", "laenge", "lambda"},
		},
		{
			Field:      FieldTimestamp,
			Candidates: []string{"timestamp", "zamandamgasi", "zamandamgası", "zaman", "time", "date", "tarih", "stamp"},
		},
		{
			Field:      FieldDeviceID,
			Candidates: []string{"ika_id", "device_id", "deviceid", "cihaz", "sensor_id", "device", "id"},
		},
	}
}

// ColumnMap is the inferred layout of one batch. Empty strings mean the
// column is absent. SensorColumns maps canonical sensor keys to the header
// they were found under; ad-hoc sensors map to themselves.
type ColumnMap struct {
	Headers       []string          `json:"headers"`
	Latitude      string            `json:"latitude"`
	Longitude     string            `json:"longitude"`
	Timestamp     string            `json:"timestamp,omitempty"`
	DeviceID      string            `json:"device_id,omitempty"`
	SensorColumns map[string]string `json:"sensor_columns"`
	AdHoc         []string          `json:"ad_hoc,omitempty"`
}

// Claimed reports whether a header is used by any positional or sensor column.
func (c ColumnMap) Claimed(header string) bool {
	switch header {
	case c.Latitude, c.Longitude, c.Timestamp, c.DeviceID:
		return header != ""
	}
	for _, h := range c.SensorColumns {
		if h == header {
			return true
		}
	}
	return false
}

// Inferrer resolves a ColumnMap from headers using an ordered rule table and
// the sensor alias registry.
type Inferrer struct {
	Rules    []FieldRule
	Registry *Registry
}

// NewInferrer returns an Inferrer with the default rule table.
func NewInferrer(reg *Registry) *Inferrer {
	return &Inferrer{Rules: DefaultFieldRules(), Registry: reg}
}

// InferColumns is shorthand for NewInferrer(reg).Infer.
func InferColumns(headers []string, sample []RawRow, reg *Registry) (ColumnMap, error) {
	return NewInferrer(reg).Infer(headers, sample)
}

// Infer maps headers to positional fields and sensors. It fails with
// ErrColumnsUnresolved only when latitude or longitude cannot be found.
// The result depends only on the header order and the sample.
func (in *Inferrer) Infer(headers []string, sample []RawRow) (ColumnMap, error) {
	cols := ColumnMap{
		Headers:       append([]string(nil), headers...),
		SensorColumns: make(map[string]string),
	}
	claimed := make(map[string]bool, len(headers))

	for _, rule := range in.Rules {
		h := in.matchField(rule, headers, claimed)
		if h == "" {
			continue
		}
		claimed[h] = true
		switch rule.Field {
		case FieldLatitude:
			cols.Latitude = h
		case FieldLongitude:
			cols.Longitude = h
		case FieldTimestamp:
			cols.Timestamp = h
		case FieldDeviceID:
			cols.DeviceID = h
		}
	}

	if cols.Latitude == "" || cols.Longitude == "" {
		return cols, fmt.Errorf("%w: headers %q", ErrColumnsUnresolved, headers)
	}

	in.matchSensors(&cols, headers, claimed)
	matchAdHoc(&cols, headers, sample, claimed)

	return cols, nil
}

// placeholderPrefix starts the names generated for empty header cells.
const placeholderPrefix = "Column_"

// PlaceholderHeader names the unnamed column at 1-based position n.
func PlaceholderHeader(n int) string {
	return fmt.Sprintf("%s%d", placeholderPrefix, n)
}

// IsPlaceholderHeader reports whether h is a generated name, including the
// numeric suffix added when it repeats. Such headers carry no meaning and
// never match a field or sensor by substring.
func IsPlaceholderHeader(h string) bool {
	rest, ok := strings.CutPrefix(h, placeholderPrefix)
	if !ok || rest == "" {
		return false
	}
	for _, r := range rest {
		if (r < '0' || r > '9') && r != '_' {
			return false
		}
	}
	return true
}

// matchField applies one rule. Headers that are known sensor names are never
// treated as positional columns.
func (in *Inferrer) matchField(rule FieldRule, headers []string, claimed map[string]bool) string {
	usable := func(h string) bool {
		return !claimed[h] && (in.Registry == nil || !in.Registry.Known(h))
	}
	for _, cand := range rule.Candidates {
		cand = strings.ToLower(cand)
		for _, h := range headers {
			if usable(h) && !IsPlaceholderHeader(h) && strings.Contains(strings.ToLower(h), cand) {
				return h
			}
		}
	}
	for _, exact := range rule.Exact {
		for _, h := range headers {
			if usable(h) && strings.EqualFold(h, exact) {
				return h
			}
		}
	}
	return ""
}

// matchSensors claims one header per registered sensor: whole-name matches on
// any alias first, then substring matches. A header that is itself the name
// of a different sensor is never taken by substring.
func (in *Inferrer) matchSensors(cols *ColumnMap, headers []string, claimed map[string]bool) {
	if in.Registry == nil {
		return
	}
	for _, s := range in.Registry.Sensors() {
		names := append([]string{s.Key}, s.Aliases...)
		if h := firstHeader(headers, claimed, func(h string) bool {
			for _, n := range names {
				if strings.EqualFold(h, n) {
					return true
				}
			}
			return false
		}); h != "" {
			cols.SensorColumns[s.Key] = h
			claimed[h] = true
			continue
		}

		for _, n := range names {
			ln := strings.ToLower(n)
			h := firstHeader(headers, claimed, func(h string) bool {
				if IsPlaceholderHeader(h) || in.Registry.Known(h) && in.Registry.Resolve(h) != s.Key {
					return false
				}
				return strings.Contains(strings.ToLower(h), ln)
			})
			if h != "" {
				cols.SensorColumns[s.Key] = h
				claimed[h] = true
				break
			}
		}
	}
}

// matchAdHoc registers every remaining header that holds a number in at
// least one sample row, skipping identifier and route metadata columns.
func matchAdHoc(cols *ColumnMap, headers []string, sample []RawRow, claimed map[string]bool) {
	for _, h := range headers {
		if h == "" || claimed[h] || isMetadataHeader(h) {
			continue
		}
		if !anyNumeric(sample, h) {
			continue
		}
		cols.SensorColumns[h] = h
		cols.AdHoc = append(cols.AdHoc, h)
		claimed[h] = true
	}
}

var metadataMarkers = []string{"ika", "hedef", "height", "yukseklik", "yükseklik"}

func isMetadataHeader(h string) bool {
	lh := strings.ToLower(h)
	if lh == "id" || strings.HasSuffix(lh, "_id") || strings.HasPrefix(lh, "id_") {
		return true
	}
	for _, m := range metadataMarkers {
		if strings.Contains(lh, m) {
			return true
		}
	}
	return false
}

func anyNumeric(sample []RawRow, h string) bool {
	for _, row := range sample {
		if _, ok := ParseNumber(row[h]); ok {
			return true
		}
	}
	return false
}

func firstHeader(headers []string, claimed map[string]bool, match func(string) bool) string {
	for _, h := range headers {
		if !claimed[h] && match(h) {
			return h
		}
	}
	return ""
}

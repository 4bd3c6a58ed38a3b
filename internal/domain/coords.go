package domain

import "math"

// jitterRadius is the half-width, in degrees, of the box around the city
// center that out-of-city coordinates are moved into.
const jitterRadius = 0.1

// RepairAction records what RepairCoordinates did to a pair.
type RepairAction string

const (
	RepairNone     RepairAction = ""
	RepairSwapped  RepairAction = "swapped"
	RepairCentered RepairAction = "centered"
	RepairJittered RepairAction = "jittered"
)

// Jitter yields uniform values in [0, 1). *math/rand/v2.Rand satisfies it.
type Jitter interface {
	Float64() float64
}

// RepairResult is the repaired coordinate plus the action taken.
type RepairResult struct {
	Lat    float64
	Lng    float64
	Action RepairAction
}

// Repaired reports whether the input was changed.
func (r RepairResult) Repaired() bool { return r.Action != RepairNone }

// RepairCoordinates validates a lat/lng pair against world bounds and the
// city box. The result always lies inside both. It never logs; callers count
// repairs from the returned action.
//
// A pair whose latitude is out of range but whose swapped form is in range is
// treated as swapped axes, which is the most common fault in hand-edited
// files. A swap that still lands outside the city counts as jittered.
func RepairCoordinates(lat, lng float64, city City, jitter Jitter) RepairResult {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return centered(city)
	}

	action := RepairNone
	if looksSwapped(lat, lng) {
		lat, lng = lng, lat
		action = RepairSwapped
	}

	if !inWorld(lat, lng) {
		return centered(city)
	}

	if !city.Contains(lat, lng) {
		return jittered(city, jitter)
	}

	return RepairResult{Lat: lat, Lng: lng, Action: action}
}

// looksSwapped matches a latitude that only fits the longitude range while
// the longitude fits the latitude range.
func looksSwapped(lat, lng float64) bool {
	latOutOfRange := lat < MinLatitude || lat > MaxLatitude
	latFitsLng := lat >= MinLongitude && lat <= MaxLongitude
	lngFitsLat := lng >= MinLatitude && lng <= MaxLatitude
	return latOutOfRange && latFitsLng && lngFitsLat
}

func inWorld(lat, lng float64) bool {
	return !math.IsNaN(lat) && !math.IsNaN(lng) &&
		lat >= MinLatitude && lat <= MaxLatitude &&
		lng >= MinLongitude && lng <= MaxLongitude
}

func centered(city City) RepairResult {
	return RepairResult{Lat: city.CenterLat(), Lng: city.CenterLng(), Action: RepairCentered}
}

func jittered(city City, jitter Jitter) RepairResult {
	lat := city.CenterLat() + spread(jitter)
	lng := city.CenterLng() + spread(jitter)

	// Clamp so that small boxes still satisfy the postcondition.
	lat = clamp(lat, city.Bounds.Min.Lat(), city.Bounds.Max.Lat())
	lng = clamp(lng, city.Bounds.Min.Lon(), city.Bounds.Max.Lon())

	return RepairResult{Lat: lat, Lng: lng, Action: RepairJittered}
}

// spread returns a uniform offset in [-jitterRadius, jitterRadius).
func spread(jitter Jitter) float64 {
	if jitter == nil {
		return 0
	}
	return jitter.Float64()*2*jitterRadius - jitterRadius
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

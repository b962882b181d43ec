package engine

import (
	"maps"
	"slices"
)

// DefaultSunHours is the conservative fixed effective sun-hours
const DefaultSunHours = 5.0

// referenceProfile covers hours 6 through 19
var referenceProfile = [...]float64{0, 100, 300, 500, 700, 900, 1000, 1000, 900, 700, 500, 300, 100, 0}

const referenceFirstHour = 6

// ReferenceCurve returns the static hourly irradiance profile. Each call
// returns a fresh map so callers cannot alter the reference data.
func ReferenceCurve() IrradianceCurve {
	curve := make(IrradianceCurve, len(referenceProfile))
	for i, v := range referenceProfile {
		curve[referenceFirstHour+i] = v
	}
	return curve
}

// CurveSunHours derives effective sun-hours as the curve total over 1000 W/m²
func CurveSunHours(curve IrradianceCurve) float64 {
	total := 0.0
	for _, h := range slices.Sorted(maps.Keys(curve)) {
		total += curve[h]
	}
	return total / 1000
}

// IsDaylight reports whether the curve has positive irradiance at an hour.
// Hours missing from the curve are night.
func IsDaylight(curve IrradianceCurve, hour int) bool {
	return curve[hour] > 0
}

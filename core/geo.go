package core

import "math"

// EarthRadiusM is the mean Earth radius used for all great-circle
// calculations in the simulation layer (metres).
const EarthRadiusM = 6371000.0

// LatLon is a geodetic position in decimal degrees.
type LatLon struct {
	Lat, Lon float64
}

func deg2rad(d float64) float64 { return d * math.Pi / 180.0 }
func rad2deg(r float64) float64 { return r * 180.0 / math.Pi }

// HaversineM returns the great-circle ground distance between two points
// in metres.
func HaversineM(a, b LatLon) float64 {
	phi1 := deg2rad(a.Lat)
	phi2 := deg2rad(b.Lat)
	dPhi := deg2rad(b.Lat - a.Lat)
	dLambda := deg2rad(b.Lon - a.Lon)

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * EarthRadiusM * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// InitialBearingDeg returns the initial bearing of the great-circle path
// from a to b, in degrees clockwise from true north, normalised to
// [0, 360). Coincident points have no defined bearing; 0 is returned as
// the sentinel.
func InitialBearingDeg(a, b LatLon) float64 {
	if a == b {
		return 0
	}
	phi1 := deg2rad(a.Lat)
	phi2 := deg2rad(b.Lat)
	dLambda := deg2rad(b.Lon - a.Lon)

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)
	return math.Mod(rad2deg(math.Atan2(y, x))+360.0, 360.0)
}

// Intermediate returns the point at fraction f along the great-circle path
// from a to b. f is clamped to [0, 1]; a zero-length path returns a.
func Intermediate(a, b LatLon, f float64) LatLon {
	if f <= 0 {
		return a
	}
	if f >= 1 {
		return b
	}

	phi1, lambda1 := deg2rad(a.Lat), deg2rad(a.Lon)
	phi2, lambda2 := deg2rad(b.Lat), deg2rad(b.Lon)

	// Angular separation between the endpoints.
	h := math.Sin((phi2-phi1)/2)*math.Sin((phi2-phi1)/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin((lambda2-lambda1)/2)*math.Sin((lambda2-lambda1)/2)
	delta := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	if delta == 0 {
		return a
	}

	// Spherical linear interpolation between the unit vectors.
	wa := math.Sin((1-f)*delta) / math.Sin(delta)
	wb := math.Sin(f*delta) / math.Sin(delta)

	x := wa*math.Cos(phi1)*math.Cos(lambda1) + wb*math.Cos(phi2)*math.Cos(lambda2)
	y := wa*math.Cos(phi1)*math.Sin(lambda1) + wb*math.Cos(phi2)*math.Sin(lambda2)
	z := wa*math.Sin(phi1) + wb*math.Sin(phi2)

	return LatLon{
		Lat: rad2deg(math.Atan2(z, math.Sqrt(x*x+y*y))),
		Lon: normalizeLonDeg(rad2deg(math.Atan2(y, x))),
	}
}

// RangeBearing returns the slant range (metres), bearing (degrees from
// true north) and inclination (radians above horizontal) from origin to
// target, where hae values are heights above the ellipsoid in metres.
func RangeBearing(origin LatLon, originHAE float64, target LatLon, targetHAE float64) (rangeM, bearingDeg, inclinationRad float64) {
	ground := HaversineM(origin, target)
	bearingDeg = InitialBearingDeg(origin, target)

	dz := targetHAE - originHAE
	rangeM = math.Sqrt(ground*ground + dz*dz)
	if ground != 0 {
		inclinationRad = math.Atan2(dz, ground)
	}
	return rangeM, bearingDeg, inclinationRad
}

// normalizeLonDeg wraps a longitude into [-180, 180).
func normalizeLonDeg(lon float64) float64 {
	return math.Mod(lon+540.0, 360.0) - 180.0
}

package core

import (
	"math"
	"testing"
)

func TestHaversineM_EquatorDegree(t *testing.T) {
	// One degree of longitude on the equator is ~111.2 km.
	d := HaversineM(LatLon{Lat: 0, Lon: 0}, LatLon{Lat: 0, Lon: 1})
	if math.Abs(d-111195) > 200 {
		t.Errorf("equator degree distance = %.0f m, want ~111195 m", d)
	}
}

func TestHaversineM_ZeroForCoincidentPoints(t *testing.T) {
	p := LatLon{Lat: 48.8566, Lon: 2.3522}
	if d := HaversineM(p, p); d != 0 {
		t.Errorf("distance between coincident points = %v, want 0", d)
	}
}

func TestInitialBearingDeg_DueEast(t *testing.T) {
	b := InitialBearingDeg(LatLon{Lat: 0, Lon: 0}, LatLon{Lat: 0, Lon: 10})
	if math.Abs(b-90) > 0.01 {
		t.Errorf("bearing along equator = %v, want 90", b)
	}
}

func TestInitialBearingDeg_DueNorth(t *testing.T) {
	b := InitialBearingDeg(LatLon{Lat: 10, Lon: 5}, LatLon{Lat: 20, Lon: 5})
	if math.Abs(b) > 0.01 {
		t.Errorf("bearing along meridian = %v, want 0", b)
	}
}

func TestInitialBearingDeg_CoincidentSentinel(t *testing.T) {
	p := LatLon{Lat: 45, Lon: 45}
	if b := InitialBearingDeg(p, p); b != 0 {
		t.Errorf("bearing of zero-length path = %v, want sentinel 0", b)
	}
}

func TestIntermediate_MidpointOnEquator(t *testing.T) {
	mid := Intermediate(LatLon{Lat: 0, Lon: 0}, LatLon{Lat: 0, Lon: 10}, 0.5)
	if math.Abs(mid.Lat) > 1e-6 {
		t.Errorf("midpoint latitude = %v, want ~0", mid.Lat)
	}
	if math.Abs(mid.Lon-5) > 1e-6 {
		t.Errorf("midpoint longitude = %v, want ~5", mid.Lon)
	}
}

func TestIntermediate_FractionClamped(t *testing.T) {
	a := LatLon{Lat: 10, Lon: 10}
	b := LatLon{Lat: 20, Lon: 20}
	if got := Intermediate(a, b, -0.5); got != a {
		t.Errorf("fraction below 0 should return start, got %+v", got)
	}
	if got := Intermediate(a, b, 1.5); got != b {
		t.Errorf("fraction above 1 should return end, got %+v", got)
	}
}

func TestIntermediate_ZeroLengthPath(t *testing.T) {
	p := LatLon{Lat: -33.9, Lon: 151.2}
	if got := Intermediate(p, p, 0.5); got != p {
		t.Errorf("zero-length path should return start, got %+v", got)
	}
}

func TestRangeBearing_GroundOnly(t *testing.T) {
	origin := LatLon{Lat: 0, Lon: 0}
	target := LatLon{Lat: 0, Lon: 1}

	rangeM, bearing, incl := RangeBearing(origin, 0, target, 0)
	if math.Abs(rangeM-HaversineM(origin, target)) > 0.001 {
		t.Errorf("level range = %v, want ground distance", rangeM)
	}
	if math.Abs(bearing-90) > 0.01 {
		t.Errorf("bearing = %v, want 90", bearing)
	}
	if incl != 0 {
		t.Errorf("inclination = %v, want 0", incl)
	}
}

func TestRangeBearing_Elevated(t *testing.T) {
	origin := LatLon{Lat: 0, Lon: 0}
	target := LatLon{Lat: 0, Lon: 1}
	ground := HaversineM(origin, target)

	rangeM, _, incl := RangeBearing(origin, 0, target, 1000)
	want := math.Sqrt(ground*ground + 1000*1000)
	if math.Abs(rangeM-want) > 0.001 {
		t.Errorf("slant range = %v, want %v", rangeM, want)
	}
	if incl <= 0 {
		t.Errorf("inclination toward elevated target = %v, want > 0", incl)
	}
}

package routing

import "testing"

func TestKey_Deterministic(t *testing.T) {
	from := Coordinate{Lon: 123.70, Lat: 13.15}
	to := Coordinate{Lon: 123.71, Lat: 13.16}

	k1 := Key(from, to, ProfileCar)
	k2 := Key(from, to, ProfileCar)
	if k1 != k2 {
		t.Errorf("same inputs produced different keys: %q vs %q", k1, k2)
	}
}

func TestKey_JitterInvariance(t *testing.T) {
	// Coordinates differing only in the 6th decimal place and beyond must
	// land on the same key, so client serialization jitter still hits the
	// cache.
	from := Coordinate{Lon: 123.70000, Lat: 13.15000}
	to := Coordinate{Lon: 123.71000, Lat: 13.16000}
	fromJitter := Coordinate{Lon: 123.7000004, Lat: 13.1499996}
	toJitter := Coordinate{Lon: 123.7100001, Lat: 13.1599999}

	k1 := Key(from, to, ProfileFoot)
	k2 := Key(fromJitter, toJitter, ProfileFoot)
	if k1 != k2 {
		t.Errorf("jittered coordinates missed the cache key: %q vs %q", k1, k2)
	}
}

func TestKey_DistinctPlacesDistinctKeys(t *testing.T) {
	from := Coordinate{Lon: 123.70, Lat: 13.15}
	near := Coordinate{Lon: 123.71, Lat: 13.15} // ~1 km east, well past rounding
	to := Coordinate{Lon: 123.80, Lat: 13.20}

	if Key(from, to, ProfileCar) == Key(near, to, ProfileCar) {
		t.Error("distinct origins collided on the same key")
	}

	// A 1e-4 difference is above the rounding grid and must stay distinct.
	shifted := Coordinate{Lon: from.Lon + 0.0001, Lat: from.Lat}
	if Key(from, to, ProfileCar) == Key(shifted, to, ProfileCar) {
		t.Error("1e-4 shifted origin collided on the same key")
	}
}

func TestKey_ProfileSeparation(t *testing.T) {
	from := Coordinate{Lon: 123.70, Lat: 13.15}
	to := Coordinate{Lon: 123.71, Lat: 13.16}

	car := Key(from, to, ProfileCar)
	foot := Key(from, to, ProfileFoot)
	if car == foot {
		t.Error("different profiles share one cache key")
	}
}

func TestKey_DirectionMatters(t *testing.T) {
	a := Coordinate{Lon: 123.70, Lat: 13.15}
	b := Coordinate{Lon: 123.71, Lat: 13.16}

	if Key(a, b, ProfileCar) == Key(b, a, ProfileCar) {
		t.Error("reversed segment mapped to the same key; one-way routes would be wrong")
	}
}

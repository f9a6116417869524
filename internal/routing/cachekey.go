package routing

import (
	"fmt"
	"math"

	"github.com/mmcloughlin/geohash"
)

const (
	// keyRoundDecimals is how many decimal places of a coordinate
	// participate in the cache key. Five decimals is about 1.1 m at the
	// equator: fine enough to keep distinct places distinct, coarse enough
	// to absorb the floating-point jitter clients introduce when
	// serializing coordinates.
	keyRoundDecimals = 5

	// keyGeohashPrecision is the geohash length used to encode the rounded
	// endpoints. A precision-12 cell is ~3.7 cm, well below the ~1.1 m
	// rounding grid, so two distinct rounded points never share a hash.
	keyGeohashPrecision = 12
)

// CacheKey is the normalized fingerprint of a (from, to, profile) triple.
type CacheKey string

// Key derives the cache key for one (from, to, profile) lookup. It is a pure
// function: the same inputs always produce the same key, and coordinates
// differing only beyond the 5th decimal place collide on the same key.
func Key(from, to Coordinate, profile Profile) CacheKey {
	fh := geohash.EncodeWithPrecision(roundTo(from.Lat, keyRoundDecimals), roundTo(from.Lon, keyRoundDecimals), keyGeohashPrecision)
	th := geohash.EncodeWithPrecision(roundTo(to.Lat, keyRoundDecimals), roundTo(to.Lon, keyRoundDecimals), keyGeohashPrecision)
	return CacheKey(fmt.Sprintf("%s:%s:%s", fh, th, profile))
}

// roundTo rounds v to the given number of decimal places.
func roundTo(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}

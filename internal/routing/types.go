// Package routing holds the domain model for route computation: coordinates,
// transport profiles, route data, the cache, and the client for the external
// OSRM routing engine.
package routing

import (
	"encoding/json"
	"fmt"
	"math"
)

// Coordinate is a WGS-84 point as (longitude, latitude), matching the
// [lon, lat] order used on the wire by both the frontend and OSRM.
type Coordinate struct {
	Lon float64
	Lat float64
}

// Validate reports whether the coordinate is a finite point within the
// WGS-84 envelope. Returns ErrInvalidCoordinate (wrapped) otherwise.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lon) || math.IsInf(c.Lon, 0) ||
		math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) {
		return fmt.Errorf("non-finite coordinate (%v, %v): %w", c.Lon, c.Lat, ErrInvalidCoordinate)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]: %w", c.Lon, ErrInvalidCoordinate)
	}
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]: %w", c.Lat, ErrInvalidCoordinate)
	}
	return nil
}

// Segment is one caller-identified origin→destination pair in a batch
// request. ID is only used to correlate results back to the caller; it never
// participates in cache keys, so two segments with identical endpoints share
// cache entries regardless of their IDs.
type Segment struct {
	ID   string
	From Coordinate
	To   Coordinate
}

// Validate checks both endpoints of the segment.
func (s Segment) Validate() error {
	if err := s.From.Validate(); err != nil {
		return fmt.Errorf("segment %q: from: %w", s.ID, err)
	}
	if err := s.To.Validate(); err != nil {
		return fmt.Errorf("segment %q: to: %w", s.ID, err)
	}
	return nil
}

// Profile is a mode of transport the routing engine can compute routes for.
type Profile string

const (
	ProfileCar     Profile = "car"
	ProfileBicycle Profile = "bicycle"
	ProfileFoot    Profile = "foot"
)

// AllProfiles lists every supported profile in canonical order. The order
// matters: it is the fallback order for deriving DistanceFormatted when the
// car profile is absent.
var AllProfiles = []Profile{ProfileCar, ProfileBicycle, ProfileFoot}

// profileAliases maps the alternate spellings accepted on the wire to
// canonical profiles. The aliases match the OSRM profile names the frontend
// historically sent interchangeably.
var profileAliases = map[string]Profile{
	"car":     ProfileCar,
	"driving": ProfileCar,
	"bicycle": ProfileBicycle,
	"cycling": ProfileBicycle,
	"foot":    ProfileFoot,
	"walking": ProfileFoot,
}

// ParseProfile resolves a wire-format profile string (canonical name or
// alias) to a Profile. Returns ErrUnknownProfile (wrapped) for anything else.
func ParseProfile(s string) (Profile, error) {
	if p, ok := profileAliases[s]; ok {
		return p, nil
	}
	return "", fmt.Errorf("profile %q: %w", s, ErrUnknownProfile)
}

// String returns the canonical profile name.
func (p Profile) String() string { return string(p) }

// RouteData is the computed route for one (segment, profile) pair.
// Geometry is the engine's GeoJSON geometry carried through verbatim;
// the service never inspects or re-encodes it.
type RouteData struct {
	DurationMinutes int             `json:"duration"`
	DistanceMeters  float64         `json:"distance"`
	Geometry        json.RawMessage `json:"geometry"`
}

// RouteResult aggregates the per-profile outcomes for one segment.
// A profile missing from Routes means the engine could not compute it
// (no path exists, or the engine failed), distinct from a zero-value route.
type RouteResult struct {
	// Routes maps each successfully computed profile to its route.
	Routes map[Profile]*RouteData

	// DistanceFormatted is the human-readable distance derived from the car
	// route, falling back to the first computed profile in AllProfiles order.
	DistanceFormatted string

	// Err is set when the segment itself could not be routed at all, e.g.
	// its coordinates failed validation. The segment still appears in the
	// batch result so callers see every requested ID.
	Err error
}

// Route returns the route for p, or nil when that profile is absent.
func (r *RouteResult) Route(p Profile) *RouteData {
	if r == nil {
		return nil
	}
	return r.Routes[p]
}

// formatDistanceOf picks the distance the formatted string derives from:
// the car route when present, otherwise the first computed profile in
// canonical order, otherwise zero.
func (r *RouteResult) formatDistanceOf() float64 {
	if d := r.Routes[ProfileCar]; d != nil {
		return d.DistanceMeters
	}
	for _, p := range AllProfiles {
		if d := r.Routes[p]; d != nil {
			return d.DistanceMeters
		}
	}
	return 0
}

// Finalize computes DistanceFormatted once every profile has settled.
func (r *RouteResult) Finalize() {
	r.DistanceFormatted = FormatDistance(r.formatDistanceOf())
}

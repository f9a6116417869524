package routing

import "context"

// Engine is the external routing capability this service delegates
// path-finding to: given two coordinates and a profile, return duration,
// distance, and path geometry, or fail.
//
// FetchRoute failures are classified into the package error taxonomy
// (ErrNoRoute, ErrEngineTimeout, ErrEngineUnreachable,
// ErrMalformedResponse) so the orchestrator can tell a legitimate
// "no path exists" from an engine outage.
type Engine interface {
	FetchRoute(ctx context.Context, from, to Coordinate, profile Profile) (*RouteData, error)

	// Ping reports whether the engine is reachable. Used by the health
	// endpoint; never called on the route hot path.
	Ping(ctx context.Context) error
}

package routing

import "errors"

// Error taxonomy for route computation. Callers branch with errors.Is; the
// orchestrator absorbs every engine-side failure into an absent profile
// rather than failing the batch.
var (
	// ErrInvalidCoordinate marks a coordinate that failed local validation.
	// It never reaches the engine.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrUnknownProfile marks a transport profile string outside the closed
	// car/bicycle/foot set (and its accepted aliases).
	ErrUnknownProfile = errors.New("unknown transport profile")

	// ErrNoRoute is the engine's legitimate "no path exists for this
	// profile" outcome, e.g. foot routing across open water.
	ErrNoRoute = errors.New("no route found")

	// ErrEngineTimeout marks an engine call that exceeded its deadline.
	ErrEngineTimeout = errors.New("routing engine timed out")

	// ErrEngineUnreachable marks a transport-level failure talking to the
	// engine.
	ErrEngineUnreachable = errors.New("routing engine unreachable")

	// ErrMalformedResponse marks engine output the client could not decode.
	// Callers treat it like ErrEngineUnreachable; the distinction exists for
	// logs.
	ErrMalformedResponse = errors.New("malformed engine response")
)

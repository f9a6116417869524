package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// defaultEngineTimeout is the maximum duration for one OSRM call.
	defaultEngineTimeout = 10 * time.Second

	// pingTimeout bounds the health-check probe to the engine.
	pingTimeout = 3 * time.Second

	// httpMaxIdleConns is the maximum number of idle (keep-alive)
	// connections kept in the transport pool across all hosts.
	httpMaxIdleConns = 10

	// httpIdleConnTimeout is how long an idle connection is kept in the pool
	// before being closed. 30 s is a safe value for services that enforce
	// shorter server-side keep-alive timeouts.
	httpIdleConnTimeout = 30 * time.Second
)

// osrmProfiles maps canonical profiles onto the profile names OSRM expects
// in its /route/v1/{profile}/ URLs.
var osrmProfiles = map[Profile]string{
	ProfileCar:     "driving",
	ProfileBicycle: "cycling",
	ProfileFoot:    "foot",
}

// OSRMEngine implements Engine against one OSRM HTTP instance per profile.
// Each profile runs its own OSRM service (the graph weights differ per
// mode), so the client keeps a base URL per profile. Holds no cross-call
// state beyond the pooled HTTP client.
type OSRMEngine struct {
	baseURLs   map[Profile]string
	httpClient *http.Client
}

// NewOSRMEngine creates an Engine talking to the given per-profile OSRM base
// URLs (e.g. "https://osrm-car.example.com"). A non-positive timeout falls
// back to defaultEngineTimeout.
func NewOSRMEngine(baseURLs map[Profile]string, timeout time.Duration) *OSRMEngine {
	if timeout <= 0 {
		timeout = defaultEngineTimeout
	}
	transport := &http.Transport{
		MaxIdleConns:        httpMaxIdleConns,
		MaxIdleConnsPerHost: httpMaxIdleConns,
		IdleConnTimeout:     httpIdleConnTimeout,
	}
	urls := make(map[Profile]string, len(baseURLs))
	for p, u := range baseURLs {
		urls[p] = u
	}
	return &OSRMEngine{
		baseURLs: urls,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(transport),
		},
	}
}

// BaseURLs returns a copy of the per-profile OSRM endpoints, for the health
// endpoint's service report.
func (e *OSRMEngine) BaseURLs() map[Profile]string {
	out := make(map[Profile]string, len(e.baseURLs))
	for p, u := range e.baseURLs {
		out[p] = u
	}
	return out
}

// FetchRoute requests one route from the profile's OSRM instance and
// translates the reply into RouteData. Geometry is requested as full-overview
// GeoJSON and carried through verbatim.
func (e *OSRMEngine) FetchRoute(ctx context.Context, from, to Coordinate, profile Profile) (*RouteData, error) {
	base, ok := e.baseURLs[profile]
	if !ok {
		return nil, fmt.Errorf("routing: osrm: no endpoint configured for profile %q: %w", profile, ErrUnknownProfile)
	}

	url := fmt.Sprintf("%s/route/v1/%s/%f,%f;%f,%f?overview=full&geometries=geojson",
		base, osrmProfiles[profile], from.Lon, from.Lat, to.Lon, to.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("routing: osrm: create request: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	var apiResp osrmRouteResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("routing: osrm: decode response: %v: %w", err, ErrMalformedResponse)
	}

	// OSRM reports no-route conditions through its code field (with a 400
	// status); decode before checking the status so that a legitimate
	// NoRoute is not misread as an outage.
	switch apiResp.Code {
	case "Ok":
		// fall through to route extraction
	case "NoRoute", "NoSegment":
		return nil, fmt.Errorf("routing: osrm: %s for profile %q: %w", apiResp.Code, profile, ErrNoRoute)
	default:
		return nil, fmt.Errorf("routing: osrm: code %q status %d: %w", apiResp.Code, resp.StatusCode, ErrEngineUnreachable)
	}

	if len(apiResp.Routes) == 0 {
		return nil, fmt.Errorf("routing: osrm: code Ok but no routes: %w", ErrNoRoute)
	}

	route := apiResp.Routes[0]
	return &RouteData{
		DurationMinutes: int(math.Round(route.Duration / 60)),
		DistanceMeters:  route.Distance,
		Geometry:        route.Geometry,
	}, nil
}

// Ping probes the car-profile OSRM instance (falling back to any configured
// one). Any HTTP response, including an error status, proves reachability;
// only transport failures count as down.
func (e *OSRMEngine) Ping(ctx context.Context) error {
	base, ok := e.baseURLs[ProfileCar]
	if !ok {
		for _, u := range e.baseURLs {
			base = u
			break
		}
	}
	if base == "" {
		return fmt.Errorf("routing: osrm: no endpoints configured: %w", ErrEngineUnreachable)
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/", nil)
	if err != nil {
		return fmt.Errorf("routing: osrm: create ping request: %w", err)
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	resp.Body.Close()
	return nil
}

// classifyTransportError maps HTTP client failures onto the package error
// taxonomy so the orchestrator can log timeouts and outages distinctly.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("routing: osrm: %v: %w", err, ErrEngineTimeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("routing: osrm: %v: %w", err, ErrEngineTimeout)
	}
	return fmt.Errorf("routing: osrm: %v: %w", err, ErrEngineUnreachable)
}

// --- JSON types for the OSRM route response ---

type osrmRouteResponse struct {
	Code   string      `json:"code"`
	Routes []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Duration float64         `json:"duration"` // seconds
	Distance float64         `json:"distance"` // meters
	Geometry json.RawMessage `json:"geometry"` // GeoJSON, passed through
}

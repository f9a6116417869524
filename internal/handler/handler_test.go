package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/johannbuere/lakbai-routing-api/internal/routing"
	"github.com/johannbuere/lakbai-routing-api/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ---------------------------------------------------------------------------
// Fake engine — canned per-profile answers, no network.
// ---------------------------------------------------------------------------

type fakeEngine struct {
	responses map[routing.Profile]*routing.RouteData
	failures  map[routing.Profile]error
	pingErr   error
}

func (f *fakeEngine) FetchRoute(_ context.Context, _, _ routing.Coordinate, p routing.Profile) (*routing.RouteData, error) {
	if err := f.failures[p]; err != nil {
		return nil, err
	}
	if data, ok := f.responses[p]; ok {
		return data, nil
	}
	return &routing.RouteData{DurationMinutes: 1, DistanceMeters: 100}, nil
}

func (f *fakeEngine) Ping(_ context.Context) error { return f.pingErr }

// buildTestRouter replicates the gin wiring from app.New over a fake engine
// and an in-memory cache.
func buildTestRouter(t *testing.T, engine routing.Engine) *gin.Engine {
	t.Helper()

	store, err := routing.NewMemoryStore(100)
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}
	svc := service.NewRouteService(engine, store)
	h := New(svc, map[string]string{"car": "http://osrm-car.test"})

	r := gin.New()
	api := r.Group("/api")
	{
		api.POST("/route", h.GetRoute)
		api.POST("/routes/batch", h.GetRoutesBatch)
		api.GET("/cache/info", h.GetCacheInfo)
		api.POST("/cache/clear", h.ClearCache)
		api.GET("/health", h.Health)
	}
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return body
}

// ---------------------------------------------------------------------------
// POST /api/route
// ---------------------------------------------------------------------------

func TestGetRoute_OK(t *testing.T) {
	engine := &fakeEngine{
		responses: map[routing.Profile]*routing.RouteData{
			routing.ProfileCar: {
				DurationMinutes: 5,
				DistanceMeters:  1200,
				Geometry:        json.RawMessage(`{"type":"LineString","coordinates":[[123.7,13.15],[123.71,13.16]]}`),
			},
		},
		failures: map[routing.Profile]error{routing.ProfileFoot: routing.ErrNoRoute},
	}
	r := buildTestRouter(t, engine)

	w := doJSON(t, r, http.MethodPost, "/api/route",
		`{"from":[123.70,13.15],"to":[123.71,13.16],"profiles":["car","foot"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	car, ok := body["car"].(map[string]any)
	if !ok {
		t.Fatalf("car entry missing or wrong shape: %v", body)
	}
	if car["duration"] != float64(5) {
		t.Errorf("car.duration = %v, want 5", car["duration"])
	}
	if car["distance"] != float64(1200) {
		t.Errorf("car.distance = %v, want 1200", car["distance"])
	}
	if _, hasGeometry := car["geometry"]; !hasGeometry {
		t.Error("car.geometry missing")
	}
	if _, hasFoot := body["foot"]; hasFoot {
		t.Error("foot should be absent, not rendered")
	}
	if body["distance_formatted"] != "1.2 km" {
		t.Errorf("distance_formatted = %v, want %q", body["distance_formatted"], "1.2 km")
	}
}

func TestGetRoute_ProfileAliases(t *testing.T) {
	r := buildTestRouter(t, &fakeEngine{})

	w := doJSON(t, r, http.MethodPost, "/api/route",
		`{"from":[123.70,13.15],"to":[123.71,13.16],"profiles":["driving","walking"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	if _, ok := body["car"]; !ok {
		t.Error("alias driving should resolve to car")
	}
	if _, ok := body["foot"]; !ok {
		t.Error("alias walking should resolve to foot")
	}
}

func TestGetRoute_DefaultsToAllProfiles(t *testing.T) {
	r := buildTestRouter(t, &fakeEngine{})

	w := doJSON(t, r, http.MethodPost, "/api/route",
		`{"from":[123.70,13.15],"to":[123.71,13.16]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	for _, p := range []string{"car", "bicycle", "foot"} {
		if _, ok := body[p]; !ok {
			t.Errorf("profile %s missing from default-profile response", p)
		}
	}
}

func TestGetRoute_BadRequests(t *testing.T) {
	r := buildTestRouter(t, &fakeEngine{})

	cases := []struct {
		name string
		body string
	}{
		{name: "empty body", body: ``},
		{name: "missing to", body: `{"from":[123.70,13.15]}`},
		{name: "short pair", body: `{"from":[123.70],"to":[123.71,13.16]}`},
		{name: "unknown profile", body: `{"from":[123.70,13.15],"to":[123.71,13.16],"profiles":["teleport"]}`},
		{name: "out of range longitude", body: `{"from":[200,13.15],"to":[123.71,13.16]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/api/route", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400; body: %s", w.Code, w.Body.String())
			}
		})
	}
}

// ---------------------------------------------------------------------------
// POST /api/routes/batch
// ---------------------------------------------------------------------------

func TestGetRoutesBatch_OK(t *testing.T) {
	r := buildTestRouter(t, &fakeEngine{})

	w := doJSON(t, r, http.MethodPost, "/api/routes/batch",
		`{"segments":[
			{"id":"s1","from":[123.70,13.15],"to":[123.71,13.16]},
			{"id":"s2","from":[123.71,13.16],"to":[123.72,13.17]}
		],"profiles":["car"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	for _, id := range []string{"s1", "s2"} {
		entry, ok := body[id].(map[string]any)
		if !ok {
			t.Fatalf("entry %q missing or wrong shape: %v", id, body)
		}
		if _, ok := entry["car"]; !ok {
			t.Errorf("entry %q missing car route", id)
		}
		if _, ok := entry["distance_formatted"]; !ok {
			t.Errorf("entry %q missing distance_formatted", id)
		}
	}
}

func TestGetRoutesBatch_InvalidSegmentIsIsolated(t *testing.T) {
	r := buildTestRouter(t, &fakeEngine{})

	w := doJSON(t, r, http.MethodPost, "/api/routes/batch",
		`{"segments":[
			{"id":"bad","from":[123.70,95],"to":[123.71,13.16]},
			{"id":"good","from":[123.70,13.15],"to":[123.71,13.16]}
		],"profiles":["car"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	bad, ok := body["bad"].(map[string]any)
	if !ok {
		t.Fatalf("bad entry missing: %v", body)
	}
	if _, hasErr := bad["error"]; !hasErr {
		t.Errorf("bad entry should carry an error field: %v", bad)
	}

	good, ok := body["good"].(map[string]any)
	if !ok {
		t.Fatalf("good entry missing: %v", body)
	}
	if _, hasCar := good["car"]; !hasCar {
		t.Errorf("good entry should be routed: %v", good)
	}
}

func TestGetRoutesBatch_BadRequests(t *testing.T) {
	r := buildTestRouter(t, &fakeEngine{})

	cases := []struct {
		name string
		body string
	}{
		{name: "no segments key", body: `{"profiles":["car"]}`},
		{name: "empty segments", body: `{"segments":[],"profiles":["car"]}`},
		{name: "segment without id", body: `{"segments":[{"from":[1,2],"to":[3,4]}]}`},
		{name: "not json", body: `segments=1`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/api/routes/batch", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400; body: %s", w.Code, w.Body.String())
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Cache endpoints
// ---------------------------------------------------------------------------

func TestCacheInfoAndClear(t *testing.T) {
	r := buildTestRouter(t, &fakeEngine{})

	// Populate one entry, then read stats.
	doJSON(t, r, http.MethodPost, "/api/route",
		`{"from":[123.70,13.15],"to":[123.71,13.16],"profiles":["car"]}`)

	w := doJSON(t, r, http.MethodGet, "/api/cache/info", "")
	if w.Code != http.StatusOK {
		t.Fatalf("cache info status = %d, want 200", w.Code)
	}
	body := decodeBody(t, w)
	if body["size"] != float64(1) {
		t.Errorf("size = %v, want 1", body["size"])
	}
	if body["capacity"] != float64(100) {
		t.Errorf("capacity = %v, want 100", body["capacity"])
	}
	if _, ok := body["hit_rate"].(string); !ok {
		t.Errorf("hit_rate missing or not a string: %v", body["hit_rate"])
	}

	w = doJSON(t, r, http.MethodPost, "/api/cache/clear", "")
	if w.Code != http.StatusOK {
		t.Fatalf("cache clear status = %d, want 200", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/cache/info", "")
	body = decodeBody(t, w)
	if body["size"] != float64(0) {
		t.Errorf("size after clear = %v, want 0", body["size"])
	}
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func TestHealth(t *testing.T) {
	t.Run("engine reachable", func(t *testing.T) {
		r := buildTestRouter(t, &fakeEngine{})
		w := doJSON(t, r, http.MethodGet, "/api/health", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		body := decodeBody(t, w)
		if body["status"] != "ok" {
			t.Errorf("status field = %v, want ok", body["status"])
		}
		if _, ok := body["osrm_services"]; !ok {
			t.Error("osrm_services report missing")
		}
	})

	t.Run("engine down", func(t *testing.T) {
		r := buildTestRouter(t, &fakeEngine{pingErr: routing.ErrEngineUnreachable})
		w := doJSON(t, r, http.MethodGet, "/api/health", "")
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", w.Code)
		}
	})
}

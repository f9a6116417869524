package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/johannbuere/lakbai-routing-api/internal/routing"
	"github.com/johannbuere/lakbai-routing-api/internal/service"
)

// routeRequest is the body of POST /api/route. Coordinates arrive as
// [lon, lat] pairs, matching the GeoJSON order the map clients use.
type routeRequest struct {
	From     []float64 `json:"from" binding:"required,len=2"`
	To       []float64 `json:"to" binding:"required,len=2"`
	Profiles []string  `json:"profiles" binding:"omitempty,dive,transport_profile"`
}

// batchRequest is the body of POST /api/routes/batch.
type batchRequest struct {
	Segments []segmentRequest `json:"segments" binding:"required,min=1,dive"`
	Profiles []string         `json:"profiles" binding:"omitempty,dive,transport_profile"`
}

type segmentRequest struct {
	ID   string    `json:"id" binding:"required"`
	From []float64 `json:"from" binding:"required,len=2"`
	To   []float64 `json:"to" binding:"required,len=2"`
}

// GetRoute handles POST /api/route
//
// Request body:
//
//	{"from":[lon,lat], "to":[lon,lat], "profiles":["car","foot"]}
//
// profiles is optional and defaults to car, bicycle and foot. Aliases
// driving/cycling/walking are accepted.
//
// Response 200:
//
//	{"car":{"duration":5,"distance":1200,"geometry":{...}},
//	 "foot":{...}, "distance_formatted":"1.2 km"}
//
// A profile the engine could not route is simply missing from the response;
// the call still succeeds. Response 400: malformed body, unknown profile, or
// out-of-range coordinates. Response 500: the computation could not run.
func (h *Handler) GetRoute(c *gin.Context) {
	var req routeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	profiles, ok := parseProfiles(c, req.Profiles)
	if !ok {
		return
	}

	res, err := h.routes.GetRoute(c.Request.Context(), coord(req.From), coord(req.To), profiles)
	if err != nil {
		if errors.Is(err, service.ErrRouteUnavailable) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "route unavailable: invalid coordinates"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute route"})
		return
	}

	c.JSON(http.StatusOK, routeResultJSON(res))
}

// GetRoutesBatch handles POST /api/routes/batch
//
// Request body:
//
//	{"segments":[{"id":"s1","from":[lon,lat],"to":[lon,lat]}],
//	 "profiles":["car"]}
//
// Response 200: a mapping from segment ID to the same per-entry shape as
// POST /api/route. Segments whose coordinates fail validation appear as
// {"error":"..."} entries; they never abort the rest of the batch.
// Response 400: malformed body or no segments at all.
func (h *Handler) GetRoutesBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	profiles, ok := parseProfiles(c, req.Profiles)
	if !ok {
		return
	}

	segments := make([]routing.Segment, 0, len(req.Segments))
	for _, s := range req.Segments {
		segments = append(segments, routing.Segment{
			ID:   s.ID,
			From: coord(s.From),
			To:   coord(s.To),
		})
	}

	results, err := h.routes.GetRoutesBatch(c.Request.Context(), segments, profiles)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute batch routes"})
		return
	}

	body := make(gin.H, len(results))
	for id, res := range results {
		body[id] = routeResultJSON(res)
	}
	c.JSON(http.StatusOK, body)
}

// GetCacheInfo handles GET /api/cache/info
//
// Response 200:
//
//	{"size":12,"capacity":1000,"hits":40,"misses":30,"hit_rate":"57.14%"}
//
// capacity 0 means the configured cache backend is unbounded.
func (h *Handler) GetCacheInfo(c *gin.Context) {
	stats, err := h.routes.CacheInfo(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read cache stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"size":     stats.Size,
		"capacity": stats.Capacity,
		"hits":     stats.Hits,
		"misses":   stats.Misses,
		"hit_rate": fmt.Sprintf("%.2f%%", stats.HitRate()*100),
	})
}

// ClearCache handles POST /api/cache/clear
func (h *Handler) ClearCache(c *gin.Context) {
	if err := h.routes.ClearCache(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear cache"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cache cleared"})
}

// Health handles GET /api/health. Returns 200 only when the routing engine
// dependency is reachable; the response lists the configured OSRM endpoints
// so operators can see which instances the service talks to.
func (h *Handler) Health(c *gin.Context) {
	if err := h.routes.EngineHealthy(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "routing engine unreachable",
		})
		return
	}

	body := gin.H{"status": "ok"}
	if h.engineURLs != nil {
		body["osrm_services"] = h.engineURLs
	}
	c.JSON(http.StatusOK, body)
}

// parseProfiles converts the wire profile strings, writing a 400 response
// and returning ok=false on an unknown profile. An empty list is passed
// through; the service defaults it to every profile.
func parseProfiles(c *gin.Context, raw []string) ([]routing.Profile, bool) {
	profiles := make([]routing.Profile, 0, len(raw))
	for _, s := range raw {
		p, err := routing.ParseProfile(s)
		if err != nil {
			// Normally unreachable: the transport_profile binding rule
			// rejects unknown profiles before the handler runs.
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown profile %q", s)})
			return nil, false
		}
		profiles = append(profiles, p)
	}
	return profiles, true
}

// coord converts a bound [lon, lat] pair. Length is guaranteed by binding.
func coord(pair []float64) routing.Coordinate {
	return routing.Coordinate{Lon: pair[0], Lat: pair[1]}
}

// routeResultJSON renders one RouteResult in the wire shape: a key per
// computed profile plus distance_formatted, or an error entry for segments
// that failed validation.
func routeResultJSON(res *routing.RouteResult) gin.H {
	if res.Err != nil {
		return gin.H{"error": "invalid coordinates"}
	}

	body := make(gin.H, len(res.Routes)+1)
	for p, data := range res.Routes {
		body[p.String()] = data
	}
	body["distance_formatted"] = res.DistanceFormatted
	return body
}

// Package handler exposes the routing service over HTTP: single and batched
// route computation, cache introspection, and health.
package handler

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/johannbuere/lakbai-routing-api/internal/routing"
	"github.com/johannbuere/lakbai-routing-api/internal/service"
)

// Handler holds the domain dependencies for all HTTP handlers.
// A single Handler is shared across all route groups; individual methods are
// registered as gin handler functions.
type Handler struct {
	routes *service.RouteService

	// engineURLs is the per-profile OSRM endpoint report included in the
	// health response, keyed by canonical profile name.
	engineURLs map[string]string
}

// New creates a Handler with the given dependencies. engineURLs may be nil
// when the health report should omit the engine endpoints (e.g. in tests).
func New(routes *service.RouteService, engineURLs map[string]string) *Handler {
	return &Handler{routes: routes, engineURLs: engineURLs}
}

// init registers the transport_profile rule on gin's binding validator so
// request structs can reject unknown profiles at bind time.
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("transport_profile", func(fl validator.FieldLevel) bool {
			_, err := routing.ParseProfile(fl.Field().String())
			return err == nil
		})
	}
}

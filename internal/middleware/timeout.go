// Package middleware holds the gin middleware the routing API mounts on
// every request: deadlines and CORS.
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Timeout attaches a deadline to the request context and runs the handler
// chain synchronously. Handlers and the clients below them (cache queries,
// engine calls) observe the deadline through context propagation; batch
// computation stops waiting when it fires.
//
// If the deadline expired and the handler exited without writing a response,
// a 503 is sent. A handler that blocks without checking its context cannot
// be interrupted, but every blocking call in this service propagates the
// context down to the HTTP/DB level.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if ctx.Err() != nil && !c.Writer.Written() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "request timed out",
			})
		}
	}
}

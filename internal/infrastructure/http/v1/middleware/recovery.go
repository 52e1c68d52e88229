// Package middleware provides HTTP middleware components.
package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"txproxy/internal/core/apperror"
	appctx "txproxy/internal/core/context"
	"txproxy/pkg/logger"
)

// Recovery turns a panic in a handler or a scenario body into a 500 response.
// It is installed first, so it reads the request context that Trace and
// Logger attached further down the chain. Clients see the trace and request
// ids and the route, never the panic value.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			ctx := c.Request.Context()
			route := c.FullPath()
			scenario := c.Param("name")

			logger.Error(ctx, "panic recovered",
				"panic", rec,
				"method", c.Request.Method,
				"route", route,
				"scenario", scenario,
				"stack", string(debug.Stack()),
			)

			cause := fmt.Errorf("panic in %s %s: %v", c.Request.Method, route, rec)
			if err, ok := rec.(error); ok {
				cause = fmt.Errorf("panic in %s %s: %w", c.Request.Method, route, err)
			}

			appErr := apperror.NewInternal(cause).WithDetail("route", route)
			if trace := appctx.GetTrace(ctx); trace != nil {
				appErr = appErr.
					WithDetail("trace_id", trace.TraceID).
					WithDetail("request_id", trace.RequestID)
			}
			if scenario != "" {
				appErr = appErr.WithDetail("scenario", scenario)
			}

			_ = c.Error(appErr)
			c.Abort()
			writeError(c)
		}()
		c.Next()
	}
}

// Package handlers provides HTTP handler implementations for the public API.
//
// This file is the framework boundary for route errors. Handlers return
// (status, body, error); handle() writes successes and hands failures to
// fail(), which resolves them to an apierror.Renderer and writes the
// canonical error object.
//
// Conventions:
//   - Route logic never writes error responses itself; it returns an error.
//   - Errors that are already apierror values render as they are. Anything
//     else goes through the package bridge (see errors.go) and defaults to 500.
//   - fail() is where 5xx responses are logged, counted and marked on the
//     active span. The apierror package itself has no side effects.
//
// Example error response:
//
//	HTTP/1.1 404 Not Found
//	{ "error": "The resource was not found", "id": "2f1c…" }
//
// Example success response:
//
//	HTTP/1.1 201 Created
//	{ "id": "2f1c…", "username": "alice", … }
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-route-errors/internal/apierror"
	"github.com/tbourn/go-route-errors/internal/http/middleware"
	"github.com/tbourn/go-route-errors/internal/observability"
)

// routeFunc is route logic. A nil body with a nil error writes status with
// no body.
type routeFunc func(c *gin.Context) (status int, body any, err error)

// handle adapts fn to gin, rendering failures for public consumption.
func handle(fn routeFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, body, err := fn(c)
		if err != nil {
			fail(c, err)
			return
		}
		if body == nil {
			c.Status(status)
			return
		}
		ok(c, status, body)
	}
}

// handleInternal is handle for trusted routes: failures that are not already
// route errors render with an "internal_error" detail.
func handleInternal(fn routeFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, body, err := fn(c)
		if err != nil {
			write(c, bridge.ResolveInternal(err), err)
			return
		}
		if body == nil {
			c.Status(status)
			return
		}
		ok(c, status, body)
	}
}

// fail aborts the request with the canonical error object for err.
func fail(c *gin.Context, err error) {
	write(c, bridge.Resolve(err), err)
}

// Fail is the exported variant of fail().
//
// External packages (e.g., router setup) should call Fail to return
// consistent error objects without depending on unexported helpers.
func Fail(c *gin.Context, err error) { fail(c, err) }

// write renders r, records server faults and aborts the request.
func write(c *gin.Context, r apierror.Renderer, err error) {
	status, body, renderErr := r.Render()
	kind := apierror.KindOf(status)
	lg := middleware.LoggerFrom(c)

	if renderErr != nil {
		lg.Error().Err(renderErr).Int("intended_status", r.Status()).Msg("api error payload could not be rendered")
		err = errors.Join(err, renderErr)
	}

	// Log 5xx (server-side) with request-scoped logger
	if status >= http.StatusInternalServerError {
		ev := lg.Error().
			Int("status", status).
			Str("kind", string(kind)).
			Interface("message", body[apierror.ErrorKey])
		if err != nil {
			ev = ev.Str("error", middleware.ErrorText(c, err))
		}
		ev.Msg("api error")
		observability.MarkSpanError(c.Request.Context(), status, err)
	}
	if err != nil {
		_ = c.Error(err)
	}
	middleware.ObserveError(status, string(kind))

	c.Header("Cache-Control", "no-store")
	c.AbortWithStatusJSON(status, body)
}

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// badJSON converts a request binding failure. Oversized bodies keep their
// own mapping; everything else is a 400.
func badJSON(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return apierror.BadRequest().WithMessage("invalid JSON body").WithCause(err)
}

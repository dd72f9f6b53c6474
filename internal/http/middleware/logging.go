// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides request IDs, structured access logs, and panic recovery.
//
//   - RequestID() reuses or generates X-Request-ID and stores it in the context.
//   - Logger() attaches a request-scoped zerolog.Logger under the "logger" key
//     and emits one access log per request, leveled by status.
//   - Recovery() turns a panic into the canonical 500 error object.
//   - LoggerFrom() returns the request-scoped logger, or the global one.
//
// Recommended order: RequestID, Logger (or RedactingLogger), Recovery.
package middleware

import (
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-route-errors/internal/apierror"
)

const (
	requestIDKey    = "requestID"
	requestIDHeader = "X-Request-ID"
	loggerKey       = "logger"

	// maxQueryLogLength caps the bytes of the raw query string that are logged.
	maxQueryLogLength = 2048
)

// RequestID attaches (or propagates) a correlation identifier per request.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// Logger writes a structured access log for each request.
//
// Level is error for 5xx, warn for 4xx and info otherwise. Errors recorded
// with c.Error are attached under "errors" at any level; they are the raw
// causes of route errors and never reach the client.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		l := requestLogger(c).With().
			Str("user_agent", c.Request.UserAgent()).
			Str("referer", c.Request.Referer()).
			Str("query", truncate(c.Request.URL.RawQuery, maxQueryLogLength)).
			// -1 when unknown
			Int64("bytes_in", c.Request.ContentLength).
			Logger()
		c.Set(loggerKey, &l)

		c.Next()

		status := c.Writer.Status()
		ev := levelFor(&l, status)
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.Int("status", status).
			Dur("latency", time.Since(start)).
			Int("bytes_out", c.Writer.Size()).
			Msg("request")
	}
}

// Recovery converts panics into the canonical 500 error object and logs the
// panic value with a stack trace.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			LoggerFrom(c).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(c.Writer.Status())
				return
			}
			e := apierror.InternalServer()
			status, body, _ := e.Render()
			ObserveError(status, string(e.Kind()))
			c.Header("Cache-Control", "no-store")
			c.AbortWithStatusJSON(status, body)
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped zerolog.Logger. Without one, the
// global logger is returned, so callers never need a nil check.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

// requestLogger builds a logger carrying the fields shared by both access
// loggers.
func requestLogger(c *gin.Context) zerolog.Logger {
	uid, _ := c.Get("userID")
	return log.With().
		Str("request_id", requestIDOf(c)).
		Str("user_id", asString(uid)).
		Str("method", c.Request.Method).
		Str("path", routePath(c)).
		Str("remote_ip", c.ClientIP()).
		Logger()
}

// requestIDOf prefers the ID set by RequestID, then the response header, then
// the incoming header.
func requestIDOf(c *gin.Context) string {
	if rid, ok := c.Get(requestIDKey); ok {
		if s := asString(rid); s != "" {
			return s
		}
	}
	if rid := c.Writer.Header().Get(requestIDHeader); rid != "" {
		return rid
	}
	return c.GetHeader(requestIDHeader)
}

func levelFor(l *zerolog.Logger, status int) *zerolog.Event {
	switch {
	case status >= 500:
		return l.Error()
	case status >= 400:
		return l.Warn()
	default:
		return l.Info()
	}
}

// routePath is the registered route, or the raw path when none matched.
func routePath(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// truncate cuts s to max bytes plus an ellipsis. max <= 0 disables it.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

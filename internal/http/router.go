// Package httpapi wires the Gin transport to the user service, middleware
// and handlers. Every failure path it owns (unknown route, wrong method,
// panic, rate limit, oversized body, disallowed origin) answers with the same error object as
// the handlers do: {"error": "<message>", ...}.
package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-route-errors/docs"
	"github.com/tbourn/go-route-errors/internal/apierror"
	"github.com/tbourn/go-route-errors/internal/config"
	"github.com/tbourn/go-route-errors/internal/domain"
	"github.com/tbourn/go-route-errors/internal/http/handlers"
	"github.com/tbourn/go-route-errors/internal/http/middleware"
	"github.com/tbourn/go-route-errors/internal/repo"
	"github.com/tbourn/go-route-errors/internal/services"
)

// userRepoShim adapts the repo free functions to services.UserRepo.
type userRepoShim struct{}

func (userRepoShim) CreateUser(ctx context.Context, db *gorm.DB, username, email, role string) (*domain.User, error) {
	return repo.CreateUser(ctx, db, username, email, role)
}

func (userRepoShim) GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	return repo.GetUser(ctx, db, id)
}

func (userRepoShim) CountUsers(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountUsers(ctx, db)
}

func (userRepoShim) ListUsersPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.User, error) {
	return repo.ListUsersPage(ctx, db, offset, limit)
}

func (userRepoShim) DeleteUser(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteUser(ctx, db, id)
}

// RegisterRoutes attaches middleware and endpoints to r.
//
// Middleware order:
//  1. OpenTelemetry
//  2. RequestID
//  3. Logger or RedactingLogger (LOG_REDACT)
//  4. Recovery
//  5. Body size limit
//  6. Gzip (GZIP_ENABLED)
//  7. Metrics
//  8. Rate limiter
//  9. Origin allowlist, CORS and security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	if cfg.LogRedact {
		r.Use(middleware.RedactingLogger(middleware.RedactOptions{
			MaskHeaders: []string{"X-API-Key"},
		}))
	} else {
		r.Use(middleware.Logger())
	}
	r.Use(middleware.Recovery())
	r.Use(limitBody(cfg.MaxBodyBytes))
	if cfg.GzipEnabled {
		r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	}

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	r.Use(rejectOrigins(cfg.CORS.AllowedOrigins))
	r.Use(cors.New(corsConfig(cfg.CORS)))
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, apierror.NotFound())
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, apierror.New(http.StatusMethodNotAllowed))
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(services.NewUserService(db, userRepoShim{}))

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.POST("/users", h.CreateUser)
		api.GET("/users", h.ListUsers)
		api.GET("/users/:id", h.GetUser)
		api.DELETE("/users/:id", h.DeleteUser)
	}

	if cfg.ExposeInternalErrors {
		internal := r.Group("/internal")
		internal.GET("/users/:id", h.InternalGetUser)
	}
}

// corsConfig allows every origin when no allowlist is configured.
// Credentials stay off in both cases.
func corsConfig(c config.CORSConfig) cors.Config {
	cc := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", "If-None-Match"},
		ExposeHeaders: []string{"X-Request-ID", "ETag", "Retry-After", "Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(c.AllowedOrigins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = c.AllowedOrigins
	}
	return cc
}

// rejectOrigins answers cross-origin requests from origins outside allowed
// with a 403 error object. gin-contrib/cors would abort them with an empty
// body. An empty allowlist allows every origin.
func rejectOrigins(allowed []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if len(allowed) == 0 || origin == "" || sameOrigin(origin, c.Request.Host) {
			c.Next()
			return
		}
		for _, a := range allowed {
			if strings.EqualFold(a, origin) {
				c.Next()
				return
			}
		}
		handlers.Fail(c, apierror.Forbidden().WithMessage(errOriginNotAllowed))
	}
}

const errOriginNotAllowed = "origin not allowed"

// sameOrigin mirrors the check gin-contrib/cors uses to skip CORS handling.
func sameOrigin(origin, host string) bool {
	return origin == "http://"+host || origin == "https://"+host
}

// limitBody caps request bodies at maxBytes. Reads past the cap fail with
// *http.MaxBytesError, which the handlers render as 413.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

// Package server assembles the HTTP API: middleware chain, route wiring, and
// the http.Server lifecycle.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	authhandler "asset-manager/backend/internal/auth/handler"
	healthhandler "asset-manager/backend/internal/health/handler"
	"asset-manager/backend/internal/platform/rbac"
	"asset-manager/backend/internal/server/middleware"
	userhandler "asset-manager/backend/internal/user/handler"
)

// Options configures the router beyond its handlers.
type Options struct {
	// ServiceName labels traces emitted by the otelgin middleware.
	ServiceName string
	// AllowedOrigins enables the CORS layer for the SPA when non-empty.
	AllowedOrigins []string
	// Production switches gin to release mode.
	Production bool
}

// NewRouter builds the gin engine with the full middleware chain. Order
// matters: recovery outermost, then tracing, CORS, and the same-origin guard
// ahead of any route that touches auth state.
func NewRouter(
	opts Options,
	auth *authhandler.AuthHandler,
	users *userhandler.UserHandler,
	health *healthhandler.HealthHandler,
	guard *rbac.Guard,
) *gin.Engine {
	if opts.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(opts.ServiceName))

	health.Register(r)

	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
			AllowHeaders:     []string{"Content-Type"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.Use(middleware.SameOrigin())

	auth.Register(r, guard)
	users.Register(r, guard)

	return r
}

// New wraps the router in an http.Server with sane timeouts.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Shutdown drains the server with a bounded grace period.
func Shutdown(srv *http.Server, grace time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	return srv.Shutdown(ctx)
}

// Package server builds the HTTP router and wires handlers to services.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	authhandler "vendhub/backend/internal/auth/handler"
	authservice "vendhub/backend/internal/auth/service"
	"vendhub/backend/internal/metrics"
	"vendhub/backend/internal/mfa"
	mfahandler "vendhub/backend/internal/mfa/handler"
)

// Pinger reports backend readiness (e.g. *sql.DB).
type Pinger interface {
	Ping() error
}

// Deps holds the dependencies for the HTTP router.
type Deps struct {
	// Logger is required.
	Logger *zap.Logger
	// Auth is the auth service behind /auth/*. Required.
	Auth *authservice.AuthService
	// Metrics holds the auth counters. If nil, counters are created on
	// Registry (or a private registry when that is nil too).
	Metrics *metrics.Metrics
	// Registry is the Prometheus registry served at /metrics. If nil, a new
	// one is created.
	Registry *prometheus.Registry
	// DB is pinged by /healthz. If nil, the readiness check skips the DB.
	DB Pinger
	// MFASecrets backs the /mfa/* routes. If nil, they are not registered
	// (no vault key configured).
	MFASecrets *mfa.SecretStore
}

// NewRouter returns the gin engine with all routes registered.
//
// Route → handler mapping:
//   - POST /auth/login      → internal/auth/handler
//   - POST /auth/refresh    → internal/auth/handler
//   - POST /auth/logout     → internal/auth/handler
//   - POST /auth/logout-all → internal/auth/handler
//   - POST /mfa/enroll, /mfa/unenroll, GET /mfa/status/:user_id
//     → internal/mfa/handler (only when MFASecrets is set)
//   - GET  /healthz         → readiness (DB ping)
//   - GET  /metrics         → Prometheus
func NewRouter(deps Deps) *gin.Engine {
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New(deps.Registry)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(deps.Logger))

	auth := authhandler.NewAuthHandler(deps.Logger, deps.Auth, deps.Metrics)
	router.POST("/auth/login", auth.Login)
	router.POST("/auth/refresh", auth.Refresh)
	router.POST("/auth/logout", auth.Logout)
	router.POST("/auth/logout-all", auth.LogoutAll)

	if deps.MFASecrets != nil {
		mfaH := mfahandler.NewMFAHandler(deps.Logger, deps.MFASecrets)
		router.POST("/mfa/enroll", mfaH.Enroll)
		router.POST("/mfa/unenroll", mfaH.Unenroll)
		router.GET("/mfa/status/:user_id", mfaH.Status)
	}

	router.GET("/healthz", func(c *gin.Context) {
		if deps.DB != nil {
			if err := deps.DB.Ping(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))

	return router
}

// requestLogger logs method, path, and status for each request. Bodies are
// never logged; they carry credentials and tokens.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
		)
	}
}

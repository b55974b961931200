// Package handler exposes the session core over HTTP JSON.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"vendhub/backend/internal/auth/service"
	"vendhub/backend/internal/metrics"
)

// AuthHandler handles login, refresh, and logout HTTP requests.
type AuthHandler struct {
	logger  *zap.Logger
	auth    *service.AuthService
	metrics *metrics.Metrics
}

// NewAuthHandler returns an AuthHandler. m may be nil; counters are then
// registered on a throwaway registry.
func NewAuthHandler(logger *zap.Logger, auth *service.AuthService, m *metrics.Metrics) *AuthHandler {
	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}
	return &AuthHandler{logger: logger.Named("auth_handler"), auth: auth, metrics: m}
}

type loginRequest struct {
	Username    string `json:"username" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DeviceLabel string `json:"device_label"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type logoutRequest struct {
	SessionID    string `json:"session_id"`
	RefreshToken string `json:"refresh_token"`
}

type logoutAllRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

type tokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	SessionID    string    `json:"session_id"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// One body for every authentication failure; wrong user, wrong password,
// unknown token, and expired session must be indistinguishable.
var errUnauthorized = gin.H{"error": "invalid credentials or session"}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.metrics.Logins.WithLabelValues(metrics.OutcomeDenied).Inc()
		c.JSON(http.StatusUnauthorized, errUnauthorized)
		return
	}
	res, err := h.auth.Login(c.Request.Context(), req.Username, req.Password, req.DeviceLabel)
	if err != nil {
		h.fail(c, err, h.metrics.Logins)
		return
	}
	h.metrics.Logins.WithLabelValues(metrics.OutcomeOK).Inc()
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		SessionID:    res.SessionID,
		ExpiresAt:    res.ExpiresAt,
	})
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.metrics.Refreshes.WithLabelValues(metrics.OutcomeDenied).Inc()
		c.JSON(http.StatusUnauthorized, errUnauthorized)
		return
	}
	res, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.fail(c, err, h.metrics.Refreshes)
		return
	}
	h.metrics.Refreshes.WithLabelValues(metrics.OutcomeOK).Inc()
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		SessionID:    res.SessionID,
		ExpiresAt:    res.ExpiresAt,
	})
}

// Logout handles POST /auth/logout. Always 204 on well-formed input:
// deactivation is idempotent and must not leak whether anything matched.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req logoutRequest
	if err := c.ShouldBindJSON(&req); err != nil || (req.SessionID == "" && req.RefreshToken == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id or refresh_token is required"})
		return
	}
	if err := h.auth.Logout(c.Request.Context(), req.SessionID, req.RefreshToken); err != nil {
		h.storageFailure(c, err)
		return
	}
	h.metrics.Logouts.Inc()
	c.Status(http.StatusNoContent)
}

// LogoutAll handles POST /auth/logout-all.
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	var req logoutAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	if err := h.auth.LogoutAll(c.Request.Context(), req.UserID); err != nil {
		h.storageFailure(c, err)
		return
	}
	h.metrics.Logouts.Inc()
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) fail(c *gin.Context, err error, counter *prometheus.CounterVec) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidOrExpiredSession):
		counter.WithLabelValues(metrics.OutcomeDenied).Inc()
		c.JSON(http.StatusUnauthorized, errUnauthorized)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		counter.WithLabelValues(metrics.OutcomeError).Inc()
		c.Status(http.StatusRequestTimeout)
	default:
		counter.WithLabelValues(metrics.OutcomeError).Inc()
		h.storageFailure(c, err)
	}
}

func (h *AuthHandler) storageFailure(c *gin.Context, err error) {
	h.logger.Error("auth request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// Package handler exposes two-factor secret enrollment over HTTP JSON.
// Intended for the surrounding application, not for end users directly.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vendhub/backend/internal/mfa"
	"vendhub/backend/internal/vault"
)

// MFAHandler handles enroll/unenroll of two-factor secrets.
type MFAHandler struct {
	logger  *zap.Logger
	secrets *mfa.SecretStore
}

// NewMFAHandler returns an MFAHandler.
func NewMFAHandler(logger *zap.Logger, secrets *mfa.SecretStore) *MFAHandler {
	return &MFAHandler{logger: logger.Named("mfa_handler"), secrets: secrets}
}

type enrollRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Secret string `json:"secret" binding:"required"`
}

type unenrollRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// Enroll handles POST /mfa/enroll: stores the secret encrypted at rest.
func (h *MFAHandler) Enroll(c *gin.Context) {
	var req enrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and secret are required"})
		return
	}
	if err := h.secrets.Save(c.Request.Context(), req.UserID, req.Secret); err != nil {
		h.logger.Error("mfa enroll failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Unenroll handles POST /mfa/unenroll.
func (h *MFAHandler) Unenroll(c *gin.Context) {
	var req unenrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	if err := h.secrets.Remove(c.Request.Context(), req.UserID); err != nil {
		h.logger.Error("mfa unenroll failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Status handles GET /mfa/status/:user_id: reports whether the user is
// enrolled. The decrypted secret is never returned over HTTP; a vault
// integrity failure surfaces as a 500, never as "not enrolled".
func (h *MFAHandler) Status(c *gin.Context) {
	userID := c.Param("user_id")
	_, err := h.secrets.Get(c.Request.Context(), userID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"enrolled": true})
	case errors.Is(err, mfa.ErrNotEnrolled):
		c.JSON(http.StatusOK, gin.H{"enrolled": false})
	case errors.Is(err, vault.ErrDecryptionFailed):
		h.logger.Error("mfa secret failed decryption", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	default:
		h.logger.Error("mfa status failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

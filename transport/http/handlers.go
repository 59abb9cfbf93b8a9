package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/medilocker/medigate/core"
	"github.com/medilocker/medigate/service"
)

// AuthHandlers contains HTTP handlers for auth endpoints.
type AuthHandlers struct {
	authService *service.AuthService
}

// NewAuthHandlers creates new auth handlers.
func NewAuthHandlers(authService *service.AuthService) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
	}
}

// Challenge handles the challenge request.
func (h *AuthHandlers) Challenge(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	challenge, err := h.authService.RequestChallenge(c.Request.Context(), req.Address)
	if err != nil {
		if errors.Is(err, core.ErrInvalidAddress) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet address"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create challenge"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"nonce": challenge.Nonce})
}

// Verify handles the verify request.
func (h *AuthHandlers) Verify(c *gin.Context) {
	var req struct {
		Address   string `json:"address" binding:"required"`
		Signature string `json:"signature" binding:"required"`
		Nonce     string `json:"nonce" binding:"required"`
		LoginAs   string `json:"login_as"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing parameters"})
		return
	}

	role, err := core.ParseRole(req.LoginAs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role"})
		return
	}

	v, err := h.authService.Verify(c.Request.Context(), req.Address, req.Signature, req.Nonce, role)
	if err != nil {
		status := http.StatusInternalServerError
		msg := "Authentication failed"

		switch {
		case errors.Is(err, core.ErrInvalidAddress):
			status = http.StatusBadRequest
			msg = "Invalid wallet address"
		case errors.Is(err, core.ErrInvalidSignature),
			errors.Is(err, core.ErrChallengeMismatch),
			errors.Is(err, core.ErrChallengeReplayed):
			// All credential failures collapse to one message.
			status = http.StatusUnauthorized
			msg = "Invalid signature"
		case errors.Is(err, core.ErrAccountProvisioning):
			msg = "Failed to create user"
		case errors.Is(err, core.ErrSessionCreation):
			msg = "Failed to create session"
		}

		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":        v.Session.AccessToken,
		"refresh_token":       v.Session.RefreshToken,
		"is_new_user":         v.IsNewAccount,
		"onboarding_complete": v.OnboardingComplete,
		"login_as":            v.GrantedRole.String(),
	})
}

// Me returns information about the authenticated user.
func (h *AuthHandlers) Me(c *gin.Context) {
	address, exists := c.Get("userAddress")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}
	accountID, exists := c.Get("accountID")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address":    address,
		"account_id": accountID,
	})
}

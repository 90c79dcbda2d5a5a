package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Pragadees15/sport-backend/pkg/models"
)

// handleRegister creates a user account with a seeded token balance
func (s *Server) handleRegister(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("invalid request: %w", err))
		return
	}

	user, err := s.identitiesSvc.Register(c.Request.Context(), &req)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusCreated, user)
}

// handleLogin authenticates by email or username
func (s *Server) handleLogin(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("invalid request: %w", err))
		return
	}

	resp, err := s.identitiesSvc.Login(c.Request.Context(), &req)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, resp)
}

// handleRefreshToken exchanges a refresh token for a new token pair
func (s *Server) handleRefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("invalid request: %w", err))
		return
	}

	resp, err := s.identitiesSvc.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, resp)
}

// handleLogout revokes the presented access token
func (s *Server) handleLogout(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if err := s.identitiesSvc.Logout(c.Request.Context(), token); err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, gin.H{"message": "logged out"})
}

// handle2FAEnable starts TOTP enrollment for the current user
func (s *Server) handle2FAEnable(c *gin.Context) {
	setup, err := s.identitiesSvc.Enable2FA(c.Request.Context(), s.currentUserID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, setup)
}

// handle2FAVerifySetup confirms TOTP enrollment with a first code
func (s *Server) handle2FAVerifySetup(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required,len=6,numeric"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("invalid request: %w", err))
		return
	}

	if err := s.identitiesSvc.Verify2FASetup(c.Request.Context(), s.currentUserID(c), req.Token); err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, gin.H{"message": "2fa enabled"})
}

// handle2FALogin completes a login that required a TOTP code
func (s *Server) handle2FALogin(c *gin.Context) {
	var req models.TwoFAVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("invalid request: %w", err))
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid user id"))
		return
	}

	resp, err := s.identitiesSvc.Verify2FA(c.Request.Context(), userID, req.Token)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, resp)
}

// handle2FADisable turns TOTP off after verifying a final code
func (s *Server) handle2FADisable(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required,len=6,numeric"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("invalid request: %w", err))
		return
	}

	if err := s.identitiesSvc.Disable2FA(c.Request.Context(), s.currentUserID(c), req.Token); err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, gin.H{"message": "2fa disabled"})
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/quizdesk-portal/internal/middleware"
	"github.com/stemsi/quizdesk-portal/internal/model"
	"github.com/stemsi/quizdesk-portal/internal/response"
	"github.com/stemsi/quizdesk-portal/internal/service"
)

// AuthHandler handles sign in, sign out and account settings.
type AuthHandler struct {
	authService     *service.AuthService
	settingsService *service.SettingsService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, settingsService *service.SettingsService) *AuthHandler {
	return &AuthHandler{
		authService:     authService,
		settingsService: settingsService,
	}
}

// Login godoc
// POST /api/v1/auth/login
// Authenticates against the backend and returns a portal token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if !bind(c, &req) {
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// Register godoc
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if !bind(c, &req) {
		return
	}

	if err := h.authService.Register(c.Request.Context(), req); err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"email": req.Email})
}

// Logout godoc
// POST /api/v1/auth/logout
// Ends the session for every tab that shares it.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.authService.Logout(c.Request.Context(), claims.SessionID); err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// Me godoc
// GET /api/v1/auth/me
// Returns the session's user snapshot, role and capabilities.
func (h *AuthHandler) Me(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user":         rec.User,
		"role":         rec.Role,
		"capabilities": rec.Capabilities,
	})
}

// UpdateName godoc
// PATCH /api/v1/auth/name
func (h *AuthHandler) UpdateName(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}
	var req model.UpdateNameRequest
	if !bind(c, &req) {
		return
	}

	snap, err := h.settingsService.UpdateName(c.Request.Context(), rec, req)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": snap})
}

// UpdateEmail godoc
// PATCH /api/v1/auth/email
func (h *AuthHandler) UpdateEmail(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}
	var req model.UpdateEmailRequest
	if !bind(c, &req) {
		return
	}

	snap, err := h.settingsService.UpdateEmail(c.Request.Context(), rec, req)
	if err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": snap})
}

// UpdatePassword godoc
// PATCH /api/v1/auth/password
func (h *AuthHandler) UpdatePassword(c *gin.Context) {
	rec, ok := currentSession(c)
	if !ok {
		return
	}
	var req model.UpdatePasswordRequest
	if !bind(c, &req) {
		return
	}

	if err := h.settingsService.UpdatePassword(c.Request.Context(), rec, req); err != nil {
		failWith(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

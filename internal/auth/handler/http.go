// Package handler exposes the authentication HTTP API: login, bootstrap,
// logout, current-user, and password change. Handlers translate service
// errors to HTTP statuses; messages stay generic so responses never reveal
// whether an email exists or a token was close to valid.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"asset-manager/backend/internal/auth/service"
	"asset-manager/backend/internal/platform/rbac"
	sessiondomain "asset-manager/backend/internal/session/domain"
	sessionsvc "asset-manager/backend/internal/session/service"
)

// AuthHandler serves /api/auth.
type AuthHandler struct {
	svc          *service.AuthService
	secureCookie bool
}

// NewAuthHandler returns an AuthHandler. secureCookie must be true in
// production so the session cookie is only sent over TLS.
func NewAuthHandler(svc *service.AuthService, secureCookie bool) *AuthHandler {
	return &AuthHandler{svc: svc, secureCookie: secureCookie}
}

// Register mounts the auth routes. guard protects the authenticated ones.
func (h *AuthHandler) Register(r gin.IRouter, guard *rbac.Guard) {
	auth := r.Group("/api/auth")
	auth.POST("/login", h.Login)
	auth.PATCH("/login", h.BootstrapPassword)
	auth.POST("/logout", h.Logout)
	auth.GET("/me", guard.RequireAuth(), h.Me)
	auth.PATCH("/password", guard.RequireAuth(), h.ChangePassword)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required."})
		return
	}
	res, err := h.svc.Login(c.Request.Context(), req.Email, req.Password, clientMeta(c))
	if err != nil {
		var limited *service.RateLimitedError
		if errors.As(err, &limited) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":        "Too many failed attempts. Try again later.",
				"blockedUntil": limited.Until,
			})
			return
		}
		var invalid *service.InvalidCredentialsError
		if errors.As(err, &invalid) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":             "Invalid credentials.",
				"remainingAttempts": invalid.Remaining,
			})
			return
		}
		internalError(c, err)
		return
	}
	h.setSessionCookie(c, res.Token, res.ExpiresAt)
	c.JSON(http.StatusOK, gin.H{"user": userResponse{
		ID:    res.User.ID,
		Name:  res.User.Name,
		Email: res.User.Email,
		Role:  string(res.User.Role),
	}})
}

type bootstrapRequest struct {
	Email       string `json:"email" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
	SetupSecret string `json:"setupSecret"`
}

// BootstrapPassword handles PATCH /api/auth/login: sets the first secure
// password for a provisioned user, gated by the out-of-band setup secret.
func (h *AuthHandler) BootstrapPassword(c *gin.Context) {
	var req bootstrapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and new password are required."})
		return
	}
	user, err := h.svc.BootstrapPassword(c.Request.Context(), req.Email, req.NewPassword, req.SetupSecret, c.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBadBootstrapSecret):
			c.JSON(http.StatusForbidden, gin.H{"error": "Invalid bootstrap secret."})
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown email."})
		default:
			var weak *service.WeakPasswordError
			if errors.As(err, &weak) {
				c.JSON(http.StatusBadRequest, gin.H{"error": weak.Reason})
				return
			}
			internalError(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Password updated.",
		"user":    userResponse{ID: user.ID, Name: user.Name, Email: user.Email, Role: string(user.Role)},
	})
}

// Logout handles POST /api/auth/logout. The cookie is cleared whether or not
// a session existed; revocation is idempotent.
func (h *AuthHandler) Logout(c *gin.Context) {
	token, _ := c.Cookie(sessiondomain.CookieName)
	if err := h.svc.Logout(c.Request.Context(), token, c.ClientIP()); err != nil {
		internalError(c, err)
		return
	}
	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out."})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := rbac.UserFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  string(user.Role),
	}})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

// ChangePassword handles PATCH /api/auth/password. On success every session
// for the user is already revoked, so the caller's cookie is cleared and they
// must log in again.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user, ok := rbac.UserFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized."})
		return
	}
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "currentPassword and newPassword are required."})
		return
	}
	err := h.svc.ChangePassword(c.Request.Context(), user.ID, req.CurrentPassword, req.NewPassword, c.ClientIP())
	if err != nil {
		var weak *service.WeakPasswordError
		var invalid *service.InvalidCredentialsError
		switch {
		case errors.As(err, &weak):
			c.JSON(http.StatusBadRequest, gin.H{"error": weak.Reason})
		case errors.As(err, &invalid):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Current password is incorrect."})
		case errors.Is(err, service.ErrSamePassword):
			c.JSON(http.StatusBadRequest, gin.H{"error": "New password must be different from current password."})
		case errors.Is(err, service.ErrPasswordUnset):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password record not found."})
		default:
			internalError(c, err)
		}
		return
	}
	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully. Please log in again."})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string, expiresAt time.Time) {
	c.SetSameSite(http.SameSiteLaxMode)
	maxAge := int(time.Until(expiresAt).Seconds())
	c.SetCookie(sessiondomain.CookieName, token, maxAge, "/", "", h.secureCookie, true)
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessiondomain.CookieName, "", -1, "/", "", h.secureCookie, true)
}

func clientMeta(c *gin.Context) sessionsvc.ClientMeta {
	return sessionsvc.ClientMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// internalError hides store/hash failures from the client; detail goes to the
// server log only.
func internalError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error."})
}

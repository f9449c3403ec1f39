// Package handler exposes the user administration HTTP API under
// /api/master/users.
package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	auditpkg "asset-manager/backend/internal/audit"
	auditdomain "asset-manager/backend/internal/audit/domain"
	authsvc "asset-manager/backend/internal/auth/service"
	"asset-manager/backend/internal/platform/rbac"
	"asset-manager/backend/internal/security"
	"asset-manager/backend/internal/user/domain"
	"asset-manager/backend/internal/user/repository"
)

// UserHandler serves the user master listing and creation endpoints.
type UserHandler struct {
	repo   repository.Repository
	hasher *security.PasswordHasher
	audit  *auditpkg.Logger
	nowFn  func() time.Time
}

// NewUserHandler returns a UserHandler. audit may be nil.
func NewUserHandler(repo repository.Repository, hasher *security.PasswordHasher, audit *auditpkg.Logger) *UserHandler {
	return &UserHandler{repo: repo, hasher: hasher, audit: audit, nowFn: time.Now}
}

// Register mounts the user routes behind role checks. Auditors can see
// nothing here; listing is open to admins and managers, creation to super
// admins and IT managers only.
func (h *UserHandler) Register(r gin.IRouter, guard *rbac.Guard) {
	users := r.Group("/api/master/users")
	users.GET("",
		guard.RequireRole(domain.RoleSuperAdmin, domain.RoleITAdmin, domain.RoleITManager),
		h.List)
	users.POST("",
		guard.RequireRole(domain.RoleSuperAdmin, domain.RoleITManager),
		h.Create)
	users.PATCH("/:id",
		guard.RequireRole(domain.RoleSuperAdmin, domain.RoleITManager),
		h.Update)
}

type userResponse struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Role              string     `json:"role"`
	PasswordUpdatedAt *time.Time `json:"passwordUpdatedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		Role:              string(u.Role),
		PasswordUpdatedAt: u.PasswordUpdatedAt,
		CreatedAt:         u.CreatedAt,
	}
}

// List handles GET /api/master/users.
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.repo.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error."})
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

type createUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Role     string `json:"role" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Create handles POST /api/master/users.
func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, email, role, and password are required."})
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role."})
		return
	}
	if err := authsvc.ValidatePasswordPolicy(req.Password); err != nil {
		var weak *authsvc.WeakPasswordError
		if errors.As(err, &weak) {
			c.JSON(http.StatusBadRequest, gin.H{"error": weak.Reason})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password does not meet policy."})
		return
	}
	hash, err := h.hasher.Hash(req.Password)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error."})
		return
	}

	now := h.nowFn()
	user := &domain.User{
		ID:                uuid.NewString(),
		Name:              req.Name,
		Email:             domain.NormalizeEmail(req.Email),
		Role:              role,
		PasswordHash:      hash,
		PasswordUpdatedAt: &now,
		CreatedAt:         now,
	}
	if err := user.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.repo.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered."})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error."})
		return
	}

	actorID := ""
	if actor, ok := rbac.UserFrom(c); ok {
		actorID = actor.ID
	}
	h.audit.LogEvent(c.Request.Context(), actorID, auditdomain.ActionUserCreated, "user:"+user.ID, c.ClientIP(), user.Email)

	c.JSON(http.StatusCreated, gin.H{"user": toUserResponse(user)})
}

type updateUserRequest struct {
	Name string `json:"name" binding:"required"`
	Role string `json:"role" binding:"required"`
}

// Update handles PATCH /api/master/users/:id (name and role only; passwords
// rotate through the auth endpoints).
func (h *UserHandler) Update(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and role are required."})
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role."})
		return
	}
	id := c.Param("id")
	if err := h.repo.Update(c.Request.Context(), id, req.Name, role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found."})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error."})
		return
	}
	user, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil || user == nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}

// Package rbac is the access guard: every protected route passes through
// RequireAuth or RequireRole. Roles are a closed enumeration checked by flat
// set membership.
package rbac

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	sessiondomain "asset-manager/backend/internal/session/domain"
	userdomain "asset-manager/backend/internal/user/domain"
)

// Gin context keys for the resolved user and session.
const (
	ContextUserKey    = "auth.user"
	ContextSessionKey = "auth.session"
)

// SessionValidator resolves a raw session token to its session, or (nil, nil)
// when the token is missing, unknown, revoked, or expired.
type SessionValidator interface {
	Validate(ctx context.Context, rawToken string) (*sessiondomain.Session, error)
}

// UserGetter loads the session's owner.
type UserGetter interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// Guard composes session validation with role membership checks.
type Guard struct {
	sessions SessionValidator
	users    UserGetter
}

// NewGuard returns a Guard over the given session and user sources.
func NewGuard(sessions SessionValidator, users UserGetter) *Guard {
	return &Guard{sessions: sessions, users: users}
}

// RequireAuth aborts with a generic 401 unless the request carries a valid
// session cookie. On success the user and session are stored in the gin
// context for handlers and later middleware.
func (g *Guard) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, sess, ok := g.resolve(c)
		if !ok {
			return
		}
		c.Set(ContextUserKey, user)
		c.Set(ContextSessionKey, sess)
		c.Next()
	}
}

// RequireRole is RequireAuth plus a flat membership check against allowed.
// An authenticated user outside the set gets a 403.
func (g *Guard) RequireRole(allowed ...userdomain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, sess, ok := g.resolve(c)
		if !ok {
			return
		}
		if !user.Role.In(allowed...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden."})
			return
		}
		c.Set(ContextUserKey, user)
		c.Set(ContextSessionKey, sess)
		c.Next()
	}
}

// resolve validates the session cookie and loads its user. The 401 body is
// deliberately uniform: missing cookie, malformed token, and expired session
// are indistinguishable to the client.
func (g *Guard) resolve(c *gin.Context) (*userdomain.User, *sessiondomain.Session, bool) {
	token, err := c.Cookie(sessiondomain.CookieName)
	if err != nil || token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized."})
		return nil, nil, false
	}
	sess, err := g.sessions.Validate(c.Request.Context(), token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal error."})
		return nil, nil, false
	}
	if sess == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized."})
		return nil, nil, false
	}
	user, err := g.users.GetByID(c.Request.Context(), sess.UserID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal error."})
		return nil, nil, false
	}
	if user == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized."})
		return nil, nil, false
	}
	return user, sess, true
}

// UserFrom returns the authenticated user stored by RequireAuth/RequireRole.
func UserFrom(c *gin.Context) (*userdomain.User, bool) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*userdomain.User)
	return u, ok
}

// SessionFrom returns the session stored by RequireAuth/RequireRole.
func SessionFrom(c *gin.Context) (*sessiondomain.Session, bool) {
	v, ok := c.Get(ContextSessionKey)
	if !ok {
		return nil, false
	}
	s, ok := v.(*sessiondomain.Session)
	return s, ok
}

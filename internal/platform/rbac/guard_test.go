package rbac

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	sessiondomain "asset-manager/backend/internal/session/domain"
	userdomain "asset-manager/backend/internal/user/domain"
)

type fakeValidator struct {
	sessions map[string]*sessiondomain.Session
	err      error
}

func (f *fakeValidator) Validate(_ context.Context, rawToken string) (*sessiondomain.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sessions[rawToken], nil
}

type fakeUserGetter struct {
	users map[string]*userdomain.User
	err   error
}

func (f *fakeUserGetter) GetByID(_ context.Context, id string) (*userdomain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users[id], nil
}

func testSession(userID string) *sessiondomain.Session {
	now := time.Now().UTC()
	return &sessiondomain.Session{
		TokenHash:  "hash",
		UserID:     userID,
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  now.Add(time.Hour),
	}
}

func guardRouter(g *Guard, allowed ...userdomain.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := func(c *gin.Context) {
		user, ok := UserFrom(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		if _, ok := SessionFrom(c); !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": user.ID})
	}
	if len(allowed) > 0 {
		r.GET("/p", g.RequireRole(allowed...), handler)
	} else {
		r.GET("/p", g.RequireAuth(), handler)
	}
	return r
}

func requestWithToken(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: sessiondomain.CookieName, Value: token})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	validator := &fakeValidator{sessions: map[string]*sessiondomain.Session{"tok": testSession("u1")}}
	users := &fakeUserGetter{users: map[string]*userdomain.User{
		"u1": {ID: "u1", Email: "a@example.com", Role: userdomain.RoleITAdmin},
	}}
	r := guardRouter(NewGuard(validator, users))

	if w := requestWithToken(r, "tok"); w.Code != http.StatusOK {
		t.Errorf("valid token status = %d, want 200", w.Code)
	}
	if w := requestWithToken(r, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("missing cookie status = %d, want 401", w.Code)
	}
	if w := requestWithToken(r, "unknown"); w.Code != http.StatusUnauthorized {
		t.Errorf("unknown token status = %d, want 401", w.Code)
	}
}

func TestRequireAuth_UserGone(t *testing.T) {
	// Session survives user deletion; the guard must refuse it.
	validator := &fakeValidator{sessions: map[string]*sessiondomain.Session{"tok": testSession("gone")}}
	r := guardRouter(NewGuard(validator, &fakeUserGetter{users: map[string]*userdomain.User{}}))

	if w := requestWithToken(r, "tok"); w.Code != http.StatusUnauthorized {
		t.Errorf("deleted user status = %d, want 401", w.Code)
	}
}

func TestRequireAuth_StoreFailure(t *testing.T) {
	validator := &fakeValidator{err: errors.New("db down")}
	r := guardRouter(NewGuard(validator, &fakeUserGetter{}))

	if w := requestWithToken(r, "tok"); w.Code != http.StatusInternalServerError {
		t.Errorf("store failure status = %d, want 500", w.Code)
	}
}

func TestRequireRole(t *testing.T) {
	validator := &fakeValidator{sessions: map[string]*sessiondomain.Session{
		"admin-tok":   testSession("admin"),
		"auditor-tok": testSession("auditor"),
	}}
	users := &fakeUserGetter{users: map[string]*userdomain.User{
		"admin":   {ID: "admin", Role: userdomain.RoleITAdmin},
		"auditor": {ID: "auditor", Role: userdomain.RoleAuditor},
	}}
	r := guardRouter(NewGuard(validator, users), userdomain.RoleSuperAdmin, userdomain.RoleITAdmin)

	if w := requestWithToken(r, "admin-tok"); w.Code != http.StatusOK {
		t.Errorf("allowed role status = %d, want 200", w.Code)
	}
	if w := requestWithToken(r, "auditor-tok"); w.Code != http.StatusForbidden {
		t.Errorf("disallowed role status = %d, want 403", w.Code)
	}
	if w := requestWithToken(r, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", w.Code)
	}
}

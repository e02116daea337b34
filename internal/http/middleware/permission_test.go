package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type staticPerms struct {
	perms map[int64][]string
	err   error
}

func (s *staticPerms) Permissions(_ context.Context, userID int64) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.perms[userID], nil
}

func newPermRouter(src PermissionSource, name string, userID int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/guarded",
		func(c *gin.Context) {
			if userID != 0 {
				c.Set("user_id", userID)
			}
			c.Next()
		},
		RequirePermission(src, name),
		func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"ok": true})
		},
	)
	return r
}

func get(r *gin.Engine) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/guarded", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequirePermission_Granted(t *testing.T) {
	src := &staticPerms{perms: map[int64][]string{7: {"view tasks", "create tasks"}}}
	r := newPermRouter(src, "view tasks", 7)

	if w := get(r); w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
}

func TestRequirePermission_Denied(t *testing.T) {
	src := &staticPerms{perms: map[int64][]string{7: {"view tasks"}}}
	r := newPermRouter(src, "manage users", 7)

	if w := get(r); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", w.Code)
	}
}

func TestRequirePermission_EmptySet(t *testing.T) {
	src := &staticPerms{perms: map[int64][]string{}}
	r := newPermRouter(src, "view tasks", 7)

	if w := get(r); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", w.Code)
	}
}

func TestRequirePermission_NoUser(t *testing.T) {
	src := &staticPerms{perms: map[int64][]string{7: {"view tasks"}}}
	r := newPermRouter(src, "view tasks", 0)

	if w := get(r); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", w.Code)
	}
}

func TestRequirePermission_SourceError(t *testing.T) {
	src := &staticPerms{err: errors.New("db down")}
	r := newPermRouter(src, "view tasks", 7)

	if w := get(r); w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", w.Code)
	}
}

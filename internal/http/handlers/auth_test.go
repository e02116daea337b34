package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"task_manager/internal/domain"
	"task_manager/internal/http/middleware"
	"task_manager/internal/repository"
	"task_manager/internal/service"

	"github.com/gin-gonic/gin"
)

type fakeUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*domain.User
	roles  map[int64][]string

	// simulates the role-grant half of CreateWithRole failing; the user
	// insert must roll back with it
	failRoleGrant bool
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		nextID: 1,
		users:  make(map[int64]*domain.User),
		roles:  make(map[int64][]string),
	}
}

func (s *fakeUserStore) CreateWithRole(_ context.Context, u *domain.User, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRoleGrant {
		return errors.New("role grant failed")
	}
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return repository.ErrAlreadyExists
		}
	}
	u.ID = s.nextID
	s.nextID++
	u.CreatedAt = time.Now()
	cp := *u
	s.users[u.ID] = &cp
	s.roles[u.ID] = []string{role}
	u.Roles = []string{role}
	return nil
}

func (s *fakeUserStore) GetByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	cp.Roles = s.roles[id]
	return &cp, nil
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if u.Email == email {
			cp := *u
			cp.Roles = s.roles[id]
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeUserStore) Permissions(_ context.Context, userID int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.roles[userID] {
		if r == domain.RoleUser {
			return []string{domain.PermViewTasks, domain.PermCreateTasks, domain.PermEditTasks, domain.PermDeleteTasks}, nil
		}
	}
	return nil, nil
}

func newAuthRouter(t *testing.T, users UserStore) *gin.Engine {
	t.Helper()
	service.InitJWT("test-secret")

	gin.SetMode(gin.TestMode)
	h := &Handler{Users: users}
	r := gin.New()
	v1 := r.Group("/api/v1")
	v1.POST("/auth/register", h.Register)
	v1.POST("/auth/login", h.Login)
	v1.POST("/auth/logout", middleware.JWT(), h.Logout)
	v1.GET("/me", middleware.JWT(), h.Me)
	return r
}

func newAuthedRequest(t *testing.T, method, path, token string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterLoginMe(t *testing.T) {
	users := newFakeUserStore()
	r := newAuthRouter(t, users)

	w := doJSON(t, r, "POST", "/api/v1/auth/register", 0, gin.H{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "password123",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register: expected 201 got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["token"] == "" || body["token"] == nil {
		t.Fatalf("register: missing token in %v", body)
	}

	w = doJSON(t, r, "POST", "/api/v1/auth/login", 0, gin.H{
		"email":    "alice@example.com",
		"password": "password123",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200 got %d: %s", w.Code, w.Body.String())
	}
	token, _ := decodeBody(t, w)["token"].(string)
	if token == "" {
		t.Fatalf("login: missing token")
	}

	req := newAuthedRequest(t, "GET", "/api/v1/me", token)
	w2 := serve(r, req)
	if w2.Code != http.StatusOK {
		t.Fatalf("me: expected 200 got %d: %s", w2.Code, w2.Body.String())
	}
	me := decodeBody(t, w2)
	data, _ := me["data"].(map[string]any)
	if data["email"] != "alice@example.com" {
		t.Errorf("me: unexpected user %v", data)
	}
	perms, _ := data["permissions"].([]any)
	if len(perms) != 4 {
		t.Errorf("me: expected the four task permissions, got %v", perms)
	}
	roles, _ := data["roles"].([]any)
	if len(roles) != 1 || roles[0] != domain.RoleUser {
		t.Errorf("me: expected role %q, got %v", domain.RoleUser, roles)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	users := newFakeUserStore()
	r := newAuthRouter(t, users)

	payload := gin.H{"username": "bob", "email": "bob@example.com", "password": "password123"}
	if w := doJSON(t, r, "POST", "/api/v1/auth/register", 0, payload); w.Code != http.StatusCreated {
		t.Fatalf("first register: expected 201 got %d", w.Code)
	}
	if w := doJSON(t, r, "POST", "/api/v1/auth/register", 0, payload); w.Code != http.StatusConflict {
		t.Fatalf("second register: expected 409 got %d", w.Code)
	}
}

func TestRegister_FailedRoleGrantAllowsRetry(t *testing.T) {
	users := newFakeUserStore()
	r := newAuthRouter(t, users)

	payload := gin.H{"username": "frank", "email": "frank@example.com", "password": "password123"}

	users.failRoleGrant = true
	if w := doJSON(t, r, "POST", "/api/v1/auth/register", 0, payload); w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", w.Code)
	}
	if len(users.users) != 0 {
		t.Fatalf("failed registration left a user row behind")
	}

	// the email must not conflict on retry
	users.failRoleGrant = false
	w := doJSON(t, r, "POST", "/api/v1/auth/register", 0, payload)
	if w.Code != http.StatusCreated {
		t.Fatalf("retry: expected 201 got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	user, _ := body["user"].(map[string]any)
	roles, _ := user["roles"].([]any)
	if len(roles) != 1 || roles[0] != domain.RoleUser {
		t.Errorf("expected role %q on retry, got %v", domain.RoleUser, roles)
	}
}

func TestRegister_ShortPassword(t *testing.T) {
	r := newAuthRouter(t, newFakeUserStore())

	w := doJSON(t, r, "POST", "/api/v1/auth/register", 0, gin.H{
		"username": "carol",
		"email":    "carol@example.com",
		"password": "short",
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", w.Code)
	}
	body := decodeBody(t, w)
	errs, _ := body["errors"].(map[string]any)
	if _, ok := errs["password"]; !ok {
		t.Errorf("expected password error, got %v", body)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	users := newFakeUserStore()
	r := newAuthRouter(t, users)

	doJSON(t, r, "POST", "/api/v1/auth/register", 0, gin.H{
		"username": "dave",
		"email":    "dave@example.com",
		"password": "password123",
	})

	w := doJSON(t, r, "POST", "/api/v1/auth/login", 0, gin.H{
		"email":    "dave@example.com",
		"password": "wrong-password",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", w.Code)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	r := newAuthRouter(t, newFakeUserStore())

	w := doJSON(t, r, "POST", "/api/v1/auth/login", 0, gin.H{
		"email":    "nobody@example.com",
		"password": "password123",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", w.Code)
	}
}

func TestLogout_Acknowledges(t *testing.T) {
	users := newFakeUserStore()
	r := newAuthRouter(t, users)

	w := doJSON(t, r, "POST", "/api/v1/auth/register", 0, gin.H{
		"username": "erin",
		"email":    "erin@example.com",
		"password": "password123",
	})
	token, _ := decodeBody(t, w)["token"].(string)

	req := newAuthedRequest(t, "POST", "/api/v1/auth/logout", token)
	w2 := serve(r, req)
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", w2.Code, w2.Body.String())
	}
	if body := decodeBody(t, w2); body["success"] != true {
		t.Errorf("unexpected logout body: %v", body)
	}
}

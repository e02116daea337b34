package handlers

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"task_manager/internal/domain"
	"task_manager/internal/http/middleware"
	"task_manager/internal/logger"
	"task_manager/internal/repository"
	"task_manager/internal/service"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if errs := validateCredentials(req.Username, req.Email, req.Password); len(errs) > 0 {
		validationFailed(c, errs)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}

	ctx := c.Request.Context()
	user := &domain.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
	}
	// New accounts get the regular task permissions; the insert and the
	// role grant commit or roll back together.
	if err := h.Users.CreateWithRole(ctx, user, domain.RoleUser); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
			return
		}
		logger.Error("create user failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	token, err := service.GenerateJWT(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "user": user})
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	user, err := h.Users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logger.Error("fetch user failed", "error", err)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := service.GenerateJWT(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// Logout denylists the presented token for the rest of its lifetime.
func (h *Handler) Logout(c *gin.Context) {
	tokenVal, ok := c.Get("token")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	token, _ := tokenVal.(string)

	if err := middleware.RevokeToken(c.Request.Context(), token, service.TokenRemaining(token)); err != nil {
		logger.Warn("token revoke failed", "error", err)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out"})
}

func validateCredentials(username, email, password string) fieldErrors {
	errs := fieldErrors{}
	if username == "" {
		errs.add("username", "Username is required")
	}
	switch {
	case email == "":
		errs.add("email", "Email is required")
	case !strings.Contains(email, "@"):
		errs.add("email", "Email must be a valid email address")
	}
	if utf8.RuneCountInString(password) < 8 {
		errs.add("password", "Password must be at least 8 characters")
	}
	return errs
}

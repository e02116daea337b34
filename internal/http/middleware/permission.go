package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// PermissionSource resolves a user's effective permission set. Implemented
// by the user repository (roles join); tests substitute a fake.
type PermissionSource interface {
	Permissions(ctx context.Context, userID int64) ([]string, error)
}

// permCacheTTL bounds how stale a cached permission set can get after a
// role change.
const permCacheTTL = 60 * time.Second

// RequirePermission answers "may this user act on some task of this kind".
// It never authorizes access to a specific row; handlers re-check ownership.
// Requires JWT to have run first.
func RequirePermission(src PermissionSource, name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, exists := c.Get("user_id")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		userID, ok := userIDVal.(int64)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		perms, err := cachedPermissions(c.Request.Context(), src, userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve permissions"})
			return
		}

		for _, p := range perms {
			if p == name {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

// cachedPermissions checks redis first, falling back to the source. Redis
// errors fall through to the source rather than failing the request.
func cachedPermissions(ctx context.Context, src PermissionSource, userID int64) ([]string, error) {
	key := "perms:" + strconv.FormatInt(userID, 10)

	if redisClient != nil {
		if cached, err := redisClient.Get(ctx, key).Result(); err == nil {
			if cached == "" {
				return nil, nil
			}
			return strings.Split(cached, "\n"), nil
		}
	}

	perms, err := src.Permissions(ctx, userID)
	if err != nil {
		return nil, err
	}

	if redisClient != nil {
		redisClient.Set(ctx, key, strings.Join(perms, "\n"), permCacheTTL)
	}
	return perms, nil
}

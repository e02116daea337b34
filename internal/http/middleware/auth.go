package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"task_manager/internal/service"

	"github.com/gin-gonic/gin"
)

// JWT validates the Authorization bearer token and puts the caller's
// user_id (and the raw token, for logout) into the gin context.
func JWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")

		if tokenRevoked(c.Request.Context(), token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		userID, err := service.ParseJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set("user_id", userID)
		c.Set("token", token)
		c.Next()
	}
}

// RevokeToken denylists a still-valid token until it would have expired.
// Without redis the denylist is unavailable and logout degrades to a
// client-side discard.
func RevokeToken(ctx context.Context, token string, ttl time.Duration) error {
	if redisClient == nil || ttl <= 0 {
		return nil
	}
	return redisClient.Set(ctx, revokeKey(token), "1", ttl).Err()
}

func tokenRevoked(ctx context.Context, token string) bool {
	if redisClient == nil {
		return false
	}
	n, err := redisClient.Exists(ctx, revokeKey(token)).Result()
	if err != nil {
		// fail-open, same stance as the rate limiter
		return false
	}
	return n > 0
}

func revokeKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "jwt_revoked:" + hex.EncodeToString(sum[:])
}

package handlers

import (
	"net/http"

	"task_manager/internal/logger"

	"github.com/gin-gonic/gin"
)

// Me returns the authenticated user with roles and the effective
// permission set.
func (h *Handler) Me(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	perms, err := h.Users.Permissions(ctx, userID)
	if err != nil {
		logger.Error("resolve permissions failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve permissions"})
		return
	}
	if perms == nil {
		perms = []string{}
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"id":          user.ID,
			"username":    user.Username,
			"email":       user.Email,
			"roles":       user.Roles,
			"permissions": perms,
			"created_at":  user.CreatedAt,
		},
	})
}

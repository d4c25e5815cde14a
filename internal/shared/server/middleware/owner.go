package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-review-backend/internal/shared/server/respond"
)

const ownerIDKey = "ownerId"

// ownerHeader identifies the caller. This is the seam where a real auth
// layer would plug in; for now the gateway in front of the API is trusted to
// set it.
const ownerHeader = "X-Owner-Id"

// Owner requires the owner header on every request and stores the identity
// in context.
func Owner() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		ownerID := strings.TrimSpace(c.GetHeader(ownerHeader))
		if ownerID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing owner identity", nil)
			return
		}

		c.Set(ownerIDKey, ownerID)
		c.Next()
	}
}

// OwnerIDFromContext fetches the owner ID stored by Owner middleware.
func OwnerIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(ownerIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

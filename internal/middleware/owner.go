package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-sync-api/internal/service"
	appErrors "github.com/noah-isme/classroom-sync-api/pkg/errors"
	"github.com/noah-isme/classroom-sync-api/pkg/logger"
	"github.com/noah-isme/classroom-sync-api/pkg/response"
)

// ContextOwnerKey is the gin context key storing the acting teacher's id.
const ContextOwnerKey = "ownerID"

// Owner requires the owner header and stores its value on the gin context
// and on the request context, which limits every class lookup to that owner.
// Identity is asserted by the caller; authentication happens upstream.
func Owner() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := strings.TrimSpace(c.GetHeader(logger.OwnerHeader))
		if owner == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "missing "+logger.OwnerHeader+" header"))
			c.Abort()
			return
		}
		c.Set(ContextOwnerKey, owner)
		c.Request = c.Request.WithContext(service.WithOwner(c.Request.Context(), owner))
		c.Next()
	}
}

// OwnerFrom returns the owner id stored by Owner, or an empty string.
func OwnerFrom(c *gin.Context) string {
	return c.GetString(ContextOwnerKey)
}

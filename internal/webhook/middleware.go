package webhook

import (
	"net/http"

	"crm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	headerAPIKey = "X-Webhook-API-Key"
	ctxKeyTenant = "webhook.tenant"
	ctxKeyID     = "webhook.key"
)

// RequireAPIKey authenticates inbound channel requests and stores the key's
// tenant on the context. Origin falls back to Referer for plain form posts.
func RequireAPIKey(keys *KeyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			origin = c.GetHeader("Referer")
		}
		key, err := keys.Authenticate(c.Request.Context(), c.GetHeader(headerAPIKey), origin)
		if httpkit.HandleError(c, err) {
			c.Abort()
			return
		}
		c.Set(ctxKeyTenant, key.TenantID)
		c.Set(ctxKeyID, key.ID)
		c.Next()
	}
}

func keyTenant(c *gin.Context) (uuid.UUID, bool) {
	tenantID, ok := c.Get(ctxKeyTenant)
	id, isUUID := tenantID.(uuid.UUID)
	if !ok || !isUUID {
		httpkit.Error(c, http.StatusUnauthorized, "no API key context", nil)
		return uuid.Nil, false
	}
	return id, true
}

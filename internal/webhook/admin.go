package webhook

import (
	"net/http"
	"time"

	"crm_backend/platform/httpkit"
	"crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type IssueKeyRequest struct {
	Name           string   `json:"name" validate:"required,max=100"`
	AllowedDomains []string `json:"allowedDomains" validate:"max=20,dive,max=200"`
}

type KeyResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	KeyPrefix      string    `json:"keyPrefix"`
	AllowedDomains []string  `json:"allowedDomains"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
}

// IssuedKeyResponse is the only response that ever carries the secret.
type IssuedKeyResponse struct {
	KeyResponse
	Key string `json:"key"`
}

// keyAdminHandler serves tenant admin key management.
type keyAdminHandler struct {
	keys *KeyService
	val  *validator.Validator
}

func (h *keyAdminHandler) issue(c *gin.Context) {
	_, tenantID, ok := httpkit.RequireTenant(c)
	if !ok {
		return
	}
	var req IssueKeyRequest
	if !bindValid(c, h.val, &req) {
		return
	}
	issued, err := h.keys.Issue(c.Request.Context(), tenantID, req.Name, req.AllowedDomains)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, IssuedKeyResponse{KeyResponse: toKeyResponse(issued.APIKey), Key: issued.Secret})
}

func (h *keyAdminHandler) list(c *gin.Context) {
	_, tenantID, ok := httpkit.RequireTenant(c)
	if !ok {
		return
	}
	keys, err := h.keys.List(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	out := make([]KeyResponse, 0, len(keys))
	for _, k := range keys {
		out = append(out, toKeyResponse(k))
	}
	httpkit.OK(c, out)
}

func (h *keyAdminHandler) revoke(c *gin.Context) {
	_, tenantID, ok := httpkit.RequireTenant(c)
	if !ok {
		return
	}
	keyID, err := uuid.Parse(c.Param("keyId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid key id", nil)
		return
	}
	if httpkit.HandleError(c, h.keys.Revoke(c.Request.Context(), tenantID, keyID)) {
		return
	}
	c.Status(http.StatusNoContent)
}

func toKeyResponse(k APIKey) KeyResponse {
	domains := k.AllowedDomains
	if domains == nil {
		domains = []string{}
	}
	return KeyResponse{
		ID:             k.ID,
		Name:           k.Name,
		KeyPrefix:      k.KeyPrefix,
		AllowedDomains: domains,
		IsActive:       k.IsActive,
		CreatedAt:      k.CreatedAt.UTC(),
	}
}

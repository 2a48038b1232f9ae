// Package httpkit provides the HTTP plumbing shared by every module: caller
// identity, auth and rate limiting middleware, and response helpers.
package httpkit

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity is the caller as seen by handlers.
type Identity interface {
	UserID() uuid.UUID
	Roles() []string
	HasRole(role string) bool
	IsAuthenticated() bool
	// TenantID returns the tenant the token is scoped to, if any.
	TenantID() *uuid.UUID
}

// Principal is the Identity built from the auth middleware's context values.
type Principal struct {
	User   uuid.UUID
	Tenant *uuid.UUID
	Grants []string
}

func (p Principal) UserID() uuid.UUID        { return p.User }
func (p Principal) Roles() []string          { return p.Grants }
func (p Principal) HasRole(role string) bool { return slices.Contains(p.Grants, role) }
func (p Principal) IsAuthenticated() bool    { return p.User != uuid.Nil }
func (p Principal) TenantID() *uuid.UUID     { return p.Tenant }

// GetIdentity reads the caller from c. It is unauthenticated when no user id
// was stored.
func GetIdentity(c *gin.Context) Identity {
	var p Principal
	if v, ok := c.Get(ContextUserIDKey); ok {
		p.User, _ = v.(uuid.UUID)
	}
	if v, ok := c.Get(ContextRolesKey); ok {
		p.Grants, _ = v.([]string)
	}
	if v, ok := c.Get(ContextTenantIDKey); ok {
		if tenantID, ok := v.(uuid.UUID); ok {
			p.Tenant = &tenantID
		}
	}
	return p
}

// MustGetIdentity aborts with 401 and returns nil for anonymous callers.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return nil
	}
	return id
}

// RequireTenant returns the caller and the tenant its token is scoped to.
// It aborts with 401 when unauthenticated and 403 without a tenant scope.
func RequireTenant(c *gin.Context) (Identity, uuid.UUID, bool) {
	id := MustGetIdentity(c)
	if id == nil {
		return nil, uuid.Nil, false
	}
	tenantID := id.TenantID()
	if tenantID == nil {
		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "no tenant context"})
		return nil, uuid.Nil, false
	}
	return id, *tenantID, true
}

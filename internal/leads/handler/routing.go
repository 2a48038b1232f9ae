package handler

import (
	"crm_backend/internal/leads/transport"
	"crm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetRouting(c *gin.Context) {
	_, tenantID, ok := httpkit.RequireTenant(c)
	if !ok {
		return
	}
	cfg, err := h.routing.Get(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToRoutingConfigResponse(cfg))
}

func (h *Handler) SetRoutingActive(c *gin.Context) {
	_, tenantID, ok := httpkit.RequireTenant(c)
	if !ok {
		return
	}
	var req transport.SetRoutingActiveRequest
	if !h.bindJSON(c, &req) {
		return
	}
	cfg, err := h.routing.SetActive(c.Request.Context(), tenantID, *req.Active)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToRoutingConfigResponse(cfg))
}

func (h *Handler) AddLocation(c *gin.Context) {
	_, tenantID, ok := httpkit.RequireTenant(c)
	if !ok {
		return
	}
	var req transport.AddLocationRequest
	if !h.bindJSON(c, &req) {
		return
	}
	cfg, err := h.routing.AddLocation(c.Request.Context(), tenantID, req.City)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToRoutingConfigResponse(cfg))
}

func (h *Handler) RemoveLocation(c *gin.Context) {
	_, tenantID, ok := httpkit.RequireTenant(c)
	if !ok {
		return
	}
	cfg, err := h.routing.RemoveLocation(c.Request.Context(), tenantID, c.Param("city"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToRoutingConfigResponse(cfg))
}

func (h *Handler) AddRoutedUser(c *gin.Context) {
	_, tenantID, ok := httpkit.RequireTenant(c)
	if !ok {
		return
	}
	var req transport.AddRoutedUserRequest
	if !h.bindJSON(c, &req) {
		return
	}
	cfg, err := h.routing.AddUser(c.Request.Context(), tenantID, req.UserID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToRoutingConfigResponse(cfg))
}

func (h *Handler) RemoveRoutedUser(c *gin.Context) {
	_, tenantID, ok := httpkit.RequireTenant(c)
	if !ok {
		return
	}
	userID, ok := parseUUIDParam(c, "userId")
	if !ok {
		return
	}
	cfg, err := h.routing.RemoveUser(c.Request.Context(), tenantID, userID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToRoutingConfigResponse(cfg))
}

func (h *Handler) NextRoutedUser(c *gin.Context) {
	_, tenantID, ok := httpkit.RequireTenant(c)
	if !ok {
		return
	}
	user, err := h.routing.NextUser(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToRoutedUserResponse(user))
}

func (h *Handler) RoutingByCity(c *gin.Context) {
	_, tenantID, ok := httpkit.RequireTenant(c)
	if !ok {
		return
	}
	cfg, err := h.routing.ByCity(c.Request.Context(), tenantID, c.Param("city"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToRoutingConfigResponse(cfg))
}

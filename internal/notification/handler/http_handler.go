// Package handler serves the signed-in user's notification inbox.
package handler

import (
	"net/http"
	"strconv"

	"crm_backend/internal/notification/inapp"
	"crm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const defaultPageSize = 20

type InboxPage struct {
	Items []inapp.Notification `json:"items"`
	Total int                  `json:"total"`
	Page  int                  `json:"page"`
}

type HTTPHandler struct {
	svc *inapp.Service
}

func NewHTTPHandler(svc *inapp.Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.list)
	rg.GET("/unread", h.unread)
	rg.PATCH("/read-all", h.readAll)
	rg.PATCH("/:id/read", h.read)
	rg.DELETE("/:id", h.remove)
}

// inbox resolves the caller's inbox or writes the rejection.
func inbox(c *gin.Context) (inapp.Inbox, bool) {
	identity, tenantID, ok := httpkit.RequireTenant(c)
	if !ok {
		return inapp.Inbox{}, false
	}
	return inapp.Inbox{TenantID: tenantID, UserID: identity.UserID()}, true
}

func (h *HTTPHandler) list(c *gin.Context) {
	box, ok := inbox(c)
	if !ok {
		return
	}
	page := queryInt(c, "page", 1)
	items, total, err := h.svc.List(c.Request.Context(), box, page, queryInt(c, "limit", defaultPageSize))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, InboxPage{Items: items, Total: total, Page: page})
}

func (h *HTTPHandler) unread(c *gin.Context) {
	box, ok := inbox(c)
	if !ok {
		return
	}
	count, err := h.svc.CountUnread(c.Request.Context(), box)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"count": count})
}

func (h *HTTPHandler) read(c *gin.Context) {
	box, ok := inbox(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok || httpkit.HandleError(c, h.svc.MarkRead(c.Request.Context(), box, id)) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) readAll(c *gin.Context) {
	box, ok := inbox(c)
	if !ok || httpkit.HandleError(c, h.svc.MarkAllRead(c.Request.Context(), box)) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) remove(c *gin.Context) {
	box, ok := inbox(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok || httpkit.HandleError(c, h.svc.Delete(c.Request.Context(), box, id)) {
		return
	}
	c.Status(http.StatusNoContent)
}

func queryInt(c *gin.Context, name string, fallback int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return uuid.Nil, false
	}
	return id, true
}

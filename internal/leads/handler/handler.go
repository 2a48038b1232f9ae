package handler

import (
	"net/http"

	"crm_backend/internal/leads/imports"
	"crm_backend/internal/leads/intake"
	"crm_backend/internal/leads/management"
	"crm_backend/internal/leads/routing"
	"crm_backend/internal/leads/transport"
	"crm_backend/platform/httpkit"
	"crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	intake      *intake.Service
	management  *management.Service
	imports     *imports.Service
	routing     *routing.Service
	val         *validator.Validator
	maxFileSize int64
}

func New(intakeSvc *intake.Service, mgmt *management.Service, importSvc *imports.Service, routingSvc *routing.Service, val *validator.Validator, maxFileSize int64) *Handler {
	return &Handler{
		intake:      intakeSvc,
		management:  mgmt,
		imports:     importSvc,
		routing:     routingSvc,
		val:         val,
		maxFileSize: maxFileSize,
	}
}

// RegisterRoutes mounts the tenant-scoped lead routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/intake", h.Intake)
	rg.GET("/lookup", h.Lookup)
	rg.POST("/imports", h.SubmitImport)
	rg.GET("/imports/:id", h.GetImport)
	rg.GET("/:id", h.GetByID)
}

// RegisterAdminRoutes mounts location routing administration.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.GetRouting)
	rg.PUT("/active", h.SetRoutingActive)
	rg.POST("/locations", h.AddLocation)
	rg.DELETE("/locations/:city", h.RemoveLocation)
	rg.POST("/users", h.AddRoutedUser)
	rg.DELETE("/users/:userId", h.RemoveRoutedUser)
	rg.GET("/next-user", h.NextRoutedUser)
	rg.GET("/cities/:city", h.RoutingByCity)
}

func (h *Handler) Intake(c *gin.Context) {
	_, tenantID, ok := httpkit.RequireTenant(c)
	if !ok {
		return
	}
	var req transport.IntakeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.intake.Ingest(c.Request.Context(), tenantID, req.Contact())
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.IntakeResponse{
		Lead:     transport.ToLeadResponse(result.Lead),
		Created:  result.Created,
		Strategy: string(result.Strategy),
	}
	if result.Agent != nil {
		resp.AssignedAgent = &transport.AgentRef{ID: result.Agent.ID, Name: result.Agent.Name, Email: result.Agent.Email}
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	httpkit.JSON(c, status, resp)
}

func (h *Handler) Lookup(c *gin.Context) {
	_, tenantID, ok := httpkit.RequireTenant(c)
	if !ok {
		return
	}
	var query transport.LookupQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Fields(err))
		return
	}

	lead, err := h.management.Lookup(c.Request.Context(), tenantID, query.ExternalContactID, query.Phone)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) GetByID(c *gin.Context) {
	_, tenantID, ok := httpkit.RequireTenant(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	lead, err := h.management.GetByID(c.Request.Context(), tenantID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Fields(err))
		return false
	}
	return true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}

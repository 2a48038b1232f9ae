package webhook

import (
	"net/http"
	"strconv"
	"strings"

	"crm_backend/platform/httpkit"
	"crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxFormMemory = 1 << 20

// inboundHandler serves the API-key authenticated channel endpoints.
type inboundHandler struct {
	service *Service
	val     *validator.Validator
}

// submitForm accepts url-encoded, multipart or flat JSON form posts and
// guesses the contact fields from their names.
func (h *inboundHandler) submitForm(c *gin.Context) {
	tenantID, ok := keyTenant(c)
	if !ok {
		return
	}
	fields := formFields(c)
	if len(fields) == 0 {
		httpkit.Error(c, http.StatusBadRequest, "no form data received", nil)
		return
	}
	sub := FormSubmission{Fields: fields, SourceDomain: c.GetHeader("Origin")}
	if keyID, ok := c.Get(ctxKeyID); ok {
		sub.APIKeyID, _ = keyID.(uuid.UUID)
	}

	resp, err := h.service.ProcessFormSubmission(c.Request.Context(), tenantID, sub)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, submissionStatus(resp), resp)
}

func (h *inboundHandler) submitChat(c *gin.Context) {
	tenantID, ok := keyTenant(c)
	if !ok {
		return
	}
	var payload ChatContact
	if !bindValid(c, h.val, &payload) {
		return
	}
	resp, err := h.service.ProcessChatContact(c.Request.Context(), tenantID, payload)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, submissionStatus(resp), resp)
}

func submissionStatus(resp SubmissionResponse) int {
	if resp.Created {
		return http.StatusCreated
	}
	return http.StatusOK
}

// formFields flattens the request body into string values. Nested JSON values
// and repeated form keys beyond the first are ignored.
func formFields(c *gin.Context) map[string]string {
	fields := map[string]string{}
	contentType := c.ContentType()

	if strings.HasPrefix(contentType, "application/json") {
		var body map[string]any
		if c.ShouldBindJSON(&body) != nil {
			return fields
		}
		for name, raw := range body {
			switch v := raw.(type) {
			case string:
				fields[name] = v
			case float64:
				fields[name] = strconv.FormatFloat(v, 'f', -1, 64)
			case bool:
				fields[name] = strconv.FormatBool(v)
			}
		}
		return fields
	}

	if strings.HasPrefix(contentType, "multipart/") {
		_ = c.Request.ParseMultipartForm(maxFormMemory)
	} else {
		_ = c.Request.ParseForm()
	}
	for name, values := range c.Request.PostForm {
		if len(values) > 0 {
			fields[name] = values[0]
		}
	}
	if mf := c.Request.MultipartForm; mf != nil {
		for name, values := range mf.Value {
			if _, seen := fields[name]; !seen && len(values) > 0 {
				fields[name] = values[0]
			}
		}
	}
	return fields
}

func bindValid(c *gin.Context, val *validator.Validator, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return false
	}
	if err := val.Struct(dst); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation error", validator.Fields(err))
		return false
	}
	return true
}

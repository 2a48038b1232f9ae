package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"crm_backend/internal/leads/imports"
	"crm_backend/internal/leads/transport"
	"crm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

const defaultRowsFileName = "rows.json"

// SubmitImport accepts a multipart "file" (CSV or JSON) or a JSON body of rows.
func (h *Handler) SubmitImport(c *gin.Context) {
	id, tenantID, ok := httpkit.RequireTenant(c)
	if !ok {
		return
	}

	var upload imports.Upload
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		upload, ok = h.readMultipart(c)
	} else {
		upload, ok = h.readRows(c)
	}
	if !ok {
		return
	}
	upload.ActorID = id.UserID()

	sub, err := h.imports.Submit(c.Request.Context(), tenantID, upload)
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusOK
	if sub.Queued {
		status = http.StatusAccepted
	}
	httpkit.JSON(c, status, transport.ImportSubmissionResponse{
		Job:    transport.ToImportJobResponse(sub.Job),
		Queued: sub.Queued,
		Result: sub.Result,
	})
}

func (h *Handler) GetImport(c *gin.Context) {
	_, tenantID, ok := httpkit.RequireTenant(c)
	if !ok {
		return
	}
	jobID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	job, err := h.imports.Get(c.Request.Context(), tenantID, jobID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToImportJobResponse(job))
}

func (h *Handler) readMultipart(c *gin.Context) (imports.Upload, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "file is required", nil)
		return imports.Upload{}, false
	}
	if h.maxFileSize > 0 && fileHeader.Size > h.maxFileSize {
		httpkit.Error(c, http.StatusRequestEntityTooLarge, "file is too large", nil)
		return imports.Upload{}, false
	}
	file, err := fileHeader.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return imports.Upload{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return imports.Upload{}, false
	}

	upload := imports.Upload{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	}
	if leadType := strings.TrimSpace(c.PostForm("defaultLeadType")); leadType != "" {
		upload.DefaultLeadType = &leadType
	}
	return upload, true
}

func (h *Handler) readRows(c *gin.Context) (imports.Upload, bool) {
	var req transport.ImportRowsRequest
	if !h.bindJSON(c, &req) {
		return imports.Upload{}, false
	}
	data, err := json.Marshal(req.Rows)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return imports.Upload{}, false
	}
	fileName := strings.TrimSpace(req.FileName)
	if fileName == "" {
		fileName = defaultRowsFileName
	}
	return imports.Upload{
		FileName:        fileName,
		ContentType:     "application/json",
		Data:            data,
		DefaultLeadType: req.DefaultLeadType,
	}, true
}

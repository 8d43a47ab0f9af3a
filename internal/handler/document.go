package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rental/internal/domain"
	"rental/internal/service"
)

// DocumentHandler accepts driver document uploads.
type DocumentHandler struct {
	ledger  *service.VerificationLedger
	uploads service.DocumentUploadPort
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(ledger *service.VerificationLedger, uploads service.DocumentUploadPort) *DocumentHandler {
	return &DocumentHandler{
		ledger:  ledger,
		uploads: uploads,
	}
}

// UploadResponse is the HTTP response for a stored document.
type UploadResponse struct {
	DriverID    string `json:"driver_id"`
	Type        string `json:"type"`
	DocumentRef string `json:"document_ref"`
}

// Upload handles POST /v1/documents, a multipart form with driver_id, type
// and file. The returned reference is passed back when the document is verified.
func (h *DocumentHandler) Upload(c *gin.Context) {
	driverID := c.PostForm("driver_id")
	doc, err := domain.ParseDocumentType(c.PostForm("type"))
	if err != nil {
		respondError(c, err)
		return
	}

	if _, err := h.ledger.Get(c.Request.Context(), driverID); err != nil {
		respondError(c, err)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		badRequest(c, "unreadable file")
		return
	}
	defer file.Close()

	ref, err := h.uploads.Store(c.Request.Context(), service.DocumentUpload{
		DriverID:    driverID,
		Type:        string(doc),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, UploadResponse{
		DriverID:    driverID,
		Type:        string(doc),
		DocumentRef: ref,
	})
}

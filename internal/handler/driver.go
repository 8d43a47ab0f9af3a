package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rental/internal/domain"
	"rental/internal/service"
)

// DriverHandler handles HTTP requests for drivers and their documents.
type DriverHandler struct {
	reservations *service.ReservationService
	ledger       *service.VerificationLedger
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(reservations *service.ReservationService, ledger *service.VerificationLedger) *DriverHandler {
	return &DriverHandler{
		reservations: reservations,
		ledger:       ledger,
	}
}

// RegisterDriverRequest is the HTTP request body for driver registration.
type RegisterDriverRequest struct {
	UserID    string       `json:"user_id"`
	License   LicenseDTO   `json:"license"`
	Insurance InsuranceDTO `json:"insurance"`
}

// VerifyDocumentRequest is the document data an administrator confirms.
type VerifyDocumentRequest struct {
	Number       string `json:"number"`
	IssuedBy     string `json:"issued_by"`
	Provider     string `json:"provider"`
	PolicyNumber string `json:"policy_number"`
	ExpiryDate   string `json:"expiry_date"`
	DocumentRef  string `json:"document_ref"`
}

// Register handles POST /v1/drivers
func (h *DriverHandler) Register(c *gin.Context) {
	var req RegisterDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	sel, err := DriverSelectionRequest{
		NewDriver: &NewDriverRequest{License: req.License, Insurance: req.Insurance},
	}.toSelection(req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	driver, err := h.ledger.Register(c.Request.Context(), *sel.New)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toDriverResponse(driver))
}

// Get handles GET /v1/drivers/:id
func (h *DriverHandler) Get(c *gin.Context) {
	driver, err := h.ledger.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toDriverResponse(driver))
}

// VerifyDocument handles PATCH /v1/admin/drivers/:id/documents/:type/verify
func (h *DriverHandler) VerifyDocument(c *gin.Context) {
	doc, err := domain.ParseDocumentType(c.Param("type"))
	if err != nil {
		respondError(c, err)
		return
	}

	var req VerifyDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	expiry, err := parseOptionalDate("expiry_date", req.ExpiryDate)
	if err != nil {
		respondError(c, err)
		return
	}

	driver, err := h.reservations.VerifyDocument(c.Request.Context(), c.Param("id"), doc, domain.VerificationRecord{
		Number:       req.Number,
		IssuedBy:     req.IssuedBy,
		Provider:     req.Provider,
		PolicyNumber: req.PolicyNumber,
		ExpiryDate:   expiry,
		DocumentRef:  req.DocumentRef,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toDriverResponse(driver))
}

// RejectDocument handles PATCH /v1/admin/drivers/:id/documents/:type/reject
func (h *DriverHandler) RejectDocument(c *gin.Context) {
	doc, err := domain.ParseDocumentType(c.Param("type"))
	if err != nil {
		respondError(c, err)
		return
	}

	driver, err := h.reservations.RejectDocument(c.Request.Context(), c.Param("id"), doc)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toDriverResponse(driver))
}

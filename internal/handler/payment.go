package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rental/internal/domain"
	"rental/internal/service"
)

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// WebhookRequest is the checkout provider callback body.
type WebhookRequest struct {
	SessionID string `json:"session_id"`
	Outcome   string `json:"outcome"`
	Reference string `json:"reference"`
}

// PaymentResponse is the HTTP response for payment operations.
type PaymentResponse struct {
	ID             string    `json:"id"`
	BookingID      string    `json:"booking_id"`
	SessionID      string    `json:"session_id"`
	CheckoutURL    string    `json:"checkout_url"`
	AmountCents    int64     `json:"amount_cents"`
	Currency       string    `json:"currency"`
	Status         string    `json:"status"`
	Reference      string    `json:"reference,omitempty"`
	IdempotencyKey string    `json:"idempotency_key"`
	ExpiresAt      time.Time `json:"expires_at"`
}

func toPaymentResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:             p.ID,
		BookingID:      p.BookingID,
		SessionID:      p.SessionID,
		CheckoutURL:    p.CheckoutURL,
		AmountCents:    p.AmountCents,
		Currency:       p.Currency,
		Status:         string(p.Status),
		Reference:      p.Reference,
		IdempotencyKey: p.IdempotencyKey,
		ExpiresAt:      p.ExpiresAt,
	}
}

// Webhook handles POST /v1/payments/webhook
func (h *PaymentHandler) Webhook(c *gin.Context) {
	var req WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	payment, err := h.paymentService.HandleWebhook(c.Request.Context(), service.WebhookEvent{
		SessionID: req.SessionID,
		Outcome:   service.WebhookOutcome(req.Outcome),
		Reference: req.Reference,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPaymentResponse(payment))
}

// GetPayment handles GET /v1/payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	payment, err := h.paymentService.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPaymentResponse(payment))
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rental/internal/domain"
	"rental/internal/service"
)

// BookingHandler handles HTTP requests for bookings.
type BookingHandler struct {
	reservations *service.ReservationService
	payments     *service.PaymentService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(reservations *service.ReservationService, payments *service.PaymentService) *BookingHandler {
	return &BookingHandler{
		reservations: reservations,
		payments:     payments,
	}
}

// NewDriverRequest carries the documents of a driver registered with a booking.
type NewDriverRequest struct {
	License   LicenseDTO   `json:"license"`
	Insurance InsuranceDTO `json:"insurance"`
}

// DriverSelectionRequest picks an existing driver or registers a new one.
type DriverSelectionRequest struct {
	DriverID  string            `json:"driver_id"`
	NewDriver *NewDriverRequest `json:"new_driver"`
}

// CreateBookingRequest is the HTTP request body for creating a booking.
type CreateBookingRequest struct {
	CarID  string                 `json:"car_id"`
	UserID string                 `json:"user_id"`
	Start  string                 `json:"start"`
	End    string                 `json:"end"`
	Driver DriverSelectionRequest `json:"driver"`
}

// RecordPaymentRequest is the HTTP request body for confirming a payment.
type RecordPaymentRequest struct {
	PaymentRef string `json:"payment_ref"`
}

// CancelBookingRequest is the HTTP request body for cancelling a booking.
type CancelBookingRequest struct {
	Reason string `json:"reason"`
}

func (r DriverSelectionRequest) toSelection(userID string) (service.DriverSelection, error) {
	sel := service.DriverSelection{DriverID: r.DriverID}
	if r.NewDriver == nil {
		return sel, nil
	}

	licenseExpiry, err := parseOptionalDate("license.expiry_date", r.NewDriver.License.ExpiryDate)
	if err != nil {
		return sel, err
	}
	insuranceExpiry, err := parseOptionalDate("insurance.expiry_date", r.NewDriver.Insurance.ExpiryDate)
	if err != nil {
		return sel, err
	}

	// Verified flags from the caller are ignored; only an administrator verifies.
	sel.New = &service.DriverRegistration{
		UserID: userID,
		License: domain.License{
			Number:      r.NewDriver.License.Number,
			IssuedBy:    r.NewDriver.License.IssuedBy,
			ExpiryDate:  licenseExpiry,
			DocumentRef: r.NewDriver.License.DocumentRef,
		},
		Insurance: domain.Insurance{
			Provider:     r.NewDriver.Insurance.Provider,
			PolicyNumber: r.NewDriver.Insurance.PolicyNumber,
			ExpiryDate:   insuranceExpiry,
			DocumentRef:  r.NewDriver.Insurance.DocumentRef,
		},
	}
	return sel, nil
}

// Create handles POST /v1/bookings
func (h *BookingHandler) Create(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	r, err := domain.ParseDateRange(req.Start, req.End)
	if err != nil {
		respondError(c, err)
		return
	}
	sel, err := req.Driver.toSelection(req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	booking, err := h.reservations.CreateBooking(c.Request.Context(), service.CreateBookingRequest{
		CarID:  req.CarID,
		UserID: req.UserID,
		Range:  r,
		Driver: sel,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toBookingResponse(booking))
}

// Get handles GET /v1/bookings/:id
func (h *BookingHandler) Get(c *gin.Context) {
	booking, err := h.reservations.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// AttachDriver handles POST /v1/bookings/:id/driver
func (h *BookingHandler) AttachDriver(c *gin.Context) {
	bookingID := c.Param("id")

	var req DriverSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	// New drivers belong to the booking's user.
	current, err := h.reservations.GetBooking(c.Request.Context(), bookingID)
	if err != nil {
		respondError(c, err)
		return
	}
	sel, err := req.toSelection(current.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	booking, err := h.reservations.AttachDriver(c.Request.Context(), service.AttachDriverRequest{
		BookingID: bookingID,
		Driver:    sel,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// Checkout handles POST /v1/bookings/:id/checkout
func (h *BookingHandler) Checkout(c *gin.Context) {
	payment, err := h.payments.Checkout(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPaymentResponse(payment))
}

// RecordPayment handles POST /v1/bookings/:id/payment
func (h *BookingHandler) RecordPayment(c *gin.Context) {
	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	booking, err := h.reservations.RecordPayment(c.Request.Context(), c.Param("id"), req.PaymentRef)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// Cancel handles PATCH /v1/bookings/:id/cancel
func (h *BookingHandler) Cancel(c *gin.Context) {
	var req CancelBookingRequest
	// The body is optional.
	_ = c.ShouldBindJSON(&req)

	booking, err := h.reservations.CancelBooking(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// Pickup handles POST /v1/bookings/:id/pickup
func (h *BookingHandler) Pickup(c *gin.Context) {
	booking, err := h.reservations.RecordPickup(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// Return handles POST /v1/bookings/:id/return
func (h *BookingHandler) Return(c *gin.Context) {
	booking, err := h.reservations.RecordReturn(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

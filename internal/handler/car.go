package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rental/internal/domain"
	"rental/internal/service"
)

// CarHandler handles HTTP requests for cars.
type CarHandler struct {
	reservations *service.ReservationService
}

// NewCarHandler creates a new CarHandler.
func NewCarHandler(reservations *service.ReservationService) *CarHandler {
	return &CarHandler{reservations: reservations}
}

// CreateCarRequest is the HTTP request body for listing a car.
type CreateCarRequest struct {
	Name             string               `json:"name"`
	PricePerDayCents int64                `json:"price_per_day_cents"`
	PricingTiers     *domain.PricingTiers `json:"pricing_tiers"`
}

// AvailabilityResponse is the HTTP response for a car's calendar.
type AvailabilityResponse struct {
	CarID         string               `json:"car_id"`
	Window        DateRangeDTO         `json:"window"`
	BlockedRanges []DateRangeDTO       `json:"blocked_ranges"`
	Free          bool                 `json:"free"`
	BasePrice     int64                `json:"base_price_cents"`
	PricingTiers  *domain.PricingTiers `json:"pricing_tiers,omitempty"`
}

// QuoteResponse is the HTTP response for a price quote.
type QuoteResponse struct {
	CarID string        `json:"car_id"`
	Range DateRangeDTO  `json:"range"`
	Price PriceResponse `json:"price"`
}

// Create handles POST /v1/cars
func (h *CarHandler) Create(c *gin.Context) {
	var req CreateCarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	car, err := h.reservations.CreateCar(c.Request.Context(), service.CreateCarRequest{
		Name:             req.Name,
		PricePerDayCents: req.PricePerDayCents,
		PricingTiers:     req.PricingTiers,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toCarResponse(car))
}

// List handles GET /v1/cars
func (h *CarHandler) List(c *gin.Context) {
	cars, err := h.reservations.ListCars(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]CarResponse, 0, len(cars))
	for _, car := range cars {
		response = append(response, toCarResponse(car))
	}
	respondJSON(c, http.StatusOK, response)
}

// Get handles GET /v1/cars/:id
func (h *CarHandler) Get(c *gin.Context) {
	car, err := h.reservations.GetCar(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toCarResponse(car))
}

// Availability handles GET /v1/cars/:id/availability?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *CarHandler) Availability(c *gin.Context) {
	window, err := domain.ParseDateRange(c.Query("start"), c.Query("end"))
	if err != nil {
		respondError(c, err)
		return
	}

	avail, err := h.reservations.Availability(c.Request.Context(), c.Param("id"), window)
	if err != nil {
		respondError(c, err)
		return
	}

	blocked := make([]DateRangeDTO, 0, len(avail.BlockedRanges))
	for _, r := range avail.BlockedRanges {
		blocked = append(blocked, toDateRangeDTO(r))
	}

	respondJSON(c, http.StatusOK, AvailabilityResponse{
		CarID:         avail.Car.ID,
		Window:        toDateRangeDTO(window),
		BlockedRanges: blocked,
		Free:          avail.Free,
		BasePrice:     avail.Car.PricePerDayCents,
		PricingTiers:  avail.Car.PricingTiers,
	})
}

// QuoteRequest is the HTTP request body for a price quote.
type QuoteRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Quote handles POST /v1/cars/:id/quote
func (h *CarHandler) Quote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	r, err := domain.ParseDateRange(req.Start, req.End)
	if err != nil {
		respondError(c, err)
		return
	}

	car, quote, err := h.reservations.Quote(c.Request.Context(), c.Param("id"), r)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, QuoteResponse{
		CarID: car.ID,
		Range: toDateRangeDTO(r),
		Price: toPriceResponse(quote),
	})
}

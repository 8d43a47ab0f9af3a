package handler

import (
	"time"

	"rental/internal/domain"
)

// DateRangeDTO is a half-open date range in YYYY-MM-DD form.
type DateRangeDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func toDateRangeDTO(r domain.DateRange) DateRangeDTO {
	return DateRangeDTO{
		Start: r.Start.Format(domain.DateLayout),
		End:   r.End.Format(domain.DateLayout),
	}
}

// DayPriceResponse is the price of one rental day.
type DayPriceResponse struct {
	Date        string `json:"date"`
	Tier        string `json:"tier"`
	AmountCents int64  `json:"amount_cents"`
}

// PriceResponse is a priced range in minor units.
type PriceResponse struct {
	SubtotalCents   int64              `json:"subtotal_cents"`
	ServiceFeeCents int64              `json:"service_fee_cents"`
	TaxCents        int64              `json:"tax_cents"`
	TotalCents      int64              `json:"total_cents"`
	Days            []DayPriceResponse `json:"days,omitempty"`
}

func toPriceResponse(q domain.Quote) PriceResponse {
	resp := PriceResponse{
		SubtotalCents:   q.SubtotalCents,
		ServiceFeeCents: q.ServiceFeeCents,
		TaxCents:        q.TaxCents,
		TotalCents:      q.TotalCents,
	}
	for _, d := range q.Days {
		resp.Days = append(resp.Days, DayPriceResponse{
			Date:        d.Date.Format(domain.DateLayout),
			Tier:        d.Tier,
			AmountCents: d.AmountCents,
		})
	}
	return resp
}

// BookingResponse is the HTTP response for booking data.
type BookingResponse struct {
	ID           string        `json:"id"`
	CarID        string        `json:"car_id"`
	UserID       string        `json:"user_id"`
	DriverID     string        `json:"driver_id,omitempty"`
	Range        DateRangeDTO  `json:"range"`
	Status       string        `json:"status"`
	Price        PriceResponse `json:"price"`
	PaymentDueAt *time.Time    `json:"payment_due_at,omitempty"`
	PaymentRef   string        `json:"payment_ref,omitempty"`
	CancelReason string        `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func toBookingResponse(b *domain.Booking) BookingResponse {
	resp := BookingResponse{
		ID:           b.ID,
		CarID:        b.CarID,
		UserID:       b.UserID,
		DriverID:     b.DriverID,
		Range:        toDateRangeDTO(b.Range),
		Status:       string(b.Status),
		Price:        toPriceResponse(b.Price),
		PaymentRef:   b.PaymentRef,
		CancelReason: b.CancelReason,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
	if !b.PaymentDueAt.IsZero() {
		due := b.PaymentDueAt
		resp.PaymentDueAt = &due
	}
	return resp
}

// CarResponse is the HTTP response for car data.
type CarResponse struct {
	ID               string               `json:"id"`
	Name             string               `json:"name"`
	PricePerDayCents int64                `json:"price_per_day_cents"`
	PricingTiers     *domain.PricingTiers `json:"pricing_tiers,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
}

func toCarResponse(car *domain.Car) CarResponse {
	return CarResponse{
		ID:               car.ID,
		Name:             car.Name,
		PricePerDayCents: car.PricePerDayCents,
		PricingTiers:     car.PricingTiers,
		CreatedAt:        car.CreatedAt,
	}
}

// LicenseDTO carries driving licence details.
type LicenseDTO struct {
	Number      string `json:"number"`
	IssuedBy    string `json:"issued_by"`
	ExpiryDate  string `json:"expiry_date"`
	DocumentRef string `json:"document_ref,omitempty"`
	Verified    bool   `json:"verified"`
}

// InsuranceDTO carries insurance policy details.
type InsuranceDTO struct {
	Provider     string `json:"provider"`
	PolicyNumber string `json:"policy_number"`
	ExpiryDate   string `json:"expiry_date"`
	DocumentRef  string `json:"document_ref,omitempty"`
	Verified     bool   `json:"verified"`
}

// DriverResponse is the HTTP response for driver data.
type DriverResponse struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	License   LicenseDTO   `json:"license"`
	Insurance InsuranceDTO `json:"insurance"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(domain.DateLayout)
}

func toDriverResponse(d *domain.Driver) DriverResponse {
	return DriverResponse{
		ID:     d.ID,
		UserID: d.UserID,
		License: LicenseDTO{
			Number:      d.License.Number,
			IssuedBy:    d.License.IssuedBy,
			ExpiryDate:  formatDate(d.License.ExpiryDate),
			DocumentRef: d.License.DocumentRef,
			Verified:    d.License.Verified,
		},
		Insurance: InsuranceDTO{
			Provider:     d.Insurance.Provider,
			PolicyNumber: d.Insurance.PolicyNumber,
			ExpiryDate:   formatDate(d.Insurance.ExpiryDate),
			DocumentRef:  d.Insurance.DocumentRef,
			Verified:     d.Insurance.Verified,
		},
		UpdatedAt: d.UpdatedAt,
	}
}

// parseOptionalDate parses a YYYY-MM-DD date, treating "" as zero.
func parseOptionalDate(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	d, err := domain.ParseDate(s)
	if err != nil {
		return time.Time{}, &domain.ValidationError{Field: field, Reason: "must be a YYYY-MM-DD date"}
	}
	return d, nil
}

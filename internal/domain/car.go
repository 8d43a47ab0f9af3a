package domain

import "time"

// Tier scales the daily rate on the listed weekdays (0 = Sunday ... 6 = Saturday).
type Tier struct {
	Days       []int   `json:"days"`
	Multiplier float64 `json:"multiplier"`
}

// Applies reports whether the tier covers the given weekday.
func (t *Tier) Applies(wd time.Weekday) bool {
	if t == nil {
		return false
	}
	for _, d := range t.Days {
		if d == int(wd) {
			return true
		}
	}
	return false
}

// PricingTiers holds the optional peak and off-peak tiers of a car.
type PricingTiers struct {
	Peak    *Tier `json:"peak,omitempty"`
	OffPeak *Tier `json:"offPeak,omitempty"`
}

// Car represents a rentable car.
type Car struct {
	ID               string
	Name             string
	PricePerDayCents int64
	PricingTiers     *PricingTiers
	CreatedAt        time.Time
}

package pricing

import (
	"math"
	"time"

	"rental/internal/domain"
)

const bpsScale = 10000

// Tier names reported per day.
const (
	TierStandard = "standard"
	TierPeak     = "peak"
	TierOffPeak  = "offPeak"
)

// Config contains the fee and tax settings applied on top of the daily rates.
type Config struct {
	TaxRateBps      int64 // Tax rate in basis points (800 = 8%)
	ServiceFeeCents int64 // Flat fee per booking
}

// DefaultConfig returns the default pricing configuration.
func DefaultConfig() Config {
	return Config{
		TaxRateBps:      800,
		ServiceFeeCents: 0,
	}
}

// Calculator prices a date range for a car. It is the only pricing path:
// quotes, availability previews and bookings all go through Compute.
type Calculator struct {
	cfg Config
}

// NewCalculator creates a new Calculator.
func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// Compute returns the per-day breakdown and totals for car over r.
// Peak wins when a weekday is listed in both tiers.
func (c *Calculator) Compute(car *domain.Car, r domain.DateRange) domain.Quote {
	var q domain.Quote
	q.Days = make([]domain.DayPrice, 0, r.Days())

	r.EachDay(func(d time.Time) {
		tier, bps := c.rateFor(car.PricingTiers, d.Weekday())
		amount := applyBps(car.PricePerDayCents, bps)
		q.Days = append(q.Days, domain.DayPrice{Date: d, Tier: tier, AmountCents: amount})
		q.SubtotalCents += amount
	})

	q.ServiceFeeCents = c.cfg.ServiceFeeCents
	q.TaxCents = applyBps(q.SubtotalCents, c.cfg.TaxRateBps)
	q.TotalCents = q.SubtotalCents + q.ServiceFeeCents + q.TaxCents
	return q
}

func (c *Calculator) rateFor(tiers *domain.PricingTiers, wd time.Weekday) (string, int64) {
	if tiers == nil {
		return TierStandard, bpsScale
	}
	if tiers.Peak.Applies(wd) {
		return TierPeak, MultiplierBps(tiers.Peak.Multiplier)
	}
	if tiers.OffPeak.Applies(wd) {
		return TierOffPeak, MultiplierBps(tiers.OffPeak.Multiplier)
	}
	return TierStandard, bpsScale
}

// MultiplierBps converts a tier multiplier to basis points (1.3 -> 13000).
func MultiplierBps(m float64) int64 {
	return int64(math.Round(m * bpsScale))
}

// applyBps scales cents by bps/10000, rounding half up.
func applyBps(cents, bps int64) int64 {
	return (cents*bps + bpsScale/2) / bpsScale
}

// ValidateTiers rejects tiers a calculator cannot price.
func ValidateTiers(tiers *domain.PricingTiers) error {
	if tiers == nil {
		return nil
	}
	for name, t := range map[string]*domain.Tier{"pricing_tiers.peak": tiers.Peak, "pricing_tiers.offPeak": tiers.OffPeak} {
		if t == nil {
			continue
		}
		if t.Multiplier <= 0 {
			return &domain.ValidationError{Field: name, Reason: "multiplier must be positive"}
		}
		for _, d := range t.Days {
			if d < 0 || d > 6 {
				return &domain.ValidationError{Field: name, Reason: "days must be between 0 (Sunday) and 6 (Saturday)"}
			}
		}
	}
	return nil
}

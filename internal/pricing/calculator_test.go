package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental/internal/domain"
)

func mustRange(t *testing.T, start, end string) domain.DateRange {
	t.Helper()
	r, err := domain.ParseDateRange(start, end)
	require.NoError(t, err)
	return r
}

func TestCompute_PeakWeekend(t *testing.T) {
	t.Parallel()

	car := &domain.Car{
		ID:               "car-x",
		PricePerDayCents: 10000,
		PricingTiers: &domain.PricingTiers{
			Peak: &domain.Tier{Days: []int{5, 6}, Multiplier: 1.3},
		},
	}

	// Friday 2024-06-07 to Monday 2024-06-10: Fri, Sat peak, Sun standard.
	q := NewCalculator(DefaultConfig()).Compute(car, mustRange(t, "2024-06-07", "2024-06-10"))

	assert.Equal(t, int64(36000), q.SubtotalCents)
	assert.Equal(t, int64(2880), q.TaxCents)
	assert.Equal(t, int64(0), q.ServiceFeeCents)
	assert.Equal(t, int64(38880), q.TotalCents)
	require.Len(t, q.Days, 3)
	assert.Equal(t, time.Friday, q.Days[0].Date.Weekday())
	assert.Equal(t, TierPeak, q.Days[0].Tier)
	assert.Equal(t, TierPeak, q.Days[1].Tier)
	assert.Equal(t, TierStandard, q.Days[2].Tier)
}

func TestCompute_NoTiersIsStandardRate(t *testing.T) {
	t.Parallel()

	car := &domain.Car{ID: "car-1", PricePerDayCents: 4999}
	calc := NewCalculator(Config{TaxRateBps: 800, ServiceFeeCents: 500})

	q := calc.Compute(car, mustRange(t, "2024-06-01", "2024-06-08"))

	assert.Equal(t, int64(7*4999), q.SubtotalCents)
	// 34993 * 8% = 2799.44
	assert.Equal(t, int64(2799), q.TaxCents)
	assert.Equal(t, int64(500), q.ServiceFeeCents)
	assert.Equal(t, q.SubtotalCents+q.TaxCents+500, q.TotalCents)
	for _, d := range q.Days {
		assert.Equal(t, TierStandard, d.Tier)
	}
}

func TestCompute_OffPeakAndPrecedence(t *testing.T) {
	t.Parallel()

	car := &domain.Car{
		ID:               "car-1",
		PricePerDayCents: 10000,
		PricingTiers: &domain.PricingTiers{
			Peak:    &domain.Tier{Days: []int{6}, Multiplier: 1.5},
			OffPeak: &domain.Tier{Days: []int{1, 2, 6}, Multiplier: 0.85},
		},
	}

	// Monday 2024-06-10 .. Sunday 2024-06-16 (exclusive).
	q := NewCalculator(DefaultConfig()).Compute(car, mustRange(t, "2024-06-10", "2024-06-16"))

	tiers := make([]string, 0, len(q.Days))
	for _, d := range q.Days {
		tiers = append(tiers, d.Tier)
	}
	assert.Equal(t, []string{TierOffPeak, TierOffPeak, TierStandard, TierStandard, TierStandard, TierPeak}, tiers)
	assert.Equal(t, int64(8500+8500+10000+10000+10000+15000), q.SubtotalCents)
}

func TestCompute_RoundsHalfUpPerDay(t *testing.T) {
	t.Parallel()

	car := &domain.Car{
		ID:               "car-1",
		PricePerDayCents: 999,
		PricingTiers: &domain.PricingTiers{
			Peak: &domain.Tier{Days: []int{0, 1, 2, 3, 4, 5, 6}, Multiplier: 1.15},
		},
	}

	// 999 * 1.15 = 1148.85 -> 1149 per day.
	q := NewCalculator(Config{}).Compute(car, mustRange(t, "2024-06-01", "2024-06-03"))

	assert.Equal(t, int64(2298), q.SubtotalCents)
	assert.Equal(t, int64(0), q.TaxCents)
	assert.Equal(t, int64(2298), q.TotalCents)
}

func TestMultiplierBps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float64
		want int64
	}{
		{1.0, 10000},
		{1.3, 13000},
		{0.85, 8500},
		{1.15, 11500},
		{2, 20000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MultiplierBps(tt.in), "multiplier %v", tt.in)
	}
}

func TestValidateTiers(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateTiers(nil))
	assert.NoError(t, ValidateTiers(&domain.PricingTiers{Peak: &domain.Tier{Days: []int{0, 6}, Multiplier: 1.2}}))

	err := ValidateTiers(&domain.PricingTiers{Peak: &domain.Tier{Days: []int{7}, Multiplier: 1.2}})
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = ValidateTiers(&domain.PricingTiers{OffPeak: &domain.Tier{Days: []int{1}, Multiplier: 0}})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

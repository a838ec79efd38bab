// README: Pricing service computes parcel fares from road distance and weight.
package pricing

import (
	"math"

	"parcel/internal/config"
	"parcel/internal/types"
)

type Service struct {
	rate Rate
}

func NewService(cfg config.PricingConfig) *Service {
	return &Service{rate: Rate{
		BaseFare: cfg.BaseFare,
		PerKm:    cfg.PerKm,
		PerKg:    cfg.PerKg,
		Currency: cfg.Currency,
	}}
}

func (s *Service) Rate() Rate {
	return s.rate
}

// Estimate prices a parcel with the configured rate card.
func (s *Service) Estimate(distanceKm, weightKg float64) types.Money {
	return Price(s.rate, distanceKm, weightKg)
}

// Price is the fare formula:
//
//	BaseFare + ceil(PerKm*distance + PerKg*weight)
//
// Negative or NaN inputs count as zero, so the result is never below BaseFare.
func Price(rate Rate, distanceKm, weightKg float64) types.Money {
	variable := float64(rate.PerKm)*clampNonNegative(distanceKm) + float64(rate.PerKg)*clampNonNegative(weightKg)
	// Round to cents before ceil so 10*1.1 does not become 12.
	variable = math.Ceil(math.Round(variable*100) / 100)
	return types.Money{
		Amount:   rate.BaseFare + int64(variable),
		Currency: rate.Currency,
	}
}

func clampNonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}

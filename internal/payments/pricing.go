package payments

import "time"

// Launch pricing in Chilean pesos. The early-bird price applies until the
// window closes, after that the regular price takes over.
const (
	RegularPriceCLP   = 9990
	EarlyBirdPriceCLP = 7990
)

var EarlyBirdEnd = time.Date(2026, time.February, 28, 23, 59, 0, 0, time.UTC)

type Pricing struct {
	ActivePrice int       `json:"activePrice"`
	Label       string    `json:"label"`
	EndsAt      time.Time `json:"endsAt"`
	IsActive    bool      `json:"isActive"`
}

// CurrentPricing returns the price in effect at the given instant.
func CurrentPricing(now time.Time) Pricing {
	if now.Before(EarlyBirdEnd) {
		return Pricing{
			ActivePrice: EarlyBirdPriceCLP,
			Label:       "EARLY_BIRD",
			EndsAt:      EarlyBirdEnd,
			IsActive:    true,
		}
	}
	return Pricing{
		ActivePrice: RegularPriceCLP,
		Label:       "REGULAR",
		EndsAt:      EarlyBirdEnd,
		IsActive:    false,
	}
}

// EarlyBirdActive reports whether the discount window is still open.
func EarlyBirdActive(now time.Time) bool {
	return now.Before(EarlyBirdEnd)
}

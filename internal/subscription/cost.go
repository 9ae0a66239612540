package subscription

import (
	"math"

	"github.com/asmrbible/backend/internal/bible"
	"github.com/asmrbible/backend/internal/db"
)

// Pricing constants. The outputs of CalculateCost are reconciled
// against payment receipts, so the formula must not drift.
const (
	basePrice       = 9.99
	heartseaseExtra = 2.00
	wholeExtra      = 3.00
	dailyMultiplier = 1.5
)

// CalculateCost prices a subscription from its three preferences:
// base 9.99, +2.00 for the heartsease voice, +3.00 for whole chapters,
// times 1.5 for daily delivery, rounded to cents.
func CalculateCost(voice, deliveryType, frequency string) float64 {
	cost := basePrice
	if voice == bible.VoiceHeartsease {
		cost += heartseaseExtra
	}
	if deliveryType == db.DeliveryWhole {
		cost += wholeExtra
	}
	if frequency == db.FrequencyDaily {
		cost *= dailyMultiplier
	}
	return math.Round(cost*100) / 100
}

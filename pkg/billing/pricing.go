package billing

import (
	"github.com/shopspring/decimal"
)

// Pricing converts between credits and USD cents. Credits are the internal
// integer unit; money only appears at the payment boundary.
type Pricing struct {
	creditsPerUSDCent decimal.Decimal
}

// NewPricing creates a converter with the configured exchange rate.
func NewPricing(creditsPerUSDCent int64) Pricing {
	return Pricing{creditsPerUSDCent: decimal.NewFromInt(creditsPerUSDCent)}
}

// CentsForCredits returns the price of a credit amount in USD cents,
// rounded up so a purchase never underpays for the credits it grants.
func (p Pricing) CentsForCredits(credits int64) int64 {
	return decimal.NewFromInt(credits).
		Div(p.creditsPerUSDCent).
		Ceil().
		IntPart()
}

// CreditsForCents returns the credits granted for a payment in USD cents.
func (p Pricing) CreditsForCents(cents int64) int64 {
	return decimal.NewFromInt(cents).
		Mul(p.creditsPerUSDCent).
		IntPart()
}

// Package usage implements the per-minute billing arithmetic of §4.7 step 5:
// a completed call accrues ceil(duration_minutes * rate_cents) onto its
// SubTenant's usage accumulator.
package usage

import (
	"github.com/shopspring/decimal"
)

// CentsForCall returns the cents to add to a SubTenant's usage accumulator
// for a completed call of durationSec seconds, billed at rateCents per
// minute, rounded up to the nearest cent.
func CentsForCall(durationSec int, rateCents int64) int64 {
	if durationSec <= 0 || rateCents <= 0 {
		return 0
	}
	minutes := decimal.NewFromInt(int64(durationSec)).Div(decimal.NewFromInt(60))
	cost := minutes.Mul(decimal.NewFromInt(rateCents))
	return cost.Ceil().IntPart()
}

package discount

import (
	"strings"

	"github.com/noah-isme/toko-promo/internal/cart"
)

// Kind identifies how a discount value is interpreted.
type Kind string

const (
	// KindPercentage applies value as a whole-percent share of the base amount.
	KindPercentage Kind = "percentage"
	// KindFlat applies value as a fixed reduction, capped at the base amount.
	KindFlat Kind = "flat"
)

// ParseKind normalises a stored discount type string. Unrecognised values
// return false so misconfigured rules can be skipped instead of miscomputed.
func ParseKind(raw string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindPercentage:
		return KindPercentage, true
	case KindFlat:
		return KindFlat, true
	}
	return "", false
}

// Compute converts a discount type/value pair and a base amount into the
// monetary reduction. A flat reduction never exceeds the base it applies to
// and the result is never negative.
func Compute(base cart.Money, kind Kind, value int64) cart.Money {
	if base <= 0 || value <= 0 {
		return 0
	}
	var amount cart.Money
	switch kind {
	case KindPercentage:
		amount = base * value / 100
	case KindFlat:
		amount = value
	default:
		return 0
	}
	if amount > base {
		amount = base
	}
	if amount < 0 {
		return 0
	}
	return amount
}

// ComputeCapped is Compute with the coupon-only max-discount cap applied after
// the type-specific computation. A maxDiscount of zero or less means no cap.
func ComputeCapped(base cart.Money, kind Kind, value int64, maxDiscount cart.Money) cart.Money {
	amount := Compute(base, kind, value)
	if maxDiscount > 0 && amount > maxDiscount {
		amount = maxDiscount
	}
	return amount
}

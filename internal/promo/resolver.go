package promo

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-promo/internal/cart"
	"github.com/noah-isme/toko-promo/internal/coupon"
	"github.com/noah-isme/toko-promo/internal/customer"
	"github.com/noah-isme/toko-promo/internal/discount"
	"github.com/noah-isme/toko-promo/internal/events"
	"github.com/noah-isme/toko-promo/internal/obs"
)

// Source names where a winning discount came from.
type Source string

const (
	SourceNone      Source = "none"
	SourceCoupon    Source = "coupon"
	SourceAutomatic Source = "automatic"
)

// Outcome is the engine's answer for an order: whether a reduction applies,
// where it came from and how much it is worth.
type Outcome struct {
	Applicable     bool                   `json:"applicable"`
	Source         Source                 `json:"source"`
	RuleOrCouponID *uuid.UUID             `json:"ruleOrCouponId,omitempty"`
	Kind           discount.Kind          `json:"discountType,omitempty"`
	Value          int64                  `json:"discountValue,omitempty"`
	Amount         cart.Money             `json:"discountAmount"`
	Reason         coupon.RejectionReason `json:"rejectionReason,omitempty"`
}

// Resolver is the top-level entry point deciding which single discount
// applies to an order. A coupon that validates wins outright; automatic
// rules are not even evaluated then. A coupon and an automatic discount are
// mutually exclusive for the same order.
type Resolver struct {
	Coupons *coupon.Validator
	Auto    *discount.Selector
	Events  *events.Bus
	Logger  *zerolog.Logger
}

// Resolve evaluates the coupon code when present, falling back to the best
// automatic discount otherwise. No path is fatal: the worst case is an
// outcome with no discount and checkout proceeds at full price.
func (r *Resolver) Resolve(ctx context.Context, storeID uuid.UUID, snap cart.Snapshot, identity customer.Identity, paymentMethod, couponCode string) Outcome {
	var rejection coupon.RejectionReason
	if strings.TrimSpace(couponCode) != "" && r.Coupons != nil {
		res, err := r.Coupons.Validate(ctx, storeID, couponCode, snap, identity, paymentMethod)
		switch {
		case err != nil:
			if r.Logger != nil {
				r.Logger.Error().Err(err).Str("store_id", storeID.String()).Msg("coupon validation failed, falling back to automatic discounts")
			}
		case res.Valid:
			obs.ObserveResolution(string(SourceCoupon))
			id := res.CouponID
			return Outcome{
				Applicable:     true,
				Source:         SourceCoupon,
				RuleOrCouponID: &id,
				Kind:           res.Kind,
				Value:          res.Value,
				Amount:         res.Amount,
			}
		default:
			rejection = res.Reason
		}
	}

	if r.Auto != nil {
		best := r.Auto.SelectBest(ctx, storeID, snap, identity, paymentMethod)
		if best.Applicable {
			obs.ObserveResolution(string(SourceAutomatic))
			r.emitApplied(ctx, best)
			id := best.RuleID
			return Outcome{
				Applicable:     true,
				Source:         SourceAutomatic,
				RuleOrCouponID: &id,
				Kind:           best.Kind,
				Value:          best.Value,
				Amount:         best.Amount,
				Reason:         rejection,
			}
		}
	}

	obs.ObserveResolution(string(SourceNone))
	return Outcome{Source: SourceNone, Reason: rejection}
}

func (r *Resolver) emitApplied(ctx context.Context, res discount.Result) {
	if r.Events == nil {
		return
	}
	payload := map[string]any{
		"ruleId": res.RuleID.String(),
		"amount": res.Amount,
	}
	if _, err := r.Events.Emit(ctx, events.TopicDiscountApplied, res.RuleID, payload); err != nil && r.Logger != nil {
		r.Logger.Error().Err(err).Str("rule_id", res.RuleID.String()).Msg("emit discount.applied")
	}
}

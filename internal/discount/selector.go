package discount

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-promo/internal/cart"
	"github.com/noah-isme/toko-promo/internal/customer"
	"github.com/noah-isme/toko-promo/internal/obs"
)

// RuleSource lists the active automatic discount rules for a store with their
// tiers and entries populated.
type RuleSource interface {
	ListActiveRules(ctx context.Context, storeID uuid.UUID) ([]Rule, error)
}

// Selector evaluates every eligible rule and keeps the single best result.
type Selector struct {
	Rules  RuleSource
	Eval   Evaluator
	Now    func() time.Time
	Logger *zerolog.Logger
}

// SelectBest returns the outcome with the strictly greatest discount amount
// among the rules that survive status, window and payment gating. Ties keep
// the first rule encountered; rules are listed in creation order so the
// tie-break is stable. Storage failures degrade to "no discount" — a
// promotion lookup outage must not block checkout.
func (s *Selector) SelectBest(ctx context.Context, storeID uuid.UUID, snap cart.Snapshot, identity customer.Identity, paymentMethod string) Result {
	if s == nil || s.Rules == nil {
		return Result{}
	}
	now := s.now()
	rules, err := s.Rules.ListActiveRules(ctx, storeID)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Error().Err(err).Str("store_id", storeID.String()).Msg("list automatic discounts failed, skipping")
		}
		return Result{}
	}
	var best Result
	for _, rule := range rules {
		if !rule.Active(now, paymentMethod) {
			continue
		}
		res := s.Eval.Evaluate(ctx, rule, snap, identity)
		obs.ObserveDiscountEvaluation(string(rule.Type), res.Applicable)
		if !res.Applicable {
			continue
		}
		if res.Amount > best.Amount {
			best = res
		}
	}
	return best
}

func (s *Selector) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

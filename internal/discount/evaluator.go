package discount

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-promo/internal/cart"
	"github.com/noah-isme/toko-promo/internal/customer"
)

// Result is the outcome of evaluating a single automatic rule. A zero amount
// always reports Applicable false.
type Result struct {
	Applicable bool
	RuleID     uuid.UUID
	Kind       Kind
	Value      int64
	Amount     cart.Money
}

// Evaluator decides whether a single rule fires for a cart and shopper.
// Misconfigured rules (zero tiers, unparseable thresholds, unknown discount
// types) evaluate to not-applicable and are logged; a broken promotion must
// never block checkout.
type Evaluator struct {
	Classifier customer.Classifier
	Logger     *zerolog.Logger
}

// Evaluate runs the rule-type specific check and computes the discount
// amount. Window, status and payment gating are the selector's concern.
func (e Evaluator) Evaluate(ctx context.Context, rule Rule, snap cart.Snapshot, identity customer.Identity) Result {
	switch rule.Type {
	case TypeTieredValue:
		return e.evaluateTiered(rule, snap)
	case TypeNewCustomer:
		if e.Classifier.Classify(ctx, rule.StoreID, identity) != customer.KindNew {
			return Result{}
		}
		return e.evaluateWholeCart(rule, snap)
	case TypeReturningCustomer:
		if e.Classifier.Classify(ctx, rule.StoreID, identity) != customer.KindReturning {
			return Result{}
		}
		return e.evaluateWholeCart(rule, snap)
	case TypeCategory:
		return e.evaluateCategory(rule, snap)
	case TypeQuantity:
		return e.evaluateQuantity(rule, snap)
	}
	e.warn(rule, "unknown rule type")
	return Result{}
}

// evaluateTiered selects the highest-order tier whose minimum the subtotal
// reaches, not the first match. Tiers without a minimum never match.
func (e Evaluator) evaluateTiered(rule Rule, snap cart.Snapshot) Result {
	if len(rule.Tiers) == 0 {
		e.warn(rule, "tiered rule has no tiers")
		return Result{}
	}
	subtotal := snap.Subtotal()
	var matched *Tier
	for i := range rule.Tiers {
		t := &rule.Tiers[i]
		if t.MinOrderValue == nil || *t.MinOrderValue > subtotal {
			continue
		}
		if matched == nil || t.Order > matched.Order {
			matched = t
		}
	}
	if matched == nil {
		return Result{}
	}
	kind, ok := ParseKind(matched.Kind)
	if !ok {
		e.warn(rule, "tier has unknown discount type")
		return Result{}
	}
	return e.result(rule.ID, kind, matched.Value, Compute(subtotal, kind, matched.Value))
}

// evaluateWholeCart applies the rule's first well-formed entry to the cart
// subtotal. Used by the customer-type rules.
func (e Evaluator) evaluateWholeCart(rule Rule, snap cart.Snapshot) Result {
	subtotal := snap.Subtotal()
	for _, entry := range rule.Entries {
		kind, ok := ParseKind(entry.Kind)
		if !ok {
			e.warn(rule, "entry has unknown discount type")
			continue
		}
		return e.result(rule.ID, kind, entry.Value, Compute(subtotal, kind, entry.Value))
	}
	e.warn(rule, "rule has no usable entries")
	return Result{}
}

// evaluateCategory computes each entry's discount against the subtotal of the
// matching lines only, never the whole cart, and keeps the largest.
func (e Evaluator) evaluateCategory(rule Rule, snap cart.Snapshot) Result {
	if len(rule.Entries) == 0 {
		e.warn(rule, "category rule has no entries")
		return Result{}
	}
	var best Result
	for _, entry := range rule.Entries {
		if !snap.HasCategory(entry.RuleValue) {
			continue
		}
		kind, ok := ParseKind(entry.Kind)
		if !ok {
			e.warn(rule, "entry has unknown discount type")
			continue
		}
		amount := Compute(snap.CategorySubtotal(entry.RuleValue), kind, entry.Value)
		if amount > best.Amount {
			best = e.result(rule.ID, kind, entry.Value, amount)
		}
	}
	return best
}

// evaluateQuantity fires when the cart item count reaches the threshold
// stored as text in the entry value. Non-numeric thresholds make the entry
// inert.
func (e Evaluator) evaluateQuantity(rule Rule, snap cart.Snapshot) Result {
	count := snap.ItemCount()
	subtotal := snap.Subtotal()
	var best Result
	for _, entry := range rule.Entries {
		threshold, err := strconv.Atoi(entry.RuleValue)
		if err != nil || threshold <= 0 {
			e.warn(rule, "quantity rule has non-numeric threshold")
			continue
		}
		if count < threshold {
			continue
		}
		kind, ok := ParseKind(entry.Kind)
		if !ok {
			e.warn(rule, "entry has unknown discount type")
			continue
		}
		amount := Compute(subtotal, kind, entry.Value)
		if amount > best.Amount {
			best = e.result(rule.ID, kind, entry.Value, amount)
		}
	}
	return best
}

func (e Evaluator) result(ruleID uuid.UUID, kind Kind, value int64, amount cart.Money) Result {
	if amount <= 0 {
		return Result{}
	}
	return Result{Applicable: true, RuleID: ruleID, Kind: kind, Value: value, Amount: amount}
}

func (e Evaluator) warn(rule Rule, msg string) {
	if e.Logger == nil {
		return
	}
	e.Logger.Warn().
		Str("rule_id", rule.ID.String()).
		Str("rule_type", string(rule.Type)).
		Msg(msg)
}

package discount

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/noah-isme/toko-promo/internal/cart"
	"github.com/noah-isme/toko-promo/internal/customer"
)

type stubHistory struct {
	count int64
	err   error
}

func (s stubHistory) CountPriorOrders(context.Context, uuid.UUID, string, string) (int64, error) {
	return s.count, s.err
}

func moneyPtr(v cart.Money) *cart.Money { return &v }

func snapshotWorth(amount cart.Money) cart.Snapshot {
	return cart.Snapshot{Lines: []cart.Line{{ItemID: "x", UnitPrice: amount, Qty: 1}}}
}

func TestEvaluateTieredPicksHighestReachedTier(t *testing.T) {
	rule := Rule{
		ID:   uuid.New(),
		Type: TypeTieredValue,
		Tiers: []Tier{
			{ID: uuid.New(), Order: 1, MinOrderValue: moneyPtr(500), Kind: "percentage", Value: 5},
			{ID: uuid.New(), Order: 2, MinOrderValue: moneyPtr(1000), Kind: "percentage", Value: 10},
			{ID: uuid.New(), Order: 3, MinOrderValue: moneyPtr(2500), Kind: "percentage", Value: 15},
		},
	}
	res := Evaluator{}.Evaluate(context.Background(), rule, snapshotWorth(3000), customer.Identity{})
	if !res.Applicable {
		t.Fatal("expected tiered rule to apply")
	}
	if res.Amount != 450 {
		t.Fatalf("expected 15%% of 3000 = 450, got %d", res.Amount)
	}
	if res.Value != 15 {
		t.Fatalf("expected highest tier value 15, got %d", res.Value)
	}
}

func TestEvaluateTieredBelowAllTiers(t *testing.T) {
	rule := Rule{
		ID:    uuid.New(),
		Type:  TypeTieredValue,
		Tiers: []Tier{{Order: 1, MinOrderValue: moneyPtr(1000), Kind: "percentage", Value: 5}},
	}
	res := Evaluator{}.Evaluate(context.Background(), rule, snapshotWorth(800), customer.Identity{})
	if res.Applicable {
		t.Fatal("expected no tier to match below every minimum")
	}
}

func TestEvaluateTieredNilMinimumNeverMatches(t *testing.T) {
	rule := Rule{
		ID:    uuid.New(),
		Type:  TypeTieredValue,
		Tiers: []Tier{{Order: 1, MinOrderValue: nil, Kind: "percentage", Value: 5}},
	}
	res := Evaluator{}.Evaluate(context.Background(), rule, snapshotWorth(3000), customer.Identity{})
	if res.Applicable {
		t.Fatal("expected tier without minimum to be inert")
	}
}

func TestEvaluateTieredValueMonotonicInSubtotal(t *testing.T) {
	rule := Rule{
		ID:   uuid.New(),
		Type: TypeTieredValue,
		Tiers: []Tier{
			{ID: uuid.New(), Order: 1, MinOrderValue: moneyPtr(500), Kind: "percentage", Value: 5},
			{ID: uuid.New(), Order: 2, MinOrderValue: moneyPtr(1000), Kind: "percentage", Value: 10},
			{ID: uuid.New(), Order: 3, MinOrderValue: moneyPtr(2500), Kind: "percentage", Value: 15},
		},
	}
	// growing the cart can never land on a weaker tier
	prev := int64(-1)
	for subtotal := cart.Money(100); subtotal <= 5000; subtotal += 100 {
		res := Evaluator{}.Evaluate(context.Background(), rule, snapshotWorth(subtotal), customer.Identity{})
		value := int64(0)
		if res.Applicable {
			value = res.Value
		}
		if value < prev {
			t.Fatalf("tier value dropped from %d to %d at subtotal %d", prev, value, subtotal)
		}
		prev = value
	}
}

func TestEvaluateCategoryUsesCategorySubtotalOnly(t *testing.T) {
	rule := Rule{
		ID:      uuid.New(),
		Type:    TypeCategory,
		Entries: []Entry{{RuleValue: "electronics", Kind: "percentage", Value: 25}},
	}
	snap := cart.Snapshot{Lines: []cart.Line{
		{ItemID: "tv", CategoryID: "electronics", UnitPrice: 2000, Qty: 1},
		{ItemID: "shirt", CategoryID: "apparel", UnitPrice: 1000, Qty: 1},
	}}
	res := Evaluator{}.Evaluate(context.Background(), rule, snap, customer.Identity{})
	if !res.Applicable {
		t.Fatal("expected category rule to apply")
	}
	if res.Amount != 500 {
		t.Fatalf("expected 25%% of 2000 = 500, got %d", res.Amount)
	}
}

func TestEvaluateCategoryAbsentFromCart(t *testing.T) {
	rule := Rule{
		ID:      uuid.New(),
		Type:    TypeCategory,
		Entries: []Entry{{RuleValue: "toys", Kind: "percentage", Value: 25}},
	}
	res := Evaluator{}.Evaluate(context.Background(), rule, snapshotWorth(3000), customer.Identity{})
	if res.Applicable {
		t.Fatal("expected rule for absent category to be inert")
	}
}

func TestEvaluateNewCustomer(t *testing.T) {
	rule := Rule{
		ID:      uuid.New(),
		Type:    TypeNewCustomer,
		Entries: []Entry{{Kind: "percentage", Value: 20}},
	}
	eval := Evaluator{Classifier: customer.Classifier{History: stubHistory{count: 0}}}
	identity := customer.Identity{Phone: "9876543210"}

	res := eval.Evaluate(context.Background(), rule, snapshotWorth(1000), identity)
	if !res.Applicable || res.Amount != 200 {
		t.Fatalf("expected 200 for new customer, got applicable=%v amount=%d", res.Applicable, res.Amount)
	}

	eval.Classifier = customer.Classifier{History: stubHistory{count: 3}}
	res = eval.Evaluate(context.Background(), rule, snapshotWorth(1000), identity)
	if res.Applicable {
		t.Fatal("expected returning customer to be excluded from new-customer rule")
	}
}

func TestEvaluateReturningCustomerFailsOpenToNew(t *testing.T) {
	rule := Rule{
		ID:      uuid.New(),
		Type:    TypeReturningCustomer,
		Entries: []Entry{{Kind: "percentage", Value: 10}},
	}
	eval := Evaluator{Classifier: customer.Classifier{History: stubHistory{err: errors.New("history down")}}}
	res := eval.Evaluate(context.Background(), rule, snapshotWorth(1000), customer.Identity{Phone: "9876543210"})
	if res.Applicable {
		t.Fatal("expected lookup failure to classify as new and skip returning-customer rule")
	}
}

func TestEvaluateQuantity(t *testing.T) {
	rule := Rule{
		ID:      uuid.New(),
		Type:    TypeQuantity,
		Entries: []Entry{{RuleValue: "3", Kind: "flat", Value: 300}},
	}
	snap := cart.Snapshot{Lines: []cart.Line{{ItemID: "a", UnitPrice: 500, Qty: 3}}}
	res := Evaluator{}.Evaluate(context.Background(), rule, snap, customer.Identity{})
	if !res.Applicable || res.Amount != 300 {
		t.Fatalf("expected flat 300 at quantity threshold, got applicable=%v amount=%d", res.Applicable, res.Amount)
	}

	small := cart.Snapshot{Lines: []cart.Line{{ItemID: "a", UnitPrice: 500, Qty: 2}}}
	if got := (Evaluator{}).Evaluate(context.Background(), rule, small, customer.Identity{}); got.Applicable {
		t.Fatal("expected rule to be inert below the quantity threshold")
	}
}

func TestEvaluateQuantityNonNumericThreshold(t *testing.T) {
	rule := Rule{
		ID:      uuid.New(),
		Type:    TypeQuantity,
		Entries: []Entry{{RuleValue: "many", Kind: "flat", Value: 300}},
	}
	res := Evaluator{}.Evaluate(context.Background(), rule, snapshotWorth(3000), customer.Identity{})
	if res.Applicable {
		t.Fatal("expected non-numeric threshold to make the entry inert")
	}
}

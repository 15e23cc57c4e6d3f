package discount

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/toko-promo/internal/customer"
)

type stubRules struct {
	rules []Rule
	err   error
}

func (s stubRules) ListActiveRules(context.Context, uuid.UUID) ([]Rule, error) {
	return s.rules, s.err
}

func activeWindow() (time.Time, time.Time) {
	now := time.Now()
	return now.Add(-time.Hour), now.Add(time.Hour)
}

func flatRule(value int64) Rule {
	start, expiry := activeWindow()
	return Rule{
		ID:         uuid.New(),
		Type:       TypeQuantity,
		Scope:      ScopeAll,
		Status:     StatusActive,
		StartDate:  start,
		ExpiryDate: expiry,
		Entries:    []Entry{{RuleValue: "1", Kind: "flat", Value: value}},
	}
}

func TestSelectBestKeepsLargestAmount(t *testing.T) {
	small := flatRule(100)
	large := flatRule(400)
	sel := &Selector{Rules: stubRules{rules: []Rule{small, large}}}

	res := sel.SelectBest(context.Background(), uuid.New(), snapshotWorth(1000), customer.Identity{}, "card")
	if !res.Applicable {
		t.Fatal("expected a winning rule")
	}
	if res.RuleID != large.ID {
		t.Fatalf("expected larger rule to win, got %s", res.RuleID)
	}
	if res.Amount != 400 {
		t.Fatalf("expected amount 400, got %d", res.Amount)
	}
}

func TestSelectBestTieKeepsFirstRule(t *testing.T) {
	first := flatRule(250)
	second := flatRule(250)
	sel := &Selector{Rules: stubRules{rules: []Rule{first, second}}}

	res := sel.SelectBest(context.Background(), uuid.New(), snapshotWorth(1000), customer.Identity{}, "card")
	if res.RuleID != first.ID {
		t.Fatalf("expected first listed rule to win the tie, got %s", res.RuleID)
	}
}

func TestSelectBestSkipsGatedRules(t *testing.T) {
	disabled := flatRule(500)
	disabled.Status = StatusDisabled

	expired := flatRule(500)
	expired.ExpiryDate = time.Now().Add(-time.Minute)

	codOnly := flatRule(500)
	codOnly.Scope = ScopeCOD

	eligible := flatRule(100)

	sel := &Selector{Rules: stubRules{rules: []Rule{disabled, expired, codOnly, eligible}}}
	res := sel.SelectBest(context.Background(), uuid.New(), snapshotWorth(1000), customer.Identity{}, "card")
	if res.RuleID != eligible.ID {
		t.Fatalf("expected only the eligible rule to survive gating, got %s", res.RuleID)
	}
}

func TestSelectBestStorageFailureYieldsNoDiscount(t *testing.T) {
	sel := &Selector{Rules: stubRules{err: errors.New("db down")}}
	res := sel.SelectBest(context.Background(), uuid.New(), snapshotWorth(1000), customer.Identity{}, "card")
	if res.Applicable {
		t.Fatal("expected storage failure to degrade to no discount")
	}
}

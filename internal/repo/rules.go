package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/toko-promo/internal/cart"
	"github.com/noah-isme/toko-promo/internal/discount"
)

const (
	listActiveRulesSQL = `SELECT id, store_id, name, rule_type, order_type_scope, status, start_date, expiry_date
		FROM automatic_discount_rules
		WHERE store_id = $1 AND status = 'active'
		ORDER BY created_at, id`

	listTiersSQL = `SELECT id, tier_order, min_order_value, discount_type, discount_value
		FROM discount_tiers
		WHERE rule_id = $1
		ORDER BY tier_order`

	listEntriesSQL = `SELECT id, rule_value, discount_type, discount_value
		FROM discount_rule_entries
		WHERE rule_id = $1
		ORDER BY created_at, id`
)

var _ discount.RuleSource = (*Rules)(nil)

// Rules reads automatic discount configuration from PostgreSQL.
type Rules struct {
	pool *pgxpool.Pool
}

// NewRules returns a Rules repository backed by the given pool.
func NewRules(pool *pgxpool.Pool) *Rules {
	return &Rules{pool: pool}
}

// ListActiveRules returns a store's active rules with their tiers or entries
// attached, in creation order. Creation order is what makes tie-breaking
// between equal-value rules deterministic.
func (r *Rules) ListActiveRules(ctx context.Context, storeID uuid.UUID) ([]discount.Rule, error) {
	rows, err := r.pool.Query(ctx, listActiveRulesSQL, storeID)
	if err != nil {
		return nil, fmt.Errorf("listing active rules: %w", err)
	}
	rules, err := pgx.CollectRows(rows, scanRule)
	if err != nil {
		return nil, fmt.Errorf("listing active rules: %w", err)
	}
	for i := range rules {
		if rules[i].Type == discount.TypeTieredValue {
			rules[i].Tiers, err = r.GetTiers(ctx, rules[i].ID)
		} else {
			rules[i].Entries, err = r.GetEntries(ctx, rules[i].ID)
		}
		if err != nil {
			return nil, err
		}
	}
	return rules, nil
}

// GetTiers returns a tiered rule's bands ordered by tier position.
func (r *Rules) GetTiers(ctx context.Context, ruleID uuid.UUID) ([]discount.Tier, error) {
	rows, err := r.pool.Query(ctx, listTiersSQL, ruleID)
	if err != nil {
		return nil, fmt.Errorf("listing tiers for rule %s: %w", ruleID, err)
	}
	tiers, err := pgx.CollectRows(rows, scanTier)
	if err != nil {
		return nil, fmt.Errorf("listing tiers for rule %s: %w", ruleID, err)
	}
	return tiers, nil
}

// GetEntries returns a non-tiered rule's entries in creation order.
func (r *Rules) GetEntries(ctx context.Context, ruleID uuid.UUID) ([]discount.Entry, error) {
	rows, err := r.pool.Query(ctx, listEntriesSQL, ruleID)
	if err != nil {
		return nil, fmt.Errorf("listing entries for rule %s: %w", ruleID, err)
	}
	entries, err := pgx.CollectRows(rows, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("listing entries for rule %s: %w", ruleID, err)
	}
	return entries, nil
}

func scanRule(row pgx.CollectableRow) (discount.Rule, error) {
	var (
		rule     discount.Rule
		ruleType string
		scope    string
		status   string
	)
	err := row.Scan(
		&rule.ID, &rule.StoreID, &rule.Name, &ruleType, &scope, &status,
		&rule.StartDate, &rule.ExpiryDate,
	)
	rule.Type = discount.RuleType(ruleType)
	rule.Scope = discount.OrderScope(scope)
	rule.Status = discount.RuleStatus(status)
	return rule, err
}

func scanTier(row pgx.CollectableRow) (discount.Tier, error) {
	var (
		tier     discount.Tier
		minOrder *cart.Money
	)
	err := row.Scan(&tier.ID, &tier.Order, &minOrder, &tier.Kind, &tier.Value)
	tier.MinOrderValue = minOrder
	return tier, err
}

func scanEntry(row pgx.CollectableRow) (discount.Entry, error) {
	var entry discount.Entry
	err := row.Scan(&entry.ID, &entry.RuleValue, &entry.Kind, &entry.Value)
	return entry, err
}

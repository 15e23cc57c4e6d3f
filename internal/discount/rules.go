package discount

import (
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/toko-promo/internal/cart"
)

// RuleType discriminates the automatic discount rule variants. Tiered rules
// carry Tiers; every other type carries Entries.
type RuleType string

const (
	// TypeTieredValue discounts by the highest order-value band the subtotal reaches.
	TypeTieredValue RuleType = "tiered_value"
	// TypeNewCustomer fires for shoppers with no prior orders at the store.
	TypeNewCustomer RuleType = "new_customer"
	// TypeReturningCustomer fires for shoppers with at least one prior order.
	TypeReturningCustomer RuleType = "returning_customer"
	// TypeCategory discounts the subtotal of lines in a configured category.
	TypeCategory RuleType = "category"
	// TypeQuantity fires once the cart item count reaches a threshold.
	TypeQuantity RuleType = "quantity"
)

// RuleStatus is the administrative on/off switch for a rule.
type RuleStatus string

const (
	// StatusActive marks rules eligible for evaluation.
	StatusActive RuleStatus = "active"
	// StatusDisabled marks rules excluded from evaluation.
	StatusDisabled RuleStatus = "disabled"
)

// Tier is one band of a tiered-value ladder. A tier whose MinOrderValue is
// absent never matches; whether that should mean "base tier" is an upstream
// ambiguity this engine does not resolve.
type Tier struct {
	ID            uuid.UUID
	Order         int
	MinOrderValue *cart.Money
	Kind          string
	Value         int64
}

// Entry is the associated data of a non-tiered rule. For category rules
// RuleValue names a category; for quantity rules it is the minimum item count
// encoded as text.
type Entry struct {
	ID        uuid.UUID
	RuleValue string
	Kind      string
	Value     int64
}

// Rule is an automatic discount configuration owned by a store. The engine
// treats rules as read-only; authoring happens elsewhere.
type Rule struct {
	ID         uuid.UUID
	StoreID    uuid.UUID
	Name       string
	Type       RuleType
	Scope      OrderScope
	Status     RuleStatus
	StartDate  time.Time
	ExpiryDate time.Time

	Tiers   []Tier
	Entries []Entry
}

// Active reports whether the rule may be evaluated at the given instant for
// the given payment method.
func (r Rule) Active(now time.Time, paymentMethod string) bool {
	if r.Status != StatusActive {
		return false
	}
	if !WithinWindow(r.StartDate, r.ExpiryDate, now) {
		return false
	}
	return PaymentCompatible(r.Scope, paymentMethod)
}

package coupon

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/toko-promo/internal/cart"
	"github.com/noah-isme/toko-promo/internal/discount"
)

// Status is the administrative lifecycle state of a coupon.
type Status string

const (
	// StatusActive marks coupons available for redemption.
	StatusActive Status = "active"
	// StatusDisabled marks coupons switched off by an operator.
	StatusDisabled Status = "disabled"
	// StatusExpired marks coupons whose expiry instant has passed; set by the
	// expiry sweeper, the validator enforces the window independently.
	StatusExpired Status = "expired"
)

// CustomerType restricts a coupon to a shopper classification.
type CustomerType string

const (
	// CustomerAll places no restriction on who may redeem.
	CustomerAll CustomerType = "all"
	// CustomerNew restricts redemption to shoppers with no prior orders.
	CustomerNew CustomerType = "new"
	// CustomerReturning restricts redemption to shoppers with prior orders.
	CustomerReturning CustomerType = "returning"
)

// ApplicableScope is the catalog slice a coupon targets. Authored externally;
// carried on the model for completeness.
type ApplicableScope string

const (
	ScopeAllItems   ApplicableScope = "all"
	ScopeProducts   ApplicableScope = "products"
	ScopeCategories ApplicableScope = "categories"
)

// Coupon is a code-gated discount owned by a store. Read-only to this engine.
type Coupon struct {
	ID                    uuid.UUID
	StoreID               uuid.UUID
	Code                  string
	Kind                  discount.Kind
	Value                 int64
	MaxDiscount           *cart.Money
	MinOrderValue         *cart.Money
	StartDate             time.Time
	ExpiryDate            time.Time
	UsageLimitTotal       *int32
	UsageLimitPerCustomer *int32
	Scope                 ApplicableScope
	CustomerType          CustomerType
	FirstOrderOnly        bool
	OrderScope            discount.OrderScope
	Status                Status
}

// UsageRecord is the durable, countable proof of a redemption. Append-only;
// the count of records is the sole source of truth for limit enforcement.
type UsageRecord struct {
	ID              uuid.UUID
	CouponID        uuid.UUID
	OrderID         uuid.UUID
	CustomerPhone   string
	CustomerEmail   string
	DiscountApplied cart.Money
	UsedAt          time.Time
}

// RejectionReason names the specific gate a validation attempt failed, so
// callers can show an actionable message. Rejections are values, not errors.
type RejectionReason string

const (
	ReasonNotFound                  RejectionReason = "NOT_FOUND"
	ReasonInactive                  RejectionReason = "INACTIVE"
	ReasonExpired                   RejectionReason = "EXPIRED"
	ReasonNotYetActive              RejectionReason = "NOT_YET_ACTIVE"
	ReasonBelowMinimum              RejectionReason = "BELOW_MINIMUM"
	ReasonPaymentMethodNotAllowed   RejectionReason = "PAYMENT_METHOD_NOT_ALLOWED"
	ReasonWrongCustomerType         RejectionReason = "WRONG_CUSTOMER_TYPE"
	ReasonNotFirstOrder             RejectionReason = "NOT_FIRST_ORDER"
	ReasonLimitExceeded             RejectionReason = "LIMIT_EXCEEDED"
	ReasonPerCustomerLimitExceeded  RejectionReason = "PER_CUSTOMER_LIMIT_EXCEEDED"
)

// NormalizeCode uppercases and trims a coupon code for lookup. Codes are
// unique per store after normalisation.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

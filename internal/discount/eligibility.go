package discount

import (
	"strings"
	"time"
)

// OrderScope restricts a rule or coupon to a class of payment methods.
type OrderScope string

const (
	// ScopeAll accepts every payment method.
	ScopeAll OrderScope = "all"
	// ScopeOnline accepts any method except cash on delivery.
	ScopeOnline OrderScope = "online"
	// ScopeCOD accepts cash on delivery only.
	ScopeCOD OrderScope = "cod"
)

// PaymentMethodCOD is the method string that identifies cash on delivery.
const PaymentMethodCOD = "cod"

// WithinWindow reports whether now falls inside [start, expiry). The upper
// bound is strict: a rule is inert exactly at and after its expiry instant.
func WithinWindow(start, expiry, now time.Time) bool {
	if now.Before(start) {
		return false
	}
	return now.Before(expiry)
}

// PaymentCompatible reports whether the chosen payment method satisfies the
// rule's order scope. Unknown scopes reject, so a typo in configuration makes
// the rule inert rather than universally applicable.
func PaymentCompatible(scope OrderScope, method string) bool {
	m := strings.ToLower(strings.TrimSpace(method))
	switch scope {
	case ScopeAll:
		return true
	case ScopeOnline:
		return m != PaymentMethodCOD
	case ScopeCOD:
		return m == PaymentMethodCOD
	}
	return false
}

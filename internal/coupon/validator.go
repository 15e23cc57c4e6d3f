package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/toko-promo/internal/cart"
	"github.com/noah-isme/toko-promo/internal/customer"
	"github.com/noah-isme/toko-promo/internal/discount"
	"github.com/noah-isme/toko-promo/internal/obs"
)

// ErrNotFound is returned by a Source when no coupon matches the code.
var ErrNotFound = errors.New("coupon not found")

// Source captures the storage reads the validator needs. CountUsage filters
// by whichever identity field is non-empty; with both empty it counts every
// record for the coupon.
type Source interface {
	FindCoupon(ctx context.Context, storeID uuid.UUID, normalizedCode string) (Coupon, error)
	CountUsage(ctx context.Context, couponID uuid.UUID, phone, email string) (int64, error)
}

// Result is the outcome of a validation attempt. Valid results carry the
// computed discount; invalid ones carry the gate that failed.
type Result struct {
	Valid    bool
	CouponID uuid.UUID
	Code     string
	Kind     discount.Kind
	Value    int64
	Amount   cart.Money
	Reason   RejectionReason
}

// Validator runs the sequential gate checks for a coupon code. Checks
// short-circuit on the first failure; calling Validate again without a state
// change yields the same reason.
type Validator struct {
	Source     Source
	Classifier customer.Classifier
	Now        func() time.Time
}

// Validate answers whether the code applies to the cart and, if so, how much
// it is worth. Storage failures (other than a missing code) surface as
// errors so the caller can decide to fail the coupon path without guessing
// at usage counts.
func (v *Validator) Validate(ctx context.Context, storeID uuid.UUID, code string, snap cart.Snapshot, identity customer.Identity, paymentMethod string) (Result, error) {
	if v == nil || v.Source == nil {
		return Result{}, errors.New("coupon validator not configured")
	}
	normalized := NormalizeCode(code)
	if normalized == "" {
		return v.reject(ReasonNotFound), nil
	}
	c, err := v.Source.FindCoupon(ctx, storeID, normalized)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return v.reject(ReasonNotFound), nil
		}
		return Result{}, fmt.Errorf("find coupon: %w", err)
	}

	now := v.now()
	if c.Status != StatusActive {
		return v.reject(ReasonInactive), nil
	}
	if !now.Before(c.ExpiryDate) {
		return v.reject(ReasonExpired), nil
	}
	if now.Before(c.StartDate) {
		return v.reject(ReasonNotYetActive), nil
	}
	subtotal := snap.Subtotal()
	if c.MinOrderValue != nil && subtotal < *c.MinOrderValue {
		return v.reject(ReasonBelowMinimum), nil
	}
	if !discount.PaymentCompatible(c.OrderScope, paymentMethod) {
		return v.reject(ReasonPaymentMethodNotAllowed), nil
	}
	if c.CustomerType != CustomerAll {
		kind := v.Classifier.Classify(ctx, storeID, identity)
		if (c.CustomerType == CustomerNew && kind != customer.KindNew) ||
			(c.CustomerType == CustomerReturning && kind != customer.KindReturning) {
			return v.reject(ReasonWrongCustomerType), nil
		}
	}
	if c.FirstOrderOnly {
		if v.Classifier.Classify(ctx, storeID, identity) != customer.KindNew {
			return v.reject(ReasonNotFirstOrder), nil
		}
	}
	if c.UsageLimitTotal != nil {
		total, err := v.Source.CountUsage(ctx, c.ID, "", "")
		if err != nil {
			return Result{}, fmt.Errorf("count coupon usage: %w", err)
		}
		if total >= int64(*c.UsageLimitTotal) {
			return v.reject(ReasonLimitExceeded), nil
		}
	}
	if c.UsageLimitPerCustomer != nil {
		used, err := v.countForCustomer(ctx, c.ID, identity)
		if err != nil {
			return Result{}, fmt.Errorf("count per-customer usage: %w", err)
		}
		if used >= int64(*c.UsageLimitPerCustomer) {
			return v.reject(ReasonPerCustomerLimitExceeded), nil
		}
	}

	var maxDiscount cart.Money
	if c.MaxDiscount != nil {
		maxDiscount = *c.MaxDiscount
	}
	amount := discount.ComputeCapped(subtotal, c.Kind, c.Value, maxDiscount)
	if amount > subtotal {
		amount = subtotal
	}
	obs.ObserveCouponValidation("valid")
	return Result{
		Valid:    true,
		CouponID: c.ID,
		Code:     c.Code,
		Kind:     c.Kind,
		Value:    c.Value,
		Amount:   amount,
	}, nil
}

// countForCustomer counts prior redemptions by phone first; only when the
// phone has no records does the email count apply. Anonymous shoppers count
// as zero.
func (v *Validator) countForCustomer(ctx context.Context, couponID uuid.UUID, identity customer.Identity) (int64, error) {
	id := identity.Normalize()
	if !id.Known() {
		return 0, nil
	}
	if id.Phone != "" {
		count, err := v.Source.CountUsage(ctx, couponID, id.Phone, "")
		if err != nil {
			return 0, err
		}
		if count > 0 || id.Email == "" {
			return count, nil
		}
	}
	return v.Source.CountUsage(ctx, couponID, "", id.Email)
}

func (v *Validator) reject(reason RejectionReason) Result {
	obs.ObserveCouponValidation(string(reason))
	return Result{Reason: reason}
}

func (v *Validator) now() time.Time {
	if v != nil && v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

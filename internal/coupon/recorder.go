package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-promo/internal/cart"
	"github.com/noah-isme/toko-promo/internal/customer"
	"github.com/noah-isme/toko-promo/internal/events"
	"github.com/noah-isme/toko-promo/internal/obs"
)

var (
	// ErrLimitExceeded is returned when the claim would pass the global cap.
	ErrLimitExceeded = errors.New("coupon usage limit exceeded")
	// ErrPerCustomerLimitExceeded is returned when the claim would pass the
	// per-customer cap.
	ErrPerCustomerLimitExceeded = errors.New("coupon per-customer usage limit exceeded")
)

// UsageStore commits a usage record while enforcing the caps. The claim must
// recount and insert atomically (single transaction holding the coupon row)
// so that a concurrent claim can never observe a stale count. A record that
// already exists for the same coupon and order is a no-op.
type UsageStore interface {
	ClaimUsage(ctx context.Context, rec UsageRecord, totalLimit, perCustomerLimit int32) error
}

// Locker serialises work per key; satisfied by lock.Locker.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Recorder commits a coupon redemption as an auditable usage record. Invoked
// exactly once per order that redeemed a coupon, after the order is durably
// created and validation has succeeded.
type Recorder struct {
	Store   UsageStore
	Locker  Locker
	LockTTL time.Duration
	Events  *events.Bus
	Logger  *zerolog.Logger
}

// LockKey returns the advisory lock key that serialises claims for a coupon.
// The scope is a single coupon: claims for unrelated coupons never contend.
func LockKey(couponID uuid.UUID) string {
	return "promo:lock:coupon:" + couponID.String()
}

// Record appends the usage record for the given order. The coupon's caps are
// re-enforced inside the claim; ErrLimitExceeded and
// ErrPerCustomerLimitExceeded report a cap that filled up between validation
// and commit.
func (r *Recorder) Record(ctx context.Context, c Coupon, orderID uuid.UUID, identity customer.Identity, applied cart.Money) error {
	if r == nil || r.Store == nil {
		return errors.New("usage recorder not configured")
	}
	if c.ID == uuid.Nil || orderID == uuid.Nil {
		return errors.New("coupon and order ids are required")
	}
	if applied < 0 {
		applied = 0
	}
	id := identity.Normalize()
	rec := UsageRecord{
		ID:              uuid.New(),
		CouponID:        c.ID,
		OrderID:         orderID,
		CustomerPhone:   id.Phone,
		CustomerEmail:   id.Email,
		DiscountApplied: applied,
		UsedAt:          time.Now(),
	}
	var totalLimit, perCustomerLimit int32
	if c.UsageLimitTotal != nil {
		totalLimit = *c.UsageLimitTotal
	}
	if c.UsageLimitPerCustomer != nil {
		perCustomerLimit = *c.UsageLimitPerCustomer
	}

	claim := func(ctx context.Context) error {
		return r.Store.ClaimUsage(ctx, rec, totalLimit, perCustomerLimit)
	}
	var err error
	if r.Locker != nil {
		err = r.Locker.WithLock(ctx, LockKey(c.ID), r.lockTTL(), claim)
	} else {
		err = claim(ctx)
	}
	if err != nil {
		obs.ObserveCouponRedemption(redemptionResult(err))
		return fmt.Errorf("claim coupon usage: %w", err)
	}
	obs.ObserveCouponRedemption("recorded")
	if r.Events != nil {
		payload := map[string]any{
			"couponId": c.ID.String(),
			"code":     c.Code,
			"orderId":  orderID.String(),
			"amount":   applied,
		}
		if _, emitErr := r.Events.Emit(ctx, events.TopicCouponRedeemed, c.ID, payload); emitErr != nil && r.Logger != nil {
			r.Logger.Error().Err(emitErr).Str("coupon_id", c.ID.String()).Msg("emit coupon.redeemed")
		}
	}
	return nil
}

func (r *Recorder) lockTTL() time.Duration {
	if r.LockTTL > 0 {
		return r.LockTTL
	}
	return 10 * time.Second
}

func redemptionResult(err error) string {
	switch {
	case errors.Is(err, ErrLimitExceeded):
		return "limit_exceeded"
	case errors.Is(err, ErrPerCustomerLimitExceeded):
		return "per_customer_limit_exceeded"
	default:
		return "error"
	}
}

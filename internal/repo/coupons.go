package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/toko-promo/internal/cart"
	"github.com/noah-isme/toko-promo/internal/coupon"
	"github.com/noah-isme/toko-promo/internal/discount"
)

const (
	findCouponSQL = `SELECT id, store_id, code, discount_type, discount_value, max_discount,
		min_order_value, start_date, expiry_date, usage_limit_total, usage_limit_per_customer,
		applicable_scope, customer_type, first_order_only, order_type_scope, status
		FROM coupons
		WHERE store_id = $1 AND code = $2`

	countUsageSQL = `SELECT COUNT(*) FROM coupon_usages
		WHERE coupon_id = $1
		AND ($2 = '' OR customer_phone = $2)
		AND ($3 = '' OR customer_email = $3)`

	lockCouponSQL = `SELECT id FROM coupons WHERE id = $1 FOR UPDATE`

	usageExistsSQL = `SELECT EXISTS(
		SELECT 1 FROM coupon_usages WHERE coupon_id = $1 AND order_id = $2)`

	countUsageForCustomerSQL = `SELECT COUNT(*) FROM coupon_usages
		WHERE coupon_id = $1
		AND (($2 <> '' AND customer_phone = $2) OR ($3 <> '' AND customer_email = $3))`

	insertUsageSQL = `INSERT INTO coupon_usages
		(id, coupon_id, order_id, customer_phone, customer_email, discount_applied, used_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (coupon_id, order_id) DO NOTHING`

	markExpiredSQL = `UPDATE coupons SET status = 'expired'
		WHERE status = 'active' AND expiry_date <= $1`
)

var (
	_ coupon.Source     = (*Coupons)(nil)
	_ coupon.UsageStore = (*Coupons)(nil)
)

// Coupons reads coupon configuration and commits usage records in PostgreSQL.
type Coupons struct {
	pool *pgxpool.Pool
}

// NewCoupons returns a Coupons repository backed by the given pool.
func NewCoupons(pool *pgxpool.Pool) *Coupons {
	return &Coupons{pool: pool}
}

// FindCoupon looks up a coupon by store and normalised code. Returns
// coupon.ErrNotFound when no row matches.
func (r *Coupons) FindCoupon(ctx context.Context, storeID uuid.UUID, normalizedCode string) (coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, findCouponSQL, storeID, normalizedCode)
	if err != nil {
		return coupon.Coupon{}, fmt.Errorf("finding coupon %q: %w", normalizedCode, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return coupon.Coupon{}, coupon.ErrNotFound
		}
		return coupon.Coupon{}, fmt.Errorf("finding coupon %q: %w", normalizedCode, err)
	}
	return c, nil
}

// CountUsage counts usage records for a coupon, optionally filtered by phone
// and/or email. Empty filters count every record.
func (r *Coupons) CountUsage(ctx context.Context, couponID uuid.UUID, phone, email string) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, countUsageSQL, couponID, phone, email).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting usage for coupon %s: %w", couponID, err)
	}
	return count, nil
}

// ClaimUsage inserts a usage record while re-enforcing the coupon's caps in a
// single transaction. The coupon row is locked first, so concurrent claims
// for the same coupon serialise and each one recounts against committed
// records only. A record already present for the same coupon and order makes
// the claim a no-op.
func (r *Coupons) ClaimUsage(ctx context.Context, rec coupon.UsageRecord, totalLimit, perCustomerLimit int32) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning usage claim: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var lockedID uuid.UUID
	if err := tx.QueryRow(ctx, lockCouponSQL, rec.CouponID).Scan(&lockedID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return coupon.ErrNotFound
		}
		return fmt.Errorf("locking coupon %s: %w", rec.CouponID, err)
	}

	var exists bool
	if err := tx.QueryRow(ctx, usageExistsSQL, rec.CouponID, rec.OrderID).Scan(&exists); err != nil {
		return fmt.Errorf("checking usage for order %s: %w", rec.OrderID, err)
	}
	if exists {
		return tx.Commit(ctx)
	}

	if totalLimit > 0 {
		var total int64
		if err := tx.QueryRow(ctx, countUsageSQL, rec.CouponID, "", "").Scan(&total); err != nil {
			return fmt.Errorf("counting usage for coupon %s: %w", rec.CouponID, err)
		}
		if total >= int64(totalLimit) {
			return coupon.ErrLimitExceeded
		}
	}
	if perCustomerLimit > 0 && (rec.CustomerPhone != "" || rec.CustomerEmail != "") {
		var used int64
		if err := tx.QueryRow(ctx, countUsageForCustomerSQL, rec.CouponID, rec.CustomerPhone, rec.CustomerEmail).Scan(&used); err != nil {
			return fmt.Errorf("counting customer usage for coupon %s: %w", rec.CouponID, err)
		}
		if used >= int64(perCustomerLimit) {
			return coupon.ErrPerCustomerLimitExceeded
		}
	}

	if _, err := tx.Exec(ctx, insertUsageSQL,
		rec.ID, rec.CouponID, rec.OrderID, rec.CustomerPhone, rec.CustomerEmail,
		rec.DiscountApplied, rec.UsedAt,
	); err != nil {
		return fmt.Errorf("inserting usage for coupon %s: %w", rec.CouponID, err)
	}
	return tx.Commit(ctx)
}

// MarkExpired flips active coupons whose expiry has passed to expired and
// reports how many rows changed. Run periodically by the sweeper; the
// validator enforces the window on its own, so the sweep is bookkeeping, not
// correctness.
func (r *Coupons) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, markExpiredSQL, now)
	if err != nil {
		return 0, fmt.Errorf("marking expired coupons: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c             coupon.Coupon
		kind          string
		maxDiscount   *cart.Money
		minOrder      *cart.Money
		limitTotal    *int32
		limitCustomer *int32
		scope         string
		customerType  string
		orderScope    string
		status        string
	)
	err := row.Scan(
		&c.ID, &c.StoreID, &c.Code, &kind, &c.Value, &maxDiscount,
		&minOrder, &c.StartDate, &c.ExpiryDate, &limitTotal, &limitCustomer,
		&scope, &customerType, &c.FirstOrderOnly, &orderScope, &status,
	)
	c.Kind = discount.Kind(kind)
	c.MaxDiscount = maxDiscount
	c.MinOrderValue = minOrder
	c.UsageLimitTotal = limitTotal
	c.UsageLimitPerCustomer = limitCustomer
	c.Scope = coupon.ApplicableScope(scope)
	c.CustomerType = coupon.CustomerType(customerType)
	c.OrderScope = discount.OrderScope(orderScope)
	c.Status = coupon.Status(status)
	return c, err
}

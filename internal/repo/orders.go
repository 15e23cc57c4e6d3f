package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/toko-promo/internal/customer"
)

const countPriorOrdersSQL = `SELECT COUNT(*) FROM orders
	WHERE store_id = $1
	AND (($2 <> '' AND customer_phone = $2) OR ($3 <> '' AND customer_email = $3))`

var _ customer.History = (*Orders)(nil)

// Orders answers order-history questions for customer classification.
type Orders struct {
	pool *pgxpool.Pool
}

// NewOrders returns an Orders repository backed by the given pool.
func NewOrders(pool *pgxpool.Pool) *Orders {
	return &Orders{pool: pool}
}

// CountPriorOrders counts a shopper's completed orders at the store, matching
// by phone or email.
func (r *Orders) CountPriorOrders(ctx context.Context, storeID uuid.UUID, phone, email string) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, countPriorOrdersSQL, storeID, phone, email).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting prior orders: %w", err)
	}
	return count, nil
}

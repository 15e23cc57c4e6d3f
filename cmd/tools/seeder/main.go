package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/toko-promo/internal/config"
)

// Seeds a demo store with automatic discount rules and coupons so the engine
// can be exercised locally without an admin surface.
func main() {
	cfg := config.MustLoad()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	storeID := uuid.MustParse(envOrDefault("SEED_STORE_ID", "5f7c2f6a-9d0e-4b1a-8f3c-2a6b1d4e9c01"))
	log.Printf("Using Store ID: %s", storeID)

	seedRules(ctx, pool, storeID)
	seedCoupons(ctx, pool, storeID)
	seedOrders(ctx, pool, storeID)

	log.Println("Seeding completed successfully!")
}

func seedRules(ctx context.Context, pool *pgxpool.Pool, storeID uuid.UUID) {
	log.Println("Seeding automatic discount rules...")

	now := time.Now()
	start := now.AddDate(0, -1, 0)
	expiry := now.AddDate(1, 0, 0)

	tieredID := uuid.New()
	mustExec(ctx, pool, `INSERT INTO automatic_discount_rules
		(id, store_id, name, rule_type, order_type_scope, status, start_date, expiry_date)
		VALUES ($1, $2, $3, 'tiered_value', 'all', 'active', $4, $5)
		ON CONFLICT (id) DO NOTHING`,
		tieredID, storeID, "Spend more, save more", start, expiry)

	tiers := []struct {
		order    int
		minValue int64
		value    int64
	}{
		{1, 50000, 5},
		{2, 100000, 10},
		{3, 250000, 15},
	}
	for _, t := range tiers {
		mustExec(ctx, pool, `INSERT INTO discount_tiers
			(id, rule_id, tier_order, min_order_value, discount_type, discount_value)
			VALUES ($1, $2, $3, $4, 'percentage', $5)
			ON CONFLICT (rule_id, tier_order) DO NOTHING`,
			uuid.New(), tieredID, t.order, t.minValue, t.value)
	}

	categoryID := uuid.New()
	mustExec(ctx, pool, `INSERT INTO automatic_discount_rules
		(id, store_id, name, rule_type, order_type_scope, status, start_date, expiry_date)
		VALUES ($1, $2, $3, 'category', 'all', 'active', $4, $5)
		ON CONFLICT (id) DO NOTHING`,
		categoryID, storeID, "Electronics promo", start, expiry)
	mustExec(ctx, pool, `INSERT INTO discount_rule_entries
		(id, rule_id, rule_value, discount_type, discount_value)
		VALUES ($1, $2, 'electronics', 'percentage', 25)`,
		uuid.New(), categoryID)

	newCustomerID := uuid.New()
	mustExec(ctx, pool, `INSERT INTO automatic_discount_rules
		(id, store_id, name, rule_type, order_type_scope, status, start_date, expiry_date)
		VALUES ($1, $2, $3, 'new_customer', 'all', 'active', $4, $5)
		ON CONFLICT (id) DO NOTHING`,
		newCustomerID, storeID, "Welcome discount", start, expiry)
	mustExec(ctx, pool, `INSERT INTO discount_rule_entries
		(id, rule_id, rule_value, discount_type, discount_value)
		VALUES ($1, $2, 'new', 'percentage', 20)`,
		uuid.New(), newCustomerID)
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool, storeID uuid.UUID) {
	log.Println("Seeding coupons...")

	now := time.Now()
	start := now.AddDate(0, -1, 0)
	expiry := now.AddDate(1, 0, 0)

	coupons := []struct {
		code         string
		kind         string
		value        int64
		minOrder     *int64
		limitTotal   *int32
		limitPerUser *int32
		customerType string
	}{
		{"WELCOME10", "percentage", 10, int64Ptr(100000), nil, int32Ptr(1), "new"},
		{"HEMAT5000", "flat", 5000, int64Ptr(50000), int32Ptr(500), nil, "all"},
		{"LOYAL15", "percentage", 15, nil, nil, int32Ptr(3), "returning"},
	}
	for _, c := range coupons {
		mustExec(ctx, pool, `INSERT INTO coupons
			(id, store_id, code, discount_type, discount_value, min_order_value,
			start_date, expiry_date, usage_limit_total, usage_limit_per_customer,
			customer_type, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 'active')
			ON CONFLICT (store_id, code) DO NOTHING`,
			uuid.New(), storeID, c.code, c.kind, c.value, c.minOrder,
			start, expiry, c.limitTotal, c.limitPerUser, c.customerType)
	}
}

func seedOrders(ctx context.Context, pool *pgxpool.Pool, storeID uuid.UUID) {
	log.Println("Seeding order history...")

	orders := []struct {
		phone string
		email string
		total int64
	}{
		{"9876543210", "budi@example.com", 150000},
		{"9876543210", "budi@example.com", 80000},
		{"", "siti@example.com", 230000},
	}
	for _, o := range orders {
		mustExec(ctx, pool, `INSERT INTO orders
			(id, store_id, customer_phone, customer_email, total)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING`,
			uuid.New(), storeID, o.phone, o.email, o.total)
	}
}

func mustExec(ctx context.Context, pool *pgxpool.Pool, sql string, args ...any) {
	if _, err := pool.Exec(ctx, sql, args...); err != nil {
		log.Fatalf("Seed statement failed: %v", err)
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func int64Ptr(v int64) *int64 { return &v }
func int32Ptr(v int32) *int32 { return &v }

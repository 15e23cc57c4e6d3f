package coupon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/toko-promo/internal/cart"
	"github.com/noah-isme/toko-promo/internal/customer"
	"github.com/noah-isme/toko-promo/internal/discount"
)

type stubSource struct {
	coupon   Coupon
	findErr  error
	countErr error

	// usage counts keyed by "phone|email"
	counts map[string]int64
}

func (s *stubSource) FindCoupon(_ context.Context, _ uuid.UUID, code string) (Coupon, error) {
	if s.findErr != nil {
		return Coupon{}, s.findErr
	}
	if s.coupon.Code != code {
		return Coupon{}, ErrNotFound
	}
	return s.coupon, nil
}

func (s *stubSource) CountUsage(_ context.Context, _ uuid.UUID, phone, email string) (int64, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	return s.counts[phone+"|"+email], nil
}

type fixedHistory int64

func (h fixedHistory) CountPriorOrders(context.Context, uuid.UUID, string, string) (int64, error) {
	return int64(h), nil
}

func moneyPtr(v cart.Money) *cart.Money { return &v }
func int32Ptr(v int32) *int32           { return &v }

func activeCoupon() Coupon {
	now := time.Now()
	return Coupon{
		ID:           uuid.New(),
		StoreID:      uuid.New(),
		Code:         "SAVE10",
		Kind:         discount.KindPercentage,
		Value:        10,
		StartDate:    now.Add(-time.Hour),
		ExpiryDate:   now.Add(time.Hour),
		Scope:        ScopeAllItems,
		CustomerType: CustomerAll,
		OrderScope:   discount.ScopeAll,
		Status:       StatusActive,
	}
}

func snapshotWorth(amount cart.Money) cart.Snapshot {
	return cart.Snapshot{Lines: []cart.Line{{ItemID: "x", UnitPrice: amount, Qty: 1}}}
}

func validatorFor(src Source) *Validator {
	return &Validator{Source: src, Classifier: customer.Classifier{History: fixedHistory(0)}}
}

func TestValidateSuccess(t *testing.T) {
	c := activeCoupon()
	v := validatorFor(&stubSource{coupon: c})

	res, err := v.Validate(context.Background(), c.StoreID, "save10", snapshotWorth(3000), customer.Identity{}, "card")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Valid {
		t.Fatalf("expected valid result, got reason %s", res.Reason)
	}
	if res.Amount != 300 {
		t.Fatalf("expected 10%% of 3000 = 300, got %d", res.Amount)
	}
	if res.CouponID != c.ID {
		t.Fatalf("expected coupon id %s, got %s", c.ID, res.CouponID)
	}
}

func TestValidateUnknownCode(t *testing.T) {
	v := validatorFor(&stubSource{coupon: activeCoupon()})
	res, err := v.Validate(context.Background(), uuid.New(), "NOPE", snapshotWorth(1000), customer.Identity{}, "card")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Valid || res.Reason != ReasonNotFound {
		t.Fatalf("expected NOT_FOUND, got valid=%v reason=%s", res.Valid, res.Reason)
	}
}

func TestValidateBelowMinimum(t *testing.T) {
	c := activeCoupon()
	c.MinOrderValue = moneyPtr(1000)
	v := validatorFor(&stubSource{coupon: c})

	res, err := v.Validate(context.Background(), c.StoreID, "SAVE10", snapshotWorth(800), customer.Identity{}, "card")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Valid || res.Reason != ReasonBelowMinimum {
		t.Fatalf("expected BELOW_MINIMUM, got valid=%v reason=%s", res.Valid, res.Reason)
	}
}

func TestValidatePerCustomerLimitByPhone(t *testing.T) {
	c := activeCoupon()
	c.UsageLimitPerCustomer = int32Ptr(1)
	src := &stubSource{coupon: c, counts: map[string]int64{"9876543210|": 1}}
	v := validatorFor(src)

	res, err := v.Validate(context.Background(), c.StoreID, "SAVE10", snapshotWorth(2000), customer.Identity{Phone: "9876543210"}, "card")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Valid || res.Reason != ReasonPerCustomerLimitExceeded {
		t.Fatalf("expected PER_CUSTOMER_LIMIT_EXCEEDED, got valid=%v reason=%s", res.Valid, res.Reason)
	}

	// repeating the same attempt yields the same reason
	res2, err := v.Validate(context.Background(), c.StoreID, "SAVE10", snapshotWorth(2000), customer.Identity{Phone: "9876543210"}, "card")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res2.Reason != res.Reason {
		t.Fatalf("expected stable rejection, got %s then %s", res.Reason, res2.Reason)
	}
}

func TestValidatePerCustomerFallsBackToEmail(t *testing.T) {
	c := activeCoupon()
	c.UsageLimitPerCustomer = int32Ptr(1)
	src := &stubSource{coupon: c, counts: map[string]int64{"|budi@example.com": 1}}
	v := validatorFor(src)

	identity := customer.Identity{Phone: "0000000000", Email: "Budi@Example.com"}
	res, err := v.Validate(context.Background(), c.StoreID, "SAVE10", snapshotWorth(2000), identity, "card")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Valid || res.Reason != ReasonPerCustomerLimitExceeded {
		t.Fatalf("expected email count to enforce the limit, got valid=%v reason=%s", res.Valid, res.Reason)
	}
}

func TestValidateTotalLimit(t *testing.T) {
	c := activeCoupon()
	c.UsageLimitTotal = int32Ptr(5)
	src := &stubSource{coupon: c, counts: map[string]int64{"|": 5}}
	v := validatorFor(src)

	res, err := v.Validate(context.Background(), c.StoreID, "SAVE10", snapshotWorth(2000), customer.Identity{}, "card")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Valid || res.Reason != ReasonLimitExceeded {
		t.Fatalf("expected LIMIT_EXCEEDED, got valid=%v reason=%s", res.Valid, res.Reason)
	}
}

func TestValidateGateOrder(t *testing.T) {
	// A disabled coupon that is also expired and below minimum must report
	// INACTIVE: gates run in sequence and stop at the first failure.
	c := activeCoupon()
	c.Status = StatusDisabled
	c.ExpiryDate = time.Now().Add(-time.Hour)
	c.MinOrderValue = moneyPtr(100000)
	v := validatorFor(&stubSource{coupon: c})

	res, err := v.Validate(context.Background(), c.StoreID, "SAVE10", snapshotWorth(100), customer.Identity{}, "card")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reason != ReasonInactive {
		t.Fatalf("expected INACTIVE to win the gate order, got %s", res.Reason)
	}
}

func TestValidateExpiryInstantRejected(t *testing.T) {
	c := activeCoupon()
	now := time.Now()
	c.ExpiryDate = now
	v := validatorFor(&stubSource{coupon: c})
	v.Now = func() time.Time { return now }

	res, err := v.Validate(context.Background(), c.StoreID, "SAVE10", snapshotWorth(1000), customer.Identity{}, "card")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reason != ReasonExpired {
		t.Fatalf("expected the expiry instant itself to reject, got %s", res.Reason)
	}
}

func TestValidateNotYetActive(t *testing.T) {
	c := activeCoupon()
	c.StartDate = time.Now().Add(time.Hour)
	v := validatorFor(&stubSource{coupon: c})

	res, err := v.Validate(context.Background(), c.StoreID, "SAVE10", snapshotWorth(1000), customer.Identity{}, "card")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reason != ReasonNotYetActive {
		t.Fatalf("expected NOT_YET_ACTIVE, got %s", res.Reason)
	}
}

func TestValidatePaymentMethodGate(t *testing.T) {
	c := activeCoupon()
	c.OrderScope = discount.ScopeOnline
	v := validatorFor(&stubSource{coupon: c})

	res, err := v.Validate(context.Background(), c.StoreID, "SAVE10", snapshotWorth(1000), customer.Identity{}, "cod")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reason != ReasonPaymentMethodNotAllowed {
		t.Fatalf("expected PAYMENT_METHOD_NOT_ALLOWED, got %s", res.Reason)
	}
}

func TestValidateWrongCustomerType(t *testing.T) {
	c := activeCoupon()
	c.CustomerType = CustomerReturning
	v := validatorFor(&stubSource{coupon: c}) // history reports zero prior orders

	res, err := v.Validate(context.Background(), c.StoreID, "SAVE10", snapshotWorth(1000), customer.Identity{Phone: "9876543210"}, "card")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reason != ReasonWrongCustomerType {
		t.Fatalf("expected WRONG_CUSTOMER_TYPE, got %s", res.Reason)
	}
}

func TestValidateFirstOrderOnly(t *testing.T) {
	c := activeCoupon()
	c.FirstOrderOnly = true
	v := &Validator{Source: &stubSource{coupon: c}, Classifier: customer.Classifier{History: fixedHistory(2)}}

	res, err := v.Validate(context.Background(), c.StoreID, "SAVE10", snapshotWorth(1000), customer.Identity{Phone: "9876543210"}, "card")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reason != ReasonNotFirstOrder {
		t.Fatalf("expected NOT_FIRST_ORDER, got %s", res.Reason)
	}
}

func TestValidateMaxDiscountCap(t *testing.T) {
	c := activeCoupon()
	c.Value = 50
	c.MaxDiscount = moneyPtr(200)
	v := validatorFor(&stubSource{coupon: c})

	res, err := v.Validate(context.Background(), c.StoreID, "SAVE10", snapshotWorth(3000), customer.Identity{}, "card")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Valid || res.Amount != 200 {
		t.Fatalf("expected amount capped at 200, got valid=%v amount=%d", res.Valid, res.Amount)
	}
}

func TestValidateUsageCountFailureSurfacesError(t *testing.T) {
	c := activeCoupon()
	c.UsageLimitTotal = int32Ptr(5)
	v := validatorFor(&stubSource{coupon: c, countErr: errors.New("db down")})

	_, err := v.Validate(context.Background(), c.StoreID, "SAVE10", snapshotWorth(1000), customer.Identity{}, "card")
	if err == nil {
		t.Fatal("expected usage count failure to surface as an error")
	}
}

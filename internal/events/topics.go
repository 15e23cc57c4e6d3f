package events

// Topic constants for domain events emitted by the engine.
const (
	TopicCouponRedeemed  = "coupon.redeemed"
	TopicDiscountApplied = "discount.applied"
)

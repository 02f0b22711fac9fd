package events

// Topic constants for events emitted by the cart and checkout flow.
const (
	TopicCouponApplied   = "cart.coupon_applied"
	TopicCouponRejected  = "cart.coupon_rejected"
	TopicCartCleared     = "cart.cleared"
	TopicCheckoutStarted = "cart.checkout_started"
	TopicOrderPlaced     = "checkout.order_placed"
)

// DefaultTopics returns the canonical list of topics.
func DefaultTopics() []string {
	return []string{
		TopicCouponApplied,
		TopicCouponRejected,
		TopicCartCleared,
		TopicCheckoutStarted,
		TopicOrderPlaced,
	}
}

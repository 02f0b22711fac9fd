package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// LedgerMutationsTotal counts ledger mutations by operation and outcome.
	LedgerMutationsTotal *prometheus.CounterVec
	// CouponApplyTotal counts coupon submissions by outcome.
	CouponApplyTotal *prometheus.CounterVec
	// CheckoutTotal counts checkout steps by stage and outcome.
	CheckoutTotal *prometheus.CounterVec
	// OrderAmount observes placed order totals in major currency units.
	OrderAmount prometheus.Histogram
	// EventsTotal counts emitted domain events by topic.
	EventsTotal *prometheus.CounterVec
	// RateLimitedTotal counts requests rejected by the rate limiter.
	RateLimitedTotal *prometheus.CounterVec
	// BreakerState reports circuit breaker state per target: 0=closed, 1=open, 2=half-open.
	BreakerState *prometheus.GaugeVec
	// BreakerTransitionsTotal counts circuit breaker state transitions.
	BreakerTransitionsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		LedgerMutationsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_mutations_total",
			Help:      "Count of cart ledger mutations by operation and result.",
		}, []string{"op", "result"}))
		CouponApplyTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_apply_total",
			Help:      "Count of coupon code submissions by stage and result.",
		}, []string{"stage", "result"}))
		CheckoutTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_total",
			Help:      "Count of checkout steps by stage and result.",
		}, []string{"stage", "result"}))
		OrderAmount = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_amount_dollars",
			Help:      "Distribution of placed order totals.",
			Buckets:   []float64{0, 10, 25, 50, 100, 250, 500, 1000},
		}))
		EventsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Count of emitted domain events by topic.",
		}, []string{"topic"}))
		RateLimitedTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}, []string{"route"}))
		BreakerState = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Current breaker state: 0=closed,1=open,2=half-open.",
		}, []string{"target"}))
		BreakerTransitionsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaker_transition_total",
			Help:      "Count of breaker state transitions.",
		}, []string{"target", "from", "to"}))
	})
}

// IncLedgerMutation records a ledger mutation outcome when metrics are registered.
func IncLedgerMutation(op string, err error) {
	if LedgerMutationsTotal != nil {
		LedgerMutationsTotal.WithLabelValues(op, Result(err)).Inc()
	}
}

// IncCoupon records a coupon submission outcome when metrics are registered.
func IncCoupon(stage, result string) {
	if CouponApplyTotal != nil {
		CouponApplyTotal.WithLabelValues(stage, result).Inc()
	}
}

// IncCheckout records a checkout step outcome when metrics are registered.
func IncCheckout(stage string, err error) {
	if CheckoutTotal != nil {
		CheckoutTotal.WithLabelValues(stage, Result(err)).Inc()
	}
}

// Result maps an error to a metric label.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// register adds the collector or reuses the one already registered under the same descriptor.
func register[T prometheus.Collector](reg prometheus.Registerer, collector T) T {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
			return collector
		}
		panic(fmt.Errorf("register metric: %w", err))
	}
	return collector
}

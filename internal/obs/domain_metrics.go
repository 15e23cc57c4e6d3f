package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CouponValidationTotal counts coupon validation outcomes by result
	// ("valid" or the rejection reason).
	CouponValidationTotal *prometheus.CounterVec
	// CouponRedemptionTotal counts usage-record commits by result.
	CouponRedemptionTotal *prometheus.CounterVec
	// DiscountEvaluationTotal counts automatic rule evaluations by rule type and result.
	DiscountEvaluationTotal *prometheus.CounterVec
	// ResolutionTotal counts top-level resolution outcomes by source.
	ResolutionTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers the engine's Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CouponValidationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_validation_total",
			Help:      "Count of coupon validation outcomes.",
		}, []string{"result"})
		CouponRedemptionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_redemption_total",
			Help:      "Count of coupon usage-record commits by result.",
		}, []string{"result"})
		DiscountEvaluationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discount_evaluation_total",
			Help:      "Count of automatic discount rule evaluations.",
		}, []string{"rule_type", "result"})
		ResolutionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolution_total",
			Help:      "Count of discount resolutions by winning source.",
		}, []string{"source"})

		for _, c := range []**prometheus.CounterVec{
			&CouponValidationTotal, &CouponRedemptionTotal, &DiscountEvaluationTotal, &ResolutionTotal,
		} {
			mustRegisterCounterVec(reg, c)
		}
	})
}

// ObserveCouponValidation records a validation outcome.
func ObserveCouponValidation(result string) {
	if CouponValidationTotal != nil {
		CouponValidationTotal.WithLabelValues(result).Inc()
	}
}

// ObserveCouponRedemption records a usage-record commit outcome.
func ObserveCouponRedemption(result string) {
	if CouponRedemptionTotal != nil {
		CouponRedemptionTotal.WithLabelValues(result).Inc()
	}
}

// ObserveDiscountEvaluation records a rule evaluation outcome.
func ObserveDiscountEvaluation(ruleType string, applicable bool) {
	if DiscountEvaluationTotal == nil {
		return
	}
	result := "not_applicable"
	if applicable {
		result = "applicable"
	}
	DiscountEvaluationTotal.WithLabelValues(ruleType, result).Inc()
}

// ObserveResolution records which source won a resolution.
func ObserveResolution(source string) {
	if ResolutionTotal != nil {
		ResolutionTotal.WithLabelValues(source).Inc()
	}
}

func mustRegisterCounterVec(reg prometheus.Registerer, vec **prometheus.CounterVec) {
	if err := reg.Register(*vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				*vec = existing
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}

package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartOpsTotal counts cart mutations by operation and outcome.
	CartOpsTotal *prometheus.CounterVec
	// DraftOpsTotal counts draft save/restore/clear outcomes.
	DraftOpsTotal *prometheus.CounterVec
	// BillFinalizeTotal counts finalize attempts by outcome.
	BillFinalizeTotal *prometheus.CounterVec
	// BillTotalMinor observes the grand total of submitted bills in minor units.
	BillTotalMinor prometheus.Histogram
	// BackendRequestTotal counts calls to the store backend by endpoint and outcome.
	BackendRequestTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_ops_total",
			Help:      "Count of cart mutations by operation and outcome.",
		}, []string{"op", "result"})
		DraftOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "draft_ops_total",
			Help:      "Count of draft store operations by outcome.",
		}, []string{"op", "result"})
		BillFinalizeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bill_finalize_total",
			Help:      "Count of bill finalize attempts by outcome.",
		}, []string{"result"})
		BillTotalMinor = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bill_total_minor_units",
			Help:      "Grand totals of submitted bills in minor units.",
			Buckets:   []float64{1000, 5000, 10000, 50000, 100000, 500000, 1000000, 5000000},
		})
		BackendRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_request_total",
			Help:      "Count of store backend calls by endpoint and outcome.",
		}, []string{"endpoint", "result"})

		mustRegisterCollector(reg, CartOpsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CartOpsTotal = v
			}
		})
		mustRegisterCollector(reg, DraftOpsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				DraftOpsTotal = v
			}
		})
		mustRegisterCollector(reg, BillFinalizeTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				BillFinalizeTotal = v
			}
		})
		mustRegisterCollector(reg, BillTotalMinor, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				BillTotalMinor = v
			}
		})
		mustRegisterCollector(reg, BackendRequestTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				BackendRequestTotal = v
			}
		})
	})
}

// ObserveCartOp records a cart mutation outcome. Nil-safe so library code can
// call it before metrics are registered (tests, tools).
func ObserveCartOp(op string, err error) {
	if CartOpsTotal == nil {
		return
	}
	CartOpsTotal.WithLabelValues(op, resultLabel(err)).Inc()
}

// ObserveDraftOp records a draft store operation outcome.
func ObserveDraftOp(op string, err error) {
	if DraftOpsTotal == nil {
		return
	}
	DraftOpsTotal.WithLabelValues(op, resultLabel(err)).Inc()
}

// ObserveFinalize records a finalize attempt and, on success, the bill total.
func ObserveFinalize(totalMinor int64, err error) {
	if BillFinalizeTotal != nil {
		BillFinalizeTotal.WithLabelValues(resultLabel(err)).Inc()
	}
	if err == nil && BillTotalMinor != nil {
		BillTotalMinor.Observe(float64(totalMinor))
	}
}

// ObserveBackendRequest records a store backend call outcome.
func ObserveBackendRequest(endpoint string, err error) {
	if BackendRequestTotal == nil {
		return
	}
	BackendRequestTotal.WithLabelValues(endpoint, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}

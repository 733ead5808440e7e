package observability

import (
	"math"
	"math/big"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ContractMetrics tracks rental escrow calls and the balances they leave behind.
type ContractMetrics struct {
	calls     *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	contract  prometheus.Gauge
	adminFees prometheus.Gauge
	throttles *prometheus.CounterVec
}

var (
	contractMetricsOnce sync.Once
	contractRegistry    *ContractMetrics
)

// Contract returns the lazily registered contract metrics.
func Contract() *ContractMetrics {
	contractMetricsOnce.Do(func() {
		contractRegistry = newContractMetrics()
		prometheus.MustRegister(
			contractRegistry.calls,
			contractRegistry.latency,
			contractRegistry.contract,
			contractRegistry.adminFees,
			contractRegistry.throttles,
		)
	})
	return contractRegistry
}

func newContractMetrics() *ContractMetrics {
	return &ContractMetrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rentacar",
			Subsystem: "contract",
			Name:      "calls_total",
			Help:      "Contract calls segmented by method and outcome.",
		}, []string{"method", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rentacar",
			Subsystem: "contract",
			Name:      "call_duration_seconds",
			Help:      "Latency distribution for contract calls including commit.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		contract: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rentacar",
			Subsystem: "escrow",
			Name:      "contract_balance",
			Help:      "Total funds held in escrow by the rental contract.",
		}),
		adminFees: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rentacar",
			Subsystem: "escrow",
			Name:      "admin_fees_balance",
			Help:      "Accumulated commissions withdrawable by the admin.",
		}),
		throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rentacar",
			Subsystem: "rpc",
			Name:      "throttles_total",
			Help:      "Requests rejected by the RPC rate limiter.",
		}, []string{"reason"}),
	}
}

// Observe records one contract call. outcome should be "success" or the
// stable error name returned to the caller.
func (m *ContractMetrics) Observe(method, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	if outcome == "" {
		outcome = "success"
	}
	m.calls.WithLabelValues(method, outcome).Inc()
	m.latency.WithLabelValues(method).Observe(duration.Seconds())
}

// SetBalances publishes the committed escrow balances.
func (m *ContractMetrics) SetBalances(contract, adminFees *big.Int) {
	if m == nil {
		return
	}
	m.contract.Set(bigToFloat(contract))
	m.adminFees.Set(bigToFloat(adminFees))
}

// RecordThrottle counts a rate limited request.
func (m *ContractMetrics) RecordThrottle(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(reason).Inc()
}

func bigToFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	if math.IsInf(f, 0) {
		return math.MaxFloat64
	}
	return f
}

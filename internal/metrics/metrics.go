// internal/metrics/metrics.go
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the ledger's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	Operations    *prometheus.CounterVec
	RoyaltiesNet  prometheus.Counter
	FeesCollected prometheus.Counter
	Withdrawn     prometheus.Counter
	Drift         *prometheus.GaugeVec
	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "State-changing ledger operations by outcome.",
		}, []string{"operation", "outcome"}),
		RoyaltiesNet: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_royalties_net_minor_units_total",
			Help: "Net royalty amount credited to researchers.",
		}),
		FeesCollected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_fees_minor_units_total",
			Help: "Platform fees withheld from royalty payments.",
		}),
		Withdrawn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_withdrawn_minor_units_total",
			Help: "Amount paid out through withdrawals.",
		}),
		Drift: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ledger_reconciliation_drift",
			Help: "Records whose cached value disagrees with the recomputed one, by kind.",
		}, []string{"kind"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(
		m.Operations,
		m.RoyaltiesNet,
		m.FeesCollected,
		m.Withdrawn,
		m.Drift,
		m.HTTPRequests,
		m.HTTPDurations,
	)
	return m
}

// ObserveOperation counts one operation; err decides the outcome label.
func (m *Metrics) ObserveOperation(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.Operations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) AddRoyalty(net, fee int64) {
	if m == nil {
		return
	}
	m.RoyaltiesNet.Add(float64(net))
	m.FeesCollected.Add(float64(fee))
}

func (m *Metrics) AddWithdrawal(amount int64) {
	if m == nil {
		return
	}
	m.Withdrawn.Add(float64(amount))
}

func (m *Metrics) SetDrift(kind string, count int) {
	if m == nil {
		return
	}
	m.Drift.WithLabelValues(kind).Set(float64(count))
}

func (m *Metrics) ObserveHTTP(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDurations.WithLabelValues(route).Observe(seconds)
}

package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "prepaid_billing_"

	resultSuccess = "success"
	resultError   = "error"

	transitionDisconnected = "disconnected"
	transitionReconnected  = "reconnected"
)

var (
	registerOnce sync.Once

	dailyRunsTotal   *prometheus.CounterVec
	dailyRunLatency  *prometheus.HistogramVec
	settlementsTotal *prometheus.CounterVec
	paymentsTotal    *prometheus.CounterVec
	supplyEvents     *prometheus.CounterVec
	consumersGauge   *prometheus.GaugeVec
	walletTotalGauge prometheus.Gauge
)

// Init registers billing metrics with the default registry. Observers are
// no-ops until Init has run, so CLIs that never expose metrics skip it.
func Init() {
	registerOnce.Do(func() {
		dailyRunsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "daily_runs_total",
				Help: "Total daily charge runs by result",
			},
			[]string{"result"},
		)
		dailyRunLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "daily_run_latency_seconds",
				Help:    "Daily charge run latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		settlementsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "settlements_total",
				Help: "Total monthly settlements by status",
			},
			[]string{"status"},
		)
		paymentsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "payments_total",
				Help: "Total payments by kind",
			},
			[]string{"kind"},
		)
		supplyEvents = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "supply_transitions_total",
				Help: "Total supply state transitions",
			},
			[]string{"transition"},
		)
		consumersGauge = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "consumers",
				Help: "Consumers by supply status at the last snapshot",
			},
			[]string{"status"},
		)
		walletTotalGauge = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "wallet_balance_total",
				Help: "Sum of all prepaid wallet balances at the last snapshot",
			},
		)

		prometheus.MustRegister(
			dailyRunsTotal,
			dailyRunLatency,
			settlementsTotal,
			paymentsTotal,
			supplyEvents,
			consumersGauge,
			walletTotalGauge,
		)
	})
}

// ObserveDailyRun records one daily charge run.
func ObserveDailyRun(err error, duration time.Duration) {
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	if dailyRunsTotal != nil {
		dailyRunsTotal.WithLabelValues(result).Inc()
	}
	if dailyRunLatency != nil {
		dailyRunLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncSettlement counts a settlement by its status.
func IncSettlement(status string) {
	if status == "" {
		status = "unknown"
	}
	if settlementsTotal != nil {
		settlementsTotal.WithLabelValues(status).Inc()
	}
}

// IncPayment counts a recharge or arrear payment.
func IncPayment(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	if paymentsTotal != nil {
		paymentsTotal.WithLabelValues(kind).Inc()
	}
}

// IncDisconnection counts a supply cut.
func IncDisconnection() {
	if supplyEvents != nil {
		supplyEvents.WithLabelValues(transitionDisconnected).Inc()
	}
}

// IncReconnection counts a supply restore.
func IncReconnection() {
	if supplyEvents != nil {
		supplyEvents.WithLabelValues(transitionReconnected).Inc()
	}
}

// SetConsumerSnapshot publishes consumer counts per status and the total wallet.
func SetConsumerSnapshot(byStatus map[string]int, walletTotal float64) {
	if consumersGauge != nil {
		consumersGauge.Reset()
		for status, n := range byStatus {
			consumersGauge.WithLabelValues(status).Set(float64(n))
		}
	}
	if walletTotalGauge != nil {
		walletTotalGauge.Set(walletTotal)
	}
}

// Exported constants for callers.
const (
	PaymentRecharge = "recharge"
	PaymentArrear   = "arrear"
)

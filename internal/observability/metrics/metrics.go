package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	metricPrefix = "moninvest_"

	// ResultSuccess labels successful operations.
	ResultSuccess = "success"
	// ResultError labels failed operations.
	ResultError = "error"

	// PassCredited labels passes credited during a settlement run.
	PassCredited = "credited"
	// PassSkipped labels passes skipped (already settled or invalid).
	PassSkipped = "skipped"
	// PassFailed labels passes that failed during a settlement run.
	PassFailed = "failed"
)

var (
	registerOnce sync.Once

	settlementRuns       *prometheus.CounterVec
	settlementRunLatency *prometheus.HistogramVec
	settlementPasses     *prometheus.CounterVec
	settlementCredited   prometheus.Counter

	sweepExpired prometheus.Counter

	commissionsPaid   prometheus.Counter
	commissionsAmount prometheus.Counter

	statementExportTotal   *prometheus.CounterVec
	statementExportLatency *prometheus.HistogramVec

	notificationsDelivered *prometheus.CounterVec

	consumerLag *prometheus.GaugeVec

	httpRequests *prometheus.CounterVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *zap.Logger) {
	registerOnce.Do(func() {
		settlementRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "settlement_runs_total",
				Help: "Total settlement runs by result",
			},
			[]string{"result"},
		)
		settlementRunLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "settlement_run_latency_seconds",
				Help:    "Settlement run latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		settlementPasses = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "settlement_passes_total",
				Help: "Passes processed by settlement runs, by outcome",
			},
			[]string{"outcome"},
		)
		settlementCredited = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "settlement_credited_amount_total",
				Help: "Total amount credited by settlement runs (FCFA)",
			},
		)

		sweepExpired = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "expiry_sweep_passes_total",
				Help: "Total passes transitioned to expired by the sweep",
			},
		)

		commissionsPaid = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "commissions_paid_total",
				Help: "Total referral commissions paid",
			},
		)
		commissionsAmount = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "commissions_amount_total",
				Help: "Total referral commission amount paid (FCFA)",
			},
		)

		statementExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "statement_export_total",
				Help: "Total statement export operations by format and result",
			},
			[]string{"format", "result"},
		)
		statementExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "statement_export_latency_seconds",
				Help:    "Statement export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		notificationsDelivered = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notifications_delivered_total",
				Help: "Notifications delivered by channel and result",
			},
			[]string{"channel", "result"},
		)

		consumerLag = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "event_consumer_lag_seconds",
				Help: "Consumer processing lag in seconds",
			},
			[]string{"consumer"},
		)

		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "HTTP requests by method and status class",
			},
			[]string{"method", "status"},
		)

		prometheus.MustRegister(
			settlementRuns,
			settlementRunLatency,
			settlementPasses,
			settlementCredited,
			sweepExpired,
			commissionsPaid,
			commissionsAmount,
			statementExportTotal,
			statementExportLatency,
			notificationsDelivered,
			consumerLag,
			httpRequests,
		)

		registerDBMetrics(db, logger)
	})
}

// ObserveSettlementRun records one settlement run.
func ObserveSettlementRun(result string, duration time.Duration) {
	if settlementRuns == nil {
		return
	}
	settlementRuns.WithLabelValues(result).Inc()
	settlementRunLatency.WithLabelValues(result).Observe(duration.Seconds())
}

// AddSettlementPasses adds processed pass counts by outcome.
func AddSettlementPasses(outcome string, count int) {
	if settlementPasses == nil || count <= 0 {
		return
	}
	settlementPasses.WithLabelValues(outcome).Add(float64(count))
}

// AddSettlementCredited adds the amount credited by a run.
func AddSettlementCredited(amount int64) {
	if settlementCredited == nil || amount <= 0 {
		return
	}
	settlementCredited.Add(float64(amount))
}

// AddSweepExpired adds the count of passes expired by a sweep.
func AddSweepExpired(count int) {
	if sweepExpired == nil || count <= 0 {
		return
	}
	sweepExpired.Add(float64(count))
}

// ObserveCommission records one paid referral commission.
func ObserveCommission(amount int64) {
	if commissionsPaid == nil {
		return
	}
	commissionsPaid.Inc()
	if amount > 0 {
		commissionsAmount.Add(float64(amount))
	}
}

// ObserveStatementExport records one statement export.
func ObserveStatementExport(format, result string, duration time.Duration) {
	if statementExportTotal == nil {
		return
	}
	statementExportTotal.WithLabelValues(format, result).Inc()
	statementExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
}

// IncNotificationDelivered records one notification delivery attempt.
func IncNotificationDelivered(channel, result string) {
	if notificationsDelivered == nil {
		return
	}
	notificationsDelivered.WithLabelValues(channel, result).Inc()
}

// ObserveConsumerLag sets the processing lag for a consumer.
func ObserveConsumerLag(consumer string, lag time.Duration) {
	if consumerLag == nil || lag < 0 {
		return
	}
	consumerLag.WithLabelValues(consumer).Set(lag.Seconds())
}

// IncHTTPRequest records one served HTTP request.
func IncHTTPRequest(method, statusClass string) {
	if httpRequests == nil {
		return
	}
	httpRequests.WithLabelValues(method, statusClass).Inc()
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the signal daemon.
type Metrics struct {
	// Bar intake
	BarsAppended prometheus.Counter
	BarsRejected *prometheus.CounterVec // labels: reason=malformed|out_of_order
	BarsReplaced prometheus.Counter
	BarLag       prometheus.Gauge

	// Refresh cycles
	CyclesTotal   *prometheus.CounterVec // labels: result=ok|error|empty
	CycleDur      prometheus.Histogram
	StaleReports  prometheus.Counter
	ClassifyDur   prometheus.Histogram
	IndicatorDur  prometheus.Histogram
	PatternsTotal *prometheus.CounterVec // labels: pattern, direction
	MomentumTotal *prometheus.CounterVec // labels: category

	// Sinks
	FanoutDropsTotal *prometheus.CounterVec // labels: subscriber
	SinkErrors       *prometheus.CounterVec // labels: sink
	SQLiteCommitDur  prometheus.Histogram
	RedisWriteDur    prometheus.Histogram
	Notifications    *prometheus.CounterVec // labels: channel, status=sent|failed

	// Circuit breaker
	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter

	// Gateway
	WSClients    prometheus.Gauge
	WSBroadcasts prometheus.Counter
}

// NewMetrics registers all metrics with the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers all metrics with reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	fast := []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005}

	m := &Metrics{
		BarsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "candlewatch_bars_appended_total",
			Help: "Bars accepted into the bar window",
		}),
		BarsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "candlewatch_bars_rejected_total",
			Help: "Bars rejected by the bar window (by reason)",
		}, []string{"reason"}),
		BarsReplaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "candlewatch_bars_replaced_total",
			Help: "Still-forming bars replaced in place",
		}),
		BarLag: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "candlewatch_bar_lag_seconds",
			Help: "Wall clock minus newest bar timestamp at the end of a cycle",
		}),

		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "candlewatch_cycles_total",
			Help: "Refresh cycles run (by result)",
		}, []string{"result"}),
		CycleDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "candlewatch_cycle_duration_seconds",
			Help:    "Refresh cycle latency including bar fetch",
			Buckets: prometheus.DefBuckets,
		}),
		StaleReports: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "candlewatch_stale_reports_total",
			Help: "Cycles whose newest bar was already reported",
		}),
		ClassifyDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "candlewatch_classify_duration_seconds",
			Help:    "Pattern classification latency per cycle",
			Buckets: fast,
		}),
		IndicatorDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "candlewatch_indicator_duration_seconds",
			Help:    "Indicator update latency per bar",
			Buckets: fast,
		}),
		PatternsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "candlewatch_patterns_total",
			Help: "Pattern events reported (by pattern and direction)",
		}, []string{"pattern", "direction"}),
		MomentumTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "candlewatch_momentum_total",
			Help: "Momentum events reported (by category)",
		}, []string{"category"}),

		FanoutDropsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "candlewatch_fanout_drops_total",
			Help: "Reports dropped by the fan-out bus per subscriber",
		}, []string{"subscriber"}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "candlewatch_sink_errors_total",
			Help: "Report sink failures (by sink)",
		}, []string{"sink"}),
		SQLiteCommitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "candlewatch_sqlite_commit_duration_seconds",
			Help:    "SQLite journal commit latency",
			Buckets: prometheus.DefBuckets,
		}),
		RedisWriteDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "candlewatch_redis_write_duration_seconds",
			Help:    "Redis publish latency",
			Buckets: prometheus.DefBuckets,
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "candlewatch_notifications_total",
			Help: "Alert deliveries (by channel and status)",
		}, []string{"channel", "status"}),

		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "candlewatch_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "candlewatch_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),

		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "candlewatch_ws_clients",
			Help: "Connected WebSocket display clients",
		}),
		WSBroadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "candlewatch_ws_broadcasts_total",
			Help: "Event envelopes broadcast to WebSocket clients",
		}),
	}

	reg.MustRegister(
		m.BarsAppended,
		m.BarsRejected,
		m.BarsReplaced,
		m.BarLag,
		m.CyclesTotal,
		m.CycleDur,
		m.StaleReports,
		m.ClassifyDur,
		m.IndicatorDur,
		m.PatternsTotal,
		m.MomentumTotal,
		m.FanoutDropsTotal,
		m.SinkErrors,
		m.SQLiteCommitDur,
		m.RedisWriteDur,
		m.Notifications,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
		m.WSClients,
		m.WSBroadcasts,
	)

	return m
}

package monitor

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/linnemanlabs/vesselwatch/internal/alerting"
)

// TickEvent summarises one tick for metrics.
type TickEvent struct {
	Duration      float64
	Vessels       int
	Outliers      int
	Alerts        int
	RecentAlerts  int
	NewAlerts     int
	Conflicts     int
	AnomalyStatus string
}

// Hooks are optional callbacks fired by the Service.
type Hooks struct {
	OnTick       func(e *TickEvent)
	OnNotify     func(t alerting.Type, err error)
	OnStoreError func(op string)
}

// Metrics holds Prometheus metrics for the monitor subsystem.
type Metrics struct {
	TicksTotal         *prometheus.CounterVec
	TickDuration       prometheus.Histogram
	Vessels            prometheus.Gauge
	Outliers           prometheus.Gauge
	RecentAlerts       prometheus.Gauge
	AlertsRaisedTotal  prometheus.Counter
	TickConflictsTotal prometheus.Counter
	NotificationsTotal *prometheus.CounterVec
	StoreErrorsTotal   *prometheus.CounterVec
}

// NewMetrics registers and returns monitor metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TicksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vesselwatch_ticks_total",
			Help: "Total ticks by anomaly detection status.",
		}, []string{"anomaly_status"}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vesselwatch_tick_duration_seconds",
			Help:    "Duration of tick runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms .. ~2s
		}),
		Vessels: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vesselwatch_vessels",
			Help: "Vessels evaluated in the last tick.",
		}),
		Outliers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vesselwatch_anomaly_outliers",
			Help: "Vessels labelled as outliers in the last tick.",
		}),
		RecentAlerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vesselwatch_recent_alerts",
			Help: "Alert identities currently inside the recency window.",
		}),
		AlertsRaisedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vesselwatch_alerts_raised_total",
			Help: "Total newly raised alerts.",
		}),
		TickConflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vesselwatch_tick_conflicts_total",
			Help: "Tick results dropped because the vessel changed mid-tick.",
		}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vesselwatch_notifications_total",
			Help: "Alert notifications by alert type and status.",
		}, []string{"type", "status"}),
		StoreErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vesselwatch_store_errors_total",
			Help: "Persistence failures by operation.",
		}, []string{"op"}),
	}

	reg.MustRegister(
		m.TicksTotal,
		m.TickDuration,
		m.Vessels,
		m.Outliers,
		m.RecentAlerts,
		m.AlertsRaisedTotal,
		m.TickConflictsTotal,
		m.NotificationsTotal,
		m.StoreErrorsTotal,
	)

	return m
}

// Hooks returns a Hooks that updates the corresponding metrics.
func (m *Metrics) Hooks() Hooks {
	return Hooks{
		OnTick: func(e *TickEvent) {
			m.TicksTotal.WithLabelValues(e.AnomalyStatus).Inc()
			m.TickDuration.Observe(e.Duration)
			m.Vessels.Set(float64(e.Vessels))
			m.Outliers.Set(float64(e.Outliers))
			m.RecentAlerts.Set(float64(e.RecentAlerts))
			m.AlertsRaisedTotal.Add(float64(e.NewAlerts))
			m.TickConflictsTotal.Add(float64(e.Conflicts))
		},
		OnNotify: func(t alerting.Type, err error) {
			status := "success"
			if err != nil {
				status = "error"
			}
			m.NotificationsTotal.WithLabelValues(string(t), status).Inc()
		},
		OnStoreError: func(op string) {
			m.StoreErrorsTotal.WithLabelValues(op).Inc()
		},
	}
}

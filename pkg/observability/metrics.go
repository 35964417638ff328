package observability

import (
	"context"

	"github.com/aretw0/rerun/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors fed by lifecycle hooks.
type Metrics struct {
	Runs        *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec
	Updates     *prometheus.CounterVec
	Skipped     prometheus.Counter
	Duplicates  prometheus.Counter
	ActiveRuns  prometheus.Gauge
}

// NewMetrics creates the collectors and registers them. A nil registerer skips registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rerun_runs_total",
			Help: "Total number of finished script runs",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rerun_run_duration_seconds",
			Help:    "Duration of script runs",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
		Updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rerun_updates_sent_total",
			Help: "Total number of update operations sent to clients",
		}, []string{"kind"}),
		Skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rerun_widgets_skipped_total",
			Help: "Widgets that rendered like the previous run and were not sent",
		}),
		Duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rerun_duplicate_identity_total",
			Help: "Widgets rejected because of a duplicate identity",
		}),
		ActiveRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rerun_active_runs",
			Help: "Runs currently in progress",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Runs, m.RunDuration, m.Updates, m.Skipped, m.Duplicates, m.ActiveRuns)
	}
	return m
}

// Hooks returns lifecycle hooks recording into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunBegin: func(context.Context, *domain.RunEvent) {
			m.ActiveRuns.Inc()
		},
		OnRunEnd: func(_ context.Context, e *domain.RunEvent) {
			m.ActiveRuns.Dec()
			outcome := string(e.Outcome)
			if outcome == "" {
				outcome = string(domain.OutcomeCompleted)
			}
			m.Runs.WithLabelValues(outcome).Inc()
			m.RunDuration.WithLabelValues(outcome).Observe(e.Duration.Seconds())
		},
		OnSend: func(_ context.Context, e *domain.SendEvent) {
			m.Updates.WithLabelValues(string(e.Kind)).Inc()
		},
		OnSkip: func(context.Context, *domain.SendEvent) {
			m.Skipped.Inc()
		},
		OnConflict: func(context.Context, *domain.SendEvent) {
			m.Duplicates.Inc()
		},
	}
}

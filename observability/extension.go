package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xraph/dropout"
	"github.com/xraph/dropout/ext"
	"github.com/xraph/dropout/id"
	"github.com/xraph/dropout/reconcile"
)

// Compile-time interface checks.
var (
	_ ext.Extension     = (*MetricsExtension)(nil)
	_ ext.RunStarted    = (*MetricsExtension)(nil)
	_ ext.PageProcessed = (*MetricsExtension)(nil)
	_ ext.RunCompleted  = (*MetricsExtension)(nil)
	_ ext.RunFailed     = (*MetricsExtension)(nil)
	_ ext.CronFired     = (*MetricsExtension)(nil)
)

const namespace = "dropout"

// MetricsExtension records run lifecycle metrics in Prometheus collectors.
// Page-level counters include pages of runs that were later rolled back;
// the committed totals are on the run_* series.
type MetricsExtension struct {
	RunsStarted    prometheus.Counter
	RunsCompleted  *prometheus.CounterVec // label: outcome (committed, rolled_back)
	RunsFailed     prometheus.Counter
	PagesProcessed prometheus.Counter
	RowsDroppedOut prometheus.Counter
	RowsExcluded   prometheus.Counter
	CronFired      prometheus.Counter
	RunDuration    prometheus.Histogram
	LastEligible   prometheus.Gauge
	LastCutoff     prometheus.Gauge
	LastSuccess    prometheus.Gauge
}

// NewMetricsExtension creates a MetricsExtension and registers its
// collectors with reg. It panics if a collector is already registered.
func NewMetricsExtension(reg prometheus.Registerer) *MetricsExtension {
	m := &MetricsExtension{
		RunsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "runs_started_total",
			Help: "Total number of dropout runs started",
		}),
		RunsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "runs_completed_total",
			Help: "Total number of dropout runs finished without error",
		}, []string{"outcome"}),
		RunsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "runs_failed_total",
			Help: "Total number of dropout runs that failed and rolled back",
		}),
		PagesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "pages_processed_total",
			Help: "Total number of enrollment pages processed",
		}),
		RowsDroppedOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "enrollments_dropped_out_total",
			Help: "Enrollments set to DROPOUT by completed runs",
		}),
		RowsExcluded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "enrollments_excluded_total",
			Help: "Eligible enrollments protected by an exam or submission in completed runs",
		}),
		CronFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "cron_fired_total",
			Help: "Total number of scheduled runs triggered",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "run_duration_seconds",
			Help:    "Duration of completed dropout runs",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
		}),
		LastEligible: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_run_eligible",
			Help: "Eligible enrollments counted by the latest run",
		}),
		LastCutoff: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_run_cutoff_timestamp_seconds",
			Help: "Cutoff used by the latest run",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_success_timestamp_seconds",
			Help: "Time the latest committed run finished",
		}),
	}

	reg.MustRegister(
		m.RunsStarted, m.RunsCompleted, m.RunsFailed,
		m.PagesProcessed, m.RowsDroppedOut, m.RowsExcluded,
		m.CronFired, m.RunDuration,
		m.LastEligible, m.LastCutoff, m.LastSuccess,
	)
	return m
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnRunStarted implements ext.RunStarted.
func (m *MetricsExtension) OnRunStarted(_ context.Context, _ *dropout.Run, cutoff time.Time, eligible int64) error {
	m.RunsStarted.Inc()
	m.LastEligible.Set(float64(eligible))
	m.LastCutoff.Set(float64(cutoff.Unix()))
	return nil
}

// OnPageProcessed implements ext.PageProcessed.
func (m *MetricsExtension) OnPageProcessed(_ context.Context, _ *dropout.Run, _ reconcile.PageResult) error {
	m.PagesProcessed.Inc()
	return nil
}

// OnRunCompleted implements ext.RunCompleted.
func (m *MetricsExtension) OnRunCompleted(_ context.Context, _ *dropout.Run, s *dropout.Summary) error {
	m.RunDuration.Observe(s.Elapsed.Seconds())
	if !s.Committed {
		m.RunsCompleted.WithLabelValues("rolled_back").Inc()
		return nil
	}
	m.RunsCompleted.WithLabelValues("committed").Inc()
	m.RowsDroppedOut.Add(float64(s.DroppedOut))
	m.RowsExcluded.Add(float64(s.ExcludedFromDropout))
	m.LastSuccess.SetToCurrentTime()
	return nil
}

// OnRunFailed implements ext.RunFailed.
func (m *MetricsExtension) OnRunFailed(_ context.Context, _ *dropout.Run, _ error) error {
	m.RunsFailed.Inc()
	return nil
}

// OnCronFired implements ext.CronFired.
func (m *MetricsExtension) OnCronFired(_ context.Context, _ string, _ id.RunID) error {
	m.CronFired.Inc()
	return nil
}

// Package metrics exposes the scheduler's Prometheus instrumentation.
// Counters cover the job lifecycle rate and error dimensions; gauges track
// instantaneous queue depth. Scraped via GET /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "layerline_jobs_created_total",
		Help: "Print jobs created.",
	})

	JobsAssigned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "layerline_jobs_assigned_total",
		Help: "Jobs assigned to a printer (manual and auto).",
	})

	JobsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "layerline_jobs_completed_total",
		Help: "Jobs that finished printing successfully.",
	})

	JobsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "layerline_jobs_failed_total",
		Help: "Jobs that failed during or before printing.",
	})

	JobsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "layerline_jobs_cancelled_total",
		Help: "Jobs cancelled before printing.",
	})

	AssignConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "layerline_assign_conflicts_total",
		Help: "Assignment attempts that lost the printer reservation race.",
	})

	AutoAssignRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "layerline_auto_assign_runs_total",
		Help: "Auto-assign batch invocations.",
	})

	PendingJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "layerline_jobs_pending",
		Help: "Pending jobs observed by the latest auto-assign batch.",
	})
)

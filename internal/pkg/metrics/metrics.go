// Package metrics defines the Prometheus metrics of the payroll engine.
// All metrics register with the default registry on import and are served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "payroll"

// ── Run metrics ───────────────────────────────────────────────────────────────

// RunsCreatedTotal counts newly created runs.
// Label:
//   - correction: "true" for explicit correction runs
var RunsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_created_total",
		Help:      "Total number of payroll runs created.",
	},
	[]string{"correction"},
)

// RunTransitionsTotal counts successful status transitions.
// Label:
//   - to: the status the run moved to
var RunTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "run_transitions_total",
		Help:      "Total number of payroll run status transitions.",
	},
	[]string{"to"},
)

// TimesheetEntriesSkippedTotal counts entries dropped from aggregation for unknown employees.
var TimesheetEntriesSkippedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "timesheet_entries_skipped_total",
		Help:      "Total number of timesheet entries skipped because the employee is not registered.",
	},
)

// ── Tax metrics ───────────────────────────────────────────────────────────────

// TaxWithholdingTotal counts withholding calculations.
// Label:
//   - source: "computed" or "degraded"
var TaxWithholdingTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tax_withholding_total",
		Help:      "Total number of tax withholding calculations, by source.",
	},
	[]string{"source"},
)

// TaxProviderUp is 1 when the last health probe of the tax provider succeeded.
var TaxProviderUp = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tax_provider_up",
		Help:      "Whether the external tax provider answered its last health probe.",
	},
)

// ── Export metrics ────────────────────────────────────────────────────────────

// ExportDuration measures how long each artifact takes to render and store.
// Label:
//   - artifact: "wh347", "xlsx" or "nacha"
var ExportDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "export_duration_seconds",
		Help:      "Duration of export artifact generation.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"artifact"},
)

// ExportFailuresTotal counts failed artifact generations.
var ExportFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "export_failures_total",
		Help:      "Total number of export artifacts that failed to generate.",
	},
	[]string{"artifact"},
)

// ExportQueueDepth tracks jobs waiting in each export worker channel.
var ExportQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "export_queue_depth",
		Help:      "Current number of export jobs pending per worker.",
	},
	[]string{"worker_id"},
)

// ── Background jobs ───────────────────────────────────────────────────────────

// CronJobRunsTotal counts scheduled job executions.
// Labels:
//   - job: the registered job name
//   - result: "ok", "error" or "panic"
var CronJobRunsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cron_job_runs_total",
		Help:      "Total number of background job executions, by result.",
	},
	[]string{"job", "result"},
)

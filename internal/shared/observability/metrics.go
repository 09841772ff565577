package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	FilesRead = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rf2boot_files_read_total",
		Help: "Total number of release files read to completion.",
	}, []string{"family"})

	LinesRead = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rf2boot_lines_read_total",
		Help: "Total number of non-empty data lines read from release files.",
	})

	WarningsSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rf2boot_row_warnings_suppressed_total",
		Help: "Row level warnings not logged because of throttling.",
	})

	RowsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rf2boot_rows_dispatched_total",
		Help: "Rows forwarded by the dispatcher to the consumer chain.",
	}, []string{"kind"})

	RowsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rf2boot_rows_dropped_total",
		Help: "Rows dropped by a filter rule.",
	}, []string{"rule"})

	TaskFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rf2boot_task_failures_total",
		Help: "Loading tasks that returned an error.",
	})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rf2boot_stage_seconds",
		Help:    "Time spent in each import stage.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	LedgerEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rf2boot_effective_ledger_entries",
		Help: "Entries held by the effective version ledger after the pre-pass.",
	}, []string{"ledger"})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rf2boot_graph_nodes_total",
		Help: "Total number of concept nodes in the graph store.",
	})
)

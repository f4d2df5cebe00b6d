package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	importTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "configitems",
		Subsystem: "import",
		Name:      "total",
		Help:      "Total number of configuration item imports broken down by item type, path, target status and outcome.",
	}, []string{"item_type", "path", "status", "outcome"})

	importDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "configitems",
		Subsystem: "import",
		Name:      "duration_seconds",
		Help:      "Duration of configuration item imports including lock wait.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"item_type", "outcome"})

	listItemsImported = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "configitems",
		Subsystem: "list_items",
		Name:      "imported_total",
		Help:      "Total number of reference list items written by imports.",
	})

	versionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "configitems",
		Subsystem: "version",
		Name:      "transitions_total",
		Help:      "Total number of version status transitions broken down by source and target status.",
	}, []string{"from", "to"})

	writeConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "configitems",
		Subsystem: "write",
		Name:      "conflicts_total",
		Help:      "Total number of constraint conflicts broken down by kind.",
	}, []string{"kind"})
)

func recordImport(itemType, path, status, outcome string, seconds float64) {
	if path == "" {
		path = "none"
	}
	importTotal.WithLabelValues(itemType, path, status, outcome).Inc()
	importDuration.WithLabelValues(itemType, outcome).Observe(seconds)
}

func recordTransition(from, to string) {
	versionTransitions.WithLabelValues(from, to).Inc()
}

func recordWriteConflict(kind string) {
	if kind == "" {
		kind = "other"
	}
	writeConflicts.WithLabelValues(kind).Inc()
}

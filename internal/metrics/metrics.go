// Package metrics defines the prometheus collectors emitted by the file service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeConflict = "conflict"
	OutcomeNotFound = "not_found"
	OutcomeCorrupt  = "corrupt"
	OutcomeError    = "error"
)

// Files holds the service-level counters.
type Files struct {
	Uploads           *prometheus.CounterVec
	Accesses          *prometheus.CounterVec
	AccessLogFailures prometheus.Counter
	OrphanedObjects   prometheus.Counter
}

// NewFiles creates the collectors and registers them with reg.
func NewFiles(reg prometheus.Registerer) (*Files, error) {
	m := &Files{
		Uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filevault_uploads_total",
				Help: "Upload attempts by outcome.",
			},
			[]string{"outcome"},
		),
		Accesses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filevault_file_accesses_total",
				Help: "Download and view requests by type and outcome.",
			},
			[]string{"type", "outcome"},
		),
		AccessLogFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filevault_access_log_failures_total",
			Help: "Access log entries that could not be written.",
		}),
		OrphanedObjects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filevault_orphaned_objects_total",
			Help: "Objects left in the store after a failed upload could not be cleaned up.",
		}),
	}

	for _, c := range []prometheus.Collector{m.Uploads, m.Accesses, m.AccessLogFailures, m.OrphanedObjects} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

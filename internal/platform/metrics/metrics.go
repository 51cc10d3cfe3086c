package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	OfficersCreated    prometheus.Counter
	OfficersTransferred prometheus.Counter
	OfficersRetired    prometheus.Counter

	TransfersInitiated *prometheus.CounterVec
	TransfersResolved  *prometheus.CounterVec
	TransferResolution prometheus.Histogram

	ConnectionsEstablished prometheus.Counter
	CleanupRepairs         *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		OfficersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "suvidha_officers_created_total",
			Help: "Total number of officers created",
		}),
		OfficersTransferred: promauto.NewCounter(prometheus.CounterOpts{
			Name: "suvidha_officers_transferred_total",
			Help: "Total number of officer reassignments",
		}),
		OfficersRetired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "suvidha_officers_retired_total",
			Help: "Total number of officers retired",
		}),
		TransfersInitiated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "suvidha_transfers_initiated_total",
			Help: "Total complaint transfers initiated, by transfer type",
		}, []string{"type"}),
		TransfersResolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "suvidha_transfers_resolved_total",
			Help: "Total complaint transfers resolved, by outcome",
		}, []string{"outcome"}),
		TransferResolution: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "suvidha_transfer_resolution_seconds",
			Help:    "Time from transfer initiation to acceptance or rejection",
			Buckets: prometheus.ExponentialBuckets(60, 4, 10),
		}),
		ConnectionsEstablished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "suvidha_department_connections_established_total",
			Help: "Total department connections created or reactivated",
		}),
		CleanupRepairs: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "suvidha_consistency_repairs_total",
			Help: "Total repairs applied by the consistency cleanup pass, by kind",
		}, []string{"kind"}),
	}
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	RecordsFetched   *prometheus.CounterVec
	RecordsCreated   *prometheus.CounterVec
	RecordsUpdated   *prometheus.CounterVec
	EventsPropagated prometheus.Counter
	TeamsArchived    prometheus.Counter
	SyncDuration     *prometheus.HistogramVec
	ErrorsCount      *prometheus.CounterVec
}

// NewMetrics creates new prometheus metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		RecordsFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_fetched_total",
			Help:      "The total number of schedule records fetched from Merlot",
		}, []string{"kind"}),
		RecordsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_created_total",
			Help:      "The total number of records created in the store",
		}, []string{"kind"}),
		RecordsUpdated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_updated_total",
			Help:      "The total number of records updated in the store",
		}, []string{"kind"}),
		EventsPropagated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calendar_events_propagated_total",
			Help:      "The total number of calendar events created or updated",
		}),
		TeamsArchived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "teams_archived_total",
			Help:      "The total number of flight teams archived",
		}),
		SyncDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_cycle_duration_seconds",
			Help:      "Time taken to run one sync cycle",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"kind"}),
		ErrorsCount: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "The total number of errors",
		}, []string{"operation"}),
	}
}

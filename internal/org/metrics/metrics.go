package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the organization registry.
type Metrics struct {
	Created prometheus.Counter
	Updated prometheus.Counter
	Deleted prometheus.Counter
}

// New creates and registers all organization registry metrics.
func New() *Metrics {
	return &Metrics{
		Created: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veirifire_organizations_created_total",
			Help: "Total number of organizations registered",
		}),
		Updated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veirifire_organizations_updated_total",
			Help: "Total number of organization updates",
		}),
		Deleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veirifire_organizations_deleted_total",
			Help: "Total number of organizations deleted",
		}),
	}
}

func (m *Metrics) IncrementCreated() { m.Created.Inc() }
func (m *Metrics) IncrementUpdated() { m.Updated.Inc() }
func (m *Metrics) IncrementDeleted() { m.Deleted.Inc() }

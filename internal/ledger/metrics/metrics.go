package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the ledger module.
type Metrics struct {
	MovementsApplied *prometheus.CounterVec
	FeesCollected    prometheus.Counter
}

// New creates a Metrics instance with all ledger metrics registered.
func New() *Metrics {
	return &Metrics{
		MovementsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wrkledger_movements_applied_total",
			Help: "Total number of applied balance movements by kind",
		}, []string{"kind"}),
		FeesCollected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wrkledger_fees_collected_total",
			Help: "Total fee units credited to the fee account",
		}),
	}
}

// IncrementMovement records one applied movement of the given kind.
func (m *Metrics) IncrementMovement(kind string) {
	m.MovementsApplied.WithLabelValues(kind).Inc()
}

// AddFees records fee units credited to the fee account.
func (m *Metrics) AddFees(fee uint64) {
	m.FeesCollected.Add(float64(fee))
}

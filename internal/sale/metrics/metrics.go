package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the sale module.
type Metrics struct {
	PurchasesAccepted prometheus.Counter
	TokensIssued      prometheus.Counter
	PaymentRaised     prometheus.Counter
	PurchaseRejected  *prometheus.CounterVec
}

// New creates a Metrics instance with all sale metrics registered.
func New() *Metrics {
	return &Metrics{
		PurchasesAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wrkledger_sale_purchases_accepted_total",
			Help: "Total number of accepted sale purchases",
		}),
		TokensIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wrkledger_sale_tokens_issued_total",
			Help: "Total token units issued by the sale",
		}),
		PaymentRaised: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wrkledger_sale_payment_raised_total",
			Help: "Total payment units raised by the sale",
		}),
		PurchaseRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wrkledger_sale_purchases_rejected_total",
			Help: "Total number of rejected sale purchases by error code",
		}, []string{"code"}),
	}
}

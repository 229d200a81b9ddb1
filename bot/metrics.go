package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/zergu1ar/steambot/policy"
)

// Metrics holds the bot's prometheus collectors.
type Metrics struct {
	OffersSeen       prometheus.Counter
	OfferErrors      prometheus.Counter
	Decisions        *prometheus.CounterVec
	AmbiguousAccepts prometheus.Counter
	Sessions         *prometheus.CounterVec
	Confirmations    *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OffersSeen: factory.NewCounter(prometheus.CounterOpts{
			Name: "steambot_offers_seen_total",
			Help: "Received trade offers handed to a handler",
		}),
		OfferErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "steambot_offer_errors_total",
			Help: "Trade offers a handler could not process",
		}),
		Decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "steambot_decisions_total",
				Help: "Policy decisions by policy and outcome",
			},
			[]string{"policy", "decision"},
		),
		AmbiguousAccepts: factory.NewCounter(prometheus.CounterOpts{
			Name: "steambot_accept_ambiguous_total",
			Help: "Live trade accepts that failed without telling whether the trade went through",
		}),
		Sessions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "steambot_sessions_total",
				Help: "Live trade sessions by final state",
			},
			[]string{"state"},
		),
		Confirmations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "steambot_confirmations_total",
				Help: "Mobile confirmations answered",
			},
			[]string{"result"}, // result: allowed, failed
		),
	}
}

func (m *Metrics) Decided(policyName string, kind policy.Kind) {
	m.Decisions.WithLabelValues(policyName, kind.String()).Inc()
}

func (m *Metrics) AmbiguousAccept() {
	m.AmbiguousAccepts.Inc()
}

package authorization

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "splinter"

// metrics 授权指标
//
// registerer 为 nil 时指标不注册到任何 Registry，仅在进程内计数。
type metrics struct {
	outcomes           *prometheus.CounterVec
	invalidTransitions *prometheus.CounterVec
	rejected           *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "authorization",
			Name:      "outcomes_total",
			Help:      "Handshakes finished, by result.",
		}, []string{"result"}),
		invalidTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "authorization",
			Name:      "invalid_transitions_total",
			Help:      "State transitions rejected by the state machine, by track.",
		}, []string{"track"}),
		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "authorization",
			Name:      "rejected_total",
			Help:      "AuthorizationError messages sent to peers, by message type.",
		}, []string{"message_type"}),
	}
}

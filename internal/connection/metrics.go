package connection

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	connections *prometheus.GaugeVec
	dials       *prometheus.CounterVec
	handshakes  *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		connections: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "splinter",
			Subsystem: "connection",
			Name:      "authorized_connections",
			Help:      "Authorized connections, by direction.",
		}, []string{"direction"}),
		dials: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "splinter",
			Subsystem: "connection",
			Name:      "dials_total",
			Help:      "Outbound dial attempts, by result.",
		}, []string{"result"}),
		handshakes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "splinter",
			Subsystem: "connection",
			Name:      "handshakes_total",
			Help:      "Authorization handshakes, by direction and result.",
		}, []string{"direction", "result"}),
	}
}

package peer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics 节点管理器指标
type metrics struct {
	peers              *prometheus.GaugeVec
	unreferenced       prometheus.Gauge
	dialRequests       *prometheus.CounterVec
	notifications      *prometheus.CounterVec
	mismatchedIdentity prometheus.Counter
	retrySweeps        prometheus.Counter
	droppedNotices     prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		peers: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "splinter",
			Subsystem: "peer",
			Name:      "peers",
			Help:      "Referenced peers, by status.",
		}, []string{"status"}),
		unreferenced: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "splinter",
			Subsystem: "peer",
			Name:      "unreferenced_peers",
			Help:      "Inbound peers not yet referenced locally.",
		}),
		dialRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "splinter",
			Subsystem: "peer",
			Name:      "dial_requests_total",
			Help:      "Connection requests issued to the connector, by result.",
		}, []string{"result"}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "splinter",
			Subsystem: "peer",
			Name:      "connector_notifications_total",
			Help:      "Connection notifications received, by kind.",
		}, []string{"kind"}),
		mismatchedIdentity: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "splinter",
			Subsystem: "peer",
			Name:      "mismatched_identities_total",
			Help:      "Connections dropped because the remote identity did not match.",
		}),
		retrySweeps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "splinter",
			Subsystem: "peer",
			Name:      "retry_sweeps_total",
			Help:      "Retry sweeps over pending peers.",
		}),
		droppedNotices: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "splinter",
			Subsystem: "peer",
			Name:      "dropped_notifications_total",
			Help:      "Peer notifications dropped from a full queue.",
		}),
	}
}

// observe 刷新节点数量指标
func (m *metrics) observe(peers *PeerMap, unreferenced int) {
	for kind, n := range peers.CountByStatus() {
		m.peers.WithLabelValues(kind.String()).Set(float64(n))
	}
	m.unreferenced.Set(float64(unreferenced))
}

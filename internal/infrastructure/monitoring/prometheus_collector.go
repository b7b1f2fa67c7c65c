package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector holds the signaling-plane metrics. It is constructed
// with an explicit registerer so tests can use an isolated registry.
type PrometheusCollector struct {
	connectionsActive prometheus.Gauge
	connectionsTotal  prometheus.Counter
	roomsActive       prometheus.Gauge

	framesReceivedTotal    *prometheus.CounterVec
	framesRelayedTotal     *prometheus.CounterVec
	admissionFailuresTotal *prometheus.CounterVec
}

func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)

	return &PrometheusCollector{
		connectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "castlink_connections_active",
			Help: "Number of currently open WebSocket connections",
		}),

		connectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "castlink_connections_total",
			Help: "Total number of WebSocket connections accepted",
		}),

		roomsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "castlink_rooms_active",
			Help: "Number of currently allocated rooms",
		}),

		framesReceivedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "castlink_frames_received_total",
			Help: "Total number of inbound frames by type",
		}, []string{"type"}),

		framesRelayedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "castlink_frames_relayed_total",
			Help: "Total number of frames relayed to the counterpart by type",
		}, []string{"type"}),

		admissionFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "castlink_admission_failures_total",
			Help: "Total number of rejected create/join attempts by error code",
		}, []string{"code"}),
	}
}

func (p *PrometheusCollector) ConnectionOpened() {
	p.connectionsActive.Inc()
	p.connectionsTotal.Inc()
}

func (p *PrometheusCollector) ConnectionClosed() {
	p.connectionsActive.Dec()
}

func (p *PrometheusCollector) SetRoomsActive(n int) {
	p.roomsActive.Set(float64(n))
}

func (p *PrometheusCollector) FrameReceived(frameType string) {
	p.framesReceivedTotal.WithLabelValues(frameType).Inc()
}

func (p *PrometheusCollector) FrameRelayed(frameType string) {
	p.framesRelayedTotal.WithLabelValues(frameType).Inc()
}

func (p *PrometheusCollector) AdmissionFailure(code string) {
	p.admissionFailuresTotal.WithLabelValues(code).Inc()
}

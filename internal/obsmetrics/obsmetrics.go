// Package obsmetrics exposes the node's Prometheus metrics: HTTP request
// counters/histograms for the RPC surface, plus consensus gauges tracking
// slot height, mempool size, and connected peers.
package obsmetrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles every Prometheus collector the node registers.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPActiveRequests  prometheus.Gauge

	CurrentSlot     prometheus.Gauge
	MempoolSize     prometheus.Gauge
	ConnectedPeers  prometheus.Gauge
	BlocksProduced  prometheus.Counter
	TPIOutcomeTotal *prometheus.CounterVec
	RacerFallbacks  prometheus.Counter
}

// New creates a dedicated registry and registers all collectors against it.
// A private registry (rather than prometheus.DefaultRegisterer) keeps
// repeated construction — e.g. one Metrics per test — from colliding on
// duplicate collector names.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "node_http_requests_total",
			Help: "Total HTTP requests handled by the RPC surface.",
		}, []string{"method", "path", "status"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "node_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),

		HTTPActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "node_http_active_requests",
			Help: "Number of HTTP requests currently being served.",
		}),

		CurrentSlot: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "node_current_slot",
			Help: "The highest slot this node has observed.",
		}),

		MempoolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "node_mempool_size",
			Help: "Number of pending transactions in the mempool.",
		}),

		ConnectedPeers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "node_connected_peers",
			Help: "Number of currently connected peers.",
		}),

		BlocksProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "node_blocks_produced_total",
			Help: "Total blocks this node has committed, whether produced locally or received from the network.",
		}),

		TPIOutcomeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "node_tpi_outcome_total",
			Help: "TPI consensus classification outcomes by kind.",
		}, []string{"outcome"}),

		RacerFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "node_racer_fallbacks_total",
			Help: "Total slots that fell through to the racer fallback.",
		}),
	}

	m.Registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPActiveRequests,
		m.CurrentSlot,
		m.MempoolSize,
		m.ConnectedPeers,
		m.BlocksProduced,
		m.TPIOutcomeTotal,
		m.RacerFallbacks,
	)

	return m
}

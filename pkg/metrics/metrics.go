// Package metrics exports netlens events to Prometheus.
//
// [Metrics] implements every hook interface of package observability. Call
// [Metrics.Register] once at startup; `netlens serve` then exposes the
// registry on /metrics.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matzehuels/netlens/pkg/observability"
)

const namespace = "netlens"

// Metrics holds the collectors.
type Metrics struct {
	FilterToggles    *prometheus.CounterVec
	FilterRejections *prometheus.CounterVec
	LiveNodes        prometheus.Gauge
	LiveLinks        prometheus.Gauge

	Detections        *prometheus.CounterVec
	DetectionDuration *prometheus.HistogramVec
	DetectionsRunning prometheus.Gauge
	Communities       prometheus.Histogram

	CacheEvents *prometheus.CounterVec
	CacheBytes  *prometheus.CounterVec

	ClientRequests *prometheus.CounterVec
	ClientDuration *prometheus.HistogramVec

	ServerRequests *prometheus.CounterVec
	ServerDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FilterToggles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filter_toggles_total",
			Help:      "Filter transitions by filter and resulting state.",
		}, []string{"filter", "active"}),
		FilterRejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filter_rejections_total",
			Help:      "Filter toggles refused because their inputs were missing.",
		}, []string{"filter"}),
		LiveNodes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_nodes",
			Help:      "Nodes in the live graph after the last filter transition.",
		}),
		LiveLinks: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_links",
			Help:      "Links in the live graph after the last filter transition.",
		}),

		Detections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      "Community detections by algorithm and outcome.",
		}, []string{"algorithm", "outcome"}),
		DetectionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "detection_duration_seconds",
			Help:      "Community detection latency.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"algorithm"}),
		DetectionsRunning: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "detections_in_flight",
			Help:      "Community detections currently running.",
		}),
		Communities: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "detected_communities",
			Help:      "Communities found per successful detection.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),

		CacheEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_events_total",
			Help:      "Cache hits, misses and writes by key type.",
		}, []string{"key_type", "event"}),
		CacheBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache by key type.",
		}, []string{"key_type"}),

		ClientRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "client_requests_total",
			Help:      "Outgoing HTTP requests by host and status.",
		}, []string{"method", "host", "status"}),
		ClientDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "client_request_duration_seconds",
			Help:      "Outgoing HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "host"}),

		ServerRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Requests served by route and status.",
		}, []string{"method", "route", "status"}),
		ServerDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Register installs m as every observability hook.
func (m *Metrics) Register() {
	observability.SetFilterHooks(m)
	observability.SetDetectionHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
}

// =============================================================================
// Hook Implementations
// =============================================================================

func (m *Metrics) OnFilterToggled(filter string, active bool, nodes, links int) {
	m.FilterToggles.WithLabelValues(filter, strconv.FormatBool(active)).Inc()
	m.LiveNodes.Set(float64(nodes))
	m.LiveLinks.Set(float64(links))
}

func (m *Metrics) OnFilterRejected(filter, reason string) {
	m.FilterRejections.WithLabelValues(filter).Inc()
}

func (m *Metrics) OnDetectStart(ctx context.Context, algorithm string, nodeCount int) {
	m.DetectionsRunning.Inc()
}

func (m *Metrics) OnDetectComplete(ctx context.Context, algorithm string, communities int, d time.Duration, err error) {
	m.DetectionsRunning.Dec()
	m.DetectionDuration.WithLabelValues(algorithm).Observe(d.Seconds())
	if err != nil {
		m.Detections.WithLabelValues(algorithm, "error").Inc()
		return
	}
	m.Detections.WithLabelValues(algorithm, "ok").Inc()
	m.Communities.Observe(float64(communities))
}

func (m *Metrics) OnCacheHit(ctx context.Context, keyType string) {
	m.CacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(ctx context.Context, keyType string) {
	m.CacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(ctx context.Context, keyType string, size int) {
	m.CacheEvents.WithLabelValues(keyType, "set").Inc()
	m.CacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (m *Metrics) OnRequest(ctx context.Context, method, host, path string) {}

func (m *Metrics) OnResponse(ctx context.Context, method, host, path string, status int, d time.Duration) {
	m.ClientRequests.WithLabelValues(method, host, strconv.Itoa(status)).Inc()
	m.ClientDuration.WithLabelValues(method, host).Observe(d.Seconds())
}

func (m *Metrics) OnError(ctx context.Context, method, host, path string, err error) {
	m.ClientRequests.WithLabelValues(method, host, "error").Inc()
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.ServerRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.ServerDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ observability.FilterHooks    = (*Metrics)(nil)
	_ observability.DetectionHooks = (*Metrics)(nil)
	_ observability.CacheHooks     = (*Metrics)(nil)
	_ observability.HTTPHooks      = (*Metrics)(nil)
)

package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	Namespace = "throughput"

	// Status label values for success/error metrics
	StatusSuccess = "success"
	StatusError   = "error"

	RPC    = "rpc"
	Window = "window"
	Sink   = "sink"
)

// Reasons a fetched block did not reach the window.
const (
	DropFetchError = "fetch_error"
	DropNotFound   = "not_found"
	DropMalformed  = "malformed"
	DropDuplicate  = "duplicate"
)

// Labels holds constant labels applied to all metrics.
// These are useful for distinguishing metrics from multiple monitor instances.
type Labels struct {
	Environment   string // Deployment environment (e.g., "production", "staging", "development")
	Region        string // Cloud region (e.g., "us-east-1", "eu-west-1")
	CloudProvider string // Cloud provider (e.g., "aws", "oci", "gcp")
}

// toPrometheusLabels converts Labels to prometheus.Labels map.
// Only non-empty labels are included to avoid empty label values.
func (l Labels) toPrometheusLabels() prometheus.Labels {
	labels := prometheus.Labels{}
	if l.Environment != "" {
		labels["environment"] = l.Environment
	}
	if l.Region != "" {
		labels["region"] = l.Region
	}
	if l.CloudProvider != "" {
		labels["cloud_provider"] = l.CloudProvider
	}
	return labels
}

type Metrics struct {
	// Published rates, by network
	gasPerSecond   *prometheus.GaugeVec
	txPerSecond    *prometheus.GaugeVec
	bytesPerSecond *prometheus.GaugeVec
	latestBlock    *prometheus.GaugeVec

	// Streamer progress, by network
	headBlock      *prometheus.GaugeVec
	windowBlocks   *prometheus.GaugeVec
	ticks          *prometheus.CounterVec
	headErrors     *prometheus.CounterVec
	blocksIngested *prometheus.CounterVec
	blocksDropped  *prometheus.CounterVec // by network, reason
	publishWait    *prometheus.HistogramVec

	// RPC metrics
	rpcCalls    *prometheus.CounterVec
	rpcDuration *prometheus.HistogramVec
	rpcInFlight prometheus.Gauge

	// Sink metrics
	queuePublished *prometheus.CounterVec
	stalls         *prometheus.CounterVec
}

// New creates a new Metrics instance and registers all metrics with the provided registerer.
// Returns an error if any metric registration fails.
func New(reg prometheus.Registerer) (*Metrics, error) {
	return NewWithLabels(reg, Labels{})
}

// NewWithLabels creates a new Metrics instance with constant labels applied to all metrics.
func NewWithLabels(reg prometheus.Registerer, labels Labels) (*Metrics, error) {
	promLabels := labels.toPrometheusLabels()
	if len(promLabels) > 0 {
		reg = prometheus.WrapRegistererWith(promLabels, reg)
	}

	return newMetrics(reg)
}

// newMetrics is the internal constructor that creates and registers all metrics.
func newMetrics(reg prometheus.Registerer) (*Metrics, error) {
	byNetwork := []string{"network"}
	m := &Metrics{
		gasPerSecond: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "gas_per_second",
			Help:      "Gas used per second over the rolling window",
		}, byNetwork),
		txPerSecond: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "tx_per_second",
			Help:      "Transactions per second over the rolling window",
		}, byNetwork),
		bytesPerSecond: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "bytes_per_second",
			Help:      "Block bytes per second over the rolling window",
		}, byNetwork),
		latestBlock: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "latest_block",
			Help:      "Most recently ingested block number",
		}, byNetwork),
		headBlock: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "head_block",
			Help:      "Chain head height reported by the RPC endpoint",
		}, byNetwork),
		windowBlocks: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: Window,
			Name:      "blocks",
			Help:      "Number of blocks currently retained in the rolling window",
		}, byNetwork),
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ticks_total",
			Help:      "Total poll ticks completed",
		}, byNetwork),
		headErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "head_errors_total",
			Help:      "Total poll ticks that could not read the chain head",
		}, byNetwork),
		blocksIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Window,
			Name:      "blocks_ingested_total",
			Help:      "Total blocks added to the rolling window",
		}, byNetwork),
		blocksDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Window,
			Name:      "blocks_dropped_total",
			Help:      "Total fetched heights that did not reach the window by reason",
		}, []string{"network", "reason"}),
		publishWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: Sink,
			Name:      "publish_wait_seconds",
			Help:      "Time a streamer waited for the snapshot channel to accept a snapshot",
			Buckets:   []float64{.0001, .001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		}, byNetwork),
		rpcCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: RPC,
			Name:      "calls_total",
			Help:      "Total RPC calls by network, method and status",
		}, []string{"network", "method", "status"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: RPC,
			Name:      "duration_seconds",
			Help:      "RPC call duration in seconds",
			// Buckets cover typical RPC latencies: 1ms, 5ms, 10ms, 25ms, 50ms,
			// 100ms, 250ms, 500ms, 1s, 2.5s, 5s, 10s
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"network", "method"}),
		rpcInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: RPC,
			Name:      "in_flight",
			Help:      "Number of RPC calls currently in progress",
		}),
		queuePublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Sink,
			Name:      "queue_published_total",
			Help:      "Total snapshots forwarded to the message queue by status",
		}, []string{"status"}),
		stalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Sink,
			Name:      "stalls_total",
			Help:      "Total watchdog checks that found the network's latest block unchanged for too long",
		}, byNetwork),
	}

	err := errors.Join(
		reg.Register(m.gasPerSecond),
		reg.Register(m.txPerSecond),
		reg.Register(m.bytesPerSecond),
		reg.Register(m.latestBlock),
		reg.Register(m.headBlock),
		reg.Register(m.windowBlocks),
		reg.Register(m.ticks),
		reg.Register(m.headErrors),
		reg.Register(m.blocksIngested),
		reg.Register(m.blocksDropped),
		reg.Register(m.publishWait),
		reg.Register(m.rpcCalls),
		reg.Register(m.rpcDuration),
		reg.Register(m.rpcInFlight),
		reg.Register(m.queuePublished),
		reg.Register(m.stalls),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// ObserveSnapshot publishes the rates of a snapshot.
func (m *Metrics) ObserveSnapshot(network string, latestBlock uint64, gps, tps, bps float64) {
	if m == nil {
		return
	}
	m.gasPerSecond.WithLabelValues(network).Set(gps)
	m.txPerSecond.WithLabelValues(network).Set(tps)
	m.bytesPerSecond.WithLabelValues(network).Set(bps)
	m.latestBlock.WithLabelValues(network).Set(float64(latestBlock))
}

// RecordTick records a completed poll tick and the resulting window state.
func (m *Metrics) RecordTick(network string, head uint64, windowBlocks int) {
	if m == nil {
		return
	}
	m.ticks.WithLabelValues(network).Inc()
	m.headBlock.WithLabelValues(network).Set(float64(head))
	m.windowBlocks.WithLabelValues(network).Set(float64(windowBlocks))
}

// IncHeadError counts a tick that could not read the chain head.
func (m *Metrics) IncHeadError(network string) {
	if m == nil {
		return
	}
	m.headErrors.WithLabelValues(network).Inc()
}

// AddBlocksIngested counts blocks added to the window.
func (m *Metrics) AddBlocksIngested(network string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.blocksIngested.WithLabelValues(network).Add(float64(count))
}

// IncBlockDropped counts a fetched height that did not reach the window.
func (m *Metrics) IncBlockDropped(network, reason string) {
	if m == nil {
		return
	}
	m.blocksDropped.WithLabelValues(network, reason).Inc()
}

// ObservePublishWait records how long a streamer blocked on the snapshot channel.
func (m *Metrics) ObservePublishWait(network string, seconds float64) {
	if m == nil {
		return
	}
	m.publishWait.WithLabelValues(network).Observe(seconds)
}

// IncRPCInFlight increments the in-flight RPC gauge.
func (m *Metrics) IncRPCInFlight() {
	if m == nil {
		return
	}
	m.rpcInFlight.Inc()
}

// DecRPCInFlight decrements the in-flight RPC gauge.
func (m *Metrics) DecRPCInFlight() {
	if m == nil {
		return
	}
	m.rpcInFlight.Dec()
}

// RecordRPCCall records an RPC call outcome.
func (m *Metrics) RecordRPCCall(network, method string, err error, durationSeconds float64) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.rpcCalls.WithLabelValues(network, method, status).Inc()
	m.rpcDuration.WithLabelValues(network, method).Observe(durationSeconds)
}

// RecordQueuePublish records a snapshot forwarded to the message queue.
// Pass nil error for successful publishes, non-nil for failures.
func (m *Metrics) RecordQueuePublish(err error) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.queuePublished.WithLabelValues(status).Inc()
}

// IncStall counts a watchdog check that found a stalled network.
func (m *Metrics) IncStall(network string) {
	if m == nil {
		return
	}
	m.stalls.WithLabelValues(network).Inc()
}

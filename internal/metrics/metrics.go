// Package metrics is the Prometheus surface for the daemon: counters and
// gauges for the follower's connect/fork/error outcomes and the store's
// batch commit latency, served over /metrics for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TipHeight is the height of the last block this node has indexed.
	TipHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "oxtu_tip_height",
		Help: "Height of the last block applied to the index.",
	})

	// BlocksPushed counts successful forward applications.
	BlocksPushed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oxtu_blocks_pushed_total",
		Help: "Total number of blocks connected to the index.",
	})

	// BlocksPopped counts reorg reversions.
	BlocksPopped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oxtu_blocks_popped_total",
		Help: "Total number of blocks reverted from the index during a reorg.",
	})

	// ProbeErrors counts transient upstream RPC failures that triggered
	// the follower's error backoff.
	ProbeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oxtu_probe_errors_total",
		Help: "Total number of transient errors probing the upstream node.",
	})

	// BatchCommitLatency is the wall time of a single store batch commit
	// (one per pushed or popped block, and one per prune pass that deletes
	// any rows).
	BatchCommitLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "oxtu_batch_commit_latency_seconds",
		Help:    "Latency of committing a single write batch to the store.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})
)

// Handler returns the HTTP handler to mount at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

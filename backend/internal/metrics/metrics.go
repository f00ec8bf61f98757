// Package metrics exposes Prometheus metrics for graph compilation and merge.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application. A nil
// *Collector is valid and records nothing.
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// Merge metrics
	NodesUpserted *prometheus.CounterVec
	EdgesUpserted *prometheus.CounterVec
	MergeFailures *prometheus.CounterVec

	// Extraction metrics
	ExtractionDuration *prometheus.HistogramVec
	ExtractedNodes     *prometheus.CounterVec

	// LLM metrics
	LLMRequests *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry under namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	nodesUpserted := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_nodes_upserted_total",
			Help:      "Total number of nodes written to the graph store",
		},
		[]string{"label"},
	)

	edgesUpserted := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_edges_upserted_total",
			Help:      "Total number of relationships written to the graph store",
		},
		[]string{"type"},
	)

	mergeFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_merge_failures_total",
			Help:      "Total number of node or relationship writes that failed during merge",
		},
		[]string{"kind"},
	)

	extractionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_seconds",
			Help:      "Time spent turning input into a graph",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"extractor"},
	)

	extractedNodes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extracted_nodes_total",
			Help:      "Total number of nodes produced by extractors",
		},
		[]string{"extractor"},
	)

	llmRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of generative service requests",
		},
		[]string{"status"},
	)

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	registry.MustRegister(
		nodesUpserted,
		edgesUpserted,
		mergeFailures,
		extractionDuration,
		extractedNodes,
		llmRequests,
		httpRequests,
	)

	return &Collector{
		registry:           registry,
		NodesUpserted:      nodesUpserted,
		EdgesUpserted:      edgesUpserted,
		MergeFailures:      mergeFailures,
		ExtractionDuration: extractionDuration,
		ExtractedNodes:     extractedNodes,
		LLMRequests:        llmRequests,
		HTTPRequests:       httpRequests,
	}
}

// NodeUpserted records a successful node write.
func (c *Collector) NodeUpserted(label string) {
	if c == nil {
		return
	}
	c.NodesUpserted.WithLabelValues(label).Inc()
}

// EdgeUpserted records a successful relationship write.
func (c *Collector) EdgeUpserted(relType string) {
	if c == nil {
		return
	}
	c.EdgesUpserted.WithLabelValues(relType).Inc()
}

// MergeFailed records a failed write; kind is "node" or "edge".
func (c *Collector) MergeFailed(kind string) {
	if c == nil {
		return
	}
	c.MergeFailures.WithLabelValues(kind).Inc()
}

// ObserveExtraction records how long an extractor ran and how many nodes it produced.
func (c *Collector) ObserveExtraction(extractor string, d time.Duration, nodes int) {
	if c == nil {
		return
	}
	c.ExtractionDuration.WithLabelValues(extractor).Observe(d.Seconds())
	c.ExtractedNodes.WithLabelValues(extractor).Add(float64(nodes))
}

// LLMRequest records the outcome of a generative service call.
func (c *Collector) LLMRequest(status string) {
	if c == nil {
		return
	}
	c.LLMRequests.WithLabelValues(status).Inc()
}

// HTTPRequest records a served request.
func (c *Collector) HTTPRequest(method, route, status string) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

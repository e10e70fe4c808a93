package metrics

import (
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
)

// Metrics tracks search execution statistics across one or more HTPS runs.
type Metrics struct {
	ExpansionsTotal    int64
	ExpansionsFailed   int64
	TheoremsSolved     int64
	TheoremsExhausted  int64
	SearchesStuck      int64
	BatchesSubmitted   int64
}

// PrometheusExporter exports metrics in Prometheus text format.
type PrometheusExporter struct {
	metrics *Metrics
}

// NewPrometheusExporter creates a new Prometheus exporter.
func NewPrometheusExporter(m *Metrics) *PrometheusExporter {
	return &PrometheusExporter{
		metrics: m,
	}
}

// Export returns metrics in Prometheus text format.
func (e *PrometheusExporter) Export() string {
	var b strings.Builder

	expansionsTotal := atomic.LoadInt64(&e.metrics.ExpansionsTotal)
	expansionsFailed := atomic.LoadInt64(&e.metrics.ExpansionsFailed)
	theoremsSolved := atomic.LoadInt64(&e.metrics.TheoremsSolved)
	theoremsExhausted := atomic.LoadInt64(&e.metrics.TheoremsExhausted)
	searchesStuck := atomic.LoadInt64(&e.metrics.SearchesStuck)
	batchesSubmitted := atomic.LoadInt64(&e.metrics.BatchesSubmitted)

	fmt.Fprintf(&b, "htps_expansions_total{status=\"ok\"} %d\n", expansionsTotal-expansionsFailed)
	fmt.Fprintf(&b, "htps_expansions_total{status=\"error\"} %d\n", expansionsFailed)
	fmt.Fprintf(&b, "htps_expansions_total %d\n", expansionsTotal)

	fmt.Fprintf(&b, "htps_searches_total{outcome=\"proven\"} %d\n", theoremsSolved)
	fmt.Fprintf(&b, "htps_searches_total{outcome=\"exhausted\"} %d\n", theoremsExhausted)
	fmt.Fprintf(&b, "htps_searches_total{outcome=\"stuck\"} %d\n", searchesStuck)

	fmt.Fprintf(&b, "htps_batches_submitted_total %d\n", batchesSubmitted)

	var failureRate float64
	if expansionsTotal > 0 {
		failureRate = float64(expansionsFailed) / float64(expansionsTotal)
	}
	fmt.Fprintf(&b, "htps_expansion_failure_rate %s\n", formatFloat(failureRate))

	return b.String()
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (e *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, e.Export())
	})
}

// formatFloat formats a float64 for Prometheus (removes trailing zeros).
func formatFloat(f float64) string {
	if f == 0.0 {
		return "0"
	}
	s := fmt.Sprintf("%.2f", f)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}

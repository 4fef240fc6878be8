package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	invocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pubchem_mcp_invocations_total",
		Help: "Total number of tool invocations by tool and outcome",
	}, []string{"tool", "outcome"})

	upstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pubchem_mcp_upstream_latency_seconds",
		Help:    "PubChem request latency in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
	}, []string{"tool"})
)

// outcome is the metrics label for a response: "success" or its failure kind.
func outcome(r Response) string {
	if r.Error != nil {
		return string(r.Error.Kind)
	}
	return string(StatusSuccess)
}

// toolLabel keeps label cardinality bounded when callers send arbitrary names.
func toolLabel(name string) string {
	if _, ok := ParseOperation(name); ok {
		return name
	}
	return "unknown"
}

func recordInvocation(name string, r Response) {
	invocationsTotal.WithLabelValues(toolLabel(name), outcome(r)).Inc()
}

func recordUpstream(op Operation, d time.Duration) {
	upstreamLatency.WithLabelValues(op.String()).Observe(d.Seconds())
}

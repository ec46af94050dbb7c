package emit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PromEmitter implements Emitter by recording Prometheus metrics for pipeline
// execution, namespaced with "knowbot_".
//
// Metrics exposed:
//
//  1. runs_total (counter): completed runs, counted at the terminal stage
//     (events with a "terminal" meta key).
//
//  2. stages_total (counter): completed stage executions.
//     Labels: node.
//
//  3. stage_latency_ms (histogram): stage execution duration in milliseconds.
//     Labels: node. Buckets 1ms to 60s, sized for LLM-backed stages.
//
//  4. stage_errors_total (counter): stages that recorded a failure (events
//     with an "error" meta key).
//     Labels: node.
//
//  5. revisions_total (counter): triggered revision cycles (events with a
//     "revision" meta key).
//
// Usage:
//
//	registry := prometheus.NewRegistry()
//	emitter := emit.NewPromEmitter(registry)
//	engine := graph.New(reducer, st, emitter, opts)
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
type PromEmitter struct {
	runs        prometheus.Counter
	stages      *prometheus.CounterVec
	stageErrors *prometheus.CounterVec
	revisions   prometheus.Counter
	latency     *prometheus.HistogramVec
}

// NewPromEmitter creates and registers all pipeline metrics with the provided
// registry (prometheus.DefaultRegisterer when nil).
func NewPromEmitter(registry prometheus.Registerer) *PromEmitter {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &PromEmitter{
		runs: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "knowbot",
			Name:      "runs_total",
			Help:      "Completed pipeline runs",
		}),
		stages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "knowbot",
			Name:      "stages_total",
			Help:      "Completed pipeline stage executions",
		}, []string{"node"}),
		stageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "knowbot",
			Name:      "stage_errors_total",
			Help:      "Pipeline stage executions that recorded an error",
		}, []string{"node"}),
		revisions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "knowbot",
			Name:      "revisions_total",
			Help:      "Revision cycles triggered by a failed review",
		}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "knowbot",
			Name:      "stage_latency_ms",
			Help:      "Stage execution duration in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 15000, 60000},
		}, []string{"node"}),
	}
}

// Emit implements Emitter.
func (p *PromEmitter) Emit(event Event) {
	if event.NodeID == "" {
		return
	}

	p.stages.WithLabelValues(event.NodeID).Inc()

	if ms, ok := event.Meta["duration_ms"]; ok {
		switch v := ms.(type) {
		case int64:
			p.latency.WithLabelValues(event.NodeID).Observe(float64(v))
		case float64:
			p.latency.WithLabelValues(event.NodeID).Observe(v)
		}
	}

	if _, failed := event.Meta["error"]; failed {
		p.stageErrors.WithLabelValues(event.NodeID).Inc()
	}
	if _, revised := event.Meta["revision"]; revised {
		p.revisions.Inc()
	}
	if _, done := event.Meta["terminal"]; done {
		p.runs.Inc()
	}
}

// Package metrics exposes Prometheus counters for frame guidance.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ironsheep/frame-guide-mcp/internal/alignment"
)

const namespace = "frame_guide"

// Outcome label values.
const (
	OutcomeDetected    = "detected"
	OutcomeNotDetected = "not_detected"
	OutcomeError       = "error"
	OutcomeCached      = "cached"
)

// Metrics holds every collector. A nil *Metrics is valid and records nothing,
// so callers never need to guard.
type Metrics struct {
	analysesTotal       *prometheus.CounterVec
	edgeDetectionsTotal *prometheus.CounterVec
	remoteRequestsTotal *prometheus.CounterVec
	confidence          prometheus.Histogram
	registry            *prometheus.Registry
}

// New creates the collectors and registers them on registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}

	m.analysesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "analyses_total",
		Help:      "Alignment analyses by resulting frame status.",
	}, []string{"status"})

	m.edgeDetectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "edge_detections_total",
		Help:      "Edge detector runs by outcome.",
	}, []string{"outcome"})

	m.remoteRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "remote_requests_total",
		Help:      "Remote vehicle API lookups by outcome.",
	}, []string{"outcome"})

	m.confidence = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "confidence",
		Help:      "Blended confidence of analyses that found a vehicle.",
		Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
	})

	for _, c := range []prometheus.Collector{m.analysesTotal, m.edgeDetectionsTotal, m.remoteRequestsTotal, m.confidence} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register frame guide metrics: %w", err)
		}
	}
	return m, nil
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveAnalysis records one analyzer result.
func (m *Metrics) ObserveAnalysis(result alignment.GuidanceResult) {
	if m == nil {
		return
	}
	m.analysesTotal.WithLabelValues(string(result.FrameStatus)).Inc()
	if result.HasVehicle {
		m.confidence.Observe(result.Confidence)
	}
}

// ObserveEdgeDetection records one edge detector run.
func (m *Metrics) ObserveEdgeDetection(det alignment.DetectionResult) {
	if m == nil {
		return
	}
	outcome := OutcomeNotDetected
	if det.HasVehicle {
		outcome = OutcomeDetected
	}
	m.edgeDetectionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRemote records one remote lookup with one of the Outcome values.
func (m *Metrics) ObserveRemote(outcome string) {
	if m == nil {
		return
	}
	m.remoteRequestsTotal.WithLabelValues(outcome).Inc()
}

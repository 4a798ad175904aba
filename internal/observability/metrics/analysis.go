package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/document-explainer/internal/core/domain"
)

// AnalysisMetrics observes the explanation pipeline. It satisfies
// ports.AnalysisObserver and the LLM client's usage recorder.
type AnalysisMetrics struct {
	service  string
	registry *prometheus.Registry

	analysisTotal    *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
	analysisInFlight prometheus.Gauge
	queueLag         prometheus.Histogram
	llmTokensTotal   *prometheus.CounterVec
}

// NewAnalysisMetrics registers into registry, or into a fresh registry when
// registry is nil.
func NewAnalysisMetrics(service string, registry *prometheus.Registry) *AnalysisMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	analysisTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "total",
			Help:      "Finished document analyses by status and failure reason.",
		},
		[]string{"service", "status", "reason", "document_type"},
	)
	analysisDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Document analysis duration in seconds by status.",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 120, 300},
		},
		[]string{"service", "status"},
	)
	analysisInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "in_flight",
			Help:      "Number of in-flight document analyses.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "queue_lag_seconds",
			Help:      "Delay between job submission and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	llmTokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Token usage reported by the model API by direction.",
		},
		[]string{"service", "direction", "model"},
	)

	registry.MustRegister(analysisTotal, analysisDuration, analysisInFlight, queueLag, llmTokensTotal)

	return &AnalysisMetrics{
		service:          service,
		registry:         registry,
		analysisTotal:    analysisTotal,
		analysisDuration: analysisDuration,
		analysisInFlight: analysisInFlight,
		queueLag:         queueLag,
		llmTokensTotal:   llmTokensTotal,
	}
}

func (m *AnalysisMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *AnalysisMetrics) AnalysisStarted() {
	m.analysisInFlight.Inc()
}

func (m *AnalysisMetrics) AnalysisFinished(documentType domain.DocumentType, duration time.Duration, err error) {
	m.analysisInFlight.Dec()

	status := string(domain.StatusCompleted)
	if err != nil {
		status = string(domain.StatusFailed)
	}
	m.analysisTotal.WithLabelValues(m.service, status, FailureReason(err), string(documentType)).Inc()
	m.analysisDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *AnalysisMetrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.Observe(lag.Seconds())
}

func (m *AnalysisMetrics) RecordTokens(model string, promptTokens, completionTokens int) {
	if model == "" {
		model = "unknown"
	}
	if promptTokens > 0 {
		m.llmTokensTotal.WithLabelValues(m.service, "in", model).Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.llmTokensTotal.WithLabelValues(m.service, "out", model).Add(float64(completionTokens))
	}
}

// FailureReason buckets a pipeline error into a low-cardinality label.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return "none"
	case domain.IsKind(err, domain.ErrInvalidInput):
		return "invalid_input"
	case domain.IsKind(err, domain.ErrFetchFailed):
		return "fetch"
	case domain.IsKind(err, domain.ErrExtractFailed):
		return "extract"
	case domain.IsKind(err, domain.ErrModelOutput):
		return "model_output"
	case domain.IsKind(err, domain.ErrTemporary):
		return "temporary"
	case domain.IsKind(err, domain.ErrInvalidTransition), domain.IsKind(err, domain.ErrContractNotFound):
		return "persist"
	default:
		return "other"
	}
}

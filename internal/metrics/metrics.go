package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "archdesk"

// Metrics holds the orchestration collectors. A nil *Metrics is valid and
// records nothing, so components can take one unconditionally.
type Metrics struct {
	classifications *prometheus.CounterVec
	actions         *prometheus.CounterVec
	responses       *prometheus.CounterVec
	llmRequests     *prometheus.CounterVec
	llmLatency      *prometheus.HistogramVec
	refusals        prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Intent classifications by intent and source (cache, llm, degraded).",
		}, []string{"intent", "source"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "action_transitions_total",
			Help:      "Action plan status transitions by tool and new status.",
		}, []string{"tool", "status"}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_total",
			Help:      "Orchestrator responses by type.",
		}, []string{"type"}),
		llmRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "LLM chat requests by purpose and outcome.",
		}, []string{"purpose", "outcome"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_seconds",
			Help:      "LLM chat request latency by purpose.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"purpose"}),
		refusals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refusal_fallbacks_total",
			Help:      "Model refusals bypassed by saving the user's text directly.",
		}),
	}
	reg.MustRegister(m.classifications, m.actions, m.responses, m.llmRequests, m.llmLatency, m.refusals)
	return m
}

func (m *Metrics) Classification(intent, source string) {
	if m == nil {
		return
	}
	m.classifications.WithLabelValues(intent, source).Inc()
}

func (m *Metrics) ActionStatus(tool, status string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(tool, status).Inc()
}

func (m *Metrics) Response(typ string) {
	if m == nil {
		return
	}
	m.responses.WithLabelValues(typ).Inc()
}

func (m *Metrics) LLMRequest(purpose string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.llmRequests.WithLabelValues(purpose, outcome).Inc()
	m.llmLatency.WithLabelValues(purpose).Observe(elapsed.Seconds())
}

func (m *Metrics) RefusalFallback() {
	if m == nil {
		return
	}
	m.refusals.Inc()
}

// Serve exposes g on addr at /metrics until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

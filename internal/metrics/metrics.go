package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the bot's Prometheus collectors on a private registry.
type Metrics struct {
	Registry        *prometheus.Registry
	Verifications   *prometheus.CounterVec
	SagaSteps       *prometheus.CounterVec
	RemoteErrors    *prometheus.CounterVec
	BackgroundTasks *prometheus.GaugeVec
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		Verifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "regbot_verifications_total",
			Help: "Verification attempts by outcome",
		}, []string{"outcome"}),
		SagaSteps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "regbot_saga_steps_total",
			Help: "Year-structure saga steps by saga, step and status",
		}, []string{"saga", "step", "status"}),
		RemoteErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "regbot_remote_errors_total",
			Help: "Failed calls to external APIs by service",
		}, []string{"service"}),
		BackgroundTasks: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "regbot_background_tasks",
			Help: "Background tasks by state (running, queued)",
		}, []string{"state"}),
	}
}

func (m *Metrics) IncVerification(outcome string) {
	m.Verifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncSagaStep(saga, step, status string) {
	m.SagaSteps.WithLabelValues(saga, step, status).Inc()
}

func (m *Metrics) IncRemoteError(service string) {
	m.RemoteErrors.WithLabelValues(service).Inc()
}

// A background task is queued, then running, then finished.
func (m *Metrics) TaskQueued() { m.BackgroundTasks.WithLabelValues("queued").Inc() }

func (m *Metrics) TaskStarted() {
	m.BackgroundTasks.WithLabelValues("queued").Dec()
	m.BackgroundTasks.WithLabelValues("running").Inc()
}

func (m *Metrics) TaskFinished() { m.BackgroundTasks.WithLabelValues("running").Dec() }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

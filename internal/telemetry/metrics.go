package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// pushJob — имя job в Pushgateway.
const pushJob = "tripleo_cli"

// Metrics — метрики выполнения workflows.
//
// CLI живёт недолго и не имеет /metrics endpoint, поэтому
// метрики собираются в собственный registry и отправляются
// в Pushgateway при завершении команды.
type Metrics struct {
	registry *prometheus.Registry

	executions *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	messages   *prometheus.CounterVec
}

// NewMetrics создаёт набор метрик в отдельном registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tripleo_workflow_executions_total",
			Help: "Workflow executions by final status.",
		}, []string{"workflow", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tripleo_workflow_duration_seconds",
			Help:    "Time from workflow start to terminal message.",
			Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600},
		}, []string{"workflow"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tripleo_workflow_messages_total",
			Help: "Progress messages received per workflow.",
		}, []string{"workflow"}),
	}

	m.registry.MustRegister(m.executions, m.duration, m.messages)
	return m
}

// Registry возвращает registry с метриками.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveExecution фиксирует завершение workflow.
func (m *Metrics) ObserveExecution(workflow, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.executions.WithLabelValues(workflow, status).Inc()
	m.duration.WithLabelValues(workflow).Observe(elapsed.Seconds())
}

// ObserveMessage фиксирует получение сообщения.
func (m *Metrics) ObserveMessage(workflow string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(workflow).Inc()
}

// Push отправляет метрики в Pushgateway.
// Пустой url — ничего не делает.
func (m *Metrics) Push(ctx context.Context, url string) error {
	if m == nil || url == "" {
		return nil
	}

	if err := push.New(url, pushJob).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

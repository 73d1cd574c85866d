package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "multibot"

// Metrics bundles Prometheus collectors for the bot and the provisioning server.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry          *prometheus.Registry
	messagesReceived  *prometheus.CounterVec
	commandsExecuted  *prometheus.CounterVec
	commandDuration   *prometheus.HistogramVec
	handlerFailures   prometheus.Counter
	pluginsLoaded     prometheus.Gauge
	pluginLoadErrors  prometheus.Counter
	sessionsActive    prometheus.Gauge
	sessionsProvision *prometheus.CounterVec
	outboundMessages  *prometheus.CounterVec
}

// New creates a metrics bundle on its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		messagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Inbound messages by content type",
		}, []string{"type"}),
		commandsExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_executed_total",
			Help:      "Command handler invocations by command and result",
		}, []string{"command", "result"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Histogram of command handler durations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
		handlerFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_handler_failures_total",
			Help:      "Event handlers that returned an error or panicked",
		}),
		pluginsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "plugins_loaded",
			Help:      "Plugin units registered by the last load",
		}),
		pluginLoadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plugin_load_errors_total",
			Help:      "Plugin units skipped because registration failed",
		}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "provisioning_sessions_active",
			Help:      "Provisioning sessions currently tracked",
		}),
		sessionsProvision: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provisioning_sessions_total",
			Help:      "Provisioning sessions by outcome",
		}, []string{"outcome"}),
		outboundMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_messages_total",
			Help:      "Outbound messages by kind and result",
		}, []string{"kind", "result"}),
	}

	registry.MustRegister(
		m.messagesReceived,
		m.commandsExecuted,
		m.commandDuration,
		m.handlerFailures,
		m.pluginsLoaded,
		m.pluginLoadErrors,
		m.sessionsActive,
		m.sessionsProvision,
		m.outboundMessages,
	)

	return m
}

// Handler returns an HTTP handler exposing the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) MessageReceived(contentType string) {
	if m == nil {
		return
	}
	m.messagesReceived.WithLabelValues(contentType).Inc()
}

// CommandExecuted records one command invocation.
func (m *Metrics) CommandExecuted(command string, dur time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.commandsExecuted.WithLabelValues(command, result).Inc()
	m.commandDuration.WithLabelValues(command).Observe(dur.Seconds())
}

func (m *Metrics) HandlerFailed() {
	if m == nil {
		return
	}
	m.handlerFailures.Inc()
}

// PluginsLoaded sets the loaded gauge and counts the failures of one load pass.
func (m *Metrics) PluginsLoaded(loaded, failed int) {
	if m == nil {
		return
	}
	m.pluginsLoaded.Set(float64(loaded))
	m.pluginLoadErrors.Add(float64(failed))
}

func (m *Metrics) SessionsActive(n int) {
	if m == nil {
		return
	}
	m.sessionsActive.Set(float64(n))
}

// SessionOutcome counts provisioning results: finalized, logged_out, failed, cancelled.
func (m *Metrics) SessionOutcome(outcome string) {
	if m == nil {
		return
	}
	m.sessionsProvision.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Outbound(kind string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.outboundMessages.WithLabelValues(kind, result).Inc()
}

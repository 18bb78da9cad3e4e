package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the gateway's collectors with the sidecar server
// that serves them.
type Metrics struct {
	TasksStarted       prometheus.Counter
	TasksCompleted     *prometheus.CounterVec
	TaskTimeouts       prometheus.Counter
	ExtractionFailures prometheus.Counter
	TaskDuration       prometheus.Histogram

	registry *prometheus.Registry
	srv      *http.Server
	log      *slog.Logger
}

// New creates the collector set registered under the given namespace.
func New(namespace string, log *slog.Logger) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
		registry.MustRegister(c)
		return c
	}

	completed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_completed_total",
		Help:      "Completed task executions by outcome status.",
	}, []string{"status"})
	registry.MustRegister(completed)

	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "task_duration_seconds",
		Help:      "Wall-clock duration of task executions.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})
	registry.MustRegister(duration)

	return &Metrics{
		TasksStarted:       factory("tasks_started_total", "Task executions started."),
		TasksCompleted:     completed,
		TaskTimeouts:       factory("task_timeouts_total", "Task executions killed at the deadline."),
		ExtractionFailures: factory("result_extraction_failures_total", "Task runs whose stdout yielded no parseable result."),
		TaskDuration:       duration,
		registry:           registry,
		log:                log,
	}
}

// RunInBackground starts the sidecar listener on addr.
func (m *Metrics) RunInBackground(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	m.srv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		m.log.Info("Metrics server starting", "addr", addr)
		if err := m.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.log.Error("Metrics server failed", "err", err)
		}
	}()
}

// Shutdown stops the sidecar listener if it was started.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m.srv == nil {
		return nil
	}
	return m.srv.Shutdown(ctx)
}

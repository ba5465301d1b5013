package wallsync

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const defaultPushTimeout = 10 * time.Second

// Metrics holds the per-run counters. They live in a private registry and are
// only shipped when a Pushgateway URL is configured.
type Metrics struct {
	reg         *prometheus.Registry
	gatewayURL  string
	job         string
	pushTimeout time.Duration

	files       *prometheus.CounterVec // status: processed, failed, skipped
	records     prometheus.Counter
	requests    *prometheus.CounterVec // kind: batch, record; outcome
	accepted    prometheus.Counter
	runs        *prometheus.CounterVec // status: success, failure, noop
	lastSuccess prometheus.Gauge
	duration    prometheus.Summary
}

func NewMetrics(gatewayURL, job string) *Metrics {
	if job == "" {
		job = "wallpaper_sync"
	}
	m := &Metrics{
		reg:         prometheus.NewRegistry(),
		gatewayURL:  gatewayURL,
		job:         job,
		pushTimeout: defaultPushTimeout,
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wallsync",
			Name:      "files_total",
			Help:      "Archive files seen, by status.",
		}, []string{"status"}),
		records: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wallsync",
			Name:      "records_generated_total",
			Help:      "Rows produced by the transform.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wallsync",
			Name:      "upsert_requests_total",
			Help:      "Upsert requests by kind (batch, record) and outcome.",
		}, []string{"kind", "outcome"}),
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wallsync",
			Name:      "records_accepted_total",
			Help:      "Rows confirmed accepted by the store.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wallsync",
			Name:      "runs_total",
			Help:      "Runs by final status.",
		}, []string{"status"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wallsync",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that ended successfully.",
		}),
		duration: prometheus.NewSummary(prometheus.SummaryOpts{
			Namespace: "wallsync",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a run.",
		}),
	}
	m.reg.MustRegister(m.files, m.records, m.requests, m.accepted, m.runs, m.lastSuccess, m.duration)
	return m
}

func (m *Metrics) Gatherer() prometheus.Gatherer { return m.reg }

// ObserveRun folds a finished run into the counters.
func (m *Metrics) ObserveRun(rep RunReport) {
	m.files.WithLabelValues("processed").Add(float64(rep.FilesProcessed))
	m.files.WithLabelValues("failed").Add(float64(rep.FilesFailed))
	m.files.WithLabelValues("skipped").Add(float64(rep.FilesSkipped))
	m.records.Add(float64(rep.RecordsGenerated))

	for _, b := range rep.Upsert.Batches {
		switch b.Outcome {
		case BatchOK:
			m.requests.WithLabelValues("batch", "ok").Inc()
		case BatchFallback:
			m.requests.WithLabelValues("batch", "conflict").Inc()
			m.requests.WithLabelValues("record", "ok").Add(float64(b.RecordOK))
			m.requests.WithLabelValues("record", "failed").Add(float64(b.RecordFailed))
		default:
			m.requests.WithLabelValues("batch", "failed").Inc()
		}
	}
	m.accepted.Add(float64(rep.Upsert.Processed))

	status := "success"
	switch {
	case !rep.UpsertCalled:
		status = "noop"
	case !rep.Success():
		status = "failure"
	}
	m.runs.WithLabelValues(status).Inc()
	if rep.Success() {
		m.lastSuccess.Set(float64(rep.EndedAt.Unix()))
	}
	m.duration.Observe(rep.EndedAt.Sub(rep.StartedAt).Seconds())
}

// Push sends the registry to the Pushgateway. It is a no-op without a gateway URL.
func (m *Metrics) Push() error {
	if m.gatewayURL == "" {
		return nil
	}
	pusher := push.New(m.gatewayURL, m.job).
		Client(&http.Client{Timeout: m.pushTimeout}).
		Gatherer(m.reg)
	if err := pusher.Push(); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the service collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	SubmissionsTotal    *prometheus.CounterVec
	UploadedFilesTotal  prometheus.Counter
	UploadedBytesTotal  prometheus.Counter
	NotificationsTotal  *prometheus.CounterVec
	NotifyQueueDepth    prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		SubmissionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registration_submissions_total",
				Help: "Submissions by outcome",
			},
			[]string{"outcome"},
		),
		UploadedFilesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "registration_uploaded_files_total",
				Help: "Documents stored",
			},
		),
		UploadedBytesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "registration_uploaded_bytes_total",
				Help: "Bytes of documents stored",
			},
		),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registration_notifications_total",
				Help: "Notification emails by kind and result",
			},
			[]string{"kind", "result"},
		),
		NotifyQueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "registration_notify_queue_depth",
				Help: "Submissions waiting for notification delivery",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(
			m.HTTPRequestsTotal,
			m.HTTPRequestDuration,
			m.SubmissionsTotal,
			m.UploadedFilesTotal,
			m.UploadedBytesTotal,
			m.NotificationsTotal,
			m.NotifyQueueDepth,
		)
	}
	return m
}

func (m *Metrics) ObserveRequest(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) Submission(outcome string) {
	if m == nil {
		return
	}
	m.SubmissionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) FileStored(size int64) {
	if m == nil {
		return
	}
	m.UploadedFilesTotal.Inc()
	m.UploadedBytesTotal.Add(float64(size))
}

func (m *Metrics) Notification(kind, result string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) QueueDepth(n int) {
	if m == nil {
		return
	}
	m.NotifyQueueDepth.Set(float64(n))
}

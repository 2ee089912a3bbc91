package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the bot
type Metrics struct {
	// Pipeline metrics
	Requests        *prometheus.CounterVec
	RequestDuration prometheus.Histogram

	// Extraction metrics
	Extractions        *prometheus.CounterVec
	ExtractionDuration prometheus.Histogram
	ExtractedBytes     prometheus.Histogram

	// Worker pool metrics
	BusyWorkers prometheus.Gauge
	QueueDepth  prometheus.Gauge
}

// NewMetrics creates all metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ytaudio_requests_total",
			Help: "Total number of processed requests by outcome",
		}, []string{"outcome"}),
		RequestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ytaudio_request_duration_seconds",
			Help:    "Time from request start to its terminal outcome",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}),

		Extractions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ytaudio_extractions_total",
			Help: "Total number of extraction runs by result",
		}, []string{"result"}),
		ExtractionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ytaudio_extraction_duration_seconds",
			Help:    "Duration of extraction tool runs",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		ExtractedBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ytaudio_extracted_bytes",
			Help:    "Size of extracted audio payloads",
			Buckets: prometheus.ExponentialBuckets(256*1024, 2, 10),
		}),

		BusyWorkers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ytaudio_pool_busy_workers",
			Help: "Current number of workers running a request",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ytaudio_pool_queue_depth",
			Help: "Current number of requests waiting for a worker",
		}),
	}
}

// ObserveRequest records a finished request
func (m *Metrics) ObserveRequest(outcome string, duration time.Duration) {
	m.Requests.WithLabelValues(outcome).Inc()
	m.RequestDuration.Observe(duration.Seconds())
}

// ObserveExtraction records an extraction run
func (m *Metrics) ObserveExtraction(duration time.Duration, size int, err error) {
	m.ExtractionDuration.Observe(duration.Seconds())
	if err != nil {
		m.Extractions.WithLabelValues("failure").Inc()
		return
	}
	m.Extractions.WithLabelValues("success").Inc()
	m.ExtractedBytes.Observe(float64(size))
}

// WorkerBusy marks a worker as running a request
func (m *Metrics) WorkerBusy() {
	m.BusyWorkers.Inc()
}

// WorkerIdle marks a worker as free
func (m *Metrics) WorkerIdle() {
	m.BusyWorkers.Dec()
}

// SetQueueDepth records the number of queued requests
func (m *Metrics) SetQueueDepth(n int) {
	m.QueueDepth.Set(float64(n))
}

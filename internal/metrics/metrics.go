package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	registry        *prometheus.Registry
	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	predictions     *prometheus.CounterVec
	inferenceTime   prometheus.Histogram
	chatReplies     *prometheus.CounterVec
	modelLoaded     prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			}, []string{"path", "method", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			}, []string{"path"},
		),
		predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cropdoc_predictions_total",
				Help: "Predictions by class",
			}, []string{"class"},
		),
		inferenceTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cropdoc_inference_duration_seconds",
				Help:    "Time spent scoring one image",
				Buckets: prometheus.DefBuckets,
			},
		),
		chatReplies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cropdoc_chat_replies_total",
				Help: "Chatbot replies by matched class",
			}, []string{"class"},
		),
		modelLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cropdoc_model_loaded",
				Help: "1 when the classifier is loaded, 0 otherwise",
			},
		),
	}
	m.registry.MustRegister(
		m.requestCount, m.requestDuration,
		m.predictions, m.inferenceTime, m.chatReplies, m.modelLoaded,
	)
	return m
}

// ObserveInference records one completed prediction.
func (m *Metrics) ObserveInference(class string, elapsed time.Duration) {
	m.predictions.WithLabelValues(class).Inc()
	m.inferenceTime.Observe(elapsed.Seconds())
}

// ObserveChat records one chatbot reply. class is empty for the fallback.
func (m *Metrics) ObserveChat(class string) {
	if class == "" {
		class = "none"
	}
	m.chatReplies.WithLabelValues(class).Inc()
}

func (m *Metrics) SetModelLoaded(loaded bool) {
	if loaded {
		m.modelLoaded.Set(1)
		return
	}
	m.modelLoaded.Set(0)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware counts and times every request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.requestCount.WithLabelValues(r.URL.Path, r.Method, strconv.Itoa(rec.Status)).Inc()
		m.requestDuration.WithLabelValues(r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// StatusRecorder remembers the status code written through it.
type StatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *StatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

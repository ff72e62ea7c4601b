package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry. A nil *Collector records nothing.
type Collector struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	rateLimited     prometheus.Counter
	employeeWrites  *prometheus.CounterVec
	imageUploads    *prometheus.CounterVec
	realtimeEvents  *prometheus.CounterVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"method", "route", "status"},
		),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}),
		employeeWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "employee_writes_total",
				Help: "Employee create/update/delete operations",
			},
			[]string{"op"},
		),
		imageUploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "image_uploads_total",
				Help: "Image uploads forwarded to the image host",
			},
			[]string{"status"},
		),
		realtimeEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "realtime_events_published_total",
				Help: "Realtime events published per topic",
			},
			[]string{"topic"},
		),
	}
	c.registry.MustRegister(
		c.requestDuration,
		c.rateLimited,
		c.employeeWrites,
		c.imageUploads,
		c.realtimeEvents,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) RecordRequest(method, route string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
	if status == http.StatusTooManyRequests {
		c.rateLimited.Inc()
	}
}

func (c *Collector) EmployeeWrite(op string) {
	if c == nil {
		return
	}
	c.employeeWrites.WithLabelValues(op).Inc()
}

func (c *Collector) ImageUpload(status string) {
	if c == nil {
		return
	}
	c.imageUploads.WithLabelValues(status).Inc()
}

func (c *Collector) RealtimeEvent(topic string) {
	if c == nil {
		return
	}
	c.realtimeEvents.WithLabelValues(topic).Inc()
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// services/metrics/metrics.go
package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"envhttpd/bus"
	"envhttpd/services/hal"
	"envhttpd/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	reg *prometheus.Registry

	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec

	pollsTotal   *prometheus.CounterVec
	pollFailures *prometheus.CounterVec
	temperature  *prometheus.GaugeVec
	pressure     prometheus.Gauge
	humidity     prometheus.Gauge
	rawCounts    *prometheus.GaugeVec
	lastSnapshot prometheus.Gauge
}

// New registers every collector on a private registry, together with the
// Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "envhttpd_http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "envhttpd_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		pollsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "envhttpd_polls_total",
			Help: "Sensor polls by result (ok, error).",
		}, []string{"result"}),
		pollFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "envhttpd_poll_failures_total",
			Help: "Failed polls by sensor and error code.",
		}, []string{"sensor", "code"}),
		temperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "envhttpd_temperature_celsius",
			Help: "Last compensated temperature by sensor.",
		}, []string{"sensor"}),
		pressure: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "envhttpd_pressure_hpa",
			Help: "Last compensated BME280 pressure.",
		}),
		humidity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "envhttpd_humidity_percent",
			Help: "Last compensated BME280 relative humidity.",
		}),
		rawCounts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "envhttpd_raw_counts",
			Help: "Last uncompensated ADC value by sensor and channel.",
		}, []string{"sensor", "channel"}),
		lastSnapshot: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "envhttpd_last_snapshot_timestamp_seconds",
			Help: "Unix time of the last successful poll.",
		}),
	}

	m.reg = prometheus.NewRegistry()
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpDuration,
		m.pollsTotal,
		m.pollFailures,
		m.temperature,
		m.pressure,
		m.humidity,
		m.rawCounts,
		m.lastSnapshot,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler counts and times requests on route. The wrapped writer does
// not support hijacking.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}

func (m *Metrics) ObserveSnapshot(s types.Snapshot) {
	if m == nil {
		return
	}
	m.pollsTotal.WithLabelValues("ok").Inc()
	m.temperature.WithLabelValues("bme280").Set(s.Combined.Value.TemperatureC)
	m.temperature.WithLabelValues("tmp117").Set(s.Precision.TemperatureC)
	m.pressure.Set(s.Combined.Value.PressureHPa)
	m.humidity.Set(s.Combined.Value.HumidityPct)
	m.rawCounts.WithLabelValues("bme280", "temperature").Set(float64(s.Combined.Raw.Temperature))
	m.rawCounts.WithLabelValues("bme280", "pressure").Set(float64(s.Combined.Raw.Pressure))
	m.rawCounts.WithLabelValues("bme280", "humidity").Set(float64(s.Combined.Raw.Humidity))
	m.rawCounts.WithLabelValues("tmp117", "temperature").Set(float64(s.Precision.Raw))
	m.lastSnapshot.Set(float64(s.TS) / 1e3)
}

func (m *Metrics) ObserveError(e types.PollError) {
	if m == nil {
		return
	}
	m.pollsTotal.WithLabelValues("error").Inc()
	m.pollFailures.WithLabelValues(e.Sensor, e.Code).Inc()
}

// Run feeds the collectors from the station's bus topics until ctx ends.
func (m *Metrics) Run(ctx context.Context, conn *bus.Connection, log *slog.Logger) {
	snaps := conn.Subscribe(hal.TopicSnapshot)
	errs := conn.Subscribe(hal.TopicError)
	defer conn.Unsubscribe(snaps)
	defer conn.Unsubscribe(errs)

	log.Debug("metrics collector started")
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-snaps.Channel():
			if !ok {
				return
			}
			if s, ok := msg.Payload.(types.Snapshot); ok {
				m.ObserveSnapshot(s)
			}
		case msg, ok := <-errs.Channel():
			if !ok {
				return
			}
			if e, ok := msg.Payload.(types.PollError); ok {
				m.ObserveError(e)
			}
		}
	}
}

// FILE: lixenwraith/confclass/metrics.go
package config

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics receives resolution and reload outcomes from a Registry.
type Metrics interface {
	// ObserveResolution is called after every resolution pass, initial or reload
	ObserveResolution(key string, duration time.Duration, err error)
	// ObserveReload is called after every Reload attempt
	ObserveReload(key string, err error)
}

type nopMetrics struct{}

func (nopMetrics) ObserveResolution(string, time.Duration, error) {}
func (nopMetrics) ObserveReload(string, error)                    {}

// PrometheusMetrics exports registry activity as Prometheus collectors.
type PrometheusMetrics struct {
	resolutions *prometheus.CounterVec   // passes by shape and result
	duration    *prometheus.HistogramVec // pass latency in seconds
	reloads     *prometheus.CounterVec   // reload attempts by shape and result
	fieldErrors *prometheus.CounterVec   // failed fields by shape and failure kind
}

// NewPrometheusMetrics creates the collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &PrometheusMetrics{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "confclass",
			Name:      "resolutions_total",
			Help:      "Total number of resolution passes",
		}, []string{"shape", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "confclass",
			Name:      "resolution_duration_seconds",
			Help:      "Duration of resolution passes including source preparation",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"shape"}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "confclass",
			Name:      "reloads_total",
			Help:      "Total number of reload attempts",
		}, []string{"shape", "result"}),
		fieldErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "confclass",
			Name:      "field_errors_total",
			Help:      "Total number of field failures by kind",
		}, []string{"shape", "kind"}),
	}

	for _, c := range []prometheus.Collector{m.resolutions, m.duration, m.reloads, m.fieldErrors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveResolution implements Metrics
func (m *PrometheusMetrics) ObserveResolution(key string, duration time.Duration, err error) {
	m.resolutions.WithLabelValues(key, result(err)).Inc()
	m.duration.WithLabelValues(key).Observe(duration.Seconds())

	var re *ResolutionError
	if errors.As(err, &re) {
		for _, fe := range re.Errors {
			m.fieldErrors.WithLabelValues(key, fe.Kind.Error()).Inc()
		}
	}
}

// ObserveReload implements Metrics
func (m *PrometheusMetrics) ObserveReload(key string, err error) {
	m.reloads.WithLabelValues(key, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

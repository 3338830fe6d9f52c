package middleware

import (
	"net/http"
	"path"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// NewRequestMetrics builds the request counter and latency histogram used by
// Metrics and registers them with reg.
func NewRequestMetrics(reg prometheus.Registerer) (*prometheus.CounterVec, *prometheus.HistogramVec, error) {
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openfmb_client_requests_total",
			Help: "Total number of requests issued to the OpenFMB API",
		},
		[]string{"endpoint"},
	)
	latency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "openfmb_client_request_duration_seconds",
			Help:    "Latency of requests to the OpenFMB API",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	if err := reg.Register(requests); err != nil {
		return nil, nil, err
	}
	if err := reg.Register(latency); err != nil {
		return nil, nil, err
	}
	return requests, latency, nil
}

// Metrics records request counts and latency, labeled by the last path
// segment of the requested endpoint.
func Metrics(requests *prometheus.CounterVec, latency *prometheus.HistogramVec) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()

			resp, err := next.RoundTrip(req)

			duration := time.Since(start).Seconds()
			endpoint := path.Base(req.URL.Path)

			requests.WithLabelValues(endpoint).Inc()
			latency.WithLabelValues(endpoint).Observe(duration)

			return resp, err
		})
	}
}

// Package metrics holds the Prometheus collectors of the web front.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tumio_web"

// Refresh outcomes
const (
	RefreshOK        = "ok"
	RefreshFailed    = "failed"
	RefreshNoToken   = "no_token"
	RefreshCollapsed = "collapsed"
)

// Metrics is a set of collectors on a private registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	reg *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	apiRequests    *prometheus.CounterVec
	apiDuration    *prometheus.HistogramVec
	refreshes      *prometheus.CounterVec
	guardRedirects *prometheus.CounterVec
	edgeRedirects  prometheus.Counter
	otpRequests    *prometheus.CounterVec
}

// New registers every collector plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Pages and form posts served, by route pattern and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Time to serve a page or form post.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Calls to the platform API, by method and status.",
		}, []string{"method", "status"}),
		apiDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Latency of platform API calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refresh_total",
			Help:      "Access token refresh attempts by result.",
		}, []string{"result"}),
		guardRedirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_redirects_total",
			Help:      "Page guard redirects by target.",
		}, []string{"target"}),
		edgeRedirects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edge_redirects_total",
			Help:      "Requests bounced to login by the edge guard.",
		}),
		otpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_requests_total",
			Help:      "OTP sends and resends by outcome.",
		}, []string{"kind", "result"}),
	}

	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration,
		m.apiRequests, m.apiDuration,
		m.refreshes, m.guardRedirects, m.edgeRedirects, m.otpRequests,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

func (m *Metrics) ObserveHTTP(route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(dur.Seconds())
}

// ObserveAPI records one platform API call. status 0 means a transport error.
func (m *Metrics) ObserveAPI(method string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.apiDuration.WithLabelValues(method).Observe(dur.Seconds())
}

func (m *Metrics) Refresh(result string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) GuardRedirect(target string) {
	if m == nil {
		return
	}
	m.guardRedirects.WithLabelValues(target).Inc()
}

func (m *Metrics) EdgeRedirect() {
	if m == nil {
		return
	}
	m.edgeRedirects.Inc()
}

// OTP records an OTP send ("request") or resend ("resend").
func (m *Metrics) OTP(kind string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.otpRequests.WithLabelValues(kind, result).Inc()
}

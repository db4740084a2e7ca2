package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"hello-kubecon/internal/models"
)

var (
	requestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hello_kubecon_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"path", "code"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hello_kubecon_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	eventCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hello_kubecon_events_total",
			Help: "Dispatched lifecycle events by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	reconcileCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hello_kubecon_reconcile_total",
			Help: "Reconcile passes by outcome: blocked, unchanged, applied, error",
		},
		[]string{"outcome"},
	)

	siteFetchCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hello_kubecon_site_fetch_total",
			Help: "Site fetches by result",
		},
		[]string{"result"},
	)

	unitStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hello_kubecon_unit_status",
			Help: "Current unit status, 1 for the active status name",
		},
		[]string{"status"},
	)
)

// 本地计数，供健康检查接口使用
var (
	totalRequests int64
	errorRequests int64
)

const (
	ReconcileBlocked   = "blocked"
	ReconcileUnchanged = "unchanged"
	ReconcileApplied   = "applied"
	ReconcileError     = "error"

	ResultSuccess = "success"
	ResultFailure = "failure"
)

func init() {
	prometheus.MustRegister(requestCount)
	prometheus.MustRegister(requestDuration)
	prometheus.MustRegister(eventCount)
	prometheus.MustRegister(reconcileCount)
	prometheus.MustRegister(siteFetchCount)
	prometheus.MustRegister(unitStatus)
}

func ObserveRequest(path, code string, seconds float64, failed bool) {
	requestCount.WithLabelValues(path, code).Inc()
	requestDuration.WithLabelValues(path).Observe(seconds)
	atomic.AddInt64(&totalRequests, 1)
	if failed {
		atomic.AddInt64(&errorRequests, 1)
	}
}

func TotalRequests() int64 {
	return atomic.LoadInt64(&totalRequests)
}

func ErrorRequests() int64 {
	return atomic.LoadInt64(&errorRequests)
}

func IncEvent(kind, outcome string) {
	eventCount.WithLabelValues(kind, outcome).Inc()
}

func IncReconcile(outcome string) {
	reconcileCount.WithLabelValues(outcome).Inc()
}

func IncSiteFetch(result string) {
	siteFetchCount.WithLabelValues(result).Inc()
}

// SetUnitStatus moves the gauge to the given status name
func SetUnitStatus(name models.StatusName) {
	for _, n := range []models.StatusName{models.UnitUnknown, models.UnitMaintenance, models.UnitBlocked, models.UnitActive} {
		v := 0.0
		if n == name {
			v = 1
		}
		unitStatus.WithLabelValues(string(n)).Set(v)
	}
}

// Counters exposed for tests
func EventCounter(kind, outcome string) prometheus.Counter {
	return eventCount.WithLabelValues(kind, outcome)
}

func ReconcileCounter(outcome string) prometheus.Counter {
	return reconcileCount.WithLabelValues(outcome)
}

func SiteFetchCounter(result string) prometheus.Counter {
	return siteFetchCount.WithLabelValues(result)
}

func UnitStatusGauge(name models.StatusName) prometheus.Gauge {
	return unitStatus.WithLabelValues(string(name))
}

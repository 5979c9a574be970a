package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Dogaatademir/Opsiron-sub001/ledger"
)

// Metrics holds the server's Prometheus collectors on a private registry.
// A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.HistogramVec
	productionRuns  *prometheus.CounterVec
	restocks        prometheus.Counter
	settlements     *prometheus.CounterVec
	backupsImported *prometheus.CounterVec

	// refreshed by Monitor
	criticalItems   prometheus.Gauge
	upcomingDue     *prometheus.GaugeVec
	unsettledChecks prometheus.Gauge
	netPosition     prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "opsiron",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		productionRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "opsiron",
			Name:      "production_runs_total",
			Help:      "Production runs by outcome (applied, insufficient_stock, rejected).",
		}, []string{"outcome"}),
		restocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "opsiron",
			Name:      "restocks_total",
			Help:      "Applied restocks.",
		}),
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "opsiron",
			Name:      "settlement_changes_total",
			Help:      "Settle and unsettle transitions.",
		}, []string{"state"}),
		backupsImported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "opsiron",
			Name:      "backup_imports_total",
			Help:      "Backup imports by outcome.",
		}, []string{"outcome"}),
		criticalItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "opsiron",
			Name:      "critical_items",
			Help:      "Raw materials at or below their minimum threshold.",
		}),
		upcomingDue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "opsiron",
			Name:      "upcoming_due_amount",
			Help:      "Open obligations inside the upcoming window, by direction.",
		}, []string{"direction"}),
		unsettledChecks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "opsiron",
			Name:      "unsettled_checks_amount",
			Help:      "Total of checks not yet settled.",
		}),
		netPosition: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "opsiron",
			Name:      "net_position_amount",
			Help:      "Outstanding receivable minus outstanding payable minus unsettled checks.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.productionRuns,
		m.restocks,
		m.settlements,
		m.backupsImported,
		m.criticalItems,
		m.upcomingDue,
		m.unsettledChecks,
		m.netPosition,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware observes each request under its chi route pattern, so
// /api/items/{id} is one series rather than one per id.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) production(outcome string) {
	if m != nil {
		m.productionRuns.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) restocked() {
	if m != nil {
		m.restocks.Inc()
	}
}

func (m *Metrics) settlement(settled bool) {
	if m == nil {
		return
	}
	state := "pending"
	if settled {
		state = "settled"
	}
	m.settlements.WithLabelValues(state).Inc()
}

func (m *Metrics) backupImport(outcome string) {
	if m != nil {
		m.backupsImported.WithLabelValues(outcome).Inc()
	}
}

// publish sets the gauges from one monitor check. Amounts are exported as
// floats; the ledger itself never leaves decimal.
func (m *Metrics) publish(critical int, r ledger.Report) {
	if m == nil {
		return
	}
	m.criticalItems.Set(float64(critical))
	m.upcomingDue.WithLabelValues("payable").Set(r.Upcoming.TotalPayableLike.InexactFloat64())
	m.upcomingDue.WithLabelValues("receivable").Set(r.Upcoming.TotalReceivable.InexactFloat64())
	m.unsettledChecks.Set(r.TotalUnsettledChecks.InexactFloat64())
	m.netPosition.Set(r.NetPosition.InexactFloat64())
}

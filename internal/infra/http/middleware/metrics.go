package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gymcrm"

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Requests served, by route pattern and status class",
		},
		[]string{"method", "route", "code"},
	)

	requestSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_seconds",
			Help:      "Request latency by route pattern",
			// Webhook inclui enriquecimento no HighLevel e o lock do ledger.
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "route"},
	)

	inFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "Requests being served right now",
		},
	)

	webhookResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_results_total",
			Help:      "Webhook deliveries by reconcile action and result",
		},
		[]string{"action", "result"},
	)

	syncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Sync runs by result",
		},
		[]string{"result"},
	)

	syncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of sync runs in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	leadsArchived = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leads_archived_total",
			Help:      "Total number of leads moved to the archive",
		},
	)

	ledgerRegistrations = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_registrations_total",
			Help:      "Total number of challengers added to the accountability ledger",
		},
	)

	integrationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "integration_errors_total",
			Help:      "Failed calls to external services (HighLevel, SMTP)",
		},
		[]string{"service"},
	)
)

// statusRecorder guarda o status devolvido; handlers que só chamam Write
// respondem 200.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Metrics mede as requisições por rota. O padrão da rota só existe depois
// que o chi resolve o roteamento, então é lido no fim.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		inFlight.Inc()
		defer inFlight.Dec()
		next.ServeHTTP(rec, r)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		route := routePattern(r)
		requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status/100)+"xx").Inc()
		requestSeconds.WithLabelValues(r.Method, route).Observe(time.Since(started).Seconds())
	})
}

// routePattern usa o padrão da rota do chi para não explodir a
// cardinalidade com query strings e IDs.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

func RecordWebhook(action, result string) {
	webhookResults.WithLabelValues(action, result).Inc()
}

func RecordSyncRun(result string, duration time.Duration) {
	syncRuns.WithLabelValues(result).Inc()
	syncDuration.Observe(duration.Seconds())
}

func RecordArchived(n int) {
	leadsArchived.Add(float64(n))
}

func RecordLedgerRegistrations(n int) {
	ledgerRegistrations.Add(float64(n))
}

func RecordIntegrationError(service string) {
	integrationErrors.WithLabelValues(service).Inc()
}

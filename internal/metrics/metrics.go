// Package metrics exposes Prometheus collectors for the discovery pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Page outcome labels used with ObservePage.
const (
	OutcomeSaved      = "saved"
	OutcomeCached     = "cached"
	OutcomeIrrelevant = "irrelevant"
	OutcomeInvalid    = "invalid"
	OutcomeFailed     = "failed"
	OutcomeError      = "error"
)

var (
	candidatesTotal            *prometheus.CounterVec
	pagesTotal                 *prometheus.CounterVec
	providerFailuresTotal      *prometheus.CounterVec
	fetchAttemptsTotal         *prometheus.CounterVec
	usersExtractedTotal        prometheus.Counter
	classifyDurationSeconds    *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		candidatesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_candidates_total",
				Help: "Candidate URLs returned by discovery providers, labeled by provider.",
			},
			[]string{"provider"},
		)

		pagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_pages_total",
				Help: "Candidate pages processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		providerFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_provider_failures_total",
				Help: "Discovery providers skipped because of an error, labeled by provider.",
			},
			[]string{"provider"},
		)

		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_fetch_attempts_total",
				Help: "Headless fetch attempts, labeled by result.",
			},
			[]string{"result"},
		)

		usersExtractedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "outreach_users_extracted_total",
				Help: "Users newly persisted by extraction.",
			},
		)

		classifyDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "outreach_classify_duration_seconds",
				Help:    "Histogram of relevance classification latencies.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 60},
			},
			[]string{"relevant"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveCandidates adds the number of candidate URLs a provider returned.
func ObserveCandidates(provider string, n int) {
	Init()
	candidatesTotal.WithLabelValues(provider).Add(float64(n))
}

// ObservePage increments the page counter for the given outcome.
func ObservePage(outcome string) {
	Init()
	pagesTotal.WithLabelValues(outcome).Inc()
}

// ObserveProviderFailure increments the failure counter for a provider.
func ObserveProviderFailure(provider string) {
	Init()
	providerFailuresTotal.WithLabelValues(provider).Inc()
}

// ObserveFetchAttempt records one headless fetch attempt.
func ObserveFetchAttempt(success bool) {
	Init()
	result := "success"
	if !success {
		result = "error"
	}
	fetchAttemptsTotal.WithLabelValues(result).Inc()
}

// ObserveUsersExtracted adds newly created users.
func ObserveUsersExtracted(n int) {
	Init()
	if n > 0 {
		usersExtractedTotal.Add(float64(n))
	}
}

// ObserveClassification records how long a relevance decision took.
func ObserveClassification(relevant bool, duration time.Duration) {
	Init()
	classifyDurationSeconds.WithLabelValues(strconv.FormatBool(relevant)).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI requests by provider and operation",
		},
		[]string{"provider", "operation"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider", "operation"},
	)

	AnalysesStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "analyses_started_total",
			Help: "Total number of candidate analyses started",
		},
	)
	AnalysesInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "analyses_in_flight",
			Help: "Number of candidate analyses currently running",
		},
	)
	AnalysesCompletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "analyses_completed_total",
			Help: "Total number of candidate analyses completed successfully",
		},
	)
	AnalysesFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "analyses_failed_total",
			Help: "Total number of candidate analyses that exhausted their retry budget",
		},
	)
	AnalysisAttemptsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "analysis_attempts_total",
			Help: "Total scoring attempts including retries",
		},
	)

	// Outcome distribution of resume scores ([0,10])
	ResumeScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analysis_resume_score",
			Help:    "Distribution of resume scores ([0,10])",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		},
	)
)

func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(AIRequestsTotal)
	prometheus.MustRegister(AIRequestDuration)
	prometheus.MustRegister(AnalysesStartedTotal)
	prometheus.MustRegister(AnalysesInFlight)
	prometheus.MustRegister(AnalysesCompletedTotal)
	prometheus.MustRegister(AnalysesFailedTotal)
	prometheus.MustRegister(AnalysisAttemptsTotal)
	prometheus.MustRegister(ResumeScoreHistogram)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			// fallback when route pattern is unavailable
			route = r.URL.Path
		}
		method := r.Method
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, method).Observe(dur)
	})
}

func StartAnalysis() {
	AnalysesStartedTotal.Inc()
	AnalysesInFlight.Inc()
}

func CompleteAnalysis() {
	AnalysesInFlight.Dec()
	AnalysesCompletedTotal.Inc()
}

func FailAnalysis() {
	AnalysesInFlight.Dec()
	AnalysesFailedTotal.Inc()
}

// ObserveResumeScore records the resulting resume score from a completed analysis.
func ObserveResumeScore(score float64) {
	if score >= 0 && score <= 10 {
		ResumeScoreHistogram.Observe(score)
	}
}

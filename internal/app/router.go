// Package app wires configuration, adapters and usecases into a running
// HTTP service.
package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/fairyhunter13/candidate-screener/internal/adapter/httpserver"
	"github.com/fairyhunter13/candidate-screener/internal/adapter/observability"
	"github.com/fairyhunter13/candidate-screener/internal/config"
)

// ParseOrigins splits a comma-separated origin list into a slice, trimming spaces.
// If the input is empty, returns ["*"].
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	// Security & instrumentation middleware
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TimeoutMiddleware(30 * time.Second))
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Rate limit mutating endpoints
	r.Group(func(wr chi.Router) {
		wr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, 1*time.Minute))

		wr.Post("/v1/jobs", srv.CreateJobHandler())
		wr.Put("/v1/jobs/{id}", srv.UpdateJobHandler())
		wr.Delete("/v1/jobs/{id}", srv.DeleteJobHandler())
		wr.Post("/v1/jobs/{id}/analyze", srv.AnalyzeJobHandler())
		wr.Post("/v1/jobs/{id}/candidates", srv.UploadCandidateHandler())
		wr.Post("/v1/jobs/{id}/candidates/bulk", srv.BulkUploadHandler())

		wr.Patch("/v1/candidates/{id}", srv.PatchCandidateHandler())
		wr.Post("/v1/candidates/{id}/review", srv.ReviewCandidateHandler())
		wr.Delete("/v1/candidates/{id}", srv.DeleteCandidateHandler())
		wr.Post("/v1/candidates/{id}/analyze", srv.ReanalyzeCandidateHandler())
		wr.Post("/v1/candidates/{id}/assessments", srv.UploadAssessmentFileHandler())
		wr.Post("/v1/candidates/{id}/assessments/ccat", srv.UploadCCATHandler())
		wr.Post("/v1/candidates/{id}/assessments/personality", srv.UploadPersonalityHandler())
	})

	// Read-only endpoints
	r.Get("/v1/jobs", srv.ListJobsHandler())
	r.Get("/v1/jobs/{id}", srv.GetJobHandler())
	r.Get("/v1/jobs/{id}/candidates", srv.ListCandidatesHandler())
	r.Get("/v1/jobs/{id}/export", srv.ExportCandidatesHandler())
	r.Get("/v1/candidates/{id}", srv.GetCandidateHandler())
	r.Get("/v1/candidates/{id}/resume", srv.DownloadResumeHandler())
	r.Get("/v1/activity", srv.ActivityHandler())

	// Health and metrics
	r.Get("/healthz", srv.HealthzHandler())
	r.Get("/readyz", srv.ReadyzHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) { promhttp.Handler().ServeHTTP(w, r) })

	return httpserver.SecurityHeaders(r)
}

package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/candidate-screener/internal/domain"
)

func jobFromRequest(req jobRequest) domain.Job {
	criteria := make([]domain.Criterion, 0, len(req.Criteria))
	for _, c := range req.Criteria {
		criteria = append(criteria, domain.Criterion{Name: c.Name, Weight: c.Weight})
	}
	return domain.Job{
		Title:       req.Title,
		Department:  req.Department,
		Description: req.Description,
		Criteria:    criteria,
		Status:      domain.JobStatus(req.Status),
	}
}

func decodeValidated(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
		return false
	}
	if err := getValidator().Struct(v); err != nil {
		verrs := map[string]string{}
		if ve, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range ve {
				verrs[strings.ToLower(fe.Field())] = fe.Tag()
			}
		}
		writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), verrs)
		return false
	}
	return true
}

func pagination(r *http.Request) (limit, offset int) {
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

// CreateJobHandler creates a job posting.
func (s *Server) CreateJobHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req jobRequest
		if !decodeValidated(w, r, &req) {
			return
		}
		job := jobFromRequest(req)
		id, err := s.Jobs.Create(r.Context(), job)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		created, err := s.Jobs.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, toJobResponse(created))
	}
}

// ListJobsHandler lists jobs, optionally filtered by status.
func (s *Server) ListJobsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := domain.JobStatus(r.URL.Query().Get("status"))
		limit, offset := pagination(r)
		if limit == 0 {
			limit = 50
		}
		jobs, err := s.Jobs.List(r.Context(), status, limit, offset)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		out := make([]jobResponse, 0, len(jobs))
		for _, j := range jobs {
			out = append(out, toJobResponse(j))
		}
		writeJSON(w, http.StatusOK, map[string]any{"jobs": out})
	}
}

// GetJobHandler returns one job with its candidate count.
func (s *Server) GetJobHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		job, err := s.Jobs.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, toJobResponse(job))
	}
}

// UpdateJobHandler replaces a job's mutable fields.
func (s *Server) UpdateJobHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req jobRequest
		if !decodeValidated(w, r, &req) {
			return
		}
		job := jobFromRequest(req)
		job.ID = chi.URLParam(r, "id")
		if err := s.Jobs.Update(r.Context(), job); err != nil {
			writeError(w, r, err, nil)
			return
		}
		updated, err := s.Jobs.Get(r.Context(), job.ID)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, toJobResponse(updated))
	}
}

// DeleteJobHandler removes a job and all of its candidates.
func (s *Server) DeleteJobHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := s.Jobs.Delete(r.Context(), id); err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// AnalyzeJobHandler kicks off analysis for a job's pending candidates.
// The response returns immediately; scoring continues in the background.
func (s *Server) AnalyzeJobHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := s.Jobs.Get(r.Context(), id); err != nil {
			writeError(w, r, err, nil)
			return
		}
		force := r.URL.Query().Get("force") == "true"
		ctx := backgroundContext(r)
		go func() {
			_ = s.Analyze.AnalyzeJob(ctx, id, force)
		}()
		writeJSON(w, http.StatusAccepted, map[string]string{"job_id": id, "status": "started"})
	}
}

// ActivityHandler lists recent activity events, newest first.
func (s *Server) ActivityHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := pagination(r)
		if limit == 0 {
			limit = 50
		}
		events, err := s.Activity.List(r.Context(), limit, offset)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		type eventDTO struct {
			ID          string `json:"id"`
			Type        string `json:"type"`
			JobID       string `json:"job_id,omitempty"`
			CandidateID string `json:"candidate_id,omitempty"`
			Detail      string `json:"detail"`
			CreatedAt   string `json:"created_at"`
		}
		out := make([]eventDTO, 0, len(events))
		for _, e := range events {
			out = append(out, eventDTO{
				ID:          e.ID,
				Type:        e.Type,
				JobID:       e.JobID,
				CandidateID: e.CandidateID,
				Detail:      e.Detail,
				CreatedAt:   e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": out})
	}
}

package httpserver

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/candidate-screener/internal/domain"
	"github.com/fairyhunter13/candidate-screener/internal/usecase"
)

// allowedExt enforces an allowlist for resume uploads.
func allowedExt(name string) bool {
	n := strings.ToLower(name)
	return strings.HasSuffix(n, ".pdf") || strings.HasSuffix(n, ".doc") ||
		strings.HasSuffix(n, ".docx") || strings.HasSuffix(n, ".txt")
}

func allowedMIMEFor(m, filename string) bool {
	m = strings.ToLower(m)
	// Some detectors misclassify rich text files, so .txt accepts any text/*.
	if strings.HasSuffix(strings.ToLower(filename), ".txt") && strings.HasPrefix(m, "text/") {
		return true
	}
	if strings.HasPrefix(m, "text/plain") { // allow parameters such as charset
		return true
	}
	return m == "application/pdf" ||
		m == "application/msword" ||
		m == "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
}

// readUploadFile validates one multipart file and loads it into memory.
// Zero-byte files pass through so ingestion can report them per file.
func readUploadFile(fh *multipart.FileHeader) (usecase.UploadFile, error) {
	if !allowedExt(fh.Filename) {
		return usecase.UploadFile{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, fh.Filename)
	}
	f, err := fh.Open()
	if err != nil {
		return usecase.UploadFile{}, fmt.Errorf("%w: open %s: %v", domain.ErrInvalidArgument, fh.Filename, err)
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		return usecase.UploadFile{}, fmt.Errorf("%w: read %s: %v", domain.ErrInvalidArgument, fh.Filename, err)
	}
	mt := mimetype.Detect(data)
	if len(data) > 0 && !allowedMIMEFor(mt.String(), fh.Filename) {
		return usecase.UploadFile{}, fmt.Errorf("%w: %s detected as %s", domain.ErrUnsupportedFormat, fh.Filename, mt.String())
	}
	return usecase.UploadFile{Filename: fh.Filename, MIME: mt.String(), Data: data}, nil
}

func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
		writeError(w, r, fmt.Errorf("%w: content-type must be multipart/form-data", domain.ErrInvalidArgument), nil)
		return false
	}
	maxBytes := s.Cfg.MaxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		low := strings.ToLower(err.Error())
		if strings.Contains(low, "too large") {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{
				Code:    "PAYLOAD_TOO_LARGE",
				Message: "payload too large",
				Details: map[string]any{"max_mb": s.Cfg.MaxUploadMB},
			}})
			return false
		}
		writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
		return false
	}
	return true
}

// UploadCandidateHandler ingests a single resume for a job.
func (s *Server) UploadCandidateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "id")
		if !s.parseMultipart(w, r) {
			return
		}
		_, fh, err := r.FormFile("resume")
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: resume file required", domain.ErrInvalidArgument), map[string]string{"field": "resume"})
			return
		}
		uf, err := readUploadFile(fh)
		if err != nil {
			writeError(w, r, err, map[string]string{"filename": fh.Filename})
			return
		}
		cand, err := s.Candidates.Upload(r.Context(), jobID, uf)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, toCandidateResponse(cand))
	}
}

// BulkUploadHandler ingests many resumes in one request. Per-file
// failures are reported in the response and never abort the batch.
func (s *Server) BulkUploadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "id")
		if !s.parseMultipart(w, r) {
			return
		}
		headers := r.MultipartForm.File["resumes"]
		if len(headers) == 0 {
			writeError(w, r, fmt.Errorf("%w: at least one file required in field resumes", domain.ErrInvalidArgument), nil)
			return
		}

		files := make([]usecase.UploadFile, 0, len(headers))
		var rejected []usecase.FailedUpload
		for _, fh := range headers {
			uf, err := readUploadFile(fh)
			if err != nil {
				rejected = append(rejected, usecase.FailedUpload{Filename: fh.Filename, Reason: err.Error()})
				continue
			}
			files = append(files, uf)
		}

		var result usecase.BulkResult
		if len(files) > 0 {
			var err error
			result, err = s.Candidates.BulkUpload(r.Context(), jobID, files)
			if err != nil {
				writeError(w, r, err, nil)
				return
			}
		} else if _, err := s.Jobs.Get(r.Context(), jobID); err != nil {
			writeError(w, r, err, nil)
			return
		}
		result.Failed = append(result.Failed, rejected...)

		created := make([]candidateResponse, 0, len(result.Created))
		for _, c := range result.Created {
			created = append(created, toCandidateResponse(c))
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"created": created,
			"failed":  result.Failed,
		})
	}
}

// ListCandidatesHandler lists a job's candidates.
func (s *Server) ListCandidatesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "id")
		if _, err := s.Jobs.Get(r.Context(), jobID); err != nil {
			writeError(w, r, err, nil)
			return
		}
		limit, offset := pagination(r)
		if limit == 0 {
			// Default page size; internal callers list unbounded.
			limit = 100
		}
		cands, err := s.Candidates.List(r.Context(), jobID, limit, offset)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		out := make([]candidateResponse, 0, len(cands))
		for _, c := range cands {
			out = append(out, toCandidateResponse(c))
		}
		writeJSON(w, http.StatusOK, map[string]any{"candidates": out})
	}
}

// GetCandidateHandler returns one candidate. Reading an unseen candidate
// marks it seen.
func (s *Server) GetCandidateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		cand, err := s.Candidates.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, toCandidateResponse(cand))
	}
}

// PatchCandidateHandler applies a partial profile update.
func (s *Server) PatchCandidateHandler() http.HandlerFunc {
	type patchRequest struct {
		Name     *string `json:"name" validate:"omitempty,max=200"`
		Email    *string `json:"email" validate:"omitempty,max=320"`
		Phone    *string `json:"phone" validate:"omitempty,max=32"`
		Location *string `json:"location" validate:"omitempty,max=200"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req patchRequest
		if !decodeValidated(w, r, &req) {
			return
		}
		cand, err := s.Candidates.UpdateProfile(r.Context(), id, usecase.ProfilePatch{
			Name:     req.Name,
			Email:    req.Email,
			Phone:    req.Phone,
			Location: req.Location,
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, toCandidateResponse(cand))
	}
}

// ReviewCandidateHandler records a shortlist or reject decision.
func (s *Server) ReviewCandidateHandler() http.HandlerFunc {
	type reviewRequest struct {
		State string `json:"state" validate:"required,oneof=seen shortlisted rejected"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req reviewRequest
		if !decodeValidated(w, r, &req) {
			return
		}
		cand, err := s.Candidates.Review(r.Context(), id, domain.ReviewState(req.State))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, toCandidateResponse(cand))
	}
}

// DeleteCandidateHandler removes a candidate and their stored resume.
func (s *Server) DeleteCandidateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := s.Candidates.Delete(r.Context(), id); err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// DownloadResumeHandler serves the original uploaded document.
func (s *Server) DownloadResumeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		f, err := s.Candidates.DownloadResume(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		ct := f.MIME
		if ct == "" {
			ct = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ct)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(f.Data)
	}
}

// ReanalyzeCandidateHandler forces a fresh analysis run for one
// candidate, regardless of current state. Returns immediately.
func (s *Server) ReanalyzeCandidateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		cand, err := s.Candidates.Peek(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		ctx := backgroundContext(r)
		go func() {
			_ = s.Analyze.Analyze(ctx, cand.JobID, cand.ID, true)
		}()
		writeJSON(w, http.StatusAccepted, map[string]string{"candidate_id": id, "status": "started"})
	}
}

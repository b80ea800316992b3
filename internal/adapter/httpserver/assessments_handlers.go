package httpserver

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/candidate-screener/internal/domain"
	"github.com/fairyhunter13/candidate-screener/internal/usecase"
)

// UploadAssessmentFileHandler ingests a combined assessment results
// document (CSV or PDF) for a candidate. The response reports which
// result kinds the file carried and the refreshed breakdown.
func (s *Server) UploadAssessmentFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !s.parseMultipart(w, r) {
			return
		}
		_, fh, err := r.FormFile("file")
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: assessment file required", domain.ErrInvalidArgument), map[string]string{"field": "file"})
			return
		}
		uf, err := readAssessmentFile(fh)
		if err != nil {
			writeError(w, r, err, map[string]string{"filename": fh.Filename})
			return
		}
		res, err := s.Assessments.UploadDocument(r.Context(), id, uf)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ccat_uploaded":        res.CCAT,
			"personality_uploaded": res.Personality,
			"score_breakdown":      toBreakdownDTO(res.Breakdown),
		})
	}
}

// readAssessmentFile loads an assessment document. Accepted formats are
// CSV and PDF, unlike the resume allowlist.
func readAssessmentFile(fh *multipart.FileHeader) (usecase.UploadFile, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if ext != ".csv" && ext != ".pdf" {
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
	return usecase.UploadFile{Filename: fh.Filename, MIME: fh.Header.Get("Content-Type"), Data: data}, nil
}

// UploadCCATHandler stores a cognitive aptitude percentile for a
// candidate, replacing any earlier result, and returns the refreshed
// score breakdown.
func (s *Server) UploadCCATHandler() http.HandlerFunc {
	type ccatRequest struct {
		Percentile float64 `json:"percentile" validate:"gte=0,lte=100"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req ccatRequest
		if !decodeValidated(w, r, &req) {
			return
		}
		breakdown, err := s.Assessments.UploadCCAT(r.Context(), id, req.Percentile)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"score_breakdown": toBreakdownDTO(breakdown)})
	}
}

// UploadPersonalityHandler stores Big Five trait scores for a candidate,
// replacing any earlier result, and returns the refreshed breakdown.
func (s *Server) UploadPersonalityHandler() http.HandlerFunc {
	type personalityRequest struct {
		Openness          float64 `json:"openness" validate:"gte=0,lte=10"`
		Conscientiousness float64 `json:"conscientiousness" validate:"gte=0,lte=10"`
		Extraversion      float64 `json:"extraversion" validate:"gte=0,lte=10"`
		Agreeableness     float64 `json:"agreeableness" validate:"gte=0,lte=10"`
		Neuroticism       float64 `json:"neuroticism" validate:"gte=0,lte=10"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req personalityRequest
		if !decodeValidated(w, r, &req) {
			return
		}
		traits := domain.PersonalityTraits{
			Openness:          req.Openness,
			Conscientiousness: req.Conscientiousness,
			Extraversion:      req.Extraversion,
			Agreeableness:     req.Agreeableness,
			Neuroticism:       req.Neuroticism,
		}
		breakdown, err := s.Assessments.UploadPersonality(r.Context(), id, traits)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"score_breakdown": toBreakdownDTO(breakdown)})
	}
}

package httpserver

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/candidate-screener/internal/domain"
)

// ExportCandidatesHandler streams a job's candidates as CSV, one row per
// candidate with their merged scores and review state.
func (s *Server) ExportCandidatesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "id")
		job, err := s.Jobs.Get(r.Context(), jobID)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		cands, err := s.Candidates.List(r.Context(), jobID, 0, 0)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "candidates-"+jobID+".csv"))
		w.WriteHeader(http.StatusOK)

		cw := csv.NewWriter(w)
		header := []string{
			"name", "email", "phone", "location",
			"overall_score", "resume_score", "ccat_score", "personality_score",
			"analysis_state", "review_state", "justification",
		}
		for _, c := range job.Criteria {
			header = append(header, "criterion: "+c.Name)
		}
		_ = cw.Write(header)

		for _, c := range cands {
			row := []string{
				c.Name, c.Contact.Email, c.Contact.Phone, c.Location,
				scoreCell(breakdownField(c, func(b domain.ScoreBreakdown) *float64 { v := b.OverallScore; return &v })),
				scoreCell(breakdownField(c, func(b domain.ScoreBreakdown) *float64 { v := b.ResumeScore; return &v })),
				scoreCell(breakdownField(c, func(b domain.ScoreBreakdown) *float64 { return b.CCATScore })),
				scoreCell(breakdownField(c, func(b domain.ScoreBreakdown) *float64 { return b.PersonalityScore })),
				string(c.AnalysisState), string(c.ReviewState), c.AIJustification,
			}
			byName := make(map[string]float64, len(c.CriterionScores))
			for _, cs := range c.CriterionScores {
				byName[cs.CriterionName] = cs.Score
			}
			for _, crit := range job.Criteria {
				if v, ok := byName[crit.Name]; ok {
					row = append(row, strconv.FormatFloat(v, 'f', 1, 64))
				} else {
					row = append(row, "")
				}
			}
			_ = cw.Write(row)
		}
		cw.Flush()
	}
}

func breakdownField(c domain.Candidate, pick func(domain.ScoreBreakdown) *float64) *float64 {
	if c.ScoreBreakdown == nil {
		return nil
	}
	return pick(*c.ScoreBreakdown)
}

func scoreCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}

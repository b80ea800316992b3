package httpserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/candidate-screener/internal/config"
	"github.com/fairyhunter13/candidate-screener/internal/domain"
	"github.com/fairyhunter13/candidate-screener/internal/usecase"
)

// Server aggregates handler dependencies.
type Server struct {
	Cfg         config.Config
	Jobs        usecase.JobService
	Candidates  usecase.CandidateService
	Assessments usecase.AssessmentService
	Analyze     *usecase.AnalyzeService
	Activity    domain.ActivityRepository

	DBCheck    func(ctx context.Context) error
	RedisCheck func(ctx context.Context) error
	TikaCheck  func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(
	cfg config.Config,
	jobs usecase.JobService,
	candidates usecase.CandidateService,
	assessments usecase.AssessmentService,
	analyze *usecase.AnalyzeService,
	activity domain.ActivityRepository,
	dbCheck, redisCheck, tikaCheck func(context.Context) error,
) *Server {
	return &Server{
		Cfg:         cfg,
		Jobs:        jobs,
		Candidates:  candidates,
		Assessments: assessments,
		Analyze:     analyze,
		Activity:    activity,
		DBCheck:     dbCheck,
		RedisCheck:  redisCheck,
		TikaCheck:   tikaCheck,
	}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// HealthzHandler reports process liveness.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyzHandler probes DB, Redis and Tika.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, 3)
		probe := func(name string, fn func(context.Context) error) {
			if fn == nil {
				return
			}
			if err := fn(ctx); err != nil {
				checks = append(checks, check{Name: name, OK: false, Details: err.Error()})
				return
			}
			checks = append(checks, check{Name: name, OK: true})
		}
		probe("db", s.DBCheck)
		probe("redis", s.RedisCheck)
		probe("tika", s.TikaCheck)

		st := http.StatusOK
		for _, c := range checks {
			if !c.OK {
				st = http.StatusServiceUnavailable
				break
			}
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}

// JSON shapes

type criterionDTO struct {
	Name   string  `json:"name" validate:"required,max=200"`
	Weight float64 `json:"weight" validate:"gte=0,lte=100"`
}

type jobRequest struct {
	Title       string         `json:"title" validate:"required,max=200"`
	Department  string         `json:"department" validate:"max=200"`
	Description string         `json:"description" validate:"required,max=20000"`
	Criteria    []criterionDTO `json:"criteria" validate:"required,min=1,dive"`
	Status      string         `json:"status" validate:"omitempty,oneof=active paused closed"`
}

type jobResponse struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Department     string         `json:"department"`
	Description    string         `json:"description"`
	Criteria       []criterionDTO `json:"criteria"`
	Status         string         `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	LastRun        *time.Time     `json:"last_run"`
	CandidateCount int            `json:"candidate_count"`
}

func toJobResponse(j domain.Job) jobResponse {
	crit := make([]criterionDTO, 0, len(j.Criteria))
	for _, c := range j.Criteria {
		crit = append(crit, criterionDTO{Name: c.Name, Weight: c.Weight})
	}
	return jobResponse{
		ID:             j.ID,
		Title:          j.Title,
		Department:     j.Department,
		Description:    j.Description,
		Criteria:       crit,
		Status:         string(j.Status),
		CreatedAt:      j.CreatedAt,
		LastRun:        j.LastRun,
		CandidateCount: j.CandidateCount,
	}
}

type scoreBreakdownDTO struct {
	ResumeScore      float64  `json:"resume_score"`
	CCATScore        *float64 `json:"ccat_score"`
	PersonalityScore *float64 `json:"personality_score"`
	OverallScore     float64  `json:"overall_score"`
}

type criterionScoreDTO struct {
	CriterionName string  `json:"criterion_name"`
	Score         float64 `json:"score"`
	Weight        float64 `json:"weight"`
}

type candidateResponse struct {
	ID              string              `json:"id"`
	JobID           string              `json:"job_id"`
	Name            string              `json:"name"`
	Email           string              `json:"email"`
	Phone           string              `json:"phone"`
	Location        string              `json:"location"`
	ResumeFilename  string              `json:"resume_filename"`
	AnalysisState   string              `json:"analysis_state"`
	ReviewState     string              `json:"review_state"`
	ScoreBreakdown  *scoreBreakdownDTO  `json:"score_breakdown"`
	CriterionScores []criterionScoreDTO `json:"criterion_scores"`
	AIJustification string              `json:"ai_justification"`
	CreatedAt       time.Time           `json:"created_at"`
	AnalyzedAt      *time.Time          `json:"analyzed_at"`
	AnalysisError   string              `json:"analysis_error,omitempty"`
	AnalysisFailed  bool                `json:"analysis_failed"`
}

func toCandidateResponse(c domain.Candidate) candidateResponse {
	resp := candidateResponse{
		ID:              c.ID,
		JobID:           c.JobID,
		Name:            c.Name,
		Email:           c.Contact.Email,
		Phone:           c.Contact.Phone,
		Location:        c.Location,
		ResumeFilename:  c.ResumeFilename,
		AnalysisState:   string(c.AnalysisState),
		ReviewState:     string(c.ReviewState),
		AIJustification: c.AIJustification,
		CreatedAt:       c.CreatedAt,
		AnalyzedAt:      c.AnalyzedAt,
		AnalysisError:   c.AnalysisError,
		AnalysisFailed:  c.AnalysisFailed,
	}
	if c.ScoreBreakdown != nil {
		resp.ScoreBreakdown = &scoreBreakdownDTO{
			ResumeScore:      c.ScoreBreakdown.ResumeScore,
			CCATScore:        c.ScoreBreakdown.CCATScore,
			PersonalityScore: c.ScoreBreakdown.PersonalityScore,
			OverallScore:     c.ScoreBreakdown.OverallScore,
		}
	}
	for _, cs := range c.CriterionScores {
		resp.CriterionScores = append(resp.CriterionScores, criterionScoreDTO{
			CriterionName: cs.CriterionName,
			Score:         cs.Score,
			Weight:        cs.Weight,
		})
	}
	return resp
}

func toBreakdownDTO(b domain.ScoreBreakdown) scoreBreakdownDTO {
	return scoreBreakdownDTO{
		ResumeScore:      b.ResumeScore,
		CCATScore:        b.CCATScore,
		PersonalityScore: b.PersonalityScore,
		OverallScore:     b.OverallScore,
	}
}

// backgroundContext detaches the request context for work that outlives
// the response, while keeping the request id and logger for correlation.
func backgroundContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

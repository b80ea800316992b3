// Package usecase contains application business logic services.
package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fairyhunter13/candidate-screener/internal/domain"
	"github.com/fairyhunter13/candidate-screener/internal/observability"
)

// AssessmentService handles CCAT and personality result uploads and the
// merge of those results into a candidate's score breakdown.
type AssessmentService struct {
	Assessments domain.AssessmentRepository
	Candidates  domain.CandidateRepository
	Activity    domain.ActivityRepository
	Extractor   domain.TextExtractor
}

// NewAssessmentService constructs an AssessmentService with its
// dependencies. The extractor serves PDF assessment uploads and may be
// nil when only CSV and JSON uploads are exposed.
func NewAssessmentService(a domain.AssessmentRepository, c domain.CandidateRepository, act domain.ActivityRepository, ex domain.TextExtractor) AssessmentService {
	return AssessmentService{Assessments: a, Candidates: c, Activity: act, Extractor: ex}
}

// CCATScore maps a 0-100 percentile to the 0-10 scale.
func CCATScore(percentile float64) float64 {
	return percentile / 10.0
}

// PersonalityScore averages the Big Five traits with neuroticism
// inverted, since lower neuroticism is the favorable direction.
func PersonalityScore(t domain.PersonalityTraits) float64 {
	return (t.Openness + t.Conscientiousness + t.Extraversion + t.Agreeableness + (10 - t.Neuroticism)) / 5.0
}

// MergeScores combines a resume score with optional assessment results.
// OverallScore equals the resume score unconditionally; CCAT and
// personality never fold in. That is a product invariant, not a default.
func MergeScores(resumeScore float64, ccat *domain.CCATResult, personality *domain.PersonalityResult) domain.ScoreBreakdown {
	sb := domain.ScoreBreakdown{
		ResumeScore:  resumeScore,
		OverallScore: resumeScore,
	}
	if ccat != nil {
		v := CCATScore(ccat.Percentile)
		sb.CCATScore = &v
	}
	if personality != nil {
		v := PersonalityScore(personality.Traits)
		sb.PersonalityScore = &v
	}
	return sb
}

// UploadCCAT replaces the candidate's CCAT result and refreshes the
// stored score breakdown when the candidate already has one. Returns the
// merged breakdown.
func (s AssessmentService) UploadCCAT(ctx domain.Context, candidateID string, percentile float64) (domain.ScoreBreakdown, error) {
	if percentile < 0 || percentile > 100 {
		return domain.ScoreBreakdown{}, fmt.Errorf("%w: percentile must be within [0,100]", domain.ErrInvalidArgument)
	}
	cand, err := s.Candidates.Get(ctx, candidateID)
	if err != nil {
		return domain.ScoreBreakdown{}, err
	}
	res := domain.CCATResult{CandidateID: candidateID, Percentile: percentile, CreatedAt: time.Now().UTC()}
	if err := s.Assessments.ReplaceCCAT(ctx, res); err != nil {
		return domain.ScoreBreakdown{}, err
	}
	sb, err := s.refreshBreakdown(ctx, cand)
	if err != nil {
		return domain.ScoreBreakdown{}, err
	}
	s.recordActivity(ctx, domain.ActivityEvent{
		Type:        "ccat_uploaded",
		JobID:       cand.JobID,
		CandidateID: candidateID,
		Detail:      fmt.Sprintf("CCAT percentile %.1f recorded for %s", percentile, cand.Name),
	})
	return sb, nil
}

// UploadPersonality replaces the candidate's personality result and
// refreshes the stored score breakdown when one exists.
func (s AssessmentService) UploadPersonality(ctx domain.Context, candidateID string, traits domain.PersonalityTraits) (domain.ScoreBreakdown, error) {
	for _, v := range []float64{traits.Openness, traits.Conscientiousness, traits.Extraversion, traits.Agreeableness, traits.Neuroticism} {
		if v < 0 || v > 10 {
			return domain.ScoreBreakdown{}, fmt.Errorf("%w: trait scores must be within [0,10]", domain.ErrInvalidArgument)
		}
	}
	cand, err := s.Candidates.Get(ctx, candidateID)
	if err != nil {
		return domain.ScoreBreakdown{}, err
	}
	res := domain.PersonalityResult{CandidateID: candidateID, Traits: traits, CreatedAt: time.Now().UTC()}
	if err := s.Assessments.ReplacePersonality(ctx, res); err != nil {
		return domain.ScoreBreakdown{}, err
	}
	sb, err := s.refreshBreakdown(ctx, cand)
	if err != nil {
		return domain.ScoreBreakdown{}, err
	}
	s.recordActivity(ctx, domain.ActivityEvent{
		Type:        "personality_uploaded",
		JobID:       cand.JobID,
		CandidateID: candidateID,
		Detail:      fmt.Sprintf("Personality profile recorded for %s", cand.Name),
	})
	return sb, nil
}

// refreshBreakdown re-merges assessments into the candidate's stored
// breakdown. Candidates without a resume score just get the merged view
// back without persistence, since overall is defined only with a resume
// score.
func (s AssessmentService) refreshBreakdown(ctx domain.Context, cand domain.Candidate) (domain.ScoreBreakdown, error) {
	ccat, personality := s.loadAssessments(ctx, cand.ID)
	var resumeScore float64
	if cand.ScoreBreakdown != nil {
		resumeScore = cand.ScoreBreakdown.ResumeScore
	}
	sb := MergeScores(resumeScore, ccat, personality)
	if cand.ScoreBreakdown == nil {
		return sb, nil
	}
	cand.ScoreBreakdown = &sb
	if err := s.Candidates.SaveAnalysis(ctx, cand); err != nil {
		return domain.ScoreBreakdown{}, err
	}
	return sb, nil
}

// loadAssessments fetches whatever assessment results exist; absence is
// not an error.
func (s AssessmentService) loadAssessments(ctx domain.Context, candidateID string) (*domain.CCATResult, *domain.PersonalityResult) {
	var ccat *domain.CCATResult
	if c, err := s.Assessments.GetCCAT(ctx, candidateID); err == nil {
		ccat = &c
	} else if !errors.Is(err, domain.ErrNotFound) {
		observability.LoggerFromContext(ctx).Warn("ccat lookup failed",
			slog.String("candidate_id", candidateID), slog.Any("error", err))
	}
	var personality *domain.PersonalityResult
	if p, err := s.Assessments.GetPersonality(ctx, candidateID); err == nil {
		personality = &p
	} else if !errors.Is(err, domain.ErrNotFound) {
		observability.LoggerFromContext(ctx).Warn("personality lookup failed",
			slog.String("candidate_id", candidateID), slog.Any("error", err))
	}
	return ccat, personality
}

// recordActivity appends an audit event. Fire-and-forget: failures are
// logged and never surfaced to the caller.
func (s AssessmentService) recordActivity(ctx domain.Context, e domain.ActivityEvent) {
	if s.Activity == nil {
		return
	}
	if err := s.Activity.Record(ctx, e); err != nil {
		observability.LoggerFromContext(ctx).Warn("activity record failed",
			slog.String("type", e.Type), slog.Any("error", err))
	}
}

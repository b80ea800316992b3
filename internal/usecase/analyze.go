package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fairyhunter13/candidate-screener/internal/adapter/observability"
	"github.com/fairyhunter13/candidate-screener/internal/domain"
	obsctx "github.com/fairyhunter13/candidate-screener/internal/observability"
)

// ResumeScorer is the slice of the AI adapter the orchestrator needs.
type ResumeScorer interface {
	Score(ctx domain.Context, resumeText, jobDescription string, criteria []domain.Criterion) (domain.ResumeScore, error)
}

// AnalyzeService drives the scoring pipeline for one candidate at a
// time: lock, guard, score with bounded retries, reconcile, persist.
type AnalyzeService struct {
	Candidates  domain.CandidateRepository
	Jobs        domain.JobRepository
	Assessments domain.AssessmentRepository
	Activity    domain.ActivityRepository
	Scorer      ResumeScorer
	Locker      domain.AnalysisLocker

	MaxRetries int
	BaseDelay  time.Duration
	LockTTL    time.Duration

	// sleep is swappable so retry tests do not wait out real delays.
	sleep func(time.Duration)
}

// NewAnalyzeService constructs an AnalyzeService.
func NewAnalyzeService(
	cands domain.CandidateRepository,
	jobs domain.JobRepository,
	assessments domain.AssessmentRepository,
	activity domain.ActivityRepository,
	scorer ResumeScorer,
	locker domain.AnalysisLocker,
	maxRetries int,
	baseDelay time.Duration,
	lockTTL time.Duration,
) *AnalyzeService {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if lockTTL <= 0 {
		lockTTL = 10 * time.Minute
	}
	return &AnalyzeService{
		Candidates:  cands,
		Jobs:        jobs,
		Assessments: assessments,
		Activity:    activity,
		Scorer:      scorer,
		Locker:      locker,
		MaxRetries:  maxRetries,
		BaseDelay:   baseDelay,
		LockTTL:     lockTTL,
		sleep:       time.Sleep,
	}
}

// AnalyzeJob scores every candidate of a job that is still pending, or
// all of them when force is set. Candidates are processed sequentially;
// a failure on one never stops the rest.
func (s *AnalyzeService) AnalyzeJob(ctx domain.Context, jobID string, force bool) error {
	if _, err := s.Jobs.Get(ctx, jobID); err != nil {
		return err
	}
	candidates, err := s.Candidates.ListByJob(ctx, jobID, 0, 0)
	if err != nil {
		return err
	}
	lg := obsctx.LoggerFromContext(ctx)
	for _, c := range candidates {
		if err := s.Analyze(ctx, jobID, c.ID, force); err != nil {
			lg.Warn("candidate analysis failed",
				slog.String("candidate_id", c.ID), slog.Any("error", err))
		}
	}
	return nil
}

// Analyze runs the full pipeline for one candidate. Without force it only
// acts on candidates in the pending or running states; running is
// included so work orphaned by a crash can be picked up again.
func (s *AnalyzeService) Analyze(ctx domain.Context, jobID, candidateID string, force bool) error {
	lg := obsctx.LoggerFromContext(ctx).With(
		slog.String("job_id", jobID), slog.String("candidate_id", candidateID))

	release, ok, err := s.Locker.TryLock(ctx, candidateID, s.LockTTL)
	if err != nil {
		return fmt.Errorf("op=analyze.lock: %w", err)
	}
	if !ok {
		lg.Info("analysis already in flight, skipping")
		return fmt.Errorf("op=analyze: %w: analysis in progress", domain.ErrConflict)
	}
	defer release()

	cand, err := s.Candidates.Get(ctx, candidateID)
	if err != nil {
		return err
	}
	if cand.JobID != jobID {
		return fmt.Errorf("op=analyze: %w: candidate belongs to another job", domain.ErrInvalidArgument)
	}
	if !force && cand.AnalysisState != domain.AnalysisPending && cand.AnalysisState != domain.AnalysisRunning {
		lg.Info("candidate not eligible for analysis",
			slog.String("analysis_state", string(cand.AnalysisState)))
		return nil
	}

	job, err := s.Jobs.Get(ctx, jobID)
	if err != nil {
		// The job vanished between scheduling and execution. Park the
		// candidate back in pending rather than failing it.
		if errors.Is(err, domain.ErrNotFound) {
			_ = s.Candidates.SetAnalysisState(ctx, candidateID, domain.AnalysisPending)
			lg.Warn("job missing, analysis aborted")
			return nil
		}
		return err
	}

	if err := s.Candidates.SetAnalysisState(ctx, candidateID, domain.AnalysisRunning); err != nil {
		return err
	}
	_ = s.Jobs.TouchLastRun(ctx, jobID, time.Now().UTC())
	observability.StartAnalysis()

	score, runErr := s.runScoring(ctx, lg, job, cand)
	if runErr != nil {
		s.persistFailure(ctx, lg, cand, runErr)
		return runErr
	}

	s.persistSuccess(ctx, lg, job, cand, score)
	return nil
}

// runScoring calls the scorer with a bounded retry loop: the first
// attempt plus MaxRetries more, delays doubling from BaseDelay.
func (s *AnalyzeService) runScoring(ctx domain.Context, lg *slog.Logger, job domain.Job, cand domain.Candidate) (domain.ResumeScore, error) {
	resumeText := cand.ResumeText
	// Placeholder-only text still gets scored, but the model is told the
	// document was unreadable so it does not hallucinate content.
	if domain.IsPlaceholderResumeText(resumeText) && len(resumeText) < 200 {
		resumeText += "\n\nNote: The resume document could not be read (image-based or corrupted). Score conservatively based on the absence of verifiable information."
	}

	var lastErr error
	for attempt := 0; attempt <= s.MaxRetries; attempt++ {
		observability.AnalysisAttemptsTotal.Inc()
		if attempt > 0 {
			delay := s.BaseDelay << (attempt - 1)
			lg.Info("retrying analysis",
				slog.Int("attempt", attempt), slog.Duration("delay", delay))
			s.sleep(delay)
		}
		if err := ctx.Err(); err != nil {
			return domain.ResumeScore{}, fmt.Errorf("op=analyze: %w", err)
		}
		// Empty text fails the attempt without calling the scorer and
		// consumes the same attempt budget as a scorer error.
		if len(resumeText) == 0 {
			lastErr = fmt.Errorf("op=analyze: %w", domain.ErrEmptyResumeText)
			continue
		}

		score, err := s.Scorer.Score(ctx, resumeText, job.Description, job.Criteria)
		if err == nil {
			return score, nil
		}
		lastErr = err
		lg.Warn("scoring attempt failed",
			slog.Int("attempt", attempt), slog.Any("error", err))
		if errors.Is(err, domain.ErrUpstreamAuth) {
			// Credentials do not fix themselves between attempts.
			break
		}
	}
	return domain.ResumeScore{}, lastErr
}

func (s *AnalyzeService) persistSuccess(ctx domain.Context, lg *slog.Logger, job domain.Job, cand domain.Candidate, score domain.ResumeScore) {
	criterionScores := ReconcileCriteria(job.Criteria, score.CriterionScores, score.OverallScore)

	ccat, personality := s.loadAssessments(ctx, cand.ID)
	breakdown := MergeScores(score.OverallScore, ccat, personality)

	now := time.Now().UTC()
	cand.AnalysisState = domain.AnalysisDone
	cand.ScoreBreakdown = &breakdown
	cand.CriterionScores = criterionScores
	cand.AIJustification = score.Justification
	cand.AnalyzedAt = &now
	cand.AnalysisError = ""
	cand.AnalysisFailed = false

	if err := s.Candidates.SaveAnalysis(ctx, cand); err != nil {
		lg.Error("analysis result save failed", slog.Any("error", err))
		observability.FailAnalysis()
		return
	}

	observability.ObserveResumeScore(score.OverallScore)
	observability.CompleteAnalysis()
	lg.Info("analysis complete",
		slog.Float64("overall_score", breakdown.OverallScore),
		slog.Int("criteria", len(criterionScores)))

	s.recordActivity(ctx, domain.ActivityEvent{
		Type:        "candidate_analyzed",
		JobID:       cand.JobID,
		CandidateID: cand.ID,
		Detail:      fmt.Sprintf("Analyzed %s: %.1f/10", cand.Name, breakdown.OverallScore),
	})
}

func (s *AnalyzeService) persistFailure(ctx domain.Context, lg *slog.Logger, cand domain.Candidate, cause error) {
	// Output from an earlier successful run stays in place; only the
	// failure state and error text change.
	cand.AnalysisState = domain.AnalysisFailed
	cand.AnalysisFailed = true
	cand.AnalysisError = cause.Error()

	if err := s.Candidates.SaveAnalysis(ctx, cand); err != nil {
		lg.Error("failure state save failed", slog.Any("error", err))
	}
	observability.FailAnalysis()
	lg.Warn("analysis exhausted retries", slog.Any("error", cause))
}

func (s *AnalyzeService) loadAssessments(ctx domain.Context, candidateID string) (*domain.CCATResult, *domain.PersonalityResult) {
	lg := obsctx.LoggerFromContext(ctx)
	var ccat *domain.CCATResult
	if r, err := s.Assessments.GetCCAT(ctx, candidateID); err == nil {
		ccat = &r
	} else if !errors.Is(err, domain.ErrNotFound) {
		lg.Warn("ccat lookup failed", slog.Any("error", err))
	}
	var pers *domain.PersonalityResult
	if r, err := s.Assessments.GetPersonality(ctx, candidateID); err == nil {
		pers = &r
	} else if !errors.Is(err, domain.ErrNotFound) {
		lg.Warn("personality lookup failed", slog.Any("error", err))
	}
	return ccat, pers
}

func (s *AnalyzeService) recordActivity(ctx domain.Context, e domain.ActivityEvent) {
	if s.Activity == nil {
		return
	}
	if err := s.Activity.Record(ctx, e); err != nil {
		obsctx.LoggerFromContext(ctx).Warn("activity record failed",
			slog.String("type", e.Type), slog.Any("error", err))
	}
}

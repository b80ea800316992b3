package usecase

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/fairyhunter13/candidate-screener/internal/domain"
	"github.com/fairyhunter13/candidate-screener/internal/observability"
)

// weightTolerance is how far criteria weights may drift from 100 at
// creation time. Not re-validated afterwards.
const weightTolerance = 5.0

// JobService manages job postings.
type JobService struct {
	Jobs       domain.JobRepository
	Candidates domain.CandidateRepository
	Files      domain.FileRepository
	Activity   domain.ActivityRepository
}

// NewJobService constructs a JobService with its dependencies.
func NewJobService(j domain.JobRepository, c domain.CandidateRepository, f domain.FileRepository, a domain.ActivityRepository) JobService {
	return JobService{Jobs: j, Candidates: c, Files: f, Activity: a}
}

// Create validates and stores a new job posting.
func (s JobService) Create(ctx domain.Context, j domain.Job) (string, error) {
	if strings.TrimSpace(j.Title) == "" {
		return "", fmt.Errorf("%w: title required", domain.ErrInvalidArgument)
	}
	if err := validateCriteria(j.Criteria); err != nil {
		return "", err
	}
	if j.Status == "" {
		j.Status = domain.JobActive
	}
	j.CreatedAt = time.Now().UTC()
	id, err := s.Jobs.Create(ctx, j)
	if err != nil {
		return "", err
	}
	s.recordActivity(ctx, domain.ActivityEvent{
		Type:   "job_created",
		JobID:  id,
		Detail: fmt.Sprintf("Created job: %s", j.Title),
	})
	return id, nil
}

func validateCriteria(criteria []domain.Criterion) error {
	if len(criteria) == 0 {
		return fmt.Errorf("%w: at least one evaluation criterion required", domain.ErrInvalidArgument)
	}
	seen := make(map[string]struct{}, len(criteria))
	var sum float64
	for _, c := range criteria {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return fmt.Errorf("%w: criterion name required", domain.ErrInvalidArgument)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: duplicate criterion %q", domain.ErrInvalidArgument, name)
		}
		seen[name] = struct{}{}
		if c.Weight < 0 || c.Weight > 100 {
			return fmt.Errorf("%w: weight for %q must be within [0,100]", domain.ErrInvalidArgument, name)
		}
		sum += c.Weight
	}
	if math.Abs(sum-100) > weightTolerance {
		return fmt.Errorf("%w: criteria weights sum to %.1f, expected 100 (±%.0f)", domain.ErrInvalidArgument, sum, weightTolerance)
	}
	return nil
}

// Get loads a job with its live candidate count.
func (s JobService) Get(ctx domain.Context, id string) (domain.Job, error) {
	j, err := s.Jobs.Get(ctx, id)
	if err != nil {
		return domain.Job{}, err
	}
	if n, err := s.Candidates.CountByJob(ctx, id); err == nil {
		j.CandidateCount = n
	}
	return j, nil
}

// List returns jobs filtered by status.
func (s JobService) List(ctx domain.Context, status domain.JobStatus, limit, offset int) ([]domain.Job, error) {
	return s.Jobs.List(ctx, status, limit, offset)
}

// Update replaces a job's mutable fields. Criteria are re-validated on
// update since weights may have changed.
func (s JobService) Update(ctx domain.Context, j domain.Job) error {
	if j.ID == "" {
		return fmt.Errorf("%w: id required", domain.ErrInvalidArgument)
	}
	if err := validateCriteria(j.Criteria); err != nil {
		return err
	}
	return s.Jobs.Update(ctx, j)
}

// Delete removes a job and cascades to its candidates and their stored
// resume blobs.
func (s JobService) Delete(ctx domain.Context, id string) error {
	j, err := s.Jobs.Get(ctx, id)
	if err != nil {
		return err
	}
	candidates, err := s.Candidates.ListByJob(ctx, id, 0, 0)
	if err != nil {
		return err
	}
	for _, c := range candidates {
		if c.ResumeFileID != "" {
			if err := s.Files.Delete(ctx, c.ResumeFileID); err != nil {
				observability.LoggerFromContext(ctx).Warn("resume blob delete failed",
					slog.String("candidate_id", c.ID), slog.Any("error", err))
			}
		}
	}
	deleted, err := s.Candidates.DeleteByJob(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Jobs.Delete(ctx, id); err != nil {
		return err
	}
	s.recordActivity(ctx, domain.ActivityEvent{
		Type:   "job_deleted",
		JobID:  id,
		Detail: fmt.Sprintf("Deleted job %s and %d candidates", j.Title, deleted),
	})
	return nil
}

func (s JobService) recordActivity(ctx domain.Context, e domain.ActivityEvent) {
	if s.Activity == nil {
		return
	}
	if err := s.Activity.Record(ctx, e); err != nil {
		observability.LoggerFromContext(ctx).Warn("activity record failed",
			slog.String("type", e.Type), slog.Any("error", err))
	}
}

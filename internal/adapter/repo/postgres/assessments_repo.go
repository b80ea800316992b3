package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/candidate-screener/internal/domain"
)

// AssessmentRepo stores CCAT and personality results. Uploads are
// destructive: each Replace deletes any prior row for the candidate
// inside the same transaction before inserting the new one, so at most
// one current result exists per candidate per kind.
type AssessmentRepo struct{ Pool PgxPool }

// NewAssessmentRepo constructs an AssessmentRepo with the given pool.
func NewAssessmentRepo(p PgxPool) *AssessmentRepo { return &AssessmentRepo{Pool: p} }

// ReplaceCCAT swaps in a new CCAT result for the candidate.
func (r *AssessmentRepo) ReplaceCCAT(ctx domain.Context, res domain.CCATResult) error {
	tracer := otel.Tracer("repo.assessments")
	ctx, span := tracer.Start(ctx, "assessments.ReplaceCCAT")
	defer span.End()
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("op=assessment.replace_ccat: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if _, err := tx.Exec(ctx, `DELETE FROM ccat_results WHERE candidate_id=$1`, res.CandidateID); err != nil {
		return fmt.Errorf("op=assessment.replace_ccat: %w", err)
	}
	created := res.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	if _, err := tx.Exec(ctx, `INSERT INTO ccat_results (candidate_id, percentile, created_at) VALUES ($1,$2,$3)`,
		res.CandidateID, res.Percentile, created); err != nil {
		return fmt.Errorf("op=assessment.replace_ccat: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("op=assessment.replace_ccat: %w", err)
	}
	return nil
}

// GetCCAT returns the candidate's current CCAT result, if any.
func (r *AssessmentRepo) GetCCAT(ctx domain.Context, candidateID string) (domain.CCATResult, error) {
	tracer := otel.Tracer("repo.assessments")
	ctx, span := tracer.Start(ctx, "assessments.GetCCAT")
	defer span.End()
	q := `SELECT candidate_id, percentile, created_at FROM ccat_results WHERE candidate_id=$1`
	var res domain.CCATResult
	if err := r.Pool.QueryRow(ctx, q, candidateID).Scan(&res.CandidateID, &res.Percentile, &res.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CCATResult{}, fmt.Errorf("op=assessment.get_ccat: %w", domain.ErrNotFound)
		}
		return domain.CCATResult{}, fmt.Errorf("op=assessment.get_ccat: %w", err)
	}
	return res, nil
}

// ReplacePersonality swaps in a new personality result for the candidate.
func (r *AssessmentRepo) ReplacePersonality(ctx domain.Context, res domain.PersonalityResult) error {
	tracer := otel.Tracer("repo.assessments")
	ctx, span := tracer.Start(ctx, "assessments.ReplacePersonality")
	defer span.End()
	traits, err := json.Marshal(res.Traits)
	if err != nil {
		return fmt.Errorf("op=assessment.replace_personality: %w", err)
	}
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("op=assessment.replace_personality: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if _, err := tx.Exec(ctx, `DELETE FROM personality_results WHERE candidate_id=$1`, res.CandidateID); err != nil {
		return fmt.Errorf("op=assessment.replace_personality: %w", err)
	}
	created := res.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	if _, err := tx.Exec(ctx, `INSERT INTO personality_results (candidate_id, traits, created_at) VALUES ($1,$2,$3)`,
		res.CandidateID, traits, created); err != nil {
		return fmt.Errorf("op=assessment.replace_personality: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("op=assessment.replace_personality: %w", err)
	}
	return nil
}

// GetPersonality returns the candidate's current personality result, if any.
func (r *AssessmentRepo) GetPersonality(ctx domain.Context, candidateID string) (domain.PersonalityResult, error) {
	tracer := otel.Tracer("repo.assessments")
	ctx, span := tracer.Start(ctx, "assessments.GetPersonality")
	defer span.End()
	q := `SELECT candidate_id, traits, created_at FROM personality_results WHERE candidate_id=$1`
	var res domain.PersonalityResult
	var traits []byte
	if err := r.Pool.QueryRow(ctx, q, candidateID).Scan(&res.CandidateID, &traits, &res.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PersonalityResult{}, fmt.Errorf("op=assessment.get_personality: %w", domain.ErrNotFound)
		}
		return domain.PersonalityResult{}, fmt.Errorf("op=assessment.get_personality: %w", err)
	}
	if err := json.Unmarshal(traits, &res.Traits); err != nil {
		return domain.PersonalityResult{}, fmt.Errorf("op=assessment.get_personality: %w", err)
	}
	return res, nil
}

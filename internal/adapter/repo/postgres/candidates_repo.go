package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/candidate-screener/internal/domain"
)

// CandidateRepo persists and loads candidates from PostgreSQL.
// Score breakdown and criterion scores are stored as JSONB columns since
// they are regenerated wholesale on each analysis and never queried by field.
type CandidateRepo struct{ Pool PgxPool }

// NewCandidateRepo constructs a CandidateRepo with the given pool.
func NewCandidateRepo(p PgxPool) *CandidateRepo { return &CandidateRepo{Pool: p} }

const candidateColumns = `id, job_id, name, email, phone, location, resume_text, resume_file_id, resume_filename,
	analysis_state, review_state, score_breakdown, criterion_scores, ai_justification,
	created_at, analyzed_at, COALESCE(analysis_error,''), analysis_failed`

// Create stores a new candidate and returns its id (generates one if empty).
func (r *CandidateRepo) Create(ctx domain.Context, c domain.Candidate) (string, error) {
	tracer := otel.Tracer("repo.candidates")
	ctx, span := tracer.Start(ctx, "candidates.Create")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "candidates"),
	)
	id, args, err := candidateInsertArgs(c)
	if err != nil {
		return "", fmt.Errorf("op=candidate.create: %w", err)
	}
	if _, err := r.Pool.Exec(ctx, candidateInsertSQL, args...); err != nil {
		return "", fmt.Errorf("op=candidate.create: %w", err)
	}
	return id, nil
}

// CreateMany inserts candidates in a single transaction and returns their ids.
// All-or-nothing: callers fall back to one-by-one Create on failure.
func (r *CandidateRepo) CreateMany(ctx domain.Context, cs []domain.Candidate) ([]string, error) {
	tracer := otel.Tracer("repo.candidates")
	ctx, span := tracer.Start(ctx, "candidates.CreateMany")
	defer span.End()
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("op=candidate.create_many: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	ids := make([]string, 0, len(cs))
	for _, c := range cs {
		id, args, err := candidateInsertArgs(c)
		if err != nil {
			return nil, fmt.Errorf("op=candidate.create_many: %w", err)
		}
		if _, err := tx.Exec(ctx, candidateInsertSQL, args...); err != nil {
			return nil, fmt.Errorf("op=candidate.create_many: %w", err)
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("op=candidate.create_many: %w", err)
	}
	return ids, nil
}

// Get loads a candidate by id.
func (r *CandidateRepo) Get(ctx domain.Context, id string) (domain.Candidate, error) {
	tracer := otel.Tracer("repo.candidates")
	ctx, span := tracer.Start(ctx, "candidates.Get")
	defer span.End()
	q := `SELECT ` + candidateColumns + ` FROM candidates WHERE id=$1`
	c, err := scanCandidate(r.Pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Candidate{}, fmt.Errorf("op=candidate.get: %w", domain.ErrNotFound)
		}
		return domain.Candidate{}, fmt.Errorf("op=candidate.get: %w", err)
	}
	return c, nil
}

// ListByJob returns a job's candidates newest first.
func (r *CandidateRepo) ListByJob(ctx domain.Context, jobID string, limit, offset int) ([]domain.Candidate, error) {
	tracer := otel.Tracer("repo.candidates")
	ctx, span := tracer.Start(ctx, "candidates.ListByJob")
	defer span.End()
	// A non-positive limit returns every row. Job-wide operations
	// (analysis fan-out, cascade delete, export) depend on the full set;
	// page sizes are the HTTP layer's concern.
	q := `SELECT ` + candidateColumns + ` FROM candidates WHERE job_id=$1 ORDER BY created_at DESC`
	args := []any{jobID}
	if limit > 0 {
		q += ` LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}
	rows, err := r.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("op=candidate.list_by_job: %w", err)
	}
	defer rows.Close()
	var out []domain.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("op=candidate.list_by_job: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=candidate.list_by_job: %w", err)
	}
	return out, nil
}

// Update overwrites a candidate's profile fields (name, contact, location,
// review notes). Analysis output goes through SaveAnalysis instead.
func (r *CandidateRepo) Update(ctx domain.Context, c domain.Candidate) error {
	tracer := otel.Tracer("repo.candidates")
	ctx, span := tracer.Start(ctx, "candidates.Update")
	defer span.End()
	q := `UPDATE candidates SET name=$2, email=$3, phone=$4, location=$5 WHERE id=$1`
	tag, err := r.Pool.Exec(ctx, q, c.ID, c.Name, c.Contact.Email, c.Contact.Phone, c.Location)
	if err != nil {
		return fmt.Errorf("op=candidate.update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=candidate.update: %w", domain.ErrNotFound)
	}
	return nil
}

// SetAnalysisState moves a candidate along the analysis axis.
func (r *CandidateRepo) SetAnalysisState(ctx domain.Context, id string, state domain.AnalysisState) error {
	tracer := otel.Tracer("repo.candidates")
	ctx, span := tracer.Start(ctx, "candidates.SetAnalysisState")
	defer span.End()
	tag, err := r.Pool.Exec(ctx, `UPDATE candidates SET analysis_state=$2 WHERE id=$1`, id, state)
	if err != nil {
		return fmt.Errorf("op=candidate.set_analysis_state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=candidate.set_analysis_state: %w", domain.ErrNotFound)
	}
	return nil
}

// SaveAnalysis persists the outcome of an analysis run: state, scores,
// justification, error fields and the analyzed timestamp.
func (r *CandidateRepo) SaveAnalysis(ctx domain.Context, c domain.Candidate) error {
	tracer := otel.Tracer("repo.candidates")
	ctx, span := tracer.Start(ctx, "candidates.SaveAnalysis")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "candidates"),
	)
	breakdown, scores, err := marshalAnalysis(c)
	if err != nil {
		return fmt.Errorf("op=candidate.save_analysis: %w", err)
	}
	q := `UPDATE candidates SET analysis_state=$2, score_breakdown=$3, criterion_scores=$4, ai_justification=$5,
		analyzed_at=$6, analysis_error=$7, analysis_failed=$8 WHERE id=$1`
	tag, err := r.Pool.Exec(ctx, q, c.ID, c.AnalysisState, breakdown, scores, c.AIJustification,
		c.AnalyzedAt, c.AnalysisError, c.AnalysisFailed)
	if err != nil {
		return fmt.Errorf("op=candidate.save_analysis: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=candidate.save_analysis: %w", domain.ErrNotFound)
	}
	return nil
}

// SetReviewState moves a candidate along the human-review axis.
func (r *CandidateRepo) SetReviewState(ctx domain.Context, id string, state domain.ReviewState) error {
	tracer := otel.Tracer("repo.candidates")
	ctx, span := tracer.Start(ctx, "candidates.SetReviewState")
	defer span.End()
	tag, err := r.Pool.Exec(ctx, `UPDATE candidates SET review_state=$2 WHERE id=$1`, id, state)
	if err != nil {
		return fmt.Errorf("op=candidate.set_review_state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=candidate.set_review_state: %w", domain.ErrNotFound)
	}
	return nil
}

// Delete removes a candidate.
func (r *CandidateRepo) Delete(ctx domain.Context, id string) error {
	tracer := otel.Tracer("repo.candidates")
	ctx, span := tracer.Start(ctx, "candidates.Delete")
	defer span.End()
	tag, err := r.Pool.Exec(ctx, `DELETE FROM candidates WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("op=candidate.delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=candidate.delete: %w", domain.ErrNotFound)
	}
	return nil
}

// DeleteByJob removes all candidates of a job, returning how many went.
func (r *CandidateRepo) DeleteByJob(ctx domain.Context, jobID string) (int64, error) {
	tracer := otel.Tracer("repo.candidates")
	ctx, span := tracer.Start(ctx, "candidates.DeleteByJob")
	defer span.End()
	tag, err := r.Pool.Exec(ctx, `DELETE FROM candidates WHERE job_id=$1`, jobID)
	if err != nil {
		return 0, fmt.Errorf("op=candidate.delete_by_job: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountByJob returns the number of candidates attached to a job.
func (r *CandidateRepo) CountByJob(ctx domain.Context, jobID string) (int, error) {
	tracer := otel.Tracer("repo.candidates")
	ctx, span := tracer.Start(ctx, "candidates.CountByJob")
	defer span.End()
	var count int
	if err := r.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM candidates WHERE job_id=$1`, jobID).Scan(&count); err != nil {
		return 0, fmt.Errorf("op=candidate.count_by_job: %w", err)
	}
	return count, nil
}

const candidateInsertSQL = `INSERT INTO candidates (id, job_id, name, email, phone, location, resume_text, resume_file_id, resume_filename,
	analysis_state, review_state, score_breakdown, criterion_scores, ai_justification, created_at, analyzed_at, analysis_error, analysis_failed)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`

func candidateInsertArgs(c domain.Candidate) (string, []any, error) {
	id := c.ID
	if id == "" {
		id = uuid.New().String()
	}
	state := c.AnalysisState
	if state == "" {
		state = domain.AnalysisPending
	}
	review := c.ReviewState
	if review == "" {
		review = domain.ReviewUnseen
	}
	created := c.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	breakdown, scores, err := marshalAnalysis(c)
	if err != nil {
		return "", nil, err
	}
	args := []any{id, c.JobID, c.Name, c.Contact.Email, c.Contact.Phone, c.Location, c.ResumeText, c.ResumeFileID, c.ResumeFilename,
		state, review, breakdown, scores, c.AIJustification, created, c.AnalyzedAt, c.AnalysisError, c.AnalysisFailed}
	return id, args, nil
}

func marshalAnalysis(c domain.Candidate) (breakdown, scores []byte, err error) {
	if c.ScoreBreakdown != nil {
		breakdown, err = json.Marshal(c.ScoreBreakdown)
		if err != nil {
			return nil, nil, err
		}
	}
	if c.CriterionScores != nil {
		scores, err = json.Marshal(c.CriterionScores)
		if err != nil {
			return nil, nil, err
		}
	}
	return breakdown, scores, nil
}

func scanCandidate(row pgx.Row) (domain.Candidate, error) {
	var c domain.Candidate
	var breakdown, scores []byte
	var analyzedAt *time.Time
	if err := row.Scan(&c.ID, &c.JobID, &c.Name, &c.Contact.Email, &c.Contact.Phone, &c.Location,
		&c.ResumeText, &c.ResumeFileID, &c.ResumeFilename, &c.AnalysisState, &c.ReviewState,
		&breakdown, &scores, &c.AIJustification, &c.CreatedAt, &analyzedAt, &c.AnalysisError, &c.AnalysisFailed); err != nil {
		return domain.Candidate{}, err
	}
	if len(breakdown) > 0 {
		var sb domain.ScoreBreakdown
		if err := json.Unmarshal(breakdown, &sb); err != nil {
			return domain.Candidate{}, err
		}
		c.ScoreBreakdown = &sb
	}
	if len(scores) > 0 {
		if err := json.Unmarshal(scores, &c.CriterionScores); err != nil {
			return domain.Candidate{}, err
		}
	}
	c.AnalyzedAt = analyzedAt
	return c, nil
}

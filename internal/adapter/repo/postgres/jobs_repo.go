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

// JobRepo persists and loads job postings from PostgreSQL.
// Criteria are stored as a JSONB array so declared order survives round trips.
type JobRepo struct{ Pool PgxPool }

// NewJobRepo constructs a JobRepo with the given pool.
func NewJobRepo(p PgxPool) *JobRepo { return &JobRepo{Pool: p} }

// Create inserts a new job and returns its id (generates one if empty).
func (r *JobRepo) Create(ctx domain.Context, j domain.Job) (string, error) {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.Create")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "jobs"),
	)
	id := j.ID
	if id == "" {
		id = uuid.New().String()
	}
	criteria, err := json.Marshal(j.Criteria)
	if err != nil {
		return "", fmt.Errorf("op=job.create: %w", err)
	}
	q := `INSERT INTO jobs (id, title, department, description, criteria, status, created_at) VALUES ($1,$2,$3,$4,$5,$6,$7)`
	if _, err := r.Pool.Exec(ctx, q, id, j.Title, j.Department, j.Description, criteria, j.Status, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("op=job.create: %w", err)
	}
	return id, nil
}

// Get loads a job by id.
func (r *JobRepo) Get(ctx domain.Context, id string) (domain.Job, error) {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.Get")
	defer span.End()
	q := `SELECT id, title, department, description, criteria, status, created_at, last_run, candidate_count FROM jobs WHERE id=$1`
	row := r.Pool.QueryRow(ctx, q, id)
	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Job{}, fmt.Errorf("op=job.get: %w", domain.ErrNotFound)
		}
		return domain.Job{}, fmt.Errorf("op=job.get: %w", err)
	}
	return j, nil
}

// List returns jobs newest first, optionally filtered by status.
func (r *JobRepo) List(ctx domain.Context, status domain.JobStatus, limit, offset int) ([]domain.Job, error) {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.List")
	defer span.End()
	// A non-positive limit returns every row; page sizes are the HTTP
	// layer's concern.
	q := `SELECT id, title, department, description, criteria, status, created_at, last_run, candidate_count FROM jobs`
	args := []any{}
	if status != "" {
		q += ` WHERE status=$1`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC`
	if limit > 0 {
		q += fmt.Sprintf(` LIMIT %d OFFSET %d`, limit, offset)
	}
	rows, err := r.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("op=job.list: %w", err)
	}
	defer rows.Close()
	var out []domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("op=job.list: %w", err)
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=job.list: %w", err)
	}
	return out, nil
}

// Update overwrites a job's mutable fields.
func (r *JobRepo) Update(ctx domain.Context, j domain.Job) error {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.Update")
	defer span.End()
	criteria, err := json.Marshal(j.Criteria)
	if err != nil {
		return fmt.Errorf("op=job.update: %w", err)
	}
	q := `UPDATE jobs SET title=$2, department=$3, description=$4, criteria=$5, status=$6 WHERE id=$1`
	tag, err := r.Pool.Exec(ctx, q, j.ID, j.Title, j.Department, j.Description, criteria, j.Status)
	if err != nil {
		return fmt.Errorf("op=job.update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=job.update: %w", domain.ErrNotFound)
	}
	return nil
}

// TouchLastRun records when analysis was last triggered for a job.
func (r *JobRepo) TouchLastRun(ctx domain.Context, id string, at time.Time) error {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.TouchLastRun")
	defer span.End()
	q := `UPDATE jobs SET last_run=$2 WHERE id=$1`
	if _, err := r.Pool.Exec(ctx, q, id, at.UTC()); err != nil {
		return fmt.Errorf("op=job.touch_last_run: %w", err)
	}
	return nil
}

// Delete removes a job. Candidate cascade is handled by the usecase layer
// so blob references get cleaned up too.
func (r *JobRepo) Delete(ctx domain.Context, id string) error {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.Delete")
	defer span.End()
	tag, err := r.Pool.Exec(ctx, `DELETE FROM jobs WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("op=job.delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=job.delete: %w", domain.ErrNotFound)
	}
	return nil
}

func scanJob(row pgx.Row) (domain.Job, error) {
	var j domain.Job
	var criteria []byte
	var lastRun *time.Time
	if err := row.Scan(&j.ID, &j.Title, &j.Department, &j.Description, &criteria, &j.Status, &j.CreatedAt, &lastRun, &j.CandidateCount); err != nil {
		return domain.Job{}, err
	}
	if len(criteria) > 0 {
		if err := json.Unmarshal(criteria, &j.Criteria); err != nil {
			return domain.Job{}, err
		}
	}
	j.LastRun = lastRun
	return j, nil
}

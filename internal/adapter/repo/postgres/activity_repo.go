package postgres

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/candidate-screener/internal/domain"
)

// ActivityRepo appends audit-log events. Writes are best effort from the
// caller's point of view; the pipeline never fails on a logging error.
type ActivityRepo struct{ Pool PgxPool }

// NewActivityRepo constructs an ActivityRepo with the given pool.
func NewActivityRepo(p PgxPool) *ActivityRepo { return &ActivityRepo{Pool: p} }

// Record appends one event.
func (r *ActivityRepo) Record(ctx domain.Context, e domain.ActivityEvent) error {
	tracer := otel.Tracer("repo.activity")
	ctx, span := tracer.Start(ctx, "activity.Record")
	defer span.End()
	id := e.ID
	if id == "" {
		id = uuid.New().String()
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	q := `INSERT INTO activity_events (id, type, job_id, candidate_id, detail, created_at) VALUES ($1,$2,$3,$4,$5,$6)`
	if _, err := r.Pool.Exec(ctx, q, id, e.Type, e.JobID, e.CandidateID, e.Detail, created); err != nil {
		return fmt.Errorf("op=activity.record: %w", err)
	}
	return nil
}

// List returns events newest first.
func (r *ActivityRepo) List(ctx domain.Context, limit, offset int) ([]domain.ActivityEvent, error) {
	tracer := otel.Tracer("repo.activity")
	ctx, span := tracer.Start(ctx, "activity.List")
	defer span.End()
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT id, type, job_id, candidate_id, detail, created_at FROM activity_events ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.Pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("op=activity.list: %w", err)
	}
	defer rows.Close()
	var out []domain.ActivityEvent
	for rows.Next() {
		var e domain.ActivityEvent
		if err := rows.Scan(&e.ID, &e.Type, &e.JobID, &e.CandidateID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("op=activity.list: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=activity.list: %w", err)
	}
	return out, nil
}

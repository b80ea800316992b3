package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/candidate-screener/internal/domain"
)

// FileRepo stores uploaded resume blobs in a bytea column keyed by a
// generated file id.
type FileRepo struct{ Pool PgxPool }

// NewFileRepo constructs a FileRepo with the given pool.
func NewFileRepo(p PgxPool) *FileRepo { return &FileRepo{Pool: p} }

// Store saves a blob and returns its id (generates one if empty).
func (r *FileRepo) Store(ctx domain.Context, f domain.StoredFile) (string, error) {
	tracer := otel.Tracer("repo.files")
	ctx, span := tracer.Start(ctx, "files.Store")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "files"),
	)
	id := f.ID
	if id == "" {
		id = uuid.New().String()
	}
	q := `INSERT INTO files (id, filename, mime, size, data, created_at) VALUES ($1,$2,$3,$4,$5,$6)`
	if _, err := r.Pool.Exec(ctx, q, id, f.Filename, f.MIME, f.Size, f.Data, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("op=file.store: %w", err)
	}
	return id, nil
}

// Load fetches a blob by id.
func (r *FileRepo) Load(ctx domain.Context, id string) (domain.StoredFile, error) {
	tracer := otel.Tracer("repo.files")
	ctx, span := tracer.Start(ctx, "files.Load")
	defer span.End()
	q := `SELECT id, filename, mime, size, data, created_at FROM files WHERE id=$1`
	var f domain.StoredFile
	if err := r.Pool.QueryRow(ctx, q, id).Scan(&f.ID, &f.Filename, &f.MIME, &f.Size, &f.Data, &f.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.StoredFile{}, fmt.Errorf("op=file.load: %w", domain.ErrNotFound)
		}
		return domain.StoredFile{}, fmt.Errorf("op=file.load: %w", err)
	}
	return f, nil
}

// Delete removes a blob. Missing rows are not an error so cascades stay
// idempotent.
func (r *FileRepo) Delete(ctx domain.Context, id string) error {
	tracer := otel.Tracer("repo.files")
	ctx, span := tracer.Start(ctx, "files.Delete")
	defer span.End()
	if _, err := r.Pool.Exec(ctx, `DELETE FROM files WHERE id=$1`, id); err != nil {
		return fmt.Errorf("op=file.delete: %w", err)
	}
	return nil
}

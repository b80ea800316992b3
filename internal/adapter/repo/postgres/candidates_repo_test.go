package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/candidate-screener/internal/adapter/repo/postgres"
)

// capturePool records every statement so tests can assert on the SQL the
// repos emit without a live database.
type capturePool struct {
	queries []string
	args    [][]any
}

func (p *capturePool) record(sql string, args []any) {
	p.queries = append(p.queries, sql)
	p.args = append(p.args, args)
}

func (p *capturePool) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	p.record(sql, args)
	return pgconn.CommandTag{}, nil
}

func (p *capturePool) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	p.record(sql, args)
	return emptyRows{}, nil
}

func (p *capturePool) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	p.record(sql, args)
	return errRow{}
}

func (p *capturePool) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) {
	return nil, errors.New("transactions not supported by capture pool")
}

type emptyRows struct{}

func (emptyRows) Close()                                       {}
func (emptyRows) Err() error                                   { return nil }
func (emptyRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (emptyRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (emptyRows) Next() bool                                   { return false }
func (emptyRows) Scan(...any) error                            { return pgx.ErrNoRows }
func (emptyRows) Values() ([]any, error)                       { return nil, nil }
func (emptyRows) RawValues() [][]byte                          { return nil }
func (emptyRows) Conn() *pgx.Conn                              { return nil }

type errRow struct{}

func (errRow) Scan(...any) error { return pgx.ErrNoRows }

func TestCandidateRepoListByJob_NoLimitListsEveryRow(t *testing.T) {
	t.Parallel()
	pool := &capturePool{}
	repo := postgres.NewCandidateRepo(pool)

	_, err := repo.ListByJob(context.Background(), "j1", 0, 0)
	require.NoError(t, err)

	require.Len(t, pool.queries, 1)
	// Job-wide callers (analysis fan-out, cascade delete, export) pass a
	// zero limit and must see the whole set, not a capped page.
	assert.NotContains(t, pool.queries[0], "LIMIT")
	assert.Equal(t, []any{"j1"}, pool.args[0])
}

func TestCandidateRepoListByJob_PositiveLimitPaginates(t *testing.T) {
	t.Parallel()
	pool := &capturePool{}
	repo := postgres.NewCandidateRepo(pool)

	_, err := repo.ListByJob(context.Background(), "j1", 25, 50)
	require.NoError(t, err)

	require.Len(t, pool.queries, 1)
	assert.Contains(t, pool.queries[0], "LIMIT $2 OFFSET $3")
	assert.Equal(t, []any{"j1", 25, 50}, pool.args[0])
}

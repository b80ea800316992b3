package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/candidate-screener/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/candidate-screener/internal/domain"
)

func TestJobRepoList_NoLimitListsEveryRow(t *testing.T) {
	t.Parallel()
	pool := &capturePool{}
	repo := postgres.NewJobRepo(pool)

	_, err := repo.List(context.Background(), "", 0, 0)
	require.NoError(t, err)

	require.Len(t, pool.queries, 1)
	assert.NotContains(t, pool.queries[0], "LIMIT")
}

func TestJobRepoList_PositiveLimitPaginates(t *testing.T) {
	t.Parallel()
	pool := &capturePool{}
	repo := postgres.NewJobRepo(pool)

	_, err := repo.List(context.Background(), "active", 10, 20)
	require.NoError(t, err)

	require.Len(t, pool.queries, 1)
	assert.Contains(t, pool.queries[0], "LIMIT 10 OFFSET 20")
	assert.Equal(t, []any{domain.JobStatus("active")}, pool.args[0])
}

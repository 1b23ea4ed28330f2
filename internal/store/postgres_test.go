package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT report FROM runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get run")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_BestPrompt_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT run_id, field_key, prompt, accuracy, updated_at FROM prompt_library`).
		WithArgs("unknown_field").
		WillReturnError(pgx.ErrNoRows)

	pr, err := s.BestPrompt(context.Background(), "unknown_field")
	require.NoError(t, err)
	assert.Nil(t, pr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	report := testReport("run-1")

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs("run-1", report.TestModel, pgxmock.AnyArg(), 2, 1, 1, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mock.ExpectCopyFrom(pgx.Identifier{"prompt_history"},
		[]string{"id", "run_id", "field_key", "prompt", "accuracy", "improved", "created_at"}).
		WillReturnResult(2)

	// Only the improved field reaches the library.
	mock.ExpectExec(`INSERT INTO prompt_library`).
		WithArgs("governing_law", "improved instruction", 0.9, "run-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SaveRun(context.Background(), report)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"id", "test_model", "fields", "improved", "converged", "started_at", "duration_ms"})
	mock.ExpectQuery(`SELECT id, test_model, fields, improved, converged, started_at, duration_ms FROM runs`).
		WithArgs(100).
		WillReturnRows(rows)

	summaries, err := s.ListRuns(context.Background(), RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, summaries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

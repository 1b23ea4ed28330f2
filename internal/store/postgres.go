package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/optimizer-cli/internal/db"
	"github.com/sells-group/optimizer-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_run":     `INSERT INTO runs (id, test_model, report, fields, improved, converged, started_at, duration_ms) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
	"get_run":        `SELECT report FROM runs WHERE id = $1`,
	"upsert_library": `INSERT INTO prompt_library (field_key, prompt, accuracy, run_id, updated_at) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (field_key) DO UPDATE SET prompt = EXCLUDED.prompt, accuracy = EXCLUDED.accuracy, run_id = EXCLUDED.run_id, updated_at = EXCLUDED.updated_at WHERE EXCLUDED.accuracy >= prompt_library.accuracy`,
	"best_prompt":    `SELECT run_id, field_key, prompt, accuracy, updated_at FROM prompt_library WHERE field_key = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	test_model  TEXT NOT NULL,
	report      JSONB NOT NULL,
	fields      INTEGER NOT NULL,
	improved    INTEGER NOT NULL,
	converged   INTEGER NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS prompt_history (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	field_key  TEXT NOT NULL,
	prompt     TEXT NOT NULL,
	accuracy   DOUBLE PRECISION NOT NULL,
	improved   BOOLEAN NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS prompt_library (
	field_key  TEXT PRIMARY KEY,
	prompt     TEXT NOT NULL,
	accuracy   DOUBLE PRECISION NOT NULL,
	run_id     TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_test_model ON runs(test_model);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_prompt_history_field_key ON prompt_history(field_key);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// SaveRun stores the report row, bulk-inserts the prompt history via COPY,
// and upserts improved prompts into the library.
func (s *PostgresStore) SaveRun(ctx context.Context, report *model.RunReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal report")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, test_model, report, fields, improved, converged, started_at, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		report.RunID, report.TestModel, reportJSON, len(report.Results),
		report.ImprovedCount(), report.ConvergedCount(), report.StartedAt.UTC(),
		report.Duration.Milliseconds(),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert run %s", report.RunID)
	}

	now := time.Now().UTC()
	historyRows := make([][]any, 0, len(report.Results))
	for _, fr := range report.Results {
		historyRows = append(historyRows, []any{
			uuid.NewString(), report.RunID, fr.FieldKey, fr.FinalPrompt, fr.FinalAccuracy, fr.Improved, now,
		})
	}
	if _, err := db.CopyFrom(ctx, s.pool, "prompt_history",
		[]string{"id", "run_id", "field_key", "prompt", "accuracy", "improved", "created_at"},
		historyRows,
	); err != nil {
		return eris.Wrapf(err, "postgres: history for run %s", report.RunID)
	}

	for _, fr := range report.Results {
		if !fr.Improved {
			continue
		}
		_, err = s.pool.Exec(ctx,
			`INSERT INTO prompt_library (field_key, prompt, accuracy, run_id, updated_at)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (field_key) DO UPDATE SET
			   prompt = EXCLUDED.prompt, accuracy = EXCLUDED.accuracy,
			   run_id = EXCLUDED.run_id, updated_at = EXCLUDED.updated_at
			 WHERE EXCLUDED.accuracy >= prompt_library.accuracy`,
			fr.FieldKey, fr.FinalPrompt, fr.FinalAccuracy, report.RunID, now,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: upsert library for %s", fr.FieldKey)
		}
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.RunReport, error) {
	var reportJSON []byte
	err := s.pool.QueryRow(ctx, `SELECT report FROM runs WHERE id = $1`, runID).Scan(&reportJSON)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}

	var report model.RunReport
	if err := json.Unmarshal(reportJSON, &report); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal report")
	}
	return &report, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]RunSummary, error) {
	query := `SELECT id, test_model, fields, improved, converged, started_at, duration_ms FROM runs WHERE 1=1`
	var args []any
	argn := 1

	if filter.TestModel != "" {
		query += ` AND test_model = $1`
		args = append(args, filter.TestModel)
		argn++
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT $` + strconv.Itoa(argn)
	args = append(args, limit)
	argn++

	if filter.Offset > 0 {
		query += ` OFFSET $` + strconv.Itoa(argn)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var summaries []RunSummary
	for rows.Next() {
		var rs RunSummary
		var durationMs int64
		if err := rows.Scan(&rs.RunID, &rs.TestModel, &rs.Fields, &rs.Improved, &rs.Converged, &rs.StartedAt, &durationMs); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run summary")
		}
		rs.Duration = time.Duration(durationMs) * time.Millisecond
		summaries = append(summaries, rs)
	}
	return summaries, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) PromptHistory(ctx context.Context, fieldKey string, limit int) ([]PromptRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT run_id, field_key, prompt, accuracy, improved, created_at FROM prompt_history
		 WHERE field_key = $1 ORDER BY created_at DESC LIMIT $2`,
		fieldKey, limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: prompt history for %s", fieldKey)
	}
	defer rows.Close()

	var records []PromptRecord
	for rows.Next() {
		var pr PromptRecord
		if err := rows.Scan(&pr.RunID, &pr.FieldKey, &pr.Prompt, &pr.Accuracy, &pr.Improved, &pr.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan prompt record")
		}
		records = append(records, pr)
	}
	return records, eris.Wrap(rows.Err(), "postgres: prompt history iterate")
}

func (s *PostgresStore) BestPrompt(ctx context.Context, fieldKey string) (*PromptRecord, error) {
	var pr PromptRecord
	err := s.pool.QueryRow(ctx,
		`SELECT run_id, field_key, prompt, accuracy, updated_at FROM prompt_library WHERE field_key = $1`,
		fieldKey,
	).Scan(&pr.RunID, &pr.FieldKey, &pr.Prompt, &pr.Accuracy, &pr.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: best prompt for %s", fieldKey)
	}
	pr.Improved = true
	return &pr, nil
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/optimizer-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	test_model  TEXT NOT NULL,
	report      TEXT NOT NULL,
	fields      INTEGER NOT NULL,
	improved    INTEGER NOT NULL,
	converged   INTEGER NOT NULL,
	started_at  DATETIME NOT NULL,
	duration_ms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS prompt_history (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	field_key  TEXT NOT NULL,
	prompt     TEXT NOT NULL,
	accuracy   REAL NOT NULL,
	improved   INTEGER NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS prompt_library (
	field_key  TEXT PRIMARY KEY,
	prompt     TEXT NOT NULL,
	accuracy   REAL NOT NULL,
	run_id     TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_test_model ON runs(test_model);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_prompt_history_field_key ON prompt_history(field_key);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun stores the full report plus one prompt-history row per field. The
// prompt library keeps only each field's best-scoring improved prompt.
func (s *SQLiteStore) SaveRun(ctx context.Context, report *model.RunReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal report")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, test_model, report, fields, improved, converged, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID, report.TestModel, string(reportJSON), len(report.Results),
		report.ImprovedCount(), report.ConvergedCount(), report.StartedAt.UTC(),
		report.Duration.Milliseconds(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", report.RunID)
	}

	now := time.Now().UTC()
	for _, fr := range report.Results {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO prompt_history (id, run_id, field_key, prompt, accuracy, improved, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), report.RunID, fr.FieldKey, fr.FinalPrompt, fr.FinalAccuracy, fr.Improved, now,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert history for %s", fr.FieldKey)
		}

		if !fr.Improved {
			continue
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO prompt_library (field_key, prompt, accuracy, run_id, updated_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(field_key) DO UPDATE SET
			   prompt = excluded.prompt, accuracy = excluded.accuracy,
			   run_id = excluded.run_id, updated_at = excluded.updated_at
			 WHERE excluded.accuracy >= prompt_library.accuracy`,
			fr.FieldKey, fr.FinalPrompt, fr.FinalAccuracy, report.RunID, now,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: upsert library for %s", fr.FieldKey)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit run")
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.RunReport, error) {
	var reportJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT report FROM runs WHERE id = ?`, runID,
	).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}

	var report model.RunReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal report")
	}
	return &report, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]RunSummary, error) {
	query := `SELECT id, test_model, fields, improved, converged, started_at, duration_ms FROM runs WHERE 1=1`
	var args []any

	if filter.TestModel != "" {
		query += ` AND test_model = ?`
		args = append(args, filter.TestModel)
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var summaries []RunSummary
	for rows.Next() {
		var rs RunSummary
		var durationMs int64
		if err := rows.Scan(&rs.RunID, &rs.TestModel, &rs.Fields, &rs.Improved, &rs.Converged, &rs.StartedAt, &durationMs); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run summary")
		}
		rs.Duration = time.Duration(durationMs) * time.Millisecond
		summaries = append(summaries, rs)
	}
	return summaries, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) PromptHistory(ctx context.Context, fieldKey string, limit int) ([]PromptRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, field_key, prompt, accuracy, improved, created_at FROM prompt_history
		 WHERE field_key = ? ORDER BY created_at DESC LIMIT ?`,
		fieldKey, limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: prompt history for %s", fieldKey)
	}
	defer rows.Close()

	var records []PromptRecord
	for rows.Next() {
		var pr PromptRecord
		if err := rows.Scan(&pr.RunID, &pr.FieldKey, &pr.Prompt, &pr.Accuracy, &pr.Improved, &pr.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan prompt record")
		}
		records = append(records, pr)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: prompt history iterate")
}

func (s *SQLiteStore) BestPrompt(ctx context.Context, fieldKey string) (*PromptRecord, error) {
	var pr PromptRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, field_key, prompt, accuracy, updated_at FROM prompt_library WHERE field_key = ?`,
		fieldKey,
	).Scan(&pr.RunID, &pr.FieldKey, &pr.Prompt, &pr.Accuracy, &pr.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: best prompt for %s", fieldKey)
	}
	pr.Improved = true
	return &pr, nil
}

// Package store persists optimization run reports and the per-field prompt
// history behind a dual-driver interface.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/optimizer-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	TestModel string `json:"test_model,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

// RunSummary is the listing view of a stored run.
type RunSummary struct {
	RunID     string        `json:"run_id"`
	TestModel string        `json:"test_model"`
	Fields    int           `json:"fields"`
	Improved  int           `json:"improved"`
	Converged int           `json:"converged"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// PromptRecord is one stored prompt candidate for a field.
type PromptRecord struct {
	RunID     string    `json:"run_id"`
	FieldKey  string    `json:"field_key"`
	Prompt    string    `json:"prompt"`
	Accuracy  float64   `json:"accuracy"`
	Improved  bool      `json:"improved"`
	CreatedAt time.Time `json:"created_at"`
}

// Store defines the persistence interface for optimization runs.
type Store interface {
	// Runs
	SaveRun(ctx context.Context, report *model.RunReport) error
	GetRun(ctx context.Context, runID string) (*model.RunReport, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]RunSummary, error)

	// Prompt library
	PromptHistory(ctx context.Context, fieldKey string, limit int) ([]PromptRecord, error)
	BestPrompt(ctx context.Context, fieldKey string) (*PromptRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

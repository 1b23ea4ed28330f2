package optimizer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/optimizer-cli/internal/model"
	"github.com/sells-group/optimizer-cli/internal/pool"
)

// Coordinator fans field jobs out across a bounded worker pool. One field's
// failure never aborts the others; it degrades to a result that echoes the
// original prompt.
type Coordinator struct {
	controller *Controller
	cfg        RunConfig
}

// NewCoordinator creates a coordinator around a configured controller.
func NewCoordinator(controller *Controller, cfg RunConfig) *Coordinator {
	return &Coordinator{controller: controller, cfg: cfg.WithDefaults()}
}

// ProgressFunc is invoked once per completed field, in completion order.
type ProgressFunc func(done, total int, result model.FieldResult)

// Run optimizes every job and assembles the run report. Results come back in
// job order regardless of completion order.
func (c *Coordinator) Run(ctx context.Context, jobs []FieldJob, sampled []string, onProgress ProgressFunc) (*model.RunReport, error) {
	started := time.Now()
	report := &model.RunReport{
		RunID:         uuid.NewString(),
		TestModel:     c.cfg.TestModel,
		SampledDocIDs: sampled,
		StartedAt:     started,
	}

	zap.L().Info("optimization run started",
		zap.String("run_id", report.RunID),
		zap.Int("fields", len(jobs)),
		zap.Int("sampled_docs", len(sampled)),
		zap.Int("concurrency", c.cfg.FieldConcurrency))

	done := 0
	collected := pool.MapCollect(ctx, jobs, c.cfg.FieldConcurrency, func(ctx context.Context, job FieldJob) (model.FieldResult, error) {
		fr, err := c.controller.OptimizeField(ctx, job)
		if err != nil {
			return degradedResult(job, c.cfg, err), nil
		}
		return fr, nil
	})

	results := make([]model.FieldResult, 0, len(jobs))
	for i, r := range collected {
		fr := r.Value
		if r.Err != nil {
			fr = degradedResult(jobs[i], c.cfg, r.Err)
		}
		results = append(results, fr)
		done++
		if onProgress != nil {
			onProgress(done, len(jobs), fr)
		}
	}

	report.Results = results
	report.Duration = time.Since(started)

	zap.L().Info("optimization run finished",
		zap.String("run_id", report.RunID),
		zap.Int("improved", report.ImprovedCount()),
		zap.Int("converged", report.ConvergedCount()),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// degradedResult is the terminal result for a field whose loop failed
// outright: zero iterations, not improved, original prompt echoed back so
// downstream consumers always see a complete per-field report.
func degradedResult(job FieldJob, cfg RunConfig, err error) model.FieldResult {
	zap.L().Error("field optimization failed",
		zap.String("field", job.Field.Key),
		zap.Error(err))
	return model.FieldResult{
		FieldKey:        job.Field.Key,
		FieldName:       job.Field.Name,
		InitialAccuracy: job.InitialAccuracy,
		FinalAccuracy:   job.InitialAccuracy,
		InitialPrompt:   job.Field.Prompt,
		FinalPrompt:     job.Field.Prompt,
		SampledDocIDs:   append(append([]string{}, job.TrainDocIDs...), job.HoldoutDocIDs...),
		Metadata: model.ExperimentMetadata{
			TestModel:         cfg.TestModel,
			MaxIterations:     cfg.MaxIterations,
			TargetAccuracy:    cfg.TargetAccuracy,
			DeterministicMode: cfg.Deterministic,
		},
		Error: err.Error(),
	}
}

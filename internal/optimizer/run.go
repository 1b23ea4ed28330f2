package optimizer

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/optimizer-cli/internal/accuracy"
	"github.com/sells-group/optimizer-cli/internal/model"
	"github.com/sells-group/optimizer-cli/internal/sampling"
)

// BuildJobs turns an accuracy dataset into per-field work orders: the
// failure map picks which fields need work, the sampler picks which
// documents to test on, and each job carries the recorded ground truth and
// baseline accuracy for its field over the sampled set.
func BuildJobs(data *accuracy.Data, registry *model.FieldRegistry, cfg RunConfig) ([]FieldJob, *model.SamplingResult, error) {
	cfg = cfg.WithDefaults()

	failures := sampling.BuildFailureMap(data, registry.Keys(), cfg.TestModel)
	if len(failures) == 0 {
		return nil, nil, eris.Errorf("optimizer: no failing fields for model %s, nothing to optimize", cfg.TestModel)
	}

	sampled := sampling.SelectDocs(failures, cfg.MaxDocs, data.DocIDs(), cfg.HoldoutRatio)
	if len(sampled.SelectedDocs) == 0 {
		return nil, nil, eris.New("optimizer: sampling selected no documents")
	}

	docsByID := make(map[string]*accuracy.DocumentResult, len(data.Documents))
	for i := range data.Documents {
		docsByID[data.Documents[i].DocID] = &data.Documents[i]
	}

	jobs := make([]FieldJob, 0, len(failures))
	for _, key := range registry.Keys() {
		if _, failing := failures[key]; !failing {
			continue
		}
		field := registry.ByKey(key)
		if field == nil {
			continue
		}

		job := FieldJob{
			Field:         *field,
			TrainDocIDs:   sampled.TrainDocIDs,
			HoldoutDocIDs: sampled.HoldoutDocIDs,
			GroundTruth:   make(map[string]string),
			DocNames:      make(map[string]string),
		}

		matched, compared := 0, 0
		for _, docID := range sampled.DocIDs() {
			doc, ok := docsByID[docID]
			if !ok {
				continue
			}
			job.DocNames[docID] = doc.DocName
			out, ok := doc.Outcome(key, cfg.TestModel)
			if !ok {
				continue
			}
			job.GroundTruth[docID] = out.GroundTruth
			if out.Compared {
				compared++
				if out.IsMatch {
					matched++
				}
			}
		}
		if compared > 0 {
			job.InitialAccuracy = float64(matched) / float64(compared)
		}
		jobs = append(jobs, job)
	}

	zap.L().Info("jobs built",
		zap.Int("failing_fields", len(jobs)),
		zap.Int("sampled_docs", len(sampled.SelectedDocs)),
		zap.Int("train", len(sampled.TrainDocIDs)),
		zap.Int("holdout", len(sampled.HoldoutDocIDs)))
	return jobs, sampled, nil
}

// Optimize is the full pipeline: build jobs from the dataset and run them
// through the coordinator.
func Optimize(ctx context.Context, c *Coordinator, data *accuracy.Data, registry *model.FieldRegistry, cfg RunConfig, onProgress ProgressFunc) (*model.RunReport, error) {
	jobs, sampled, err := BuildJobs(data, registry, cfg)
	if err != nil {
		return nil, err
	}
	return c.Run(ctx, jobs, sampled.DocIDs(), onProgress)
}

package optimizer

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/optimizer-cli/internal/analysis"
	"github.com/sells-group/optimizer-cli/internal/compare"
	"github.com/sells-group/optimizer-cli/internal/extract"
	"github.com/sells-group/optimizer-cli/internal/model"
	"github.com/sells-group/optimizer-cli/internal/pool"
	"github.com/sells-group/optimizer-cli/internal/promptgen"
)

// maxFailureExamples caps how many wrong documents are quoted back to the
// prompt generator per iteration.
const maxFailureExamples = 5

// maxSuccessExamples caps the do-not-regress examples shown alongside.
const maxSuccessExamples = 3

// FieldJob is one field's optimization work order: the field definition, the
// sampled document split, and the recorded ground truth for those documents.
type FieldJob struct {
	Field           model.FieldDefinition
	TrainDocIDs     []string
	HoldoutDocIDs   []string
	GroundTruth     map[string]string
	DocNames        map[string]string
	InitialAccuracy float64
}

// Controller runs the per-field iteration loop: test the current prompt on
// the training documents, score it, and ask the generator for a rewrite until
// the accuracy target is hit or the iteration budget runs out.
type Controller struct {
	extractor extract.Service
	generator promptgen.Generator
	comparer  *compare.Comparer
	analyzer  analysis.Analyzer
	cfg       RunConfig
}

// NewController wires the three collaborators and an optional analyzer.
func NewController(extractor extract.Service, generator promptgen.Generator, comparer *compare.Comparer, analyzer analysis.Analyzer, cfg RunConfig) *Controller {
	return &Controller{
		extractor: extractor,
		generator: generator,
		comparer:  comparer,
		analyzer:  analyzer,
		cfg:       cfg.WithDefaults(),
	}
}

// snapshot is the best prompt seen so far. Ties on accuracy keep the longer
// prompt, which tends to carry more of the accumulated guidance.
type snapshot struct {
	prompt   string
	accuracy float64
}

func (s *snapshot) consider(prompt string, accuracy float64) {
	if accuracy > s.accuracy || (accuracy == s.accuracy && len(prompt) > len(s.prompt)) {
		s.prompt = prompt
		s.accuracy = accuracy
	}
}

// docOutcome is one training document's comparison result for the prompt
// under test.
type docOutcome struct {
	docID   string
	gt      string
	pred    string
	skipped bool
	result  model.ComparisonResult
}

// OptimizeField runs the full iteration loop for one field and returns its
// terminal result. The returned prompt is a candidate for human approval; it
// is never persisted here.
func (c *Controller) OptimizeField(ctx context.Context, job FieldJob) (model.FieldResult, error) {
	res := model.FieldResult{
		FieldKey:        job.Field.Key,
		FieldName:       job.Field.Name,
		InitialPrompt:   job.Field.Prompt,
		InitialAccuracy: job.InitialAccuracy,
		SampledDocIDs:   append(append([]string{}, job.TrainDocIDs...), job.HoldoutDocIDs...),
		Metadata: model.ExperimentMetadata{
			TestModel:          c.cfg.TestModel,
			MaxIterations:      c.cfg.MaxIterations,
			TargetAccuracy:     c.cfg.TargetAccuracy,
			DeterministicMode:  c.cfg.Deterministic,
			AnalysisIterations: c.cfg.AnalysisIterations,
		},
	}

	// Optimization scoring must be reproducible in deterministic mode, so
	// llm-judge fields are scored with the near-exact strategy on a copy of
	// the field's compare config. The stored config is untouched.
	cmpCfg := job.Field.Compare
	if c.cfg.Deterministic && cmpCfg.CompareType == model.CompareLLMJudge {
		cmpCfg.CompareType = model.CompareNearExact
	}

	current := strings.TrimSpace(job.Field.Prompt)
	if IsGenericPrompt(current) {
		if lib, ok := LibraryPrompt(job.Field.FieldType, job.Field.Name); ok {
			zap.L().Info("substituting library prompt",
				zap.String("field", job.Field.Key),
				zap.Int("original_len", len(current)))
			current = lib
		} else if current == "" {
			current = FallbackPrompt(job.Field.FieldType, job.Field.Name)
		}
	}

	train := measurableDocs(job.TrainDocIDs, job.GroundTruth)
	if len(train) == 0 {
		// Nothing to score against. The candidate prompt cannot be worse
		// than a baseline that was never measurable, so it is adopted.
		res.FinalPrompt = current
		res.FinalAccuracy = job.InitialAccuracy
		res.Converged = true
		res.Improved = true
		res.Metadata.PromptsTried = 1
		return res, nil
	}

	best := snapshot{prompt: current, accuracy: -1}
	promptsTried := []string{current}
	extraRewriteDone := false
	converged := false
	fellBack := false

	for iter := 1; iter <= c.cfg.MaxIterations; iter++ {
		res.IterationCount = iter

		outcomes, err := c.testPrompt(ctx, job, current, train, cmpCfg)
		if err != nil {
			return res, err
		}
		acc := accuracyOf(outcomes)
		best.consider(current, acc)

		zap.L().Info("iteration scored",
			zap.String("field", job.Field.Key),
			zap.Int("iteration", iter),
			zap.Float64("accuracy", acc),
			zap.Float64("best", best.accuracy))

		if acc >= c.cfg.TargetAccuracy {
			// A still-simple prompt hitting the target is suspicious; one
			// more rewrite is requested before convergence is accepted.
			if IsGenericPrompt(current) && !extraRewriteDone {
				extraRewriteDone = true
			} else {
				ok, err := c.confirmHoldout(ctx, job, current, cmpCfg, &res.Metadata)
				if err != nil {
					return res, err
				}
				if ok {
					converged = true
					break
				}
				zap.L().Warn("holdout rejected convergence",
					zap.String("field", job.Field.Key),
					zap.Float64("holdout_accuracy", res.Metadata.HoldoutAccuracy),
					zap.Float64("threshold", c.cfg.HoldoutThreshold))
			}
		}

		if iter == c.cfg.MaxIterations {
			break
		}

		next, err := c.rewrite(ctx, job, current, promptsTried, outcomes, iter)
		if err != nil {
			// A rewrite failure is tolerable only once something better
			// than the baseline is already in hand.
			if best.accuracy > job.InitialAccuracy {
				zap.L().Warn("rewrite failed, keeping best prompt so far",
					zap.String("field", job.Field.Key), zap.Error(err))
				fellBack = true
				break
			}
			return res, eris.Wrapf(err, "optimizer: field %s", job.Field.Key)
		}
		promptsTried = append(promptsTried, next)
		current = next
	}

	res.Metadata.PromptsTried = len(promptsTried)
	res.Converged = converged && !fellBack

	finalPrompt := best.prompt
	finalAcc := best.accuracy
	if finalAcc < 0 {
		finalAcc = 0
	}

	// Adoption gate: the candidate must not regress the baseline measured
	// from the accuracy data. On a tie the candidate still wins, since the
	// rewritten prompt carries more guidance at equal accuracy.
	if finalAcc >= job.InitialAccuracy {
		res.FinalPrompt = finalPrompt
		res.FinalAccuracy = finalAcc
		res.Improved = true
	} else {
		res.FinalPrompt = job.Field.Prompt
		res.FinalAccuracy = job.InitialAccuracy
		res.Improved = false
		res.Metadata.RejectedPrompt = finalPrompt
		res.Metadata.RejectedAccuracy = finalAcc
	}
	return res, nil
}

// testPrompt extracts the field from every training document with the prompt
// under test and compares each value against its ground truth. A failed
// extraction counts as an extracted "Not Present" rather than aborting the
// iteration.
func (c *Controller) testPrompt(ctx context.Context, job FieldJob, prompt string, docIDs []string, cmpCfg model.CompareConfig) ([]docOutcome, error) {
	preds, err := pool.Map(ctx, docIDs, c.cfg.ExtractionConcurrency, func(ctx context.Context, docID string) (string, error) {
		out, err := c.extractor.Extract(ctx, extract.Request{
			DocID:     docID,
			FieldKey:  job.Field.Key,
			FieldType: job.Field.FieldType,
			Prompt:    prompt,
		})
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			zap.L().Warn("extraction failed, counting as not present",
				zap.String("field", job.Field.Key),
				zap.String("doc_id", docID),
				zap.Error(err))
			return model.NotPresent, nil
		}
		return out.Value, nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "optimizer: extract field %s", job.Field.Key)
	}

	outcomes := make([]docOutcome, 0, len(docIDs))
	for i, docID := range docIDs {
		gt := job.GroundTruth[docID]
		pred := preds[i]
		o := docOutcome{docID: docID, gt: gt, pred: pred}
		if model.IsPendingOrError(pred) {
			o.skipped = true
		} else {
			o.result = c.comparer.CompareForDoc(ctx, pred, gt, docID, cmpCfg)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, nil
}

// confirmHoldout re-tests an apparently converged prompt on the held-out
// documents. An empty holdout set confirms trivially.
func (c *Controller) confirmHoldout(ctx context.Context, job FieldJob, prompt string, cmpCfg model.CompareConfig, meta *model.ExperimentMetadata) (bool, error) {
	holdout := measurableDocs(job.HoldoutDocIDs, job.GroundTruth)
	if len(holdout) == 0 {
		return true, nil
	}

	outcomes, err := c.testPrompt(ctx, job, prompt, holdout, cmpCfg)
	if err != nil {
		return false, err
	}
	acc := accuracyOf(outcomes)
	meta.HoldoutChecked = true
	meta.HoldoutAccuracy = acc
	return acc >= c.cfg.HoldoutThreshold, nil
}

// rewrite asks the generator for a new prompt, validates it against the
// structural checklist, and retries with repair notes before falling back to
// a library example.
func (c *Controller) rewrite(ctx context.Context, job FieldJob, current string, tried []string, outcomes []docOutcome, iter int) (string, error) {
	failures, successes := c.collectExamples(ctx, job, outcomes, iter)

	req := promptgen.Request{
		FieldKey:           job.Field.Key,
		FieldName:          job.Field.Name,
		FieldType:          job.Field.FieldType,
		CurrentPrompt:      current,
		PreviousPrompts:    tried,
		FailureExamples:    failures,
		SuccessExamples:    successes,
		DocTypeHint:        c.cfg.DocTypeHint,
		CustomInstructions: c.cfg.CustomInstructions,
	}

	resp, err := c.generator.Generate(ctx, req)
	if err != nil {
		return "", err
	}

	candidate := resp.NewPrompt
	for attempt := 0; attempt < c.cfg.RepairAttempts; attempt++ {
		violations := ValidatePrompt(candidate)
		if len(violations) == 0 {
			return candidate, nil
		}
		zap.L().Debug("prompt failed validation, requesting repair",
			zap.String("field", job.Field.Key),
			zap.Int("attempt", attempt+1),
			zap.Strings("violations", violations))

		req.CurrentPrompt = candidate
		req.RepairNotes = violations
		resp, err = c.generator.Generate(ctx, req)
		if err != nil {
			return "", err
		}
		candidate = resp.NewPrompt
	}

	if len(ValidatePrompt(candidate)) == 0 {
		return candidate, nil
	}
	zap.L().Warn("prompt repair exhausted, using library example",
		zap.String("field", job.Field.Key))
	return FallbackPrompt(job.Field.FieldType, job.Field.Name), nil
}

// collectExamples turns scored outcomes into failure and success examples
// for the generator, attaching best-effort analysis to failures during the
// early iterations that have an analysis budget.
func (c *Controller) collectExamples(ctx context.Context, job FieldJob, outcomes []docOutcome, iter int) (failures, successes []model.FailureExample) {
	analyze := c.analyzer != nil && iter <= c.cfg.AnalysisIterations

	for _, o := range outcomes {
		if o.skipped {
			continue
		}
		ex := model.FailureExample{
			DocID:       o.docID,
			DocName:     job.DocNames[o.docID],
			GroundTruth: o.gt,
			Extracted:   o.pred,
		}
		if ex.DocName == "" {
			ex.DocName = o.docID
		}
		if o.result.IsMatch {
			if len(successes) < maxSuccessExamples {
				successes = append(successes, ex)
			}
			continue
		}
		if len(failures) >= maxFailureExamples {
			continue
		}
		if analyze {
			ex.Analysis = c.analyzer.ExplainFailure(ctx, analysis.FailureContext{
				DocID:       o.docID,
				FieldName:   job.Field.Name,
				GroundTruth: o.gt,
				Extracted:   o.pred,
			})
		}
		failures = append(failures, ex)
	}
	return failures, successes
}

// measurableDocs filters to documents whose recorded ground truth is real:
// blanks and dash placeholders carry no signal either way and would reward a
// prompt for guessing.
func measurableDocs(docIDs []string, groundTruth map[string]string) []string {
	out := make([]string, 0, len(docIDs))
	for _, id := range docIDs {
		gt := groundTruth[id]
		if isDashOrBlank(gt) {
			continue
		}
		out = append(out, id)
	}
	return out
}

func isDashOrBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' && r != '-' {
			return false
		}
	}
	return true
}

// accuracyOf scores an iteration's outcomes through the metrics engine.
// All-skipped scores zero so a prompt cannot converge on unmeasured
// documents.
func accuracyOf(outcomes []docOutcome) float64 {
	var t compare.Tally
	for _, o := range outcomes {
		if o.skipped {
			t.AddSkipped()
			continue
		}
		t.Add(o.gt, o.result)
	}
	return t.Metrics().Accuracy
}

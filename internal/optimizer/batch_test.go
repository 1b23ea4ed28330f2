package optimizer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/optimizer-cli/internal/compare"
	"github.com/sells-group/optimizer-cli/internal/model"
)

func TestCoordinator_OneFieldFailureDoesNotAbortOthers(t *testing.T) {
	// The extractor answers correctly for the healthy field's document and
	// wrongly for the broken one; the broken field then needs a rewrite,
	// which fails without any progress over its baseline.
	ext := &fakeExtractor{values: map[string]string{"d1": "Delaware"}}
	gen := &fakeGenerator{err: errors.New("generator down")}
	cfg := RunConfig{MaxIterations: 3, TargetAccuracy: 1.0, FieldConcurrency: 2}
	coord := NewCoordinator(NewController(ext, gen, compare.New(nil), nil, cfg), cfg)

	healthy := FieldJob{
		Field:       textField(validPrompt),
		TrainDocIDs: []string{"d1"},
		GroundTruth: map[string]string{"d1": "Delaware"},
	}
	broken := FieldJob{
		Field: model.FieldDefinition{
			Key:       "purchase_price",
			Name:      "Purchase Price",
			FieldType: "number",
			Prompt:    validPrompt,
			Compare:   model.CompareConfig{CompareType: model.CompareExactNumber},
		},
		TrainDocIDs:     []string{"d2"},
		GroundTruth:     map[string]string{"d2": "1000000"},
		InitialAccuracy: 0.5,
	}

	report, err := coord.Run(context.Background(), []FieldJob{healthy, broken}, []string{"d1", "d2"}, nil)
	require.NoError(t, err)
	require.Len(t, report.Results, 2)

	// Results keep job order.
	assert.Equal(t, "governing_law", report.Results[0].FieldKey)
	assert.Equal(t, "purchase_price", report.Results[1].FieldKey)

	assert.True(t, report.Results[0].Converged)
	assert.True(t, report.Results[0].Improved)

	degraded := report.Results[1]
	assert.False(t, degraded.Improved)
	assert.Equal(t, 0, degraded.IterationCount)
	assert.Equal(t, validPrompt, degraded.FinalPrompt)
	assert.Equal(t, 0.5, degraded.FinalAccuracy)
	assert.Contains(t, degraded.Error, "generator down")

	assert.Equal(t, 1, report.ImprovedCount())
	assert.Equal(t, 1, report.ConvergedCount())
}

func TestCoordinator_ProgressCallback(t *testing.T) {
	ext := &fakeExtractor{values: map[string]string{"d1": "X"}}
	gen := &fakeGenerator{prompt: validPrompt}
	cfg := RunConfig{MaxIterations: 1, TargetAccuracy: 1.0}
	coord := NewCoordinator(NewController(ext, gen, compare.New(nil), nil, cfg), cfg)

	job := FieldJob{
		Field:       textField(validPrompt),
		TrainDocIDs: []string{"d1"},
		GroundTruth: map[string]string{"d1": "X"},
	}

	var seen []string
	report, err := coord.Run(context.Background(), []FieldJob{job, job}, []string{"d1"}, func(done, total int, fr model.FieldResult) {
		assert.Equal(t, 2, total)
		seen = append(seen, fr.FieldKey)
	})
	require.NoError(t, err)

	assert.Len(t, seen, 2)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, []string{"d1"}, report.SampledDocIDs)
	assert.False(t, report.StartedAt.IsZero())
}

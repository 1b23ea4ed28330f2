package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/optimizer-cli/internal/model"
)

func TestAggregate_PerfectField(t *testing.T) {
	m, err := AggregatePreview(
		[]string{"X", "Not Present"},
		[]string{"X", "Not Present"},
		cfgOf(model.CompareExactString),
	)
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.Accuracy)
	assert.Equal(t, 1.0, m.Precision)
	assert.Equal(t, 1.0, m.Recall)
	assert.Equal(t, 1.0, m.F1)
	assert.Equal(t, 1, m.TruePositives)
	assert.Equal(t, 1, m.TrueNegatives)
}

func TestAggregate_WrongButPresentDoublePenalty(t *testing.T) {
	m, err := AggregatePreview(
		[]string{"wrong"},
		[]string{"right"},
		cfgOf(model.CompareExactString),
	)
	require.NoError(t, err)
	// One wrong-but-present prediction counts against both totals.
	assert.Equal(t, 1, m.FalsePositives)
	assert.Equal(t, 1, m.FalseNegatives)
	assert.Equal(t, 0.0, m.Accuracy)
}

func TestAggregate_AllTrueNegatives(t *testing.T) {
	m, err := AggregatePreview(
		[]string{"Not Present", "Not Present"},
		[]string{"", "Not Present"},
		cfgOf(model.CompareNearExact),
	)
	require.NoError(t, err)
	// 0/0 precision-recall is defined as perfect when the field is
	// genuinely absent everywhere and correctly so.
	assert.Equal(t, 1.0, m.Accuracy)
	assert.Equal(t, 1.0, m.Precision)
	assert.Equal(t, 1.0, m.Recall)
	assert.Equal(t, 1.0, m.F1)
	assert.Equal(t, 2, m.TrueNegatives)
}

func TestAggregate_BlankGroundTruthIsNotPresent(t *testing.T) {
	m, err := AggregatePreview(
		[]string{"something"},
		[]string{"  - "},
		cfgOf(model.CompareNearExact),
	)
	require.NoError(t, err)
	// Extracting a value where ground truth says absent is a false positive.
	assert.Equal(t, 1, m.FalsePositives)
	assert.Equal(t, 0, m.FalseNegatives)
}

func TestAggregate_PendingExcluded(t *testing.T) {
	m, err := AggregatePreview(
		[]string{"Pending extraction", "X"},
		[]string{"X", "X"},
		cfgOf(model.CompareExactString),
	)
	require.NoError(t, err)
	assert.Equal(t, 1, m.SkippedPairs)
	assert.Equal(t, 1, m.ValidPairs)
	assert.Equal(t, 1.0, m.Accuracy)
}

func TestTally_MatchesAggregate(t *testing.T) {
	preds := []string{"X", "wrong", "Not Present", "Pending extraction", "Y"}
	gts := []string{"X", "right", "", "X", "Y"}
	cfg := cfgOf(model.CompareExactString)

	want, err := AggregatePreview(preds, gts, cfg)
	require.NoError(t, err)

	var tally Tally
	for i := range preds {
		gt := gts[i]
		if isBlank(gt) {
			gt = model.NotPresent
		}
		if model.IsPendingOrError(preds[i]) {
			tally.AddSkipped()
			continue
		}
		tally.Add(gt, Preview(preds[i], gt, cfg))
	}

	// Feeding precomputed per-pair results must land on the same metrics
	// Aggregate computes from the raw strings.
	assert.Equal(t, want, tally.Metrics())
}

func TestAggregate_LengthMismatch(t *testing.T) {
	_, err := AggregatePreview([]string{"a"}, []string{"a", "b"}, cfgOf(model.CompareExactString))
	assert.Error(t, err)
}

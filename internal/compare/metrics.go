package compare

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/optimizer-cli/internal/model"
)

// Aggregate turns paired predictions and ground truths into confusion-matrix
// metrics for one field.
//
// A blank ground truth is normalized to Not Present. When ground truth is
// Not Present, a matching prediction is a true negative and anything else a
// false positive. When ground truth is present, a match is a true positive
// and a miss counts as both a false positive and a false negative: a wrong
// extracted value simultaneously extracted something incorrect and failed to
// extract the correct thing. Predictions carrying pending/error markers are
// excluded from the valid-pair count entirely.
func (c *Comparer) Aggregate(ctx context.Context, predictions, groundTruths []string, cfg model.CompareConfig) (model.FieldMetrics, error) {
	if len(predictions) != len(groundTruths) {
		return model.FieldMetrics{}, eris.Errorf("compare: aggregate: %d predictions vs %d ground truths", len(predictions), len(groundTruths))
	}

	var t Tally
	for i := range predictions {
		pred := predictions[i]
		gt := groundTruths[i]
		if isBlank(gt) {
			gt = model.NotPresent
		}

		if model.IsPendingOrError(pred) {
			t.AddSkipped()
			continue
		}
		t.Add(gt, c.Compare(ctx, pred, gt, cfg))
	}
	return t.Metrics(), nil
}

// Tally accumulates the confusion matrix one scored pair at a time, for
// callers that already hold per-document comparison results. Aggregate is
// built on it; the iteration loop feeds it directly.
type Tally struct {
	m model.FieldMetrics
}

// AddSkipped records a pair excluded from scoring (pending/error prediction).
func (t *Tally) AddSkipped() {
	t.m.SkippedPairs++
}

// Add classifies one scored pair. A blank ground truth is normalized to Not
// Present before classification.
func (t *Tally) Add(groundTruth string, res model.ComparisonResult) {
	gt := groundTruth
	if isBlank(gt) {
		gt = model.NotPresent
	}
	t.m.ValidPairs++

	if model.IsNotPresent(gt) {
		if res.IsMatch {
			t.m.TrueNegatives++
		} else {
			t.m.FalsePositives++
		}
		return
	}

	if res.IsMatch {
		t.m.TruePositives++
	} else {
		t.m.FalsePositives++
		t.m.FalseNegatives++
	}
}

// Metrics finalizes and returns the accumulated metrics.
func (t *Tally) Metrics() model.FieldMetrics {
	m := t.m
	finalizeMetrics(&m)
	return m
}

// AggregatePreview is the synchronous variant of Aggregate; llm-judge fields
// are scored with the near-exact fallback.
func AggregatePreview(predictions, groundTruths []string, cfg model.CompareConfig) (model.FieldMetrics, error) {
	if cfg.CompareType == model.CompareLLMJudge {
		cfg.CompareType = model.CompareNearExact
	}
	return (&Comparer{}).Aggregate(context.Background(), predictions, groundTruths, cfg)
}

func finalizeMetrics(m *model.FieldMetrics) {
	if m.ValidPairs == 0 {
		return
	}

	m.Accuracy = float64(m.TruePositives+m.TrueNegatives) / float64(m.ValidPairs)
	if m.Accuracy > 1 {
		m.Accuracy = 1
	}
	if m.Accuracy < 0 {
		m.Accuracy = 0
	}

	// Field genuinely absent everywhere and correctly so: perfect scores
	// rather than the 0/0 degenerate case.
	if m.TrueNegatives == m.ValidPairs {
		m.Precision = 1
		m.Recall = 1
		m.F1 = 1
		return
	}

	if m.TruePositives+m.FalsePositives > 0 {
		m.Precision = float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
	}
	if m.TruePositives+m.FalseNegatives > 0 {
		m.Recall = float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' && r != '-' {
			return false
		}
	}
	return true
}

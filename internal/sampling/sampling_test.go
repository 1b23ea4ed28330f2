package sampling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/optimizer-cli/internal/accuracy"
	"github.com/sells-group/optimizer-cli/internal/model"
)

func failuresFixture() model.FieldFailureMap {
	// doc1 fails fields a+b, doc2 fails a, doc3 fails c, doc4 fails a+b+c.
	fail := func(docID string) model.FieldFailureDetail {
		return model.FieldFailureDetail{DocID: docID, DocName: "Doc " + docID, GroundTruth: "gt", ExtractedValue: "bad"}
	}
	return model.FieldFailureMap{
		"a": {fail("doc1"), fail("doc2"), fail("doc4")},
		"b": {fail("doc1"), fail("doc4")},
		"c": {fail("doc3"), fail("doc4")},
	}
}

func TestSelectDocs_GreedyCoversAllFieldsFirst(t *testing.T) {
	res := SelectDocs(failuresFixture(), 2, nil, 0)
	require.Len(t, res.SelectedDocs, 2)
	// doc4 covers 3 fields, everything else is then covered.
	assert.Equal(t, "doc4", res.SelectedDocs[0].DocID)
	assert.Equal(t, []string{"a", "b", "c"}, res.SelectedDocs[0].CoveredFieldKeys)
}

func TestSelectDocs_NeverExceedsMaxDocs(t *testing.T) {
	res := SelectDocs(failuresFixture(), 3, []string{"doc1", "doc2", "doc3", "doc4", "doc5", "doc6"}, 0)
	assert.LessOrEqual(t, len(res.SelectedDocs), 3)
}

func TestSelectDocs_PadsWithNonFailingDocs(t *testing.T) {
	res := SelectDocs(failuresFixture(), 6, []string{"doc1", "doc2", "doc3", "doc4", "doc5", "doc6"}, 0)
	require.Len(t, res.SelectedDocs, 6)
	ids := res.DocIDs()
	assert.Contains(t, ids, "doc5")
	assert.Contains(t, ids, "doc6")
}

func TestSelectDocs_FieldToDocIDsIsFullSelection(t *testing.T) {
	// Prompts are validated against passing documents too.
	res := SelectDocs(failuresFixture(), 4, nil, 0)
	for _, key := range []string{"a", "b", "c"} {
		assert.Equal(t, res.DocIDs(), res.FieldToDocIDs[key], "field %s", key)
	}
}

func TestSelectDocs_TrainHoldoutPartition(t *testing.T) {
	res := SelectDocs(failuresFixture(), 4, nil, 0.25)
	all := res.DocIDs()

	seen := make(map[string]int)
	for _, id := range res.TrainDocIDs {
		seen[id]++
	}
	for _, id := range res.HoldoutDocIDs {
		seen[id]++
	}
	assert.Len(t, seen, len(all))
	for id, n := range seen {
		assert.Equal(t, 1, n, "doc %s appears once", id)
	}
	assert.LessOrEqual(t, len(res.HoldoutDocIDs), len(all)/2)
}

func TestSelectDocs_TieBreakIsLexicographic(t *testing.T) {
	failures := model.FieldFailureMap{
		"x": {
			{DocID: "zeta"},
			{DocID: "alpha"},
		},
	}
	res := SelectDocs(failures, 1, nil, 0)
	require.Len(t, res.SelectedDocs, 1)
	assert.Equal(t, "alpha", res.SelectedDocs[0].DocID)
}

func TestSplitTrainHoldout_SmallSampleNoHoldout(t *testing.T) {
	train, holdout := SplitTrainHoldout([]string{"a", "b"}, 0.5)
	assert.Len(t, train, 2)
	assert.Empty(t, holdout)
}

func TestSplitTrainHoldout_ZeroRatioNoHoldout(t *testing.T) {
	train, holdout := SplitTrainHoldout([]string{"a", "b", "c", "d"}, 0)
	assert.Len(t, train, 4)
	assert.Empty(t, holdout)
}

func TestSplitTrainHoldout_RoundsUpToOne(t *testing.T) {
	// round(4*0.1) = 0, forced up to 1 because the ratio is positive.
	train, holdout := SplitTrainHoldout([]string{"a", "b", "c", "d"}, 0.1)
	assert.Len(t, holdout, 1)
	assert.Len(t, train, 3)
}

func TestSplitTrainHoldout_CappedAtHalf(t *testing.T) {
	train, holdout := SplitTrainHoldout([]string{"a", "b", "c", "d"}, 0.9)
	assert.Len(t, holdout, 2)
	assert.Len(t, train, 2)
}

func TestSplitTrainHoldout_TakenFromTail(t *testing.T) {
	train, holdout := SplitTrainHoldout([]string{"a", "b", "c", "d"}, 0.25)
	assert.Equal(t, []string{"a", "b", "c"}, train)
	assert.Equal(t, []string{"d"}, holdout)
}

func TestBuildFailureMap_OnlyComparedNonMatches(t *testing.T) {
	data := &accuracy.Data{
		Documents: []accuracy.DocumentResult{
			{
				DocID:   "d1",
				DocName: "Contract 1",
				Fields: map[string]map[string]accuracy.FieldOutcome{
					"term": {
						"model-a": {GroundTruth: "60 days", Extracted: "90 days", Compared: true, IsMatch: false, Reason: "value mismatch"},
					},
					"party": {
						"model-a": {GroundTruth: "Acme", Extracted: "Acme", Compared: true, IsMatch: true},
					},
					"fee": {
						"model-a": {GroundTruth: "100", Extracted: "", Compared: false},
					},
				},
			},
			{
				DocID: "d2",
				Fields: map[string]map[string]accuracy.FieldOutcome{
					"term": {
						"model-b": {GroundTruth: "30 days", Extracted: "x", Compared: true, IsMatch: false},
					},
				},
			},
		},
	}

	failures := BuildFailureMap(data, []string{"term", "party", "fee"}, "model-a")
	require.Len(t, failures["term"], 1)
	assert.Equal(t, "d1", failures["term"][0].DocID)
	assert.Equal(t, "value mismatch", failures["term"][0].ComparisonReason)
	// Matching and uncompared fields never appear; neither do other models.
	assert.Empty(t, failures["party"])
	assert.Empty(t, failures["fee"])
}

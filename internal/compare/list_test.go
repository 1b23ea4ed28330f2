package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/optimizer-cli/internal/model"
)

func TestListUnordered_OrderIrrelevant(t *testing.T) {
	res := compareList("A, B, C", "C, A, B", cfgOf(model.CompareListUnord), false)
	assert.True(t, res.IsMatch)
}

func TestListOrdered_OrderViolationIsDifferentFormat(t *testing.T) {
	res := compareList("A, B, C", "C, A, B", cfgOf(model.CompareListOrdered), true)
	assert.False(t, res.IsMatch)
	assert.Equal(t, model.MatchDifferentFormat, res.Classification)
}

func TestListOrdered_PositionalEquality(t *testing.T) {
	res := compareList("Alpha, Beta", "alpha, beta", cfgOf(model.CompareListOrdered), true)
	assert.True(t, res.IsMatch)
}

func TestListUnordered_HalfOverlapIsPartial(t *testing.T) {
	// 2 of 4 items match: exactly the 50% threshold.
	res := compareList("A, B, X, Y", "A, B, C, D", cfgOf(model.CompareListUnord), false)
	assert.True(t, res.IsMatch)
	assert.Equal(t, model.MatchPartial, res.Classification)
	assert.Equal(t, model.ConfidenceMedium, res.Confidence)
}

func TestListUnordered_BelowOverlapThreshold(t *testing.T) {
	res := compareList("A, X, Y, Z", "A, B, C, D", cfgOf(model.CompareListUnord), false)
	assert.False(t, res.IsMatch)
}

func TestListUnordered_CoreNameMatch(t *testing.T) {
	res := compareList("John A. Smith | Jane Doe", "John Smith | Jane Doe", cfgOf(model.CompareListUnord), false)
	assert.True(t, res.IsMatch)
}

func TestList_PipePreferredOverComma(t *testing.T) {
	// Items contain commas; pipe on both sides wins as separator.
	res := compareList("Smith, John | Doe, Jane", "Doe, Jane | Smith, John", cfgOf(model.CompareListUnord), false)
	assert.True(t, res.IsMatch)
}

func TestList_ExplicitSeparator(t *testing.T) {
	cfg := cfgOf(model.CompareListUnord)
	cfg.Parameters = map[string]string{"separator": ";"}
	res := compareList("a; b", "b; a", cfg, false)
	assert.True(t, res.IsMatch)
}

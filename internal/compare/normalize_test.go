package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/optimizer-cli/internal/model"
)

func TestNormalize_Basics(t *testing.T) {
	assert.Equal(t, "acme holdings", Normalize("  Acme   Holdings. "))
	assert.Equal(t, "resume", Normalize("Résumé"))
	assert.Equal(t, "", Normalize("   "))
}

func TestNormalize_SpelledOutNumbers(t *testing.T) {
	assert.Equal(t, "60 days", Normalize("sixty days"))
	assert.Equal(t, "65 units", Normalize("sixty-five units"))
	assert.Equal(t, "300 workers", Normalize("three hundred workers"))
	assert.Equal(t, "1000", Normalize("one thousand"))
	assert.Equal(t, "17", Normalize("Seventeen"))
}

func TestNormalize_DurationsFoldToMonths(t *testing.T) {
	assert.Equal(t, Normalize("24 months"), Normalize("2 years"))
	assert.Equal(t, Normalize("twelve months"), Normalize("one year"))
}

func TestNearExact_ParentheticalNumber(t *testing.T) {
	res := compareNearExact("Sixty (60) days", "60 days")
	assert.True(t, res.IsMatch)
}

func TestNearExact_SubstringContainment(t *testing.T) {
	res := compareNearExact("Acme Holdings LLC of Delaware", "Acme Holdings LLC")
	assert.True(t, res.IsMatch)
	assert.Equal(t, model.MatchPartial, res.Classification)
	assert.Equal(t, model.ConfidenceMedium, res.Confidence)
}

func TestNearExact_ContainmentMinLength(t *testing.T) {
	// Below the 3-character containment minimum.
	res := compareNearExact("ab", "abcdef")
	assert.False(t, res.IsMatch)
}

func TestNearExact_MultiValueSubItem(t *testing.T) {
	res := compareNearExact("Alpha | Beta | Gamma", "Beta")
	assert.True(t, res.IsMatch)
	assert.Equal(t, model.MatchPartial, res.Classification)
}

func TestNearExact_NoMatch(t *testing.T) {
	res := compareNearExact("red", "blue")
	assert.False(t, res.IsMatch)
	assert.Equal(t, model.MatchNone, res.Classification)
}

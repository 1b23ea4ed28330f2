package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePrompt_AcceptsLibraryExamples(t *testing.T) {
	for fieldType := range libraryTemplates {
		p, ok := LibraryPrompt(fieldType, "Effective Date")
		assert.True(t, ok)
		assert.Empty(t, ValidatePrompt(p), "library prompt for %s should validate", fieldType)
	}
	assert.Empty(t, ValidatePrompt(FallbackPrompt("unknown-type", "Effective Date")))
}

func TestValidatePrompt_ShortPromptViolatesEverything(t *testing.T) {
	violations := ValidatePrompt("Extract the date.")
	assert.Contains(t, violations, ruleMinLength)
	assert.Contains(t, violations, ruleLocation)
	assert.Contains(t, violations, ruleSynonyms)
	assert.Contains(t, violations, ruleAbsence)
	assert.Contains(t, violations, ruleDisambiguation)
}

func TestValidatePrompt_ReportsOnlyMissingRules(t *testing.T) {
	p := "Extract the closing date from the signature section of the agreement, where it may appear as a labeled variant such as completion date. Return the date in YYYY-MM-DD format; if it cannot be found anywhere, return Not Present."
	violations := ValidatePrompt(p)
	assert.Equal(t, []string{ruleDisambiguation}, violations)
}

func TestIsGenericPrompt(t *testing.T) {
	assert.True(t, IsGenericPrompt(""))
	assert.True(t, IsGenericPrompt("Extract the purchase price."))
	assert.True(t, IsGenericPrompt("Find the closing date in the document and return it."))
	assert.False(t, IsGenericPrompt(FallbackPrompt("number", "Purchase Price")))
	assert.False(t, IsGenericPrompt(FallbackPrompt("boolean", "Exclusivity")))
}

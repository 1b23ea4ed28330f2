package llmtext

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestField_DirectJSON(t *testing.T) {
	raw := `{"value": "60 days", "confidence": 0.9}`
	assert.Equal(t, "60 days", Field(raw, "value"))
}

func TestField_FencedJSON(t *testing.T) {
	raw := "Here is the result:\n```json\n{\"new_prompt\": \"Extract the notice period...\"}\n```\nHope that helps."
	assert.Equal(t, "Extract the notice period...", Field(raw, "new_prompt", "prompt"))
}

func TestField_EmbeddedBraces(t *testing.T) {
	raw := `The answer is {"value": "Acme Corp"} as requested.`
	assert.Equal(t, "Acme Corp", Field(raw, "value"))
}

func TestField_PlainTextFallsThrough(t *testing.T) {
	assert.Equal(t, "just plain text", Field("  just plain text \n", "value"))
}

func TestField_KeyPriorityOrder(t *testing.T) {
	raw := `{"prompt": "second choice", "new_prompt": "first choice"}`
	assert.Equal(t, "first choice", Field(raw, "new_prompt", "prompt"))
}

func TestField_MissingKeyReturnsRaw(t *testing.T) {
	raw := `{"other": 1}`
	assert.Equal(t, raw, Field(raw, "value"))
}

func TestField_NumericValue(t *testing.T) {
	assert.Equal(t, "42", Field(`{"value": 42}`, "value"))
	assert.Equal(t, "4.5", Field(`{"value": 4.5}`, "value"))
}

func TestBoolField(t *testing.T) {
	v, ok := BoolField(`{"is_match": true, "reason": "same"}`, "is_match")
	assert.True(t, ok)
	assert.True(t, v)

	v, ok = BoolField(`{"is_match": "false"}`, "is_match")
	assert.True(t, ok)
	assert.False(t, v)

	_, ok = BoolField("no json here", "is_match")
	assert.False(t, ok)
}

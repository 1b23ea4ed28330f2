package main

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rotisserie/eris"
	"github.com/sells-group/optimizer-cli/internal/config"
)

func TestResolveModel(t *testing.T) {
	cfg = &config.Config{}
	cfg.Anthropic.HaikuModel = "claude-haiku-4-5-20251001"
	cfg.Anthropic.SonnetModel = "claude-sonnet-4-5-20250929"
	cfg.Anthropic.OpusModel = "claude-opus-4-6"

	assert.Equal(t, "claude-haiku-4-5-20251001", resolveModel(""))
	assert.Equal(t, "claude-haiku-4-5-20251001", resolveModel("haiku"))
	assert.Equal(t, "claude-sonnet-4-5-20250929", resolveModel("sonnet"))
	assert.Equal(t, "claude-opus-4-6", resolveModel("opus"))
	assert.Equal(t, "custom-model-id", resolveModel("custom-model-id"))
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, 200, map[string]string{"status": "ok"})

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, 404, eris.New("run not found"))

	require.Equal(t, 404, rec.Code)
	assert.JSONEq(t, `{"error":"run not found"}`, rec.Body.String())
}

func TestRootCommandHasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["optimize"])
	assert.True(t, names["runs"])
	assert.True(t, names["fields"])
	assert.True(t, names["serve"])
}

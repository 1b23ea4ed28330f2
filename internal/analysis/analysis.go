// Package analysis implements the optional failure-cause analysis step: a
// best-effort explanation of where the correct value appears in the source
// text and why the wrong one was likely picked. Failures here never block
// the optimization loop.
package analysis

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/optimizer-cli/internal/extract"
	"github.com/sells-group/optimizer-cli/internal/llmtext"
	"github.com/sells-group/optimizer-cli/pkg/anthropic"
)

// FailureContext describes one wrong extraction to explain.
type FailureContext struct {
	DocID       string
	FieldName   string
	GroundTruth string
	Extracted   string
}

// Analyzer explains extraction failures. Implementations return "" whenever
// an explanation is unavailable; callers consume via a presence check.
type Analyzer interface {
	ExplainFailure(ctx context.Context, fc FailureContext) string
}

const analysisSystemText = "You are a document analyst. Given a document, a field, the expected value, and the wrong value an extractor returned, explain briefly where in the text the expected value appears and why the wrong value was likely picked (rounding, label confusion, multiple candidate values). Two sentences maximum."

const maxAnalysisDocChars = 12000

// AnthropicAnalyzer implements Analyzer with a Claude model.
type AnthropicAnalyzer struct {
	client anthropic.Client
	docs   extract.DocumentSource
	model  string
}

// New creates an analyzer backed by the given model.
func New(client anthropic.Client, docs extract.DocumentSource, model string) *AnthropicAnalyzer {
	return &AnthropicAnalyzer{client: client, docs: docs, model: model}
}

// ExplainFailure returns an advisory explanation, or "" on any internal
// error.
func (a *AnthropicAnalyzer) ExplainFailure(ctx context.Context, fc FailureContext) string {
	text, err := a.docs.DocumentText(ctx, fc.DocID)
	if err != nil {
		zap.L().Debug("analysis: document unavailable", zap.String("doc_id", fc.DocID), zap.Error(err))
		return ""
	}
	if len(text) > maxAnalysisDocChars {
		text = text[:maxAnalysisDocChars]
	}

	prompt := fmt.Sprintf("Field: %s\nExpected: %q\nExtractor returned: %q\n\nDocument:\n%s",
		fc.FieldName, fc.GroundTruth, fc.Extracted, text)

	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     a.model,
		MaxTokens: 512,
		System:    anthropic.BuildCachedSystemBlocks(analysisSystemText),
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		zap.L().Debug("analysis: call failed", zap.String("doc_id", fc.DocID), zap.Error(err))
		return ""
	}
	return llmtext.Field(resp.Text(), "analysis", "explanation")
}

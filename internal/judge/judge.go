// Package judge implements the semantic-judge collaborator used by the
// llm-judge compare strategy.
package judge

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/optimizer-cli/internal/compare"
	"github.com/sells-group/optimizer-cli/internal/llmtext"
	"github.com/sells-group/optimizer-cli/internal/resilience"
	"github.com/sells-group/optimizer-cli/pkg/anthropic"
)

const judgeSystemText = "You compare an extracted value against an expected value and decide whether they refer to the same fact. Return a valid JSON object: {\"is_match\": <true|false>, \"reason\": \"<brief explanation>\"}."

const judgePromptTemplate = `%s

Extracted value: %q
Expected value: %q
%s
Do these refer to the same fact? Return valid JSON.`

// AnthropicJudge implements compare.Judge with a Claude model.
type AnthropicJudge struct {
	client anthropic.Client
	model  string
	retry  resilience.RetryConfig
}

// New creates a judge backed by the given model.
func New(client anthropic.Client, model string) *AnthropicJudge {
	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger("anthropic", "judge")
	return &AnthropicJudge{client: client, model: model, retry: cfg}
}

// Judge asks the model for a match verdict on one pair.
func (j *AnthropicJudge) Judge(ctx context.Context, extracted, groundTruth, comparisonPrompt, docID string) (compare.Verdict, error) {
	docLine := ""
	if docID != "" {
		docLine = fmt.Sprintf("Document: %s\n", docID)
	}
	prompt := fmt.Sprintf(judgePromptTemplate, comparisonPrompt, extracted, groundTruth, docLine)

	resp, err := resilience.DoVal(ctx, j.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return j.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     j.model,
			MaxTokens: 512,
			System:    anthropic.BuildCachedSystemBlocks(judgeSystemText),
			Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
		})
	})
	if err != nil {
		return compare.Verdict{}, eris.Wrap(err, "judge: create message")
	}

	raw := resp.Text()
	isMatch, ok := llmtext.BoolField(raw, "is_match", "match")
	if !ok {
		return compare.Verdict{}, eris.Errorf("judge: unparseable verdict: %.80s", raw)
	}
	return compare.Verdict{
		IsMatch: isMatch,
		Reason:  llmtext.Field(raw, "reason"),
	}, nil
}

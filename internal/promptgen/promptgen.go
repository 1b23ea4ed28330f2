// Package promptgen defines the prompt-generation collaborator: given the
// current instruction and evidence of where it fails, produce a rewritten
// instruction. It tolerates being called repeatedly with different repair
// notes.
package promptgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/optimizer-cli/internal/llmtext"
	"github.com/sells-group/optimizer-cli/internal/model"
	"github.com/sells-group/optimizer-cli/internal/resilience"
	"github.com/sells-group/optimizer-cli/pkg/anthropic"
)

// Request carries everything the generator needs to rewrite a prompt.
type Request struct {
	FieldKey           string
	FieldName          string
	FieldType          string
	CurrentPrompt      string
	PreviousPrompts    []string
	FailureExamples    []model.FailureExample
	SuccessExamples    []model.FailureExample
	DocTypeHint        string
	CustomInstructions string
	RepairNotes        []string
}

// Response is the rewritten prompt with the generator's reasoning.
type Response struct {
	NewPrompt string
	Reasoning string
}

// Generator is the prompt-generation collaborator.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

const generateSystemText = "You are a prompt engineer for a document-field extraction service. Rewrite extraction instructions so they extract the expected values. A good instruction states where in the document the field appears, lists synonyms and label variants, specifies the exact output format, says what to return when the field is absent, and disambiguates the field from similar ones. Return a valid JSON object: {\"new_prompt\": \"<rewritten instruction>\", \"reasoning\": \"<why this should fix the failures>\"}."

// AnthropicGenerator implements Generator with a Claude model.
type AnthropicGenerator struct {
	client anthropic.Client
	model  string
	retry  resilience.RetryConfig
}

// New creates a generator backed by the given model.
func New(client anthropic.Client, model string) *AnthropicGenerator {
	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger("anthropic", "promptgen")
	return &AnthropicGenerator{client: client, model: model, retry: cfg}
}

// Generate requests one rewritten prompt.
func (g *AnthropicGenerator) Generate(ctx context.Context, req Request) (Response, error) {
	prompt := buildUserPrompt(req)

	resp, err := resilience.DoVal(ctx, g.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return g.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     g.model,
			MaxTokens: 2048,
			System:    anthropic.BuildCachedSystemBlocks(generateSystemText),
			Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
		})
	})
	if err != nil {
		return Response{}, eris.Wrapf(err, "promptgen: field %s", req.FieldKey)
	}

	raw := resp.Text()
	newPrompt := llmtext.Field(raw, "new_prompt", "prompt", "improved_prompt")
	if strings.TrimSpace(newPrompt) == "" {
		return Response{}, eris.Errorf("promptgen: empty prompt for field %s", req.FieldKey)
	}
	return Response{
		NewPrompt: newPrompt,
		Reasoning: llmtext.Field(raw, "reasoning"),
	}, nil
}

func buildUserPrompt(req Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Field: %s (%s, type %s)\n", req.FieldName, req.FieldKey, req.FieldType)
	if req.DocTypeHint != "" {
		fmt.Fprintf(&b, "Document type: %s\n", req.DocTypeHint)
	}
	fmt.Fprintf(&b, "\nCurrent instruction:\n%s\n", req.CurrentPrompt)

	if len(req.PreviousPrompts) > 0 {
		b.WriteString("\nAlready tried (produce something meaningfully different):\n")
		for i, p := range req.PreviousPrompts {
			fmt.Fprintf(&b, "%d. %s\n", i+1, p)
		}
	}

	if len(req.FailureExamples) > 0 {
		b.WriteString("\nDocuments the current instruction gets wrong:\n")
		for _, ex := range req.FailureExamples {
			fmt.Fprintf(&b, "- %s: expected %q, got %q\n", ex.DocName, ex.GroundTruth, ex.Extracted)
			if ex.Analysis != "" {
				fmt.Fprintf(&b, "  analysis: %s\n", ex.Analysis)
			}
		}
	}

	if len(req.SuccessExamples) > 0 {
		b.WriteString("\nDocuments it already gets right (do not regress these):\n")
		for _, ex := range req.SuccessExamples {
			fmt.Fprintf(&b, "- %s: %q\n", ex.DocName, ex.GroundTruth)
		}
	}

	if req.CustomInstructions != "" {
		fmt.Fprintf(&b, "\nAdditional requirements:\n%s\n", req.CustomInstructions)
	}

	if len(req.RepairNotes) > 0 {
		b.WriteString("\nThe previous rewrite violated these rules; fix them:\n")
		for _, note := range req.RepairNotes {
			fmt.Fprintf(&b, "- %s\n", note)
		}
	}

	b.WriteString("\nRewrite the instruction. Return valid JSON.")
	return b.String()
}

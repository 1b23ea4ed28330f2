// Package extract defines the document-AI extraction collaborator and an
// Anthropic-backed implementation. The optimizer always extracts in "fields
// mode": the custom prompt under test is sent verbatim, never the provider's
// stored template prompts, which would silently defeat optimization.
package extract

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/optimizer-cli/internal/llmtext"
	"github.com/sells-group/optimizer-cli/internal/resilience"
	"github.com/sells-group/optimizer-cli/pkg/anthropic"
)

// Request identifies one field extraction from one document.
type Request struct {
	DocID     string
	FieldKey  string
	FieldType string
	Prompt    string
}

// Result is the extracted value with the provider's own confidence, when
// reported.
type Result struct {
	Value      string
	Confidence float64
}

// Service is the extraction collaborator consumed by the iteration loop.
type Service interface {
	Extract(ctx context.Context, req Request) (Result, error)
}

// DocumentSource resolves document text by ID.
type DocumentSource interface {
	DocumentText(ctx context.Context, docID string) (string, error)
}

const extractSystemText = "You are a document data extraction engine. Follow the field instruction exactly. Return a valid JSON object: {\"value\": \"<extracted value>\", \"confidence\": <0.0-1.0>}. If the field does not occur in the document, return {\"value\": \"Not Present\", \"confidence\": 1.0}."

const extractPromptTemplate = `Field: %s (%s)

Instruction:
%s

Document:
%s

Extract the field per the instruction. Return valid JSON.`

// maxDocumentChars truncates document text sent per extraction call.
const maxDocumentChars = 24000

// AnthropicService extracts fields by prompting a Claude model with the
// document text and the instruction under test.
type AnthropicService struct {
	client  anthropic.Client
	docs    DocumentSource
	model   string
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewAnthropicService creates an extraction service. rps caps request
// throughput; zero or negative disables limiting.
func NewAnthropicService(client anthropic.Client, docs DocumentSource, model string, rps float64) *AnthropicService {
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger("anthropic", "extract")
	return &AnthropicService{
		client:  client,
		docs:    docs,
		model:   model,
		limiter: limiter,
		retry:   cfg,
	}
}

// Extract runs one fields-mode extraction.
func (s *AnthropicService) Extract(ctx context.Context, req Request) (Result, error) {
	text, err := s.docs.DocumentText(ctx, req.DocID)
	if err != nil {
		return Result{}, eris.Wrapf(err, "extract: document %s", req.DocID)
	}
	if len(text) > maxDocumentChars {
		text = text[:maxDocumentChars]
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return Result{}, eris.Wrap(err, "extract: rate limit wait")
		}
	}

	prompt := fmt.Sprintf(extractPromptTemplate, req.FieldKey, req.FieldType, req.Prompt, text)

	resp, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return s.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     s.model,
			MaxTokens: 1024,
			System:    anthropic.BuildCachedSystemBlocks(extractSystemText),
			Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
		})
	})
	if err != nil {
		return Result{}, eris.Wrapf(err, "extract: field %s doc %s", req.FieldKey, req.DocID)
	}

	raw := resp.Text()
	value := llmtext.Field(raw, "value", "answer", "extracted_value")
	confidence := 0.0
	if obj, ok := llmtext.ParseObject(raw); ok {
		if c, isNum := obj["confidence"].(float64); isNum {
			confidence = c
		}
	}
	return Result{Value: value, Confidence: confidence}, nil
}

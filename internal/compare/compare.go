// Package compare classifies (predicted, ground truth) pairs as match or
// no-match under a per-field strategy and aggregates the outcomes into
// confusion-matrix metrics.
package compare

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/optimizer-cli/internal/model"
)

// Verdict is a semantic judge's decision for one pair.
type Verdict struct {
	IsMatch bool
	Reason  string
}

// Judge is the external semantic-judge collaborator used by the llm-judge
// strategy.
type Judge interface {
	Judge(ctx context.Context, extracted, groundTruth, comparisonPrompt, docID string) (Verdict, error)
}

// Comparer dispatches comparisons to the configured strategy. All strategies
// are pure and deterministic except llm-judge, which delegates to the judge
// collaborator and falls back to near-exact-string on error.
type Comparer struct {
	judge Judge
}

// New creates a Comparer. A nil judge downgrades llm-judge comparisons to
// the near-exact fallback.
func New(judge Judge) *Comparer {
	return &Comparer{judge: judge}
}

// Compare classifies one (predicted, ground truth) pair under cfg.
func (c *Comparer) Compare(ctx context.Context, predicted, groundTruth string, cfg model.CompareConfig) model.ComparisonResult {
	return c.compareWithDoc(ctx, predicted, groundTruth, "", cfg)
}

// CompareForDoc is Compare with a document ID passed through to the judge
// for document-context lookups.
func (c *Comparer) CompareForDoc(ctx context.Context, predicted, groundTruth, docID string, cfg model.CompareConfig) model.ComparisonResult {
	return c.compareWithDoc(ctx, predicted, groundTruth, docID, cfg)
}

func (c *Comparer) compareWithDoc(ctx context.Context, predicted, groundTruth, docID string, cfg model.CompareConfig) model.ComparisonResult {
	if res, done := specialCases(predicted, groundTruth, cfg); done {
		return res
	}

	if cfg.CompareType == model.CompareBoolean {
		// Not Present means the box is unchecked; mapped before dispatch.
		if model.IsNotPresent(predicted) {
			predicted = "No"
		}
		if model.IsNotPresent(groundTruth) {
			groundTruth = "No"
		}
	}

	switch cfg.CompareType {
	case model.CompareExactString:
		return compareExactString(predicted, groundTruth)
	case model.CompareNearExact:
		return compareNearExact(predicted, groundTruth)
	case model.CompareExactNumber:
		return compareExactNumber(predicted, groundTruth)
	case model.CompareDateExact:
		return compareDateExact(predicted, groundTruth)
	case model.CompareBoolean:
		return compareBoolean(predicted, groundTruth)
	case model.CompareListUnord:
		return compareList(predicted, groundTruth, cfg, false)
	case model.CompareListOrdered:
		return compareList(predicted, groundTruth, cfg, true)
	case model.CompareLLMJudge:
		return c.compareJudge(ctx, predicted, groundTruth, docID, cfg)
	default:
		return compareNearExact(predicted, groundTruth)
	}
}

// Preview is a synchronous variant for contexts that cannot await the judge
// collaborator. Its llm-judge branch always uses the near-exact fallback.
func Preview(predicted, groundTruth string, cfg model.CompareConfig) model.ComparisonResult {
	if cfg.CompareType == model.CompareLLMJudge {
		cfg.CompareType = model.CompareNearExact
	}
	return (&Comparer{}).compareWithDoc(context.Background(), predicted, groundTruth, "", cfg)
}

// specialCases evaluates sentinel inputs before strategy dispatch. Returns
// done=false when strategy dispatch should proceed.
func specialCases(predicted, groundTruth string, cfg model.CompareConfig) (model.ComparisonResult, bool) {
	p := strings.TrimSpace(predicted)
	g := strings.TrimSpace(groundTruth)

	if p == "" && g == "" {
		return model.ComparisonResult{
			IsMatch:        true,
			Confidence:     model.ConfidenceHigh,
			MatchType:      cfg.CompareType,
			Classification: model.MatchExact,
			Details:        "both values empty",
		}, true
	}

	if model.IsNotPresent(p) && model.IsNotPresent(g) {
		return model.ComparisonResult{
			IsMatch:        true,
			Confidence:     model.ConfidenceHigh,
			MatchType:      cfg.CompareType,
			Classification: model.MatchExact,
			Details:        "field absent in both",
		}, true
	}

	// Boolean fields fold Not Present into "No" during dispatch instead.
	if cfg.CompareType != model.CompareBoolean {
		if model.IsNotPresent(p) != model.IsNotPresent(g) {
			return model.ComparisonResult{
				IsMatch:        false,
				Confidence:     model.ConfidenceHigh,
				MatchType:      cfg.CompareType,
				Classification: model.MatchNone,
				Details:        "exactly one side is Not Present",
			}, true
		}
	}

	if model.IsPendingOrError(p) {
		return model.ComparisonResult{
			IsMatch:        false,
			Confidence:     model.ConfidenceHigh,
			MatchType:      cfg.CompareType,
			Classification: model.MatchNone,
			Details:        "prediction is a pending/error marker",
			Skipped:        true,
		}, true
	}

	return model.ComparisonResult{}, false
}

func compareExactString(predicted, groundTruth string) model.ComparisonResult {
	if predicted == groundTruth {
		return model.ComparisonResult{
			IsMatch:        true,
			Confidence:     model.ConfidenceHigh,
			MatchType:      model.CompareExactString,
			Classification: model.MatchExact,
		}
	}
	return model.ComparisonResult{
		IsMatch:        false,
		Confidence:     model.ConfidenceHigh,
		MatchType:      model.CompareExactString,
		Classification: model.MatchNone,
	}
}

// defaultJudgePrompt is used when a field's compare config carries no
// comparison prompt of its own.
const defaultJudgePrompt = "Decide whether the extracted value and the expected value refer to the same fact. Minor formatting, abbreviation, and phrasing differences do not matter; substantive differences do."

func (c *Comparer) compareJudge(ctx context.Context, predicted, groundTruth, docID string, cfg model.CompareConfig) model.ComparisonResult {
	prompt := cfg.Parameters["comparison_prompt"]
	if prompt == "" {
		prompt = defaultJudgePrompt
	}

	if c.judge == nil {
		res := compareNearExact(predicted, groundTruth)
		res.MatchType = model.CompareLLMJudge
		res.Details = appendDetail(res.Details, "no judge configured, near-exact fallback")
		return res
	}

	verdict, err := c.judge.Judge(ctx, predicted, groundTruth, prompt, docID)
	if err != nil {
		zap.L().Warn("compare: judge failed, falling back to near-exact",
			zap.String("field", cfg.FieldKey),
			zap.Error(err),
		)
		res := compareNearExact(predicted, groundTruth)
		res.MatchType = model.CompareLLMJudge
		res.Details = appendDetail(res.Details, fmt.Sprintf("judge error, near-exact fallback: %v", err))
		res.Error = err.Error()
		return res
	}

	cls := model.MatchNone
	if verdict.IsMatch {
		cls = model.MatchNormalized
	}
	return model.ComparisonResult{
		IsMatch: verdict.IsMatch,
		// Judge verdicts are non-deterministic, so never report high.
		Confidence:     model.ConfidenceMedium,
		MatchType:      model.CompareLLMJudge,
		Classification: cls,
		Details:        verdict.Reason,
	}
}

func appendDetail(existing, extra string) string {
	if existing == "" {
		return extra
	}
	return existing + "; " + extra
}

package model

import "time"

// FailureExample captures one training document the current prompt got wrong,
// fed back to the prompt generator on the next iteration.
type FailureExample struct {
	DocID       string `json:"doc_id"`
	DocName     string `json:"doc_name"`
	GroundTruth string `json:"ground_truth"`
	Extracted   string `json:"extracted"`
	Analysis    string `json:"analysis,omitempty"`
}

// IterationResult is the outcome of one iteration of one field's
// optimization loop.
type IterationResult struct {
	NewPrompt       string           `json:"new_prompt"`
	Accuracy        float64          `json:"accuracy"`
	Converged       bool             `json:"converged"`
	FailureExamples []FailureExample `json:"failure_examples,omitempty"`
}

// ExperimentMetadata records how a field's optimization was configured and
// what it cost, for later review.
type ExperimentMetadata struct {
	TestModel          string  `json:"test_model"`
	MaxIterations      int     `json:"max_iterations"`
	TargetAccuracy     float64 `json:"target_accuracy"`
	HoldoutAccuracy    float64 `json:"holdout_accuracy,omitempty"`
	HoldoutChecked     bool    `json:"holdout_checked"`
	DeterministicMode  bool    `json:"deterministic_mode"`
	PromptsTried       int     `json:"prompts_tried"`
	AnalysisIterations int     `json:"analysis_iterations"`
	RejectedPrompt     string  `json:"rejected_prompt,omitempty"`
	RejectedAccuracy   float64 `json:"rejected_accuracy,omitempty"`
}

// FieldResult is the terminal artifact of one field's optimization, returned
// to the caller for human approval before any persistence happens elsewhere.
type FieldResult struct {
	FieldKey        string             `json:"field_key"`
	FieldName       string             `json:"field_name"`
	InitialAccuracy float64            `json:"initial_accuracy"`
	FinalAccuracy   float64            `json:"final_accuracy"`
	IterationCount  int                `json:"iteration_count"`
	InitialPrompt   string             `json:"initial_prompt"`
	FinalPrompt     string             `json:"final_prompt"`
	Converged       bool               `json:"converged"`
	Improved        bool               `json:"improved"`
	SampledDocIDs   []string           `json:"sampled_doc_ids"`
	Metadata        ExperimentMetadata `json:"metadata"`
	Error           string             `json:"error,omitempty"`
}

// UsageSummary totals the token consumption of a run.
type UsageSummary struct {
	InputTokens      int64   `json:"input_tokens"`
	OutputTokens     int64   `json:"output_tokens"`
	CacheReadTokens  int64   `json:"cache_read_tokens"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}

// RunReport aggregates all field results of one optimization run. Never
// mutated after all fields complete.
type RunReport struct {
	RunID         string        `json:"run_id"`
	Results       []FieldResult `json:"results"`
	TestModel     string        `json:"test_model"`
	SampledDocIDs []string      `json:"sampled_doc_ids"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
	Usage         UsageSummary  `json:"usage"`
}

// ImprovedCount returns how many fields ended with an adopted prompt.
func (r *RunReport) ImprovedCount() int {
	n := 0
	for _, fr := range r.Results {
		if fr.Improved {
			n++
		}
	}
	return n
}

// ConvergedCount returns how many fields reached the accuracy target.
func (r *RunReport) ConvergedCount() int {
	n := 0
	for _, fr := range r.Results {
		if fr.Converged {
			n++
		}
	}
	return n
}

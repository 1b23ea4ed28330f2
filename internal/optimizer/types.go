// Package optimizer drives extraction-prompt optimization: a per-field
// iteration state machine fanned out across fields with bounded parallelism.
package optimizer

// RunConfig holds all knobs for one optimization run. Feature toggles live
// here explicitly instead of in process-wide state.
type RunConfig struct {
	TestModel             string  `json:"test_model"`
	MaxDocs               int     `json:"max_docs"`
	MaxIterations         int     `json:"max_iterations"`
	TargetAccuracy        float64 `json:"target_accuracy"`
	HoldoutRatio          float64 `json:"holdout_ratio"`
	HoldoutThreshold      float64 `json:"holdout_threshold"`
	Deterministic         bool    `json:"deterministic"`
	FieldConcurrency      int     `json:"field_concurrency"`
	ExtractionConcurrency int     `json:"extraction_concurrency"`
	AnalysisIterations    int     `json:"analysis_iterations"`
	RepairAttempts        int     `json:"repair_attempts"`
	DocTypeHint           string  `json:"doc_type_hint,omitempty"`
	CustomInstructions    string  `json:"custom_instructions,omitempty"`
}

// WithDefaults fills unset RunConfig fields with production defaults.
func (c RunConfig) WithDefaults() RunConfig {
	if c.MaxDocs <= 0 {
		c.MaxDocs = 10
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = 5
	}
	if c.TargetAccuracy <= 0 {
		c.TargetAccuracy = 1.0
	}
	if c.HoldoutThreshold <= 0 {
		c.HoldoutThreshold = 0.8
	}
	if c.FieldConcurrency <= 0 {
		c.FieldConcurrency = 3
	}
	if c.ExtractionConcurrency <= 0 {
		c.ExtractionConcurrency = 5
	}
	if c.AnalysisIterations < 0 {
		c.AnalysisIterations = 0
	}
	if c.RepairAttempts <= 0 {
		c.RepairAttempts = 2
	}
	return c
}

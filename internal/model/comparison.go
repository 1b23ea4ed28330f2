package model

import "strings"

// NotPresent is the sentinel value meaning the field does not occur in the
// document. Distinct from an empty or failed extraction.
const NotPresent = "Not Present"

// pendingMarkers are prefixes of predicted values that indicate an extraction
// that never produced a real value. Pairs carrying one are excluded from
// metrics rather than scored.
var pendingMarkers = []string{
	"Pending",
	"[Pending",
	"Error:",
	"[Error",
	"Extraction failed",
	"Not found in document",
}

// IsNotPresent reports whether v equals the not-present sentinel, ignoring
// case and surrounding whitespace.
func IsNotPresent(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), NotPresent)
}

// IsPendingOrError reports whether v begins with a pending/error marker.
func IsPendingOrError(v string) bool {
	t := strings.TrimSpace(v)
	for _, m := range pendingMarkers {
		if strings.HasPrefix(t, m) {
			return true
		}
	}
	return false
}

// Confidence expresses how reliable a match decision is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// MatchClassification refines a match decision beyond the boolean result.
type MatchClassification string

const (
	MatchExact           MatchClassification = "exact"
	MatchNormalized      MatchClassification = "normalized"
	MatchPartial         MatchClassification = "partial"
	MatchDifferentFormat MatchClassification = "different-format"
	MatchNone            MatchClassification = "none"
)

// ComparisonResult is the outcome of comparing one (predicted, ground truth)
// pair. Produced fresh for every comparison; never persisted beyond the
// metrics aggregation that consumes it.
type ComparisonResult struct {
	IsMatch        bool                `json:"is_match"`
	Confidence     Confidence          `json:"confidence"`
	MatchType      CompareType         `json:"match_type"`
	Classification MatchClassification `json:"classification"`
	Details        string              `json:"details,omitempty"`
	Error          string              `json:"error,omitempty"`
	Skipped        bool                `json:"skipped,omitempty"`
}

// FieldMetrics aggregates per-document comparison outcomes for one field
// into confusion-matrix metrics.
type FieldMetrics struct {
	Accuracy       float64 `json:"accuracy"`
	Precision      float64 `json:"precision"`
	Recall         float64 `json:"recall"`
	F1             float64 `json:"f1"`
	TruePositives  int     `json:"true_positives"`
	TrueNegatives  int     `json:"true_negatives"`
	FalsePositives int     `json:"false_positives"`
	FalseNegatives int     `json:"false_negatives"`
	ValidPairs     int     `json:"valid_pairs"`
	SkippedPairs   int     `json:"skipped_pairs"`
}

package compare

import (
	"strings"

	"github.com/sells-group/optimizer-cli/internal/model"
)

// parseBool parses the yes/no variants seen in extracted form fields.
func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "t", "1", "checked", "x":
		return true, true
	case "no", "n", "false", "f", "0", "unchecked":
		return false, true
	}
	return false, false
}

// compareBoolean parses both sides and compares. Fails closed: either side
// unparseable means no-match.
func compareBoolean(predicted, groundTruth string) model.ComparisonResult {
	pv, pok := parseBool(predicted)
	gv, gok := parseBool(groundTruth)

	if !pok || !gok {
		return model.ComparisonResult{
			IsMatch:        false,
			Confidence:     model.ConfidenceHigh,
			MatchType:      model.CompareBoolean,
			Classification: model.MatchNone,
			Details:        "unparseable boolean",
		}
	}

	if pv != gv {
		return model.ComparisonResult{
			IsMatch:        false,
			Confidence:     model.ConfidenceHigh,
			MatchType:      model.CompareBoolean,
			Classification: model.MatchNone,
		}
	}

	cls := model.MatchNormalized
	if strings.EqualFold(strings.TrimSpace(predicted), strings.TrimSpace(groundTruth)) {
		cls = model.MatchExact
	}
	return model.ComparisonResult{
		IsMatch:        true,
		Confidence:     model.ConfidenceHigh,
		MatchType:      model.CompareBoolean,
		Classification: cls,
	}
}

package compare

import (
	"math"
	"strconv"
	"strings"

	"github.com/sells-group/optimizer-cli/internal/model"
)

var currencyReplacer = strings.NewReplacer(
	"$", "", "€", "", "£", "", "¥", "",
	"usd", "", "USD", "",
	",", "", " ", "",
)

// parseNumber strips currency symbols, thousands separators, and percent
// signs, then parses the remainder as a float.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = currencyReplacer.Replace(s)
	s = strings.TrimSuffix(s, "%")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// compareExactNumber compares numeric equality after stripping formatting.
// Equal numbers with differing raw strings are flagged different-format,
// which still counts as a match for numbers.
func compareExactNumber(predicted, groundTruth string) model.ComparisonResult {
	pv, pok := parseNumber(predicted)
	gv, gok := parseNumber(groundTruth)

	if !pok || !gok {
		return model.ComparisonResult{
			IsMatch:        false,
			Confidence:     model.ConfidenceHigh,
			MatchType:      model.CompareExactNumber,
			Classification: model.MatchNone,
			Details:        "unparseable number",
		}
	}

	if math.Abs(pv-gv) > 1e-9 {
		return model.ComparisonResult{
			IsMatch:        false,
			Confidence:     model.ConfidenceHigh,
			MatchType:      model.CompareExactNumber,
			Classification: model.MatchNone,
		}
	}

	if strings.TrimSpace(predicted) == strings.TrimSpace(groundTruth) {
		return model.ComparisonResult{
			IsMatch:        true,
			Confidence:     model.ConfidenceHigh,
			MatchType:      model.CompareExactNumber,
			Classification: model.MatchExact,
		}
	}
	return model.ComparisonResult{
		IsMatch:        true,
		Confidence:     model.ConfidenceHigh,
		MatchType:      model.CompareExactNumber,
		Classification: model.MatchDifferentFormat,
		Details:        "equal numbers, different formatting",
	}
}

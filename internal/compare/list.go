package compare

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/optimizer-cli/internal/model"
)

// minListOverlap is the item-overlap fraction at which an unordered list
// comparison counts as a partial match. Tunable heuristic carried over from
// the measured behavior of the extraction service.
const minListOverlap = 0.5

// detectSeparator picks the list separator: an explicit config parameter
// wins; otherwise pipe is preferred over comma when both sides contain one.
func detectSeparator(a, b, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if strings.Contains(a, "|") && strings.Contains(b, "|") {
		return "|"
	}
	return ","
}

// splitItems splits on sep and normalizes each item identically to
// near-exact-string, dropping empties.
func splitItems(s, sep string) []string {
	parts := strings.Split(s, sep)
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if n := Normalize(p); n != "" {
			items = append(items, n)
		}
	}
	return items
}

// coreName reduces a normalized item to its first and last tokens, so
// "john a smith" and "john smith" compare equal.
func coreName(s string) string {
	tokens := strings.Fields(s)
	if len(tokens) < 2 {
		return s
	}
	return tokens[0] + " " + tokens[len(tokens)-1]
}

// itemsMatch reports whether two normalized list items refer to the same
// entry: exact, substring containment, or core-name equality.
func itemsMatch(a, b string) bool {
	if a == b {
		return true
	}
	if containsEither(a, b) {
		return true
	}
	return coreName(a) == coreName(b)
}

func compareList(predicted, groundTruth string, cfg model.CompareConfig, ordered bool) model.ComparisonResult {
	matchType := model.CompareListUnord
	if ordered {
		matchType = model.CompareListOrdered
	}

	sep := detectSeparator(predicted, groundTruth, cfg.Parameters["separator"])
	pItems := splitItems(predicted, sep)
	gItems := splitItems(groundTruth, sep)

	if len(pItems) == 0 && len(gItems) == 0 {
		return model.ComparisonResult{
			IsMatch:        true,
			Confidence:     model.ConfidenceHigh,
			MatchType:      matchType,
			Classification: model.MatchExact,
			Details:        "both lists empty",
		}
	}

	if ordered {
		return compareListOrdered(pItems, gItems, matchType)
	}
	return compareListUnordered(pItems, gItems, matchType)
}

func compareListOrdered(pItems, gItems []string, matchType model.CompareType) model.ComparisonResult {
	if len(pItems) == len(gItems) {
		equal := true
		for i := range pItems {
			if pItems[i] != gItems[i] {
				equal = false
				break
			}
		}
		if equal {
			return model.ComparisonResult{
				IsMatch:        true,
				Confidence:     model.ConfidenceHigh,
				MatchType:      matchType,
				Classification: model.MatchNormalized,
			}
		}
	}

	// Same items in a different order is a format violation, not a match.
	if sameMultiset(pItems, gItems) {
		return model.ComparisonResult{
			IsMatch:        false,
			Confidence:     model.ConfidenceHigh,
			MatchType:      matchType,
			Classification: model.MatchDifferentFormat,
			Details:        "same items, different order",
		}
	}

	return model.ComparisonResult{
		IsMatch:        false,
		Confidence:     model.ConfidenceHigh,
		MatchType:      matchType,
		Classification: model.MatchNone,
	}
}

func compareListUnordered(pItems, gItems []string, matchType model.CompareType) model.ComparisonResult {
	if sameMultiset(pItems, gItems) {
		return model.ComparisonResult{
			IsMatch:        true,
			Confidence:     model.ConfidenceHigh,
			MatchType:      matchType,
			Classification: model.MatchNormalized,
		}
	}

	// Partial credit: fraction of items with a counterpart on the other side.
	matched := 0
	used := make([]bool, len(pItems))
	for _, g := range gItems {
		for i, p := range pItems {
			if used[i] {
				continue
			}
			if itemsMatch(p, g) {
				used[i] = true
				matched++
				break
			}
		}
	}

	denom := len(gItems)
	if len(pItems) > denom {
		denom = len(pItems)
	}
	if denom > 0 && float64(matched)/float64(denom) >= minListOverlap {
		return model.ComparisonResult{
			IsMatch:        true,
			Confidence:     model.ConfidenceMedium,
			MatchType:      matchType,
			Classification: model.MatchPartial,
			Details:        fmt.Sprintf("%d/%d items matched", matched, denom),
		}
	}

	return model.ComparisonResult{
		IsMatch:        false,
		Confidence:     model.ConfidenceHigh,
		MatchType:      matchType,
		Classification: model.MatchNone,
	}
}

func sameMultiset(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

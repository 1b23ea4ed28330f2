package compare

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/optimizer-cli/internal/model"
)

// minContainmentLen is the minimum normalized length for substring
// containment to count as a partial match. Tunable heuristic carried over
// from the measured behavior of the extraction service.
const minContainmentLen = 3

var (
	punctRe      = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
	yearsRe      = regexp.MustCompile(`\b(\d+)\s*(?:years?|yrs?)\b`)
	monthsRe     = regexp.MustCompile(`\b(\d+)\s*(?:months?|mos?)\b`)
)

var diacriticFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize standardizes a value for near-exact comparison:
// lowercase, diacritics folded, spelled-out numbers 0-1000 converted to
// digits, durations folded to months, punctuation stripped, whitespace
// collapsed.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	if folded, _, err := transform.String(diacriticFolder, s); err == nil {
		s = folded
	}

	s = punctRe.ReplaceAllString(s, " ")
	s = wordsToDigits(s)
	s = foldDurations(s)
	s = multiSpaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// foldDurations rewrites year/month duration expressions into a common
// month unit so "2 years" and "24 months" normalize identically.
func foldDurations(s string) string {
	s = yearsRe.ReplaceAllStringFunc(s, func(m string) string {
		digits := yearsRe.FindStringSubmatch(m)[1]
		n, err := strconv.Atoi(digits)
		if err != nil {
			return m
		}
		return strconv.Itoa(n*12) + " months"
	})
	s = monthsRe.ReplaceAllStringFunc(s, func(m string) string {
		digits := monthsRe.FindStringSubmatch(m)[1]
		return digits + " months"
	})
	return s
}

var numberUnits = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9,
	"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14,
	"fifteen": 15, "sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19,
}

var numberTens = map[string]int{
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
}

// wordsToDigits converts spelled-out numbers up to one thousand into digits.
// Operates on already-lowercased, punctuation-free text.
func wordsToDigits(s string) string {
	words := strings.Fields(s)
	var out []string

	for i := 0; i < len(words); i++ {
		value, consumed, ok := parseNumberWords(words[i:])
		if !ok {
			out = append(out, words[i])
			continue
		}
		out = append(out, strconv.Itoa(value))
		i += consumed - 1
	}
	return strings.Join(out, " ")
}

// parseNumberWords reads a spelled-out number from the front of words and
// returns its value and how many tokens it consumed.
func parseNumberWords(words []string) (value, consumed int, ok bool) {
	if len(words) == 0 {
		return 0, 0, false
	}

	total := 0
	i := 0

	if words[i] == "one" && i+1 < len(words) && words[i+1] == "thousand" {
		return 1000, 2, true
	}

	// Optional hundreds part: "three hundred [and] ..."
	if u, isUnit := numberUnits[words[i]]; isUnit && u >= 1 && u <= 9 && i+1 < len(words) && words[i+1] == "hundred" {
		total = u * 100
		i += 2
		if i < len(words) && words[i] == "and" {
			i++
		}
		if i >= len(words) {
			return total, i, true
		}
	}

	if t, isTens := numberTens[words[i]]; isTens {
		total += t
		i++
		if i < len(words) {
			if u, isUnit := numberUnits[words[i]]; isUnit && u >= 1 && u <= 9 {
				total += u
				i++
			}
		}
		return total, i, true
	}

	if u, isUnit := numberUnits[words[i]]; isUnit {
		total += u
		i++
		return total, i, true
	}

	if total > 0 {
		return total, i, true
	}
	return 0, 0, false
}

// compareNearExact normalizes both sides and compares. Pipe/comma-delimited
// multi-value fields match when any sub-item matches; substring containment
// of at least minContainmentLen characters is a medium-confidence partial
// match.
func compareNearExact(predicted, groundTruth string) model.ComparisonResult {
	if predicted == groundTruth {
		return model.ComparisonResult{
			IsMatch:        true,
			Confidence:     model.ConfidenceHigh,
			MatchType:      model.CompareNearExact,
			Classification: model.MatchExact,
		}
	}

	p := Normalize(predicted)
	g := Normalize(groundTruth)

	if p == g && p != "" {
		return model.ComparisonResult{
			IsMatch:        true,
			Confidence:     model.ConfidenceHigh,
			MatchType:      model.CompareNearExact,
			Classification: model.MatchNormalized,
		}
	}

	// Multi-value fields: any sub-item match counts.
	if isMultiValue(predicted) || isMultiValue(groundTruth) {
		for _, pi := range splitMultiValue(predicted) {
			for _, gi := range splitMultiValue(groundTruth) {
				if pi != "" && pi == gi {
					return model.ComparisonResult{
						IsMatch:        true,
						Confidence:     model.ConfidenceMedium,
						MatchType:      model.CompareNearExact,
						Classification: model.MatchPartial,
						Details:        "sub-item match on multi-value field",
					}
				}
			}
		}
	}

	if containsEither(p, g) {
		return model.ComparisonResult{
			IsMatch:        true,
			Confidence:     model.ConfidenceMedium,
			MatchType:      model.CompareNearExact,
			Classification: model.MatchPartial,
			Details:        "substring containment",
		}
	}

	return model.ComparisonResult{
		IsMatch:        false,
		Confidence:     model.ConfidenceHigh,
		MatchType:      model.CompareNearExact,
		Classification: model.MatchNone,
	}
}

func isMultiValue(s string) bool {
	return strings.Contains(s, "|") || strings.Contains(s, ",")
}

func splitMultiValue(s string) []string {
	sep := ","
	if strings.Contains(s, "|") {
		sep = "|"
	}
	parts := strings.Split(s, sep)
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if n := Normalize(p); n != "" {
			items = append(items, n)
		}
	}
	return items
}

// containsEither reports substring containment in either direction, with
// both sides at least minContainmentLen long.
func containsEither(a, b string) bool {
	if len(a) < minContainmentLen || len(b) < minContainmentLen {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

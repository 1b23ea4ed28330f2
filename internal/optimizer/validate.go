package optimizer

import "strings"

// Structural rules every generated prompt must satisfy before it is tested.
// Each rule is phrased as an instruction so violations feed straight back to
// the generator as repair notes.
const (
	ruleMinLength      = "the instruction must be at least 150 characters of substantive guidance"
	ruleLocation       = "the instruction must say where in the document the field appears"
	ruleSynonyms       = "the instruction must list synonyms or label variants the field may appear under"
	ruleOutputFormat   = "the instruction must specify the exact output format to return"
	ruleAbsence        = "the instruction must say what to return when the field is absent"
	ruleDisambiguation = "the instruction must disambiguate the field from similar nearby fields"
)

var locationMarkers = []string{
	"section", "clause", "page", "paragraph", "header", "heading",
	"table", "located", "appears", "found in", "found near", "look for", "search",
}

var synonymMarkers = []string{
	"synonym", "also called", "also known as", "also referred",
	"labeled", "label", "may appear as", "variant", "such as", "phrased",
}

var formatMarkers = []string{
	"format", "return only", "return the", "return a", "return it",
	"as written", "yyyy", "separated by", "respond with",
}

var absenceMarkers = []string{
	"not present", "not found", "not stated", "absent", "missing",
	"does not contain", "does not state", "is silent", "cannot be found",
}

var disambiguationMarkers = []string{
	"do not", "don't", "not the", "rather than", "as opposed to",
	"distinguish", "ignore", "confuse", "instead of", "unless",
}

// ValidatePrompt checks a candidate prompt against the structural checklist
// and returns one note per violated rule. An empty slice means the prompt is
// acceptable.
func ValidatePrompt(prompt string) []string {
	p := strings.ToLower(strings.TrimSpace(prompt))

	var violations []string
	if len(p) < genericPromptMaxLen {
		violations = append(violations, ruleMinLength)
	}
	if !containsAny(p, locationMarkers) {
		violations = append(violations, ruleLocation)
	}
	if !containsAny(p, synonymMarkers) {
		violations = append(violations, ruleSynonyms)
	}
	if !containsAny(p, formatMarkers) {
		violations = append(violations, ruleOutputFormat)
	}
	if !containsAny(p, absenceMarkers) {
		violations = append(violations, ruleAbsence)
	}
	if !containsAny(p, disambiguationMarkers) {
		violations = append(violations, ruleDisambiguation)
	}
	return violations
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

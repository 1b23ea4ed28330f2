// Package sampling selects a minimal, maximally informative document set from
// past extraction failures and partitions it into training and holdout
// subsets.
package sampling

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/optimizer-cli/internal/accuracy"
	"github.com/sells-group/optimizer-cli/internal/model"
)

// BuildFailureMap scans every document's previously-recorded comparison
// result for the given model and collects, per field, the documents where a
// comparison exists and did not match.
func BuildFailureMap(data *accuracy.Data, fieldKeys []string, testModel string) model.FieldFailureMap {
	failures := make(model.FieldFailureMap)
	for _, key := range fieldKeys {
		for _, doc := range data.Documents {
			out, ok := doc.Outcome(key, testModel)
			if !ok || !out.Compared || out.IsMatch {
				continue
			}
			failures[key] = append(failures[key], model.FieldFailureDetail{
				DocID:            doc.DocID,
				DocName:          doc.DocName,
				GroundTruth:      out.GroundTruth,
				ExtractedValue:   out.Extracted,
				ComparisonReason: out.Reason,
			})
		}
	}
	return failures
}

// docCandidate accumulates the failing fields of one document.
type docCandidate struct {
	docID   string
	docName string
	fields  map[string]bool
}

// SelectDocs chooses up to maxDocs documents via greedy weighted set-cover:
// each round picks the document covering the most not-yet-covered failing
// fields. When no candidate adds coverage the remaining failing documents are
// appended for statistical robustness, then (if a document universe is given)
// documents with no failures at all pad the rest, since a prompt must keep
// passing on documents it never failed on.
//
// Ties on coverage score are broken by lexicographic document ID so selection
// is deterministic regardless of map iteration order.
func SelectDocs(failures model.FieldFailureMap, maxDocs int, allDocIDs []string, holdoutRatio float64) *model.SamplingResult {
	result := &model.SamplingResult{
		FieldToDocIDs: make(map[string][]string),
	}
	if maxDocs <= 0 {
		return result
	}

	// Index candidates by document.
	candidates := make(map[string]*docCandidate)
	for fieldKey, details := range failures {
		for _, d := range details {
			c, ok := candidates[d.DocID]
			if !ok {
				c = &docCandidate{docID: d.DocID, docName: d.DocName, fields: make(map[string]bool)}
				candidates[d.DocID] = c
			}
			c.fields[fieldKey] = true
		}
	}

	ordered := make([]*docCandidate, 0, len(candidates))
	for _, c := range candidates {
		ordered = append(ordered, c)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].docID < ordered[j].docID })

	covered := make(map[string]bool)
	selected := make(map[string]bool)

	// Greedy phase: maximize newly-covered fields per pick.
	for len(result.SelectedDocs) < maxDocs {
		var best *docCandidate
		bestGain := 0
		for _, c := range ordered {
			if selected[c.docID] {
				continue
			}
			gain := 0
			for f := range c.fields {
				if !covered[f] {
					gain++
				}
			}
			if gain > bestGain {
				best = c
				bestGain = gain
			}
		}
		if best == nil {
			break
		}
		appendDoc(result, best, selected, covered)
	}

	// Robustness phase: remaining failing documents without the coverage
	// constraint.
	for _, c := range ordered {
		if len(result.SelectedDocs) >= maxDocs {
			break
		}
		if selected[c.docID] {
			continue
		}
		appendDoc(result, c, selected, covered)
	}

	// Regression phase: pad with documents that never failed.
	for _, docID := range allDocIDs {
		if len(result.SelectedDocs) >= maxDocs {
			break
		}
		if selected[docID] {
			continue
		}
		selected[docID] = true
		result.SelectedDocs = append(result.SelectedDocs, model.SelectedDoc{DocID: docID})
	}

	// Every field is validated against the full selected set, failing and
	// passing documents alike.
	allSelected := result.DocIDs()
	for fieldKey := range failures {
		result.FieldToDocIDs[fieldKey] = allSelected
	}

	result.TrainDocIDs, result.HoldoutDocIDs = SplitTrainHoldout(allSelected, holdoutRatio)

	zap.L().Debug("sampling: documents selected",
		zap.Int("selected", len(result.SelectedDocs)),
		zap.Int("train", len(result.TrainDocIDs)),
		zap.Int("holdout", len(result.HoldoutDocIDs)),
		zap.Int("fields_covered", len(covered)),
	)
	return result
}

func appendDoc(result *model.SamplingResult, c *docCandidate, selected, covered map[string]bool) {
	selected[c.docID] = true
	keys := make([]string, 0, len(c.fields))
	for f := range c.fields {
		covered[f] = true
		keys = append(keys, f)
	}
	sort.Strings(keys)
	result.SelectedDocs = append(result.SelectedDocs, model.SelectedDoc{
		DocID:            c.docID,
		DocName:          c.docName,
		CoveredFieldKeys: keys,
	})
}

// SplitTrainHoldout partitions docIDs into training and holdout subsets.
// Fewer than 3 documents or a non-positive ratio yields an empty holdout:
// holdout validation needs a minimally meaningful sample. The holdout count
// is round(total*ratio), forced up to 1 when rounding produced 0 with a
// positive ratio, and capped at floor(total/2). The holdout is taken from
// the tail: the greedy phase puts the most diagnostic documents first, and
// training should keep those.
func SplitTrainHoldout(docIDs []string, holdoutRatio float64) (train, holdout []string) {
	total := len(docIDs)
	if total < 3 || holdoutRatio <= 0 {
		return append([]string(nil), docIDs...), nil
	}

	n := int(math.Round(float64(total) * holdoutRatio))
	if n == 0 {
		n = 1
	}
	if limit := total / 2; n > limit {
		n = limit
	}

	cut := total - n
	return append([]string(nil), docIDs[:cut]...), append([]string(nil), docIDs[cut:]...)
}

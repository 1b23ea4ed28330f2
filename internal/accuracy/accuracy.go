// Package accuracy loads previously-measured extraction results: for each
// document, per-field and per-model extracted values, ground truth, and the
// recorded match decision. This is the read-only input to an optimization run.
package accuracy

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
)

// FieldOutcome is one field's recorded comparison for one document and model.
type FieldOutcome struct {
	GroundTruth string `json:"ground_truth"`
	Extracted   string `json:"extracted"`
	Compared    bool   `json:"compared"`
	IsMatch     bool   `json:"is_match"`
	Reason      string `json:"reason,omitempty"`
}

// DocumentResult holds all recorded outcomes for one document.
// Fields maps field key → model identifier → outcome.
type DocumentResult struct {
	DocID   string                             `json:"doc_id"`
	DocName string                             `json:"doc_name"`
	Fields  map[string]map[string]FieldOutcome `json:"fields"`
}

// Data is the full accuracy dataset for a document template.
type Data struct {
	TemplateName string           `json:"template_name,omitempty"`
	Documents    []DocumentResult `json:"documents"`
}

// Load reads an accuracy dataset from a JSON file.
func Load(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "accuracy: read file")
	}
	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, eris.Wrap(err, "accuracy: parse")
	}
	if len(data.Documents) == 0 {
		return nil, eris.New("accuracy: no documents in dataset")
	}
	return &data, nil
}

// Outcome returns the recorded outcome for a document/field/model triple.
func (d *DocumentResult) Outcome(fieldKey, model string) (FieldOutcome, bool) {
	byModel, ok := d.Fields[fieldKey]
	if !ok {
		return FieldOutcome{}, false
	}
	out, ok := byModel[model]
	return out, ok
}

// DocIDs returns all document IDs in dataset order.
func (d *Data) DocIDs() []string {
	ids := make([]string, 0, len(d.Documents))
	for _, doc := range d.Documents {
		ids = append(ids, doc.DocID)
	}
	return ids
}

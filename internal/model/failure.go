package model

// FieldFailureDetail records one document where a field's extraction did not
// match ground truth. Built from previously-computed comparison results and
// immutable afterwards.
type FieldFailureDetail struct {
	DocID            string `json:"doc_id"`
	DocName          string `json:"doc_name"`
	GroundTruth      string `json:"ground_truth"`
	ExtractedValue   string `json:"extracted_value"`
	ComparisonReason string `json:"comparison_reason,omitempty"`
}

// FieldFailureMap maps a field key to the ordered list of documents that
// failed for it. Built once per optimization run; read-only input to sampling.
type FieldFailureMap map[string][]FieldFailureDetail

// SelectedDoc is one document chosen by the sampler, with the failing field
// keys it covers.
type SelectedDoc struct {
	DocID            string   `json:"doc_id"`
	DocName          string   `json:"doc_name"`
	CoveredFieldKeys []string `json:"covered_field_keys"`
}

// SamplingResult is the output of document selection and train/holdout split.
//
// Every doc ID in TrainDocIDs and HoldoutDocIDs appears exactly once across
// the two lists and their union equals the IDs of SelectedDocs.
type SamplingResult struct {
	SelectedDocs  []SelectedDoc       `json:"selected_docs"`
	FieldToDocIDs map[string][]string `json:"field_to_doc_ids"`
	TrainDocIDs   []string            `json:"train_doc_ids"`
	HoldoutDocIDs []string            `json:"holdout_doc_ids"`
}

// DocIDs returns the IDs of all selected documents in selection order.
func (s *SamplingResult) DocIDs() []string {
	ids := make([]string, 0, len(s.SelectedDocs))
	for _, d := range s.SelectedDocs {
		ids = append(ids, d.DocID)
	}
	return ids
}

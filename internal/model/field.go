package model

// CompareType identifies the strategy used to judge whether an extracted
// value matches its ground truth.
type CompareType string

const (
	CompareExactString CompareType = "exact-string"
	CompareNearExact   CompareType = "near-exact-string"
	CompareLLMJudge    CompareType = "llm-judge"
	CompareExactNumber CompareType = "exact-number"
	CompareDateExact   CompareType = "date-exact"
	CompareBoolean     CompareType = "boolean"
	CompareListUnord   CompareType = "list-unordered"
	CompareListOrdered CompareType = "list-ordered"
)

// Valid reports whether t is a known compare type.
func (t CompareType) Valid() bool {
	switch t {
	case CompareExactString, CompareNearExact, CompareLLMJudge, CompareExactNumber,
		CompareDateExact, CompareBoolean, CompareListUnord, CompareListOrdered:
		return true
	}
	return false
}

// CompareConfig describes how one field's extracted values are compared
// against ground truth. Immutable during a run; deterministic mode works on
// a copy, never the caller's config.
type CompareConfig struct {
	FieldKey    string            `json:"field_key" yaml:"field_key"`
	FieldName   string            `json:"field_name" yaml:"field_name"`
	CompareType CompareType       `json:"compare_type" yaml:"compare_type"`
	Parameters  map[string]string `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// FieldDefinition describes a template field eligible for prompt optimization.
type FieldDefinition struct {
	Key       string        `json:"key" yaml:"key"`
	Name      string        `json:"name" yaml:"name"`
	FieldType string        `json:"field_type" yaml:"field_type"`
	Prompt    string        `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	Compare   CompareConfig `json:"compare" yaml:"compare"`
}

// FieldRegistry is an indexed collection of field definitions.
type FieldRegistry struct {
	Fields []FieldDefinition
	byKey  map[string]*FieldDefinition
}

// NewFieldRegistry creates a FieldRegistry with indexed lookups. Compare
// configs missing a field key or name inherit them from the definition.
func NewFieldRegistry(fields []FieldDefinition) *FieldRegistry {
	r := &FieldRegistry{
		Fields: fields,
		byKey:  make(map[string]*FieldDefinition, len(fields)),
	}
	for i := range r.Fields {
		f := &r.Fields[i]
		if f.Compare.FieldKey == "" {
			f.Compare.FieldKey = f.Key
		}
		if f.Compare.FieldName == "" {
			f.Compare.FieldName = f.Name
		}
		if f.Compare.CompareType == "" {
			f.Compare.CompareType = CompareNearExact
		}
		r.byKey[f.Key] = f
	}
	return r
}

// ByKey returns the field definition for the given key, or nil if not found.
func (r *FieldRegistry) ByKey(key string) *FieldDefinition {
	return r.byKey[key]
}

// Keys returns all field keys in registry order.
func (r *FieldRegistry) Keys() []string {
	keys := make([]string, 0, len(r.Fields))
	for _, f := range r.Fields {
		keys = append(keys, f.Key)
	}
	return keys
}

// Package registry loads field definitions from YAML: the fields eligible for
// optimization, their starting prompts, and how each is compared against
// ground truth.
package registry

import (
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/optimizer-cli/internal/model"
)

// fieldsFile is the on-disk shape of a field definitions file.
type fieldsFile struct {
	TemplateName string                  `yaml:"template_name"`
	Fields       []model.FieldDefinition `yaml:"fields"`
}

// LoadFields reads field definitions from a YAML file and returns an indexed
// registry. Definitions without a key are skipped with a warning; an invalid
// compare type is an error since silently mis-scoring a field poisons every
// run that follows.
func LoadFields(path string) (*model.FieldRegistry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "registry: read fields file")
	}

	var file fieldsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, eris.Wrap(err, "registry: parse fields file")
	}
	if len(file.Fields) == 0 {
		return nil, eris.Errorf("registry: no fields in %s", path)
	}

	fields := make([]model.FieldDefinition, 0, len(file.Fields))
	for _, f := range file.Fields {
		if f.Key == "" {
			zap.L().Warn("registry: skipping field definition without key",
				zap.String("name", f.Name))
			continue
		}
		if f.Compare.CompareType != "" && !f.Compare.CompareType.Valid() {
			return nil, eris.Errorf("registry: field %s: unknown compare type %q", f.Key, f.Compare.CompareType)
		}
		if f.Name == "" {
			f.Name = f.Key
		}
		if f.FieldType == "" {
			f.FieldType = "text"
		}
		fields = append(fields, f)
	}
	if len(fields) == 0 {
		return nil, eris.Errorf("registry: no usable fields in %s", path)
	}

	return model.NewFieldRegistry(fields), nil
}

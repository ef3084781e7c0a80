package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// schemaFile is the on-disk shape of a schema definition. Categorical
// fields declare a lookup table; numeric fields declare none.
type schemaFile struct {
	Fields []struct {
		Name   string             `yaml:"name"`
		Type   string             `yaml:"type"` // "numeric" or "categorical"
		Lookup map[string]float64 `yaml:"lookup"`
	} `yaml:"fields"`
	Label  string `yaml:"label"`
	Derive *struct {
		WeightField string `yaml:"weightField"`
		HeightField string `yaml:"heightField"`
		Target      string `yaml:"target"`
	} `yaml:"deriveBMI"`
	Drop []string `yaml:"drop"`
}

// Load reads a schema definition from a YAML file.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file %s: %w", path, err)
	}

	var file schemaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse schema file: %w", err)
	}

	s := &Schema{Label: file.Label, Drop: file.Drop}
	for _, f := range file.Fields {
		switch f.Type {
		case "numeric":
			s.Fields = append(s.Fields, Field{Name: f.Name, Kind: Numeric})
		case "categorical":
			if len(f.Lookup) == 0 {
				return nil, fmt.Errorf("categorical field %s has no lookup table", f.Name)
			}
			s.Fields = append(s.Fields, Field{Name: f.Name, Kind: Categorical, Lookup: f.Lookup})
		default:
			return nil, fmt.Errorf("field %s: unknown type %q", f.Name, f.Type)
		}
	}
	if file.Derive != nil {
		s.Derive = &BMIDerivation{
			WeightField: file.Derive.WeightField,
			HeightField: file.Derive.HeightField,
			Target:      file.Derive.Target,
		}
	}

	if len(s.Fields) == 0 {
		return nil, fmt.Errorf("schema file %s defines no fields", path)
	}
	return s, nil
}

package tuning

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const rangesSchemaURL = "schema://tuning-ranges.json"

// rangesSchema describes a valid-range file. Every property of a field is
// optional; absent properties keep the built-in value.
const rangesSchema = `{
  "type": "object",
  "required": ["activities"],
  "additionalProperties": false,
  "properties": {
    "activities": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "minProperties": 1,
        "additionalProperties": {"$ref": "#/$defs/field"}
      }
    }
  },
  "$defs": {
    "field": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "kind": {"enum": ["int", "float", "enum", "int_choice"]},
        "min": {"type": "number"},
        "max": {"type": "number"},
        "options": {"type": "array", "minItems": 1, "items": {"type": "string"}},
        "base": {"type": "array", "minItems": 3, "maxItems": 3, "items": {"type": "number"}},
        "choices": {"type": "array", "minItems": 3, "maxItems": 3, "items": {"type": "string"}},
        "slope": {"type": "number"}
      }
    }
  }
}`

var (
	compileOnce    sync.Once
	compiledRanges *jsonschema.Schema
	compileErr     error
)

func rangesValidator() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(rangesSchema))
		if err != nil {
			compileErr = fmt.Errorf("parse schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(rangesSchemaURL, doc); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledRanges, compileErr = c.Compile(rangesSchemaURL)
	})
	return compiledRanges, compileErr
}

type fieldOverride struct {
	Kind    *Kind       `json:"kind"`
	Min     *float64    `json:"min"`
	Max     *float64    `json:"max"`
	Options []string    `json:"options"`
	Base    *[3]float64 `json:"base"`
	Choices *[3]string  `json:"choices"`
	Slope   *float64    `json:"slope"`
}

type rangesFile struct {
	Activities map[ActivityType]map[string]fieldOverride `json:"activities"`
}

// LoadSpecs reads a valid-range file and merges it onto base. Known fields
// are patched property by property; new fields and new activities must give
// a kind. Only activities named in the file are returned.
func LoadSpecs(r io.Reader, base []ActivitySpec) ([]ActivitySpec, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read tuning ranges: %w", err)
	}

	validator, err := rangesValidator()
	if err != nil {
		return nil, err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := validator.Validate(doc); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var file rangesFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode tuning ranges: %w", err)
	}

	byType := make(map[ActivityType]ActivitySpec, len(base))
	for _, s := range base {
		byType[s.Type] = s
	}

	out := make([]ActivitySpec, 0, len(file.Activities))
	for activity, fields := range file.Activities {
		spec, ok := byType[activity]
		if ok {
			spec = spec.clone()
		} else {
			spec = ActivitySpec{Type: activity}
		}
		for name, ov := range fields {
			idx := -1
			for i := range spec.Fields {
				if spec.Fields[i].Name == name {
					idx = i
					break
				}
			}
			if idx < 0 {
				if ov.Kind == nil {
					return nil, fmt.Errorf("activity %q: new field %q needs a kind", activity, name)
				}
				spec.Fields = append(spec.Fields, FieldSpec{Name: name})
				idx = len(spec.Fields) - 1
			}
			ov.apply(&spec.Fields[idx])
		}
		if err := spec.Validate(); err != nil {
			return nil, err
		}
		out = append(out, spec)
	}
	return out, nil
}

// LoadSpecsFile is LoadSpecs over a file on disk.
func LoadSpecsFile(path string, base []ActivitySpec) ([]ActivitySpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tuning ranges: %w", err)
	}
	defer f.Close()
	return LoadSpecs(f, base)
}

func (o fieldOverride) apply(f *FieldSpec) {
	if o.Kind != nil {
		f.Kind = *o.Kind
	}
	if o.Min != nil {
		f.Min = *o.Min
	}
	if o.Max != nil {
		f.Max = *o.Max
	}
	if o.Options != nil {
		f.Options = o.Options
	}
	if o.Base != nil {
		f.Base = *o.Base
	}
	if o.Choices != nil {
		f.Choices = *o.Choices
	}
	if o.Slope != nil {
		f.Slope = *o.Slope
	}
}

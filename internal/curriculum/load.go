package curriculum

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

const documentSchemaURL = "schema://curriculum.json"

const documentSchema = `{
  "type": "object",
  "required": ["domains"],
  "properties": {
    "domains": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "modules"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "name": {"type": "string"},
          "modules": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["id"],
              "properties": {
                "id": {"type": "string", "minLength": 1},
                "name": {"type": "string"},
                "items": {"type": "array", "items": {"type": "string", "minLength": 1}},
                "optional_activities": {"type": "array", "items": {"type": "string"}}
              }
            }
          }
        }
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(documentSchema))
		if err != nil {
			schemaErr = fmt.Errorf("parse schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(documentSchemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("add resource: %w", err)
			return
		}
		schema, schemaErr = c.Compile(documentSchemaURL)
	})
	return schema, schemaErr
}

// Load reads a curriculum document, checks it against the curriculum JSON
// schema and the structural rules, and builds its graph.
func Load(r io.Reader) (*Graph, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read curriculum: %w", err)
	}

	s, err := compiledSchema()
	if err != nil {
		return nil, err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := s.Validate(inst); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode curriculum: %w", err)
	}
	return FromDocument(doc)
}

// LoadFile loads a curriculum from path.
func LoadFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open curriculum: %w", err)
	}
	defer f.Close()
	return Load(f)
}

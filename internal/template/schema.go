package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "templates": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "properties": {
          "name": {"type": ["string", "null"]},
          "detect_keywords": {"type": ["array", "null"], "items": {"type": "string"}},
          "fields": {
            "type": ["object", "null"],
            "additionalProperties": {
              "type": "object",
              "properties": {
                "patterns": {"type": ["array", "null"], "items": {"type": "string"}},
                "clean_html": {"type": ["boolean", "null"]},
                "clean_non_digits": {"type": ["boolean", "null"]},
                "length": {"type": ["integer", "null"], "minimum": 0},
                "fallback": {"type": ["string", "null"]}
              }
            }
          }
        }
      }
    },
    "common_fields": {
      "type": ["object", "null"],
      "properties": {
        "tax_id": {
          "type": ["object", "null"],
          "properties": {
            "patterns": {"type": ["array", "null"], "items": {"type": "string"}}
          }
        },
        "branch": {
          "type": ["object", "null"],
          "properties": {
            "patterns": {"type": ["array", "null"], "items": {"type": "string"}},
            "default_hq": {"type": ["string", "null"]},
            "pad_zeros": {"type": ["integer", "null"], "minimum": 0}
          }
        }
      }
    }
  }
}`

var compiledSchema *jsonschema.Schema

func init() {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("templates.schema.json", strings.NewReader(documentSchema)); err != nil {
		panic(fmt.Sprintf("add template schema: %v", err))
	}
	compiledSchema = compiler.MustCompile("templates.schema.json")
}

// validateDocument checks a JSON or YAML template document against the
// template schema.
func validateDocument(data []byte) error {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("re-encode document: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("unmarshal document: %w", err)
	}
	if err := compiledSchema.Validate(v); err != nil {
		return fmt.Errorf("document does not match schema: %w", err)
	}
	return nil
}

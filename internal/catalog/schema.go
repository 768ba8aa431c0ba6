package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// catalogSchema is the JSON Schema for the agent catalog document shape
// (spec.md §6): a top-level "agents" array whose entries require id,
// name, description, and system_prompt.
const catalogSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["agents"],
  "properties": {
    "agents": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "name", "description", "system_prompt"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "name": {"type": "string"},
          "description": {"type": "string"},
          "system_prompt": {"type": "string", "minLength": 1}
        }
      }
    }
  }
}`

// ValidateSchema checks raw catalog JSON against the schema shape,
// independent of the domain rules validateCatalog enforces (duplicate
// ids, active flags). Reload calls both.
func ValidateSchema(raw []byte) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("catalog.json", bytes.NewReader([]byte(catalogSchema))); err != nil {
		return fmt.Errorf("compile catalog schema: %w", err)
	}
	schema, err := compiler.Compile("catalog.json")
	if err != nil {
		return fmt.Errorf("compile catalog schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse catalog json: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("catalog does not match schema: %w", err)
	}
	return nil
}

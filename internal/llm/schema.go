package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildScheduleJSONSchema returns the records document schema as a generic
// map. It is sent to the model and used locally to validate its answer and
// record imports. Token formats are checked later by the extract package,
// so fields are only bounded here.
func BuildScheduleJSONSchema() map[string]any {
	record := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"time":         map[string]any{"type": "string", "minLength": 1, "maxLength": 16},
			"fleet_number": map[string]any{"type": "string", "minLength": 1, "maxLength": 16},
		},
		"required": []string{"time", "fleet_number"},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"records": map[string]any{"type": "array", "items": record},
		},
		"required": []string{"records"},
	}
}

// CompileSchema compiles a schema map.
func CompileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

var scheduleSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return CompileSchema(BuildScheduleJSONSchema())
})

// ValidateScheduleJSON validates data against the records document schema.
func ValidateScheduleJSON(data []byte) error {
	schema, err := scheduleSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

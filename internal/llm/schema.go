package llm

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// questionsSchemaDef is the JSON Schema the question generator's output
// must conform to. correct_answer range relative to options is checked
// separately in parseQuestions.
var questionsSchemaDef = map[string]any{
	"type":     "object",
	"required": []any{"questions"},
	"properties": map[string]any{
		"questions": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"text", "options", "correct_answer"},
				"properties": map[string]any{
					"text": map[string]any{"type": "string", "minLength": 1},
					"options": map[string]any{
						"type":     "array",
						"minItems": 2,
						"items":    map[string]any{"type": "string"},
					},
					"correct_answer": map[string]any{"type": "integer", "minimum": 0},
					"difficulty":     map[string]any{"type": "string"},
					"explanation":    map[string]any{"type": "string"},
				},
			},
		},
	},
}

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func questionsSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		// The jsonschema library expects a parsed JSON value; round-trip the
		// definition through encoding/json to normalize numeric types.
		defBytes, err := json.Marshal(questionsSchemaDef)
		if err != nil {
			schemaErr = fmt.Errorf("marshal schema definition: %w", err)
			return
		}
		var defParsed any
		if err := json.Unmarshal(defBytes, &defParsed); err != nil {
			schemaErr = fmt.Errorf("parse schema definition: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource("schema://questions.json", defParsed); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile("schema://questions.json")
	})
	return compiledSchema, schemaErr
}

// validateQuestionsJSON checks raw generator output against the questions
// schema. Returns *GenerationError on invalid JSON or shape mismatch.
func validateQuestionsJSON(raw string) error {
	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return &GenerationError{Raw: raw, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	schema, err := questionsSchema()
	if err != nil {
		return &GenerationError{Raw: raw, Err: err}
	}
	if err := schema.Validate(parsed); err != nil {
		return &GenerationError{Raw: raw, Err: fmt.Errorf("schema validation failed: %w", err)}
	}
	return nil
}

package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// boardSchemaURL names the embedded board schema resource.
const boardSchemaURL = "kolumn://board.schema.json"

// boardSchema describes the persisted board value. Columns may be absent;
// unknown top-level keys are rejected.
const boardSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "todo": {"$ref": "#/definitions/column"},
    "inProgress": {"$ref": "#/definitions/column"},
    "done": {"$ref": "#/definitions/column"}
  },
  "definitions": {
    "column": {
      "type": "array",
      "items": {"$ref": "#/definitions/task"}
    },
    "task": {
      "type": "object",
      "required": ["text", "priority"],
      "properties": {
        "id": {"type": "string"},
        "text": {"type": "string", "minLength": 1, "pattern": "\\S"},
        "priority": {"enum": ["low", "medium", "high"]}
      }
    }
  }
}`

var (
	boardSchemaOnce     sync.Once
	boardSchemaCompiled *jsonschema.Schema
	boardSchemaErr      error
)

// SchemaValidationError describes one schema violation in a snapshot payload.
type SchemaValidationError struct {
	Path    string
	Message string
}

// Error renders the schema-validation failure.
func (e SchemaValidationError) Error() string {
	path := strings.TrimSpace(e.Path)
	if path == "" {
		path = "$"
	}
	return fmt.Sprintf("%s: %s", path, e.Message)
}

func compiledBoardSchema() (*jsonschema.Schema, error) {
	boardSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft7
		if err := compiler.AddResource(boardSchemaURL, strings.NewReader(boardSchema)); err != nil {
			boardSchemaErr = fmt.Errorf("add board schema: %w", err)
			return
		}
		boardSchemaCompiled, boardSchemaErr = compiler.Compile(boardSchemaURL)
	})
	return boardSchemaCompiled, boardSchemaErr
}

// validateSnapshotPayload checks raw JSON against the board schema and
// returns the first leaf violation as a SchemaValidationError.
func validateSnapshotPayload(payload []byte) error {
	schema, err := compiledBoardSchema()
	if err != nil {
		return err
	}
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return SchemaValidationError{Path: "$", Message: fmt.Sprintf("invalid JSON payload: %v", err)}
	}
	if err := schema.Validate(decoded); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			leaf := firstLeafCause(ve)
			return SchemaValidationError{Path: jsonPointerToPath(leaf.InstanceLocation), Message: leaf.Message}
		}
		return err
	}
	return nil
}

func firstLeafCause(err *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(err.Causes) > 0 {
		err = err.Causes[0]
	}
	return err
}

// jsonPointerToPath converts "/todo/0/text" into "$.todo[0].text".
func jsonPointerToPath(pointer string) string {
	pointer = strings.TrimPrefix(pointer, "#")
	if pointer == "" || pointer == "/" {
		return "$"
	}
	var b strings.Builder
	b.WriteString("$")
	for _, part := range strings.Split(strings.TrimPrefix(pointer, "/"), "/") {
		if part != "" && strings.Trim(part, "0123456789") == "" {
			b.WriteString("[" + part + "]")
			continue
		}
		b.WriteString("." + part)
	}
	return b.String()
}

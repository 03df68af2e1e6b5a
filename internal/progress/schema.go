package progress

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const envelopeSchemaURL = "schema://worddrop/progress-export.json"

const envelopeSchema = `{
  "type": "object",
  "required": ["version", "data"],
  "properties": {
    "version": {"type": "string", "minLength": 1},
    "exportTime": {"type": "string"},
    "data": {"type": "object"}
  }
}`

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func compiledEnvelopeSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(envelopeSchema))
		if err != nil {
			compileErr = fmt.Errorf("parse schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(envelopeSchemaURL, doc); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(envelopeSchemaURL)
	})
	return compiled, compileErr
}

// validateEnvelope checks a decoded JSON document against the export schema.
func validateEnvelope(doc any) error {
	schema, err := compiledEnvelopeSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

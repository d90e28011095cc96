package environment

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed environment.schema.json
var schemaJSON []byte

const schemaURL = "environment.schema.json"

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("environment: decode schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	c.DefaultDraft(jsonschema.Draft2020)
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("environment: add schema: %w", err)
	}
	return c.Compile(schemaURL)
})

// Validate checks env against the embedded environment schema: port range,
// method enumeration, literal status codes, at least one response per route
// and exactly one leading Content-Type header per response.
func Validate(env *Environment) error {
	if env == nil {
		return fmt.Errorf("environment: nil environment")
	}
	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("environment: encode: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("environment: decode instance: %w", err)
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	return nil
}

package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

// Schema names, one per frame family.
const (
	SchemaHello   = "hello.schema.json"
	SchemaWelcome = "welcome.schema.json"
	SchemaError   = "error.schema.json"
	SchemaCommand = "command.schema.json"
	SchemaRequest = "request.schema.json"
	SchemaEvent   = "event.schema.json"
	SchemaReply   = "reply.schema.json"
)

const schemaBaseURL = "mem://airfryer/schemas/"

// Validator checks raw frames against the embedded schemas. Safe for
// concurrent use once built.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	names, err := fs.Glob(schemaFS, "schemas/*.schema.json")
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	for _, p := range names {
		b, err := schemaFS.ReadFile(p)
		if err != nil {
			return nil, err
		}
		if err := c.AddResource(schemaBaseURL+path.Base(p), bytes.NewReader(b)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", p, err)
		}
	}
	v := &Validator{schemas: map[string]*jsonschema.Schema{}}
	for _, p := range names {
		name := path.Base(p)
		s, err := c.Compile(schemaBaseURL + name)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", name, err)
		}
		v.schemas[name] = s
	}
	return v, nil
}

// Validate decodes raw and checks it against the named schema.
func (v *Validator) Validate(name string, raw []byte) error {
	s, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return s.Validate(doc)
}

// ValidateValue marshals msg and validates the result.
func (v *Validator) ValidateValue(name string, msg any) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return v.Validate(name, b)
}

package httpserver

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// bodySchemas maps a schema name ("chatbot") to its compiled form.
var bodySchemas = mustCompileSchemas()

func mustCompileSchemas() map[string]*jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	files, err := fs.Glob(schemaFS, "schemas/*.json")
	if err != nil {
		panic(err)
	}
	for _, f := range files {
		b, err := schemaFS.ReadFile(f)
		if err != nil {
			panic(err)
		}
		if err := compiler.AddResource(f, bytes.NewReader(b)); err != nil {
			panic(fmt.Sprintf("add schema %s: %v", f, err))
		}
	}

	out := make(map[string]*jsonschema.Schema, len(files))
	for _, f := range files {
		s, err := compiler.Compile(f)
		if err != nil {
			panic(fmt.Sprintf("compile schema %s: %v", f, err))
		}
		out[strings.TrimSuffix(path.Base(f), ".json")] = s
	}
	return out
}

// validateBody checks raw JSON against a named schema.
func validateBody(name string, body []byte) error {
	s, ok := bodySchemas[name]
	if !ok {
		return fmt.Errorf("no schema %q", name)
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("body is not valid JSON: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("body does not match schema: %w", err)
	}
	return nil
}

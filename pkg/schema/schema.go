// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package schema defines the JSON-Schema-like intermediate used for
// structured LLM output, adapted per provider, and validates decoded
// records against it.
package schema

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema is the provider-neutral structured-output schema. Name and
// Version are set on root schemas only; Version participates in cache
// keys so schema revisions invalidate prior entries.
type Schema struct {
	Name    string
	Version string

	Type        string // object, array, string, number, integer, boolean
	Description string
	Properties  map[string]*Schema
	Required    []string
	Items       *Schema
	Enum        []string
	Minimum     *float64
	Maximum     *float64
}

// F64 returns a pointer to v, for Minimum/Maximum literals.
func F64(v float64) *float64 { return &v }

// Identifier returns the stable schema identity used in cache keys,
// "name@version" for named roots.
func (s *Schema) Identifier() string {
	if s.Name != "" {
		v := s.Version
		if v == "" {
			v = "v1"
		}
		return s.Name + "@" + v
	}
	if s.Type == "array" && s.Items != nil {
		return "list(" + s.Items.Identifier() + ")"
	}
	return s.Type
}

// JSONSchema renders the schema as a draft-07 compatible tree. The same
// tree is passed to Ollama's `format` parameter.
func (s *Schema) JSONSchema() map[string]any {
	out := map[string]any{"type": s.Type}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = p.JSONSchema()
		}
		out["properties"] = props
	}
	if len(s.Required) > 0 {
		out["required"] = append([]string(nil), s.Required...)
	}
	if s.Items != nil {
		out["items"] = s.Items.JSONSchema()
	}
	if len(s.Enum) > 0 {
		enum := make([]any, len(s.Enum))
		for i, e := range s.Enum {
			enum[i] = e
		}
		out["enum"] = enum
	}
	if s.Minimum != nil {
		out["minimum"] = *s.Minimum
	}
	if s.Maximum != nil {
		out["maximum"] = *s.Maximum
	}
	return out
}

// GeminiSchema renders the schema in the shape Gemini's response_schema
// expects: upper-case type names, no draft-07 keywords the API rejects.
func (s *Schema) GeminiSchema() map[string]any {
	out := map[string]any{"type": strings.ToUpper(s.Type)}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = p.GeminiSchema()
		}
		out["properties"] = props
	}
	if len(s.Required) > 0 {
		out["required"] = append([]string(nil), s.Required...)
	}
	if s.Items != nil {
		out["items"] = s.Items.GeminiSchema()
	}
	if len(s.Enum) > 0 {
		enum := make([]any, len(s.Enum))
		for i, e := range s.Enum {
			enum[i] = e
		}
		out["enum"] = enum
	}
	return out
}

// List wraps an item schema into an array root.
func List(item *Schema) *Schema {
	return &Schema{Type: "array", Items: item}
}

// Validate checks a decoded record (map, slice, or scalar tree) against
// the schema. Records should be normalized first so in-range clamping has
// already happened.
func Validate(record any, s *Schema) error {
	schemaLoader := gojsonschema.NewGoLoader(s.JSONSchema())
	recordLoader := gojsonschema.NewGoLoader(record)

	result, err := gojsonschema.Validate(schemaLoader, recordLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, len(result.Errors()))
		for i, e := range result.Errors() {
			msgs[i] = e.String()
		}
		return fmt.Errorf("record does not match %s: %v", s.Identifier(), msgs)
	}
	return nil
}

package tools

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Property describes one field of a tool input.
type Property struct {
	Type        string
	Description string
	Enum        []string
	Items       *Property
}

// Schema is the object schema of a tool input. It renders to the JSON
// schema shape the model expects and validates raw model input before it is
// decoded into the tool's typed input.
type Schema struct {
	Properties map[string]Property
	Required   []string
}

// ValidationError lists every problem found in one input.
type ValidationError struct {
	Tool     string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input for %s: %s", e.Tool, strings.Join(e.Problems, "; "))
}

// Map renders the schema as a JSON-schema object.
func (s Schema) Map() map[string]any {
	props := make(map[string]any, len(s.Properties))
	for name, p := range s.Properties {
		props[name] = p.jsonSchema()
	}
	out := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(s.Required) > 0 {
		req := make([]any, len(s.Required))
		for i, r := range s.Required {
			req[i] = r
		}
		out["required"] = req
	}
	return out
}

func (p Property) jsonSchema() map[string]any {
	m := map[string]any{"type": p.Type}
	if p.Description != "" {
		m["description"] = p.Description
	}
	if len(p.Enum) > 0 {
		enum := make([]any, len(p.Enum))
		for i, e := range p.Enum {
			enum[i] = e
		}
		m["enum"] = enum
	}
	if p.Items != nil {
		m["items"] = p.Items.jsonSchema()
	}
	return m
}

// Check returns the problems found in input, sorted for stable messages.
// Unknown fields are ignored.
func (s Schema) Check(input map[string]any) []string {
	var problems []string
	for _, name := range s.Required {
		v, ok := input[name]
		if !ok || v == nil {
			problems = append(problems, fmt.Sprintf("missing required field %q", name))
			continue
		}
		if str, isStr := v.(string); isStr && strings.TrimSpace(str) == "" {
			problems = append(problems, fmt.Sprintf("required field %q is empty", name))
		}
	}
	for name, v := range input {
		p, ok := s.Properties[name]
		if !ok || v == nil {
			continue
		}
		if msg := p.check(v); msg != "" {
			problems = append(problems, fmt.Sprintf("field %q %s", name, msg))
		}
	}
	sort.Strings(problems)
	return problems
}

func (p Property) check(v any) string {
	switch p.Type {
	case "string":
		s, ok := v.(string)
		if !ok {
			return "must be a string"
		}
		if len(p.Enum) > 0 && !contains(p.Enum, s) {
			return fmt.Sprintf("must be one of %s", strings.Join(p.Enum, ", "))
		}
	case "integer":
		f, ok := v.(float64)
		if !ok {
			if _, isInt := v.(int); isInt {
				return ""
			}
			return "must be an integer"
		}
		if f != math.Trunc(f) {
			return "must be an integer"
		}
	case "number":
		switch v.(type) {
		case float64, int:
		default:
			return "must be a number"
		}
	case "boolean":
		if _, ok := v.(bool); !ok {
			return "must be a boolean"
		}
	case "array":
		arr, ok := v.([]any)
		if !ok {
			if _, isStrs := v.([]string); isStrs {
				return ""
			}
			return "must be an array"
		}
		if p.Items != nil {
			for i, item := range arr {
				if msg := p.Items.check(item); msg != "" {
					return fmt.Sprintf("item %d %s", i, msg)
				}
			}
		}
	case "object":
		if _, ok := v.(map[string]any); !ok {
			return "must be an object"
		}
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

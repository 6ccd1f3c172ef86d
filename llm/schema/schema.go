// Package schema describes the expected shape of a structured LLM response.
// A Schema is plain data: prompt builders declare it, providers forward it to
// backends that support constrained output, and the gateway validates parsed
// responses against it before any caller sees them.
package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Type is a JSON value type.
type Type string

// Supported value types.
const (
	TypeObject  Type = "object"
	TypeArray   Type = "array"
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
)

// Schema is a declarative description of a JSON value.
type Schema struct {
	Type        Type               `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Minimum     *float64           `json:"minimum,omitempty"`
	Maximum     *float64           `json:"maximum,omitempty"`
	MinItems    int                `json:"minItems,omitempty"`

	// order preserves the declaration order of properties for prompts and
	// provider payloads. Maps lose it.
	order []string
}

// Field is a named property used when building object schemas.
type Field struct {
	Name     string
	Schema   *Schema
	Required bool
}

// String returns a string schema.
func String(description string) *Schema {
	return &Schema{Type: TypeString, Description: description}
}

// Enum returns a string schema restricted to values.
func Enum(description string, values ...string) *Schema {
	return &Schema{Type: TypeString, Description: description, Enum: values}
}

// Number returns a number schema bounded by [min, max].
func Number(description string, min, max float64) *Schema {
	return &Schema{Type: TypeNumber, Description: description, Minimum: &min, Maximum: &max}
}

// Boolean returns a boolean schema.
func Boolean(description string) *Schema {
	return &Schema{Type: TypeBoolean, Description: description}
}

// Array returns an array schema of items.
func Array(description string, items *Schema) *Schema {
	return &Schema{Type: TypeArray, Description: description, Items: items}
}

// StringArray returns an array-of-strings schema.
func StringArray(description string) *Schema {
	return Array(description, &Schema{Type: TypeString})
}

// NonEmpty sets MinItems to 1 and returns s.
func (s *Schema) NonEmpty() *Schema {
	s.MinItems = 1
	return s
}

// Object returns an object schema with fields in declaration order.
func Object(description string, fields ...Field) *Schema {
	s := &Schema{
		Type:        TypeObject,
		Description: description,
		Properties:  make(map[string]*Schema, len(fields)),
	}
	for _, f := range fields {
		s.Properties[f.Name] = f.Schema
		s.order = append(s.order, f.Name)
		if f.Required {
			s.Required = append(s.Required, f.Name)
		}
	}
	return s
}

// Required declares a required field.
func Required(name string, s *Schema) Field {
	return Field{Name: name, Schema: s, Required: true}
}

// Optional declares an optional field.
func Optional(name string, s *Schema) Field {
	return Field{Name: name, Schema: s}
}

// PropertyNames returns property names in declaration order. Properties
// added directly to the map are appended in sorted order.
func (s *Schema) PropertyNames() []string {
	if len(s.Properties) == 0 {
		return nil
	}
	names := make([]string, 0, len(s.Properties))
	seen := make(map[string]bool, len(s.Properties))
	for _, name := range s.order {
		if _, ok := s.Properties[name]; ok && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	var rest []string
	for name := range s.Properties {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// IsRequired reports whether name is a required property.
func (s *Schema) IsRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// Violation is a single mismatch between a value and a schema.
type Violation struct {
	Path    string
	Message string
}

func (v Violation) String() string {
	return v.Path + ": " + v.Message
}

// ValidationError aggregates every violation found in a value.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	const maxShown = 5
	parts := make([]string, 0, maxShown)
	for i, v := range e.Violations {
		if i == maxShown {
			parts = append(parts, fmt.Sprintf("and %d more", len(e.Violations)-maxShown))
			break
		}
		parts = append(parts, v.String())
	}
	return "response does not match expected shape: " + strings.Join(parts, "; ")
}

// Validate checks v, a value produced by encoding/json decoding into any,
// against the schema.
func (s *Schema) Validate(v any) error {
	var violations []Violation
	s.validate("$", v, &violations)
	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

func (s *Schema) validate(path string, v any, out *[]Violation) {
	if s == nil {
		return
	}
	add := func(format string, args ...any) {
		*out = append(*out, Violation{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	switch s.Type {
	case TypeObject:
		obj, ok := v.(map[string]any)
		if !ok {
			add("expected object, got %s", kindOf(v))
			return
		}
		for _, name := range s.Required {
			if val, present := obj[name]; !present || val == nil {
				add("missing required field %q", name)
			}
		}
		for _, name := range s.PropertyNames() {
			val, present := obj[name]
			if !present || val == nil {
				continue
			}
			s.Properties[name].validate(path+"."+name, val, out)
		}

	case TypeArray:
		arr, ok := v.([]any)
		if !ok {
			add("expected array, got %s", kindOf(v))
			return
		}
		if len(arr) < s.MinItems {
			add("expected at least %d items, got %d", s.MinItems, len(arr))
		}
		for i, item := range arr {
			s.Items.validate(fmt.Sprintf("%s[%d]", path, i), item, out)
		}

	case TypeString:
		str, ok := v.(string)
		if !ok {
			add("expected string, got %s", kindOf(v))
			return
		}
		if len(s.Enum) > 0 && !contains(s.Enum, str) {
			add("value %q not in [%s]", str, strings.Join(s.Enum, ", "))
		}

	case TypeNumber, TypeInteger:
		n, ok := v.(float64)
		if !ok {
			add("expected number, got %s", kindOf(v))
			return
		}
		if s.Type == TypeInteger && n != math.Trunc(n) {
			add("expected integer, got %v", n)
		}
		if s.Minimum != nil && n < *s.Minimum {
			add("value %v below minimum %v", n, *s.Minimum)
		}
		if s.Maximum != nil && n > *s.Maximum {
			add("value %v above maximum %v", n, *s.Maximum)
		}

	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			add("expected boolean, got %s", kindOf(v))
		}
	}
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64, json.Number:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// MarshalJSON renders the schema as a JSON Schema document with properties
// in declaration order.
func (s *Schema) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	if err := s.writeJSON(&b); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

func (s *Schema) writeJSON(b *strings.Builder) error {
	b.WriteString(`{"type":`)
	writeString(b, string(s.Type))
	if s.Description != "" {
		b.WriteString(`,"description":`)
		writeString(b, s.Description)
	}
	if len(s.Enum) > 0 {
		b.WriteString(`,"enum":[`)
		for i, e := range s.Enum {
			if i > 0 {
				b.WriteByte(',')
			}
			writeString(b, e)
		}
		b.WriteByte(']')
	}
	if s.Minimum != nil {
		fmt.Fprintf(b, `,"minimum":%v`, *s.Minimum)
	}
	if s.Maximum != nil {
		fmt.Fprintf(b, `,"maximum":%v`, *s.Maximum)
	}
	if s.MinItems > 0 {
		fmt.Fprintf(b, `,"minItems":%d`, s.MinItems)
	}
	if s.Items != nil {
		b.WriteString(`,"items":`)
		if err := s.Items.writeJSON(b); err != nil {
			return err
		}
	}
	if names := s.PropertyNames(); len(names) > 0 {
		b.WriteString(`,"properties":{`)
		for i, name := range names {
			if i > 0 {
				b.WriteByte(',')
			}
			writeString(b, name)
			b.WriteByte(':')
			if err := s.Properties[name].writeJSON(b); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	}
	if len(s.Required) > 0 {
		b.WriteString(`,"required":[`)
		for i, r := range s.Required {
			if i > 0 {
				b.WriteByte(',')
			}
			writeString(b, r)
		}
		b.WriteByte(']')
	}
	b.WriteByte('}')
	return nil
}

func writeString(b *strings.Builder, s string) {
	encoded, _ := json.Marshal(s)
	b.Write(encoded)
}

// Describe renders an indented, human-readable description of the schema.
// Providers without native schema support append it to the prompt.
func (s *Schema) Describe() string {
	var b strings.Builder
	s.describe(&b, "", "")
	return strings.TrimRight(b.String(), "\n")
}

func (s *Schema) describe(b *strings.Builder, indent, label string) {
	line := indent
	if label != "" {
		line += label + ": "
	}
	line += string(s.Type)
	if len(s.Enum) > 0 {
		line += " one of [" + strings.Join(s.Enum, ", ") + "]"
	}
	if s.Minimum != nil && s.Maximum != nil {
		line += fmt.Sprintf(" in [%v, %v]", *s.Minimum, *s.Maximum)
	}
	if s.Description != "" {
		line += " - " + s.Description
	}
	b.WriteString(line + "\n")

	switch s.Type {
	case TypeArray:
		if s.Items != nil {
			s.Items.describe(b, indent+"  ", "each item")
		}
	case TypeObject:
		for _, name := range s.PropertyNames() {
			label := name
			if s.IsRequired(name) {
				label += " (required)"
			}
			s.Properties[name].describe(b, indent+"  ", label)
		}
	}
}

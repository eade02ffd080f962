package llmclient

import (
	"fmt"
	"sort"

	genai "google.golang.org/genai"
)

type Type string

const (
	TypeObject  Type = "OBJECT"
	TypeArray   Type = "ARRAY"
	TypeString  Type = "STRING"
	TypeNumber  Type = "NUMBER"
	TypeInteger Type = "INTEGER"
	TypeBoolean Type = "BOOLEAN"
)

// Schema describes the expected shape of a structured response.
type Schema struct {
	Type        Type
	Description string
	Properties  map[string]*Schema
	Items       *Schema
	Required    []string
}

// Genai converts the schema into the vendor representation.
func (s *Schema) Genai() *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        genai.Type(s.Type),
		Description: s.Description,
		Required:    append([]string(nil), s.Required...),
		Items:       s.Items.Genai(),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for k, v := range s.Properties {
			out.Properties[k] = v.Genai()
		}
	}
	return out
}

// Check walks a decoded JSON value and reports the first type mismatch or
// missing required property.
func (s *Schema) Check(v any) error {
	return s.check("$", v)
}

func (s *Schema) check(path string, v any) error {
	if s == nil {
		return nil
	}
	switch s.Type {
	case TypeObject:
		m, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: expected object, got %T", path, v)
		}
		for _, r := range s.Required {
			if _, ok := m[r]; !ok {
				return fmt.Errorf("%s: missing required property %q", path, r)
			}
		}
		keys := make([]string, 0, len(s.Properties))
		for k := range s.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if child, ok := m[k]; ok && child != nil {
				if err := s.Properties[k].check(path+"."+k, child); err != nil {
					return err
				}
			}
		}
	case TypeArray:
		arr, ok := v.([]any)
		if !ok {
			return fmt.Errorf("%s: expected array, got %T", path, v)
		}
		for i, item := range arr {
			if err := s.Items.check(fmt.Sprintf("%s[%d]", path, i), item); err != nil {
				return err
			}
		}
	case TypeString:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("%s: expected string, got %T", path, v)
		}
	case TypeNumber, TypeInteger:
		if _, ok := v.(float64); !ok {
			return fmt.Errorf("%s: expected number, got %T", path, v)
		}
	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("%s: expected boolean, got %T", path, v)
		}
	}
	return nil
}

// Obj, Arr and Str keep schema literals short.
func Obj(desc string, props map[string]*Schema, required ...string) *Schema {
	return &Schema{Type: TypeObject, Description: desc, Properties: props, Required: required}
}

func Arr(desc string, items *Schema) *Schema {
	return &Schema{Type: TypeArray, Description: desc, Items: items}
}

func Str(desc string) *Schema { return &Schema{Type: TypeString, Description: desc} }

func Num(desc string) *Schema { return &Schema{Type: TypeNumber, Description: desc} }

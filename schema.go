package ope

import (
	"encoding/json"
	"strings"

	"github.com/zoobzio/sentinel"
)

// OutputSchema returns the field contract every reply must satisfy,
// derived from the Output struct: {"answer": "string", "citations": "string[]"}.
func OutputSchema() map[string]string {
	metadata := sentinel.Inspect[Output]()
	schema := make(map[string]string, len(metadata.Fields))
	for _, field := range metadata.Fields {
		name := jsonFieldName(field)
		if name == "-" {
			continue
		}
		schema[name] = contractType(field.Type)
	}
	return schema
}

// OutputJSONSchema renders the Output contract as a JSON Schema document.
func OutputJSONSchema() string {
	metadata := sentinel.Inspect[Output]()

	properties := make(map[string]any)
	required := []string{}
	for _, field := range metadata.Fields {
		name := jsonFieldName(field)
		if name == "-" {
			continue
		}
		prop := map[string]any{"type": jsonSchemaType(field.Type)}
		if strings.HasPrefix(field.Type, "[]") {
			prop["items"] = map[string]any{"type": jsonSchemaType(strings.TrimPrefix(field.Type, "[]"))}
		}
		if desc, ok := field.Tags["desc"]; ok {
			prop["description"] = desc
		}
		properties[name] = prop
		if !strings.Contains(field.Tags["json"], "omitempty") {
			required = append(required, name)
		}
	}

	schema := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

func jsonFieldName(field sentinel.FieldMetadata) string {
	if tag, ok := field.Tags["json"]; ok {
		if name, _, _ := strings.Cut(tag, ","); name != "" {
			return name
		}
	}
	return strings.ToLower(field.Name[:1]) + field.Name[1:]
}

// contractType renders a Go type in the compact notation used by the IR.
func contractType(goType string) string {
	if elem, ok := strings.CutPrefix(goType, "[]"); ok {
		return contractType(elem) + "[]"
	}
	return jsonSchemaType(goType)
}

func jsonSchemaType(goType string) string {
	switch {
	case strings.HasPrefix(goType, "string"):
		return "string"
	case strings.HasPrefix(goType, "int"), strings.HasPrefix(goType, "uint"):
		return "integer"
	case strings.HasPrefix(goType, "float"):
		return "number"
	case strings.HasPrefix(goType, "bool"):
		return "boolean"
	case strings.HasPrefix(goType, "[]"):
		return "array"
	default:
		return "object"
	}
}

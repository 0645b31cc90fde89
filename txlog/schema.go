package txlog

import (
	"bytes"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/nickyhof/deltactl/core"
)

type structField struct {
	Name     string          `json:"name"`
	Type     json.RawMessage `json:"type"`
	Nullable bool            `json:"nullable"`
	Metadata map[string]any  `json:"metadata,omitempty"`
}

type complexType struct {
	Type              string          `json:"type"`
	Fields            []structField   `json:"fields,omitempty"`
	ElementType       json.RawMessage `json:"elementType,omitempty"`
	ContainsNull      bool            `json:"containsNull,omitempty"`
	KeyType           json.RawMessage `json:"keyType,omitempty"`
	ValueType         json.RawMessage `json:"valueType,omitempty"`
	ValueContainsNull bool            `json:"valueContainsNull,omitempty"`
}

// ParseSchema parses a schemaString into a schema, keeping field order.
func ParseSchema(schemaString string) (*core.Schema, error) {
	var root complexType
	if err := json.Unmarshal([]byte(schemaString), &root); err != nil {
		return nil, fmt.Errorf("invalid schema string: %w", err)
	}
	if root.Type != "struct" {
		return nil, fmt.Errorf("invalid schema string: top-level type %q is not a struct", root.Type)
	}

	schema := &core.Schema{Fields: make([]core.Field, 0, len(root.Fields))}
	for _, f := range root.Fields {
		typ, err := renderType(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		schema.Fields = append(schema.Fields, core.Field{
			Name:     f.Name,
			Type:     typ,
			Nullable: f.Nullable,
			Metadata: f.Metadata,
		})
	}
	return schema, nil
}

func renderType(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", fmt.Errorf("missing type")
	}

	if raw[0] == '"' {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return "", err
		}
		return name, nil
	}

	var ct complexType
	if err := json.Unmarshal(raw, &ct); err != nil {
		return "", err
	}

	switch ct.Type {
	case "struct":
		parts := make([]string, len(ct.Fields))
		for i, f := range ct.Fields {
			typ, err := renderType(f.Type)
			if err != nil {
				return "", err
			}
			parts[i] = f.Name + ": " + typ
		}
		return "struct<" + strings.Join(parts, ", ") + ">", nil
	case "array":
		elem, err := renderType(ct.ElementType)
		if err != nil {
			return "", err
		}
		return "array<" + elem + ">", nil
	case "map":
		key, err := renderType(ct.KeyType)
		if err != nil {
			return "", err
		}
		value, err := renderType(ct.ValueType)
		if err != nil {
			return "", err
		}
		return "map<" + key + ", " + value + ">", nil
	default:
		return "", fmt.Errorf("unknown complex type %q", ct.Type)
	}
}

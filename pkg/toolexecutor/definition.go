package toolexecutor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// ToolParameter defines a parameter for a tool
type ToolParameter struct {
	Name        string        `json:"name"`
	Type        string        `json:"type"`
	Description string        `json:"description"`
	Required    bool          `json:"required"`
	Default     interface{}   `json:"default,omitempty"`
	Enum        []interface{} `json:"enum,omitempty"`
	// Items is the element type of an array parameter. Defaults to "string".
	Items string `json:"items,omitempty"`
}

// ToolDefinition defines a tool's metadata and handler
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
	// Mutating marks tools that change state in the external account.
	// Calls to them are written to the audit log.
	Mutating bool        `json:"mutating,omitempty"`
	Handler  ToolHandler `json:"-"`
}

// ToolHandler executes one tool. The returned payload must encode to a JSON
// object; its keys are merged into the success envelope in encoding order.
type ToolHandler interface {
	Handle(ctx context.Context, args Args) (interface{}, error)
}

// HandlerFunc adapts a plain function to ToolHandler.
type HandlerFunc func(ctx context.Context, args Args) (interface{}, error)

func (f HandlerFunc) Handle(ctx context.Context, args Args) (interface{}, error) {
	return f(ctx, args)
}

// Descriptor is the caller-facing view of a registered tool.
type Descriptor struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"inputSchema"`
}

var validTypes = map[string]bool{
	"string": true, "number": true, "boolean": true,
	"object": true, "array": true, "integer": true,
}

// validateToolDefinition validates a tool definition
func validateToolDefinition(def ToolDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if def.Description == "" {
		return fmt.Errorf("tool description cannot be empty")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool handler cannot be nil")
	}

	seen := make(map[string]bool, len(def.Parameters))
	for _, param := range def.Parameters {
		if param.Name == "" {
			return fmt.Errorf("parameter name cannot be empty")
		}
		if seen[param.Name] {
			return fmt.Errorf("duplicate parameter %s", param.Name)
		}
		seen[param.Name] = true

		if param.Type == "" {
			return fmt.Errorf("parameter type cannot be empty for %s", param.Name)
		}
		if param.Description == "" {
			return fmt.Errorf("parameter description cannot be empty for %s", param.Name)
		}
		if !validTypes[param.Type] {
			return fmt.Errorf("invalid parameter type %s for %s", param.Type, param.Name)
		}
		if param.Items != "" && !validTypes[param.Items] {
			return fmt.Errorf("invalid item type %s for %s", param.Items, param.Name)
		}
	}

	return nil
}

// buildInputSchema generates the JSON Schema advertised for a tool.
func buildInputSchema(def ToolDefinition) (*jsonschema.Schema, error) {
	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema, len(def.Parameters)),
	}

	for _, param := range def.Parameters {
		prop := &jsonschema.Schema{
			Type:        param.Type,
			Description: param.Description,
			Enum:        param.Enum,
		}

		if param.Type == "array" {
			items := param.Items
			if items == "" {
				items = "string"
			}
			prop.Items = &jsonschema.Schema{Type: items}
		}

		if param.Default != nil {
			raw, err := json.Marshal(param.Default)
			if err != nil {
				return nil, fmt.Errorf("default for %s: %w", param.Name, err)
			}
			prop.Default = raw
		}

		schema.Properties[param.Name] = prop

		if param.Required {
			schema.Required = append(schema.Required, param.Name)
		}
	}

	return schema, nil
}

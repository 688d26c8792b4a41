package toolexecutor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/harun/apigate/pkg/toolerr"
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

// ErrToolNotFound is returned by Resolve for unregistered names.
var ErrToolNotFound = errors.New("tool not found")

type registeredTool struct {
	def        ToolDefinition
	descriptor Descriptor
	validator  *gojsonschema.Schema
}

// Registry is the ordered, immutable set of tools one gateway exposes.
type Registry struct {
	tools []*registeredTool
	index map[string]*registeredTool
}

// NewRegistry validates every definition, compiles its argument schema and
// returns a registry listing tools in declaration order.
func NewRegistry(defs ...ToolDefinition) (*Registry, error) {
	r := &Registry{
		tools: make([]*registeredTool, 0, len(defs)),
		index: make(map[string]*registeredTool, len(defs)),
	}

	for _, def := range defs {
		if err := validateToolDefinition(def); err != nil {
			return nil, fmt.Errorf("invalid tool definition: %w", err)
		}
		if _, exists := r.index[def.Name]; exists {
			return nil, fmt.Errorf("duplicate tool name: %s", def.Name)
		}

		schema, err := buildInputSchema(def)
		if err != nil {
			return nil, fmt.Errorf("failed to generate schema for %s: %w", def.Name, err)
		}

		validator, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema for %s: %w", def.Name, err)
		}

		tool := &registeredTool{
			def: def,
			descriptor: Descriptor{
				Name:        def.Name,
				Description: def.Description,
				InputSchema: schema,
			},
			validator: validator,
		}
		r.tools = append(r.tools, tool)
		r.index[def.Name] = tool

		log.Debug().Str("tool", def.Name).Msg("Tool registered")
	}

	return r, nil
}

// MustRegistry is NewRegistry for static tool tables.
func MustRegistry(defs ...ToolDefinition) *Registry {
	r, err := NewRegistry(defs...)
	if err != nil {
		panic(err)
	}
	return r
}

// List returns tool descriptors in declaration order.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, len(r.tools))
	for i, tool := range r.tools {
		out[i] = tool.descriptor
	}
	return out
}

// Names returns tool names in declaration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.tools))
	for i, tool := range r.tools {
		out[i] = tool.def.Name
	}
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.tools)
}

// Resolve returns the definition registered under name.
func (r *Registry) Resolve(name string) (*ToolDefinition, error) {
	tool, ok := r.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	def := tool.def
	return &def, nil
}

// prepare checks required arguments, fills declared defaults and validates
// the result against the tool's schema. Null values count as absent.
func (r *Registry) prepare(name string, args map[string]interface{}) (Args, error) {
	tool := r.index[name]

	prepared := make(Args, len(args))
	for key, value := range args {
		if value != nil {
			prepared[key] = value
		}
	}

	for _, param := range tool.def.Parameters {
		if _, ok := prepared[param.Name]; ok {
			continue
		}
		if param.Required {
			return nil, toolerr.Validationf("Missing required argument: %s", param.Name)
		}
		if param.Default != nil {
			prepared[param.Name] = param.Default
		}
	}

	result, err := tool.validator.Validate(gojsonschema.NewGoLoader(map[string]interface{}(prepared)))
	if err != nil {
		return nil, toolerr.Validationf("Invalid arguments: %v", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, verr := range result.Errors() {
			msgs = append(msgs, verr.String())
		}
		return nil, toolerr.Validationf("Invalid arguments: %s", strings.Join(msgs, "; "))
	}

	return prepared, nil
}

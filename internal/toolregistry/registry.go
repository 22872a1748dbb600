// Package toolregistry holds the set of AgentTool implementations available
// to a run, produces their JSON schemas for native tool-calling providers,
// renders a textual catalog for providers that lack tool support, and
// dispatches a single named call with validated arguments.
package toolregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/moltis-ai/moltis/internal/llm/model"
	"github.com/moltis-ai/moltis/internal/tools"
)

// AgentTool is a single callable tool. Implementations are expected to be
// stateless or internally synchronized; Execute may be called concurrently
// for different calls.
type AgentTool interface {
	Name() tools.Ident
	Description() string
	ParametersSchema() json.RawMessage
	Execute(ctx context.Context, args json.RawMessage) (json.RawMessage, error)
}

// Registry holds a fixed set of tools keyed by name, plus their compiled
// JSON schemas (for argument validation ahead of Execute).
type Registry struct {
	mu      sync.RWMutex
	tools   map[tools.Ident]AgentTool
	schemas map[tools.Ident]*jsonschema.Schema
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{
		tools:   make(map[tools.Ident]AgentTool),
		schemas: make(map[tools.Ident]*jsonschema.Schema),
	}
}

// Register adds a tool, compiling its parameters schema. It returns an error
// if a tool with the same name is already registered or the schema does not
// compile.
func (r *Registry) Register(t AgentTool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	if _, ok := r.tools[name]; ok {
		return fmt.Errorf("toolregistry: tool %q already registered", name)
	}

	schema, err := compileSchema(name, t.ParametersSchema())
	if err != nil {
		return err
	}

	r.tools[name] = t
	r.schemas[name] = schema
	return nil
}

func compileSchema(name tools.Ident, raw json.RawMessage) (*jsonschema.Schema, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("toolregistry: tool %q: unmarshal parameters schema: %w", name, err)
	}
	resource := fmt.Sprintf("%s.json", name)
	c := jsonschema.NewCompiler()
	if err := c.AddResource(resource, doc); err != nil {
		return nil, fmt.Errorf("toolregistry: tool %q: add schema resource: %w", name, err)
	}
	schema, err := c.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("toolregistry: tool %q: compile schema: %w", name, err)
	}
	return schema, nil
}

// Get returns the tool registered under name, if any.
func (r *Registry) Get(name tools.Ident) (AgentTool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns the JSON Schema tool definitions for every registered
// tool, in registration-stable order is not guaranteed; callers that need a
// stable order should sort by Name.
func (r *Registry) Definitions() []*model.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]*model.ToolDefinition, 0, len(r.tools))
	for name, t := range r.tools {
		var schema any
		if raw := t.ParametersSchema(); len(raw) > 0 {
			_ = json.Unmarshal(raw, &schema)
		}
		defs = append(defs, &model.ToolDefinition{
			Name:        string(name),
			Description: t.Description(),
			InputSchema: schema,
		})
	}
	return defs
}

// Validate checks args against the tool's compiled parameters schema. A tool
// registered with an empty schema accepts any arguments.
func (r *Registry) Validate(name tools.Ident, args json.RawMessage) error {
	r.mu.RLock()
	schema := r.schemas[name]
	r.mu.RUnlock()
	if schema == nil {
		return nil
	}
	var doc any
	if len(args) == 0 {
		doc = map[string]any{}
	} else if err := json.Unmarshal(args, &doc); err != nil {
		return fmt.Errorf("toolregistry: tool %q: unmarshal arguments: %w", name, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("toolregistry: tool %q: arguments failed validation: %w", name, err)
	}
	return nil
}

// Execute validates args against the tool's schema and, on success, runs the
// tool. This is the only entry point transports and the run loop use to
// invoke a tool by name; it does not orchestrate multi-call sequencing, that
// is the run loop's responsibility.
func (r *Registry) Execute(ctx context.Context, name tools.Ident, args json.RawMessage) (json.RawMessage, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("toolregistry: unknown tool %q", name)
	}
	if err := r.Validate(name, args); err != nil {
		return nil, err
	}
	return t.Execute(ctx, args)
}

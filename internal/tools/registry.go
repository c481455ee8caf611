// Package tools declares the capabilities the chat assistant may call
// mid-conversation and dispatches invocations to them.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/timmy/creatorkit/internal/apperr"
	"github.com/timmy/creatorkit/internal/logger"
	"github.com/timmy/creatorkit/internal/service"
)

// ErrUnknownTool is returned by Invoke for names that were never registered.
var ErrUnknownTool = errors.New("unknown tool")

// Tool is one callable capability: a name and description the model reads,
// a JSON Schema for its input and the function that executes it.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema

	resolved *jsonschema.Resolved
	run      func(ctx context.Context, args json.RawMessage) (any, error)
}

// NewTool derives the input schema from In and wraps fn so it receives a
// decoded, schema-validated input.
func NewTool[In any](name, description string, fn func(ctx context.Context, in In) (any, error)) (*Tool, error) {
	schema, err := jsonschema.For[In](nil)
	if err != nil {
		return nil, fmt.Errorf("failed to infer schema for %s: %w", name, err)
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve schema for %s: %w", name, err)
	}

	return &Tool{
		Name:        name,
		Description: description,
		InputSchema: schema,
		resolved:    resolved,
		run: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in In
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, apperr.Wrap(apperr.ErrInvalidInput, "invalid tool arguments", err)
			}
			return fn(ctx, in)
		},
	}, nil
}

// validate checks raw arguments against the input schema.
func (t *Tool) validate(args json.RawMessage) error {
	var instance any
	if err := json.Unmarshal(args, &instance); err != nil {
		return apperr.Wrap(apperr.ErrInvalidInput, "tool arguments are not valid JSON", err)
	}
	if err := t.resolved.Validate(instance); err != nil {
		return apperr.Wrap(apperr.ErrInvalidInput, "tool arguments do not match schema", err)
	}
	return nil
}

// Registry maps tool names to tools. Registration order is preserved in
// Definitions so the provider sees a stable tool list.
type Registry struct {
	tools  map[string]*Tool
	order  []string
	logger *logger.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		tools:  make(map[string]*Tool),
		logger: log,
	}
}

func (r *Registry) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return r.logger
}

// Register adds t. Names must be unique.
func (r *Registry) Register(t *Tool) error {
	if t == nil || t.Name == "" {
		return errors.New("tool name is required")
	}
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool %q already registered", t.Name)
	}
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
	return nil
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (*Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Definitions returns the tool declarations in the provider's wire format.
func (r *Registry) Definitions() []service.ToolDefinition {
	defs := make([]service.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, service.ToolDefinition{
			Type: "function",
			Function: service.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}
	return defs
}

// Invoke runs the named tool with raw JSON arguments.
//
// Parameters:
//   - ctx: request context carrying the authenticated user.
//   - name: registered tool name.
//   - args: JSON object produced by the model; empty means {}.
//
// Returns:
//   - json.RawMessage: the tool result. Always valid JSON; when err is
//     non-nil it is a {"success":false,"error":...} payload the model can read.
//   - error: the underlying failure, for logging.
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	start := time.Now()
	ctx = logger.WithField(ctx, logger.FieldTool, name)

	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	t, ok := r.tools[name]
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownTool, name)
		return failurePayload(err), err
	}

	if err := t.validate(args); err != nil {
		r.log(ctx).WithError(err).Warn("Rejected tool arguments")
		return failurePayload(err), err
	}

	out, err := t.run(ctx, args)
	if err != nil {
		r.log(ctx).WithError(err).Error("Tool execution failed")
		return failurePayload(err), err
	}

	payload, err := json.Marshal(out)
	if err != nil {
		err = fmt.Errorf("failed to encode %s result: %w", name, err)
		return failurePayload(err), err
	}

	logger.With(logger.Fields{logger.FieldSize: len(payload)}).
		WithDuration(time.Since(start).Milliseconds()).
		Info(ctx, "Tool %s completed", name)
	return payload, nil
}

type failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func failurePayload(err error) json.RawMessage {
	b, _ := json.Marshal(failure{Success: false, Error: userMessage(err)})
	return b
}

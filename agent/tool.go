package agent

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentswarm/internal/util"
	"github.com/hupe1980/agentswarm/model"
)

// ToolError normalizes tool failures so callers receive consistent codes:
//
//	VALIDATION_ERROR -> schema / argument mismatch
//	EXECUTION_ERROR  -> underlying function returned an error (non-ToolError)
//	UNKNOWN_TOOL     -> no tool registered under the requested name
//
// Custom codes are preserved if the function returns *ToolError directly.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details error  `json:"-"`
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s failed (%s): %s", e.Tool, e.Code, e.Message)
}

// Unwrap returns the underlying error, if any.
func (e *ToolError) Unwrap() error { return e.Details }

// Tool is a generic adapter that exposes a plain Go function as an agent
// tool. It holds a lightweight JSON-Schema-like parameter specification,
// validates supplied arguments against it before execution, and normalizes
// error handling into *ToolError. A Tool has no internal mutable state after
// construction and is safe for concurrent use.
type Tool struct {
	// Tool identifier (snake_case recommended)
	name string
	// Human-readable description shown to models
	description string
	// JSON schema describing accepted arguments
	parameters map[string]any
	// User supplied implementation
	fn func(ctx context.Context, args map[string]any) (map[string]any, error)
}

// NewTool constructs a Tool from explicit schema and function.
//
// Example:
//
//	sumTool := NewTool(
//	  "calculate_sum",
//	  "Calculate the sum of two numbers",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "a": map[string]any{"type": "number"},
//	      "b": map[string]any{"type": "number"},
//	    },
//	    "required": []string{"a", "b"},
//	  },
//	  func(ctx context.Context, args map[string]any) (map[string]any, error) {
//	    return map[string]any{"sum": args["a"].(float64) + args["b"].(float64)}, nil
//	  },
//	)
func NewTool(
	name, description string,
	parameters map[string]any,
	fn func(ctx context.Context, args map[string]any) (map[string]any, error),
) *Tool {
	return &Tool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// Name returns the unique tool name used in function call declarations and routing.
func (t *Tool) Name() string { return t.name }

// Description returns the short natural language description exposed to models.
func (t *Tool) Description() string { return t.description }

// Parameters returns the (minimal) JSON schema describing expected arguments.
func (t *Tool) Parameters() map[string]any { return t.parameters }

// Definition returns the tool's declaration for model requests.
func (t *Tool) Definition() model.ToolDefinition {
	return model.ToolDefinition{
		Name:        t.name,
		Description: t.description,
		Parameters:  t.parameters,
	}
}

// Call validates the provided args against the declared schema then invokes
// the underlying function. Validation or execution failures are wrapped (or
// passed through) as *ToolError for uniform downstream handling.
func (t *Tool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	if err := util.ValidateParameters(args, t.parameters); err != nil {
		return nil, &ToolError{
			Tool:    t.name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    "VALIDATION_ERROR",
			Details: err,
		}
	}

	result, err := t.fn(ctx, args)
	if err != nil {
		if toolErr, ok := err.(*ToolError); ok { // already a ToolError -> forward
			return nil, toolErr
		}

		return nil, &ToolError{
			Tool:    t.name,
			Message: err.Error(),
			Code:    "EXECUTION_ERROR",
			Details: err,
		}
	}

	return result, nil
}

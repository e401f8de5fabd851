package copilotsdk

import (
	"github.com/google/jsonschema-go/jsonschema"
)

// DefineTool builds a Tool from its name, description, parameter schema,
// and handler.
//
// The schema describes the arguments the agent must supply; pass nil for a
// tool that takes none. The handler may return a *ToolResult for full
// control over what the model sees, or any plain value, which is rendered
// to text and wrapped in a success result. A returned error (or a panic)
// becomes a structured failure result rather than a protocol error.
func DefineTool(name, description string, schema *jsonschema.Schema, handler ToolHandler) *Tool {
	return &Tool{
		Name:        name,
		Description: description,
		Parameters:  schema,
		Handler:     handler,
	}
}

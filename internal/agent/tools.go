package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"reviewd/internal/analyzer"
)

// buildTools converts the registered analyzers into tool definitions
// for function calling.
func buildTools(registry *analyzer.Registry) []anthropic.ToolUnionParam {
	analyzers := registry.All()

	toolParams := make([]anthropic.ToolParam, 0, len(analyzers))
	for _, a := range analyzers {
		schema := a.InputSchema()
		toolParams = append(toolParams, anthropic.ToolParam{
			Name:        a.Name(),
			Description: anthropic.String(a.Description()),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: schema.Properties,
				Required:   schema.Required,
			},
		})
	}

	tools := make([]anthropic.ToolUnionParam, len(toolParams))
	for i := range toolParams {
		// Create a copy to avoid capturing loop variable address
		tool := toolParams[i]
		tools[i] = anthropic.ToolUnionParam{OfTool: &tool}
	}
	return tools
}

// executeTool dispatches a tool call from the model to the matching
// analyzer and returns the result as a JSON string.
func (r *Reviewer) executeTool(ctx context.Context, name string, input interface{}) (string, error) {
	var inputMap map[string]interface{}

	// The Anthropic SDK may provide input as different types:
	// - map[string]interface{} (already decoded)
	// - []byte (raw JSON)
	// - json.RawMessage (JSON bytes)
	switch v := input.(type) {
	case map[string]interface{}:
		inputMap = v
	case []byte:
		if err := json.Unmarshal(v, &inputMap); err != nil {
			return "", fmt.Errorf("failed to unmarshal tool input from bytes: %w", err)
		}
	case json.RawMessage:
		if err := json.Unmarshal(v, &inputMap); err != nil {
			return "", fmt.Errorf("failed to unmarshal tool input from RawMessage: %w", err)
		}
	default:
		return "", fmt.Errorf("invalid tool input format: expected map[string]interface{}, []byte, or json.RawMessage, got %T", input)
	}

	a, ok := r.registry.Get(name)
	if !ok {
		return "", fmt.Errorf("unknown tool: %s", name)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	result, err := a.Analyze(inputMap)
	if err != nil {
		return "", fmt.Errorf("%s failed: %w", name, err)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s result: %w", name, err)
	}
	return string(data), nil
}

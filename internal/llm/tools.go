package llm

import (
	"context"

	"github.com/openai/openai-go"
)

// ToolDefinition declares one tool the model may call. InputSchema is a
// JSON Schema object (type/properties/required).
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// ToolExecutor is the capability set handed to the generator. Execute
// returns the tool observation text; an error is treated as a terminal
// retrieval failure for the current query, not a crash.
type ToolExecutor interface {
	Definitions() []ToolDefinition
	Execute(ctx context.Context, name string, args map[string]any) (string, error)
}

// toOpenAITools converts tool definitions to chat completion tool
// parameters.
func toOpenAITools(defs []ToolDefinition) []openai.ChatCompletionToolParam {
	if len(defs) == 0 {
		return nil
	}
	tools := make([]openai.ChatCompletionToolParam, len(defs))
	for i, def := range defs {
		tools[i] = openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        def.Name,
				Description: openai.String(def.Description),
				Parameters:  openai.FunctionParameters(def.InputSchema),
			},
		}
	}
	return tools
}

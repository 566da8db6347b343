// Package llm drives the tool-orchestrated query loop against the chat
// model. The model decides when to search; the generator bounds how
// often.
package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// DefaultMaxRounds bounds tool-enabled model calls per query.
	// Bounding rounds prevents unbounded tool-calling loops; the forced
	// tool-free final call guarantees the loop terminates with an
	// answer.
	DefaultMaxRounds = 2

	// maxAnswerTokens caps the generated answer length.
	maxAnswerTokens = 800
)

const systemPrompt = `You are a course materials assistant. Use the provided tools to answer questions about course content and structure.

TOOL USAGE:
- search_course_content: questions about course content or concepts ("what is X", "explain Y", "tell me about Z")
- get_course_outline: questions about a course's structure or lesson list ("outline of the MCP course", "lessons in [course]")
- Answer course-related questions from tool results, not from your own knowledge.
- Tool results may inform a follow-up tool call when the question needs it.

Answer concisely based on the tool results.`

// ChatService is the slice of the OpenAI chat API the generator needs.
// *openai.ChatCompletionService satisfies it.
type ChatService interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Generator runs the round-bounded query loop: model call, optional
// sequential tool execution, repeat, ending in a plain-text answer.
type Generator struct {
	chat      ChatService
	model     openai.ChatModel
	maxRounds int
}

// NewGenerator creates a generator over the shared OpenAI client. A
// maxRounds of 0 uses DefaultMaxRounds.
func NewGenerator(client *openai.Client, model string, maxRounds int) *Generator {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	if model == "" {
		model = "gpt-4o"
	}
	return &Generator{
		chat:      &client.Chat.Completions,
		model:     openai.ChatModel(model),
		maxRounds: maxRounds,
	}
}

// GenerateResponse answers a query, letting the model call tools for up
// to maxRounds rounds. Conversation history is injected into the system
// prompt. Termination: a plain-text model response ends the loop
// immediately; at the round budget, or after a tool failure, a final
// model call is forced with tools disabled so the caller always gets
// text.
func (g *Generator) GenerateResponse(ctx context.Context, query, history string, tools ToolExecutor) (string, error) {
	system := systemPrompt
	if history != "" {
		system = fmt.Sprintf("%s\n\nPrevious conversation:\n%s", systemPrompt, history)
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(system),
		openai.UserMessage(query),
	}
	toolParams := toOpenAITools(tools.Definitions())

	for round := 1; round <= g.maxRounds; round++ {
		message, err := g.complete(ctx, messages, toolParams)
		if err != nil {
			return "", err
		}

		// Plain text ends the loop regardless of remaining rounds.
		if len(message.ToolCalls) == 0 {
			return message.Content, nil
		}

		messages = append(messages, message.ToParam())

		// Execute requested calls sequentially, feeding each observation
		// back. A retrieval failure becomes an error observation and
		// ends tool use for this query.
		failed := false
		for _, call := range message.ToolCalls {
			observation, err := executeToolCall(ctx, tools, call)
			if err != nil {
				observation = fmt.Sprintf("Tool %s failed: %v. Answer with the information gathered so far.", call.Function.Name, err)
				failed = true
			}
			messages = append(messages, openai.ToolMessage(observation, call.ID))
		}
		if failed {
			break
		}
	}

	// Round budget exhausted or a tool failed: force a final answer
	// with tools disabled.
	message, err := g.complete(ctx, messages, nil)
	if err != nil {
		return "", err
	}
	return message.Content, nil
}

// complete makes one model call. Tool declarations are attached only
// when tools is non-empty, which is how the forced final round disables
// tool use.
func (g *Generator) complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, tools []openai.ChatCompletionToolParam) (*openai.ChatCompletionMessage, error) {
	params := openai.ChatCompletionNewParams{
		Model:       g.model,
		Messages:    messages,
		Temperature: openai.Float(0),
		MaxTokens:   openai.Int(maxAnswerTokens),
	}
	if len(tools) > 0 {
		params.Tools = tools
	}

	completion, err := g.chat.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", ErrModelUnavailable)
	}
	return &completion.Choices[0].Message, nil
}

// executeToolCall decodes the model's arguments and dispatches to the
// executor. Malformed argument JSON is reported back to the model as an
// observation so it can self-correct.
func executeToolCall(ctx context.Context, tools ToolExecutor, call openai.ChatCompletionMessageToolCall) (string, error) {
	args := map[string]any{}
	if raw := call.Function.Arguments; raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return fmt.Sprintf("Could not parse arguments for %s: %v", call.Function.Name, err), nil
		}
	}
	return tools.Execute(ctx, call.Function.Name, args)
}

package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChat replays a scripted sequence of completions and records each
// request so tests can assert on round counts and tool availability.
type fakeChat struct {
	responses []*openai.ChatCompletion
	errs      []error
	requests  []openai.ChatCompletionNewParams
}

func (f *fakeChat) New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	call := len(f.requests)
	f.requests = append(f.requests, body)
	if call < len(f.errs) && f.errs[call] != nil {
		return nil, f.errs[call]
	}
	if call >= len(f.responses) {
		return nil, fmt.Errorf("unexpected model call %d", call+1)
	}
	return f.responses[call], nil
}

func textCompletion(content string) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func toolCompletion(calls ...openai.ChatCompletionMessageToolCall) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{ToolCalls: calls}},
		},
	}
}

func searchCall(id, args string) openai.ChatCompletionMessageToolCall {
	return openai.ChatCompletionMessageToolCall{
		ID: id,
		Function: openai.ChatCompletionMessageToolCallFunction{
			Name:      "search_course_content",
			Arguments: args,
		},
	}
}

// fakeExecutor records executed calls and returns a canned observation
// per tool name, or an error when failWith is set.
type fakeExecutor struct {
	executed []string
	args     []map[string]any
	failWith error
}

func (f *fakeExecutor) Definitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "search_course_content",
			Description: "Search course materials",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{"query": map[string]any{"type": "string"}},
				"required":   []string{"query"},
			},
		},
	}
}

func (f *fakeExecutor) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	f.executed = append(f.executed, name)
	f.args = append(f.args, args)
	if f.failWith != nil {
		return "", f.failWith
	}
	return fmt.Sprintf("results for %s", name), nil
}

func newTestGenerator(chat ChatService, maxRounds int) *Generator {
	return &Generator{chat: chat, model: openai.ChatModelGPT4o, maxRounds: maxRounds}
}

func TestGenerateResponse_DirectAnswer(t *testing.T) {
	chat := &fakeChat{responses: []*openai.ChatCompletion{
		textCompletion("The capital of France is Paris."),
	}}
	exec := &fakeExecutor{}
	gen := newTestGenerator(chat, 2)

	answer, err := gen.GenerateResponse(context.Background(), "What is the capital of France?", "", exec)
	require.NoError(t, err)
	assert.Equal(t, "The capital of France is Paris.", answer)

	// One model call, no tool executions.
	require.Len(t, chat.requests, 1)
	assert.Empty(t, exec.executed)
	assert.NotEmpty(t, chat.requests[0].Tools, "first round offers tools")
}

func TestGenerateResponse_SingleToolRound(t *testing.T) {
	chat := &fakeChat{responses: []*openai.ChatCompletion{
		toolCompletion(searchCall("call_1", `{"query":"what is MCP"}`)),
		textCompletion("MCP is a protocol for connecting models to tools."),
	}}
	exec := &fakeExecutor{}
	gen := newTestGenerator(chat, 2)

	answer, err := gen.GenerateResponse(context.Background(), "What is MCP?", "", exec)
	require.NoError(t, err)
	assert.Equal(t, "MCP is a protocol for connecting models to tools.", answer)

	require.Len(t, exec.executed, 1)
	assert.Equal(t, "search_course_content", exec.executed[0])
	assert.Equal(t, "what is MCP", exec.args[0]["query"])

	// Round two still offered tools; the model just chose not to use
	// them.
	require.Len(t, chat.requests, 2)
	assert.NotEmpty(t, chat.requests[1].Tools)
}

func TestGenerateResponse_RoundBudgetForcesFinalAnswer(t *testing.T) {
	chat := &fakeChat{responses: []*openai.ChatCompletion{
		toolCompletion(searchCall("call_1", `{"query":"lesson 4 topic"}`)),
		toolCompletion(searchCall("call_2", `{"query":"related topic"}`)),
		textCompletion("Both courses cover retrieval pipelines."),
	}}
	exec := &fakeExecutor{}
	gen := newTestGenerator(chat, 2)

	answer, err := gen.GenerateResponse(context.Background(), "Compare the lessons.", "", exec)
	require.NoError(t, err)
	assert.Equal(t, "Both courses cover retrieval pipelines.", answer)

	assert.Len(t, exec.executed, 2)
	require.Len(t, chat.requests, 3)

	// Only the first two calls carry tool declarations; the forced
	// final call must not, so it cannot request another round.
	assert.NotEmpty(t, chat.requests[0].Tools)
	assert.NotEmpty(t, chat.requests[1].Tools)
	assert.Empty(t, chat.requests[2].Tools)
}

func TestGenerateResponse_ToolFailureStillAnswers(t *testing.T) {
	chat := &fakeChat{responses: []*openai.ChatCompletion{
		toolCompletion(searchCall("call_1", `{"query":"anything"}`)),
		textCompletion("I could not retrieve course content for that question."),
	}}
	exec := &fakeExecutor{failWith: errors.New("vector store unreachable")}
	gen := newTestGenerator(chat, 2)

	answer, err := gen.GenerateResponse(context.Background(), "What is in lesson 2?", "", exec)
	require.NoError(t, err)
	assert.NotEmpty(t, answer)

	// Failure on round one skips straight to the tool-free final call.
	require.Len(t, chat.requests, 2)
	assert.Empty(t, chat.requests[1].Tools)
}

func TestGenerateResponse_ModelError(t *testing.T) {
	chat := &fakeChat{
		responses: []*openai.ChatCompletion{nil},
		errs:      []error{errors.New("connection refused")},
	}
	gen := newTestGenerator(chat, 2)

	_, err := gen.GenerateResponse(context.Background(), "anything", "", &fakeExecutor{})
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestGenerateResponse_HistoryInSystemPrompt(t *testing.T) {
	chat := &fakeChat{responses: []*openai.ChatCompletion{
		textCompletion("As I said, lesson 4 covers embeddings."),
	}}
	gen := newTestGenerator(chat, 2)

	history := "User: What does lesson 4 cover?\nAssistant: Lesson 4 covers embeddings."
	_, err := gen.GenerateResponse(context.Background(), "Can you repeat that?", history, &fakeExecutor{})
	require.NoError(t, err)

	require.Len(t, chat.requests, 1)
	system := chat.requests[0].Messages[0].OfSystem.Content.OfString.Value
	assert.Contains(t, system, "Previous conversation:")
	assert.Contains(t, system, "lesson 4 covers embeddings")
}

func TestGenerateResponse_MalformedArgumentsBecomeObservation(t *testing.T) {
	chat := &fakeChat{responses: []*openai.ChatCompletion{
		toolCompletion(searchCall("call_1", `{"query":`)),
		textCompletion("Please rephrase your question."),
	}}
	exec := &fakeExecutor{}
	gen := newTestGenerator(chat, 2)

	answer, err := gen.GenerateResponse(context.Background(), "broken", "", exec)
	require.NoError(t, err)
	assert.Equal(t, "Please rephrase your question.", answer)

	// The executor never runs; the parse error is fed back instead.
	assert.Empty(t, exec.executed)
}

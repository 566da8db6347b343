package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bull/course-rag-server/internal/llm"
)

// Source is a provenance record for one retrieved result, surfaced in
// the UI alongside the answer.
type Source struct {
	Text string `json:"text"`
	Link string `json:"link,omitempty"`
}

// Tool is one model-callable retrieval operation. Execute returns the
// observation text for the model; invalid arguments and empty results
// come back as messages, not errors, so the model can adjust. Errors
// are reserved for retrieval failures.
type Tool interface {
	Definition() llm.ToolDefinition
	Execute(ctx context.Context, args map[string]any) (string, error)
	LastSources() []Source
	ResetSources()
}

// stringArg extracts an optional string argument.
func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

// intArg extracts an optional integer argument. JSON numbers decode as
// float64.
func intArg(args map[string]any, key string) *int {
	switch v := args[key].(type) {
	case float64:
		n := int(v)
		return &n
	case int:
		n := v
		return &n
	default:
		return nil
	}
}

// CourseSearchTool searches course content with smart course name
// matching and optional lesson filtering. One instance is shared by
// all concurrent queries; the sources slice is guarded by mu.
type CourseSearchTool struct {
	searcher *Searcher

	mu      sync.Mutex
	sources []Source
}

func NewCourseSearchTool(searcher *Searcher) *CourseSearchTool {
	return &CourseSearchTool{searcher: searcher}
}

func (t *CourseSearchTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "search_course_content",
		Description: "Search course materials with smart course name matching and lesson filtering",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "What to search for in the course content",
				},
				"course_name": map[string]any{
					"type":        "string",
					"description": "Course title to search within (partial names work, e.g. 'MCP')",
				},
				"lesson_number": map[string]any{
					"type":        "integer",
					"description": "Specific lesson number to search within (e.g. 1, 2, 3)",
				},
			},
			"required": []string{"query"},
		},
	}
}

// Execute runs the search and formats results for the model. Each call
// replaces the previously recorded sources.
func (t *CourseSearchTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	query := stringArg(args, "query")
	if strings.TrimSpace(query) == "" {
		return "The 'query' argument is required. Provide the text to search for.", nil
	}
	courseName := stringArg(args, "course_name")
	lessonNumber := intArg(args, "lesson_number")

	results, err := t.searcher.Search(ctx, query, courseName, lessonNumber)
	if errors.Is(err, ErrNoCourses) {
		return "No course materials have been loaded yet.", nil
	}
	if err != nil {
		return "", err
	}

	if courseName != "" && results.ResolvedCourse == "" {
		return fmt.Sprintf("No course found matching '%s'.", courseName), nil
	}
	if len(results.Chunks) == 0 {
		// Sources from the previous call stay recorded; only a call
		// that formats results replaces them.
		return noResultsMessage(results.ResolvedCourse, lessonNumber), nil
	}

	sources := make([]Source, 0, len(results.Chunks))
	var blocks []string
	for _, chunk := range results.Chunks {
		header := fmt.Sprintf("[%s]", chunk.CourseTitle)
		source := Source{Text: chunk.CourseTitle}
		if chunk.LessonNumber != nil {
			header = fmt.Sprintf("[%s - Lesson %d]", chunk.CourseTitle, *chunk.LessonNumber)
			source.Text = fmt.Sprintf("%s - Lesson %d", chunk.CourseTitle, *chunk.LessonNumber)
			source.Link = t.searcher.LessonLink(ctx, chunk.CourseTitle, *chunk.LessonNumber)
		}
		blocks = append(blocks, header+"\n"+chunk.Content)
		sources = append(sources, source)
	}

	t.mu.Lock()
	t.sources = sources
	t.mu.Unlock()
	return strings.Join(blocks, "\n\n"), nil
}

func noResultsMessage(courseTitle string, lessonNumber *int) string {
	msg := "No relevant content found"
	if courseTitle != "" {
		msg += fmt.Sprintf(" in course '%s'", courseTitle)
	}
	if lessonNumber != nil {
		msg += fmt.Sprintf(" in lesson %d", *lessonNumber)
	}
	return msg + "."
}

// LastSources returns the sources recorded by the most recent
// result-bearing call. The returned slice is never mutated afterwards;
// Execute publishes a fresh slice each time.
func (t *CourseSearchTool) LastSources() []Source {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sources
}

func (t *CourseSearchTool) ResetSources() {
	t.mu.Lock()
	t.sources = nil
	t.mu.Unlock()
}

// CourseOutlineTool returns a course's title, link, instructor, and
// full lesson list from the catalog. Sources are guarded by mu, same
// as CourseSearchTool.
type CourseOutlineTool struct {
	searcher *Searcher

	mu      sync.Mutex
	sources []Source
}

func NewCourseOutlineTool(searcher *Searcher) *CourseOutlineTool {
	return &CourseOutlineTool{searcher: searcher}
}

func (t *CourseOutlineTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "get_course_outline",
		Description: "Get a course's outline: title, link, instructor, and the complete lesson list",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"course_name": map[string]any{
					"type":        "string",
					"description": "Course title to look up (partial names work, e.g. 'MCP')",
				},
			},
			"required": []string{"course_name"},
		},
	}
}

func (t *CourseOutlineTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	courseName := stringArg(args, "course_name")
	if strings.TrimSpace(courseName) == "" {
		return "The 'course_name' argument is required. Provide the course to outline.", nil
	}

	outline, found, err := t.searcher.Outline(ctx, courseName)
	if err != nil {
		return "", err
	}
	if !found {
		return fmt.Sprintf("No course found matching '%s'.", courseName), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Course: %s\n", outline.Title)
	if outline.Link != "" {
		fmt.Fprintf(&b, "Course Link: %s\n", outline.Link)
	}
	if outline.Instructor != "" {
		fmt.Fprintf(&b, "Instructor: %s\n", outline.Instructor)
	}
	fmt.Fprintf(&b, "\nLessons (%d):\n", len(outline.Lessons))
	for _, lesson := range outline.Lessons {
		fmt.Fprintf(&b, "Lesson %d: %s\n", lesson.Number, lesson.Title)
	}

	t.mu.Lock()
	t.sources = []Source{{Text: outline.Title, Link: outline.Link}}
	t.mu.Unlock()
	return b.String(), nil
}

func (t *CourseOutlineTool) LastSources() []Source {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sources
}

func (t *CourseOutlineTool) ResetSources() {
	t.mu.Lock()
	t.sources = nil
	t.mu.Unlock()
}

// ToolManager registers tools and dispatches model calls to them. It
// satisfies llm.ToolExecutor.
type ToolManager struct {
	order []string
	tools map[string]Tool
}

func NewToolManager(tools ...Tool) *ToolManager {
	m := &ToolManager{tools: make(map[string]Tool)}
	for _, tool := range tools {
		m.Register(tool)
	}
	return m
}

func (m *ToolManager) Register(tool Tool) {
	name := tool.Definition().Name
	if _, exists := m.tools[name]; !exists {
		m.order = append(m.order, name)
	}
	m.tools[name] = tool
}

func (m *ToolManager) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(m.order))
	for _, name := range m.order {
		defs = append(defs, m.tools[name].Definition())
	}
	return defs
}

// Execute dispatches to the named tool. An unknown name is reported
// back to the model as an observation, not an error.
func (m *ToolManager) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	tool, ok := m.tools[name]
	if !ok {
		return fmt.Sprintf("Tool '%s' not found.", name), nil
	}
	return tool.Execute(ctx, args)
}

// LastSources returns the sources recorded by the most recent tool
// execution, checking tools in registration order.
func (m *ToolManager) LastSources() []Source {
	for _, name := range m.order {
		if sources := m.tools[name].LastSources(); len(sources) > 0 {
			return sources
		}
	}
	return nil
}

// ResetSources clears recorded sources on every tool.
func (m *ToolManager) ResetSources() {
	for _, tool := range m.tools {
		tool.ResetSources()
	}
}

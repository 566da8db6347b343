package search

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/course-rag-server/internal/storage"
)

// fakeStore serves canned catalog and content data. Course resolution
// ignores the vector and returns the first catalog title, which is
// enough to test the no-threshold top-hit behavior.
type fakeStore struct {
	titles    map[string]*storage.CourseOutline
	chunks    []storage.ScoredChunk
	resolveTo string
	searchErr error

	mu         sync.Mutex
	lastFilter string
	lastLesson *int
}

func (f *fakeStore) ResolveCourseName(ctx context.Context, vector []float32) (string, float64, bool, error) {
	if f.resolveTo == "" {
		return "", 0, false, nil
	}
	return f.resolveTo, 0.83, true, nil
}

func (f *fakeStore) SearchContent(ctx context.Context, vector []float32, courseTitle string, lessonNumber *int, limit int) ([]storage.ScoredChunk, error) {
	f.mu.Lock()
	f.lastFilter = courseTitle
	f.lastLesson = lessonNumber
	f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	var hits []storage.ScoredChunk
	for _, chunk := range f.chunks {
		if courseTitle != "" && chunk.CourseTitle != courseTitle {
			continue
		}
		if lessonNumber != nil && (chunk.LessonNumber == nil || *chunk.LessonNumber != *lessonNumber) {
			continue
		}
		hits = append(hits, chunk)
	}
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (f *fakeStore) GetCourseOutline(ctx context.Context, title string) (*storage.CourseOutline, error) {
	outline, ok := f.titles[title]
	if !ok {
		return nil, storage.ErrCourseNotFound
	}
	return outline, nil
}

func (f *fakeStore) GetLessonLink(ctx context.Context, title string, lessonNumber int) (string, error) {
	outline, ok := f.titles[title]
	if !ok {
		return "", nil
	}
	for _, lesson := range outline.Lessons {
		if lesson.Number == lessonNumber {
			return lesson.Link, nil
		}
	}
	return "", nil
}

func (f *fakeStore) CourseCount(ctx context.Context) (int, error) {
	return len(f.titles), nil
}

type fakeEmbedder struct{ err error }

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return make([]float32, storage.VectorDimension), nil
}

func lessonPtr(n int) *int { return &n }

func populatedStore() *fakeStore {
	return &fakeStore{
		resolveTo: "Intro to Vectors",
		titles: map[string]*storage.CourseOutline{
			"Intro to Vectors": {
				Title:      "Intro to Vectors",
				Link:       "https://example.com/vectors",
				Instructor: "Ada Lovelace",
				Lessons: []storage.OutlineLesson{
					{Number: 0, Title: "Getting Started", Link: "https://example.com/vectors/l0"},
					{Number: 1, Title: "Dot Products", Link: "https://example.com/vectors/l1"},
				},
			},
		},
		chunks: []storage.ScoredChunk{
			{Content: "Vectors have magnitude and direction.", CourseTitle: "Intro to Vectors", LessonNumber: lessonPtr(0), ChunkIndex: 0, Score: 0.9},
			{Content: "The dot product measures alignment.", CourseTitle: "Intro to Vectors", LessonNumber: lessonPtr(1), ChunkIndex: 1, Score: 0.8},
		},
	}
}

func newSearchTool(store *fakeStore) *CourseSearchTool {
	return NewCourseSearchTool(NewSearcher(store, &fakeEmbedder{}, DefaultMaxResults))
}

func TestCourseSearchTool_FormatsResults(t *testing.T) {
	tool := newSearchTool(populatedStore())

	out, err := tool.Execute(context.Background(), map[string]any{"query": "what are vectors"})
	require.NoError(t, err)

	assert.Contains(t, out, "[Intro to Vectors - Lesson 0]\nVectors have magnitude and direction.")
	assert.Contains(t, out, "[Intro to Vectors - Lesson 1]\nThe dot product measures alignment.")

	sources := tool.LastSources()
	require.Len(t, sources, 2)
	assert.Equal(t, "Intro to Vectors - Lesson 0", sources[0].Text)
	assert.Equal(t, "https://example.com/vectors/l0", sources[0].Link)
}

func TestCourseSearchTool_FuzzyCourseFilter(t *testing.T) {
	store := populatedStore()
	tool := newSearchTool(store)

	// A partial name resolves against the catalog before filtering.
	out, err := tool.Execute(context.Background(), map[string]any{
		"query":       "dot products",
		"course_name": "vectors",
	})
	require.NoError(t, err)
	assert.Equal(t, "Intro to Vectors", store.lastFilter, "filter uses the resolved title, not the raw name")
	assert.Contains(t, out, "[Intro to Vectors")
}

func TestCourseSearchTool_LessonFilter(t *testing.T) {
	store := populatedStore()
	tool := newSearchTool(store)

	// JSON numbers arrive as float64.
	out, err := tool.Execute(context.Background(), map[string]any{
		"query":         "alignment",
		"lesson_number": float64(1),
	})
	require.NoError(t, err)
	require.NotNil(t, store.lastLesson)
	assert.Equal(t, 1, *store.lastLesson)
	assert.Contains(t, out, "Lesson 1")
	assert.NotContains(t, out, "Lesson 0")
}

func TestCourseSearchTool_NoMatches(t *testing.T) {
	tool := newSearchTool(populatedStore())

	out, err := tool.Execute(context.Background(), map[string]any{
		"query":         "anything",
		"course_name":   "vectors",
		"lesson_number": float64(42),
	})
	require.NoError(t, err)
	assert.Equal(t, "No relevant content found in course 'Intro to Vectors' in lesson 42.", out)
	assert.Empty(t, tool.LastSources())
}

func TestCourseSearchTool_EmptyCatalog(t *testing.T) {
	tool := newSearchTool(&fakeStore{})

	out, err := tool.Execute(context.Background(), map[string]any{"query": "anything"})
	require.NoError(t, err)
	assert.Equal(t, "No course materials have been loaded yet.", out)
}

func TestCourseSearchTool_MissingQuery(t *testing.T) {
	tool := newSearchTool(populatedStore())

	out, err := tool.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Contains(t, out, "'query' argument is required")
}

func TestCourseSearchTool_RetrievalFailure(t *testing.T) {
	store := populatedStore()
	store.searchErr = errors.New("grpc unavailable")
	tool := newSearchTool(store)

	_, err := tool.Execute(context.Background(), map[string]any{"query": "anything"})
	assert.ErrorIs(t, err, ErrRetrievalFailure)
}

func TestCourseSearchTool_SourcesReplacedPerCall(t *testing.T) {
	store := populatedStore()
	tool := newSearchTool(store)
	ctx := context.Background()

	_, err := tool.Execute(ctx, map[string]any{"query": "vectors"})
	require.NoError(t, err)
	require.Len(t, tool.LastSources(), 2)

	// Narrower second call replaces, never appends.
	_, err = tool.Execute(ctx, map[string]any{"query": "vectors", "lesson_number": float64(0)})
	require.NoError(t, err)
	require.Len(t, tool.LastSources(), 1)

	// A call with no matches keeps the previous sources recorded.
	out, err := tool.Execute(ctx, map[string]any{"query": "vectors", "lesson_number": float64(42)})
	require.NoError(t, err)
	assert.Contains(t, out, "No relevant content found")
	require.Len(t, tool.LastSources(), 1)

	tool.ResetSources()
	assert.Empty(t, tool.LastSources())
}

func TestCourseSearchTool_ConcurrentQueries(t *testing.T) {
	tool := newSearchTool(populatedStore())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, err := tool.Execute(ctx, map[string]any{"query": "vectors"})
				assert.NoError(t, err)
				for _, source := range tool.LastSources() {
					assert.Contains(t, source.Text, "Intro to Vectors")
				}
				tool.ResetSources()
			}
		}()
	}
	wg.Wait()
}

func TestCourseOutlineTool_FormatsOutline(t *testing.T) {
	tool := NewCourseOutlineTool(NewSearcher(populatedStore(), &fakeEmbedder{}, 0))

	out, err := tool.Execute(context.Background(), map[string]any{"course_name": "vectors"})
	require.NoError(t, err)

	assert.Contains(t, out, "Course: Intro to Vectors")
	assert.Contains(t, out, "Course Link: https://example.com/vectors")
	assert.Contains(t, out, "Instructor: Ada Lovelace")
	assert.Contains(t, out, "Lessons (2):")
	assert.Contains(t, out, "Lesson 0: Getting Started")
	assert.Contains(t, out, "Lesson 1: Dot Products")

	sources := tool.LastSources()
	require.Len(t, sources, 1)
	assert.Equal(t, "Intro to Vectors", sources[0].Text)
	assert.Equal(t, "https://example.com/vectors", sources[0].Link)
}

func TestCourseOutlineTool_MissingArgument(t *testing.T) {
	tool := NewCourseOutlineTool(NewSearcher(populatedStore(), &fakeEmbedder{}, 0))

	out, err := tool.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Contains(t, out, "'course_name' argument is required")
}

func TestToolManager_Dispatch(t *testing.T) {
	store := populatedStore()
	searcher := NewSearcher(store, &fakeEmbedder{}, 0)
	manager := NewToolManager(NewCourseSearchTool(searcher), NewCourseOutlineTool(searcher))
	ctx := context.Background()

	defs := manager.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "search_course_content", defs[0].Name)
	assert.Equal(t, "get_course_outline", defs[1].Name)

	out, err := manager.Execute(ctx, "search_course_content", map[string]any{"query": "vectors"})
	require.NoError(t, err)
	assert.Contains(t, out, "[Intro to Vectors")
	assert.NotEmpty(t, manager.LastSources())

	manager.ResetSources()
	assert.Empty(t, manager.LastSources())

	out, err = manager.Execute(ctx, "no_such_tool", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "Tool 'no_such_tool' not found.", out)
}

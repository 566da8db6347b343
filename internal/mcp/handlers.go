package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/course-rag-server/internal/search"
)

// CatalogReader lists the indexed courses. *storage.Store satisfies it.
type CatalogReader interface {
	ListCourseTitles(ctx context.Context) ([]string, error)
}

// makeSearchHandler creates the search_course_content tool handler.
// Course name filters are fuzzy-resolved against the catalog before
// the content search runs.
func makeSearchHandler(searcher *search.Searcher) func(
	context.Context, *mcp.CallToolRequest, SearchCourseContentInput,
) (*mcp.CallToolResult, SearchCourseContentOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchCourseContentInput) (
		*mcp.CallToolResult, SearchCourseContentOutput, error,
	) {
		results, err := searcher.Search(ctx, input.Query, input.CourseName, input.LessonNumber)
		if errors.Is(err, search.ErrNoCourses) {
			return nil, SearchCourseContentOutput{
				Results: []ContentResult{},
				Message: "No course materials have been loaded yet.",
			}, nil
		}
		if err != nil {
			return nil, SearchCourseContentOutput{}, fmt.Errorf("search failed: %w", err)
		}

		if input.CourseName != "" && results.ResolvedCourse == "" {
			return nil, SearchCourseContentOutput{
				Results: []ContentResult{},
				Message: fmt.Sprintf("No course found matching '%s'.", input.CourseName),
			}, nil
		}

		out := SearchCourseContentOutput{
			Results:        make([]ContentResult, 0, len(results.Chunks)),
			ResolvedCourse: results.ResolvedCourse,
		}
		for _, chunk := range results.Chunks {
			out.Results = append(out.Results, ContentResult{
				CourseTitle:  chunk.CourseTitle,
				LessonNumber: chunk.LessonNumber,
				Content:      chunk.Content,
				Score:        chunk.Score,
			})
		}
		if len(out.Results) == 0 {
			out.Message = "No relevant content found. Try broader search terms."
		}
		return nil, out, nil
	}
}

// makeOutlineHandler creates the get_course_outline tool handler.
func makeOutlineHandler(searcher *search.Searcher) func(
	context.Context, *mcp.CallToolRequest, GetCourseOutlineInput,
) (*mcp.CallToolResult, GetCourseOutlineOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input GetCourseOutlineInput) (
		*mcp.CallToolResult, GetCourseOutlineOutput, error,
	) {
		outline, found, err := searcher.Outline(ctx, input.CourseName)
		if err != nil {
			return nil, GetCourseOutlineOutput{}, fmt.Errorf("outline lookup failed: %w", err)
		}
		if !found {
			return nil, GetCourseOutlineOutput{Found: false}, nil
		}

		lessons := make([]OutlineLesson, 0, len(outline.Lessons))
		for _, lesson := range outline.Lessons {
			lessons = append(lessons, OutlineLesson{
				Number: lesson.Number,
				Title:  lesson.Title,
				Link:   lesson.Link,
			})
		}
		return nil, GetCourseOutlineOutput{
			Found:      true,
			Title:      outline.Title,
			Link:       outline.Link,
			Instructor: outline.Instructor,
			Lessons:    lessons,
		}, nil
	}
}

// makeListHandler creates the list_courses tool handler.
func makeListHandler(catalog CatalogReader) func(
	context.Context, *mcp.CallToolRequest, ListCoursesInput,
) (*mcp.CallToolResult, ListCoursesOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListCoursesInput) (
		*mcp.CallToolResult, ListCoursesOutput, error,
	) {
		titles, err := catalog.ListCourseTitles(ctx)
		if err != nil {
			return nil, ListCoursesOutput{}, fmt.Errorf("failed to list courses: %w", err)
		}
		sort.Strings(titles)
		return nil, ListCoursesOutput{
			Titles: titles,
			Count:  len(titles),
		}, nil
	}
}

// Package mcp exposes course retrieval over the Model Context Protocol
// so external clients can search the index with their own models.
package mcp

// SearchCourseContentInput defines the input parameters for the search_course_content tool.
type SearchCourseContentInput struct {
	// Query is the semantic search query.
	Query string `json:"query" jsonschema:"required,description=What to search for in the course content"`
	// CourseName optionally narrows the search to one course. Partial names work.
	CourseName string `json:"course_name,omitempty" jsonschema:"description=Course title to search within (partial names work)"`
	// LessonNumber optionally narrows the search to one lesson.
	LessonNumber *int `json:"lesson_number,omitempty" jsonschema:"minimum=0,description=Specific lesson number to search within"`
}

// SearchCourseContentOutput contains the search results.
type SearchCourseContentOutput struct {
	// Results is the list of matching chunks with provenance.
	Results []ContentResult `json:"results"`
	// ResolvedCourse is the catalog title a course_name filter matched, if any.
	ResolvedCourse string `json:"resolved_course,omitempty"`
	// Message provides informational context (e.g. "No relevant content found").
	Message string `json:"message,omitempty"`
}

// ContentResult is a single matching chunk.
type ContentResult struct {
	// CourseTitle is the course the chunk belongs to.
	CourseTitle string `json:"course_title"`
	// LessonNumber is the lesson the chunk belongs to, absent for course-level content.
	LessonNumber *int `json:"lesson_number,omitempty"`
	// Content is the chunk text.
	Content string `json:"content"`
	// Score is the similarity score (0-1).
	Score float64 `json:"score"`
}

// GetCourseOutlineInput defines the input parameters for the get_course_outline tool.
type GetCourseOutlineInput struct {
	// CourseName is the course to look up. Partial names work.
	CourseName string `json:"course_name" jsonschema:"required,description=Course title to look up (partial names work)"`
}

// GetCourseOutlineOutput contains the course outline.
type GetCourseOutlineOutput struct {
	// Found indicates whether a course matched.
	Found bool `json:"found"`
	// Title is the matched course's full title.
	Title string `json:"title,omitempty"`
	// Link is the course URL.
	Link string `json:"link,omitempty"`
	// Instructor is the course instructor.
	Instructor string `json:"instructor,omitempty"`
	// Lessons is the complete lesson list.
	Lessons []OutlineLesson `json:"lessons,omitempty"`
}

// OutlineLesson is one lesson in an outline.
type OutlineLesson struct {
	Number int    `json:"lesson_number"`
	Title  string `json:"lesson_title"`
	Link   string `json:"lesson_link,omitempty"`
}

// ListCoursesInput defines the input parameters for the list_courses tool.
// This tool takes no parameters.
type ListCoursesInput struct{}

// ListCoursesOutput contains the catalog summary.
type ListCoursesOutput struct {
	// Titles is all indexed course titles.
	Titles []string `json:"titles"`
	// Count is the total number of courses.
	Count int `json:"count"`
}

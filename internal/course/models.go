// Package course defines the domain model for course materials.
package course

// Course represents one course document. The title is the primary key:
// it identifies the course in the catalog and on every content chunk.
type Course struct {
	Title      string   // Unique course title
	Link       string   // Course URL, empty if unknown
	Instructor string   // Instructor name, empty if unknown
	Lessons    []Lesson // Ordered as they appear in the document
}

// Lesson is one lesson within a course. Lesson numbers are unique per
// course but need not be contiguous.
type Lesson struct {
	Number int
	Title  string
	Link   string // Lesson URL, empty if unknown
}

// Chunk is a sentence-aligned segment of course content. Chunks are
// created once during ingestion and never mutated; reloading a course
// replaces them wholesale. The first chunk of each lesson carries a
// "Course {title} Lesson {n} content:" prefix in Content.
type Chunk struct {
	Content      string
	CourseTitle  string
	LessonNumber *int // nil for course-level content outside any lesson
	ChunkIndex   int  // Zero-based, global across the whole document
}

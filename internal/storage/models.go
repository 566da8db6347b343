package storage

// Collection names. The catalog holds one point per course (title
// embedding) for fuzzy name resolution; content holds one point per
// chunk. The split is deliberate: title embeddings and chunk embeddings
// have different semantic density, so resolving course names against
// chunk vectors degrades accuracy.
const (
	CatalogCollection = "course_catalog"
	ContentCollection = "course_content"
)

// VectorDimension is the embedding size for text-embedding-3-small.
const VectorDimension = 1536

// ScoredChunk is one content search hit, ordered most similar first.
type ScoredChunk struct {
	Content      string
	CourseTitle  string
	LessonNumber *int // nil for course-level chunks
	ChunkIndex   int
	Score        float64 // cosine similarity, higher is closer
}

// CourseOutline is the catalog view of one course, reconstructed from
// catalog metadata without touching the content collection.
type CourseOutline struct {
	Title      string
	Link       string
	Instructor string
	Lessons    []OutlineLesson
}

// OutlineLesson is a lesson entry in a course outline. The JSON tags
// define the lessons_json payload format.
type OutlineLesson struct {
	Number int    `json:"lesson_number"`
	Title  string `json:"lesson_title"`
	Link   string `json:"lesson_link,omitempty"`
}

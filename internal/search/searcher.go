// Package search implements semantic retrieval over the course
// collections and the tools that expose it to the model.
package search

import (
	"context"
	"fmt"

	"github.com/bull/course-rag-server/internal/storage"
)

// DefaultMaxResults is how many chunks a search returns when the caller
// does not configure a limit.
const DefaultMaxResults = 5

// VectorStore is the slice of the storage layer the searcher needs.
// *storage.Store satisfies it.
type VectorStore interface {
	ResolveCourseName(ctx context.Context, vector []float32) (string, float64, bool, error)
	SearchContent(ctx context.Context, vector []float32, courseTitle string, lessonNumber *int, limit int) ([]storage.ScoredChunk, error)
	GetCourseOutline(ctx context.Context, title string) (*storage.CourseOutline, error)
	GetLessonLink(ctx context.Context, title string, lessonNumber int) (string, error)
	CourseCount(ctx context.Context) (int, error)
}

// Embedder turns query text into a vector. *embedding.Embedder
// satisfies it.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Results is the outcome of one content search. ResolvedCourse is set
// when a course name filter was given and matched; Score is the
// catalog similarity of that match.
type Results struct {
	Chunks         []storage.ScoredChunk
	ResolvedCourse string
	ResolveScore   float64
}

// Searcher runs filtered semantic searches, resolving fuzzy course
// names against the catalog first.
type Searcher struct {
	store      VectorStore
	embedder   Embedder
	maxResults int
}

// NewSearcher creates a searcher. A maxResults of 0 uses
// DefaultMaxResults.
func NewSearcher(store VectorStore, embedder Embedder, maxResults int) *Searcher {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &Searcher{store: store, embedder: embedder, maxResults: maxResults}
}

// ResolveCourse maps a partial or misspelled course name to the best
// matching catalog title. found is false when nothing matches, which
// with a non-empty catalog cannot happen since resolution takes the
// top hit without a threshold.
func (s *Searcher) ResolveCourse(ctx context.Context, name string) (title string, score float64, found bool, err error) {
	vector, err := s.embedder.EmbedQuery(ctx, name)
	if err != nil {
		return "", 0, false, fmt.Errorf("%w: embedding course name: %v", ErrRetrievalFailure, err)
	}
	title, score, found, err = s.store.ResolveCourseName(ctx, vector)
	if err != nil {
		return "", 0, false, fmt.Errorf("%w: resolving course name: %v", ErrRetrievalFailure, err)
	}
	return title, score, found, nil
}

// Search embeds the query and searches the content collection,
// optionally filtered to one course (fuzzy-matched) and one lesson.
// An empty catalog returns ErrNoCourses. An unmatched filter returns
// empty Chunks, not an error.
func (s *Searcher) Search(ctx context.Context, query, courseName string, lessonNumber *int) (*Results, error) {
	count, err := s.store.CourseCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: counting courses: %v", ErrRetrievalFailure, err)
	}
	if count == 0 {
		return nil, ErrNoCourses
	}

	results := &Results{}
	if courseName != "" {
		title, score, found, err := s.ResolveCourse(ctx, courseName)
		if err != nil {
			return nil, err
		}
		if !found {
			// Non-empty catalog with no resolution should not occur;
			// treat it as an unmatched filter.
			return results, nil
		}
		results.ResolvedCourse = title
		results.ResolveScore = score
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %v", ErrRetrievalFailure, err)
	}

	chunks, err := s.store.SearchContent(ctx, vector, results.ResolvedCourse, lessonNumber, s.maxResults)
	if err != nil {
		return nil, fmt.Errorf("%w: searching content: %v", ErrRetrievalFailure, err)
	}
	results.Chunks = chunks
	return results, nil
}

// Outline resolves a fuzzy course name and returns that course's
// catalog outline. found is false when the catalog is empty.
func (s *Searcher) Outline(ctx context.Context, courseName string) (*storage.CourseOutline, bool, error) {
	title, _, found, err := s.ResolveCourse(ctx, courseName)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	outline, err := s.store.GetCourseOutline(ctx, title)
	if err != nil {
		return nil, false, fmt.Errorf("%w: fetching outline: %v", ErrRetrievalFailure, err)
	}
	return outline, true, nil
}

// LessonLink returns the stored link for one lesson, or "" when the
// lesson has none. Lookup failures are swallowed; a missing link only
// costs the source its hyperlink.
func (s *Searcher) LessonLink(ctx context.Context, courseTitle string, lessonNumber int) string {
	link, err := s.store.GetLessonLink(ctx, courseTitle, lessonNumber)
	if err != nil {
		return ""
	}
	return link
}

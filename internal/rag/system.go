// Package rag wires retrieval, generation, ingestion, and session
// state into the single entrypoint the serving surfaces call.
package rag

import (
	"context"
	"fmt"

	"github.com/bull/course-rag-server/internal/ingest"
	"github.com/bull/course-rag-server/internal/llm"
	"github.com/bull/course-rag-server/internal/search"
	"github.com/bull/course-rag-server/internal/session"
)

// Generator produces an answer for a query, calling tools as needed.
// *llm.Generator satisfies it.
type Generator interface {
	GenerateResponse(ctx context.Context, query, history string, tools llm.ToolExecutor) (string, error)
}

// Ingestor indexes course documents. *ingest.Pipeline satisfies it.
type Ingestor interface {
	IndexAll(ctx context.Context, source ingest.Source, opts ingest.Options) (*ingest.Result, error)
}

// CatalogReader summarizes the indexed catalog. *storage.Store
// satisfies it.
type CatalogReader interface {
	ListCourseTitles(ctx context.Context) ([]string, error)
	CourseCount(ctx context.Context) (int, error)
}

const queryPrompt = "Answer this question about course materials: %s"

// System answers user queries over the indexed course materials.
type System struct {
	generator Generator
	tools     *search.ToolManager
	sessions  *session.Manager
	ingestor  Ingestor
	catalog   CatalogReader
}

func NewSystem(generator Generator, tools *search.ToolManager, sessions *session.Manager, ingestor Ingestor, catalog CatalogReader) *System {
	return &System{
		generator: generator,
		tools:     tools,
		sessions:  sessions,
		ingestor:  ingestor,
		catalog:   catalog,
	}
}

// Sessions exposes the session manager for surfaces that mint IDs.
func (s *System) Sessions() *session.Manager {
	return s.sessions
}

// Query answers one user question. A non-empty sessionID threads
// conversation history into the prompt and records the exchange
// afterwards. Returned sources identify the course material the answer
// drew on; they are empty when no retrieval happened.
func (s *System) Query(ctx context.Context, query, sessionID string) (string, []search.Source, error) {
	var history string
	if sessionID != "" {
		history = s.sessions.History(sessionID)
	}

	prompt := fmt.Sprintf(queryPrompt, query)
	answer, err := s.generator.GenerateResponse(ctx, prompt, history, s.tools)
	if err != nil {
		return "", nil, err
	}

	// Sources accumulate during tool execution; collect then reset so
	// the next query starts clean.
	sources := s.tools.LastSources()
	s.tools.ResetSources()

	if sessionID != "" {
		s.sessions.Append(sessionID, query, answer)
	}
	return answer, sources, nil
}

// AddCourseFolder indexes every course document in a local folder.
// Courses already in the catalog are skipped unless clear is set.
func (s *System) AddCourseFolder(ctx context.Context, path string, clear bool) (*ingest.Result, error) {
	return s.ingestor.IndexAll(ctx, ingest.NewDirSource(path), ingest.Options{Clear: clear})
}

// Analytics returns the catalog summary shown by the courses endpoint.
func (s *System) Analytics(ctx context.Context) (int, []string, error) {
	titles, err := s.catalog.ListCourseTitles(ctx)
	if err != nil {
		return 0, nil, err
	}
	count, err := s.catalog.CourseCount(ctx)
	if err != nil {
		return 0, nil, err
	}
	return count, titles, nil
}

package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bull/course-rag-server/internal/course"
	"github.com/bull/course-rag-server/internal/docproc"
)

// Store is the slice of the storage layer the pipeline writes to.
// *storage.Store satisfies it.
type Store interface {
	EnsureCollections(ctx context.Context) error
	HasCourse(ctx context.Context, title string) (bool, error)
	UpsertCatalogEntry(ctx context.Context, crs *course.Course, vector []float32) error
	UpsertChunks(ctx context.Context, chunks []course.Chunk, vectors [][]float32) error
	ClearAll(ctx context.Context) error
}

// Embedder produces vectors for catalog entries and content chunks.
// *embedding.Embedder satisfies it.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Result summarizes one ingest run.
type Result struct {
	TotalDocs      int
	SuccessfulDocs int
	SkippedDocs    int
	FailedDocs     int
	TotalChunks    int
	Duration       time.Duration
}

// Options control one pipeline run.
type Options struct {
	// Clear drops both collections before ingesting, forcing a full
	// rebuild instead of the default incremental load.
	Clear bool
}

// Pipeline ingests course documents end to end: parse, chunk, embed,
// upsert. Re-running over the same documents is a no-op for courses
// already in the catalog.
type Pipeline struct {
	store     Store
	embedder  Embedder
	processor *docproc.Processor
	logger    *slog.Logger
}

func NewPipeline(store Store, embedder Embedder, processor *docproc.Processor, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:     store,
		embedder:  embedder,
		processor: processor,
		logger:    logger,
	}
}

// IndexAll ingests every document the source lists. Malformed documents
// and per-document embedding failures are counted and logged, not
// fatal; an unreachable store or source is.
func (p *Pipeline) IndexAll(ctx context.Context, source Source, opts Options) (*Result, error) {
	start := time.Now()

	if err := p.store.EnsureCollections(ctx); err != nil {
		return nil, fmt.Errorf("ensuring collections: %w", err)
	}
	if opts.Clear {
		p.logger.Info("clearing existing course data")
		if err := p.store.ClearAll(ctx); err != nil {
			return nil, fmt.Errorf("clearing collections: %w", err)
		}
		if err := p.store.EnsureCollections(ctx); err != nil {
			return nil, fmt.Errorf("recreating collections: %w", err)
		}
	}

	names, err := source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	result := &Result{TotalDocs: len(names)}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		added, chunks, err := p.ingestDocument(ctx, source, name, opts)
		switch {
		case err != nil:
			result.FailedDocs++
			p.logger.Error("document failed", "doc", name, "error", err)
		case !added:
			result.SkippedDocs++
			p.logger.Debug("document already indexed", "doc", name)
		default:
			result.SuccessfulDocs++
			result.TotalChunks += chunks
			p.logger.Info("document indexed", "doc", name, "chunks", chunks)
		}
	}

	result.Duration = time.Since(start)
	p.logger.Info("ingest complete",
		"total", result.TotalDocs,
		"indexed", result.SuccessfulDocs,
		"skipped", result.SkippedDocs,
		"failed", result.FailedDocs,
		"chunks", result.TotalChunks,
		"duration", result.Duration.Round(time.Millisecond))
	return result, nil
}

// ingestDocument processes one document. added is false when the
// course was already in the catalog and left untouched.
func (p *Pipeline) ingestDocument(ctx context.Context, source Source, name string, opts Options) (added bool, chunkCount int, err error) {
	content, err := source.Fetch(ctx, name)
	if err != nil {
		return false, 0, err
	}

	crs, chunks, err := p.processor.ProcessDocument(name, content)
	if err != nil {
		if errors.Is(err, docproc.ErrMalformedDocument) {
			return false, 0, fmt.Errorf("skipping %s: %w", name, err)
		}
		return false, 0, err
	}

	if !opts.Clear {
		exists, err := p.store.HasCourse(ctx, crs.Title)
		if err != nil {
			return false, 0, fmt.Errorf("checking catalog for %q: %w", crs.Title, err)
		}
		if exists {
			return false, 0, nil
		}
	}

	titleVector, err := p.embedder.EmbedQuery(ctx, crs.Title)
	if err != nil {
		return false, 0, fmt.Errorf("embedding title for %q: %w", crs.Title, err)
	}
	if err := p.store.UpsertCatalogEntry(ctx, crs, titleVector); err != nil {
		return false, 0, fmt.Errorf("upserting catalog entry for %q: %w", crs.Title, err)
	}

	if len(chunks) == 0 {
		return true, 0, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}
	vectors, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return false, 0, fmt.Errorf("embedding chunks for %q: %w", crs.Title, err)
	}
	if err := p.store.UpsertChunks(ctx, chunks, vectors); err != nil {
		return false, 0, fmt.Errorf("upserting chunks for %q: %w", crs.Title, err)
	}
	return true, len(chunks), nil
}

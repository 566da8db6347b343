// Package storage persists the course catalog and content chunks in
// Qdrant across two collections.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/bull/course-rag-server/internal/course"
)

// Store wraps the Qdrant client with connection management and the
// dual-collection schema.
type Store struct {
	client *qdrant.Client
	host   string
	port   int
}

// NewStore creates a Qdrant client and validates connectivity. It
// performs a health check with retry on startup and fails fast if
// Qdrant is unreachable.
func NewStore(host string, port int) (*Store, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	store := &Store{
		client: client,
		host:   host,
		port:   port,
	}

	ctx := context.Background()
	if err := store.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return store, nil
}

// healthCheckWithRetry performs the startup health check with
// exponential backoff. Initial interval 500ms, max interval 10s, max
// elapsed 30s.
func (s *Store) healthCheckWithRetry(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, b)
}

// Health performs a single health check against Qdrant.
func (s *Store) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// EnsureCollections creates the catalog and content collections when
// missing, with cosine-distance vectors and payload indexes on the
// filterable content fields. Idempotent.
func (s *Store) EnsureCollections(ctx context.Context) error {
	existing, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	present := make(map[string]bool, len(existing))
	for _, name := range existing {
		present[name] = true
	}

	for _, name := range []string{CatalogCollection, ContentCollection} {
		if present[name] {
			continue
		}
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     VectorDimension,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection %s: %w", name, err)
		}
	}

	// Without these indexes equality filtering on content is 10-100x
	// slower.
	indexes := []struct {
		field string
		kind  qdrant.FieldType
	}{
		{"course_title", qdrant.FieldType_FieldTypeKeyword},
		{"lesson_number", qdrant.FieldType_FieldTypeInteger},
	}
	for _, idx := range indexes {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: ContentCollection,
			FieldName:      idx.field,
			FieldType:      idx.kind.Enum(),
		})
		if err != nil {
			return fmt.Errorf("failed to create index for field %s: %w", idx.field, err)
		}
	}

	return nil
}

// ClearAll deletes and recreates both collections.
func (s *Store) ClearAll(ctx context.Context) error {
	for _, name := range []string{CatalogCollection, ContentCollection} {
		if err := s.client.DeleteCollection(ctx, name); err != nil {
			return fmt.Errorf("failed to delete collection %s: %w", name, err)
		}
	}
	return s.EnsureCollections(ctx)
}

// Close closes the Qdrant client connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// catalogPointID derives the deterministic point ID for a course title.
// Re-upserting the same title always lands on the same point, which is
// what makes course loading idempotent.
func catalogPointID(title string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("course:"+title)).String()
}

// contentPointID derives the deterministic point ID for a chunk. The
// chunk identity key is (course title, chunk index).
func contentPointID(title string, chunkIndex int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("chunk:%s#%d", title, chunkIndex))).String()
}

// upsertWithRetry performs an upsert with exponential backoff.
func (s *Store) upsertWithRetry(ctx context.Context, collection string, points []*qdrant.PointStruct) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Points:         points,
		})
		return err
	}, b)
}

// UpsertCatalogEntry stores one course in the catalog, vectorized by its
// title. Unset optional fields are omitted from the payload entirely;
// the index rejects null values. The lesson list is serialized into
// lessons_json so outlines are reconstructed without a second read path.
func (s *Store) UpsertCatalogEntry(ctx context.Context, crs *course.Course, titleVector []float32) error {
	if len(titleVector) != VectorDimension {
		return fmt.Errorf("%w: title vector has %d dimensions, expected %d",
			ErrDimensionMismatch, len(titleVector), VectorDimension)
	}

	lessons := make([]OutlineLesson, len(crs.Lessons))
	for i, l := range crs.Lessons {
		lessons[i] = OutlineLesson{Number: l.Number, Title: l.Title, Link: l.Link}
	}
	lessonsJSON, err := json.Marshal(lessons)
	if err != nil {
		return fmt.Errorf("failed to serialize lessons: %w", err)
	}

	payload := map[string]any{
		"title":        crs.Title,
		"lessons_json": string(lessonsJSON),
		"lesson_count": len(crs.Lessons),
	}
	if crs.Instructor != "" {
		payload["instructor"] = crs.Instructor
	}
	if crs.Link != "" {
		payload["course_link"] = crs.Link
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(catalogPointID(crs.Title)),
		Vectors: qdrant.NewVectors(titleVector...),
		Payload: qdrant.NewValueMap(payload),
	}

	return s.upsertWithRetry(ctx, CatalogCollection, []*qdrant.PointStruct{point})
}

// HasCourse reports whether a course title is already in the catalog.
// Callers use this to skip reprocessing on reload.
func (s *Store) HasCourse(ctx context.Context, title string) (bool, error) {
	result, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: CatalogCollection,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(catalogPointID(title))},
	})
	if err != nil {
		return false, fmt.Errorf("failed to check course existence: %w", err)
	}
	return len(result) > 0, nil
}

// UpsertChunks stores content chunks with their embeddings, batched in
// groups of 100. vectors[i] embeds chunks[i].
func (s *Store) UpsertChunks(ctx context.Context, chunks []course.Chunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return nil
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks))
	}
	for i, vec := range vectors {
		if len(vec) != VectorDimension {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(vec), VectorDimension)
		}
	}

	batchSize := 100
	for start := 0; start < len(chunks); start += batchSize {
		end := min(start+batchSize, len(chunks))

		points := make([]*qdrant.PointStruct, 0, end-start)
		for i := start; i < end; i++ {
			chunk := chunks[i]
			payload := map[string]any{
				"course_title": chunk.CourseTitle,
				"chunk_index":  chunk.ChunkIndex,
				"content":      chunk.Content,
			}
			if chunk.LessonNumber != nil {
				payload["lesson_number"] = *chunk.LessonNumber
			}
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(contentPointID(chunk.CourseTitle, chunk.ChunkIndex)),
				Vectors: qdrant.NewVectors(vectors[i]...),
				Payload: qdrant.NewValueMap(payload),
			})
		}

		if err := s.upsertWithRetry(ctx, ContentCollection, points); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", start, end, err)
		}
	}

	return nil
}

// ResolveCourseName finds the catalog title closest to the embedded
// fuzzy name. There is no similarity threshold: the nearest title is
// always returned when the catalog is non-empty, found=false only for
// an empty catalog. Course-name filters in queries are rarely exact
// strings, so resolution is best-guess, never exact-or-fail.
func (s *Store) ResolveCourseName(ctx context.Context, nameVector []float32) (title string, score float64, found bool, err error) {
	if len(nameVector) != VectorDimension {
		return "", 0, false, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(nameVector), VectorDimension)
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: CatalogCollection,
		Query:          qdrant.NewQuery(nameVector...),
		Limit:          qdrant.PtrOf(uint64(1)),
		WithPayload:    qdrant.NewWithPayloadInclude("title"),
	})
	if err != nil {
		return "", 0, false, fmt.Errorf("failed to resolve course name: %w", err)
	}
	if len(results) == 0 {
		return "", 0, false, nil
	}

	return results[0].Payload["title"].GetStringValue(), float64(results[0].Score), true, nil
}

// SearchContent performs similarity search over content chunks.
// courseTitle must be an exact catalog title (resolve fuzzy names
// first); lessonNumber of nil means no lesson filter. Returns up to
// limit hits, most similar first, or an empty slice when nothing
// matches.
func (s *Store) SearchContent(ctx context.Context, queryVector []float32, courseTitle string, lessonNumber *int, limit int) ([]ScoredChunk, error) {
	if len(queryVector) != VectorDimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(queryVector), VectorDimension)
	}

	var must []*qdrant.Condition
	if courseTitle != "" {
		must = append(must, qdrant.NewMatch("course_title", courseTitle))
	}
	if lessonNumber != nil {
		must = append(must, qdrant.NewMatchInt("lesson_number", int64(*lessonNumber)))
	}
	var filter *qdrant.Filter
	if len(must) > 0 {
		filter = &qdrant.Filter{Must: must}
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: ContentCollection,
		Query:          qdrant.NewQuery(queryVector...),
		Filter:         filter,
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search content: %w", err)
	}

	chunks := make([]ScoredChunk, 0, len(results))
	for _, result := range results {
		payload := result.Payload

		chunk := ScoredChunk{
			Content:     payload["content"].GetStringValue(),
			CourseTitle: payload["course_title"].GetStringValue(),
			ChunkIndex:  int(payload["chunk_index"].GetIntegerValue()),
			Score:       float64(result.Score),
		}
		if val, ok := payload["lesson_number"]; ok {
			n := int(val.GetIntegerValue())
			chunk.LessonNumber = &n
		}
		chunks = append(chunks, chunk)
	}

	return chunks, nil
}

// ListCourseTitles returns all catalog titles, sorted alphabetically.
func (s *Store) ListCourseTitles(ctx context.Context) ([]string, error) {
	var titles []string
	var offset *qdrant.PointId
	batchSize := uint32(100)

	for {
		results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: CatalogCollection,
			Limit:          qdrant.PtrOf(batchSize),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayloadInclude("title"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scroll catalog: %w", err)
		}

		for _, result := range results {
			if title := result.Payload["title"].GetStringValue(); title != "" {
				titles = append(titles, title)
			}
		}

		if uint32(len(results)) < batchSize {
			break
		}
		offset = results[len(results)-1].Id
	}

	sort.Strings(titles)
	return titles, nil
}

// CourseCount returns the number of courses in the catalog.
func (s *Store) CourseCount(ctx context.Context) (int, error) {
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: CatalogCollection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count courses: %w", err)
	}
	return int(count), nil
}

// GetCourseOutline fetches a catalog entry by exact title and rebuilds
// its lesson list from lessons_json. Returns ErrCourseNotFound when the
// title is not in the catalog.
func (s *Store) GetCourseOutline(ctx context.Context, title string) (*CourseOutline, error) {
	result, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: CatalogCollection,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(catalogPointID(title))},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog entry: %w", err)
	}
	if len(result) == 0 {
		return nil, ErrCourseNotFound
	}

	payload := result[0].Payload
	outline := &CourseOutline{
		Title:      payload["title"].GetStringValue(),
		Link:       payload["course_link"].GetStringValue(),
		Instructor: payload["instructor"].GetStringValue(),
	}

	if raw := payload["lessons_json"].GetStringValue(); raw != "" {
		if err := json.Unmarshal([]byte(raw), &outline.Lessons); err != nil {
			return nil, fmt.Errorf("failed to parse lessons for %q: %w", title, err)
		}
	}

	return outline, nil
}

// GetLessonLink returns the link for one lesson of a course, or "" when
// the lesson has no link.
func (s *Store) GetLessonLink(ctx context.Context, title string, lessonNumber int) (string, error) {
	outline, err := s.GetCourseOutline(ctx, title)
	if err != nil {
		return "", err
	}
	for _, lesson := range outline.Lessons {
		if lesson.Number == lessonNumber {
			return lesson.Link, nil
		}
	}
	return "", nil
}

package search

import "errors"

var (
	// ErrRetrievalFailure indicates the vector store or embedding
	// provider failed during a search. Distinct from an empty result,
	// which is a normal outcome.
	ErrRetrievalFailure = errors.New("retrieval failure")

	// ErrNoCourses indicates the catalog is empty, so nothing can be
	// searched or resolved.
	ErrNoCourses = errors.New("no courses in catalog")
)

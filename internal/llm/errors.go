package llm

import "errors"

// ErrModelUnavailable indicates the language model provider call failed
// or timed out. Surfaced to the caller as a single query-failed outcome.
var ErrModelUnavailable = errors.New("language model unavailable")

package docproc

import "errors"

// ErrMalformedDocument indicates a course document that does not start
// with the three required header lines. The document is skipped during
// ingestion; no partial course is produced.
var ErrMalformedDocument = errors.New("malformed course document")

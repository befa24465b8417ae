package types

import "errors"

// Sentinel errors shared across packages. Each maps to a distinct
// user-diagnosable condition.
var (
	// ErrNotIndexed is returned when querying a root that has never been
	// indexed, as opposed to an empty-result success.
	ErrNotIndexed = errors.New("index not built yet")

	// ErrEmptyQuery is returned when a query string is empty before any
	// retrieval work happens.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrTargetMissing is returned when the indexing target directory does
	// not exist.
	ErrTargetMissing = errors.New("target directory does not exist")
)

package vector

import "errors"

var (
	// ErrNotFound is returned when a record is not found in the store.
	ErrNotFound = errors.New("record not found")

	// ErrCorrupt is returned when persisted state cannot be read back as
	// well-formed records (dimension mismatch, missing fields). A corrupt
	// store must be rebuilt from source documents, not repaired in place.
	ErrCorrupt = errors.New("vector store corrupt")

	// ErrUnavailable is returned when the backing store cannot be reached.
	ErrUnavailable = errors.New("vector store unavailable")
)

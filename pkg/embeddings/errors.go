package embeddings

import "errors"

var (
	// ErrEmbedding is returned when embedding generation fails.
	ErrEmbedding = errors.New("embedding failed")

	// ErrInputTooLong is returned when an input exceeds the backend's
	// input limit. Inputs are never silently truncated.
	ErrInputTooLong = errors.New("embedding input too long")
)

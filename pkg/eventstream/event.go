package eventstream

import "time"

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeSourceIndexed is emitted after one source document is
	// (re)indexed.
	EventTypeSourceIndexed = "parlance.source.indexed"

	// EventTypeCorpusIndexed is emitted after a full indexing run
	// completes.
	EventTypeCorpusIndexed = "parlance.corpus.indexed"
)

// SourceIndexedEvent is a transport-neutral event payload describing one
// indexed source document.
type SourceIndexedEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`

	Source     string `json:"source"`
	Language   string `json:"language"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
	Added      int    `json:"added"`
	Updated    int    `json:"updated"`
	Skipped    int    `json:"skipped"`
	Removed    int    `json:"removed"`
	Error      string `json:"error,omitempty"`
}

// CorpusIndexedEvent is a transport-neutral event payload summarizing a
// full indexing run.
type CorpusIndexedEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`

	Added        int   `json:"added"`
	Updated      int   `json:"updated"`
	Skipped      int   `json:"skipped"`
	Removed      int   `json:"removed"`
	TotalRecords int   `json:"total_records"`
	Sources      int   `json:"sources"`
	DurationMs   int64 `json:"duration_ms"`
}

package eventstream

import "context"

// Publisher publishes indexing events to an event stream backend.
type Publisher interface {
	PublishSourceIndexed(ctx context.Context, event *SourceIndexedEvent) error
	PublishCorpusIndexed(ctx context.Context, event *CorpusIndexedEvent) error
	Close() error
}

package nop

import (
	"context"

	"github.com/parlancehq/parlance/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishSourceIndexed validates input and otherwise does nothing.
func (p *Publisher) PublishSourceIndexed(_ context.Context, event *eventstream.SourceIndexedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	return nil
}

// PublishCorpusIndexed validates input and otherwise does nothing.
func (p *Publisher) PublishCorpusIndexed(_ context.Context, event *eventstream.CorpusIndexedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}

package testutils

import (
	"context"
	"sync"

	"github.com/parlancehq/parlance/pkg/eventstream"
)

// MockPublisher records published events so tests can assert on what the
// indexing pipeline emitted. Publish failures are injectable per event type.
type MockPublisher struct {
	// SourceErr and CorpusErr, when set, are returned by the matching
	// publish method.
	SourceErr error
	CorpusErr error

	mu           sync.Mutex
	sourceEvents []eventstream.SourceIndexedEvent
	corpusEvents []eventstream.CorpusIndexedEvent
	closed       bool
}

var _ eventstream.Publisher = (*MockPublisher)(nil)

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (p *MockPublisher) PublishSourceIndexed(_ context.Context, event *eventstream.SourceIndexedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	if p.SourceErr != nil {
		return p.SourceErr
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.sourceEvents = append(p.sourceEvents, *event)

	return nil
}

func (p *MockPublisher) PublishCorpusIndexed(_ context.Context, event *eventstream.CorpusIndexedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	if p.CorpusErr != nil {
		return p.CorpusErr
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.corpusEvents = append(p.corpusEvents, *event)

	return nil
}

// SourceEvents returns the recorded source events in publish order.
func (p *MockPublisher) SourceEvents() []eventstream.SourceIndexedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]eventstream.SourceIndexedEvent, len(p.sourceEvents))
	copy(out, p.sourceEvents)
	return out
}

// CorpusEvents returns the recorded corpus events in publish order.
func (p *MockPublisher) CorpusEvents() []eventstream.CorpusIndexedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]eventstream.CorpusIndexedEvent, len(p.corpusEvents))
	copy(out, p.corpusEvents)
	return out
}

func (p *MockPublisher) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *MockPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

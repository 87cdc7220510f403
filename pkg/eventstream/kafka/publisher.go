// Package kafka publishes indexing events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/parlancehq/parlance/pkg/eventstream"
)

// DefaultBatchTimeout bounds how long messages buffer before a flush.
// Indexing events are low-volume, so a short flush keeps them timely.
const DefaultBatchTimeout = 100 * time.Millisecond

// Config holds the settings for a Kafka publisher.
type Config struct {
	// Brokers lists bootstrap broker addresses. Required.
	Brokers []string

	// Topic receives the events. Required.
	Topic string

	// BatchTimeout overrides DefaultBatchTimeout when set.
	BatchTimeout time.Duration
}

// Publisher writes indexing events to a Kafka topic. Messages are keyed
// by source path, so one source's events stay ordered within a
// partition.
type Publisher struct {
	writer *kafkago.Writer
	logger *zap.Logger
}

var _ eventstream.Publisher = (*Publisher)(nil)

func NewPublisher(cfg Config, logger *zap.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	batchTimeout := cfg.BatchTimeout
	if batchTimeout == 0 {
		batchTimeout = DefaultBatchTimeout
	}

	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		BatchTimeout: batchTimeout,
	}

	return &Publisher{
		writer: writer,
		logger: logger,
	}, nil
}

func (p *Publisher) PublishSourceIndexed(ctx context.Context, event *eventstream.SourceIndexedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	return p.publish(ctx, event.Source, event)
}

func (p *Publisher) PublishCorpusIndexed(ctx context.Context, event *eventstream.CorpusIndexedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	// Corpus summaries share one key so they stay ordered with each
	// other.
	return p.publish(ctx, "corpus", event)
}

func (p *Publisher) publish(ctx context.Context, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(key),
		Value: payload,
	}); err != nil {
		return fmt.Errorf("writing event to kafka: %w", err)
	}

	p.logger.Debug("indexing event published", zap.String("key", key))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Package eventstreamutils builds event publishers from provider
// configuration.
package eventstreamutils

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/parlancehq/parlance/pkg/eventstream"
	"github.com/parlancehq/parlance/pkg/eventstream/kafka"
	"github.com/parlancehq/parlance/pkg/eventstream/nop"
)

type NewPublisherOpts struct {
	// ProviderType selects the backend: "nop" (default) or "kafka".
	ProviderType string

	// Brokers and Topic configure the kafka provider.
	Brokers []string
	Topic   string

	Logger *zap.Logger
}

// NewPublisher builds an event publisher for the configured provider.
func NewPublisher(o *NewPublisherOpts) (eventstream.Publisher, error) {
	switch o.ProviderType {
	case "", "nop":
		return nop.NewPublisher(), nil
	case "kafka":
		return kafka.NewPublisher(kafka.Config{
			Brokers: o.Brokers,
			Topic:   o.Topic,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported events provider: %s", o.ProviderType)
	}
}

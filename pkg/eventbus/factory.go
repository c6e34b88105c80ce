package eventbus

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/tapestry-ai/tapestry/pkg/channels/gochannel"
	"github.com/tapestry-ai/tapestry/pkg/channels/kafka"
)

// NewEventBus builds an event bus on the named channel provider.
// Supported providers are "kafka" and "gochannel".
func NewEventBus(provider, serviceName string, logger *slog.Logger) (EventBus, error) {
	watermillLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermillLogger, serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka pub/sub: %w", err)
		}

		return NewWatermillEventBus(pub, sub), nil
	case "gochannel", "":
		pub, sub, err := gochannel.CreateChannel(watermillLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create gochannel pub/sub: %w", err)
		}

		return NewWatermillEventBus(pub, sub), nil
	default:
		return nil, fmt.Errorf("unknown event bus provider: %q", provider)
	}
}

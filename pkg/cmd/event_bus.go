package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/togay-aytemiz/lumiso-sub000/pkg/channels/gochannel"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/channels/kafka"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/eventbus"
)

// NewEventBus builds the event bus for the given provider. Kafka is the
// production transport; the in-process go channel is the default elsewhere.
func NewEventBus(provider, serviceName string, logger *slog.Logger) eventbus.EventBus {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, serviceName)
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	default:
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			panic(fmt.Errorf("failed to create go channel pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	}
}

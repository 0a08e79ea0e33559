package bus

import (
	"fmt"

	"github.com/opensource-finance/shrike/internal/domain"
)

// New selects the bus for the deployment tier: in-process channels for a
// single-binary Community install, NATS when the worker runs out of
// process.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		return NewNATSBus(cfg)

	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}

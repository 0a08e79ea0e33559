package domain

import (
	"context"
)

// EventBus carries twin events and scan results between the API, the async
// worker, and external consumers. Every call is tenant-scoped; a tenant's
// subscribers never see another tenant's traffic. Implementations: Go
// channels (Community) and NATS (Pro).
type EventBus interface {
	// Publish sends a payload to the tenant's topic.
	Publish(ctx context.Context, tenantID string, topic string, payload []byte) error

	// Subscribe registers a handler for the tenant's topic.
	Subscribe(ctx context.Context, tenantID string, topic string, handler MessageHandler) (Subscription, error)

	// Request publishes and waits for a single reply.
	Request(ctx context.Context, tenantID string, topic string, payload []byte) ([]byte, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message is the envelope both bus implementations deliver.
type Message struct {
	ID        string            `json:"id"`
	TenantID  string            `json:"tenantId"`
	Topic     string            `json:"topic"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`
}

// Subscription is a live registration that can be torn down.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string

	// Channel settings (Community tier)
	ChannelBufferSize int

	// NATS settings (Pro tier)
	NATSUrl           string
	NATSToken         string
	NATSMaxReconnects int
	NATSReconnectWait int // seconds
}

// Topics of the diagnostics pipeline. EventApplied feeds the worker;
// MerchantUpdated and ScanCompleted announce its outputs; Alert carries
// deduplicated critical findings.
const (
	TopicEventApplied    = "shrike.event.applied"
	TopicMerchantUpdated = "shrike.merchant.updated"
	TopicScanCompleted   = "shrike.scan.completed"
	TopicAlert           = "shrike.alert"
)

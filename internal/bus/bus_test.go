package bus

import (
	"context"
	"testing"
	"time"

	"github.com/opensource-finance/shrike/internal/domain"
)

func TestChannelBusPublishSubscribe(t *testing.T) {
	b := NewChannelBus(10)
	defer b.Close()
	ctx := context.Background()

	received := make(chan *domain.Message, 1)
	sub, err := b.Subscribe(ctx, "tenant-001", domain.TopicEventApplied, func(ctx context.Context, msg *domain.Message) error {
		received <- msg
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	if err := b.Publish(ctx, "tenant-001", domain.TopicEventApplied, []byte(`{"merchantId":"m-1"}`)); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case msg := <-received:
		if msg.TenantID != "tenant-001" || msg.Topic != domain.TopicEventApplied {
			t.Errorf("unexpected envelope: tenant=%s topic=%s", msg.TenantID, msg.Topic)
		}
		if string(msg.Payload) != `{"merchantId":"m-1"}` {
			t.Errorf("unexpected payload: %s", msg.Payload)
		}
		if msg.ID == "" || msg.Timestamp == 0 {
			t.Error("expected message ID and timestamp")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message never delivered")
	}
}

func TestChannelBusTenantIsolation(t *testing.T) {
	b := NewChannelBus(10)
	defer b.Close()
	ctx := context.Background()

	received := make(chan *domain.Message, 1)
	sub, err := b.Subscribe(ctx, "tenant-001", domain.TopicAlert, func(ctx context.Context, msg *domain.Message) error {
		received <- msg
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	if err := b.Publish(ctx, "tenant-002", domain.TopicAlert, []byte("other tenant")); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case msg := <-received:
		t.Errorf("crossed tenants: got %s", msg.Payload)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestChannelBusFanOut(t *testing.T) {
	b := NewChannelBus(10)
	defer b.Close()
	ctx := context.Background()

	first := make(chan struct{}, 1)
	second := make(chan struct{}, 1)

	if _, err := b.Subscribe(ctx, "tenant-001", domain.TopicScanCompleted, func(ctx context.Context, msg *domain.Message) error {
		first <- struct{}{}
		return nil
	}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if _, err := b.Subscribe(ctx, "tenant-001", domain.TopicScanCompleted, func(ctx context.Context, msg *domain.Message) error {
		second <- struct{}{}
		return nil
	}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	if err := b.Publish(ctx, "tenant-001", domain.TopicScanCompleted, []byte("done")); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	for i, ch := range []chan struct{}{first, second} {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("subscriber %d never received the message", i)
		}
	}
}

func TestChannelBusUnsubscribeStopsDelivery(t *testing.T) {
	b := NewChannelBus(10)
	defer b.Close()
	ctx := context.Background()

	received := make(chan struct{}, 1)
	sub, err := b.Subscribe(ctx, "tenant-001", domain.TopicMerchantUpdated, func(ctx context.Context, msg *domain.Message) error {
		received <- struct{}{}
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	if err := sub.Unsubscribe(); err != nil {
		t.Fatalf("unsubscribe failed: %v", err)
	}
	if sub.Topic() != domain.TopicMerchantUpdated {
		t.Errorf("unexpected topic: %s", sub.Topic())
	}

	// Let the handler goroutine observe the cancellation.
	time.Sleep(10 * time.Millisecond)

	if err := b.Publish(ctx, "tenant-001", domain.TopicMerchantUpdated, []byte("after")); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case <-received:
		t.Error("handler ran after unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestChannelBusClosedErrors(t *testing.T) {
	b := NewChannelBus(10)
	ctx := context.Background()

	if err := b.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if err := b.Publish(ctx, "tenant-001", domain.TopicAlert, []byte("x")); err == nil {
		t.Error("expected publish error after close")
	}
	if _, err := b.Subscribe(ctx, "tenant-001", domain.TopicAlert, func(ctx context.Context, msg *domain.Message) error {
		return nil
	}); err == nil {
		t.Error("expected subscribe error after close")
	}
	if err := b.Ping(ctx); err == nil {
		t.Error("expected ping error after close")
	}

	// Second close is a no-op.
	if err := b.Close(); err != nil {
		t.Errorf("second close failed: %v", err)
	}
}

func TestChannelBusRequiresTenant(t *testing.T) {
	b := NewChannelBus(10)
	defer b.Close()
	ctx := context.Background()

	if err := b.Publish(ctx, "", domain.TopicAlert, []byte("x")); err == nil {
		t.Error("expected error for empty tenant on publish")
	}
	if _, err := b.Subscribe(ctx, "", domain.TopicAlert, func(ctx context.Context, msg *domain.Message) error {
		return nil
	}); err == nil {
		t.Error("expected error for empty tenant on subscribe")
	}
}

func TestNewFactorySelectsChannel(t *testing.T) {
	b, err := New(domain.EventBusConfig{Type: "channel", ChannelBufferSize: 10})
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	defer b.Close()

	if _, ok := b.(*ChannelBus); !ok {
		t.Errorf("expected *ChannelBus, got %T", b)
	}

	if _, err := New(domain.EventBusConfig{Type: "smoke-signal"}); err == nil {
		t.Error("expected error for unknown bus type")
	}
}

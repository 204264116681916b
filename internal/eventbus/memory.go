package eventbus

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// MemoryEventBus implements EventBus in process. Messages published before a
// subscription exists are dropped.
type MemoryEventBus struct {
	pubsub *gochannel.GoChannel
}

var _ EventBus = (*MemoryEventBus)(nil)

// NewMemoryEventBus creates an in-memory bus.
func NewMemoryEventBus(logger watermill.LoggerAdapter) *MemoryEventBus {
	return &MemoryEventBus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger),
	}
}

// Publish publishes messages, honoring each message's topic override.
func (b *MemoryEventBus) Publish(topic string, messages ...*message.Message) error {
	for _, msg := range messages {
		if err := b.pubsub.Publish(resolveTopic(topic, msg), msg); err != nil {
			return err
		}
	}
	return nil
}

func (b *MemoryEventBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

// CreateStream is a no-op in memory.
func (b *MemoryEventBus) CreateStream(context.Context, string) error { return nil }

func (b *MemoryEventBus) Close() error { return b.pubsub.Close() }

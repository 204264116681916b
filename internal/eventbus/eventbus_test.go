package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamFor(t *testing.T) {
	assert.Equal(t, "groups", streamFor("groups.assignments.generated.v1"))
	assert.Equal(t, "groups", streamFor("groups"))
}

func TestIsValidStreamName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"groups", true},
		{"groups_v2", true},
		{"groups.assignments", false},
		{"-groups", false},
		{"", false},
		{"gr oups", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isValidStreamName(tt.name), tt.name)
	}
}

func TestMemoryEventBusTopicOverride(t *testing.T) {
	bus := NewMemoryEventBus(watermill.NopLogger{})
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	overridden, err := bus.Subscribe(ctx, "groups.assignments.generated.v1")
	require.NoError(t, err)
	plain, err := bus.Subscribe(ctx, "groups.other.v1")
	require.NoError(t, err)

	msg := message.NewMessage(watermill.NewUUID(), []byte(`{}`))
	msg.Metadata.Set(TopicMetadataKey, "groups.assignments.generated.v1")
	require.NoError(t, bus.Publish("groups.other.v1", msg))
	require.NoError(t, bus.Publish("groups.other.v1", message.NewMessage(watermill.NewUUID(), []byte(`{}`))))

	select {
	case got := <-overridden:
		assert.Equal(t, msg.UUID, got.UUID)
		got.Ack()
	case <-ctx.Done():
		t.Fatal("override message not delivered")
	}
	select {
	case got := <-plain:
		assert.NotEqual(t, msg.UUID, got.UUID)
		got.Ack()
	case <-ctx.Done():
		t.Fatal("plain message not delivered")
	}
}

package handlerwrapper

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Black-And-White-Club/delegate-dashboard/internal/eventbus"
	"github.com/Black-And-White-Club/delegate-dashboard/internal/testutils"
)

type ping struct {
	Value int `json:"value"`
}

func TestWrapTransformingTyped(t *testing.T) {
	var seen *ping
	handler := WrapTransformingTyped("test.ping", nil, nil, func(ctx context.Context, p *ping) ([]Result, error) {
		seen = p
		return []Result{{Topic: "groups.pong.v1", Payload: ping{Value: p.Value + 1}, Metadata: map[string]string{"k": "v"}}}, nil
	})

	in := message.NewMessage(watermill.NewUUID(), []byte(`{"value": 41}`))
	in.Metadata.Set(CorrelationIDKey, "corr-1")

	out, err := handler(in)
	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.Equal(t, 41, seen.Value)
	require.Len(t, out, 1)

	assert.Equal(t, "groups.pong.v1", out[0].Metadata.Get(eventbus.TopicMetadataKey))
	assert.Equal(t, "corr-1", out[0].Metadata.Get(CorrelationIDKey))
	assert.Equal(t, "v", out[0].Metadata.Get("k"))
	assert.Equal(t, "test.ping", out[0].Metadata.Get("handler_name"))

	var got ping
	testutils.DecodePayload(t, out[0], &got)
	assert.Equal(t, 42, got.Value)
}

func TestWrapTransformingTypedFailures(t *testing.T) {
	t.Run("undecodable payload is dropped", func(t *testing.T) {
		called := false
		handler := WrapTransformingTyped("test.ping", nil, nil, func(ctx context.Context, p *ping) ([]Result, error) {
			called = true
			return nil, nil
		})
		out, err := handler(message.NewMessage(watermill.NewUUID(), []byte(`{not json`)))
		assert.NoError(t, err)
		assert.Nil(t, out)
		assert.False(t, called)
	})

	t.Run("handler error is returned for retry", func(t *testing.T) {
		errBoom := errors.New("boom")
		handler := WrapTransformingTyped("test.ping", nil, nil, func(ctx context.Context, p *ping) ([]Result, error) {
			return nil, errBoom
		})
		_, err := handler(message.NewMessage(watermill.NewUUID(), []byte(`{}`)))
		assert.ErrorIs(t, err, errBoom)
	})

	t.Run("result without topic", func(t *testing.T) {
		handler := WrapTransformingTyped("test.ping", nil, nil, func(ctx context.Context, p *ping) ([]Result, error) {
			return []Result{{Payload: p}}, nil
		})
		_, err := handler(message.NewMessage(watermill.NewUUID(), []byte(`{}`)))
		assert.Error(t, err)
	})
}

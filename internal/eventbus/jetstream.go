package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// JetStreamEventBus implements EventBus using NATS JetStream.
type JetStreamEventBus struct {
	logger     watermill.LoggerAdapter
	conn       *nc.Conn
	js         jetstream.JetStream
	publisher  *nats.Publisher
	subscriber *nats.Subscriber

	mu      sync.Mutex
	streams map[string]struct{}
}

var _ EventBus = (*JetStreamEventBus)(nil)

// NewJetStreamEventBus connects to natsURL and provisions the given streams.
func NewJetStreamEventBus(ctx context.Context, natsURL, durablePrefix string, logger watermill.LoggerAdapter, streams ...string) (*JetStreamEventBus, error) {
	options := []nc.Option{
		nc.RetryOnFailedConnect(true),
		nc.Timeout(30 * time.Second),
		nc.ReconnectWait(1 * time.Second),
		nc.MaxReconnects(-1),
		nc.ErrorHandler(func(_ *nc.Conn, s *nc.Subscription, err error) {
			if s != nil {
				logger.Error("Error in subscription", err, watermill.LogFields{
					"subject": s.Subject,
					"queue":   s.Queue,
				})
			} else {
				logger.Error("Error in connection", err, nil)
			}
		}),
	}

	conn, err := nc.Connect(natsURL, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	publisher, err := nats.NewPublisher(
		nats.PublisherConfig{
			URL:         natsURL,
			NatsOptions: options,
			Marshaler:   &nats.NATSMarshaler{},
			JetStream: nats.JetStreamConfig{
				Disabled:      false,
				AutoProvision: false,
				TrackMsgId:    true,
			},
		},
		logger,
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create Watermill NATS publisher: %w", err)
	}

	subscriber, err := nats.NewSubscriber(
		nats.SubscriberConfig{
			URL:              natsURL,
			NatsOptions:      options,
			Unmarshaler:      &nats.NATSMarshaler{},
			QueueGroupPrefix: durablePrefix,
			AckWaitTimeout:   30 * time.Second,
			JetStream: nats.JetStreamConfig{
				Disabled:      false,
				AutoProvision: false,
				DurablePrefix: durablePrefix,
				SubscribeOptions: []nc.SubOpt{
					nc.DeliverAll(),
					nc.AckExplicit(),
				},
			},
		},
		logger,
	)
	if err != nil {
		_ = publisher.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to create Watermill NATS subscriber: %w", err)
	}

	bus := &JetStreamEventBus{
		logger:     logger,
		conn:       conn,
		js:         js,
		publisher:  publisher,
		subscriber: subscriber,
		streams:    map[string]struct{}{},
	}
	for _, s := range streams {
		if err := bus.CreateStream(ctx, s); err != nil {
			_ = bus.Close()
			return nil, err
		}
	}
	return bus, nil
}

// Publish publishes messages, honoring each message's topic override.
func (b *JetStreamEventBus) Publish(topic string, messages ...*message.Message) error {
	for _, msg := range messages {
		t := resolveTopic(topic, msg)
		if t == "" {
			return fmt.Errorf("message %s has no topic", msg.UUID)
		}
		if err := b.CreateStream(msg.Context(), streamFor(t)); err != nil {
			return err
		}
		if err := b.publisher.Publish(t, msg); err != nil {
			return fmt.Errorf("failed to publish message: %w", err)
		}
	}
	return nil
}

// Subscribe subscribes to topic through a durable JetStream consumer.
func (b *JetStreamEventBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if err := b.CreateStream(ctx, streamFor(topic)); err != nil {
		return nil, err
	}
	messages, err := b.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to topic: %w", err)
	}
	return messages, nil
}

// CreateStream creates a stream capturing "<name>.>" if it does not exist.
func (b *JetStreamEventBus) CreateStream(ctx context.Context, streamName string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.streams[streamName]; ok {
		return nil
	}
	if !isValidStreamName(streamName) {
		return fmt.Errorf("invalid stream name: %s", streamName)
	}

	_, err := b.js.Stream(ctx, streamName)
	switch {
	case errors.Is(err, jetstream.ErrStreamNotFound):
		_, err = b.js.CreateStream(ctx, jetstream.StreamConfig{
			Name:     streamName,
			Subjects: []string{fmt.Sprintf("%s.>", streamName)},
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
		b.logger.Info("Stream created", watermill.LogFields{"stream": streamName})
	case err != nil:
		return fmt.Errorf("failed to get stream info: %w", err)
	}
	b.streams[streamName] = struct{}{}
	return nil
}

// Close closes the publisher, the subscriber and the connection.
func (b *JetStreamEventBus) Close() error {
	var errs error
	if err := b.publisher.Close(); err != nil {
		errs = errors.Join(errs, fmt.Errorf("failed to close publisher: %w", err))
	}
	if err := b.subscriber.Close(); err != nil {
		errs = errors.Join(errs, fmt.Errorf("failed to close subscriber: %w", err))
	}
	b.conn.Close()
	return errs
}

// isValidStreamName checks a stream name against NATS rules: alphanumerics,
// hyphens and underscores, not starting or ending with a hyphen.
func isValidStreamName(name string) bool {
	for _, r := range name {
		if !isValidRune(r) {
			return false
		}
	}
	return name != "" && name[0] != '-' && name[len(name)-1] != '-'
}

func isValidRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_'
}

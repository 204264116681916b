// Package eventbus publishes and subscribes watermill messages over NATS
// JetStream, or in memory when no NATS server is configured.
package eventbus

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
)

// TopicMetadataKey overrides the publish topic of a message. Handlers set it
// so one router handler can emit to several topics.
const TopicMetadataKey = "topic"

// EventBus is a watermill publisher and subscriber that can provision
// streams.
type EventBus interface {
	message.Publisher
	message.Subscriber
	CreateStream(ctx context.Context, streamName string) error
}

// resolveTopic returns the metadata override of msg, or topic.
func resolveTopic(topic string, msg *message.Message) string {
	if t := msg.Metadata.Get(TopicMetadataKey); t != "" {
		return t
	}
	return topic
}

// streamFor returns the stream holding topic: its first dot separated token.
func streamFor(topic string) string {
	for i := 0; i < len(topic); i++ {
		if topic[i] == '.' {
			return topic[:i]
		}
	}
	return topic
}

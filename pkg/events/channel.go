package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const DefaultTopic = "billing.lifecycle"

// ChannelBus is an in-process bus on a watermill gochannel. It is used when
// no broker is configured and as the fallback when the broker is down.
type ChannelBus struct {
	pubSub *gochannel.GoChannel
	topic  string
}

func NewChannelBus(pubSub *gochannel.GoChannel, topic string) *ChannelBus {
	if topic == "" {
		topic = DefaultTopic
	}
	return &ChannelBus{pubSub: pubSub, topic: topic}
}

func (b *ChannelBus) Publish(ctx context.Context, event Event) error {
	data, err := Encode(event)
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("event_type", event.EventType())
	if err := b.pubSub.Publish(b.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event to topic %s: %w", b.topic, err)
	}
	return nil
}

func (b *ChannelBus) Subscribe(ctx context.Context, handler Handler) error {
	messages, err := b.pubSub.Subscribe(ctx, b.topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", b.topic, err)
	}

	go func() {
		for msg := range messages {
			event, err := Decode(msg.Payload)
			if err != nil {
				msg.Ack() // poison message, never retry
				continue
			}
			if err := handler(msg.Context(), event); err != nil {
				msg.Nack()
				continue
			}
			msg.Ack()
		}
	}()
	return nil
}

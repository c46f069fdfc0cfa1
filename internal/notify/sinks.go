package notify

import "context"

type redisPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// RedisSink fans an event out to its type, user and branch channels.
type RedisSink struct {
	client redisPublisher
}

func NewRedisSink(client redisPublisher) *RedisSink {
	return &RedisSink{client: client}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Publish(ctx context.Context, evt Event, body []byte) error {
	for _, channel := range evt.Channels() {
		if err := s.client.Publish(ctx, channel, body); err != nil {
			return err
		}
	}
	return nil
}

type topicPublisher interface {
	Publish(ctx context.Context, data []byte, attributes map[string]string) error
}

// PubSubSink mirrors events to a durable topic for downstream consumers.
type PubSubSink struct {
	client topicPublisher
}

func NewPubSubSink(client topicPublisher) *PubSubSink {
	return &PubSubSink{client: client}
}

func (s *PubSubSink) Name() string { return "pubsub" }

func (s *PubSubSink) Publish(ctx context.Context, evt Event, body []byte) error {
	return s.client.Publish(ctx, body, evt.Attributes())
}

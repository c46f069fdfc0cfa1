package notify

import (
	"context"

	"github.com/ferremas/backoffice/pkg/redis"
)

type redisSubscriber interface {
	Subscribe(ctx context.Context, channels ...string) (redis.Subscription, error)
}

// RedisStream turns Redis channel subscriptions into payload streams for live clients.
type RedisStream struct {
	client redisSubscriber
}

func NewRedisStream(client redisSubscriber) *RedisStream {
	return &RedisStream{client: client}
}

// Stream delivers raw envelopes published on channels until ctx is done. The returned
// channel is closed when the subscription ends.
func (s *RedisStream) Stream(ctx context.Context, channels []string) (<-chan []byte, error) {
	sub, err := s.client.Subscribe(ctx, channels...)
	if err != nil {
		return nil, err
	}
	out := make(chan []byte)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Messages()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

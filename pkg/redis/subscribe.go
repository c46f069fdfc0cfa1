package redis

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Message is one payload received on a subscribed channel.
type Message struct {
	Channel string
	Payload string
}

// Subscription is a live channel subscription. Messages is closed after Close.
type Subscription interface {
	Messages() <-chan Message
	Close() error
}

// Subscribe listens on the given logical channels and waits for the server to confirm.
func (c *Client) Subscribe(ctx context.Context, channels ...string) (Subscription, error) {
	if c.pubsub == nil {
		return nil, errNotInitialized
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("at least one channel is required")
	}
	names := make([]string, 0, len(channels))
	for _, ch := range channels {
		names = append(names, c.ChannelName(ch))
	}
	ps := c.pubsub.Subscribe(ctx, names...)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", strings.Join(names, ","), err)
	}

	sub := &subscription{
		close: ps.Close,
		out:   make(chan Message, 16),
		done:  make(chan struct{}),
	}
	prefix := c.ChannelName("")
	go func() {
		defer close(sub.out)
		for msg := range ps.Channel() {
			select {
			case sub.out <- Message{Channel: strings.TrimPrefix(msg.Channel, prefix+":"), Payload: msg.Payload}:
			case <-sub.done:
				return
			}
		}
	}()
	return sub, nil
}

type subscription struct {
	close func() error
	out   chan Message
	done  chan struct{}
	once  sync.Once
	err   error
}

func (s *subscription) Messages() <-chan Message {
	return s.out
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.err = s.close()
	})
	return s.err
}

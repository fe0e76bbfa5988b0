package realtime

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Well-known shared channels.
const (
	PresenceChannel    = "collab:presence"
	ActivityChannel    = "collab:activity"
	PostChangesChannel = "collab:posts:changes"
)

// Message is one payload delivered on a subscribed channel.
type Message struct {
	Channel string
	Payload []byte
}

// Subscription is a live subscription to a single channel. Messages is
// closed when the underlying transport drops the subscription.
type Subscription interface {
	Messages() <-chan Message
	Close() error
}

// Broker is the shared pub/sub channel abstraction. Publishing is
// best-effort; delivery ordering across publishers is arrival order only.
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

// RedisBroker implements Broker on Redis pub/sub.
type RedisBroker struct {
	client *redis.Client
}

func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

func (b *RedisBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	return b.client.Publish(ctx, channel, payload).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	pubsub := b.client.Subscribe(ctx, channel)

	// Wait for the subscribe confirmation so callers only observe the
	// connected state after the channel is actually established.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		msgs:   make(chan Message, 64),
		done:   make(chan struct{}),
	}
	go sub.forward(pubsub.Channel())
	return sub, nil
}

type redisSubscription struct {
	pubsub    *redis.PubSub
	msgs      chan Message
	done      chan struct{}
	closeOnce sync.Once
}

// forward pumps pubsub messages into msgs. The done select keeps it from
// blocking forever on a full buffer after the consumer stopped reading.
func (s *redisSubscription) forward(in <-chan *redis.Message) {
	defer close(s.msgs)
	for msg := range in {
		select {
		case s.msgs <- Message{Channel: msg.Channel, Payload: []byte(msg.Payload)}:
		case <-s.done:
			return
		}
	}
}

func (s *redisSubscription) Messages() <-chan Message {
	return s.msgs
}

func (s *redisSubscription) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return s.pubsub.Close()
}

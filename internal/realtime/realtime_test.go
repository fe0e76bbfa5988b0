package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"collab-service/internal/domain"
)

// memoryBroker is an in-process Broker for tests. Published payloads are
// recorded per channel and delivered synchronously to subscriptions.
type memoryBroker struct {
	mu           sync.Mutex
	published    map[string][][]byte
	subs         map[string][]*memorySubscription
	publishErr   error
	subscribeErr error
	// subscribeAttempts counts Subscribe calls, including failed ones.
	subscribeAttempts int
}

func newMemoryBroker() *memoryBroker {
	return &memoryBroker{
		published: make(map[string][][]byte),
		subs:      make(map[string][]*memorySubscription),
	}
}

func (b *memoryBroker) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	if b.publishErr != nil {
		err := b.publishErr
		b.mu.Unlock()
		return err
	}
	b.published[channel] = append(b.published[channel], payload)
	subs := append([]*memorySubscription(nil), b.subs[channel]...)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(Message{Channel: channel, Payload: payload})
	}
	return nil
}

func (b *memoryBroker) Subscribe(_ context.Context, channel string) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribeAttempts++
	if b.subscribeErr != nil {
		return nil, b.subscribeErr
	}
	sub := &memorySubscription{msgs: make(chan Message, 64)}
	b.subs[channel] = append(b.subs[channel], sub)
	return sub, nil
}

// Published returns the payloads recorded for a channel.
func (b *memoryBroker) Published(channel string) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]byte(nil), b.published[channel]...)
}

type memorySubscription struct {
	mu     sync.Mutex
	msgs   chan Message
	closed bool
}

func (s *memorySubscription) deliver(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.msgs <- msg
}

func (s *memorySubscription) Messages() <-chan Message {
	return s.msgs
}

func (s *memorySubscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.msgs)
	}
	return nil
}

// shownToast is one delivered toast with its audience.
type shownToast struct {
	Toast    Toast
	UserID   uuid.UUID
	ExceptID uuid.UUID
	Targeted bool
}

// recordingNotifier captures toasts instead of delivering them.
type recordingNotifier struct {
	mu     sync.Mutex
	toasts []shownToast
}

func (n *recordingNotifier) ShowUser(_ context.Context, userID uuid.UUID, toast Toast) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toasts = append(n.toasts, shownToast{Toast: toast, UserID: userID, Targeted: true})
}

func (n *recordingNotifier) ShowAllExcept(_ context.Context, exceptID uuid.UUID, toast Toast) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toasts = append(n.toasts, shownToast{Toast: toast, ExceptID: exceptID})
}

func (n *recordingNotifier) Toasts() []shownToast {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]shownToast(nil), n.toasts...)
}

// fixedIdentityProvider always resolves the same caller, ignoring ctx.
type fixedIdentityProvider struct {
	identity Identity
	absent   bool
}

func (p fixedIdentityProvider) Current(context.Context) (Identity, bool) {
	if p.absent {
		return Identity{}, false
	}
	return p.identity, true
}

func testIdentity(name string) Identity {
	return Identity{ID: uuid.New(), Name: name}
}

func marshalEvent(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func activityMessage(t *testing.T, event domain.ActivityEvent) Message {
	t.Helper()
	return Message{Channel: ActivityChannel, Payload: marshalEvent(t, event)}
}

func changeMessage(t *testing.T, change domain.PostChange) Message {
	t.Helper()
	return Message{Channel: PostChangesChannel, Payload: marshalEvent(t, change)}
}

func presenceMessage(t *testing.T, event domain.PresenceEvent) Message {
	t.Helper()
	return Message{Channel: PresenceChannel, Payload: marshalEvent(t, event)}
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"collab-service/internal/domain"
	"collab-service/internal/metrics"
)

// DefaultActivityLogSize bounds the locally retained activity feed.
const DefaultActivityLogSize = 20

// toastActions is the fixed allow-list of action kinds that raise a toast
// for everyone but the actor. All other kinds are recorded silently.
var toastActions = map[domain.ActivityAction]Toast{
	domain.ActionPostPublished: {Title: "Post published", Variant: ToastSuccess},
	domain.ActionPostApproved:  {Title: "Post approved", Variant: ToastInfo},
	domain.ActionPostRejected:  {Title: "Post rejected", Variant: ToastInfo},
}

// ActivityBroadcaster publishes activity events on the shared channel and
// accumulates a bounded, most-recent-first log of events received from all
// participants. Publishing is best-effort and never fails the caller.
type ActivityBroadcaster struct {
	broker   Broker
	identity IdentityProvider
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger

	maxLog int
	now    func() time.Time

	mu      sync.RWMutex
	log     []domain.ActivityEvent
	onEvent func(domain.ActivityEvent)

	sub *subscriber
}

func NewActivityBroadcaster(
	broker Broker,
	identity IdentityProvider,
	notifier Notifier,
	m *metrics.Metrics,
	logSize int,
	logger *zap.Logger,
) *ActivityBroadcaster {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logSize <= 0 {
		logSize = DefaultActivityLogSize
	}
	b := &ActivityBroadcaster{
		broker:   broker,
		identity: identity,
		notifier: notifier,
		metrics:  m,
		maxLog:   logSize,
		now:      time.Now,
		logger:   logger,
	}
	b.sub = newSubscriber(broker, ActivityChannel, logger, b.handleMessage)
	return b
}

// SetEventHandler registers a hook invoked for every received event. Must be
// called before Start.
func (b *ActivityBroadcaster) SetEventHandler(fn func(domain.ActivityEvent)) {
	b.onEvent = fn
}

func (b *ActivityBroadcaster) Start(ctx context.Context) {
	b.sub.Start(ctx)
}

func (b *ActivityBroadcaster) Close() {
	b.sub.Close()
}

func (b *ActivityBroadcaster) State() ConnState {
	return b.sub.State()
}

// Broadcast publishes an activity event as the caller resolved from ctx.
// Without an identity it is a no-op; publish failures are logged and
// swallowed.
func (b *ActivityBroadcaster) Broadcast(ctx context.Context, action domain.ActivityAction, details map[string]interface{}) {
	identity, ok := b.identity.Current(ctx)
	if !ok {
		return
	}
	b.BroadcastAs(ctx, identity, action, details)
}

// BroadcastAs publishes an activity event with an explicit actor, used for
// system-originated events such as status transitions observed on the
// change feed.
func (b *ActivityBroadcaster) BroadcastAs(ctx context.Context, actor Identity, action domain.ActivityAction, details map[string]interface{}) {
	event := domain.ActivityEvent{
		ID:        uuid.New(),
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Action:    action,
		Details:   details,
		CreatedAt: b.now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("failed to marshal activity event", zap.Error(err))
		return
	}
	if err := b.broker.Publish(ctx, ActivityChannel, data); err != nil {
		b.logger.Error("failed to publish activity event",
			zap.String("action", string(action)),
			zap.Error(err))
	}
}

// Recent returns a copy of the bounded activity log, most recent first.
func (b *ActivityBroadcaster) Recent() []domain.ActivityEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.ActivityEvent, len(b.log))
	copy(out, b.log)
	return out
}

func (b *ActivityBroadcaster) handleMessage(msg Message) {
	var event domain.ActivityEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		b.logger.Warn("ignoring malformed activity event", zap.Error(err))
		return
	}

	// Prepend, then truncate to the bound. Order is strictly local arrival
	// order; no cross-client ordering is assumed.
	b.mu.Lock()
	b.log = append([]domain.ActivityEvent{event}, b.log...)
	if len(b.log) > b.maxLog {
		b.log = b.log[:b.maxLog]
	}
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.IncrementActivityEvent(string(event.Action))
	}

	if toast, ok := toastActions[event.Action]; ok {
		if title, ok := event.Details["title"].(string); ok {
			toast.Description = title
		}
		b.notifier.ShowAllExcept(context.Background(), event.ActorID, toast)
	}

	if b.onEvent != nil {
		b.onEvent(event)
	}
}

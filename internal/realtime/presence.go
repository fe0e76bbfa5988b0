package realtime

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"collab-service/internal/domain"
	"collab-service/internal/metrics"
)

// PresenceStore persists the last known presence per user. Satisfied by
// repository.PresenceRepository.
type PresenceStore interface {
	Upsert(ctx context.Context, presence *domain.UserPresence) error
	SetOffline(ctx context.Context, userID uuid.UUID) error
}

// PresenceTracker maintains the shared presence map: it publishes the
// caller's own record and mirrors everyone else's from the presence channel.
// All write paths are best-effort and never surface transport errors.
type PresenceTracker struct {
	broker   Broker
	identity IdentityProvider
	store    PresenceStore
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger

	livenessWindow time.Duration
	now            func() time.Time

	mu      sync.RWMutex
	records map[uuid.UUID]domain.UserPresence
	onEvent func(domain.PresenceEvent)

	sub *subscriber
}

func NewPresenceTracker(
	broker Broker,
	identity IdentityProvider,
	store PresenceStore,
	notifier Notifier,
	m *metrics.Metrics,
	livenessWindow time.Duration,
	logger *zap.Logger,
) *PresenceTracker {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	t := &PresenceTracker{
		broker:         broker,
		identity:       identity,
		store:          store,
		notifier:       notifier,
		metrics:        m,
		livenessWindow: livenessWindow,
		now:            time.Now,
		records:        make(map[uuid.UUID]domain.UserPresence),
		logger:         logger,
	}
	t.sub = newSubscriber(broker, PresenceChannel, logger, t.handleMessage)
	return t
}

// SetEventHandler registers a hook invoked for every presence event applied
// to the local map. Must be called before Start.
func (t *PresenceTracker) SetEventHandler(fn func(domain.PresenceEvent)) {
	t.onEvent = fn
}

// Start begins consuming the presence channel, reconnecting with backoff
// until ctx is cancelled.
func (t *PresenceTracker) Start(ctx context.Context) {
	t.sub.Start(ctx)
}

// Close detaches from the presence channel.
func (t *PresenceTracker) Close() {
	t.sub.Close()
}

// State reports the channel connection state.
func (t *PresenceTracker) State() ConnState {
	return t.sub.State()
}

// UpdatePresence publishes the caller's presence record. Without a resolved
// identity it is a no-op; transport and persistence failures are logged and
// swallowed. Safe to call repeatedly: the caller's record is overwritten.
func (t *PresenceTracker) UpdatePresence(ctx context.Context, status domain.PresenceStatus, currentPage string) {
	identity, ok := t.identity.Current(ctx)
	if !ok {
		return
	}

	record := domain.UserPresence{
		UserID:      identity.ID,
		DisplayName: identity.Name,
		AvatarURL:   identity.AvatarURL,
		Status:      status,
		CurrentPage: currentPage,
		LastUpdate:  t.now(),
	}

	// Applying locally first suppresses the echo of our own publish below, so
	// co-located participants must be notified here, not on receipt.
	if t.applyJoin(&record) {
		t.notifyJoin(&record)
	}

	if t.store != nil {
		if err := t.store.Upsert(ctx, &record); err != nil {
			t.logger.Error("failed to persist presence", zap.Error(err))
		}
	}

	t.publish(ctx, domain.PresenceEvent{Type: domain.PresenceEventJoin, Record: &record})
}

// Leave removes the caller's record from the shared presence set.
func (t *PresenceTracker) Leave(ctx context.Context) {
	identity, ok := t.identity.Current(ctx)
	if !ok {
		return
	}

	t.mu.Lock()
	_, existed := t.records[identity.ID]
	delete(t.records, identity.ID)
	t.mu.Unlock()
	t.updateOnlineGauge()

	if t.store != nil {
		if err := t.store.SetOffline(ctx, identity.ID); err != nil {
			t.logger.Error("failed to persist offline status", zap.Error(err))
		}
	}

	record := domain.UserPresence{UserID: identity.ID, DisplayName: identity.Name}
	// Same echo suppression as UpdatePresence: the local delete above means
	// the published LEAVE finds nothing on this instance.
	if existed {
		t.notifyLeave(&record)
	}
	t.publish(ctx, domain.PresenceEvent{Type: domain.PresenceEventLeave, Record: &record})
}

// PublishSync publishes the full local presence map so late joiners can seed
// their state.
func (t *PresenceTracker) PublishSync(ctx context.Context) {
	t.mu.RLock()
	records := make([]domain.UserPresence, 0, len(t.records))
	for _, r := range t.records {
		records = append(records, r)
	}
	t.mu.RUnlock()

	t.publish(ctx, domain.PresenceEvent{Type: domain.PresenceEventSync, Records: records})
}

// OnlineUsers returns all tracked participants whose status is online and
// whose record is inside the liveness window. Pure read of local state.
func (t *PresenceTracker) OnlineUsers() []domain.UserPresence {
	cutoff := t.now().Add(-t.livenessWindow)

	t.mu.RLock()
	users := make([]domain.UserPresence, 0, len(t.records))
	for _, r := range t.records {
		if r.Status == domain.PresenceOnline && r.LastUpdate.After(cutoff) {
			users = append(users, r)
		}
	}
	t.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool {
		return users[i].DisplayName < users[j].DisplayName
	})
	return users
}

func (t *PresenceTracker) publish(ctx context.Context, event domain.PresenceEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		t.logger.Error("failed to marshal presence event", zap.Error(err))
		return
	}
	if err := t.broker.Publish(ctx, PresenceChannel, data); err != nil {
		t.logger.Error("failed to publish presence event", zap.Error(err))
	}
}

func (t *PresenceTracker) handleMessage(msg Message) {
	var event domain.PresenceEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		t.logger.Warn("ignoring malformed presence event", zap.Error(err))
		return
	}

	switch event.Type {
	case domain.PresenceEventSync:
		t.mu.Lock()
		t.records = make(map[uuid.UUID]domain.UserPresence, len(event.Records))
		for _, r := range event.Records {
			t.records[r.UserID] = r
		}
		t.mu.Unlock()
		t.updateOnlineGauge()

	case domain.PresenceEventJoin:
		if event.Record == nil {
			return
		}
		if t.applyJoin(event.Record) {
			t.notifyJoin(event.Record)
		}

	case domain.PresenceEventLeave:
		if event.Record == nil {
			return
		}
		t.mu.Lock()
		_, existed := t.records[event.Record.UserID]
		delete(t.records, event.Record.UserID)
		t.mu.Unlock()
		t.updateOnlineGauge()

		if existed {
			t.notifyLeave(event.Record)
		}

	default:
		return
	}

	if t.onEvent != nil {
		t.onEvent(event)
	}
}

func (t *PresenceTracker) notifyJoin(record *domain.UserPresence) {
	t.notifier.ShowAllExcept(context.Background(), record.UserID, Toast{
		Title:      record.DisplayName + " is online",
		Variant:    ToastInfo,
		DurationMS: 3000,
	})
}

func (t *PresenceTracker) notifyLeave(record *domain.UserPresence) {
	t.notifier.ShowAllExcept(context.Background(), record.UserID, Toast{
		Title:      record.DisplayName + " went offline",
		Variant:    ToastInfo,
		DurationMS: 3000,
	})
}

// applyJoin stores the record and reports whether the user was previously
// untracked. Repeated updates for a known user overwrite silently.
func (t *PresenceTracker) applyJoin(record *domain.UserPresence) bool {
	t.mu.Lock()
	_, known := t.records[record.UserID]
	t.records[record.UserID] = *record
	t.mu.Unlock()
	t.updateOnlineGauge()
	return !known
}

func (t *PresenceTracker) updateOnlineGauge() {
	if t.metrics == nil {
		return
	}
	t.metrics.SetPresenceOnline(len(t.OnlineUsers()))
}

package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"collab-service/internal/domain"
	"collab-service/internal/metrics"
)

const (
	// DefaultRefreshDebounce is the quiet period that coalesces bursts of
	// change notifications into a single refetch.
	DefaultRefreshDebounce = time.Second
	// maxTransitions bounds the recent-transitions list.
	maxTransitions = 10
)

// PostLister refetches the full scheduled-posts collection. Satisfied by
// repository.PostRepository.
type PostLister interface {
	List(ctx context.Context) ([]*domain.ScheduledPost, error)
}

// NotificationRecorder persists a notification for a target user.
// Best-effort; implementations must not block the listener.
type NotificationRecorder interface {
	Record(ctx context.Context, notification *domain.Notification)
}

// systemIdentity is the actor attached to events raised from the change
// feed, where the originating user is not part of the payload.
var systemIdentity = Identity{Name: "system"}

// ChangeListener consumes the scheduled-posts change feed, recognizes
// status transitions, relays them as activity events and toasts, and
// schedules a debounced refetch of the collection.
type ChangeListener struct {
	broadcaster *ActivityBroadcaster
	notifier    Notifier
	recorder    NotificationRecorder
	lister      PostLister
	metrics     *metrics.Metrics
	logger      *zap.Logger

	debounce time.Duration

	mu          sync.Mutex
	transitions []string
	timer       *time.Timer
	posts       []*domain.ScheduledPost
	onRefresh   func([]*domain.ScheduledPost)

	sub *subscriber
}

func NewChangeListener(
	broker Broker,
	broadcaster *ActivityBroadcaster,
	notifier Notifier,
	recorder NotificationRecorder,
	lister PostLister,
	m *metrics.Metrics,
	debounce time.Duration,
	logger *zap.Logger,
) *ChangeListener {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if debounce <= 0 {
		debounce = DefaultRefreshDebounce
	}
	l := &ChangeListener{
		broadcaster: broadcaster,
		notifier:    notifier,
		recorder:    recorder,
		lister:      lister,
		metrics:     m,
		debounce:    debounce,
		logger:      logger,
	}
	l.sub = newSubscriber(broker, PostChangesChannel, logger, l.handleMessage)
	return l
}

// SetRefreshHandler registers a hook invoked with the refetched collection
// after each debounced refresh. Must be called before Start.
func (l *ChangeListener) SetRefreshHandler(fn func([]*domain.ScheduledPost)) {
	l.onRefresh = fn
}

func (l *ChangeListener) Start(ctx context.Context) {
	l.sub.Start(ctx)
}

func (l *ChangeListener) Close() {
	l.sub.Close()
	l.mu.Lock()
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.mu.Unlock()
}

func (l *ChangeListener) State() ConnState {
	return l.sub.State()
}

// RecentTransitions returns a copy of the bounded transition list, oldest
// first.
func (l *ChangeListener) RecentTransitions() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.transitions))
	copy(out, l.transitions)
	return out
}

// Posts returns the most recently refetched snapshot of the collection.
func (l *ChangeListener) Posts() []*domain.ScheduledPost {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.posts
}

func (l *ChangeListener) handleMessage(msg Message) {
	var change domain.PostChange
	if err := json.Unmarshal(msg.Payload, &change); err != nil {
		l.logger.Warn("ignoring malformed change notification", zap.Error(err))
		return
	}

	switch change.EventType {
	case domain.ChangeInsert:
		if change.New == nil {
			return
		}
		l.handleInsert(change.New)
	case domain.ChangeUpdate:
		// No comparison without both snapshots.
		if change.New == nil || change.Old == nil {
			return
		}
		l.handleUpdate(change.ActorID, change.Old, change.New)
	default:
		// Deletes are not observed by this listener.
	}
}

func (l *ChangeListener) handleInsert(post *domain.ScheduledPost) {
	when := "unscheduled"
	if post.ScheduledAt != nil {
		when = post.ScheduledAt.Format("Jan 2, 2006 at 3:04 PM")
	}
	l.notifier.ShowAllExcept(context.Background(), post.AuthorID, Toast{
		Title:       "New post scheduled",
		Description: fmt.Sprintf("%s — %s", post.Platform, when),
		Variant:     ToastInfo,
	})
}

func (l *ChangeListener) handleUpdate(actorID uuid.UUID, oldPost, newPost *domain.ScheduledPost) {
	if oldPost.PostingStatus == newPost.PostingStatus {
		return
	}

	transition := fmt.Sprintf("%s: %s → %s", newPost.ID, oldPost.PostingStatus, newPost.PostingStatus)
	l.mu.Lock()
	l.transitions = append(l.transitions, transition)
	if len(l.transitions) > maxTransitions {
		l.transitions = l.transitions[len(l.transitions)-maxTransitions:]
	}
	l.mu.Unlock()

	l.scheduleRefresh()

	// Changes made through this API already produced their activity event in
	// the reconciliation facade; relaying them again would double every
	// published/approved/rejected event. Only system-originated transitions
	// (uuid.Nil actor) are relayed here.
	if actorID == uuid.Nil {
		l.relayTransition(newPost)
	}
}

// relayTransition maps a recognized status to its activity event, toast and
// persisted notification.
func (l *ChangeListener) relayTransition(post *domain.ScheduledPost) {
	ctx := context.Background()

	details := map[string]interface{}{
		"post_id":  post.ID.String(),
		"title":    post.Title,
		"platform": post.Platform,
		"status":   string(post.PostingStatus),
	}

	var (
		action    domain.ActivityAction
		toast     Toast
		notifType domain.NotificationType
		// The activity allow-list already toasts published/approved/
		// rejected on receipt; only templates outside it are shown here.
		showDirect bool
	)

	switch post.PostingStatus {
	case domain.PostStatusPosted:
		action = domain.ActionPostPublished
		notifType = domain.NotificationPostPublished
		if post.PostedAt != nil {
			details["posted_at"] = post.PostedAt.Format(time.RFC3339)
		}
		toast = Toast{Title: "Post published", Description: post.Title, Variant: ToastSuccess}
	case domain.PostStatusFailed:
		action = domain.ActionPostFailed
		notifType = domain.NotificationPostFailed
		if post.FailureReason != nil {
			details["failure_reason"] = *post.FailureReason
		}
		toast = Toast{Title: "Post failed", Description: post.Title, Variant: ToastError}
		showDirect = true
		if l.metrics != nil {
			l.metrics.IncrementPostPublishFailed()
		}
	case domain.PostStatusApproved:
		action = domain.ActionPostApproved
		notifType = domain.NotificationPostApproved
		toast = Toast{Title: "Post approved", Description: post.Title, Variant: ToastInfo}
	case domain.PostStatusRejected:
		action = domain.ActionPostRejected
		notifType = domain.NotificationPostRejected
		toast = Toast{Title: "Post rejected", Description: post.Title, Variant: ToastInfo}
	default:
		// Only the terminal statuses above are relayed.
		return
	}

	l.broadcaster.BroadcastAs(ctx, systemIdentity, action, details)

	if showDirect {
		l.notifier.ShowAllExcept(ctx, systemIdentity.ID, toast)
	}

	if l.recorder != nil {
		metadata, _ := json.Marshal(details)
		l.recorder.Record(ctx, &domain.Notification{
			Type:         notifType,
			TargetUserID: post.AuthorID,
			ResourceID:   post.ID,
			ResourceName: post.Title,
			Metadata:     metadata,
		})
	}
}

// scheduleRefresh coalesces bursts: every transition restarts a single-shot
// timer, and only the quiet period triggers one List call.
func (l *ChangeListener) scheduleRefresh() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.timer != nil {
		l.timer.Stop()
	}
	l.timer = time.AfterFunc(l.debounce, l.refresh)
}

func (l *ChangeListener) refresh() {
	posts, err := l.lister.List(context.Background())
	if err != nil {
		l.logger.Error("failed to refetch scheduled posts", zap.Error(err))
		return
	}

	l.mu.Lock()
	l.posts = posts
	l.mu.Unlock()

	if l.metrics != nil {
		l.metrics.IncrementPostRefresh()
	}
	if l.onRefresh != nil {
		l.onRefresh(posts)
	}
}

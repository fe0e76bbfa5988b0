package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collab-service/internal/domain"
)

func registerFakeConn(hub *Hub, userID uuid.UUID) *wsConn {
	client := &wsConn{send: make(chan []byte, 16)}
	hub.connsMu.Lock()
	hub.conns[userID] = append(hub.conns[userID], client)
	hub.connsMu.Unlock()
	return client
}

func drainFrames(t *testing.T, client *wsConn) []WSMessage {
	t.Helper()
	var frames []WSMessage
	for {
		select {
		case raw := <-client.send:
			var frame WSMessage
			require.NoError(t, json.Unmarshal(raw, &frame))
			frames = append(frames, frame)
		default:
			return frames
		}
	}
}

func TestHub_ShowUserDeliversOnlyToTarget(t *testing.T) {
	hub := NewHub(nil, nil, testLogger())

	alice := uuid.New()
	bob := uuid.New()
	aliceConn := registerFakeConn(hub, alice)
	bobConn := registerFakeConn(hub, bob)

	hub.ShowUser(context.Background(), alice, Toast{Title: "Post failed", Variant: ToastError})

	aliceFrames := drainFrames(t, aliceConn)
	require.Len(t, aliceFrames, 1)
	assert.Equal(t, "TOAST", aliceFrames[0].Type)
	assert.Equal(t, "Post failed", aliceFrames[0].Payload["title"])
	assert.Equal(t, "error", aliceFrames[0].Payload["variant"])

	assert.Empty(t, drainFrames(t, bobConn))
}

func TestHub_ShowAllExceptSkipsExcluded(t *testing.T) {
	hub := NewHub(nil, nil, testLogger())

	actor := uuid.New()
	other := uuid.New()
	actorConn := registerFakeConn(hub, actor)
	otherConn := registerFakeConn(hub, other)

	hub.ShowAllExcept(context.Background(), actor, Toast{Title: "Post published"})

	assert.Empty(t, drainFrames(t, actorConn))

	frames := drainFrames(t, otherConn)
	require.Len(t, frames, 1)
	assert.Equal(t, "Post published", frames[0].Payload["title"])
}

func TestHub_ShowAllExceptNilExcludesNobody(t *testing.T) {
	hub := NewHub(nil, nil, testLogger())

	a := registerFakeConn(hub, uuid.New())
	b := registerFakeConn(hub, uuid.New())

	hub.ShowAllExcept(context.Background(), uuid.Nil, Toast{Title: "Deploy finished"})

	assert.Len(t, drainFrames(t, a), 1)
	assert.Len(t, drainFrames(t, b), 1)
}

func TestHub_AttachFansOutComponentEvents(t *testing.T) {
	broker := newMemoryBroker()
	hub := NewHub(nil, nil, testLogger())

	tracker := NewPresenceTracker(
		broker, fixedIdentityProvider{identity: testIdentity("observer")},
		nil, hub, nil, 5*time.Minute, testLogger(),
	)
	broadcaster := NewActivityBroadcaster(
		broker, fixedIdentityProvider{identity: testIdentity("observer")},
		hub, nil, DefaultActivityLogSize, testLogger(),
	)
	listener := NewChangeListener(
		broker, broadcaster, hub, nil, &mockPostLister{}, nil,
		time.Hour, testLogger(),
	)
	defer listener.Close()

	hub.Attach(tracker, broadcaster, listener)

	client := registerFakeConn(hub, uuid.New())

	tracker.handleMessage(presenceMessage(t, domain.PresenceEvent{
		Type: domain.PresenceEventJoin,
		Record: &domain.UserPresence{
			UserID:      uuid.New(),
			DisplayName: "bob",
			Status:      domain.PresenceOnline,
			LastUpdate:  time.Now(),
		},
	}))

	broadcaster.handleMessage(activityMessage(t, domain.ActivityEvent{
		ID:      uuid.New(),
		ActorID: uuid.New(),
		Action:  domain.ActionPostEdited,
	}))

	frames := drainFrames(t, client)

	var types []string
	for _, frame := range frames {
		types = append(types, frame.Type)
	}
	// The join raises a toast for everyone plus a presence frame; the edit
	// is outside the toast allow-list so it only fans out as activity.
	assert.Contains(t, types, "PRESENCE")
	assert.Contains(t, types, "ACTIVITY")
	assert.Contains(t, types, "TOAST")
}

func TestHub_ShowUserConcurrentWithDisconnect(t *testing.T) {
	hub := NewHub(nil, nil, testLogger())

	// Toasting a user while their connection is being torn down must never
	// send on the closed channel. The race detector flags the old ordering.
	for i := 0; i < 50; i++ {
		identity := Identity{ID: uuid.New(), Name: "alice"}
		client := registerFakeConn(hub, identity.ID)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			hub.ShowUser(context.Background(), identity.ID, Toast{Title: "hello"})
		}()
		go func() {
			defer wg.Done()
			hub.removeConn(identity, client)
		}()
		wg.Wait()
	}
}

func TestHub_SlowConnDoesNotBlockBroadcast(t *testing.T) {
	hub := NewHub(nil, nil, testLogger())

	userID := uuid.New()
	client := &wsConn{send: make(chan []byte)} // unbuffered, nobody reading
	hub.connsMu.Lock()
	hub.conns[userID] = []*wsConn{client}
	hub.connsMu.Unlock()

	done := make(chan struct{})
	go func() {
		hub.ShowAllExcept(context.Background(), uuid.Nil, Toast{Title: "hello"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a slow connection")
	}
}

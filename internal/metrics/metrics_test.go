package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestMetrics() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry(), zap.NewNop())
}

func TestMetrics_RegistersWithCustomRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewWithRegistry(registry, zap.NewNop())
	require.NotNil(t, m)

	m.IncrementPostPublished()
	m.TrackWSConnect()

	families, err := registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["collab_service_posts_published_total"])
	assert.True(t, names["collab_service_websocket_active_connections"])
}

func TestMetrics_WSConnectionTracking(t *testing.T) {
	m := newTestMetrics()

	m.TrackWSConnect()
	m.TrackWSConnect()
	m.TrackWSDisconnect()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.WSConnectionsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.WSActiveConnections))
}

func TestMetrics_ActivityEventsByAction(t *testing.T) {
	m := newTestMetrics()

	m.IncrementActivityEvent("post_published")
	m.IncrementActivityEvent("post_published")
	m.IncrementActivityEvent("user_joined")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.ActivityEventsTotal.WithLabelValues("post_published")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ActivityEventsTotal.WithLabelValues("user_joined")))
}

func TestMetrics_PresenceGauge(t *testing.T) {
	m := newTestMetrics()

	m.SetPresenceOnline(4)
	assert.Equal(t, float64(4), testutil.ToFloat64(m.PresenceOnlineUsers))

	m.SetPresenceOnline(1)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PresenceOnlineUsers))
}

func TestMetrics_PublishCounters(t *testing.T) {
	m := newTestMetrics()

	m.IncrementPostPublished()
	m.IncrementPostPublishFailed()
	m.IncrementPostPublishFailed()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.PostsPublishedTotal))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.PostPublishFailedTotal))
}

func TestMetrics_SafeExecuteRecoversPanic(t *testing.T) {
	m := newTestMetrics()

	assert.NotPanics(t, func() {
		m.safeExecute("explode", func() {
			panic("boom")
		})
	})
}

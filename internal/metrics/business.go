package metrics

// IncrementActivityEvent increments the per-action activity counter
func (m *Metrics) IncrementActivityEvent(action string) {
	m.safeExecute("IncrementActivityEvent", func() {
		m.ActivityEventsTotal.WithLabelValues(action).Inc()
	})
}

// IncrementPostPublished increments the published-posts counter
func (m *Metrics) IncrementPostPublished() {
	m.safeExecute("IncrementPostPublished", func() {
		m.PostsPublishedTotal.Inc()
	})
}

// IncrementPostPublishFailed increments the failed-publish counter
func (m *Metrics) IncrementPostPublishFailed() {
	m.safeExecute("IncrementPostPublishFailed", func() {
		m.PostPublishFailedTotal.Inc()
	})
}

// SetPresenceOnline sets the online-users gauge
func (m *Metrics) SetPresenceOnline(count int) {
	m.safeExecute("SetPresenceOnline", func() {
		m.PresenceOnlineUsers.Set(float64(count))
	})
}

// IncrementNotificationCreated increments the notifications counter
func (m *Metrics) IncrementNotificationCreated() {
	m.safeExecute("IncrementNotificationCreated", func() {
		m.NotificationsCreated.Inc()
	})
}

// IncrementPostRefresh increments the debounced-refetch counter
func (m *Metrics) IncrementPostRefresh() {
	m.safeExecute("IncrementPostRefresh", func() {
		m.PostRefreshesTotal.Inc()
	})
}

// TrackWSConnect records a new websocket connection
func (m *Metrics) TrackWSConnect() {
	m.safeExecute("TrackWSConnect", func() {
		m.WSConnectionsTotal.Inc()
		m.WSActiveConnections.Inc()
	})
}

// TrackWSDisconnect records a closed websocket connection
func (m *Metrics) TrackWSDisconnect() {
	m.safeExecute("TrackWSDisconnect", func() {
		m.WSActiveConnections.Dec()
	})
}

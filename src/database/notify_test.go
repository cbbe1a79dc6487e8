package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *NotificationManager {
	return &NotificationManager{subscribers: make(map[string]map[string]map[string]chan<- string)}
}

func TestHandleNotificationRoutesByObject(t *testing.T) {
	nm := newTestManager()
	runA, first := nm.addSubscriber("sub-1", RunStatusChannel, "run-a")
	assert.True(t, first)
	runB, first := nm.addSubscriber("sub-2", RunStatusChannel, "run-b")
	assert.False(t, first)

	nm.handleNotification(RunStatusChannel, notifyPayload("run-a", "succeeded"))
	nm.handleNotification(RunStatusChannel, "no separator")
	nm.handleNotification("other_channel", notifyPayload("run-b", "failed"))

	require.Len(t, runA, 1)
	assert.Equal(t, "succeeded", <-runA)
	assert.Len(t, runB, 0)
}

func TestHandleNotificationDropsWhenFull(t *testing.T) {
	nm := newTestManager()
	ch, _ := nm.addSubscriber("sub-1", RunStatusChannel, "run-a")
	for i := 0; i < 15; i++ {
		nm.handleNotification(RunStatusChannel, notifyPayload("run-a", "running"))
	}
	assert.Len(t, ch, 10)
}

func TestRemoveSubscribers(t *testing.T) {
	nm := newTestManager()
	ch, _ := nm.addSubscriber("sub-1", RunStatusChannel, "run-a")
	nm.addSubscriber("sub-2", RunStatusChannel, "run-a")

	empty, err := nm.removeSubscribers("sub-1", RunStatusChannel, "run-a")
	require.NoError(t, err)
	assert.False(t, empty)
	_, open := <-ch
	assert.False(t, open)

	empty, err = nm.removeSubscribers("sub-2", RunStatusChannel, "run-a")
	require.NoError(t, err)
	assert.True(t, empty)
	assert.Empty(t, nm.subscribers)

	_, err = nm.removeSubscribers("sub-2", RunStatusChannel, "run-a")
	assert.Error(t, err)
}

package notifications

import (
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adanyl0v/go-taskdesk/internal/models"
)

type fakeSession struct {
	id string

	mu       sync.Mutex
	received []models.Notification
	full     bool
	closed   bool
}

func (s *fakeSession) ID() string { return s.id }

func (s *fakeSession) Send(n models.Notification) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return false
	}
	s.received = append(s.received, n)
	return true
}

func (s *fakeSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *fakeSession) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.received)
}

func event(taskID int64) models.Notification {
	return models.Notification{
		Kind:    models.NotificationTaskCreated,
		TaskID:  taskID,
		Message: fmt.Sprintf("task %d", taskID),
	}
}

func TestHub_NotifyReachesEverySessionOfTheUser(t *testing.T) {
	hub := NewHub(zerolog.Nop(), 10)
	tab1 := &fakeSession{id: "tab1"}
	tab2 := &fakeSession{id: "tab2"}
	other := &fakeSession{id: "other"}

	require.NoError(t, hub.Join("alice", tab1))
	require.NoError(t, hub.Join("alice", tab2))
	require.NoError(t, hub.Join("bob", other))
	assert.Equal(t, 2, hub.SessionCount("alice"))

	hub.Notify("alice", event(1))

	assert.Equal(t, 1, tab1.count())
	assert.Equal(t, 1, tab2.count())
	assert.Equal(t, 0, other.count())
}

func TestHub_LeaveStopsDelivery(t *testing.T) {
	hub := NewHub(zerolog.Nop(), 10)
	tab := &fakeSession{id: "tab"}
	require.NoError(t, hub.Join("alice", tab))

	hub.Leave("alice", "tab")
	hub.Leave("alice", "tab")
	hub.Leave("nobody", "tab")
	assert.Zero(t, hub.SessionCount("alice"))

	hub.Notify("alice", event(1))
	assert.Zero(t, tab.count())
}

func TestHub_EventsWithoutSessionsAreOnlyRetained(t *testing.T) {
	hub := NewHub(zerolog.Nop(), 10)

	hub.Notify("alice", event(1))
	hub.Notify("", event(2))

	recent := hub.Recent("alice")
	require.Len(t, recent, 1)
	assert.Equal(t, int64(1), recent[0].TaskID)
}

func TestHub_RecentIsBoundedNewestFirst(t *testing.T) {
	hub := NewHub(zerolog.Nop(), 3)
	for i := int64(1); i <= 5; i++ {
		hub.Notify("alice", event(i))
	}

	recent := hub.Recent("alice")
	require.Len(t, recent, 3)
	assert.Equal(t, []int64{5, 4, 3}, []int64{recent[0].TaskID, recent[1].TaskID, recent[2].TaskID})
	assert.Empty(t, hub.Recent("bob"))
}

func TestHub_SlowSessionDoesNotBlockOthers(t *testing.T) {
	hub := NewHub(zerolog.Nop(), 10)
	slow := &fakeSession{id: "slow", full: true}
	fast := &fakeSession{id: "fast"}
	require.NoError(t, hub.Join("alice", slow))
	require.NoError(t, hub.Join("alice", fast))

	hub.Notify("alice", event(1))

	assert.Zero(t, slow.count())
	assert.Equal(t, 1, fast.count())
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(zerolog.Nop(), 10)
	tab := &fakeSession{id: "tab"}
	require.NoError(t, hub.Join("alice", tab))

	hub.Close()
	hub.Close()

	assert.True(t, tab.closed)
	assert.Zero(t, hub.SessionCount("alice"))
	assert.ErrorIs(t, hub.Join("alice", &fakeSession{id: "late"}), ErrHubClosed)

	hub.Notify("alice", event(1))
	assert.Zero(t, tab.count())
}

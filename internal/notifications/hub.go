// Package notifications fans task events out to the live sessions of a user.
package notifications

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-taskdesk/internal/models"
)

const DefaultRecentLimit = 50

var ErrHubClosed = errors.New("notification hub closed")

// Session is one connected client of a user, e.g. a browser tab.
type Session interface {
	ID() string
	// Send must not block. It returns false when the event was dropped.
	Send(n models.Notification) bool
	Close()
}

// Hub maps user ids to their active sessions and keeps the last
// few notifications of every user for the pull endpoint.
// Delivery is best effort: events for users without sessions are
// only kept in the recent list.
type Hub struct {
	logger      zerolog.Logger
	recentLimit int

	mu       sync.RWMutex
	sessions map[string]map[string]Session
	recent   map[string][]models.Notification
	closed   bool
}

func NewHub(logger zerolog.Logger, recentLimit int) *Hub {
	if recentLimit <= 0 {
		recentLimit = DefaultRecentLimit
	}
	return &Hub{
		logger:      logger,
		recentLimit: recentLimit,
		sessions:    make(map[string]map[string]Session),
		recent:      make(map[string][]models.Notification),
	}
}

// Join registers s as a session of userID.
func (h *Hub) Join(userID string, s Session) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}

	set, ok := h.sessions[userID]
	if !ok {
		set = make(map[string]Session)
		h.sessions[userID] = set
	}
	set[s.ID()] = s

	h.logger.Debug().
		Str("user_id", userID).
		Str("session_id", s.ID()).
		Int("sessions", len(set)).
		Msg("session joined")
	return nil
}

// Leave removes the session. It is a no-op for unknown sessions.
func (h *Hub) Leave(userID, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.sessions[userID]
	if !ok {
		return
	}
	if _, ok = set[sessionID]; !ok {
		return
	}
	delete(set, sessionID)
	if len(set) == 0 {
		delete(h.sessions, userID)
	}

	h.logger.Debug().
		Str("user_id", userID).
		Str("session_id", sessionID).
		Msg("session left")
}

// Notify implements services.Notifier.
func (h *Hub) Notify(userID string, n models.Notification) {
	if userID == "" {
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	list := append(h.recent[userID], n)
	if len(list) > h.recentLimit {
		list = append(list[:0:0], list[len(list)-h.recentLimit:]...)
	}
	h.recent[userID] = list

	targets := make([]Session, 0, len(h.sessions[userID]))
	for _, s := range h.sessions[userID] {
		targets = append(targets, s)
	}
	h.mu.Unlock()

	delivered := 0
	for _, s := range targets {
		if s.Send(n) {
			delivered++
			continue
		}
		h.logger.Warn().
			Str("user_id", userID).
			Str("session_id", s.ID()).
			Str("kind", string(n.Kind)).
			Msg("dropped notification for slow session")
	}

	h.logger.Debug().
		Str("user_id", userID).
		Str("kind", string(n.Kind)).
		Int64("task_id", n.TaskID).
		Int("delivered", delivered).
		Msg("notified user")
}

// Recent returns the retained notifications of userID, newest first.
func (h *Hub) Recent(userID string) []models.Notification {
	h.mu.RLock()
	defer h.mu.RUnlock()

	list := h.recent[userID]
	out := make([]models.Notification, len(list))
	for i, n := range list {
		out[len(list)-1-i] = n
	}
	return out
}

func (h *Hub) SessionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID])
}

// Close disconnects every session. Later joins fail with ErrHubClosed
// and later notifications are discarded.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	all := h.sessions
	h.sessions = make(map[string]map[string]Session)
	h.mu.Unlock()

	count := 0
	for _, set := range all {
		for _, s := range set {
			s.Close()
			count++
		}
	}
	h.logger.Info().
		Int("sessions", count).
		Msg("closed notification hub")
}

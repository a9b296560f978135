package notifications

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adanyl0v/go-taskdesk/internal/models"
)

func newTestServer(t *testing.T, hub *Hub, userID string) (*httptest.Server, chan error) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	served := make(chan error, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			served <- err
			return
		}
		served <- Serve(hub, conn, userID, zerolog.Nop())
	}))
	t.Cleanup(srv.Close)
	return srv, served
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestServe_PushesNotificationsAfterIdentify(t *testing.T) {
	hub := NewHub(zerolog.Nop(), 10)
	srv, served := newTestServer(t, hub, "alice")
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(identifyMessage{Type: MessageTypeIdentify, UserID: "alice"}))
	require.Eventually(t, func() bool { return hub.SessionCount("alice") == 1 },
		time.Second, 10*time.Millisecond)

	hub.Notify("alice", models.Notification{
		Kind:    models.NotificationExtensionApproved,
		TaskID:  42,
		Message: "approved",
	})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg pushMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageTypeNotification, msg.Type)
	assert.Equal(t, int64(42), msg.Data.TaskID)
	assert.Equal(t, models.NotificationExtensionApproved, msg.Data.Kind)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))

	select {
	case err := <-served:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end after close")
	}
	assert.Zero(t, hub.SessionCount("alice"))
}

func TestServe_RejectsSessionIdentifyingAsAnotherUser(t *testing.T) {
	hub := NewHub(zerolog.Nop(), 10)
	srv, served := newTestServer(t, hub, "alice")
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(identifyMessage{Type: MessageTypeIdentify, UserID: "mallory"}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation))

	select {
	case err := <-served:
		assert.ErrorIs(t, err, ErrIdentifyFailed)
	case <-time.After(2 * time.Second):
		t.Fatal("session was not rejected")
	}
	assert.Zero(t, hub.SessionCount("alice"))
}

func TestServe_HubCloseDisconnectsSessions(t *testing.T) {
	hub := NewHub(zerolog.Nop(), 10)
	srv, served := newTestServer(t, hub, "alice")
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(identifyMessage{Type: MessageTypeIdentify, UserID: "alice"}))
	require.Eventually(t, func() bool { return hub.SessionCount("alice") == 1 },
		time.Second, 10*time.Millisecond)

	hub.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)

	select {
	case <-served:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end after hub close")
	}
}

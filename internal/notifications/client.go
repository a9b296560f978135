package notifications

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-taskdesk/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	identifyWait   = 10 * time.Second
	maxMessageSize = 512
	sendBuffer     = 16
)

const (
	MessageTypeIdentify     = "identify"
	MessageTypeNotification = "notification"
)

var ErrIdentifyFailed = errors.New("session did not identify as its user")

type identifyMessage struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

type pushMessage struct {
	Type string              `json:"type"`
	Data models.Notification `json:"data"`
}

// Client is a websocket session of a user.
type Client struct {
	id     string
	userID string
	conn   *websocket.Conn
	logger zerolog.Logger

	send      chan models.Notification
	done      chan struct{}
	closeOnce sync.Once
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) Send(n models.Notification) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- n:
		return true
	default:
		return false
	}
}

func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Serve runs a websocket session for the authenticated userID until
// the connection closes. The first client message must be an
// identify message naming userID, otherwise the connection is closed
// with a policy violation and ErrIdentifyFailed is returned.
func Serve(hub *Hub, conn *websocket.Conn, userID string, logger zerolog.Logger) error {
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(identifyWait))

	var msg identifyMessage
	err := conn.ReadJSON(&msg)
	if err != nil {
		logger.Warn().
			Err(err).
			Str("user_id", userID).
			Msg("failed to read identify message")
		return err
	}
	if msg.Type != MessageTypeIdentify || msg.UserID != userID {
		logger.Warn().
			Str("user_id", userID).
			Str("claimed_user_id", msg.UserID).
			Msg("session identified as another user")
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, ErrIdentifyFailed.Error()),
			time.Now().Add(writeWait),
		)
		return ErrIdentifyFailed
	}

	c := &Client{
		id:     uuid.NewString(),
		userID: userID,
		conn:   conn,
		logger: logger,
		send:   make(chan models.Notification, sendBuffer),
		done:   make(chan struct{}),
	}

	err = hub.Join(userID, c)
	if err != nil {
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, err.Error()),
			time.Now().Add(writeWait),
		)
		return err
	}
	defer hub.Leave(userID, c.id)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump()
	}()

	c.readPump()
	c.Close()
	<-writerDone
	return nil
}

// readPump discards client messages and returns once the peer is gone.
func (c *Client) readPump() {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn().
					Err(err).
					Str("session_id", c.id).
					Msg("websocket closed unexpectedly")
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case n := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.conn.WriteJSON(pushMessage{Type: MessageTypeNotification, Data: n})
			if err != nil {
				c.logger.Warn().
					Err(err).
					Str("session_id", c.id).
					Msg("failed to write notification")
				// Unblocks readPump.
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.conn.WriteMessage(websocket.PingMessage, nil)
			if err != nil {
				_ = c.conn.Close()
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait),
			)
			_ = c.conn.Close()
			return
		}
	}
}

package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-taskdesk/internal/notifications"
)

// HandleListNotifications is the pull fallback of the push channel.
// The durable state is always GET /tasks.
func (h *handlerImpl) HandleListNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"items": h.hub.Recent(c.GetString(userIDCtxKey)),
	})
}

func (h *handlerImpl) HandleNotificationsSocket(c *gin.Context) {
	userID := c.GetString(userIDCtxKey)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("failed to upgrade connection")
		return
	}
	h.logger.Info().
		Str("user_id", userID).
		Msg("notification socket connected")

	err = notifications.Serve(h.hub, conn, userID, h.logger)
	if err != nil && !errors.Is(err, notifications.ErrIdentifyFailed) {
		h.logger.Warn().
			Err(err).
			Str("user_id", userID).
			Msg("notification socket ended with error")
	}
	h.logger.Info().
		Str("user_id", userID).
		Msg("notification socket disconnected")
}

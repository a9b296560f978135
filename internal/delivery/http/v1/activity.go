package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-taskdesk/internal/models"
)

type getActivityResponse struct {
	ID               int64     `json:"id"`
	UserID           string    `json:"user_id"`
	TaskID           *int64    `json:"task_id"`
	TaskAbbreviation string    `json:"task_abbreviation"`
	Action           string    `json:"action"`
	CreatedAt        time.Time `json:"created_at"`
}

func newGetActivityResponse(entry *models.ActivityLog) getActivityResponse {
	return getActivityResponse{
		ID:               entry.ID,
		UserID:           entry.UserID,
		TaskID:           entry.TaskID,
		TaskAbbreviation: entry.TaskAbbreviation,
		Action:           string(entry.Action),
		CreatedAt:        entry.CreatedAt,
	}
}

func (h *handlerImpl) HandleListActivity(c *gin.Context) {
	var query pageQuery
	err := c.ShouldBindQuery(&query)
	if err != nil {
		abort(c, newBadRequestError(errInvalidQuery.Error()))
		return
	}

	result, err := h.activity.ListActivity(c.Request.Context(), actorFromContext(c), query.page())
	if err != nil {
		abort(c, serviceError(err))
		return
	}
	c.JSON(http.StatusOK, newListResponse(result, newGetActivityResponse))
}

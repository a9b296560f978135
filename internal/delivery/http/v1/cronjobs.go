package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-taskdesk/internal/models"
	"github.com/adanyl0v/go-taskdesk/internal/services"
)

type getCronjobResponse struct {
	ID          int64     `json:"id"`
	Description string    `json:"description"`
	UserID      string    `json:"user_id"`
	TimeOfDay   string    `json:"time"`
	Repeat      string    `json:"repeat"`
	Priority    string    `json:"priority"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newGetCronjobResponse(job *models.Cronjob) getCronjobResponse {
	return getCronjobResponse{
		ID:          job.ID,
		Description: job.Description,
		UserID:      job.UserID,
		TimeOfDay:   job.TimeOfDay.String(),
		Repeat:      string(job.Repeat),
		Priority:    string(job.Priority),
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
	}
}

type cronjobRequest struct {
	Description string `json:"description" binding:"required,max=4096"`
	UserID      string `json:"user_id" binding:"required,uuid"`
	TimeOfDay   string `json:"time" binding:"required,datetime=15:04:05"`
	Repeat      string `json:"repeat" binding:"required,oneof=daily weekdays weekly monthly"`
	Priority    string `json:"priority" binding:"required,oneof=normal medium high"`
}

func (r cronjobRequest) params() services.CronjobParams {
	return services.CronjobParams{
		Description: r.Description,
		UserID:      r.UserID,
		TimeOfDay:   r.TimeOfDay,
		Repeat:      models.RepeatInterval(r.Repeat),
		Priority:    models.Priority(r.Priority),
	}
}

func (h *handlerImpl) HandleListCronjobs(c *gin.Context) {
	var query pageQuery
	err := c.ShouldBindQuery(&query)
	if err != nil {
		abort(c, newBadRequestError(errInvalidQuery.Error()))
		return
	}

	result, err := h.cronjobs.ListCronjobs(c.Request.Context(), query.page())
	if err != nil {
		abort(c, serviceError(err))
		return
	}
	c.JSON(http.StatusOK, newListResponse(result, newGetCronjobResponse))
}

func (h *handlerImpl) HandleCreateCronjob(c *gin.Context) {
	var req cronjobRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	job, err := h.cronjobs.CreateCronjob(c.Request.Context(), req.params())
	if err != nil {
		abort(c, serviceError(err))
		return
	}
	c.JSON(http.StatusCreated, newGetCronjobResponse(job))
}

func (h *handlerImpl) HandleUpdateCronjob(c *gin.Context) {
	cronjobID, ok := h.int64Param(c, "id")
	if !ok {
		return
	}

	var req cronjobRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	job, err := h.cronjobs.UpdateCronjob(c.Request.Context(), cronjobID, req.params())
	if err != nil {
		abort(c, serviceError(err))
		return
	}
	c.JSON(http.StatusOK, newGetCronjobResponse(job))
}

func (h *handlerImpl) HandleDeleteCronjob(c *gin.Context) {
	cronjobID, ok := h.int64Param(c, "id")
	if !ok {
		return
	}

	err := h.cronjobs.DeleteCronjob(c.Request.Context(), cronjobID)
	if err != nil {
		abort(c, serviceError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-taskdesk/internal/models"
	"github.com/adanyl0v/go-taskdesk/internal/services"
)

type getUserResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	ContactNumber string    `json:"contact_number"`
	IsAdmin       bool      `json:"is_admin"`
	IsEnabled     bool      `json:"is_enabled"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func newGetUserResponse(user *models.User) getUserResponse {
	return getUserResponse{
		ID:            user.ID,
		Name:          user.Name,
		Email:         user.Email,
		ContactNumber: user.ContactNumber,
		IsAdmin:       user.IsAdmin,
		IsEnabled:     user.IsEnabled,
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	}
}

func (h *handlerImpl) HandleGetMe(c *gin.Context) {
	user, err := h.users.GetUser(c.Request.Context(), c.GetString(userIDCtxKey))
	if err != nil {
		abort(c, serviceError(err))
		return
	}
	c.JSON(http.StatusOK, newGetUserResponse(user))
}

type updateMeRequest struct {
	Name          *string `json:"name,omitempty" binding:"omitempty,max=255"`
	ContactNumber *string `json:"contact_number,omitempty" binding:"omitempty,max=32"`
}

func (h *handlerImpl) HandleUpdateMe(c *gin.Context) {
	var req updateMeRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), c.GetString(userIDCtxKey), services.UpdateProfileParams{
		Name:          req.Name,
		ContactNumber: req.ContactNumber,
	})
	if err != nil {
		abort(c, serviceError(err))
		return
	}
	c.JSON(http.StatusOK, newGetUserResponse(user))
}

func (h *handlerImpl) HandleListUsers(c *gin.Context) {
	var query pageQuery
	err := c.ShouldBindQuery(&query)
	if err != nil {
		abort(c, newBadRequestError(errInvalidQuery.Error()))
		return
	}

	result, err := h.users.ListUsers(c.Request.Context(), query.page())
	if err != nil {
		abort(c, serviceError(err))
		return
	}
	c.JSON(http.StatusOK, newListResponse(result, newGetUserResponse))
}

type updateUserRequest struct {
	updateMeRequest
	IsAdmin   *bool `json:"is_admin,omitempty"`
	IsEnabled *bool `json:"is_enabled,omitempty"`
}

func (h *handlerImpl) HandleUpdateUser(c *gin.Context) {
	userID := c.Param("id")

	var req updateUserRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	if userID == c.GetString(userIDCtxKey) && req.IsEnabled != nil && !*req.IsEnabled {
		abort(c, newBadRequestError("admins cannot disable themselves"))
		return
	}

	user, err := h.users.UpdateUser(c.Request.Context(), userID, services.UpdateUserParams{
		Name:          req.Name,
		ContactNumber: req.ContactNumber,
		IsAdmin:       req.IsAdmin,
		IsEnabled:     req.IsEnabled,
	})
	if err != nil {
		abort(c, serviceError(err))
		return
	}
	c.JSON(http.StatusOK, newGetUserResponse(user))
}

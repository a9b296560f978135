package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-taskdesk/internal/services"
)

var (
	errInvalidRequestBody      = errors.New("invalid request body")
	errInvalidQuery            = errors.New("invalid query parameters")
	errInvalidID               = errors.New("invalid id")
	errMandatoryCookieNotFound = errors.New("mandatory cookie not found")
	errUnauthenticated         = errors.New("authentication required")
	errAdminRequired           = errors.New("admin rights required")
)

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newAPIError(code int, message string) apiError {
	return apiError{
		Code:    code,
		Message: message,
	}
}

func (e apiError) Error() string {
	return e.Message
}

func abort(c *gin.Context, err apiError) {
	c.AbortWithStatusJSON(err.Code, gin.H{"error": err.Message})
}

func newStatusTextError(status int) apiError {
	return newAPIError(status, http.StatusText(status))
}

func newBadRequestError(message string) apiError {
	return newAPIError(http.StatusBadRequest, message)
}

func newUnauthorizedError(message string) apiError {
	return newAPIError(http.StatusUnauthorized, message)
}

func newForbiddenError(message string) apiError {
	return newAPIError(http.StatusForbidden, message)
}

func newNotFoundError(message string) apiError {
	return newAPIError(http.StatusNotFound, message)
}

func newConflictError(message string) apiError {
	return newAPIError(http.StatusConflict, message)
}

// serviceError maps a service failure onto a response. Messages of
// typed failures are safe to show, anything else becomes a bare 500.
func serviceError(err error) apiError {
	switch {
	case errors.Is(err, services.ErrValidation):
		return newBadRequestError(err.Error())
	case errors.Is(err, services.ErrUserPasswordMismatch),
		errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrSessionExpired):
		return newUnauthorizedError(err.Error())
	case errors.Is(err, services.ErrPermissionDenied),
		errors.Is(err, services.ErrUserDisabled):
		return newForbiddenError(err.Error())
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrCronjobNotFound),
		errors.Is(err, services.ErrFileNotFound):
		return newNotFoundError(err.Error())
	case errors.Is(err, services.ErrConflict),
		errors.Is(err, services.ErrUserAlreadyExists):
		return newConflictError(err.Error())
	}
	return newStatusTextError(http.StatusInternalServerError)
}

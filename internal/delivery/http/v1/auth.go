package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-taskdesk/internal/services"
)

const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
)

type loginRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email,max=255"`
	Password string `json:"password" form:"password" binding:"required,min=8,max=255"`
}

type authResponse struct {
	UserID      string    `json:"user_id"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (h *handlerImpl) HandleLogin(c *gin.Context) {
	var req loginRequest
	err := c.ShouldBind(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind request body")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	fingerprint, err := generateFingerprint(c)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to generate fingerprint")
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), services.LoginParams{
		Email:       req.Email,
		Password:    req.Password,
		Fingerprint: fingerprint,
	})
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to login")
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			abort(c, newUnauthorizedError(services.ErrUserNotFound.Error()))
		default:
			abort(c, serviceError(err))
		}
		return
	}

	setAuthCookies(c, result)
	c.JSON(http.StatusOK, newAuthResponse(result))
}

func (h *handlerImpl) HandleRefresh(c *gin.Context) {
	result, ok := h.refreshSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newAuthResponse(result))
}

// refreshSession rotates the refresh token from the cookie and sets the
// new token pair. On failure it aborts c and returns false.
func (h *handlerImpl) refreshSession(c *gin.Context) (*services.LoginResult, bool) {
	refreshToken, err := c.Cookie(refreshTokenCookie)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to get refresh token cookie")
		abort(c, newUnauthorizedError(errMandatoryCookieNotFound.Error()))
		return nil, false
	}

	fingerprint, err := generateFingerprint(c)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to generate fingerprint")
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return nil, false
	}

	result, err := h.auth.Refresh(c.Request.Context(), services.RefreshParams{
		RefreshToken: refreshToken,
		Fingerprint:  fingerprint,
	})
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to refresh session")
		abort(c, serviceError(err))
		return nil, false
	}

	setAuthCookies(c, result)
	return result, true
}

type registerRequest struct {
	loginRequest
	Name          string `json:"name" form:"name" binding:"required,max=255"`
	ContactNumber string `json:"contact_number" form:"contact_number" binding:"omitempty,max=32"`
}

func (h *handlerImpl) HandleRegister(c *gin.Context) {
	var req registerRequest
	err := c.ShouldBind(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind request body")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}
	h.logger.Info().
		Str("email", req.Email).
		Msg("register request")

	fingerprint, err := generateFingerprint(c)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to generate fingerprint")
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	result, err := h.auth.Register(c.Request.Context(), services.RegisterParams{
		Name:          req.Name,
		Email:         req.Email,
		ContactNumber: req.ContactNumber,
		Password:      req.Password,
		Fingerprint:   fingerprint,
	})
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to register user")
		abort(c, serviceError(err))
		return
	}

	setAuthCookies(c, result)
	c.JSON(http.StatusCreated, newAuthResponse(result))
}

func (h *handlerImpl) HandleLogout(c *gin.Context) {
	sessionID := c.GetString(sessionIDCtxKey)

	err := h.auth.Logout(c.Request.Context(), sessionID)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to logout")
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	clearCookie(c, accessTokenCookie)
	clearCookie(c, refreshTokenCookie)

	c.Status(http.StatusNoContent)
}

func newAuthResponse(result *services.LoginResult) authResponse {
	return authResponse{
		UserID:      result.UserID,
		AccessToken: result.AccessToken,
		ExpiresAt:   result.AccessTokenExpiresAt,
	}
}

func generateFingerprint(c *gin.Context) (string, error) {
	fingerprintBytes, err := json.Marshal(map[string]string{
		"client_ip":  c.ClientIP(),
		"user_agent": c.Request.UserAgent(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal json: %w", err)
	}
	return string(fingerprintBytes), nil
}

func setAuthCookies(c *gin.Context, result *services.LoginResult) {
	now := time.Now()
	setAccessTokenCookie(c, result.AccessToken, result.AccessTokenExpiresAt.Sub(now))
	setRefreshTokenCookie(c, result.RefreshToken, result.RefreshTokenExpiresAt.Sub(now))
}

func setAccessTokenCookie(c *gin.Context, token string, maxAge time.Duration) {
	// httpOnly must be false to allow client-side JavaScript
	// to read the cookie and send it in the Authorization header.
	const secure, httpOnly = false, false
	c.SetCookie(accessTokenCookie, token, int(maxAge.Seconds()),
		"/", "", secure, httpOnly)
}

func setRefreshTokenCookie(c *gin.Context, token string, maxAge time.Duration) {
	const secure, httpOnly = false, true
	c.SetCookie(refreshTokenCookie, token, int(maxAge.Seconds()),
		"/", "", secure, httpOnly)
}

func clearCookie(c *gin.Context, name string) {
	c.SetCookie(name, "", -1,
		"/", "", false, false)
}

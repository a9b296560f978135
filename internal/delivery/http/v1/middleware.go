package v1

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-taskdesk/internal/services"
)

const (
	userIDCtxKey    = "user_id"
	sessionIDCtxKey = "session_id"
	isAdminCtxKey   = "is_admin"
	requestIDHeader = "X-Request-ID"
)

func (h *handlerImpl) HandleAuthMiddleware(c *gin.Context) {
	accessToken, ok := bearerToken(c)
	if !ok {
		h.logger.Warn().Msg("access token required")
		abort(c, newUnauthorizedError(errUnauthenticated.Error()))
		return
	}

	claims, err := h.auth.ParseJWTToken(accessToken)
	if err != nil {
		if !errors.Is(err, jwt.ErrTokenExpired) {
			h.logger.Error().
				Err(err).
				Msg("failed to parse token")
			abort(c, newUnauthorizedError(errUnauthenticated.Error()))
			return
		}

		result, ok := h.refreshSession(c)
		if !ok {
			return
		}

		claims, err = h.auth.ParseJWTToken(result.AccessToken)
		if err != nil {
			h.logger.Error().
				Err(err).
				Msg("failed to parse fresh token")
			abort(c, newUnauthorizedError(errUnauthenticated.Error()))
			return
		}
	}

	ctx := c.Request.Context()
	session, err := h.sessions.GetSessionByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			abort(c, newUnauthorizedError(services.ErrSessionNotFound.Error()))
			return
		}
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	browserFingerprint, err := generateFingerprint(c)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to generate fingerprint")
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	if browserFingerprint != session.Fingerprint {
		h.logger.Warn().
			Str("session_id", session.ID).
			Msg("fingerprint mismatch")
		abort(c, newUnauthorizedError(errUnauthenticated.Error()))
		return
	}

	user, err := h.users.GetUser(ctx, session.UserID)
	if err != nil {
		abort(c, serviceError(err))
		return
	}
	if !user.IsEnabled {
		h.logger.Warn().
			Str("user_id", user.ID).
			Msg("disabled user tried to use a session")
		abort(c, newForbiddenError(services.ErrUserDisabled.Error()))
		return
	}

	c.Set(userIDCtxKey, user.ID)
	c.Set(sessionIDCtxKey, session.ID)
	c.Set(isAdminCtxKey, user.IsAdmin)
	c.Next()
}

func (h *handlerImpl) HandleAdminMiddleware(c *gin.Context) {
	if !actorFromContext(c).IsAdmin {
		h.logger.Warn().
			Str("user_id", c.GetString(userIDCtxKey)).
			Str("path", c.FullPath()).
			Msg("admin route denied")
		abort(c, newForbiddenError(errAdminRequired.Error()))
		return
	}
	c.Next()
}

// RequestTimeout bounds the context every handler passes to the services.
func RequestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// AccessLog writes one line per request and tags it with a request id.
func AccessLog(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		c.Next()

		status := c.Writer.Status()
		event := logger.Info()
		switch {
		case status >= http.StatusInternalServerError:
			event = logger.Error()
		case status >= http.StatusBadRequest:
			event = logger.Warn()
		}
		event.
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Int("size", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Str("user_id", c.GetString(userIDCtxKey)).
			Msg("handled request")
	}
}

// bearerToken reads the Authorization header and falls back to the
// access token cookie for browser websocket upgrades, which cannot
// set headers.
func bearerToken(c *gin.Context) (string, bool) {
	const authHeader = "Authorization"
	header := c.GetHeader(authHeader)
	if header == "" {
		token, err := c.Cookie(accessTokenCookie)
		return token, err == nil && token != ""
	}

	const bearerPrefix = "Bearer"
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != bearerPrefix || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func actorFromContext(c *gin.Context) services.Actor {
	return services.Actor{
		UserID:  c.GetString(userIDCtxKey),
		IsAdmin: c.GetBool(isAdminCtxKey),
	}
}

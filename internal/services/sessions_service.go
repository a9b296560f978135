package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-taskdesk/internal/models"
)

type sessionServiceImpl struct {
	logger   zerolog.Logger
	sessions SessionRepository
}

func NewSessionService(
	logger zerolog.Logger,
	sessions SessionRepository,
) SessionService {
	return &sessionServiceImpl{
		logger:   logger,
		sessions: sessions,
	}
}

func (s *sessionServiceImpl) GetSessionByID(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.sessions.GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			s.logger.Error().
				Str("session_id", sessionID).
				Msg("session not found")
			return nil, ErrSessionNotFound
		}

		s.logger.Error().
			Err(err).
			Str("session_id", sessionID).
			Msg("failed to select session by id")
		return nil, err
	}
	s.logger.Debug().
		Str("session_id", session.ID).
		Time("expires_at", session.ExpiresAt).
		Msg("selected session by id")

	return session, nil
}

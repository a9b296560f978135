package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-taskdesk/internal/models"
)

const minPasswordLength = 8

type authServiceImpl struct {
	logger             zerolog.Logger
	tx                 Transactor
	users              UserRepository
	sessions           SessionRepository
	jwtIssuer          string
	jwtSigningKey      []byte
	jwtAccessTokenTTL  time.Duration
	jwtRefreshTokenTTL time.Duration
	hashParams         *argon2id.Params
	now                func() time.Time
}

func NewAuthService(
	logger zerolog.Logger,
	tx Transactor,
	users UserRepository,
	sessions SessionRepository,
	jwtIssuer string,
	jwtSigningKey []byte,
	jwtAccessTokenTTL time.Duration,
	jwtRefreshTokenTTL time.Duration,
) AuthService {
	return &authServiceImpl{
		logger:             logger,
		tx:                 tx,
		users:              users,
		sessions:           sessions,
		jwtIssuer:          jwtIssuer,
		jwtSigningKey:      jwtSigningKey,
		jwtAccessTokenTTL:  jwtAccessTokenTTL,
		jwtRefreshTokenTTL: jwtRefreshTokenTTL,
		hashParams:         argon2id.DefaultParams,
		now:                time.Now,
	}
}

func (s *authServiceImpl) Login(ctx context.Context, params LoginParams) (*LoginResult, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(params.Email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.logger.Error().
				Str("email", params.Email).
				Msg("user not found")
			return nil, ErrUserNotFound
		}

		s.logger.Error().
			Err(err).
			Str("email", params.Email).
			Msg("failed to select user by email")
		return nil, err
	}
	s.logger.Debug().
		Str("user_id", user.ID).
		Str("email", user.Email).
		Msg("selected user")

	match, err := argon2id.ComparePasswordAndHash(params.Password, user.Password)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to compare password")
		return nil, err
	} else if !match {
		s.logger.Error().Msg("passwords do not match")
		return nil, ErrUserPasswordMismatch
	}

	if !user.IsEnabled {
		s.logger.Warn().
			Str("user_id", user.ID).
			Msg("disabled user tried to log in")
		return nil, ErrUserDisabled
	}

	var result *LoginResult
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		affected, err := s.sessions.DeleteSessionsByFingerprint(ctx, user.ID, params.Fingerprint)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to delete sessions by fingerprint")
			return err
		}
		s.logger.Debug().
			Str("user_id", user.ID).
			Int64("affected", affected).
			Msg("deleted sessions with the same fingerprint")

		result, err = s.startSession(ctx, user.ID, params.Fingerprint)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("session_id", result.SessionID).
		Msg("logged in")
	return result, nil
}

func (s *authServiceImpl) Refresh(ctx context.Context, params RefreshParams) (*LoginResult, error) {
	session, err := s.sessions.GetSessionByRefreshToken(ctx, params.RefreshToken, params.Fingerprint)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			s.logger.Error().Msg("session not found")
			return nil, ErrSessionNotFound
		}

		s.logger.Error().
			Err(err).
			Msg("failed to select session by refresh token")
		return nil, err
	}

	now := s.now()
	if session.Expired(now) {
		s.logger.Error().
			Str("session_id", session.ID).
			Time("expires_at", session.ExpiresAt).
			Msg("session expired")
		return nil, ErrSessionExpired
	}

	refreshToken, err := s.generateRefreshToken()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate refresh token")
		return nil, err
	}
	session.Rotate(refreshToken, now, s.jwtRefreshTokenTTL)

	err = s.sessions.UpdateSession(ctx, session)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("session_id", session.ID).
			Msg("failed to update session")
		return nil, err
	}
	s.logger.Debug().
		Str("session_id", session.ID).
		Time("expires_at", session.ExpiresAt).
		Msg("updated session")

	accessToken, accessTokenExpiresAt, err := s.generateAccessToken(session.ID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate access token")
		return nil, err
	}
	s.logger.Info().
		Str("user_id", session.UserID).
		Str("session_id", session.ID).
		Msg("refreshed session")

	return &LoginResult{
		UserID:                session.UserID,
		SessionID:             session.ID,
		AccessToken:           accessToken,
		AccessTokenExpiresAt:  accessTokenExpiresAt,
		RefreshToken:          session.RefreshToken,
		RefreshTokenExpiresAt: session.ExpiresAt,
	}, nil
}

func (s *authServiceImpl) Register(ctx context.Context, params RegisterParams) (*LoginResult, error) {
	name := strings.TrimSpace(params.Name)
	email := normalizeEmail(params.Email)
	switch {
	case name == "":
		return nil, validationError("name is required")
	case !strings.Contains(email, "@"):
		return nil, validationError("invalid email %q", params.Email)
	case len(params.Password) < minPasswordLength:
		return nil, validationError("password must be at least %d characters", minPasswordLength)
	}

	now := s.now()
	user := &models.User{
		Name:          name,
		Email:         email,
		ContactNumber: strings.TrimSpace(params.ContactNumber),
		IsEnabled:     true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	userUUID, err := uuid.NewV7()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate user uuid")
		return nil, err
	}
	user.ID = userUUID.String()

	passwordHash, err := argon2id.CreateHash(params.Password, s.hashParams)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to hash password")
		return nil, err
	}
	user.Password = passwordHash

	var result *LoginResult
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		err := s.users.CreateUser(ctx, user)
		if err != nil {
			if errors.Is(err, ErrUserAlreadyExists) {
				s.logger.Error().
					Str("email", user.Email).
					Msg("user with this email already exists")
				return ErrUserAlreadyExists
			}

			s.logger.Error().
				Err(err).
				Msg("failed to insert user")
			return err
		}
		s.logger.Debug().
			Str("user_id", user.ID).
			Str("email", user.Email).
			Msg("inserted user")

		result, err = s.startSession(ctx, user.ID, params.Fingerprint)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("session_id", result.SessionID).
		Msg("registered user")
	return result, nil
}

func (s *authServiceImpl) Logout(ctx context.Context, sessionID string) error {
	err := s.sessions.DeleteSession(ctx, sessionID)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		s.logger.Error().
			Err(err).
			Str("session_id", sessionID).
			Msg("failed to delete session")
		return err
	}

	s.logger.Info().
		Str("session_id", sessionID).
		Msg("logged out")
	return nil
}

func (s *authServiceImpl) ParseJWTToken(token string) (*jwt.RegisteredClaims, error) {
	t, err := jwt.ParseWithClaims(
		token,
		&jwt.RegisteredClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.jwtSigningKey, nil
		},
		jwt.WithIssuer(s.jwtIssuer),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("token is expired: %w", err)
		}
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := t.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return nil, fmt.Errorf("failed to parse token: unexpected claims type %T", t.Claims)
	}
	return claims, nil
}

// startSession inserts a session for the user and signs an access token for it.
func (s *authServiceImpl) startSession(ctx context.Context, userID, fingerprint string) (*LoginResult, error) {
	now := s.now()
	session := &models.Session{
		UserID:      userID,
		Fingerprint: fingerprint,
		ExpiresAt:   now.Add(s.jwtRefreshTokenTTL),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	sessionUUID, err := uuid.NewV7()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate session uuid")
		return nil, err
	}
	session.ID = sessionUUID.String()

	refreshToken, err := s.generateRefreshToken()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate refresh token")
		return nil, err
	}
	session.RefreshToken = refreshToken

	err = s.sessions.CreateSession(ctx, session)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to insert session")
		return nil, err
	}
	s.logger.Debug().
		Str("session_id", session.ID).
		Time("expires_at", session.ExpiresAt).
		Msg("inserted session")

	accessToken, accessTokenExpiresAt, err := s.generateAccessToken(session.ID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate access token")
		return nil, err
	}

	return &LoginResult{
		UserID:                userID,
		SessionID:             session.ID,
		AccessToken:           accessToken,
		AccessTokenExpiresAt:  accessTokenExpiresAt,
		RefreshToken:          session.RefreshToken,
		RefreshTokenExpiresAt: session.ExpiresAt,
	}, nil
}

func (s *authServiceImpl) generateRefreshToken() (string, error) {
	const length = 32
	bytes := make([]byte, length)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

func (s *authServiceImpl) generateAccessToken(sessionID string) (string, time.Time, error) {
	tokenUUID, err := uuid.NewRandom()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate id: %w", err)
	}

	now := s.now()
	expiresAt := now.Add(s.jwtAccessTokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        tokenUUID.String(),
		Issuer:    s.jwtIssuer,
		Subject:   sessionID,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		NotBefore: jwt.NewNumericDate(now),
		IssuedAt:  jwt.NewNumericDate(now),
	})

	signed, err := token.SignedString(s.jwtSigningKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

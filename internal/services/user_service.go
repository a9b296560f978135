package services

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-taskdesk/internal/models"
)

type userServiceImpl struct {
	logger   zerolog.Logger
	tx       Transactor
	users    UserRepository
	sessions SessionRepository
	now      func() time.Time
}

func NewUserService(
	logger zerolog.Logger,
	tx Transactor,
	users UserRepository,
	sessions SessionRepository,
) UserService {
	return &userServiceImpl{
		logger:   logger,
		tx:       tx,
		users:    users,
		sessions: sessions,
		now:      time.Now,
	}
}

func (s *userServiceImpl) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("failed to select user by id")
		return nil, err
	}
	return user, nil
}

func (s *userServiceImpl) UpdateProfile(ctx context.Context, userID string, params UpdateProfileParams) (*models.User, error) {
	return s.UpdateUser(ctx, userID, UpdateUserParams{
		Name:          params.Name,
		ContactNumber: params.ContactNumber,
	})
}

func (s *userServiceImpl) ListUsers(ctx context.Context, page Page) (*PageResult[*models.User], error) {
	page = page.Normalize()
	users, total, err := s.users.ListUsers(ctx, page.Offset(), page.Size)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to list users")
		return nil, err
	}
	s.logger.Debug().
		Int("count", len(users)).
		Int("total", total).
		Msg("listed users")

	return &PageResult[*models.User]{
		Items: users,
		Total: total,
		Page:  page.Page,
		Size:  page.Size,
	}, nil
}

func (s *userServiceImpl) UpdateUser(ctx context.Context, userID string, params UpdateUserParams) (*models.User, error) {
	if params.Name == nil && params.ContactNumber == nil &&
		params.IsAdmin == nil && params.IsEnabled == nil {
		return nil, validationError("no fields to update")
	}
	if params.Name != nil && strings.TrimSpace(*params.Name) == "" {
		return nil, validationError("name must not be empty")
	}

	var user *models.User
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.users.GetUserByID(ctx, userID)
		if err != nil {
			s.logger.Error().
				Err(err).
				Str("user_id", userID).
				Msg("failed to select user by id")
			return err
		}

		wasEnabled := user.IsEnabled
		if params.Name != nil {
			user.Name = strings.TrimSpace(*params.Name)
		}
		if params.ContactNumber != nil {
			user.ContactNumber = strings.TrimSpace(*params.ContactNumber)
		}
		if params.IsAdmin != nil {
			user.IsAdmin = *params.IsAdmin
		}
		if params.IsEnabled != nil {
			user.IsEnabled = *params.IsEnabled
		}
		user.UpdatedAt = s.now()

		err = s.users.UpdateUser(ctx, user)
		if err != nil {
			s.logger.Error().
				Err(err).
				Str("user_id", userID).
				Msg("failed to update user")
			return err
		}

		if wasEnabled && !user.IsEnabled {
			affected, err := s.sessions.DeleteSessionsByUserID(ctx, user.ID)
			if err != nil {
				s.logger.Error().
					Err(err).
					Str("user_id", userID).
					Msg("failed to delete sessions of disabled user")
				return err
			}
			s.logger.Debug().
				Str("user_id", user.ID).
				Int64("affected", affected).
				Msg("deleted sessions of disabled user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Msg("updated user")
	return user, nil
}
